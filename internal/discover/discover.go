// Package discover finds scannable source files under one or more roots.
package discover

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"

	"github.com/phobologic/refcheck/internal/lang"
)

// FileEntry represents a discovered source file.
type FileEntry struct {
	Path     string // Root joined with the path below it
	Language string // "" when the extension came from a custom allow-list
}

// Options controls discovery.
type Options struct {
	// Extensions replaces the registered extension allow-list when non-empty.
	Extensions []string
	// RespectGitignore drops files matched by a .gitignore at each root.
	RespectGitignore bool
	Logger           *zap.Logger
}

// Third-party packages are never application code.
var skipDirs = map[string]struct{}{
	"node_modules": {},
}

// Files discovers source files under every root. Roots that do not exist
// contribute nothing. Each file appears once even when roots overlap.
func Files(roots []string, opts Options) ([]FileEntry, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	allowed := make(map[string]struct{})
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = lang.Extensions()
	}
	for _, ext := range exts {
		allowed[ext] = struct{}{}
	}

	seen := make(map[string]struct{})
	var results []FileEntry

	for _, root := range roots {
		info, err := os.Stat(root)
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug("search root missing", zap.String("root", root))
			continue
		}
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			continue
		}

		var gi *ignore.GitIgnore
		if opts.RespectGitignore {
			gi = loadGitignore(root)
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				log.Debug("walk error", zap.String("path", path), zap.Error(err))
				return nil // skip errors
			}

			name := d.Name()

			if d.IsDir() {
				if path == root {
					return nil
				}
				if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
					return filepath.SkipDir
				}
				if gi != nil && gi.MatchesPath(relTo(root, path)+"/") {
					return filepath.SkipDir
				}
				return nil
			}

			if strings.HasPrefix(name, ".") {
				return nil
			}

			// Follow links to regular files; directory links are not walked.
			if d.Type()&fs.ModeSymlink != 0 {
				target, err := os.Stat(path)
				if err != nil || !target.Mode().IsRegular() {
					log.Debug("skipping symlink", zap.String("path", path))
					return nil
				}
			}

			ext := filepath.Ext(name)
			if _, ok := allowed[ext]; !ok {
				return nil
			}

			if gi != nil && gi.MatchesPath(relTo(root, path)) {
				return nil
			}

			key := path
			if abs, err := filepath.Abs(path); err == nil {
				key = abs
			}
			if _, dup := seen[key]; dup {
				return nil
			}
			seen[key] = struct{}{}

			results = append(results, FileEntry{Path: path, Language: lang.ForExtension(ext)})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})

	return results, nil
}

func relTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
