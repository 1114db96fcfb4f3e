// Package declare collects the names a backend declares: deployable function
// directories and SQL routines.
package declare

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/phobologic/refcheck/internal/model"
)

// createRoutineRe matches `create [or replace] function|procedure [schema.]name(`
// across line breaks. Group 1 is a quoted name, group 2 a bare one.
var createRoutineRe = regexp.MustCompile(
	`(?i)\bcreate\s+(?:or\s+replace\s+)?(?:function|procedure)\s+` +
		`(?:(?:"[^"]+"|[a-z_][a-z0-9_$]*)\s*\.\s*)?` +
		`(?:"([^"]+)"|([a-z_][a-z0-9_$]*))\s*\(`)

// Directories returns the immediate subdirectory names of root. Names starting
// with "_" hold shared code and names starting with "." are tooling, so both
// are skipped. A missing root yields an empty set.
func Directories(root string) (model.Set, error) {
	set := make(model.Set)
	entries, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		return set, nil
	}
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
			continue
		}
		set.Add(name)
	}
	return set, nil
}

// SQLOptions controls SQLFunctions.
type SQLOptions struct {
	// Strict ignores declarations that appear only inside comments, string
	// literals or dollar-quoted bodies.
	Strict bool
	Logger *zap.Logger
}

// SQLFunctions returns the routine names created by every .sql file under
// root. Files are read in lexical path order. A missing root yields an empty
// set and unreadable files are skipped.
func SQLFunctions(root string, opts SQLOptions) (model.Set, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	set := make(model.Set)
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		log.Debug("declarations root missing", zap.String("root", root))
		return set, nil
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Debug("walk error", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".sql") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			log.Debug("skipping unreadable file", zap.String("path", path), zap.Error(err))
			return nil
		}
		for _, name := range RoutineNames(string(data), opts.Strict) {
			set.Add(name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

// RoutineNames returns the routine names created in sql, in order of
// appearance. Schema prefixes and identifier quotes are removed.
func RoutineNames(sql string, strict bool) []string {
	if strict {
		sql = BlankNonCode(sql)
	}
	var names []string
	for _, m := range createRoutineRe.FindAllStringSubmatch(sql, -1) {
		if m[1] != "" {
			names = append(names, m[1])
		} else {
			names = append(names, m[2])
		}
	}
	return names
}
