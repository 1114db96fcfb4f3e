// Package coverage reconciles the backend names application code calls with
// the names the backend declares.
package coverage

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/phobologic/refcheck/internal/declare"
	"github.com/phobologic/refcheck/internal/discover"
	"github.com/phobologic/refcheck/internal/extract"
	"github.com/phobologic/refcheck/internal/model"
)

// Config describes one coverage run.
type Config struct {
	Kind model.Kind
	// Roots are the source directories searched for call sites.
	Roots []string
	// Declarations is the migrations directory for RPCs or the functions
	// directory for edge functions.
	Declarations string
	Wrappers     []string
	Allow        []string
	Mode         extract.Mode
	Extensions   []string
	Gitignore    bool
	Logger       *zap.Logger
}

// Run scans sources and declarations and returns the report.
func Run(cfg Config) (*model.Report, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	ex, err := extract.New(cfg.Mode, extract.Target{Kind: cfg.Kind, Wrappers: cfg.Wrappers})
	if err != nil {
		return nil, err
	}

	invoked, err := Invoked(cfg.Roots, ex, discover.Options{
		Extensions:       cfg.Extensions,
		RespectGitignore: cfg.Gitignore,
		Logger:           log,
	}, log)
	if err != nil {
		return nil, err
	}

	declared, err := Declared(cfg, log)
	if err != nil {
		return nil, err
	}

	log.Debug("scan complete",
		zap.String("kind", string(cfg.Kind)),
		zap.Int("invoked", invoked.Names().Len()),
		zap.Int("declared", declared.Len()))

	return Reconcile(cfg.Kind, invoked, declared, model.NewSet(cfg.Allow...)), nil
}

// Invoked extracts call sites from every source file under roots.
// Unreadable files are skipped.
func Invoked(roots []string, ex extract.Extractor, opts discover.Options, log *zap.Logger) (*model.Invoked, error) {
	files, err := discover.Files(roots, opts)
	if err != nil {
		return nil, fmt.Errorf("discovering files: %w", err)
	}

	invoked := model.NewInvoked()
	for _, f := range files {
		src, err := os.ReadFile(f.Path)
		if err != nil {
			log.Debug("skipping unreadable file", zap.String("path", f.Path), zap.Error(err))
			continue
		}
		for _, ref := range ex.Extract(f.Path, f.Language, src) {
			invoked.Add(ref)
		}
	}
	return invoked, nil
}

// Declared collects the declared names with the strategy for cfg.Kind.
func Declared(cfg Config, log *zap.Logger) (model.Set, error) {
	switch cfg.Kind {
	case model.RPC:
		set, err := declare.SQLFunctions(cfg.Declarations, declare.SQLOptions{
			Strict: cfg.Mode == extract.Syntax,
			Logger: log,
		})
		if err != nil {
			return nil, fmt.Errorf("reading migrations: %w", err)
		}
		return set, nil
	case model.Function:
		set, err := declare.Directories(cfg.Declarations)
		if err != nil {
			return nil, fmt.Errorf("reading functions directory: %w", err)
		}
		return set, nil
	}
	return nil, fmt.Errorf("unknown reference kind %q", cfg.Kind)
}

// Reconcile computes the missing references: invoked, not declared and not
// allowed. Both reference lists in the report are sorted by name.
func Reconcile(kind model.Kind, invoked *model.Invoked, declared, allowed model.Set) *model.Report {
	if allowed == nil {
		allowed = make(model.Set)
	}
	report := &model.Report{
		Kind:     kind,
		Declared: declared,
		Allowed:  allowed,
	}

	names := invoked.Names()
	for _, name := range names.Sorted() {
		ref, _ := invoked.First(name)
		report.Invoked = append(report.Invoked, ref)
	}

	missing := names.Minus(declared).Minus(allowed).Sorted()
	for _, name := range missing {
		ref, _ := invoked.First(name)
		report.Missing = append(report.Missing, ref)
	}
	return report
}
