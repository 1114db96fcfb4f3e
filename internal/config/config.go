// Package config loads refcheck settings from an optional YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/phobologic/refcheck/internal/coverage"
	"github.com/phobologic/refcheck/internal/extract"
)

// DefaultPath is read when no --config flag is given.
const DefaultPath = ".refcheck.yaml"

// ErrNotFound is returned when an explicitly requested config file is absent.
var ErrNotFound = errors.New("config file not found")

// Config is the full set of file-level settings.
type Config struct {
	Scan      ScanConfig      `yaml:"scan"`
	RPC       RPCConfig       `yaml:"rpc"`
	Functions FunctionsConfig `yaml:"functions"`
}

// ScanConfig applies to both coverage checkers.
type ScanConfig struct {
	Extensions []string `yaml:"extensions"`
	Mode       string   `yaml:"mode"`   // lexical or syntax
	Format     string   `yaml:"format"` // text or toon
	Gitignore  bool     `yaml:"gitignore"`
}

// RPCConfig configures rpc-coverage.
type RPCConfig struct {
	Migrations string   `yaml:"migrations"`
	Roots      []string `yaml:"roots"`
	Wrappers   []string `yaml:"wrappers"`
	Allow      []string `yaml:"allow"`
}

// FunctionsConfig configures functions-coverage.
type FunctionsConfig struct {
	Dir   string   `yaml:"dir"`
	Roots []string `yaml:"roots"`
	Allow []string `yaml:"allow"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			Mode:   string(extract.Lexical),
			Format: string(coverage.Text),
		},
		RPC: RPCConfig{
			Migrations: "supabase/migrations",
			Roots:      []string{"src", "supabase/functions"},
			Wrappers:   []string{"callRpc"},
		},
		Functions: FunctionsConfig{
			Dir:   "supabase/functions",
			Roots: []string{"src"},
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults
// unless explicit is set, in which case ErrNotFound is returned.
func Load(path string, explicit bool) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if explicit {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	if _, err := extract.ParseMode(c.Scan.Mode); err != nil {
		return err
	}
	if _, err := coverage.ParseFormat(c.Scan.Format); err != nil {
		return err
	}
	return nil
}
