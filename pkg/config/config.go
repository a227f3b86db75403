// Package config loads runtime settings from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"esrt/pkg/modules"
	"esrt/pkg/vm"
)

// Config is the parsed contents of an esrt.yml file.
type Config struct {
	// Compatibility lists the legacy behaviors to enable by name, or
	// "web" for all of them.
	Compatibility []string      `yaml:"compatibility"`
	Modules       ModulesConfig `yaml:"modules"`
	Loader        LoaderConfig  `yaml:"loader"`
	Log           LogConfig     `yaml:"log"`
}

// ModulesConfig controls how specifiers map onto sources.
type ModulesConfig struct {
	Roots      []string            `yaml:"roots"`
	Extensions []string            `yaml:"extensions"`
	IndexFiles []string            `yaml:"index_files"`
	Aliases    []modules.AliasRule `yaml:"aliases"`
}

// LoaderConfig controls the source cache and prefetching.
type LoaderConfig struct {
	Workers   int           `yaml:"workers"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
	CacheSize int           `yaml:"cache_size"`
	MaxDepth  int           `yaml:"max_depth"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// ValidationError aggregates configuration problems.
type ValidationError struct {
	Path   string
	Issues []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("config")
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	b.WriteString(": invalid configuration:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// Default returns the settings used when no file is given.
func Default() *Config {
	defaults := modules.DefaultLoaderConfig()
	return &Config{
		Modules: ModulesConfig{
			Extensions: defaults.Extensions,
			IndexFiles: defaults.IndexFiles,
		},
		Loader: LoaderConfig{
			Workers:   defaults.Workers,
			CacheTTL:  defaults.CacheTTL,
			CacheSize: defaults.CacheSize,
			MaxDepth:  defaults.MaxDepth,
		},
		Log: LogConfig{Level: "warn"},
	}
}

// Load reads a YAML file over the defaults. Relative module roots are
// taken relative to the file's directory.
func Load(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", absPath, err)
	}
	defer file.Close()

	cfg, err := Parse(file)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			verr.Path = absPath
			return nil, verr
		}
		return nil, fmt.Errorf("config: parse %s: %w", absPath, err)
	}
	dir := filepath.Dir(absPath)
	for i, root := range cfg.Modules.Roots {
		if !filepath.IsAbs(root) {
			cfg.Modules.Roots[i] = filepath.Join(dir, root)
		}
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected; an empty document yields the defaults.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var issues []string
	if _, err := c.CompatibilitySet(); err != nil {
		issues = append(issues, err.Error())
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		issues = append(issues, fmt.Sprintf("log.level: unknown level %q", c.Log.Level))
	}
	if c.Loader.Workers < 1 {
		issues = append(issues, "loader.workers must be at least 1")
	}
	if c.Loader.CacheTTL < 0 {
		issues = append(issues, "loader.cache_ttl must not be negative")
	}
	if c.Loader.CacheSize < 0 {
		issues = append(issues, "loader.cache_size must not be negative")
	}
	if c.Loader.MaxDepth < 0 {
		issues = append(issues, "loader.max_depth must not be negative")
	}
	for i, ext := range c.Modules.Extensions {
		if !strings.HasPrefix(ext, ".") {
			issues = append(issues, fmt.Sprintf("modules.extensions[%d]: %q must start with a dot", i, ext))
		}
	}
	for i, rule := range c.Modules.Aliases {
		if rule.Pattern == "" {
			issues = append(issues, fmt.Sprintf("modules.aliases[%d]: empty pattern", i))
		}
	}
	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

// CompatibilitySet converts the configured names into an option set.
func (c *Config) CompatibilitySet() (vm.CompatibilitySet, error) {
	var set vm.CompatibilitySet
	for _, name := range c.Compatibility {
		if name == "web" {
			set |= vm.WebCompatibility()
			continue
		}
		opt, ok := vm.ParseCompatibilityOption(name)
		if !ok {
			return 0, fmt.Errorf("compatibility: unknown option %q", name)
		}
		set = set.With(opt)
	}
	return set, nil
}

// LoaderConfig builds the module loader settings.
func (c *Config) LoaderConfig() *modules.LoaderConfig {
	lc := modules.DefaultLoaderConfig()
	lc.Workers = c.Loader.Workers
	lc.CacheTTL = c.Loader.CacheTTL
	lc.CacheSize = c.Loader.CacheSize
	lc.MaxDepth = c.Loader.MaxDepth
	lc.Extensions = c.Modules.Extensions
	lc.IndexFiles = c.Modules.IndexFiles
	lc.Aliases = c.Modules.Aliases
	return lc
}
