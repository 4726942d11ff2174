package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/armforge/armforge/internal/assign"
)

// FileName is the configuration file looked up from the working directory
// upwards, without extension.
const FileName = "armforge"

// EnvPrefix prefixes environment overrides, e.g. ARMFORGE_SYNTH_STRATEGY
const EnvPrefix = "ARMFORGE"

// Config represents the armforge configuration
type Config struct {
	Synth  SynthConfig  `mapstructure:"synth"`
	Schema SchemaConfig `mapstructure:"schema"`
	Output OutputConfig `mapstructure:"output"`
	Log    LogConfig    `mapstructure:"log"`

	// File is the configuration file that was read, empty for defaults
	File string `mapstructure:"-"`
}

// SynthConfig controls assignment and generation
type SynthConfig struct {
	// MaxTemplateSize is a human size such as "3.5MiB" or "1000000"
	MaxTemplateSize       string `mapstructure:"max_template_size"`
	Strategy              string `mapstructure:"strategy"`
	PreferLinkedTemplates bool   `mapstructure:"prefer_linked_templates"`
	Workers               int    `mapstructure:"workers"`
	// GroupingHint is the assignment hint key read by the custom strategy
	GroupingHint string `mapstructure:"grouping_hint"`
}

// SchemaConfig points at extra JSON schemas
type SchemaConfig struct {
	Dir string `mapstructure:"dir"`
}

// OutputConfig controls where documents are written
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// LogConfig controls logging
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration. An explicit path must exist; otherwise
// armforge.yaml is searched from the working directory upwards and
// defaults apply when none is found. ARMFORGE_* variables override both.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("synth.max_template_size", humanize.IBytes(uint64(assign.DefaultMaxTemplateSize)))
	v.SetDefault("synth.strategy", string(assign.MinimizeCrossRefs))
	v.SetDefault("synth.prefer_linked_templates", false)
	v.SetDefault("synth.workers", 0)
	v.SetDefault("synth.grouping_hint", "document")
	v.SetDefault("schema.dir", "")
	v.SetDefault("output.dir", "build/templates")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	read := false
	if path != "" {
		v.SetConfigFile(path)
		read = true
	} else if root, err := FindRoot(""); err == nil {
		v.SetConfigName(FileName)
		v.AddConfigPath(root)
		read = true
	}
	if read {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FindRoot walks up from start (the working directory when empty) to the
// first directory holding armforge.yaml or armforge.yml.
func FindRoot(start string) (string, error) {
	dir := start
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = wd
	}

	for {
		for _, ext := range []string{".yaml", ".yml"} {
			if _, err := os.Stat(filepath.Join(dir, FileName+ext)); err == nil {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s.yaml found", FileName)
		}
		dir = parent
	}
}

// Validate checks every setting and returns the first problem found
func (c *Config) Validate() error {
	if _, err := c.MaxTemplateSize(); err != nil {
		return err
	}
	if _, err := assign.ParseStrategy(c.Synth.Strategy); err != nil {
		return fmt.Errorf("synth.strategy: %w", err)
	}
	if c.Synth.Workers < 0 {
		return fmt.Errorf("synth.workers must not be negative, got: %d", c.Synth.Workers)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got: %s", c.Log.Level)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got: %s", c.Log.Format)
	}
	if c.Schema.Dir != "" {
		info, err := os.Stat(c.Schema.Dir)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("schema.dir %s is not a directory", c.Schema.Dir)
		}
	}
	return nil
}

// MaxTemplateSize parses synth.max_template_size into bytes
func (c *Config) MaxTemplateSize() (int64, error) {
	n, err := humanize.ParseBytes(c.Synth.MaxTemplateSize)
	if err != nil {
		return 0, fmt.Errorf("synth.max_template_size: %w", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("synth.max_template_size must be positive, got: %s", c.Synth.MaxTemplateSize)
	}
	return int64(n), nil
}

// AssignConfig converts the synth section into an assignment config.
// The custom strategy needs a grouping function from the caller.
func (c *Config) AssignConfig() (assign.Config, error) {
	size, err := c.MaxTemplateSize()
	if err != nil {
		return assign.Config{}, err
	}
	strategy, err := assign.ParseStrategy(c.Synth.Strategy)
	if err != nil {
		return assign.Config{}, err
	}
	return assign.Config{
		MaxTemplateSize:       size,
		Strategy:              strategy,
		PreferLinkedTemplates: c.Synth.PreferLinkedTemplates,
	}, nil
}
