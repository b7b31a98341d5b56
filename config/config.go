// Package config loads tierup configuration from YAML and keeps a running
// compiler in sync with the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/tierup/engine"
	"github.com/wippyai/tierup/errors"
	"github.com/wippyai/tierup/hotspot"
	"github.com/wippyai/tierup/jit"
)

// Config holds all tierup configuration.
type Config struct {
	JIT     jit.Config     `yaml:"jit"`
	Engine  engine.Config  `yaml:"engine"`
	Hotspot hotspot.Config `yaml:"hotspot"`
	Log     LogConfig      `yaml:"log"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		JIT:     *jit.DefaultConfig(),
		Engine:  *engine.DefaultConfig(),
		Hotspot: *hotspot.DefaultConfig(),
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from a YAML file on top of the defaults and
// applies environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Path(path).
				Detail("read config").
				Cause(err).
				Build()
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidData).
			Path(path).
			Detail("parse config").
			Cause(err).
			Build()
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	invalid := func(field, format string, args ...any) error {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path(field).
			Detail(format, args...).
			Build()
	}

	if c.JIT.LogEvery < 0 {
		return invalid("jit.log_every", "must not be negative, got %d", c.JIT.LogEvery)
	}
	for _, name := range c.JIT.Exclude {
		if strings.TrimSpace(name) == "" {
			return invalid("jit.exclude", "blank entry")
		}
	}
	if c.Hotspot.Threshold < 0 {
		return invalid("hotspot.threshold", "must not be negative, got %d", c.Hotspot.Threshold)
	}
	if c.Hotspot.Workers < 0 {
		return invalid("hotspot.workers", "must not be negative, got %d", c.Hotspot.Workers)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", "%v", err)
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		return invalid("log.format", "unknown format %q", c.Log.Format)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("TIERUP_JIT_EXCLUDE"); v != "" {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				c.JIT.Exclude = append(c.JIT.Exclude, name)
			}
		}
	}

	bools := map[string]*bool{
		"TIERUP_JIT_LOGGING":         &c.JIT.Logging,
		"TIERUP_JIT_LOGGING_VERBOSE": &c.JIT.LoggingVerbose,
	}
	for key, dst := range bools {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, key)
		}
		*dst = b
	}

	if v := os.Getenv("TIERUP_JIT_LOG_EVERY"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "TIERUP_JIT_LOG_EVERY")
		}
		c.JIT.LogEvery = n
	}
	if v := os.Getenv("TIERUP_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// Logger builds the process logger described by the log section.
func (l LogConfig) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log.level")
	}

	zc := zap.NewDevelopmentConfig()
	if l.Format == "json" {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
