package jit

// Config holds the diagnostics and exclusion settings of a Compiler.
type Config struct {
	// Exclude lists owners ("Foo", "Meta:Foo"), owner-qualified methods
	// ("Foo#bar") and bare method names ("bar") that must never be compiled.
	Exclude []string `yaml:"exclude"`

	// LogEvery logs the number of live compiled methods every N successes.
	// 0 disables the periodic line.
	LogEvery int64 `yaml:"log_every"`

	// Logging enables exclusion and failure lines.
	Logging bool `yaml:"logging"`

	// LoggingVerbose adds a line per compiled method and fault traces.
	LoggingVerbose bool `yaml:"logging_verbose"`
}

// DefaultConfig returns a configuration with all diagnostics off and an
// empty exclusion roster.
func DefaultConfig() *Config {
	return &Config{}
}

// settings is the immutable snapshot a task reads from.
type settings struct {
	roster *Roster
	cfg    Config
}

func newSettings(cfg *Config) *settings {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	c.Exclude = append([]string(nil), cfg.Exclude...)
	return &settings{
		roster: NewRoster(c.Exclude...),
		cfg:    c,
	}
}
