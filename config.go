package main

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
)

// Config holds the settings shared by every command. Values come from the
// defaults, then facet.toml, then FACET_* environment variables, then flags.
type Config struct {
	LogLevel string `toml:"log-level"`
	// Checks is the number of rays cast per inside query.
	Checks int `toml:"checks"`
	// ForDistance builds spatial indexes with the nearest-point seeds.
	ForDistance bool `toml:"for-distance"`
	// WeldTolerance merges STL corners closer than this.
	WeldTolerance float64  `toml:"weld-tolerance"`
	EvalTimeout   duration `toml:"eval-timeout"`
}

// duration decodes TOML strings such as "5s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		LogLevel:      "info",
		Checks:        101,
		ForDistance:   true,
		WeldTolerance: 1e-9,
		EvalTimeout:   duration{5 * time.Second},
	}
}

// LoadConfig decodes a TOML file over the defaults. Keys absent from the
// file keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("facet: problem reading configuration file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("facet: unknown configuration keys %v in %s", undecoded, path)
	}
	return cfg, cfg.Validate()
}

// Validate checks the settings for values the commands cannot use.
func (c Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("facet: log-level: %w", err)
	}
	if c.Checks <= 0 || c.Checks%2 == 0 {
		return fmt.Errorf("facet: checks must be a positive odd number, got %d", c.Checks)
	}
	if c.WeldTolerance < 0 {
		return fmt.Errorf("facet: weld-tolerance must not be negative, got %g", c.WeldTolerance)
	}
	if c.EvalTimeout.Duration <= 0 {
		return fmt.Errorf("facet: eval-timeout must be positive, got %s", c.EvalTimeout)
	}
	return nil
}

// NewLogger returns a text logger at the configured level.
func (c Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if lvl, err := logrus.ParseLevel(c.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	return log
}
