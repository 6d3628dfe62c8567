// Package engineconfig loads verification policy from a TOML file, the
// same configuration format and library (github.com/BurntSushi/toml)
// the teacher uses for its own signing configuration. Unlike the
// teacher's config.Config, which holds signing material (keys, TSA
// URLs), this schema holds only the knobs a descriptive verifier
// exposes: logging settings and how close to "now" counts as
// expiring_soon.
package engineconfig

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the root of a pdfverify configuration file.
type Config struct {
	Log        LogConfig  `toml:"log"`
	Validation Validation `toml:"validation"`
}

// LogConfig controls where the engine's diagnostic logging goes.
type LogConfig struct {
	// Path names a log file. It is decoded but the pdfverify CLI does
	// not write to it; log output goes to stderr or is discarded,
	// depending on Verbose.
	Path string `toml:"path"`
	// Verbose makes the CLI log per-field cryptographic verification
	// failures to stderr. When false, all log output is discarded.
	Verbose bool `toml:"verbose"`
}

// Validation controls thresholds the Certificate Inspector and
// orchestrator use when classifying signatures.
type Validation struct {
	// ExpiringSoonDays is the window (in days) under which a
	// not-yet-expired certificate is reported as "expiring_soon"
	// instead of "valid". Defaults to 30, per spec.md §4.3.
	ExpiringSoonDays int `toml:"expiring_soon_days"`
}

// Default returns the configuration the engine uses when no file is
// supplied: logging discarded, the spec's 30-day expiring_soon window.
func Default() Config {
	return Config{
		Validation: Validation{ExpiringSoonDays: 30},
	}
}

// Load reads and decodes a TOML configuration file, filling in defaults
// for any field left unset.
func Load(path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		return Config{}, fmt.Errorf("config file is missing: %w", err)
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config file %s: %w", path, err)
	}

	if cfg.Validation.ExpiringSoonDays <= 0 {
		cfg.Validation.ExpiringSoonDays = 30
	}

	return cfg, nil
}
