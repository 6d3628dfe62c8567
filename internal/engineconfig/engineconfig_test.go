package engineconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Validation.ExpiringSoonDays != 30 {
		t.Errorf("default ExpiringSoonDays = %d, want 30", cfg.Validation.ExpiringSoonDays)
	}
	if cfg.Log.Verbose {
		t.Errorf("default Verbose should be false")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[log]
verbose = true

[validation]
expiring_soon_days = 45
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !cfg.Log.Verbose {
		t.Errorf("expected Verbose=true")
	}
	if cfg.Validation.ExpiringSoonDays != 45 {
		t.Errorf("ExpiringSoonDays = %d, want 45", cfg.Validation.ExpiringSoonDays)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}

func TestLoad_DefaultsAppliedWhenUnset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[log]\npath = \"/tmp/out.log\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Validation.ExpiringSoonDays != 30 {
		t.Errorf("ExpiringSoonDays should default to 30 when unset, got %d", cfg.Validation.ExpiringSoonDays)
	}
}
