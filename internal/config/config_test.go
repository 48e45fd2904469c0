package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() failed Validate(): %v", err)
	}
	if cfg.Dispatcher != DispatcherSwitch {
		t.Errorf("Default().Dispatcher = %v, want %v", cfg.Dispatcher, DispatcherSwitch)
	}
	if cfg.NoEncryption {
		t.Error("Default().NoEncryption should be false (encryption on by default)")
	}
}

func TestValidateRejectsBadOpaqueProb(t *testing.T) {
	cfg := Default()
	cfg.OpaqueProb = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate() to reject opaqueProb > 1")
	}
}

func TestValidateRejectsBadSuperblockSize(t *testing.T) {
	cfg := Default()
	cfg.MaxSuperblockSize = 1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate() to reject maxSuperblockSize < 2")
	}
}

func TestValidateRejectsUnknownDispatcher(t *testing.T) {
	cfg := Default()
	cfg.Dispatcher = Dispatcher("nonsense")
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate() to reject an unknown dispatcher")
	}
}

func TestValidateRejectsUnknownOpaqueLevel(t *testing.T) {
	cfg := Default()
	cfg.OpaqueLevel = OpaqueLevel("nonsense")
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate() to reject an unknown opaque level")
	}
}

func TestEnsureBuildIDFillsWhenEmpty(t *testing.T) {
	cfg := Default()
	if cfg.BuildID != "" {
		t.Fatal("Default() should leave BuildID empty")
	}
	cfg.EnsureBuildID()
	if cfg.BuildID == "" {
		t.Fatal("EnsureBuildID() left BuildID empty")
	}
}

func TestEnsureBuildIDIsIdempotent(t *testing.T) {
	cfg := Default()
	cfg.EnsureBuildID()
	first := cfg.BuildID
	cfg.EnsureBuildID()
	if cfg.BuildID != first {
		t.Fatalf("EnsureBuildID() changed an already-set BuildID: %q -> %q", first, cfg.BuildID)
	}
}

func TestLoadReadsYAMLAndAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "dispatcher: bst\nopaquePredicates: true\nopaqueLevel: high\nseed: 42\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Dispatcher != DispatcherBST {
		t.Errorf("Dispatcher = %v, want %v", cfg.Dispatcher, DispatcherBST)
	}
	if !cfg.OpaquePredicates || cfg.OpaqueLevel != OpaqueHigh {
		t.Errorf("opaque settings not applied: %+v", cfg)
	}
	if cfg.Seed != 42 {
		t.Errorf("Seed = %d, want 42", cfg.Seed)
	}
	if cfg.MaxSuperblockSize != Default().MaxSuperblockSize {
		t.Errorf("unset field MaxSuperblockSize should keep its default")
	}
	if cfg.BuildID == "" {
		t.Error("Load() should fill BuildID")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/to/config.yaml"); err == nil {
		t.Fatal("expected error loading a missing file")
	}
}

func TestLoadInvalidConfigFailsValidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("dispatcher: bogus\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected Load() to surface a Validate() failure")
	}
}
