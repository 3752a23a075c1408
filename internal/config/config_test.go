package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig() should be valid, got: %v", err)
	}
}

func TestLoadFromPathsPrefersFirstExisting(t *testing.T) {
	dir := t.TempDir()
	localPath := filepath.Join(dir, "subword.local.yaml")
	basePath := filepath.Join(dir, "subword.yaml")

	base := DefaultConfig()
	base.VocabSize = 1000
	if err := base.Save(basePath); err != nil {
		t.Fatalf("Save(base) failed: %v", err)
	}
	local := DefaultConfig()
	local.VocabSize = 2000
	if err := local.Save(localPath); err != nil {
		t.Fatalf("Save(local) failed: %v", err)
	}

	cfg, err := LoadFromPaths(localPath, basePath)
	if err != nil {
		t.Fatalf("LoadFromPaths failed: %v", err)
	}
	if cfg.VocabSize != 2000 {
		t.Errorf("VocabSize = %d, want 2000 (local should win)", cfg.VocabSize)
	}
}

func TestLoadFromPathsFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadFromPaths(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFromPaths failed: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subword.yaml")
	cfg := DefaultConfig()
	cfg.VocabSize = 4096
	cfg.SpecialTokens.Bos = 2
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != cfg {
		t.Errorf("loaded = %+v, want %+v", loaded, cfg)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Coverage = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for coverage > 1")
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(os.TempDir(), "definitely-missing-subword.yaml")); err == nil {
		t.Error("expected error loading a missing file via Load")
	}
}
