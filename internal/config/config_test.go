package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Store.LdpRs.ReferentialIntegrity != RefIntLenient {
		t.Errorf("expected lenient default, got %q", cfg.Store.LdpRs.ReferentialIntegrity)
	}
	if cfg.Server.DefaultActor != "BypassAdmin" {
		t.Errorf("expected BypassAdmin default actor, got %q", cfg.Server.DefaultActor)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	doc := `
[store]
path = "/var/ldpstore"

[store.ldp_rs]
referential_integrity = "strict"

[messaging]
enabled = true

[server]
webroot = "https://example.org/rest"
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Path != "/var/ldpstore" {
		t.Errorf("store.path: got %q", cfg.Store.Path)
	}
	if cfg.Store.LdpRs.ReferentialIntegrity != RefIntStrict {
		t.Errorf("referential_integrity: got %q", cfg.Store.LdpRs.ReferentialIntegrity)
	}
	if !cfg.Messaging.Enabled {
		t.Error("expected messaging.enabled = true")
	}
	if cfg.Server.Webroot != "https://example.org/rest" {
		t.Errorf("webroot: got %q", cfg.Server.Webroot)
	}
	// Untouched keys retain their defaults.
	if cfg.Store.KeyLength != 5 {
		t.Errorf("key_length should keep default, got %d", cfg.Store.KeyLength)
	}
	if cfg.Server.DefaultActor != "BypassAdmin" {
		t.Errorf("default_actor should keep default, got %q", cfg.Server.DefaultActor)
	}
}

func TestLoadRejectsUnrecognizedReferentialIntegrity(t *testing.T) {
	doc := `
[store.ldp_rs]
referential_integrity = "sometimes"
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an unrecognized referential_integrity value")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
