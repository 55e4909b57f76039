package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "ai:\n  api_key: test-key\nstore:\n  driver: memory\n"
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.AI.Provider != ProviderGemini {
		t.Fatalf("expected gemini provider, got %q", cfg.AI.Provider)
	}
	if cfg.AI.Model != "gemini-2.0-flash" {
		t.Fatalf("unexpected model: %q", cfg.AI.Model)
	}
	if cfg.Store.Database != "ProjectAutomation" {
		t.Fatalf("unexpected database: %q", cfg.Store.Database)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected origins: %v", cfg.Server.AllowedOrigins)
	}
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("PORT", "9090")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.AI.APIKey != "env-key" {
		t.Fatalf("expected env api key, got %q", cfg.AI.APIKey)
	}
	if cfg.Store.URI != "mongodb://db:27017" {
		t.Fatalf("expected env mongo uri, got %q", cfg.Store.URI)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("expected :9090, got %q", cfg.Server.Addr)
	}
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := Default()
	cfg.AI.Provider = "llama"
	cfg.AI.APIKey = "k"
	cfg.Store.Driver = StoreMemory
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidateRequiresMongoURI(t *testing.T) {
	cfg := Default()
	cfg.AI.APIKey = "k"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected mongo uri error")
	}
}

func TestWriteSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Store.URI != "mongodb://localhost:27017" {
		t.Fatalf("unexpected uri: %q", cfg.Store.URI)
	}
}
