package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.App.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.App.Port)
	}
	if cfg.RAG.ChunkSize != 2000 || cfg.RAG.ChunkOverlap != 200 || cfg.RAG.TopK != 4 {
		t.Fatalf("unexpected RAG defaults: %+v", cfg.RAG)
	}
	if cfg.RAG.DefaultProvider != "ollama" {
		t.Fatalf("expected ollama default provider, got %q", cfg.RAG.DefaultProvider)
	}
	for _, name := range []string{"ollama", "groq", "xai"} {
		if _, ok := cfg.Providers[name]; !ok {
			t.Fatalf("provider %q missing from defaults", name)
		}
	}
}

func TestLoadFromTOMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[app]
port = 9090

[rag]
top_k = 8
default_provider = "groq"

[providers.local]
base_url = "http://localhost:1234/v1"
api_key = "sk-local"
model = "custom-model"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.App.Port != 9090 {
		t.Fatalf("file port not applied, got %d", cfg.App.Port)
	}
	if cfg.RAG.TopK != 8 || cfg.RAG.DefaultProvider != "groq" {
		t.Fatalf("file RAG values not applied: %+v", cfg.RAG)
	}
	p, ok := cfg.Providers["local"]
	if !ok || p.Model != "custom-model" || p.APIKey != "sk-local" {
		t.Fatalf("custom provider not decoded: %+v", p)
	}
	// No temperature in the file means 0, which the chat client treats as
	// "use the provider default"; loading must not overwrite it.
	if p.Temperature != 0 {
		t.Fatalf("temperature 0 not preserved: %v", p.Temperature)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("APP_PORT", "7070")
	t.Setenv("RAG_TOP_K", "6")
	t.Setenv("RAG_DEFAULT_PROVIDER", "xai")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.App.Port != 7070 {
		t.Fatalf("APP_PORT override not applied, got %d", cfg.App.Port)
	}
	if cfg.RAG.TopK != 6 || cfg.RAG.DefaultProvider != "xai" {
		t.Fatalf("RAG overrides not applied: %+v", cfg.RAG)
	}
}

func TestProviderKeysResolvedFromEnv(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("XAI_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Providers["groq"].APIKey != "gsk-test" {
		t.Fatalf("groq key not resolved from env: %+v", cfg.Providers["groq"])
	}
	// A missing key stays empty; the ask path reports it, startup does not.
	if cfg.Providers["xai"].APIKey != "" {
		t.Fatalf("xai key should stay empty without env var: %+v", cfg.Providers["xai"])
	}
	if cfg.Providers["ollama"].APIKey != "ollama" {
		t.Fatalf("ollama literal key lost: %+v", cfg.Providers["ollama"])
	}
}

func TestProviderLookup(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	p, ok := cfg.Provider("")
	if !ok || p.Model != "llama3.2:3b" {
		t.Fatalf("empty name should resolve the default provider, got %+v ok=%v", p, ok)
	}
	if _, ok := cfg.Provider("nonexistent"); ok {
		t.Fatal("unknown provider should not resolve")
	}
}

func TestMySQLDSN(t *testing.T) {
	cfg := &Config{MySQL: MySQLConfig{
		Host: "db", Port: 3306, User: "app", Password: "pw", DB: "rules", Params: "parseTime=true",
	}}
	want := "app:pw@tcp(db:3306)/rules?parseTime=true"
	if got := cfg.MySQLDSN(); got != want {
		t.Fatalf("DSN = %q, want %q", got, want)
	}
}
