package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("llm defaults = %+v", cfg.LLM)
	}
	if cfg.LLM.Temperature != 0.7 || cfg.LLM.MaxTokens != 1200 {
		t.Errorf("generation defaults = %v / %d", cfg.LLM.Temperature, cfg.LLM.MaxTokens)
	}
	if cfg.MinTextLength != 10 || cfg.MaxPromptChars != 4000 {
		t.Errorf("gate defaults = %d / %d", cfg.MinTextLength, cfg.MaxPromptChars)
	}
	if cfg.RequestTimeout() != 60*time.Second {
		t.Errorf("timeout = %s", cfg.RequestTimeout())
	}
}

func TestLoad_JSONMergesDefaults(t *testing.T) {
	path := writeFile(t, "config.json", `{
  "llm": {"provider": "deepseek", "model": "deepseek-chat", "base_url": "https://api.deepseek.com/v1"},
  "server_addr": ":9090"
}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Provider != "deepseek" || cfg.ServerAddr != ":9090" {
		t.Errorf("overrides lost: %+v", cfg)
	}
	if cfg.LLM.APIKeyEnv != "OPENAI_API_KEY" || cfg.LLM.MaxTokens != 1200 || cfg.PDFBackend != "ledongthuc" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
llm:
  provider: mock
  temperature: 0
pdf_backend: pdfcpu
log_level: debug
concurrency: 2
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Provider != "mock" || cfg.PDFBackend != "pdfcpu" || cfg.Concurrency != 2 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.LLM.Temperature != 0 {
		t.Errorf("explicit zero temperature overridden: %v", cfg.LLM.Temperature)
	}
	if lvl, _ := cfg.Level(); lvl != slog.LevelDebug {
		t.Errorf("level = %s", lvl)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"bad json", "c.json", `{"llm":`, "parse config"},
		{"bad yaml", "c.yml", "llm: [", "parse config"},
		{"unknown provider", "c.json", `{"llm":{"provider":"claude"}}`, "not supported"},
		{"deepseek without base url", "c.json", `{"llm":{"provider":"deepseek"}}`, "requires base_url"},
		{"bad backend", "c.json", `{"pdf_backend":"pdfjs"}`, "pdf_backend"},
		{"bad timeout", "c.json", `{"llm":{"timeout":"soon"}}`, "llm.timeout"},
		{"bad level", "c.json", `{"log_level":"loud"}`, "log_level"},
		{"negative size", "c.json", `{"max_file_size":-1}`, "max_file_size"},
		{"temperature too high", "c.json", `{"llm":{"temperature":3}}`, "temperature"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Load error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error")
	}
}

func TestCredential(t *testing.T) {
	t.Setenv("ANALYZER_TEST_KEY", " sk-env \n")

	cfg := Default()
	cfg.LLM.APIKeyEnv = "ANALYZER_TEST_KEY"
	if got := cfg.Credential(); got != "sk-env" {
		t.Errorf("env credential = %q", got)
	}
	if cfg.CredentialEnv() != "ANALYZER_TEST_KEY" {
		t.Errorf("credential env = %q", cfg.CredentialEnv())
	}

	cfg.LLM.APIKey = "sk-inline"
	if got := cfg.Credential(); got != "sk-inline" {
		t.Errorf("inline credential = %q", got)
	}

	cfg = Default()
	cfg.LLM.APIKeyEnv = "ANALYZER_TEST_KEY_UNSET"
	if got := cfg.Credential(); got != "" {
		t.Errorf("unset credential = %q", got)
	}
}
