// Package config loads the analyzer configuration from JSON or YAML.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full analyzer configuration.
type Config struct {
	LLM            LLMConfig `json:"llm" yaml:"llm"`
	ServerAddr     string    `json:"server_addr,omitempty" yaml:"server_addr"`
	PDFBackend     string    `json:"pdf_backend,omitempty" yaml:"pdf_backend"`
	MinTextLength  int       `json:"min_text_length,omitempty" yaml:"min_text_length"`
	MaxPromptChars int       `json:"max_prompt_chars,omitempty" yaml:"max_prompt_chars"`
	MaxFileSize    int64     `json:"max_file_size,omitempty" yaml:"max_file_size"`
	LogLevel       string    `json:"log_level,omitempty" yaml:"log_level"`
	Concurrency    int       `json:"concurrency,omitempty" yaml:"concurrency"`
}

// LLMConfig selects and tunes the text-generation backend. The credential
// is either inline (api_key) or read from the variable named by api_key_env.
type LLMConfig struct {
	Provider    string  `json:"provider,omitempty" yaml:"provider"`
	Model       string  `json:"model,omitempty" yaml:"model"`
	APIKey      string  `json:"api_key,omitempty" yaml:"api_key"`
	APIKeyEnv   string  `json:"api_key_env,omitempty" yaml:"api_key_env"`
	BaseURL     string  `json:"base_url,omitempty" yaml:"base_url"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	MaxTokens   int64   `json:"max_tokens,omitempty" yaml:"max_tokens"`
	Timeout     string  `json:"timeout,omitempty" yaml:"timeout"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			Temperature: 0.7,
			MaxTokens:   1200,
			Timeout:     "60s",
		},
		ServerAddr:     ":8080",
		PDFBackend:     "ledongthuc",
		MinTextLength:  10,
		MaxPromptChars: 4000,
		MaxFileSize:    100 * 1024 * 1024,
		LogLevel:       "info",
		Concurrency:    4,
	}
}

// Load reads path over the defaults. Files ending in .yaml or .yml are
// parsed as YAML, anything else as JSON. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that values are usable.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "mock":
	case "deepseek":
		// DeepSeek speaks the OpenAI protocol but has no default endpoint.
		if c.LLM.BaseURL == "" {
			return fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
	case "":
		return fmt.Errorf("llm.provider is required")
	default:
		return fmt.Errorf("llm provider %s not supported", c.LLM.Provider)
	}
	if c.LLM.Provider != "mock" && c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2")
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be > 0")
	}
	if c.LLM.Timeout != "" {
		d, err := time.ParseDuration(c.LLM.Timeout)
		if err != nil {
			return fmt.Errorf("llm.timeout: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("llm.timeout must be > 0")
		}
	}
	switch c.PDFBackend {
	case "", "ledongthuc", "pdfcpu":
	default:
		return fmt.Errorf("unsupported pdf_backend %q (use ledongthuc or pdfcpu)", c.PDFBackend)
	}
	if c.MinTextLength <= 0 {
		return fmt.Errorf("min_text_length must be > 0")
	}
	if c.MaxPromptChars <= 0 {
		return fmt.Errorf("max_prompt_chars must be > 0")
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("max_file_size must be > 0")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be > 0")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Credential returns the inline api_key, or the value of the variable
// named by api_key_env. It is read on every call and never cached.
func (c *Config) Credential() string {
	if c.LLM.APIKey != "" {
		return c.LLM.APIKey
	}
	if c.LLM.APIKeyEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(c.LLM.APIKeyEnv))
}

// CredentialEnv names where the credential is expected, for error messages.
func (c *Config) CredentialEnv() string {
	if c.LLM.APIKeyEnv == "" {
		return "llm.api_key"
	}
	return c.LLM.APIKeyEnv
}

// RequestTimeout returns the per-request timeout, 0 when unset.
func (c *Config) RequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// Level parses log_level; empty means info.
func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}
