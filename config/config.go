package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"playground/internal/prompts"
	"playground/workspace"
)

// Config represents the playground configuration
type Config struct {
	Model          string `json:"model"`           // provider:model
	APIKey         string `json:"api_key"`         // API key for LLM providers
	BaseURL        string `json:"base_url"`        // Base URL for LLM providers (optional)
	TimeoutSeconds int    `json:"timeout_seconds"` // connection timeout for LLM requests
	MaxTokens      int    `json:"max_tokens"`      // cap for chat and generation requests, 0 = provider default
	StripFences    bool   `json:"strip_fences"`    // drop a code fence wrapping a whole generated file

	LogLevel    string `json:"log_level"`
	PreviewAddr string `json:"preview_addr"`

	ThreadStore string `json:"thread_store"` // file or postgres
	DatabaseURL string `json:"database_url"`

	ExportDir   string `json:"export_dir"`
	S3Endpoint  string `json:"s3_endpoint"`
	S3Region    string `json:"s3_region"`
	S3Bucket    string `json:"s3_bucket"`
	S3Prefix    string `json:"s3_prefix"`
	S3AccessKey string `json:"s3_access_key"`
	S3SecretKey string `json:"s3_secret_key"`
	S3UseSSL    bool   `json:"s3_use_ssl"`

	// Prompts overrides the system prompt of individual generation kinds.
	Prompts map[string]string `json:"prompts,omitempty"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Model:          "gemini:gemini-2.0-flash",
		TimeoutSeconds: 30,
		StripFences:    true,
		LogLevel:       "info",
		PreviewAddr:    "127.0.0.1:4173",
		ThreadStore:    "file",
		ExportDir:      "export",
		S3UseSSL:       true,
	}
}

// envOverrides maps environment variables onto config keys. They win over
// both config files.
var envOverrides = []struct{ env, key string }{
	{"PLAYGROUND_MODEL", "model"},
	{"PLAYGROUND_API_KEY", "api_key"},
	{"PLAYGROUND_BASE_URL", "base_url"},
	{"PLAYGROUND_LOG_LEVEL", "log_level"},
	{"PLAYGROUND_PREVIEW_ADDR", "preview_addr"},
	{"PLAYGROUND_THREAD_STORE", "thread_store"},
	{"DATABASE_URL", "database_url"},
	{"PLAYGROUND_DATABASE_URL", "database_url"},
	{"PLAYGROUND_S3_ENDPOINT", "s3_endpoint"},
	{"PLAYGROUND_S3_BUCKET", "s3_bucket"},
	{"PLAYGROUND_S3_ACCESS_KEY", "s3_access_key"},
	{"PLAYGROUND_S3_SECRET_KEY", "s3_secret_key"},
}

// LoadConfig loads configuration from global and local sources. Later
// sources override earlier ones key by key: defaults, ~/.playground,
// <workspace>/.playground, then environment (including <workspace>/.env).
func LoadConfig(workspacePath string) (*Config, error) {
	cfg := DefaultConfig()

	if path, err := globalConfigPath(); err == nil {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := applyFile(cfg, localConfigPath(workspacePath)); err != nil {
		return nil, err
	}

	if err := godotenv.Load(filepath.Join(workspacePath, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	for _, o := range envOverrides {
		if v := strings.TrimSpace(os.Getenv(o.env)); v != "" {
			if err := cfg.Set(o.key, v); err != nil {
				return nil, fmt.Errorf("%s: %w", o.env, err)
			}
		}
	}
	return cfg, nil
}

// Keys lists every key accepted by Get and Set.
func Keys() []string {
	keys := make([]string, 0, len(stringKeys)+len(intKeys)+len(boolKeys))
	for k := range stringKeys {
		keys = append(keys, k)
	}
	for k := range intKeys {
		keys = append(keys, k)
	}
	for k := range boolKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var stringKeys = map[string]func(*Config) *string{
	"model":         func(c *Config) *string { return &c.Model },
	"api_key":       func(c *Config) *string { return &c.APIKey },
	"base_url":      func(c *Config) *string { return &c.BaseURL },
	"log_level":     func(c *Config) *string { return &c.LogLevel },
	"preview_addr":  func(c *Config) *string { return &c.PreviewAddr },
	"thread_store":  func(c *Config) *string { return &c.ThreadStore },
	"database_url":  func(c *Config) *string { return &c.DatabaseURL },
	"export_dir":    func(c *Config) *string { return &c.ExportDir },
	"s3_endpoint":   func(c *Config) *string { return &c.S3Endpoint },
	"s3_region":     func(c *Config) *string { return &c.S3Region },
	"s3_bucket":     func(c *Config) *string { return &c.S3Bucket },
	"s3_prefix":     func(c *Config) *string { return &c.S3Prefix },
	"s3_access_key": func(c *Config) *string { return &c.S3AccessKey },
	"s3_secret_key": func(c *Config) *string { return &c.S3SecretKey },
}

var intKeys = map[string]func(*Config) *int{
	"timeout_seconds": func(c *Config) *int { return &c.TimeoutSeconds },
	"max_tokens":      func(c *Config) *int { return &c.MaxTokens },
}

var boolKeys = map[string]func(*Config) *bool{
	"strip_fences": func(c *Config) *bool { return &c.StripFences },
	"s3_use_ssl":   func(c *Config) *bool { return &c.S3UseSSL },
}

// Get retrieves a configuration value by key
func (c *Config) Get(key string) (interface{}, error) {
	if f, ok := stringKeys[key]; ok {
		return *f(c), nil
	}
	if f, ok := intKeys[key]; ok {
		return *f(c), nil
	}
	if f, ok := boolKeys[key]; ok {
		return *f(c), nil
	}
	return nil, fmt.Errorf("unknown config key: %s", key)
}

// Set updates a configuration value by key
func (c *Config) Set(key string, value interface{}) error {
	// CLI and environment input is always a string
	str, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string value for %s", key)
	}

	if f, ok := stringKeys[key]; ok {
		if key == "model" && !strings.Contains(str, ":") {
			return fmt.Errorf("expected provider:model for model, got: %s", str)
		}
		*f(c) = str
		return nil
	}
	if f, ok := intKeys[key]; ok {
		n, err := strconv.Atoi(str)
		if err != nil || n < 0 {
			return fmt.Errorf("expected non-negative number for %s, got: %s", key, str)
		}
		*f(c) = n
		return nil
	}
	if f, ok := boolKeys[key]; ok {
		switch str {
		case "true":
			*f(c) = true
		case "false":
			*f(c) = false
		default:
			return fmt.Errorf("expected 'true' or 'false' for %s, got: %s", key, str)
		}
		return nil
	}
	return fmt.Errorf("unknown config key: %s", key)
}

// Timeout is TimeoutSeconds as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PromptOverrides converts Prompts for prompts.NewRegistry.
func (c *Config) PromptOverrides() map[prompts.Kind]string {
	if len(c.Prompts) == 0 {
		return nil
	}
	out := make(map[prompts.Kind]string, len(c.Prompts))
	for k, v := range c.Prompts {
		out[prompts.Kind(k)] = v
	}
	return out
}

// globalConfigPath is ~/.playground/config.json
func globalConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, workspace.StateDirName, "config.json"), nil
}

// localConfigPath is <workspace>/.playground/config.json
func localConfigPath(workspacePath string) string {
	return filepath.Join(workspace.StateDir(workspacePath), "config.json")
}

// applyFile decodes a config file over cfg so that only keys present in the
// file change. A missing file is not an error.
func applyFile(cfg *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	return nil
}

// SaveLocalConfig saves configuration to <workspace>/.playground/config.json
func SaveLocalConfig(workspacePath string, cfg *Config) error {
	if err := os.MkdirAll(workspace.StateDir(workspacePath), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(localConfigPath(workspacePath), data, 0644)
}
