package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the boost API configuration.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	CounterStore CounterStoreConfig `yaml:"counter_store"`
	Quota        QuotaConfig        `yaml:"quota"`
	LLM          LLMConfig          `yaml:"llm"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port              int   `yaml:"port"`
	ReadTimeoutSec    int   `yaml:"read_timeout_sec"`
	WriteTimeoutSec   int   `yaml:"write_timeout_sec"`
	ShutdownSec       int   `yaml:"shutdown_timeout_sec"`
	MaxBodyBytes      int64 `yaml:"max_body_bytes"`
	TrustProxyHeaders bool  `yaml:"trust_proxy_headers"` // X-Forwarded-For / X-Real-IP decide the client identity
}

// CounterStoreConfig holds counter store connection settings.
type CounterStoreConfig struct {
	URL              string `yaml:"url"` // redis://[user:pass@]host:port[/db], rediss:// for TLS
	ConnectTimeoutMs int    `yaml:"connect_timeout_ms"`
	OpTimeoutMs      int    `yaml:"op_timeout_ms"`
}

// QuotaConfig holds quota enforcement settings. Limits are compiled in.
type QuotaConfig struct {
	StoreFailurePolicy string `yaml:"store_failure_policy"` // "open" (default) | "closed"
}

// LLMConfig holds chat completion provider settings.
type LLMConfig struct {
	APIKey       string  `yaml:"api_key"`
	BaseURL      string  `yaml:"base_url"`
	Model        string  `yaml:"model"`
	MaxTokens    int     `yaml:"max_tokens"`
	Temperature  float32 `yaml:"temperature"`
	TimeoutSec   int     `yaml:"timeout_sec"`
	SystemPrompt string  `yaml:"system_prompt"`
}

const (
	defaultStoreURL     = "redis://localhost:6379"
	defaultModel        = "gpt-3.5-turbo"
	defaultSystemPrompt = "You are an insightful career coach who specializes in helping people " +
		"recognize their deeper strengths and unique value. You focus on personal qualities " +
		"and potential rather than just achievements."
)

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// Variables from .env.local and .env are loaded first; the process environment wins.
func Load(env string) (Config, error) {
	if err := LoadEnvFiles(); err != nil {
		return Config{}, err
	}

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands ${VAR} references in data, decodes it, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// LoadEnvFiles loads .env.local then .env. Missing files are skipped.
func LoadEnvFiles() error {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 16 << 20
	}
	if c.CounterStore.URL == "" {
		c.CounterStore.URL = defaultStoreURL
	}
	if c.CounterStore.ConnectTimeoutMs <= 0 {
		c.CounterStore.ConnectTimeoutMs = 2000
	}
	if c.CounterStore.OpTimeoutMs <= 0 {
		c.CounterStore.OpTimeoutMs = 500
	}
	if c.Quota.StoreFailurePolicy == "" {
		c.Quota.StoreFailurePolicy = "open"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = defaultModel
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 600
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 30
	}
	if c.LLM.SystemPrompt == "" {
		c.LLM.SystemPrompt = defaultSystemPrompt
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.CounterStore.URL == "" {
		return fmt.Errorf("counter_store.url is required")
	}
	switch c.Quota.StoreFailurePolicy {
	case "open", "closed":
		// ok
	default:
		return fmt.Errorf(
			"quota.store_failure_policy must be \"open\" or \"closed\", got %q",
			c.Quota.StoreFailurePolicy,
		)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %v", c.LLM.Temperature)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
