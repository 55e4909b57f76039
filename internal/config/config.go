package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Supported generative providers
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Supported store drivers
const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// Config represents the application configuration
type Config struct {
	AI     AIConfig     `yaml:"ai"`
	Store  StoreConfig  `yaml:"store"`
	Server ServerConfig `yaml:"server"`
	Output OutputConfig `yaml:"output"`
}

// AIConfig represents generative API configuration
type AIConfig struct {
	Provider          string `yaml:"provider"`
	APIKey            string `yaml:"api_key"`
	Model             string `yaml:"model"`
	BaseURL           string `yaml:"base_url"`
	TimeoutSeconds    int    `yaml:"timeout_seconds"`
	MaxTokens         int    `yaml:"max_tokens"`
	RetryCount        int    `yaml:"retry_count"`
	RetryDelaySeconds int    `yaml:"retry_delay_seconds"`
}

// StoreConfig represents document store configuration
type StoreConfig struct {
	Driver         string `yaml:"driver"`
	URI            string `yaml:"uri"`
	Database       string `yaml:"database"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Addr                   string   `yaml:"addr"`
	AllowedOrigins         []string `yaml:"allowed_origins"`
	MaxUploadMB            int      `yaml:"max_upload_mb"`
	DocumentTTLMinutes     int      `yaml:"document_ttl_minutes"`
	ShutdownTimeoutSeconds int      `yaml:"shutdown_timeout_seconds"`
}

// OutputConfig represents where the analyze command writes its results
type OutputConfig struct {
	Dir  string `yaml:"dir"`
	Save bool   `yaml:"save"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig loads configuration from a YAML file, then applies .env and
// environment overrides. A missing config file is not an error when the
// environment supplies what Validate needs.
func LoadConfig(configPath string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// both files are optional; earlier files win
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")
	config.applyEnv()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("AI_PROVIDER"); v != "" {
		c.AI.Provider = v
	}
	if c.AI.APIKey == "" {
		switch strings.ToLower(c.AI.Provider) {
		case ProviderAnthropic:
			c.AI.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case ProviderOpenAI:
			c.AI.APIKey = os.Getenv("OPENAI_API_KEY")
		default:
			c.AI.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		c.Store.URI = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Addr = ":" + v
	}
}

func (c *Config) applyDefaults() {
	if c.AI.Provider == "" {
		c.AI.Provider = ProviderGemini
	}
	c.AI.Provider = strings.ToLower(c.AI.Provider)
	if c.AI.Model == "" {
		switch c.AI.Provider {
		case ProviderAnthropic:
			c.AI.Model = "claude-sonnet-4-20250514"
		case ProviderOpenAI:
			c.AI.Model = "gpt-4o-mini"
		default:
			c.AI.Model = "gemini-2.0-flash"
		}
	}
	if c.AI.TimeoutSeconds == 0 {
		c.AI.TimeoutSeconds = 120
	}
	if c.AI.MaxTokens == 0 {
		c.AI.MaxTokens = 8000
	}
	if c.AI.RetryCount == 0 {
		c.AI.RetryCount = 2
	}
	if c.AI.RetryDelaySeconds == 0 {
		c.AI.RetryDelaySeconds = 2
	}

	if c.Store.Driver == "" {
		c.Store.Driver = StoreMongo
	}
	if c.Store.Database == "" {
		c.Store.Database = "ProjectAutomation"
	}
	if c.Store.TimeoutSeconds == 0 {
		c.Store.TimeoutSeconds = 10
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":5000"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = 20
	}
	if c.Server.DocumentTTLMinutes == 0 {
		c.Server.DocumentTTLMinutes = 60
	}
	if c.Server.ShutdownTimeoutSeconds == 0 {
		c.Server.ShutdownTimeoutSeconds = 10
	}

	if c.Output.Dir == "" {
		c.Output.Dir = "./output"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.AI.Provider {
	case ProviderGemini, ProviderAnthropic, ProviderOpenAI:
	default:
		return fmt.Errorf("unsupported AI provider %q", c.AI.Provider)
	}

	if c.AI.APIKey == "" {
		return fmt.Errorf("%s API key is required", c.AI.Provider)
	}

	switch c.Store.Driver {
	case StoreMongo:
		if c.Store.URI == "" {
			return fmt.Errorf("mongo URI is required")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}

	if c.AI.RetryCount < 1 {
		return fmt.Errorf("retry count must be at least 1")
	}

	return nil
}

// WriteSample writes a sample configuration file to configPath
func WriteSample(configPath string) error {
	cfg := Default()
	cfg.AI.APIKey = "your-gemini-api-key-here"
	cfg.Store.URI = "mongodb://localhost:27017"

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
