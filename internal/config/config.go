package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Provider names accepted by the "provider" key.
const (
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"
	ProviderGemini = "gemini"
)

// PricingInfo holds cost per one million tokens for a model.
type PricingInfo struct {
	Input  float64 `mapstructure:"input"`
	Output float64 `mapstructure:"output"`
}

type Config struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`

	OpenAI struct {
		APIKey  string `mapstructure:"api_key"`
		BaseURL string `mapstructure:"base_url"`
	} `mapstructure:"openai"`

	Azure struct {
		APIKey     string `mapstructure:"api_key"`
		Endpoint   string `mapstructure:"endpoint"`
		Deployment string `mapstructure:"deployment"`
		APIVersion string `mapstructure:"api_version"`
	} `mapstructure:"azure"`

	Gemini struct {
		APIKey string `mapstructure:"api_key"`
	} `mapstructure:"gemini"`

	Params struct {
		MaxTokens   int     `mapstructure:"max_tokens"`
		Temperature float32 `mapstructure:"temperature"`
	} `mapstructure:"params"`

	Analysis struct {
		Types               []string `mapstructure:"types"`
		IncludeExplanations bool     `mapstructure:"include_explanations"`
	} `mapstructure:"analysis"`

	Batch struct {
		Size        int `mapstructure:"size"`
		Concurrency int `mapstructure:"concurrency"`
	} `mapstructure:"batch"`

	Retry struct {
		MaxAttempts   int           `mapstructure:"max_attempts"`
		InitialDelay  time.Duration `mapstructure:"initial_delay"`
		BackoffFactor float64       `mapstructure:"backoff_factor"`
		MaxDelay      time.Duration `mapstructure:"max_delay"`
	} `mapstructure:"retry"`

	Breaker struct {
		MaxFailures  int           `mapstructure:"max_failures"`
		ResetTimeout time.Duration `mapstructure:"reset_timeout"`
	} `mapstructure:"breaker"`

	Throttle struct {
		// RequestsPerSecond of 0 disables client-side throttling.
		RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	} `mapstructure:"throttle"`

	Preprocess struct {
		Redact bool `mapstructure:"redact"`
		// MaxFieldLength is in runes; 0 disables truncation.
		MaxFieldLength int `mapstructure:"max_field_length"`
	} `mapstructure:"preprocess"`

	Output struct {
		Dir        string `mapstructure:"dir"`
		Prefix     string `mapstructure:"prefix"`
		IncludeRaw bool   `mapstructure:"include_raw"`
	} `mapstructure:"output"`

	History struct {
		Path     string `mapstructure:"path"`
		Disabled bool   `mapstructure:"disabled"`
	} `mapstructure:"history"`

	// Pricing: map[model] = cost per 1M tokens. Models absent from the map
	// are tracked with zero cost.
	Pricing map[string]PricingInfo `mapstructure:"pricing"`

	Log struct {
		Level string `mapstructure:"level"`
		File  string `mapstructure:"file"`
	} `mapstructure:"log"`

	Server struct {
		Addr string `mapstructure:"addr"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"server"`
}

// LoadConfig reads config.yaml from path (when non-empty), the working
// directory, or ~/.config/triago, layered under environment variables. A
// missing config file is fine; defaults and env vars carry the load.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "triago"))
		}
	}

	setDefaults(v)

	v.AutomaticEnv()
	// Explicit bindings so the well-known provider variables work without a
	// prefix or replacer.
	v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("azure.api_key", "AZURE_OPENAI_API_KEY")
	v.BindEnv("azure.endpoint", "AZURE_OPENAI_ENDPOINT")
	v.BindEnv("azure.deployment", "AZURE_OPENAI_DEPLOYMENT")
	v.BindEnv("azure.api_version", "AZURE_OPENAI_API_VERSION")
	v.BindEnv("gemini.api_key", "GEMINI_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed on defaults/env vars.
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderOpenAI)
	v.SetDefault("model", "gpt-4o")
	v.SetDefault("azure.api_version", "2023-05-15")
	v.SetDefault("params.max_tokens", 300)
	v.SetDefault("params.temperature", 0.1)
	v.SetDefault("analysis.include_explanations", true)
	v.SetDefault("batch.size", 10)
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("retry.max_attempts", 5)
	v.SetDefault("retry.initial_delay", "1s")
	v.SetDefault("retry.backoff_factor", 2.0)
	v.SetDefault("retry.max_delay", "30s")
	v.SetDefault("breaker.max_failures", 5)
	v.SetDefault("breaker.reset_timeout", "5m")
	v.SetDefault("throttle.requests_per_second", 1.0)
	v.SetDefault("preprocess.redact", true)
	v.SetDefault("preprocess.max_field_length", 2000)
	v.SetDefault("output.dir", "output")
	v.SetDefault("output.prefix", "analyzed_tickets")
	v.SetDefault("pricing.gpt-4o.input", 2.50)
	v.SetDefault("pricing.gpt-4o.output", 10.00)
	v.SetDefault("pricing.gpt-4o-mini.input", 0.15)
	v.SetDefault("pricing.gpt-4o-mini.output", 0.60)
	v.SetDefault("log.level", "info")
	v.SetDefault("server.addr", "localhost")
	v.SetDefault("server.port", 8080)
}

// HistoryPath resolves the run-history database location, defaulting to
// ~/.config/triago/history.db.
func (c *Config) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "history.db"
	}
	return filepath.Join(home, ".config", "triago", "history.db")
}
