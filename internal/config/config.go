package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Provider names accepted by the provider setting.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Store drivers accepted by store.driver.
const (
	StoreNone     = "none"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds the full application configuration.
type Config struct {
	Provider  string          `yaml:"provider" mapstructure:"provider"`
	OpenAI    OpenAIConfig    `yaml:"openai" mapstructure:"openai"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Analysis  AnalysisConfig  `yaml:"analysis" mapstructure:"analysis"`
	Form      FormConfig      `yaml:"form" mapstructure:"form"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// OpenAIConfig holds OpenAI chat completion settings.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// FetchConfig configures the page fetch.
type FetchConfig struct {
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxChars     int    `yaml:"max_chars" mapstructure:"max_chars"`
	MaxBodyBytes int64  `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	UserAgent    string `yaml:"user_agent" mapstructure:"user_agent"`
}

// AnalysisConfig configures the provider call. Zero timeout means none.
type AnalysisConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// FormConfig holds the prefilled values of the interactive form.
type FormConfig struct {
	DefaultURL   string `yaml:"default_url" mapstructure:"default_url"`
	DefaultNotes string `yaml:"default_notes" mapstructure:"default_notes"`
}

// StoreConfig configures the run history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the web server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// PricingConfig holds per-model token pricing. Models is a list rather than
// a map keyed by id: viper splits keys on "." and lowercases them, which
// would mangle ids like gpt-4.1.
type PricingConfig struct {
	Models []ModelPricing `yaml:"models" mapstructure:"models"`
}

// ModelPricing holds one model's token pricing (USD per million tokens).
type ModelPricing struct {
	Model  string  `yaml:"model" mapstructure:"model"`
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Model returns the model identifier of the selected provider.
func (c *Config) Model() string {
	if c.Provider == ProviderAnthropic {
		return c.Anthropic.Model
	}
	return c.OpenAI.Model
}

// Validate checks the settings a command mode depends on and reports every
// problem at once. Modes: "analyze", "serve", "batch", "runs".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		errs = append(errs, fmt.Sprintf("provider %q is not supported", c.Provider))
	}
	switch c.Store.Driver {
	case StoreNone, StoreSQLite:
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for postgres")
		}
	default:
		errs = append(errs, fmt.Sprintf("store driver %q is not supported", c.Store.Driver))
	}
	if c.Fetch.TimeoutSecs <= 0 {
		errs = append(errs, "fetch.timeout_secs must be > 0")
	}
	if c.Fetch.MaxChars <= 0 {
		errs = append(errs, "fetch.max_chars must be > 0")
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		errs = append(errs, "fetch.max_body_bytes must be > 0")
	}
	if c.Analysis.TimeoutSecs < 0 {
		errs = append(errs, "analysis.timeout_secs must be >= 0")
	}
	for i, m := range c.Pricing.Models {
		if m.Model == "" {
			errs = append(errs, fmt.Sprintf("pricing.models[%d].model is required", i))
		}
		if m.Input < 0 || m.Output < 0 {
			errs = append(errs, fmt.Sprintf("pricing.models[%d] rates must be >= 0", i))
		}
	}

	switch mode {
	case "analyze":
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
	case "batch":
		if c.Batch.MaxConcurrent < 1 || c.Batch.MaxConcurrent > 32 {
			errs = append(errs, "batch.max_concurrent must be between 1 and 32")
		}
	case "runs":
		if c.Store.Driver == StoreNone {
			errs = append(errs, "store.driver must be sqlite or postgres to inspect runs")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SITEREPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Provider credentials also come from their conventional variables.
	if err := v.BindEnv("openai.key", "SITEREPORT_OPENAI_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind openai key")
	}
	if err := v.BindEnv("anthropic.key", "SITEREPORT_ANTHROPIC_KEY", "ANTHROPIC_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind anthropic key")
	}

	// Defaults
	v.SetDefault("provider", ProviderOpenAI)
	v.SetDefault("openai.model", "gpt-5")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("fetch.timeout_secs", 10)
	v.SetDefault("fetch.max_chars", 2000)
	v.SetDefault("fetch.max_body_bytes", 10<<20)
	v.SetDefault("analysis.timeout_secs", 0)
	v.SetDefault("form.default_url", "https://example.com")
	v.SetDefault("form.default_notes", "Looking for SEO, design, or branding issues.")
	v.SetDefault("store.driver", StoreNone)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("batch.max_concurrent", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("pricing.models", []map[string]any{
		{"model": "gpt-5", "input": 1.25, "output": 10.00},
		{"model": "gpt-5-mini", "input": 0.25, "output": 2.00},
		{"model": "claude-sonnet-4-5-20250929", "input": 3.00, "output": 15.00},
		{"model": "claude-haiku-4-5-20251001", "input": 0.80, "output": 4.00},
	})

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
