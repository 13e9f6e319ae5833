// Package config loads devsentinel settings from defaults, an optional
// config file, .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/agentic-research/devsentinel/internal/syntax"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. DEVSENTINEL_SERVER_PORT.
const EnvPrefix = "DEVSENTINEL"

// Config holds all configuration settings.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Style    StyleConfig    `mapstructure:"style"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	MaxCodeLength int    `mapstructure:"max_code_length"`
	MaxPathLength int    `mapstructure:"max_path_length"`
	CacheSize     int    `mapstructure:"cache_size"` // cached analysis results, 0 disables
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LLMConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type StyleConfig struct {
	DBPath  string `mapstructure:"db_path"`
	Results int    `mapstructure:"results"`
	// QueryChars caps how much of a file is used to look up style rules.
	QueryChars int `mapstructure:"query_chars"`
}

type AnalysisConfig struct {
	Budget int `mapstructure:"budget"` // tree walk steps per file
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "text" or "json"
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:          "0.0.0.0",
			Port:          8000,
			MaxCodeLength: 100_000,
			MaxPathLength: 500,
			CacheSize:     256,
		},
		LLM: LLMConfig{
			BaseURL: "https://api.groq.com/openai/v1",
			Model:   "llama-3.3-70b-versatile",
			Timeout: 60 * time.Second,
		},
		Style: StyleConfig{
			DBPath:     "./style_guide.db",
			Results:    3,
			QueryChars: 500,
		},
		Analysis: AnalysisConfig{
			Budget: syntax.DefaultBudget,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration. path may name a config file; when empty,
// devsentinel.{yaml,toml,json} is looked up in the working directory and a
// missing file is not an error.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	cfg := Default()
	setDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("devsentinel")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("GROQ_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it during
// Unmarshal.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.max_code_length", cfg.Server.MaxCodeLength)
	v.SetDefault("server.max_path_length", cfg.Server.MaxPathLength)
	v.SetDefault("server.cache_size", cfg.Server.CacheSize)
	v.SetDefault("llm.api_key", cfg.LLM.APIKey)
	v.SetDefault("llm.base_url", cfg.LLM.BaseURL)
	v.SetDefault("llm.model", cfg.LLM.Model)
	v.SetDefault("llm.timeout", cfg.LLM.Timeout)
	v.SetDefault("style.db_path", cfg.Style.DBPath)
	v.SetDefault("style.results", cfg.Style.Results)
	v.SetDefault("style.query_chars", cfg.Style.QueryChars)
	v.SetDefault("analysis.budget", cfg.Analysis.Budget)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
}

// loadEnvFiles loads .env files in order of precedence. godotenv never
// overrides variables that are already set, so earlier files win.
func loadEnvFiles() {
	for _, file := range []string{".env.local", ".env"} {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Server.MaxCodeLength <= 0 || c.Server.MaxPathLength <= 0 {
		return errors.New("payload limits must be positive")
	}
	if c.Style.Results <= 0 {
		return fmt.Errorf("style results must be positive, got %d", c.Style.Results)
	}
	if c.Analysis.Budget <= 0 || c.Analysis.Budget > syntax.DefaultBudget {
		return fmt.Errorf("analysis budget must be between 1 and %d, got %d", syntax.DefaultBudget, c.Analysis.Budget)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	return nil
}

// NewLogger builds the process logger from the log settings.
func (c *Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	if level, err := logrus.ParseLevel(c.Log.Level); err == nil {
		log.SetLevel(level)
	}
	if c.Log.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// WarnMissingKey logs when no LLM key is configured. The analysis endpoints
// still work without one.
func (c *Config) WarnMissingKey(log logrus.FieldLogger) {
	if c.LLM.APIKey == "" {
		log.Warn("GROQ_API_KEY not found in environment variables")
	}
}
