package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// OPENCLAW_PROVIDER_API_KEY for provider.api_key.
const EnvPrefix = "OPENCLAW"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Provider ProviderConfig `mapstructure:"provider"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ProviderConfig describes the Responses API endpoint
type ProviderConfig struct {
	BaseURL      string            `mapstructure:"base_url"`
	APIKey       string            `mapstructure:"api_key"`
	Name         string            `mapstructure:"name"`
	DefaultModel string            `mapstructure:"default_model"`
	Timeout      int               `mapstructure:"timeout"` // seconds
	Headers      map[string]string `mapstructure:"headers"`
}

// TimeoutDuration returns the request timeout
func (p ProviderConfig) TimeoutDuration() time.Duration {
	return time.Duration(p.Timeout) * time.Second
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StorageConfig configures the usage ledger
type StorageConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"` // Database path, default ./data/usage.db
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from defaults, an optional YAML file, .env files
// and OPENCLAW_ environment variables, in increasing precedence.
func Load(cfgFile string) (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()
	_ = godotenv.Load(".env.local")

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Replace . with _ for nested config keys
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	// Read config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")          // Same directory as executable (priority)
		v.AddConfigPath("./configs")  // configs/ subdirectory
		v.AddConfigPath("../configs") // For running from bin/ directory
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is ok, use defaults
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the settings needed to reach the vendor
func (c *Config) Validate() error {
	if c.Provider.BaseURL == "" {
		return errors.New("provider.base_url is required")
	}
	if c.Provider.Timeout <= 0 {
		return errors.New("provider.timeout must be positive")
	}
	if c.Storage.Enabled && c.Storage.Path == "" {
		return errors.New("storage.path is required when storage is enabled")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 300)

	// Provider defaults
	v.SetDefault("provider.base_url", "http://127.0.0.1:18789/v1")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.name", "openclaw")
	v.SetDefault("provider.default_model", "openclaw")
	v.SetDefault("provider.timeout", 300)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Storage defaults
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.path", "./data/usage.db")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}
