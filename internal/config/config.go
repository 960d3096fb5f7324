package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Azure    AzureConfig    `mapstructure:"azure"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Session  SessionConfig  `mapstructure:"session"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Security SecurityConfig `mapstructure:"security"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// AzureConfig holds the hosted assistants API settings. APIKey and Endpoint
// have no defaults and missing values halt startup.
type AzureConfig struct {
	APIKey      string `mapstructure:"api_key"`
	Endpoint    string `mapstructure:"endpoint"`
	APIVersion  string `mapstructure:"api_version"`
	Deployment  string `mapstructure:"deployment"`
	AssistantID string `mapstructure:"assistant_id"`
}

// Validate checks the credentials required to reach the remote service
func (c AzureConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("AZURE_OPENAI_API_KEY is required")
	}
	if c.Endpoint == "" {
		return fmt.Errorf("AZURE_OPENAI_ENDPOINT is required")
	}
	return nil
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type SessionConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type UploadConfig struct {
	MaxSizeMB int64 `mapstructure:"max_size_mb"`
}

type SecurityConfig struct {
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if _, statErr := os.Stat(configPath); statErr == nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
		// Config file not found, use defaults and env vars
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Azure: fallback deployment matches the hosted service default
	v.SetDefault("azure.api_version", "2024-05-01-preview")
	v.SetDefault("azure.deployment", "gpt-4o")

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Session
	v.SetDefault("session.ttl", "2h")
	v.SetDefault("session.cleanup_interval", "5m")

	// Upload
	v.SetDefault("upload.max_size_mb", 100)

	// Security
	v.SetDefault("security.rate_limit.requests_per_minute", 30)
	v.SetDefault("security.rate_limit.burst", 10)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func bindEnvVars(v *viper.Viper) {
	// Remote service credentials
	v.BindEnv("azure.api_key", "AZURE_OPENAI_API_KEY")
	v.BindEnv("azure.endpoint", "AZURE_OPENAI_ENDPOINT")
	v.BindEnv("azure.deployment", "AZURE_DEPLOYMENT_NAME")
	v.BindEnv("azure.assistant_id", "AZURE_ASSISTANT_ID")

	// Redis
	v.BindEnv("redis.password", "REDIS_PASSWORD")
}
