// FilePath: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Telemetry   TelemetryConfig
	Persistence PersistenceConfig
	Refresh     RefreshConfig
	Monitoring  MonitoringConfig
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	TimescaleDB PostgresConfig `mapstructure:"timescaledb"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// TelemetryConfig selects where monitoring data comes from. Mode "api" talks
// to the monitoring REST API, mode "timescale" reads the sensor hypertable
// directly.
type TelemetryConfig struct {
	Mode    string        `mapstructure:"mode"`
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PersistenceConfig selects the layout persistence backend, "redis" or
// "memory".
type PersistenceConfig struct {
	Backend string `mapstructure:"backend"`
}

// RefreshPolicyConfig overrides one data class's refresh policy.
type RefreshPolicyConfig struct {
	StaleTTL     time.Duration `mapstructure:"stale_ttl"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// RefreshConfig carries per-class policy overrides keyed by class name.
// Classes not listed keep their built-in defaults.
type RefreshConfig struct {
	Policies map[string]RefreshPolicyConfig `mapstructure:"policies"`
}

type MonitoringConfig struct {
	LogLevel string `mapstructure:"log_level"`
}

// Load initializes configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetEnvPrefix("TRAKSENSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	viper.AutomaticEnv()

	setDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "15s")
	viper.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	viper.SetDefault("database.timescaledb.sslmode", "disable")

	// Redis defaults
	viper.SetDefault("redis.db", 0)

	// Telemetry defaults
	viper.SetDefault("telemetry.mode", "api")
	viper.SetDefault("telemetry.timeout", "10s")

	// Persistence defaults
	viper.SetDefault("persistence.backend", "redis")

	// Monitoring defaults
	viper.SetDefault("monitoring.log_level", "info")
}

func validateConfig(config *Config) error {
	switch config.Telemetry.Mode {
	case "api":
		if config.Telemetry.BaseURL == "" {
			return fmt.Errorf("telemetry base_url is required in api mode")
		}
	case "timescale":
		if config.Database.TimescaleDB.Host == "" {
			return fmt.Errorf("timescaledb host is required in timescale mode")
		}
	default:
		return fmt.Errorf("unknown telemetry mode %q", config.Telemetry.Mode)
	}
	switch config.Persistence.Backend {
	case "redis", "memory":
	default:
		return fmt.Errorf("unknown persistence backend %q", config.Persistence.Backend)
	}
	return nil
}
