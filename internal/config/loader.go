// Package config provides configuration management for the Odd2 prediction service.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "ODD2"

// Load reads and parses the configuration from file and environment variables.
// It expands environment variable placeholders in the YAML file (${VAR_NAME}).
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the configuration (${VAR} syntax)
	expanded := os.ExpandEnv(string(data))

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional fields.
// A missing config file is not an error: defaults plus environment variables apply.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		expanded := os.ExpandEnv(string(data))
		if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "odd2")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.timezone", "Africa/Kampala")

	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_connections", 2)
	v.SetDefault("database.ssl_mode", "disable")

	v.SetDefault("football_data.base_url", "https://api.football-data.org/v4")
	v.SetDefault("football_data.timeout_seconds", 10)
	v.SetDefault("football_data.rate_limit", 0.15)

	v.SetDefault("relworx.base_url", "https://api.relworx.com/v1")
	v.SetDefault("relworx.timeout_seconds", 30)

	v.SetDefault("exchange_rates.base_url", "https://v6.exchangerate-api.com/v6")

	v.SetDefault("pricing.vip_price_ugx", 5000)
	v.SetDefault("pricing.base_currency", "UGX")

	v.SetDefault("prediction.min_total_odds", 2.0)
	v.SetDefault("prediction.lookahead_days", 2)
	v.SetDefault("prediction.odds_jitter", true)
	v.SetDefault("prediction.history_days", 7)

	// Job times are in the application timezone (EAT by default):
	// picks at midnight and noon, results every hour, rates at 06:00,
	// session cleanup every two hours
	v.SetDefault("schedule.predictions", "0 0,12 * * *")
	v.SetDefault("schedule.results", "30 * * * *")
	v.SetDefault("schedule.exchange_rates", "0 6 * * *")
	v.SetDefault("schedule.session_cleanup", "15 */2 * * *")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.session_cookie_name", "odd2_session")
	v.SetDefault("server.session_cookie_max_age", 86400)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
}
