// Package config provides configuration management for the Odd2 prediction service.
package config

import (
	"fmt"
)

// Config represents the complete application configuration
type Config struct {
	App           AppConfig           `mapstructure:"app" validate:"required"`
	Database      DatabaseConfig      `mapstructure:"database" validate:"required"`
	FootballData  FootballDataConfig  `mapstructure:"football_data" validate:"required"`
	Relworx       RelworxConfig       `mapstructure:"relworx" validate:"required"`
	ExchangeRates ExchangeRatesConfig `mapstructure:"exchange_rates"`
	Pricing       PricingConfig       `mapstructure:"pricing" validate:"required"`
	Prediction    PredictionConfig    `mapstructure:"prediction" validate:"required"`
	Schedule      ScheduleConfig      `mapstructure:"schedule" validate:"required"`
	Server        ServerConfig        `mapstructure:"server" validate:"required"`
	Metrics       MetricsConfig       `mapstructure:"metrics" validate:"required"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
	Timezone    string `mapstructure:"timezone" validate:"required"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password" validate:"required"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// FootballDataConfig represents football-data.org API configuration
type FootballDataConfig struct {
	BaseURL        string  `mapstructure:"base_url" validate:"required,url"`
	APIKey         string  `mapstructure:"api_key"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	RateLimit      float64 `mapstructure:"rate_limit" validate:"required,gt=0"`
}

// RelworxConfig represents the mobile-money payment provider configuration
type RelworxConfig struct {
	BaseURL        string `mapstructure:"base_url" validate:"required,url"`
	APIKey         string `mapstructure:"api_key"`
	APISecret      string `mapstructure:"api_secret"`
	WebhookSecret  string `mapstructure:"webhook_secret"`
	AccountNumber  string `mapstructure:"account_number"`
	CallbackURL    string `mapstructure:"callback_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"required,gt=0"`
}

// ExchangeRatesConfig represents the exchange rate provider configuration
type ExchangeRatesConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// PricingConfig represents VIP pricing configuration
type PricingConfig struct {
	VIPPriceUGX  int    `mapstructure:"vip_price_ugx" validate:"required,gt=0"`
	BaseCurrency string `mapstructure:"base_currency" validate:"required,len=3"`
}

// PredictionConfig represents tunable prediction pipeline settings
type PredictionConfig struct {
	MinTotalOdds  float64 `mapstructure:"min_total_odds" validate:"required,gte=1"`
	LookaheadDays int     `mapstructure:"lookahead_days" validate:"gte=0,lte=7"`
	OddsJitter    bool    `mapstructure:"odds_jitter"`
	HistoryDays   int     `mapstructure:"history_days" validate:"required,gt=0"`
}

// ScheduleConfig represents the cron expressions for background jobs,
// evaluated in the configured application timezone
type ScheduleConfig struct {
	Predictions    string `mapstructure:"predictions" validate:"required"`
	Results        string `mapstructure:"results" validate:"required"`
	ExchangeRates  string `mapstructure:"exchange_rates" validate:"required"`
	SessionCleanup string `mapstructure:"session_cleanup" validate:"required"`
}

// ServerConfig represents the HTTP server configuration
type ServerConfig struct {
	Port                int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	SessionCookieName   string `mapstructure:"session_cookie_name" validate:"required"`
	SessionCookieMaxAge int    `mapstructure:"session_cookie_max_age" validate:"required,gt=0"`
	AdminToken          string `mapstructure:"admin_token"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
