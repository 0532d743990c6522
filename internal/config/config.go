package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Webhook    WebhookConfig    `yaml:"webhook"`
	Commission CommissionConfig `yaml:"commission"`
	JWT        JWTConfig        `yaml:"jwt"`
	Alert      AlertConfig      `yaml:"alert"`
	Log        LogConfig        `yaml:"log"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// WebhookConfig contains payment-provider webhook settings
type WebhookConfig struct {
	SigningSecret string `yaml:"signing_secret"`
}

// CommissionConfig contains commission ledger settings
type CommissionConfig struct {
	HoldDays        int   `yaml:"hold_days"`         // delay before a commission matures
	RateBasisPoints int64 `yaml:"rate_basis_points"` // 1000 = 10%
	FullRefundsOnly bool  `yaml:"full_refunds_only"` // reverse whole entries even on partial refunds
}

// JWTConfig contains admin API token settings
type JWTConfig struct {
	Secret            string `yaml:"secret"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes"`
}

// AlertConfig contains operator drift-alert settings
type AlertConfig struct {
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	FromEmail      string `yaml:"from_email"`
	OperatorEmail  string `yaml:"operator_email"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	PromotePendingCommissions string `yaml:"promote_pending_commissions"`
	RecomputeBalances         string `yaml:"recompute_balances"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables if present
	cfg.overrideWithEnv()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// Webhook
	if val := os.Getenv("WEBHOOK_SIGNING_SECRET"); val != "" {
		c.Webhook.SigningSecret = val
	}

	// Commission
	if val := os.Getenv("COMMISSION_HOLD_DAYS"); val != "" {
		fmt.Sscanf(val, "%d", &c.Commission.HoldDays)
	}
	if val := os.Getenv("COMMISSION_RATE_BPS"); val != "" {
		fmt.Sscanf(val, "%d", &c.Commission.RateBasisPoints)
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Alert
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.Alert.SendGridAPIKey = val
	}
	if val := os.Getenv("ALERT_OPERATOR_EMAIL"); val != "" {
		c.Alert.OperatorEmail = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	// Set defaults for log if not configured
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	// Database validation
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	// Webhook validation
	if c.Webhook.SigningSecret == "" {
		return fmt.Errorf("webhook signing secret is required")
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.AccessTokenExpiry <= 0 {
		c.JWT.AccessTokenExpiry = 60
	}

	// Commission defaults
	if c.Commission.HoldDays <= 0 {
		c.Commission.HoldDays = 7
	}
	if c.Commission.RateBasisPoints <= 0 {
		c.Commission.RateBasisPoints = 1000 // 10%
	}

	// Scheduler defaults
	if c.Scheduler.PromotePendingCommissions == "" {
		c.Scheduler.PromotePendingCommissions = "0 0 * * * *" // Hourly
	}
	if c.Scheduler.RecomputeBalances == "" {
		c.Scheduler.RecomputeBalances = "0 0 3 * * *" // 3 AM UTC
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
