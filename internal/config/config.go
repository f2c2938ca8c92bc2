package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Billing  BillingConfig  `mapstructure:"billing"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// AuthConfig holds bearer token settings for mutating routes
type AuthConfig struct {
	JWTSecret    string        `mapstructure:"jwt_secret"`
	Issuer       string        `mapstructure:"issuer"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
	MaxWriteRole int           `mapstructure:"max_write_role"`
}

// BillingConfig holds invoicing and payment policy
type BillingConfig struct {
	// AllowOverpayment lets payments push an invoice past its total.
	// The excess is credited to the overpayment account.
	AllowOverpayment bool `mapstructure:"allow_overpayment"`
	DefaultDueDays   int  `mapstructure:"default_due_days"`
}

// LedgerConfig names the system accounts used by automatic postings
type LedgerConfig struct {
	ReceivableAccountCode     string `mapstructure:"receivable_account_code"`
	CashAccountCode           string `mapstructure:"cash_account_code"`
	DefaultRevenueAccountCode string `mapstructure:"default_revenue_account_code"`
	OverpaymentAccountCode    string `mapstructure:"overpayment_account_code"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file, an optional .env file and environment variables.
// A missing config file is not an error; defaults and environment still apply.
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("SCHOOLFIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.request_timeout", 15*time.Second)

	// Database defaults
	v.SetDefault("database.path", "data/school_finance.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// Auth defaults
	v.SetDefault("auth.issuer", "school-finance")
	v.SetDefault("auth.token_ttl", 12*time.Hour)
	v.SetDefault("auth.max_write_role", 2)

	// Billing defaults
	v.SetDefault("billing.allow_overpayment", false)
	v.SetDefault("billing.default_due_days", 30)

	// Ledger defaults, matching the accounts seeded by migrations
	v.SetDefault("ledger.receivable_account_code", "1100")
	v.SetDefault("ledger.cash_account_code", "1000")
	v.SetDefault("ledger.default_revenue_account_code", "4000")
	v.SetDefault("ledger.overpayment_account_code", "2100")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	// Secrets usually come from the environment
	_ = v.BindEnv("auth.jwt_secret", "SCHOOLFIN_JWT_SECRET", "JWT_SECRET")
	_ = v.BindEnv("database.path", "SCHOOLFIN_DATABASE_PATH")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("auth.jwt_secret must be at least 16 characters")
	}
	if c.Auth.MaxWriteRole < 0 {
		return fmt.Errorf("auth.max_write_role must not be negative")
	}

	if c.Billing.DefaultDueDays < 0 {
		return fmt.Errorf("billing.default_due_days must not be negative")
	}

	if c.Ledger.ReceivableAccountCode == "" || c.Ledger.CashAccountCode == "" {
		return fmt.Errorf("ledger receivable and cash account codes are required")
	}
	if c.Ledger.DefaultRevenueAccountCode == "" {
		return fmt.Errorf("ledger.default_revenue_account_code is required")
	}
	if c.Billing.AllowOverpayment && c.Ledger.OverpaymentAccountCode == "" {
		return fmt.Errorf("ledger.overpayment_account_code is required when overpayment is allowed")
	}

	return nil
}
