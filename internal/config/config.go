package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"mixmatch/internal/action/hybris"
	"mixmatch/internal/action/iberia"
	"mixmatch/internal/action/icoupon"
	"mixmatch/internal/match"
)

// Config holds all engine configuration. One process invocation reads it
// once; actions never see configuration they did not receive here.
type Config struct {
	Exchange ExchangeConfig
	Manager  ManagerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Actions  ActionsConfig
}

// ExchangeConfig locates the POS-owned interchange files.
type ExchangeConfig struct {
	Path          string // directory shared with the POS
	Filename      string // exchange file name
	SelectionFile string // coupon selection file name
}

// FilePath returns the full path of the exchange file.
func (c *ExchangeConfig) FilePath() string {
	return filepath.Join(c.Path, c.Filename)
}

// SelectionPath returns the full path of the coupon selection file.
func (c *ExchangeConfig) SelectionPath() string {
	return filepath.Join(c.Path, c.SelectionFile)
}

// ManagerConfig holds the POS manager settings.
type ManagerConfig struct {
	// PromotionID is the manager promotion: it keys the value row in the
	// manager database and, as a string, is the aplicarmm value that
	// activates the promotion line.
	PromotionID int
}

// ActivationValue returns the aplicarmm value for the manager promotion.
func (c *ManagerConfig) ActivationValue() string {
	return strconv.Itoa(c.PromotionID)
}

// DatabaseConfig holds manager-database configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
	File   string // log file path; empty logs to stdout
}

// ActionsConfig holds the configured promotion actions. Enabled order is
// registry order, and with duplicate promotion ids the first enabled action
// wins.
type ActionsConfig struct {
	Enabled []string
	ICoupon icoupon.Config
	Hybris  hybris.Config
	Iberia  iberia.Config
}

// Action names accepted in ACTIONS.
const (
	ActionICoupon = "icoupon"
	ActionHybris  = "hybris"
	ActionIberia  = "iberia"
)

// Load loads configuration from an optional env file and the environment.
func Load() (*Config, error) {
	// Missing env file is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg := &Config{
		Exchange: ExchangeConfig{
			Path:          getEnv("EXCHANGE_PATH", "."),
			Filename:      getEnv("EXCHANGE_FILENAME", "intercambio.xml"),
			SelectionFile: getEnv("EXCHANGE_SELECTION", "coupons.json"),
		},
		Manager: ManagerConfig{
			PromotionID: getEnvAsInt("MANAGER_PROMOTION_ID", 0),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "manager"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 2),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 1),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			File:   getEnv("LOG_FILE", ""),
		},
		Actions: ActionsConfig{
			Enabled: splitList(getEnv("ACTIONS", ActionICoupon)),
			ICoupon: icoupon.Config{
				PromotionID: getEnvAsInt("ICOUPON_PROMOTION_ID", 0),
				Pattern:     getEnv("ICOUPON_PATTERN", `\d+`),
				Client: icoupon.ClientConfig{
					BaseURL:            getEnv("ICOUPON_BASE_URL", ""),
					TokenURL:           getEnv("ICOUPON_TOKEN_URL", "/oauth/token"),
					CouponsURL:         getEnv("ICOUPON_COUPONS_URL", "/coupons/list"),
					GrantType:          getEnv("ICOUPON_GRANT_TYPE", "client_credentials"),
					ClientID:           getEnv("ICOUPON_CLIENT_ID", ""),
					ClientSecret:       getEnv("ICOUPON_CLIENT_SECRET", ""),
					LocationRef:        getEnv("ICOUPON_LOCATION_REF", ""),
					ServiceProviderRef: getEnv("ICOUPON_SERVICE_PROVIDER_REF", ""),
					TradingOutletRef:   getEnv("ICOUPON_TRADING_OUTLET_REF", ""),
					Timeout:            getEnvAsDuration("ICOUPON_TIMEOUT", 3*time.Second),
				},
			},
			Hybris: hybris.Config{
				PromotionID:  getEnvAsInt("HYBRIS_PROMOTION_ID", 0),
				Pattern:      getEnv("HYBRIS_PATTERN", `.+`),
				StatusPrefix: getEnv("HYBRIS_STATUS_PREFIX", "Validated QR"),
				Client: hybris.ClientConfig{
					BaseURL:      getEnv("HYBRIS_BASE_URL", ""),
					TokenURL:     getEnv("HYBRIS_TOKEN_URL", "/oauth/token"),
					ValidateURL:  getEnv("HYBRIS_VALIDATE_URL", "/qr/validate"),
					GrantType:    getEnv("HYBRIS_GRANT_TYPE", "password"),
					ClientID:     getEnv("HYBRIS_CLIENT_ID", ""),
					ClientSecret: getEnv("HYBRIS_CLIENT_SECRET", ""),
					Username:     getEnv("HYBRIS_USERNAME", ""),
					Password:     getEnv("HYBRIS_PASSWORD", ""),
					TerminalCode: getEnv("HYBRIS_TERMINAL_CODE", ""),
					Timeout:      getEnvAsDuration("HYBRIS_TIMEOUT", 3*time.Second),
				},
			},
			Iberia: iberia.Config{
				PromotionID: getEnvAsInt("IBERIA_PROMOTION_ID", 0),
				Pattern:     getEnv("IBERIA_PATTERN", `.+`),
				Client: iberia.ClientConfig{
					BaseURL:        getEnv("IBERIA_BASE_URL", ""),
					User:           getEnv("IBERIA_USER", ""),
					Password:       getEnv("IBERIA_PASSWORD", ""),
					Airport:        getEnv("IBERIA_AIRPORT", ""),
					IDProvider:     getEnv("IBERIA_ID_PROVIDER", ""),
					VoucherPattern: getEnv("IBERIA_VOUCHER_PATTERN", `(0002)(\d{2})(\d+)`),
					Timeout:        getEnvAsDuration("IBERIA_TIMEOUT", 3*time.Second),
				},
			},
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration. Action patterns are compiled here
// so a malformed pattern aborts before any dispatch.
func (c *Config) Validate() error {
	if c.Exchange.Path == "" {
		return fmt.Errorf("exchange path is required")
	}
	if c.Exchange.Filename == "" {
		return fmt.Errorf("exchange filename is required")
	}
	if c.Exchange.SelectionFile == "" {
		return fmt.Errorf("exchange selection filename is required")
	}

	if c.Manager.PromotionID <= 0 {
		return fmt.Errorf("manager promotion id is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}
	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}
	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}
	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if len(c.Actions.Enabled) == 0 {
		return fmt.Errorf("at least one action must be enabled")
	}
	for _, name := range c.Actions.Enabled {
		switch name {
		case ActionICoupon:
			if err := validateAction(name, c.Actions.ICoupon.PromotionID, c.Actions.ICoupon.Pattern, c.Actions.ICoupon.Client.BaseURL); err != nil {
				return err
			}
		case ActionHybris:
			if err := validateAction(name, c.Actions.Hybris.PromotionID, c.Actions.Hybris.Pattern, c.Actions.Hybris.Client.BaseURL); err != nil {
				return err
			}
		case ActionIberia:
			if err := validateAction(name, c.Actions.Iberia.PromotionID, c.Actions.Iberia.Pattern, c.Actions.Iberia.Client.BaseURL); err != nil {
				return err
			}
			if _, err := match.Compile(c.Actions.Iberia.Client.VoucherPattern); err != nil {
				return fmt.Errorf("action iberia: %w", err)
			}
		default:
			return fmt.Errorf("unknown action: %s", name)
		}
	}

	return nil
}

func validateAction(name string, promotionID int, pattern, baseURL string) error {
	if promotionID <= 0 {
		return fmt.Errorf("action %s: promotion id is required", name)
	}
	if _, err := match.Compile(pattern); err != nil {
		return fmt.Errorf("action %s: %w", name, err)
	}
	if baseURL == "" {
		return fmt.Errorf("action %s: base URL is required", name)
	}
	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			list = append(list, trimmed)
		}
	}
	return list
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration retrieves an environment variable as a duration or returns a default value.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
