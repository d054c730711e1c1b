package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// AmountBounds holds the configured min/max base amount for one transaction
// type. Amounts outside the bounds fail creation with ErrInvalidAmount.
type AmountBounds struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// CommissionScheme holds the commission percentage and fixed fee captured
// into the monetary snapshot at creation for one transaction type.
type CommissionScheme struct {
	Pct   decimal.Decimal
	Fixed decimal.Decimal
}

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	Port           string
	IsProduction   bool
	UseMemoryStore bool // run against the in-memory repositories, no Postgres

	JWTSecret         string
	JWTExpiryDuration time.Duration
	JWTIssuer         string

	BaseCurrency string // currency transactions are paid in

	OrderBounds      AmountBounds
	RemittanceBounds AmountBounds

	OrderCommission      CommissionScheme
	RemittanceCommission CommissionScheme

	// ReferenceMaxAttempts bounds the retry loop when claiming a reference
	// number collides.
	ReferenceMaxAttempts int

	RateLimit     string // ulule/limiter formatted rate, e.g. "60-M"
	PosthogAPIKey string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("USE_MEMORY_STORE", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_EXPIRY_DURATION", "1h")
	viper.SetDefault("JWT_ISSUER", "envio-backend")
	viper.SetDefault("BASE_CURRENCY", "USD")
	viper.SetDefault("ORDER_MIN_AMOUNT", "1.00")
	viper.SetDefault("ORDER_MAX_AMOUNT", "5000.00")
	viper.SetDefault("REMITTANCE_MIN_AMOUNT", "5.00")
	viper.SetDefault("REMITTANCE_MAX_AMOUNT", "2000.00")
	viper.SetDefault("ORDER_COMMISSION_PCT", "0")
	viper.SetDefault("ORDER_COMMISSION_FIXED", "0")
	viper.SetDefault("REMITTANCE_COMMISSION_PCT", "3.0")
	viper.SetDefault("REMITTANCE_COMMISSION_FIXED", "0")
	viper.SetDefault("REFERENCE_MAX_ATTEMPTS", 5)
	viper.SetDefault("RATE_LIMIT", "60-M")
	viper.SetDefault("POSTHOG_API_KEY", "")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.UseMemoryStore = viper.GetBool("USE_MEMORY_STORE")
	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")
	cfg.BaseCurrency = viper.GetString("BASE_CURRENCY")
	cfg.ReferenceMaxAttempts = viper.GetInt("REFERENCE_MAX_ATTEMPTS")
	cfg.RateLimit = viper.GetString("RATE_LIMIT")
	cfg.PosthogAPIKey = viper.GetString("POSTHOG_API_KEY")

	var err error
	cfg.JWTExpiryDuration, err = time.ParseDuration(viper.GetString("JWT_EXPIRY_DURATION"))
	if err != nil {
		log.Printf("Warning: invalid JWT_EXPIRY_DURATION (%q), defaulting to 1h\n", viper.GetString("JWT_EXPIRY_DURATION"))
		cfg.JWTExpiryDuration = time.Hour
	}

	cfg.OrderBounds, err = loadBounds("ORDER_MIN_AMOUNT", "ORDER_MAX_AMOUNT")
	if err != nil {
		return nil, err
	}
	cfg.RemittanceBounds, err = loadBounds("REMITTANCE_MIN_AMOUNT", "REMITTANCE_MAX_AMOUNT")
	if err != nil {
		return nil, err
	}
	cfg.OrderCommission, err = loadCommission("ORDER_COMMISSION_PCT", "ORDER_COMMISSION_FIXED")
	if err != nil {
		return nil, err
	}
	cfg.RemittanceCommission, err = loadCommission("REMITTANCE_COMMISSION_PCT", "REMITTANCE_COMMISSION_FIXED")
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadBounds(minKey, maxKey string) (AmountBounds, error) {
	min, err := decimal.NewFromString(viper.GetString(minKey))
	if err != nil {
		return AmountBounds{}, err
	}
	max, err := decimal.NewFromString(viper.GetString(maxKey))
	if err != nil {
		return AmountBounds{}, err
	}
	return AmountBounds{Min: min, Max: max}, nil
}

func loadCommission(pctKey, fixedKey string) (CommissionScheme, error) {
	pct, err := decimal.NewFromString(viper.GetString(pctKey))
	if err != nil {
		return CommissionScheme{}, err
	}
	fixed, err := decimal.NewFromString(viper.GetString(fixedKey))
	if err != nil {
		return CommissionScheme{}, err
	}
	return CommissionScheme{Pct: pct, Fixed: fixed}, nil
}
