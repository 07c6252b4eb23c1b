// Package internal holds process-level plumbing shared by the commands:
// configuration, logging and migrations.
package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the process configuration, loaded from the environment with
// an optional .env file for development.
type Config struct {
	Env      string
	LogLevel string

	Server   ServerConfig
	Database DatabaseConfig
	Stripe   StripeConfig
	Mpesa    MobileMoneyConfig
	Bank     BankConfig
	Shipping ShippingConfig
	Tax      TaxConfig
	Checkout CheckoutConfig
	Metrics  MetricsConfig
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port            uint16
	ShutdownSeconds int
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	URL            string
	MigrateOnBoot  bool
	MaxConnections int32
}

// StripeConfig holds the card gateway credentials.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

// MobileMoneyConfig holds the paybill/business numbers rendered into
// mobile money payment instructions.
type MobileMoneyConfig struct {
	MpesaPaybill         string
	AirtelBusinessNumber string
	TkashPaybill         string
	EquitelPaybill       string
}

// BankConfig holds the bank transfer beneficiary details.
type BankConfig struct {
	Name          string
	AccountName   string
	AccountNumber string
}

// ShippingConfig is the flat rate card in cents.
type ShippingConfig struct {
	NairobiCents   int64
	UpcountryCents int64
}

// TaxConfig selects the tax calculator. Rate is a fraction, e.g. 0.16
// for Kenyan VAT; zero disables tax entirely.
type TaxConfig struct {
	Rate float64
}

// CheckoutConfig holds checkout fees.
type CheckoutConfig struct {
	GiftWrapFeeCents int64
}

// MetricsConfig names the Prometheus namespace.
type MetricsConfig struct {
	Namespace string
}

// NewConfig loads configuration from the environment. A .env file is
// loaded first when present, searched for in the working directory and up
// to two parents so commands run from subdirectories find it too.
func NewConfig() (*Config, error) {
	loadDotenv()

	v := viper.New()
	v.SetEnvPrefix("BABYSHOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_seconds", 15)
	v.SetDefault("database.url", "")
	v.SetDefault("database.migrate_on_boot", true)
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.webhook_secret", "")
	v.SetDefault("mpesa.mpesa_paybill", "")
	v.SetDefault("mpesa.airtel_business_number", "")
	v.SetDefault("mpesa.tkash_paybill", "")
	v.SetDefault("mpesa.equitel_paybill", "")
	v.SetDefault("bank.name", "")
	v.SetDefault("bank.account_name", "")
	v.SetDefault("bank.account_number", "")
	v.SetDefault("shipping.nairobi_cents", 30000)
	v.SetDefault("shipping.upcountry_cents", 50000)
	v.SetDefault("tax.rate", 0.0)
	v.SetDefault("checkout.gift_wrap_fee_cents", 20000)
	v.SetDefault("metrics.namespace", "babyshop")

	cfg := &Config{
		Env:      v.GetString("env"),
		LogLevel: v.GetString("log_level"),
		Server: ServerConfig{
			Port:            uint16(v.GetUint32("server.port")),
			ShutdownSeconds: v.GetInt("server.shutdown_seconds"),
		},
		Database: DatabaseConfig{
			URL:            v.GetString("database.url"),
			MigrateOnBoot:  v.GetBool("database.migrate_on_boot"),
			MaxConnections: v.GetInt32("database.max_connections"),
		},
		Stripe: StripeConfig{
			SecretKey:     v.GetString("stripe.secret_key"),
			WebhookSecret: v.GetString("stripe.webhook_secret"),
		},
		Mpesa: MobileMoneyConfig{
			MpesaPaybill:         v.GetString("mpesa.mpesa_paybill"),
			AirtelBusinessNumber: v.GetString("mpesa.airtel_business_number"),
			TkashPaybill:         v.GetString("mpesa.tkash_paybill"),
			EquitelPaybill:       v.GetString("mpesa.equitel_paybill"),
		},
		Bank: BankConfig{
			Name:          v.GetString("bank.name"),
			AccountName:   v.GetString("bank.account_name"),
			AccountNumber: v.GetString("bank.account_number"),
		},
		Shipping: ShippingConfig{
			NairobiCents:   v.GetInt64("shipping.nairobi_cents"),
			UpcountryCents: v.GetInt64("shipping.upcountry_cents"),
		},
		Tax: TaxConfig{
			Rate: v.GetFloat64("tax.rate"),
		},
		Checkout: CheckoutConfig{
			GiftWrapFeeCents: v.GetInt64("checkout.gift_wrap_fee_cents"),
		},
		Metrics: MetricsConfig{
			Namespace: v.GetString("metrics.namespace"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether the process runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("BABYSHOP_DATABASE_URL is required")
	}
	if c.IsProduction() {
		if c.Stripe.SecretKey == "" {
			return fmt.Errorf("BABYSHOP_STRIPE_SECRET_KEY is required in production")
		}
		if c.Stripe.WebhookSecret == "" {
			return fmt.Errorf("BABYSHOP_STRIPE_WEBHOOK_SECRET is required in production")
		}
		if c.LogLevel == "debug" || c.LogLevel == "trace" {
			return fmt.Errorf("log level %q is not allowed in production", c.LogLevel)
		}
	}
	return nil
}

// loadDotenv loads a .env from the working directory or up to two parent
// directories. Missing files are fine; real environments set variables
// directly.
func loadDotenv() {
	if err := godotenv.Load(); err == nil {
		return
	}
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for i := 0; i < 2; i++ {
		dir = filepath.Join(dir, "..")
		if err := godotenv.Load(filepath.Join(dir, ".env")); err == nil {
			return
		}
	}
}
