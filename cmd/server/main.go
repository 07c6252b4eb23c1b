package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/sokoni-labs/babyshop/internal"
	"github.com/sokoni-labs/babyshop/internal/gateway"
	"github.com/sokoni-labs/babyshop/internal/handler"
	"github.com/sokoni-labs/babyshop/internal/middleware"
	"github.com/sokoni-labs/babyshop/internal/notify"
	"github.com/sokoni-labs/babyshop/internal/postgres"
	"github.com/sokoni-labs/babyshop/internal/routes"
	"github.com/sokoni-labs/babyshop/internal/service"
	"github.com/sokoni-labs/babyshop/internal/shipping"
	"github.com/sokoni-labs/babyshop/internal/tax"
	"github.com/sokoni-labs/babyshop/internal/telemetry"
)

func main() {
	app := &cli.App{
		Name:  "babyshop",
		Usage: "baby products storefront API",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run database migrations (unless disabled) and start the API server",
				Action: func(*cli.Context) error { return serve() },
			},
			{
				Name:   "migrate",
				Usage:  "run pending database migrations and exit",
				Action: func(*cli.Context) error { return migrate() },
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "babyshop: %v\n", err)
		os.Exit(1)
	}
}

func migrate() error {
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}
	logger := internal.NewLogger(cfg)
	return runMigrations(cfg, logger)
}

func runMigrations(cfg *internal.Config, logger zerolog.Logger) error {
	sqlDB, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	logger.Info().Msg("running database migrations")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info().Msg("database migrations completed")
	return nil
}

func serve() error {
	ctx := context.Background()

	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}
	logger := internal.NewLogger(cfg)

	if cfg.Database.MigrateOnBoot {
		if err := runMigrations(cfg, logger); err != nil {
			return err
		}
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("invalid database url: %w", err)
	}
	poolCfg.MaxConns = cfg.Database.MaxConnections
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	logger.Info().Msg("database connection established")

	store := postgres.New(pool)

	telemetry.InitBusinessMetrics(cfg.Metrics.Namespace)
	metrics := middleware.NewMetrics(cfg.Metrics.Namespace)

	dispatcher := notify.NewLogDispatcher(logger)
	gateways := buildGateways(cfg)
	quoter := shipping.NewFlatRateQuoter(cfg.Shipping.NairobiCents, cfg.Shipping.UpcountryCents)

	var taxer tax.Calculator
	if cfg.Tax.Rate > 0 {
		taxer = tax.NewPercentageCalculator(cfg.Tax.Rate)
	} else {
		taxer = tax.NewNoTaxCalculator()
	}

	catalogService := service.NewCatalogService(store)
	cartService := service.NewCartService(store)
	checkoutService := service.NewCheckoutService(store, quoter, taxer, gateways, dispatcher, cfg.Checkout.GiftWrapFeeCents)
	orderService := service.NewOrderService(store, dispatcher)
	paymentService := service.NewPaymentService(store, gateways, dispatcher)
	addressService := service.NewAddressService(store)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(logger)

	e.Use(
		middleware.RequestID(),
		middleware.RequestLogger(logger),
		metrics.Middleware(),
		middleware.Identity(),
	)

	routes.RegisterAPI(e, routes.Deps{
		Catalog:   handler.NewCatalogHandler(catalogService),
		Cart:      handler.NewCartHandler(cartService),
		Orders:    handler.NewOrderHandler(checkoutService, orderService),
		Payments:  handler.NewPaymentHandler(paymentService),
		Addresses: handler.NewAddressHandler(addressService),
		Metrics:   metrics,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server listening")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-stop.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(ctx, time.Duration(cfg.Server.ShutdownSeconds)*time.Second)
	defer cancelShutdown()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

// buildGateways registers every configured payment provider. Stripe is
// skipped without credentials so card payments fail fast as an unknown
// gateway instead of at charge time.
func buildGateways(cfg *internal.Config) *gateway.Registry {
	providers := []gateway.Provider{
		gateway.NewMpesaProvider(cfg.Mpesa.MpesaPaybill),
		gateway.NewAirtelMoneyProvider(cfg.Mpesa.AirtelBusinessNumber),
		gateway.NewTkashProvider(cfg.Mpesa.TkashPaybill),
		gateway.NewEquitelProvider(cfg.Mpesa.EquitelPaybill),
		gateway.NewBankTransferProvider(cfg.Bank.Name, cfg.Bank.AccountName, cfg.Bank.AccountNumber),
		gateway.NewCashOnDeliveryProvider(),
	}
	if cfg.Stripe.SecretKey != "" {
		providers = append(providers, gateway.NewStripeProvider(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret))
	}
	return gateway.NewRegistry(providers...)
}
