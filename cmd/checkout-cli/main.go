package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-checkout/internal/authgate"
	"github.com/goliatone/go-checkout/internal/config"
	"github.com/goliatone/go-checkout/internal/logging"
	"github.com/goliatone/go-checkout/pkg/catalog"
	"github.com/goliatone/go-checkout/pkg/notify"
	"github.com/goliatone/go-checkout/pkg/payment"
	"github.com/goliatone/go-checkout/pkg/payment/httpgateway"
	"github.com/goliatone/go-checkout/pkg/payment/simulated"
	"github.com/goliatone/go-checkout/pkg/payment/stripe"
	"github.com/goliatone/go-checkout/pkg/submission"
	"github.com/goliatone/go-checkout/pkg/tui"
	"github.com/goliatone/go-checkout/pkg/validation"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (optional, CHECKOUT_* env vars override it)")
	catalogPath := flag.String("catalog", "", "YAML copy catalog layered over the bundled messages")
	hashPassword := flag.Bool("hash-password", false, "prompt for an operator password, print its bcrypt hash and exit")
	printSchema := flag.Bool("schema", false, "print the checkout OpenAPI schema as JSON and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	driver := tui.NewSurveyDriver(os.Stdout)

	if *hashPassword {
		if err := runHashPassword(ctx, driver); err != nil {
			log.Fatalf("hash password: %v", err)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *catalogPath != "" {
		cfg.Catalog = *catalogPath
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	cat, err := loadCatalog(cfg.Catalog)
	if err != nil {
		logger.Fatal("load catalog", zap.Error(err))
	}
	schema := validation.New(validation.WithMessages(cat.Messages()))

	if *printSchema {
		out, err := json.MarshalIndent(validation.OpenAPISchema(schema), "", "  ")
		if err != nil {
			logger.Fatal("encode schema", zap.Error(err))
		}
		fmt.Println(string(out))
		return
	}

	gate, err := authgate.New(cfg.Auth.PasswordHash, authgate.WithLogger(logger))
	if err != nil {
		logger.Fatal("auth gate", zap.Error(err))
	}
	if err := gate.Authenticate(ctx, driver); err != nil {
		if errors.Is(err, authgate.ErrDenied) {
			fmt.Fprintln(os.Stderr, "Access denied.")
			os.Exit(1)
		}
		if errors.Is(err, tui.ErrAborted) {
			os.Exit(1)
		}
		logger.Fatal("authenticate", zap.Error(err))
	}

	composer, err := notify.NewComposer(cat)
	if err != nil {
		logger.Fatal("compile notifications", zap.Error(err))
	}
	boundary, err := newBoundary(cfg, logger)
	if err != nil {
		logger.Fatal("payment gateway", zap.Error(err))
	}

	session := tui.NewSession(tui.WithPromptDriver(driver), tui.WithLogger(logger))
	ctrl, err := submission.New(boundary,
		submission.WithSchema(schema),
		submission.WithComposer(composer),
		submission.WithSink(session),
		submission.WithTimeout(cfg.Timeout),
		submission.WithLogger(logger),
	)
	if err != nil {
		logger.Fatal("submission controller", zap.Error(err))
	}

	logger.Info("checkout started", zap.String("gateway", cfg.Gateway))
	if err := session.Run(ctx, ctrl); err != nil && !errors.Is(err, tui.ErrAborted) && !errors.Is(err, context.Canceled) {
		logger.Error("checkout session", zap.Error(err))
		os.Exit(1)
	}
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(os.DirFS(filepath.Dir(path)), filepath.Base(path))
}

func newBoundary(cfg *config.Config, logger *zap.Logger) (payment.Boundary, error) {
	switch cfg.Gateway {
	case config.GatewayStripe:
		return stripe.New(cfg.Stripe.SecretKey,
			stripe.Config{Amount: cfg.Amount, Currency: cfg.Currency},
			stripe.WithLogger(logger),
		)
	case config.GatewayHTTP:
		return httpgateway.New(cfg.Provider.URL,
			httpgateway.WithCharge(cfg.Amount, cfg.Currency),
			httpgateway.WithLogger(logger),
		)
	case config.GatewaySimulated:
		return simulated.New(simulated.WithDelay(cfg.Simulated.Delay)), nil
	default:
		return nil, fmt.Errorf("unknown gateway %q", cfg.Gateway)
	}
}

func runHashPassword(ctx context.Context, driver tui.PromptDriver) error {
	password, err := driver.Password(ctx, tui.InputConfig{
		Message: "New operator password",
		Validator: func(v string) error {
			if strings.TrimSpace(v) == "" {
				return errors.New("password is required")
			}
			return nil
		},
	})
	if err != nil {
		return err
	}
	hash, err := authgate.Hash(password, authgate.DefaultCost)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}
