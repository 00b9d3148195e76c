// Package config resolves the checkout CLI runtime settings from defaults, an
// optional YAML file and CHECKOUT_* environment variables, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides: gateway becomes
// CHECKOUT_GATEWAY, stripe.secret_key becomes CHECKOUT_STRIPE_SECRET_KEY.
const EnvPrefix = "CHECKOUT"

// Gateway names.
const (
	GatewaySimulated = "simulated"
	GatewayStripe    = "stripe"
	GatewayHTTP      = "http"
)

type Config struct {
	Gateway   string          `mapstructure:"gateway" validate:"required,oneof=simulated stripe http"`
	Timeout   time.Duration   `mapstructure:"timeout" validate:"gte=0"`
	Amount    int64           `mapstructure:"amount" validate:"gt=0"`
	Currency  string          `mapstructure:"currency" validate:"required,len=3,alpha"`
	Catalog   string          `mapstructure:"catalog"`
	Simulated SimulatedConfig `mapstructure:"simulated"`
	Stripe    StripeConfig    `mapstructure:"stripe"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Log       LogConfig       `mapstructure:"log"`
	Auth      AuthConfig      `mapstructure:"auth"`
}

type SimulatedConfig struct {
	Delay time.Duration `mapstructure:"delay" validate:"gte=0"`
}

type StripeConfig struct {
	SecretKey string `mapstructure:"secret_key"`
}

type ProviderConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

type AuthConfig struct {
	// PasswordHash is a bcrypt hash; empty disables the CLI password gate.
	PasswordHash string `mapstructure:"password_hash"`
}

var defaults = map[string]any{
	"gateway":            GatewaySimulated,
	"timeout":            "0s",
	"amount":             4999,
	"currency":           "usd",
	"catalog":            "",
	"simulated.delay":    "2s",
	"stripe.secret_key":  "",
	"provider.url":       "",
	"log.level":          "info",
	"auth.password_hash": "",
}

// Load reads path (when non-empty) and the environment. Every key has a
// default so AutomaticEnv can override it during Unmarshal.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.Gateway = strings.ToLower(strings.TrimSpace(cfg.Gateway))
	cfg.Currency = strings.ToLower(strings.TrimSpace(cfg.Currency))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(gatewayRequirements, Config{})
	return v
}

// gatewayRequirements enforces the settings each gateway needs.
func gatewayRequirements(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)
	switch cfg.Gateway {
	case GatewayStripe:
		if strings.TrimSpace(cfg.Stripe.SecretKey) == "" {
			sl.ReportError(cfg.Stripe.SecretKey, "Stripe.SecretKey", "SecretKey", "required_for_stripe", "")
		}
	case GatewayHTTP:
		if strings.TrimSpace(cfg.Provider.URL) == "" {
			sl.ReportError(cfg.Provider.URL, "Provider.URL", "URL", "required_for_http", "")
		}
	}
}

// Validate checks field constraints and per-gateway requirements.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Tag()))
	}
	return fmt.Errorf("config: invalid: %s", strings.Join(msgs, ", "))
}
