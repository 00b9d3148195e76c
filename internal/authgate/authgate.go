// Package authgate guards the checkout CLI behind an operator password stored
// as a bcrypt hash.
package authgate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/goliatone/go-checkout/pkg/tui"
)

// DefaultCost matches the cost used when provisioning operator hashes.
const DefaultCost = 10

// DefaultAttempts bounds password prompts before the gate gives up.
const DefaultAttempts = 3

var (
	// ErrDenied reports a password that does not match the stored hash.
	ErrDenied = errors.New("authgate: access denied")
	// ErrInvalidHash reports a configured hash bcrypt cannot parse.
	ErrInvalidHash = errors.New("authgate: invalid password hash")
)

// Hash returns a bcrypt hash of password suitable for auth.password_hash.
func Hash(password string, cost int) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", errors.New("authgate: password is empty")
	}
	if cost == 0 {
		cost = DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("authgate: hash: %w", err)
	}
	return string(hashed), nil
}

type Gate struct {
	hash     []byte
	attempts int
	logger   *zap.Logger
}

type Option func(*Gate)

func WithAttempts(n int) Option {
	return func(g *Gate) {
		if n > 0 {
			g.attempts = n
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New returns a gate for hash. An empty hash yields a nil gate, which admits
// everyone.
func New(hash string, opts ...Option) (*Gate, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, nil
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	g := &Gate{hash: []byte(hash), attempts: DefaultAttempts, logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g, nil
}

// Check compares password against the stored hash.
func (g *Gate) Check(password string) error {
	if g == nil {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrDenied
		}
		return fmt.Errorf("authgate: compare: %w", err)
	}
	return nil
}

// Authenticate prompts through driver until the password matches or the
// attempt budget runs out.
func (g *Gate) Authenticate(ctx context.Context, driver tui.PromptDriver) error {
	if g == nil {
		return nil
	}
	if driver == nil {
		return errors.New("authgate: prompt driver is nil")
	}
	for attempt := 1; attempt <= g.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		password, err := driver.Password(ctx, tui.InputConfig{Message: "Operator password"})
		if err != nil {
			return err
		}
		err = g.Check(password)
		if err == nil {
			g.logger.Debug("operator authenticated", zap.Int("attempt", attempt))
			return nil
		}
		if !errors.Is(err, ErrDenied) {
			return err
		}
		g.logger.Warn("operator password rejected", zap.Int("attempt", attempt))
		if attempt < g.attempts {
			if err := driver.Info(ctx, "Incorrect password, try again."); err != nil {
				return err
			}
		}
	}
	return ErrDenied
}
