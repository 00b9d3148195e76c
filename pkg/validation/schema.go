package validation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-checkout/pkg/model"
	"github.com/goliatone/go-checkout/pkg/visibility"
	"github.com/goliatone/go-checkout/pkg/visibility/expr"
)

// CardRule is the applicability rule shared by the card-only fields.
const CardRule = `paymentMethod == "credit-card"`

// Default messages, keyed by field.
const (
	MessageEmail      = "Please enter a valid email address"
	MessageCardNumber = "Card number must be 16 digits"
	MessageExpiry     = "Expiry date must be in MM/YY format"
	MessageCVC        = "CVC must be 3 or 4 digits"
	MessageExpired    = "Card has expired"
)

// Rule constrains one field. Schema, when set, is checked with kin-openapi;
// Check runs afterwards for constraints a schema cannot express. A rule only
// runs while AppliesWhen holds; an empty AppliesWhen always holds.
type Rule struct {
	Field       model.FieldName
	Schema      *openapi3.Schema
	Check       func(value string) error
	Message     string
	AppliesWhen string
}

func (r Rule) violated(value string) bool {
	if r.Schema != nil {
		if err := r.Schema.VisitJSON(value); err != nil {
			return true
		}
	}
	if r.Check != nil {
		if err := r.Check(value); err != nil {
			return true
		}
	}
	return false
}

// Schema is the ordered rule set for the checkout form. It is immutable after
// New and safe for concurrent use.
type Schema struct {
	rules     []Rule
	evaluator visibility.Evaluator
}

// Option customises a Schema.
type Option func(*config)

type config struct {
	messages  map[model.FieldName]string
	evaluator visibility.Evaluator
	now       func() time.Time
	extra     []Rule
}

// WithMessages overrides the default message per field.
func WithMessages(messages map[model.FieldName]string) Option {
	return func(c *config) {
		for field, msg := range messages {
			if strings.TrimSpace(msg) == "" {
				continue
			}
			if c.messages == nil {
				c.messages = make(map[model.FieldName]string)
			}
			c.messages[field] = msg
		}
	}
}

// WithEvaluator swaps the applicability evaluator.
func WithEvaluator(evaluator visibility.Evaluator) Option {
	return func(c *config) {
		if evaluator != nil {
			c.evaluator = evaluator
		}
	}
}

// WithExpiryCutoff rejects expiry dates whose month ended before now().
// Without it a well-formed past date is accepted.
func WithExpiryCutoff(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

// WithRule appends a rule evaluated after the defaults.
func WithRule(rule Rule) Option {
	return func(c *config) {
		c.extra = append(c.extra, rule)
	}
}

// New builds the default checkout schema.
func New(opts ...Option) *Schema {
	cfg := &config{evaluator: expr.New()}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	message := func(field model.FieldName, fallback string) string {
		if msg, ok := cfg.messages[field]; ok {
			return msg
		}
		return fallback
	}

	rules := []Rule{
		{
			Field:   model.FieldEmail,
			Schema:  EmailSchema(),
			Message: message(model.FieldEmail, MessageEmail),
		},
		{
			Field:       model.FieldCardNumber,
			Schema:      CardNumberSchema(),
			Message:     message(model.FieldCardNumber, MessageCardNumber),
			AppliesWhen: CardRule,
		},
		{
			Field:       model.FieldExpiry,
			Schema:      ExpirySchema(),
			Message:     message(model.FieldExpiry, MessageExpiry),
			AppliesWhen: CardRule,
		},
		{
			Field:       model.FieldCVC,
			Schema:      CVCSchema(),
			Message:     message(model.FieldCVC, MessageCVC),
			AppliesWhen: CardRule,
		},
	}
	if cfg.now != nil {
		now := cfg.now
		rules = append(rules, Rule{
			Field:       model.FieldExpiry,
			Check:       func(value string) error { return notExpired(value, now()) },
			Message:     MessageExpired,
			AppliesWhen: CardRule,
		})
	}
	rules = append(rules, cfg.extra...)

	return &Schema{rules: rules, evaluator: cfg.evaluator}
}

// Rules returns a copy of the rule set.
func (s *Schema) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Validate checks values and returns the order for the selected method. Field
// failures come back as *Errors; a rule that cannot be evaluated or a payment
// method outside the enumeration comes back as a plain error.
func (s *Schema) Validate(values model.Values) (model.Order, error) {
	values.Email = NormalizeEmail(values.Email)
	ctx := visibility.Context{Values: values.Map()}

	var failures Errors
	for _, rule := range s.rules {
		if failures.Has(rule.Field) {
			continue
		}
		applies, err := s.applies(rule, ctx)
		if err != nil {
			return nil, err
		}
		if !applies {
			continue
		}
		value, err := values.Get(rule.Field)
		if err != nil {
			return nil, fmt.Errorf("validation: %w", err)
		}
		if rule.violated(value) {
			failures.add(rule.Field, rule.Message)
		}
	}
	if len(failures.Fields) > 0 {
		return nil, &failures
	}

	var card model.Card
	if values.PaymentMethod.RequiresCard() {
		card = model.Card{
			Number: values.CardNumber,
			Expiry: values.Expiry,
			CVC:    values.CVC,
		}
		card.ExpMonth, card.ExpYear, _ = ParseExpiry(values.Expiry)
	}
	order, err := model.NewOrder(values.PaymentMethod, values.Email, card)
	if err != nil {
		return nil, fmt.Errorf("validation: %w", err)
	}
	return order, nil
}

// Required lists the fields with at least one applicable rule, in form order.
func (s *Schema) Required(values model.Values) []model.FieldName {
	var out []model.FieldName
	for _, field := range model.Fields() {
		if s.Applies(field, values) {
			out = append(out, field)
		}
	}
	return out
}

// Applies reports whether any rule for field is active for values. A rule that
// fails to evaluate counts as active.
func (s *Schema) Applies(field model.FieldName, values model.Values) bool {
	ctx := visibility.Context{Values: values.Map()}
	for _, rule := range s.rules {
		if rule.Field != field {
			continue
		}
		ok, err := s.applies(rule, ctx)
		if err != nil || ok {
			return true
		}
	}
	return false
}

func (s *Schema) applies(rule Rule, ctx visibility.Context) (bool, error) {
	if strings.TrimSpace(rule.AppliesWhen) == "" {
		return true, nil
	}
	ok, err := s.evaluator.Eval(string(rule.Field), rule.AppliesWhen, ctx)
	if err != nil {
		return false, fmt.Errorf("validation: rule for %s: %w", rule.Field, err)
	}
	return ok, nil
}

// NormalizeEmail trims the address and lowercases its domain.
func NormalizeEmail(raw string) string {
	email := strings.TrimSpace(raw)
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return email
	}
	return email[:at+1] + strings.ToLower(email[at+1:])
}

// ParseExpiry splits an MM/YY value into month and four-digit year.
func ParseExpiry(value string) (month, year int, err error) {
	mm, yy, ok := strings.Cut(strings.TrimSpace(value), "/")
	if !ok || len(mm) != 2 || len(yy) != 2 {
		return 0, 0, fmt.Errorf("validation: expiry %q is not MM/YY", value)
	}
	month, err = strconv.Atoi(mm)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("validation: expiry month %q out of range", mm)
	}
	yy2, err := strconv.Atoi(yy)
	if err != nil {
		return 0, 0, fmt.Errorf("validation: expiry year %q: %w", yy, err)
	}
	return month, 2000 + yy2, nil
}

func notExpired(value string, now time.Time) error {
	month, year, err := ParseExpiry(value)
	if err != nil {
		// Shape errors are reported by the schema rule.
		return nil
	}
	firstInvalid := time.Date(year, time.Month(month)+1, 1, 0, 0, 0, 0, now.Location())
	if !now.Before(firstInvalid) {
		return fmt.Errorf("validation: card expired %02d/%d", month, year)
	}
	return nil
}
