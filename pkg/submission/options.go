package submission

import (
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/goliatone/go-checkout/pkg/notify"
	"github.com/goliatone/go-checkout/pkg/validation"
)

const instrumentationName = "github.com/goliatone/go-checkout/pkg/submission"

// Option configures a Controller.
type Option func(*Controller)

// WithSchema replaces the default validation schema.
func WithSchema(schema *validation.Schema) Option {
	return func(c *Controller) {
		if schema != nil {
			c.schema = schema
		}
	}
}

// WithSink sets where outcome notifications go.
func WithSink(sink notify.Sink) Option {
	return func(c *Controller) {
		if sink != nil {
			c.sink = sink
		}
	}
}

// WithComposer sets the notification copy renderer.
func WithComposer(composer *notify.Composer) Option {
	return func(c *Controller) {
		if composer != nil {
			c.composer = composer
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeout bounds each boundary call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.timeout = d
		}
	}
}

func WithMeter(meter metric.Meter) Option {
	return func(c *Controller) {
		if meter != nil {
			c.meter = meter
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Controller) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithIDGenerator sets how attempt ids (and idempotency keys) are minted.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) {
		if fn != nil {
			c.newID = fn
		}
	}
}

func defaults(c *Controller) {
	c.schema = validation.New()
	c.sink = notify.Discard
	c.logger = zap.NewNop()
	c.meter = otel.Meter(instrumentationName)
	c.tracer = otel.Tracer(instrumentationName)
	c.newID = uuid.NewString
}
