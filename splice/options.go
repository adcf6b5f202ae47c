package splice

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/cmdstream/logger"
	"github.com/kbukum/cmdstream/observability"
	"github.com/kbukum/cmdstream/resolver"
)

const defaultEventBuffer = 64

type options struct {
	resolver    resolver.Resolver
	observers   []Observer
	log         *logger.Logger
	metrics     *observability.SpliceMetrics
	tracer      trace.Tracer
	eventBuffer int
}

// Option configures an Engine.
type Option func(*options)

// WithResolver replaces the default URL/path/stream resolver.
func WithResolver(r resolver.Resolver) Option {
	return func(o *options) {
		if r != nil {
			o.resolver = r
		}
	}
}

// WithObserver registers an observer. Observers are called in registration order.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WithLogger sets the logger for the engine, its process and the default resolver.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithMetrics records splice metrics on m.
func WithMetrics(m *observability.SpliceMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracer sets the tracer used for per-item spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithEventBuffer sets the capacity of the Events channel. Events that do not
// fit are dropped from the channel and counted by DroppedEvents; observers
// still receive every event.
func WithEventBuffer(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.eventBuffer = n
		}
	}
}

func defaultOptions() options {
	return options{
		log:         logger.Nop(),
		tracer:      observability.DefaultTracer(),
		eventBuffer: defaultEventBuffer,
	}
}
