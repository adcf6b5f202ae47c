package observability

import (
	"context"
	"errors"
	"time"
)

// Config selects which exporters the CLI starts. Both are off by default,
// leaving the global no-op providers in place.
type Config struct {
	Tracing    bool          `yaml:"tracing" mapstructure:"tracing"`
	Metrics    bool          `yaml:"metrics" mapstructure:"metrics"`
	Endpoint   string        `yaml:"endpoint" mapstructure:"endpoint" validate:"omitempty,hostname_port"`
	Insecure   bool          `yaml:"insecure" mapstructure:"insecure"`
	// SampleRate is the trace sampling ratio. Nil means 1.0; 0 samples nothing.
	SampleRate *float64      `yaml:"sample_rate" mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1"`
	Interval   time.Duration `yaml:"interval" mapstructure:"interval" validate:"gte=0"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == nil {
		rate := 1.0
		c.SampleRate = &rate
	}
	if c.Interval == 0 {
		c.Interval = 15 * time.Second
	}
}

// ShutdownFunc flushes and stops whatever Setup started.
type ShutdownFunc func(ctx context.Context) error

// Setup starts the exporters enabled in cfg and returns a single shutdown
// function for all of them.
func Setup(ctx context.Context, cfg Config, serviceName, serviceVersion, environment string) (ShutdownFunc, error) {
	var shutdowns []ShutdownFunc
	shutdown := func(ctx context.Context) error {
		var errs []error
		for i := len(shutdowns) - 1; i >= 0; i-- {
			errs = append(errs, shutdowns[i](ctx))
		}
		return errors.Join(errs...)
	}

	if cfg.Tracing {
		tp, err := InitTracer(ctx, cfg.tracerConfig(serviceName, serviceVersion, environment))
		if err != nil {
			return nil, err
		}
		shutdowns = append(shutdowns, tp.Shutdown)
	}

	if cfg.Metrics {
		mc := cfg.meterConfig(serviceName, serviceVersion, environment)
		mp, err := InitMeter(ctx, &mc)
		if err != nil {
			_ = shutdown(ctx)
			return nil, err
		}
		shutdowns = append(shutdowns, mp.Shutdown)
	}

	return shutdown, nil
}

// tracerConfig overlays the set fields of c on DefaultTracerConfig.
func (c Config) tracerConfig(serviceName, serviceVersion, environment string) TracerConfig {
	tc := DefaultTracerConfig(serviceName)
	tc.ServiceVersion = serviceVersion
	tc.Environment = environment
	tc.Insecure = c.Insecure
	if c.Endpoint != "" {
		tc.Endpoint = c.Endpoint
	}
	if c.SampleRate != nil {
		tc.SampleRate = *c.SampleRate
	}
	return tc
}

// meterConfig overlays the set fields of c on DefaultMeterConfig.
func (c Config) meterConfig(serviceName, serviceVersion, environment string) MeterConfig {
	mc := DefaultMeterConfig(serviceName)
	mc.ServiceVersion = serviceVersion
	mc.Environment = environment
	mc.Insecure = c.Insecure
	if c.Endpoint != "" {
		mc.Endpoint = c.Endpoint
	}
	if c.Interval > 0 {
		mc.Interval = c.Interval
	}
	return mc
}
