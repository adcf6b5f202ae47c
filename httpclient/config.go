package httpclient

import (
	"fmt"
	"time"

	"github.com/kbukum/cmdstream/resilience"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "cmdstream"
)

// Config configures the HTTP client.
type Config struct {
	// Timeout bounds connecting and waiting for response headers. The body
	// itself is streamed without a deadline. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// UserAgent is sent with every request.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`

	// Headers are added to every request.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// FollowRedirects makes 3xx responses transparent. When false a redirect
	// is reported as a non-200 StatusError.
	FollowRedirects bool `yaml:"follow_redirects" mapstructure:"follow_redirects"`

	// TLS configures TLS settings for the HTTP transport.
	TLS *TLSConfig `yaml:"tls" mapstructure:"tls"`

	// RateLimit spaces out fetches. Nil disables it.
	RateLimit *resilience.RateLimiterConfig `yaml:"rate_limit" mapstructure:"rate_limit"`

	// CircuitBreaker opens per host after repeated connection failures or
	// 5xx responses. Nil disables it.
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	if c.TLS != nil {
		if err := c.TLS.Validate(); err != nil {
			return err
		}
	}
	return nil
}
