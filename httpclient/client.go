package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/kbukum/cmdstream/resilience"
)

// Client fetches remote sources as streams.
type Client struct {
	httpClient *http.Client
	config     Config
	rl         *resilience.RateLimiter
	breakers   *resilience.BreakerSet
}

// StreamResponse is a 200 response whose body has not been read yet.
type StreamResponse struct {
	URL    string
	Header http.Header
	// Body must be drained or closed by the caller.
	Body io.ReadCloser
	// ContentLength is -1 when unknown.
	ContentLength int64
}

// Close releases the response body.
func (r *StreamResponse) Close() error {
	return r.Body.Close()
}

// New creates a new HTTP client with the given configuration.
func New(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.Timeout

	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, err
	}
	if tlsCfg != nil {
		transport.TLSClientConfig = tlsCfg
	}

	hc := &http.Client{Transport: transport}
	if !cfg.FollowRedirects {
		hc.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	c := &Client{httpClient: hc, config: cfg}
	if cfg.RateLimit != nil {
		c.rl = resilience.NewRateLimiter(*cfg.RateLimit)
	}
	if cfg.CircuitBreaker != nil {
		c.breakers = resilience.NewBreakerSet(*cfg.CircuitBreaker)
	}
	return c, nil
}

// Unwrap returns the underlying *http.Client for advanced use cases.
func (c *Client) Unwrap() *http.Client {
	return c.httpClient
}

// Open issues a GET for rawURL and returns the unread body on HTTP 200.
// Any other status yields a *StatusError; the body of such a response is
// closed by Open.
func (c *Client) Open(ctx context.Context, rawURL string) (*StreamResponse, error) {
	req, err := c.buildRequest(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if c.rl != nil {
		if err := c.rl.Wait(ctx); err != nil {
			return nil, newTimeoutError(rawURL, err)
		}
	}

	if c.breakers == nil {
		return c.execute(ctx, req)
	}

	// The breaker only sees transport failures and 5xx; a 404 says nothing
	// about host health.
	var (
		resp      *StreamResponse
		statusErr *StatusError
	)
	err = c.breakers.Get(req.URL.Host).Execute(func() error {
		var execErr error
		resp, execErr = c.execute(ctx, req)
		if se, ok := AsStatusError(execErr); ok && !se.serverSide() {
			statusErr = se
			return nil
		}
		return execErr
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil, newCircuitOpenError(rawURL, err)
	}
	if err != nil {
		return nil, err
	}
	if statusErr != nil {
		return nil, statusErr
	}
	return resp, nil
}

func (c *Client) buildRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, newValidationError(rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, newValidationError(rawURL, fmt.Errorf("unsupported scheme %q", u.Scheme))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, newValidationError(rawURL, err)
	}
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	return req, nil
}

func (c *Client) execute(ctx context.Context, req *http.Request) (*StreamResponse, error) {
	rawURL := req.URL.String()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, newTimeoutError(rawURL, err)
		}
		var ue *url.Error
		if errors.As(err, &ue) && ue.Timeout() {
			return nil, newTimeoutError(rawURL, err)
		}
		return nil, newConnectionError(rawURL, err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		return nil, &StatusError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Header:     resp.Header,
			Body:       body,
		}
	}

	return &StreamResponse{
		URL:           rawURL,
		Header:        resp.Header,
		Body:          resp.Body,
		ContentLength: resp.ContentLength,
	}, nil
}
