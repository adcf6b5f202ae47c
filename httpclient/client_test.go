package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/cmdstream/resilience"
)

func TestClient_Open_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if ua := r.Header.Get("User-Agent"); ua != "cmdstream" {
			t.Errorf("expected default user agent, got %q", ua)
		}
		if v := r.Header.Get("X-Token"); v != "abc" {
			t.Errorf("expected X-Token header, got %q", v)
		}
		_, _ = io.WriteString(w, "0bla")
	}))
	defer srv.Close()

	c, err := New(Config{Headers: map[string]string{"X-Token": "abc"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := c.Open(context.Background(), srv.URL+"/0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "0bla" {
		t.Errorf("expected body '0bla', got %q", body)
	}
}

func TestClient_Open_Non200(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"not found", http.StatusNotFound},
		{"no content", http.StatusNoContent},
		{"created", http.StatusCreated},
		{"server error", http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-Reason", "test")
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, "nope")
			}))
			defer srv.Close()

			c, err := New(Config{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			_, err = c.Open(context.Background(), srv.URL)
			se, ok := AsStatusError(err)
			if !ok {
				t.Fatalf("expected *StatusError, got %T: %v", err, err)
			}
			if se.StatusCode != tc.status {
				t.Errorf("expected status %d, got %d", tc.status, se.StatusCode)
			}
			if se.Header.Get("X-Reason") != "test" {
				t.Error("expected response headers to be kept")
			}
			if tc.status != http.StatusNoContent && string(se.Body) != "nope" {
				t.Errorf("expected body 'nope', got %q", se.Body)
			}
		})
	}
}

func TestClient_Open_RedirectNotFollowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/moved" {
			http.Redirect(w, r, "/target", http.StatusFound)
			return
		}
		_, _ = io.WriteString(w, "target")
	}))
	defer srv.Close()

	strict, _ := New(Config{})
	_, err := strict.Open(context.Background(), srv.URL+"/moved")
	if se, ok := AsStatusError(err); !ok || se.StatusCode != http.StatusFound {
		t.Fatalf("expected 302 StatusError, got %v", err)
	}

	lenient, _ := New(Config{FollowRedirects: true})
	resp, err := lenient.Open(context.Background(), srv.URL+"/moved")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "target" {
		t.Errorf("expected redirected body, got %q", body)
	}
}

func TestClient_Open_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c, _ := New(Config{})
	_, err := c.Open(context.Background(), addr)
	if !IsConnection(err) {
		t.Fatalf("expected connection error, got %v", err)
	}
}

func TestClient_Open_BadScheme(t *testing.T) {
	c, _ := New(Config{})
	_, err := c.Open(context.Background(), "ftp://example.com/file")
	if err == nil {
		t.Fatal("expected error for ftp scheme")
	}
	var e *Error
	if !asError(err, &e) || e.Code != ErrCodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestClient_Open_CircuitBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := New(Config{CircuitBreaker: &resilience.CircuitBreakerConfig{
		MaxFailures: 2,
		OpenTimeout: time.Minute,
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 404s do not count against the host.
	for i := 0; i < 3; i++ {
		if _, err := c.Open(context.Background(), srv.URL+"/missing"); err == nil {
			t.Fatal("expected status error")
		}
	}
	for i := 0; i < 2; i++ {
		if _, err := c.Open(context.Background(), srv.URL+"/flaky"); err == nil {
			t.Fatal("expected status error")
		}
	}

	_, err = c.Open(context.Background(), srv.URL+"/flaky")
	if !IsCircuitOpen(err) {
		t.Fatalf("expected circuit open error, got %v", err)
	}
	if calls.Load() != 5 {
		t.Errorf("expected 5 requests to reach the server, got %d", calls.Load())
	}
}

func TestClient_Open_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "x")
	}))
	defer srv.Close()

	c, _ := New(Config{RateLimit: &resilience.RateLimiterConfig{Rate: 20, Burst: 1}})

	start := time.Now()
	for i := 0; i < 3; i++ {
		resp, err := c.Open(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_ = resp.Close()
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("expected rate limiting to space requests, took %v", elapsed)
	}
}

func TestConfig_DefaultsAndValidate(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Timeout != defaultTimeout {
		t.Errorf("expected default timeout, got %v", cfg.Timeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	bad := Config{Timeout: time.Second, TLS: &TLSConfig{CertFile: "cert.pem"}}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for cert without key")
	}
}

func TestTLSConfig_BuildEmpty(t *testing.T) {
	var nilCfg *TLSConfig
	got, err := nilCfg.Build()
	if err != nil || got != nil {
		t.Errorf("expected nil config for nil TLSConfig, got %v, %v", got, err)
	}

	got, err = (&TLSConfig{SkipVerify: true}).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || !got.InsecureSkipVerify {
		t.Error("expected InsecureSkipVerify to be set")
	}

	if _, err := (&TLSConfig{CAFile: "/nonexistent/ca.pem"}).Build(); err == nil {
		t.Error("expected error for missing CA file")
	}
}

func TestErrorCode_String(t *testing.T) {
	tests := map[ErrorCode]string{
		ErrCodeTimeout:     "timeout",
		ErrCodeConnection:  "connection",
		ErrCodeStatus:      "status",
		ErrCodeCircuitOpen: "circuit_open",
		ErrCodeValidation:  "validation",
		ErrorCode(99):      "unknown",
	}
	for code, want := range tests {
		if code.String() != want {
			t.Errorf("expected %q, got %q", want, code.String())
		}
	}
}

func asError(err error, target **Error) bool {
	e, ok := err.(*Error)
	if ok {
		*target = e
	}
	return ok
}
