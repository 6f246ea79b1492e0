// Package upstream is the shared HTTP client for third-party JSON APIs.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/guildbot/internal/circuitbreaker"
	"github.com/yourusername/guildbot/internal/clock"
	boterrors "github.com/yourusername/guildbot/internal/errors"
	"github.com/yourusername/guildbot/internal/output"
)

const maxErrorBody = 512

// Limiter gates requests per service
type Limiter interface {
	AcquireOrWait(ctx context.Context, key string) error
}

// Observer receives one observation per request attempt
type Observer interface {
	UpstreamRequest(ctx context.Context, service string, d time.Duration, err error)
	CircuitStateChanged(service string, from, to circuitbreaker.State)
}

// Config tunes retries, timeouts and circuit breaking
type Config struct {
	MaxRetries       int
	RetryBackoff     time.Duration
	RequestTimeout   time.Duration
	BreakerThreshold int
	BreakerTimeout   time.Duration
	UserAgent        string
}

// Client sends JSON requests to third-party APIs.
// Every attempt takes a limiter slot and runs under the service's circuit breaker.
type Client struct {
	httpClient *http.Client
	cfg        Config
	limiter    Limiter
	observer   Observer
	clock      clock.Clock
	logger     output.Logger

	mu           sync.Mutex
	breakers     map[string]*circuitbreaker.CircuitBreaker
	healthChecks map[string]string
}

// NewHTTPClient returns an http.Client with a tuned transport and no global timeout;
// per-request timeouts come from the context.
func NewHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,

		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,

		ResponseHeaderTimeout: 30 * time.Second,
	}
	return &http.Client{Transport: transport}
}

// New creates a client. limiter, observer and logger may be nil.
func New(httpClient *http.Client, cfg Config, limiter Limiter, observer Observer, clk clock.Clock, logger output.Logger) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 250 * time.Millisecond
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "guildbot/1.0"
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = output.NopLogger{}
	}
	return &Client{
		httpClient: httpClient,
		cfg:        cfg,
		limiter:    limiter,
		observer:   observer,
		clock:      clk,
		logger:     logger,
		breakers:     make(map[string]*circuitbreaker.CircuitBreaker),
		healthChecks: make(map[string]string),
	}
}

// SetHealthCheck makes an open circuit for service GET url before letting real traffic through.
// It must be called before the service's first request.
func (c *Client) SetHealthCheck(service, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.healthChecks[service] = url
}

// Breaker returns the circuit breaker for service, creating it on first use
func (c *Client) Breaker(service string) *circuitbreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	cb, ok := c.breakers[service]
	if !ok {
		var onChange func(string, circuitbreaker.State, circuitbreaker.State)
		if c.observer != nil {
			onChange = c.observer.CircuitStateChanged
		}
		var healthCheck func(context.Context) error
		if url, ok := c.healthChecks[service]; ok {
			healthCheck = func(ctx context.Context) error {
				return c.attempt(ctx, service, http.MethodGet, url, nil, nil, "healthcheck-"+uuid.New().String(), nil)
			}
		}
		cb = circuitbreaker.New(circuitbreaker.Config{
			Name:          service,
			Threshold:     c.cfg.BreakerThreshold,
			Timeout:       c.cfg.BreakerTimeout,
			Clock:         c.clock,
			HealthCheckFn: healthCheck,
			OnStateChange: onChange,
			IsFailure:     isRetryableError,
		})
		c.breakers[service] = cb
	}
	return cb
}

// BreakerStats returns the stats of every breaker created so far
func (c *Client) BreakerStats() []circuitbreaker.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]circuitbreaker.Stats, 0, len(c.breakers))
	for _, cb := range c.breakers {
		out = append(out, cb.GetStats())
	}
	return out
}

// GetJSON performs a GET and decodes the JSON response into out
func (c *Client) GetJSON(ctx context.Context, service, url string, headers map[string]string, out interface{}) error {
	return c.Do(ctx, service, http.MethodGet, url, headers, nil, out)
}

// GetBytes performs a GET and returns the raw response body
func (c *Client) GetBytes(ctx context.Context, service, url string) ([]byte, error) {
	var data []byte
	if err := c.Do(ctx, service, http.MethodGet, url, map[string]string{"Accept": "*/*"}, nil, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// PostJSON encodes body as JSON, performs a POST and decodes the response into out
func (c *Client) PostJSON(ctx context.Context, service, url string, headers map[string]string, body, out interface{}) error {
	return c.Do(ctx, service, http.MethodPost, url, headers, body, out)
}

// Do sends one logical request with retries on transport errors and 5xx responses
func (c *Client) Do(ctx context.Context, service, method, url string, headers map[string]string, body, out interface{}) error {
	requestID := uuid.New().String()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	var lastErr error
	backoff := c.cfg.RetryBackoff

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Debug("Retry %d/%d for %s request [%s] after %v", attempt, c.cfg.MaxRetries, service, requestID, backoff)
			if err := c.clock.Sleep(ctx, backoff); err != nil {
				return fmt.Errorf("[%s] context cancelled during retry backoff: %w", requestID, err)
			}
			backoff *= 2
		}

		if c.limiter != nil {
			if err := c.limiter.AcquireOrWait(ctx, service); err != nil {
				return fmt.Errorf("[%s] waiting for %s rate limit: %w", requestID, service, err)
			}
		}

		cb := c.Breaker(service)
		if cb.HasHealthCheck() && cb.GetState() == circuitbreaker.StateOpen {
			if err := cb.TryHealthCheck(ctx); err != nil && !errors.Is(err, circuitbreaker.ErrOpen) {
				c.logger.Debug("%s health check failed [%s]: %v", service, requestID, err)
			}
		}

		err := cb.Call(ctx, func() error {
			return c.attempt(ctx, service, method, url, headers, payload, requestID, out)
		})
		if err == nil {
			return nil
		}
		lastErr = err

		if errors.Is(err, circuitbreaker.ErrOpen) {
			return fmt.Errorf("circuit breaker: %w", err)
		}
		if !isRetryableError(err) {
			return err
		}
		c.logger.Warning("%s request [%s] failed (attempt %d/%d): %v", service, requestID, attempt+1, c.cfg.MaxRetries+1, err)
	}

	return fmt.Errorf("[%s] %s request failed after %d retries: %w", requestID, service, c.cfg.MaxRetries, lastErr)
}

// attempt performs a single HTTP round trip
func (c *Client) attempt(ctx context.Context, service, method, url string, headers map[string]string, payload []byte, requestID string, out interface{}) (err error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	start := c.clock.Now()
	defer func() {
		if c.observer != nil {
			c.observer.UpstreamRequest(ctx, service, c.clock.Now().Sub(start), err)
		}
	}()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &transportError{err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &transportError{err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body := string(data)
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return &boterrors.UpstreamError{Service: service, Status: resp.StatusCode, Body: body}
	}

	switch out := out.(type) {
	case nil:
		return nil
	case *[]byte:
		*out = data
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", service, err)
	}
	return nil
}

// transportError marks a network-level failure
type transportError struct {
	err error
}

func (e *transportError) Error() string { return "request failed: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// isRetryableError reports whether err is transient: a network failure or a 5xx response.
// 4xx responses, including 429, are not retried.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var te *transportError
	if errors.As(err, &te) {
		return true
	}

	var ue *boterrors.UpstreamError
	if errors.As(err, &ue) {
		return ue.Status >= 500
	}
	return false
}
