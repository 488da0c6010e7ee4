package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

const maxErrorBody = 4 << 10

// StatusError is a non-2xx response. Body is truncated.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Config configures a provider client.
type Config struct {
	Provider       string
	HTTPClient     *http.Client
	Retry          RetryConfig
	CircuitBreaker CircuitBreakerConfig
	Logger         *logger.Logger
}

// Client sends requests to one provider.
type Client struct {
	provider string
	http     *http.Client
	retry    RetryConfig
	breaker  *CircuitBreaker
	log      *logger.Logger
}

// New builds a client with defaults for any zero config.
func New(cfg Config) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Retry.BackoffMultiplier == 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.CircuitBreaker.Timeout == 0 {
		cfg.CircuitBreaker = DefaultCircuitBreakerConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewDefault("httpclient")
	}
	log := cfg.Logger.Named(cfg.Provider)
	if cfg.CircuitBreaker.OnStateChange == nil {
		cfg.CircuitBreaker.OnStateChange = func(from, to CircuitState) {
			log.WithField("from", from.String()).WithField("to", to.String()).Warn("circuit breaker state change")
		}
	}
	return &Client{
		provider: cfg.Provider,
		http:     cfg.HTTPClient,
		retry:    cfg.Retry,
		breaker:  NewCircuitBreaker(cfg.CircuitBreaker),
		log:      log,
	}
}

// Provider names the upstream this client talks to.
func (c *Client) Provider() string { return c.provider }

// HTTPClient returns an *http.Client whose transport goes through Do, for
// libraries that take a client (oauth2 token exchange).
func (c *Client) HTTPClient() *http.Client {
	return &http.Client{Transport: roundTripper{c}, Timeout: c.http.Timeout}
}

type roundTripper struct{ c *Client }

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return rt.c.Do(req)
}

// Do sends req with retries. The request body must be rewindable
// (http.NewRequest sets GetBody for in-memory bodies). A response whose
// status is still retryable after the last attempt is returned as is.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if err := c.breaker.Allow(); err != nil {
		return nil, err
	}

	var (
		resp    *http.Response
		lastErr error
	)
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-req.Context().Done():
				c.breaker.RecordFailure()
				return nil, req.Context().Err()
			case <-time.After(backoff(c.retry, attempt)):
			}
			if req.Body != nil && req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				req = req.Clone(req.Context())
				req.Body = body
			}
		}

		resp, lastErr = c.http.Do(req)
		if lastErr != nil {
			if retryableError(lastErr) && attempt < c.retry.MaxRetries {
				c.log.WithError(lastErr).WithField("attempt", attempt+1).Debug("retrying request")
				continue
			}
			c.breaker.RecordFailure()
			return nil, lastErr
		}

		if retryableStatus(c.retry, resp.StatusCode) && attempt < c.retry.MaxRetries {
			io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
			resp.Body.Close()
			c.log.WithField("status", resp.StatusCode).WithField("attempt", attempt+1).Debug("retrying request")
			continue
		}
		break
	}

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		c.breaker.RecordFailure()
	} else {
		c.breaker.RecordSuccess()
	}
	return resp, nil
}

// DoJSON sends req and decodes a 2xx JSON body into dest (which may be nil).
// Other statuses come back as an UpstreamError wrapping a StatusError.
func (c *Client) DoJSON(req *http.Request, op string, dest interface{}) error {
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	resp, err := c.Do(req)
	if err != nil {
		return apperrors.NewUpstreamError(c.provider, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return apperrors.NewUpstreamError(c.provider, op, &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))})
	}
	if dest == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if raw, ok := dest.(*[]byte); ok {
		*raw, err = io.ReadAll(resp.Body)
		if err != nil {
			return apperrors.NewUpstreamError(c.provider, op, err)
		}
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return apperrors.NewUpstreamError(c.provider, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// NewJSONRequest builds a request with a JSON body.
func NewJSONRequest(ctx context.Context, method, url string, body interface{}) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// StatusCode returns the upstream HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if apperrors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
