// Package apiclient issues requests to the Lectio backend and normalizes
// every failure into an *APIError.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lectio/admin-console/internal/circuitbreaker"
	"github.com/lectio/admin-console/internal/endpoints"
	"github.com/lectio/admin-console/internal/metrics"
	"github.com/sirupsen/logrus"
)

// SessionCookie is the cookie the backend reads the session token from.
const SessionCookie = "access_token"

const maxBodyBytes = 32 << 20

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Breaker guards calls per endpoint family. *circuitbreaker.Manager satisfies it.
type Breaker interface {
	Execute(ctx context.Context, family string, fn func(ctx context.Context) error) error
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    Breaker
	logger     *logrus.Logger
}

type Option func(*Client)

func WithBreaker(b Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

// WithCookieJar keeps cookies set by the backend, so a login through this
// client authenticates its later calls.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) { c.httpClient.Jar = jar }
}

func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.httpClient.Transport = rt }
}

func New(cfg Config, logger *logrus.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL is the backend root all endpoint paths are appended to.
func (c *Client) BaseURL() string { return c.baseURL }

// URL returns the absolute address of e.
func (c *Client) URL(e endpoints.Endpoint) string { return c.baseURL + e.Path }

type sessionKey struct{}

// WithSession makes every request issued with ctx carry token as the
// session cookie.
func WithSession(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, sessionKey{}, token)
}

func SessionFrom(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(sessionKey{}).(string)
	return token, ok && token != ""
}

type Request struct {
	Endpoint endpoints.Endpoint
	Query    url.Values
	// JSON is marshalled as the body when set.
	JSON any
	// Body and ContentType send a pre-encoded body such as a multipart form.
	Body        io.Reader
	ContentType string
}

type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Empty reports whether the response carried no payload.
func (r *Response) Empty() bool {
	trimmed := bytes.TrimSpace(r.Body)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func (r *Response) Decode(out any) error {
	if err := json.Unmarshal(r.Body, out); err != nil {
		return &APIError{
			Message: "Malformed response from server",
			Status:  r.Status,
			Data:    dataFromBody(r.Body),
			err:     err,
		}
	}
	return nil
}

var errServerStatus = errors.New("server error status")

// Do sends req and returns the response for any 2xx status. Every other
// outcome is an *APIError.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, &APIError{Message: "Invalid request", err: err}
	}

	family := req.Endpoint.Family()
	start := time.Now()

	var resp *Response
	send := func(ctx context.Context) error {
		var sendErr error
		resp, sendErr = c.send(httpReq)
		if sendErr != nil {
			return sendErr
		}
		if resp.Status >= http.StatusInternalServerError {
			return errServerStatus
		}
		return nil
	}

	if c.breaker != nil {
		err = c.breaker.Execute(ctx, family, send)
	} else {
		err = send(ctx)
	}

	switch {
	case errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen):
		c.logger.WithFields(logrus.Fields{
			"endpoint": req.Endpoint.String(),
			"family":   family,
		}).Warn("Backend call rejected by open circuit breaker")
		return nil, &APIError{Message: "Backend temporarily unavailable", err: err}
	case err != nil && !errors.Is(err, errServerStatus):
		metrics.ObserveBackend(family, req.Endpoint.Method, 0, time.Since(start))
		c.logger.WithError(err).WithField("endpoint", req.Endpoint.String()).Error("No response from server")
		return nil, fromTransport(err)
	}

	metrics.ObserveBackend(family, req.Endpoint.Method, resp.Status, time.Since(start))

	if resp.Status < 200 || resp.Status > 299 {
		c.logger.WithFields(logrus.Fields{
			"endpoint": req.Endpoint.String(),
			"status":   resp.Status,
			"body":     truncate(resp.Body, 512),
		}).Error("Backend returned error status")
		return nil, fromResponse(resp.Status, resp.Body)
	}

	c.logger.WithFields(logrus.Fields{
		"endpoint": req.Endpoint.String(),
		"status":   resp.Status,
		"duration": time.Since(start).Milliseconds(),
	}).Debug("Backend call completed")

	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	target := c.baseURL + req.Endpoint.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	contentType := req.ContentType
	switch {
	case req.JSON != nil:
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	case req.Body != nil:
		body = req.Body
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Endpoint.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if token, ok := SessionFrom(ctx); ok {
		httpReq.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	}
	return httpReq, nil
}

func (c *Client) send(httpReq *http.Request) (*Response, error) {
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   body,
	}, nil
}

func truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}
