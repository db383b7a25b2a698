// Package rest is the HTTP client of the volunteer backend REST API.
package rest

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

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/lborres/volunteer/core"
	"github.com/lborres/volunteer/pkg/crypto"
	"github.com/lborres/volunteer/pkg/logging"
	"github.com/lborres/volunteer/pkg/metrics"
	"github.com/lborres/volunteer/services"
)

const (
	DefaultBaseURL = "http://localhost:8000/api"
	DefaultTimeout = 30 * time.Second

	HeaderRequestID = "X-Request-ID"

	maxBodySize = 4 << 20
)

// Config configures the REST client
type Config struct {
	BaseURL string
	// Timeout bounds every request; a timeout is reported as a network error.
	Timeout time.Duration
	// HTTPClient overrides the default traced client; Timeout is ignored then.
	HTTPClient *http.Client
	Endpoints  *services.EndpointRegistry
	// OnUnauthenticated is called with the token of every authenticated
	// request answered with 401.
	OnUnauthenticated func(token string)
	// Breaker overrides the circuit breaker settings. Only network failures
	// and 5xx answers count as failures.
	Breaker *gobreaker.Settings
	Logger  logrus.FieldLogger
}

// Client implements core.BackendAPI over HTTP.
type Client struct {
	base      *url.URL
	http      *http.Client
	endpoints *services.EndpointRegistry
	breaker   *gobreaker.CircuitBreaker
	log       logrus.FieldLogger

	onUnauthenticated func(token string)
}

var _ core.BackendAPI = (*Client)(nil)

func New(config Config) (*Client, error) {
	raw := strings.TrimSpace(config.BaseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidBaseURL, raw)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	endpoints := config.Endpoints
	if endpoints == nil {
		endpoints = services.NewEndpointRegistry()
	}

	settings := defaultBreakerSettings()
	if config.Breaker != nil {
		settings = *config.Breaker
	}
	settings.IsSuccessful = isBreakerSuccess

	return &Client{
		base:              base,
		http:              httpClient,
		endpoints:         endpoints,
		breaker:           gobreaker.NewCircuitBreaker(settings),
		log:               logging.OrDiscard(config.Logger),
		onUnauthenticated: config.OnUnauthenticated,
	}, nil
}

func defaultBreakerSettings() gobreaker.Settings {
	return gobreaker.Settings{
		Name:        "volunteer-api",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
}

// errServerStatus marks a 5xx answer for the breaker; it never leaves the client.
var errServerStatus = errors.New("server status")

func isBreakerSuccess(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

// SetUnauthenticatedHandler installs the forced-logout hook after
// construction, when the session is built on top of the client.
func (c *Client) SetUnauthenticatedHandler(fn func(token string)) {
	c.onUnauthenticated = fn
}

// BaseURL is the API root all endpoint paths are resolved against.
func (c *Client) BaseURL() string { return c.base.String() }

type request struct {
	op     string
	token  string
	params map[string]string
	query  url.Values
	body   any
}

type response struct {
	status int
	body   []byte
}

// do sends one request and returns the body of a 2xx answer. Any other
// outcome is an *core.APIError.
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	ep, err := c.endpoints.Lookup(req.op)
	if err != nil {
		return nil, err
	}
	if ep.Authenticated && req.token == "" {
		return nil, core.ErrNotAuthenticated
	}

	httpReq, err := c.newRequest(ctx, ep, req)
	if err != nil {
		return nil, err
	}

	log := c.log.WithFields(logrus.Fields{
		"op":         req.op,
		"method":     ep.Method,
		"request_id": httpReq.Header.Get(HeaderRequestID),
	})

	start := time.Now()
	resp, err := c.execute(httpReq)
	elapsed := time.Since(start)

	if err != nil {
		apiErr := networkError(ctx, err)
		metrics.RecordAPIRequest(req.op, apiErr.Category.String(), elapsed.Seconds())
		log.WithError(err).Debug("backend request failed")
		return nil, apiErr
	}

	if resp.status >= 200 && resp.status < 300 {
		metrics.RecordAPIRequest(req.op, core.CategoryNone.String(), elapsed.Seconds())
		log.WithField("status", resp.status).Debug("backend request succeeded")
		return resp.body, nil
	}

	apiErr := decodeError(resp.status, resp.body)
	metrics.RecordAPIRequest(req.op, apiErr.Category.String(), elapsed.Seconds())
	log.WithFields(logrus.Fields{"status": resp.status, "category": apiErr.Category.String()}).Debug("backend request rejected")

	if resp.status == http.StatusUnauthorized && ep.Authenticated && c.onUnauthenticated != nil {
		log.WithField("token", crypto.Fingerprint(req.token)).Info("backend rejected the session token")
		c.onUnauthenticated(req.token)
	}
	return nil, apiErr
}

func (c *Client) newRequest(ctx context.Context, ep core.Endpoint, req request) (*http.Request, error) {
	path := ep.Path
	for k, v := range req.params {
		path = strings.ReplaceAll(path, "{"+k+"}", url.PathEscape(v))
	}

	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + path
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", req.op, err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, ep.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", req.op, err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if id, err := gonanoid.New(); err == nil {
		httpReq.Header.Set(HeaderRequestID, id)
	}
	if ep.Authenticated {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}
	return httpReq, nil
}

// execute runs the request through the circuit breaker. 4xx answers are
// successes for the breaker.
func (c *Client) execute(httpReq *http.Request) (*response, error) {
	var resp *response
	_, err := c.breaker.Execute(func() (interface{}, error) {
		r, err := c.http.Do(httpReq)
		if err != nil {
			return nil, err
		}
		defer r.Body.Close()

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}
		resp = &response{status: r.StatusCode, body: body}
		if r.StatusCode >= 500 {
			return nil, errServerStatus
		}
		return nil, nil
	})
	if errors.Is(err, errServerStatus) {
		return resp, nil
	}
	return resp, err
}

func networkError(ctx context.Context, err error) *core.APIError {
	msg := "backend unreachable"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		msg = "backend temporarily unavailable"
	case ctx.Err() != nil:
		err = fmt.Errorf("%w: %w", ctx.Err(), err)
		msg = "request cancelled"
	}
	return &core.APIError{Category: core.CategoryNetwork, Message: msg, Err: err}
}
