// Package rest performs authenticated JSON exchanges with the remote service
// and retries rate-limited calls within a fixed budget.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"guildsync/pkg/wire"
)

const (
	// DefaultBaseURL is the production API root.
	DefaultBaseURL = "https://www.guilded.gg/api/v1"
	// DefaultUserAgent identifies the SDK on every request.
	DefaultUserAgent = "guildsync/0.1"
	// DefaultMaxRetries bounds rate-limit retries per call.
	DefaultMaxRetries = 3
	// DefaultRetryInterval is the minimum delay between rate-limited attempts.
	DefaultRetryInterval = time.Second

	instrumentationName = "guildsync/internal/rest"
	// DefaultMaxResponseBytes caps a response body.
	DefaultMaxResponseBytes = 8 << 20
)

// ErrResponseTooLarge reports a response body over the configured cap.
var ErrResponseTooLarge = errors.New("rest: response body too large")

// Config configures a Client.
type Config struct {
	// BaseURL is the API root. Defaults to DefaultBaseURL.
	BaseURL string
	// Token is the bot bearer token.
	Token string
	// UserAgent overrides DefaultUserAgent.
	UserAgent string
	// MaxRetries bounds rate-limit retries per call. Negative disables retry.
	MaxRetries int
	// RetryInterval is the minimum rate-limit delay.
	RetryInterval time.Duration
	// HTTPClient overrides http.DefaultClient.
	HTTPClient *http.Client
	// Logger receives retry diagnostics.
	Logger *slog.Logger
}

// Request is one logical call. Rate-limited attempts resend it unchanged.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	// Unauthenticated omits the Authorization header.
	Unauthenticated bool
}

// Option mutates client construction.
type Option func(*Client)

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(client *Client) {
		if provider != nil {
			client.tracer = provider.Tracer(instrumentationName)
		}
	}
}

// WithMeterProvider overrides the global OpenTelemetry meter provider.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(client *Client) {
		if provider != nil {
			client.meter = provider.Meter(instrumentationName)
		}
	}
}

// WithMaxResponseBytes overrides DefaultMaxResponseBytes.
func WithMaxResponseBytes(limit int64) Option {
	return func(client *Client) {
		if limit > 0 {
			client.maxResponseBytes = limit
		}
	}
}

// WithSleep replaces the rate-limit wait. Tests use it to observe delays.
func WithSleep(sleep func(ctx context.Context, delay time.Duration) error) Option {
	return func(client *Client) {
		if sleep != nil {
			client.sleep = sleep
		}
	}
}

// Client is safe for concurrent use. Calls share no mutable state.
type Client struct {
	baseURL          string
	token            string
	userAgent        string
	maxRetries       int
	retryInterval    time.Duration
	httpClient       *http.Client
	logger           *slog.Logger
	sleep            func(ctx context.Context, delay time.Duration) error
	maxResponseBytes int64

	tracer      trace.Tracer
	meter       metric.Meter
	requests    metric.Int64Counter
	rateLimited metric.Int64Counter
}

// New builds a client, applying defaults for unset config fields.
func New(cfg Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("rest: parse base url: %w", err)
	}

	client := &Client{
		baseURL:          baseURL,
		token:            strings.TrimSpace(cfg.Token),
		userAgent:        cfg.UserAgent,
		maxRetries:       cfg.MaxRetries,
		retryInterval:    cfg.RetryInterval,
		httpClient:       cfg.HTTPClient,
		logger:           cfg.Logger,
		sleep:            sleepWithContext,
		maxResponseBytes: DefaultMaxResponseBytes,
		tracer:           otel.GetTracerProvider().Tracer(instrumentationName),
		meter:            otel.GetMeterProvider().Meter(instrumentationName),
	}
	if client.userAgent == "" {
		client.userAgent = DefaultUserAgent
	}
	if client.maxRetries == 0 {
		client.maxRetries = DefaultMaxRetries
	}
	if client.maxRetries < 0 {
		client.maxRetries = 0
	}
	if client.retryInterval <= 0 {
		client.retryInterval = DefaultRetryInterval
	}
	if client.httpClient == nil {
		client.httpClient = http.DefaultClient
	}
	if client.logger == nil {
		client.logger = slog.Default()
	}
	for _, opt := range opts {
		opt(client)
	}

	var err error
	client.requests, err = client.meter.Int64Counter(
		"guildsync.rest.requests",
		metric.WithDescription("HTTP attempts issued, labelled by method and status."),
	)
	if err != nil {
		return nil, fmt.Errorf("rest: create request counter: %w", err)
	}
	client.rateLimited, err = client.meter.Int64Counter(
		"guildsync.rest.rate_limited",
		metric.WithDescription("HTTP attempts answered with 429."),
	)
	if err != nil {
		return nil, fmt.Errorf("rest: create rate limit counter: %w", err)
	}

	return client, nil
}

// Do performs req and returns the raw 2xx body, or nil for an empty body.
//
// A 429 with budget remaining waits max(Retry-After, RetryInterval) and
// resends the identical request. Any other non-2xx fails immediately with
// an *APIError; an exhausted budget returns the final 429 *APIError.
func (c *Client) Do(ctx context.Context, req Request) (json.RawMessage, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var encoded []byte
	if req.Body != nil {
		var err error
		encoded, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("rest: encode request body: %w", err)
		}
	}
	requestURL := c.baseURL + req.Path
	if len(req.Query) > 0 {
		requestURL += "?" + req.Query.Encode()
	}

	for attempt := 0; ; attempt++ {
		body, err := c.attempt(ctx, req, requestURL, encoded, attempt)
		if err == nil {
			return body, nil
		}
		apiErr, ok := AsAPIError(err)
		if !ok || !apiErr.IsRateLimited() || attempt >= c.maxRetries {
			return nil, err
		}

		delay := max(apiErr.RetryAfter, c.retryInterval)
		c.logger.WarnContext(ctx, "rest rate limited",
			"method", req.Method,
			"path", req.Path,
			"attempt", attempt+1,
			"delay", delay,
		)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("rest: %s %s: %w", req.Method, req.Path, err)
		}
	}
}

// DoJSON performs req and decodes the body into out when both are non-empty.
func (c *Client) DoJSON(ctx context.Context, req Request, out any) error {
	body, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("rest: decode %s %s response: %w", req.Method, req.Path, err)
	}

	return nil
}

func (c *Client) attempt(
	ctx context.Context,
	req Request,
	requestURL string,
	encoded []byte,
	attempt int,
) (_ json.RawMessage, err error) {
	ctx, span := c.tracer.Start(ctx, "rest "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.Path),
			attribute.Int("guildsync.rest.attempt", attempt),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var bodyReader io.Reader
	if encoded != nil {
		bodyReader = bytes.NewReader(encoded)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, requestURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("rest: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	if !req.Unauthenticated && c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	response, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("rest: request %s %s: %w", req.Method, req.Path, err)
	}
	defer response.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", response.StatusCode))
	statusAttrs := metric.WithAttributes(
		attribute.String("method", req.Method),
		attribute.Int("status", response.StatusCode),
	)
	c.requests.Add(ctx, 1, statusAttrs)

	responseBody, err := io.ReadAll(io.LimitReader(response.Body, c.maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("rest: read %s %s response: %w", req.Method, req.Path, err)
	}
	if int64(len(responseBody)) > c.maxResponseBytes {
		return nil, fmt.Errorf("rest: read %s %s response: %w: over %d bytes", req.Method, req.Path, ErrResponseTooLarge, c.maxResponseBytes)
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		if len(bytes.TrimSpace(responseBody)) == 0 {
			return nil, nil
		}
		return json.RawMessage(responseBody), nil
	}

	apiErr := &APIError{
		StatusCode:  response.StatusCode,
		Method:      req.Method,
		Path:        req.Path,
		URL:         requestURL,
		RequestBody: encoded,
	}
	var errorBody wire.ErrorBody
	if jsonErr := json.Unmarshal(responseBody, &errorBody); jsonErr == nil {
		apiErr.Code = errorBody.Code
		apiErr.Message = errorBody.Message
		apiErr.Meta = errorBody.Meta
	} else {
		apiErr.Message = strings.TrimSpace(string(responseBody))
	}
	if response.StatusCode == http.StatusTooManyRequests {
		apiErr.RetryAfter = parseRetryAfter(response.Header.Get("Retry-After"), time.Now())
		c.rateLimited.Add(ctx, 1, statusAttrs)
	}

	return nil, apiErr
}

// parseRetryAfter accepts delta-seconds or an HTTP date. Unparseable or
// past values yield zero.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		if seconds <= 0 {
			return 0
		}
		return time.Duration(seconds * float64(time.Second))
	}
	if at, err := http.ParseTime(value); err == nil {
		if delay := at.Sub(now); delay > 0 {
			return delay
		}
	}

	return 0
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("sleep with context: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
