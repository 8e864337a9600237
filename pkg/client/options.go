package client

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"guildsync/internal/gateway"
	"guildsync/pkg/guildsync"
)

// config stores resolved client settings after option application.
type config struct {
	logger *slog.Logger

	restBaseURL   string
	userAgent     string
	maxRetries    int
	retryInterval time.Duration
	httpClient    *http.Client

	gatewayURL           string
	reconnect            *bool
	maxReconnectAttempts int
	heartbeatTimeout     time.Duration
	lastMessageID        string
	dialer               gateway.Dialer
	backoff              backoff.BackOff

	limits              guildsync.CacheLimits
	subscriptionBuffer  int
	subscriptionWorkers int
	onAsyncError        func(ctx context.Context, scope string, err error)

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

// Option mutates client construction.
type Option func(*config)

func defaultConfig() config {
	return config{
		logger: slog.Default(),
		limits: guildsync.DefaultCacheLimits(),
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithRESTBaseURL overrides the API root.
func WithRESTBaseURL(baseURL string) Option {
	return func(cfg *config) {
		cfg.restBaseURL = baseURL
	}
}

// WithGatewayURL overrides the websocket endpoint.
func WithGatewayURL(url string) Option {
	return func(cfg *config) {
		cfg.gatewayURL = url
	}
}

// WithUserAgent overrides the User-Agent sent on REST calls and the handshake.
func WithUserAgent(userAgent string) Option {
	return func(cfg *config) {
		cfg.userAgent = userAgent
	}
}

// WithRetry bounds rate-limit retries per REST call. A negative budget
// disables retry; a non-positive interval keeps the default.
func WithRetry(maxRetries int, interval time.Duration) Option {
	return func(cfg *config) {
		cfg.maxRetries = maxRetries
		cfg.retryInterval = interval
	}
}

// WithHTTPClient replaces the REST transport.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(cfg *config) {
		cfg.httpClient = httpClient
	}
}

// WithReconnect configures automatic reconnection. Zero attempts is unlimited.
func WithReconnect(enabled bool, maxAttempts int) Option {
	return func(cfg *config) {
		cfg.reconnect = &enabled
		cfg.maxReconnectAttempts = maxAttempts
	}
}

// WithReconnectBackOff replaces the delay schedule between reconnects.
func WithReconnectBackOff(b backoff.BackOff) Option {
	return func(cfg *config) {
		cfg.backoff = b
	}
}

// WithHeartbeatTimeout closes a transport whose pong is late by timeout.
func WithHeartbeatTimeout(timeout time.Duration) Option {
	return func(cfg *config) {
		cfg.heartbeatTimeout = timeout
	}
}

// WithLastMessageID seeds the replay watermark, for example one persisted by
// a previous process.
func WithLastMessageID(id string) Option {
	return func(cfg *config) {
		cfg.lastMessageID = id
	}
}

// WithWebsocketDialer replaces the gorilla dialer used for the handshake.
func WithWebsocketDialer(dialer *websocket.Dialer) Option {
	return func(cfg *config) {
		if dialer != nil {
			cfg.dialer = gateway.WebsocketDialer{Dialer: dialer}
		}
	}
}

// WithCacheLimits bounds each entity cache. Zero fields are unlimited.
func WithCacheLimits(limits guildsync.CacheLimits) Option {
	return func(cfg *config) {
		cfg.limits = limits
	}
}

// WithSubscriptionDefaults configures the queue depth and worker count used by
// subscriptions that leave them unset.
func WithSubscriptionDefaults(buffer, workers int) Option {
	return func(cfg *config) {
		cfg.subscriptionBuffer = buffer
		cfg.subscriptionWorkers = workers
	}
}

// WithAsyncErrorHandler receives subscriber failures, backpressure drops,
// unresolved frames and transport errors.
func WithAsyncErrorHandler(handler func(ctx context.Context, scope string, err error)) Option {
	return func(cfg *config) {
		cfg.onAsyncError = handler
	}
}

// WithMeterProvider overrides the global OpenTelemetry meter provider.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(cfg *config) {
		cfg.meterProvider = provider
	}
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(cfg *config) {
		cfg.tracerProvider = provider
	}
}
