package kernel

import (
	"context"
	"log/slog"
	"time"

	"guildsync/pkg/guildsync"
)

const (
	defaultSubscriptionBuffer = 256
	defaultSubscriptionWorker = 1
	defaultHandlerTimeout     = 30 * time.Second
)

// config stores resolved bus settings after option application.
type config struct {
	buffer         int
	workers        int
	handlerTimeout time.Duration
	backpressure   guildsync.BackpressurePolicy
	logger         *slog.Logger
	onAsyncError   func(context.Context, string, error)
}

// Option mutates event bus construction.
type Option func(*config)

// defaultConfig keeps arrival order per subscription and never drops.
func defaultConfig() config {
	logger := slog.Default()

	return config{
		buffer:         defaultSubscriptionBuffer,
		workers:        defaultSubscriptionWorker,
		handlerTimeout: defaultHandlerTimeout,
		backpressure:   guildsync.BackpressureBlock,
		logger:         logger,
		onAsyncError:   logAsyncError(logger),
	}
}

func logAsyncError(logger *slog.Logger) func(context.Context, string, error) {
	return func(ctx context.Context, scope string, err error) {
		logger.ErrorContext(ctx, "guildsync subscriber error", "scope", scope, "error", err)
	}
}

// WithDefaultBuffer configures the default subscriber queue depth.
func WithDefaultBuffer(size int) Option {
	return func(cfg *config) {
		if size > 0 {
			cfg.buffer = size
		}
	}
}

// WithDefaultWorkers configures the default subscriber worker count.
func WithDefaultWorkers(workers int) Option {
	return func(cfg *config) {
		if workers > 0 {
			cfg.workers = workers
		}
	}
}

// WithDefaultHandlerTimeout configures the default per-event handler timeout.
func WithDefaultHandlerTimeout(timeout time.Duration) Option {
	return func(cfg *config) {
		if timeout > 0 {
			cfg.handlerTimeout = timeout
		}
	}
}

// WithDefaultBackpressure configures the policy for subscriptions that omit one.
func WithDefaultBackpressure(policy guildsync.BackpressurePolicy) Option {
	return func(cfg *config) {
		if policy != "" {
			cfg.backpressure = policy
		}
	}
}

// WithLogger configures the logger used by the default async error sink.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger == nil {
			return
		}

		cfg.logger = logger
		cfg.onAsyncError = logAsyncError(logger)
	}
}

// WithAsyncErrorHandler configures handler failure and drop reporting.
func WithAsyncErrorHandler(handler func(context.Context, string, error)) Option {
	return func(cfg *config) {
		if handler != nil {
			cfg.onAsyncError = handler
		}
	}
}
