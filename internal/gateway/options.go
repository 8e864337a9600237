package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gotd/td/clock"
)

const (
	// DefaultURL is the production gateway endpoint.
	DefaultURL = "wss://www.guilded.gg/websocket/v1"
	// DefaultUserAgent identifies the SDK during the handshake.
	DefaultUserAgent = "guildsync/0.1"
	// DefaultHeartbeatInterval is used until a Ready frame supplies one.
	DefaultHeartbeatInterval = 22500 * time.Millisecond

	defaultReconnectInitial = time.Second
	defaultReconnectMax     = 30 * time.Second
	defaultWriteWait        = 10 * time.Second
	defaultCloseWait        = time.Second

	// LastMessageIDHeader carries the watermark during the handshake.
	LastMessageIDHeader = "guilded-last-message-id"
)

// Config configures a Session.
type Config struct {
	// URL is the websocket endpoint. Defaults to DefaultURL.
	URL string
	// Token is the bot bearer token.
	Token string
	// UserAgent overrides DefaultUserAgent.
	UserAgent string
	// Reconnect enables automatic reconnection. Nil means enabled.
	Reconnect *bool
	// MaxReconnectAttempts bounds consecutive reconnects. Zero is unlimited.
	MaxReconnectAttempts int
	// HeartbeatInterval is the initial ping cadence.
	HeartbeatInterval time.Duration
	// HeartbeatTimeout closes the transport when no pong arrives in time.
	// Zero means twice the current heartbeat interval.
	HeartbeatTimeout time.Duration
	// LastMessageID seeds the watermark, for example from a previous process.
	LastMessageID string
}

func (c Config) reconnectEnabled() bool {
	return c.Reconnect == nil || *c.Reconnect
}

// Option mutates session construction.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDialer replaces the websocket dialer.
func WithDialer(dialer Dialer) Option {
	return func(s *Session) {
		if dialer != nil {
			s.dialer = dialer
		}
	}
}

// WithClock replaces the clock driving heartbeats and reconnect waits.
func WithClock(c clock.Clock) Option {
	return func(s *Session) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithBackOff replaces the reconnect delay schedule.
func WithBackOff(b backoff.BackOff) Option {
	return func(s *Session) {
		if b != nil {
			s.backoff = b
		}
	}
}

// WithErrorHandler receives listener failures and transport errors.
func WithErrorHandler(handler func(ctx context.Context, scope string, err error)) Option {
	return func(s *Session) {
		if handler != nil {
			s.onError = handler
		}
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = defaultReconnectInitial
	b.MaxInterval = defaultReconnectMax
	b.MaxElapsedTime = 0
	b.Reset()

	return b
}
