// Package client composes the REST request client, the gateway session, the
// entity store, the event dispatcher and the subscriber bus into one handle.
//
// A Client is built idle. Connect opens the gateway; every frame it delivers
// updates the cache before the matching event reaches subscribers. REST
// mutations made through the resource services write their results through
// the same cache, so the gateway echo of a mutation is an idempotent update.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"guildsync/internal/dispatch"
	"guildsync/internal/gateway"
	"guildsync/internal/kernel"
	"guildsync/internal/rest"
	"guildsync/internal/router"
	"guildsync/internal/store"
	"guildsync/pkg/collection"
	"guildsync/pkg/guildsync"
	"guildsync/pkg/wire"
)

// ErrMissingToken indicates a client built without a bot token.
var ErrMissingToken = errors.New("client: missing token")

// State is the gateway session state.
type State = gateway.State

const (
	StateIdle         = gateway.StateIdle
	StateConnecting   = gateway.StateConnecting
	StateReady        = gateway.StateReady
	StateResuming     = gateway.StateResuming
	StateDisconnected = gateway.StateDisconnected
)

// Client is safe for concurrent use.
type Client struct {
	logger     *slog.Logger
	store      *store.Store
	rest       *rest.Client
	router     *router.Router
	bus        *kernel.EventBus
	dispatcher *dispatch.Dispatcher
	session    *gateway.Session
	closed     atomic.Bool

	Servers        *ServerService
	Channels       *ChannelService
	Messages       *MessageService
	Reactions      *ReactionService
	Members        *MemberService
	Bans           *BanService
	Webhooks       *WebhookService
	Docs           *DocService
	CalendarEvents *CalendarEventService
	ForumTopics    *ForumTopicService
	ListItems      *ListItemService
}

// New builds an idle client authenticated with token.
func New(token string, opts ...Option) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.onAsyncError == nil {
		logger := cfg.logger
		cfg.onAsyncError = func(ctx context.Context, scope string, err error) {
			logger.ErrorContext(ctx, "guildsync async error", "scope", scope, "error", err)
		}
	}

	var restOpts []rest.Option
	var dispatchOpts []dispatch.Option
	if cfg.tracerProvider != nil {
		restOpts = append(restOpts, rest.WithTracerProvider(cfg.tracerProvider))
	}
	if cfg.meterProvider != nil {
		restOpts = append(restOpts, rest.WithMeterProvider(cfg.meterProvider))
		dispatchOpts = append(dispatchOpts, dispatch.WithMeterProvider(cfg.meterProvider))
	}

	restClient, err := rest.New(rest.Config{
		BaseURL:       cfg.restBaseURL,
		Token:         token,
		UserAgent:     cfg.userAgent,
		MaxRetries:    cfg.maxRetries,
		RetryInterval: cfg.retryInterval,
		HTTPClient:    cfg.httpClient,
		Logger:        cfg.logger.With("component", "rest"),
	}, restOpts...)
	if err != nil {
		return nil, fmt.Errorf("new client: %w", err)
	}

	c := &Client{
		logger: cfg.logger,
		store:  store.New(cfg.limits),
		rest:   restClient,
		router: router.New(restClient),
		bus: kernel.NewEventBus(
			kernel.WithLogger(cfg.logger.With("component", "bus")),
			kernel.WithAsyncErrorHandler(cfg.onAsyncError),
			kernel.WithDefaultBuffer(cfg.subscriptionBuffer),
			kernel.WithDefaultWorkers(cfg.subscriptionWorkers),
		),
	}

	dispatchOpts = append(dispatchOpts, dispatch.WithLogger(cfg.logger.With("component", "dispatch")))
	c.dispatcher, err = dispatch.New(c.store, routerFetcher{router: c.router}, c.bus, dispatchOpts...)
	if err != nil {
		return nil, fmt.Errorf("new client: %w", err)
	}

	sessionOpts := []gateway.Option{
		gateway.WithLogger(cfg.logger.With("component", "gateway")),
		gateway.WithErrorHandler(cfg.onAsyncError),
	}
	if cfg.dialer != nil {
		sessionOpts = append(sessionOpts, gateway.WithDialer(cfg.dialer))
	}
	if cfg.backoff != nil {
		sessionOpts = append(sessionOpts, gateway.WithBackOff(cfg.backoff))
	}
	c.session, err = gateway.New(gateway.Config{
		URL:                  cfg.gatewayURL,
		Token:                token,
		UserAgent:            cfg.userAgent,
		Reconnect:            cfg.reconnect,
		MaxReconnectAttempts: cfg.maxReconnectAttempts,
		HeartbeatTimeout:     cfg.heartbeatTimeout,
		LastMessageID:        cfg.lastMessageID,
	}, &sessionListener{client: c, newID: uuid.NewString}, sessionOpts...)
	if err != nil {
		return nil, fmt.Errorf("new client: %w", err)
	}

	c.Servers = &ServerService{c}
	c.Channels = &ChannelService{c}
	c.Messages = &MessageService{c}
	c.Reactions = &ReactionService{c}
	c.Members = &MemberService{c}
	c.Bans = &BanService{c}
	c.Webhooks = &WebhookService{c}
	c.Docs = &DocService{c}
	c.CalendarEvents = &CalendarEventService{c}
	c.ForumTopics = &ForumTopicService{c}
	c.ListItems = &ListItemService{c}

	return c, nil
}

// Connect opens the gateway session and returns without waiting for Ready.
// Subscribe to guildsync.EventKindClientReady to observe the handshake.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return guildsync.ErrClientClosed
	}
	if err := c.session.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	return nil
}

// Disconnect closes the gateway session. Caches and the watermark are kept,
// so a later Connect replays what was missed.
func (c *Client) Disconnect(ctx context.Context) error {
	if err := c.session.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}

	return nil
}

// Close disconnects and stops every subscription after its queue drains.
func (c *Client) Close(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	var closeErrs []error
	if err := c.session.Disconnect(ctx); err != nil && !errors.Is(err, guildsync.ErrNotConnected) {
		closeErrs = append(closeErrs, fmt.Errorf("disconnect: %w", err))
	}
	if err := c.bus.Close(ctx); err != nil {
		closeErrs = append(closeErrs, err)
	}
	if len(closeErrs) > 0 {
		return fmt.Errorf("close client: %w", errors.Join(closeErrs...))
	}

	return nil
}

// Subscribe registers handler for events matching spec.Filter. Handlers see
// events of one subscription in arrival order unless spec.Workers exceeds one.
func (c *Client) Subscribe(
	ctx context.Context,
	spec guildsync.SubscriptionSpec,
	handler guildsync.EventHandler,
) (guildsync.Subscription, error) {
	if c.closed.Load() {
		return nil, guildsync.ErrClientClosed
	}

	return c.bus.Subscribe(ctx, spec, handler)
}

// On subscribes handler to a single event kind with default queue settings.
func (c *Client) On(kind guildsync.EventKind, handler guildsync.EventHandler) (guildsync.Subscription, error) {
	return c.Subscribe(context.Background(), guildsync.SubscriptionSpec{
		Name:   string(kind),
		Filter: guildsync.InterestSet{Kinds: []guildsync.EventKind{kind}},
	}, handler)
}

// ServerCache returns the live server cache. Values read from it may be
// patched concurrently unless read inside ViewCache; Server returns a
// detached snapshot.
func (c *Client) ServerCache() *collection.Collection[string, *guildsync.Server] {
	return c.store.Servers
}

// ChannelCache returns the live channel cache.
func (c *Client) ChannelCache() *collection.Collection[string, *guildsync.Channel] {
	return c.store.Channels
}

// UserCache returns the live user cache.
func (c *Client) UserCache() *collection.Collection[string, *guildsync.User] {
	return c.store.Users
}

// ViewCache runs fn with cache writes held off, so live entities from
// ServerCache, ChannelCache and UserCache can be read without racing the
// dispatcher. fn must not call other Client methods and should return
// quickly; gateway delivery waits for it.
func (c *Client) ViewCache(fn func()) {
	c.store.View(fn)
}

// Server returns a snapshot of a cached server.
func (c *Client) Server(id string) (*guildsync.Server, bool) { return c.store.Server(id) }

// Channel returns a snapshot of a cached channel.
func (c *Client) Channel(id string) (*guildsync.Channel, bool) { return c.store.Channel(id) }

// User returns a snapshot of a cached user.
func (c *Client) User(id string) (*guildsync.User, bool) { return c.store.User(id) }

// Member returns a snapshot of a cached membership.
func (c *Client) Member(serverID, userID string) (*guildsync.Member, bool) {
	return c.store.Member(serverID, userID)
}

// CacheStats reports the root cache sizes.
func (c *Client) CacheStats() store.Stats {
	return c.store.Stats()
}

// State reports the gateway session state.
func (c *Client) State() State {
	return c.session.State()
}

// LastMessageID returns the replay watermark. Persist it to resume a later
// process with WithLastMessageID.
func (c *Client) LastMessageID() string {
	return c.session.LastMessageID()
}

// Identity returns the bot user announced by the last Ready frame.
func (c *Client) Identity() (wire.BotUser, bool) {
	return c.session.Identity()
}

// Session exposes the gateway session for diagnostics such as latency.
func (c *Client) Session() *gateway.Session {
	return c.session
}
