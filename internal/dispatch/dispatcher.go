// Package dispatch turns gateway event frames into cache mutations and
// normalized events, filling missing parents on the way.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"guildsync/internal/gateway"
	"guildsync/internal/store"
	"guildsync/pkg/guildsync"
	"guildsync/pkg/wire"
)

const instrumentationName = "guildsync/internal/dispatch"

// Fetcher loads parent entities that are missing from the store.
type Fetcher interface {
	FetchServer(ctx context.Context, serverID string) (wire.Server, error)
	FetchChannel(ctx context.Context, channelID string) (wire.ServerChannel, error)
	FetchMember(ctx context.Context, serverID, userID string) (wire.ServerMember, error)
}

// Option mutates dispatcher construction.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithClock replaces the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithIDGenerator replaces the event id source.
func WithIDGenerator(newID func() string) Option {
	return func(d *Dispatcher) {
		if newID != nil {
			d.newID = newID
		}
	}
}

// WithMeterProvider overrides the global OpenTelemetry meter provider.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(d *Dispatcher) {
		if provider != nil {
			d.meter = provider.Meter(instrumentationName)
		}
	}
}

// Dispatcher applies frames to a store and publishes the resulting events.
// It is safe for concurrent use; fills for the same entity share one fetch.
type Dispatcher struct {
	store   *store.Store
	fetcher Fetcher
	sink    guildsync.EventSink
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string

	fills singleflight.Group

	meter     metric.Meter
	published metric.Int64Counter
	dropped   metric.Int64Counter
	fetches   metric.Int64Counter
}

// New builds a dispatcher over s that resolves parents through fetcher and
// publishes into sink.
func New(s *store.Store, fetcher Fetcher, sink guildsync.EventSink, opts ...Option) (*Dispatcher, error) {
	if s == nil {
		return nil, fmt.Errorf("dispatch: nil store")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("dispatch: nil fetcher")
	}
	if sink == nil {
		return nil, fmt.Errorf("dispatch: nil event sink")
	}

	d := &Dispatcher{
		store:   s,
		fetcher: fetcher,
		sink:    sink,
		logger:  slog.Default(),
		now:     time.Now,
		newID:   uuid.NewString,
		meter:   otel.GetMeterProvider().Meter(instrumentationName),
	}
	for _, opt := range opts {
		opt(d)
	}

	var err error
	if d.published, err = d.meter.Int64Counter("guildsync.dispatch.published",
		metric.WithDescription("Normalized events published to subscribers.")); err != nil {
		return nil, fmt.Errorf("dispatch: create published counter: %w", err)
	}
	if d.dropped, err = d.meter.Int64Counter("guildsync.dispatch.dropped",
		metric.WithDescription("Frames dropped because a parent entity could not be resolved.")); err != nil {
		return nil, fmt.Errorf("dispatch: create dropped counter: %w", err)
	}
	if d.fetches, err = d.meter.Int64Counter("guildsync.dispatch.fill_fetches",
		metric.WithDescription("Fill fetches issued for entities missing from the cache.")); err != nil {
		return nil, fmt.Errorf("dispatch: create fill counter: %w", err)
	}

	return d, nil
}

// Dispatch applies one frame. Unknown event names are ignored. A frame whose
// parent cannot be resolved is dropped and the *guildsync.ResolutionError is
// returned.
func (d *Dispatcher) Dispatch(ctx context.Context, frame gateway.EventFrame) error {
	name, ok := ParseWireEvent(frame.Name)
	if !ok {
		d.logger.DebugContext(ctx, "dispatch ignored unknown event", "event", frame.Name)
		return nil
	}

	event, err := d.apply(ctx, name, frame)
	if err != nil {
		if resolutionErr, ok := guildsync.AsResolutionError(err); ok {
			if resolutionErr.Event == "" {
				resolutionErr.Event = frame.Name
			}
			d.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("event", frame.Name)))
			d.logger.WarnContext(ctx, "dispatch dropped unresolved event",
				"event", frame.Name,
				"kind", resolutionErr.Kind,
				"id", resolutionErr.ID,
				"error", resolutionErr.Err,
			)
		}
		return fmt.Errorf("dispatch %s: %w", frame.Name, err)
	}
	if err := event.Validate(); err != nil {
		return fmt.Errorf("dispatch %s: %w", frame.Name, err)
	}
	if err := d.sink.Publish(ctx, event); err != nil {
		return fmt.Errorf("dispatch %s: publish: %w", frame.Name, err)
	}
	d.published.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(event.Kind))))

	return nil
}

// OnEvent adapts the dispatcher to a gateway listener's event callback.
func (d *Dispatcher) OnEvent(ctx context.Context, frame gateway.EventFrame) error {
	return d.Dispatch(ctx, frame)
}

func (d *Dispatcher) event(kind guildsync.EventKind, frame gateway.EventFrame, serverID, channelID string) *guildsync.Event {
	return &guildsync.Event{
		ID:         d.newID(),
		Kind:       kind,
		OccurredAt: d.now(),
		Sequence:   frame.Sequence,
		ServerID:   serverID,
		ChannelID:  channelID,
	}
}

func decode[T any](frame gateway.EventFrame) (T, error) {
	var payload T
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		return payload, fmt.Errorf("decode payload: %w", err)
	}

	return payload, nil
}

// resolve returns a cached entity or fills it once per key through fetch.
func resolve[T any](
	ctx context.Context,
	d *Dispatcher,
	kind guildsync.EntityKind,
	id string,
	key string,
	cached func() (T, bool),
	fetch func(context.Context) (T, error),
) (T, error) {
	var zero T
	if id == "" {
		return zero, &guildsync.ResolutionError{Kind: kind}
	}
	if value, ok := cached(); ok {
		return value, nil
	}

	value, err, _ := d.fills.Do(key, func() (any, error) {
		if value, ok := cached(); ok {
			return value, nil
		}
		d.fetches.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(kind))))
		d.logger.DebugContext(ctx, "dispatch filling missing entity", "kind", kind, "id", id)

		return fetch(ctx)
	})
	if err != nil {
		return zero, &guildsync.ResolutionError{Kind: kind, ID: id, Err: err}
	}

	return value.(T), nil
}

func (d *Dispatcher) resolveServer(ctx context.Context, serverID string) (*guildsync.Server, error) {
	return resolve(ctx, d, guildsync.EntityKindServer, serverID, "server:"+serverID,
		func() (*guildsync.Server, bool) { return d.store.Server(serverID) },
		func(ctx context.Context) (*guildsync.Server, error) {
			payload, err := d.fetcher.FetchServer(ctx, serverID)
			if err != nil {
				return nil, err
			}
			server, _, err := d.store.UpsertServer(payload)
			return server, err
		},
	)
}

func (d *Dispatcher) resolveChannel(ctx context.Context, channelID string) (*guildsync.Channel, error) {
	return resolve(ctx, d, guildsync.EntityKindChannel, channelID, "channel:"+channelID,
		func() (*guildsync.Channel, bool) { return d.store.Channel(channelID) },
		func(ctx context.Context) (*guildsync.Channel, error) {
			payload, err := d.fetcher.FetchChannel(ctx, channelID)
			if err != nil {
				return nil, err
			}
			channel, _, err := d.store.UpsertChannel(payload)
			return channel, err
		},
	)
}

// resolveMember requires the server to resolve first.
func (d *Dispatcher) resolveMember(ctx context.Context, serverID, userID string) (*guildsync.Member, error) {
	if _, err := d.resolveServer(ctx, serverID); err != nil {
		return nil, err
	}

	return resolve(ctx, d, guildsync.EntityKindMember, userID, "member:"+serverID+"/"+userID,
		func() (*guildsync.Member, bool) { return d.store.Member(serverID, userID) },
		func(ctx context.Context) (*guildsync.Member, error) {
			payload, err := d.fetcher.FetchMember(ctx, serverID, userID)
			if err != nil {
				return nil, err
			}
			member, _, err := d.store.UpsertMember(serverID, payload)
			return member, err
		},
	)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}

	return ""
}
