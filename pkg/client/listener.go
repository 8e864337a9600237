package client

import (
	"context"
	"fmt"

	"guildsync/internal/gateway"
	"guildsync/internal/router"
	"guildsync/pkg/guildsync"
	"guildsync/pkg/wire"
)

// lifecycleKinds maps session signals onto published event kinds.
// SignalTerminated has no event; it is logged.
var lifecycleKinds = map[gateway.SignalKind]guildsync.EventKind{
	gateway.SignalReady:          guildsync.EventKindClientReady,
	gateway.SignalDisconnected:   guildsync.EventKindGatewayDisconnected,
	gateway.SignalReconnecting:   guildsync.EventKindGatewayReconnecting,
	gateway.SignalResumeRequired: guildsync.EventKindGatewayResumeRequired,
}

// sessionListener feeds the ordered gateway stream into the dispatcher and
// the bus.
type sessionListener struct {
	client *Client
	newID  func() string
}

// OnEvent applies one frame. Resolution failures are returned so the
// session reports them through the async error hook.
func (l *sessionListener) OnEvent(ctx context.Context, frame gateway.EventFrame) error {
	return l.client.dispatcher.Dispatch(ctx, frame)
}

// OnSignal publishes a lifecycle event for every signal except terminated.
func (l *sessionListener) OnSignal(ctx context.Context, signal gateway.Signal) {
	logger := l.client.logger
	kind, ok := lifecycleKinds[signal.Kind]
	if !ok {
		logger.InfoContext(ctx, "gateway session terminated",
			"state", signal.State,
			"attempt", signal.Attempt,
			"error", signal.Err,
		)
		return
	}

	event := &guildsync.Event{
		ID:         l.newID(),
		Kind:       kind,
		OccurredAt: signal.At,
		Sequence:   signal.LastMessageID,
		Session: &guildsync.SessionChange{
			State:         string(signal.State),
			Attempt:       signal.Attempt,
			LastMessageID: signal.LastMessageID,
			Identity:      signal.Identity,
			Err:           signal.Err,
		},
	}
	if err := l.client.bus.Publish(ctx, event); err != nil {
		logger.WarnContext(ctx, "publish lifecycle event failed", "event", kind, "error", err)
	}
}

// routerFetcher resolves cold-fill requests over REST.
type routerFetcher struct {
	router *router.Router
}

func (f routerFetcher) FetchServer(ctx context.Context, serverID string) (wire.Server, error) {
	server, err := f.router.Servers.Fetch(ctx, serverID)
	if err != nil {
		return wire.Server{}, fmt.Errorf("fetch server %s: %w", serverID, err)
	}

	return server, nil
}

func (f routerFetcher) FetchChannel(ctx context.Context, channelID string) (wire.ServerChannel, error) {
	channel, err := f.router.Channels.Fetch(ctx, channelID)
	if err != nil {
		return wire.ServerChannel{}, fmt.Errorf("fetch channel %s: %w", channelID, err)
	}

	return channel, nil
}

func (f routerFetcher) FetchMember(ctx context.Context, serverID, userID string) (wire.ServerMember, error) {
	member, err := f.router.Members.Fetch(ctx, serverID, userID)
	if err != nil {
		return wire.ServerMember{}, fmt.Errorf("fetch member %s/%s: %w", serverID, userID, err)
	}

	return member, nil
}
