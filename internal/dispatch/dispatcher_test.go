package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"guildsync/internal/gateway"
	"guildsync/internal/store"
	"guildsync/pkg/guildsync"
	"guildsync/pkg/wire"
)

func ptr[T any](value T) *T {
	return &value
}

type fakeFetcher struct {
	servers  map[string]wire.Server
	channels map[string]wire.ServerChannel
	members  map[string]wire.ServerMember
	err      error

	serverCalls  atomic.Int32
	channelCalls atomic.Int32
	memberCalls  atomic.Int32
	delay        time.Duration
}

func (f *fakeFetcher) FetchServer(_ context.Context, serverID string) (wire.Server, error) {
	f.serverCalls.Add(1)
	if f.err != nil {
		return wire.Server{}, f.err
	}
	server, ok := f.servers[serverID]
	if !ok {
		return wire.Server{}, fmt.Errorf("server %s not found", serverID)
	}

	return server, nil
}

func (f *fakeFetcher) FetchChannel(_ context.Context, channelID string) (wire.ServerChannel, error) {
	f.channelCalls.Add(1)
	time.Sleep(f.delay)
	if f.err != nil {
		return wire.ServerChannel{}, f.err
	}
	channel, ok := f.channels[channelID]
	if !ok {
		return wire.ServerChannel{}, fmt.Errorf("channel %s not found", channelID)
	}

	return channel, nil
}

func (f *fakeFetcher) FetchMember(_ context.Context, serverID, userID string) (wire.ServerMember, error) {
	f.memberCalls.Add(1)
	if f.err != nil {
		return wire.ServerMember{}, f.err
	}
	member, ok := f.members[serverID+"/"+userID]
	if !ok {
		return wire.ServerMember{}, fmt.Errorf("member %s not found", userID)
	}

	return member, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []*guildsync.Event
	err    error
}

func (s *recordingSink) Publish(_ context.Context, event *guildsync.Event) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)

	return nil
}

func (s *recordingSink) snapshot() []*guildsync.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*guildsync.Event(nil), s.events...)
}

func newTestDispatcher(t *testing.T, fetcher Fetcher, sink guildsync.EventSink) (*Dispatcher, *store.Store) {
	t.Helper()

	s := store.New(guildsync.DefaultCacheLimits())
	var counter atomic.Int64
	d, err := New(s, fetcher, sink,
		WithIDGenerator(func() string { return fmt.Sprintf("evt-%d", counter.Add(1)) }),
		WithClock(func() time.Time { return time.Unix(1000, 0).UTC() }),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return d, s
}

func frame(t *testing.T, name WireEvent, payload any) gateway.EventFrame {
	t.Helper()

	encoded, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	return gateway.EventFrame{Name: string(name), Payload: encoded, Sequence: "seq-" + string(name)}
}

func messagePayload(channelID, messageID, content string) wire.ChatMessageEvent {
	return wire.ChatMessageEvent{
		ServerID: "s1",
		Message: wire.ChatMessage{
			ID:        messageID,
			ChannelID: channelID,
			Content:   ptr(content),
			CreatedAt: time.Unix(10, 0).UTC(),
			CreatedBy: "u1",
		},
	}
}

func channelFetcher() *fakeFetcher {
	return &fakeFetcher{
		channels: map[string]wire.ServerChannel{
			"c1": {ID: "c1", ServerID: "s1", Type: "chat", Name: ptr("general")},
		},
		servers: map[string]wire.Server{
			"s1": {ID: "s1", OwnerID: "u1", Name: ptr("Guild")},
		},
		members: map[string]wire.ServerMember{
			"s1/u2": {User: wire.User{ID: "u2", Name: ptr("Ada")}, Nickname: ptr("old")},
		},
	}
}

func TestMissingParentIsFilledOnce(t *testing.T) {
	t.Parallel()

	fetcher := channelFetcher()
	sink := &recordingSink{}
	d, s := newTestDispatcher(t, fetcher, sink)

	if err := d.Dispatch(context.Background(), frame(t, ChatMessageCreated, messagePayload("c1", "m1", "hello"))); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if err := d.Dispatch(context.Background(), frame(t, ChatMessageCreated, messagePayload("c1", "m2", "again"))); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if got := fetcher.channelCalls.Load(); got != 1 {
		t.Fatalf("channel fetches = %d, want 1", got)
	}
	events := sink.snapshot()
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	first := events[0]
	if first.Kind != guildsync.EventKindMessageCreated || first.Channel == nil || first.Channel.Name != "general" {
		t.Fatalf("first event = %+v", first)
	}
	if first.ID != "evt-1" || first.Sequence != "seq-ChatMessageCreated" || first.ServerID != "s1" || first.ChannelID != "c1" {
		t.Fatalf("first event envelope = %+v", first)
	}
	if message, ok := s.Message("c1", "m1"); !ok || message.Content != "hello" {
		t.Fatalf("cached message = %+v, %v", message, ok)
	}
}

func TestConcurrentFillsShareOneFetch(t *testing.T) {
	t.Parallel()

	fetcher := channelFetcher()
	fetcher.delay = 20 * time.Millisecond
	sink := &recordingSink{}
	d, _ := newTestDispatcher(t, fetcher, sink)

	frames := make([]gateway.EventFrame, 4)
	for i := range frames {
		frames[i] = frame(t, ChatMessageCreated, messagePayload("c1", fmt.Sprintf("m%d", i), "x"))
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(frames))
	for _, f := range frames {
		wg.Add(1)
		go func(f gateway.EventFrame) {
			defer wg.Done()
			errs <- d.Dispatch(context.Background(), f)
		}(f)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
	}
	if got := fetcher.channelCalls.Load(); got != 1 {
		t.Fatalf("channel fetches = %d, want 1", got)
	}
	if got := len(sink.snapshot()); got != 4 {
		t.Fatalf("events = %d, want 4", got)
	}
}

func TestRepeatedUpdateIsIdempotent(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	d, s := newTestDispatcher(t, channelFetcher(), sink)
	update := frame(t, ChatMessageUpdated, messagePayload("c1", "m1", "edited"))

	for i := 0; i < 2; i++ {
		if err := d.Dispatch(context.Background(), update); err != nil {
			t.Fatalf("Dispatch() #%d error = %v", i, err)
		}
	}

	events := sink.snapshot()
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Message.Content != events[1].Message.Content {
		t.Fatalf("snapshots differ: %q vs %q", events[0].Message.Content, events[1].Message.Content)
	}
	channel, _ := s.Channels.Get("c1")
	if got := channel.Messages.Len(); got != 1 {
		t.Fatalf("Messages.Len() = %d, want 1", got)
	}
}

func TestUnresolvedParentDropsEvent(t *testing.T) {
	t.Parallel()

	fetchErr := errors.New("upstream unavailable")
	fetcher := &fakeFetcher{err: fetchErr}
	sink := &recordingSink{}
	d, s := newTestDispatcher(t, fetcher, sink)

	err := d.Dispatch(context.Background(), frame(t, ChatMessageCreated, messagePayload("c9", "m1", "hi")))
	if !errors.Is(err, guildsync.ErrUnresolved) || !errors.Is(err, fetchErr) {
		t.Fatalf("Dispatch() error = %v, want unresolved wrapping fetch failure", err)
	}
	resolutionErr, ok := guildsync.AsResolutionError(err)
	if !ok {
		t.Fatalf("AsResolutionError(%v) = false", err)
	}
	if resolutionErr.Event != string(ChatMessageCreated) || resolutionErr.Kind != guildsync.EntityKindChannel || resolutionErr.ID != "c9" {
		t.Fatalf("resolution error = %+v", resolutionErr)
	}
	if got := len(sink.snapshot()); got != 0 {
		t.Fatalf("events = %d, want 0", got)
	}
	if _, ok := s.Channel("c9"); ok {
		t.Fatal("unresolved channel was cached")
	}
}

func TestUnknownEventIsIgnored(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	d, _ := newTestDispatcher(t, channelFetcher(), sink)

	err := d.Dispatch(context.Background(), gateway.EventFrame{Name: "SomethingNew", Payload: json.RawMessage(`{}`)})
	if err != nil {
		t.Fatalf("Dispatch() error = %v, want nil", err)
	}
	if got := len(sink.snapshot()); got != 0 {
		t.Fatalf("events = %d, want 0", got)
	}
}

func TestEveryWireEventHasHandler(t *testing.T) {
	t.Parallel()

	for _, name := range WireEvents {
		name := name
		t.Run(string(name), func(t *testing.T) {
			t.Parallel()

			d, _ := newTestDispatcher(t, &fakeFetcher{err: errors.New("offline")}, &recordingSink{})
			_, err := d.apply(context.Background(), name, gateway.EventFrame{Name: string(name), Payload: json.RawMessage(`{}`)})
			if err != nil && strings.Contains(err.Error(), "unhandled wire event") {
				t.Fatalf("apply(%s) has no handler", name)
			}
			if parsed, ok := ParseWireEvent(string(name)); !ok || parsed != name {
				t.Fatalf("ParseWireEvent(%s) = %s, %v", name, parsed, ok)
			}
		})
	}
}

func TestDeleteOfUncachedEntityIsReconstructed(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	d, _ := newTestDispatcher(t, channelFetcher(), sink)
	deletedAt := time.Unix(500, 0).UTC()

	err := d.Dispatch(context.Background(), frame(t, ChatMessageDeleted, wire.ChatMessageDeletedEvent{
		ServerID: "s1",
		Message:  wire.DeletedChatMessage{ID: "m404", ChannelID: "c1", DeletedAt: deletedAt},
	}))
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	events := sink.snapshot()
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	message := events[0].Message
	if message == nil || message.ID != "m404" || !message.Deleted() || !message.DeletedAt.Equal(deletedAt) {
		t.Fatalf("reconstructed message = %+v", message)
	}
}

func TestDeleteCarriesCachedEntity(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	d, s := newTestDispatcher(t, channelFetcher(), sink)
	if err := d.Dispatch(context.Background(), frame(t, ChatMessageCreated, messagePayload("c1", "m1", "bye"))); err != nil {
		t.Fatalf("Dispatch(create) error = %v", err)
	}

	err := d.Dispatch(context.Background(), frame(t, ChatMessageDeleted, wire.ChatMessageDeletedEvent{
		ServerID: "s1",
		Message:  wire.DeletedChatMessage{ID: "m1", ChannelID: "c1", DeletedAt: time.Unix(600, 0).UTC()},
	}))
	if err != nil {
		t.Fatalf("Dispatch(delete) error = %v", err)
	}

	events := sink.snapshot()
	deleted := events[len(events)-1]
	if deleted.Kind != guildsync.EventKindMessageDeleted || deleted.Message.Content != "bye" {
		t.Fatalf("delete event = %+v", deleted.Message)
	}
	if _, ok := s.Message("c1", "m1"); ok {
		t.Fatal("deleted message still cached")
	}
}

func TestMemberUpdateFillsServerAndMember(t *testing.T) {
	t.Parallel()

	fetcher := channelFetcher()
	sink := &recordingSink{}
	d, s := newTestDispatcher(t, fetcher, sink)

	err := d.Dispatch(context.Background(), frame(t, ServerMemberUpdated, wire.ServerMemberUpdatedEvent{
		ServerID: "s1",
		UserInfo: wire.MemberUserInfo{ID: "u2", Nickname: ptr("new")},
	}))
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if fetcher.serverCalls.Load() != 1 || fetcher.memberCalls.Load() != 1 {
		t.Fatalf("fetches server=%d member=%d, want 1 each", fetcher.serverCalls.Load(), fetcher.memberCalls.Load())
	}
	member, ok := s.Member("s1", "u2")
	if !ok || member.Nickname != "new" {
		t.Fatalf("member = %+v, %v", member, ok)
	}
	event := sink.snapshot()[0]
	if event.Member.Nickname != "new" || event.User == nil || event.User.Name != "Ada" {
		t.Fatalf("event = %+v", event)
	}
}

func TestForumTopicStateEventsForceFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       WireEvent
		kind       guildsync.EventKind
		wantPinned bool
		wantLocked bool
	}{
		{name: ForumTopicPinned, kind: guildsync.EventKindForumTopicPinned, wantPinned: true},
		{name: ForumTopicLocked, kind: guildsync.EventKindForumTopicLocked, wantLocked: true},
		{name: ForumTopicUnpinned, kind: guildsync.EventKindForumTopicUnpinned},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(string(testCase.name), func(t *testing.T) {
			t.Parallel()

			sink := &recordingSink{}
			d, _ := newTestDispatcher(t, channelFetcher(), sink)
			err := d.Dispatch(context.Background(), frame(t, testCase.name, wire.ForumTopicEvent{
				ServerID:   "s1",
				ForumTopic: wire.ForumTopic{ID: 3, ChannelID: "c1", Title: ptr("topic")},
			}))
			if err != nil {
				t.Fatalf("Dispatch() error = %v", err)
			}

			event := sink.snapshot()[0]
			if event.Kind != testCase.kind {
				t.Fatalf("kind = %s, want %s", event.Kind, testCase.kind)
			}
			if event.ForumTopic.IsPinned != testCase.wantPinned || event.ForumTopic.IsLocked != testCase.wantLocked {
				t.Fatalf("topic = %+v", event.ForumTopic)
			}
		})
	}
}

func TestBotMembershipLifecycle(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	d, s := newTestDispatcher(t, channelFetcher(), sink)
	membership := wire.BotServerMembershipEvent{Server: wire.Server{ID: "s7", Name: ptr("New")}, CreatedBy: "u1"}

	if err := d.Dispatch(context.Background(), frame(t, BotServerMembershipCreated, membership)); err != nil {
		t.Fatalf("Dispatch(created) error = %v", err)
	}
	if _, _, err := s.UpsertChannel(wire.ServerChannel{ID: "c7", ServerID: "s7"}); err != nil {
		t.Fatalf("UpsertChannel() error = %v", err)
	}
	if err := d.Dispatch(context.Background(), frame(t, BotServerMembershipDeleted, membership)); err != nil {
		t.Fatalf("Dispatch(deleted) error = %v", err)
	}

	events := sink.snapshot()
	if len(events) != 2 || events[0].Kind != guildsync.EventKindServerJoined || events[1].Kind != guildsync.EventKindServerLeft {
		t.Fatalf("events = %+v", events)
	}
	if events[1].Server.Name != "New" {
		t.Fatalf("left server = %+v", events[1].Server)
	}
	if _, ok := s.Channel("c7"); ok {
		t.Fatal("channel survived server departure")
	}
}

func TestRolesUpdateCarriesEveryEntry(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	d, _ := newTestDispatcher(t, channelFetcher(), sink)

	err := d.Dispatch(context.Background(), frame(t, ServerRolesUpdated, wire.ServerRolesUpdatedEvent{
		ServerID:      "s1",
		MemberRoleIDs: []wire.MemberRoleIDs{{UserID: "u2", RoleIDs: []int{4}}},
	}))
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	event := sink.snapshot()[0]
	if len(event.Roles) != 1 || event.Roles[0].UserID != "u2" || event.Roles[0].RoleIDs[0] != 4 {
		t.Fatalf("roles = %+v", event.Roles)
	}
}

func TestPublishFailureIsReturned(t *testing.T) {
	t.Parallel()

	publishErr := errors.New("bus closed")
	d, _ := newTestDispatcher(t, channelFetcher(), &recordingSink{err: publishErr})

	err := d.Dispatch(context.Background(), frame(t, ChannelMessageReactionCreated, wire.ReactionEvent{
		ServerID: "s1",
		Reaction: wire.ChannelMessageReaction{ChannelID: "c1", MessageID: "m1", CreatedBy: "u1"},
	}))
	if !errors.Is(err, publishErr) {
		t.Fatalf("Dispatch() error = %v, want %v", err, publishErr)
	}
}

func TestMalformedPayloadFails(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	d, _ := newTestDispatcher(t, channelFetcher(), sink)

	err := d.Dispatch(context.Background(), gateway.EventFrame{Name: string(DocCreated), Payload: json.RawMessage(`{"doc":`)})
	if err == nil || !strings.Contains(err.Error(), "decode payload") {
		t.Fatalf("Dispatch() error = %v, want decode failure", err)
	}
}
