// Package store holds the root entity caches and the materialize, patch and
// remove rules shared by the gateway dispatcher and the REST mutation path.
package store

import (
	"sync"

	"guildsync/pkg/collection"
	"guildsync/pkg/guildsync"
	"guildsync/pkg/wire"
)

// snapshotter copies a cached value.
type snapshotter[V any] interface {
	Snapshot() V
}

// entity is a cached value patched in place from its wire shape.
type entity[V, P any] interface {
	snapshotter[V]
	Patch(payload P)
}

// Store owns every cache. Writes are serialized; each write returns a
// snapshot so callers never hold a reference that a later patch mutates.
//
// Values read directly from the exported collections are live and may be
// patched concurrently; read them inside View. The getter methods return
// snapshots.
type Store struct {
	limits guildsync.CacheLimits

	mu sync.RWMutex

	Servers  *collection.Collection[string, *guildsync.Server]
	Channels *collection.Collection[string, *guildsync.Channel]
	Users    *collection.Collection[string, *guildsync.User]
}

// New creates empty root caches bounded by limits.
func New(limits guildsync.CacheLimits) *Store {
	return &Store{
		limits:   limits,
		Servers:  collection.New[string, *guildsync.Server](collection.WithMaxSize(limits.Servers)),
		Channels: collection.New[string, *guildsync.Channel](collection.WithMaxSize(limits.Channels)),
		Users:    collection.New[string, *guildsync.User](collection.WithMaxSize(limits.Users)),
	}
}

// Limits returns the configured cache limits.
func (s *Store) Limits() guildsync.CacheLimits {
	return s.limits
}

// View runs fn while holding off every write, so live values read from the
// exported collections stay stable for its duration. fn must not call other
// Store methods.
func (s *Store) View(fn func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fn()
}

// upsert patches the cached value for key, or materializes one with create.
// It reports whether the value was newly created.
func upsert[K comparable, P any, V entity[V, P]](
	cache *collection.Collection[K, V],
	key K,
	payload P,
	create func(P) V,
) (V, bool, error) {
	if current, ok := cache.Get(key); ok {
		current.Patch(payload)
		return current.Snapshot(), false, nil
	}

	created := create(payload)
	if err := cache.Set(key, created); err != nil {
		var zero V
		return zero, false, err
	}

	return created.Snapshot(), true, nil
}

// remove deletes key and returns a snapshot of the removed value.
func remove[K comparable, V snapshotter[V]](cache *collection.Collection[K, V], key K) (V, bool) {
	current, ok := cache.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	cache.Delete(key)

	return current.Snapshot(), true
}

func unresolved(kind guildsync.EntityKind, id string) error {
	return &guildsync.ResolutionError{Kind: kind, ID: id}
}

// Server returns a snapshot of a cached server.
func (s *Store) Server(id string) (*guildsync.Server, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	server, ok := s.Servers.Get(id)
	if !ok {
		return nil, false
	}

	return server.Snapshot(), true
}

// Channel returns a snapshot of a cached channel.
func (s *Store) Channel(id string) (*guildsync.Channel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	channel, ok := s.Channels.Get(id)
	if !ok {
		return nil, false
	}

	return channel.Snapshot(), true
}

// User returns a snapshot of a cached user.
func (s *Store) User(id string) (*guildsync.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.Users.Get(id)
	if !ok {
		return nil, false
	}

	return user.Snapshot(), true
}

// Member returns a snapshot of a cached membership.
func (s *Store) Member(serverID, userID string) (*guildsync.Member, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	server, ok := s.Servers.Get(serverID)
	if !ok {
		return nil, false
	}
	member, ok := server.Members.Get(userID)
	if !ok {
		return nil, false
	}

	return member.Snapshot(), true
}

// Message returns a snapshot of a cached message.
func (s *Store) Message(channelID, messageID string) (*guildsync.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	channel, ok := s.Channels.Get(channelID)
	if !ok {
		return nil, false
	}
	message, ok := channel.Messages.Get(messageID)
	if !ok {
		return nil, false
	}

	return message.Snapshot(), true
}

// UpsertServer materializes or patches a server.
func (s *Store) UpsertServer(payload wire.Server) (*guildsync.Server, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return upsert(s.Servers, payload.ID, payload, func(p wire.Server) *guildsync.Server {
		return guildsync.NewServer(p, s.limits)
	})
}

// RemoveServer deletes a server together with its cached channels.
func (s *Store) RemoveServer(id string) (*guildsync.Server, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, ok := remove(s.Servers, id)
	if !ok {
		return nil, false
	}
	_, _ = s.Channels.Sweep(func(channel *guildsync.Channel, _ string, _ *collection.Collection[string, *guildsync.Channel]) bool {
		return channel.ServerID == id
	})

	return removed, true
}

// UpsertChannel materializes or patches a channel.
func (s *Store) UpsertChannel(payload wire.ServerChannel) (*guildsync.Channel, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return upsert(s.Channels, payload.ID, payload, func(p wire.ServerChannel) *guildsync.Channel {
		return guildsync.NewChannel(p, s.limits)
	})
}

// RemoveChannel deletes a channel and its content caches.
func (s *Store) RemoveChannel(id string) (*guildsync.Channel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return remove(s.Channels, id)
}

// UpsertUser materializes or patches a user.
func (s *Store) UpsertUser(payload wire.User) (*guildsync.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, _, err := upsert(s.Users, payload.ID, payload, guildsync.NewUser)

	return user, err
}

func (s *Store) serverLocked(id string) (*guildsync.Server, error) {
	server, ok := s.Servers.Get(id)
	if !ok {
		return nil, unresolved(guildsync.EntityKindServer, id)
	}

	return server, nil
}

func (s *Store) channelLocked(id string) (*guildsync.Channel, error) {
	channel, ok := s.Channels.Get(id)
	if !ok {
		return nil, unresolved(guildsync.EntityKindChannel, id)
	}

	return channel, nil
}

// UpsertMember materializes or patches a membership and its user.
// The server must be cached.
func (s *Store) UpsertMember(serverID string, payload wire.ServerMember) (*guildsync.Member, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	server, err := s.serverLocked(serverID)
	if err != nil {
		return nil, false, err
	}
	if _, _, err := upsert(s.Users, payload.User.ID, payload.User, guildsync.NewUser); err != nil {
		return nil, false, err
	}

	return upsert(server.Members, payload.User.ID, payload, func(p wire.ServerMember) *guildsync.Member {
		return guildsync.NewMember(serverID, p)
	})
}

// SetMemberNickname replaces a cached member's nickname. A nil nickname
// clears it.
func (s *Store) SetMemberNickname(serverID, userID string, nickname *string) (*guildsync.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	server, err := s.serverLocked(serverID)
	if err != nil {
		return nil, err
	}
	member, ok := server.Members.Get(userID)
	if !ok {
		return nil, unresolved(guildsync.EntityKindMember, userID)
	}
	member.SetNickname(nickname)

	return member.Snapshot(), nil
}

// SetMemberRoles replaces the role sets of cached members. Members that are
// not cached are skipped; the returned updates cover every input entry.
func (s *Store) SetMemberRoles(serverID string, updates []wire.MemberRoleIDs) []guildsync.RoleUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]guildsync.RoleUpdate, 0, len(updates))
	server, hasServer := s.Servers.Get(serverID)
	for _, update := range updates {
		roleIDs := append([]int(nil), update.RoleIDs...)
		result = append(result, guildsync.RoleUpdate{UserID: update.UserID, RoleIDs: roleIDs})
		if !hasServer {
			continue
		}
		if member, ok := server.Members.Get(update.UserID); ok {
			member.SetRoles(roleIDs)
		}
	}

	return result
}

// RemoveMember deletes a membership.
func (s *Store) RemoveMember(serverID, userID string) (*guildsync.Member, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	server, ok := s.Servers.Get(serverID)
	if !ok {
		return nil, false
	}

	return remove(server.Members, userID)
}

// UpsertBan materializes or patches a ban and its user. The server must be cached.
func (s *Store) UpsertBan(serverID string, payload wire.ServerMemberBan) (*guildsync.Ban, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	server, err := s.serverLocked(serverID)
	if err != nil {
		return nil, err
	}
	if _, _, err := upsert(s.Users, payload.User.ID, payload.User, guildsync.NewUser); err != nil {
		return nil, err
	}
	ban, _, err := upsert(server.Bans, payload.User.ID, payload, func(p wire.ServerMemberBan) *guildsync.Ban {
		return guildsync.NewBan(serverID, p)
	})

	return ban, err
}

// RemoveBan deletes a ban.
func (s *Store) RemoveBan(serverID, userID string) (*guildsync.Ban, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	server, ok := s.Servers.Get(serverID)
	if !ok {
		return nil, false
	}

	return remove(server.Bans, userID)
}

// UpsertWebhook materializes or patches a webhook. The server must be cached.
func (s *Store) UpsertWebhook(payload wire.Webhook) (*guildsync.Webhook, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	server, err := s.serverLocked(payload.ServerID)
	if err != nil {
		return nil, false, err
	}

	return upsert(server.Webhooks, payload.ID, payload, guildsync.NewWebhook)
}

// RemoveWebhook deletes a webhook.
func (s *Store) RemoveWebhook(serverID, webhookID string) (*guildsync.Webhook, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	server, ok := s.Servers.Get(serverID)
	if !ok {
		return nil, false
	}

	return remove(server.Webhooks, webhookID)
}

// UpsertMessage materializes or patches a message. The channel must be cached.
func (s *Store) UpsertMessage(payload wire.ChatMessage) (*guildsync.Message, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	channel, err := s.channelLocked(payload.ChannelID)
	if err != nil {
		return nil, false, err
	}

	return upsert(channel.Messages, payload.ID, payload, guildsync.NewMessage)
}

// RemoveMessage deletes a message.
func (s *Store) RemoveMessage(channelID, messageID string) (*guildsync.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	channel, ok := s.Channels.Get(channelID)
	if !ok {
		return nil, false
	}

	return remove(channel.Messages, messageID)
}

// UpsertDoc materializes or patches a doc. The channel must be cached.
func (s *Store) UpsertDoc(payload wire.Doc) (*guildsync.Doc, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	channel, err := s.channelLocked(payload.ChannelID)
	if err != nil {
		return nil, false, err
	}

	return upsert(channel.Docs, payload.ID, payload, guildsync.NewDoc)
}

// RemoveDoc deletes a doc.
func (s *Store) RemoveDoc(channelID string, docID int) (*guildsync.Doc, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	channel, ok := s.Channels.Get(channelID)
	if !ok {
		return nil, false
	}

	return remove(channel.Docs, docID)
}

// UpsertCalendarEvent materializes or patches a calendar entry. The channel
// must be cached.
func (s *Store) UpsertCalendarEvent(payload wire.CalendarEvent) (*guildsync.CalendarEvent, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	channel, err := s.channelLocked(payload.ChannelID)
	if err != nil {
		return nil, false, err
	}

	return upsert(channel.CalendarEvents, payload.ID, payload, guildsync.NewCalendarEvent)
}

// RemoveCalendarEvent deletes a calendar entry.
func (s *Store) RemoveCalendarEvent(channelID string, eventID int) (*guildsync.CalendarEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	channel, ok := s.Channels.Get(channelID)
	if !ok {
		return nil, false
	}

	return remove(channel.CalendarEvents, eventID)
}

// UpsertForumTopic materializes or patches a forum topic. The channel must be cached.
func (s *Store) UpsertForumTopic(payload wire.ForumTopic) (*guildsync.ForumTopic, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	channel, err := s.channelLocked(payload.ChannelID)
	if err != nil {
		return nil, false, err
	}

	return upsert(channel.ForumTopics, payload.ID, payload, guildsync.NewForumTopic)
}

// RemoveForumTopic deletes a forum topic.
func (s *Store) RemoveForumTopic(channelID string, topicID int) (*guildsync.ForumTopic, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	channel, ok := s.Channels.Get(channelID)
	if !ok {
		return nil, false
	}

	return remove(channel.ForumTopics, topicID)
}

// UpsertListItem materializes or patches a list item. The channel must be cached.
func (s *Store) UpsertListItem(payload wire.ListItem) (*guildsync.ListItem, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	channel, err := s.channelLocked(payload.ChannelID)
	if err != nil {
		return nil, false, err
	}

	return upsert(channel.ListItems, payload.ID, payload, guildsync.NewListItem)
}

// UncompleteListItem patches a list item and clears its completion state.
func (s *Store) UncompleteListItem(payload wire.ListItem) (*guildsync.ListItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	channel, err := s.channelLocked(payload.ChannelID)
	if err != nil {
		return nil, err
	}
	if _, _, err := upsert(channel.ListItems, payload.ID, payload, guildsync.NewListItem); err != nil {
		return nil, err
	}
	item, _ := channel.ListItems.Get(payload.ID)
	item.MarkUncompleted()

	return item.Snapshot(), nil
}

// RemoveListItem deletes a list item.
func (s *Store) RemoveListItem(channelID, itemID string) (*guildsync.ListItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	channel, ok := s.Channels.Get(channelID)
	if !ok {
		return nil, false
	}

	return remove(channel.ListItems, itemID)
}

// Stats reports the number of cached root entities.
type Stats struct {
	Servers  int
	Channels int
	Users    int
}

// Stats returns current root cache sizes.
func (s *Store) Stats() Stats {
	return Stats{
		Servers:  s.Servers.Len(),
		Channels: s.Channels.Len(),
		Users:    s.Users.Len(),
	}
}
