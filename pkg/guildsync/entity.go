package guildsync

import (
	"time"

	"guildsync/pkg/collection"
)

// EntityKind names a cached resource type.
type EntityKind string

const (
	EntityKindServer        EntityKind = "server"
	EntityKindChannel       EntityKind = "channel"
	EntityKindUser          EntityKind = "user"
	EntityKindMember        EntityKind = "member"
	EntityKindBan           EntityKind = "ban"
	EntityKindWebhook       EntityKind = "webhook"
	EntityKindMessage       EntityKind = "message"
	EntityKindDoc           EntityKind = "doc"
	EntityKindCalendarEvent EntityKind = "calendar_event"
	EntityKindForumTopic    EntityKind = "forum_topic"
	EntityKindListItem      EntityKind = "list_item"
)

// Entity is the read-only trait shared by every cached resource.
type Entity interface {
	// EntityKind reports the resource type.
	EntityKind() EntityKind
	// EntityID returns the identifier rendered as a string.
	EntityID() string
	// Created returns the immutable creation timestamp.
	Created() time.Time
}

// CacheLimits bounds each entity cache. Zero means unlimited.
type CacheLimits struct {
	Servers        int
	Channels       int
	Users          int
	Members        int
	Bans           int
	Webhooks       int
	Messages       int
	Docs           int
	CalendarEvents int
	ForumTopics    int
	ListItems      int
}

// DefaultMessageCacheLimit bounds each channel's message cache by default.
const DefaultMessageCacheLimit = 100

// DefaultCacheLimits returns the limits used when none are configured.
func DefaultCacheLimits() CacheLimits {
	return CacheLimits{Messages: DefaultMessageCacheLimit}
}

func newCache[K comparable, V any](limit int) *collection.Collection[K, V] {
	return collection.New[K, V](collection.WithMaxSize(limit))
}

// lookup resolves a foreign key against its owning cache.
func lookup[K comparable, V any](cache *collection.Collection[K, V], key K) (V, bool) {
	if cache == nil {
		var zero V
		return zero, false
	}

	return cache.Get(key)
}

// assign overwrites dst when the patch field is present.
func assign[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func derefOr[T any](src *T, fallback T) T {
	if src == nil {
		return fallback
	}

	return *src
}
