package guildsync

import (
	"slices"
	"testing"
	"time"

	"guildsync/pkg/collection"
	"guildsync/pkg/wire"
)

func ptr[T any](value T) *T {
	return &value
}

func TestMessagePatchKeepsAbsentFields(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	message := NewMessage(wire.ChatMessage{
		ID:              "m1",
		ChannelID:       "c1",
		Content:         ptr("hello"),
		ReplyMessageIDs: []string{"m0"},
		IsPinned:        ptr(true),
		CreatedAt:       created,
		CreatedBy:       "u1",
	})

	edited := created.Add(time.Minute)
	message.Patch(wire.ChatMessage{ID: "m1", ChannelID: "c1", Content: ptr("edited"), UpdatedAt: &edited})

	if message.Content != "edited" {
		t.Fatalf("content = %q, want edited", message.Content)
	}
	if !message.IsPinned {
		t.Fatal("is pinned cleared by absent field")
	}
	if !slices.Equal(message.ReplyMessageIDs, []string{"m0"}) {
		t.Fatalf("reply ids = %v, want [m0]", message.ReplyMessageIDs)
	}
	if !message.CreatedAt.Equal(created) || message.CreatedBy != "u1" {
		t.Fatalf("creation attributes changed: %v %q", message.CreatedAt, message.CreatedBy)
	}
	if !message.UpdatedAt.Equal(edited) {
		t.Fatalf("updated at = %v, want %v", message.UpdatedAt, edited)
	}

	message.Patch(wire.ChatMessage{ID: "m1", IsPinned: ptr(false)})
	if message.IsPinned {
		t.Fatal("explicit false not applied")
	}
}

func TestPatchTwiceIsIdempotent(t *testing.T) {
	t.Parallel()

	payload := wire.ServerChannel{ID: "c1", ServerID: "s1", Type: "chat", Name: ptr("general"), Topic: ptr("t")}
	first := NewChannel(payload, DefaultCacheLimits())
	first.Patch(payload)
	second := NewChannel(payload, DefaultCacheLimits())

	if first.Name != second.Name || first.Topic != second.Topic || first.Type != second.Type {
		t.Fatalf("double patch diverged: %+v vs %+v", first, second)
	}
	if first.Messages.MaxSize() != DefaultMessageCacheLimit {
		t.Fatalf("message cache limit = %d, want %d", first.Messages.MaxSize(), DefaultMessageCacheLimit)
	}
}

func TestRelationsResolveThroughOwningCache(t *testing.T) {
	t.Parallel()

	channels := collection.New[string, *Channel]()
	users := collection.New[string, *User]()
	channel := NewChannel(wire.ServerChannel{ID: "c1", ServerID: "s1"}, CacheLimits{})
	if err := channels.Set(channel.ID, channel); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	message := NewMessage(wire.ChatMessage{ID: "m1", ChannelID: "c1", CreatedBy: "u1"})
	got, ok := message.Channel(channels)
	if !ok || got != channel {
		t.Fatalf("Channel() = %v, %v, want cached instance", got, ok)
	}
	if _, ok := message.Author(users); ok {
		t.Fatal("Author() resolved an uncached user")
	}
	if _, ok := message.Channel(nil); ok {
		t.Fatal("Channel(nil) resolved")
	}
}

func TestMemberRolesAndNickname(t *testing.T) {
	t.Parallel()

	member := NewMember("s1", wire.ServerMember{User: wire.User{ID: "u1"}, RoleIDs: []int{1, 2}, Nickname: ptr("nick")})
	member.Patch(wire.ServerMember{User: wire.User{ID: "u1"}})
	if !member.HasRole(2) || member.Nickname != "nick" {
		t.Fatalf("member = %+v, want roles and nickname kept", member)
	}

	member.SetRoles([]int{3})
	member.SetNickname(nil)
	if member.HasRole(1) || !member.HasRole(3) || member.Nickname != "" {
		t.Fatalf("member = %+v, want roles [3] and empty nickname", member)
	}
}

func TestSnapshotDetachesScalars(t *testing.T) {
	t.Parallel()

	topic := NewForumTopic(wire.ForumTopic{ID: 7, ChannelID: "c1", Title: ptr("old")})
	snapshot := topic.Snapshot()
	topic.Patch(wire.ForumTopic{ID: 7, Title: ptr("new")})

	if snapshot.Title != "old" {
		t.Fatalf("snapshot title = %q, want old", snapshot.Title)
	}
	if topic.EntityID() != "7" || topic.EntityKind() != EntityKindForumTopic {
		t.Fatalf("identity = %s/%s", topic.EntityKind(), topic.EntityID())
	}
}

func TestListItemCompletion(t *testing.T) {
	t.Parallel()

	done := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	item := NewListItem(wire.ListItem{ID: "l1", ChannelID: "c1", Message: ptr("task")})
	item.Patch(wire.ListItem{ID: "l1", CompletedAt: &done, CompletedBy: ptr("u1")})
	if !item.Completed() {
		t.Fatal("Completed() = false after completion patch")
	}

	item.MarkUncompleted()
	if item.Completed() || item.CompletedBy != "" {
		t.Fatalf("item = %+v, want uncompleted", item)
	}
}

func TestCalendarEventDurationMinutes(t *testing.T) {
	t.Parallel()

	event := NewCalendarEvent(wire.CalendarEvent{ID: 3, ChannelID: "c1", Duration: ptr(90)})
	if event.Duration != 90*time.Minute {
		t.Fatalf("duration = %s, want 1h30m", event.Duration)
	}
	if event.Cancelled() {
		t.Fatal("Cancelled() = true without cancellation")
	}
}
