package store

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"guildsync/pkg/guildsync"
	"guildsync/pkg/wire"
)

func ptr[T any](value T) *T {
	return &value
}

func seeded(t *testing.T) *Store {
	t.Helper()

	s := New(guildsync.DefaultCacheLimits())
	if _, _, err := s.UpsertServer(wire.Server{ID: "s1", OwnerID: "u1", Name: ptr("Guild")}); err != nil {
		t.Fatalf("UpsertServer() error = %v", err)
	}
	if _, _, err := s.UpsertChannel(wire.ServerChannel{ID: "c1", ServerID: "s1", Type: "chat", Name: ptr("general")}); err != nil {
		t.Fatalf("UpsertChannel() error = %v", err)
	}

	return s
}

func TestUpsertServerPatchesPresentFieldsOnly(t *testing.T) {
	t.Parallel()

	s := seeded(t)
	server, created, err := s.UpsertServer(wire.Server{ID: "s1", About: ptr("about")})
	if err != nil {
		t.Fatalf("UpsertServer() error = %v", err)
	}
	if created {
		t.Fatal("created = true for cached server, want false")
	}
	if server.Name != "Guild" || server.About != "about" || server.OwnerID != "u1" {
		t.Fatalf("server = %+v", server)
	}
	if got := s.Servers.Len(); got != 1 {
		t.Fatalf("Servers.Len() = %d, want 1", got)
	}
}

func TestUpsertReturnsDetachedSnapshots(t *testing.T) {
	t.Parallel()

	s := seeded(t)
	first, _, err := s.UpsertChannel(wire.ServerChannel{ID: "c1", Topic: ptr("one")})
	if err != nil {
		t.Fatalf("UpsertChannel() error = %v", err)
	}
	if _, _, err := s.UpsertChannel(wire.ServerChannel{ID: "c1", Topic: ptr("two")}); err != nil {
		t.Fatalf("UpsertChannel() error = %v", err)
	}

	if first.Topic != "one" {
		t.Fatalf("first snapshot topic = %q, want one", first.Topic)
	}
	current, ok := s.Channel("c1")
	if !ok || current.Topic != "two" {
		t.Fatalf("Channel() = %+v, %v", current, ok)
	}
}

func TestChildWritesRequireParent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		write    func(*Store) error
		wantKind guildsync.EntityKind
		wantID   string
	}{
		{
			name: "member without server",
			write: func(s *Store) error {
				_, _, err := s.UpsertMember("missing", wire.ServerMember{User: wire.User{ID: "u1"}})
				return err
			},
			wantKind: guildsync.EntityKindServer,
			wantID:   "missing",
		},
		{
			name: "message without channel",
			write: func(s *Store) error {
				_, _, err := s.UpsertMessage(wire.ChatMessage{ID: "m1", ChannelID: "gone"})
				return err
			},
			wantKind: guildsync.EntityKindChannel,
			wantID:   "gone",
		},
		{
			name: "nickname without member",
			write: func(s *Store) error {
				_, err := s.SetMemberNickname("s1", "nobody", ptr("nick"))
				return err
			},
			wantKind: guildsync.EntityKindMember,
			wantID:   "nobody",
		},
		{
			name: "webhook without server",
			write: func(s *Store) error {
				_, _, err := s.UpsertWebhook(wire.Webhook{ID: "w1", ServerID: "other"})
				return err
			},
			wantKind: guildsync.EntityKindServer,
			wantID:   "other",
		},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			err := testCase.write(seeded(t))
			if !errors.Is(err, guildsync.ErrUnresolved) {
				t.Fatalf("error = %v, want ErrUnresolved", err)
			}
			resolutionErr, ok := guildsync.AsResolutionError(err)
			if !ok || resolutionErr.Kind != testCase.wantKind || resolutionErr.ID != testCase.wantID {
				t.Fatalf("resolution error = %+v", resolutionErr)
			}
		})
	}
}

func TestUpsertMemberCachesUser(t *testing.T) {
	t.Parallel()

	s := seeded(t)
	member, created, err := s.UpsertMember("s1", wire.ServerMember{
		User:     wire.User{ID: "u2", Name: ptr("Ada")},
		RoleIDs:  []int{1, 2},
		JoinedAt: time.Unix(100, 0).UTC(),
	})
	if err != nil {
		t.Fatalf("UpsertMember() error = %v", err)
	}
	if !created || member.ServerID != "s1" || !member.HasRole(2) {
		t.Fatalf("member = %+v, created = %v", member, created)
	}
	user, ok := s.User("u2")
	if !ok || user.Name != "Ada" {
		t.Fatalf("User() = %+v, %v", user, ok)
	}

	updated, err := s.SetMemberNickname("s1", "u2", ptr("ada"))
	if err != nil || updated.Nickname != "ada" {
		t.Fatalf("SetMemberNickname() = %+v, %v", updated, err)
	}
	cleared, err := s.SetMemberNickname("s1", "u2", nil)
	if err != nil || cleared.Nickname != "" {
		t.Fatalf("SetMemberNickname(nil) = %+v, %v", cleared, err)
	}
}

func TestSetMemberRolesSkipsUncachedMembers(t *testing.T) {
	t.Parallel()

	s := seeded(t)
	if _, _, err := s.UpsertMember("s1", wire.ServerMember{User: wire.User{ID: "u2"}, RoleIDs: []int{1}}); err != nil {
		t.Fatalf("UpsertMember() error = %v", err)
	}

	updates := s.SetMemberRoles("s1", []wire.MemberRoleIDs{
		{UserID: "u2", RoleIDs: []int{7, 8}},
		{UserID: "u3", RoleIDs: []int{9}},
	})
	if len(updates) != 2 {
		t.Fatalf("updates = %+v, want 2 entries", updates)
	}
	member, _ := s.Member("s1", "u2")
	if member.HasRole(1) || !member.HasRole(8) {
		t.Fatalf("member roles = %v, want [7 8]", member.RoleIDs)
	}
	if _, ok := s.Member("s1", "u3"); ok {
		t.Fatal("uncached member u3 was materialized by a roles update")
	}
}

func TestRemoveServerCascadesChannels(t *testing.T) {
	t.Parallel()

	s := seeded(t)
	if _, _, err := s.UpsertChannel(wire.ServerChannel{ID: "c2", ServerID: "s2"}); err != nil {
		t.Fatalf("UpsertChannel() error = %v", err)
	}

	removed, ok := s.RemoveServer("s1")
	if !ok || removed.ID != "s1" {
		t.Fatalf("RemoveServer() = %+v, %v", removed, ok)
	}
	if _, ok := s.Channel("c1"); ok {
		t.Fatal("channel c1 survived removal of its server")
	}
	if _, ok := s.Channel("c2"); !ok {
		t.Fatal("channel c2 of another server was removed")
	}
	if _, ok := s.RemoveServer("s1"); ok {
		t.Fatal("second RemoveServer() = true, want false")
	}
}

func TestMessageCacheHonorsDefaultLimit(t *testing.T) {
	t.Parallel()

	s := seeded(t)
	total := guildsync.DefaultMessageCacheLimit + 5
	for i := 1; i <= total; i++ {
		if _, _, err := s.UpsertMessage(wire.ChatMessage{ID: "m" + strconv.Itoa(i), ChannelID: "c1"}); err != nil {
			t.Fatalf("UpsertMessage(%d) error = %v", i, err)
		}
	}

	channel, _ := s.Channels.Get("c1")
	if got := channel.Messages.Len(); got != guildsync.DefaultMessageCacheLimit {
		t.Fatalf("Messages.Len() = %d, want %d", got, guildsync.DefaultMessageCacheLimit)
	}
	if _, ok := s.Message("c1", "m1"); ok {
		t.Fatal("oldest message m1 was not evicted")
	}
	if _, ok := s.Message("c1", "m"+strconv.Itoa(total)); !ok {
		t.Fatal("newest message missing")
	}
}

func TestRemoveMessageReturnsPrior(t *testing.T) {
	t.Parallel()

	s := seeded(t)
	if _, _, err := s.UpsertMessage(wire.ChatMessage{ID: "m1", ChannelID: "c1", Content: ptr("hi")}); err != nil {
		t.Fatalf("UpsertMessage() error = %v", err)
	}

	removed, ok := s.RemoveMessage("c1", "m1")
	if !ok || removed.Content != "hi" {
		t.Fatalf("RemoveMessage() = %+v, %v", removed, ok)
	}
	if _, ok := s.RemoveMessage("c1", "m1"); ok {
		t.Fatal("second RemoveMessage() = true, want false")
	}
	if _, ok := s.RemoveMessage("unknown", "m1"); ok {
		t.Fatal("RemoveMessage() on unknown channel = true, want false")
	}
}

func TestUncompleteListItemClearsCompletion(t *testing.T) {
	t.Parallel()

	s := seeded(t)
	completedAt := time.Unix(200, 0).UTC()
	item, _, err := s.UpsertListItem(wire.ListItem{
		ID:          "i1",
		ChannelID:   "c1",
		Message:     ptr("milk"),
		CompletedAt: &completedAt,
		CompletedBy: ptr("u1"),
	})
	if err != nil || !item.Completed() {
		t.Fatalf("UpsertListItem() = %+v, %v", item, err)
	}

	item, err = s.UncompleteListItem(wire.ListItem{ID: "i1", ChannelID: "c1"})
	if err != nil {
		t.Fatalf("UncompleteListItem() error = %v", err)
	}
	if item.Completed() || item.CompletedBy != "" || item.Message != "milk" {
		t.Fatalf("item = %+v", item)
	}
}

func TestIntKeyedContentRejectsZeroID(t *testing.T) {
	t.Parallel()

	s := seeded(t)
	if _, _, err := s.UpsertDoc(wire.Doc{ID: 0, ChannelID: "c1"}); err == nil {
		t.Fatal("UpsertDoc() with zero id error = nil, want invalid key")
	}
	doc, created, err := s.UpsertDoc(wire.Doc{ID: 5, ChannelID: "c1", Title: ptr("Notes")})
	if err != nil || !created || doc.Title != "Notes" {
		t.Fatalf("UpsertDoc() = %+v, %v, %v", doc, created, err)
	}
	removed, ok := s.RemoveDoc("c1", 5)
	if !ok || removed.ID != 5 {
		t.Fatalf("RemoveDoc() = %+v, %v", removed, ok)
	}
}

func TestViewHoldsOffWrites(t *testing.T) {
	t.Parallel()

	s := seeded(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	viewDone := make(chan string, 1)
	go s.View(func() {
		close(entered)
		<-release
		server, _ := s.Servers.Get("s1")
		viewDone <- server.Name
	})
	<-entered

	written := make(chan struct{})
	go func() {
		if _, _, err := s.UpsertServer(wire.Server{ID: "s1", Name: ptr("Renamed")}); err != nil {
			t.Errorf("UpsertServer() error = %v", err)
		}
		close(written)
	}()

	select {
	case <-written:
		t.Fatal("write completed while View was running")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)

	if got := <-viewDone; got != "Guild" {
		t.Fatalf("name inside View = %q, want Guild", got)
	}
	select {
	case <-written:
	case <-time.After(time.Second):
		t.Fatal("write did not complete after View returned")
	}
	if server, _ := s.Server("s1"); server.Name != "Renamed" {
		t.Fatalf("name after View = %q, want Renamed", server.Name)
	}
}
