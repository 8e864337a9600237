package guildsync

import (
	"time"

	"guildsync/pkg/collection"
	"guildsync/pkg/wire"
)

// User is a cached platform account.
type User struct {
	ID        string
	Type      string
	Name      string
	Avatar    string
	Banner    string
	CreatedAt time.Time
}

// NewUser materializes a user from its wire shape.
func NewUser(payload wire.User) *User {
	user := &User{ID: payload.ID}
	user.Patch(payload)

	return user
}

// Patch applies the fields present in payload.
func (u *User) Patch(payload wire.User) {
	assign(&u.Type, payload.Type)
	assign(&u.Name, payload.Name)
	assign(&u.Avatar, payload.Avatar)
	assign(&u.Banner, payload.Banner)
	if u.CreatedAt.IsZero() {
		assign(&u.CreatedAt, payload.CreatedAt)
	}
}

// Snapshot returns a detached copy of the entity.
func (u *User) Snapshot() *User {
	clone := *u
	return &clone
}

func (u *User) EntityKind() EntityKind { return EntityKindUser }
func (u *User) EntityID() string       { return u.ID }
func (u *User) Created() time.Time     { return u.CreatedAt }

// Server is a cached server and the owner of its member, ban and webhook caches.
type Server struct {
	ID               string
	OwnerID          string
	Type             string
	Name             string
	URL              string
	About            string
	Avatar           string
	Banner           string
	Timezone         string
	IsVerified       bool
	DefaultChannelID string
	CreatedAt        time.Time

	Members  *collection.Collection[string, *Member]
	Bans     *collection.Collection[string, *Ban]
	Webhooks *collection.Collection[string, *Webhook]
}

// NewServer materializes a server with empty child caches.
func NewServer(payload wire.Server, limits CacheLimits) *Server {
	server := &Server{
		ID:        payload.ID,
		OwnerID:   payload.OwnerID,
		CreatedAt: payload.CreatedAt,
		Members:   newCache[string, *Member](limits.Members),
		Bans:      newCache[string, *Ban](limits.Bans),
		Webhooks:  newCache[string, *Webhook](limits.Webhooks),
	}
	server.Patch(payload)

	return server
}

// Patch applies the fields present in payload.
func (s *Server) Patch(payload wire.Server) {
	assign(&s.Type, payload.Type)
	assign(&s.Name, payload.Name)
	assign(&s.URL, payload.URL)
	assign(&s.About, payload.About)
	assign(&s.Avatar, payload.Avatar)
	assign(&s.Banner, payload.Banner)
	assign(&s.Timezone, payload.Timezone)
	assign(&s.IsVerified, payload.IsVerified)
	assign(&s.DefaultChannelID, payload.DefaultChannelID)
	if payload.OwnerID != "" {
		s.OwnerID = payload.OwnerID
	}
}

// Snapshot returns a detached copy sharing the child caches.
func (s *Server) Snapshot() *Server {
	clone := *s
	return &clone
}

// Owner resolves the owning user against users.
func (s *Server) Owner(users *collection.Collection[string, *User]) (*User, bool) {
	return lookup(users, s.OwnerID)
}

func (s *Server) EntityKind() EntityKind { return EntityKindServer }
func (s *Server) EntityID() string       { return s.ID }
func (s *Server) Created() time.Time     { return s.CreatedAt }

// Member is a user's membership in one server.
type Member struct {
	ServerID string
	UserID   string
	RoleIDs  []int
	Nickname string
	IsOwner  bool
	JoinedAt time.Time
}

// NewMember materializes a membership. The embedded user is cached separately.
func NewMember(serverID string, payload wire.ServerMember) *Member {
	member := &Member{
		ServerID: serverID,
		UserID:   payload.User.ID,
		JoinedAt: payload.JoinedAt,
	}
	member.Patch(payload)

	return member
}

// Patch applies the fields present in payload.
func (m *Member) Patch(payload wire.ServerMember) {
	if payload.RoleIDs != nil {
		m.RoleIDs = append([]int(nil), payload.RoleIDs...)
	}
	assign(&m.Nickname, payload.Nickname)
	assign(&m.IsOwner, payload.IsOwner)
	if m.JoinedAt.IsZero() {
		m.JoinedAt = payload.JoinedAt
	}
}

// SetNickname replaces the nickname. A nil value clears it.
func (m *Member) SetNickname(nickname *string) {
	m.Nickname = derefOr(nickname, "")
}

// SetRoles replaces the full role set.
func (m *Member) SetRoles(roleIDs []int) {
	m.RoleIDs = append([]int(nil), roleIDs...)
}

// HasRole reports whether the member holds roleID.
func (m *Member) HasRole(roleID int) bool {
	for _, candidate := range m.RoleIDs {
		if candidate == roleID {
			return true
		}
	}

	return false
}

// Snapshot returns a detached copy of the entity.
func (m *Member) Snapshot() *Member {
	clone := *m
	return &clone
}

// User resolves the member's account against users.
func (m *Member) User(users *collection.Collection[string, *User]) (*User, bool) {
	return lookup(users, m.UserID)
}

// Server resolves the owning server against servers.
func (m *Member) Server(servers *collection.Collection[string, *Server]) (*Server, bool) {
	return lookup(servers, m.ServerID)
}

func (m *Member) EntityKind() EntityKind { return EntityKindMember }
func (m *Member) EntityID() string       { return m.UserID }
func (m *Member) Created() time.Time     { return m.JoinedAt }

// Ban records a ban issued in a server.
type Ban struct {
	ServerID  string
	UserID    string
	Reason    string
	CreatedBy string
	CreatedAt time.Time
}

// NewBan materializes a ban.
func NewBan(serverID string, payload wire.ServerMemberBan) *Ban {
	ban := &Ban{
		ServerID:  serverID,
		UserID:    payload.User.ID,
		CreatedBy: payload.CreatedBy,
		CreatedAt: payload.CreatedAt,
	}
	ban.Patch(payload)

	return ban
}

// Patch applies the fields present in payload.
func (b *Ban) Patch(payload wire.ServerMemberBan) {
	assign(&b.Reason, payload.Reason)
}

// Snapshot returns a detached copy of the entity.
func (b *Ban) Snapshot() *Ban {
	clone := *b
	return &clone
}

func (b *Ban) EntityKind() EntityKind { return EntityKindBan }
func (b *Ban) EntityID() string       { return b.UserID }
func (b *Ban) Created() time.Time     { return b.CreatedAt }

// Webhook is a cached incoming webhook.
type Webhook struct {
	ID        string
	ServerID  string
	ChannelID string
	Name      string
	Token     string
	CreatedAt time.Time
	CreatedBy string
	DeletedAt time.Time
}

// NewWebhook materializes a webhook.
func NewWebhook(payload wire.Webhook) *Webhook {
	webhook := &Webhook{
		ID:        payload.ID,
		ServerID:  payload.ServerID,
		CreatedAt: payload.CreatedAt,
		CreatedBy: payload.CreatedBy,
	}
	webhook.Patch(payload)

	return webhook
}

// Patch applies the fields present in payload.
func (w *Webhook) Patch(payload wire.Webhook) {
	assign(&w.ChannelID, payload.ChannelID)
	assign(&w.Name, payload.Name)
	assign(&w.Token, payload.Token)
	assign(&w.DeletedAt, payload.DeletedAt)
}

// Deleted reports whether the webhook was deleted upstream.
func (w *Webhook) Deleted() bool {
	return !w.DeletedAt.IsZero()
}

// Snapshot returns a detached copy of the entity.
func (w *Webhook) Snapshot() *Webhook {
	clone := *w
	return &clone
}

// Channel resolves the target channel against channels.
func (w *Webhook) Channel(channels *collection.Collection[string, *Channel]) (*Channel, bool) {
	return lookup(channels, w.ChannelID)
}

func (w *Webhook) EntityKind() EntityKind { return EntityKindWebhook }
func (w *Webhook) EntityID() string       { return w.ID }
func (w *Webhook) Created() time.Time     { return w.CreatedAt }
