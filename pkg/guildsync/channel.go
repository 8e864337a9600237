package guildsync

import (
	"strconv"
	"time"

	"guildsync/pkg/collection"
	"guildsync/pkg/wire"
)

// Channel is a cached server channel and the owner of its content caches.
type Channel struct {
	ID         string
	Type       string
	ServerID   string
	GroupID    string
	Name       string
	Topic      string
	ParentID   string
	CategoryID int
	IsPublic   bool
	ArchivedBy string
	ArchivedAt time.Time
	UpdatedAt  time.Time
	CreatedAt  time.Time
	CreatedBy  string

	Messages       *collection.Collection[string, *Message]
	Docs           *collection.Collection[int, *Doc]
	CalendarEvents *collection.Collection[int, *CalendarEvent]
	ForumTopics    *collection.Collection[int, *ForumTopic]
	ListItems      *collection.Collection[string, *ListItem]
}

// NewChannel materializes a channel with empty content caches.
func NewChannel(payload wire.ServerChannel, limits CacheLimits) *Channel {
	channel := &Channel{
		ID:             payload.ID,
		Type:           payload.Type,
		ServerID:       payload.ServerID,
		GroupID:        payload.GroupID,
		CreatedAt:      payload.CreatedAt,
		CreatedBy:      payload.CreatedBy,
		Messages:       newCache[string, *Message](limits.Messages),
		Docs:           newCache[int, *Doc](limits.Docs),
		CalendarEvents: newCache[int, *CalendarEvent](limits.CalendarEvents),
		ForumTopics:    newCache[int, *ForumTopic](limits.ForumTopics),
		ListItems:      newCache[string, *ListItem](limits.ListItems),
	}
	channel.Patch(payload)

	return channel
}

// Patch applies the fields present in payload.
func (c *Channel) Patch(payload wire.ServerChannel) {
	assign(&c.Name, payload.Name)
	assign(&c.Topic, payload.Topic)
	assign(&c.ParentID, payload.ParentID)
	assign(&c.CategoryID, payload.CategoryID)
	assign(&c.IsPublic, payload.IsPublic)
	assign(&c.ArchivedBy, payload.ArchivedBy)
	assign(&c.ArchivedAt, payload.ArchivedAt)
	assign(&c.UpdatedAt, payload.UpdatedAt)
}

// Snapshot returns a detached copy sharing the content caches.
func (c *Channel) Snapshot() *Channel {
	clone := *c
	return &clone
}

// Server resolves the owning server against servers.
func (c *Channel) Server(servers *collection.Collection[string, *Server]) (*Server, bool) {
	return lookup(servers, c.ServerID)
}

// Parent resolves the parent channel against channels.
func (c *Channel) Parent(channels *collection.Collection[string, *Channel]) (*Channel, bool) {
	if c.ParentID == "" {
		return nil, false
	}

	return lookup(channels, c.ParentID)
}

func (c *Channel) EntityKind() EntityKind { return EntityKindChannel }
func (c *Channel) EntityID() string       { return c.ID }
func (c *Channel) Created() time.Time     { return c.CreatedAt }

// Message is a cached chat message.
type Message struct {
	ID                 string
	Type               string
	ServerID           string
	GroupID            string
	ChannelID          string
	Content            string
	Embeds             []wire.ChatEmbed
	ReplyMessageIDs    []string
	IsPrivate          bool
	IsSilent           bool
	IsPinned           bool
	Mentions           *wire.Mentions
	CreatedAt          time.Time
	CreatedBy          string
	CreatedByWebhookID string
	UpdatedAt          time.Time
	DeletedAt          time.Time
}

// NewMessage materializes a message.
func NewMessage(payload wire.ChatMessage) *Message {
	message := &Message{
		ID:                 payload.ID,
		ServerID:           payload.ServerID,
		GroupID:            payload.GroupID,
		ChannelID:          payload.ChannelID,
		CreatedAt:          payload.CreatedAt,
		CreatedBy:          payload.CreatedBy,
		CreatedByWebhookID: payload.CreatedByWebhookID,
	}
	message.Patch(payload)

	return message
}

// Patch applies the fields present in payload. Slices are replaced, never
// mutated in place, so snapshots stay stable.
func (m *Message) Patch(payload wire.ChatMessage) {
	assign(&m.Type, payload.Type)
	assign(&m.Content, payload.Content)
	if payload.Embeds != nil {
		m.Embeds = append([]wire.ChatEmbed(nil), payload.Embeds...)
	}
	if payload.ReplyMessageIDs != nil {
		m.ReplyMessageIDs = append([]string(nil), payload.ReplyMessageIDs...)
	}
	assign(&m.IsPrivate, payload.IsPrivate)
	assign(&m.IsSilent, payload.IsSilent)
	assign(&m.IsPinned, payload.IsPinned)
	if payload.Mentions != nil {
		mentions := *payload.Mentions
		m.Mentions = &mentions
	}
	assign(&m.UpdatedAt, payload.UpdatedAt)
	assign(&m.DeletedAt, payload.DeletedAt)
}

// Deleted reports whether the message was deleted upstream.
func (m *Message) Deleted() bool {
	return !m.DeletedAt.IsZero()
}

// Snapshot returns a detached copy of the entity.
func (m *Message) Snapshot() *Message {
	clone := *m
	return &clone
}

// Channel resolves the owning channel against channels.
func (m *Message) Channel(channels *collection.Collection[string, *Channel]) (*Channel, bool) {
	return lookup(channels, m.ChannelID)
}

// Author resolves the author against users.
func (m *Message) Author(users *collection.Collection[string, *User]) (*User, bool) {
	return lookup(users, m.CreatedBy)
}

func (m *Message) EntityKind() EntityKind { return EntityKindMessage }
func (m *Message) EntityID() string       { return m.ID }
func (m *Message) Created() time.Time     { return m.CreatedAt }

// Doc is a cached document.
type Doc struct {
	ID        int
	ServerID  string
	ChannelID string
	Title     string
	Content   string
	Mentions  *wire.Mentions
	CreatedAt time.Time
	CreatedBy string
	UpdatedAt time.Time
	UpdatedBy string
}

// NewDoc materializes a document.
func NewDoc(payload wire.Doc) *Doc {
	doc := &Doc{
		ID:        payload.ID,
		ServerID:  payload.ServerID,
		ChannelID: payload.ChannelID,
		CreatedAt: payload.CreatedAt,
		CreatedBy: payload.CreatedBy,
	}
	doc.Patch(payload)

	return doc
}

// Patch applies the fields present in payload.
func (d *Doc) Patch(payload wire.Doc) {
	assign(&d.Title, payload.Title)
	assign(&d.Content, payload.Content)
	if payload.Mentions != nil {
		mentions := *payload.Mentions
		d.Mentions = &mentions
	}
	assign(&d.UpdatedAt, payload.UpdatedAt)
	assign(&d.UpdatedBy, payload.UpdatedBy)
}

// Snapshot returns a detached copy of the entity.
func (d *Doc) Snapshot() *Doc {
	clone := *d
	return &clone
}

func (d *Doc) EntityKind() EntityKind { return EntityKindDoc }
func (d *Doc) EntityID() string       { return strconv.Itoa(d.ID) }
func (d *Doc) Created() time.Time     { return d.CreatedAt }

// CalendarEvent is a cached calendar entry.
type CalendarEvent struct {
	ID           int
	ServerID     string
	ChannelID    string
	Name         string
	Description  string
	Location     string
	URL          string
	Color        int
	StartsAt     time.Time
	Duration     time.Duration
	IsPrivate    bool
	Cancellation *wire.CalendarEventCancellation
	CreatedAt    time.Time
	CreatedBy    string
}

// NewCalendarEvent materializes a calendar entry.
func NewCalendarEvent(payload wire.CalendarEvent) *CalendarEvent {
	event := &CalendarEvent{
		ID:        payload.ID,
		ServerID:  payload.ServerID,
		ChannelID: payload.ChannelID,
		CreatedAt: payload.CreatedAt,
		CreatedBy: payload.CreatedBy,
	}
	event.Patch(payload)

	return event
}

// Patch applies the fields present in payload. Duration is sent in minutes.
func (e *CalendarEvent) Patch(payload wire.CalendarEvent) {
	assign(&e.Name, payload.Name)
	assign(&e.Description, payload.Description)
	assign(&e.Location, payload.Location)
	assign(&e.URL, payload.URL)
	assign(&e.Color, payload.Color)
	assign(&e.StartsAt, payload.StartsAt)
	if payload.Duration != nil {
		e.Duration = time.Duration(*payload.Duration) * time.Minute
	}
	assign(&e.IsPrivate, payload.IsPrivate)
	if payload.Cancellation != nil {
		cancellation := *payload.Cancellation
		e.Cancellation = &cancellation
	}
}

// Cancelled reports whether the entry carries a cancellation.
func (e *CalendarEvent) Cancelled() bool {
	return e.Cancellation != nil
}

// Snapshot returns a detached copy of the entity.
func (e *CalendarEvent) Snapshot() *CalendarEvent {
	clone := *e
	return &clone
}

func (e *CalendarEvent) EntityKind() EntityKind { return EntityKindCalendarEvent }
func (e *CalendarEvent) EntityID() string       { return strconv.Itoa(e.ID) }
func (e *CalendarEvent) Created() time.Time     { return e.CreatedAt }

// ForumTopic is a cached forum topic.
type ForumTopic struct {
	ID        int
	ServerID  string
	ChannelID string
	Title     string
	Content   string
	IsPinned  bool
	IsLocked  bool
	BumpedAt  time.Time
	UpdatedAt time.Time
	CreatedAt time.Time
	CreatedBy string
}

// NewForumTopic materializes a forum topic.
func NewForumTopic(payload wire.ForumTopic) *ForumTopic {
	topic := &ForumTopic{
		ID:        payload.ID,
		ServerID:  payload.ServerID,
		ChannelID: payload.ChannelID,
		CreatedAt: payload.CreatedAt,
		CreatedBy: payload.CreatedBy,
	}
	topic.Patch(payload)

	return topic
}

// Patch applies the fields present in payload.
func (t *ForumTopic) Patch(payload wire.ForumTopic) {
	assign(&t.Title, payload.Title)
	assign(&t.Content, payload.Content)
	assign(&t.IsPinned, payload.IsPinned)
	assign(&t.IsLocked, payload.IsLocked)
	assign(&t.BumpedAt, payload.BumpedAt)
	assign(&t.UpdatedAt, payload.UpdatedAt)
}

// Snapshot returns a detached copy of the entity.
func (t *ForumTopic) Snapshot() *ForumTopic {
	clone := *t
	return &clone
}

func (t *ForumTopic) EntityKind() EntityKind { return EntityKindForumTopic }
func (t *ForumTopic) EntityID() string       { return strconv.Itoa(t.ID) }
func (t *ForumTopic) Created() time.Time     { return t.CreatedAt }

// ListItem is a cached list entry.
type ListItem struct {
	ID               string
	ServerID         string
	ChannelID        string
	Message          string
	Note             *wire.ListItemNote
	ParentListItemID string
	CompletedAt      time.Time
	CompletedBy      string
	UpdatedAt        time.Time
	UpdatedBy        string
	CreatedAt        time.Time
	CreatedBy        string
}

// NewListItem materializes a list entry.
func NewListItem(payload wire.ListItem) *ListItem {
	item := &ListItem{
		ID:        payload.ID,
		ServerID:  payload.ServerID,
		ChannelID: payload.ChannelID,
		CreatedAt: payload.CreatedAt,
		CreatedBy: payload.CreatedBy,
	}
	item.Patch(payload)

	return item
}

// Patch applies the fields present in payload.
func (i *ListItem) Patch(payload wire.ListItem) {
	assign(&i.Message, payload.Message)
	if payload.Note != nil {
		note := *payload.Note
		i.Note = &note
	}
	assign(&i.ParentListItemID, payload.ParentListItemID)
	assign(&i.CompletedAt, payload.CompletedAt)
	assign(&i.CompletedBy, payload.CompletedBy)
	assign(&i.UpdatedAt, payload.UpdatedAt)
	assign(&i.UpdatedBy, payload.UpdatedBy)
}

// MarkUncompleted clears completion state. Uncomplete events omit the
// completion fields rather than nulling them.
func (i *ListItem) MarkUncompleted() {
	i.CompletedAt = time.Time{}
	i.CompletedBy = ""
}

// Completed reports whether the entry is checked off.
func (i *ListItem) Completed() bool {
	return !i.CompletedAt.IsZero()
}

// Snapshot returns a detached copy of the entity.
func (i *ListItem) Snapshot() *ListItem {
	clone := *i
	return &clone
}

func (i *ListItem) EntityKind() EntityKind { return EntityKindListItem }
func (i *ListItem) EntityID() string       { return i.ID }
func (i *ListItem) Created() time.Time     { return i.CreatedAt }
