package guildsync

import (
	"fmt"
	"time"

	"guildsync/pkg/wire"
)

// EventKind identifies a normalized domain event type.
type EventKind string

const (
	EventKindMessageCreated EventKind = "message.created"
	EventKindMessageUpdated EventKind = "message.updated"
	EventKindMessageDeleted EventKind = "message.deleted"

	EventKindReactionAdded   EventKind = "reaction.added"
	EventKindReactionRemoved EventKind = "reaction.removed"

	EventKindMemberJoined       EventKind = "member.joined"
	EventKindMemberRemoved      EventKind = "member.removed"
	EventKindMemberUpdated      EventKind = "member.updated"
	EventKindMemberBanned       EventKind = "member.banned"
	EventKindMemberUnbanned     EventKind = "member.unbanned"
	EventKindMemberRolesUpdated EventKind = "member.roles_updated"

	EventKindChannelCreated EventKind = "channel.created"
	EventKindChannelUpdated EventKind = "channel.updated"
	EventKindChannelDeleted EventKind = "channel.deleted"

	EventKindWebhookCreated EventKind = "webhook.created"
	EventKindWebhookUpdated EventKind = "webhook.updated"

	EventKindDocCreated EventKind = "doc.created"
	EventKindDocUpdated EventKind = "doc.updated"
	EventKindDocDeleted EventKind = "doc.deleted"

	EventKindCalendarEventCreated EventKind = "calendar_event.created"
	EventKindCalendarEventUpdated EventKind = "calendar_event.updated"
	EventKindCalendarEventDeleted EventKind = "calendar_event.deleted"

	EventKindForumTopicCreated  EventKind = "forum_topic.created"
	EventKindForumTopicUpdated  EventKind = "forum_topic.updated"
	EventKindForumTopicDeleted  EventKind = "forum_topic.deleted"
	EventKindForumTopicPinned   EventKind = "forum_topic.pinned"
	EventKindForumTopicUnpinned EventKind = "forum_topic.unpinned"
	EventKindForumTopicLocked   EventKind = "forum_topic.locked"
	EventKindForumTopicUnlocked EventKind = "forum_topic.unlocked"

	EventKindListItemCreated     EventKind = "list_item.created"
	EventKindListItemUpdated     EventKind = "list_item.updated"
	EventKindListItemDeleted     EventKind = "list_item.deleted"
	EventKindListItemCompleted   EventKind = "list_item.completed"
	EventKindListItemUncompleted EventKind = "list_item.uncompleted"

	// EventKindServerJoined is emitted when the bot is added to a server.
	EventKindServerJoined EventKind = "server.joined"
	// EventKindServerLeft is emitted when the bot is removed from a server.
	EventKindServerLeft EventKind = "server.left"

	// EventKindClientReady is emitted on every Ready frame.
	EventKindClientReady EventKind = "client.ready"
	// EventKindGatewayDisconnected is emitted when the transport closes.
	EventKindGatewayDisconnected EventKind = "gateway.disconnected"
	// EventKindGatewayReconnecting is emitted before each reconnect attempt.
	EventKindGatewayReconnecting EventKind = "gateway.reconnecting"
	// EventKindGatewayResumeRequired is emitted when the server could not
	// replay the backlog and cached state should be re-fetched.
	EventKindGatewayResumeRequired EventKind = "gateway.resume_required"
)

// Event is the normalized envelope delivered to subscribers.
//
// Entity branches are selected by Kind. Each carries a snapshot of the cached
// entity taken when the event was applied; deletes carry the entity as it
// existed before removal.
type Event struct {
	// ID is a unique identifier for this event instance.
	ID string
	// Kind selects which payload branch is expected.
	Kind EventKind
	// OccurredAt is when the event was applied locally.
	OccurredAt time.Time
	// Sequence is the gateway watermark carried by the source frame.
	Sequence string
	// ServerID scopes the event when it belongs to a server.
	ServerID string
	// ChannelID scopes the event when it belongs to a channel.
	ChannelID string

	Server        *Server
	Channel       *Channel
	User          *User
	Member        *Member
	Ban           *Ban
	Webhook       *Webhook
	Message       *Message
	Doc           *Doc
	CalendarEvent *CalendarEvent
	ForumTopic    *ForumTopic
	ListItem      *ListItem
	Reaction      *Reaction
	Removal       *MemberRemoval
	Roles         []RoleUpdate
	Session       *SessionChange
}

// Reaction is one user's emote on a message. Reactions are not cached.
type Reaction struct {
	ChannelID string
	MessageID string
	UserID    string
	Emote     wire.Emote
}

// MemberRemoval describes why a member left a server.
type MemberRemoval struct {
	UserID string
	IsKick bool
	IsBan  bool
}

// RoleUpdate is the full role set of one member after a roles update.
type RoleUpdate struct {
	UserID  string
	RoleIDs []int
}

// SessionChange carries gateway lifecycle details.
type SessionChange struct {
	// State is the session state after the transition.
	State string
	// Attempt is the reconnect attempt number, when reconnecting.
	Attempt int
	// LastMessageID is the watermark at the time of the transition.
	LastMessageID string
	// Identity is the bot identity from the Ready frame.
	Identity *wire.BotUser
	// Err is the transport failure that caused a disconnect, if any.
	Err error
}

// Validate checks envelope and payload coherence.
func (e *Event) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: nil event", ErrInvalidEvent)
	}
	if e.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidEvent)
	}
	if e.Kind == "" {
		return fmt.Errorf("%w: missing kind", ErrInvalidEvent)
	}
	if e.OccurredAt.IsZero() {
		return fmt.Errorf("%w: missing occurred_at", ErrInvalidEvent)
	}

	return validatePayloadByKind(e)
}

// validatePayloadByKind enforces payload branch requirements for each event kind.
func validatePayloadByKind(e *Event) error {
	missing := func(branch string) error {
		return fmt.Errorf("%w: %s requires %s payload", ErrInvalidEvent, e.Kind, branch)
	}

	switch e.Kind {
	case EventKindMessageCreated, EventKindMessageUpdated, EventKindMessageDeleted:
		if e.Message == nil {
			return missing("message")
		}
	case EventKindReactionAdded, EventKindReactionRemoved:
		if e.Reaction == nil {
			return missing("reaction")
		}
	case EventKindMemberJoined, EventKindMemberUpdated:
		if e.Member == nil {
			return missing("member")
		}
	case EventKindMemberRemoved:
		if e.Removal == nil {
			return missing("removal")
		}
	case EventKindMemberBanned, EventKindMemberUnbanned:
		if e.Ban == nil {
			return missing("ban")
		}
	case EventKindMemberRolesUpdated:
		if e.Roles == nil {
			return missing("roles")
		}
	case EventKindChannelCreated, EventKindChannelUpdated, EventKindChannelDeleted:
		if e.Channel == nil {
			return missing("channel")
		}
	case EventKindWebhookCreated, EventKindWebhookUpdated:
		if e.Webhook == nil {
			return missing("webhook")
		}
	case EventKindDocCreated, EventKindDocUpdated, EventKindDocDeleted:
		if e.Doc == nil {
			return missing("doc")
		}
	case EventKindCalendarEventCreated, EventKindCalendarEventUpdated, EventKindCalendarEventDeleted:
		if e.CalendarEvent == nil {
			return missing("calendar event")
		}
	case EventKindForumTopicCreated, EventKindForumTopicUpdated, EventKindForumTopicDeleted,
		EventKindForumTopicPinned, EventKindForumTopicUnpinned,
		EventKindForumTopicLocked, EventKindForumTopicUnlocked:
		if e.ForumTopic == nil {
			return missing("forum topic")
		}
	case EventKindListItemCreated, EventKindListItemUpdated, EventKindListItemDeleted,
		EventKindListItemCompleted, EventKindListItemUncompleted:
		if e.ListItem == nil {
			return missing("list item")
		}
	case EventKindServerJoined, EventKindServerLeft:
		if e.Server == nil {
			return missing("server")
		}
	case EventKindClientReady, EventKindGatewayDisconnected,
		EventKindGatewayReconnecting, EventKindGatewayResumeRequired:
		if e.Session == nil {
			return missing("session")
		}
	default:
		return fmt.Errorf("%w: unsupported kind %q", ErrInvalidEvent, e.Kind)
	}

	return nil
}

// IsLifecycle reports whether the kind describes gateway state rather than
// a remote entity.
func (k EventKind) IsLifecycle() bool {
	switch k {
	case EventKindClientReady, EventKindGatewayDisconnected,
		EventKindGatewayReconnecting, EventKindGatewayResumeRequired:
		return true
	default:
		return false
	}
}
