package wire

import (
	"encoding/json"
	"time"
)

// Opcode selects how a gateway frame is interpreted.
type Opcode int

const (
	// OpEvent carries a named event payload.
	OpEvent Opcode = 0
	// OpReady is sent once per transport after a successful handshake.
	OpReady Opcode = 1
	// OpResume tells the client its backlog could not be replayed.
	OpResume Opcode = 2
)

// Frame is one inbound gateway message.
type Frame struct {
	Op Opcode          `json:"op"`
	T  string          `json:"t,omitempty"`
	D  json.RawMessage `json:"d,omitempty"`
	S  string          `json:"s,omitempty"`
}

// Ready is the payload of an OpReady frame.
type Ready struct {
	LastMessageID       string  `json:"lastMessageId"`
	User                BotUser `json:"user"`
	HeartbeatIntervalMS int     `json:"heartbeatIntervalMs"`
}

// BotUser identifies the authenticated bot.
type BotUser struct {
	ID        string    `json:"id"`
	BotID     string    `json:"botId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy string    `json:"createdBy"`
}

// ChatMessageEvent is the payload of ChatMessageCreated and ChatMessageUpdated.
type ChatMessageEvent struct {
	ServerID string      `json:"serverId"`
	Message  ChatMessage `json:"message"`
}

// ChatMessageDeletedEvent is the payload of ChatMessageDeleted.
type ChatMessageDeletedEvent struct {
	ServerID string             `json:"serverId"`
	Message  DeletedChatMessage `json:"message"`
}

// DeletedChatMessage is the reduced message shape sent on deletion.
type DeletedChatMessage struct {
	ID        string    `json:"id"`
	ServerID  string    `json:"serverId,omitempty"`
	ChannelID string    `json:"channelId"`
	DeletedAt time.Time `json:"deletedAt"`
	IsPrivate bool      `json:"isPrivate,omitempty"`
}

// ReactionEvent is the payload of ChannelMessageReactionCreated and Deleted.
type ReactionEvent struct {
	ServerID string                 `json:"serverId"`
	Reaction ChannelMessageReaction `json:"reaction"`
}

// ServerMemberJoinedEvent is the payload of ServerMemberJoined.
type ServerMemberJoinedEvent struct {
	ServerID string       `json:"serverId"`
	Member   ServerMember `json:"member"`
}

// ServerMemberRemovedEvent is the payload of ServerMemberRemoved.
type ServerMemberRemovedEvent struct {
	ServerID string `json:"serverId"`
	UserID   string `json:"userId"`
	IsKick   bool   `json:"isKick,omitempty"`
	IsBan    bool   `json:"isBan,omitempty"`
}

// ServerMemberUpdatedEvent is the payload of ServerMemberUpdated.
type ServerMemberUpdatedEvent struct {
	ServerID string         `json:"serverId"`
	UserInfo MemberUserInfo `json:"userInfo"`
}

// MemberUserInfo carries the changed member attributes.
type MemberUserInfo struct {
	ID       string  `json:"id"`
	Nickname *string `json:"nickname,omitempty"`
}

// ServerMemberBanEvent is the payload of ServerMemberBanned and Unbanned.
type ServerMemberBanEvent struct {
	ServerID        string          `json:"serverId"`
	ServerMemberBan ServerMemberBan `json:"serverMemberBan"`
}

// ServerRolesUpdatedEvent is the payload of ServerRolesUpdated.
type ServerRolesUpdatedEvent struct {
	ServerID      string          `json:"serverId"`
	MemberRoleIDs []MemberRoleIDs `json:"memberRoleIds"`
}

// MemberRoleIDs is the full role set of one member.
type MemberRoleIDs struct {
	UserID  string `json:"userId"`
	RoleIDs []int  `json:"roleIds"`
}

// ServerChannelEvent is the payload of ServerChannelCreated, Updated and Deleted.
type ServerChannelEvent struct {
	ServerID string        `json:"serverId"`
	Channel  ServerChannel `json:"channel"`
}

// ServerWebhookEvent is the payload of ServerWebhookCreated and Updated.
type ServerWebhookEvent struct {
	ServerID string  `json:"serverId"`
	Webhook  Webhook `json:"webhook"`
}

// DocEvent is the payload of every Doc* event.
type DocEvent struct {
	ServerID string `json:"serverId"`
	Doc      Doc    `json:"doc"`
}

// CalendarEventEvent is the payload of every CalendarEvent* event.
type CalendarEventEvent struct {
	ServerID      string        `json:"serverId"`
	CalendarEvent CalendarEvent `json:"calendarEvent"`
}

// ForumTopicEvent is the payload of every ForumTopic* event.
type ForumTopicEvent struct {
	ServerID   string     `json:"serverId"`
	ForumTopic ForumTopic `json:"forumTopic"`
}

// ListItemEvent is the payload of every ListItem* event.
type ListItemEvent struct {
	ServerID string   `json:"serverId"`
	ListItem ListItem `json:"listItem"`
}

// BotServerMembershipEvent is the payload of BotServerMembershipCreated and Deleted.
type BotServerMembershipEvent struct {
	Server    Server `json:"server"`
	CreatedBy string `json:"createdBy,omitempty"`
	DeletedBy string `json:"deletedBy,omitempty"`
}
