// Package wire declares the JSON payload shapes exchanged with the remote
// service over REST and the gateway.
//
// Mutable attributes are pointers (or nil-able slices) so that a partial
// payload can be told apart from an explicit zero value: a nil field means
// "not present", never "clear".
package wire

import "time"

// User is a platform account.
type User struct {
	ID        string     `json:"id"`
	Type      *string    `json:"type,omitempty"`
	Name      *string    `json:"name,omitempty"`
	Avatar    *string    `json:"avatar,omitempty"`
	Banner    *string    `json:"banner,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// Server is a guild-like community.
type Server struct {
	ID               string    `json:"id"`
	OwnerID          string    `json:"ownerId"`
	Type             *string   `json:"type,omitempty"`
	Name             *string   `json:"name,omitempty"`
	URL              *string   `json:"url,omitempty"`
	About            *string   `json:"about,omitempty"`
	Avatar           *string   `json:"avatar,omitempty"`
	Banner           *string   `json:"banner,omitempty"`
	Timezone         *string   `json:"timezone,omitempty"`
	IsVerified       *bool     `json:"isVerified,omitempty"`
	DefaultChannelID *string   `json:"defaultChannelId,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// ServerChannel is a channel inside a server.
type ServerChannel struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	ServerID   string     `json:"serverId"`
	GroupID    string     `json:"groupId,omitempty"`
	Name       *string    `json:"name,omitempty"`
	Topic      *string    `json:"topic,omitempty"`
	ParentID   *string    `json:"parentId,omitempty"`
	CategoryID *int       `json:"categoryId,omitempty"`
	IsPublic   *bool      `json:"isPublic,omitempty"`
	ArchivedBy *string    `json:"archivedBy,omitempty"`
	ArchivedAt *time.Time `json:"archivedAt,omitempty"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	CreatedBy  string     `json:"createdBy"`
}

// ServerMember is a user's membership in a server.
type ServerMember struct {
	User     User    `json:"user"`
	RoleIDs  []int   `json:"roleIds,omitempty"`
	Nickname *string `json:"nickname,omitempty"`
	IsOwner  *bool   `json:"isOwner,omitempty"`
	// JoinedAt is set once on join.
	JoinedAt time.Time `json:"joinedAt"`
}

// ServerMemberBan records a ban issued in a server.
type ServerMemberBan struct {
	User      User      `json:"user"`
	Reason    *string   `json:"reason,omitempty"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// Mentions lists entities referenced by message content.
type Mentions struct {
	Users    []MentionRef `json:"users,omitempty"`
	Channels []MentionRef `json:"channels,omitempty"`
	Roles    []RoleRef    `json:"roles,omitempty"`
	Everyone bool         `json:"everyone,omitempty"`
	Here     bool         `json:"here,omitempty"`
}

// MentionRef references a user or channel by id.
type MentionRef struct {
	ID string `json:"id"`
}

// RoleRef references a role by id.
type RoleRef struct {
	ID int `json:"id"`
}

// ChatMessage is a message posted in a chat channel.
type ChatMessage struct {
	ID                 string      `json:"id"`
	Type               *string     `json:"type,omitempty"`
	ServerID           string      `json:"serverId,omitempty"`
	GroupID            string      `json:"groupId,omitempty"`
	ChannelID          string      `json:"channelId"`
	Content            *string     `json:"content,omitempty"`
	Embeds             []ChatEmbed `json:"embeds,omitempty"`
	ReplyMessageIDs    []string    `json:"replyMessageIds,omitempty"`
	IsPrivate          *bool       `json:"isPrivate,omitempty"`
	IsSilent           *bool       `json:"isSilent,omitempty"`
	IsPinned           *bool       `json:"isPinned,omitempty"`
	Mentions           *Mentions   `json:"mentions,omitempty"`
	CreatedAt          time.Time   `json:"createdAt"`
	CreatedBy          string      `json:"createdBy"`
	CreatedByWebhookID string      `json:"createdByWebhookId,omitempty"`
	UpdatedAt          *time.Time  `json:"updatedAt,omitempty"`
	DeletedAt          *time.Time  `json:"deletedAt,omitempty"`
}

// ChatEmbed is a rich display block attached to a message.
type ChatEmbed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Timestamp   *time.Time   `json:"timestamp,omitempty"`
	Thumbnail   *EmbedMedia  `json:"thumbnail,omitempty"`
	Image       *EmbedMedia  `json:"image,omitempty"`
	Author      *EmbedAuthor `json:"author,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
}

// EmbedFooter is the footer line of an embed.
type EmbedFooter struct {
	IconURL string `json:"icon_url,omitempty"`
	Text    string `json:"text"`
}

// EmbedMedia references an image.
type EmbedMedia struct {
	URL string `json:"url"`
}

// EmbedAuthor is the author line of an embed.
type EmbedAuthor struct {
	Name    string `json:"name,omitempty"`
	URL     string `json:"url,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

// EmbedField is one name/value cell of an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Doc is a document in a docs channel.
type Doc struct {
	ID        int        `json:"id"`
	ServerID  string     `json:"serverId"`
	ChannelID string     `json:"channelId"`
	Title     *string    `json:"title,omitempty"`
	Content   *string    `json:"content,omitempty"`
	Mentions  *Mentions  `json:"mentions,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	CreatedBy string     `json:"createdBy"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	UpdatedBy *string    `json:"updatedBy,omitempty"`
}

// CalendarEventCancellation describes why an event was cancelled.
type CalendarEventCancellation struct {
	Description string `json:"description,omitempty"`
	CreatedBy   string `json:"createdBy"`
}

// CalendarEvent is an event in a calendar channel.
type CalendarEvent struct {
	ID           int                        `json:"id"`
	ServerID     string                     `json:"serverId"`
	ChannelID    string                     `json:"channelId"`
	Name         *string                    `json:"name,omitempty"`
	Description  *string                    `json:"description,omitempty"`
	Location     *string                    `json:"location,omitempty"`
	URL          *string                    `json:"url,omitempty"`
	Color        *int                       `json:"color,omitempty"`
	StartsAt     *time.Time                 `json:"startsAt,omitempty"`
	Duration     *int                       `json:"duration,omitempty"`
	IsPrivate    *bool                      `json:"isPrivate,omitempty"`
	Cancellation *CalendarEventCancellation `json:"cancellation,omitempty"`
	CreatedAt    time.Time                  `json:"createdAt"`
	CreatedBy    string                     `json:"createdBy"`
}

// ForumTopic is a topic in a forum channel.
type ForumTopic struct {
	ID        int        `json:"id"`
	ServerID  string     `json:"serverId"`
	ChannelID string     `json:"channelId"`
	Title     *string    `json:"title,omitempty"`
	Content   *string    `json:"content,omitempty"`
	IsPinned  *bool      `json:"isPinned,omitempty"`
	IsLocked  *bool      `json:"isLocked,omitempty"`
	BumpedAt  *time.Time `json:"bumpedAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	CreatedBy string     `json:"createdBy"`
}

// ListItemNote is the optional note body of a list item.
type ListItemNote struct {
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"createdAt"`
	CreatedBy string     `json:"createdBy"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	UpdatedBy string     `json:"updatedBy,omitempty"`
}

// ListItem is an entry in a list channel.
type ListItem struct {
	ID               string        `json:"id"`
	ServerID         string        `json:"serverId"`
	ChannelID        string        `json:"channelId"`
	Message          *string       `json:"message,omitempty"`
	Note             *ListItemNote `json:"note,omitempty"`
	ParentListItemID *string       `json:"parentListItemId,omitempty"`
	CompletedAt      *time.Time    `json:"completedAt,omitempty"`
	CompletedBy      *string       `json:"completedBy,omitempty"`
	UpdatedAt        *time.Time    `json:"updatedAt,omitempty"`
	UpdatedBy        *string       `json:"updatedBy,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	CreatedBy        string        `json:"createdBy"`
}

// Webhook is an incoming webhook bound to a channel.
type Webhook struct {
	ID        string     `json:"id"`
	ServerID  string     `json:"serverId"`
	ChannelID *string    `json:"channelId,omitempty"`
	Name      *string    `json:"name,omitempty"`
	Token     *string    `json:"token,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	CreatedBy string     `json:"createdBy"`
}

// Emote is a reaction emote.
type Emote struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ChannelMessageReaction is one user's reaction on a message.
type ChannelMessageReaction struct {
	ChannelID string `json:"channelId"`
	MessageID string `json:"messageId"`
	CreatedBy string `json:"createdBy"`
	Emote     Emote  `json:"emote"`
}

// ErrorBody is the body of every non-2xx REST response.
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Meta    map[string]any `json:"meta,omitempty"`
}
