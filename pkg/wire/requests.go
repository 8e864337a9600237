package wire

import "time"

// MessageCreate is the body of a message create call.
type MessageCreate struct {
	Content         string      `json:"content,omitempty"`
	Embeds          []ChatEmbed `json:"embeds,omitempty"`
	ReplyMessageIDs []string    `json:"replyMessageIds,omitempty"`
	IsPrivate       bool        `json:"isPrivate,omitempty"`
	IsSilent        bool        `json:"isSilent,omitempty"`
}

// MessageUpdate is the body of a message update call.
type MessageUpdate struct {
	Content *string     `json:"content,omitempty"`
	Embeds  []ChatEmbed `json:"embeds,omitempty"`
}

// MessageListQuery filters a message listing.
type MessageListQuery struct {
	Before         *time.Time
	After          *time.Time
	Limit          int
	IncludePrivate bool
}

// ChannelCreate is the body of a channel create call.
type ChannelCreate struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Topic      string `json:"topic,omitempty"`
	IsPublic   bool   `json:"isPublic,omitempty"`
	GroupID    string `json:"groupId,omitempty"`
	CategoryID int    `json:"categoryId,omitempty"`
	ParentID   string `json:"parentId,omitempty"`
}

// ChannelUpdate is the body of a channel update call.
type ChannelUpdate struct {
	Name     *string `json:"name,omitempty"`
	Topic    *string `json:"topic,omitempty"`
	IsPublic *bool   `json:"isPublic,omitempty"`
}

// BanCreate is the body of a ban create call.
type BanCreate struct {
	Reason string `json:"reason,omitempty"`
}

// NicknameUpdate is the body of a nickname update call.
type NicknameUpdate struct {
	Nickname string `json:"nickname"`
}

// DocWrite is the body of a doc create or update call.
type DocWrite struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// CalendarEventWrite is the body of a calendar event create or update call.
type CalendarEventWrite struct {
	Name        string     `json:"name,omitempty"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	StartsAt    *time.Time `json:"startsAt,omitempty"`
	URL         string     `json:"url,omitempty"`
	Color       int        `json:"color,omitempty"`
	Duration    int        `json:"duration,omitempty"`
	IsPrivate   bool       `json:"isPrivate,omitempty"`
}

// ForumTopicWrite is the body of a forum topic create or update call.
type ForumTopicWrite struct {
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
}

// ListItemNoteWrite is the note part of a list item write.
type ListItemNoteWrite struct {
	Content string `json:"content"`
}

// ListItemWrite is the body of a list item create or update call.
type ListItemWrite struct {
	Message string             `json:"message"`
	Note    *ListItemNoteWrite `json:"note,omitempty"`
}

// WebhookCreate is the body of a webhook create call.
type WebhookCreate struct {
	Name      string `json:"name"`
	ChannelID string `json:"channelId"`
}

// WebhookUpdate is the body of a webhook update call.
type WebhookUpdate struct {
	Name      string `json:"name"`
	ChannelID string `json:"channelId,omitempty"`
}
