package router

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"guildsync/pkg/wire"
)

// Channels manages server channels.
type Channels struct{ resource }

// Create adds a channel to a server.
func (r *Channels) Create(ctx context.Context, serverID string, body wire.ChannelCreate) (wire.ServerChannel, error) {
	payload := struct {
		wire.ChannelCreate
		ServerID string `json:"serverId"`
	}{ChannelCreate: body, ServerID: serverID}

	return call[wire.ServerChannel](ctx, r.resource, post(path("channels"), payload), "channel")
}

// Fetch returns one channel.
func (r *Channels) Fetch(ctx context.Context, channelID string) (wire.ServerChannel, error) {
	return call[wire.ServerChannel](ctx, r.resource, get(path("channels", channelID), nil), "channel")
}

// Update patches a channel.
func (r *Channels) Update(ctx context.Context, channelID string, body wire.ChannelUpdate) (wire.ServerChannel, error) {
	return call[wire.ServerChannel](ctx, r.resource, patch(path("channels", channelID), body), "channel")
}

// Delete removes a channel.
func (r *Channels) Delete(ctx context.Context, channelID string) error {
	return exec(ctx, r.resource, del(path("channels", channelID)))
}

// Messages manages chat messages.
type Messages struct{ resource }

// Create posts a message.
func (r *Messages) Create(ctx context.Context, channelID string, body wire.MessageCreate) (wire.ChatMessage, error) {
	return call[wire.ChatMessage](ctx, r.resource, post(path("channels", channelID, "messages"), body), "message")
}

// Fetch returns one message.
func (r *Messages) Fetch(ctx context.Context, channelID, messageID string) (wire.ChatMessage, error) {
	return call[wire.ChatMessage](ctx, r.resource, get(path("channels", channelID, "messages", messageID), nil), "message")
}

// FetchAll lists recent messages.
func (r *Messages) FetchAll(ctx context.Context, channelID string, query wire.MessageListQuery) ([]wire.ChatMessage, error) {
	return call[[]wire.ChatMessage](ctx, r.resource,
		get(path("channels", channelID, "messages"), messageQuery(query)),
		"messages",
	)
}

// Update edits a message.
func (r *Messages) Update(ctx context.Context, channelID, messageID string, body wire.MessageUpdate) (wire.ChatMessage, error) {
	return call[wire.ChatMessage](ctx, r.resource, put(path("channels", channelID, "messages", messageID), body), "message")
}

// Delete removes a message.
func (r *Messages) Delete(ctx context.Context, channelID, messageID string) error {
	return exec(ctx, r.resource, del(path("channels", channelID, "messages", messageID)))
}

func messageQuery(query wire.MessageListQuery) url.Values {
	values := url.Values{}
	if query.Before != nil {
		values.Set("before", query.Before.UTC().Format(time.RFC3339Nano))
	}
	if query.After != nil {
		values.Set("after", query.After.UTC().Format(time.RFC3339Nano))
	}
	if query.Limit > 0 {
		values.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.IncludePrivate {
		values.Set("includePrivate", "true")
	}
	if len(values) == 0 {
		return nil
	}

	return values
}

// Reactions manages emote reactions on channel content.
type Reactions struct{ resource }

// Add reacts to content with an emote.
func (r *Reactions) Add(ctx context.Context, channelID, contentID string, emoteID int) error {
	return exec(ctx, r.resource, put(path("channels", channelID, "content", contentID, "emotes", emoteID), nil))
}

// Remove withdraws the bot's reaction.
func (r *Reactions) Remove(ctx context.Context, channelID, contentID string, emoteID int) error {
	return exec(ctx, r.resource, del(path("channels", channelID, "content", contentID, "emotes", emoteID)))
}
