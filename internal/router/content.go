package router

import (
	"context"

	"guildsync/pkg/wire"
)

// Docs manages documents in a docs channel.
type Docs struct{ resource }

// Create adds a document.
func (r *Docs) Create(ctx context.Context, channelID string, body wire.DocWrite) (wire.Doc, error) {
	return call[wire.Doc](ctx, r.resource, post(path("channels", channelID, "docs"), body), "doc")
}

// Fetch returns one document.
func (r *Docs) Fetch(ctx context.Context, channelID string, docID int) (wire.Doc, error) {
	return call[wire.Doc](ctx, r.resource, get(path("channels", channelID, "docs", docID), nil), "doc")
}

// FetchAll lists documents.
func (r *Docs) FetchAll(ctx context.Context, channelID string) ([]wire.Doc, error) {
	return call[[]wire.Doc](ctx, r.resource, get(path("channels", channelID, "docs"), nil), "docs")
}

// Update replaces a document's title and content.
func (r *Docs) Update(ctx context.Context, channelID string, docID int, body wire.DocWrite) (wire.Doc, error) {
	return call[wire.Doc](ctx, r.resource, put(path("channels", channelID, "docs", docID), body), "doc")
}

// Delete removes a document.
func (r *Docs) Delete(ctx context.Context, channelID string, docID int) error {
	return exec(ctx, r.resource, del(path("channels", channelID, "docs", docID)))
}

// CalendarEvents manages events in a calendar channel.
type CalendarEvents struct{ resource }

// Create adds an event.
func (r *CalendarEvents) Create(ctx context.Context, channelID string, body wire.CalendarEventWrite) (wire.CalendarEvent, error) {
	return call[wire.CalendarEvent](ctx, r.resource, post(path("channels", channelID, "events"), body), "calendarEvent")
}

// Fetch returns one event.
func (r *CalendarEvents) Fetch(ctx context.Context, channelID string, eventID int) (wire.CalendarEvent, error) {
	return call[wire.CalendarEvent](ctx, r.resource, get(path("channels", channelID, "events", eventID), nil), "calendarEvent")
}

// FetchAll lists events.
func (r *CalendarEvents) FetchAll(ctx context.Context, channelID string) ([]wire.CalendarEvent, error) {
	return call[[]wire.CalendarEvent](ctx, r.resource, get(path("channels", channelID, "events"), nil), "calendarEvents")
}

// Update patches an event.
func (r *CalendarEvents) Update(ctx context.Context, channelID string, eventID int, body wire.CalendarEventWrite) (wire.CalendarEvent, error) {
	return call[wire.CalendarEvent](ctx, r.resource, patch(path("channels", channelID, "events", eventID), body), "calendarEvent")
}

// Delete removes an event.
func (r *CalendarEvents) Delete(ctx context.Context, channelID string, eventID int) error {
	return exec(ctx, r.resource, del(path("channels", channelID, "events", eventID)))
}

// ForumTopics manages topics in a forum channel.
type ForumTopics struct{ resource }

// Create opens a topic.
func (r *ForumTopics) Create(ctx context.Context, channelID string, body wire.ForumTopicWrite) (wire.ForumTopic, error) {
	return call[wire.ForumTopic](ctx, r.resource, post(path("channels", channelID, "topics"), body), "forumTopic")
}

// Fetch returns one topic.
func (r *ForumTopics) Fetch(ctx context.Context, channelID string, topicID int) (wire.ForumTopic, error) {
	return call[wire.ForumTopic](ctx, r.resource, get(path("channels", channelID, "topics", topicID), nil), "forumTopic")
}

// FetchAll lists topic summaries.
func (r *ForumTopics) FetchAll(ctx context.Context, channelID string) ([]wire.ForumTopic, error) {
	return call[[]wire.ForumTopic](ctx, r.resource, get(path("channels", channelID, "topics"), nil), "forumTopics")
}

// Update patches a topic.
func (r *ForumTopics) Update(ctx context.Context, channelID string, topicID int, body wire.ForumTopicWrite) (wire.ForumTopic, error) {
	return call[wire.ForumTopic](ctx, r.resource, patch(path("channels", channelID, "topics", topicID), body), "forumTopic")
}

// Delete removes a topic.
func (r *ForumTopics) Delete(ctx context.Context, channelID string, topicID int) error {
	return exec(ctx, r.resource, del(path("channels", channelID, "topics", topicID)))
}

// Pin pins a topic.
func (r *ForumTopics) Pin(ctx context.Context, channelID string, topicID int) error {
	return exec(ctx, r.resource, put(path("channels", channelID, "topics", topicID, "pin"), nil))
}

// Unpin unpins a topic.
func (r *ForumTopics) Unpin(ctx context.Context, channelID string, topicID int) error {
	return exec(ctx, r.resource, del(path("channels", channelID, "topics", topicID, "pin")))
}

// Lock locks a topic against replies.
func (r *ForumTopics) Lock(ctx context.Context, channelID string, topicID int) error {
	return exec(ctx, r.resource, put(path("channels", channelID, "topics", topicID, "lock"), nil))
}

// Unlock reopens a topic.
func (r *ForumTopics) Unlock(ctx context.Context, channelID string, topicID int) error {
	return exec(ctx, r.resource, del(path("channels", channelID, "topics", topicID, "lock")))
}

// ListItems manages items in a list channel.
type ListItems struct{ resource }

// Create adds an item.
func (r *ListItems) Create(ctx context.Context, channelID string, body wire.ListItemWrite) (wire.ListItem, error) {
	return call[wire.ListItem](ctx, r.resource, post(path("channels", channelID, "items"), body), "listItem")
}

// Fetch returns one item.
func (r *ListItems) Fetch(ctx context.Context, channelID, itemID string) (wire.ListItem, error) {
	return call[wire.ListItem](ctx, r.resource, get(path("channels", channelID, "items", itemID), nil), "listItem")
}

// FetchAll lists item summaries.
func (r *ListItems) FetchAll(ctx context.Context, channelID string) ([]wire.ListItem, error) {
	return call[[]wire.ListItem](ctx, r.resource, get(path("channels", channelID, "items"), nil), "listItems")
}

// Update replaces an item's message and note.
func (r *ListItems) Update(ctx context.Context, channelID, itemID string, body wire.ListItemWrite) (wire.ListItem, error) {
	return call[wire.ListItem](ctx, r.resource, put(path("channels", channelID, "items", itemID), body), "listItem")
}

// Delete removes an item.
func (r *ListItems) Delete(ctx context.Context, channelID, itemID string) error {
	return exec(ctx, r.resource, del(path("channels", channelID, "items", itemID)))
}

// Complete checks an item off.
func (r *ListItems) Complete(ctx context.Context, channelID, itemID string) error {
	return exec(ctx, r.resource, post(path("channels", channelID, "items", itemID, "complete"), nil))
}

// Uncomplete clears an item's completion.
func (r *ListItems) Uncomplete(ctx context.Context, channelID, itemID string) error {
	return exec(ctx, r.resource, del(path("channels", channelID, "items", itemID, "complete")))
}
