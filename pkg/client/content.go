package client

import (
	"context"
	"fmt"

	"guildsync/pkg/guildsync"
	"guildsync/pkg/wire"
)

// MessageService manages chat messages.
type MessageService struct{ c *Client }

// Create posts a message to channelID.
func (s *MessageService) Create(ctx context.Context, channelID string, body wire.MessageCreate) (*guildsync.Message, error) {
	payload, err := s.c.router.Messages.Create(ctx, channelID, body)
	if err != nil {
		return nil, fmt.Errorf("create message in %s: %w", channelID, err)
	}

	return writeThrough(payload, s.c.store.UpsertMessage, guildsync.NewMessage)
}

// Send posts plain content, optionally with embeds built by guildsync.NewEmbed.
func (s *MessageService) Send(ctx context.Context, channelID, content string, embeds ...wire.ChatEmbed) (*guildsync.Message, error) {
	return s.Create(ctx, channelID, wire.MessageCreate{Content: content, Embeds: embeds})
}

// Reply posts content replying to messageIDs.
func (s *MessageService) Reply(ctx context.Context, channelID, content string, messageIDs ...string) (*guildsync.Message, error) {
	return s.Create(ctx, channelID, wire.MessageCreate{Content: content, ReplyMessageIDs: messageIDs})
}

// Get returns a cached message, fetching it when absent unless cacheOnly.
func (s *MessageService) Get(ctx context.Context, channelID, messageID string, cacheOnly bool) (*guildsync.Message, error) {
	if message, ok := s.c.store.Message(channelID, messageID); ok {
		return message, nil
	}
	if cacheOnly {
		return nil, &guildsync.ResolutionError{Kind: guildsync.EntityKindMessage, ID: messageID}
	}

	return s.Fetch(ctx, channelID, messageID)
}

// Fetch loads one message and caches it.
func (s *MessageService) Fetch(ctx context.Context, channelID, messageID string) (*guildsync.Message, error) {
	payload, err := s.c.router.Messages.Fetch(ctx, channelID, messageID)
	if err != nil {
		return nil, fmt.Errorf("fetch message %s: %w", messageID, err)
	}

	return writeThrough(payload, s.c.store.UpsertMessage, guildsync.NewMessage)
}

// FetchAll lists recent messages of channelID.
func (s *MessageService) FetchAll(ctx context.Context, channelID string, query wire.MessageListQuery) ([]*guildsync.Message, error) {
	payloads, err := s.c.router.Messages.FetchAll(ctx, channelID, query)
	if err != nil {
		return nil, fmt.Errorf("fetch messages of %s: %w", channelID, err)
	}

	return writeThroughAll(payloads, s.c.store.UpsertMessage, guildsync.NewMessage)
}

// Update edits a message.
func (s *MessageService) Update(ctx context.Context, channelID, messageID string, body wire.MessageUpdate) (*guildsync.Message, error) {
	payload, err := s.c.router.Messages.Update(ctx, channelID, messageID, body)
	if err != nil {
		return nil, fmt.Errorf("update message %s: %w", messageID, err)
	}

	return writeThrough(payload, s.c.store.UpsertMessage, guildsync.NewMessage)
}

// Delete removes a message.
func (s *MessageService) Delete(ctx context.Context, channelID, messageID string) error {
	if err := s.c.router.Messages.Delete(ctx, channelID, messageID); err != nil {
		return fmt.Errorf("delete message %s: %w", messageID, err)
	}
	s.c.store.RemoveMessage(channelID, messageID)

	return nil
}

// ReactionService adds and removes emotes on channel content. Reactions
// are not cached.
type ReactionService struct{ c *Client }

// Add reacts to contentID with emoteID.
func (s *ReactionService) Add(ctx context.Context, channelID, contentID string, emoteID int) error {
	if err := s.c.router.Reactions.Add(ctx, channelID, contentID, emoteID); err != nil {
		return fmt.Errorf("add reaction to %s: %w", contentID, err)
	}

	return nil
}

// Remove deletes the bot's emoteID reaction from contentID.
func (s *ReactionService) Remove(ctx context.Context, channelID, contentID string, emoteID int) error {
	if err := s.c.router.Reactions.Remove(ctx, channelID, contentID, emoteID); err != nil {
		return fmt.Errorf("remove reaction from %s: %w", contentID, err)
	}

	return nil
}

// DocService manages docs.
type DocService struct{ c *Client }

// Create adds a doc to channelID.
func (s *DocService) Create(ctx context.Context, channelID string, body wire.DocWrite) (*guildsync.Doc, error) {
	payload, err := s.c.router.Docs.Create(ctx, channelID, body)
	if err != nil {
		return nil, fmt.Errorf("create doc in %s: %w", channelID, err)
	}

	return writeThrough(payload, s.c.store.UpsertDoc, guildsync.NewDoc)
}

// Fetch loads one doc.
func (s *DocService) Fetch(ctx context.Context, channelID string, docID int) (*guildsync.Doc, error) {
	payload, err := s.c.router.Docs.Fetch(ctx, channelID, docID)
	if err != nil {
		return nil, fmt.Errorf("fetch doc %d: %w", docID, err)
	}

	return writeThrough(payload, s.c.store.UpsertDoc, guildsync.NewDoc)
}

// FetchAll lists the docs of channelID.
func (s *DocService) FetchAll(ctx context.Context, channelID string) ([]*guildsync.Doc, error) {
	payloads, err := s.c.router.Docs.FetchAll(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("fetch docs of %s: %w", channelID, err)
	}

	return writeThroughAll(payloads, s.c.store.UpsertDoc, guildsync.NewDoc)
}

// Update rewrites a doc.
func (s *DocService) Update(ctx context.Context, channelID string, docID int, body wire.DocWrite) (*guildsync.Doc, error) {
	payload, err := s.c.router.Docs.Update(ctx, channelID, docID, body)
	if err != nil {
		return nil, fmt.Errorf("update doc %d: %w", docID, err)
	}

	return writeThrough(payload, s.c.store.UpsertDoc, guildsync.NewDoc)
}

// Delete removes a doc.
func (s *DocService) Delete(ctx context.Context, channelID string, docID int) error {
	if err := s.c.router.Docs.Delete(ctx, channelID, docID); err != nil {
		return fmt.Errorf("delete doc %d: %w", docID, err)
	}
	s.c.store.RemoveDoc(channelID, docID)

	return nil
}

// CalendarEventService manages calendar events.
type CalendarEventService struct{ c *Client }

// Create schedules an event in channelID.
func (s *CalendarEventService) Create(ctx context.Context, channelID string, body wire.CalendarEventWrite) (*guildsync.CalendarEvent, error) {
	payload, err := s.c.router.CalendarEvents.Create(ctx, channelID, body)
	if err != nil {
		return nil, fmt.Errorf("create calendar event in %s: %w", channelID, err)
	}

	return writeThrough(payload, s.c.store.UpsertCalendarEvent, guildsync.NewCalendarEvent)
}

// Fetch loads one calendar event.
func (s *CalendarEventService) Fetch(ctx context.Context, channelID string, eventID int) (*guildsync.CalendarEvent, error) {
	payload, err := s.c.router.CalendarEvents.Fetch(ctx, channelID, eventID)
	if err != nil {
		return nil, fmt.Errorf("fetch calendar event %d: %w", eventID, err)
	}

	return writeThrough(payload, s.c.store.UpsertCalendarEvent, guildsync.NewCalendarEvent)
}

// FetchAll lists the events of channelID.
func (s *CalendarEventService) FetchAll(ctx context.Context, channelID string) ([]*guildsync.CalendarEvent, error) {
	payloads, err := s.c.router.CalendarEvents.FetchAll(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("fetch calendar events of %s: %w", channelID, err)
	}

	return writeThroughAll(payloads, s.c.store.UpsertCalendarEvent, guildsync.NewCalendarEvent)
}

// Update reschedules or edits an event.
func (s *CalendarEventService) Update(ctx context.Context, channelID string, eventID int, body wire.CalendarEventWrite) (*guildsync.CalendarEvent, error) {
	payload, err := s.c.router.CalendarEvents.Update(ctx, channelID, eventID, body)
	if err != nil {
		return nil, fmt.Errorf("update calendar event %d: %w", eventID, err)
	}

	return writeThrough(payload, s.c.store.UpsertCalendarEvent, guildsync.NewCalendarEvent)
}

// Delete removes an event.
func (s *CalendarEventService) Delete(ctx context.Context, channelID string, eventID int) error {
	if err := s.c.router.CalendarEvents.Delete(ctx, channelID, eventID); err != nil {
		return fmt.Errorf("delete calendar event %d: %w", eventID, err)
	}
	s.c.store.RemoveCalendarEvent(channelID, eventID)

	return nil
}

// ForumTopicService manages forum topics. Pin and lock calls return no body;
// the cached flags follow the gateway event.
type ForumTopicService struct{ c *Client }

// Create opens a topic in channelID.
func (s *ForumTopicService) Create(ctx context.Context, channelID string, body wire.ForumTopicWrite) (*guildsync.ForumTopic, error) {
	payload, err := s.c.router.ForumTopics.Create(ctx, channelID, body)
	if err != nil {
		return nil, fmt.Errorf("create forum topic in %s: %w", channelID, err)
	}

	return writeThrough(payload, s.c.store.UpsertForumTopic, guildsync.NewForumTopic)
}

// Fetch loads one topic.
func (s *ForumTopicService) Fetch(ctx context.Context, channelID string, topicID int) (*guildsync.ForumTopic, error) {
	payload, err := s.c.router.ForumTopics.Fetch(ctx, channelID, topicID)
	if err != nil {
		return nil, fmt.Errorf("fetch forum topic %d: %w", topicID, err)
	}

	return writeThrough(payload, s.c.store.UpsertForumTopic, guildsync.NewForumTopic)
}

// FetchAll lists the topics of channelID.
func (s *ForumTopicService) FetchAll(ctx context.Context, channelID string) ([]*guildsync.ForumTopic, error) {
	payloads, err := s.c.router.ForumTopics.FetchAll(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("fetch forum topics of %s: %w", channelID, err)
	}

	return writeThroughAll(payloads, s.c.store.UpsertForumTopic, guildsync.NewForumTopic)
}

// Update edits a topic.
func (s *ForumTopicService) Update(ctx context.Context, channelID string, topicID int, body wire.ForumTopicWrite) (*guildsync.ForumTopic, error) {
	payload, err := s.c.router.ForumTopics.Update(ctx, channelID, topicID, body)
	if err != nil {
		return nil, fmt.Errorf("update forum topic %d: %w", topicID, err)
	}

	return writeThrough(payload, s.c.store.UpsertForumTopic, guildsync.NewForumTopic)
}

// Delete removes a topic.
func (s *ForumTopicService) Delete(ctx context.Context, channelID string, topicID int) error {
	if err := s.c.router.ForumTopics.Delete(ctx, channelID, topicID); err != nil {
		return fmt.Errorf("delete forum topic %d: %w", topicID, err)
	}
	s.c.store.RemoveForumTopic(channelID, topicID)

	return nil
}

// Pin pins a topic.
func (s *ForumTopicService) Pin(ctx context.Context, channelID string, topicID int) error {
	if err := s.c.router.ForumTopics.Pin(ctx, channelID, topicID); err != nil {
		return fmt.Errorf("pin forum topic %d: %w", topicID, err)
	}

	return nil
}

// Unpin unpins a topic.
func (s *ForumTopicService) Unpin(ctx context.Context, channelID string, topicID int) error {
	if err := s.c.router.ForumTopics.Unpin(ctx, channelID, topicID); err != nil {
		return fmt.Errorf("unpin forum topic %d: %w", topicID, err)
	}

	return nil
}

// Lock locks a topic.
func (s *ForumTopicService) Lock(ctx context.Context, channelID string, topicID int) error {
	if err := s.c.router.ForumTopics.Lock(ctx, channelID, topicID); err != nil {
		return fmt.Errorf("lock forum topic %d: %w", topicID, err)
	}

	return nil
}

// Unlock unlocks a topic.
func (s *ForumTopicService) Unlock(ctx context.Context, channelID string, topicID int) error {
	if err := s.c.router.ForumTopics.Unlock(ctx, channelID, topicID); err != nil {
		return fmt.Errorf("unlock forum topic %d: %w", topicID, err)
	}

	return nil
}

// ListItemService manages list items. Completion calls return no body; the
// cached state follows the gateway event.
type ListItemService struct{ c *Client }

// Create adds an item to channelID.
func (s *ListItemService) Create(ctx context.Context, channelID string, body wire.ListItemWrite) (*guildsync.ListItem, error) {
	payload, err := s.c.router.ListItems.Create(ctx, channelID, body)
	if err != nil {
		return nil, fmt.Errorf("create list item in %s: %w", channelID, err)
	}

	return writeThrough(payload, s.c.store.UpsertListItem, guildsync.NewListItem)
}

// Fetch loads one item.
func (s *ListItemService) Fetch(ctx context.Context, channelID, itemID string) (*guildsync.ListItem, error) {
	payload, err := s.c.router.ListItems.Fetch(ctx, channelID, itemID)
	if err != nil {
		return nil, fmt.Errorf("fetch list item %s: %w", itemID, err)
	}

	return writeThrough(payload, s.c.store.UpsertListItem, guildsync.NewListItem)
}

// FetchAll lists the items of channelID.
func (s *ListItemService) FetchAll(ctx context.Context, channelID string) ([]*guildsync.ListItem, error) {
	payloads, err := s.c.router.ListItems.FetchAll(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("fetch list items of %s: %w", channelID, err)
	}

	return writeThroughAll(payloads, s.c.store.UpsertListItem, guildsync.NewListItem)
}

// Update edits an item.
func (s *ListItemService) Update(ctx context.Context, channelID, itemID string, body wire.ListItemWrite) (*guildsync.ListItem, error) {
	payload, err := s.c.router.ListItems.Update(ctx, channelID, itemID, body)
	if err != nil {
		return nil, fmt.Errorf("update list item %s: %w", itemID, err)
	}

	return writeThrough(payload, s.c.store.UpsertListItem, guildsync.NewListItem)
}

// Delete removes an item.
func (s *ListItemService) Delete(ctx context.Context, channelID, itemID string) error {
	if err := s.c.router.ListItems.Delete(ctx, channelID, itemID); err != nil {
		return fmt.Errorf("delete list item %s: %w", itemID, err)
	}
	s.c.store.RemoveListItem(channelID, itemID)

	return nil
}

// Complete marks an item done.
func (s *ListItemService) Complete(ctx context.Context, channelID, itemID string) error {
	if err := s.c.router.ListItems.Complete(ctx, channelID, itemID); err != nil {
		return fmt.Errorf("complete list item %s: %w", itemID, err)
	}

	return nil
}

// Uncomplete reopens an item.
func (s *ListItemService) Uncomplete(ctx context.Context, channelID, itemID string) error {
	if err := s.c.router.ListItems.Uncomplete(ctx, channelID, itemID); err != nil {
		return fmt.Errorf("uncomplete list item %s: %w", itemID, err)
	}

	return nil
}
