package dispatch

import (
	"context"
	"fmt"

	"guildsync/internal/gateway"
	"guildsync/pkg/guildsync"
	"guildsync/pkg/wire"
)

// apply runs the handler for name and returns the event to publish.
func (d *Dispatcher) apply(ctx context.Context, name WireEvent, frame gateway.EventFrame) (*guildsync.Event, error) {
	switch name {
	case ChatMessageCreated:
		return d.messageUpserted(ctx, frame, guildsync.EventKindMessageCreated)
	case ChatMessageUpdated:
		return d.messageUpserted(ctx, frame, guildsync.EventKindMessageUpdated)
	case ChatMessageDeleted:
		return d.messageDeleted(frame)

	case ChannelMessageReactionCreated:
		return d.reaction(frame, guildsync.EventKindReactionAdded)
	case ChannelMessageReactionDeleted:
		return d.reaction(frame, guildsync.EventKindReactionRemoved)

	case ServerMemberJoined:
		return d.memberJoined(ctx, frame)
	case ServerMemberRemoved:
		return d.memberRemoved(frame)
	case ServerMemberUpdated:
		return d.memberUpdated(ctx, frame)
	case ServerMemberBanned:
		return d.memberBanned(ctx, frame)
	case ServerMemberUnbanned:
		return d.memberUnbanned(frame)
	case ServerRolesUpdated:
		return d.rolesUpdated(frame)

	case ServerChannelCreated:
		return d.channelUpserted(ctx, frame, guildsync.EventKindChannelCreated)
	case ServerChannelUpdated:
		return d.channelUpserted(ctx, frame, guildsync.EventKindChannelUpdated)
	case ServerChannelDeleted:
		return d.channelDeleted(frame)

	case ServerWebhookCreated:
		return d.webhookUpserted(ctx, frame, guildsync.EventKindWebhookCreated)
	case ServerWebhookUpdated:
		return d.webhookUpserted(ctx, frame, guildsync.EventKindWebhookUpdated)

	case DocCreated:
		return d.docUpserted(ctx, frame, guildsync.EventKindDocCreated)
	case DocUpdated:
		return d.docUpserted(ctx, frame, guildsync.EventKindDocUpdated)
	case DocDeleted:
		return d.docDeleted(frame)

	case CalendarEventCreated:
		return d.calendarEventUpserted(ctx, frame, guildsync.EventKindCalendarEventCreated)
	case CalendarEventUpdated:
		return d.calendarEventUpserted(ctx, frame, guildsync.EventKindCalendarEventUpdated)
	case CalendarEventDeleted:
		return d.calendarEventDeleted(frame)

	case ForumTopicCreated:
		return d.forumTopicUpserted(ctx, frame, guildsync.EventKindForumTopicCreated, nil)
	case ForumTopicUpdated:
		return d.forumTopicUpserted(ctx, frame, guildsync.EventKindForumTopicUpdated, nil)
	case ForumTopicPinned:
		return d.forumTopicUpserted(ctx, frame, guildsync.EventKindForumTopicPinned, func(topic *wire.ForumTopic) {
			topic.IsPinned = boolPtr(true)
		})
	case ForumTopicUnpinned:
		return d.forumTopicUpserted(ctx, frame, guildsync.EventKindForumTopicUnpinned, func(topic *wire.ForumTopic) {
			topic.IsPinned = boolPtr(false)
		})
	case ForumTopicLocked:
		return d.forumTopicUpserted(ctx, frame, guildsync.EventKindForumTopicLocked, func(topic *wire.ForumTopic) {
			topic.IsLocked = boolPtr(true)
		})
	case ForumTopicUnlocked:
		return d.forumTopicUpserted(ctx, frame, guildsync.EventKindForumTopicUnlocked, func(topic *wire.ForumTopic) {
			topic.IsLocked = boolPtr(false)
		})
	case ForumTopicDeleted:
		return d.forumTopicDeleted(frame)

	case ListItemCreated:
		return d.listItemUpserted(ctx, frame, guildsync.EventKindListItemCreated)
	case ListItemUpdated:
		return d.listItemUpserted(ctx, frame, guildsync.EventKindListItemUpdated)
	case ListItemCompleted:
		return d.listItemUpserted(ctx, frame, guildsync.EventKindListItemCompleted)
	case ListItemUncompleted:
		return d.listItemUncompleted(ctx, frame)
	case ListItemDeleted:
		return d.listItemDeleted(frame)

	case BotServerMembershipCreated:
		return d.botJoined(frame)
	case BotServerMembershipDeleted:
		return d.botLeft(frame)
	}

	return nil, fmt.Errorf("unhandled wire event %q", name)
}

func boolPtr(value bool) *bool {
	return &value
}

func (d *Dispatcher) messageUpserted(ctx context.Context, frame gateway.EventFrame, kind guildsync.EventKind) (*guildsync.Event, error) {
	payload, err := decode[wire.ChatMessageEvent](frame)
	if err != nil {
		return nil, err
	}
	message := payload.Message
	if message.ServerID == "" {
		message.ServerID = payload.ServerID
	}

	channel, err := d.resolveChannel(ctx, message.ChannelID)
	if err != nil {
		return nil, err
	}
	cached, _, err := d.store.UpsertMessage(message)
	if err != nil {
		return nil, err
	}

	event := d.event(kind, frame, firstNonEmpty(message.ServerID, channel.ServerID), channel.ID)
	event.Channel = channel
	event.Message = cached

	return event, nil
}

func (d *Dispatcher) messageDeleted(frame gateway.EventFrame) (*guildsync.Event, error) {
	payload, err := decode[wire.ChatMessageDeletedEvent](frame)
	if err != nil {
		return nil, err
	}
	deleted := payload.Message

	message, ok := d.store.RemoveMessage(deleted.ChannelID, deleted.ID)
	if !ok {
		message = &guildsync.Message{
			ID:        deleted.ID,
			ServerID:  firstNonEmpty(deleted.ServerID, payload.ServerID),
			ChannelID: deleted.ChannelID,
			IsPrivate: deleted.IsPrivate,
		}
	}
	message.DeletedAt = deleted.DeletedAt

	event := d.event(guildsync.EventKindMessageDeleted, frame, firstNonEmpty(payload.ServerID, message.ServerID), deleted.ChannelID)
	event.Message = message
	if channel, ok := d.store.Channel(deleted.ChannelID); ok {
		event.Channel = channel
	}

	return event, nil
}

func (d *Dispatcher) reaction(frame gateway.EventFrame, kind guildsync.EventKind) (*guildsync.Event, error) {
	payload, err := decode[wire.ReactionEvent](frame)
	if err != nil {
		return nil, err
	}
	reaction := payload.Reaction

	event := d.event(kind, frame, payload.ServerID, reaction.ChannelID)
	event.Reaction = &guildsync.Reaction{
		ChannelID: reaction.ChannelID,
		MessageID: reaction.MessageID,
		UserID:    reaction.CreatedBy,
		Emote:     reaction.Emote,
	}
	if message, ok := d.store.Message(reaction.ChannelID, reaction.MessageID); ok {
		event.Message = message
	}

	return event, nil
}

func (d *Dispatcher) memberJoined(ctx context.Context, frame gateway.EventFrame) (*guildsync.Event, error) {
	payload, err := decode[wire.ServerMemberJoinedEvent](frame)
	if err != nil {
		return nil, err
	}

	server, err := d.resolveServer(ctx, payload.ServerID)
	if err != nil {
		return nil, err
	}
	member, _, err := d.store.UpsertMember(payload.ServerID, payload.Member)
	if err != nil {
		return nil, err
	}

	event := d.event(guildsync.EventKindMemberJoined, frame, payload.ServerID, "")
	event.Server = server
	event.Member = member
	if user, ok := d.store.User(member.UserID); ok {
		event.User = user
	}

	return event, nil
}

func (d *Dispatcher) memberRemoved(frame gateway.EventFrame) (*guildsync.Event, error) {
	payload, err := decode[wire.ServerMemberRemovedEvent](frame)
	if err != nil {
		return nil, err
	}

	event := d.event(guildsync.EventKindMemberRemoved, frame, payload.ServerID, "")
	event.Removal = &guildsync.MemberRemoval{
		UserID: payload.UserID,
		IsKick: payload.IsKick,
		IsBan:  payload.IsBan,
	}
	if member, ok := d.store.RemoveMember(payload.ServerID, payload.UserID); ok {
		event.Member = member
	}
	if server, ok := d.store.Server(payload.ServerID); ok {
		event.Server = server
	}
	if user, ok := d.store.User(payload.UserID); ok {
		event.User = user
	}

	return event, nil
}

func (d *Dispatcher) memberUpdated(ctx context.Context, frame gateway.EventFrame) (*guildsync.Event, error) {
	payload, err := decode[wire.ServerMemberUpdatedEvent](frame)
	if err != nil {
		return nil, err
	}
	userID := payload.UserInfo.ID

	if _, err := d.resolveMember(ctx, payload.ServerID, userID); err != nil {
		return nil, err
	}
	member, err := d.store.SetMemberNickname(payload.ServerID, userID, payload.UserInfo.Nickname)
	if err != nil {
		return nil, err
	}

	event := d.event(guildsync.EventKindMemberUpdated, frame, payload.ServerID, "")
	event.Member = member
	if user, ok := d.store.User(userID); ok {
		event.User = user
	}

	return event, nil
}

func (d *Dispatcher) memberBanned(ctx context.Context, frame gateway.EventFrame) (*guildsync.Event, error) {
	payload, err := decode[wire.ServerMemberBanEvent](frame)
	if err != nil {
		return nil, err
	}

	server, err := d.resolveServer(ctx, payload.ServerID)
	if err != nil {
		return nil, err
	}
	ban, err := d.store.UpsertBan(payload.ServerID, payload.ServerMemberBan)
	if err != nil {
		return nil, err
	}

	event := d.event(guildsync.EventKindMemberBanned, frame, payload.ServerID, "")
	event.Server = server
	event.Ban = ban
	if user, ok := d.store.User(ban.UserID); ok {
		event.User = user
	}

	return event, nil
}

func (d *Dispatcher) memberUnbanned(frame gateway.EventFrame) (*guildsync.Event, error) {
	payload, err := decode[wire.ServerMemberBanEvent](frame)
	if err != nil {
		return nil, err
	}

	ban, ok := d.store.RemoveBan(payload.ServerID, payload.ServerMemberBan.User.ID)
	if !ok {
		ban = guildsync.NewBan(payload.ServerID, payload.ServerMemberBan)
	}

	event := d.event(guildsync.EventKindMemberUnbanned, frame, payload.ServerID, "")
	event.Ban = ban
	if user, ok := d.store.User(ban.UserID); ok {
		event.User = user
	}

	return event, nil
}

func (d *Dispatcher) rolesUpdated(frame gateway.EventFrame) (*guildsync.Event, error) {
	payload, err := decode[wire.ServerRolesUpdatedEvent](frame)
	if err != nil {
		return nil, err
	}

	event := d.event(guildsync.EventKindMemberRolesUpdated, frame, payload.ServerID, "")
	event.Roles = d.store.SetMemberRoles(payload.ServerID, payload.MemberRoleIDs)
	if server, ok := d.store.Server(payload.ServerID); ok {
		event.Server = server
	}

	return event, nil
}

func (d *Dispatcher) channelUpserted(ctx context.Context, frame gateway.EventFrame, kind guildsync.EventKind) (*guildsync.Event, error) {
	payload, err := decode[wire.ServerChannelEvent](frame)
	if err != nil {
		return nil, err
	}
	channelPayload := payload.Channel
	if channelPayload.ServerID == "" {
		channelPayload.ServerID = payload.ServerID
	}

	server, err := d.resolveServer(ctx, channelPayload.ServerID)
	if err != nil {
		return nil, err
	}
	channel, _, err := d.store.UpsertChannel(channelPayload)
	if err != nil {
		return nil, err
	}

	event := d.event(kind, frame, channel.ServerID, channel.ID)
	event.Server = server
	event.Channel = channel

	return event, nil
}

func (d *Dispatcher) channelDeleted(frame gateway.EventFrame) (*guildsync.Event, error) {
	payload, err := decode[wire.ServerChannelEvent](frame)
	if err != nil {
		return nil, err
	}
	channelPayload := payload.Channel
	if channelPayload.ServerID == "" {
		channelPayload.ServerID = payload.ServerID
	}

	channel, ok := d.store.RemoveChannel(channelPayload.ID)
	if !ok {
		channel = guildsync.NewChannel(channelPayload, d.store.Limits())
	}

	event := d.event(guildsync.EventKindChannelDeleted, frame, channel.ServerID, channel.ID)
	event.Channel = channel
	if server, ok := d.store.Server(channel.ServerID); ok {
		event.Server = server
	}

	return event, nil
}

func (d *Dispatcher) webhookUpserted(ctx context.Context, frame gateway.EventFrame, kind guildsync.EventKind) (*guildsync.Event, error) {
	payload, err := decode[wire.ServerWebhookEvent](frame)
	if err != nil {
		return nil, err
	}
	webhookPayload := payload.Webhook
	if webhookPayload.ServerID == "" {
		webhookPayload.ServerID = payload.ServerID
	}

	server, err := d.resolveServer(ctx, webhookPayload.ServerID)
	if err != nil {
		return nil, err
	}
	webhook, _, err := d.store.UpsertWebhook(webhookPayload)
	if err != nil {
		return nil, err
	}

	event := d.event(kind, frame, webhook.ServerID, webhook.ChannelID)
	event.Server = server
	event.Webhook = webhook

	return event, nil
}

func (d *Dispatcher) docUpserted(ctx context.Context, frame gateway.EventFrame, kind guildsync.EventKind) (*guildsync.Event, error) {
	payload, err := decode[wire.DocEvent](frame)
	if err != nil {
		return nil, err
	}

	channel, err := d.resolveChannel(ctx, payload.Doc.ChannelID)
	if err != nil {
		return nil, err
	}
	doc, _, err := d.store.UpsertDoc(payload.Doc)
	if err != nil {
		return nil, err
	}

	event := d.event(kind, frame, firstNonEmpty(payload.ServerID, channel.ServerID), channel.ID)
	event.Channel = channel
	event.Doc = doc

	return event, nil
}

func (d *Dispatcher) docDeleted(frame gateway.EventFrame) (*guildsync.Event, error) {
	payload, err := decode[wire.DocEvent](frame)
	if err != nil {
		return nil, err
	}

	doc, ok := d.store.RemoveDoc(payload.Doc.ChannelID, payload.Doc.ID)
	if !ok {
		doc = guildsync.NewDoc(payload.Doc)
	}

	event := d.event(guildsync.EventKindDocDeleted, frame, payload.ServerID, payload.Doc.ChannelID)
	event.Doc = doc

	return event, nil
}

func (d *Dispatcher) calendarEventUpserted(ctx context.Context, frame gateway.EventFrame, kind guildsync.EventKind) (*guildsync.Event, error) {
	payload, err := decode[wire.CalendarEventEvent](frame)
	if err != nil {
		return nil, err
	}

	channel, err := d.resolveChannel(ctx, payload.CalendarEvent.ChannelID)
	if err != nil {
		return nil, err
	}
	calendarEvent, _, err := d.store.UpsertCalendarEvent(payload.CalendarEvent)
	if err != nil {
		return nil, err
	}

	event := d.event(kind, frame, firstNonEmpty(payload.ServerID, channel.ServerID), channel.ID)
	event.Channel = channel
	event.CalendarEvent = calendarEvent

	return event, nil
}

func (d *Dispatcher) calendarEventDeleted(frame gateway.EventFrame) (*guildsync.Event, error) {
	payload, err := decode[wire.CalendarEventEvent](frame)
	if err != nil {
		return nil, err
	}

	calendarEvent, ok := d.store.RemoveCalendarEvent(payload.CalendarEvent.ChannelID, payload.CalendarEvent.ID)
	if !ok {
		calendarEvent = guildsync.NewCalendarEvent(payload.CalendarEvent)
	}

	event := d.event(guildsync.EventKindCalendarEventDeleted, frame, payload.ServerID, payload.CalendarEvent.ChannelID)
	event.CalendarEvent = calendarEvent

	return event, nil
}

func (d *Dispatcher) forumTopicUpserted(
	ctx context.Context,
	frame gateway.EventFrame,
	kind guildsync.EventKind,
	adjust func(*wire.ForumTopic),
) (*guildsync.Event, error) {
	payload, err := decode[wire.ForumTopicEvent](frame)
	if err != nil {
		return nil, err
	}
	topicPayload := payload.ForumTopic
	if adjust != nil {
		adjust(&topicPayload)
	}

	channel, err := d.resolveChannel(ctx, topicPayload.ChannelID)
	if err != nil {
		return nil, err
	}
	topic, _, err := d.store.UpsertForumTopic(topicPayload)
	if err != nil {
		return nil, err
	}

	event := d.event(kind, frame, firstNonEmpty(payload.ServerID, channel.ServerID), channel.ID)
	event.Channel = channel
	event.ForumTopic = topic

	return event, nil
}

func (d *Dispatcher) forumTopicDeleted(frame gateway.EventFrame) (*guildsync.Event, error) {
	payload, err := decode[wire.ForumTopicEvent](frame)
	if err != nil {
		return nil, err
	}

	topic, ok := d.store.RemoveForumTopic(payload.ForumTopic.ChannelID, payload.ForumTopic.ID)
	if !ok {
		topic = guildsync.NewForumTopic(payload.ForumTopic)
	}

	event := d.event(guildsync.EventKindForumTopicDeleted, frame, payload.ServerID, payload.ForumTopic.ChannelID)
	event.ForumTopic = topic

	return event, nil
}

func (d *Dispatcher) listItemUpserted(ctx context.Context, frame gateway.EventFrame, kind guildsync.EventKind) (*guildsync.Event, error) {
	payload, err := decode[wire.ListItemEvent](frame)
	if err != nil {
		return nil, err
	}

	channel, err := d.resolveChannel(ctx, payload.ListItem.ChannelID)
	if err != nil {
		return nil, err
	}
	item, _, err := d.store.UpsertListItem(payload.ListItem)
	if err != nil {
		return nil, err
	}

	event := d.event(kind, frame, firstNonEmpty(payload.ServerID, channel.ServerID), channel.ID)
	event.Channel = channel
	event.ListItem = item

	return event, nil
}

func (d *Dispatcher) listItemUncompleted(ctx context.Context, frame gateway.EventFrame) (*guildsync.Event, error) {
	payload, err := decode[wire.ListItemEvent](frame)
	if err != nil {
		return nil, err
	}

	channel, err := d.resolveChannel(ctx, payload.ListItem.ChannelID)
	if err != nil {
		return nil, err
	}
	item, err := d.store.UncompleteListItem(payload.ListItem)
	if err != nil {
		return nil, err
	}

	event := d.event(guildsync.EventKindListItemUncompleted, frame, firstNonEmpty(payload.ServerID, channel.ServerID), channel.ID)
	event.Channel = channel
	event.ListItem = item

	return event, nil
}

func (d *Dispatcher) listItemDeleted(frame gateway.EventFrame) (*guildsync.Event, error) {
	payload, err := decode[wire.ListItemEvent](frame)
	if err != nil {
		return nil, err
	}

	item, ok := d.store.RemoveListItem(payload.ListItem.ChannelID, payload.ListItem.ID)
	if !ok {
		item = guildsync.NewListItem(payload.ListItem)
	}

	event := d.event(guildsync.EventKindListItemDeleted, frame, payload.ServerID, payload.ListItem.ChannelID)
	event.ListItem = item

	return event, nil
}

func (d *Dispatcher) botJoined(frame gateway.EventFrame) (*guildsync.Event, error) {
	payload, err := decode[wire.BotServerMembershipEvent](frame)
	if err != nil {
		return nil, err
	}

	server, _, err := d.store.UpsertServer(payload.Server)
	if err != nil {
		return nil, err
	}

	event := d.event(guildsync.EventKindServerJoined, frame, server.ID, "")
	event.Server = server

	return event, nil
}

func (d *Dispatcher) botLeft(frame gateway.EventFrame) (*guildsync.Event, error) {
	payload, err := decode[wire.BotServerMembershipEvent](frame)
	if err != nil {
		return nil, err
	}

	server, ok := d.store.RemoveServer(payload.Server.ID)
	if !ok {
		server = guildsync.NewServer(payload.Server, d.store.Limits())
	}

	event := d.event(guildsync.EventKindServerLeft, frame, server.ID, "")
	event.Server = server

	return event, nil
}
