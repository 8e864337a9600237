package dispatch

// WireEvent is the closed set of gateway event names the dispatcher handles.
type WireEvent string

const (
	ChatMessageCreated WireEvent = "ChatMessageCreated"
	ChatMessageUpdated WireEvent = "ChatMessageUpdated"
	ChatMessageDeleted WireEvent = "ChatMessageDeleted"

	ChannelMessageReactionCreated WireEvent = "ChannelMessageReactionCreated"
	ChannelMessageReactionDeleted WireEvent = "ChannelMessageReactionDeleted"

	ServerMemberJoined   WireEvent = "ServerMemberJoined"
	ServerMemberRemoved  WireEvent = "ServerMemberRemoved"
	ServerMemberUpdated  WireEvent = "ServerMemberUpdated"
	ServerMemberBanned   WireEvent = "ServerMemberBanned"
	ServerMemberUnbanned WireEvent = "ServerMemberUnbanned"
	ServerRolesUpdated   WireEvent = "ServerRolesUpdated"

	ServerChannelCreated WireEvent = "ServerChannelCreated"
	ServerChannelUpdated WireEvent = "ServerChannelUpdated"
	ServerChannelDeleted WireEvent = "ServerChannelDeleted"

	ServerWebhookCreated WireEvent = "ServerWebhookCreated"
	ServerWebhookUpdated WireEvent = "ServerWebhookUpdated"

	DocCreated WireEvent = "DocCreated"
	DocUpdated WireEvent = "DocUpdated"
	DocDeleted WireEvent = "DocDeleted"

	CalendarEventCreated WireEvent = "CalendarEventCreated"
	CalendarEventUpdated WireEvent = "CalendarEventUpdated"
	CalendarEventDeleted WireEvent = "CalendarEventDeleted"

	ForumTopicCreated  WireEvent = "ForumTopicCreated"
	ForumTopicUpdated  WireEvent = "ForumTopicUpdated"
	ForumTopicDeleted  WireEvent = "ForumTopicDeleted"
	ForumTopicPinned   WireEvent = "ForumTopicPinned"
	ForumTopicUnpinned WireEvent = "ForumTopicUnpinned"
	ForumTopicLocked   WireEvent = "ForumTopicLocked"
	ForumTopicUnlocked WireEvent = "ForumTopicUnlocked"

	ListItemCreated     WireEvent = "ListItemCreated"
	ListItemUpdated     WireEvent = "ListItemUpdated"
	ListItemDeleted     WireEvent = "ListItemDeleted"
	ListItemCompleted   WireEvent = "ListItemCompleted"
	ListItemUncompleted WireEvent = "ListItemUncompleted"

	BotServerMembershipCreated WireEvent = "BotServerMembershipCreated"
	BotServerMembershipDeleted WireEvent = "BotServerMembershipDeleted"
)

// WireEvents lists every handled event name.
var WireEvents = []WireEvent{
	ChatMessageCreated, ChatMessageUpdated, ChatMessageDeleted,
	ChannelMessageReactionCreated, ChannelMessageReactionDeleted,
	ServerMemberJoined, ServerMemberRemoved, ServerMemberUpdated,
	ServerMemberBanned, ServerMemberUnbanned, ServerRolesUpdated,
	ServerChannelCreated, ServerChannelUpdated, ServerChannelDeleted,
	ServerWebhookCreated, ServerWebhookUpdated,
	DocCreated, DocUpdated, DocDeleted,
	CalendarEventCreated, CalendarEventUpdated, CalendarEventDeleted,
	ForumTopicCreated, ForumTopicUpdated, ForumTopicDeleted,
	ForumTopicPinned, ForumTopicUnpinned, ForumTopicLocked, ForumTopicUnlocked,
	ListItemCreated, ListItemUpdated, ListItemDeleted, ListItemCompleted, ListItemUncompleted,
	BotServerMembershipCreated, BotServerMembershipDeleted,
}

var knownWireEvents = func() map[string]WireEvent {
	known := make(map[string]WireEvent, len(WireEvents))
	for _, name := range WireEvents {
		known[string(name)] = name
	}

	return known
}()

// ParseWireEvent maps a frame name onto the closed enumeration.
func ParseWireEvent(name string) (WireEvent, bool) {
	event, ok := knownWireEvents[name]
	return event, ok
}
