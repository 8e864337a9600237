package guildsync

import "slices"

// InterestSet describes event selection criteria for a subscription.
// Empty dimensions match everything.
type InterestSet struct {
	Kinds      []EventKind
	ServerIDs  []string
	ChannelIDs []string
	// SkipLifecycle excludes gateway lifecycle events.
	SkipLifecycle bool
}

// Matches reports whether an event satisfies the declared interest set.
func (i InterestSet) Matches(event *Event) bool {
	if event == nil {
		return false
	}
	if i.SkipLifecycle && event.Kind.IsLifecycle() {
		return false
	}
	if len(i.Kinds) > 0 && !slices.Contains(i.Kinds, event.Kind) {
		return false
	}
	if len(i.ServerIDs) > 0 && !slices.Contains(i.ServerIDs, event.ServerID) {
		return false
	}
	if len(i.ChannelIDs) > 0 && !slices.Contains(i.ChannelIDs, event.ChannelID) {
		return false
	}

	return true
}
