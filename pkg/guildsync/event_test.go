package guildsync

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestEventValidate(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	tests := []struct {
		name    string
		event   *Event
		wantErr bool
	}{
		{name: "nil event", event: nil, wantErr: true},
		{
			name:    "missing id",
			event:   &Event{Kind: EventKindMessageCreated, OccurredAt: now, Message: &Message{ID: "m1"}},
			wantErr: true,
		},
		{
			name:    "missing occurred at",
			event:   &Event{ID: "e1", Kind: EventKindMessageCreated, Message: &Message{ID: "m1"}},
			wantErr: true,
		},
		{
			name:  "message created with message",
			event: &Event{ID: "e1", Kind: EventKindMessageCreated, OccurredAt: now, Message: &Message{ID: "m1"}},
		},
		{
			name:    "message created without message",
			event:   &Event{ID: "e1", Kind: EventKindMessageCreated, OccurredAt: now},
			wantErr: true,
		},
		{
			name:    "member removed requires removal",
			event:   &Event{ID: "e1", Kind: EventKindMemberRemoved, OccurredAt: now, Member: &Member{UserID: "u1"}},
			wantErr: true,
		},
		{
			name:  "roles updated with empty role list",
			event: &Event{ID: "e1", Kind: EventKindMemberRolesUpdated, OccurredAt: now, Roles: []RoleUpdate{}},
		},
		{
			name:  "lifecycle with session",
			event: &Event{ID: "e1", Kind: EventKindGatewayDisconnected, OccurredAt: now, Session: &SessionChange{State: "disconnected"}},
		},
		{
			name:    "unsupported kind",
			event:   &Event{ID: "e1", Kind: "bogus", OccurredAt: now},
			wantErr: true,
		},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			err := testCase.event.Validate()
			if testCase.wantErr {
				if !errors.Is(err, ErrInvalidEvent) {
					t.Fatalf("Validate() error = %v, want ErrInvalidEvent", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() error = %v, want nil", err)
			}
		})
	}
}

func TestInterestSetMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		interest InterestSet
		event    *Event
		want     bool
	}{
		{name: "nil event", interest: InterestSet{}, event: nil, want: false},
		{name: "empty set matches all", interest: InterestSet{}, event: &Event{Kind: EventKindDocCreated}, want: true},
		{
			name:     "kind mismatch",
			interest: InterestSet{Kinds: []EventKind{EventKindMessageCreated}},
			event:    &Event{Kind: EventKindDocCreated},
			want:     false,
		},
		{
			name:     "server scope match",
			interest: InterestSet{ServerIDs: []string{"s1"}},
			event:    &Event{Kind: EventKindMessageCreated, ServerID: "s1"},
			want:     true,
		},
		{
			name:     "channel scope mismatch",
			interest: InterestSet{ChannelIDs: []string{"c1"}},
			event:    &Event{Kind: EventKindMessageCreated, ChannelID: "c2"},
			want:     false,
		},
		{
			name:     "skip lifecycle",
			interest: InterestSet{SkipLifecycle: true},
			event:    &Event{Kind: EventKindClientReady},
			want:     false,
		},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			if got := testCase.interest.Matches(testCase.event); got != testCase.want {
				t.Fatalf("Matches() = %v, want %v", got, testCase.want)
			}
		})
	}
}

func TestAsResolutionErrorPreservesUnwrap(t *testing.T) {
	t.Parallel()

	rootCause := errors.New("not found")
	err := fmt.Errorf("dispatch: %w", &ResolutionError{
		Event: "ChatMessageCreated",
		Kind:  EntityKindChannel,
		ID:    "c1",
		Err:   rootCause,
	})

	resolutionErr, ok := AsResolutionError(err)
	if !ok {
		t.Fatal("AsResolutionError = false, want true")
	}
	if resolutionErr.Kind != EntityKindChannel {
		t.Fatalf("kind = %s, want %s", resolutionErr.Kind, EntityKindChannel)
	}
	if !errors.Is(err, rootCause) {
		t.Fatalf("errors.Is(err, rootCause) = false, want true (err=%v)", err)
	}
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("errors.Is(err, ErrUnresolved) = false, want true (err=%v)", err)
	}
}
