package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/kledje/storefront-backend/pkg/enums"
)

func TestHubRunsHandlersInOrder(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	var calls []string
	hub.Subscribe(func(ctx context.Context, event Event) error {
		calls = append(calls, "first")
		if event.OccurredAt.IsZero() {
			t.Error("expected occurred_at to be populated")
		}
		return nil
	})
	hub.Subscribe(nil)
	hub.Subscribe(func(ctx context.Context, event Event) error {
		calls = append(calls, "second")
		return nil
	})

	if err := hub.Publish(context.Background(), Event{Type: enums.AuthEventSignedIn, UserID: uuid.New()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Fatalf("unexpected call order %v", calls)
	}
}

func TestHubCombinesErrors(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	ran := 0
	hub.Subscribe(func(context.Context, Event) error { ran++; return errA })
	hub.Subscribe(func(context.Context, Event) error { ran++; return nil })
	hub.Subscribe(func(context.Context, Event) error { ran++; return errB })

	err := hub.Publish(context.Background(), Event{Type: enums.AuthEventSignedOut})
	if ran != 3 {
		t.Fatalf("expected all handlers to run, got %d", ran)
	}
	errs := multierr.Errors(err)
	if len(errs) != 2 || !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("expected both errors, got %v", err)
	}
}

func TestHubRejectsUnknownEvent(t *testing.T) {
	t.Parallel()

	if err := NewHub().Publish(context.Background(), Event{Type: "teleported"}); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}

type recordingMerger struct {
	from, to OwnerKey
	calls    int
	err      error
}

func (m *recordingMerger) Merge(_ context.Context, from, to OwnerKey) (int, error) {
	m.calls++
	m.from, m.to = from, to
	return 1, m.err
}

func TestMergeOnSignIn(t *testing.T) {
	t.Parallel()

	merger := &recordingMerger{}
	handler := MergeOnSignIn(merger, nil)
	userID := uuid.New()
	token := NewSessionToken()

	if err := handler(context.Background(), Event{Type: enums.AuthEventSignedIn, UserID: userID, SessionToken: token}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if merger.calls != 1 || merger.from != SessionOwner(token) || merger.to != UserOwner(userID) {
		t.Fatalf("unexpected merge call %+v", merger)
	}

	// other events and missing tokens are ignored
	_ = handler(context.Background(), Event{Type: enums.AuthEventSignedOut, UserID: userID, SessionToken: token})
	_ = handler(context.Background(), Event{Type: enums.AuthEventSignedIn, UserID: userID})
	if merger.calls != 1 {
		t.Fatalf("expected no further merges, got %d", merger.calls)
	}

	merger.err = errors.New("db down")
	if err := handler(context.Background(), Event{Type: enums.AuthEventSignedIn, UserID: userID, SessionToken: token}); err == nil {
		t.Fatal("expected merge error to propagate")
	}
}
