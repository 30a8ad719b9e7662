package identity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/kledje/storefront-backend/pkg/enums"
)

// Event describes an authentication transition.
type Event struct {
	Type         enums.AuthEventType
	UserID       uuid.UUID
	SessionToken string
	Role         enums.UserRole
	OccurredAt   time.Time
}

// Handler reacts to an auth event.
type Handler func(ctx context.Context, event Event) error

// Publisher is the surface the auth service depends on.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Hub fans auth events out to subscribers. Handlers run synchronously in
// subscription order; every handler runs even when an earlier one fails.
type Hub struct {
	mu       sync.RWMutex
	handlers []Handler
}

func NewHub() *Hub {
	return &Hub{}
}

// Subscribe registers a handler for every future event.
func (h *Hub) Subscribe(handler Handler) {
	if handler == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers = append(h.handlers, handler)
}

// Publish delivers the event and returns the combined handler errors.
func (h *Hub) Publish(ctx context.Context, event Event) error {
	if !event.Type.IsValid() {
		return fmt.Errorf("invalid auth event type %q", event.Type)
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	h.mu.RLock()
	handlers := make([]Handler, len(h.handlers))
	copy(handlers, h.handlers)
	h.mu.RUnlock()

	var errs error
	for _, handler := range handlers {
		errs = multierr.Append(errs, handler(ctx, event))
	}
	return errs
}
