package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kledje/storefront-backend/pkg/config"
	"github.com/kledje/storefront-backend/pkg/db/models"
	"github.com/kledje/storefront-backend/pkg/enums"
	"github.com/kledje/storefront-backend/pkg/logger"
	"github.com/kledje/storefront-backend/pkg/outbox"
	"github.com/kledje/storefront-backend/pkg/outbox/payloads"
	"github.com/kledje/storefront-backend/pkg/outbox/registry"
)

func TestServiceProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{
		events: []models.OutboxEvent{
			newOrderEvent(t, "event-one", 0),
			newOrderEvent(t, "event-two", 0),
		},
	}
	sink := &fakeSink{errs: []error{errors.New("transient"), nil}}
	service := newTestService(t, repo, sink, &fakeRegistry{resolved: orderResolved()}, nil, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(repo.failed); got != 1 {
		t.Fatalf("unexpected number of failed rows: %d", got)
	}
	if got := len(repo.published); got != 1 {
		t.Fatalf("unexpected number of published rows: %d", got)
	}
	if repo.failed[0] != repo.events[0].ID {
		t.Fatalf("failed row recorded wrong ID")
	}
	if repo.published[0] != repo.events[1].ID {
		t.Fatalf("published row recorded wrong ID")
	}
}

func TestServicePublishesMessageAttributes(t *testing.T) {
	event := newOrderEvent(t, "attrs", 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	sink := &fakeSink{}
	service := newTestService(t, repo, sink, &fakeRegistry{resolved: orderResolved()}, nil, nil)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(sink.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(sink.sent))
	}
	msg := sink.sent[0]
	if msg.Topic != "orders-topic" {
		t.Fatalf("unexpected topic %q", msg.Topic)
	}
	if msg.Key != event.AggregateID.String() {
		t.Fatalf("expected aggregate id as key, got %q", msg.Key)
	}
	if msg.Attributes["event_type"] != string(enums.EventOrderCreated) {
		t.Fatalf("unexpected event_type attribute %q", msg.Attributes["event_type"])
	}
	if string(msg.Data) != string(event.Payload) {
		t.Fatalf("payload not forwarded verbatim")
	}
}

func TestServiceParksNonRetryableEvents(t *testing.T) {
	event := newOrderEvent(t, "nonretryable", 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	eventRegistry := &fakeRegistry{err: registry.NewNonRetryableError(errors.New("invalid payload"))}
	sink := &fakeSink{}
	service := newTestService(t, repo, sink, eventRegistry, nil, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if len(repo.terminal) != 1 || repo.terminal[0] != event.ID {
		t.Fatalf("expected row parked as terminal, got %v", repo.terminal)
	}
	if len(sink.sent) != 0 {
		t.Fatalf("nothing should be published")
	}
}

func TestServiceParksAfterMaxAttempts(t *testing.T) {
	event := newOrderEvent(t, "max-attempts", 1)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	sink := &fakeSink{errs: []error{errors.New("transient")}}
	service := newTestService(t, repo, sink, &fakeRegistry{resolved: orderResolved()}, nil, &config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
	})

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(repo.terminal) != 1 {
		t.Fatalf("expected terminal row, got %d", len(repo.terminal))
	}
	if len(repo.failed) != 0 {
		t.Fatalf("terminal rows must not also be marked failed")
	}
}

func TestServiceSkipsAlreadyDeliveredEvents(t *testing.T) {
	event := newOrderEvent(t, "seen", 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	sink := &fakeSink{}
	guard := &fakeGuard{seen: map[uuid.UUID]bool{event.ID: true}}
	service := newTestService(t, repo, sink, &fakeRegistry{resolved: orderResolved()}, guard, nil)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(sink.sent) != 0 {
		t.Fatalf("delivered event must not be sent again")
	}
	if len(repo.published) != 1 {
		t.Fatalf("delivered event should still be marked published")
	}
}

func TestServiceClearsGuardWhenPublishFails(t *testing.T) {
	event := newOrderEvent(t, "retry", 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	sink := &fakeSink{errs: []error{errors.New("broker down")}}
	guard := &fakeGuard{seen: map[uuid.UUID]bool{}}
	service := newTestService(t, repo, sink, &fakeRegistry{resolved: orderResolved()}, guard, nil)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if guard.seen[event.ID] {
		t.Fatalf("guard should be cleared so the retry publishes")
	}
	if len(repo.failed) != 1 {
		t.Fatalf("expected failed row, got %d", len(repo.failed))
	}
}

func TestNextBackoffCaps(t *testing.T) {
	base := 100 * time.Millisecond
	if got := nextBackoff(0, base, time.Second); got != 200*time.Millisecond {
		t.Fatalf("unexpected first backoff %s", got)
	}
	if got := nextBackoff(800*time.Millisecond, base, time.Second); got != time.Second {
		t.Fatalf("expected cap, got %s", got)
	}
}

func newTestService(t *testing.T, repo outboxRepository, sink outbox.Sink, resolver registryResolver, guard deliveryGuard, outboxCfgOverride *config.OutboxConfig) *Service {
	t.Helper()
	outboxCfg := config.OutboxConfig{
		BatchSize:      2,
		PollIntervalMS: 100,
		MaxAttempts:    5,
	}
	if outboxCfgOverride != nil {
		outboxCfg = *outboxCfgOverride
	}
	logg := logger.New(logger.Options{
		ServiceName: "outbox-publisher-test",
		Output:      io.Discard,
	})
	params := ServiceParams{
		Config:     &config.Config{Outbox: outboxCfg},
		Logger:     logg,
		DB:         &fakeDB{},
		Sink:       sink,
		Repository: repo,
		Registry:   resolver,
	}
	if guard != nil {
		params.Guard = guard
	}
	service, err := NewService(params)
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func newOrderEvent(tb testing.TB, eventID string, attempts int) models.OutboxEvent {
	tb.Helper()
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelopePayload(tb, eventID),
		AttemptCount:  attempts,
	}
}

func orderResolved() *registry.ResolvedEvent {
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			Topic:         "orders-topic",
		},
		Payload: &payloads.OrderCreatedEvent{},
	}
}

func mustEnvelopePayload(tb testing.TB, eventID string) json.RawMessage {
	tb.Helper()
	env := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return payload
}

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (f *fakeRepo) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error {
	return nil
}

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type fakeSink struct {
	errs []error
	sent []outbox.Message
}

func (f *fakeSink) Publish(_ context.Context, msg outbox.Message) error {
	var err error
	if len(f.errs) > 0 {
		err = f.errs[0]
		f.errs = f.errs[1:]
	}
	if err == nil {
		f.sent = append(f.sent, msg)
	}
	return err
}

func (f *fakeSink) Ping(context.Context) error { return nil }

func (f *fakeSink) Close() error { return nil }

type fakeRegistry struct {
	resolved *registry.ResolvedEvent
	err      error
}

func (f *fakeRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.resolved == nil {
		return nil, f.err
	}
	resolved := *f.resolved
	resolved.Envelope.EventID = event.ID.String()
	resolved.Envelope.OccurredAt = time.Now()
	return &resolved, f.err
}

type fakeGuard struct {
	seen map[uuid.UUID]bool
}

func (f *fakeGuard) CheckAndMarkProcessed(_ context.Context, _ string, eventID uuid.UUID) (bool, error) {
	if f.seen[eventID] {
		return true, nil
	}
	f.seen[eventID] = true
	return false, nil
}

func (f *fakeGuard) Delete(_ context.Context, _ string, eventID uuid.UUID) error {
	delete(f.seen, eventID)
	return nil
}
