package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kledje/storefront-backend/pkg/db/dbtest"
	"github.com/kledje/storefront-backend/pkg/db/models"
	"github.com/kledje/storefront-backend/pkg/enums"
	"github.com/kledje/storefront-backend/pkg/outbox/payloads"
)

func TestEmitWritesEnvelopeInTransaction(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)

	orderID := uuid.New()
	userID := uuid.New()
	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &ActorRef{UserID: &userID, Role: "admin"},
			Data: payloads.OrderStatusChangedEvent{
				OrderID: orderID,
				From:    enums.OrderStatusNew,
				To:      enums.OrderStatusProcessing,
			},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventOrderStatusChanged, rows[0].EventType)
	assert.Equal(t, orderID, rows[0].AggregateID)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, CurrentVersion, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, "admin", envelope.Actor.Role)

	var data payloads.OrderStatusChangedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, enums.OrderStatusProcessing, data.To)
}

func TestEmitRolledBackWithTransaction(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)

	boom := errors.New("boom")
	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Data:          map[string]string{"k": "v"},
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmitValidatesEvent(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)

	assert.Error(t, svc.Emit(context.Background(), nil, DomainEvent{}))
	assert.Error(t, svc.Emit(context.Background(), conn, DomainEvent{
		EventType:     "unknown",
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
	}))
	assert.Error(t, svc.Emit(context.Background(), conn, DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
	}))
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)

	first := models.OutboxEvent{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`)}
	second := models.OutboxEvent{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`)}
	require.NoError(t, repo.Insert(conn, first))
	require.NoError(t, repo.Insert(conn, second))

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NoError(t, repo.MarkPublishedTx(conn, rows[0].ID))
	require.NoError(t, repo.MarkFailedTx(conn, rows[1].ID, errors.New("broker down")))

	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)
	assert.Equal(t, "broker down", *rows[0].LastError)

	require.NoError(t, repo.MarkTerminalTx(conn, rows[0].ID, errors.New("gave up"), 3))
	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
