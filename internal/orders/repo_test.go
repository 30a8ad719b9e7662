package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kledje/storefront-backend/pkg/db/dbtest"
	"github.com/kledje/storefront-backend/pkg/db/models"
	"github.com/kledje/storefront-backend/pkg/enums"
)

var baseTime = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

func seedOrder(t *testing.T, conn *gorm.DB, userID *uuid.UUID, status enums.OrderStatus, total string, offset time.Duration) *models.Order {
	t.Helper()
	createdAt := baseTime.Add(offset)
	order := &models.Order{
		UserID:          userID,
		CustomerName:    "Customer",
		CustomerPhone:   "0790000000",
		CustomerAddress: "Main St 1",
		TotalAmount:     decimal.RequireFromString(total),
		Status:          status,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
		Items: []models.OrderItem{{
			ProductName:  "Widget",
			ProductPrice: decimal.RequireFromString(total),
			Quantity:     1,
			Subtotal:     decimal.RequireFromString(total),
			CreatedAt:    createdAt,
		}},
	}
	require.NoError(t, conn.Create(order).Error)
	return order
}

func TestRepositoryListPaginatesNewestFirst(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	userID := uuid.New()

	oldest := seedOrder(t, conn, &userID, enums.OrderStatusNew, "10", 0)
	middle := seedOrder(t, conn, &userID, enums.OrderStatusProcessing, "20", time.Minute)
	newest := seedOrder(t, conn, &userID, enums.OrderStatusNew, "30", 2*time.Minute)
	seedOrder(t, conn, nil, enums.OrderStatusNew, "40", 3*time.Minute)

	page, cursor, err := repo.List(ctx, ListFilters{UserID: &userID}, 2, nil)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, newest.ID, page[0].ID)
	assert.Equal(t, middle.ID, page[1].ID)
	require.Len(t, page[0].Items, 1)
	require.NotNil(t, cursor)

	page, cursor, err = repo.List(ctx, ListFilters{UserID: &userID}, 2, cursor)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, oldest.ID, page[0].ID)
	assert.Nil(t, cursor)

	status := enums.OrderStatusProcessing
	page, _, err = repo.List(ctx, ListFilters{Status: &status}, 10, nil)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, middle.ID, page[0].ID)

	all, _, err := repo.List(ctx, ListFilters{}, 10, nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestRepositoryAggregates(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	revenue, err := repo.SumRevenue(ctx)
	require.NoError(t, err)
	assert.True(t, revenue.IsZero())

	seedOrder(t, conn, nil, enums.OrderStatusNew, "100.50", 0)
	seedOrder(t, conn, nil, enums.OrderStatusDelivered, "49.50", time.Minute)
	seedOrder(t, conn, nil, enums.OrderStatusCancelled, "999", 2*time.Minute)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	revenue, err = repo.SumRevenue(ctx)
	require.NoError(t, err)
	assert.True(t, revenue.Equal(decimal.RequireFromString("150")), "got %s", revenue)

	recent, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, enums.OrderStatusCancelled, recent[0].Status)
}

func TestRepositoryUpdateStatus(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	order := seedOrder(t, conn, nil, enums.OrderStatusNew, "10", 0)

	at := baseTime.Add(time.Hour)
	require.NoError(t, repo.UpdateStatus(ctx, order.ID, enums.OrderStatusProcessing, at))

	reloaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, reloaded.Status)
	assert.True(t, reloaded.UpdatedAt.Equal(at))
	require.Len(t, reloaded.Items, 1)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, uuid.New(), enums.OrderStatusProcessing, at), gorm.ErrRecordNotFound)
}

func TestRepositoryRejectsUnknownStatus(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	order := seedOrder(t, conn, nil, enums.OrderStatusNew, "10", 0)

	err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatus("lost"), baseTime.Add(time.Hour))
	require.Error(t, err, "the status column only accepts known statuses")

	locked, err := repo.FindByIDForUpdate(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusNew, locked.Status)
}
