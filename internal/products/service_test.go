package products

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kledje/storefront-backend/pkg/db/models"
	pkgerrors "github.com/kledje/storefront-backend/pkg/errors"
)

type stubReader struct {
	list    []models.Product
	listErr error
	byID    map[uuid.UUID]*models.Product
}

func (s *stubReader) ListActive(context.Context) ([]models.Product, error) {
	return s.list, s.listErr
}

func (s *stubReader) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	if p, ok := s.byID[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func TestNewServiceRequiresRepo(t *testing.T) {
	if _, err := NewService(nil); err == nil {
		t.Fatal("expected error for nil repo")
	}
}

func TestServiceListProducts(t *testing.T) {
	t.Parallel()

	before := decimal.RequireFromString("15.00")
	reader := &stubReader{list: []models.Product{{
		ID:                  uuid.New(),
		Name:                "Tea",
		Price:               decimal.RequireFromString("12.00"),
		PriceBeforeDiscount: decimal.NullDecimal{Decimal: before, Valid: true},
		IsActive:            true,
		Images:              []models.ProductImage{{ID: uuid.New(), ImageURL: "tea.jpg"}},
	}}}
	svc, err := NewService(reader)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	got, err := svc.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].PriceBeforeDiscount == nil || !got[0].PriceBeforeDiscount.Equal(before) {
		t.Fatalf("unexpected products %+v", got)
	}
	if len(got[0].Images) != 1 || got[0].Images[0].URL != "tea.jpg" {
		t.Fatalf("unexpected images %+v", got[0].Images)
	}

	reader.listErr = errors.New("boom")
	if _, err := svc.ListProducts(context.Background()); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestServiceGetProductHidesInactive(t *testing.T) {
	t.Parallel()

	active := &models.Product{ID: uuid.New(), Name: "On", IsActive: true}
	inactive := &models.Product{ID: uuid.New(), Name: "Off"}
	svc, _ := NewService(&stubReader{byID: map[uuid.UUID]*models.Product{active.ID: active, inactive.ID: inactive}})

	got, err := svc.GetProduct(context.Background(), active.ID)
	if err != nil || got.Name != "On" {
		t.Fatalf("unexpected result %+v err=%v", got, err)
	}
	if got.PriceBeforeDiscount != nil {
		t.Fatal("expected no pre-discount price")
	}

	for _, id := range []uuid.UUID{inactive.ID, uuid.New()} {
		if _, err := svc.GetProduct(context.Background(), id); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			t.Fatalf("expected not found for %s, got %v", id, err)
		}
	}
}
