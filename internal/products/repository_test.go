package products

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tripmarket-backend/pkg/db/dbtest"
)

func TestFindByID(t *testing.T) {
	db := dbtest.Open(t)
	seeded := dbtest.SeedProduct(t, db, 25000, 3)
	repo := NewRepository(db)

	product, err := repo.FindByID(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if product.Price != 25000 || product.Stock != 3 {
		t.Fatalf("unexpected product %+v", product)
	}
	if summary := SummaryFromModel(product); summary.Title != seeded.Title {
		t.Fatalf("unexpected summary %+v", summary)
	}

	if _, err := repo.FindByID(context.Background(), uuid.New()); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
}
