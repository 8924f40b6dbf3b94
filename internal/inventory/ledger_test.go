package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/tripmarket-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/tripmarket-backend/pkg/errors"
)

func TestDecrementTakesStock(t *testing.T) {
	db := dbtest.Open(t)
	product := dbtest.SeedProduct(t, db, 10000, 5)
	ledger := NewLedger(db)

	require.NoError(t, ledger.Decrement(context.Background(), product.ID, 3))
	assert.Equal(t, 2, dbtest.ProductStock(t, db, product.ID))
}

func TestDecrementOutOfStockLeavesStockUntouched(t *testing.T) {
	db := dbtest.Open(t)
	product := dbtest.SeedProduct(t, db, 10000, 2)
	ledger := NewLedger(db)

	err := ledger.Decrement(context.Background(), product.ID, 3)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeOutOfStock, typed.Code())
	assert.Equal(t, 2, typed.Details().(map[string]any)["available"])
	assert.Equal(t, 2, dbtest.ProductStock(t, db, product.ID))
}

func TestDecrementExactStockReachesZero(t *testing.T) {
	db := dbtest.Open(t)
	product := dbtest.SeedProduct(t, db, 10000, 4)
	ledger := NewLedger(db)

	require.NoError(t, ledger.Decrement(context.Background(), product.ID, 4))
	assert.Equal(t, 0, dbtest.ProductStock(t, db, product.ID))
	assert.True(t, pkgerrors.IsCode(ledger.Decrement(context.Background(), product.ID, 1), pkgerrors.CodeOutOfStock))
}

func TestDecrementUnknownProduct(t *testing.T) {
	db := dbtest.Open(t)
	err := NewLedger(db).Decrement(context.Background(), uuid.New(), 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeEventProductNotFound))
}

func TestDecrementRejectsNonPositiveQuantity(t *testing.T) {
	db := dbtest.Open(t)
	product := dbtest.SeedProduct(t, db, 10000, 4)
	err := NewLedger(db).Decrement(context.Background(), product.ID, 0)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestConcurrentDecrementsNeverOversell(t *testing.T) {
	db := dbtest.Open(t)
	product := dbtest.SeedProduct(t, db, 10000, 5)
	ledger := NewLedger(db)

	quantities := []int{3, 4}
	errs := make([]error, len(quantities))
	var wg sync.WaitGroup
	for i, qty := range quantities {
		wg.Add(1)
		go func(i, qty int) {
			defer wg.Done()
			errs[i] = ledger.Decrement(context.Background(), product.ID, qty)
		}(i, qty)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeOutOfStock), "unexpected error %v", err)
	}
	assert.Equal(t, 1, succeeded)
	stock := dbtest.ProductStock(t, db, product.ID)
	assert.True(t, stock == 2 || stock == 1, "unexpected stock %d", stock)
}

func TestIncrementRestoresStock(t *testing.T) {
	db := dbtest.Open(t)
	product := dbtest.SeedProduct(t, db, 10000, 1)
	ledger := NewLedger(db)

	require.NoError(t, ledger.Increment(context.Background(), product.ID, 2))
	assert.Equal(t, 3, dbtest.ProductStock(t, db, product.ID))
	assert.True(t, pkgerrors.IsCode(ledger.Increment(context.Background(), uuid.New(), 1), pkgerrors.CodeEventProductNotFound))
}

func TestWithTxRollsBackWithTransaction(t *testing.T) {
	db := dbtest.Open(t)
	product := dbtest.SeedProduct(t, db, 10000, 5)
	ledger := NewLedger(db)

	_ = db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, ledger.WithTx(tx).Decrement(context.Background(), product.ID, 5))
		return gorm.ErrInvalidTransaction
	})
	assert.Equal(t, 5, dbtest.ProductStock(t, db, product.ID))
}
