package orders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tripmarket-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tripmarket-backend/pkg/enums"
)

func TestTransitionIsConditional(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	user := dbtest.SeedUser(t, conn)
	product := dbtest.SeedProduct(t, conn, 1000, 1)
	order := dbtest.SeedOrder(t, conn, dbtest.OrderSeed{UserID: user.ID, Product: product})
	ctx := context.Background()

	moved, err := repo.Transition(ctx, order.ID, enums.OpenOrderStatuses, enums.OrderStatusCanceled, nil)
	require.NoError(t, err)
	assert.True(t, moved)

	moved, err = repo.Transition(ctx, order.ID, enums.OpenOrderStatuses, enums.OrderStatusDone, nil)
	require.NoError(t, err)
	assert.False(t, moved, "second transition must lose")

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCanceled, stored.Status)
	assert.Equal(t, order.Version+1, stored.Version)
}

func TestListOpenCreatedBefore(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	user := dbtest.SeedUser(t, conn)
	product := dbtest.SeedProduct(t, conn, 1000, 10)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	old := dbtest.SeedOrder(t, conn, dbtest.OrderSeed{UserID: user.ID, Product: product, CreatedAt: now.Add(-10 * time.Minute)})
	olderReady := dbtest.SeedOrder(t, conn, dbtest.OrderSeed{UserID: user.ID, Product: product, Status: enums.OrderStatusReady, CreatedAt: now.Add(-20 * time.Minute)})
	dbtest.SeedOrder(t, conn, dbtest.OrderSeed{UserID: user.ID, Product: product, CreatedAt: now.Add(-time.Minute)})
	dbtest.SeedOrder(t, conn, dbtest.OrderSeed{UserID: user.ID, Product: product, Status: enums.OrderStatusDone, CreatedAt: now.Add(-time.Hour)})

	rows, err := repo.ListOpenCreatedBefore(context.Background(), now.Add(-5*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, olderReady.ID, rows[0].ID)
	assert.Equal(t, old.ID, rows[1].ID)

	rows, err = repo.ListOpenCreatedBefore(context.Background(), now.Add(-5*time.Minute), 1)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestNewOrderNoIsUnique(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	a := NewOrderNo(now)
	b := NewOrderNo(now)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 2+14+20)
	assert.Equal(t, "OR20260301090000", a[:16])

	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		no := NewOrderNo(now)
		_, dup := seen[no]
		require.False(t, dup, "order number repeated within one second: %s", no)
		seen[no] = struct{}{}
	}
}

func TestLockByOrderNo(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	user := dbtest.SeedUser(t, conn)
	product := dbtest.SeedProduct(t, conn, 1000, 1)
	order := dbtest.SeedOrder(t, conn, dbtest.OrderSeed{UserID: user.ID, Product: product})

	locked, err := repo.LockByOrderNo(context.Background(), order.OrderNo)
	require.NoError(t, err)
	assert.Equal(t, order.ID, locked.ID)
}
