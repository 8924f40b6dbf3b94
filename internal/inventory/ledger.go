package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tripmarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tripmarket-backend/pkg/errors"
)

// Ledger owns every mutation of event product stock. Decrements are a single
// conditional UPDATE so concurrent buyers can never drive stock below zero.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// WithTx binds the ledger to an open transaction.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	if tx == nil {
		return l
	}
	return &Ledger{db: tx}
}

// Decrement takes qty units from the product or fails with
// EVENT_PRODUCT_OUT_OF_STOCK leaving stock untouched.
func (l *Ledger) Decrement(ctx context.Context, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	res := l.db.WithContext(ctx).Exec(`
		UPDATE event_products
		SET stock = stock - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock >= ?
	`, qty, productID, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement stock")
	}
	if res.RowsAffected == 1 {
		return nil
	}

	available, err := l.Stock(ctx, productID)
	if err != nil {
		return err
	}
	return pkgerrors.New(pkgerrors.CodeOutOfStock, "not enough stock for event product").
		WithDetails(map[string]any{
			"product_id": productID.String(),
			"requested":  qty,
			"available":  available,
		})
}

// Increment returns qty units to the product.
func (l *Ledger) Increment(ctx context.Context, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	res := l.db.WithContext(ctx).Exec(`
		UPDATE event_products
		SET stock = stock + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, productID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "increment stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeEventProductNotFound, "event product not found")
	}
	return nil
}

// Stock reports the current stock of a product.
func (l *Ledger) Stock(ctx context.Context, productID uuid.UUID) (int, error) {
	var product models.Product
	err := l.db.WithContext(ctx).Select("id", "stock").First(&product, "id = ?", productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.New(pkgerrors.CodeEventProductNotFound, "event product not found")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("load stock for %s", productID))
	}
	return product.Stock, nil
}
