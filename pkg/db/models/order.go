package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tripmarket-backend/pkg/enums"
)

// Order is a single-product purchase. Rows are never deleted; status
// transitions bump Version.
type Order struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderNo          string            `gorm:"column:order_no;not null;uniqueIndex:ux_orders_order_no"`
	UserID           uuid.UUID         `gorm:"column:user_id;type:uuid;not null"`
	ProductID        uuid.UUID         `gorm:"column:product_id;type:uuid;not null"`
	Quantity         int               `gorm:"column:quantity;not null"`
	TotalPrice       int64             `gorm:"column:total_price;not null"`
	Status           enums.OrderStatus `gorm:"column:status;type:text;not null"`
	StockDecremented bool              `gorm:"column:stock_decremented;not null;default:false"`
	Version          int               `gorm:"column:version;not null;default:0"`
	CanceledAt       *time.Time        `gorm:"column:canceled_at"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
