// Package dbtest provides an isolated sqlite database carrying the order
// schema for package tests.
package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/tripmarket-backend/pkg/db/models"
	"github.com/angelmondragon/tripmarket-backend/pkg/enums"
)

// Open returns a fresh in-memory database. The pool is capped at one
// connection so concurrent callers serialize the way row locks would on
// Postgres.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:tm_" + uuid.NewString() + "?mode=memory&cache=shared&_busy_timeout=5000"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Order{},
		&models.Payment{},
		&models.PaymentCardDetail{},
		&models.PaymentBankDetail{},
		&models.OutboxEvent{},
		&models.OutboxDLQ{},
	); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}

// SeedUser inserts a buyer.
func SeedUser(t testing.TB, conn *gorm.DB) models.User {
	t.Helper()
	user := models.User{
		Email:    uuid.NewString() + "@example.test",
		Nickname: "traveler",
	}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// SeedProduct inserts an event product with the given unit price and stock.
func SeedProduct(t testing.TB, conn *gorm.DB, price int64, stock int) models.Product {
	t.Helper()
	product := models.Product{Title: "Hallasan sunrise hike", Price: price, Stock: stock}
	if err := conn.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

// OrderSeed describes an order row to insert directly.
type OrderSeed struct {
	UserID           uuid.UUID
	Product          models.Product
	Quantity         int
	Status           enums.OrderStatus
	StockDecremented bool
	CreatedAt        time.Time
}

// SeedOrder inserts an order as-is, bypassing the lifecycle services.
func SeedOrder(t testing.TB, conn *gorm.DB, seed OrderSeed) models.Order {
	t.Helper()
	if seed.Quantity == 0 {
		seed.Quantity = 1
	}
	if seed.CreatedAt.IsZero() {
		seed.CreatedAt = time.Now().UTC()
	}
	order := models.Order{
		OrderNo:          "ORD-" + uuid.NewString()[:8],
		UserID:           seed.UserID,
		ProductID:        seed.Product.ID,
		Quantity:         seed.Quantity,
		TotalPrice:       seed.Product.Price * int64(seed.Quantity),
		StockDecremented: seed.StockDecremented,
		CreatedAt:        seed.CreatedAt,
		UpdatedAt:        seed.CreatedAt,
	}
	if seed.Status == "" {
		seed.Status = enums.OrderStatusPending
	}
	order.Status = seed.Status
	if err := conn.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

// ProductStock reads the current stock of a product.
func ProductStock(t testing.TB, conn *gorm.DB, productID uuid.UUID) int {
	t.Helper()
	var product models.Product
	if err := conn.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product.Stock
}

// PaymentSeed describes a payment row to insert directly.
type PaymentSeed struct {
	Order     models.Order
	Status    enums.PaymentStatus
	PayToken  string
	CreatedAt time.Time
}

// SeedPayment inserts a payment for the order as-is.
func SeedPayment(t testing.TB, conn *gorm.DB, seed PaymentSeed) models.Payment {
	t.Helper()
	if seed.Status == "" {
		seed.Status = enums.PaymentStatusDone
	}
	if seed.PayToken == "" {
		seed.PayToken = "tok_" + uuid.NewString()[:8]
	}
	if seed.CreatedAt.IsZero() {
		seed.CreatedAt = time.Now().UTC()
	}
	payment := models.Payment{
		OrderID:    seed.Order.ID,
		UserID:     seed.Order.UserID,
		PayToken:   seed.PayToken,
		Amount:     seed.Order.TotalPrice,
		PaidAmount: seed.Order.TotalPrice,
		Status:     seed.Status,
		CreatedAt:  seed.CreatedAt,
		UpdatedAt:  seed.CreatedAt,
	}
	if err := conn.Omit("Card", "Bank").Create(&payment).Error; err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	return payment
}
