package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/tripmarket-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one %s migration, found %d", suffix, len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestEventProductsMigrationGuardsStock(t *testing.T) {
	assertContains(t, readMigration(t, "create_event_products"), []string{
		"CREATE TABLE IF NOT EXISTS event_products",
		"CHECK (stock >= 0)",
		"DROP TABLE IF EXISTS event_products",
	})
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	assertContains(t, readMigration(t, "create_orders"), []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"stock_decremented boolean NOT NULL DEFAULT false",
		"version integer NOT NULL DEFAULT 0",
		"CHECK (status IN ('PENDING', 'READY', 'DONE', 'FAILED', 'CANCELED', 'REFUNDED'))",
		"ux_orders_order_no",
		"WHERE status IN ('PENDING', 'READY')",
		"FOREIGN KEY (product_id) REFERENCES event_products(id)",
	})
}

func TestPaymentsMigrationContainsConstraints(t *testing.T) {
	assertContains(t, readMigration(t, "create_payments"), []string{
		"CREATE TABLE IF NOT EXISTS payments",
		"ux_payments_order_id ON payments (order_id)",
		"'REFUND_REQUESTED'",
		"'EXPIRED'",
		"CREATE TABLE IF NOT EXISTS payment_card_details",
		"CREATE TABLE IF NOT EXISTS payment_bank_details",
		"REFERENCES payments(id) ON DELETE CASCADE",
		"DROP TABLE IF EXISTS payments",
	})
}

func TestValidateDirAcceptsRepositoryMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	embedded, err := fs.Glob(migrate.Embedded(), "*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob disk: %v", err)
	}
	if len(embedded) == 0 || len(embedded) != len(onDisk) {
		t.Fatalf("embedded %d migrations, disk has %d", len(embedded), len(onDisk))
	}
	if err := migrate.ValidateFS(migrate.Embedded()); err != nil {
		t.Fatalf("ValidateFS: %v", err)
	}
}

func TestValidateFSRejectsMissingDownSection(t *testing.T) {
	dir := t.TempDir()
	body := "-- +goose Up\nCREATE TABLE x (id int);\n"
	if err := os.WriteFile(filepath.Join(dir, "20260101000000_x.sql"), []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	err := migrate.ValidateDir(dir)
	if err == nil || !strings.Contains(err.Error(), "goose Down") {
		t.Fatalf("expected missing down error, got %v", err)
	}
}
