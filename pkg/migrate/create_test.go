package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCreateSQLMigrationBuildsTableSkeleton(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)

	path, err := createSQLMigration(dir, "Create Order Notes", now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if filepath.Base(path) != "20260305120000_create_order_notes.sql" {
		t.Fatalf("unexpected file name %s", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, want := range []string{
		"CREATE TABLE IF NOT EXISTS order_notes",
		"id uuid PRIMARY KEY DEFAULT gen_random_uuid()",
		"DROP TABLE IF EXISTS order_notes",
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("missing %q", want)
		}
	}
}

func TestCreateSQLMigrationAddColumnTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := createSQLMigration(dir, "add_cancel_reason_to_orders", time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "ALTER TABLE orders ADD COLUMN IF NOT EXISTS cancel_reason text;") {
		t.Fatalf("unexpected up statement:\n%s", data)
	}
	if !strings.Contains(string(data), "ALTER TABLE orders DROP COLUMN IF EXISTS cancel_reason;") {
		t.Fatalf("unexpected down statement:\n%s", data)
	}
}

func TestCreateSQLMigrationVersionSortsAfterExisting(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "20260401000000_create_orders.sql"), []byte("-- +goose Up\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	path, err := createSQLMigration(dir, "backfill order numbers", time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if filepath.Base(path) != "20260401000001_backfill_order_numbers.sql" {
		t.Fatalf("version not bumped past existing: %s", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "-- +goose StatementBegin") {
		t.Fatalf("expected generic template:\n%s", data)
	}
}

func TestCreateSQLMigrationRejectsEmptyNames(t *testing.T) {
	if _, err := createSQLMigration("", "x", time.Now()); err == nil {
		t.Fatal("expected dir error")
	}
	if _, err := createSQLMigration(t.TempDir(), " -- ", time.Now()); err == nil {
		t.Fatal("expected name error")
	}
}
