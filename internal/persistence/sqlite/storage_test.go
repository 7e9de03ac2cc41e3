package sqlite_test

import (
	"context"
	"testing"

	"github.com/example/coaching-booking/internal/testfixtures"
)

func TestStorage_MigrateIsIdempotent(t *testing.T) {
	h := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	if err := h.Storage.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
	if err := h.Storage.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	var count int
	if err := h.Storage.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("count schema_migrations: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 applied migrations, got %d", count)
	}
}
