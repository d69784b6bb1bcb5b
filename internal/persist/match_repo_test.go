package persist

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/armoralley/server/internal/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Runs against a real PostgreSQL when ARMORALLEY_TEST_DSN is set.
func TestMatchRepoRoundTrip(t *testing.T) {
	dsn := os.Getenv("ARMORALLEY_TEST_DSN")
	if dsn == "" {
		t.Skip("ARMORALLEY_TEST_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := NewDB(ctx, config.DatabaseConfig{DSN: dsn, MaxOpenConns: 2}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := RunMigrations(ctx, db.Pool); err != nil {
		t.Fatal(err)
	}

	repo := NewMatchRepo(db)
	id := uuid.New()
	if err := repo.Begin(ctx, id, 33*time.Millisecond, 12); err != nil {
		t.Fatal(err)
	}
	batch := []FrameDigest{
		{Frame: 0, Digest: 1, Entities: 12},
		{Frame: 1, Digest: 1 << 63, Entities: 12},
		{Frame: 2, Digest: 3, Entities: 11},
	}
	n, err := repo.WriteDigests(ctx, id, batch)
	if err != nil || n != 3 {
		t.Fatalf("write: n=%d err=%v", n, err)
	}
	got, err := repo.Digests(ctx, id, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != batch[1] || got[1] != batch[2] {
		t.Errorf("unexpected digests %+v", got)
	}
	if err := repo.Finish(ctx, id, 3, "friendly"); err != nil {
		t.Fatal(err)
	}
}
