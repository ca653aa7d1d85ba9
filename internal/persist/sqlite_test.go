package persist_test

import (
	"context"
	"testing"
	"time"

	"dealroom/internal/config"
	"dealroom/internal/domain"
	"dealroom/internal/migrate"
	"dealroom/internal/persist"
	"dealroom/internal/store"
)

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	conn, err := persist.Open(persist.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	p := persist.SQLite{DB: conn}
	ctx := context.Background()

	if snap, err := p.Load(ctx, "deal-1"); err != nil || snap != nil {
		t.Fatalf("expected nil,nil for missing snapshot, got %v %v", snap, err)
	}

	cfg := config.Default("deal-1")
	snap := store.Seed("deal-1", "Acme Ltd", "12 King Street", cfg, time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	snap.Room.Status = domain.RoomSetupConfirmed
	if err := p.Save(ctx, "deal-1", snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := p.Load(ctx, "deal-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil || got.Deal.Tenant != "Acme Ltd" || got.Room.Status != domain.RoomSetupConfirmed {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Room.Hots.Version != 1 || got.Room.Hots.Fields["Term"] == "" {
		t.Fatalf("seeded hots lost: %+v", got.Room.Hots)
	}

	// upsert replaces wholesale
	snap.Room.Hots.Version = 7
	if err := p.Save(ctx, "deal-1", snap); err != nil {
		t.Fatalf("resave: %v", err)
	}
	got, err = p.Load(ctx, "deal-1")
	if err != nil || got.Room.Hots.Version != 7 {
		t.Fatalf("expected replaced snapshot, got %+v (%v)", got, err)
	}

	ids, err := p.ListDealIDs(ctx)
	if err != nil || len(ids) != 1 || ids[0] != "deal-1" {
		t.Fatalf("list: %v %v", ids, err)
	}
}
