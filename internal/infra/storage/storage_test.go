package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/MRamiBalles/worldstatus/internal/domain/status"
	"github.com/MRamiBalles/worldstatus/internal/events"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitSQLite(context.Background(), filepath.Join(t.TempDir(), "status.db"))
	if err != nil {
		t.Fatalf("init sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func countRows(t *testing.T, db *sql.DB, query string, args ...interface{}) int {
	t.Helper()
	var n int
	if err := db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestInitSQLiteAppliesEmbeddedMigrationsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "status.db")
	db, err := InitSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("init sqlite: %v", err)
	}
	_ = db.Close()

	db, err = InitSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("re-open sqlite: %v", err)
	}
	defer db.Close()

	if n := countRows(t, db, "SELECT COUNT(*) FROM schema_migrations"); n != 2 {
		t.Fatalf("expected 2 recorded migrations, got %d", n)
	}
}

func TestApplyMigrationsSkipsApplied(t *testing.T) {
	db := openTestDB(t)
	fsys := fstest.MapFS{
		"001_items.sql": &fstest.MapFile{Data: []byte("-- +migrate Up\nCREATE TABLE items(id TEXT PRIMARY KEY);\n-- +migrate Down\nDROP TABLE items;")},
	}
	for i := 0; i < 2; i++ {
		if err := ApplyMigrations(context.Background(), db, fsys, ""); err != nil {
			t.Fatalf("apply #%d: %v", i, err)
		}
	}
	if n := countRows(t, db, "SELECT COUNT(*) FROM schema_migrations WHERE name = ?", "001_items.sql"); n != 1 {
		t.Fatalf("expected one row for the migration, got %d", n)
	}
	if n := countRows(t, db, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'items'"); n != 1 {
		t.Fatal("expected items table")
	}
}

func TestExtractUp(t *testing.T) {
	got := ExtractUp("-- +migrate Up\nCREATE TABLE a(x);\n-- +migrate Down\nDROP TABLE a;")
	if got != "\nCREATE TABLE a(x);\n" {
		t.Errorf("unexpected up section %q", got)
	}
	if got := ExtractUp("SELECT 1;"); got != "SELECT 1;" {
		t.Errorf("expected whole file without markers, got %q", got)
	}
}

func TestStatusRepositorySaveUpdateDelete(t *testing.T) {
	repo := NewSQLiteStatusRepository(openTestDB(t))
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	rec := *status.NewRecord(42, status.Shield, 12, 30, 0, now)
	id, err := repo.Save(ctx, rec)
	if err != nil || id == 0 {
		t.Fatalf("save: id=%d err=%v", id, err)
	}

	rec.ID = id
	rec.Power = 40
	if again, err := repo.Save(ctx, rec); err != nil || again != id {
		t.Fatalf("update: id=%d err=%v", again, err)
	}
	other := *status.NewRecord(43, status.Poisoned, 0, 2, 5, now)
	if _, err := repo.Save(ctx, other); err != nil {
		t.Fatalf("save other: %v", err)
	}

	got, err := repo.GetByOwner(ctx, 42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if got[0].Status != status.Shield || got[0].Power != 40 || got[0].EndTime != now.Add(30*time.Second).Unix() {
		t.Fatalf("unexpected record %+v", got[0])
	}

	if err := repo.Delete(ctx, got[0]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := repo.GetByOwner(ctx, 42); len(got) != 0 {
		t.Fatalf("expected record deleted, got %d", len(got))
	}
}

func TestStatusRepositorySaveRecreatesMissingRow(t *testing.T) {
	repo := NewSQLiteStatusRepository(openTestDB(t))
	ctx := context.Background()

	rec := *status.NewRecord(7, status.Poisoned, 0, 2, 3, time.Now())
	rec.ID = 99
	if id, err := repo.Save(ctx, rec); err != nil || id != 99 {
		t.Fatalf("save: id=%d err=%v", id, err)
	}
	got, err := repo.GetByOwner(ctx, 7)
	if err != nil || len(got) != 1 || got[0].ID != 99 || got[0].LeaveTimes != 3 {
		t.Fatalf("unexpected records %+v err=%v", got, err)
	}
}

func TestEventRepositoryRoundTrip(t *testing.T) {
	repo := NewSQLiteEventRepository(openTestDB(t))
	ctx := context.Background()

	applied := events.New(events.EventTypeStatusApplied, 9, 42, int(status.Poisoned), events.StatusPayload{Power: 5, Seconds: 2, Times: 3, Caster: 9})
	expired := events.New(events.EventTypeStatusExpired, 0, 42, int(status.Poisoned), nil)
	expired.Timestamp = applied.Timestamp.Add(time.Second)
	other := events.New(events.EventTypeStatusApplied, 0, 43, int(status.Shield), nil)

	for _, e := range []events.Event{applied, expired, other} {
		if err := repo.Append(e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := repo.GetByTarget(ctx, 42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 2 || got[0].ID != applied.ID || got[1].Type != events.EventTypeStatusExpired {
		t.Fatalf("unexpected events %+v", got)
	}
	if !got[0].Timestamp.Equal(applied.Timestamp) {
		t.Errorf("timestamp drifted: %s vs %s", got[0].Timestamp, applied.Timestamp)
	}

	raw, ok := got[0].Payload.(json.RawMessage)
	if !ok {
		t.Fatalf("expected raw payload, got %T", got[0].Payload)
	}
	var p events.StatusPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.Times != 3 || p.Caster != 9 {
		t.Fatalf("unexpected payload %+v err=%v", p, err)
	}
	if got[1].Payload != nil {
		t.Errorf("expected nil payload, got %v", got[1].Payload)
	}

	byType, err := repo.GetByType(ctx, events.EventTypeStatusApplied)
	if err != nil || len(byType) != 2 {
		t.Fatalf("expected 2 applied events, got %d err=%v", len(byType), err)
	}
}
