package cache

import (
	"testing"
	"time"

	"github.com/MRamiBalles/worldstatus/internal/domain/status"
)

func TestGetOrLoadCachesUntilInvalidated(t *testing.T) {
	c := NewSnapshotCache(4, time.Minute)
	loads := 0
	load := func() (Snapshot, bool) {
		loads++
		var f status.FlagWords
		f.Set(status.Shield)
		return Snapshot{Flags: f, Statuses: []status.Info{{Status: status.Shield, Seconds: 10, Valid: true}}}, true
	}

	for i := 0; i < 3; i++ {
		snap, ok := c.GetOrLoad(7, load)
		if !ok || snap.RoleID != 7 || !snap.Has(status.Shield) {
			t.Fatalf("unexpected snapshot %+v", snap)
		}
	}
	if loads != 1 {
		t.Fatalf("expected a single load, got %d", loads)
	}

	c.Invalidate(7)
	if _, ok := c.Get(7); ok {
		t.Fatal("expected snapshot dropped")
	}
	c.GetOrLoad(7, load)
	if loads != 2 {
		t.Fatalf("expected reload after invalidation, got %d", loads)
	}
}

func TestGetOrLoadMissIsNotCached(t *testing.T) {
	c := NewSnapshotCache(4, time.Minute)
	if _, ok := c.GetOrLoad(1, func() (Snapshot, bool) { return Snapshot{}, false }); ok {
		t.Fatal("expected miss")
	}
	if c.Len() != 0 {
		t.Fatal("expected nothing cached for an unknown role")
	}
}

func TestSnapshotsExpire(t *testing.T) {
	c := NewSnapshotCache(4, 20*time.Millisecond)
	c.Set(Snapshot{RoleID: 3})
	if _, ok := c.Get(3); !ok {
		t.Fatal("expected fresh snapshot")
	}
	time.Sleep(60 * time.Millisecond)
	if _, ok := c.Get(3); ok {
		t.Fatal("expected snapshot to expire")
	}
}

func TestSizeBound(t *testing.T) {
	c := NewSnapshotCache(2, time.Minute)
	for id := uint32(1); id <= 3; id++ {
		c.Set(Snapshot{RoleID: id})
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 cached, got %d", c.Len())
	}
	if _, ok := c.Get(1); ok {
		t.Fatal("expected oldest evicted")
	}
}
