// Package cache provides an in-process cache for quick status reads.
// It is never the source of truth: the engine's registries are.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/MRamiBalles/worldstatus/internal/domain/status"
)

const (
	DefaultSize = 1024
	DefaultTTL  = 2 * time.Second
)

// Snapshot is the cached status picture of one role.
type Snapshot struct {
	RoleID   uint32           `json:"role_id"`
	Flags    status.FlagWords `json:"flags"`
	Statuses []status.Info    `json:"statuses"`
	TakenAt  int64            `json:"taken_at"` // Unix milliseconds
}

// Has reports whether the snapshot carries the status.
func (s Snapshot) Has(id status.ID) bool {
	return s.Flags.Has(id)
}

// SnapshotCache keeps recent role snapshots for admin reads, bounded by size
// and age.
type SnapshotCache struct {
	lru *expirable.LRU[uint32, Snapshot]
}

// NewSnapshotCache creates a new snapshot cache instance.
func NewSnapshotCache(size int, ttl time.Duration) *SnapshotCache {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SnapshotCache{lru: expirable.NewLRU[uint32, Snapshot](size, nil, ttl)}
}

// Get returns the cached snapshot of a role.
func (c *SnapshotCache) Get(roleID uint32) (Snapshot, bool) {
	return c.lru.Get(roleID)
}

// Set caches the snapshot of a role.
func (c *SnapshotCache) Set(snap Snapshot) {
	c.lru.Add(snap.RoleID, snap)
}

// GetOrLoad returns the cached snapshot, or builds and caches a fresh one.
func (c *SnapshotCache) GetOrLoad(roleID uint32, load func() (Snapshot, bool)) (Snapshot, bool) {
	if snap, ok := c.lru.Get(roleID); ok {
		return snap, true
	}
	snap, ok := load()
	if !ok {
		return Snapshot{}, false
	}
	snap.RoleID = roleID
	c.lru.Add(roleID, snap)
	return snap, true
}

// Invalidate drops the cached snapshot of a role.
func (c *SnapshotCache) Invalidate(roleID uint32) {
	c.lru.Remove(roleID)
}

// Len returns the number of cached snapshots.
func (c *SnapshotCache) Len() int {
	return c.lru.Len()
}
