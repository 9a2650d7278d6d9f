// Package role defines the live game entities that carry status effects.
// This package is PURE and must NOT import any infrastructure packages (network, events, platform).
package role

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/MRamiBalles/worldstatus/internal/domain/status"
)

// Kind separates durable player-controlled roles from transient ones.
type Kind string

const (
	KindPlayer  Kind = "Player"
	KindMonster Kind = "Monster"
)

// Resource identifies a pool that statuses can grant into.
type Resource string

const (
	ResourceStamina Resource = "Stamina"
	ResourceLucky   Resource = "LuckyTime"
	ResourceLife    Resource = "Life"
)

// Role is a live entity in the world. Vitals are guarded by a mutex because
// the tick driver, combat resolution and admin commands all touch them; the
// flag words are atomics so broadcasters can read them without locking.
type Role struct {
	ID    uint32 `json:"id"`
	Name  string `json:"name"`
	Kind  Kind   `json:"kind"`
	MapID uint32 `json:"map_id"`

	mu           sync.RWMutex
	life         int
	maxLife      int
	stamina      int
	maxStamina   int
	detoxication int
	luckyTime    int
	experience   int64
	bankedExp    int64
	x, y         int
	targetLock   uint32
	casting      uint16
	alive        bool

	flags [3]atomic.Uint64
}

// NewRole creates a live role with full life.
func NewRole(id uint32, name string, kind Kind, maxLife int) *Role {
	return &Role{
		ID:         id,
		Name:       name,
		Kind:       kind,
		life:       maxLife,
		maxLife:    maxLife,
		stamina:    100,
		maxStamina: 100,
		alive:      maxLife > 0,
	}
}

// IsPlayer reports whether the role is player-controlled and durable.
func (r *Role) IsPlayer() bool {
	return r.Kind == KindPlayer
}

// Life returns current life.
func (r *Role) Life() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.life
}

// MaxLife returns maximum life.
func (r *Role) MaxLife() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.maxLife
}

// SetLife overwrites current life, clamped to [0, maxLife].
func (r *Role) SetLife(v int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.life = clamp(v, 0, r.maxLife)
}

// IsAlive reports whether the role still has life and was not killed.
func (r *Role) IsAlive() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.alive && r.life > 0
}

// AddLife applies a signed life delta and returns the new life.
// Life never goes below zero nor above max.
func (r *Role) AddLife(delta int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.life = clamp(r.life+delta, 0, r.maxLife)
	return r.life
}

// MarkDead flags the role as killed.
func (r *Role) MarkDead() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.life = 0
	r.alive = false
}

// Revive restores life and clears the dead flag.
func (r *Role) Revive(life int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.life = clamp(life, 1, r.maxLife)
	r.alive = true
}

// Stamina returns current stamina.
func (r *Role) Stamina() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stamina
}

// Detoxication returns the detox stat (percentage damage-over-time mitigation).
func (r *Role) Detoxication() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.detoxication
}

// SetDetoxication sets the detox stat.
func (r *Role) SetDetoxication(v int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detoxication = v
}

// LuckyTime returns the accumulated lucky timer.
func (r *Role) LuckyTime() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.luckyTime
}

// Grant adds amount to a resource pool and returns the new value.
func (r *Role) Grant(res Resource, amount int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch res {
	case ResourceStamina:
		r.stamina = clamp(r.stamina+amount, 0, r.maxStamina)
		return r.stamina
	case ResourceLucky:
		r.luckyTime = clamp(r.luckyTime+amount, 0, math.MaxInt32)
		return r.luckyTime
	case ResourceLife:
		r.life = clamp(r.life+amount, 0, r.maxLife)
		return r.life
	}
	return 0
}

// Experience returns awarded experience.
func (r *Role) Experience() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.experience
}

// BankExperience stores experience to be awarded later (oblivion).
func (r *Role) BankExperience(amount int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bankedExp += amount
}

// BankedExperience returns experience waiting to be awarded.
func (r *Role) BankedExperience() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bankedExp
}

// AwardBankedExperience moves banked experience into experience and returns
// the amount awarded.
func (r *Role) AwardBankedExperience() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	award := r.bankedExp
	r.experience += award
	r.bankedExp = 0
	return award
}

// Position returns the map coordinates.
func (r *Role) Position() (int, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.x, r.y
}

// MoveTo sets the map coordinates.
func (r *Role) MoveTo(x, y int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.x, r.y = x, y
}

// Distance returns the chebyshev distance to another role.
func (r *Role) Distance(other *Role) int {
	x1, y1 := r.Position()
	x2, y2 := other.Position()
	return max(abs(x1-x2), abs(y1-y2))
}

// LockTarget records the current combat target.
func (r *Role) LockTarget(target uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targetLock = target
}

// TargetLock returns the current combat target, 0 if none.
func (r *Role) TargetLock() uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.targetLock
}

// BeginCast records an in-progress cast of the given magic type.
func (r *Role) BeginCast(magicType uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.casting = magicType
}

// Casting returns the magic type being cast, 0 if none.
func (r *Role) Casting() uint16 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.casting
}

// ResetCombat clears the target lock and any cast in progress.
func (r *Role) ResetCombat() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targetLock = 0
	r.casting = 0
}

// AbortCast clears the cast in progress and reports whether one was running.
func (r *Role) AbortCast() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	was := r.casting != 0
	r.casting = 0
	return was
}

// StatusFlags returns the mirrored flag words. The role is the system of
// record for broadcasts; only the status registry writes them.
func (r *Role) StatusFlags() status.FlagWords {
	return status.FlagWords{r.flags[0].Load(), r.flags[1].Load(), r.flags[2].Load()}
}

// StoreStatusFlags mirrors the registry bitmap onto the role.
func (r *Role) StoreStatusFlags(f status.FlagWords) {
	for i := range f {
		r.flags[i].Store(f[i])
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
