package engine

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/MRamiBalles/worldstatus/internal/domain/role"
	"github.com/MRamiBalles/worldstatus/internal/domain/status"
)

// Kind selects the lifecycle model of a Status.
type Kind int

const (
	// KindPulsed runs for a single duration, with an optional 1s sub-pulse.
	KindPulsed Kind = iota + 1
	// KindCountdown fires a fixed number of occurrences on an interval.
	KindCountdown
)

func (k Kind) String() string {
	switch k {
	case KindPulsed:
		return "pulsed"
	case KindCountdown:
		return "countdown"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

const (
	flashWindow   = 5 * time.Second
	pulseInterval = time.Second
	maxDurationMS = math.MaxInt32
)

// Params describes a status a requester wants applied.
type Params struct {
	ID      status.ID
	Power   int32
	Seconds int // Pulsed: duration. Countdown: interval between occurrences.
	Times   int // Countdown occurrences; 0 selects a Pulsed status.
	Caster  uint32
	Magic   *status.MagicRef
	Save    bool
}

// SideEffect applies the per-identity behavior of one tick.
type SideEffect func(ctx context.Context, st *Status) error

// TickFault wraps an error or panic raised while applying a tick.
type TickFault struct {
	Status status.ID
	Cause  error
}

func (f *TickFault) Error() string {
	return fmt.Sprintf("status %d tick fault: %v", f.Status, f.Cause)
}

func (f *TickFault) Unwrap() error {
	return f.Cause
}

// Status is one active effect on a role. Timing fields are advanced only by
// the owner's tick; every accessor takes the mutex so concurrent readers see
// the latest committed value.
type Status struct {
	kind     Kind
	id       status.ID
	ownerID  uint32
	clock    Clock
	magic    *status.MagicRef
	hasPulse bool

	mu       sync.Mutex
	power    int32
	caster   uint32
	keep     TimeOut
	pulse    TimeOut
	times    int
	flashed  bool
	released bool
	record   *status.Record
}

// NewPulsed creates a duration-based status. The record is only kept when
// save is requested and the owner is a player.
func NewPulsed(owner *role.Role, p Params, clock Clock) *Status {
	st := newStatus(KindPulsed, owner, p, clock)
	st.keep.Startup(seconds(p.Seconds))
	if p.ID == status.LuckyDiffuse || p.ID == status.LuckyAbsorb {
		st.hasPulse = true
		st.pulse.Startup(pulseInterval)
	}
	return st
}

// NewCountdown creates an occurrence-based status. The first occurrence fires
// one interval after creation.
func NewCountdown(owner *role.Role, p Params, clock Clock) *Status {
	st := newStatus(KindCountdown, owner, p, clock)
	st.times = max(0, min(p.Times, status.MaxTimes))
	st.keep.Startup(seconds(p.Seconds))
	return st
}

// seconds converts a requested duration, clamped to status.MaxSeconds.
func seconds(secs int) time.Duration {
	return time.Duration(status.ClampSeconds(secs)) * time.Second
}

func newStatus(kind Kind, owner *role.Role, p Params, clock Clock) *Status {
	st := &Status{
		kind:    kind,
		id:      p.ID,
		ownerID: owner.ID,
		clock:   clock,
		magic:   p.Magic,
		power:   p.Power,
		caster:  p.Caster,
		keep:    NewTimeOut(clock, 0),
		pulse:   NewTimeOut(clock, 0),
	}
	if p.Save && owner.IsPlayer() {
		times := 0
		if kind == KindCountdown {
			times = p.Times
		}
		st.record = status.NewRecord(owner.ID, p.ID, p.Power, p.Seconds, times, clock.now())
	}
	return st
}

// Kind returns the lifecycle model.
func (st *Status) Kind() Kind { return st.kind }

// Identity returns the status id.
func (st *Status) Identity() status.ID { return st.id }

// OwnerID returns the id of the role carrying the status.
func (st *Status) OwnerID() uint32 { return st.ownerID }

// Magic returns the spell that created the status, or nil.
func (st *Status) Magic() *status.MagicRef { return st.magic }

// Level is the creating spell level, 0 without one.
func (st *Status) Level() uint8 {
	if st.magic == nil {
		return 0
	}
	return st.magic.Level
}

func (st *Status) Power() int32 {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.power
}

func (st *Status) CasterID() uint32 {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.caster
}

// IsUserCast reports whether the owner cast the status on itself.
func (st *Status) IsUserCast() bool {
	c := st.CasterID()
	return c == 0 || c == st.ownerID
}

// IsValid reports whether the status still has duration or occurrences left.
func (st *Status) IsValid() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.validLocked()
}

func (st *Status) validLocked() bool {
	if st.released {
		return false
	}
	switch st.kind {
	case KindPulsed:
		return st.keep.IsActive() && !st.keep.IsTimeOut()
	case KindCountdown:
		return st.times > 0
	}
	return false
}

// RemainingTime is the remaining duration (Pulsed) or the time to the next
// occurrence (Countdown).
func (st *Status) RemainingTime() time.Duration {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.keep.Remain()
}

// RemainingTimes is the number of occurrences left; always 0 for Pulsed.
func (st *Status) RemainingTimes() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.times
}

// Interval is the configured duration (Pulsed) or occurrence interval.
func (st *Status) Interval() time.Duration {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.keep.Interval()
}

// Info returns a read-only snapshot.
func (st *Status) Info() status.Info {
	st.mu.Lock()
	defer st.mu.Unlock()
	return status.Info{
		Status:  st.id,
		Power:   st.power,
		Seconds: int(st.keep.Remain() / time.Second),
		Times:   st.times,
		Valid:   st.validLocked(),
	}
}

// ToFlash returns true exactly once per lifetime: the first time it is asked
// while the status is valid and within the flash window.
func (st *Status) ToFlash() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.validLocked() || st.flashed {
		return false
	}
	if st.keep.Remain() <= flashWindow {
		st.flashed = true
		return true
	}
	return false
}

// ChangeData overwrites power and timing. Pulsed restarts its duration at
// secs and only takes a non-zero caster; Countdown takes secs as the new
// interval, a positive times as the new count and always takes the caster.
func (st *Status) ChangeData(power int32, secs, times int, caster uint32) {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.clock.now()
	secs = status.ClampSeconds(secs)
	st.power = power
	switch st.kind {
	case KindPulsed:
		st.keep.SetInterval(seconds(secs))
		st.keep.Update()
		if caster != 0 {
			st.caster = caster
		}
		if st.record != nil {
			st.record.Power = power
			st.record.IntervalSecs = uint32(secs)
			st.record.EndTime = now.Add(seconds(secs)).Unix()
		}
	case KindCountdown:
		st.keep.SetInterval(seconds(secs))
		st.keep.Update()
		st.caster = caster
		if times > 0 {
			st.times = min(times, status.MaxTimes)
		}
		if st.record != nil {
			st.record.Power = power
			st.record.IntervalSecs = uint32(secs)
			st.record.LeaveTimes = uint32(max(0, min(times, status.MaxTimes)))
			st.record.EndTime = now.Add(seconds(secs)).Unix()
		}
	}
}

// IncTime extends the current period by ms, capped at limit ms.
func (st *Status) IncTime(ms, limit int) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.released {
		return false
	}
	ms, limit = max(0, min(ms, maxDurationMS)), max(0, min(limit, maxDurationMS))
	next := min(time.Duration(ms)*time.Millisecond+st.keep.Remain(), time.Duration(limit)*time.Millisecond)
	st.keep.SetInterval(next)
	st.keep.Update()
	return true
}

type timerState struct {
	keep  TimeOut
	pulse TimeOut
	times int
}

// Tick advances the status by one driver period and runs apply when an
// occurrence (Countdown) or a sub-pulse (Pulsed) is due. Countdown always
// consumes one occurrence after a successful apply, even if apply forced
// expiry. When apply fails or panics the timing is restored to what it was
// before the tick and a *TickFault is returned.
func (st *Status) Tick(ctx context.Context, apply SideEffect) error {
	st.mu.Lock()
	if !st.validLocked() {
		st.mu.Unlock()
		return nil
	}
	snap := timerState{keep: st.keep, pulse: st.pulse, times: st.times}

	fire := false
	switch st.kind {
	case KindPulsed:
		fire = st.hasPulse && st.pulse.ToNextTime()
	case KindCountdown:
		if !st.keep.ToNextTime() {
			st.mu.Unlock()
			return nil
		}
		fire = true
	}
	st.mu.Unlock()

	if fire && apply != nil {
		if err := safeApply(ctx, apply, st); err != nil {
			st.mu.Lock()
			st.keep, st.pulse, st.times = snap.keep, snap.pulse, snap.times
			st.mu.Unlock()
			return &TickFault{Status: st.id, Cause: err}
		}
	}

	if st.kind == KindCountdown {
		st.mu.Lock()
		if st.times > 0 {
			st.times--
		}
		st.mu.Unlock()
	}
	return nil
}

func safeApply(ctx context.Context, apply SideEffect, st *Status) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return apply(ctx, st)
}

// forceExpire ends the status from inside a side effect. A Countdown keeps
// one occurrence so the tick's own decrement brings it to zero.
func (st *Status) forceExpire() {
	st.mu.Lock()
	defer st.mu.Unlock()
	switch st.kind {
	case KindPulsed:
		st.keep.Clear()
	case KindCountdown:
		st.times = 1
	}
}

// Release marks the status as removed from its registry. Ticks on a
// released status are no-ops.
func (st *Status) Release() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.released = true
}

// Record returns a copy of the persisted record, if the status has one.
func (st *Status) Record() (status.Record, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.record == nil {
		return status.Record{}, false
	}
	return *st.record, true
}

// setRecordID stores the row id of a completed save and reports whether the
// status was released meanwhile. Release and Record share the mutex, so a
// concurrent removal either sees the id or is seen here.
func (st *Status) setRecordID(id int64) (released bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.record != nil && id != 0 {
		st.record.ID = id
	}
	return st.released
}

// adoptRecord reuses a stored record so saves update the same row.
func (st *Status) adoptRecord(rec status.Record) {
	st.mu.Lock()
	defer st.mu.Unlock()
	r := rec
	st.record = &r
}
