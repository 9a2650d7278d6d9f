package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MRamiBalles/worldstatus/internal/domain/role"
	"github.com/MRamiBalles/worldstatus/internal/domain/status"
	"github.com/MRamiBalles/worldstatus/internal/events"
	"github.com/MRamiBalles/worldstatus/internal/platform/logger"
	"github.com/MRamiBalles/worldstatus/internal/protocol"
)

// StatusSet is the registry of active statuses on one role.
//
// The map and the flag words change together under mu, and the words are
// mirrored onto the role inside the same critical section. Side effects
// (dispatch, persistence, broadcasts) run after mu is released so that a
// removal may cascade into another removal on the same set.
type StatusSet struct {
	owner  *role.Role
	svc    *services
	logger *logger.Logger

	mu       sync.RWMutex
	statuses map[status.ID]*Status
	flags    status.FlagWords
}

func newStatusSet(owner *role.Role, svc *services) *StatusSet {
	return &StatusSet{
		owner:    owner,
		svc:      svc,
		logger:   svc.logger.With(zap.Uint32("role", owner.ID)),
		statuses: make(map[status.ID]*Status),
	}
}

// Owner returns the role the set belongs to.
func (s *StatusSet) Owner() *role.Role {
	return s.owner
}

// NewStatus builds a Countdown when p.Times > 0, otherwise a Pulsed status.
func (s *StatusSet) NewStatus(p Params) *Status {
	if p.Times > 0 {
		return NewCountdown(s.owner, p, s.svc.clock)
	}
	return NewPulsed(s.owner, p, s.svc.clock)
}

// Add registers st. It is rejected with ErrOutOfRange or ErrAlreadyExists
// without touching state. A non-nil ErrPersistenceFailed means the status is
// active in memory but its record was not written.
func (s *StatusSet) Add(ctx context.Context, st *Status) error {
	id := st.Identity()
	if !id.Valid() {
		s.svc.metrics.RecordStatusRejected()
		return status.NewError(status.CodeOutOfRange, id, nil)
	}

	s.mu.Lock()
	if _, ok := s.statuses[id]; ok {
		s.mu.Unlock()
		s.svc.metrics.RecordStatusRejected()
		return status.NewError(status.CodeAlreadyExists, id, nil)
	}
	s.flags.Set(id)
	s.statuses[id] = st
	s.owner.StoreStatusFlags(s.flags)
	s.mu.Unlock()

	s.svc.metrics.RecordStatusAdded()
	s.notifyAI(st, protocol.AIModeAdd)

	if id.IsCrowdControl() {
		s.svc.world.ResetCombatState(s.owner)
		s.svc.world.AbortCast(s.owner, true)
	}

	s.submitStatusData(ctx, st)
	err := s.save(ctx, st)
	s.broadcastFlags()

	s.svc.appendEvent(events.New(events.EventTypeStatusApplied, st.CasterID(), s.owner.ID, int(id), s.payload(st, "")))
	s.logger.Debug("status applied", zap.Int("status", int(id)), zap.Stringer("kind", st.Kind()))
	return err
}

// Remove detaches a status on request.
func (s *StatusSet) Remove(ctx context.Context, id status.ID) error {
	return s.remove(ctx, id, nil, false)
}

func (s *StatusSet) remove(ctx context.Context, id status.ID, expected *Status, expired bool) error {
	if id < 1 || id > status.MaxID {
		s.svc.metrics.RecordStatusRejected()
		return status.NewError(status.CodeOutOfRange, id, nil)
	}

	s.mu.Lock()
	st, ok := s.statuses[id]
	if !ok || (expected != nil && st != expected) {
		s.mu.Unlock()
		if expected == nil {
			s.svc.metrics.RecordStatusRejected()
		}
		return status.NewError(status.CodeNotFound, id, nil)
	}
	s.flags.Clear(id)
	delete(s.statuses, id)
	s.owner.StoreStatusFlags(s.flags)
	s.mu.Unlock()

	st.Release()
	s.svc.metrics.RecordStatusRemoved(expired)

	err := s.deleteRecord(ctx, st)
	s.notifyAI(st, protocol.AIModeRemove)
	s.onStatusRemoved(ctx, st)
	s.broadcastFlags()

	eventType, reason := events.EventTypeStatusRemoved, "detached"
	if expired {
		eventType, reason = events.EventTypeStatusExpired, "expired"
	}
	s.svc.appendEvent(events.New(eventType, st.CasterID(), s.owner.ID, int(id), s.payload(st, reason)))
	return err
}

// Lookup returns the active status with the given id.
func (s *StatusSet) Lookup(id status.ID) (*Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.statuses[id]
	return st, ok
}

// Has reports whether the status is active.
func (s *StatusSet) Has(id status.ID) bool {
	_, ok := s.Lookup(id)
	return ok
}

// Count returns the number of active statuses.
func (s *StatusSet) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.statuses)
}

// Flags returns the registry's flag words.
func (s *StatusSet) Flags() status.FlagWords {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags
}

// GetObj resolves a single-bit flag word back to its active status.
func (s *StatusSet) GetObj(word uint64, wordIndex int) (*Status, error) {
	id, err := status.InvertFlag(word, wordIndex)
	if err != nil {
		return nil, err
	}
	st, ok := s.Lookup(id)
	if !ok {
		return nil, status.NewError(status.CodeNotFound, id, nil)
	}
	return st, nil
}

// Snapshot returns the flag words and every status' info, consistent with
// each other, ordered by id.
func (s *StatusSet) Snapshot() (status.FlagWords, []status.Info) {
	s.mu.RLock()
	flags := s.flags
	list := s.listLocked()
	s.mu.RUnlock()

	infos := make([]status.Info, 0, len(list))
	for _, st := range list {
		infos = append(infos, st.Info())
	}
	return flags, infos
}

func (s *StatusSet) list() []*Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked()
}

func (s *StatusSet) listLocked() []*Status {
	out := make([]*Status, 0, len(s.statuses))
	for _, st := range s.statuses {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity() < out[j].Identity() })
	return out
}

// BroadcastAll re-sends the full flag state to the owner's client.
func (s *StatusSet) BroadcastAll() {
	if !s.owner.IsPlayer() {
		return
	}
	s.svc.sink.SendTo(s.owner.ID, protocol.NewStatusFlag(s.owner.ID, s.owner.StatusFlags()))
}

func (s *StatusSet) broadcastFlags() {
	s.svc.sink.BroadcastRoom(s.owner.ID, protocol.NewStatusFlag(s.owner.ID, s.owner.StatusFlags()))
}

// Attach updates an active status with ChangeData or creates and adds a new one.
func (s *StatusSet) Attach(ctx context.Context, p Params) error {
	if _, ok := s.Lookup(p.ID); ok {
		return s.Change(ctx, p.ID, p.Power, p.Seconds, p.Times, p.Caster)
	}
	return s.Add(ctx, s.NewStatus(p))
}

// Detach removes a status.
func (s *StatusSet) Detach(ctx context.Context, id status.ID) error {
	return s.Remove(ctx, id)
}

// Change applies ChangeData to an active status, re-submits its display data
// and persists the record.
func (s *StatusSet) Change(ctx context.Context, id status.ID, power int32, secs, times int, caster uint32) error {
	st, ok := s.Lookup(id)
	if !ok {
		s.svc.metrics.RecordStatusRejected()
		return status.NewError(status.CodeNotFound, id, nil)
	}
	st.ChangeData(power, secs, times, caster)
	if st.Kind() == KindPulsed {
		s.submitStatusData(ctx, st)
	}
	err := s.save(ctx, st)
	s.svc.appendEvent(events.New(events.EventTypeStatusChanged, st.CasterID(), s.owner.ID, int(id), s.payload(st, "")))
	return err
}

// OnTimer runs one tick over every active status. Faults are contained per
// status; expired statuses are removed.
func (s *StatusSet) OnTimer(ctx context.Context) {
	for _, st := range s.list() {
		if err := st.Tick(ctx, s.applyTick); err != nil {
			s.tickFault(st, err)
			continue
		}
		if st.ToFlash() {
			s.svc.appendEvent(events.New(events.EventTypeStatusFlash, st.CasterID(), s.owner.ID, int(st.Identity()), s.payload(st, "")))
		}
		if !st.IsValid() {
			if err := s.remove(ctx, st.Identity(), st, true); err != nil && !errors.Is(err, status.ErrNotFound) {
				s.logger.Warn("failed to expire status", zap.Int("status", int(st.Identity())), zap.Error(err))
			}
		}
	}
}

func (s *StatusSet) tickFault(st *Status, err error) {
	s.svc.metrics.RecordTickFault()
	s.logger.Critical("status tick fault", zap.Int("status", int(st.Identity())), zap.Error(err))
	s.svc.appendEvent(events.New(events.EventTypeStatusTickFault, 0, s.owner.ID, int(st.Identity()),
		events.StatusPayload{Reason: err.Error()}))
}

func (s *StatusSet) notifyAI(st *Status, mode int) {
	s.svc.ai.NotifyStatus(protocol.MsgAiRoleStatusFlag{
		Identity: s.owner.ID,
		Caster:   st.CasterID(),
		Duration: int(st.RemainingTime() / time.Second),
		Steps:    st.RemainingTimes(),
		Flag:     st.Identity(),
		Mode:     mode,
	})
}

func (s *StatusSet) save(ctx context.Context, st *Status) error {
	if s.svc.store == nil {
		return nil
	}
	rec, ok := st.Record()
	if !ok {
		return nil
	}
	start := time.Now()
	id, err := s.svc.store.Save(ctx, rec)
	s.svc.metrics.RecordStoreWrite(time.Since(start), err)
	if err != nil {
		s.logger.Error("failed to save status record", zap.Int("status", int(st.Identity())), zap.Error(err))
		return status.NewError(status.CodePersistenceFailed, st.Identity(), err)
	}
	if st.setRecordID(id) {
		// Removed while the write was in flight: the remover saw no row id,
		// so the row just written is ours to drop.
		if err := s.deleteRecord(ctx, st); err != nil {
			s.logger.Warn("orphan status record left behind", zap.Int("status", int(st.Identity())), zap.Int64("record", id))
		}
	}
	return nil
}

func (s *StatusSet) deleteRecord(ctx context.Context, st *Status) error {
	if s.svc.store == nil {
		return nil
	}
	rec, ok := st.Record()
	if !ok || rec.ID == 0 {
		return nil
	}
	start := time.Now()
	err := s.svc.store.Delete(ctx, rec)
	s.svc.metrics.RecordStoreWrite(time.Since(start), err)
	if err != nil {
		s.logger.Error("failed to delete status record", zap.Int("status", int(st.Identity())), zap.Error(err))
		return status.NewError(status.CodePersistenceFailed, st.Identity(), err)
	}
	return nil
}

func (s *StatusSet) payload(st *Status, reason string) events.StatusPayload {
	return events.StatusPayload{
		Power:   st.Power(),
		Seconds: int(st.RemainingTime() / time.Second),
		Times:   st.RemainingTimes(),
		Caster:  st.CasterID(),
		Reason:  reason,
	}
}
