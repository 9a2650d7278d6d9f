package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MRamiBalles/worldstatus/internal/domain/role"
	"github.com/MRamiBalles/worldstatus/internal/domain/status"
	"github.com/MRamiBalles/worldstatus/internal/events"
	"github.com/MRamiBalles/worldstatus/internal/platform/logger"
	"github.com/MRamiBalles/worldstatus/internal/platform/metrics"
)

// ErrRoleNotFound is returned for requests against an unregistered role.
var ErrRoleNotFound = errors.New("role not found")

// Options wires the engine's collaborators. Nil fields get working defaults:
// no persistence, no client or AI delivery, a LocalWorld over the engine's
// own roles, the wall clock and a private metrics collector.
type Options struct {
	Store   Store
	Sink    ClientSink
	AI      AINotifier
	World   World
	Events  *events.EventLog
	Metrics *metrics.Collector
	Logger  *logger.Logger
	Clock   Clock
}

// services is shared by every StatusSet of one engine.
type services struct {
	store    Store
	sink     ClientSink
	ai       AINotifier
	world    World
	eventLog *events.EventLog
	metrics  *metrics.Collector
	logger   *logger.Logger
	clock    Clock
}

func (s *services) appendEvent(e events.Event) {
	if s.eventLog != nil {
		s.eventLog.Append(e)
	}
}

// Engine owns the live roles and their status registries.
type Engine struct {
	svc    *services
	logger *logger.Logger

	mu    sync.RWMutex
	roles map[uint32]*role.Role
	sets  map[uint32]*StatusSet
}

// NewEngine creates an engine with the given collaborators.
func NewEngine(opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	e := &Engine{
		logger: log.Named("engine"),
		roles:  make(map[uint32]*role.Role),
		sets:   make(map[uint32]*StatusSet),
	}

	svc := &services{
		store:    opts.Store,
		sink:     opts.Sink,
		ai:       opts.AI,
		world:    opts.World,
		eventLog: opts.Events,
		metrics:  opts.Metrics,
		logger:   log.Named("status"),
		clock:    opts.Clock,
	}
	if svc.sink == nil {
		svc.sink = nopSink{}
	}
	if svc.ai == nil {
		svc.ai = nopAI{}
	}
	if svc.metrics == nil {
		svc.metrics = metrics.New()
	}
	if svc.world == nil {
		svc.world = NewLocalWorld(e.Role, svc.sink, svc.eventLog, log.Named("world"))
	}
	e.svc = svc
	return e
}

// RegisterRole adds a role to the world and returns its registry. Players
// get their persisted statuses restored.
func (e *Engine) RegisterRole(ctx context.Context, r *role.Role) (*StatusSet, error) {
	e.mu.Lock()
	if _, ok := e.roles[r.ID]; ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("role %d already registered", r.ID)
	}
	set := newStatusSet(r, e.svc)
	e.roles[r.ID] = r
	e.sets[r.ID] = set
	e.mu.Unlock()

	e.logger.Info("role registered", zap.Uint32("role", r.ID), zap.String("kind", string(r.Kind)))

	if r.IsPlayer() && e.svc.store != nil {
		if _, err := e.RestoreStatuses(ctx, set); err != nil {
			return set, err
		}
		set.BroadcastAll()
	}
	return set, nil
}

// UnregisterRole drops a role. Its statuses stay persisted.
func (e *Engine) UnregisterRole(id uint32) {
	e.mu.Lock()
	set, ok := e.sets[id]
	delete(e.roles, id)
	delete(e.sets, id)
	e.mu.Unlock()

	if ok {
		for _, st := range set.list() {
			st.Release()
		}
	}
}

// Role returns a registered role.
func (e *Engine) Role(id uint32) (*role.Role, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.roles[id]
	return r, ok
}

// Statuses returns the registry of a role.
func (e *Engine) Statuses(id uint32) (*StatusSet, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.sets[id]
	return s, ok
}

// Sets returns every registry, ordered by role id.
func (e *Engine) Sets() []*StatusSet {
	e.mu.RLock()
	out := make([]*StatusSet, 0, len(e.sets))
	for _, s := range e.sets {
		out = append(out, s)
	}
	e.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].owner.ID < out[j].owner.ID })
	return out
}

// Attach applies a status to a role by canonical id.
func (e *Engine) Attach(ctx context.Context, roleID uint32, p Params) error {
	set, ok := e.Statuses(roleID)
	if !ok {
		return fmt.Errorf("attach status %d to %d: %w", p.ID, roleID, ErrRoleNotFound)
	}
	return set.Attach(ctx, p)
}

// Detach removes a status from a role by canonical id.
func (e *Engine) Detach(ctx context.Context, roleID uint32, id status.ID) error {
	set, ok := e.Statuses(roleID)
	if !ok {
		return fmt.Errorf("detach status %d from %d: %w", id, roleID, ErrRoleNotFound)
	}
	return set.Detach(ctx, id)
}

// EventLog exposes the status event log.
func (e *Engine) EventLog() *events.EventLog {
	return e.svc.eventLog
}

// Metrics exposes the engine's collector.
func (e *Engine) Metrics() *metrics.Collector {
	return e.svc.metrics
}

// RestoreStatuses re-creates a player's persisted statuses. Expired pulsed
// records are deleted; stored ids are canonical and are not remapped.
func (e *Engine) RestoreStatuses(ctx context.Context, set *StatusSet) (int, error) {
	owner := set.owner
	records, err := e.svc.store.GetByOwner(ctx, owner.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to load statuses for %d: %w", owner.ID, err)
	}

	now := e.svc.clock.now()
	restored := 0
	for _, rec := range records {
		p := Params{ID: rec.Status, Power: rec.Power, Save: true}
		if rec.LeaveTimes > 0 {
			p.Seconds = int(rec.IntervalSecs)
			p.Times = int(rec.LeaveTimes)
		} else {
			remaining := rec.Remaining(now)
			if remaining <= 0 {
				if err := e.svc.store.Delete(ctx, rec); err != nil {
					e.logger.Warn("failed to delete expired status", zap.Int64("record", rec.ID), zap.Error(err))
				}
				continue
			}
			p.Seconds = int((remaining + time.Second - 1) / time.Second)
		}

		st := set.NewStatus(p)
		st.adoptRecord(rec)
		err := set.Add(ctx, st)
		switch {
		case err == nil, errors.Is(err, status.ErrPersistenceFailed):
			restored++
		case errors.Is(err, status.ErrAlreadyExists), errors.Is(err, status.ErrOutOfRange):
			e.logger.Warn("skipped stored status", zap.Int("status", int(rec.Status)), zap.Error(err))
			continue
		default:
			return restored, err
		}
		e.svc.appendEvent(events.New(events.EventTypeStatusRestored, 0, owner.ID, int(rec.Status), set.payload(st, "login")))
	}
	return restored, nil
}
