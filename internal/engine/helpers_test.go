package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MRamiBalles/worldstatus/internal/domain/role"
	"github.com/MRamiBalles/worldstatus/internal/domain/status"
	"github.com/MRamiBalles/worldstatus/internal/events"
	"github.com/MRamiBalles/worldstatus/internal/protocol"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sent struct {
	to   uint32
	room bool
	msg  protocol.Message
}

type recordingSink struct {
	mu   sync.Mutex
	msgs []sent
}

func (s *recordingSink) SendTo(roleID uint32, msg protocol.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, sent{to: roleID, msg: msg})
}

func (s *recordingSink) BroadcastRoom(roleID uint32, msg protocol.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, sent{to: roleID, room: true, msg: msg})
}

func sentOf[T protocol.Message](s *recordingSink) []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []T
	for _, m := range s.msgs {
		if v, ok := m.msg.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

type recordingAI struct {
	mu   sync.Mutex
	msgs []protocol.MsgAiRoleStatusFlag
}

func (a *recordingAI) NotifyStatus(msg protocol.MsgAiRoleStatusFlag) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.msgs = append(a.msgs, msg)
}

type memStore struct {
	mu       sync.Mutex
	rows     map[int64]status.Record
	next     int64
	failSave bool
	deleted  []int64
	// onSave runs before a write lands, outside the store lock.
	onSave func(rec status.Record)
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[int64]status.Record)}
}

func (m *memStore) Save(_ context.Context, rec status.Record) (int64, error) {
	if m.onSave != nil {
		m.onSave(rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return 0, errors.New("database is locked")
	}
	if rec.ID == 0 {
		m.next++
		rec.ID = m.next
	}
	m.rows[rec.ID] = rec
	return rec.ID, nil
}

func (m *memStore) Delete(_ context.Context, rec status.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, rec.ID)
	m.deleted = append(m.deleted, rec.ID)
	return nil
}

func (m *memStore) GetByOwner(_ context.Context, owner uint32) ([]status.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []status.Record
	for _, r := range m.rows {
		if r.OwnerID == owner {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type testEnv struct {
	engine *Engine
	clock  *fakeClock
	sink   *recordingSink
	ai     *recordingAI
	store  *memStore
	events *events.EventLog
}

func newTestEnv(t *testing.T, mutate func(*Options)) *testEnv {
	t.Helper()
	env := &testEnv{
		clock:  newFakeClock(),
		sink:   &recordingSink{},
		ai:     &recordingAI{},
		store:  newMemStore(),
		events: events.NewEventLog(nil, nil),
	}
	opts := Options{
		Store:  env.store,
		Sink:   env.sink,
		AI:     env.ai,
		Events: env.events,
		Clock:  env.clock.Now,
	}
	if mutate != nil {
		mutate(&opts)
	}
	env.engine = NewEngine(opts)
	return env
}

func (env *testEnv) register(t *testing.T, id uint32, kind role.Kind, maxLife int) (*role.Role, *StatusSet) {
	t.Helper()
	r := role.NewRole(id, "role", kind, maxLife)
	set, err := env.engine.RegisterRole(context.Background(), r)
	if err != nil {
		t.Fatalf("register role %d: %v", id, err)
	}
	return r, set
}
