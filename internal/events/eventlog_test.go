package events

import (
	"errors"
	"sync"
	"testing"
)

type memPersister struct {
	mu   sync.Mutex
	seen []Event
	fail bool
}

func (m *memPersister) Append(e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("store offline")
	}
	m.seen = append(m.seen, e)
	return nil
}

func TestAppendWritesThrough(t *testing.T) {
	p := &memPersister{}
	log := NewEventLog(p, nil)

	log.Append(New(EventTypeStatusApplied, 0, 7, 2, StatusPayload{Power: 10}))
	log.Append(New(EventTypeCombatAttack, 7, 9, 0, AmountPayload{Amount: 149}))
	log.Flush()

	if len(p.seen) != 2 {
		t.Fatalf("expected 2 persisted events, got %d", len(p.seen))
	}
	if log.Len() != 2 {
		t.Fatalf("expected 2 events in memory, got %d", log.Len())
	}
}

func TestSubscribersSeeEveryAppend(t *testing.T) {
	log := NewEventLog(nil, nil)
	var got []uint32
	log.Subscribe(func(e Event) { got = append(got, e.TargetID) })

	log.Append(New(EventTypeStatusApplied, 0, 7, 2, nil))
	log.Append(New(EventTypeCombatAttack, 7, 9, 0, nil))

	if len(got) != 2 || got[0] != 7 || got[1] != 9 {
		t.Fatalf("expected targets [7 9], got %v", got)
	}
	if !EventTypeStatusExpired.IsStatus() || EventTypeCombatAttack.IsStatus() {
		t.Error("IsStatus misclassifies event types")
	}
}

func TestSubscriberMayReadLog(t *testing.T) {
	log := NewEventLog(nil, nil)
	var seen int
	log.Subscribe(func(Event) { seen = log.Len() })

	log.Append(New(EventTypeStatusRemoved, 0, 7, 2, nil))
	if seen != 1 {
		t.Fatalf("subscriber should run after the append lands, saw %d", seen)
	}
}

func TestPersisterFailureKeepsMemoryCopy(t *testing.T) {
	log := NewEventLog(&memPersister{fail: true}, nil)
	log.Append(New(EventTypeStatusRemoved, 0, 7, 2, nil))
	log.Flush()

	if log.Len() != 1 {
		t.Fatalf("expected event kept in memory, got %d", log.Len())
	}
}

func TestGetByRoleMatchesActorAndTarget(t *testing.T) {
	log := NewEventLog(nil, nil)
	log.Append(New(EventTypeStatusApplied, 0, 7, 2, nil))
	log.Append(New(EventTypeCombatAttack, 7, 9, 0, nil))
	log.Append(New(EventTypeStatusApplied, 0, 9, 46, nil))

	if got := len(log.GetByRole(7)); got != 2 {
		t.Errorf("expected 2 events for role 7, got %d", got)
	}
	if got := len(log.GetByType(EventTypeStatusApplied)); got != 2 {
		t.Errorf("expected 2 applied events, got %d", got)
	}
}

func TestReplayReturnsCopy(t *testing.T) {
	log := NewEventLog(nil, nil)
	log.Append(New(EventTypeStatusFlash, 0, 7, 31, nil))

	snap := log.Replay()
	snap[0].Type = EventTypeRoleKilled

	if log.Replay()[0].Type != EventTypeStatusFlash {
		t.Fatal("replay must not expose internal storage")
	}
	if a, b := GenerateEventID(), GenerateEventID(); a == b {
		t.Fatal("expected unique event ids")
	}
}
