// Package events provides the append-only log of status transitions.
// Admin tooling replays it to explain why an entity carries (or lost) a status.
package events

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MRamiBalles/worldstatus/internal/platform/logger"
)

// EventType defines the category of a status event.
type EventType string

const (
	EventTypeStatusApplied   EventType = "STATUS_APPLIED"
	EventTypeStatusChanged   EventType = "STATUS_CHANGED"
	EventTypeStatusRemoved   EventType = "STATUS_REMOVED"
	EventTypeStatusExpired   EventType = "STATUS_EXPIRED"
	EventTypeStatusFlash     EventType = "STATUS_FLASH"
	EventTypeStatusRestored  EventType = "STATUS_RESTORED"
	EventTypeStatusTickFault EventType = "STATUS_TICK_FAULT"
	EventTypeCombatAttack    EventType = "COMBAT_ATTACK"
	EventTypeRoleKilled      EventType = "ROLE_KILLED"
	EventTypeResourceGranted EventType = "RESOURCE_GRANTED"
	EventTypeAreaPulse       EventType = "AREA_PULSE"
	EventTypeExperience      EventType = "EXPERIENCE_AWARDED"
)

// IsStatus reports whether the event records a status lifecycle change.
func (t EventType) IsStatus() bool {
	return strings.HasPrefix(string(t), "STATUS_")
}

// StatusPayload is attached to status lifecycle events.
type StatusPayload struct {
	Power   int32  `json:"power"`
	Seconds int    `json:"seconds"`
	Times   int    `json:"times"`
	Caster  uint32 `json:"caster"`
	Reason  string `json:"reason,omitempty"`
}

// AmountPayload is attached to combat and resource events.
type AmountPayload struct {
	Kind   string `json:"kind,omitempty"`
	Amount int    `json:"amount"`
}

// Event is an immutable record of something the status engine did.
type Event struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	ActorID   uint32      `json:"actor_id"`  // who caused it (caster, attacker), 0 for the world
	TargetID  uint32      `json:"target_id"` // entity that carries the status
	Status    int         `json:"status,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
}

// New stamps an event with a fresh id and time.
func New(t EventType, actor, target uint32, statusID int, payload interface{}) Event {
	return Event{
		ID:        GenerateEventID(),
		Timestamp: time.Now(),
		Type:      t,
		ActorID:   actor,
		TargetID:  target,
		Status:    statusID,
		Payload:   payload,
	}
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event Event) error
}

// EventLog is the in-memory append-only log of status events, optionally
// written through to a persister.
type EventLog struct {
	mu        sync.RWMutex
	events    []Event
	persister EventPersister
	logger    *logger.Logger
	wg        sync.WaitGroup

	subscribers []func(Event)
}

// NewEventLog creates a new event log with an optional persister.
func NewEventLog(persister EventPersister, log *logger.Logger) *EventLog {
	if log == nil {
		log = logger.NewNop()
	}
	return &EventLog{
		events:    make([]Event, 0),
		persister: persister,
		logger:    log,
	}
}

// Append adds a new event to the log. Events are immutable once appended.
// Persistence is asynchronous; a failed write is logged and the in-memory
// copy is kept.
func (el *EventLog) Append(event Event) {
	el.mu.Lock()
	el.events = append(el.events, event)
	subs := el.subscribers
	el.mu.Unlock()

	for _, fn := range subs {
		fn(event)
	}

	if el.persister == nil {
		return
	}
	el.wg.Add(1)
	go func(e Event) {
		defer el.wg.Done()
		if err := el.persister.Append(e); err != nil {
			el.logger.Warn("failed to persist status event",
				zap.String("id", e.ID), zap.String("type", string(e.Type)), zap.Error(err))
		}
	}(event)
}

// Subscribe registers fn to run after every Append, on the appending
// goroutine. fn must not block.
func (el *EventLog) Subscribe(fn func(Event)) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.subscribers = append(el.subscribers[:len(el.subscribers):len(el.subscribers)], fn)
}

// Flush waits for pending persister writes.
func (el *EventLog) Flush() {
	el.wg.Wait()
}

// GetByRole returns all events where the role is the actor or the target.
func (el *EventLog) GetByRole(roleID uint32) []Event {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []Event
	for _, e := range el.events {
		if e.TargetID == roleID || e.ActorID == roleID {
			result = append(result, e)
		}
	}
	return result
}

// GetByType returns all events of one type.
func (el *EventLog) GetByType(t EventType) []Event {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []Event
	for _, e := range el.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// Replay returns a copy of the full history.
func (el *EventLog) Replay() []Event {
	el.mu.RLock()
	defer el.mu.RUnlock()
	out := make([]Event, len(el.events))
	copy(out, el.events)
	return out
}

// Len returns the number of events held in memory.
func (el *EventLog) Len() int {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return len(el.events)
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}
