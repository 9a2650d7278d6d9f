// Package storage - reconstructor.go
// Rebuilds a role's status picture from the persisted event log: state = f(events).
package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/MRamiBalles/worldstatus/internal/domain/status"
	"github.com/MRamiBalles/worldstatus/internal/events"
)

// Reconstructor rebuilds status state from the event log.
// This is used for:
// 1. The admin history view - what happened to a role while it was offline
// 2. Auditing a restore against what the log says should be active
type Reconstructor struct {
	eventRepo EventRepository
}

// NewReconstructor creates a new state reconstructor.
func NewReconstructor(eventRepo EventRepository) *Reconstructor {
	return &Reconstructor{eventRepo: eventRepo}
}

// RecapEvent is a simplified status event for the history view.
type RecapEvent struct {
	Timestamp time.Time        `json:"timestamp"`
	EventType events.EventType `json:"event_type"`
	Status    status.ID        `json:"status"`
	ActorID   uint32           `json:"actor_id"`
	Summary   string           `json:"summary"` // Human-readable description
	Impact    string           `json:"impact"`  // "POSITIVE", "NEGATIVE", "NEUTRAL"
}

// RebuildActive replays a role's lifecycle events and returns the statuses
// the log says are still active, in id order.
func (r *Reconstructor) RebuildActive(ctx context.Context, roleID uint32) ([]status.ID, error) {
	evts, err := r.eventRepo.GetByTarget(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get events for role %d: %w", roleID, err)
	}

	active := make(map[status.ID]bool)
	for _, e := range evts {
		applyEventToState(active, e)
	}

	out := make([]status.ID, 0, len(active))
	for id := range active {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// GenerateRecap returns the status history of a role since a given time.
func (r *Reconstructor) GenerateRecap(ctx context.Context, roleID uint32, since time.Time) ([]RecapEvent, error) {
	evts, err := r.eventRepo.GetByTarget(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get events for role %d: %w", roleID, err)
	}

	recap := make([]RecapEvent, 0, len(evts))
	for _, e := range evts {
		if e.Timestamp.Before(since) {
			continue
		}
		recap = append(recap, Summarize(e))
	}
	return recap, nil
}

// Summarize turns one event into its history line.
func Summarize(e events.Event) RecapEvent {
	id := status.ID(e.Status)
	return RecapEvent{
		Timestamp: e.Timestamp,
		EventType: e.Type,
		Status:    id,
		ActorID:   e.ActorID,
		Summary:   summarizeEvent(e, id),
		Impact:    determineImpact(e.Type, id),
	}
}

func applyEventToState(active map[status.ID]bool, e events.Event) {
	id := status.ID(e.Status)
	switch e.Type {
	case events.EventTypeStatusApplied, events.EventTypeStatusRestored:
		active[id] = true
	case events.EventTypeStatusRemoved, events.EventTypeStatusExpired:
		delete(active, id)
	}
}

func summarizeEvent(e events.Event, id status.ID) string {
	switch e.Type {
	case events.EventTypeStatusApplied:
		if e.ActorID != 0 && e.ActorID != e.TargetID {
			return fmt.Sprintf("status %d applied by %d", id, e.ActorID)
		}
		return fmt.Sprintf("status %d applied", id)
	case events.EventTypeStatusChanged:
		return fmt.Sprintf("status %d refreshed", id)
	case events.EventTypeStatusRestored:
		return fmt.Sprintf("status %d restored at login", id)
	case events.EventTypeStatusRemoved:
		return fmt.Sprintf("status %d removed", id)
	case events.EventTypeStatusExpired:
		return fmt.Sprintf("status %d wore off", id)
	case events.EventTypeStatusFlash:
		return fmt.Sprintf("status %d about to end", id)
	case events.EventTypeStatusTickFault:
		return fmt.Sprintf("status %d failed to tick", id)
	case events.EventTypeCombatAttack:
		return "took damage over time"
	case events.EventTypeRoleKilled:
		return "killed by a status"
	case events.EventTypeResourceGranted:
		return "received a periodic grant"
	case events.EventTypeExperience:
		return "banked experience awarded"
	default:
		return string(e.Type)
	}
}

func determineImpact(t events.EventType, id status.ID) string {
	switch t {
	case events.EventTypeStatusApplied, events.EventTypeStatusRestored, events.EventTypeStatusChanged:
		if id.IsHarmful() {
			return "NEGATIVE"
		}
		return "POSITIVE"
	case events.EventTypeStatusRemoved, events.EventTypeStatusExpired:
		if id.IsHarmful() {
			return "POSITIVE"
		}
		return "NEUTRAL"
	case events.EventTypeCombatAttack, events.EventTypeRoleKilled, events.EventTypeStatusTickFault:
		return "NEGATIVE"
	case events.EventTypeResourceGranted, events.EventTypeExperience:
		return "POSITIVE"
	default:
		return "NEUTRAL"
	}
}
