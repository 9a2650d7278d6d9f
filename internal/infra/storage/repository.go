// Package storage provides the persistence layer for the status engine.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"

	"github.com/MRamiBalles/worldstatus/internal/domain/status"
	"github.com/MRamiBalles/worldstatus/internal/events"
)

// StatusRepository persists the statuses of durable (player) roles.
type StatusRepository interface {
	// Save inserts the record when its ID is zero, otherwise updates it in
	// place. It returns the row id.
	Save(ctx context.Context, rec status.Record) (int64, error)

	// Delete removes the row of a record.
	Delete(ctx context.Context, rec status.Record) error

	// GetByOwner retrieves every stored status of a role (for restore on login).
	GetByOwner(ctx context.Context, ownerID uint32) ([]status.Record, error)
}

// EventRepository is the durable copy of the status event log.
type EventRepository interface {
	// Append adds a new event to the immutable ledger.
	Append(event events.Event) error

	// GetByTarget retrieves all events of a role, oldest first.
	GetByTarget(ctx context.Context, roleID uint32) ([]events.Event, error)

	// GetByType retrieves all events of a specific type.
	GetByType(ctx context.Context, t events.EventType) ([]events.Event, error)
}
