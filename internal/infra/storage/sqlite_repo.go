package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MRamiBalles/worldstatus/internal/domain/status"
	"github.com/MRamiBalles/worldstatus/internal/events"
)

const tracerName = "github.com/MRamiBalles/worldstatus/internal/infra/storage"

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// ---------------------------------------------------------
// SQLiteStatusRepository
// ---------------------------------------------------------

// SQLiteStatusRepository implements StatusRepository for SQLite.
type SQLiteStatusRepository struct {
	db *sql.DB
}

var _ StatusRepository = (*SQLiteStatusRepository)(nil)

func NewSQLiteStatusRepository(db *sql.DB) *SQLiteStatusRepository {
	return &SQLiteStatusRepository{db: db}
}

func (r *SQLiteStatusRepository) Save(ctx context.Context, rec status.Record) (id int64, err error) {
	ctx, span := startSpan(ctx, "status.save",
		attribute.Int64("status.owner", int64(rec.OwnerID)),
		attribute.Int("status.id", int(rec.Status)),
	)
	defer func() { endSpan(span, err) }()

	if rec.ID == 0 {
		query := `
			INSERT INTO statuses (owner_id, status, power, interval_time, leave_times, remain_time, end_time, sort)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`
		res, err := r.db.ExecContext(ctx, query,
			rec.OwnerID, int(rec.Status), rec.Power, rec.IntervalSecs,
			rec.LeaveTimes, rec.RemainSecs, rec.EndTime, rec.Sort,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert status: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("failed to read status id: %w", err)
		}
		return id, nil
	}

	query := `
		UPDATE statuses SET
			owner_id = ?, status = ?, power = ?, interval_time = ?,
			leave_times = ?, remain_time = ?, end_time = ?, sort = ?
		WHERE id = ?
	`
	res, err := r.db.ExecContext(ctx, query,
		rec.OwnerID, int(rec.Status), rec.Power, rec.IntervalSecs,
		rec.LeaveTimes, rec.RemainSecs, rec.EndTime, rec.Sort, rec.ID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update status %d: %w", rec.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Row vanished (deleted by another process); write it back under its id.
		if _, err := r.db.ExecContext(ctx, `
			INSERT INTO statuses (id, owner_id, status, power, interval_time, leave_times, remain_time, end_time, sort)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.OwnerID, int(rec.Status), rec.Power, rec.IntervalSecs,
			rec.LeaveTimes, rec.RemainSecs, rec.EndTime, rec.Sort,
		); err != nil {
			return 0, fmt.Errorf("failed to reinsert status %d: %w", rec.ID, err)
		}
	}
	return rec.ID, nil
}

func (r *SQLiteStatusRepository) Delete(ctx context.Context, rec status.Record) (err error) {
	ctx, span := startSpan(ctx, "status.delete", attribute.Int64("status.record", rec.ID))
	defer func() { endSpan(span, err) }()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM statuses WHERE id = ?`, rec.ID); err != nil {
		return fmt.Errorf("failed to delete status %d: %w", rec.ID, err)
	}
	return nil
}

func (r *SQLiteStatusRepository) GetByOwner(ctx context.Context, ownerID uint32) (out []status.Record, err error) {
	ctx, span := startSpan(ctx, "status.get_by_owner", attribute.Int64("status.owner", int64(ownerID)))
	defer func() { endSpan(span, err) }()

	query := `
		SELECT id, owner_id, status, power, interval_time, leave_times, remain_time, end_time, sort
		FROM statuses WHERE owner_id = ? ORDER BY sort ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query statuses of %d: %w", ownerID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec status.Record
		var id int
		if err := rows.Scan(
			&rec.ID, &rec.OwnerID, &id, &rec.Power, &rec.IntervalSecs,
			&rec.LeaveTimes, &rec.RemainSecs, &rec.EndTime, &rec.Sort,
		); err != nil {
			return nil, fmt.Errorf("failed to scan status: %w", err)
		}
		rec.Status = status.ID(id)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------
// SQLiteEventRepository
// ---------------------------------------------------------

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

var (
	_ EventRepository       = (*SQLiteEventRepository)(nil)
	_ events.EventPersister = (*SQLiteEventRepository)(nil)
)

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

// Append satisfies events.EventPersister.
func (r *SQLiteEventRepository) Append(event events.Event) error {
	return r.Insert(context.Background(), event)
}

func (r *SQLiteEventRepository) Insert(ctx context.Context, event events.Event) error {
	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO status_events (id, timestamp, event_type, actor_id, target_id, status, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		event.ID, event.Timestamp.UnixNano(), string(event.Type), event.ActorID,
		event.TargetID, event.Status, string(payloadBytes),
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]events.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var e events.Event
		var ts int64
		var eventType, payload string
		if err := rows.Scan(&e.ID, &ts, &eventType, &e.ActorID, &e.TargetID, &e.Status, &payload); err != nil {
			return nil, err
		}
		e.Timestamp = time.Unix(0, ts)
		e.Type = events.EventType(eventType)
		if payload != "" && payload != "null" {
			e.Payload = json.RawMessage(payload)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteEventRepository) GetByTarget(ctx context.Context, roleID uint32) ([]events.Event, error) {
	query := `SELECT id, timestamp, event_type, actor_id, target_id, status, payload FROM status_events WHERE target_id = ? ORDER BY timestamp ASC`
	return r.getMany(ctx, query, roleID)
}

func (r *SQLiteEventRepository) GetByType(ctx context.Context, t events.EventType) ([]events.Event, error) {
	query := `SELECT id, timestamp, event_type, actor_id, target_id, status, payload FROM status_events WHERE event_type = ? ORDER BY timestamp ASC`
	return r.getMany(ctx, query, string(t))
}
