package status

import (
	"math"
	"time"
)

const (
	// MaxSeconds bounds every status duration or interval so that its
	// millisecond form fits an int32. Longer requests are clamped.
	MaxSeconds = math.MaxInt32 / 1000
	// MaxTimes bounds the occurrence count of a countdown status.
	MaxTimes = math.MaxInt32
)

// ClampSeconds bounds secs to 0..MaxSeconds.
func ClampSeconds(secs int) int {
	return max(0, min(secs, MaxSeconds))
}

// Record is the persisted shape of a status belonging to a durable
// (player-controlled) entity.
type Record struct {
	ID           int64  `json:"id" db:"id"`
	OwnerID      uint32 `json:"owner_id" db:"owner_id"`
	Status       ID     `json:"status" db:"status"`
	Power        int32  `json:"power" db:"power"`
	IntervalSecs uint32 `json:"interval_time" db:"interval_time"`
	LeaveTimes   uint32 `json:"leave_times" db:"leave_times"`
	RemainSecs   uint32 `json:"remain_time" db:"remain_time"`
	EndTime      int64  `json:"end_time" db:"end_time"` // unix seconds
	Sort         uint32 `json:"sort" db:"sort"`
}

// NewRecord builds the record for a freshly created status.
func NewRecord(owner uint32, id ID, power int32, secs, times int, now time.Time) *Record {
	secs = ClampSeconds(secs)
	return &Record{
		OwnerID:      owner,
		Status:       id,
		Power:        power,
		IntervalSecs: uint32(secs),
		LeaveTimes:   uint32(max(0, min(times, MaxTimes))),
		RemainSecs:   uint32(secs),
		EndTime:      now.Add(time.Duration(secs) * time.Second).Unix(),
	}
}

// Remaining returns how long the record still has to run at now.
func (r *Record) Remaining(now time.Time) time.Duration {
	return time.Unix(r.EndTime, 0).Sub(now)
}

// Info is a read-only snapshot of one active status.
type Info struct {
	Status  ID    `json:"status"`
	Power   int32 `json:"power"`
	Seconds int   `json:"seconds"`
	Times   int   `json:"times"`
	Valid   bool  `json:"valid"`
}

// MagicRef is the read-only spell or ability that created a status.
type MagicRef struct {
	Type  uint16 `json:"type"`
	Level uint8  `json:"level"`
	Power int32  `json:"power"`
}
