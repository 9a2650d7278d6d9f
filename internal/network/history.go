// Package network - history.go
// Status history endpoint: replays the status event log of a role so
// operators can see why it carries (or lost) a status.
package network

import (
	"net/http"
	"strconv"
	"time"

	"github.com/MRamiBalles/worldstatus/internal/events"
	"github.com/MRamiBalles/worldstatus/internal/infra/storage"
	"github.com/MRamiBalles/worldstatus/internal/platform/logger"
)

// HistoryHandler provides the status history API.
type HistoryHandler struct {
	eventLog *events.EventLog
	recon    *storage.Reconstructor
	logger   *logger.Logger
}

// NewHistoryHandler creates a new history handler. recon may be nil when
// events are not persisted.
func NewHistoryHandler(el *events.EventLog, recon *storage.Reconstructor, log *logger.Logger) *HistoryHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &HistoryHandler{
		eventLog: el,
		recon:    recon,
		logger:   log.Named("history"),
	}
}

// HistoryResponse is the API response for a status history.
type HistoryResponse struct {
	RoleID      uint32               `json:"role_id"`
	Source      string               `json:"source"`
	TotalEvents int                  `json:"total_events"`
	FilteredBy  string               `json:"filtered_by,omitempty"`
	GeneratedAt string               `json:"generated_at"`
	Events      []storage.RecapEvent `json:"events"`
}

// HandleHistory returns the status history of a role.
// GET /api/status/history?role=ID&type=STATUS_EXPIRED&since=RFC3339&source=db
func (hh *HistoryHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	roleID, ok := roleParam(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	eventType := events.EventType(q.Get("type"))
	var since time.Time
	if s := q.Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			jsonError(w, "Invalid since, want RFC3339", http.StatusBadRequest)
			return
		}
		since = t
	}

	resp := HistoryResponse{
		RoleID:      roleID,
		Source:      "memory",
		GeneratedAt: time.Now().Format(time.RFC3339),
		Events:      []storage.RecapEvent{},
	}
	if eventType != "" {
		resp.FilteredBy = string(eventType)
	}

	var recap []storage.RecapEvent
	if q.Get("source") == "db" {
		if hh.recon == nil {
			jsonError(w, "Event persistence disabled", http.StatusServiceUnavailable)
			return
		}
		var err error
		recap, err = hh.recon.GenerateRecap(r.Context(), roleID, since)
		if err != nil {
			hh.logger.Warn("history query failed: " + err.Error())
			jsonError(w, "History unavailable", http.StatusInternalServerError)
			return
		}
		resp.Source = "db"
	} else {
		for _, e := range hh.eventLog.GetByRole(roleID) {
			if e.TargetID != roleID || e.Timestamp.Before(since) {
				continue
			}
			recap = append(recap, storage.Summarize(e))
		}
	}

	for _, e := range recap {
		if eventType != "" && e.EventType != eventType {
			continue
		}
		resp.Events = append(resp.Events, e)
	}
	resp.TotalEvents = len(resp.Events)

	hh.logger.Event("STATUS_HISTORY", roleID, resp.Source+" events:"+strconv.Itoa(resp.TotalEvents))
	jsonSuccess(w, http.StatusOK, resp)
}

// HandleActive returns the statuses the persisted log says a role carries.
// GET /api/status/history/active?role=ID
func (hh *HistoryHandler) HandleActive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	roleID, ok := roleParam(w, r)
	if !ok {
		return
	}
	if hh.recon == nil {
		jsonError(w, "Event persistence disabled", http.StatusServiceUnavailable)
		return
	}
	active, err := hh.recon.RebuildActive(r.Context(), roleID)
	if err != nil {
		hh.logger.Warn("rebuild failed: " + err.Error())
		jsonError(w, "History unavailable", http.StatusInternalServerError)
		return
	}
	jsonSuccess(w, http.StatusOK, map[string]interface{}{
		"role_id": roleID,
		"active":  active,
	})
}

// HandleStats returns aggregate counts over the in-memory status log.
// GET /api/status/stats
func (hh *HistoryHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	all := hh.eventLog.Replay()
	stats := map[string]int{"total_events": len(all)}
	for _, e := range all {
		stats[string(e.Type)]++
	}

	jsonSuccess(w, http.StatusOK, map[string]interface{}{
		"generated_at": time.Now().Format(time.RFC3339),
		"stats":        stats,
	})
}

// RegisterRoutes sets up the history API routes.
func (hh *HistoryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/status/history", hh.HandleHistory)
	mux.HandleFunc("/api/status/history/active", hh.HandleActive)
	mux.HandleFunc("/api/status/stats", hh.HandleStats)
}
