// Package network - admin.go
// AdminBridge: REST API for operators and tooling to inspect and drive
// statuses on live roles.
package network

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/MRamiBalles/worldstatus/internal/domain/role"
	"github.com/MRamiBalles/worldstatus/internal/domain/status"
	"github.com/MRamiBalles/worldstatus/internal/engine"
	"github.com/MRamiBalles/worldstatus/internal/events"
	"github.com/MRamiBalles/worldstatus/internal/infra/cache"
	"github.com/MRamiBalles/worldstatus/internal/platform/logger"
	"github.com/MRamiBalles/worldstatus/internal/protocol"
)

// AdminBridge handles admin interactions.
type AdminBridge struct {
	engine *engine.Engine
	cache  *cache.SnapshotCache
	hub    *Hub
	ai     *AILink
	logger *logger.Logger
}

// NewAdminBridge creates a new admin handler. hub and ai may be nil.
func NewAdminBridge(e *engine.Engine, c *cache.SnapshotCache, hub *Hub, ai *AILink, log *logger.Logger) *AdminBridge {
	if c == nil {
		c = cache.NewSnapshotCache(cache.DefaultSize, cache.DefaultTTL)
	}
	if log == nil {
		log = logger.NewNop()
	}
	ab := &AdminBridge{
		engine: e,
		cache:  c,
		hub:    hub,
		ai:     ai,
		logger: log.Named("admin"),
	}
	// Most status changes happen inside the engine, never passing through
	// these handlers.
	if el := e.EventLog(); el != nil {
		el.Subscribe(ab.invalidateOn)
	}
	return ab
}

func (ab *AdminBridge) invalidateOn(ev events.Event) {
	if ev.Type.IsStatus() {
		ab.cache.Invalidate(ev.TargetID)
	}
}

// StatusResponse is the snapshot view of one role.
type StatusResponse struct {
	cache.Snapshot
	Connected bool `json:"connected"`
}

// HandleAttach attaches a status to a role.
// POST /api/status/attach
func (ab *AdminBridge) HandleAttach(w http.ResponseWriter, r *http.Request) {
	ab.handleMutation(w, r, protocol.ActionAttach)
}

// HandleDetach removes a status from a role.
// POST /api/status/detach
func (ab *AdminBridge) HandleDetach(w http.ResponseWriter, r *http.Request) {
	ab.handleMutation(w, r, protocol.ActionDetach)
}

func (ab *AdminBridge) handleMutation(w http.ResponseWriter, r *http.Request, action string) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req protocol.StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Action = action
	if err := req.Validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	err := ApplyRequest(r.Context(), ab.engine, req)
	ab.cache.Invalidate(req.RoleID)

	id := req.CanonicalStatus()
	switch {
	case err == nil:
	case errors.Is(err, status.ErrPersistenceFailed):
		ab.logger.Warn("status applied but not persisted",
			zap.Uint32("role", req.RoleID), zap.Int("status", int(id)), zap.Error(err))
		jsonSuccess(w, http.StatusAccepted, map[string]interface{}{
			"success":   true,
			"persisted": false,
			"status":    id,
		})
		return
	default:
		jsonError(w, err.Error(), statusCodeFor(err))
		return
	}

	ab.logger.Event("ADMIN_"+action, req.RoleID, fmt.Sprintf("status %d (requested %d)", id, req.Status))
	jsonSuccess(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"persisted": true,
		"status":    id,
	})
}

// RoleLogin is the body of POST /api/roles/login.
type RoleLogin struct {
	RoleID  uint32    `json:"role_id"`
	Name    string    `json:"name"`
	Kind    role.Kind `json:"kind"`
	MaxLife int       `json:"max_life"`
	MapID   uint32    `json:"map_id"`
	X       int       `json:"x"`
	Y       int       `json:"y"`
}

// HandleLogin registers a role with the engine. Players get their persisted
// statuses restored.
// POST /api/roles/login
func (ab *AdminBridge) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RoleLogin
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.RoleID == 0 || req.MaxLife <= 0 {
		jsonError(w, "role_id and max_life are required", http.StatusBadRequest)
		return
	}
	if req.Kind == "" {
		req.Kind = role.KindPlayer
	}
	if req.Kind != role.KindPlayer && req.Kind != role.KindMonster {
		jsonError(w, "Unknown kind", http.StatusBadRequest)
		return
	}
	if _, exists := ab.engine.Role(req.RoleID); exists {
		jsonError(w, "Role already registered", http.StatusConflict)
		return
	}

	rl := role.NewRole(req.RoleID, req.Name, req.Kind, req.MaxLife)
	rl.MapID = req.MapID
	rl.MoveTo(req.X, req.Y)

	set, err := ab.engine.RegisterRole(r.Context(), rl)
	if set == nil {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	restored := set.Count()
	if err != nil {
		// The role is live; only the restore failed.
		ab.logger.Warn("status restore failed", zap.Uint32("role", req.RoleID), zap.Error(err))
		jsonSuccess(w, http.StatusAccepted, map[string]interface{}{
			"success":  true,
			"restored": restored,
			"error":    err.Error(),
		})
		return
	}

	ab.logger.Event("ROLE_LOGIN", req.RoleID, fmt.Sprintf("%s restored:%d", req.Kind, restored))
	jsonSuccess(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"restored": restored,
	})
}

// HandleLogout unregisters a role. Its statuses stay persisted.
// POST /api/roles/logout?role=ID
func (ab *AdminBridge) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	roleID, ok := roleParam(w, r)
	if !ok {
		return
	}
	if _, exists := ab.engine.Role(roleID); !exists {
		jsonError(w, "Role not found", http.StatusNotFound)
		return
	}

	ab.engine.UnregisterRole(roleID)
	ab.cache.Invalidate(roleID)
	ab.logger.Event("ROLE_LOGOUT", roleID, "")
	jsonSuccess(w, http.StatusOK, map[string]interface{}{"success": true})
}

// HandleStatus returns the current status snapshot of a role.
// Membership is current; remaining time and countdown occurrences may lag
// by up to the cache TTL since ticks that only advance them emit no event.
// GET /api/status?role=ID
func (ab *AdminBridge) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	roleID, ok := roleParam(w, r)
	if !ok {
		return
	}

	snap, found := ab.cache.GetOrLoad(roleID, func() (cache.Snapshot, bool) {
		set, ok := ab.engine.Statuses(roleID)
		if !ok {
			return cache.Snapshot{}, false
		}
		flags, infos := set.Snapshot()
		return cache.Snapshot{Flags: flags, Statuses: infos, TakenAt: time.Now().UnixMilli()}, true
	})
	if !found {
		jsonError(w, "Role not found", http.StatusNotFound)
		return
	}

	jsonSuccess(w, http.StatusOK, StatusResponse{
		Snapshot:  snap,
		Connected: ab.hub != nil && ab.hub.Connected(roleID),
	})
}

// HandleOnline lists the connected clients and the AI link state.
// GET /api/status/online
func (ab *AdminBridge) HandleOnline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var connected []uint32
	if ab.hub != nil {
		connected = ab.hub.ConnectedRoles()
	}
	jsonSuccess(w, http.StatusOK, map[string]interface{}{
		"connected_roles": connected,
		"online_count":    len(connected),
		"registered":      len(ab.engine.Sets()),
		"ai_connected":    ab.ai != nil && ab.ai.Connected(),
		"timestamp":       time.Now().Unix(),
	})
}

// RegisterRoutes sets up the admin API routes.
func (ab *AdminBridge) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", ab.HandleStatus)
	mux.HandleFunc("/api/status/attach", ab.HandleAttach)
	mux.HandleFunc("/api/status/detach", ab.HandleDetach)
	mux.HandleFunc("/api/status/online", ab.HandleOnline)
	mux.HandleFunc("/api/roles/login", ab.HandleLogin)
	mux.HandleFunc("/api/roles/logout", ab.HandleLogout)
}

func statusCodeFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrRoleNotFound), errors.Is(err, status.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, status.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, status.ErrOutOfRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func roleParam(w http.ResponseWriter, r *http.Request) (uint32, bool) {
	id, err := strconv.ParseUint(r.URL.Query().Get("role"), 10, 32)
	if err != nil || id == 0 {
		jsonError(w, "Missing or invalid role", http.StatusBadRequest)
		return 0, false
	}
	return uint32(id), true
}

// jsonError sends an error response.
func jsonError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// jsonSuccess sends a success response.
func jsonSuccess(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}
