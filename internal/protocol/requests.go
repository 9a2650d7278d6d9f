package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/MRamiBalles/worldstatus/internal/domain/status"
)

// Request actions accepted from the AI process and the admin API.
const (
	ActionAttach = "attach"
	ActionDetach = "detach"
)

// StatusRequest asks the engine to attach or detach a status on a role.
// Status carries an external code: callers must pass it through
// status.RealStatus before handing it to the engine.
type StatusRequest struct {
	Action  string `json:"action"`
	RoleID  uint32 `json:"role_id"`
	Status  int    `json:"status"`
	Power   int32  `json:"power"`
	Seconds int    `json:"seconds"`
	Times   int    `json:"times"`
	Caster  uint32 `json:"caster"`
	Save    bool   `json:"save"`
}

// Validate checks the request shape.
func (r StatusRequest) Validate() error {
	switch r.Action {
	case ActionAttach, ActionDetach:
	default:
		return fmt.Errorf("unknown action %q", r.Action)
	}
	if r.RoleID == 0 {
		return fmt.Errorf("role_id is required")
	}
	if r.Action == ActionAttach {
		if r.Seconds < 0 || r.Seconds > status.MaxSeconds {
			return fmt.Errorf("seconds must be within 0..%d", status.MaxSeconds)
		}
		if r.Times < 0 || r.Times > status.MaxTimes {
			return fmt.Errorf("times must be within 0..%d", status.MaxTimes)
		}
	}
	return nil
}

// CanonicalStatus applies the legacy remap exactly once.
func (r StatusRequest) CanonicalStatus() status.ID {
	return status.RealStatus(r.Status)
}

// DecodeRequest unwraps an envelope carrying a StatusRequest.
func DecodeRequest(raw []byte) (StatusRequest, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return StatusRequest{}, fmt.Errorf("failed to parse envelope: %w", err)
	}
	if env.Type != "status_request" {
		return StatusRequest{}, fmt.Errorf("unexpected message type %q", env.Type)
	}
	var req StatusRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		return StatusRequest{}, fmt.Errorf("failed to parse status request: %w", err)
	}
	return req, req.Validate()
}

func (StatusRequest) MessageType() string { return "status_request" }
