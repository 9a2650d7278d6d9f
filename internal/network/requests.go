package network

import (
	"context"
	"fmt"

	"github.com/MRamiBalles/worldstatus/internal/domain/status"
	"github.com/MRamiBalles/worldstatus/internal/engine"
	"github.com/MRamiBalles/worldstatus/internal/protocol"
)

// Requester is the part of the engine that external callers may drive.
type Requester interface {
	Attach(ctx context.Context, roleID uint32, p engine.Params) error
	Detach(ctx context.Context, roleID uint32, id status.ID) error
}

var _ Requester = (*engine.Engine)(nil)

// ApplyRequest runs a validated request against the engine. External codes
// are remapped here, once, before the engine sees them.
func ApplyRequest(ctx context.Context, r Requester, req protocol.StatusRequest) error {
	id := req.CanonicalStatus()
	switch req.Action {
	case protocol.ActionAttach:
		return r.Attach(ctx, req.RoleID, engine.Params{
			ID:      id,
			Power:   req.Power,
			Seconds: req.Seconds,
			Times:   req.Times,
			Caster:  req.Caster,
			Save:    req.Save,
		})
	case protocol.ActionDetach:
		return r.Detach(ctx, req.RoleID, id)
	default:
		return fmt.Errorf("unknown action %q", req.Action)
	}
}
