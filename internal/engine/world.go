package engine

import (
	"go.uber.org/zap"

	"github.com/MRamiBalles/worldstatus/internal/domain/role"
	"github.com/MRamiBalles/worldstatus/internal/events"
	"github.com/MRamiBalles/worldstatus/internal/platform/logger"
	"github.com/MRamiBalles/worldstatus/internal/protocol"
)

// RoleLookup resolves a live role by id.
type RoleLookup func(id uint32) (*role.Role, bool)

// LocalWorld is the in-process World: it mutates roles directly, records
// what happened in the event log and keeps clients in sync.
type LocalWorld struct {
	lookup   RoleLookup
	sink     ClientSink
	eventLog *events.EventLog
	logger   *logger.Logger
}

var _ World = (*LocalWorld)(nil)

// NewLocalWorld creates the default World.
func NewLocalWorld(lookup RoleLookup, sink ClientSink, eventLog *events.EventLog, log *logger.Logger) *LocalWorld {
	if sink == nil {
		sink = nopSink{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &LocalWorld{lookup: lookup, sink: sink, eventLog: eventLog, logger: log}
}

func (w *LocalWorld) QueryRole(id uint32) (*role.Role, bool) {
	if id == 0 || w.lookup == nil {
		return nil, false
	}
	return w.lookup(id)
}

// ResetCombatState drops the target lock and any cast in progress.
func (w *LocalWorld) ResetCombatState(r *role.Role) {
	r.ResetCombat()
}

// AbortCast stops the current cast. The local world has no uninterruptible
// casts, so force only shows up in the log.
func (w *LocalWorld) AbortCast(r *role.Role, force bool) {
	if r.AbortCast() {
		w.logger.Info("cast aborted", zap.Uint32("role", r.ID), zap.Bool("force", force))
	}
}

// Attack records a damage notification from attackerID against target.
func (w *LocalWorld) Attack(attackerID uint32, target *role.Role, amount int) {
	w.append(events.New(events.EventTypeCombatAttack, attackerID, target.ID, 0,
		events.AmountPayload{Amount: amount}))
}

// ApplyLifeDelta changes life and pushes the new value to the room.
func (w *LocalWorld) ApplyLifeDelta(target *role.Role, delta int) int {
	life := target.AddLife(delta)
	w.sink.BroadcastRoom(target.ID, protocol.MsgSyncAttribute{
		Identity: target.ID,
		Counter:  protocol.UpdateHitpoints,
		Values:   []uint64{uint64(life)},
	})
	return life
}

// GrantResource adds to a pool and syncs the owner.
func (w *LocalWorld) GrantResource(owner *role.Role, res role.Resource, amount int) {
	v := owner.Grant(res, amount)

	counter := protocol.UpdateStamina
	switch res {
	case role.ResourceLucky:
		counter = protocol.UpdateLuckyTime
	case role.ResourceLife:
		counter = protocol.UpdateHitpoints
	}
	w.sink.SendTo(owner.ID, protocol.MsgSyncAttribute{
		Identity: owner.ID,
		Counter:  counter,
		Values:   []uint64{uint64(v)},
	})
	w.append(events.New(events.EventTypeResourceGranted, 0, owner.ID, 0,
		events.AmountPayload{Kind: string(res), Amount: amount}))
}

// GrantExperience awards banked experience to a player.
func (w *LocalWorld) GrantExperience(owner *role.Role) int64 {
	if !owner.IsPlayer() {
		return 0
	}
	award := owner.AwardBankedExperience()
	if award == 0 {
		return 0
	}
	w.sink.SendTo(owner.ID, protocol.MsgSyncAttribute{
		Identity: owner.ID,
		Counter:  protocol.UpdateExperience,
		Values:   []uint64{uint64(owner.Experience())},
	})
	w.append(events.New(events.EventTypeExperience, 0, owner.ID, 0,
		events.AmountPayload{Amount: int(award)}))
	return award
}

// CastArea triggers an area ability centered on x, y.
func (w *LocalWorld) CastArea(owner *role.Role, magicType uint16, x, y int) {
	msg := protocol.MsgMagicEffect{AttackerIdentity: owner.ID, MagicIdentity: magicType}
	w.sink.BroadcastRoom(owner.ID, msg)
	w.append(events.New(events.EventTypeAreaPulse, owner.ID, owner.ID, 0,
		events.AmountPayload{Kind: "magic", Amount: int(magicType)}))
	w.logger.Info("area pulse", zap.Uint32("role", owner.ID), zap.Int("x", x), zap.Int("y", y))
}

// Kill marks the role dead.
func (w *LocalWorld) Kill(target *role.Role, killerID uint32) {
	target.MarkDead()
	w.append(events.New(events.EventTypeRoleKilled, killerID, target.ID, 0, nil))
	w.logger.Event(string(events.EventTypeRoleKilled), target.ID, "role killed")
}

func (w *LocalWorld) append(e events.Event) {
	if w.eventLog != nil {
		w.eventLog.Append(e)
	}
}
