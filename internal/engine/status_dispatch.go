package engine

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/MRamiBalles/worldstatus/internal/domain/role"
	"github.com/MRamiBalles/worldstatus/internal/domain/rules"
	"github.com/MRamiBalles/worldstatus/internal/domain/status"
	"github.com/MRamiBalles/worldstatus/internal/protocol"
)

// Magic types the dispatch table triggers on its own.
const (
	MagicPoison         uint16 = 10010
	MagicShurikenVortex uint16 = 6010
)

const (
	luckyDiffuseGain  = 3
	luckyAbsorbGain   = 1
	luckyAbsorbRange  = 3
	auraDisplayPower0 = 30
)

// applyTick is the per-identity side effect of one due tick.
func (s *StatusSet) applyTick(ctx context.Context, st *Status) error {
	owner := s.owner
	world := s.svc.world

	switch st.Identity() {
	case status.Poisoned:
		if !owner.IsAlive() {
			st.forceExpire()
			return nil
		}
		life := owner.Life()
		loss := rules.PoisonLoss(life)
		world.Attack(st.CasterID(), owner, min(life, loss))
		if loss > 0 {
			world.ApplyLifeDelta(owner, -loss)
		}
		s.damageVisual(owner, loss)
		if !owner.IsAlive() {
			world.Kill(owner, st.CasterID())
		}

	case status.ToxicFog:
		if !owner.IsAlive() {
			st.forceExpire()
			return nil
		}
		life := owner.Life()
		loss := rules.ToxicLoss(life, int(st.Power()), owner.Detoxication())
		world.Attack(st.CasterID(), owner, min(life, loss))
		if loss > 0 {
			world.ApplyLifeDelta(owner, -loss)
		}
		s.damageVisual(owner, loss)

	case status.ShurikenVortex:
		if !owner.IsAlive() {
			st.forceExpire()
			return nil
		}
		x, y := owner.Position()
		world.CastArea(owner, MagicShurikenVortex, x, y)

	case status.DragonFlow:
		m := st.Magic()
		if !owner.IsAlive() || m == nil {
			st.forceExpire()
			return nil
		}
		world.GrantResource(owner, role.ResourceStamina, int(m.Power))

	case status.LuckyDiffuse:
		if !owner.IsPlayer() {
			return nil
		}
		world.GrantResource(owner, role.ResourceLucky, luckyDiffuseGain)

	case status.LuckyAbsorb:
		if !owner.IsPlayer() {
			return nil
		}
		caster, ok := world.QueryRole(st.CasterID())
		if !ok || caster.Distance(owner) > luckyAbsorbRange {
			st.forceExpire()
			return nil
		}
		world.GrantResource(owner, role.ResourceLucky, luckyAbsorbGain)
	}
	return nil
}

func (s *StatusSet) damageVisual(owner *role.Role, loss int) {
	msg := protocol.MsgMagicEffect{AttackerIdentity: owner.ID, MagicIdentity: MagicPoison}
	msg.Append(owner.ID, loss, true)
	s.svc.sink.BroadcastRoom(owner.ID, msg)
}

// submitStatusData pushes the display state of st to clients. It runs on add
// and whenever a Pulsed status changes, so it must be safe to repeat.
func (s *StatusSet) submitStatusData(ctx context.Context, st *Status) {
	id := st.Identity()
	owner := s.owner
	secs := uint64(st.RemainingTime() / time.Second)
	// attribute syncs carry the configured period, not what is left of it
	interval := uint64(st.Interval() / time.Second)

	switch {
	case id.IsMovement():
		active := protocol.RaceActiveDisplay
		var amount int32
		switch id {
		case status.Decelerated:
			amount = -st.Power()
			active |= protocol.RaceActiveSlow
		case status.Accelerated:
			amount = st.Power()
		}
		s.svc.sink.SendTo(owner.ID, protocol.MsgRaceTrackStatus{
			Identity: owner.ID,
			Effects: []protocol.RaceTrackEffect{{
				Attribute: int(id) - 1,
				Active:    active,
				Amount:    amount,
				Display:   amount,
				Time:      int(secs),
			}},
		})

	case id.IsElementalAura():
		if !owner.IsPlayer() {
			return
		}
		s.svc.sink.SendTo(owner.ID, protocol.MsgAura{
			Action:   protocol.AuraAttach,
			Aura:     id.Aura(),
			Identity: st.CasterID(),
			Level:    st.Level(),
			Power0:   auraDisplayPower0,
			Power1:   st.Power(),
		})
		if !st.IsUserCast() {
			return
		}
		team, _ := id.TeamVariant()
		err := s.Attach(ctx, Params{
			ID:      team,
			Power:   st.Power(),
			Seconds: int(secs),
			Times:   st.RemainingTimes(),
			Caster:  st.CasterID(),
			Magic:   st.Magic(),
		})
		if err != nil && !errors.Is(err, status.ErrAlreadyExists) {
			s.logger.Warn("failed to attach team aura", zap.Int("status", int(team)), zap.Error(err))
		}

	case id == status.MagicDefender:
		s.syncAttribute(protocol.UpdateAzureShield, interval, uint64(protocol.TagMagicDefender), uint64(st.Level()), uint64(st.Power()))

	case id == status.SoulShackle:
		s.syncAttribute(protocol.UpdateSoulShackleTimer, interval, uint64(protocol.TagSoulShackle), 0, 0)

	case id == status.AzureShield:
		s.syncAttribute(protocol.UpdateAzureShield, interval, uint64(protocol.TagAzureShield), uint64(st.Level()), uint64(st.Power()))
	}
}

func (s *StatusSet) syncAttribute(counter protocol.UpdateType, values ...uint64) {
	s.svc.sink.BroadcastRoom(s.owner.ID, protocol.MsgSyncAttribute{
		Identity: s.owner.ID,
		Counter:  counter,
		Values:   values,
	})
}

// onStatusRemoved runs the removal side of the dispatch table. It may remove
// linked statuses from the same set.
func (s *StatusSet) onStatusRemoved(ctx context.Context, st *Status) {
	id := st.Identity()
	owner := s.owner

	if id.IsMovement() {
		s.svc.sink.SendTo(owner.ID, protocol.MsgRaceTrackStatus{
			Identity: owner.ID,
			Effects:  []protocol.RaceTrackEffect{{Attribute: int(id) - 1}},
		})
	}

	if aura := id.Aura(); aura != status.AuraNone {
		s.svc.sink.SendTo(owner.ID, protocol.MsgAura{
			Action:   protocol.AuraDetach,
			Aura:     aura,
			Identity: st.CasterID(),
			Level:    st.Level(),
			Power0:   st.Power(),
		})
		if team, ok := id.TeamVariant(); ok {
			s.cascade(ctx, team)
		}
	}

	switch id {
	case status.SoulShackle:
		s.syncAttribute(protocol.UpdateSoulShackleTimer, 0, uint64(protocol.TagSoulShackle), 0, 0)
	case status.Oblivion:
		if owner.IsPlayer() {
			s.svc.world.GrantExperience(owner)
		}
	case status.PathOfShadow:
		s.cascade(ctx, status.KineticSpark)
	}
}

func (s *StatusSet) cascade(ctx context.Context, id status.ID) {
	err := s.Remove(ctx, id)
	if err != nil && !errors.Is(err, status.ErrNotFound) {
		s.logger.Warn("failed to remove linked status", zap.Int("status", int(id)), zap.Error(err))
	}
}
