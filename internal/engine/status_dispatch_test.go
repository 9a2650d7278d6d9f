package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MRamiBalles/worldstatus/internal/domain/role"
	"github.com/MRamiBalles/worldstatus/internal/domain/status"
	"github.com/MRamiBalles/worldstatus/internal/protocol"
)

func TestDisplayUpdatesGoToOwnerOnly(t *testing.T) {
	env := newTestEnv(t, nil)
	_, set := env.register(t, 1, role.KindPlayer, 100)
	ctx := context.Background()

	_ = set.Add(ctx, set.NewStatus(Params{ID: status.Decelerated, Power: 20, Seconds: 10}))
	_ = set.Add(ctx, set.NewStatus(Params{ID: status.FireAura, Power: 7, Seconds: 10}))
	_ = set.Remove(ctx, status.Decelerated)
	_ = set.Remove(ctx, status.FireAura)

	env.sink.mu.Lock()
	defer env.sink.mu.Unlock()
	var race, aura int
	for _, m := range env.sink.msgs {
		switch m.msg.(type) {
		case protocol.MsgRaceTrackStatus:
			race++
		case protocol.MsgAura:
			aura++
		default:
			continue
		}
		if m.room || m.to != 1 {
			t.Errorf("expected %s sent to the owner only, got to=%d room=%v", m.msg.MessageType(), m.to, m.room)
		}
	}
	if race != 2 || aura != 2 {
		t.Fatalf("expected 2 race track and 2 aura messages, got %d and %d", race, aura)
	}
}

func TestAttributeSyncCarriesInterval(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var calls atomic.Int64
	env := newTestEnv(t, func(o *Options) {
		// every reading moves time forward, as a real clock would
		o.Clock = func() time.Time { return base.Add(time.Duration(calls.Add(1)) * time.Millisecond) }
	})
	_, set := env.register(t, 1, role.KindPlayer, 100)
	ctx := context.Background()

	_ = set.Add(ctx, set.NewStatus(Params{ID: status.AzureShield, Power: 800, Seconds: 20, Magic: &status.MagicRef{Level: 4}}))
	_ = set.Add(ctx, set.NewStatus(Params{ID: status.MagicDefender, Power: 30, Seconds: 15, Magic: &status.MagicRef{Level: 2}}))
	_ = set.Add(ctx, set.NewStatus(Params{ID: status.SoulShackle, Seconds: 12}))

	var timers []uint64
	for _, m := range sentOf[protocol.MsgSyncAttribute](env.sink) {
		timers = append(timers, m.Values[0])
	}
	if len(timers) != 3 || timers[0] != 20 || timers[1] != 15 || timers[2] != 12 {
		t.Fatalf("expected interval seconds [20 15 12], got %v", timers)
	}
}
