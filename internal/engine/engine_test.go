package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MRamiBalles/worldstatus/internal/domain/role"
	"github.com/MRamiBalles/worldstatus/internal/domain/status"
	"github.com/MRamiBalles/worldstatus/internal/events"
	"github.com/MRamiBalles/worldstatus/internal/protocol"
)

func TestRegisterRoleRestoresPersistedStatuses(t *testing.T) {
	env := newTestEnv(t, nil)
	now := env.clock.Now()

	_, _ = env.store.Save(context.Background(), status.Record{
		OwnerID: 1, Status: status.Shield, Power: 12, IntervalSecs: 120,
		EndTime: now.Add(60 * time.Second).Unix(),
	})
	_, _ = env.store.Save(context.Background(), status.Record{
		OwnerID: 1, Status: status.StarOfAccuracy, IntervalSecs: 30,
		EndTime: now.Add(-10 * time.Second).Unix(),
	})
	_, _ = env.store.Save(context.Background(), status.Record{
		OwnerID: 1, Status: status.Poisoned, Power: 0, IntervalSecs: 2, LeaveTimes: 3,
		EndTime: now.Add(-time.Hour).Unix(),
	})

	owner, set := env.register(t, 1, role.KindPlayer, 100)

	if set.Count() != 2 {
		t.Fatalf("expected 2 restored statuses, got %d", set.Count())
	}
	shield, ok := set.Lookup(status.Shield)
	if !ok || shield.Info().Seconds != 60 || shield.Power() != 12 || shield.Kind() != KindPulsed {
		t.Fatalf("unexpected restored shield %+v", shield.Info())
	}
	poison, ok := set.Lookup(status.Poisoned)
	if !ok || poison.Kind() != KindCountdown || poison.RemainingTimes() != 3 || poison.Interval() != 2*time.Second {
		t.Fatal("expected restored countdown poison")
	}
	if !owner.StatusFlags().Has(status.Shield) || !owner.StatusFlags().Has(status.Poisoned) {
		t.Fatal("expected restored flags mirrored")
	}
	if env.store.count() != 2 {
		t.Fatalf("expected the expired record deleted and the rest updated in place, got %d rows", env.store.count())
	}
	if len(env.events.GetByType(events.EventTypeStatusRestored)) != 2 {
		t.Fatal("expected restore events")
	}
	if full := sentOf[protocol.MsgStatusFlag](env.sink); full[len(full)-1].Flag1 != owner.StatusFlags()[0] {
		t.Fatal("expected full flag state sent after restore")
	}
}

func TestMonstersAreNotRestored(t *testing.T) {
	env := newTestEnv(t, nil)
	_, _ = env.store.Save(context.Background(), status.Record{
		OwnerID: 5, Status: status.Shield, EndTime: env.clock.Now().Add(time.Minute).Unix(),
	})
	_, set := env.register(t, 5, role.KindMonster, 100)
	if set.Count() != 0 {
		t.Fatal("expected monsters to start clean")
	}
}

func TestEngineAttachDetachUnknownRole(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	if err := env.engine.Attach(ctx, 77, Params{ID: status.Shield, Seconds: 5}); !errors.Is(err, ErrRoleNotFound) {
		t.Fatalf("expected role not found, got %v", err)
	}
	if err := env.engine.Detach(ctx, 77, status.Shield); !errors.Is(err, ErrRoleNotFound) {
		t.Fatalf("expected role not found, got %v", err)
	}

	env.register(t, 3, role.KindMonster, 100)
	if err := env.engine.Attach(ctx, 3, Params{ID: status.Shield, Seconds: 5}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if _, err := env.engine.RegisterRole(ctx, role.NewRole(3, "dup", role.KindMonster, 10)); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestTickerTicksEveryRegistry(t *testing.T) {
	env := newTestEnv(t, nil)
	a, setA := env.register(t, 1, role.KindMonster, 1000)
	b, setB := env.register(t, 2, role.KindMonster, 1000)
	ctx := context.Background()

	_ = setA.Add(ctx, setA.NewStatus(Params{ID: status.Poisoned, Seconds: 1, Times: 3}))
	_ = setB.Add(ctx, setB.NewStatus(Params{ID: status.Poisoned, Seconds: 1, Times: 3}))
	_ = setB.Add(ctx, setB.NewStatus(Params{ID: status.Shield, Seconds: 1}))

	ticker := NewTicker(env.engine, time.Second, 2, nil)
	env.clock.Advance(time.Second)
	ticker.Tick(ctx)

	if a.Life() != 800 || b.Life() != 800 {
		t.Fatalf("expected both roles poisoned once, got %d and %d", a.Life(), b.Life())
	}
	if setB.Has(status.Shield) {
		t.Fatal("expected expired shield removed by the tick")
	}
	if ticker.TickNumber() != 1 || env.engine.Metrics().TickCount != 1 {
		t.Fatal("expected tick counted")
	}
	if len(env.events.GetByType(events.EventTypeStatusFlash)) != 2 {
		t.Fatalf("expected a flash per poison, got %d", len(env.events.GetByType(events.EventTypeStatusFlash)))
	}
}

func TestTickerStartStops(t *testing.T) {
	env := newTestEnv(t, nil)
	ticker := NewTicker(env.engine, 10*time.Millisecond, 1, nil)

	done := make(chan error, 1)
	go func() { done <- ticker.Start(context.Background()) }()
	ticker.Stop()
	ticker.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("start: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ticker did not stop")
	}
}
