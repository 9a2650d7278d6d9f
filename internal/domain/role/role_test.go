package role

import (
	"testing"

	"github.com/MRamiBalles/worldstatus/internal/domain/status"
)

func TestAddLifeClamps(t *testing.T) {
	r := NewRole(1, "Hero", KindPlayer, 100)

	if got := r.AddLife(-250); got != 0 {
		t.Errorf("expected life clamped at 0, got %d", got)
	}
	if r.IsAlive() {
		t.Errorf("expected role with 0 life to be dead")
	}
	r.Revive(10)
	if got := r.AddLife(500); got != 100 {
		t.Errorf("expected life clamped at max, got %d", got)
	}
}

func TestGrantResources(t *testing.T) {
	r := NewRole(1, "Hero", KindPlayer, 100)
	r.Grant(ResourceStamina, -100)

	if got := r.Grant(ResourceStamina, 30); got != 30 {
		t.Errorf("expected stamina 30, got %d", got)
	}
	if got := r.Grant(ResourceLucky, 3); got != 3 {
		t.Errorf("expected lucky time 3, got %d", got)
	}
}

func TestAwardBankedExperience(t *testing.T) {
	r := NewRole(1, "Hero", KindPlayer, 100)
	r.BankExperience(500)
	r.BankExperience(250)

	if got := r.AwardBankedExperience(); got != 750 {
		t.Fatalf("expected 750 awarded, got %d", got)
	}
	if r.Experience() != 750 || r.BankedExperience() != 0 {
		t.Fatalf("unexpected experience %d / banked %d", r.Experience(), r.BankedExperience())
	}
}

func TestDistance(t *testing.T) {
	a := NewRole(1, "A", KindPlayer, 100)
	b := NewRole(2, "B", KindPlayer, 100)
	a.MoveTo(10, 10)
	b.MoveTo(12, 15)

	if got := a.Distance(b); got != 5 {
		t.Errorf("expected distance 5, got %d", got)
	}
}

func TestStatusFlagsMirror(t *testing.T) {
	r := NewRole(1, "Hero", KindPlayer, 100)
	var f status.FlagWords
	f.Set(status.Poisoned)
	f.Set(status.MagicDefender)
	r.StoreStatusFlags(f)

	if got := r.StatusFlags(); got != f {
		t.Fatalf("expected %v, got %v", f, got)
	}
}

func TestResetCombat(t *testing.T) {
	r := NewRole(1, "Hero", KindPlayer, 100)
	r.LockTarget(42)
	r.BeginCast(1000)
	r.ResetCombat()

	if r.TargetLock() != 0 || r.Casting() != 0 {
		t.Fatalf("expected combat state cleared")
	}
}
