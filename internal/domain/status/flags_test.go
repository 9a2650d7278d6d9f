package status

import (
	"errors"
	"testing"
)

func TestInvertFlagRoundTrip(t *testing.T) {
	for id := ID(1); id <= MaxID; id++ {
		word := Flag(id)
		got, err := InvertFlag(word, WordIndex(id))
		if err != nil {
			t.Fatalf("id %d: unexpected error %v", id, err)
		}
		if got != id {
			t.Fatalf("id %d: round trip returned %d", id, got)
		}
	}
}

func TestWordBoundaries(t *testing.T) {
	cases := []struct {
		id   ID
		word int
		bit  uint
	}{
		{1, 0, 0},
		{64, 0, 63},
		{65, 1, 0},
		{128, 1, 63},
		{129, 2, 0},
		{192, 2, 63},
	}
	for _, tc := range cases {
		if got := WordIndex(tc.id); got != tc.word {
			t.Errorf("WordIndex(%d) = %d, want %d", tc.id, got, tc.word)
		}
		if got := BitPosition(tc.id); got != tc.bit {
			t.Errorf("BitPosition(%d) = %d, want %d", tc.id, got, tc.bit)
		}
	}
}

func TestInvertFlagRejectsMultiBit(t *testing.T) {
	if _, err := InvertFlag(0b1010, 0); !errors.Is(err, ErrMultiBit) {
		t.Fatalf("expected ErrMultiBit, got %v", err)
	}
	if _, err := InvertFlag(0, 1); !errors.Is(err, ErrMultiBit) {
		t.Fatalf("expected ErrMultiBit for zero word, got %v", err)
	}
	if _, err := InvertFlag(1, 3); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange for word 3, got %v", err)
	}
}

func TestFlagWordsSetClear(t *testing.T) {
	var f FlagWords
	f.Set(Poisoned)
	f.Set(TyrantAura)
	f.Set(MagicDefender)
	f.Set(193) // ignored

	if !f.Has(Poisoned) || !f.Has(TyrantAura) || !f.Has(MagicDefender) {
		t.Fatalf("expected all three ids set, got %#v", f)
	}
	if f[0] != 1<<1 || f[1] != 1<<34 || f[2] != 1 {
		t.Fatalf("unexpected words %#v", f)
	}

	ids := f.IDs()
	want := []ID{Poisoned, TyrantAura, MagicDefender}
	if len(ids) != len(want) {
		t.Fatalf("IDs() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("IDs() = %v, want %v", ids, want)
		}
	}

	f.Clear(TyrantAura)
	if f.Has(TyrantAura) || f[1] != 0 {
		t.Fatalf("expected tyrant aura cleared, got %#v", f)
	}
}

func TestRealStatus(t *testing.T) {
	cases := map[int]ID{
		43:  Poisoned,
		49:  Accelerated,
		92:  TyrantAura,
		126: MagicDefender,
		148: DragonFlow,
		46:  ToxicFog, // not remapped
		1:   Crime,
	}
	for code, want := range cases {
		if got := RealStatus(code); got != want {
			t.Errorf("RealStatus(%d) = %d, want %d", code, got, want)
		}
	}
}

func TestTeamVariant(t *testing.T) {
	team, ok := FireAura.TeamVariant()
	if !ok || team != FireAuraTeam {
		t.Fatalf("FireAura team = %d, %v", team, ok)
	}
	if _, ok := MagicDefender.TeamVariant(); ok {
		t.Fatal("magic defender has no team variant")
	}
	if _, ok := FireAuraTeam.TeamVariant(); ok {
		t.Fatal("team variants do not chain")
	}
}

func TestErrorCodes(t *testing.T) {
	err := NewError(CodePersistenceFailed, Poisoned, errors.New("disk full"))
	if !errors.Is(err, ErrPersistenceFailed) {
		t.Fatalf("expected persistence failure, got %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatal("codes must not cross-match")
	}
	if err.Code.Rejected() {
		t.Fatal("persistence failure is not a rejection")
	}
	if !CodeAlreadyExists.Rejected() {
		t.Fatal("already exists is a rejection")
	}
}

func TestIsHarmful(t *testing.T) {
	for _, id := range []ID{Poisoned, ToxicFog, Frozen, Dizzy, SoulShackle} {
		if !id.IsHarmful() {
			t.Errorf("expected %d harmful", id)
		}
	}
	for _, id := range []ID{Shield, Accelerated, FireAura, LuckyDiffuse} {
		if id.IsHarmful() {
			t.Errorf("expected %d not harmful", id)
		}
	}
}
