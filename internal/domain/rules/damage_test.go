package rules

import "testing"

func TestPoisonLoss(t *testing.T) {
	cases := []struct {
		life, want int
	}{
		{150, 149},
		{1000, 200},
		{201, 200},
		{1, 0},
		{0, 0},
	}
	for _, tc := range cases {
		if got := PoisonLoss(tc.life); got != tc.want {
			t.Errorf("PoisonLoss(%d) = %d, want %d", tc.life, got, tc.want)
		}
		if tc.life-PoisonLoss(tc.life) < 0 {
			t.Errorf("PoisonLoss(%d) drove life negative", tc.life)
		}
	}
}

func TestAdjustData(t *testing.T) {
	if got := AdjustData(1000, AdjustPercent+10, 0); got != 100 {
		t.Errorf("10%% of 1000 = %d, want 100", got)
	}
	if got := AdjustData(1000, 50, 0); got != 1050 {
		t.Errorf("additive adjust = %d, want 1050", got)
	}
	if got := AdjustData(1000, AdjustSet-25, 0); got != 25 {
		t.Errorf("set adjust = %d, want 25", got)
	}
	if got := AdjustData(10, AdjustFull, 700); got != 700 {
		t.Errorf("full adjust = %d, want 700", got)
	}
}

func TestToxicLoss(t *testing.T) {
	// 10% of 1000 = 100 raw, detox 20 mitigates to 80.
	if got := ToxicLoss(1000, AdjustPercent+10, 20); got != 80 {
		t.Errorf("ToxicLoss = %d, want 80", got)
	}
	// detox is clamped to [0, 100]
	if got := ToxicLoss(1000, AdjustPercent+10, 150); got != 0 {
		t.Errorf("ToxicLoss with full detox = %d, want 0", got)
	}
	if got := ToxicLoss(1000, AdjustPercent+10, -40); got != 100 {
		t.Errorf("ToxicLoss with negative detox = %d, want 100", got)
	}
	// raw that would kill is dropped entirely
	if got := ToxicLoss(100, AdjustPercent+100, 0); got != 0 {
		t.Errorf("lethal raw = %d, want 0", got)
	}
	if got := ToxicLoss(100, 200, 0); got != 0 {
		t.Errorf("additive lethal raw = %d, want 0", got)
	}
}
