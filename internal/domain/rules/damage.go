// Package rules contains the pure calculation logic for status mechanics.
// This package is PURE and must NOT import any infrastructure packages.
package rules

const (
	// MaxPoisonLoss caps the life a single poison occurrence can take.
	MaxPoisonLoss = 200

	// AdjustPercent marks a power value as a percentage: power P >= AdjustPercent
	// means (P - AdjustPercent) percent of the input.
	AdjustPercent = 30000
	// AdjustSet marks a power value as an absolute override: power P <= AdjustSet
	// means the value -P + AdjustSet.
	AdjustSet = -30000
	// AdjustFull means "the whole maximum".
	AdjustFull = -32768
)

// AdjustData applies a power-encoded adjustment to data.
func AdjustData(data, adjust, maxData int) int {
	switch {
	case adjust >= AdjustPercent:
		return int(int64(data) * int64(adjust-AdjustPercent) / 100)
	case adjust == AdjustFull:
		return maxData
	case adjust <= AdjustSet:
		return -adjust + AdjustSet
	}
	return data + adjust
}

// PoisonLoss returns the life a poison occurrence takes from an owner with
// the given life. The owner is always left with at least 1 life by the
// formula itself.
func PoisonLoss(life int) int {
	loss := min(MaxPoisonLoss, life-1)
	if loss < 0 {
		return 0
	}
	return min(loss, life)
}

// ToxicLoss returns the mitigated toxic damage-over-time for an owner with
// the given life, status power and detoxication percentage. The result never
// exceeds the current life.
func ToxicLoss(life, power, detox int) int {
	raw := AdjustData(life, power, 0)
	if life-raw <= 0 || raw < 0 {
		raw = 0
	}
	percent := 100 - max(0, min(100, detox))
	loss := int(int64(raw) * int64(percent) / 100)
	return min(loss, life)
}
