package condition

import (
	"github.com/cespare/xxhash/v2"
)

// TotalMicroPercent is 100% expressed in micro-percent units.
const TotalMicroPercent = 100_000_000

// Bucket returns the deterministic micro-percentile in [0, TotalMicroPercent)
// for a seed and randomization ID pair. The same pair lands in the same
// bucket in every process and every implementation of this format, so the
// algorithm is pinned: hash seed + "." + randomizationID with 64-bit xxHash
// (the seed and separator are omitted when the seed is empty), interpret the
// digest as a signed two's-complement value, and reduce its absolute value
// modulo TotalMicroPercent.
func Bucket(seed, randomizationID string) uint64 {
	input := randomizationID
	if seed != "" {
		input = seed + "." + randomizationID
	}
	h := xxhash.Sum64String(input)
	// Absolute value of the signed interpretation, taken in unsigned space
	// so the minimum signed value maps to 2^63 instead of overflowing.
	if int64(h) < 0 {
		h = -h
	}
	return h % TotalMicroPercent
}

func (e *Evaluator) evaluatePercent(name string, node Percent, ctx Context) bool {
	if ctx.RandomizationID == "" {
		e.log.Debug().Str("condition", name).Msg("percent condition evaluated without a randomization id")
		return false
	}
	bucket := Bucket(node.Seed, ctx.RandomizationID)
	switch node.Operator {
	case PercentLessOrEqual:
		return bucket <= uint64(node.MicroPercent)
	case PercentGreaterThan:
		return bucket > uint64(node.MicroPercent)
	case PercentBetween:
		var lower, upper uint32
		if node.Range != nil {
			lower, upper = node.Range.LowerBound, node.Range.UpperBound
		}
		return bucket > uint64(lower) && bucket <= uint64(upper)
	default:
		e.log.Debug().Str("condition", name).Str("operator", string(node.Operator)).Msg("unknown percent operator")
		return false
	}
}
