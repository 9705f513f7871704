package media

import (
	"math"
	"math/big"
)

// Rational is a time base such as 1/48000 or 1001/30000.
type Rational struct {
	Num int64
	Den int64
}

// Valid reports whether both terms are positive.
func (r Rational) Valid() bool {
	return r.Num > 0 && r.Den > 0
}

// Float returns Num/Den, or 0 for an invalid time base.
func (r Rational) Float() float64 {
	if !r.Valid() {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// Seconds converts a tick count in this time base to seconds.
func (r Rational) Seconds(ticks int64) float64 {
	return float64(ticks) * r.Float()
}

// Ticks converts seconds to a tick count in this time base, truncating toward
// zero. Negative and NaN inputs clamp to 0; values past the int64 range
// saturate at math.MaxInt64.
func (r Rational) Ticks(seconds float64) int64 {
	if !r.Valid() || math.IsNaN(seconds) || seconds <= 0 {
		return 0
	}
	t := seconds * float64(r.Den) / float64(r.Num)
	if t >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(t)
}

// Rescale converts v from one time base to another, rounding half away from
// zero like av_rescale_q. Results outside the int64 range saturate.
func Rescale(v int64, from, to Rational) int64 {
	if !from.Valid() || !to.Valid() {
		return 0
	}

	n := new(big.Int).Mul(big.NewInt(from.Num), big.NewInt(to.Den))
	n.Mul(n, big.NewInt(v))
	d := new(big.Int).Mul(big.NewInt(from.Den), big.NewInt(to.Num))

	q, m := new(big.Int).QuoRem(n, d, new(big.Int))
	if m.Abs(m).Lsh(m, 1).Cmp(d) >= 0 {
		if n.Sign() < 0 {
			q.Sub(q, big.NewInt(1))
		} else {
			q.Add(q, big.NewInt(1))
		}
	}

	if !q.IsInt64() {
		if q.Sign() < 0 {
			return math.MinInt64
		}
		return math.MaxInt64
	}
	return q.Int64()
}

// TicksToFrames converts a tick count in tb to sample frames at sampleRate
// in exact integer arithmetic, rounding like Rescale. Non-positive inputs
// give 0.
func TicksToFrames(ticks int64, tb Rational, sampleRate int) int64 {
	if ticks <= 0 || sampleRate <= 0 {
		return 0
	}
	return Rescale(ticks, tb, Rational{Num: 1, Den: int64(sampleRate)})
}

// SecondsToFrames converts a duration to a whole number of sample frames,
// truncating. Non-positive durations or rates give 0.
func SecondsToFrames(seconds float64, sampleRate int) int64 {
	if sampleRate <= 0 || math.IsNaN(seconds) || seconds <= 0 {
		return 0
	}
	f := seconds * float64(sampleRate)
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(f)
}
