// Package types provides common types used across streampay.
package types

import (
	"math"
	"strconv"
)

// Amount represents a token quantity in the token's smallest unit.
// All arithmetic is integer-only — no floating point.
//
// Amounts that can grow without bound (streamed totals over arbitrary
// elapsed time) saturate at MaxAmount instead of wrapping. A saturated
// figure is always capped afterwards by the stream's remaining balance,
// so saturation can never pay out more than was deposited.
type Amount int64

// MaxAmount is the largest representable Amount. Saturating operations
// clamp here on overflow.
const MaxAmount Amount = math.MaxInt64

// Basis-point denominator: 1 bps = 1/10000.
const bpsDenominator = 10_000

// Add adds two Amounts, saturating at MaxAmount on overflow.
func (a Amount) Add(b Amount) Amount {
	sum := a + b
	if a > 0 && b > 0 && sum < 0 {
		return MaxAmount
	}
	return sum
}

// Sub subtracts b from a without clamping.
func (a Amount) Sub(b Amount) Amount { return a - b }

// FloorSub subtracts b from a, flooring the result at zero.
func (a Amount) FloorSub(b Amount) Amount {
	if b >= a {
		return 0
	}
	return a - b
}

// MulSeconds multiplies a per-second rate by an elapsed duration in
// seconds, saturating at MaxAmount on overflow. Non-positive rates
// yield zero.
func (a Amount) MulSeconds(seconds uint64) Amount {
	if a <= 0 || seconds == 0 {
		return 0
	}
	if seconds > uint64(MaxAmount/a) {
		return MaxAmount
	}
	return a * Amount(seconds)
}

// FeePortion returns the protocol fee for this gross amount at the given
// basis-point rate, truncating toward zero (the fee rounds down,
// favoring the depositor).
func (a Amount) FeePortion(bps uint32) Amount {
	if a <= 0 || bps == 0 {
		return 0
	}
	// Split the multiplication so gross*bps cannot overflow int64.
	whole := a / bpsDenominator
	rem := a % bpsDenominator
	return whole*Amount(bps) + rem*Amount(bps)/bpsDenominator
}

// DivSeconds divides the amount by a duration in seconds using
// truncating integer division. A duration longer than any representable
// amount yields zero; converting it to Amount first would flip its sign.
func (a Amount) DivSeconds(seconds uint64) Amount {
	if seconds == 0 {
		panic("types: amount division by zero duration")
	}
	if seconds > uint64(MaxAmount) {
		return 0
	}
	return a / Amount(seconds)
}

// Min returns the smaller of two Amounts.
func (a Amount) Min(b Amount) Amount {
	if a < b {
		return a
	}
	return b
}

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool { return a == 0 }

// IsPositive returns true if the amount is greater than zero.
func (a Amount) IsPositive() bool { return a > 0 }

// IsNegative returns true if the amount is less than zero.
func (a Amount) IsNegative() bool { return a < 0 }

// Int64 returns the amount as a plain int64.
func (a Amount) Int64() int64 { return int64(a) }

// String returns the amount in base units as a decimal string.
func (a Amount) String() string { return strconv.FormatInt(int64(a), 10) }
