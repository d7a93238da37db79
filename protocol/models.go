// Package protocol holds the singleton protocol fee configuration.
package protocol

import "github.com/xraph/streampay/types"

// MaxFeeRateBps is the maximum allowed protocol fee: 1 000 bps = 10%.
const MaxFeeRateBps uint32 = 1_000

// Config is the singleton protocol configuration. It is created exactly
// once by Initialize and mutated only by UpdateFeeConfig; the admin
// identity is fixed at initialization and never replaced.
type Config struct {
	types.Entity
	Admin      types.Identity `json:"admin"`
	Treasury   types.Identity `json:"treasury"`
	FeeRateBps uint32         `json:"fee_rate_bps"`
}

// ValidFeeRate reports whether a basis-point fee rate is within the
// protocol bound.
func ValidFeeRate(bps uint32) bool { return bps <= MaxFeeRateBps }

// HasFee reports whether deposits are currently subject to a protocol fee.
func (c *Config) HasFee() bool { return c != nil && c.FeeRateBps > 0 }
