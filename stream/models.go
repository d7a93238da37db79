// Package stream defines the payment stream record and its accounting
// arithmetic.
package stream

import (
	"fmt"

	"github.com/xraph/streampay/types"
)

// Stream is one payment stream: a fixed deposit that unlocks linearly
// over time from Sender to Recipient. Records are never physically
// deleted; a cancelled or fully drained stream is terminated by setting
// Active to false.
//
// Timestamps are unix seconds from the engine's clock collaborator.
// RatePerSecond is fixed at creation and deliberately not recalculated
// on top-up: later deposits extend the runway at the same speed.
type Stream struct {
	types.Entity
	Sender        types.Identity     `json:"sender"`
	Recipient     types.Identity     `json:"recipient"`
	Token         types.TokenAddress `json:"token_address"`
	RatePerSecond types.Amount       `json:"rate_per_second"`
	Deposited     types.Amount       `json:"deposited_amount"`
	Withdrawn     types.Amount       `json:"withdrawn_amount"`
	StartTime     uint64             `json:"start_time"`
	LastUpdate    uint64             `json:"last_update_time"`
	Active        bool               `json:"is_active"`
}

// Remaining returns the un-withdrawn balance, floored at zero.
func (s *Stream) Remaining() types.Amount {
	return s.Deposited.FloorSub(s.Withdrawn)
}

// Claimable computes how many tokens have streamed since the last
// accounting event, capped at the remaining balance so the recipient can
// never claim more than what is left, regardless of how much real time
// has passed.
//
// A clock reading before LastUpdate counts as zero elapsed time, and an
// overflowing elapsed*rate product saturates at MaxAmount; both are
// immediately capped by Remaining.
func (s *Stream) Claimable(now uint64) types.Amount {
	var elapsed uint64
	if now > s.LastUpdate {
		elapsed = now - s.LastUpdate
	}

	streamed := s.RatePerSecond.MulSeconds(elapsed)

	return streamed.Min(s.Remaining())
}

// Drained reports whether the full deposit has been paid out.
func (s *Stream) Drained() bool {
	return s.Withdrawn >= s.Deposited
}

// CheckInvariants verifies the record-level invariants that must hold
// after every state transition. A violation is a programming error in
// the engine, never a caller mistake.
func (s *Stream) CheckInvariants() error {
	if s.Deposited.IsNegative() {
		return fmt.Errorf("stream: negative deposited amount %s", s.Deposited)
	}
	if s.Withdrawn.IsNegative() {
		return fmt.Errorf("stream: negative withdrawn amount %s", s.Withdrawn)
	}
	if s.Withdrawn > s.Deposited {
		return fmt.Errorf("stream: withdrawn %s exceeds deposited %s", s.Withdrawn, s.Deposited)
	}
	if s.RatePerSecond.IsNegative() {
		return fmt.Errorf("stream: negative rate %s", s.RatePerSecond)
	}
	if s.Withdrawn == s.Deposited && s.Active {
		return fmt.Errorf("stream: fully drained but still active")
	}
	return nil
}
