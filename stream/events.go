package stream

import (
	"github.com/xraph/streampay/id"
	"github.com/xraph/streampay/types"
)

// Lifecycle event payloads published through the engine's plugin
// registry. Delivery is fire-and-forget: events exist for external
// observability and are not required for ledger correctness.

// CreatedEvent is published when a new stream is recorded.
type CreatedEvent struct {
	ID            id.EventID         `json:"id"`
	StreamID      uint64             `json:"stream_id"`
	Sender        types.Identity     `json:"sender"`
	Recipient     types.Identity     `json:"recipient"`
	RatePerSecond types.Amount       `json:"rate_per_second"`
	Token         types.TokenAddress `json:"token_address"`
	Deposited     types.Amount       `json:"deposited_amount"`
	StartTime     uint64             `json:"start_time"`
}

// ToppedUpEvent is published after a successful top-up. Amount is the
// net (post-fee) amount added to the deposit.
type ToppedUpEvent struct {
	ID           id.EventID     `json:"id"`
	StreamID     uint64         `json:"stream_id"`
	Sender       types.Identity `json:"sender"`
	Amount       types.Amount   `json:"amount"`
	NewDeposited types.Amount   `json:"new_deposited_amount"`
}

// WithdrawnEvent is published after the recipient withdraws accrued
// tokens.
type WithdrawnEvent struct {
	ID        id.EventID     `json:"id"`
	StreamID  uint64         `json:"stream_id"`
	Recipient types.Identity `json:"recipient"`
	Amount    types.Amount   `json:"amount"`
	Timestamp uint64         `json:"timestamp"`
}

// CancelledEvent is published after a stream is cancelled. Withdrawn is
// the cumulative total paid to the recipient including the final
// settlement; Refunded is the un-streamed remainder returned to the
// sender.
type CancelledEvent struct {
	ID        id.EventID     `json:"id"`
	StreamID  uint64         `json:"stream_id"`
	Sender    types.Identity `json:"sender"`
	Recipient types.Identity `json:"recipient"`
	Withdrawn types.Amount   `json:"amount_withdrawn"`
	Refunded  types.Amount   `json:"refunded_amount"`
}

// FeeCollectedEvent is published when a protocol fee is skimmed from an
// inbound deposit and transferred to the treasury.
type FeeCollectedEvent struct {
	ID       id.EventID         `json:"id"`
	StreamID uint64             `json:"stream_id"`
	Treasury types.Identity     `json:"treasury"`
	Fee      types.Amount       `json:"fee_amount"`
	Token    types.TokenAddress `json:"token"`
}
