// Package streampay provides a continuous payment-streaming accounting
// engine for Go applications.
//
// Streampay is designed as a library, not a service. Import it directly
// into your Go application and wire in your own token service, caller
// authentication, and storage. It provides:
//
//   - Linear token vesting: a fixed deposit unlocks second by second
//   - Incremental top-ups that extend the runway at the original rate
//   - On-demand partial withdrawal of everything accrued so far
//   - Early cancellation with fair settlement: recipient paid first,
//     sender refunded the exact un-streamed remainder
//   - A protocol fee in basis points, skimmed from deposits only
//   - Pluggable storage (memory, SQLite, PostgreSQL)
//   - Lifecycle events via a plugin registry, with Prometheus metrics
//     and audit trail plugins included
//
// # Quick Start
//
// Create an engine with your preferred store and token service:
//
//	import (
//	    "github.com/xraph/streampay"
//	    "github.com/xraph/streampay/store/sqlite"
//	)
//
//	store, err := sqlite.Open("streams.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	eng := streampay.New(store, tokenService)
//
//	// Start the engine (runs store migrations, initializes plugins)
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
// # Core Concepts
//
// A stream locks a deposit that vests linearly to a recipient:
//
//	id, err := eng.CreateStream(ctx, sender, recipient, token, 10_000, 100)
//
// The unlocking rate is fixed at creation as deposit/duration with
// truncating division, and never changes afterwards. The recipient
// withdraws whatever has accrued, whenever they like:
//
//	amount, err := eng.Withdraw(ctx, recipient, id)
//
// The sender can add funds (same rate, longer runway) or cancel:
//
//	err = eng.TopUpStream(ctx, sender, id, 5_000)
//	err = eng.CancelStream(ctx, sender, id)
//
// On cancellation the recipient is settled up to the cancellation
// instant before the sender's refund is computed, so the two payouts
// always conserve the deposit.
//
// # Arithmetic
//
// All amounts are integer token units (types.Amount, an int64). Vesting
// arithmetic saturates instead of wrapping, fees round down in the
// depositor's favor, and the claimable balance is always capped at the
// un-withdrawn remainder. No floating point is used anywhere.
//
// # Collaborators
//
// The engine owns only the accounting. Three collaborators are consumed
// through small interfaces:
//
//   - token.Service moves funds and answers the decimals probe
//   - auth.Authenticator verifies the caller identity per operation
//   - clockz.Clock supplies time (swap in a fake clock for tests)
//
// Every mutating operation authenticates first, validates fully before
// moving money, and publishes a typed event through the plugin registry
// after the record is committed.
package streampay
