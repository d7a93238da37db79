package streampay_test

import (
	"context"
	"testing"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/xraph/streampay"
	"github.com/xraph/streampay/auth"
	"github.com/xraph/streampay/store/memory"
	tokenmem "github.com/xraph/streampay/token/memory"
)

// TestDocumentationExamples verifies that the examples in the package
// documentation compile and behave as described.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use SQLite or PostgreSQL in
		// production)
		store := memory.New()

		// An in-process bank stands in for the external token service
		bank := tokenmem.NewBank()
		bank.Register("token:usdc", 7)
		if err := bank.Mint("token:usdc", "alice", 10_000); err != nil {
			t.Fatal(err)
		}

		clock := clockz.NewFakeClock()
		eng := streampay.New(store, bank, streampay.WithClock(clock))

		ctx := context.Background()
		if err := eng.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer eng.Stop()

		// 10_000 units vesting over 100 seconds
		sender := auth.WithCaller(ctx, "alice")
		id, err := eng.CreateStream(sender, "alice", "bob", "token:usdc", 10_000, 100)
		if err != nil {
			t.Fatal(err)
		}

		// After 40 seconds, 4_000 units have accrued
		clock.Advance(40 * time.Second)
		recipient := auth.WithCaller(ctx, "bob")
		amount, err := eng.Withdraw(recipient, "bob", id)
		if err != nil {
			t.Fatal(err)
		}
		if amount != 4_000 {
			t.Fatalf("withdrew %d, want 4000", amount)
		}

		// The sender cancels; bob keeps what vested, alice gets the rest
		if err := eng.CancelStream(sender, "alice", id); err != nil {
			t.Fatal(err)
		}
	})
}
