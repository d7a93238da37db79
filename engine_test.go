package streampay_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/xraph/streampay"
	"github.com/xraph/streampay/auth"
	storemem "github.com/xraph/streampay/store/memory"
	"github.com/xraph/streampay/stream"
	tokenmem "github.com/xraph/streampay/token/memory"
)

const (
	admin    = streampay.Identity("admin")
	treasury = streampay.Identity("treasury")
	alice    = streampay.Identity("alice")
	bob      = streampay.Identity("bob")
	mallory  = streampay.Identity("mallory")

	usdc = streampay.TokenAddress("token:usdc")
)

func newTestEngine(t *testing.T) (*streampay.Engine, *tokenmem.Bank, *clockz.FakeClock) {
	t.Helper()

	clock := clockz.NewFakeClock()
	bank := tokenmem.NewBank()
	bank.Register(usdc, 7)

	eng := streampay.New(storemem.New(), bank,
		streampay.WithClock(clock),
		streampay.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = eng.Stop() })

	return eng, bank, clock
}

// as returns a context whose verified caller is the given identity.
func as(identity streampay.Identity) context.Context {
	return auth.WithCaller(context.Background(), identity)
}

func fund(t *testing.T, bank *tokenmem.Bank, who streampay.Identity, amount streampay.Amount) {
	t.Helper()
	if err := bank.Mint(usdc, who, amount); err != nil {
		t.Fatalf("Mint(%s, %d) error = %v", who, amount, err)
	}
}

func TestCreateStream(t *testing.T) {
	eng, bank, clock := newTestEngine(t)
	fund(t, bank, alice, 10000)

	id, err := eng.CreateStream(as(alice), alice, bob, usdc, 10000, 100)
	if err != nil {
		t.Fatalf("CreateStream() error = %v", err)
	}
	if id != 1 {
		t.Errorf("stream id = %d, want 1", id)
	}

	rec, err := eng.GetStream(context.Background(), id)
	if err != nil {
		t.Fatalf("GetStream() error = %v", err)
	}
	if got := rec.RatePerSecond; got != 100 {
		t.Errorf("rate = %d, want 100", got)
	}
	if got := rec.Deposited; got != 10000 {
		t.Errorf("deposited = %d, want 10000", got)
	}
	if rec.Withdrawn != 0 || !rec.Active {
		t.Errorf("new stream: withdrawn=%d active=%v, want 0/true", rec.Withdrawn, rec.Active)
	}
	if rec.StartTime != rec.LastUpdate {
		t.Errorf("start=%d last_update=%d, want equal", rec.StartTime, rec.LastUpdate)
	}
	if got := bank.Balance(usdc, streampay.DefaultCustodyAccount); got != 10000 {
		t.Errorf("custody balance = %d, want 10000", got)
	}

	clock.Advance(40 * time.Second)
	claimable, err := eng.ClaimableAmount(context.Background(), id)
	if err != nil {
		t.Fatalf("ClaimableAmount() error = %v", err)
	}
	if claimable != 4000 {
		t.Errorf("claimable after 40s = %d, want 4000", claimable)
	}
}

func TestCreateStreamSkimsFee(t *testing.T) {
	eng, bank, _ := newTestEngine(t)
	if err := eng.Initialize(as(admin), admin, treasury, 500); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	fund(t, bank, alice, 10000)

	id, err := eng.CreateStream(as(alice), alice, bob, usdc, 10000, 100)
	if err != nil {
		t.Fatalf("CreateStream() error = %v", err)
	}

	rec, err := eng.GetStream(context.Background(), id)
	if err != nil {
		t.Fatalf("GetStream() error = %v", err)
	}
	if rec.Deposited != 9500 {
		t.Errorf("deposited = %d, want 9500", rec.Deposited)
	}
	if rec.RatePerSecond != 95 {
		t.Errorf("rate = %d, want 95", rec.RatePerSecond)
	}
	if got := bank.Balance(usdc, treasury); got != 500 {
		t.Errorf("treasury balance = %d, want 500", got)
	}
	if got := bank.Balance(usdc, streampay.DefaultCustodyAccount); got != 9500 {
		t.Errorf("custody balance = %d, want 9500", got)
	}
}

func TestCreateStreamValidation(t *testing.T) {
	eng, bank, _ := newTestEngine(t)
	fund(t, bank, alice, 10000)

	tests := []struct {
		name     string
		ctx      context.Context
		amount   streampay.Amount
		duration uint64
		token    streampay.TokenAddress
		wantErr  error
	}{
		{"zero amount", as(alice), 0, 100, usdc, streampay.ErrInvalidAmount},
		{"negative amount", as(alice), -5, 100, usdc, streampay.ErrInvalidAmount},
		{"zero duration", as(alice), 1000, 0, usdc, streampay.ErrInvalidDuration},
		{"unknown token", as(alice), 1000, 100, "token:bogus", streampay.ErrInvalidTokenAddress},
		{"wrong caller", as(mallory), 1000, 100, usdc, streampay.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eng.CreateStream(tt.ctx, alice, bob, tt.token, tt.amount, tt.duration)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateStream() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// No transfer happened for any rejected call.
	if got := bank.Balance(usdc, alice); got != 10000 {
		t.Errorf("alice balance after rejections = %d, want 10000", got)
	}
}

func TestCreateStreamExtremeDuration(t *testing.T) {
	eng, bank, _ := newTestEngine(t)
	fund(t, bank, alice, 100)

	// A duration wider than the amount domain truncates the rate to
	// zero; it must never wrap into a negative rate.
	id, err := eng.CreateStream(as(alice), alice, bob, usdc, 100, math.MaxUint64)
	if err != nil {
		t.Fatalf("CreateStream() error = %v", err)
	}
	rec, err := eng.GetStream(context.Background(), id)
	if err != nil {
		t.Fatalf("GetStream() error = %v", err)
	}
	if got := rec.RatePerSecond; got != 0 {
		t.Errorf("rate = %d, want 0", got)
	}
	if got, err := eng.ClaimableAmount(context.Background(), id); err != nil || got != 0 {
		t.Errorf("ClaimableAmount() = %d, %v, want 0, nil", got, err)
	}
}

func TestStreamIDsAreSequential(t *testing.T) {
	eng, bank, _ := newTestEngine(t)
	fund(t, bank, alice, 3000)

	for want := uint64(1); want <= 3; want++ {
		id, err := eng.CreateStream(as(alice), alice, bob, usdc, 1000, 10)
		if err != nil {
			t.Fatalf("CreateStream() error = %v", err)
		}
		if id != want {
			t.Errorf("stream id = %d, want %d", id, want)
		}
	}
}

func TestTopUpStream(t *testing.T) {
	eng, bank, clock := newTestEngine(t)
	fund(t, bank, alice, 15000)

	id, err := eng.CreateStream(as(alice), alice, bob, usdc, 10000, 100)
	if err != nil {
		t.Fatalf("CreateStream() error = %v", err)
	}

	clock.Advance(20 * time.Second)
	if err := eng.TopUpStream(as(alice), alice, id, 5000); err != nil {
		t.Fatalf("TopUpStream() error = %v", err)
	}

	rec, err := eng.GetStream(context.Background(), id)
	if err != nil {
		t.Fatalf("GetStream() error = %v", err)
	}
	if rec.Deposited != 15000 {
		t.Errorf("deposited = %d, want 15000", rec.Deposited)
	}
	if rec.RatePerSecond != 100 {
		t.Errorf("rate after top-up = %d, want unchanged 100", rec.RatePerSecond)
	}
	if rec.LastUpdate != rec.StartTime+20 {
		t.Errorf("last_update = %d, want %d", rec.LastUpdate, rec.StartTime+20)
	}
}

func TestTopUpResetsAccrualBase(t *testing.T) {
	eng, bank, clock := newTestEngine(t)
	fund(t, bank, alice, 15000)

	id, err := eng.CreateStream(as(alice), alice, bob, usdc, 10000, 100)
	if err != nil {
		t.Fatalf("CreateStream() error = %v", err)
	}

	clock.Advance(10 * time.Second)
	if got, _ := eng.ClaimableAmount(context.Background(), id); got != 1000 {
		t.Fatalf("claimable before top-up = %d, want 1000", got)
	}

	// A top-up moves the accrual base to the top-up instant without
	// paying out what had accrued: the un-withdrawn accrual restarts
	// from zero.
	if err := eng.TopUpStream(as(alice), alice, id, 5000); err != nil {
		t.Fatalf("TopUpStream() error = %v", err)
	}
	if got, _ := eng.ClaimableAmount(context.Background(), id); got != 0 {
		t.Errorf("claimable immediately after top-up = %d, want 0", got)
	}

	clock.Advance(5 * time.Second)
	if got, _ := eng.ClaimableAmount(context.Background(), id); got != 500 {
		t.Errorf("claimable 5s after top-up = %d, want 500", got)
	}
}

func TestWithdraw(t *testing.T) {
	eng, bank, clock := newTestEngine(t)
	fund(t, bank, alice, 10000)

	id, err := eng.CreateStream(as(alice), alice, bob, usdc, 10000, 100)
	if err != nil {
		t.Fatalf("CreateStream() error = %v", err)
	}

	clock.Advance(40 * time.Second)
	got, err := eng.Withdraw(as(bob), bob, id)
	if err != nil {
		t.Fatalf("Withdraw() error = %v", err)
	}
	if got != 4000 {
		t.Errorf("withdrawn = %d, want 4000", got)
	}
	if bal := bank.Balance(usdc, bob); bal != 4000 {
		t.Errorf("bob balance = %d, want 4000", bal)
	}

	rec, _ := eng.GetStream(context.Background(), id)
	if rec.Withdrawn != 4000 || !rec.Active {
		t.Errorf("after withdraw: withdrawn=%d active=%v, want 4000/true", rec.Withdrawn, rec.Active)
	}

	// Nothing new has accrued since the withdrawal.
	if _, err := eng.Withdraw(as(bob), bob, id); !errors.Is(err, streampay.ErrInvalidAmount) {
		t.Errorf("immediate re-withdraw error = %v, want ErrInvalidAmount", err)
	}
}

func TestWithdrawDrainsAndCloses(t *testing.T) {
	eng, bank, clock := newTestEngine(t)
	fund(t, bank, alice, 10000)

	id, err := eng.CreateStream(as(alice), alice, bob, usdc, 10000, 100)
	if err != nil {
		t.Fatalf("CreateStream() error = %v", err)
	}

	// Far past the runway: claimable is capped at the remaining deposit.
	clock.Advance(500 * time.Second)
	got, err := eng.Withdraw(as(bob), bob, id)
	if err != nil {
		t.Fatalf("Withdraw() error = %v", err)
	}
	if got != 10000 {
		t.Errorf("withdrawn = %d, want full 10000", got)
	}

	rec, _ := eng.GetStream(context.Background(), id)
	if rec.Active {
		t.Error("fully drained stream still active")
	}

	if _, err := eng.Withdraw(as(bob), bob, id); !errors.Is(err, streampay.ErrStreamInactive) {
		t.Errorf("withdraw on drained stream error = %v, want ErrStreamInactive", err)
	}
	if got, err := eng.ClaimableAmount(context.Background(), id); err != nil || got != 0 {
		t.Errorf("claimable on drained stream = %d, %v, want 0, nil", got, err)
	}
}

func TestCancelStream(t *testing.T) {
	eng, bank, clock := newTestEngine(t)
	fund(t, bank, alice, 10000)

	id, err := eng.CreateStream(as(alice), alice, bob, usdc, 10000, 100)
	if err != nil {
		t.Fatalf("CreateStream() error = %v", err)
	}

	clock.Advance(30 * time.Second)
	if err := eng.CancelStream(as(alice), alice, id); err != nil {
		t.Fatalf("CancelStream() error = %v", err)
	}

	// Recipient settled to the cancellation instant, sender refunded the
	// un-streamed remainder; together they conserve the deposit.
	if bal := bank.Balance(usdc, bob); bal != 3000 {
		t.Errorf("bob balance = %d, want 3000", bal)
	}
	if bal := bank.Balance(usdc, alice); bal != 7000 {
		t.Errorf("alice refund balance = %d, want 7000", bal)
	}
	if bal := bank.Balance(usdc, streampay.DefaultCustodyAccount); bal != 0 {
		t.Errorf("custody balance after cancel = %d, want 0", bal)
	}

	rec, _ := eng.GetStream(context.Background(), id)
	if rec.Active {
		t.Error("cancelled stream still active")
	}
	if rec.Withdrawn != 3000 {
		t.Errorf("withdrawn = %d, want 3000", rec.Withdrawn)
	}

	if err := eng.CancelStream(as(alice), alice, id); !errors.Is(err, streampay.ErrStreamInactive) {
		t.Errorf("re-cancel error = %v, want ErrStreamInactive", err)
	}
}

func TestCancelAfterPartialWithdraw(t *testing.T) {
	eng, bank, clock := newTestEngine(t)
	fund(t, bank, alice, 10000)

	id, err := eng.CreateStream(as(alice), alice, bob, usdc, 10000, 100)
	if err != nil {
		t.Fatalf("CreateStream() error = %v", err)
	}

	clock.Advance(25 * time.Second)
	if _, err := eng.Withdraw(as(bob), bob, id); err != nil {
		t.Fatalf("Withdraw() error = %v", err)
	}

	clock.Advance(15 * time.Second)
	if err := eng.CancelStream(as(alice), alice, id); err != nil {
		t.Fatalf("CancelStream() error = %v", err)
	}

	// 25s withdrawn + 15s settled = 4000 to bob; 6000 back to alice.
	if bal := bank.Balance(usdc, bob); bal != 4000 {
		t.Errorf("bob balance = %d, want 4000", bal)
	}
	if bal := bank.Balance(usdc, alice); bal != 6000 {
		t.Errorf("alice balance = %d, want 6000", bal)
	}
	if bal := bank.Balance(usdc, streampay.DefaultCustodyAccount); bal != 0 {
		t.Errorf("custody balance = %d, want 0", bal)
	}
}

func TestCancelRefundsRoundingRemainder(t *testing.T) {
	eng, bank, _ := newTestEngine(t)
	fund(t, bank, alice, 1000)

	// 1000/300 truncates to rate 3; the remainder stays in custody and
	// comes back with the refund.
	id, err := eng.CreateStream(as(alice), alice, bob, usdc, 1000, 300)
	if err != nil {
		t.Fatalf("CreateStream() error = %v", err)
	}
	rec, _ := eng.GetStream(context.Background(), id)
	if rec.RatePerSecond != 3 {
		t.Fatalf("rate = %d, want 3", rec.RatePerSecond)
	}

	if err := eng.CancelStream(as(alice), alice, id); err != nil {
		t.Fatalf("CancelStream() error = %v", err)
	}
	if bal := bank.Balance(usdc, alice); bal != 1000 {
		t.Errorf("alice balance after immediate cancel = %d, want 1000", bal)
	}
}

func TestStreamOperationErrors(t *testing.T) {
	eng, bank, clock := newTestEngine(t)
	fund(t, bank, alice, 10000)

	id, err := eng.CreateStream(as(alice), alice, bob, usdc, 10000, 100)
	if err != nil {
		t.Fatalf("CreateStream() error = %v", err)
	}
	clock.Advance(10 * time.Second)

	tests := []struct {
		name    string
		op      func() error
		wantErr error
	}{
		{"top-up unknown stream", func() error {
			return eng.TopUpStream(as(alice), alice, 99, 1000)
		}, streampay.ErrStreamNotFound},
		{"withdraw unknown stream", func() error {
			_, err := eng.Withdraw(as(bob), bob, 99)
			return err
		}, streampay.ErrStreamNotFound},
		{"cancel unknown stream", func() error {
			return eng.CancelStream(as(alice), alice, 99)
		}, streampay.ErrStreamNotFound},
		{"top-up by non-sender", func() error {
			return eng.TopUpStream(as(mallory), mallory, id, 1000)
		}, streampay.ErrUnauthorized},
		{"withdraw by non-recipient", func() error {
			_, err := eng.Withdraw(as(mallory), mallory, id)
			return err
		}, streampay.ErrUnauthorized},
		{"cancel by non-sender", func() error {
			return eng.CancelStream(as(mallory), mallory, id)
		}, streampay.ErrUnauthorized},
		{"top-up zero amount", func() error {
			return eng.TopUpStream(as(alice), alice, id, 0)
		}, streampay.ErrInvalidAmount},
		{"query unknown stream", func() error {
			_, err := eng.GetStream(context.Background(), 99)
			return err
		}, streampay.ErrStreamNotFound},
		{"claimable unknown stream", func() error {
			_, err := eng.ClaimableAmount(context.Background(), 99)
			return err
		}, streampay.ErrStreamNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.op(); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestClaimableZeroForInactive(t *testing.T) {
	eng, bank, clock := newTestEngine(t)
	fund(t, bank, alice, 10000)

	id, err := eng.CreateStream(as(alice), alice, bob, usdc, 10000, 100)
	if err != nil {
		t.Fatalf("CreateStream() error = %v", err)
	}
	if err := eng.CancelStream(as(alice), alice, id); err != nil {
		t.Fatalf("CancelStream() error = %v", err)
	}

	clock.Advance(time.Hour)
	got, err := eng.ClaimableAmount(context.Background(), id)
	if err != nil {
		t.Fatalf("ClaimableAmount() error = %v", err)
	}
	if got != 0 {
		t.Errorf("claimable on inactive stream = %d, want 0", got)
	}
}

func TestInitialize(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	if err := eng.Initialize(as(admin), admin, treasury, 1001); !errors.Is(err, streampay.ErrInvalidFeeRate) {
		t.Errorf("Initialize(1001 bps) error = %v, want ErrInvalidFeeRate", err)
	}
	if err := eng.Initialize(as(mallory), admin, treasury, 100); !errors.Is(err, streampay.ErrUnauthorized) {
		t.Errorf("Initialize as wrong caller error = %v, want ErrUnauthorized", err)
	}

	if err := eng.Initialize(as(admin), admin, treasury, 250); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := eng.Initialize(as(admin), admin, treasury, 250); !errors.Is(err, streampay.ErrAlreadyInitialized) {
		t.Errorf("second Initialize error = %v, want ErrAlreadyInitialized", err)
	}
	// Existence wins over rate validation once a config is stored.
	if err := eng.Initialize(as(admin), admin, treasury, 2000); !errors.Is(err, streampay.ErrAlreadyInitialized) {
		t.Errorf("re-init with bad rate error = %v, want ErrAlreadyInitialized", err)
	}

	cfg, err := eng.FeeConfig(context.Background())
	if err != nil {
		t.Fatalf("FeeConfig() error = %v", err)
	}
	if cfg.Admin != admin || cfg.Treasury != treasury || cfg.FeeRateBps != 250 {
		t.Errorf("config = %s/%s/%d, want admin/treasury/250", cfg.Admin, cfg.Treasury, cfg.FeeRateBps)
	}
}

func TestUpdateFeeConfig(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	if err := eng.UpdateFeeConfig(as(admin), admin, treasury, 100); !errors.Is(err, streampay.ErrNotInitialized) {
		t.Errorf("update before init error = %v, want ErrNotInitialized", err)
	}

	if err := eng.Initialize(as(admin), admin, treasury, 250); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if err := eng.UpdateFeeConfig(as(mallory), mallory, mallory, 100); !errors.Is(err, streampay.ErrNotAdmin) {
		t.Errorf("update by non-admin error = %v, want ErrNotAdmin", err)
	}
	if err := eng.UpdateFeeConfig(as(admin), admin, treasury, 2000); !errors.Is(err, streampay.ErrInvalidFeeRate) {
		t.Errorf("update with 2000 bps error = %v, want ErrInvalidFeeRate", err)
	}

	newTreasury := streampay.Identity("treasury2")
	if err := eng.UpdateFeeConfig(as(admin), admin, newTreasury, 750); err != nil {
		t.Fatalf("UpdateFeeConfig() error = %v", err)
	}

	cfg, err := eng.FeeConfig(context.Background())
	if err != nil {
		t.Fatalf("FeeConfig() error = %v", err)
	}
	if cfg.Admin != admin {
		t.Errorf("admin = %s, want preserved %s", cfg.Admin, admin)
	}
	if cfg.Treasury != newTreasury || cfg.FeeRateBps != 750 {
		t.Errorf("config = %s/%d, want %s/750", cfg.Treasury, cfg.FeeRateBps, newTreasury)
	}
}

func TestFeeConfigUninitialized(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	if _, err := eng.FeeConfig(context.Background()); !errors.Is(err, streampay.ErrNotInitialized) {
		t.Errorf("FeeConfig() error = %v, want ErrNotInitialized", err)
	}
}

func TestInsufficientFundsLeaveNoState(t *testing.T) {
	eng, bank, _ := newTestEngine(t)
	fund(t, bank, alice, 100)

	if _, err := eng.CreateStream(as(alice), alice, bob, usdc, 10000, 100); err == nil {
		t.Fatal("CreateStream() with insufficient funds succeeded")
	}

	// The failed transfer allocated no stream and moved no funds.
	if _, err := eng.GetStream(context.Background(), 1); !errors.Is(err, streampay.ErrStreamNotFound) {
		t.Errorf("GetStream(1) error = %v, want ErrStreamNotFound", err)
	}
	if got := bank.Balance(usdc, alice); got != 100 {
		t.Errorf("alice balance = %d, want untouched 100", got)
	}
}

func TestTopUpRefusesCorruptRecord(t *testing.T) {
	clock := clockz.NewFakeClock()
	bank := tokenmem.NewBank()
	bank.Register(usdc, 7)
	st := storemem.New()

	eng := streampay.New(st, bank,
		streampay.WithClock(clock),
		streampay.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = eng.Stop() })

	// Plant a record that violates the stream invariants, as a buggy
	// store backend or a bad migration could.
	corrupt := &stream.Stream{
		Sender: alice, Recipient: bob, Token: usdc,
		RatePerSecond: -100, Deposited: 100,
		Active: true,
	}
	if err := st.PutStream(context.Background(), 1, corrupt); err != nil {
		t.Fatalf("PutStream() error = %v", err)
	}

	fund(t, bank, alice, 500)
	if err := eng.TopUpStream(as(alice), alice, 1, 500); err == nil {
		t.Fatal("TopUpStream() on a corrupt record succeeded")
	}

	// The aborted transition must not overwrite the stored record.
	rec, err := st.GetStream(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetStream() error = %v", err)
	}
	if rec.Deposited != 100 || rec.RatePerSecond != -100 {
		t.Errorf("stored record changed: deposited=%d rate=%d, want 100/-100",
			rec.Deposited, rec.RatePerSecond)
	}
}
