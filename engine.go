package streampay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zoobzio/clockz"

	"github.com/xraph/streampay/auth"
	"github.com/xraph/streampay/id"
	"github.com/xraph/streampay/plugin"
	"github.com/xraph/streampay/protocol"
	"github.com/xraph/streampay/store"
	"github.com/xraph/streampay/stream"
	"github.com/xraph/streampay/token"
)

// DefaultCustodyAccount is the identity that holds deposits between the
// moment a sender funds a stream and the moment the recipient withdraws.
const DefaultCustodyAccount = Identity("streampay:custody")

// Engine is the payment-streaming accounting engine.
//
// Every public operation is a synchronous, terminating transition over
// one stream record (or the config singleton): authenticate the caller,
// validate inputs, move funds through the token collaborator, commit the
// updated record, publish an event. Validation runs to completion before
// the first transfer so an input error never moves money.
type Engine struct {
	store   store.Store
	tokens  token.Service
	authn   auth.Authenticator
	clock   clockz.Clock
	custody Identity
	plugins *plugin.Registry
	logger  *slog.Logger
}

// New creates a new Engine backed by the given store and token service.
func New(s store.Store, tokens token.Service, opts ...Option) *Engine {
	e := &Engine{
		store:   s,
		tokens:  tokens,
		authn:   auth.FromContext(),
		clock:   clockz.RealClock,
		custody: DefaultCustodyAccount,
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithClock sets the time source. Tests pass a fake clock to exercise
// accrual at exact instants.
func WithClock(c clockz.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithAuthenticator sets the caller-identity oracle.
func WithAuthenticator(a auth.Authenticator) Option {
	return func(e *Engine) {
		e.authn = a
	}
}

// WithCustodyAccount sets the identity that holds stream deposits.
func WithCustodyAccount(identity Identity) Option {
	return func(e *Engine) {
		e.custody = identity
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// Start migrates the store and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("engine started",
		"custody", e.custody,
		"plugins", e.plugins.Count(),
	)

	return nil
}

// Stop shuts down the Engine and closes the store.
func (e *Engine) Stop() error {
	e.plugins.EmitShutdown(context.Background())
	return e.store.Close()
}

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// now returns the current time as unix seconds.
func (e *Engine) now() uint64 {
	ts := e.clock.Now().Unix()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

// ──────────────────────────────────────────────────
// Protocol Configuration
// ──────────────────────────────────────────────────

// Initialize records the protocol config singleton: the admin identity,
// the treasury that receives fees, and the fee rate in basis points.
// It can succeed exactly once; the caller must authenticate as admin.
func (e *Engine) Initialize(ctx context.Context, admin, treasury Identity, feeRateBps uint32) error {
	if err := e.authn.RequireCaller(ctx, admin); err != nil {
		return fmt.Errorf("%w: %s", ErrUnauthorized, err)
	}
	if _, err := e.store.GetConfig(ctx); err == nil {
		return ErrAlreadyInitialized
	} else if !IsNotFound(err) {
		return err
	}
	if !protocol.ValidFeeRate(feeRateBps) {
		return ErrInvalidFeeRate
	}

	cfg := &protocol.Config{
		Entity:     NewEntity(),
		Admin:      admin,
		Treasury:   treasury,
		FeeRateBps: feeRateBps,
	}
	if err := e.store.PutConfig(ctx, cfg); err != nil {
		return err
	}

	e.plugins.EmitConfigInitialized(ctx, cfg)

	e.logger.Info("protocol initialized",
		"admin", admin,
		"treasury", treasury,
		"fee_rate_bps", feeRateBps,
	)
	return nil
}

// UpdateFeeConfig replaces the treasury and fee rate. The stored admin
// identity is preserved; only the recorded admin may call this.
func (e *Engine) UpdateFeeConfig(ctx context.Context, admin, treasury Identity, feeRateBps uint32) error {
	if err := e.authn.RequireCaller(ctx, admin); err != nil {
		return fmt.Errorf("%w: %s", ErrUnauthorized, err)
	}

	cfg, err := e.store.GetConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.Admin != admin {
		return ErrNotAdmin
	}
	if !protocol.ValidFeeRate(feeRateBps) {
		return ErrInvalidFeeRate
	}

	cfg.Treasury = treasury
	cfg.FeeRateBps = feeRateBps
	cfg.Touch()
	if err := e.store.PutConfig(ctx, cfg); err != nil {
		return err
	}

	e.plugins.EmitConfigUpdated(ctx, cfg)

	e.logger.Info("fee config updated",
		"treasury", treasury,
		"fee_rate_bps", feeRateBps,
	)
	return nil
}

// FeeConfig returns the current protocol config, or ErrNotInitialized.
// No authentication required.
func (e *Engine) FeeConfig(ctx context.Context) (*protocol.Config, error) {
	return e.store.GetConfig(ctx)
}

// ──────────────────────────────────────────────────
// Stream Lifecycle
// ──────────────────────────────────────────────────

// CreateStream locks amount of the given token into a new stream that
// vests linearly to recipient over duration seconds. The unlocking rate
// is fixed at creation as net/duration with truncating division; the
// remainder (at most duration-1 unit fractions) stays in custody and is
// refunded on cancellation. Returns the new stream id.
func (e *Engine) CreateStream(ctx context.Context, sender, recipient Identity, tok TokenAddress, amount Amount, duration uint64) (uint64, error) {
	if err := e.authn.RequireCaller(ctx, sender); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrUnauthorized, err)
	}
	if !amount.IsPositive() {
		return 0, ErrInvalidAmount
	}
	if duration == 0 {
		return 0, ErrInvalidDuration
	}
	// Capability probe: an address that cannot answer a decimals query
	// is not a token service.
	if _, err := e.tokens.Decimals(ctx, tok); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidTokenAddress, err)
	}

	if err := e.tokens.Transfer(ctx, tok, sender, e.custody, amount); err != nil {
		return 0, err
	}

	streamID, err := e.store.NextStreamID(ctx)
	if err != nil {
		return 0, err
	}

	net, err := e.collectFee(ctx, streamID, tok, amount)
	if err != nil {
		return 0, err
	}

	now := e.now()
	rec := &stream.Stream{
		Entity:        NewEntity(),
		Sender:        sender,
		Recipient:     recipient,
		Token:         tok,
		RatePerSecond: net.DivSeconds(duration),
		Deposited:     net,
		Withdrawn:     0,
		StartTime:     now,
		LastUpdate:    now,
		Active:        true,
	}
	if err := rec.CheckInvariants(); err != nil {
		return 0, err
	}
	if err := e.store.PutStream(ctx, streamID, rec); err != nil {
		return 0, err
	}

	e.plugins.EmitStreamCreated(ctx, &stream.CreatedEvent{
		ID:            id.NewEventID(),
		StreamID:      streamID,
		Sender:        sender,
		Recipient:     recipient,
		RatePerSecond: rec.RatePerSecond,
		Token:         tok,
		Deposited:     net,
		StartTime:     now,
	})

	e.logger.Info("stream created",
		"stream_id", streamID,
		"sender", sender,
		"recipient", recipient,
		"deposited", net,
		"rate_per_second", rec.RatePerSecond,
		"duration", duration,
	)
	return streamID, nil
}

// TopUpStream adds amount (less any protocol fee) to the stream's
// deposit. The unlocking rate is not recomputed: a top-up extends the
// runway at the original speed. The accrual base resets to the top-up
// instant, so callers should withdraw accrued funds first if they want
// them reflected before the reset.
func (e *Engine) TopUpStream(ctx context.Context, sender Identity, streamID uint64, amount Amount) error {
	if err := e.authn.RequireCaller(ctx, sender); err != nil {
		return fmt.Errorf("%w: %s", ErrUnauthorized, err)
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	rec, err := e.store.GetStream(ctx, streamID)
	if err != nil {
		return err
	}
	if rec.Sender != sender {
		return ErrUnauthorized
	}
	if !rec.Active {
		return ErrStreamInactive
	}

	if err := e.tokens.Transfer(ctx, rec.Token, sender, e.custody, amount); err != nil {
		return err
	}

	net, err := e.collectFee(ctx, streamID, rec.Token, amount)
	if err != nil {
		return err
	}

	rec.Deposited = rec.Deposited.Add(net)
	rec.LastUpdate = e.now()
	rec.Touch()
	if err := rec.CheckInvariants(); err != nil {
		return err
	}
	if err := e.store.PutStream(ctx, streamID, rec); err != nil {
		return err
	}

	e.plugins.EmitStreamToppedUp(ctx, &stream.ToppedUpEvent{
		ID:           id.NewEventID(),
		StreamID:     streamID,
		Sender:       sender,
		Amount:       net,
		NewDeposited: rec.Deposited,
	})

	e.logger.Info("stream topped up",
		"stream_id", streamID,
		"amount", net,
		"deposited", rec.Deposited,
	)
	return nil
}

// Withdraw pays the recipient everything that has accrued since the
// last accounting event. Fails with ErrInvalidAmount when nothing new
// has accrued. A stream whose deposit is fully withdrawn auto-closes.
// Returns the amount withdrawn.
func (e *Engine) Withdraw(ctx context.Context, recipient Identity, streamID uint64) (Amount, error) {
	if err := e.authn.RequireCaller(ctx, recipient); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrUnauthorized, err)
	}

	rec, err := e.store.GetStream(ctx, streamID)
	if err != nil {
		return 0, err
	}
	if rec.Recipient != recipient {
		return 0, ErrUnauthorized
	}
	if !rec.Active {
		return 0, ErrStreamInactive
	}

	now := e.now()
	claimable := rec.Claimable(now)
	if !claimable.IsPositive() {
		return 0, ErrInvalidAmount
	}

	if err := e.tokens.Transfer(ctx, rec.Token, e.custody, recipient, claimable); err != nil {
		return 0, err
	}

	rec.Withdrawn = rec.Withdrawn.Add(claimable)
	rec.LastUpdate = now
	if rec.Drained() {
		rec.Active = false
	}
	rec.Touch()
	if err := rec.CheckInvariants(); err != nil {
		return 0, err
	}
	if err := e.store.PutStream(ctx, streamID, rec); err != nil {
		return 0, err
	}

	e.plugins.EmitWithdrawn(ctx, &stream.WithdrawnEvent{
		ID:        id.NewEventID(),
		StreamID:  streamID,
		Recipient: recipient,
		Amount:    claimable,
		Timestamp: now,
	})

	e.logger.Info("withdrawal",
		"stream_id", streamID,
		"recipient", recipient,
		"amount", claimable,
		"active", rec.Active,
	)
	return claimable, nil
}

// CancelStream terminates an active stream. The recipient is settled
// first: anything accrued up to the cancellation instant is paid out and
// booked as withdrawn. The refund to the sender is then exactly the
// un-streamed remainder, so the two payouts always sum to the deposit
// less prior withdrawals.
func (e *Engine) CancelStream(ctx context.Context, sender Identity, streamID uint64) error {
	if err := e.authn.RequireCaller(ctx, sender); err != nil {
		return fmt.Errorf("%w: %s", ErrUnauthorized, err)
	}

	rec, err := e.store.GetStream(ctx, streamID)
	if err != nil {
		return err
	}
	if rec.Sender != sender {
		return ErrUnauthorized
	}
	if !rec.Active {
		return ErrStreamInactive
	}

	now := e.now()

	// Recipient settlement before the refund computation. Ordering is
	// what guarantees conservation: the refund is derived from the
	// post-settlement withdrawn total.
	accrued := rec.Claimable(now)
	if accrued.IsPositive() {
		if err := e.tokens.Transfer(ctx, rec.Token, e.custody, rec.Recipient, accrued); err != nil {
			return err
		}
		rec.Withdrawn = rec.Withdrawn.Add(accrued)
	}

	refund := rec.Remaining()
	if refund.IsPositive() {
		if err := e.tokens.Transfer(ctx, rec.Token, e.custody, sender, refund); err != nil {
			return err
		}
	}

	rec.Active = false
	rec.LastUpdate = now
	rec.Touch()
	if err := rec.CheckInvariants(); err != nil {
		return err
	}
	if err := e.store.PutStream(ctx, streamID, rec); err != nil {
		return err
	}

	e.plugins.EmitStreamCancelled(ctx, &stream.CancelledEvent{
		ID:        id.NewEventID(),
		StreamID:  streamID,
		Sender:    sender,
		Recipient: rec.Recipient,
		Withdrawn: rec.Withdrawn,
		Refunded:  refund,
	})

	e.logger.Info("stream cancelled",
		"stream_id", streamID,
		"settled", accrued,
		"refunded", refund,
	)
	return nil
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// GetStream returns the stream record, or ErrStreamNotFound.
func (e *Engine) GetStream(ctx context.Context, streamID uint64) (*stream.Stream, error) {
	return e.store.GetStream(ctx, streamID)
}

// ClaimableAmount returns how much the recipient could withdraw right
// now. Inactive streams always report zero: once a stream is cancelled
// or drained nothing further accrues.
func (e *Engine) ClaimableAmount(ctx context.Context, streamID uint64) (Amount, error) {
	rec, err := e.store.GetStream(ctx, streamID)
	if err != nil {
		return 0, err
	}
	if !rec.Active {
		return 0, nil
	}
	return rec.Claimable(e.now()), nil
}

// ──────────────────────────────────────────────────
// Fee Collection
// ──────────────────────────────────────────────────

// collectFee skims the protocol fee from a gross inbound deposit and
// returns the net amount. With no config or a zero rate the gross amount
// passes through untouched. The fee rounds down, favoring the depositor.
// The stream record is never mutated here; the caller books the returned
// net amount.
func (e *Engine) collectFee(ctx context.Context, streamID uint64, tok TokenAddress, gross Amount) (Amount, error) {
	cfg, err := e.store.GetConfig(ctx)
	if err != nil {
		if IsNotFound(err) {
			return gross, nil
		}
		return 0, err
	}
	if !cfg.HasFee() {
		return gross, nil
	}

	fee := gross.FeePortion(cfg.FeeRateBps)
	if !fee.IsPositive() {
		return gross, nil
	}

	if err := e.tokens.Transfer(ctx, tok, e.custody, cfg.Treasury, fee); err != nil {
		return 0, err
	}

	e.plugins.EmitFeeCollected(ctx, &stream.FeeCollectedEvent{
		ID:       id.NewEventID(),
		StreamID: streamID,
		Treasury: cfg.Treasury,
		Fee:      fee,
		Token:    tok,
	})

	e.logger.Info("fee collected",
		"stream_id", streamID,
		"fee", fee,
		"treasury", cfg.Treasury,
	)
	return gross.Sub(fee), nil
}
