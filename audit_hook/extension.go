// Package audithook bridges engine lifecycle events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not depend
// on any particular audit system. Callers inject a RecorderFunc adapter
// that bridges to their backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/streampay/plugin"
	"github.com/xraph/streampay/protocol"
	"github.com/xraph/streampay/stream"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin              = (*Extension)(nil)
	_ plugin.OnConfigInitialized = (*Extension)(nil)
	_ plugin.OnConfigUpdated     = (*Extension)(nil)
	_ plugin.OnStreamCreated     = (*Extension)(nil)
	_ plugin.OnStreamToppedUp    = (*Extension)(nil)
	_ plugin.OnWithdrawn         = (*Extension)(nil)
	_ plugin.OnStreamCancelled   = (*Extension)(nil)
	_ plugin.OnFeeCollected      = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a backend-neutral audit record.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges engine lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Protocol configuration hooks
// ──────────────────────────────────────────────────

// OnConfigInitialized implements plugin.OnConfigInitialized.
func (e *Extension) OnConfigInitialized(ctx context.Context, cfg *protocol.Config) error {
	return e.record(ctx, ActionConfigInitialized, SeverityInfo,
		ResourceConfig, "", CategoryGovernance,
		"admin", cfg.Admin.String(),
		"treasury", cfg.Treasury.String(),
		"fee_rate_bps", cfg.FeeRateBps,
	)
}

// OnConfigUpdated implements plugin.OnConfigUpdated.
func (e *Extension) OnConfigUpdated(ctx context.Context, cfg *protocol.Config) error {
	return e.record(ctx, ActionConfigUpdated, SeverityWarning,
		ResourceConfig, "", CategoryGovernance,
		"treasury", cfg.Treasury.String(),
		"fee_rate_bps", cfg.FeeRateBps,
	)
}

// ──────────────────────────────────────────────────
// Stream lifecycle hooks
// ──────────────────────────────────────────────────

// OnStreamCreated implements plugin.OnStreamCreated.
func (e *Extension) OnStreamCreated(ctx context.Context, ev *stream.CreatedEvent) error {
	return e.record(ctx, ActionStreamCreated, SeverityInfo,
		ResourceStream, streamID(ev.StreamID), CategoryStreaming,
		"sender", ev.Sender.String(),
		"recipient", ev.Recipient.String(),
		"deposited", ev.Deposited.Int64(),
		"rate_per_second", ev.RatePerSecond.Int64(),
	)
}

// OnStreamToppedUp implements plugin.OnStreamToppedUp.
func (e *Extension) OnStreamToppedUp(ctx context.Context, ev *stream.ToppedUpEvent) error {
	return e.record(ctx, ActionStreamToppedUp, SeverityInfo,
		ResourceStream, streamID(ev.StreamID), CategoryStreaming,
		"sender", ev.Sender.String(),
		"amount", ev.Amount.Int64(),
		"new_deposited", ev.NewDeposited.Int64(),
	)
}

// OnWithdrawn implements plugin.OnWithdrawn.
func (e *Extension) OnWithdrawn(ctx context.Context, ev *stream.WithdrawnEvent) error {
	return e.record(ctx, ActionStreamWithdrawn, SeverityInfo,
		ResourceStream, streamID(ev.StreamID), CategoryPayment,
		"recipient", ev.Recipient.String(),
		"amount", ev.Amount.Int64(),
	)
}

// OnStreamCancelled implements plugin.OnStreamCancelled.
func (e *Extension) OnStreamCancelled(ctx context.Context, ev *stream.CancelledEvent) error {
	return e.record(ctx, ActionStreamCancelled, SeverityWarning,
		ResourceStream, streamID(ev.StreamID), CategoryStreaming,
		"sender", ev.Sender.String(),
		"recipient", ev.Recipient.String(),
		"withdrawn", ev.Withdrawn.Int64(),
		"refunded", ev.Refunded.Int64(),
	)
}

// OnFeeCollected implements plugin.OnFeeCollected.
func (e *Extension) OnFeeCollected(ctx context.Context, ev *stream.FeeCollectedEvent) error {
	return e.record(ctx, ActionFeeCollected, SeverityInfo,
		ResourceFee, streamID(ev.StreamID), CategoryPayment,
		"treasury", ev.Treasury.String(),
		"fee", ev.Fee.Int64(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

func streamID(id uint64) string {
	return fmt.Sprintf("%d", id)
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity string,
	resource, resourceID, category string,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    OutcomeSuccess,
		Severity:   severity,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
