// Package plugin provides an extensible plugin system for streampay.
// Plugins can hook into ledger lifecycle events to extend functionality.
//
// Hook delivery is best-effort: a failing or slow plugin is logged and
// skipped, never allowed to affect the accounting state. The registry is
// the engine's event sink — publish-and-forget.
package plugin

import (
	"context"

	"github.com/xraph/streampay/protocol"
	"github.com/xraph/streampay/stream"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Protocol configuration hooks
// ──────────────────────────────────────────────────

// OnConfigInitialized is called when the protocol config is first created.
type OnConfigInitialized interface {
	Plugin
	OnConfigInitialized(ctx context.Context, cfg *protocol.Config) error
}

// OnConfigUpdated is called when the treasury or fee rate changes.
type OnConfigUpdated interface {
	Plugin
	OnConfigUpdated(ctx context.Context, cfg *protocol.Config) error
}

// ──────────────────────────────────────────────────
// Stream lifecycle hooks
// ──────────────────────────────────────────────────

// OnStreamCreated is called when a new stream is recorded.
type OnStreamCreated interface {
	Plugin
	OnStreamCreated(ctx context.Context, ev *stream.CreatedEvent) error
}

// OnStreamToppedUp is called after a successful top-up.
type OnStreamToppedUp interface {
	Plugin
	OnStreamToppedUp(ctx context.Context, ev *stream.ToppedUpEvent) error
}

// OnWithdrawn is called after the recipient withdraws accrued tokens.
type OnWithdrawn interface {
	Plugin
	OnWithdrawn(ctx context.Context, ev *stream.WithdrawnEvent) error
}

// OnStreamCancelled is called after a stream is cancelled and settled.
type OnStreamCancelled interface {
	Plugin
	OnStreamCancelled(ctx context.Context, ev *stream.CancelledEvent) error
}

// OnFeeCollected is called when a protocol fee is skimmed from a deposit.
type OnFeeCollected interface {
	Plugin
	OnFeeCollected(ctx context.Context, ev *stream.FeeCollectedEvent) error
}
