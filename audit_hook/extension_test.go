package audithook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/xraph/streampay/protocol"
	"github.com/xraph/streampay/stream"
	"github.com/xraph/streampay/types"
)

type captureRecorder struct {
	events []*AuditEvent
	err    error
}

func (c *captureRecorder) Record(_ context.Context, ev *AuditEvent) error {
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, ev)
	return nil
}

func TestExtensionRecordsStreamEvents(t *testing.T) {
	ctx := context.Background()
	rec := &captureRecorder{}
	ext := New(rec)

	if err := ext.OnStreamCreated(ctx, &stream.CreatedEvent{
		StreamID:  7,
		Sender:    types.Identity("alice"),
		Recipient: types.Identity("bob"),
		Deposited: 9500,
	}); err != nil {
		t.Fatalf("OnStreamCreated() error = %v", err)
	}
	if err := ext.OnFeeCollected(ctx, &stream.FeeCollectedEvent{
		StreamID: 7,
		Treasury: types.Identity("treasury"),
		Fee:      500,
	}); err != nil {
		t.Fatalf("OnFeeCollected() error = %v", err)
	}

	if len(rec.events) != 2 {
		t.Fatalf("recorded %d events, want 2", len(rec.events))
	}

	created := rec.events[0]
	if created.Action != ActionStreamCreated {
		t.Errorf("action = %s, want %s", created.Action, ActionStreamCreated)
	}
	if created.ResourceID != "7" {
		t.Errorf("resource_id = %s, want 7", created.ResourceID)
	}
	if got := created.Metadata["deposited"]; got != int64(9500) {
		t.Errorf("deposited metadata = %v, want 9500", got)
	}

	fee := rec.events[1]
	if fee.Action != ActionFeeCollected || fee.Category != CategoryPayment {
		t.Errorf("fee event = %s/%s, want %s/%s",
			fee.Action, fee.Category, ActionFeeCollected, CategoryPayment)
	}
}

func TestExtensionActionFiltering(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		opts []Option
		want int
	}{
		{"all enabled by default", nil, 2},
		{"only created enabled", []Option{WithEnabledActions(ActionStreamCreated)}, 1},
		{"cancelled disabled", []Option{WithDisabledActions(ActionStreamCancelled)}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &captureRecorder{}
			ext := New(rec, tt.opts...)

			if err := ext.OnStreamCreated(ctx, &stream.CreatedEvent{StreamID: 1}); err != nil {
				t.Fatalf("OnStreamCreated() error = %v", err)
			}
			if err := ext.OnStreamCancelled(ctx, &stream.CancelledEvent{StreamID: 1}); err != nil {
				t.Fatalf("OnStreamCancelled() error = %v", err)
			}

			if len(rec.events) != tt.want {
				t.Errorf("recorded %d events, want %d", len(rec.events), tt.want)
			}
		})
	}
}

func TestExtensionSwallowsRecorderErrors(t *testing.T) {
	rec := &captureRecorder{err: errors.New("backend down")}
	ext := New(rec, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	if err := ext.OnConfigInitialized(context.Background(), &protocol.Config{
		Admin:    types.Identity("admin"),
		Treasury: types.Identity("treasury"),
	}); err != nil {
		t.Errorf("OnConfigInitialized() error = %v, want nil despite recorder failure", err)
	}
}
