// Package observability provides a metrics plugin that records stream
// lifecycle counts and flows as Prometheus metrics.
package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/streampay/plugin"
	"github.com/xraph/streampay/protocol"
	"github.com/xraph/streampay/stream"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin            = (*MetricsExtension)(nil)
	_ plugin.OnConfigUpdated   = (*MetricsExtension)(nil)
	_ plugin.OnStreamCreated   = (*MetricsExtension)(nil)
	_ plugin.OnStreamToppedUp  = (*MetricsExtension)(nil)
	_ plugin.OnWithdrawn       = (*MetricsExtension)(nil)
	_ plugin.OnStreamCancelled = (*MetricsExtension)(nil)
	_ plugin.OnFeeCollected    = (*MetricsExtension)(nil)
)

// MetricsExtension records engine-wide lifecycle metrics.
// Register it as an engine plugin to automatically track stream metrics.
type MetricsExtension struct {
	StreamsCreated   prometheus.Counter
	StreamsToppedUp  prometheus.Counter
	StreamsCancelled prometheus.Counter
	Withdrawals      prometheus.Counter
	ConfigUpdates    prometheus.Counter

	// Token flows in raw token units
	AmountDeposited prometheus.Counter
	AmountWithdrawn prometheus.Counter
	AmountRefunded  prometheus.Counter
	FeesCollected   prometheus.Counter
}

// NewMetricsExtension creates a MetricsExtension and registers its
// collectors with reg. Pass prometheus.DefaultRegisterer outside of
// tests.
func NewMetricsExtension(reg prometheus.Registerer) *MetricsExtension {
	counter := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "streampay",
			Name:      name,
			Help:      help,
		})
		reg.MustRegister(c)
		return c
	}

	return &MetricsExtension{
		StreamsCreated:   counter("streams_created_total", "Streams created."),
		StreamsToppedUp:  counter("streams_topped_up_total", "Top-up operations."),
		StreamsCancelled: counter("streams_cancelled_total", "Streams cancelled."),
		Withdrawals:      counter("withdrawals_total", "Withdrawal operations."),
		ConfigUpdates:    counter("config_updates_total", "Fee config updates."),

		AmountDeposited: counter("amount_deposited_total", "Net token units deposited into streams."),
		AmountWithdrawn: counter("amount_withdrawn_total", "Token units paid out to recipients."),
		AmountRefunded:  counter("amount_refunded_total", "Token units refunded to senders on cancellation."),
		FeesCollected:   counter("fees_collected_total", "Token units collected as protocol fees."),
	}
}

// Name returns the plugin name.
func (m *MetricsExtension) Name() string { return "metrics" }

// OnConfigUpdated increments the config update counter.
func (m *MetricsExtension) OnConfigUpdated(_ context.Context, _ *protocol.Config) error {
	m.ConfigUpdates.Inc()
	return nil
}

// OnStreamCreated records a new stream and its deposit.
func (m *MetricsExtension) OnStreamCreated(_ context.Context, ev *stream.CreatedEvent) error {
	m.StreamsCreated.Inc()
	m.AmountDeposited.Add(float64(ev.Deposited))
	return nil
}

// OnStreamToppedUp records a top-up and the net amount added.
func (m *MetricsExtension) OnStreamToppedUp(_ context.Context, ev *stream.ToppedUpEvent) error {
	m.StreamsToppedUp.Inc()
	m.AmountDeposited.Add(float64(ev.Amount))
	return nil
}

// OnWithdrawn records a withdrawal payout.
func (m *MetricsExtension) OnWithdrawn(_ context.Context, ev *stream.WithdrawnEvent) error {
	m.Withdrawals.Inc()
	m.AmountWithdrawn.Add(float64(ev.Amount))
	return nil
}

// OnStreamCancelled records a cancellation and the refunded remainder.
func (m *MetricsExtension) OnStreamCancelled(_ context.Context, ev *stream.CancelledEvent) error {
	m.StreamsCancelled.Inc()
	m.AmountRefunded.Add(float64(ev.Refunded))
	return nil
}

// OnFeeCollected records the token units skimmed as protocol fees.
func (m *MetricsExtension) OnFeeCollected(_ context.Context, ev *stream.FeeCollectedEvent) error {
	m.FeesCollected.Add(float64(ev.Fee))
	return nil
}
