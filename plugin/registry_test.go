package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/streampay/stream"
)

type recordingPlugin struct {
	name    string
	created []*stream.CreatedEvent
	fees    []*stream.FeeCollectedEvent
	fail    bool
}

func (p *recordingPlugin) Name() string { return p.name }

func (p *recordingPlugin) OnStreamCreated(_ context.Context, ev *stream.CreatedEvent) error {
	if p.fail {
		return errors.New("boom")
	}
	p.created = append(p.created, ev)
	return nil
}

func (p *recordingPlugin) OnFeeCollected(_ context.Context, ev *stream.FeeCollectedEvent) error {
	p.fees = append(p.fees, ev)
	return nil
}

func TestRegisterAndDispatch(t *testing.T) {
	r := NewRegistry()
	p := &recordingPlugin{name: "recorder"}

	if err := r.Register(p); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
	if r.Get("recorder") != p {
		t.Error("Get did not return registered plugin")
	}

	ev := &stream.CreatedEvent{StreamID: 7}
	r.EmitStreamCreated(context.Background(), ev)

	if len(p.created) != 1 || p.created[0].StreamID != 7 {
		t.Errorf("plugin did not receive created event: %+v", p.created)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&recordingPlugin{name: "dup"}); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := r.Register(&recordingPlugin{name: "dup"}); err == nil {
		t.Error("duplicate Register succeeded")
	}
}

func TestFailingPluginIsIsolated(t *testing.T) {
	r := NewRegistry()
	bad := &recordingPlugin{name: "bad", fail: true}
	good := &recordingPlugin{name: "good"}

	if err := r.Register(bad); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(good); err != nil {
		t.Fatal(err)
	}

	// A failing hook must not prevent delivery to the others.
	r.EmitStreamCreated(context.Background(), &stream.CreatedEvent{StreamID: 1})

	if len(good.created) != 1 {
		t.Errorf("good plugin received %d events, want 1", len(good.created))
	}
}

func TestDispatchOnlyToImplementors(t *testing.T) {
	r := NewRegistry()
	p := &recordingPlugin{name: "recorder"}
	if err := r.Register(p); err != nil {
		t.Fatal(err)
	}

	// recordingPlugin implements OnFeeCollected but not OnWithdrawn;
	// emitting both should only reach the implemented hook.
	r.EmitFeeCollected(context.Background(), &stream.FeeCollectedEvent{StreamID: 2, Fee: 50})
	r.EmitWithdrawn(context.Background(), &stream.WithdrawnEvent{StreamID: 2})

	if len(p.fees) != 1 || p.fees[0].Fee != 50 {
		t.Errorf("fee events = %+v, want one with fee 50", p.fees)
	}
}
