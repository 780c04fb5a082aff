package lights

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-smoothlights/internal/service"
)

type published struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// fakePublisher records published messages and can fail selected topics.
// onPublish, if set, runs on every attempt before the outcome is decided.
type fakePublisher struct {
	mu        sync.Mutex
	msgs      []published
	failOn    map[string]error
	onPublish func(topic string)
}

func (p *fakePublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.onPublish != nil {
		p.onPublish(topic)
	}
	if err, ok := p.failOn[topic]; ok {
		return err
	}
	p.msgs = append(p.msgs, published{topic, payload, qos, retained})
	return nil
}

func decode(t *testing.T, raw []byte) CommandMessage {
	t.Helper()
	var msg CommandMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("invalid command JSON: %v", err)
	}
	return msg
}

func setup(t *testing.T) (*service.Registry, *fakePublisher) {
	t.Helper()
	pub := &fakePublisher{}
	l := New(pub)
	l.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	reg := service.NewRegistry()
	if err := l.Register(reg); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return reg, pub
}

func TestRegister(t *testing.T) {
	reg, _ := setup(t)
	for _, svc := range []string{ServiceTurnOn, ServiceTurnOff, ServiceToggle} {
		if !reg.Has(Domain, svc) {
			t.Errorf("light.%s not registered", svc)
		}
	}

	l := New(&fakePublisher{})
	if err := l.Register(reg); !errors.Is(err, service.ErrServiceExists) {
		t.Errorf("second Register() error = %v, want ErrServiceExists", err)
	}
}

func TestTurnOn_SingleEntity(t *testing.T) {
	reg, pub := setup(t)

	err := reg.Call(context.Background(), "light", "turn_on",
		service.Data{"entity_id": "light.kitchen", "brightness": 200.0, "transition": 4.0},
		service.Context{ID: "ctx-1"})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	if len(pub.msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.msgs))
	}
	m := pub.msgs[0]
	if m.topic != "graylogic/command/light/light.kitchen" {
		t.Errorf("topic = %q", m.topic)
	}
	if m.qos != 1 || m.retained {
		t.Errorf("qos = %d retained = %v, want 1 false", m.qos, m.retained)
	}

	msg := decode(t, m.payload)
	if msg.Command != "on" || msg.DeviceID != "light.kitchen" {
		t.Errorf("command = %q device = %q", msg.Command, msg.DeviceID)
	}
	if msg.ContextID != "ctx-1" || msg.Source != "service:light.turn_on" {
		t.Errorf("context_id = %q source = %q", msg.ContextID, msg.Source)
	}
	if msg.ID == "" || !msg.Timestamp.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("id = %q timestamp = %v", msg.ID, msg.Timestamp)
	}
	if _, ok := msg.Parameters["entity_id"]; ok {
		t.Error("parameters include entity_id")
	}
	if msg.Parameters["transition"] != 4.0 || msg.Parameters["fade_ms"] != 4000.0 {
		t.Errorf("parameters = %v, want transition 4 and fade_ms 4000", msg.Parameters)
	}
	if msg.Parameters["brightness"] != 200.0 {
		t.Errorf("brightness = %v", msg.Parameters["brightness"])
	}
}

func TestTurnOff_FansOut(t *testing.T) {
	reg, pub := setup(t)

	err := reg.Call(context.Background(), "light", "turn_off",
		service.Data{"entity_id": []any{"light.a", "light.b"}}, service.Context{})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if len(pub.msgs) != 2 {
		t.Fatalf("published %d messages, want 2", len(pub.msgs))
	}

	ids := map[string]bool{}
	for _, m := range pub.msgs {
		msg := decode(t, m.payload)
		if msg.Command != "off" {
			t.Errorf("command = %q, want off", msg.Command)
		}
		if msg.Parameters != nil {
			t.Errorf("parameters = %v, want none", msg.Parameters)
		}
		ids[msg.DeviceID] = true
	}
	if !ids["light.a"] || !ids["light.b"] {
		t.Errorf("devices = %v", ids)
	}
}

func TestToggle_NoTarget(t *testing.T) {
	reg, pub := setup(t)

	tests := []struct {
		name string
		data service.Data
	}{
		{"absent", service.Data{}},
		{"empty list", service.Data{"entity_id": []any{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.Call(context.Background(), "light", "toggle", tt.data, service.Context{})
			if !errors.Is(err, ErrNoTarget) {
				t.Errorf("Call() error = %v, want ErrNoTarget", err)
			}
		})
	}
	if len(pub.msgs) != 0 {
		t.Errorf("published %d messages, want 0", len(pub.msgs))
	}
}

func TestTurnOn_PartialPublishFailure(t *testing.T) {
	reg, pub := setup(t)
	brokerErr := errors.New("not connected")
	pub.failOn = map[string]error{"graylogic/command/light/light.a": brokerErr}

	err := reg.Call(context.Background(), "light", "turn_on",
		service.Data{"entity_id": []string{"light.a", "light.b"}}, service.Context{})
	if !errors.Is(err, ErrPublishFailed) || !errors.Is(err, brokerErr) {
		t.Errorf("Call() error = %v, want ErrPublishFailed wrapping broker error", err)
	}
	if len(pub.msgs) != 1 {
		t.Errorf("published %d messages, want 1 (light.b)", len(pub.msgs))
	}
}

func TestTurnOn_InvalidEntityRef(t *testing.T) {
	reg, _ := setup(t)
	err := reg.Call(context.Background(), "light", "turn_on", service.Data{"entity_id": 5.0}, service.Context{})
	if !errors.Is(err, service.ErrInvalidEntityRef) {
		t.Errorf("Call() error = %v, want ErrInvalidEntityRef", err)
	}
}

func TestTurnOn_CancelledContext(t *testing.T) {
	reg, pub := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := reg.Call(ctx, "light", "turn_on", service.Data{"entity_id": "light.a"}, service.Context{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Call() error = %v, want context.Canceled", err)
	}
	if len(pub.msgs) != 0 {
		t.Error("published despite cancelled context")
	}
}

func TestTurnOn_CancelledAfterFailedPublish(t *testing.T) {
	reg, pub := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	brokerErr := errors.New("not connected")
	pub.failOn = map[string]error{"graylogic/command/light/light.a": brokerErr}
	pub.onPublish = func(string) { cancel() }

	err := reg.Call(ctx, "light", "turn_on",
		service.Data{"entity_id": []string{"light.a", "light.b", "light.c"}}, service.Context{})
	if !errors.Is(err, brokerErr) {
		t.Errorf("Call() error = %v, lost the publish failure for light.a", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Call() error = %v, want context.Canceled", err)
	}
	if len(pub.msgs) != 0 {
		t.Errorf("published %d messages after cancellation, want 0", len(pub.msgs))
	}
}

func TestBuildParameters(t *testing.T) {
	tests := []struct {
		name string
		data service.Data
		want map[string]any
	}{
		{"empty", service.Data{"entity_id": "light.a"}, nil},
		{"fractional transition", service.Data{"transition": 1.25}, map[string]any{"transition": 1.25, "fade_ms": 1250}},
		{"non-numeric transition", service.Data{"transition": "slow"}, map[string]any{"transition": "slow"}},
		{"negative transition", service.Data{"transition": -1.0}, map[string]any{"transition": -1.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildParameters(tt.data)
			if len(got) != len(tt.want) {
				t.Fatalf("buildParameters() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}
