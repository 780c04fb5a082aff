package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ingressQoS is the subscription QoS for service call requests.
const ingressQoS = 1

// Subscriber is the subset of the MQTT client used by Ingress.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error
}

// CallMessage is the JSON body of a service call request received over MQTT.
//
//	{"data": {"entity_id": "light.kitchen"}, "context": {"user_id": "panel-1"}}
type CallMessage struct {
	Data    Data    `json:"data"`
	Context Context `json:"context"`
}

// Ingress forwards service call requests received over MQTT to a Registry.
//
// Requests are published to {prefix}/{domain}/{service}. Malformed messages
// and calls to unknown services are logged and dropped; they never stop the
// subscription.
type Ingress struct {
	registry *Registry
	sub      Subscriber
	topic    string
	ctx      context.Context
	logger   Logger
}

// NewIngress creates an ingress for the given subscription pattern, usually
// mqtt.Topics{}.AllServiceCalls().
func NewIngress(registry *Registry, sub Subscriber, topic string) *Ingress {
	return &Ingress{
		registry: registry,
		sub:      sub,
		topic:    topic,
		ctx:      context.Background(),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the ingress.
func (in *Ingress) SetLogger(logger Logger) {
	in.logger = logger
}

// Start subscribes to the call topic. ctx is passed to every dispatched call.
func (in *Ingress) Start(ctx context.Context) error {
	in.ctx = ctx
	if err := in.sub.Subscribe(in.topic, ingressQoS, in.handleMessage); err != nil {
		return fmt.Errorf("subscribing to service calls: %w", err)
	}
	in.logger.Info("service ingress started", "topic", in.topic)
	return nil
}

// handleMessage decodes one request and dispatches it.
// Dispatch failures are logged rather than returned so the MQTT layer does
// not log them a second time.
func (in *Ingress) handleMessage(topic string, payload []byte) error {
	domain, svc, err := ParseCallTopic(topic)
	if err != nil {
		in.logger.Warn("dropping service call", "topic", topic, "error", err)
		return nil
	}

	var msg CallMessage
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &msg); err != nil {
			in.logger.Warn("dropping service call",
				"topic", topic,
				"error", fmt.Errorf("%w: %v", ErrInvalidPayload, err),
			)
			return nil
		}
	}
	msg.Context.Origin = OriginMQTT

	if err := in.registry.Call(in.ctx, domain, svc, msg.Data, msg.Context); err != nil {
		in.logger.Warn("service call from mqtt failed",
			"service", domain+"."+svc,
			"error", err,
		)
	}
	return nil
}

// ParseCallTopic extracts the domain and service from a call topic. The last
// two topic levels name the service.
//
// Example: graylogic/service/light/turn_on → ("light", "turn_on")
func ParseCallTopic(topic string) (domain, svc string, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	domain = parts[len(parts)-2]
	svc = parts[len(parts)-1]
	if domain == "" || svc == "" || domain == "+" || svc == "+" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	return domain, svc, nil
}
