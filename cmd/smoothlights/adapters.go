package main

import (
	"github.com/nerrad567/gray-logic-smoothlights/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-smoothlights/internal/service"
)

// mqttSubscriber adapts *mqtt.Client to service.Subscriber.
type mqttSubscriber struct {
	client *mqtt.Client
}

func (s *mqttSubscriber) Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error {
	return s.client.Subscribe(topic, qos, handler)
}

var (
	_ service.Subscriber = (*mqttSubscriber)(nil)
	_ service.Observer   = (*callRecorder)(nil)
)

// callWriter is the InfluxDB write used for call telemetry.
type callWriter interface {
	WriteServiceCall(domain, service, origin string, err error)
}

// callRecorder writes one point per dispatched service call.
type callRecorder struct {
	writer callWriter
}

// ServiceCalled implements service.Observer.
func (r *callRecorder) ServiceCalled(call *service.Call, err error) {
	r.writer.WriteServiceCall(call.Domain(), call.Service(), call.Context().Origin, err)
}
