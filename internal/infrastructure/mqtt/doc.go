// Package mqtt provides the broker connection for the smooth lights service.
//
// The service sits on the Gray Logic MQTT bus between callers and the light
// bridges:
//
//	callers → graylogic/service/light/turn_on → smoothlights → graylogic/command/light/{entity} → bridge
//
// This package manages:
//   - Connection to the broker with auto-reconnect and subscription restore
//   - Publishing with QoS and payload-size checks
//   - A retained status topic with a Last Will for crash detection
//   - Topic builders (Topics) so every component names topics the same way
//
// # Security Considerations
//
//   - Enable TLS (cfg.Broker.TLS) for anything beyond a local broker
//   - Credentials come from config or GRAYLOGIC_MQTT_USERNAME/PASSWORD
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllServiceCalls(), 1,
//	    func(topic string, payload []byte) error {
//	        return ingress.Handle(topic, payload)
//	    })
//
//	topic := mqtt.Topics{}.BridgeCommand("light", "light.kitchen")
//	err = client.Publish(topic, payload, 1, false)
package mqtt
