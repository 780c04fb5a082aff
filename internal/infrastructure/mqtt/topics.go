package mqtt

import "fmt"

// Topic prefixes used by the smooth lights service.
//
// Bridge topics follow the flat scheme graylogic/{category}/{protocol}/{address}
// shared with the protocol bridges on the bus.
const (
	// TopicRoot is the base of every topic on the Gray Logic bus.
	TopicRoot = "graylogic"

	// TopicPrefixService carries service calls: graylogic/service/{domain}/{service}.
	TopicPrefixService = TopicRoot + "/service"

	// TopicPrefixSmoothLights is the base for this service's own topics.
	TopicPrefixSmoothLights = TopicRoot + "/smoothlights"
)

// Topics provides builders for MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.ServiceCall("light", "turn_on")       // graylogic/service/light/turn_on
//	topics.BridgeCommand("light", "light.lounge") // graylogic/command/light/light.lounge
type Topics struct{}

// ServiceCall returns the topic a service call is published on.
//
// Example: graylogic/service/light/turn_on
func (Topics) ServiceCall(domain, service string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixService, domain, service)
}

// AllServiceCalls returns a pattern matching every service call topic.
//
// Pattern: graylogic/service/+/+
func (Topics) AllServiceCalls() string {
	return TopicPrefixService + "/+/+"
}

// BridgeCommand returns the topic for commands to a bridge.
//
// Example: graylogic/command/light/light.kitchen
func (Topics) BridgeCommand(protocol, address string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicRoot, protocol, address)
}

// Status returns the retained online/offline status topic, also used as the
// Last Will topic.
//
// Example: graylogic/smoothlights/status
func (Topics) Status() string {
	return TopicPrefixSmoothLights + "/status"
}
