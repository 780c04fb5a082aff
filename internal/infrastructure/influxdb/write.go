package influxdb

import (
	"strings"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementTransitionDecisions = "transition_decisions"
	MeasurementServiceCalls        = "service_calls"
)

// WriteTransitionDecision records how one intercepted light.turn_on call was
// handled.
//
// The decision is a tag so dashboards can group by it; the targeted entity
// IDs are stored as a comma-joined field to keep series cardinality bounded.
//
// Parameters:
//   - decision: Outcome, e.g. "injected" or "excluded"
//   - entities: Targeted entity IDs (may be empty)
//   - transition: Transition in seconds present on the forwarded call, 0 if none
//
// Example:
//
//	client.WriteTransitionDecision("injected", []string{"light.kitchen"}, 4)
func (c *Client) WriteTransitionDecision(decision string, entities []string, transition float64) {
	c.WritePoint(MeasurementTransitionDecisions,
		map[string]string{"decision": decision},
		map[string]interface{}{
			"entity_count": len(entities),
			"entities":     strings.Join(entities, ","),
			"transition":   transition,
		},
	)
}

// WriteServiceCall records the outcome of a dispatched service call.
//
// Parameters:
//   - domain, service: The called service, e.g. "light", "turn_on"
//   - origin: Where the call came from ("api", "mqtt", "internal")
//   - err: The handler's error; nil records success
func (c *Client) WriteServiceCall(domain, service, origin string, err error) {
	fields := map[string]interface{}{"success": err == nil}
	if err != nil {
		fields["error"] = err.Error()
	}

	c.WritePoint(MeasurementServiceCalls,
		map[string]string{
			"domain":  domain,
			"service": service,
			"origin":  origin,
		},
		fields,
	)
}

// WritePoint writes a custom point stamped with the current time.
// Points written while disconnected are dropped.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, c.now())
}

// WritePointWithTime writes a custom point with an explicit timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() || c.writer == nil {
		return
	}
	c.writer.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
