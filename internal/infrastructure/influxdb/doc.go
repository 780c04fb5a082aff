// Package influxdb records smooth lights activity in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library and writes two
// measurements:
//   - transition_decisions: one point per intercepted light.turn_on call,
//     tagged with the decision (injected, transition_present, no_target, excluded)
//   - service_calls: one point per dispatched service call, tagged with
//     domain, service and origin
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without history
//	}
//	defer client.Close()
//
//	client.WriteTransitionDecision("injected", []string{"light.kitchen"}, 4)
//
// # Error Handling
//
// Writes are non-blocking. Batch failures are delivered to the SetOnError
// callback; connection and health check errors are returned directly.
package influxdb
