// Package smoothlights is the Smooth Lights integration: while an entry is
// active, every light.turn_on call without a transition gets the configured
// default fade.
//
// Activate builds a transition.Policy from the entry's settings and installs
// it on the service registry with intercept.Install. The returned Handle
// owns the release function; Deactivate calls it. Reconfiguration is a full
// Deactivate followed by Activate with the new settings.
//
// If light.turn_on is not registered at activation time the integration
// logs the problem and stays inert: activation still succeeds so the entry
// remains loaded and can be reloaded once lights are available.
//
// Usage:
//
//	integ := smoothlights.New(registry,
//	    smoothlights.WithLogger(log.Component("smoothlights")),
//	    smoothlights.WithRecorder(smoothlights.NewDecisionRecorder(influx)),
//	)
//	h, err := integ.Activate(ctx, transition.Config{TransitionTime: 4})
//	...
//	_ = integ.Deactivate(ctx, h)
package smoothlights
