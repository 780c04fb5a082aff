// Package intercept wraps a live service handler with a proxy that rewrites
// each call's payload before it reaches the original handler.
//
// Install looks up the handler registered for a (domain, service) key,
// replaces it with a proxy, and returns a ReleaseFunc that puts the original
// back:
//
//	release, err := intercept.Install(reg, "light", "turn_on", policy.Mutate,
//	    intercept.WithLogger(log),
//	)
//	if err != nil {
//	    // the key is missing; release is a no-op and the feature is inert
//	}
//	defer release()
//
// For every call the proxy clones the payload, hands the clone to the mutate
// function, and forwards a new call built from the clone and the original
// context. A mutate function that returns an error or panics is logged and
// ignored: the call still reaches the original handler with whatever the
// clone held at that point. Interception never makes the underlying service
// fail.
//
// # Known Limitation
//
// Release restores the handler captured at install time. If a third party
// replaced the slot after Install, release overwrites that replacement and
// logs a warning. Installs on the same key should be released in reverse
// order.
package intercept
