// Package service provides the service-call registry for Smooth Lights.
//
// Every controllable action in the hub is exposed as a service identified by a
// (domain, service) key, for example ("light", "turn_on"). Callers never invoke
// handlers directly; they go through Registry.Call, which looks up the handler
// currently installed in the key's slot and passes it an immutable Call.
//
// # Indirection Table
//
// The registry is an explicit table of key → current handler. Replacing the
// handler for a key is an ordinary data operation (Replace), which is what the
// intercept package builds on to wrap a live service without the original
// handler knowing:
//
//	reg := service.NewRegistry()
//	reg.Register("light", "turn_on", lightsHandler)
//
//	original, _ := reg.Lookup("light", "turn_on")
//	reg.Replace("light", "turn_on", wrapped)  // calls now reach wrapped
//	reg.Replace("light", "turn_on", original) // and back again
//
// # Payloads
//
// Call payloads are Data maps. A handful of well-known keys (entity_id,
// transition) have typed accessors; everything else passes through untouched.
//
// # MQTT Ingress
//
// Other hub components request service calls by publishing to
// graylogic/service/{domain}/{service}. Ingress subscribes to that pattern and
// forwards each message to Registry.Call.
//
// # Thread Safety
//
// Registry is safe for concurrent use. Handlers run on the caller's goroutine.
package service
