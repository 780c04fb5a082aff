// Package lights registers the light domain services (turn_on, turn_off,
// toggle) and turns each call into per-entity bridge commands.
//
// A call addressed to several entities fans out into one command message per
// entity, published to graylogic/command/light/{entity_id}. Every payload key
// other than entity_id travels in the command's parameters, and a transition
// in seconds is also given to bridges as fade_ms.
//
//	{
//	  "id": "4b0c...",
//	  "timestamp": "2026-03-01T12:00:00Z",
//	  "device_id": "light.kitchen",
//	  "command": "on",
//	  "parameters": {"brightness": 200, "transition": 4, "fade_ms": 4000},
//	  "source": "service:light.turn_on",
//	  "context_id": "9f7e..."
//	}
package lights
