// Package flow implements the two-step configuration wizard for Smooth
// Lights.
//
// A flow is a short-lived conversation keyed by a UUID. Each step returns a
// Result of one of three types:
//
//	form          show the fields (with defaults and any field errors)
//	create_entry  the flow finished and the entry was created or updated
//	abort         the flow cannot continue (Reason says why)
//
// Steps:
//
//	user  initial setup. Aborts with single_instance_allowed if an entry
//	      already exists; otherwise creates the "Smooth Lights" entry.
//	init  options for an existing entry. The form is pre-filled with the
//	      entry's current values; submitting replaces the entry data
//	      wholesale and reloads the entry.
//
// Input coercion: transition_time accepts a number or numeric string;
// exclude_entities accepts a list or a comma-separated string. Entity IDs
// are trimmed, lower-cased, validated and de-duplicated. Field errors are
// reported as invalid_number, out_of_range or invalid_entity_id and leave
// the flow open on the same step.
//
// A flow left untouched for 30 minutes is discarded. RunCleanup sweeps
// them periodically, and a lookup of an expired flow reports ErrFlowNotFound.
package flow
