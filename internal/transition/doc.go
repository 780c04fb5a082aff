// Package transition decides whether a light.turn_on call should get a
// default fade-in duration.
//
// A Policy is built once per activation from an explicit Config and is then
// read-only. Its Mutate method matches intercept.MutateFunc:
//
//	policy := transition.NewPolicy(cfg)
//	release, err := intercept.Install(reg, "light", "turn_on", policy.Mutate)
//
// Rules, applied in order:
//
//  1. A payload that already has a transition is left alone.
//  2. A payload with no entity_id has no target and is left alone.
//  3. If any target entity is excluded, the whole call is left alone. A call
//     for ["light.a", "light.b"] with light.b excluded gets no transition for
//     light.a either.
//  4. Otherwise transition is set to Config.TransitionTime.
package transition
