package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Well-known payload keys.
const (
	// AttrEntityID holds the target entity: a single ID or a list of IDs.
	AttrEntityID = "entity_id"

	// AttrTransition holds the fade duration in seconds.
	AttrTransition = "transition"
)

// Call origins recorded in Context.Origin.
const (
	OriginAPI      = "api"
	OriginMQTT     = "mqtt"
	OriginInternal = "internal"
)

// Context identifies the execution a service call belongs to.
// It is opaque to handlers and interceptors and is carried through unchanged
// when a call is rewritten.
type Context struct {
	ID       string `json:"id"`
	ParentID string `json:"parent_id,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	Origin   string `json:"origin,omitempty"`
}

// NewContext returns a Context with a fresh ID.
func NewContext(origin string) Context {
	return Context{
		ID:     uuid.NewString(),
		Origin: origin,
	}
}

// Call is an immutable service call: the (domain, service) key, the payload and
// the execution context. Use NewCall to build one; the payload is cloned on
// the way in and on the way out so no holder can alter what another sees.
type Call struct {
	domain  string
	service string
	data    Data
	ctx     Context
}

// NewCall creates a Call. The data map is cloned.
func NewCall(domain, service string, data Data, ctx Context) *Call {
	return &Call{
		domain:  domain,
		service: service,
		data:    data.Clone(),
		ctx:     ctx,
	}
}

// Domain returns the call's domain (e.g. "light").
func (c *Call) Domain() string { return c.domain }

// Service returns the call's service name (e.g. "turn_on").
func (c *Call) Service() string { return c.service }

// Key returns the registry key the call was addressed to.
func (c *Call) Key() Key { return Key{Domain: c.domain, Service: c.service} }

// Context returns the call's execution context.
func (c *Call) Context() Context { return c.ctx }

// Data returns a copy of the call's payload. Changes to the copy do not
// affect the call.
func (c *Call) Data() Data { return c.data.Clone() }

// String returns "domain.service".
func (c *Call) String() string { return c.Key().String() }

// MarshalJSON encodes the call for event broadcasts.
func (c *Call) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Domain  string  `json:"domain"`
		Service string  `json:"service"`
		Data    Data    `json:"data"`
		Context Context `json:"context"`
	}{c.domain, c.service, c.data, c.ctx})
}

// Data is a service call payload.
//
// Values are whatever the caller sent (JSON-decoded payloads contain
// float64, string, bool, []any and map[string]any). The accessor methods give
// typed access to the well-known keys; all other keys pass through unchanged.
type Data map[string]any

// Clone returns a deep copy of the payload. Nested maps and slices are copied
// so the clone can be modified freely.
func (d Data) Clone() Data {
	if d == nil {
		return Data{}
	}
	cpy := make(Data, len(d))
	for k, v := range d {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// HasTransition reports whether the payload carries a transition key,
// whatever its value.
func (d Data) HasTransition() bool {
	_, ok := d[AttrTransition]
	return ok
}

// Transition returns the transition in seconds if present and numeric.
func (d Data) Transition() (float64, bool) {
	v, ok := d[AttrTransition]
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

// SetTransition sets the transition in seconds.
func (d Data) SetTransition(seconds float64) {
	d[AttrTransition] = seconds
}

// EntityIDs returns the call's target entities, trimmed and lower-cased.
//
// The entity_id field may be absent or null (nil, nil), a single ID (a list
// of one), or a list of IDs. Any other shape returns ErrInvalidEntityRef.
func (d Data) EntityIDs() ([]string, error) {
	raw, ok := d[AttrEntityID]
	if !ok || raw == nil {
		return nil, nil
	}

	switch v := raw.(type) {
	case string:
		return []string{normalizeEntityID(v)}, nil
	case []string:
		ids := make([]string, len(v))
		for i, s := range v {
			ids[i] = normalizeEntityID(s)
		}
		return ids, nil
	case []any:
		ids := make([]string, 0, len(v))
		for i, elem := range v {
			s, ok := elem.(string)
			if !ok {
				return nil, fmt.Errorf("%w: element %d is %T", ErrInvalidEntityRef, i, elem)
			}
			ids = append(ids, normalizeEntityID(s))
		}
		return ids, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidEntityRef, raw)
	}
}

// normalizeEntityID folds an entity ID to its canonical form. Entity IDs
// are case-insensitive.
func normalizeEntityID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Without returns a copy of the payload with the given keys removed.
func (d Data) Without(keys ...string) Data {
	cpy := d.Clone()
	for _, k := range keys {
		delete(cpy, k)
	}
	return cpy
}

// toFloat converts the numeric types a payload may carry.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		cpy := make(map[string]any, len(val))
		for k, elem := range val {
			cpy[k] = deepCopyValue(elem)
		}
		return cpy
	case Data:
		return val.Clone()
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	case []string:
		cpy := make([]string, len(val))
		copy(cpy, val)
		return cpy
	default:
		// Primitives are safe to copy by value
		return v
	}
}
