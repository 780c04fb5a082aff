package flow

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/nerrad567/gray-logic-smoothlights/internal/smoothlights"
	"github.com/nerrad567/gray-logic-smoothlights/internal/transition"
)

// Field error codes reported in Result.Errors.
const (
	ErrorInvalidNumber   = "invalid_number"
	ErrorOutOfRange      = "out_of_range"
	ErrorInvalidEntityID = "invalid_entity_id"
)

// Field types.
const (
	FieldTypeFloat    = "float"
	FieldTypeEntities = "entity_ids"
)

// Field describes one form field.
type Field struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Default  any      `json:"default"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
}

// formSchema returns the fields for both steps, defaulted from current.
func formSchema(current transition.Config) []Field {
	minT, maxT := transition.MinTransitionTime, transition.MaxTransitionTime
	excluded := current.ExcludeEntities
	if excluded == nil {
		excluded = []string{}
	}
	return []Field{
		{
			Name:     smoothlights.ConfTransitionTime,
			Type:     FieldTypeFloat,
			Required: true,
			Default:  current.TransitionTime,
			Min:      &minT,
			Max:      &maxT,
		},
		{
			Name:    smoothlights.ConfExcludeEntities,
			Type:    FieldTypeEntities,
			Default: excluded,
		},
	}
}

// parseInput coerces user input into a Config. Missing fields take their
// value from defaults. The returned map holds one error code per bad field;
// the Config is only meaningful when the map is empty.
func parseInput(input map[string]any, defaults transition.Config) (transition.Config, map[string]string) {
	cfg := defaults.Clone()
	errs := make(map[string]string)

	if raw, ok := input[smoothlights.ConfTransitionTime]; ok && raw != nil {
		seconds, code := coerceTransition(raw)
		if code != "" {
			errs[smoothlights.ConfTransitionTime] = code
		} else {
			cfg.TransitionTime = seconds
		}
	}

	if raw, ok := input[smoothlights.ConfExcludeEntities]; ok {
		ids, code := coerceEntityIDs(raw)
		if code != "" {
			errs[smoothlights.ConfExcludeEntities] = code
		} else {
			cfg.ExcludeEntities = ids
		}
	}
	if cfg.ExcludeEntities == nil {
		cfg.ExcludeEntities = []string{}
	}

	return cfg, errs
}

func coerceTransition(raw any) (float64, string) {
	var v float64
	switch n := raw.(type) {
	case float64:
		v = n
	case float32:
		v = float64(n)
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, ErrorInvalidNumber
		}
		v = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, ErrorInvalidNumber
		}
		v = f
	default:
		return 0, ErrorInvalidNumber
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrorInvalidNumber
	}
	if v < transition.MinTransitionTime || v > transition.MaxTransitionTime {
		return 0, ErrorOutOfRange
	}
	return v, ""
}

func coerceEntityIDs(raw any) ([]string, string) {
	var items []string
	switch v := raw.(type) {
	case nil:
		return []string{}, ""
	case string:
		items = strings.Split(v, ",")
	case []string:
		items = v
	case []any:
		items = make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, ErrorInvalidEntityID
			}
			items = append(items, s)
		}
	default:
		return nil, ErrorInvalidEntityID
	}

	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		id := strings.ToLower(strings.TrimSpace(item))
		if id == "" {
			continue
		}
		if !transition.ValidEntityID(id) {
			return nil, ErrorInvalidEntityID
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, ""
}
