package smoothlights

import "github.com/nerrad567/gray-logic-smoothlights/internal/transition"

// DecisionWriter stores policy decisions. influxdb.Client satisfies it.
type DecisionWriter interface {
	WriteTransitionDecision(decision string, entities []string, transition float64)
}

// decisionRecorder adapts a DecisionWriter to transition.Recorder.
type decisionRecorder struct {
	w DecisionWriter
}

// NewDecisionRecorder returns a transition.Recorder that forwards to w.
func NewDecisionRecorder(w DecisionWriter) transition.Recorder {
	return decisionRecorder{w: w}
}

func (r decisionRecorder) RecordDecision(decision transition.Decision, entities []string, seconds float64) {
	r.w.WriteTransitionDecision(string(decision), entities, seconds)
}
