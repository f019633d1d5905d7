package mission

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"example.com/robot-missions/internal/action"
	"example.com/robot-missions/internal/behavior"
)

// FeedbackSink receives live feedback from executing steps, e.g. to relay
// it to the monitor. May be nil.
type FeedbackSink func(node, server string, fb json.RawMessage)

// StepHandler adapts one mission step into an action handler. Goal
// construction substitutes "{key}" string values from the blackboard, so a
// step can consume values produced earlier in the mission.
type StepHandler struct {
	step Step
	log  *zap.SugaredLogger
	sink FeedbackSink
}

func NewStepHandler(step Step, log *zap.SugaredLogger, sink FeedbackSink) *StepHandler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &StepHandler{step: step, log: log, sink: sink}
}

// SetGoal builds the goal payload from the step's YAML goal. A step with no
// payload refuses the activation.
func (h *StepHandler) SetGoal(bb *behavior.Blackboard) (json.RawMessage, error) {
	if len(h.step.Goal) == 0 {
		return nil, fmt.Errorf("step %q has no goal payload", h.step.Name)
	}
	resolved := resolveValue(h.step.Goal, bb)
	payload, err := json.Marshal(resolved)
	if err != nil {
		return nil, fmt.Errorf("step %q: encode goal: %w", h.step.Name, err)
	}
	return payload, nil
}

// OnResult maps a completed goal to the step outcome. Aborted and canceled
// results never reach here; they route through the failure hook.
func (h *StepHandler) OnResult(res action.Result) behavior.Status {
	if res.Code != action.ResultSucceeded {
		h.log.Warnf("step %q: unexpected result code %s", h.step.Name, res.Code)
		return behavior.StatusFailure
	}
	if len(h.step.Expect) == 0 {
		return behavior.StatusSuccess
	}

	var got map[string]any
	if err := json.Unmarshal(res.Payload, &got); err != nil {
		h.log.Warnf("step %q: decode result: %v", h.step.Name, err)
		return behavior.StatusFailure
	}
	for key, want := range h.step.Expect {
		// YAML and JSON disagree on number types; compare printed forms.
		if fmt.Sprint(got[key]) != fmt.Sprint(want) {
			h.log.Warnf("step %q: result %s = %v, expected %v", h.step.Name, key, got[key], want)
			return behavior.StatusFailure
		}
	}
	return behavior.StatusSuccess
}

// OnFeedback relays progress to the sink and keeps the goal running. Runs
// on the transport's goroutine.
func (h *StepHandler) OnFeedback(fb json.RawMessage) behavior.Status {
	if h.sink != nil {
		h.sink(h.step.Name, h.step.Server, fb)
	}
	return behavior.StatusRunning
}

// resolveValue walks the goal structure replacing "{key}" strings with the
// corresponding blackboard values.
func resolveValue(v any, bb *behavior.Blackboard) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = resolveValue(val, bb)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = resolveValue(val, bb)
		}
		return out
	case string:
		if behavior.IsPointer(t) && bb != nil {
			if resolved, ok := bb.Get(behavior.PointerKey(t)); ok {
				return resolved
			}
		}
		return t
	default:
		return v
	}
}
