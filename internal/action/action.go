// Package action implements behavior tree leaves that drive long-running
// goals on remote action servers. The adapter keeps the tick loop
// non-blocking for the entire duration of the call: goals are submitted
// asynchronously, transport callbacks write into a small set of fields, and
// each tick only reads them and advances an explicit phase.
package action

import (
	"encoding/json"

	"example.com/robot-missions/internal/behavior"
)

// ErrorCode classifies the ways a remote action can go wrong. Every code
// except GoalRejectedByServer is routed through the handler's failure hook.
type ErrorCode int

const (
	ServerUnreachable ErrorCode = iota
	SendGoalTimeout
	GoalRejectedByServer
	ActionAborted
	ActionCancelled
	InvalidGoal
)

func (c ErrorCode) String() string {
	switch c {
	case ServerUnreachable:
		return "SERVER_UNREACHABLE"
	case SendGoalTimeout:
		return "SEND_GOAL_TIMEOUT"
	case GoalRejectedByServer:
		return "GOAL_REJECTED_BY_SERVER"
	case ActionAborted:
		return "ACTION_ABORTED"
	case ActionCancelled:
		return "ACTION_CANCELLED"
	case InvalidGoal:
		return "INVALID_GOAL"
	default:
		return "UNKNOWN"
	}
}

// ResultCode is the completion code attached to a terminal result.
type ResultCode int

const (
	ResultUnknown ResultCode = iota
	ResultSucceeded
	ResultCanceled
	ResultAborted
)

func (c ResultCode) String() string {
	switch c {
	case ResultSucceeded:
		return "succeeded"
	case ResultCanceled:
		return "canceled"
	case ResultAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Result is the final outcome of a goal. The payload shape belongs to the
// concrete action; the adapter never looks inside it.
type Result struct {
	Code    ResultCode
	Payload json.RawMessage
}

// GoalHandle identifies an accepted goal so it can be canceled. Concrete
// transports define their own handle types.
type GoalHandle interface {
	GoalID() string
}

// Handler supplies the goal for one activation and interprets its terminal
// result. OnResult must return StatusSuccess or StatusFailure; anything
// else is a programming error and panics the adapter.
type Handler interface {
	// SetGoal builds the goal payload. Returning an error refuses the
	// activation, which terminates with the failure hook's INVALID_GOAL
	// translation.
	SetGoal(bb *behavior.Blackboard) (json.RawMessage, error)

	// OnResult is invoked once a terminal result with a non-failure code
	// has been received.
	OnResult(res Result) behavior.Status
}

// FeedbackHandler is optionally implemented by handlers that inspect
// streamed feedback. Returning anything other than StatusRunning cancels
// the in-flight goal and ends the activation with the returned status.
// Runs on the transport's goroutine, not the tick loop.
type FeedbackHandler interface {
	OnFeedback(fb json.RawMessage) behavior.Status
}

// FailureHandler optionally overrides the status reported for a failure
// kind. Without it every kind maps to StatusFailure.
type FailureHandler interface {
	OnFailure(code ErrorCode) behavior.Status
}
