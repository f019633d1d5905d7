package behavior

import "context"

type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusRunning
	StatusIdle
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusFailure:
		return "FAILURE"
	case StatusRunning:
		return "RUNNING"
	case StatusIdle:
		return "IDLE"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the status ends an activation.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailure
}

// Node is a behavior tree node. Tick is called repeatedly by the engine
// until a terminal status is returned; Halt abandons the current activation
// and must leave the node ready to be ticked again from scratch.
type Node interface {
	Tick(ctx context.Context, bb *Blackboard) Status
	Halt(ctx context.Context)
}
