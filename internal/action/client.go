package action

import (
	"encoding/json"
	"sync"
	"time"
)

// GoalCallbacks is installed when a goal is submitted. The transport invokes
// them from its own goroutine as events arrive.
type GoalCallbacks struct {
	// OnResponse reports the server's accept/reject decision. The decision
	// itself travels through the GoalFuture; this is informational.
	OnResponse func(accepted bool)
	// OnFeedback delivers one intermediate feedback payload.
	OnFeedback func(fb json.RawMessage)
	// OnResult delivers the terminal result.
	OnResult func(res Result)
}

// Client is the capability the adapter needs from an action transport.
// SendGoal and CancelGoal must return promptly; any broker round-trips
// belong on the transport's own goroutines.
type Client interface {
	// WaitForServer blocks up to timeout for the server to become
	// reachable.
	WaitForServer(timeout time.Duration) bool

	// SendGoal submits a goal. The returned future resolves to the goal
	// handle once the server decides, or to nil on rejection.
	SendGoal(goal json.RawMessage, cb GoalCallbacks) *GoalFuture

	// CancelGoal asks the server to cancel an accepted goal. The future
	// resolves when the server acknowledges.
	CancelGoal(h GoalHandle) *AckFuture

	// Pump services whatever per-tick I/O the transport requires.
	// Transports that drive their own I/O may no-op.
	Pump()

	Close() error
}

// ClientFactory builds a client bound to the named server. The adapter uses
// it for eager construction and again whenever a volatile server name
// changes between activations.
type ClientFactory func(server string) (Client, error)

// GoalFuture is the pending accept/reject decision for a submitted goal.
type GoalFuture struct {
	once   sync.Once
	done   chan struct{}
	handle GoalHandle
}

func NewGoalFuture() *GoalFuture {
	return &GoalFuture{done: make(chan struct{})}
}

// Resolve completes the future. A nil handle means the server rejected the
// goal. Later calls are ignored.
func (f *GoalFuture) Resolve(h GoalHandle) {
	f.once.Do(func() {
		f.handle = h
		close(f.done)
	})
}

// Poll is a zero-wait check. The handle is only meaningful when the second
// return is true.
func (f *GoalFuture) Poll() (GoalHandle, bool) {
	select {
	case <-f.done:
		return f.handle, true
	default:
		return nil, false
	}
}

// Wait blocks up to d for resolution.
func (f *GoalFuture) Wait(d time.Duration) (GoalHandle, bool) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-f.done:
		return f.handle, true
	case <-timer.C:
		return nil, false
	}
}

// AckFuture is the pending acknowledgement of a cancel request.
type AckFuture struct {
	once sync.Once
	done chan struct{}
}

func NewAckFuture() *AckFuture {
	return &AckFuture{done: make(chan struct{})}
}

func (f *AckFuture) Resolve() {
	f.once.Do(func() {
		close(f.done)
	})
}

func (f *AckFuture) Poll() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks up to d for the acknowledgement and reports whether it
// arrived in time.
func (f *AckFuture) Wait(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-f.done:
		return true
	case <-timer.C:
		return false
	}
}
