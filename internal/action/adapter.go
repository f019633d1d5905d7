package action

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"example.com/robot-missions/internal/behavior"
)

// Phase is the adapter's position in the goal lifecycle. It only ever moves
// Idle -> AwaitingAcceptance -> Executing -> Done and back to Idle; Done is
// transient and lasts until the next tick or halt.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingAcceptance
	PhaseExecuting
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseAwaitingAcceptance:
		return "AWAITING_ACCEPTANCE"
	case PhaseExecuting:
		return "EXECUTING"
	case PhaseDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// Transition describes one phase change. Status carries the terminal
// activation status when To is PhaseDone and StatusRunning otherwise.
type Transition struct {
	Node   string
	Server string
	From   Phase
	To     Phase
	Status behavior.Status
}

// ObserverFunc receives phase transitions, e.g. for journaling. Called from
// the tick loop.
type ObserverFunc func(tr Transition)

const (
	// PortServer names the input port carrying the action server name.
	PortServer = "server"

	// DefaultServerTimeout bounds server reachability probes, goal
	// acceptance and cancel acknowledgement when Params leaves the
	// timeout unset.
	DefaultServerTimeout = time.Second

	// placeholderServer marks a declared but never remapped server port.
	placeholderServer = "__default__placeholder__"
)

// Params fixes the per-node configuration at construction time.
type Params struct {
	// DefaultServer is used when the server input port is empty.
	DefaultServer string
	// ServerTimeout bounds reachability probes, goal acceptance and
	// cancel acknowledgement.
	ServerTimeout time.Duration
}

// Adapter maps one long-running remote action onto a cooperatively polled
// behavior node. At most one goal is in flight per adapter; ticks are
// serialized by the engine, and transport callbacks only write the atomic
// feedback/result cells guarded by the activation generation.
type Adapter struct {
	name    string
	handler Handler
	params  Params
	inputs  behavior.Inputs
	factory ClientFactory
	clock   Clock
	log     *zap.SugaredLogger
	wake    *behavior.WakeSignal
	observe ObserverFunc

	client          Client
	clientShared    bool
	prevServer      string
	serverMayChange bool

	phase       Phase
	goalSentAt  time.Time
	pendingGoal *GoalFuture
	goalHandle  GoalHandle

	// gen guards against callbacks from an abandoned activation writing
	// into the next one.
	gen      atomic.Uint64
	feedback atomic.Int32
	result   atomic.Pointer[Result]
}

// Option tweaks adapter construction.
type Option func(*Adapter)

// WithClient injects an externally owned client. The adapter shares it and
// never closes it, and the server input port is ignored.
func WithClient(c Client) Option {
	return func(a *Adapter) { a.client = c }
}

// WithClientFactory supplies the transport used for adapter-owned clients.
func WithClientFactory(f ClientFactory) Option {
	return func(a *Adapter) { a.factory = f }
}

// WithInputs configures the node's input ports.
func WithInputs(in behavior.Inputs) Option {
	return func(a *Adapter) { a.inputs = in }
}

func WithClock(c Clock) Option {
	return func(a *Adapter) { a.clock = c }
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(a *Adapter) { a.log = log }
}

// WithWakeSignal emits on the signal whenever a transport callback updates
// adapter state out-of-band.
func WithWakeSignal(w *behavior.WakeSignal) Option {
	return func(a *Adapter) { a.wake = w }
}

func WithObserver(fn ObserverFunc) Option {
	return func(a *Adapter) { a.observe = fn }
}

// New builds an adapter. With a literal (or defaulted) server name the
// client is created eagerly and probed for reachability; an unreachable
// server is logged, not fatal, since it is re-checked by the first goal.
// A "{key}" server input defers client creation to the first tick and
// re-resolves the name on every activation.
func New(name string, handler Handler, params Params, opts ...Option) (*Adapter, error) {
	if handler == nil {
		return nil, fmt.Errorf("action %s: handler is required", name)
	}
	if params.ServerTimeout <= 0 {
		params.ServerTimeout = DefaultServerTimeout
	}
	a := &Adapter{
		name:    name,
		handler: handler,
		params:  params,
		clock:   SystemClock,
		log:     zap.NewNop().Sugar(),
		phase:   PhaseIdle,
	}
	a.feedback.Store(int32(behavior.StatusRunning))
	for _, opt := range opts {
		opt(a)
	}

	if a.client != nil {
		a.clientShared = true
		return a, nil
	}
	if a.factory == nil {
		return nil, fmt.Errorf("action %s: a client factory is required when no external client is given", name)
	}

	raw, ok := a.inputs[PortServer]
	switch {
	case !ok, raw == "", raw == placeholderServer:
		if a.params.DefaultServer == "" {
			return nil, fmt.Errorf("action %s: both the %q input and the default server name are empty", name, PortServer)
		}
		if err := a.createClient(a.params.DefaultServer); err != nil {
			return nil, err
		}
	case !behavior.IsPointer(raw):
		if err := a.createClient(raw); err != nil {
			return nil, err
		}
	default:
		// Live blackboard reference: resolve on every activation.
		a.serverMayChange = true
	}
	return a, nil
}

func (a *Adapter) Name() string { return a.name }

// Phase exposes the lifecycle position for journaling and tests.
func (a *Adapter) Phase() Phase { return a.phase }

// Server is the name the current client was built against.
func (a *Adapter) Server() string { return a.prevServer }

func (a *Adapter) createClient(server string) error {
	if server == "" {
		return fmt.Errorf("action %s: server name is empty", a.name)
	}
	if a.client != nil && !a.clientShared {
		_ = a.client.Close()
	}
	c, err := a.factory(server)
	if err != nil {
		return fmt.Errorf("action %s: create client for %q: %w", a.name, server, err)
	}
	a.client = c
	a.prevServer = server
	if !c.WaitForServer(a.params.ServerTimeout) {
		// Not fatal: reachability is re-checked implicitly when the
		// first goal is submitted.
		a.log.Errorf("action %s: %s: server %q is not reachable", a.name, ServerUnreachable, server)
	}
	return nil
}

// Tick advances the goal lifecycle by one poll. It never blocks: pending
// futures are checked with zero-wait polls and timeouts come from the
// clock, not from waiting.
func (a *Adapter) Tick(ctx context.Context, bb *behavior.Blackboard) behavior.Status {
	if a.phase == PhaseDone {
		a.setPhase(PhaseIdle, behavior.StatusRunning)
	}

	if a.client == nil || (a.phase == PhaseIdle && a.serverMayChange) {
		server, _ := a.inputs.String(bb, PortServer)
		if server == "" {
			panic(fmt.Sprintf("action %s: the %q input resolved to an empty server name", a.name, PortServer))
		}
		if server != a.prevServer {
			if err := a.createClient(server); err != nil {
				a.log.Errorf("%v", err)
				return a.conclude(a.failWith(ServerUnreachable))
			}
		}
	}

	if a.phase == PhaseIdle {
		return a.submit(bb)
	}

	a.client.Pump()

	if a.phase == PhaseAwaitingAcceptance {
		handle, resolved := a.pendingGoal.Poll()
		if !resolved {
			if a.clock.Now().Sub(a.goalSentAt) > a.params.ServerTimeout {
				a.log.Warnf("action %s: %s: goal not accepted by %q within %v",
					a.name, SendGoalTimeout, a.prevServer, a.params.ServerTimeout)
				return a.conclude(a.failWith(SendGoalTimeout))
			}
			return behavior.StatusRunning
		}
		a.pendingGoal = nil
		if handle == nil {
			// Rejection means a malformed or unacceptable goal: a
			// programming error in the handler, not a runtime
			// condition to translate into FAILURE.
			panic(fmt.Sprintf("action %s: %s: goal rejected by server %q", a.name, GoalRejectedByServer, a.prevServer))
		}
		a.goalHandle = handle
		a.setPhase(PhaseExecuting, behavior.StatusRunning)
		// Fall through: a result may already be waiting.
	}

	if st := behavior.Status(a.feedback.Load()); st != behavior.StatusRunning {
		a.Cancel()
		return a.conclude(st)
	}
	if res := a.result.Load(); res != nil {
		switch res.Code {
		case ResultAborted:
			return a.conclude(a.failWith(ActionAborted))
		case ResultCanceled:
			return a.conclude(a.failWith(ActionCancelled))
		default:
			return a.conclude(checkStatus(a.name, a.handler.OnResult(*res)))
		}
	}
	return behavior.StatusRunning
}

func (a *Adapter) submit(bb *behavior.Blackboard) behavior.Status {
	gen := a.gen.Add(1)
	a.feedback.Store(int32(behavior.StatusRunning))
	a.result.Store(nil)
	a.pendingGoal = nil
	a.goalHandle = nil

	goal, err := a.handler.SetGoal(bb)
	if err != nil {
		a.log.Warnf("action %s: %s: goal refused: %v", a.name, InvalidGoal, err)
		return a.conclude(a.failWith(InvalidGoal))
	}

	a.pendingGoal = a.client.SendGoal(goal, a.callbacks(gen))
	a.goalSentAt = a.clock.Now()
	a.setPhase(PhaseAwaitingAcceptance, behavior.StatusRunning)
	return behavior.StatusRunning
}

func (a *Adapter) callbacks(gen uint64) GoalCallbacks {
	return GoalCallbacks{
		OnResponse: func(accepted bool) {
			if accepted {
				a.log.Debugf("action %s: goal accepted by %q, waiting for result", a.name, a.prevServer)
			} else {
				a.log.Errorf("action %s: goal rejected by %q", a.name, a.prevServer)
			}
			a.wake.Emit()
		},
		OnFeedback: func(fb json.RawMessage) {
			if a.gen.Load() != gen {
				return
			}
			st := behavior.StatusRunning
			if fh, ok := a.handler.(FeedbackHandler); ok {
				st = fh.OnFeedback(fb)
			}
			if st == behavior.StatusIdle {
				panic(fmt.Sprintf("action %s: OnFeedback must not return IDLE", a.name))
			}
			a.feedback.Store(int32(st))
			a.wake.Emit()
		},
		OnResult: func(res Result) {
			if a.gen.Load() != gen {
				return
			}
			a.result.Store(&res)
			a.wake.Emit()
		},
	}
}

// Cancel asks the server to cancel the in-flight goal and waits, bounded by
// the server timeout, for the acknowledgement. A missing acknowledgement is
// logged and the goal abandoned regardless; the server may already have
// terminated it. Calling Cancel in any phase other than Executing is a
// no-op.
func (a *Adapter) Cancel() {
	if a.phase != PhaseExecuting || a.goalHandle == nil {
		return
	}
	ack := a.client.CancelGoal(a.goalHandle)
	if !ack.Wait(a.params.ServerTimeout) {
		a.log.Errorf("action %s: cancel on %q not acknowledged within %v",
			a.name, a.prevServer, a.params.ServerTimeout)
	}
}

// Halt cancels the in-flight goal, if any, and resets the node so it can be
// reactivated cleanly.
func (a *Adapter) Halt(ctx context.Context) {
	if a.phase == PhaseExecuting {
		a.Cancel()
	}
	if a.phase == PhaseIdle {
		return
	}
	a.gen.Add(1)
	a.pendingGoal = nil
	a.goalHandle = nil
	a.setPhase(PhaseIdle, behavior.StatusIdle)
}

// Close halts the node and releases an adapter-owned client. Clients
// injected at construction outlive the adapter and are left open.
func (a *Adapter) Close() error {
	a.Halt(context.Background())
	if a.client == nil || a.clientShared {
		return nil
	}
	err := a.client.Close()
	a.client = nil
	if err != nil {
		return fmt.Errorf("action %s: close client: %w", a.name, err)
	}
	return nil
}

func (a *Adapter) setPhase(to Phase, st behavior.Status) {
	from := a.phase
	a.phase = to
	if a.observe != nil && from != to {
		a.observe(Transition{
			Node:   a.name,
			Server: a.prevServer,
			From:   from,
			To:     to,
			Status: st,
		})
	}
}

func (a *Adapter) conclude(st behavior.Status) behavior.Status {
	a.pendingGoal = nil
	a.goalHandle = nil
	a.setPhase(PhaseDone, st)
	return st
}

func (a *Adapter) failWith(code ErrorCode) behavior.Status {
	st := behavior.StatusFailure
	if fh, ok := a.handler.(FailureHandler); ok {
		st = fh.OnFailure(code)
	}
	return checkStatus(a.name, st)
}

func checkStatus(name string, st behavior.Status) behavior.Status {
	if !st.Terminal() {
		panic(fmt.Sprintf("action %s: handler returned %s; terminal callbacks must return SUCCESS or FAILURE", name, st))
	}
	return st
}
