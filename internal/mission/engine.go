// Package mission runs declarative missions: each step becomes a remote
// action node, the steps form a sequence, and the engine ticks the tree
// until the mission resolves.
package mission

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"example.com/robot-missions/internal/action"
	"example.com/robot-missions/internal/actionmqtt"
	"example.com/robot-missions/internal/behavior"
	"example.com/robot-missions/internal/journal"
)

// BlackboardKeyRobotID exposes the robot's identity to goal construction.
const BlackboardKeyRobotID = "robot_id"

type Engine struct {
	Config     Config
	Spec       Spec
	Blackboard *behavior.Blackboard
	Tree       behavior.Node
	Wake       *behavior.WakeSignal

	// OnTransition, when set, receives every phase transition in addition
	// to the journal, e.g. to feed the monitor's event stream.
	OnTransition action.ObserverFunc

	db       *journal.DB
	log      *zap.SugaredLogger
	sink     FeedbackSink
	adapters []*action.Adapter
}

// NewEngine builds the tree for the mission spec. Clients for steps with
// literal server names are created (and probed) here, so construction can
// take up to one server timeout per unreachable server.
func NewEngine(cfg Config, spec Spec, db *journal.DB, sink FeedbackSink, log *zap.SugaredLogger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	e := &Engine{
		Config:     cfg,
		Spec:       spec,
		Blackboard: behavior.NewBlackboard(),
		Wake:       behavior.NewWakeSignal(),
		db:         db,
		log:        log,
		sink:       sink,
	}
	e.Blackboard.Set(BlackboardKeyRobotID, cfg.RobotID)

	factory := actionmqtt.Factory(cfg.MQTTBroker, log)
	children := make([]behavior.Node, 0, len(spec.Steps))
	for _, step := range spec.Steps {
		handler := NewStepHandler(step, log, sink)
		ad, err := action.New(step.Name, handler,
			action.Params{ServerTimeout: cfg.ServerTimeout()},
			action.WithClientFactory(factory),
			action.WithInputs(behavior.Inputs{action.PortServer: step.Server}),
			action.WithWakeSignal(e.Wake),
			action.WithLogger(log),
			action.WithObserver(e.record),
		)
		if err != nil {
			e.closeAdapters()
			return nil, fmt.Errorf("mission %q: %w", spec.Name, err)
		}
		e.adapters = append(e.adapters, ad)
		children = append(children, ad)
	}
	e.Tree = &behavior.Sequence{Children: children}
	return e, nil
}

// Run ticks the tree until the mission resolves or ctx is canceled. A
// cancellation halts the tree so in-flight goals are canceled before
// returning.
func (e *Engine) Run(ctx context.Context) (behavior.Status, error) {
	ticker := time.NewTicker(e.Config.TickInterval())
	defer ticker.Stop()

	e.log.Infof("mission %q started (%d steps)", e.Spec.Name, len(e.Spec.Steps))

	for {
		select {
		case <-ctx.Done():
			e.Tree.Halt(context.Background())
			return behavior.StatusIdle, ctx.Err()
		case <-ticker.C:
		case <-e.Wake.C():
		}

		st := e.Tree.Tick(ctx, e.Blackboard)
		if st.Terminal() {
			e.log.Infof("mission %q finished: %s", e.Spec.Name, st)
			return st, nil
		}
	}
}

// Close releases adapter-owned clients and the journal.
func (e *Engine) Close() error {
	e.closeAdapters()
	if e.db != nil {
		return e.db.Close()
	}
	return nil
}

func (e *Engine) closeAdapters() {
	for _, ad := range e.adapters {
		if err := ad.Close(); err != nil {
			e.log.Errorf("%v", err)
		}
	}
}

func (e *Engine) record(tr action.Transition) {
	e.log.Debugf("node %s: %s -> %s (%s)", tr.Node, tr.From, tr.To, tr.Status)
	if e.OnTransition != nil {
		e.OnTransition(tr)
	}
	if e.db == nil {
		return
	}
	status := ""
	if tr.To == action.PhaseDone {
		status = tr.Status.String()
	}
	if err := e.db.Record(context.Background(), tr.Node, tr.Server, tr.To.String(), status); err != nil {
		e.log.Errorf("journal: record %s for %s: %v", tr.To, tr.Node, err)
	}
}
