package actionmqtt

import (
	"context"
	"encoding/json"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"example.com/robot-missions/internal/action"
	mqttc "example.com/robot-missions/internal/mqtt"
)

// Executor runs goals for one action server.
type Executor interface {
	// Accept vets a goal before execution. Rejected goals never start.
	Accept(goal json.RawMessage) bool

	// Execute runs the goal to completion, streaming intermediate
	// progress through feedback. Returning an error reports the goal as
	// aborted; returning after ctx is canceled reports it as canceled.
	Execute(ctx context.Context, goal json.RawMessage, feedback func(json.RawMessage)) (json.RawMessage, error)
}

// Server hosts one Executor behind the MQTT action protocol. Accepted goals
// run on their own goroutine with a per-goal cancelable context; presence
// is a retained status payload so clients can probe reachability.
type Server struct {
	mq   *mqttc.Client
	name string
	exec Executor
	log  *zap.SugaredLogger

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

func NewServer(mq *mqttc.Client, name string, exec Executor, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Server{
		mq:      mq,
		name:    name,
		exec:    exec,
		log:     log,
		running: make(map[string]context.CancelFunc),
	}
}

// Start subscribes the goal and cancel topics and announces presence.
func (s *Server) Start() {
	s.mq.Subscribe(GoalTopic(s.name), s.handleGoal)
	s.mq.Subscribe(CancelTopic(s.name), s.handleCancel)
	s.mq.PublishRetained(StatusTopic(s.name), []byte(presenceOnline))
	s.log.Infof("action server %q online", s.name)
}

// Close withdraws presence and cancels everything still running.
func (s *Server) Close() {
	s.mq.PublishRetained(StatusTopic(s.name), []byte(presenceOffline))
	s.mu.Lock()
	for _, cancel := range s.running {
		cancel()
	}
	s.mu.Unlock()
	s.mq.Unsubscribe(GoalTopic(s.name), CancelTopic(s.name))
}

func (s *Server) handleGoal(_ mqtt.Client, msg mqtt.Message) {
	var env goalEnvelope
	if err := json.Unmarshal(msg.Payload(), &env); err != nil {
		s.log.Errorf("action server %q: invalid goal envelope: %v", s.name, err)
		return
	}
	if env.GoalID == "" {
		s.log.Errorf("action server %q: goal without id", s.name)
		return
	}

	accepted := s.exec.Accept(env.Goal)
	s.publish(goalEventTopic(s.name, env.GoalID, eventResponse),
		responseEnvelope{GoalID: env.GoalID, Accepted: accepted})
	if !accepted {
		s.log.Warnf("action server %q: rejected goal %s", s.name, env.GoalID)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.running[env.GoalID] = cancel
	s.mu.Unlock()

	go s.run(ctx, env)
}

func (s *Server) run(ctx context.Context, env goalEnvelope) {
	defer func() {
		s.mu.Lock()
		if cancel := s.running[env.GoalID]; cancel != nil {
			cancel()
		}
		delete(s.running, env.GoalID)
		s.mu.Unlock()
	}()

	feedback := func(fb json.RawMessage) {
		s.publish(goalEventTopic(s.name, env.GoalID, eventFeedback),
			feedbackEnvelope{GoalID: env.GoalID, Feedback: fb})
	}

	payload, err := s.exec.Execute(ctx, env.Goal, feedback)

	code := action.ResultSucceeded
	switch {
	case ctx.Err() != nil:
		code = action.ResultCanceled
	case err != nil:
		code = action.ResultAborted
		s.log.Warnf("action server %q: goal %s aborted: %v", s.name, env.GoalID, err)
	}
	s.publish(goalEventTopic(s.name, env.GoalID, eventResult),
		resultEnvelope{GoalID: env.GoalID, Code: code.String(), Result: payload})
}

func (s *Server) handleCancel(_ mqtt.Client, msg mqtt.Message) {
	var env cancelEnvelope
	if err := json.Unmarshal(msg.Payload(), &env); err != nil {
		s.log.Errorf("action server %q: invalid cancel envelope: %v", s.name, err)
		return
	}
	s.mu.Lock()
	cancel := s.running[env.GoalID]
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	// Acknowledge even for unknown goals; the goal may have finished
	// between the client's decision and this message.
	s.publish(goalEventTopic(s.name, env.GoalID, eventCancelAck),
		cancelEnvelope{GoalID: env.GoalID})
}

func (s *Server) publish(topic string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.log.Errorf("action server %q: encode %s: %v", s.name, topic, err)
		return
	}
	s.mq.Publish(topic, payload)
}
