package actionmqtt

import (
	"encoding/json"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"example.com/robot-missions/internal/action"
	mqttc "example.com/robot-missions/internal/mqtt"
)

type goalHandle struct {
	id string
}

func (h *goalHandle) GoalID() string { return h.id }

type pendingGoal struct {
	cb     action.GoalCallbacks
	future *action.GoalFuture
	ack    *action.AckFuture
}

// Client implements action.Client against one action server over MQTT.
type Client struct {
	mq       *mqttc.Client
	server   string
	log      *zap.SugaredLogger
	ownsConn bool

	mu    sync.Mutex
	goals map[string]*pendingGoal
}

// NewClient wraps an existing connection. The caller keeps ownership of mq.
func NewClient(mq *mqttc.Client, server string, log *zap.SugaredLogger) *Client {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Client{
		mq:     mq,
		server: server,
		log:    log,
		goals:  make(map[string]*pendingGoal),
	}
}

// Factory returns an action.ClientFactory that dials the broker once per
// adapter-owned client. Connections opened here are closed with the client.
func Factory(broker string, log *zap.SugaredLogger) action.ClientFactory {
	return func(server string) (action.Client, error) {
		clientID := "action-" + server + "-" + uuid.NewString()[:8]
		mq := mqttc.NewClient(clientID, broker, log)
		c := NewClient(mq, server, log)
		c.ownsConn = true
		return c, nil
	}
}

// WaitForServer watches the retained presence topic for an "online"
// payload, bounded by timeout.
func (c *Client) WaitForServer(timeout time.Duration) bool {
	online := make(chan struct{}, 1)
	topic := StatusTopic(c.server)
	c.mq.Subscribe(topic, func(_ mqtt.Client, msg mqtt.Message) {
		if string(msg.Payload()) == presenceOnline {
			select {
			case online <- struct{}{}:
			default:
			}
		}
	})
	defer c.mq.Unsubscribe(topic)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-online:
		return true
	case <-timer.C:
		return false
	}
}

// SendGoal assigns a goal id, subscribes the per-goal topics and publishes
// the goal envelope. The broker round-trips run on their own goroutine so
// the caller's tick returns immediately.
func (c *Client) SendGoal(goal json.RawMessage, cb action.GoalCallbacks) *action.GoalFuture {
	id := uuid.NewString()
	future := action.NewGoalFuture()

	c.mu.Lock()
	c.goals[id] = &pendingGoal{cb: cb, future: future}
	c.mu.Unlock()

	go func() {
		c.mq.Subscribe(goalEventFilter(c.server, id), c.handleGoalEvent)
		payload, err := json.Marshal(goalEnvelope{GoalID: id, Goal: goal})
		if err != nil {
			// Leave the future pending; the adapter's acceptance
			// timeout covers it.
			c.log.Errorf("actionmqtt: encode goal %s for %q: %v", id, c.server, err)
			c.forget(id)
			return
		}
		c.mq.Publish(GoalTopic(c.server), payload)
	}()
	return future
}

// CancelGoal publishes a cancel envelope for the goal. The ack future
// resolves when the server confirms, or immediately when the goal is no
// longer tracked.
func (c *Client) CancelGoal(h action.GoalHandle) *action.AckFuture {
	ack := action.NewAckFuture()
	id := h.GoalID()

	c.mu.Lock()
	p := c.goals[id]
	if p != nil {
		p.ack = ack
	}
	c.mu.Unlock()

	if p == nil {
		ack.Resolve()
		return ack
	}

	go func() {
		payload, _ := json.Marshal(cancelEnvelope{GoalID: id})
		c.mq.Publish(CancelTopic(c.server), payload)
	}()
	return ack
}

// Pump is a no-op: paho drives its own network loop.
func (c *Client) Pump() {}

func (c *Client) Close() error {
	c.mu.Lock()
	ids := make([]string, 0, len(c.goals))
	for id := range c.goals {
		ids = append(ids, id)
	}
	c.goals = make(map[string]*pendingGoal)
	c.mu.Unlock()

	for _, id := range ids {
		c.mq.Unsubscribe(goalEventFilter(c.server, id))
	}
	if c.ownsConn {
		c.mq.Disconnect()
	}
	return nil
}

func (c *Client) handleGoalEvent(_ mqtt.Client, msg mqtt.Message) {
	goalID, kind, ok := parseGoalEvent(msg.Topic())
	if !ok {
		return
	}
	c.mu.Lock()
	p := c.goals[goalID]
	c.mu.Unlock()
	if p == nil {
		return
	}

	switch kind {
	case eventResponse:
		var env responseEnvelope
		if err := json.Unmarshal(msg.Payload(), &env); err != nil {
			c.log.Errorf("actionmqtt: bad response for goal %s: %v", goalID, err)
			return
		}
		if p.cb.OnResponse != nil {
			p.cb.OnResponse(env.Accepted)
		}
		if env.Accepted {
			p.future.Resolve(&goalHandle{id: goalID})
		} else {
			p.future.Resolve(nil)
			c.forget(goalID)
		}

	case eventFeedback:
		var env feedbackEnvelope
		if err := json.Unmarshal(msg.Payload(), &env); err != nil {
			c.log.Errorf("actionmqtt: bad feedback for goal %s: %v", goalID, err)
			return
		}
		if p.cb.OnFeedback != nil {
			p.cb.OnFeedback(env.Feedback)
		}

	case eventResult:
		var env resultEnvelope
		if err := json.Unmarshal(msg.Payload(), &env); err != nil {
			c.log.Errorf("actionmqtt: bad result for goal %s: %v", goalID, err)
			return
		}
		if p.cb.OnResult != nil {
			p.cb.OnResult(action.Result{Code: resultCode(env.Code), Payload: env.Result})
		}
		c.forget(goalID)

	case eventCancelAck:
		c.mu.Lock()
		ack := p.ack
		c.mu.Unlock()
		if ack != nil {
			ack.Resolve()
		}
	}
}

func (c *Client) forget(goalID string) {
	c.mu.Lock()
	delete(c.goals, goalID)
	c.mu.Unlock()
	c.mq.Unsubscribe(goalEventFilter(c.server, goalID))
}
