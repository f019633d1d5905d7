// Package actionmqtt carries the action protocol over MQTT: goal submission
// and cancellation on per-server topics, accept/reject decisions, feedback
// and results on per-goal topics, and a retained presence message for
// reachability probes.
package actionmqtt

import (
	"encoding/json"
	"strings"

	"example.com/robot-missions/internal/action"
)

const topicRoot = "actions"

const (
	eventResponse  = "response"
	eventFeedback  = "feedback"
	eventResult    = "result"
	eventCancelAck = "cancel_ack"
)

const (
	presenceOnline  = "online"
	presenceOffline = "offline"
)

// GoalTopic is where clients submit goal envelopes for a server.
func GoalTopic(server string) string {
	return topicRoot + "/" + server + "/goal"
}

// CancelTopic is where clients submit cancel envelopes for a server.
func CancelTopic(server string) string {
	return topicRoot + "/" + server + "/cancel"
}

// StatusTopic carries the server's retained presence payload.
func StatusTopic(server string) string {
	return topicRoot + "/" + server + "/status"
}

func goalEventTopic(server, goalID, kind string) string {
	return topicRoot + "/" + server + "/goals/" + goalID + "/" + kind
}

func goalEventFilter(server, goalID string) string {
	return topicRoot + "/" + server + "/goals/" + goalID + "/+"
}

// parseGoalEvent extracts the goal id and event kind from a per-goal topic.
func parseGoalEvent(topic string) (goalID, kind string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 5 || parts[0] != topicRoot || parts[2] != "goals" {
		return "", "", false
	}
	return parts[3], parts[4], true
}

type goalEnvelope struct {
	GoalID string          `json:"goal_id"`
	Goal   json.RawMessage `json:"goal"`
}

type responseEnvelope struct {
	GoalID   string `json:"goal_id"`
	Accepted bool   `json:"accepted"`
}

type feedbackEnvelope struct {
	GoalID   string          `json:"goal_id"`
	Feedback json.RawMessage `json:"feedback"`
}

type resultEnvelope struct {
	GoalID string          `json:"goal_id"`
	Code   string          `json:"code"`
	Result json.RawMessage `json:"result,omitempty"`
}

type cancelEnvelope struct {
	GoalID string `json:"goal_id"`
}

func resultCode(code string) action.ResultCode {
	switch code {
	case action.ResultSucceeded.String():
		return action.ResultSucceeded
	case action.ResultCanceled.String():
		return action.ResultCanceled
	case action.ResultAborted.String():
		return action.ResultAborted
	default:
		return action.ResultUnknown
	}
}
