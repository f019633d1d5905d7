package actionmqtt

import (
	"testing"

	"example.com/robot-missions/internal/action"
)

func TestTopicLayout(t *testing.T) {
	if got := GoalTopic("nav"); got != "actions/nav/goal" {
		t.Fatalf("GoalTopic: %q", got)
	}
	if got := CancelTopic("nav"); got != "actions/nav/cancel" {
		t.Fatalf("CancelTopic: %q", got)
	}
	if got := StatusTopic("nav"); got != "actions/nav/status" {
		t.Fatalf("StatusTopic: %q", got)
	}
	if got := goalEventTopic("nav", "g1", eventResult); got != "actions/nav/goals/g1/result" {
		t.Fatalf("goalEventTopic: %q", got)
	}
	if got := goalEventFilter("nav", "g1"); got != "actions/nav/goals/g1/+" {
		t.Fatalf("goalEventFilter: %q", got)
	}
}

func TestParseGoalEvent(t *testing.T) {
	goalID, kind, ok := parseGoalEvent("actions/nav/goals/g1/feedback")
	if !ok || goalID != "g1" || kind != eventFeedback {
		t.Fatalf("got %q %q %v", goalID, kind, ok)
	}

	for _, topic := range []string{
		"actions/nav/goal",
		"actions/nav/status",
		"other/nav/goals/g1/result",
		"actions/nav/goals/g1",
		"actions/nav/goals/g1/result/extra",
	} {
		if _, _, ok := parseGoalEvent(topic); ok {
			t.Fatalf("%q parsed as goal event", topic)
		}
	}
}

func TestResultCodeMapping(t *testing.T) {
	cases := map[string]action.ResultCode{
		"succeeded": action.ResultSucceeded,
		"canceled":  action.ResultCanceled,
		"aborted":   action.ResultAborted,
		"bogus":     action.ResultUnknown,
		"":          action.ResultUnknown,
	}
	for raw, want := range cases {
		if got := resultCode(raw); got != want {
			t.Fatalf("resultCode(%q): got %s, want %s", raw, got, want)
		}
	}
}
