// actionsim hosts simulated action servers on an MQTT broker so missions
// can be bench-tested without robot hardware.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"example.com/robot-missions/internal/actionmqtt"
	mqttc "example.com/robot-missions/internal/mqtt"
)

func main() {
	zl, err := zap.NewDevelopment()
	if err != nil {
		os.Exit(1)
	}
	defer zl.Sync()
	log := zl.Sugar()

	broker := os.Getenv("MQTT_BROKER")
	mq := mqttc.NewClient("actionsim", broker, log)

	servers := []*actionmqtt.Server{
		actionmqtt.NewServer(mq, "drive", &driveExecutor{}, log),
		actionmqtt.NewServer(mq, "dock", &dockExecutor{}, log),
	}
	for _, s := range servers {
		s.Start()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Infof("shutting down simulators")
	for _, s := range servers {
		s.Close()
	}
	mq.Disconnect()
}

type driveGoal struct {
	DistanceM float64 `json:"distance_m"`
	SpeedMPS  float64 `json:"speed_mps"`
}

type driveFeedback struct {
	ProgressPct int     `json:"progress_pct"`
	RemainingM  float64 `json:"remaining_m"`
}

// driveExecutor pretends to drive the requested distance, ticking progress
// feedback ten times over the simulated duration.
type driveExecutor struct{}

func (e *driveExecutor) Accept(goal json.RawMessage) bool {
	var g driveGoal
	if err := json.Unmarshal(goal, &g); err != nil {
		return false
	}
	return g.DistanceM > 0
}

func (e *driveExecutor) Execute(ctx context.Context, goal json.RawMessage, feedback func(json.RawMessage)) (json.RawMessage, error) {
	var g driveGoal
	if err := json.Unmarshal(goal, &g); err != nil {
		return nil, err
	}
	speed := g.SpeedMPS
	if speed <= 0 {
		speed = 0.2
	}
	total := time.Duration(g.DistanceM/speed) * time.Second
	if total < time.Second {
		total = time.Second
	}
	step := total / 10

	for i := 1; i <= 10; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(step):
		}
		fb, _ := json.Marshal(driveFeedback{
			ProgressPct: i * 10,
			RemainingM:  g.DistanceM * float64(10-i) / 10,
		})
		feedback(fb)
	}
	return json.Marshal(map[string]float64{"driven_m": g.DistanceM})
}

type dockGoal struct {
	Station string `json:"station"`
}

// dockExecutor pretends to dock at the named station.
type dockExecutor struct{}

func (e *dockExecutor) Accept(goal json.RawMessage) bool {
	var g dockGoal
	if err := json.Unmarshal(goal, &g); err != nil {
		return false
	}
	return g.Station != ""
}

func (e *dockExecutor) Execute(ctx context.Context, goal json.RawMessage, feedback func(json.RawMessage)) (json.RawMessage, error) {
	var g dockGoal
	if err := json.Unmarshal(goal, &g); err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(2 * time.Second):
	}
	if g.Station == "offline" {
		return nil, errors.New("station offline")
	}
	return json.Marshal(map[string]any{"docked": true, "station": g.Station})
}
