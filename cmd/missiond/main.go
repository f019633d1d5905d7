package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"example.com/robot-missions/internal/httpmon"
	"example.com/robot-missions/internal/journal"
	"example.com/robot-missions/internal/mission"
)

func main() {
	zl, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer zl.Sync()
	log := zl.Sugar()

	cfgPath := os.Getenv("MISSIOND_CONFIG")
	if cfgPath == "" {
		cfgPath = "/etc/missiond/config.yaml"
	}
	cfg, err := mission.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.RobotID == "" {
		log.Fatalf("config missing robot_id")
	}
	if cfg.MissionPath == "" {
		log.Fatalf("config missing mission_path")
	}

	raw, err := os.ReadFile(cfg.MissionPath)
	if err != nil {
		log.Fatalf("read mission: %v", err)
	}
	spec, err := mission.Parse(raw)
	if err != nil {
		log.Fatalf("parse mission: %v", err)
	}

	var db *journal.DB
	if cfg.JournalPath != "" {
		db, err = journal.Open(cfg.JournalPath)
		if err != nil {
			log.Fatalf("open journal: %v", err)
		}
	}

	var sink mission.FeedbackSink
	var mon *httpmon.Server
	if cfg.HTTPAddr != "" {
		mon = httpmon.NewServer(cfg.HTTPAddr, db, log)
		sink = func(node, server string, fb json.RawMessage) {
			mon.Feedback.Broadcast(httpmon.FeedbackEvent{
				Node:     node,
				Server:   server,
				Feedback: fb,
				TS:       time.Now(),
			})
		}
		go func() {
			if err := mon.Start(); err != nil {
				log.Errorf("monitor: %v", err)
			}
		}()
	}

	engine, err := mission.NewEngine(cfg, spec, db, sink, log)
	if err != nil {
		log.Fatalf("build mission: %v", err)
	}
	defer engine.Close()
	if mon != nil {
		engine.OnTransition = mon.BroadcastTransition
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := engine.Run(ctx)
	if err != nil {
		log.Infof("mission interrupted: %v", err)
		return
	}
	log.Infof("mission %q: %s", spec.Name, st)
}
