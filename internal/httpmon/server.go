// Package httpmon exposes a read-only monitoring surface for a mission run:
// journal queries, an SSE stream of activation transitions and a websocket
// stream of live goal feedback.
package httpmon

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"example.com/robot-missions/internal/action"
	"example.com/robot-missions/internal/journal"
)

type Server struct {
	DB       *journal.DB
	Events   *SSEBroker
	Feedback *FeedbackHub

	addr string
	log  *zap.SugaredLogger
}

func NewServer(addr string, db *journal.DB, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Server{
		DB:       db,
		Events:   NewSSEBroker(log),
		Feedback: NewFeedbackHub(log),
		addr:     addr,
		log:      log,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/activations", s.handleActivations)
	mux.Handle("/events", s.Events)
	mux.Handle("/ws/feedback", s.Feedback)
	return mux
}

func (s *Server) Start() error {
	s.log.Infof("monitor listening on %s", s.addr)
	return http.ListenAndServe(s.addr, s.Routes())
}

// TransitionEvent is one phase transition published on the event stream.
type TransitionEvent struct {
	Node   string    `json:"node"`
	Server string    `json:"server"`
	From   string    `json:"from"`
	To     string    `json:"to"`
	Status string    `json:"status,omitempty"`
	TS     time.Time `json:"ts"`
}

// BroadcastTransition relays an adapter phase transition to SSE
// subscribers on /events. Status is only attached to terminal transitions.
func (s *Server) BroadcastTransition(tr action.Transition) {
	ev := TransitionEvent{
		Node:   tr.Node,
		Server: tr.Server,
		From:   tr.From.String(),
		To:     tr.To.String(),
		TS:     time.Now(),
	}
	if tr.To == action.PhaseDone {
		ev.Status = tr.Status.String()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		s.log.Errorf("monitor: encode transition: %v", err)
		return
	}
	s.Events.Broadcast(string(payload))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleActivations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if s.DB == nil {
		http.Error(w, "journal disabled", http.StatusNotFound)
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	entries, err := s.DB.Recent(r.Context(), limit)
	if err != nil {
		s.log.Errorf("monitor: list activations: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

func methodNotAllowed(w http.ResponseWriter) {
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}
