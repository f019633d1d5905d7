package httpmon

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// FeedbackEvent is one feedback payload relayed from an executing goal.
type FeedbackEvent struct {
	Node     string          `json:"node"`
	Server   string          `json:"server"`
	Feedback json.RawMessage `json:"feedback"`
	TS       time.Time       `json:"ts"`
}

// FeedbackHub streams live goal feedback to websocket subscribers.
type FeedbackHub struct {
	log *zap.SugaredLogger

	mu    sync.Mutex
	conns map[*websocket.Conn]chan FeedbackEvent
}

func NewFeedbackHub(log *zap.SugaredLogger) *FeedbackHub {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &FeedbackHub{
		log:   log,
		conns: make(map[*websocket.Conn]chan FeedbackEvent),
	}
}

// Broadcast sends the event to all subscribers, dropping it for any that
// cannot keep up.
func (h *FeedbackHub) Broadcast(ev FeedbackEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.conns {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *FeedbackHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorf("feedback: websocket upgrade: %v", err)
		return
	}

	ch := make(chan FeedbackEvent, 16)
	h.mu.Lock()
	h.conns[ws] = ch
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.conns, ws)
		h.mu.Unlock()
		ws.Close()
	}()

	// Reader only watches for the peer closing.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case ev := <-ch:
			if err := ws.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}
