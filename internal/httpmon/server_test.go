package httpmon_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"example.com/robot-missions/internal/action"
	"example.com/robot-missions/internal/behavior"
	"example.com/robot-missions/internal/httpmon"
	"example.com/robot-missions/internal/journal"
)

func newServer(t *testing.T) (*httpmon.Server, *journal.DB) {
	t.Helper()
	db, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return httpmon.NewServer(":0", db, nil), db
}

func TestHealthz(t *testing.T) {
	s, _ := newServer(t)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST status: %d", rec.Code)
	}
}

func TestActivationsEndpoint(t *testing.T) {
	s, db := newServer(t)
	ctx := context.Background()
	if err := db.Record(ctx, "drive_out", "nav", "EXECUTING", ""); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := db.Record(ctx, "drive_out", "nav", "DONE", "SUCCESS"); err != nil {
		t.Fatalf("record: %v", err)
	}

	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/activations?limit=1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	var entries []journal.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].Phase != "DONE" {
		t.Fatalf("entries: %+v", entries)
	}
}

func TestTransitionsReachEventStream(t *testing.T) {
	s, _ := newServer(t)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	tr := action.Transition{
		Node:   "drive_out",
		Server: "nav",
		From:   action.PhaseExecuting,
		To:     action.PhaseDone,
		Status: behavior.StatusSuccess,
	}

	// Headers are only flushed on the first event, so keep broadcasting
	// until the client has read a frame.
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				s.BroadcastTransition(tr)
				time.Sleep(10 * time.Millisecond)
			}
		}
	}()

	resp, err := http.Get(srv.URL + "/events")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	buf := make([]byte, 512)
	n, err := resp.Body.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	frame := string(buf[:n])
	frame = strings.TrimPrefix(frame, "data: ")
	if i := strings.Index(frame, "\n"); i >= 0 {
		frame = frame[:i]
	}

	var ev httpmon.TransitionEvent
	if err := json.Unmarshal([]byte(frame), &ev); err != nil {
		t.Fatalf("decode %q: %v", frame, err)
	}
	if ev.Node != "drive_out" || ev.Server != "nav" {
		t.Fatalf("identity: %+v", ev)
	}
	if ev.From != "EXECUTING" || ev.To != "DONE" || ev.Status != "SUCCESS" {
		t.Fatalf("transition: %+v", ev)
	}
	if ev.TS.IsZero() {
		t.Fatal("timestamp not set")
	}
}

func TestSSEBrokerBroadcast(t *testing.T) {
	b := httpmon.NewSSEBroker(nil)

	srv := httptest.NewServer(b)
	defer srv.Close()

	// Headers are only flushed on the first event, so broadcast from the
	// side until the client has connected and read a frame.
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				b.Broadcast(`{"phase":"EXECUTING"}`)
				time.Sleep(10 * time.Millisecond)
			}
		}
	}()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type: %q", ct)
	}
	buf := make([]byte, 256)
	n, err := resp.Body.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "data: {\"phase\":\"EXECUTING\"}\n\n"
	if got := string(buf[:n]); !strings.HasPrefix(got, want) {
		t.Fatalf("frame: %q", got)
	}
}
