package behavior_test

import (
	"context"
	"testing"

	"example.com/robot-missions/internal/behavior"
)

// countingNode returns a scripted sequence of statuses and remembers how
// often it was ticked and halted.
type countingNode struct {
	script []behavior.Status
	ticks  int
	halts  int
}

func (n *countingNode) Tick(ctx context.Context, bb *behavior.Blackboard) behavior.Status {
	i := n.ticks
	n.ticks++
	if i >= len(n.script) {
		i = len(n.script) - 1
	}
	return n.script[i]
}

func (n *countingNode) Halt(ctx context.Context) { n.halts++ }

func TestSequenceRemembersRunningChild(t *testing.T) {
	first := &countingNode{script: []behavior.Status{behavior.StatusSuccess}}
	second := &countingNode{script: []behavior.Status{behavior.StatusRunning, behavior.StatusSuccess}}
	seq := &behavior.Sequence{Children: []behavior.Node{first, second}}
	bb := behavior.NewBlackboard()

	if st := seq.Tick(context.Background(), bb); st != behavior.StatusRunning {
		t.Fatalf("tick 1: got %s, want RUNNING", st)
	}
	if st := seq.Tick(context.Background(), bb); st != behavior.StatusSuccess {
		t.Fatalf("tick 2: got %s, want SUCCESS", st)
	}
	// The completed first child must not be re-entered while the second
	// was running.
	if first.ticks != 1 {
		t.Fatalf("first child ticked %d times, want 1", first.ticks)
	}

	// A finished sequence starts over.
	seq.Tick(context.Background(), bb)
	if first.ticks != 2 {
		t.Fatalf("first child ticked %d times after restart, want 2", first.ticks)
	}
}

func TestSequenceFailureResets(t *testing.T) {
	first := &countingNode{script: []behavior.Status{behavior.StatusSuccess}}
	second := &countingNode{script: []behavior.Status{behavior.StatusFailure}}
	seq := &behavior.Sequence{Children: []behavior.Node{first, second}}
	bb := behavior.NewBlackboard()

	if st := seq.Tick(context.Background(), bb); st != behavior.StatusFailure {
		t.Fatalf("got %s, want FAILURE", st)
	}
	// After a failure the next tick restarts from the first child.
	seq.Tick(context.Background(), bb)
	if first.ticks != 2 {
		t.Fatalf("first child ticked %d times, want 2", first.ticks)
	}
}

func TestSelectorStopsAtFirstSuccess(t *testing.T) {
	first := &countingNode{script: []behavior.Status{behavior.StatusFailure}}
	second := &countingNode{script: []behavior.Status{behavior.StatusSuccess}}
	third := &countingNode{script: []behavior.Status{behavior.StatusSuccess}}
	sel := &behavior.Selector{Children: []behavior.Node{first, second, third}}

	if st := sel.Tick(context.Background(), behavior.NewBlackboard()); st != behavior.StatusSuccess {
		t.Fatalf("got %s, want SUCCESS", st)
	}
	if third.ticks != 0 {
		t.Fatal("selector ticked past the first success")
	}
}

func TestParallelReportsRunningUntilAllResolve(t *testing.T) {
	a := &countingNode{script: []behavior.Status{behavior.StatusSuccess}}
	b := &countingNode{script: []behavior.Status{behavior.StatusRunning, behavior.StatusSuccess}}
	par := &behavior.Parallel{Children: []behavior.Node{a, b}}
	bb := behavior.NewBlackboard()

	if st := par.Tick(context.Background(), bb); st != behavior.StatusRunning {
		t.Fatalf("tick 1: got %s, want RUNNING", st)
	}
	if st := par.Tick(context.Background(), bb); st != behavior.StatusSuccess {
		t.Fatalf("tick 2: got %s, want SUCCESS", st)
	}
}

func TestHaltPropagates(t *testing.T) {
	a := &countingNode{script: []behavior.Status{behavior.StatusRunning}}
	b := &countingNode{script: []behavior.Status{behavior.StatusRunning}}
	seq := &behavior.Sequence{Children: []behavior.Node{a, b}}

	seq.Tick(context.Background(), behavior.NewBlackboard())
	seq.Halt(context.Background())
	if a.halts != 1 || b.halts != 1 {
		t.Fatalf("halts: a=%d b=%d, want 1 each", a.halts, b.halts)
	}
}

func TestInputsResolveLiteralsAndPointers(t *testing.T) {
	bb := behavior.NewBlackboard()
	bb.Set("target", "nav")
	in := behavior.Inputs{
		"server": "{target}",
		"mode":   "fast",
	}

	if v, ok := in.String(bb, "server"); !ok || v != "nav" {
		t.Fatalf("pointer input: got %q, %v", v, ok)
	}
	if v, ok := in.String(bb, "mode"); !ok || v != "fast" {
		t.Fatalf("literal input: got %q, %v", v, ok)
	}
	if _, ok := in.String(bb, "absent"); ok {
		t.Fatal("unconfigured port reported as present")
	}

	// An unset blackboard key resolves to the empty string, not a miss.
	if v, ok := in.String(behavior.NewBlackboard(), "server"); !ok || v != "" {
		t.Fatalf("dangling pointer input: got %q, %v", v, ok)
	}
}

func TestIsPointer(t *testing.T) {
	if !behavior.IsPointer("{key}") {
		t.Fatal("{key} not detected as pointer")
	}
	for _, v := range []string{"key", "", "{", "nav_server"} {
		if behavior.IsPointer(v) {
			t.Fatalf("%q wrongly detected as pointer", v)
		}
	}
}

func TestWakeSignalCoalesces(t *testing.T) {
	w := behavior.NewWakeSignal()
	w.Emit()
	w.Emit()
	w.Emit()

	<-w.C()
	select {
	case <-w.C():
		t.Fatal("emissions did not coalesce")
	default:
	}

	// A nil signal is safe to emit on.
	var nilSignal *behavior.WakeSignal
	nilSignal.Emit()
}

func TestBlackboardTypedAccess(t *testing.T) {
	bb := behavior.NewBlackboard()
	bb.Set("name", "robot-7")
	bb.Set("count", 3)

	if got := bb.GetString("name"); got != "robot-7" {
		t.Fatalf("GetString: got %q", got)
	}
	if got := bb.GetString("count"); got != "" {
		t.Fatalf("GetString on non-string: got %q", got)
	}
	bb.Delete("name")
	if _, ok := bb.Get("name"); ok {
		t.Fatal("deleted key still present")
	}
}
