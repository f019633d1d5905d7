package behavior

import "context"

// Sequence runs children in order until one fails or returns running.
// It remembers the running child between ticks so completed children are
// not re-entered within one pass over the mission.
type Sequence struct {
	Children []Node

	current int
}

func (s *Sequence) Tick(ctx context.Context, bb *Blackboard) Status {
	for s.current < len(s.Children) {
		status := s.Children[s.current].Tick(ctx, bb)
		if status == StatusRunning {
			return StatusRunning
		}
		if status == StatusFailure {
			s.current = 0
			return StatusFailure
		}
		s.current++
	}
	s.current = 0
	return StatusSuccess
}

func (s *Sequence) Halt(ctx context.Context) {
	for _, child := range s.Children {
		child.Halt(ctx)
	}
	s.current = 0
}

// Selector runs children in order until one succeeds or returns running.
type Selector struct {
	Children []Node

	current int
}

func (s *Selector) Tick(ctx context.Context, bb *Blackboard) Status {
	for s.current < len(s.Children) {
		status := s.Children[s.current].Tick(ctx, bb)
		if status == StatusRunning {
			return StatusRunning
		}
		if status == StatusSuccess {
			s.current = 0
			return StatusSuccess
		}
		s.current++
	}
	s.current = 0
	return StatusFailure
}

func (s *Selector) Halt(ctx context.Context) {
	for _, child := range s.Children {
		child.Halt(ctx)
	}
	s.current = 0
}

// Parallel ticks all children every pass.
// SuccessPolicy: RequireAll
// FailurePolicy: RequireOne
type Parallel struct {
	Children []Node
}

func (p *Parallel) Tick(ctx context.Context, bb *Blackboard) Status {
	runningCount := 0

	for _, child := range p.Children {
		status := child.Tick(ctx, bb)
		if status == StatusFailure {
			return StatusFailure
		}
		if status == StatusRunning {
			runningCount++
		}
	}

	if runningCount > 0 {
		return StatusRunning
	}
	return StatusSuccess
}

func (p *Parallel) Halt(ctx context.Context) {
	for _, child := range p.Children {
		child.Halt(ctx)
	}
}
