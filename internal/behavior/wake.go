package behavior

// WakeSignal lets asynchronous callbacks nudge the tick loop so it re-ticks
// promptly instead of waiting out its polling cadence. Emissions coalesce;
// a nil *WakeSignal is safe to emit on.
type WakeSignal struct {
	ch chan struct{}
}

func NewWakeSignal() *WakeSignal {
	return &WakeSignal{ch: make(chan struct{}, 1)}
}

func (w *WakeSignal) Emit() {
	if w == nil {
		return
	}
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

func (w *WakeSignal) C() <-chan struct{} {
	if w == nil {
		return nil
	}
	return w.ch
}
