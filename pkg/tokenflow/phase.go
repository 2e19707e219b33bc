package tokenflow

import "sync"

// Phase is the lifecycle position of a flow's primary action.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseSuccess
	PhaseError
)

// String returns the lowercase phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// State is the observable snapshot of a flow: the phase, a human-readable
// message when in error, and the underlying error for callers that need to
// branch on its type.
type State struct {
	Phase   Phase
	Message string
	Err     error
}

// InFlight reports whether the primary action is running; form submit
// affordances disable while this is true.
func (s State) InFlight() bool {
	return s.Phase == PhaseSubmitting
}

// notifier fans a state snapshot out to subscribers. Callbacks run
// synchronously on the goroutine that caused the transition. The subscriber
// map has its own lock so unsubscribing is safe while a transition is in
// flight.
type notifier struct {
	mu   sync.Mutex
	subs map[int]func(State)
	next int
}

func (n *notifier) subscribe(fn func(State)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = make(map[int]func(State))
	}
	id := n.next
	n.next++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

// callbacks snapshots the current subscribers so they can be invoked
// outside any lock.
func (n *notifier) callbacks() []func(State) {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]func(State), 0, len(n.subs))
	for _, fn := range n.subs {
		out = append(out, fn)
	}
	return out
}
