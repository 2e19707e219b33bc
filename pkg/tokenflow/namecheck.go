package tokenflow

import (
	"strings"
	"sync"
	"time"
)

// DefaultDebounce is the delay applied to live-typing validation.
const DefaultDebounce = 300 * time.Millisecond

// NameTakenMessage is shown when a candidate collides with an existing name.
const NameTakenMessage = "A token with this name already exists."

// NameCheckResult is the verdict for one candidate name.
type NameCheckResult struct {
	Valid   bool
	Message string
}

// ValidateTokenName compares a candidate against existing names,
// case-insensitively with surrounding whitespace trimmed. An empty candidate
// is always valid; required-field validation is a separate concern. The
// function is pure, so the debounced and immediate paths below can never
// disagree.
func ValidateTokenName(candidate string, existing []string) NameCheckResult {
	trimmed := strings.ToLower(strings.TrimSpace(candidate))
	if trimmed == "" {
		return NameCheckResult{Valid: true}
	}
	for _, name := range existing {
		if strings.ToLower(strings.TrimSpace(name)) == trimmed {
			return NameCheckResult{Valid: false, Message: NameTakenMessage}
		}
	}
	return NameCheckResult{Valid: true}
}

// NameChecker validates candidate token names against the owner's existing
// names. Check debounces for live typing; CheckNow validates immediately for
// blur events. Both share ValidateTokenName.
//
// The pending timer is cancelled on every new input and on Close, so no
// timer ever fires against torn-down state. Replacing the existing-name set
// mid-debounce re-triggers validation against the new set.
type NameChecker struct {
	mu       sync.Mutex
	delay    time.Duration
	existing []string
	timer    *time.Timer
	pending  string
	result   NameCheckResult
	closed   bool
	subs     map[int]func(NameCheckResult)
	nextSub  int
}

// NewNameChecker builds a checker over the given existing names. A delay of
// zero means DefaultDebounce.
func NewNameChecker(existing []string, delay time.Duration) *NameChecker {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &NameChecker{
		delay:    delay,
		existing: append([]string(nil), existing...),
		result:   NameCheckResult{Valid: true},
		subs:     make(map[int]func(NameCheckResult)),
	}
}

// Subscribe registers a callback invoked on every new verdict and returns
// an unsubscribe function.
func (n *NameChecker) Subscribe(fn func(NameCheckResult)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextSub
	n.nextSub++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

// Result returns the latest verdict.
func (n *NameChecker) Result() NameCheckResult {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.result
}

// Check schedules a debounced validation of candidate, replacing any
// previously pending one.
func (n *NameChecker) Check(candidate string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}
	n.pending = candidate
	n.stopTimerLocked()
	n.timer = time.AfterFunc(n.delay, n.fire)
}

// CheckNow validates candidate immediately, cancelling any pending
// debounced check. Used on blur so the field settles deterministically.
// After Close it returns the last verdict unchanged.
func (n *NameChecker) CheckNow(candidate string) NameCheckResult {
	n.mu.Lock()
	if n.closed {
		result := n.result
		n.mu.Unlock()
		return result
	}
	n.stopTimerLocked()
	n.pending = candidate
	result := ValidateTokenName(candidate, n.existing)
	n.result = result
	subs := n.snapshotSubs()
	n.mu.Unlock()

	for _, fn := range subs {
		fn(result)
	}
	return result
}

// SetExisting replaces the comparison set. A pending debounced check is
// re-triggered so it validates against the new set.
func (n *NameChecker) SetExisting(names []string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.existing = append([]string(nil), names...)
	if n.timer != nil {
		n.stopTimerLocked()
		n.timer = time.AfterFunc(n.delay, n.fire)
	}
}

// Close cancels any pending timer. The checker accepts no further input.
func (n *NameChecker) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	n.stopTimerLocked()
}

// fire runs when the debounce timer elapses.
func (n *NameChecker) fire() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.timer = nil
	result := ValidateTokenName(n.pending, n.existing)
	n.result = result
	subs := n.snapshotSubs()
	n.mu.Unlock()

	for _, fn := range subs {
		fn(result)
	}
}

func (n *NameChecker) stopTimerLocked() {
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}

func (n *NameChecker) snapshotSubs() []func(NameCheckResult) {
	out := make([]func(NameCheckResult), 0, len(n.subs))
	for _, fn := range n.subs {
		out = append(out, fn)
	}
	return out
}
