package registry

import (
	"sync"
	"sync/atomic"
)

// Token signals cooperative cancellation to a running job. The worker polls
// Cancelled at each progress callback and chunk read; callbacks registered
// with OnCancel fire once when the token trips, letting the worker abort an
// in-flight subprocess or request.
type Token struct {
	cancelled atomic.Bool

	mu     sync.Mutex
	notify []func()
}

// Cancel trips the token. Safe to call more than once; callbacks fire once.
func (t *Token) Cancel() {
	if !t.cancelled.CompareAndSwap(false, true) {
		return
	}
	t.mu.Lock()
	fns := t.notify
	t.notify = nil
	t.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Cancelled reports whether the token has been tripped.
func (t *Token) Cancelled() bool { return t.cancelled.Load() }

// OnCancel registers fn to run when the token trips. If the token is already
// tripped, fn runs immediately.
func (t *Token) OnCancel(fn func()) {
	t.mu.Lock()
	if t.cancelled.Load() {
		t.mu.Unlock()
		fn()
		return
	}
	t.notify = append(t.notify, fn)
	t.mu.Unlock()
}
