package consent

import (
	"sync"

	"github.com/go-drift/permissions/pkg/grant"
)

// Future is the one-shot result of an Open call. It resolves at most once.
// If the host never answers it never resolves.
type Future struct {
	mu       sync.Mutex
	resolved bool
	result   grant.Result
	handlers []func(grant.Result)
	done     chan struct{}
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Then registers fn to run with the result. If the future already resolved,
// fn runs immediately on the calling goroutine; otherwise it runs on the
// goroutine that delivers the result.
func (f *Future) Then(fn func(grant.Result)) {
	f.mu.Lock()
	if !f.resolved {
		f.handlers = append(f.handlers, fn)
		f.mu.Unlock()
		return
	}
	result := f.result
	f.mu.Unlock()
	fn(result)
}

// Done returns a channel that is closed once the future resolves.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result returns the result and whether the future has resolved.
func (f *Future) Result() (grant.Result, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.resolved
}

// resolve settles the future. Later calls are ignored and return false.
func (f *Future) resolve(result grant.Result) bool {
	f.mu.Lock()
	if f.resolved {
		f.mu.Unlock()
		return false
	}
	f.resolved = true
	f.result = result
	handlers := f.handlers
	f.handlers = nil
	close(f.done)
	f.mu.Unlock()

	for _, h := range handlers {
		h(result)
	}
	return true
}
