// Package views holds the presentation state behind the dashboard pages,
// the terminal browser and the CLI. Views talk to the stores and never to
// the backend directly.
package views

import (
	"context"
	"sync"
)

// Mount tracks whether a view is still on screen. Responses that arrive
// after Unmount are dropped instead of being applied to a dead view.
type Mount struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	mounted  bool
	cleanups []func()
}

// NewMount returns a mounted guard whose context is derived from parent.
func NewMount(parent context.Context) *Mount {
	ctx, cancel := context.WithCancel(parent)
	return &Mount{ctx: ctx, cancel: cancel, mounted: true}
}

// Context is cancelled on Unmount. Pass it to store calls started by the view.
func (m *Mount) Context() context.Context {
	return m.ctx
}

// Bind derives a context from ctx that is also cancelled on Unmount.
func (m *Mount) Bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(m.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Mounted reports whether Unmount has not been called yet.
func (m *Mount) Mounted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mounted
}

// Apply runs fn if the view is still mounted and reports whether it ran.
// fn must not call back into the Mount.
func (m *Mount) Apply(fn func()) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.mounted {
		return false
	}
	fn()
	return true
}

// OnUnmount registers fn to run once on Unmount. If the view is already
// unmounted fn runs immediately.
func (m *Mount) OnUnmount(fn func()) {
	m.mu.Lock()
	if m.mounted {
		m.cleanups = append(m.cleanups, fn)
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	fn()
}

// Unmount cancels the context and runs cleanups in reverse order.
// It is safe to call more than once.
func (m *Mount) Unmount() {
	m.mu.Lock()
	if !m.mounted {
		m.mu.Unlock()
		return
	}
	m.mounted = false
	cleanups := m.cleanups
	m.cleanups = nil
	m.mu.Unlock()

	m.cancel()
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}
