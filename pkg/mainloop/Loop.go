// ==================================================================================
//
// Work of the U.S. Department of the Navy, Naval Information Warfare Center Pacific.
// Released as open source under the MIT License.  See LICENSE file.
//
// ==================================================================================

// Package mainloop provides a single execution context that runs posted functions
// one at a time, in the order they were posted, on the goroutine that calls Run.
package mainloop

import (
	"context"
	"sync"

	"gitlab.com/tozd/go/errors"

	"github.com/navwar/gocopy/pkg/job"
)

var ErrClosed = errors.New("main loop is closed")

type Loop struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{}
}

// Post queues fn without blocking.
// Returns ErrClosed if the loop was closed.
func (l *Loop) Post(fn func()) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.signal()
	return nil
}

// RunOnMainContext implements job.MainContext.
// Callbacks posted after the loop is closed are dropped.
func (l *Loop) RunOnMainContext(callback job.Callback, progress job.Progress) {
	_ = l.Post(func() {
		callback(progress.Source, progress.Index, progress.Total)
	})
}

// Close stops accepting new functions.
// Run returns once everything already queued has run.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.signal()
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) next() (func(), bool, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) > 0 {
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		return fn, true, l.closed
	}
	return nil, false, l.closed
}

// Run executes queued functions until the loop is closed and drained, or the context is done.
// Returns the context error if the context ended first.
func (l *Loop) Run(ctx context.Context) error {
	for {
		fn, ok, closed := l.next()
		if ok {
			fn()
			continue
		}
		if closed {
			return nil
		}
		select {
		case <-l.wake:
		case <-ctx.Done():
			return errors.Errorf("main loop stopped: %w", ctx.Err())
		}
	}
}

func New() *Loop {
	return &Loop{
		queue: []func(){},
		wake:  make(chan struct{}, 1),
	}
}
