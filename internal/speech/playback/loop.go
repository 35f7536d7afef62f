package playback

import (
	"context"
	"sync"
)

// Dispatcher runs functions on the panel's single execution context.
type Dispatcher interface {
	Post(fn func())
}

// Inline runs posted functions immediately on the caller's goroutine.
type Inline struct{}

func (Inline) Post(fn func()) { fn() }

// Loop is a Dispatcher that runs posted functions one at a time, in order,
// on the goroutine that calls Run. Post never blocks.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped bool
}

func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run drains the queue until ctx is done. Functions still queued at that
// point are dropped.
func (l *Loop) Run(ctx context.Context) {
	defer func() {
		l.mu.Lock()
		l.stopped = true
		l.queue = nil
		l.mu.Unlock()
	}()

	for {
		for {
			l.mu.Lock()
			if len(l.queue) == 0 {
				l.mu.Unlock()
				break
			}
			fn := l.queue[0]
			l.queue = l.queue[1:]
			l.mu.Unlock()

			fn()
			if ctx.Err() != nil {
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-l.wake:
		}
	}
}

// Call posts fn and waits for it to run. It returns ctx.Err() if ctx ends
// first.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Post(func() {
		fn()
		close(done)
	})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
