package request

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

type kind int

const (
	kindNotStarted kind = iota
	kindInProgress
	kindSuccess
	kindFailed
	kindUnauthorized
)

type outcome struct {
	kind kind
	text string
	code int
}

// Task is one HTTP exchange running on its own goroutine. Poll never blocks.
type Task struct {
	id   string
	req  Request
	done chan struct{}

	mu     sync.Mutex
	result outcome
	dirty  atomic.Bool
}

// Issue starts req in the background and returns immediately.
func (c *Client) Issue(ctx context.Context, req Request) *Task {
	t := &Task{
		id:     uuid.NewString(),
		req:    req,
		done:   make(chan struct{}),
		result: outcome{kind: kindInProgress},
	}
	go func() {
		res := c.do(ctx, req, t.id)
		t.mu.Lock()
		t.result = res
		t.dirty.Store(true)
		t.mu.Unlock()
		close(t.done)
		c.notify()
	}()
	return t
}

func (t *Task) ID() string {
	if t == nil {
		return ""
	}
	return t.id
}

func (t *Task) Done() <-chan struct{} { return t.done }

func (t *Task) poll() outcome {
	if t == nil {
		return outcome{kind: kindNotStarted}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}

// TakeDirty reports completion to the owner exactly once.
func (t *Task) TakeDirty() bool {
	if t == nil {
		return false
	}
	return t.dirty.Swap(false)
}
