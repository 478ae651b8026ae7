package ui

import (
	"codechallenge/internal/api"
	"codechallenge/internal/request"
)

// pending tracks the one call a screen may have in flight for an action.
type pending[T any] struct {
	call    *api.Call[T]
	last    api.Result[T]
	changed bool
}

func (p *pending[T]) start(c *api.Call[T]) {
	p.call = c
	p.last = c.Last()
	p.changed = true
}

// fail records a local validation error as a failed result.
func (p *pending[T]) fail(err error) {
	p.call = nil
	p.last = api.Result[T]{State: request.Failed, Err: err.Error()}
	p.changed = true
}

// poll advances the call and reports a terminal result exactly once.
func (p *pending[T]) poll() (api.Result[T], bool) {
	if p.call == nil {
		return api.Result[T]{}, false
	}
	res := p.call.Poll()
	if !res.Terminal() {
		return res, false
	}
	p.call = nil
	p.last = res
	p.changed = true
	return res, true
}

func (p *pending[T]) busy() bool { return p.call != nil }

func (p *pending[T]) redraw() bool {
	changed := p.changed
	p.changed = false
	if p.call != nil && p.call.Redraw() {
		changed = true
	}
	return changed
}
