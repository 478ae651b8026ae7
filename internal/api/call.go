package api

import (
	"context"
	"time"

	"codechallenge/internal/request"
)

// Result is a decoded request outcome. Value is only meaningful on Success.
type Result[T any] struct {
	State request.State
	Value T
	Err   string
}

func (r Result[T]) Terminal() bool {
	return r.State == request.Success || r.State == request.Failed
}

// Call couples a Requestor with the decoder for its response body.
type Call[T any] struct {
	r         *request.Requestor
	decode    func(string) (T, error)
	onSuccess func(T)
	last      Result[T]
}

func newCall[T any](r *request.Requestor, decode func(string) (T, error), onSuccess func(T)) *Call[T] {
	return &Call[T]{r: r, decode: decode, onSuccess: onSuccess}
}

func (c *Call[T]) send(ctx context.Context) *Call[T] {
	c.last = Result[T]{State: request.InProgress}
	c.r.Send(ctx)
	return c
}

// Poll advances the call one step. A terminal result is returned once and
// kept in Last.
func (c *Call[T]) Poll() Result[T] {
	st := c.r.CheckPromise()
	var res Result[T]
	switch st.State {
	case request.Success:
		v, err := c.decode(st.Text)
		if err != nil {
			res = Result[T]{State: request.Failed, Err: err.Error()}
			break
		}
		if c.onSuccess != nil {
			c.onSuccess(v)
		}
		res = Result[T]{State: request.Success, Value: v}
	case request.Failed:
		res = Result[T]{State: request.Failed, Err: st.Text}
	case request.InProgress:
		res = Result[T]{State: request.InProgress}
	default:
		return Result[T]{State: request.NotStarted}
	}
	c.last = res
	return res
}

// Last is the most recent result Poll produced.
func (c *Call[T]) Last() Result[T] { return c.last }

func (c *Call[T]) Pending() bool { return c.r.Pending() }

func (c *Call[T]) Redraw() bool { return c.r.RefreshContext() }

// CheckPromise lets a Call be driven by request.Await.
func (c *Call[T]) CheckPromise() request.Status {
	res := c.Poll()
	switch res.State {
	case request.Success:
		return request.Status{State: request.Success}
	case request.Failed:
		return request.Status{State: request.Failed, Text: res.Err}
	default:
		return request.Status{State: res.State}
	}
}

// Wait blocks until the call finishes. For command-line use only.
func (c *Call[T]) Wait(ctx context.Context, every time.Duration) Result[T] {
	st := request.Await(ctx, c, every)
	if !c.last.Terminal() {
		return Result[T]{State: request.Failed, Err: st.Text}
	}
	return c.last
}
