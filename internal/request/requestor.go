package request

import (
	"context"
	"time"
)

// AuthFailedMessage is reported when a credentialed request cannot be
// recovered by refreshing the session.
const AuthFailedMessage = "Authentication failed"

// Requestor owns one logical request: it sends it, retries once through a
// session refresh on 401, and reports progress when polled. A Requestor is
// driven from a single goroutine; only its Task and Refresh run elsewhere.
type Requestor struct {
	client *Client
	req    Request

	ctx     context.Context
	task    *Task
	refresh *Refresh
	retries int
	changed bool
}

func (c *Client) NewRequestor(req Request) *Requestor {
	return &Requestor{client: c, req: req, ctx: context.Background()}
}

func (r *Requestor) Request() Request { return r.req }

// Send starts the request, replacing any task already in flight. Requests
// carrying credentials get one refresh-and-retry.
func (r *Requestor) Send(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	r.ctx = ctx
	r.refresh = nil
	r.retries = 0
	if r.req.Credentials {
		r.retries = 1
	}
	r.issue()
}

func (r *Requestor) issue() {
	r.task = r.client.Issue(r.ctx, r.req)
	r.changed = true
	r.client.logger.Debug("requestor.sent", map[string]any{"id": r.task.ID(), "path": r.req.Path, "retries_left": r.retries})
}

// Pending reports whether a task or refresh is still outstanding.
func (r *Requestor) Pending() bool {
	return r.task != nil || r.refresh != nil
}

// CheckPromise advances the request by one step. A terminal status is
// returned exactly once; later calls report NotStarted until the next Send.
func (r *Requestor) CheckPromise() Status {
	if r.refresh != nil {
		st := r.refresh.Poll()
		switch st.State {
		case RefreshSucceeded:
			r.refresh = nil
			r.client.session.SetLoggedIn("")
			r.client.session.MarkRefreshed()
			r.issue()
			return inProgress()
		case RefreshFailed:
			r.refresh = nil
			r.changed = true
			r.client.session.SetLoggedOut()
			r.client.logger.Warn("requestor.auth_failed", map[string]any{"path": r.req.Path, "message": st.Message})
			return failed(AuthFailedMessage)
		default:
			return inProgress()
		}
	}

	if r.task == nil {
		return notStarted()
	}
	res := r.task.poll()
	if res.kind != kindInProgress {
		if r.task.TakeDirty() {
			r.changed = true
		}
		r.task = nil
	}
	switch res.kind {
	case kindSuccess:
		return succeeded(res.text)
	case kindFailed:
		return failed(res.text)
	case kindUnauthorized:
		r.changed = true
		if r.retries > 0 {
			r.retries--
			r.refresh = r.client.refresher.Start(r.ctx)
			return inProgress()
		}
		r.client.session.SetLoggedOut()
		return failed(AuthFailedMessage)
	default:
		return inProgress()
	}
}

// RefreshContext reports whether the request changed state since the last
// call, so the owner knows to redraw.
func (r *Requestor) RefreshContext() bool {
	if r.task != nil && r.task.TakeDirty() {
		r.changed = true
	}
	changed := r.changed
	r.changed = false
	return changed
}

// Await polls p until it reaches a terminal status or ctx ends. It is meant
// for command-line use where there is no frame loop.
func Await(ctx context.Context, p Poller, every time.Duration) Status {
	if every <= 0 {
		every = 20 * time.Millisecond
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		st := p.CheckPromise()
		if st.Terminal() {
			return st
		}
		select {
		case <-ctx.Done():
			return failed(ctx.Err().Error())
		case <-ticker.C:
		}
	}
}
