package request

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

type RefreshState int

const (
	RefreshNotStarted RefreshState = iota
	RefreshInProgress
	RefreshSucceeded
	RefreshFailed
)

type RefreshStatus struct {
	State   RefreshState
	Message string
}

// refreshResponse is the body of the refresh endpoint.
type refreshResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Refresher renews the session cookie. Concurrent Start calls share a
// single request to the backend.
type Refresher struct {
	client *Client
	group  singleflight.Group
}

// Refresh is the handle returned by Start.
type Refresh struct {
	done chan struct{}

	mu     sync.Mutex
	status RefreshStatus
}

func (r *Refresher) Start(ctx context.Context) *Refresh {
	h := &Refresh{done: make(chan struct{}), status: RefreshStatus{State: RefreshInProgress}}
	go func() {
		v, _, shared := r.group.Do("refresh", func() (any, error) {
			return r.refresh(ctx), nil
		})
		st := v.(RefreshStatus)
		if shared {
			r.client.logger.Debug("refresh.shared", map[string]any{"state": int(st.State)})
		}
		h.mu.Lock()
		h.status = st
		h.mu.Unlock()
		close(h.done)
		r.client.notify()
	}()
	return h
}

func (r *Refresher) refresh(ctx context.Context) RefreshStatus {
	id := uuid.NewString()
	res := r.client.do(ctx, Request{Method: http.MethodGet, Path: RefreshPath, Credentials: true}, id)
	st := interpretRefresh(res)
	if st.State == RefreshSucceeded {
		r.client.logger.Info("refresh.succeeded", map[string]any{"id": id})
	} else {
		r.client.logger.Warn("refresh.failed", map[string]any{"id": id, "message": st.Message})
	}
	return st
}

func interpretRefresh(res outcome) RefreshStatus {
	if res.code == 0 {
		return RefreshStatus{State: RefreshFailed, Message: "Failed to authenticate"}
	}
	var body refreshResponse
	parsed := json.Unmarshal([]byte(res.text), &body) == nil
	if res.kind == kindSuccess && parsed && strings.EqualFold(body.Status, "success") {
		return RefreshStatus{State: RefreshSucceeded, Message: body.Message}
	}
	msg := ""
	if parsed {
		msg = strings.TrimSpace(body.Message)
	}
	if msg == "" {
		msg = strings.TrimSpace(res.text)
	}
	if msg == "" {
		msg = http.StatusText(res.code)
	}
	return RefreshStatus{State: RefreshFailed, Message: msg}
}

func (h *Refresh) Poll() RefreshStatus {
	if h == nil {
		return RefreshStatus{State: RefreshNotStarted}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

func (h *Refresh) Done() <-chan struct{} { return h.done }
