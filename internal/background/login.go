package background

import (
	"context"

	"codechallenge/internal/request"
)

type LoginState int

const (
	LoginIdle LoginState = iota
	LoginRefreshing
	LoginError
)

// LoginTicker keeps an active session alive by refreshing it on a period,
// and stops once the user has been idle past the inactivity timeout.
type LoginTicker struct {
	client  *request.Client
	logger  Logger
	state   LoginState
	refresh *request.Refresh
	lastErr string
}

func NewLoginTicker(client *request.Client, logger Logger) *LoginTicker {
	if logger == nil {
		logger = nopLogger{}
	}
	return &LoginTicker{client: client, logger: logger}
}

func (t *LoginTicker) State() LoginState { return t.state }

// LastError is the message of the most recent failed refresh.
func (t *LoginTicker) LastError() string { return t.lastErr }

func (t *LoginTicker) Tick(ctx context.Context) bool {
	changed := false
	if t.refresh == nil && t.client.Session().ClaimRefresh() {
		t.logger.Debug("login.refresh_start", nil)
		t.refresh = t.client.Refresher().Start(ctx)
		t.state = LoginRefreshing
		changed = true
	}
	if t.refresh == nil {
		return changed
	}

	st := t.refresh.Poll()
	switch st.State {
	case request.RefreshSucceeded:
		t.refresh = nil
		t.state = LoginIdle
		t.lastErr = ""
		t.client.Session().SetLoggedIn("")
		t.logger.Info("login.refreshed", nil)
		return true
	case request.RefreshFailed:
		t.refresh = nil
		t.state = LoginError
		t.lastErr = st.Message
		t.client.Session().SetLoggedOut()
		t.logger.Warn("login.refresh_failed", map[string]any{"message": st.Message})
		return true
	}
	return changed
}
