// Package session holds the process-wide login and reference-data state that
// background tickers write and screens read.
//
// Every access goes through a short critical section; nothing holds the lock
// across network I/O. Readers take a Snapshot instead of holding the lock
// while rendering.
package session

import (
	"sync"
	"time"

	"codechallenge/internal/challenges"
)

const (
	DefaultInactivityTimeout = 10 * time.Minute
	DefaultRefreshPeriod     = 5 * time.Minute
)

// LoginState is either logged in (with the user's identity) or logged out.
type LoginState struct {
	LoggedIn bool
	User     string
}

func (l LoginState) String() string {
	if !l.LoggedIn {
		return "logged out"
	}
	if l.User == "" {
		return "logged in"
	}
	return "logged in as " + l.User
}

type Snapshot struct {
	Login        LoginState
	Challenges   challenges.Collection
	LastActivity time.Time
	LastRefresh  time.Time
}

type State struct {
	mu sync.Mutex

	login        LoginState
	challenges   challenges.Collection
	lastActivity time.Time
	lastRefresh  time.Time

	now               func() time.Time
	inactivityTimeout time.Duration
	refreshPeriod     time.Duration
}

type Option func(*State)

// WithClock replaces time.Now, mainly so tests can simulate elapsed time.
func WithClock(now func() time.Time) Option {
	return func(s *State) {
		if now != nil {
			s.now = now
		}
	}
}

func WithInactivityTimeout(d time.Duration) Option {
	return func(s *State) {
		if d > 0 {
			s.inactivityTimeout = d
		}
	}
}

func WithRefreshPeriod(d time.Duration) Option {
	return func(s *State) {
		if d > 0 {
			s.refreshPeriod = d
		}
	}
}

func New(opts ...Option) *State {
	s := &State{
		now:               time.Now,
		inactivityTimeout: DefaultInactivityTimeout,
		refreshPeriod:     DefaultRefreshPeriod,
	}
	for _, opt := range opts {
		opt(s)
	}
	now := s.now()
	s.lastActivity = now
	s.lastRefresh = now
	return s
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Login:        s.login,
		Challenges:   s.challenges.Clone(),
		LastActivity: s.lastActivity,
		LastRefresh:  s.lastRefresh,
	}
}

func (s *State) Login() LoginState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.login
}

func (s *State) LoggedIn() bool {
	return s.Login().LoggedIn
}

// SetLoggedIn is reserved for the refresh protocol outcome and the explicit
// login action.
func (s *State) SetLoggedIn(user string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user == "" {
		user = s.login.User
	}
	s.login = LoginState{LoggedIn: true, User: user}
}

// SetLoggedOut is reserved for the refresh protocol outcome and the explicit
// logout action.
func (s *State) SetLoggedOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.login = LoginState{LoggedIn: false, User: s.login.User}
}

func (s *State) Challenges() challenges.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.challenges.Clone()
}

// SetChallenges replaces the whole collection.
func (s *State) SetChallenges(c challenges.Collection) {
	c = c.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges = c
}

// TouchActivity records user interaction; it keeps the background refresh
// alive.
func (s *State) TouchActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = s.now()
}

func (s *State) MarkRefreshed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRefresh = s.now()
}

// NeedsRefresh reports whether the session is in active use but its
// credential has not been renewed for a full refresh period.
func (s *State) NeedsRefresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	return now.Sub(s.lastActivity) < s.inactivityTimeout &&
		now.Sub(s.lastRefresh) > s.refreshPeriod
}

// ClaimRefresh atomically checks NeedsRefresh and, when due, records the
// refresh time. Only one caller wins per period.
func (s *State) ClaimRefresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if now.Sub(s.lastActivity) >= s.inactivityTimeout || now.Sub(s.lastRefresh) <= s.refreshPeriod {
		return false
	}
	s.lastRefresh = now
	return true
}
