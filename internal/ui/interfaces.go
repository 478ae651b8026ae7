package ui

import (
	"context"

	"codechallenge/internal/api"
	"codechallenge/internal/scoreboard"
	"codechallenge/internal/submission"

	tea "charm.land/bubbletea/v2"
)

// Controller is driven from the UI loop. OnTick and OnRefreshChallenges run
// on the loop goroutine; the rest may be dispatched.
type Controller interface {
	OnTick(ctx context.Context) bool
	OnActivity()
	OnRefreshChallenges()
	OnSubmitted(sub submission.Submission)
	// OnLoggedOut runs after every logout attempt, successful or not.
	OnLoggedOut()
	OnQuit()
	Status() BackgroundStatus
}

type View interface {
	Run() error
	Stop()
	SetController(Controller)
	SetScreen(id ScreenID)
	FlashStatus(msg string)
	RequestDraw()
}

// API is the subset of the api service the screens issue calls through.
type API interface {
	Login(ctx context.Context, email, password string) (*api.Call[api.AuthReply], error)
	Logout(ctx context.Context) *api.Call[struct{}]
	Register(ctx context.Context, name, email, password string) (*api.Call[api.AuthReply], error)
	ForgotPassword(ctx context.Context, email string) (*api.Call[api.AuthReply], error)
	ResetPassword(ctx context.Context, token, email, password, confirm string) (*api.Call[api.AuthReply], error)
	Scores(ctx context.Context, table string) (*api.Call[[]scoreboard.Score], error)
	Submit(ctx context.Context, sub submission.Submission) (*api.Call[submission.Result], error)
}

type Logger interface {
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

type ScreenID int

const (
	ScreenLogin ScreenID = iota
	ScreenChallenges
	ScreenEditor
	ScreenScoreboard
	ScreenPassword
)

func (id ScreenID) String() string {
	switch id {
	case ScreenLogin:
		return "login"
	case ScreenChallenges:
		return "challenges"
	case ScreenEditor:
		return "editor"
	case ScreenScoreboard:
		return "scoreboard"
	case ScreenPassword:
		return "password"
	default:
		return "unknown"
	}
}

// Screen is one tab of the client. Screens never block: Update starts calls
// and polls them on tickMsg.
type Screen interface {
	ID() ScreenID
	Title() string
	Update(ctx context.Context, msg tea.Msg) tea.Cmd
	View(width, height int) string
	// Busy reports a call in flight.
	Busy() bool
	// Redraw reports whether anything visible changed since the last call.
	Redraw() bool
}

type LayoutMode int

const (
	LayoutWide LayoutMode = iota
	LayoutMedium
	LayoutTooSmall
)

type BackgroundStatus struct {
	Challenges string
	Refreshing bool
	LoginError string
}
