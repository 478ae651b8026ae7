package ui

import (
	"context"
	"strings"

	"codechallenge/internal/api"
	"codechallenge/internal/request"

	tea "charm.land/bubbletea/v2"
)

type loginMode int

const (
	modeLogin loginMode = iota
	modeRegister
	modeForgot
)

func (m loginMode) String() string {
	switch m {
	case modeRegister:
		return "Register"
	case modeForgot:
		return "Forgot password"
	default:
		return "Login"
	}
}

const (
	loginName = iota
	loginEmail
	loginPassword
)

// loginScreen covers login, logout, registration and the forgot-password
// request. Only the fields of the current mode are shown.
type loginScreen struct {
	k    *kit
	mode loginMode
	form fields

	auth   pending[api.AuthReply]
	logout pending[struct{}]
	done   string
}

func newLoginScreen(k *kit) *loginScreen {
	s := &loginScreen{k: k}
	s.form = newFields(
		newField("Email", "you@example.com", false),
		newField("Password", "", true),
	)
	return s
}

func (s *loginScreen) ID() ScreenID  { return ScreenLogin }
func (s *loginScreen) Title() string { return "Login" }

func (s *loginScreen) Busy() bool { return s.auth.busy() || s.logout.busy() }

func (s *loginScreen) Redraw() bool {
	a := s.auth.redraw()
	b := s.logout.redraw()
	return a || b
}

func (s *loginScreen) setMode(mode loginMode) {
	email := s.emailValue()
	s.mode = mode
	switch mode {
	case modeRegister:
		s.form = newFields(
			newField("Name", "display name", false),
			newField("Email", "you@example.com", false),
			newField("Password", "", true),
		)
	case modeForgot:
		s.form = newFields(newField("Email", "you@example.com", false))
	default:
		s.form = newFields(
			newField("Email", "you@example.com", false),
			newField("Password", "", true),
		)
	}
	s.setEmail(email)
	s.auth.changed = true
}

func (s *loginScreen) index(which int) int {
	switch s.mode {
	case modeRegister:
		return which
	case modeForgot:
		if which == loginEmail {
			return 0
		}
		return -1
	default:
		return which - 1
	}
}

func (s *loginScreen) emailValue() string { return s.form.value(s.index(loginEmail)) }

func (s *loginScreen) setEmail(v string) { s.form.set(s.index(loginEmail), v) }

func (s *loginScreen) Update(ctx context.Context, msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tickMsg:
		if res, ok := s.auth.poll(); ok && res.State == request.Success {
			s.done = doneMessage(s.mode, res.Value)
			s.form.set(s.index(loginPassword), "")
		}
		if res, ok := s.logout.poll(); ok {
			s.k.session.SetLoggedOut()
			if res.State == request.Success {
				s.done = "Logged out"
			}
			if s.k.onLoggedOut != nil {
				s.k.onLoggedOut()
			}
		}
		return nil
	case tea.KeyPressMsg:
		switch msg.String() {
		case "tab", "down":
			return s.form.move(1)
		case "shift+tab", "up":
			return s.form.move(-1)
		case "ctrl+r":
			s.setMode(wrapLoginMode(s.mode + 1))
			return nil
		case "ctrl+o":
			if s.k.session.LoggedIn() && !s.logout.busy() {
				s.done = ""
				s.logout.start(s.k.api.Logout(ctx))
			}
			return nil
		case "enter":
			s.submit(ctx)
			return nil
		}
	}
	return s.form.update(msg)
}

func wrapLoginMode(m loginMode) loginMode {
	return loginMode(wrapIndex(int(m), 3))
}

func doneMessage(mode loginMode, reply api.AuthReply) string {
	msg := strings.TrimSpace(reply.Message)
	switch mode {
	case modeRegister:
		if msg == "" {
			msg = "Registered. You can log in now."
		}
	case modeForgot:
		if msg == "" {
			msg = "Check your inbox for a reset link."
		}
	default:
		msg = "Logged in"
	}
	return msg
}

func (s *loginScreen) submit(ctx context.Context) {
	if s.auth.busy() {
		return
	}
	s.done = ""
	var (
		call *api.Call[api.AuthReply]
		err  error
	)
	switch s.mode {
	case modeRegister:
		call, err = s.k.api.Register(ctx, s.form.value(loginName), s.emailValue(), s.form.raw(s.index(loginPassword)))
	case modeForgot:
		call, err = s.k.api.ForgotPassword(ctx, s.emailValue())
	default:
		call, err = s.k.api.Login(ctx, s.emailValue(), s.form.raw(s.index(loginPassword)))
	}
	if err != nil {
		s.auth.fail(err)
		return
	}
	s.auth.start(call)
}

func (s *loginScreen) View(width, height int) string {
	login := s.k.session.Login()
	lines := []string{}
	if login.LoggedIn {
		user := login.User
		if user == "" {
			user = "current user"
		}
		lines = append(lines, s.k.theme.Pass.Render("Logged in as "+user), s.k.theme.Muted.Render("ctrl+o logs out"), "")
	} else {
		lines = append(lines, s.k.theme.Muted.Render("Not logged in"), "")
	}
	lines = append(lines, s.k.theme.Accent.Render(s.mode.String()), "")
	lines = append(lines, s.form.lines(s.k, width-2)...)

	switch {
	case s.logout.busy():
		lines = append(lines, s.k.outcome(request.InProgress, "", ""))
	case s.logout.last.State == request.Failed:
		lines = append(lines, s.k.outcome(request.Failed, "", s.logout.last.Err))
	}
	if st := s.auth.last.State; st != request.NotStarted {
		lines = append(lines, s.k.outcome(st, s.done, s.auth.last.Err))
	} else if s.done != "" {
		lines = append(lines, s.k.theme.Pass.Render(s.done))
	}
	lines = append(lines, "", s.k.theme.Muted.Render("enter submit · tab next field · ctrl+r switch login/register/forgot"))
	return s.k.drawPanel(s.mode.String(), lines, width, height)
}
