package ui

import (
	"context"
	"strings"

	"codechallenge/internal/api"
	"codechallenge/internal/request"

	tea "charm.land/bubbletea/v2"
)

const (
	resetToken = iota
	resetEmail
	resetPassword
	resetConfirm
)

type passwordScreen struct {
	k     *kit
	form  fields
	reset pending[api.AuthReply]
}

func newPasswordScreen(k *kit) *passwordScreen {
	return &passwordScreen{
		k: k,
		form: newFields(
			newField("Token", "from the reset email", false),
			newField("Email", "you@example.com", false),
			newField("Password", "", true),
			newField("Confirm", "", true),
		),
	}
}

func (s *passwordScreen) ID() ScreenID  { return ScreenPassword }
func (s *passwordScreen) Title() string { return "Password" }
func (s *passwordScreen) Busy() bool    { return s.reset.busy() }
func (s *passwordScreen) Redraw() bool  { return s.reset.redraw() }

func (s *passwordScreen) Update(ctx context.Context, msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tickMsg:
		if res, ok := s.reset.poll(); ok && res.State == request.Success {
			s.form.set(resetPassword, "")
			s.form.set(resetConfirm, "")
		}
		return nil
	case tea.KeyPressMsg:
		switch msg.String() {
		case "tab", "down":
			return s.form.move(1)
		case "shift+tab", "up":
			return s.form.move(-1)
		case "enter":
			if s.reset.busy() {
				return nil
			}
			call, err := s.k.api.ResetPassword(ctx,
				s.form.value(resetToken),
				s.form.value(resetEmail),
				s.form.raw(resetPassword),
				s.form.raw(resetConfirm),
			)
			if err != nil {
				s.reset.fail(err)
				return nil
			}
			s.reset.start(call)
			return nil
		}
	}
	return s.form.update(msg)
}

func (s *passwordScreen) View(width, height int) string {
	lines := []string{s.k.theme.Accent.Render("Reset password"), ""}
	lines = append(lines, s.form.lines(s.k, width-2)...)
	res := s.reset.last
	done := strings.TrimSpace(res.Value.Message)
	if done == "" {
		done = "Password changed"
	}
	lines = append(lines, s.k.outcome(res.State, done, res.Err))
	lines = append(lines, "", s.k.theme.Muted.Render("enter submit · tab next field"))
	return s.k.drawPanel("Password", lines, width, height)
}
