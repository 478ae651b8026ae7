package ui

import (
	"context"
	"fmt"

	"codechallenge/internal/challenges"

	"charm.land/lipgloss/v2"
	tea "charm.land/bubbletea/v2"
)

const instructionsUnavailable = "Unable to load instructions"

type challengesScreen struct {
	k        *kit
	refetch  func()
	index    int
	seen     int
	changed  bool
	rendered map[string]string
}

func newChallengesScreen(k *kit, refetch func()) *challengesScreen {
	return &challengesScreen{k: k, refetch: refetch, rendered: map[string]string{}}
}

func (s *challengesScreen) ID() ScreenID  { return ScreenChallenges }
func (s *challengesScreen) Title() string { return "Challenges" }
func (s *challengesScreen) Busy() bool    { return false }

func (s *challengesScreen) Redraw() bool {
	changed := s.changed
	s.changed = false
	return changed
}

func (s *challengesScreen) selected(coll challenges.Collection) (challenges.Challenge, bool) {
	if coll.Len() == 0 {
		return challenges.Challenge{}, false
	}
	s.index = wrapIndex(s.index, coll.Len())
	return coll.Items[s.index], true
}

func (s *challengesScreen) Update(ctx context.Context, msg tea.Msg) tea.Cmd {
	coll := s.k.session.Challenges()
	switch msg := msg.(type) {
	case tickMsg:
		if n := coll.Len(); n != s.seen {
			s.seen = n
			s.rendered = map[string]string{}
			s.changed = true
		}
	case navigateMsg:
		if msg.challenge == "" {
			return nil
		}
		for i, ch := range coll.Items {
			if ch.Command == msg.challenge {
				s.index = i
			}
		}
	case tea.KeyPressMsg:
		switch msg.String() {
		case "up", "k":
			s.index = wrapIndex(s.index-1, coll.Len())
		case "down", "j":
			s.index = wrapIndex(s.index+1, coll.Len())
		case "r":
			if s.refetch != nil {
				s.refetch()
			}
		case "enter", "e":
			if ch, ok := s.selected(coll); ok {
				return navigate(ScreenEditor, ch.Command, "")
			}
		case "s":
			if ch, ok := s.selected(coll); ok {
				return navigate(ScreenScoreboard, ch.Command, ch.Table)
			}
		}
	}
	return nil
}

func (s *challengesScreen) instructions(command string) string {
	if out, ok := s.rendered[command]; ok {
		return out
	}
	doc, err := s.k.session.Challenges().Instructions(command)
	if err != nil || doc == "" {
		return instructionsUnavailable
	}
	out := s.k.renderMarkdown(doc)
	s.rendered[command] = out
	return out
}

func (s *challengesScreen) View(width, height int) string {
	coll := s.k.session.Challenges()
	listW := min(32, max(20, width/3))
	if DetermineLayoutMode(width, height+4) != LayoutWide {
		listW = min(24, max(16, width/4))
	}

	var lines []string
	if coll.Len() == 0 {
		lines = append(lines, s.k.theme.Pending.Render(s.k.spinner()+" Loading..."))
	}
	for i, ch := range coll.Items {
		name := ch.Name
		if name == "" {
			name = ch.Command
		}
		if i == s.index {
			lines = append(lines, s.k.theme.Selected.Render("> "+name))
		} else {
			lines = append(lines, "  "+name)
		}
	}
	left := s.k.drawPanel(fmt.Sprintf("Challenges (%d)", coll.Len()), lines, listW, height)

	body := []string{}
	if ch, ok := s.selected(coll); ok {
		body = append(body, s.k.theme.Accent.Render(ch.Name), s.k.theme.Muted.Render("command: "+ch.Command+"  table: "+ch.Table), "")
		body = append(body, splitLines(s.instructions(ch.Command))...)
	}
	body = append(body, "", s.k.theme.Muted.Render("enter solve · s scores · r reload"))
	right := s.k.drawPanel("Instructions", body, width-lipgloss.Width(left), height)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}
