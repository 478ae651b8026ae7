package ui

import (
	"context"
	"fmt"
	"strings"

	"codechallenge/internal/request"
	"codechallenge/internal/scoreboard"

	tea "charm.land/bubbletea/v2"
)

var sortColumns = []scoreboard.SortColumn{
	scoreboard.ByTime,
	scoreboard.ByName,
	scoreboard.ByLanguage,
	scoreboard.ByCommand,
}

type scoreboardScreen struct {
	k *kit

	table  string
	filter scoreboard.Filter
	sortBy int
	scores []scoreboard.Score
	loaded string

	fetch pending[[]scoreboard.Score]
}

func newScoreboardScreen(k *kit) *scoreboardScreen {
	return &scoreboardScreen{k: k}
}

func (s *scoreboardScreen) ID() ScreenID  { return ScreenScoreboard }
func (s *scoreboardScreen) Title() string { return "Scores" }
func (s *scoreboardScreen) Busy() bool    { return s.fetch.busy() }
func (s *scoreboardScreen) Redraw() bool  { return s.fetch.redraw() }

func (s *scoreboardScreen) Update(ctx context.Context, msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tickMsg:
		if res, ok := s.fetch.poll(); ok && res.State == request.Success {
			s.scores = res.Value
		}
	case navigateMsg:
		if msg.table != "" && msg.table != s.loaded {
			s.table = msg.table
			s.load(ctx)
		}
	case activateMsg:
		if s.table == "" {
			if tables := s.k.session.Challenges().Tables(); len(tables) > 0 {
				s.table = tables[0]
			}
		}
		if s.table != "" && s.loaded == "" {
			s.load(ctx)
		}
	case tea.KeyPressMsg:
		switch msg.String() {
		case "left", "h":
			s.cycleTable(ctx, -1)
		case "right", "l":
			s.cycleTable(ctx, 1)
		case "f":
			s.filter = scoreboard.Filter(wrapIndex(int(s.filter)+1, 3))
			s.fetch.changed = true
		case "o":
			s.sortBy = wrapIndex(s.sortBy+1, len(sortColumns))
			s.fetch.changed = true
		case "r", "enter":
			s.load(ctx)
		}
	}
	return nil
}

func (s *scoreboardScreen) cycleTable(ctx context.Context, delta int) {
	tables := s.k.session.Challenges().Tables()
	if len(tables) == 0 {
		return
	}
	idx := -1
	for i, t := range tables {
		if t == s.table {
			idx = i
		}
	}
	if idx < 0 && delta < 0 {
		idx = 0
	}
	s.table = tables[wrapIndex(idx+delta, len(tables))]
	s.load(ctx)
}

func (s *scoreboardScreen) load(ctx context.Context) {
	if s.fetch.busy() {
		return
	}
	call, err := s.k.api.Scores(ctx, s.table)
	if err != nil {
		s.fetch.fail(err)
		return
	}
	s.scores = nil
	s.loaded = s.table
	s.fetch.start(call)
}

func (s *scoreboardScreen) View(width, height int) string {
	table := s.table
	if table == "" {
		table = "None"
	}
	col := sortColumns[s.sortBy]
	lines := []string{
		s.k.theme.Muted.Render("table ") + s.k.theme.Accent.Render(table) +
			s.k.theme.Muted.Render("   filter ") + s.k.theme.Accent.Render(s.filter.String()) +
			s.k.theme.Muted.Render("   sort ") + s.k.theme.Accent.Render(string(col)),
		"",
	}

	inner := max(20, width-2)
	nameW := max(8, (inner-26)/3)
	langW := 12
	cmdW := max(6, inner-8-nameW-langW-12)
	row := func(rank, name, lang, cmd, tm string) string {
		return fitCells(rank, 5) + " " + fitCells(name, nameW) + " " + fitCells(lang, langW) + " " + fitCells(cmd, cmdW) + " " + tm
	}
	lines = append(lines, s.k.theme.Accent.Render(row("#", "Name", "Language", "Command", "Time")))

	switch res := s.fetch.last; {
	case s.fetch.busy():
		lines = append(lines, s.k.outcome(request.InProgress, "", ""))
	case res.State == request.Failed:
		lines = append(lines, s.k.outcome(request.Failed, "", res.Err))
	case len(s.scores) == 0 && res.State == request.Success:
		lines = append(lines, s.k.theme.Muted.Render("No scores yet"))
	}
	for i, sc := range scoreboard.Apply(s.scores, s.filter, col) {
		if len(lines) >= height-4 {
			break
		}
		lines = append(lines, row(fmt.Sprintf("%d", i+1), sc.Name, sc.Language, sc.Command, scoreboard.FormatTime(sc.TimeNs)))
	}
	lines = append(lines, "", s.k.theme.Muted.Render(strings.Join([]string{"←/→ table", "f filter", "o sort", "r reload"}, " · ")))
	return s.k.drawPanel("Scoreboard", lines, width, height)
}
