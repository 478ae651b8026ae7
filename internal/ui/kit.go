package ui

import (
	"strings"

	"codechallenge/internal/request"
	"codechallenge/internal/session"
	"codechallenge/internal/submission"

	"charm.land/bubbles/v2/spinner"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/x/ansi"
)

// kit is what every screen shares with the root.
type kit struct {
	theme    Theme
	ascii    bool
	api      API
	session  *session.State
	markdown *glamour.TermRenderer
	spin     *spinner.Model

	onSubmitted func(submission.Submission)
	onLoggedOut func()
}

func (k *kit) spinner() string {
	if k.spin == nil || k.ascii {
		return "..."
	}
	return k.spin.View()
}

// renderMarkdown falls back to the raw text when glamour is unavailable.
func (k *kit) renderMarkdown(md string) string {
	if k.markdown == nil {
		return md
	}
	out, err := k.markdown.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

// outcome renders the status of the last call of a screen.
func (k *kit) outcome(state request.State, ok, failure string) string {
	switch state {
	case request.InProgress:
		return k.theme.Pending.Render(k.spinner() + " Loading...")
	case request.Success:
		return k.theme.Pass.Render(ok)
	case request.Failed:
		return k.theme.Fail.Render(failure)
	}
	return ""
}

func (k *kit) drawPanel(title string, lines []string, width, height int) string {
	width = max(4, width)
	height = max(3, height)
	innerW := width - 2
	innerH := height - 2

	h := "─"
	v := "│"
	tl := "┌"
	tr := "┐"
	bl := "└"
	br := "┘"
	if k.ascii {
		h = "-"
		v = "|"
		tl, tr, bl, br = "+", "+", "+", "+"
	}

	top := tl + strings.Repeat(h, innerW) + tr
	if title != "" && innerW > 2 {
		t := " " + title + " "
		runes := []rune(top)
		start := 1
		for i, ch := range []rune(t) {
			pos := start + i
			if pos >= len(runes)-1 {
				break
			}
			runes[pos] = ch
		}
		top = string(runes)
	}

	out := make([]string, 0, height)
	out = append(out, k.theme.PanelBorder.Render(top))
	for row := 0; row < innerH; row++ {
		line := ""
		if row < len(lines) {
			line = lines[row]
		}
		line = fitCells(line, innerW)
		out = append(out, k.theme.PanelBorder.Render(v)+k.theme.PanelBody.Render(line)+k.theme.PanelBorder.Render(v))
	}
	out = append(out, k.theme.PanelBorder.Render(bl+strings.Repeat(h, innerW)+br))
	return strings.Join(out, "\n")
}

// fitCells truncates or pads s, which may carry ANSI styling, to exactly
// width terminal cells.
func fitCells(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = strings.ReplaceAll(s, "\t", "    ")
	if ansi.StringWidth(s) > width {
		s = ansi.Truncate(s, width, "…")
	}
	if pad := width - ansi.StringWidth(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

func trimForWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(strings.ReplaceAll(ansi.Strip(s), "\n", " "))
	if len(r) <= width {
		return string(r)
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}

func wrapIndex(i, n int) int {
	if n <= 0 {
		return 0
	}
	if i < 0 {
		i = n - 1
	}
	if i >= n {
		i = 0
	}
	return i
}

func splitLines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}
