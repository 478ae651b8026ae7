package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"codechallenge/internal/request"
	"codechallenge/internal/submission"

	"charm.land/bubbles/v2/textarea"
	tea "charm.land/bubbletea/v2"
	"github.com/alecthomas/chroma/v2/quick"
	"github.com/dustin/go-humanize"
)

const (
	focusFilename = iota
	focusCode
)

// editorScreen edits a source file or holds a loaded binary and submits it
// for judging, either as a test run or as a scored submission.
type editorScreen struct {
	k *kit

	challenge string
	language  int
	filename  fields
	code      textarea.Model
	binary    []byte
	focus     int
	preview   bool
	autoName  string

	submit  pending[submission.Result]
	testRun bool
	notice  string
}

func newEditorScreen(k *kit, challenge string, lang submission.Language) *editorScreen {
	s := &editorScreen{k: k, challenge: challenge}
	for i, l := range submission.Languages() {
		if l == lang {
			s.language = i
		}
	}
	s.filename = newFields(newField("File", "solution.py", false))
	s.code = textarea.New()
	s.code.Placeholder = "Write your solution here"
	s.code.ShowLineNumbers = true
	s.code.Blur()
	s.filename.items[0].input.Blur()
	s.applyAutoName()
	return s
}

func (s *editorScreen) ID() ScreenID  { return ScreenEditor }
func (s *editorScreen) Title() string { return "Editor" }
func (s *editorScreen) Busy() bool    { return s.submit.busy() }
func (s *editorScreen) Redraw() bool  { return s.submit.redraw() }

func (s *editorScreen) lang() submission.Language {
	return submission.Languages()[s.language]
}

// applyAutoName keeps the default filename in step with the language until
// the user types their own.
func (s *editorScreen) applyAutoName() {
	current := s.filename.value(0)
	if current != "" && current != s.autoName {
		return
	}
	s.autoName = "solution" + s.lang().Extension()
	s.filename.set(0, s.autoName)
}

func (s *editorScreen) setFocus(focus int) tea.Cmd {
	s.focus = focus
	if focus == focusCode {
		s.filename.items[0].input.Blur()
		return s.code.Focus()
	}
	s.code.Blur()
	return s.filename.items[0].input.Focus()
}

func (s *editorScreen) Update(ctx context.Context, msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tickMsg:
		if res, ok := s.submit.poll(); ok && res.State == request.Success {
			s.notice = ""
		}
		return nil
	case navigateMsg:
		if msg.challenge != "" {
			s.challenge = msg.challenge
		}
		return s.setFocus(focusCode)
	case activateMsg:
		return s.setFocus(s.focus)
	case tea.KeyPressMsg:
		switch msg.String() {
		case "tab":
			if s.focus == focusFilename {
				return s.setFocus(focusCode)
			}
		case "shift+tab", "esc":
			return s.setFocus(focusFilename)
		case "ctrl+n":
			s.cycleChallenge(1)
			return nil
		case "ctrl+b":
			s.cycleChallenge(-1)
			return nil
		case "ctrl+l":
			s.language = wrapIndex(s.language+1, len(submission.Languages()))
			s.applyAutoName()
			return nil
		case "ctrl+p":
			s.preview = !s.preview
			return nil
		case "ctrl+o":
			s.load()
			return nil
		case "ctrl+s":
			s.send(ctx, false)
			return nil
		case "ctrl+t":
			s.send(ctx, true)
			return nil
		}
	}
	if s.focus == focusFilename {
		cmd := s.filename.update(msg)
		if l, ok := submission.LanguageFromFilename(s.filename.value(0)); ok {
			s.selectLanguage(l)
		}
		return cmd
	}
	if s.binary != nil {
		return nil
	}
	var cmd tea.Cmd
	s.code, cmd = s.code.Update(msg)
	return cmd
}

func (s *editorScreen) selectLanguage(l submission.Language) {
	for i, cand := range submission.Languages() {
		if cand == l {
			s.language = i
		}
	}
}

func (s *editorScreen) cycleChallenge(delta int) {
	commands := s.k.session.Challenges().Commands()
	if len(commands) == 0 {
		return
	}
	idx := -1
	for i, c := range commands {
		if c == s.challenge {
			idx = i
		}
	}
	if idx < 0 && delta < 0 {
		idx = 0
	}
	s.challenge = commands[wrapIndex(idx+delta, len(commands))]
}

// load reads the file named in the filename field. Text goes into the
// editor; anything else is kept as a binary upload.
func (s *editorScreen) load() {
	path := s.filename.value(0)
	if path == "" {
		s.submit.fail(submission.ErrFilenameUnset)
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		s.submit.fail(err)
		return
	}
	s.filename.set(0, filepath.Base(path))
	s.autoName = ""
	if l, ok := submission.LanguageFromFilename(path); ok {
		s.selectLanguage(l)
	}
	if utf8.Valid(data) && !strings.ContainsRune(string(data), 0) {
		s.binary = nil
		s.code.SetValue(string(data))
		s.notice = "Loaded " + filepath.Base(path)
	} else {
		s.binary = data
		s.code.SetValue("")
		s.notice = fmt.Sprintf("Loaded binary %s (%s)", filepath.Base(path), humanize.Bytes(uint64(len(data))))
	}
	s.submit.changed = true
}

func (s *editorScreen) send(ctx context.Context, test bool) {
	if s.submit.busy() {
		return
	}
	sub := submission.Submission{
		Player:    s.k.session.Login().User,
		Challenge: s.challenge,
		Filename:  s.filename.value(0),
		Language:  s.lang(),
		Test:      test,
		Code:      s.code.Value(),
		Binary:    s.binary,
	}
	if s.binary != nil {
		sub.Code = ""
	}
	s.testRun = test
	call, err := s.k.api.Submit(ctx, sub)
	if err != nil {
		s.submit.fail(err)
		return
	}
	s.submit.start(call)
	if s.k.onSubmitted != nil {
		s.k.onSubmitted(sub)
	}
}

// highlight renders src with chroma, falling back to plain text.
func highlight(src string, lang submission.Language, style string) string {
	var b strings.Builder
	chromaStyle := "monokai"
	if style == "light" {
		chromaStyle = "github"
	}
	if err := quick.Highlight(&b, src, lang.Lexer(), "terminal256", chromaStyle); err != nil {
		return src
	}
	return b.String()
}

func (s *editorScreen) View(width, height int) string {
	challenge := s.challenge
	if challenge == "" {
		challenge = "none"
	}
	head := []string{
		s.k.theme.Muted.Render("challenge ") + s.k.theme.Accent.Render(challenge) +
			s.k.theme.Muted.Render("   language ") + s.k.theme.Accent.Render(s.lang().String()),
	}
	head = append(head, s.filename.lines(s.k, width-2)[0])

	bodyH := max(3, height-8)
	var body []string
	switch {
	case s.binary != nil:
		body = []string{s.k.theme.Info.Render(s.notice), s.k.theme.Muted.Render("esc to edit the filename, ctrl+o to load another file")}
	case s.preview:
		body = splitLines(highlight(s.code.Value(), s.lang(), s.k.theme.Markdown))
	default:
		s.code.SetWidth(max(10, width-2))
		s.code.SetHeight(bodyH)
		body = splitLines(s.code.View())
	}
	if len(body) > bodyH {
		body = body[:bodyH]
	}
	for len(body) < bodyH {
		body = append(body, "")
	}

	lines := append(head, "")
	lines = append(lines, body...)
	kind := "Submission"
	if s.testRun {
		kind = "Test run"
	}
	switch res := s.submit.last; res.State {
	case request.Success:
		style := s.k.theme.Pass
		if !res.Value.Accepted() {
			style = s.k.theme.Fail
		}
		lines = append(lines, style.Render(kind+": "+res.Value.String()))
	case request.NotStarted:
		if s.notice != "" && s.binary == nil {
			lines = append(lines, s.k.theme.Info.Render(s.notice))
		} else {
			lines = append(lines, "")
		}
	default:
		lines = append(lines, s.k.outcome(res.State, "", res.Err))
	}
	lines = append(lines, s.k.theme.Muted.Render("ctrl+s submit · ctrl+t test · ctrl+l language · ctrl+n/ctrl+b challenge · ctrl+o load · ctrl+p preview"))
	return s.k.drawPanel("Editor", lines, width, height)
}
