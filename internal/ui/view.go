package ui

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"codechallenge/internal/session"
	"codechallenge/internal/submission"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"
)

type applyMsg struct {
	fn func(*Root)
}

type drawMsg struct{}
type tickMsg time.Time

// activateMsg is sent to a screen when it becomes the active tab.
type activateMsg struct{}

type navigateMsg struct {
	to        ScreenID
	challenge string
	table     string
}

func navigate(to ScreenID, challenge, table string) tea.Cmd {
	return func() tea.Msg {
		return navigateMsg{to: to, challenge: challenge, table: table}
	}
}

type rootKeyMap struct {
	Login      key.Binding
	Challenges key.Binding
	Editor     key.Binding
	Scores     key.Binding
	Password   key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func (k rootKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Login, k.Challenges, k.Editor, k.Scores, k.Password, k.Help, k.Quit}
}

func (k rootKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Login, k.Challenges, k.Editor}, {k.Scores, k.Password}, {k.Help, k.Quit}}
}

func (k rootKeyMap) screenFor(msg tea.KeyPressMsg) (ScreenID, bool) {
	switch {
	case key.Matches(msg, k.Login):
		return ScreenLogin, true
	case key.Matches(msg, k.Challenges):
		return ScreenChallenges, true
	case key.Matches(msg, k.Editor):
		return ScreenEditor, true
	case key.Matches(msg, k.Scores):
		return ScreenScoreboard, true
	case key.Matches(msg, k.Password):
		return ScreenPassword, true
	}
	return 0, false
}

type Root struct {
	kit    *kit
	theme  Theme
	ascii  bool
	ctrl   Controller
	logger Logger
	tick   time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	program *tea.Program
	running bool

	screens []Screen
	active  ScreenID
	layout  LayoutMode
	cols    int
	rows    int

	statusFlash string

	help   help.Model
	keymap rootKeyMap
	spin   spinner.Model

	drawPending atomic.Bool
	dirty       bool
	frame       string
	frames      int

	lastInputEvent string
}

type Options struct {
	API     API
	Session *session.State
	Style   string
	ASCII   bool
	Tick    time.Duration
	Logger  Logger

	// Challenge and Language preselect the editor.
	Challenge string
	Language  submission.Language
}

func New(opts Options) *Root {
	theme := ThemeForStyle(opts.Style)
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(theme.Markdown),
		glamour.WithWordWrap(78),
	)
	if err != nil {
		renderer = nil
	}

	h := help.New()
	h.Styles = help.DefaultDarkStyles()
	if theme.Markdown == "light" {
		h.Styles = help.DefaultLightStyles()
	}
	tick := opts.Tick
	if tick <= 0 {
		tick = 100 * time.Millisecond
	}
	sess := opts.Session
	if sess == nil {
		sess = session.New()
	}
	lang := opts.Language
	if !lang.Valid() {
		lang = submission.Python
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Root{
		theme:  theme,
		ascii:  opts.ASCII,
		logger: opts.Logger,
		tick:   tick,
		ctx:    ctx,
		cancel: cancel,
		layout: LayoutWide,
		cols:   120,
		rows:   30,
		help:   h,
		spin: spinner.New(
			spinner.WithSpinner(spinner.MiniDot),
			spinner.WithStyle(theme.Accent),
		),
		dirty: true,
	}
	r.kit = &kit{
		theme:    theme,
		ascii:    r.ascii,
		api:      opts.API,
		session:  sess,
		markdown: renderer,
		spin:     &r.spin,
		onSubmitted: func(sub submission.Submission) {
			r.dispatchController(func(c Controller) { c.OnSubmitted(sub) })
		},
		onLoggedOut: func() {
			r.dispatchController(func(c Controller) { c.OnLoggedOut() })
		},
	}
	r.screens = []Screen{
		newLoginScreen(r.kit),
		newChallengesScreen(r.kit, r.refetchChallenges),
		newEditorScreen(r.kit, opts.Challenge, lang),
		newScoreboardScreen(r.kit),
		newPasswordScreen(r.kit),
	}
	if sess.LoggedIn() {
		r.active = ScreenChallenges
	}
	r.keymap = rootKeyMap{
		Login:      key.NewBinding(key.WithKeys("f1"), key.WithHelp("F1", "Login")),
		Challenges: key.NewBinding(key.WithKeys("f2"), key.WithHelp("F2", "Challenges")),
		Editor:     key.NewBinding(key.WithKeys("f3"), key.WithHelp("F3", "Editor")),
		Scores:     key.NewBinding(key.WithKeys("f4"), key.WithHelp("F4", "Scores")),
		Password:   key.NewBinding(key.WithKeys("f5"), key.WithHelp("F5", "Password")),
		Help:       key.NewBinding(key.WithKeys("f10"), key.WithHelp("F10", "Help")),
		Quit:       key.NewBinding(key.WithKeys("ctrl+q", "ctrl+c"), key.WithHelp("ctrl+q", "Quit")),
	}
	return r
}

func (r *Root) Init() tea.Cmd {
	return tea.Batch(tickCmd(r.tick), spinnerTickCmd(r.spin), r.current().Update(r.ctx, activateMsg{}))
}

func (r *Root) Update(msg tea.Msg) (model tea.Model, cmd tea.Cmd) {
	defer func() {
		if rec := recover(); rec != nil {
			r.onModelPanic("update", rec, msg)
			r.dirty = true
			model = r
			cmd = nil
		}
	}()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.cols = msg.Width
		r.rows = msg.Height
		r.layout = DetermineLayoutMode(r.cols, r.rows)
		r.dirty = true
		return r, nil
	case applyMsg:
		if msg.fn != nil {
			msg.fn(r)
		}
		r.dirty = true
		return r, nil
	case drawMsg:
		r.drawPending.Store(false)
		r.dirty = true
		return r, nil
	case tickMsg:
		cmd := r.onTick(msg)
		return r, tea.Batch(cmd, tickCmd(r.tick))
	case spinner.TickMsg:
		var cmd tea.Cmd
		r.spin, cmd = r.spin.Update(msg)
		if r.busy() {
			r.dirty = true
		}
		return r, cmd
	case navigateMsg:
		r.active = msg.to
		r.dirty = true
		return r, r.current().Update(r.ctx, msg)
	case tea.KeyPressMsg:
		return r.handleKey(msg)
	}
	r.dirty = true
	return r, r.current().Update(r.ctx, msg)
}

// onTick drives the background tickers and every screen's calls, and marks
// the frame dirty only when one of them reports a change.
func (r *Root) onTick(msg tickMsg) tea.Cmd {
	changed := false
	if r.ctrl != nil && r.ctrl.OnTick(r.ctx) {
		changed = true
	}
	cmds := make([]tea.Cmd, 0, len(r.screens))
	for _, s := range r.screens {
		cmds = append(cmds, s.Update(r.ctx, msg))
		if s.Redraw() {
			changed = true
		}
	}
	if changed {
		r.dirty = true
	}
	return tea.Batch(cmds...)
}

func (r *Root) View() (view tea.View) {
	defer func() {
		if rec := recover(); rec != nil {
			r.onModelPanic("view", rec, nil)
			width := max(1, r.cols)
			msg := "UI recovered from a rendering panic. Check logs."
			if r.statusFlash == "" {
				r.statusFlash = "Recovered UI panic"
			}
			r.frame = ""
			view = tea.NewView(r.theme.Fail.Width(width).Render(trimForWidth(msg, max(1, width-1))))
		}
	}()

	if r.cols < 1 {
		r.cols = 120
	}
	if r.rows < 1 {
		r.rows = 30
	}
	if r.dirty || r.frame == "" {
		r.frame = r.render()
		r.frames++
		r.dirty = false
	}
	v := tea.NewView(r.frame)
	v.AltScreen = true
	return v
}

func (r *Root) render() string {
	w, h := r.cols, r.rows
	if r.layout == LayoutTooSmall {
		return r.theme.Fail.Render(trimForWidth(fmt.Sprintf("Terminal too small (%dx%d). Resize to at least 60x16.", w, h), w))
	}
	header := r.headerText(w)
	status := r.theme.Status.Width(max(1, w)).Render(trimForWidth(r.statusText(), max(1, w-2)))
	helpLine := r.help.View(r.keymap)
	bodyH := max(3, h-2-lipgloss.Height(helpLine))
	body := r.current().View(w, bodyH)
	return strings.Join([]string{header, body, status, helpLine}, "\n")
}

func (r *Root) headerText(width int) string {
	tabs := make([]string, 0, len(r.screens))
	for i, s := range r.screens {
		label := fmt.Sprintf("F%d %s", i+1, s.Title())
		if s.ID() == r.active {
			tabs = append(tabs, r.theme.TabActive.Render(label))
		} else {
			tabs = append(tabs, r.theme.Tab.Render(label))
		}
	}
	left := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	user := "logged out"
	if login := r.kit.session.Login(); login.LoggedIn {
		user = login.User
		if user == "" {
			user = "logged in"
		}
	}
	gap := max(1, width-lipgloss.Width(left)-lipgloss.Width(user)-2)
	return r.theme.Header.Width(max(1, width)).Render(left + strings.Repeat(" ", gap) + user)
}

func (r *Root) statusText() string {
	if r.statusFlash != "" {
		return r.statusFlash
	}
	if r.ctrl == nil {
		return "codechallenge"
	}
	st := r.ctrl.Status()
	parts := []string{"challenges: " + st.Challenges}
	if st.Refreshing {
		parts = append(parts, "refreshing session")
	}
	if st.LoginError != "" {
		parts = append(parts, "session: "+st.LoginError)
	}
	return strings.Join(parts, " · ")
}

func (r *Root) Run() error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	p := tea.NewProgram(r)
	r.program = p
	r.running = true
	r.mu.Unlock()

	_, err := p.Run()

	r.mu.Lock()
	r.program = nil
	r.running = false
	r.mu.Unlock()
	r.cancel()
	return err
}

func (r *Root) Stop() {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Quit()
	}
}

func (r *Root) SetController(c Controller) {
	r.ctrl = c
}

func (r *Root) SetScreen(id ScreenID) {
	r.apply(func(m *Root) {
		m.active = id
		_ = m.current().Update(m.ctx, activateMsg{})
	})
}

func (r *Root) FlashStatus(msg string) {
	r.apply(func(m *Root) {
		m.statusFlash = msg
	})
}

// RequestDraw may be called from any goroutine; bursts collapse into one
// frame.
func (r *Root) RequestDraw() {
	r.mu.Lock()
	p := r.program
	running := r.running
	r.mu.Unlock()
	if !running || p == nil {
		return
	}
	if !r.drawPending.CompareAndSwap(false, true) {
		return
	}
	time.AfterFunc(16*time.Millisecond, func() {
		r.mu.Lock()
		p := r.program
		running := r.running
		r.mu.Unlock()
		if !running || p == nil {
			r.drawPending.Store(false)
			return
		}
		p.Send(drawMsg{})
	})
}

func (r *Root) apply(fn func(*Root)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	p := r.program
	running := r.running
	if !running || p == nil {
		fn(r)
		r.dirty = true
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	p.Send(applyMsg{fn: fn})
}

func (r *Root) dispatchController(fn func(Controller)) {
	if fn == nil || r.ctrl == nil {
		return
	}
	ctrl := r.ctrl
	go fn(ctrl)
}

func (r *Root) refetchChallenges() {
	if r.ctrl != nil {
		r.ctrl.OnRefreshChallenges()
	}
}

func (r *Root) current() Screen {
	for _, s := range r.screens {
		if s.ID() == r.active {
			return s
		}
	}
	return r.screens[0]
}

func (r *Root) busy() bool {
	for _, s := range r.screens {
		if s.Busy() {
			return true
		}
	}
	return false
}

func (r *Root) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	r.recordInputEvent(fmt.Sprintf("key:%v mod:%v text:%q", msg.Code, msg.Mod, msg.Text))
	r.dirty = true
	if r.ctrl != nil {
		r.ctrl.OnActivity()
	}

	if key.Matches(msg, r.keymap.Quit) {
		if r.ctrl == nil {
			return r, tea.Quit
		}
		r.dispatchController(func(c Controller) { c.OnQuit() })
		return r, nil
	}
	if key.Matches(msg, r.keymap.Help) {
		r.help.ShowAll = !r.help.ShowAll
		return r, nil
	}
	if id, ok := r.keymap.screenFor(msg); ok {
		r.active = id
		r.statusFlash = ""
		return r, r.current().Update(r.ctx, activateMsg{})
	}
	return r, r.current().Update(r.ctx, msg)
}

func tickCmd(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func spinnerTickCmd(model spinner.Model) tea.Cmd {
	return func() tea.Msg {
		return model.Tick()
	}
}

func (r *Root) recordInputEvent(event string) {
	r.lastInputEvent = trimForWidth(strings.TrimSpace(event), 160)
}

func (r *Root) onModelPanic(where string, recovered any, msg tea.Msg) {
	if r.statusFlash == "" {
		r.statusFlash = "Recovered UI panic"
	}
	if r.logger == nil {
		return
	}

	msgType := ""
	if msg != nil {
		msgType = fmt.Sprintf("%T", msg)
	}
	r.logger.Error("ui.panic_recovered", map[string]any{
		"where":       where,
		"panic":       fmt.Sprintf("%v", recovered),
		"messageType": msgType,
		"screen":      r.active.String(),
		"layout":      r.layout,
		"cols":        r.cols,
		"rows":        r.rows,
		"last_input":  r.lastInputEvent,
		"stack":       string(debug.Stack()),
	})
}

var _ tea.Model = (*Root)(nil)
var _ View = (*Root)(nil)
