package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"codechallenge/internal/api"
	"codechallenge/internal/background"
	"codechallenge/internal/challenges"
	"codechallenge/internal/request"
	"codechallenge/internal/scoreboard"
	"codechallenge/internal/session"
	"codechallenge/internal/state"
	"codechallenge/internal/submission"
	"codechallenge/internal/telemetry"
	"codechallenge/internal/ui"

	"github.com/google/uuid"
)

// waitInterval is how often command-line calls poll their requestor.
const waitInterval = 25 * time.Millisecond

type App struct {
	cfg Config

	logger  *telemetry.Logger
	store   Store
	jar     *state.CookieJar
	session *session.State
	client  *request.Client
	api     *api.Service
	fetcher *background.ChallengeFetcher
	login   *background.LoginTicker

	view      *ui.Root
	sessionID string

	wasLoggedIn bool
	lastUser    string

	// bg tracks store writes started off the UI goroutine.
	bg sync.WaitGroup
}

func New(cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}

	logger, err := telemetry.NewJSONLogger(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	store, err := state.NewSQLite(filepath.Join(cfg.DataDir, "state.db"))
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		_ = logger.Close()
		return nil, err
	}

	base, err := request.ParseBaseURL(cfg.BackendURL)
	if err != nil {
		_ = store.Close()
		_ = logger.Close()
		return nil, err
	}
	jar, err := state.NewCookieJar(ctx, store, base, logger)
	if err != nil {
		_ = store.Close()
		_ = logger.Close()
		return nil, err
	}

	sess := session.New(
		session.WithInactivityTimeout(cfg.Session.InactivityTimeout),
		session.WithRefreshPeriod(cfg.Session.RefreshPeriod),
	)
	client, err := request.NewClient(request.Options{
		BaseURL: cfg.BackendURL,
		Session: sess,
		Jar:     jar,
		Timeout: cfg.RequestTimeout,
		Logger:  logger,
	})
	if err != nil {
		_ = store.Close()
		_ = logger.Close()
		return nil, err
	}

	a := &App{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		jar:       jar,
		session:   sess,
		client:    client,
		api:       api.New(client, api.WithLogger(logger), api.WithHistory(store)),
		login:     background.NewLoginTicker(client, logger),
		sessionID: uuid.NewString(),
	}
	a.fetcher = background.NewChallengeFetcher(client,
		background.WithFetcherLogger(logger),
		background.WithOnFetched(a.cacheInBackground),
	)
	a.restore(ctx)
	return a, nil
}

// restore seeds the session from the local cache so screens have content
// before the first fetch lands. A saved user with a live cookie is treated
// as logged in; the first 401 corrects that.
func (a *App) restore(ctx context.Context) {
	if coll, err := a.store.LoadChallenges(ctx); err != nil {
		a.logger.Warn("state.challenges_load_failed", map[string]any{"error": err.Error()})
	} else if coll.Len() > 0 {
		a.session.SetChallenges(coll)
	}
	settings, err := a.store.LoadSettings(ctx)
	if err != nil {
		a.logger.Warn("state.settings_load_failed", map[string]any{"error": err.Error()})
		return
	}
	user := settings[settingUser]
	if user != "" && len(a.jar.Cookies(a.client.BaseURL())) > 0 {
		a.session.SetLoggedIn(user)
		a.wasLoggedIn = true
		a.lastUser = user
		a.logger.Info("session.restored", map[string]any{"user": user})
	}
}

func (a *App) Config() Config { return a.cfg }

func (a *App) Session() *session.State { return a.session }

// Run starts the terminal UI and blocks until it exits.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("app.start", map[string]any{"session": a.sessionID, "backend": a.cfg.BackendURL})

	settings, _ := a.store.LoadSettings(ctx)
	lang, _ := submission.ParseLanguage(settings[settingLastLanguage])
	a.view = ui.New(ui.Options{
		API:       a.api,
		Session:   a.session,
		Style:     a.cfg.UI.Style,
		ASCII:     a.cfg.UI.ASCII,
		Tick:      a.cfg.TickInterval(),
		Logger:    a.logger,
		Challenge: settings[settingLastChallenge],
		Language:  lang,
	})
	a.view.SetController(a)
	a.client.SetWake(a.view.RequestDraw)
	defer a.client.SetWake(nil)

	err := a.view.Run()
	a.logger.Info("app.stop", map[string]any{"session": a.sessionID})
	return err
}

func (a *App) Close() {
	a.bg.Wait()
	_ = a.store.Close()
	_ = a.logger.Close()
}

func (a *App) cacheChallenges(coll challenges.Collection) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.store.CacheChallenges(ctx, coll); err != nil {
		a.logger.Warn("state.challenges_cache_failed", map[string]any{"error": err.Error()})
	}
}

// cacheInBackground keeps the sqlite write off the frame loop.
func (a *App) cacheInBackground(coll challenges.Collection) {
	a.bg.Add(1)
	go func() {
		defer a.bg.Done()
		a.cacheChallenges(coll)
	}()
}

func (a *App) saveSettings(values map[string]string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.store.SaveSettings(ctx, values); err != nil {
		a.logger.Warn("state.settings_save_failed", map[string]any{"error": err.Error()})
	}
}

// syncLogin persists login transitions and refetches challenges after a
// fresh login.
func (a *App) syncLogin() bool {
	login := a.session.Login()
	if login.LoggedIn == a.wasLoggedIn && login.User == a.lastUser {
		return false
	}
	if login.LoggedIn && !a.wasLoggedIn {
		a.fetcher.MarkDirty()
	}
	a.wasLoggedIn = login.LoggedIn
	a.lastUser = login.User
	user := ""
	if login.LoggedIn {
		user = login.User
	}
	a.saveSettings(map[string]string{settingUser: user})
	a.logger.Info("session.login_changed", map[string]any{"logged_in": login.LoggedIn, "user": user})
	return true
}

func (a *App) OnTick(ctx context.Context) bool {
	changed := a.fetcher.Tick(ctx)
	if a.login.Tick(ctx) {
		changed = true
	}
	if a.syncLogin() {
		changed = true
	}
	return changed
}

func (a *App) OnActivity() {
	a.session.TouchActivity()
}

func (a *App) OnRefreshChallenges() {
	a.fetcher.MarkDirty()
	a.logger.Debug("ui.challenges_reload", nil)
}

func (a *App) OnSubmitted(sub submission.Submission) {
	a.saveSettings(map[string]string{
		settingLastChallenge: sub.Challenge,
		settingLastLanguage:  sub.Language.String(),
	})
}

// OnLoggedOut forgets the session locally after a logout from the UI,
// whatever the backend answered.
func (a *App) OnLoggedOut() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.forget(ctx); err != nil {
		a.logger.Warn("state.cookies_clear_failed", map[string]any{"error": err.Error()})
	}
}

// forget drops the login, the saved user and every stored cookie, so a
// later refresh cannot bring the session back.
func (a *App) forget(ctx context.Context) error {
	a.session.SetLoggedOut()
	a.saveSettings(map[string]string{settingUser: ""})
	if err := a.jar.Clear(ctx); err != nil {
		return fmt.Errorf("clear cookies: %w", err)
	}
	return nil
}

func (a *App) OnQuit() {
	if a.view != nil {
		a.view.Stop()
	}
}

func (a *App) Status() ui.BackgroundStatus {
	return ui.BackgroundStatus{
		Challenges: a.fetcher.State().String(),
		Refreshing: a.login.State() == background.LoginRefreshing,
		LoginError: a.login.LastError(),
	}
}

func callErr(msg string) error {
	if msg == "" {
		msg = "request failed"
	}
	return errors.New(msg)
}

// Login authenticates and remembers the user for later invocations.
func (a *App) Login(ctx context.Context, email, password string) (api.AuthReply, error) {
	call, err := a.api.Login(ctx, email, password)
	if err != nil {
		return api.AuthReply{}, err
	}
	res := call.Wait(ctx, waitInterval)
	if res.State != request.Success {
		return api.AuthReply{}, callErr(res.Err)
	}
	a.syncLogin()
	return res.Value, nil
}

// Logout ends the session on the backend and forgets it locally even when
// the backend call fails.
func (a *App) Logout(ctx context.Context) error {
	res := a.api.Logout(ctx).Wait(ctx, waitInterval)
	err := a.forget(ctx)
	a.syncLogin()
	if err != nil {
		return err
	}
	if res.State != request.Success {
		return callErr(res.Err)
	}
	return nil
}

func (a *App) Register(ctx context.Context, name, email, password string) (api.AuthReply, error) {
	call, err := a.api.Register(ctx, name, email, password)
	if err != nil {
		return api.AuthReply{}, err
	}
	res := call.Wait(ctx, waitInterval)
	if res.State != request.Success {
		return api.AuthReply{}, callErr(res.Err)
	}
	return res.Value, nil
}

func (a *App) ForgotPassword(ctx context.Context, email string) (api.AuthReply, error) {
	call, err := a.api.ForgotPassword(ctx, email)
	if err != nil {
		return api.AuthReply{}, err
	}
	res := call.Wait(ctx, waitInterval)
	if res.State != request.Success {
		return api.AuthReply{}, callErr(res.Err)
	}
	return res.Value, nil
}

func (a *App) ResetPassword(ctx context.Context, token, email, password, confirm string) (api.AuthReply, error) {
	call, err := a.api.ResetPassword(ctx, token, email, password, confirm)
	if err != nil {
		return api.AuthReply{}, err
	}
	res := call.Wait(ctx, waitInterval)
	if res.State != request.Success {
		return api.AuthReply{}, callErr(res.Err)
	}
	return res.Value, nil
}

// Challenges fetches the challenge list, falling back to the local cache
// when the backend cannot be reached.
func (a *App) Challenges(ctx context.Context) (Listing, error) {
	res := a.api.Challenges(ctx).Wait(ctx, waitInterval)
	if res.State == request.Success {
		a.cacheChallenges(res.Value)
		return Listing{Challenges: res.Value}, nil
	}
	cached, err := a.store.LoadChallenges(ctx)
	if err != nil || cached.Len() == 0 {
		return Listing{}, callErr(res.Err)
	}
	a.logger.Warn("challenges.using_cache", map[string]any{"error": res.Err})
	return Listing{Challenges: cached, Cached: true, FetchErr: res.Err}, nil
}

// Challenge looks up one challenge by command, suggesting close matches
// when it does not exist.
func (a *App) Challenge(ctx context.Context, command string) (challenges.Challenge, error) {
	listing, err := a.Challenges(ctx)
	if err != nil {
		return challenges.Challenge{}, err
	}
	if ch, ok := listing.Challenges.Lookup(command); ok {
		return ch, nil
	}
	err = fmt.Errorf("%w: %s", challenges.ErrNotFound, command)
	if near := listing.Challenges.Suggest(command, 3); len(near) > 0 {
		err = fmt.Errorf("%w (did you mean %s?)", err, strings.Join(near, ", "))
	}
	return challenges.Challenge{}, err
}

func (a *App) Scores(ctx context.Context, table string, filter scoreboard.Filter, col scoreboard.SortColumn) ([]scoreboard.Score, error) {
	call, err := a.api.Scores(ctx, table)
	if err != nil {
		return nil, err
	}
	res := call.Wait(ctx, waitInterval)
	if res.State != request.Success {
		return nil, callErr(res.Err)
	}
	return scoreboard.Apply(res.Value, filter, col), nil
}

// Submit sends sub for judging. The judged result is recorded in the local
// history by the api service.
func (a *App) Submit(ctx context.Context, sub submission.Submission) (submission.Result, error) {
	if sub.Player == "" {
		sub.Player = a.session.Login().User
	}
	call, err := a.api.Submit(ctx, sub)
	if err != nil {
		return submission.Result{}, err
	}
	res := call.Wait(ctx, waitInterval)
	if res.State != request.Success {
		return submission.Result{}, callErr(res.Err)
	}
	a.OnSubmitted(sub)
	return res.Value, nil
}

func (a *App) History(ctx context.Context, limit int) (History, error) {
	records, err := a.store.ListSubmissions(ctx, limit)
	if err != nil {
		return History{}, err
	}
	sum, err := a.store.GetSummary(ctx)
	if err != nil {
		return History{}, err
	}
	return History{Records: records, Summary: sum}, nil
}
