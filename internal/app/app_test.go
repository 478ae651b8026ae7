package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"codechallenge/internal/background"
	"codechallenge/internal/challenges"
	"codechallenge/internal/scoreboard"
	"codechallenge/internal/submission"

	"github.com/google/go-cmp/cmp"
)

const challengeList = `[
	{"name":"Sort","command":"sort","table":"sort","doc":"# Sort"},
	{"name":"Primes","command":"primes","table":"primes","doc":"# Primes"}
]`

// backend is a fake judge that only serves game endpoints to holders of
// the session cookie.
type backend struct {
	down      atomic.Bool
	refreshes atomic.Int32
}

func (b *backend) authed(r *http.Request) bool {
	c, err := r.Cookie("token")
	return err == nil && c.Value == "abc"
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "abc", Path: "/"})
		_, _ = io.WriteString(w, `{"status":"success","access_token":"abc"}`)
	})
	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "", Path: "/", MaxAge: -1})
		_, _ = io.WriteString(w, `{"status":"success"}`)
	})
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		b.refreshes.Add(1)
		if !b.authed(r) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"status":"fail","message":"no session"}`)
			return
		}
		_, _ = io.WriteString(w, `{"status":"success"}`)
	})
	mux.HandleFunc("/api/game/challenge", func(w http.ResponseWriter, r *http.Request) {
		if b.down.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if !b.authed(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, challengeList)
	})
	mux.HandleFunc("/api/game/scores/sort", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[
			{"name":"ada","language":"Go","command":"sort","time_ns":3000},
			{"name":"ada","language":"Go","command":"sort","time_ns":1000},
			{"name":"bob","language":"Rust","command":"sort","time_ns":2000}
		]`)
	})
	mux.HandleFunc("/api/game/submit", func(w http.ResponseWriter, r *http.Request) {
		if !b.authed(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"Success":{"score":7,"message":"ok"}}`)
	})
	return mux
}

func newTestApp(t *testing.T, dataDir, url string) *App {
	t.Helper()
	cfg := DefaultConfig()
	cfg.BackendURL = url
	cfg.DataDir = dataDir
	cfg.RequestTimeout = 5 * time.Second
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.BackendURL = "http://localhost:3000"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.BackendURL != "http://localhost:3000/" {
		t.Fatalf("expected trailing slash, got %q", cfg.BackendURL)
	}
	if cfg.TickInterval() != 100*time.Millisecond {
		t.Fatalf("unexpected tick interval %v", cfg.TickInterval())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
	}{
		{"log level", func(c *Config) { c.LogLevel = "loud" }},
		{"ui style", func(c *Config) { c.UI.Style = "neon" }},
		{"backend scheme", func(c *Config) { c.BackendURL = "ftp://example.com" }},
	}
	for _, tc := range cases {
		cfg := DefaultConfig()
		cfg.DataDir = t.TempDir()
		tc.mut(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestLoadConfigLayersFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`backend_url: http://file.test:3000/
request_timeout: 5s
session:
  refresh_period: 1m
ui:
  tick_ms: 50
  style: retro
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CODECHALLENGE_BACKEND_URL", "http://env.test:3000/")
	t.Setenv("CODECHALLENGE_UI_ASCII", "true")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	want := DefaultConfig()
	want.BackendURL = "http://env.test:3000/"
	want.RequestTimeout = 5 * time.Second
	want.Session.RefreshPeriod = time.Minute
	want.UI.TickMS = 50
	want.UI.Style = "retro"
	want.UI.ASCII = true
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestLoginSessionSurvivesRestart(t *testing.T) {
	b := &backend{}
	srv := httptest.NewServer(b.handler())
	defer srv.Close()
	dir := t.TempDir()
	ctx := testCtx(t)

	first := newTestApp(t, dir, srv.URL)
	if _, err := first.Login(ctx, "ada@example.com", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if !first.Session().LoggedIn() {
		t.Fatalf("expected logged in session")
	}
	first.Close()

	second := newTestApp(t, dir, srv.URL)
	login := second.Session().Login()
	if !login.LoggedIn || login.User != "ada@example.com" {
		t.Fatalf("expected restored login, got %#v", login)
	}
	listing, err := second.Challenges(ctx)
	if err != nil {
		t.Fatalf("challenges: %v", err)
	}
	if listing.Cached || listing.Challenges.Len() != 2 {
		t.Fatalf("expected a fresh listing of 2, got %#v", listing)
	}

	if err := second.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	third := newTestApp(t, dir, srv.URL)
	if third.Session().LoggedIn() {
		t.Fatalf("expected logout to persist")
	}
}

func TestChallengesFallBackToCache(t *testing.T) {
	b := &backend{}
	srv := httptest.NewServer(b.handler())
	defer srv.Close()
	ctx := testCtx(t)
	a := newTestApp(t, t.TempDir(), srv.URL)
	if _, err := a.Login(ctx, "ada@example.com", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := a.Challenges(ctx); err != nil {
		t.Fatalf("challenges: %v", err)
	}

	b.down.Store(true)
	listing, err := a.Challenges(ctx)
	if err != nil {
		t.Fatalf("expected cache fallback, got %v", err)
	}
	if !listing.Cached || listing.Challenges.Len() != 2 || listing.FetchErr == "" {
		t.Fatalf("unexpected listing %#v", listing)
	}
}

func TestChallengeSuggestsNearMatches(t *testing.T) {
	b := &backend{}
	srv := httptest.NewServer(b.handler())
	defer srv.Close()
	ctx := testCtx(t)
	a := newTestApp(t, t.TempDir(), srv.URL)
	if _, err := a.Login(ctx, "ada@example.com", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	ch, err := a.Challenge(ctx, "primes")
	if err != nil || ch.Doc != "# Primes" {
		t.Fatalf("expected primes, got %#v, %v", ch, err)
	}
	_, err = a.Challenge(ctx, "prime")
	if !errors.Is(err, challenges.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if !strings.Contains(err.Error(), "did you mean primes") {
		t.Fatalf("expected suggestion, got %q", err.Error())
	}
}

func TestSubmitRecordsHistoryAndSettings(t *testing.T) {
	b := &backend{}
	srv := httptest.NewServer(b.handler())
	defer srv.Close()
	ctx := testCtx(t)
	a := newTestApp(t, t.TempDir(), srv.URL)
	if _, err := a.Login(ctx, "ada@example.com", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	if _, err := a.Submit(ctx, submission.Submission{Challenge: "sort", Filename: "bad name.py", Language: submission.Python, Code: "x"}); !errors.Is(err, submission.ErrFilenameCharset) {
		t.Fatalf("expected filename validation error, got %v", err)
	}

	res, err := a.Submit(ctx, submission.Submission{Challenge: "sort", Filename: "sol.py", Language: submission.Python, Code: "print(1)"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.Accepted() || res.Success.Score != 7 {
		t.Fatalf("unexpected result %#v", res)
	}

	hist, err := a.History(ctx, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist.Records) != 1 || hist.Records[0].Player != "ada@example.com" || hist.Summary.BestScore != 7 {
		t.Fatalf("unexpected history %#v", hist)
	}
	settings, err := a.store.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if settings[settingLastChallenge] != "sort" || settings[settingLastLanguage] != "Python" {
		t.Fatalf("unexpected settings %#v", settings)
	}
}

func TestScoresAppliesFilterAndSort(t *testing.T) {
	b := &backend{}
	srv := httptest.NewServer(b.handler())
	defer srv.Close()
	a := newTestApp(t, t.TempDir(), srv.URL)

	got, err := a.Scores(testCtx(t), "sort", scoreboard.UniquePlayers, scoreboard.ByTime)
	if err != nil {
		t.Fatalf("scores: %v", err)
	}
	want := []scoreboard.Score{
		{Name: "ada", Language: "Go", Command: "sort", TimeNs: 1000},
		{Name: "bob", Language: "Rust", Command: "sort", TimeNs: 2000},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("scores mismatch (-want +got):\n%s", diff)
	}
	if _, err := a.Scores(testCtx(t), "None", scoreboard.All, scoreboard.ByTime); err == nil {
		t.Fatalf("expected error for unset table")
	}
}

func TestOnTickRefetchesAfterLogin(t *testing.T) {
	b := &backend{}
	srv := httptest.NewServer(b.handler())
	defer srv.Close()
	a := newTestApp(t, t.TempDir(), srv.URL)
	ctx := testCtx(t)

	a.OnTick(ctx)
	if a.fetcher.State() != background.Fetching {
		t.Fatalf("expected first tick to start a fetch, got %s", a.fetcher.State())
	}
	deadline := time.Now().Add(5 * time.Second)
	for a.fetcher.State() == background.Fetching && time.Now().Before(deadline) {
		a.OnTick(ctx)
		time.Sleep(5 * time.Millisecond)
	}

	a.session.SetLoggedIn("ada@example.com")
	if !a.OnTick(ctx) {
		t.Fatalf("expected login transition to report a change")
	}
	if st := a.Status(); st.Challenges == "" {
		t.Fatalf("expected fetcher state in status")
	}
	settings, err := a.store.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if settings[settingUser] != "ada@example.com" {
		t.Fatalf("expected user to be saved, got %#v", settings)
	}
}

func TestLoggedOutSessionIsNotRefreshedBackIn(t *testing.T) {
	b := &backend{}
	srv := httptest.NewServer(b.handler())
	defer srv.Close()
	dir := t.TempDir()
	ctx := testCtx(t)

	cfg := DefaultConfig()
	cfg.BackendURL = srv.URL
	cfg.DataDir = dir
	cfg.Session.RefreshPeriod = time.Millisecond
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(a.Close)

	if _, err := a.Login(ctx, "ada@example.com", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	tickApp(t, a, func() bool { return b.refreshes.Load() >= 1 && a.login.State() == background.LoginIdle })
	if !a.Session().LoggedIn() {
		t.Fatalf("expected a refresh with the cookie to keep the session")
	}

	// The UI marks the session logged out and then hands over to the app.
	a.Session().SetLoggedOut()
	a.OnLoggedOut()
	seen := b.refreshes.Load()
	tickApp(t, a, func() bool { return b.refreshes.Load() > seen && a.login.State() == background.LoginError })
	if a.Session().LoggedIn() {
		t.Fatalf("expected the session to stay logged out after a refresh")
	}
	if len(a.jar.Cookies(a.client.BaseURL())) != 0 {
		t.Fatalf("expected no cookies after logout")
	}
	settings, err := a.store.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if settings[settingUser] != "" {
		t.Fatalf("expected saved user to be cleared, got %q", settings[settingUser])
	}

	again := newTestApp(t, dir, srv.URL)
	if again.Session().LoggedIn() {
		t.Fatalf("expected logout to survive a restart")
	}
}

func TestFetchedChallengesAreCachedOffTheTick(t *testing.T) {
	b := &backend{}
	srv := httptest.NewServer(b.handler())
	defer srv.Close()
	ctx := testCtx(t)
	dir := t.TempDir()
	a := newTestApp(t, dir, srv.URL)
	if _, err := a.Login(ctx, "ada@example.com", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	release := make(chan struct{})
	slow := &slowCacheStore{Store: a.store, release: release}
	a.store = slow

	done := make(chan struct{})
	go func() {
		defer close(done)
		deadline := time.Now().Add(5 * time.Second)
		for a.fetcher.State() != background.Clean && time.Now().Before(deadline) {
			a.OnTick(ctx)
			time.Sleep(5 * time.Millisecond)
		}
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		close(release)
		t.Fatalf("tick blocked on the cache write")
	}
	if a.fetcher.State() != background.Clean {
		t.Fatalf("expected the fetch to finish, got %s", a.fetcher.State())
	}
	close(release)
	a.bg.Wait()
	if slow.calls.Load() != 1 {
		t.Fatalf("expected one cache write, got %d", slow.calls.Load())
	}
	coll, err := a.store.LoadChallenges(ctx)
	if err != nil || coll.Len() != 2 {
		t.Fatalf("expected cached challenges, got %d, %v", coll.Len(), err)
	}
}

// slowCacheStore holds challenge cache writes until released.
type slowCacheStore struct {
	Store
	release chan struct{}
	calls   atomic.Int32
}

func (s *slowCacheStore) CacheChallenges(ctx context.Context, coll challenges.Collection) error {
	<-s.release
	s.calls.Add(1)
	return s.Store.CacheChallenges(context.Background(), coll)
}

func tickApp(t *testing.T, a *App, done func() bool) {
	t.Helper()
	ctx := testCtx(t)
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		a.OnTick(ctx)
		if done() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached before deadline")
}
