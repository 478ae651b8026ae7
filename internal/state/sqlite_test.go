package state

import (
	"context"
	"net/http"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"codechallenge/internal/challenges"
	"codechallenge/internal/submission"

	"github.com/google/go-cmp/cmp"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "state.db")
	store, err := NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return store
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	store := newStore(t)
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("second ensure schema: %v", err)
	}
}

func TestChallengeCacheKeepsOrder(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	coll := challenges.Collection{Items: []challenges.Challenge{
		{Name: "Sort", Command: "sort", Table: "sort", Doc: "# Sort"},
		{Name: "Echo", Command: "echo", Table: "echo", Doc: "# Echo"},
		{Name: "Primes", Command: "primes", Table: "primes", Doc: "# Primes"},
	}}
	if err := store.CacheChallenges(ctx, coll); err != nil {
		t.Fatalf("cache challenges: %v", err)
	}
	got, err := store.LoadChallenges(ctx)
	if err != nil {
		t.Fatalf("load challenges: %v", err)
	}
	if diff := cmp.Diff(coll, got); diff != "" {
		t.Fatalf("challenge cache mismatch (-want +got):\n%s", diff)
	}

	// A smaller listing replaces the cache wholesale.
	if err := store.CacheChallenges(ctx, challenges.Collection{Items: coll.Items[:1]}); err != nil {
		t.Fatalf("recache challenges: %v", err)
	}
	got, err = store.LoadChallenges(ctx)
	if err != nil {
		t.Fatalf("reload challenges: %v", err)
	}
	if got.Len() != 1 {
		t.Fatalf("expected 1 cached challenge, got %d", got.Len())
	}
}

func TestSubmissionHistoryAndSummary(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	base := time.Date(2026, time.February, 9, 1, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }

	sub := submission.Submission{Challenge: "sort", Filename: "sol.py", Language: submission.Python, Code: "x"}
	if err := store.RecordSubmission(sub, submission.Result{Success: &submission.Accepted{Score: 40, Message: "ok"}}); err != nil {
		t.Fatalf("record success: %v", err)
	}
	bin := submission.Submission{Challenge: "sort", Filename: "a.out", Language: submission.Rust, Binary: []byte{1}, Test: true}
	if err := store.RecordSubmission(bin, submission.Result{Failure: &submission.Rejected{Message: "wrong"}}); err != nil {
		t.Fatalf("record failure: %v", err)
	}

	list, err := store.ListSubmissions(ctx, 10)
	if err != nil {
		t.Fatalf("list submissions: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(list))
	}
	newest := list[0]
	if newest.Filename != "a.out" || !newest.Binary || newest.Accepted || !newest.Test || newest.Message != "wrong" {
		t.Fatalf("unexpected newest record: %#v", newest)
	}
	if !list[1].TS.Equal(base) || list[1].Score != 40 {
		t.Fatalf("unexpected oldest record: %#v", list[1])
	}

	sum, err := store.GetSummary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	want := Summary{Submissions: 2, Accepted: 1, Tests: 1, BestScore: 40}
	if diff := cmp.Diff(want, sum); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	if err := store.SaveSettings(ctx, map[string]string{"last_challenge": "sort", " ": "skipped"}); err != nil {
		t.Fatalf("save settings: %v", err)
	}
	if err := store.SaveSettings(ctx, map[string]string{"last_challenge": "echo"}); err != nil {
		t.Fatalf("overwrite settings: %v", err)
	}
	got, err := store.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if diff := cmp.Diff(map[string]string{"last_challenge": "echo"}, got); diff != "" {
		t.Fatalf("settings mismatch (-want +got):\n%s", diff)
	}
}

func TestCookieJarPersistsAcrossInstances(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	base, _ := url.Parse("http://backend.test:3000/")

	jar, err := NewCookieJar(ctx, store, base, nil)
	if err != nil {
		t.Fatalf("new jar: %v", err)
	}
	login, _ := url.Parse("http://backend.test:3000/api/auth/login")
	jar.SetCookies(login, []*http.Cookie{{Name: "token", Value: "abc", Path: "/"}})

	again, err := NewCookieJar(ctx, store, base, nil)
	if err != nil {
		t.Fatalf("reopen jar: %v", err)
	}
	other, _ := url.Parse("http://backend.test:3000/api/game/challenge")
	got := again.Cookies(other)
	if len(got) != 1 || got[0].Name != "token" || got[0].Value != "abc" {
		t.Fatalf("expected restored cookie, got %#v", got)
	}

	// A logout response expiring the cookie removes it from the store too.
	again.SetCookies(login, []*http.Cookie{{Name: "token", Value: "", Path: "/", MaxAge: -1}})
	saved, err := store.LoadCookies(ctx)
	if err != nil {
		t.Fatalf("load cookies: %v", err)
	}
	if len(saved) != 0 {
		t.Fatalf("expected cookie to be deleted, got %#v", saved)
	}

	jar.SetCookies(login, []*http.Cookie{{Name: "token", Value: "xyz", Path: "/"}})
	if err := jar.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(jar.Cookies(other)) != 0 {
		t.Fatalf("expected empty jar after clear")
	}
}

func TestCookieJarKeepsPathScopedCookies(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	base, _ := url.Parse("http://backend.test:3000/")

	jar, err := NewCookieJar(ctx, store, base, nil)
	if err != nil {
		t.Fatalf("new jar: %v", err)
	}
	login, _ := url.Parse("http://backend.test:3000/api/auth/login")
	jar.SetCookies(login, []*http.Cookie{
		{Name: "access", Value: "a1", Path: "/"},
		{Name: "refresh", Value: "r1", Path: "/api/auth", HttpOnly: true},
		{Name: "old", Value: "x", Path: "/", Expires: time.Now().Add(-time.Hour)},
	})
	// A later response that only touches the access cookie must not drop
	// the refresh cookie from disk.
	game, _ := url.Parse("http://backend.test:3000/api/game/challenge")
	jar.SetCookies(game, []*http.Cookie{{Name: "access", Value: "a2", Path: "/", MaxAge: 3600}})

	saved, err := store.LoadCookies(ctx)
	if err != nil {
		t.Fatalf("load cookies: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("expected access and refresh to be stored, got %#v", saved)
	}
	if saved[0].Name != "access" || saved[0].Value != "a2" || saved[0].Expires.IsZero() {
		t.Fatalf("expected updated access cookie with expiry, got %#v", saved[0])
	}
	if saved[1].Name != "refresh" || saved[1].Path != "/api/auth" || !saved[1].HttpOnly {
		t.Fatalf("expected path-scoped refresh cookie, got %#v", saved[1])
	}

	again, err := NewCookieJar(ctx, store, base, nil)
	if err != nil {
		t.Fatalf("reopen jar: %v", err)
	}
	refresh, _ := url.Parse("http://backend.test:3000/api/auth/refresh")
	if got := again.Cookies(refresh); len(got) != 2 {
		t.Fatalf("expected access and refresh on the refresh path, got %#v", got)
	}
	if got := again.Cookies(game); len(got) != 1 || got[0].Name != "access" {
		t.Fatalf("expected only access outside /api/auth, got %#v", got)
	}
}

func TestCookieJarSkipsExpiredOnRestore(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	base, _ := url.Parse("http://backend.test:3000/")
	err := store.SaveCookies(ctx, []Cookie{
		{Name: "stale", Value: "s", Path: "/", Expires: time.Now().Add(-time.Minute)},
		{Name: "live", Value: "l", Path: "/", Expires: time.Now().Add(time.Hour)},
	})
	if err != nil {
		t.Fatalf("save cookies: %v", err)
	}

	jar, err := NewCookieJar(ctx, store, base, nil)
	if err != nil {
		t.Fatalf("new jar: %v", err)
	}
	got := jar.Cookies(base)
	if len(got) != 1 || got[0].Name != "live" {
		t.Fatalf("expected only the live cookie, got %#v", got)
	}
}

func TestEnsureSchemaReplacesNameKeyedCookies(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")
	store, err := NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	defer store.Close()
	ctx := context.Background()
	if _, err := store.db.ExecContext(ctx, `CREATE TABLE cookies (name TEXT PRIMARY KEY, value TEXT NOT NULL, updated_ts TEXT NOT NULL)`); err != nil {
		t.Fatalf("create legacy table: %v", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	err = store.SaveCookies(ctx, []Cookie{
		{Name: "token", Value: "a", Path: "/"},
		{Name: "token", Value: "b", Path: "/api/auth"},
	})
	if err != nil {
		t.Fatalf("save cookies: %v", err)
	}
	saved, err := store.LoadCookies(ctx)
	if err != nil {
		t.Fatalf("load cookies: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("expected one row per path, got %#v", saved)
	}
}
