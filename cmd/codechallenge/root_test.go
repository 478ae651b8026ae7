package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "abc", Path: "/"})
		_, _ = io.WriteString(w, `{"status":"success","access_token":"abc"}`)
	})
	mux.HandleFunc("/api/game/challenge", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("token"); err != nil || c.Value != "abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `[{"name":"Sort","command":"sort","table":"sort","doc":"# Sort numbers"}]`)
	})
	mux.HandleFunc("/api/game/scores/sort", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[
			{"name":"bob","language":"Rust","command":"sort","time_ns":2000000},
			{"name":"ada","language":"Go","command":"sort","time_ns":1000000}
		]`)
	})
	mux.HandleFunc("/api/game/submit", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"Failure":{"message":"wrong answer"}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// cli runs commands against one backend and data dir, like separate
// invocations of the binary.
type cli struct {
	t    *testing.T
	base []string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	srv := newBackend(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	return &cli{t: t, base: []string{
		"--config", cfgPath,
		"--backend-url", srv.URL,
		"--data-dir", filepath.Join(dir, "data"),
	}}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(append([]string{}, args...), c.base...))
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestLoginIsSharedAcrossInvocations(t *testing.T) {
	c := newCLI(t)
	if _, err := c.run("challenges"); err == nil {
		t.Fatalf("expected challenges to fail before login")
	}

	out, err := c.run("login", "--email", "ada@example.com", "--password", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, "Logged in as ada@example.com") {
		t.Fatalf("unexpected login output %q", out)
	}

	out, err = c.run("challenges")
	if err != nil {
		t.Fatalf("challenges: %v", err)
	}
	if !strings.Contains(out, "sort") || !strings.Contains(out, "Sort") {
		t.Fatalf("expected challenge listing, got %q", out)
	}

	out, err = c.run("show", "sort", "--raw")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "# Sort numbers") {
		t.Fatalf("expected raw instructions, got %q", out)
	}
}

func TestScoresFiltersAndSorts(t *testing.T) {
	c := newCLI(t)
	out, err := c.run("scores", "sort", "--sort", "name")
	if err != nil {
		t.Fatalf("scores: %v", err)
	}
	ada := strings.Index(out, "ada")
	bob := strings.Index(out, "bob")
	if ada < 0 || bob < 0 || ada > bob {
		t.Fatalf("expected ada before bob, got %q", out)
	}
	if _, err := c.run("scores", "sort", "--filter", "teams"); err == nil {
		t.Fatalf("expected unknown filter to fail")
	}
}

func TestSubmitReportsRejection(t *testing.T) {
	c := newCLI(t)
	src := filepath.Join(t.TempDir(), "sol.py")
	if err := os.WriteFile(src, []byte("print(1)\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := c.run("submit", "sort", src)
	if !errors.Is(err, errRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if !strings.Contains(out, "wrong answer") {
		t.Fatalf("expected judge message, got %q", out)
	}

	out, err = c.run("history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "rejected") || !strings.Contains(out, "1 submissions, 0 accepted") {
		t.Fatalf("unexpected history %q", out)
	}
}

func TestSubmitFlagsBuildSubmission(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.go")
	if err := os.WriteFile(src, []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	sub, err := (&submitFlags{test: true}).build("sort", src)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if sub.Language != "Go" || sub.Filename != "main.go" || !sub.Test || sub.Code == "" {
		t.Fatalf("unexpected submission %#v", sub)
	}

	sub, err = (&submitFlags{binary: true, language: "rust"}).build("sort", src)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if sub.Language != "Rust" || !sub.HasBinary() || sub.HasCode() {
		t.Fatalf("expected a rust binary upload, got %#v", sub)
	}

	unknown := filepath.Join(dir, "notes.xyz")
	if err := os.WriteFile(unknown, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (&submitFlags{}).build("sort", unknown); err == nil {
		t.Fatalf("expected undetectable language to fail")
	}
}

func TestPromptWithoutTerminalNamesMissingFields(t *testing.T) {
	if interactive() {
		t.Skip("stdin is a terminal")
	}
	email := "ada@example.com"
	var password string
	err := prompt(
		promptField{title: "Email", value: &email},
		promptField{title: "Password", value: &password, secret: true},
	)
	if !errors.Is(err, errNoTerminal) || !strings.Contains(err.Error(), "password") {
		t.Fatalf("expected missing password error, got %v", err)
	}
}
