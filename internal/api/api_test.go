package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"codechallenge/internal/request"
	"codechallenge/internal/session"
	"codechallenge/internal/submission"
)

type fakeHistory struct {
	mu   sync.Mutex
	subs []submission.Submission
	res  []submission.Result
}

func (h *fakeHistory) RecordSubmission(sub submission.Submission, res submission.Result) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs = append(h.subs, sub)
	h.res = append(h.res, res)
	return nil
}

func newTestService(t *testing.T, mux *http.ServeMux, opts ...ServiceOption) (*Service, *session.State) {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	st := session.New()
	c, err := request.NewClient(request.Options{BaseURL: srv.URL, Session: st, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return New(c, opts...), st
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestLoginMarksSessionLoggedIn(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Email, Password string }
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Password != "hunter2" {
			_, _ = io.WriteString(w, `{"status":"fail","message":"bad credentials"}`)
			return
		}
		_, _ = io.WriteString(w, `{"status":"success","access_token":"tok"}`)
	})
	svc, st := newTestService(t, mux)

	call, err := svc.Login(waitCtx(t), "ada@example.com", "hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	res := call.Wait(waitCtx(t), 5*time.Millisecond)
	if res.State != request.Success || res.Value.AccessToken != "tok" {
		t.Fatalf("unexpected result: %#v", res)
	}
	if got := st.Login(); !got.LoggedIn || got.User != "ada@example.com" {
		t.Fatalf("unexpected login state: %#v", got)
	}

	call, _ = svc.Login(waitCtx(t), "ada@example.com", "wrong")
	res = call.Wait(waitCtx(t), 5*time.Millisecond)
	if res.State != request.Failed || res.Err != "bad credentials" {
		t.Fatalf("unexpected failure result: %#v", res)
	}
}

func TestLogoutMarksSessionLoggedOut(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	svc, st := newTestService(t, mux)
	st.SetLoggedIn("ada@example.com")

	res := svc.Logout(waitCtx(t)).Wait(waitCtx(t), 5*time.Millisecond)
	if res.State != request.Success {
		t.Fatalf("unexpected result: %#v", res)
	}
	if st.LoggedIn() {
		t.Fatalf("expected logged out")
	}
}

func TestResetPasswordValidatesLocally(t *testing.T) {
	svc, _ := newTestService(t, http.NewServeMux())
	ctx := waitCtx(t)
	cases := []struct {
		name                     string
		token, email, pass, conf string
		want                     error
	}{
		{"mismatch", "tok", "ada@example.com", "a", "b", ErrPasswordMismatch},
		{"bad email", "tok", "not an email", "a", "a", ErrEmailInvalid},
		{"no token", " ", "ada@example.com", "a", "a", ErrTokenUnset},
		{"no password", "tok", "ada@example.com", "", "", ErrPasswordUnset},
	}
	for _, tc := range cases {
		if _, err := svc.ResetPassword(ctx, tc.token, tc.email, tc.pass, tc.conf); !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v want %v", tc.name, err, tc.want)
		}
	}
}

func TestResetPasswordPostsToTokenPath(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/resetpassword/abc123", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"success","message":"Password reset"}`)
	})
	svc, _ := newTestService(t, mux)
	call, err := svc.ResetPassword(waitCtx(t), "abc123", "ada@example.com", "pw", "pw")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if res := call.Wait(waitCtx(t), 5*time.Millisecond); res.State != request.Success || res.Value.Message != "Password reset" {
		t.Fatalf("unexpected result: %#v", res)
	}
}

func TestChallengesPopulateSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/game/challenge", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"name":"Sort","command":"sort","table":"sort","doc":"# Sort"}]`)
	})
	svc, st := newTestService(t, mux)
	res := svc.Challenges(waitCtx(t)).Wait(waitCtx(t), 5*time.Millisecond)
	if res.State != request.Success || res.Value.Len() != 1 {
		t.Fatalf("unexpected result: %#v", res)
	}
	if st.Challenges().Len() != 1 {
		t.Fatalf("expected session to hold fetched challenges")
	}
}

func TestScores(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/game/scores/sort", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"name":"ada","language":"Go","command":"sort","time_ns":10}]`)
	})
	svc, _ := newTestService(t, mux)
	if _, err := svc.Scores(waitCtx(t), "None"); !errors.Is(err, ErrTableUnset) {
		t.Fatalf("expected table error, got %v", err)
	}
	call, err := svc.Scores(waitCtx(t), "sort")
	if err != nil {
		t.Fatalf("scores: %v", err)
	}
	res := call.Wait(waitCtx(t), 5*time.Millisecond)
	if res.State != request.Success || len(res.Value) != 1 || res.Value[0].TimeNs != 10 {
		t.Fatalf("unexpected result: %#v", res)
	}
}

func TestSubmitRoutesByPayloadAndRecordsHistory(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/game/submit", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			http.Error(w, "want json", http.StatusBadRequest)
			return
		}
		_, _ = io.WriteString(w, `{"Success":{"score":7,"message":"ok"}}`)
	})
	mux.HandleFunc("/api/game/binary", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_, _ = io.WriteString(w, `{"Failure":{"message":"segfault"}}`)
	})
	hist := &fakeHistory{}
	svc, _ := newTestService(t, mux, WithHistory(hist))

	code := submission.Submission{Challenge: "sort", Filename: "sol.py", Language: submission.Python, Code: "print(1)"}
	call, err := svc.Submit(waitCtx(t), code)
	if err != nil {
		t.Fatalf("submit code: %v", err)
	}
	if res := call.Wait(waitCtx(t), 5*time.Millisecond); res.State != request.Success || !res.Value.Accepted() {
		t.Fatalf("unexpected code result: %#v", res)
	}

	bin := submission.Submission{Challenge: "sort", Filename: "a.out", Language: submission.Rust, Binary: []byte{1, 2}}
	call, err = svc.Submit(waitCtx(t), bin)
	if err != nil {
		t.Fatalf("submit binary: %v", err)
	}
	if res := call.Wait(waitCtx(t), 5*time.Millisecond); res.State != request.Success || res.Value.Message() != "segfault" {
		t.Fatalf("unexpected binary result: %#v", res)
	}

	hist.mu.Lock()
	defer hist.mu.Unlock()
	if len(hist.subs) != 2 || hist.res[1].Accepted() {
		t.Fatalf("unexpected history: %#v", hist.res)
	}

	if _, err := svc.Submit(waitCtx(t), submission.Submission{}); !errors.Is(err, submission.ErrChallengeUnset) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPollReportsTerminalOnce(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/game/challenge", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `not json`)
	})
	svc, _ := newTestService(t, mux)
	call := svc.Challenges(waitCtx(t))
	res := call.Wait(waitCtx(t), 5*time.Millisecond)
	if res.State != request.Failed {
		t.Fatalf("expected decode failure, got %#v", res)
	}
	if got := call.Poll(); got.State != request.NotStarted {
		t.Fatalf("expected NotStarted after terminal, got %v", got.State)
	}
	if call.Last().State != request.Failed {
		t.Fatalf("expected Last to keep terminal result")
	}
}
