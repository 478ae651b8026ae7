package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"

	"codechallenge/internal/challenges"
	"codechallenge/internal/request"
	"codechallenge/internal/scoreboard"
	"codechallenge/internal/submission"
)

const (
	PathLogin          = "api/auth/login"
	PathLogout         = "api/auth/logout"
	PathRegister       = "api/auth/register"
	PathForgotPassword = "api/auth/forgotpassword"
	PathResetPassword  = "api/auth/resetpassword/"
	PathRefresh        = request.RefreshPath
	PathChallenges     = "api/game/challenge"
	PathScores         = "api/game/scores/"
	PathSubmitCode     = "api/game/submit"
	PathSubmitBinary   = "api/game/binary"
)

// Validation errors are shown to the user as-is, so they read as sentences.
var (
	ErrEmailUnset       = errors.New("Email not specified")
	ErrEmailInvalid     = errors.New("Invalid email address")
	ErrPasswordUnset    = errors.New("Password not specified")
	ErrPasswordMismatch = errors.New("Passwords do not match")
	ErrTokenUnset       = errors.New("Reset token not specified")
	ErrNameUnset        = errors.New("Name not specified")
	ErrTableUnset       = errors.New("Scoring table not specified")
)

// AuthReply is the body returned by the auth endpoints.
type AuthReply struct {
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
}

func (r AuthReply) OK() bool { return strings.EqualFold(r.Status, "success") }

// Service issues the typed calls every screen and command is built from.
type Service struct {
	client  *request.Client
	logger  Logger
	history History
}

type ServiceOption func(*Service)

func WithLogger(l Logger) ServiceOption { return func(s *Service) { s.logger = l } }

func WithHistory(h History) ServiceOption { return func(s *Service) { s.history = h } }

func New(client *request.Client, opts ...ServiceOption) *Service {
	s := &Service{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Client() *request.Client { return s.client }

func (s *Service) info(msg string, fields map[string]any) {
	if s.logger != nil {
		s.logger.Info(msg, fields)
	}
}

func (s *Service) warn(msg string, fields map[string]any) {
	if s.logger != nil {
		s.logger.Warn(msg, fields)
	}
}

func marshal(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		// Only plain string structs are marshalled here.
		panic(err)
	}
	return string(data)
}

func decodeAuth(action string) func(string) (AuthReply, error) {
	return func(body string) (AuthReply, error) {
		var r AuthReply
		if err := json.Unmarshal([]byte(body), &r); err != nil {
			return AuthReply{}, fmt.Errorf("decode %s response: %w", action, err)
		}
		if !r.OK() {
			msg := strings.TrimSpace(r.Message)
			if msg == "" {
				msg = action + " failed"
			}
			return r, errors.New(msg)
		}
		return r, nil
	}
}

func validEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return ErrEmailUnset
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrEmailInvalid
	}
	return nil
}

// Login posts credentials without attaching any cookie; the session cookie
// the server sets is kept for later credentialed calls.
func (s *Service) Login(ctx context.Context, email, password string) (*Call[AuthReply], error) {
	if strings.TrimSpace(email) == "" {
		return nil, ErrEmailUnset
	}
	if password == "" {
		return nil, ErrPasswordUnset
	}
	body := marshal(struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{email, password})
	r := s.client.PostJSON(PathLogin, false, body)
	call := newCall(r, decodeAuth("login"), func(AuthReply) {
		s.client.Session().SetLoggedIn(email)
		s.client.Session().MarkRefreshed()
		s.info("auth.logged_in", map[string]any{"user": email})
	})
	return call.send(ctx), nil
}

func (s *Service) Logout(ctx context.Context) *Call[struct{}] {
	r := s.client.Post(PathLogout, true)
	call := newCall(r, func(string) (struct{}, error) { return struct{}{}, nil }, func(struct{}) {
		s.client.Session().SetLoggedOut()
		s.info("auth.logged_out", nil)
	})
	return call.send(ctx)
}

func (s *Service) Register(ctx context.Context, name, email, password string) (*Call[AuthReply], error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrNameUnset
	}
	if err := validEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, ErrPasswordUnset
	}
	body := marshal(struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}{name, email, password})
	return newCall(s.client.PostJSON(PathRegister, false, body), decodeAuth("register"), nil).send(ctx), nil
}

func (s *Service) ForgotPassword(ctx context.Context, email string) (*Call[AuthReply], error) {
	if err := validEmail(email); err != nil {
		return nil, err
	}
	body := marshal(struct {
		Email string `json:"email"`
	}{email})
	return newCall(s.client.PostJSON(PathForgotPassword, false, body), decodeAuth("password reset request"), nil).send(ctx), nil
}

// ResetPassword checks the form locally before anything is sent: the
// passwords must match, then the email must be well formed, then the token
// must be present.
func (s *Service) ResetPassword(ctx context.Context, token, email, password, confirm string) (*Call[AuthReply], error) {
	if password == "" {
		return nil, ErrPasswordUnset
	}
	if password != confirm {
		return nil, ErrPasswordMismatch
	}
	if err := validEmail(email); err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenUnset
	}
	body := marshal(struct {
		Password string `json:"password"`
	}{password})
	r := s.client.PostJSON(PathResetPassword+url.PathEscape(token), true, body)
	return newCall(r, decodeAuth("password reset"), nil).send(ctx), nil
}

func (s *Service) Challenges(ctx context.Context) *Call[challenges.Collection] {
	call := newCall(s.client.Get(PathChallenges, true), parseChallenges, func(c challenges.Collection) {
		s.client.Session().SetChallenges(c)
	})
	return call.send(ctx)
}

func parseChallenges(body string) (challenges.Collection, error) {
	return challenges.Parse([]byte(body))
}

func (s *Service) Scores(ctx context.Context, table string) (*Call[[]scoreboard.Score], error) {
	table = strings.TrimSpace(table)
	if table == "" || strings.EqualFold(table, "none") {
		return nil, ErrTableUnset
	}
	return newCall(s.client.Get(PathScores+url.PathEscape(table), true), scoreboard.Parse, nil).send(ctx), nil
}

// Submit validates sub and sends it as JSON source or a multipart binary
// upload. Validation errors are returned before any network call.
func (s *Service) Submit(ctx context.Context, sub submission.Submission) (*Call[submission.Result], error) {
	body, form, err := sub.Payload()
	if err != nil {
		return nil, err
	}
	var r *request.Requestor
	if form != nil {
		r = s.client.PostForm(PathSubmitBinary, true, form)
	} else {
		r = s.client.PostJSON(PathSubmitCode, true, body)
	}
	call := newCall(r, submission.ParseResult, func(res submission.Result) {
		s.info("submission.judged", map[string]any{
			"challenge": sub.Challenge,
			"language":  sub.Language.String(),
			"test":      sub.Test,
			"accepted":  res.Accepted(),
		})
		if s.history == nil {
			return
		}
		if err := s.history.RecordSubmission(sub, res); err != nil {
			s.warn("submission.history_failed", map[string]any{"error": err.Error()})
		}
	})
	return call.send(ctx), nil
}
