package state

import (
	"context"
	"time"

	"codechallenge/internal/challenges"
)

type Store interface {
	EnsureSchema(ctx context.Context) error
	SaveCookies(ctx context.Context, cookies []Cookie) error
	LoadCookies(ctx context.Context) ([]Cookie, error)
	SaveSettings(ctx context.Context, values map[string]string) error
	LoadSettings(ctx context.Context) (map[string]string, error)
	CacheChallenges(ctx context.Context, coll challenges.Collection) error
	LoadChallenges(ctx context.Context) (challenges.Collection, error)
	InsertSubmission(ctx context.Context, rec SubmissionRecord) (int64, error)
	ListSubmissions(ctx context.Context, limit int) ([]SubmissionRecord, error)
	GetSummary(ctx context.Context) (Summary, error)
	Close() error
}

// Cookie is a persisted session cookie for the configured backend.
// Expires is zero for a session cookie.
type Cookie struct {
	Name      string
	Value     string
	Path      string
	Domain    string
	Expires   time.Time
	Secure    bool
	HttpOnly  bool
	UpdatedTS time.Time
}

type SubmissionRecord struct {
	ID        int64
	Player    string
	Challenge string
	Filename  string
	Language  string
	Test      bool
	Binary    bool
	Accepted  bool
	Score     uint32
	Message   string
	TS        time.Time
}

type Summary struct {
	Submissions int
	Accepted    int
	Tests       int
	BestScore   uint32
}
