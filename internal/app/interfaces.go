package app

import (
	"context"

	"codechallenge/internal/challenges"
	"codechallenge/internal/state"
	"codechallenge/internal/submission"
)

type Store interface {
	EnsureSchema(ctx context.Context) error
	SaveSettings(ctx context.Context, values map[string]string) error
	LoadSettings(ctx context.Context) (map[string]string, error)
	CacheChallenges(ctx context.Context, coll challenges.Collection) error
	LoadChallenges(ctx context.Context) (challenges.Collection, error)
	RecordSubmission(sub submission.Submission, res submission.Result) error
	ListSubmissions(ctx context.Context, limit int) ([]state.SubmissionRecord, error)
	GetSummary(ctx context.Context) (state.Summary, error)
	Close() error
}
