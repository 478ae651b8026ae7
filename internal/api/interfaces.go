package api

import "codechallenge/internal/submission"

type Logger interface {
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
}

// History receives every judged submission.
type History interface {
	RecordSubmission(sub submission.Submission, res submission.Result) error
}
