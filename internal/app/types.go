package app

import (
	"codechallenge/internal/challenges"
	"codechallenge/internal/state"
)

// Listing is a challenge list and where it came from. FetchErr is set when
// the backend could not be reached and the cache was used instead.
type Listing struct {
	Challenges challenges.Collection
	Cached     bool
	FetchErr   string
}

type History struct {
	Records []state.SubmissionRecord
	Summary state.Summary
}

const (
	settingUser          = "user"
	settingLastChallenge = "last_challenge"
	settingLastLanguage  = "last_language"
)
