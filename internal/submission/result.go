package submission

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Result is the judge's verdict. Exactly one of Success or Failure is set.
type Result struct {
	Success *Accepted `json:"Success,omitempty"`
	Failure *Rejected `json:"Failure,omitempty"`
}

type Accepted struct {
	Score   uint32 `json:"score"`
	Message string `json:"message"`
}

type Rejected struct {
	Message string `json:"message"`
}

func ParseResult(body string) (Result, error) {
	var r Result
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return Result{}, fmt.Errorf("decode submission result: %w", err)
	}
	if (r.Success == nil) == (r.Failure == nil) {
		return Result{}, errors.New("submission result must be exactly one of Success or Failure")
	}
	return r, nil
}

func (r Result) Accepted() bool { return r.Success != nil }

func (r Result) Message() string {
	switch {
	case r.Success != nil:
		return r.Success.Message
	case r.Failure != nil:
		return r.Failure.Message
	default:
		return ""
	}
}

func (r Result) String() string {
	switch {
	case r.Success != nil:
		return fmt.Sprintf("Success! Score: %d. %s", r.Success.Score, r.Success.Message)
	case r.Failure != nil:
		return "Failure: " + r.Failure.Message
	default:
		return "No result"
	}
}
