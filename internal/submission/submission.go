package submission

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"codechallenge/internal/request"
)

// Messages are shown to the user as-is.
var (
	ErrChallengeUnset  = errors.New("Challenge not specified")
	ErrFilenameUnset   = errors.New("Filename not specified")
	ErrCodeUnset       = errors.New("Code not specified")
	ErrFilenameCharset = errors.New("Filename contains invalid characters")
)

// Submission is one entry sent to the judge. Either Code or Binary is set.
type Submission struct {
	Player    string
	Challenge string
	Filename  string
	Language  Language
	Test      bool
	Code      string
	Binary    []byte
}

type codeBody struct {
	Player    string `json:"player,omitempty"`
	Challenge string `json:"challenge"`
	Filename  string `json:"filename"`
	Language  string `json:"language"`
	Test      bool   `json:"test"`
	Code      string `json:"code"`
}

func (s Submission) HasCode() bool   { return s.Code != "" }
func (s Submission) HasBinary() bool { return len(s.Binary) > 0 }

// Validate checks the submission before anything is sent. The first failing
// rule wins, in this order: challenge, filename present, code or binary
// present, filename characters.
func (s Submission) Validate() error {
	ch := strings.TrimSpace(s.Challenge)
	if ch == "" || strings.EqualFold(ch, "none") {
		return ErrChallengeUnset
	}
	if s.Filename == "" {
		return ErrFilenameUnset
	}
	if !s.HasCode() && !s.HasBinary() {
		return ErrCodeUnset
	}
	if !validFilename(s.Filename) {
		return ErrFilenameCharset
	}
	return nil
}

func validFilename(name string) bool {
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '.', r == '-':
		default:
			return false
		}
	}
	return true
}

// JSON encodes a source-code submission.
func (s Submission) JSON() (string, error) {
	if !s.HasCode() {
		return "", ErrCodeUnset
	}
	data, err := json.Marshal(codeBody{
		Player:    s.Player,
		Challenge: s.Challenge,
		Filename:  s.Filename,
		Language:  s.Language.String(),
		Test:      s.Test,
		Code:      s.Code,
	})
	if err != nil {
		return "", fmt.Errorf("encode submission: %w", err)
	}
	return string(data), nil
}

// Form encodes a binary submission as multipart fields plus a binary part.
func (s Submission) Form() (*request.Form, error) {
	if !s.HasBinary() {
		return nil, errors.New("binary payload is empty")
	}
	f := request.NewForm().
		Field("challenge", s.Challenge).
		Field("filename", s.Filename).
		Field("language", s.Language.String()).
		Field("test", fmt.Sprintf("%t", s.Test))
	if s.Player != "" {
		f.Field("player", s.Player)
	}
	return f.File("binary", s.Filename, s.Binary), nil
}

// Payload picks the wire form: JSON when code is present, multipart
// otherwise. Exactly one of the returned values is set on success.
func (s Submission) Payload() (string, *request.Form, error) {
	if err := s.Validate(); err != nil {
		return "", nil, err
	}
	if s.HasCode() {
		body, err := s.JSON()
		return body, nil, err
	}
	form, err := s.Form()
	return "", form, err
}
