package submission

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValidate(t *testing.T) {
	base := Submission{Challenge: "sort", Filename: "sol.py", Language: Python, Code: "print(1)"}
	cases := []struct {
		name   string
		mutate func(*Submission)
		want   error
		substr string
	}{
		{name: "valid", mutate: func(*Submission) {}},
		{name: "challenge unset", mutate: func(s *Submission) { s.Challenge = "" }, want: ErrChallengeUnset, substr: "Challenge"},
		{name: "challenge none", mutate: func(s *Submission) { s.Challenge = "None" }, want: ErrChallengeUnset, substr: "Challenge"},
		{name: "filename empty", mutate: func(s *Submission) { s.Filename = "" }, want: ErrFilenameUnset, substr: "Filename"},
		{name: "bad charset", mutate: func(s *Submission) { s.Filename = "bad name!" }, want: ErrFilenameCharset, substr: "invalid"},
		{name: "no code", mutate: func(s *Submission) { s.Code = "" }, want: ErrCodeUnset, substr: "Code not specified"},
		{name: "binary only", mutate: func(s *Submission) { s.Code = ""; s.Binary = []byte{1} }},
		{name: "presence before charset", mutate: func(s *Submission) { s.Code = ""; s.Filename = "bad name!" }, want: ErrCodeUnset},
	}
	for _, tc := range cases {
		s := base
		tc.mutate(&s)
		err := s.Validate()
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v want %v", tc.name, err, tc.want)
		}
		if tc.substr != "" && !strings.Contains(err.Error(), tc.substr) {
			t.Fatalf("%s: error %q does not mention %q", tc.name, err, tc.substr)
		}
	}
}

func TestPayloadJSONForCode(t *testing.T) {
	s := Submission{Challenge: "sort", Filename: "sol.py", Language: Python, Code: "x", Binary: nil}
	body, form, err := s.Payload()
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if form != nil {
		t.Fatalf("expected no form for code submission")
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[string]any{
		"challenge": "sort",
		"filename":  "sol.py",
		"language":  "Python",
		"test":      false,
		"code":      "x",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestPayloadFormForBinary(t *testing.T) {
	s := Submission{Challenge: "sort", Filename: "a.out", Language: Rust, Test: true, Binary: []byte("ELF")}
	body, form, err := s.Payload()
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if body != "" || form == nil {
		t.Fatalf("expected form payload only")
	}
	r, contentType, err := form.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		t.Fatalf("content type: %v", err)
	}
	mr := multipart.NewReader(r, params["boundary"])
	fields := map[string]string{}
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("next part: %v", err)
		}
		data, _ := io.ReadAll(p)
		fields[p.FormName()] = string(data)
		if p.FormName() == "binary" && p.FileName() != "a.out" {
			t.Fatalf("unexpected binary filename %q", p.FileName())
		}
	}
	want := map[string]string{
		"challenge": "sort",
		"filename":  "a.out",
		"language":  "Rust",
		"test":      "true",
		"binary":    "ELF",
	}
	if diff := cmp.Diff(want, fields); diff != "" {
		t.Fatalf("form mismatch (-want +got):\n%s", diff)
	}
}

func TestPayloadRejectsInvalid(t *testing.T) {
	if _, _, err := (Submission{}).Payload(); !errors.Is(err, ErrChallengeUnset) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseResult(t *testing.T) {
	r, err := ParseResult(`{"Success":{"score":42,"message":"fast"}}`)
	if err != nil {
		t.Fatalf("parse success: %v", err)
	}
	if !r.Accepted() || r.Success.Score != 42 || r.Message() != "fast" {
		t.Fatalf("unexpected result: %#v", r)
	}

	r, err = ParseResult(`{"Failure":{"message":"wrong answer"}}`)
	if err != nil {
		t.Fatalf("parse failure: %v", err)
	}
	if r.Accepted() || r.String() != "Failure: wrong answer" {
		t.Fatalf("unexpected result: %#v", r)
	}

	if _, err := ParseResult(`{}`); err == nil {
		t.Fatalf("expected error for empty union")
	}
	if _, err := ParseResult(`not json`); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestLanguages(t *testing.T) {
	if got := len(Languages()); got != 9 {
		t.Fatalf("expected 9 languages, got %d", got)
	}
	if l, ok := LanguageFromFilename("main.RS"); !ok || l != Rust {
		t.Fatalf("unexpected language %q", l)
	}
	if _, ok := LanguageFromFilename("README"); ok {
		t.Fatalf("expected no language for extensionless file")
	}
	for in, want := range map[string]Language{"python": Python, "C++": Cpp, "cpp": Cpp, "sh": Bash, "csharp": CSharp} {
		got, err := ParseLanguage(in)
		if err != nil || got != want {
			t.Fatalf("ParseLanguage(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseLanguage("cobol"); err == nil {
		t.Fatalf("expected error for unknown language")
	}
	if Cpp.Lexer() != "cpp" || Language("x").Lexer() != "plaintext" {
		t.Fatalf("unexpected lexer mapping")
	}
	for _, l := range Languages() {
		if got, ok := LanguageFromFilename("solution" + l.Extension()); !ok || got != l {
			t.Fatalf("extension %q does not map back to %q", l.Extension(), l)
		}
	}
}
