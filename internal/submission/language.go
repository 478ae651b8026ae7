package submission

import (
	"fmt"
	"path/filepath"
	"strings"
)

type Language string

const (
	C          Language = "C"
	Cpp        Language = "C++"
	CSharp     Language = "C#"
	Go         Language = "Go"
	Java       Language = "Java"
	JavaScript Language = "JavaScript"
	Python     Language = "Python"
	Rust       Language = "Rust"
	Bash       Language = "Bash"
)

var languages = []Language{C, Cpp, CSharp, Go, Java, JavaScript, Python, Rust, Bash}

var lexers = map[Language]string{
	C:          "c",
	Cpp:        "cpp",
	CSharp:     "csharp",
	Go:         "go",
	Java:       "java",
	JavaScript: "javascript",
	Python:     "python",
	Rust:       "rust",
	Bash:       "bash",
}

var extensions = map[string]Language{
	".c":    C,
	".h":    C,
	".cc":   Cpp,
	".cpp":  Cpp,
	".cxx":  Cpp,
	".hpp":  Cpp,
	".cs":   CSharp,
	".go":   Go,
	".java": Java,
	".js":   JavaScript,
	".mjs":  JavaScript,
	".py":   Python,
	".rs":   Rust,
	".sh":   Bash,
	".bash": Bash,
}

// Languages lists every language the judge accepts, in menu order.
func Languages() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}

func (l Language) String() string { return string(l) }

// Lexer is the chroma lexer name used to highlight sources in l.
func (l Language) Lexer() string {
	if name, ok := lexers[l]; ok {
		return name
	}
	return "plaintext"
}

var defaultExt = map[Language]string{
	C:          ".c",
	Cpp:        ".cpp",
	CSharp:     ".cs",
	Go:         ".go",
	Java:       ".java",
	JavaScript: ".js",
	Python:     ".py",
	Rust:       ".rs",
	Bash:       ".sh",
}

// Extension is the file extension a new source file in l gets.
func (l Language) Extension() string {
	if ext, ok := defaultExt[l]; ok {
		return ext
	}
	return ".txt"
}

func (l Language) Valid() bool {
	_, ok := lexers[l]
	return ok
}

// ParseLanguage accepts a display name or lexer name, case-insensitively.
func ParseLanguage(s string) (Language, error) {
	s = strings.TrimSpace(s)
	for _, l := range languages {
		if strings.EqualFold(s, string(l)) || strings.EqualFold(s, lexers[l]) {
			return l, nil
		}
	}
	switch strings.ToLower(s) {
	case "c++", "cplusplus":
		return Cpp, nil
	case "sh", "shell", "shellscript":
		return Bash, nil
	case "js", "node":
		return JavaScript, nil
	case "py":
		return Python, nil
	}
	return "", fmt.Errorf("unknown language %q", s)
}

// LanguageFromFilename guesses the language from the file extension.
func LanguageFromFilename(name string) (Language, bool) {
	l, ok := extensions[strings.ToLower(filepath.Ext(name))]
	return l, ok
}
