package scoreboard

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// Score is one judged run as reported by the scores endpoint.
type Score struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	Command  string `json:"command"`
	TimeNs   uint64 `json:"time_ns"`
}

type Filter int

const (
	All Filter = iota
	UniquePlayers
	UniqueLanguages
)

func (f Filter) String() string {
	switch f {
	case UniquePlayers:
		return "Unique Players"
	case UniqueLanguages:
		return "Unique Languages"
	default:
		return "All"
	}
}

func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return All, nil
	case "players", "unique-players", "unique_players":
		return UniquePlayers, nil
	case "languages", "unique-languages", "unique_languages":
		return UniqueLanguages, nil
	default:
		return All, fmt.Errorf("unknown filter %q", s)
	}
}

type SortColumn string

const (
	ByTime     SortColumn = "time"
	ByName     SortColumn = "name"
	ByLanguage SortColumn = "language"
	ByCommand  SortColumn = "command"
)

func ParseSortColumn(s string) (SortColumn, error) {
	switch col := SortColumn(strings.ToLower(strings.TrimSpace(s))); col {
	case "":
		return ByTime, nil
	case ByTime, ByName, ByLanguage, ByCommand:
		return col, nil
	default:
		return ByTime, fmt.Errorf("unknown sort column %q", s)
	}
}

func Parse(body string) ([]Score, error) {
	var scores []Score
	if err := json.Unmarshal([]byte(body), &scores); err != nil {
		return nil, fmt.Errorf("decode scores: %w", err)
	}
	return scores, nil
}

// Apply filters then sorts a copy of scores. Unique filters keep the best
// (lowest) time per key. Ties on the sort column fall back to time.
func Apply(scores []Score, filter Filter, col SortColumn) []Score {
	var out []Score
	switch filter {
	case UniquePlayers:
		out = bestBy(scores, func(s Score) string { return s.Name })
	case UniqueLanguages:
		out = bestBy(scores, func(s Score) string { return s.Language })
	default:
		out = append([]Score(nil), scores...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch col {
		case ByName:
			if a.Name != b.Name {
				return a.Name < b.Name
			}
		case ByLanguage:
			if a.Language != b.Language {
				return a.Language < b.Language
			}
		case ByCommand:
			if a.Command != b.Command {
				return a.Command < b.Command
			}
		}
		return a.TimeNs < b.TimeNs
	})
	return out
}

func bestBy(scores []Score, key func(Score) string) []Score {
	idx := map[string]int{}
	var out []Score
	for _, s := range scores {
		k := key(s)
		if i, ok := idx[k]; ok {
			if s.TimeNs < out[i].TimeNs {
				out[i] = s
			}
			continue
		}
		idx[k] = len(out)
		out = append(out, s)
	}
	return out
}

// FormatTime renders a nanosecond duration with an SI prefix, e.g. "1.234 ms".
func FormatTime(ns uint64) string {
	return humanize.SIWithDigits(float64(ns)/1e9, 3, "s")
}
