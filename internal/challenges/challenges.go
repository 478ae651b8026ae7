package challenges

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

var ErrNotFound = errors.New("challenge not found")

// Challenge is one problem definition served by the backend.
type Challenge struct {
	Name    string `json:"name"`
	Command string `json:"command"`
	Table   string `json:"table"`
	Doc     string `json:"doc"`
}

// Collection is an ordered, read-only set of challenges. It is always
// replaced wholesale.
type Collection struct {
	Items []Challenge
}

// Parse decodes the challenge listing returned by api/game/challenge.
func Parse(data []byte) (Collection, error) {
	var items []Challenge
	if err := json.Unmarshal(data, &items); err != nil {
		return Collection{}, fmt.Errorf("parse challenges: %w", err)
	}
	out := make([]Challenge, 0, len(items))
	for _, c := range items {
		c.Command = strings.TrimSpace(c.Command)
		if c.Command == "" {
			continue
		}
		out = append(out, c)
	}
	return Collection{Items: out}, nil
}

func (c Collection) Len() int { return len(c.Items) }

// Clone returns a copy whose slice does not alias c.
func (c Collection) Clone() Collection {
	return Collection{Items: append([]Challenge(nil), c.Items...)}
}

func (c Collection) Lookup(command string) (Challenge, bool) {
	command = strings.TrimSpace(command)
	for _, ch := range c.Items {
		if ch.Command == command {
			return ch, true
		}
	}
	return Challenge{}, false
}

func (c Collection) Instructions(command string) (string, error) {
	ch, ok := c.Lookup(command)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, command)
	}
	return ch.Doc, nil
}

func (c Collection) Commands() []string {
	out := make([]string, 0, len(c.Items))
	for _, ch := range c.Items {
		out = append(out, ch.Command)
	}
	return out
}

// Tables lists the distinct scoring tables in first-seen order.
func (c Collection) Tables() []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(c.Items))
	for _, ch := range c.Items {
		t := strings.TrimSpace(ch.Table)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Suggest returns up to n commands closest to the given one by edit distance.
func (c Collection) Suggest(command string, n int) []string {
	if n <= 0 || len(c.Items) == 0 {
		return nil
	}
	type scored struct {
		cmd  string
		dist int
	}
	needle := strings.ToLower(strings.TrimSpace(command))
	list := make([]scored, 0, len(c.Items))
	for _, ch := range c.Items {
		d := levenshtein.ComputeDistance(needle, strings.ToLower(ch.Command))
		if d > max(3, len(needle)/2) {
			continue
		}
		list = append(list, scored{cmd: ch.Command, dist: d})
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].dist < list[j].dist })
	if len(list) > n {
		list = list[:n]
	}
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, s.cmd)
	}
	return out
}
