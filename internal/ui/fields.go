package ui

import (
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
)

type field struct {
	label string
	input textinput.Model
}

// fields is a vertical form of single-line inputs with one focused entry.
type fields struct {
	items []field
	focus int
}

func newField(label, placeholder string, secret bool) field {
	in := textinput.New()
	in.Placeholder = placeholder
	in.Prompt = ""
	if secret {
		in.EchoMode = textinput.EchoPassword
	}
	return field{label: label, input: in}
}

func newFields(items ...field) fields {
	f := fields{items: items}
	if len(f.items) > 0 {
		f.items[0].input.Focus()
	}
	return f
}

func (f *fields) value(i int) string {
	if i < 0 || i >= len(f.items) {
		return ""
	}
	return strings.TrimSpace(f.items[i].input.Value())
}

// raw returns the value untrimmed, for passwords.
func (f *fields) raw(i int) string {
	if i < 0 || i >= len(f.items) {
		return ""
	}
	return f.items[i].input.Value()
}

func (f *fields) set(i int, v string) {
	if i >= 0 && i < len(f.items) {
		f.items[i].input.SetValue(v)
	}
}

func (f *fields) move(delta int) tea.Cmd {
	if len(f.items) == 0 {
		return nil
	}
	f.items[f.focus].input.Blur()
	f.focus = wrapIndex(f.focus+delta, len(f.items))
	return f.items[f.focus].input.Focus()
}

func (f *fields) update(msg tea.Msg) tea.Cmd {
	if len(f.items) == 0 {
		return nil
	}
	var cmd tea.Cmd
	f.items[f.focus].input, cmd = f.items[f.focus].input.Update(msg)
	return cmd
}

func (f *fields) lines(k *kit, width int) []string {
	labelW := 0
	for _, it := range f.items {
		labelW = max(labelW, len(it.label))
	}
	out := make([]string, 0, len(f.items)*2)
	for i, it := range f.items {
		label := it.label + strings.Repeat(" ", labelW-len(it.label)) + "  "
		marker := "  "
		if i == f.focus {
			marker = "> "
			label = k.theme.Selected.Render(label)
		} else {
			label = k.theme.Muted.Render(label)
		}
		out = append(out, fitCells(marker+label+it.input.View(), width), "")
	}
	return out
}
