package ui

import "charm.land/lipgloss/v2"

type Theme struct {
	Header      lipgloss.Style
	Status      lipgloss.Style
	Tab         lipgloss.Style
	TabActive   lipgloss.Style
	PanelBorder lipgloss.Style
	PanelBody   lipgloss.Style
	Selected    lipgloss.Style
	Accent      lipgloss.Style
	Pass        lipgloss.Style
	Fail        lipgloss.Style
	Pending     lipgloss.Style
	Muted       lipgloss.Style
	Info        lipgloss.Style

	// Markdown is the glamour standard style matching the palette.
	Markdown string
}

func DefaultTheme() Theme {
	return ThemeForStyle("dark")
}

func ThemeForStyle(style string) Theme {
	switch style {
	case "light":
		return lightTheme()
	case "retro":
		return retroTheme()
	default:
		return darkTheme()
	}
}

func darkTheme() Theme {
	amber := lipgloss.Color("#FFC857")
	mint := lipgloss.Color("#67F0A8")
	brick := lipgloss.Color("#FF6F91")
	ink := lipgloss.Color("#0E1420")
	slate := lipgloss.Color("#1B2740")
	powder := lipgloss.Color("#EAF2FF")
	blue := lipgloss.Color("#5EEBFF")
	border := lipgloss.Color("#4B5F8A")

	return Theme{
		Header: lipgloss.NewStyle().
			Background(ink).
			Foreground(powder).
			Padding(0, 1),
		Status: lipgloss.NewStyle().
			Background(slate).
			Foreground(powder).
			Padding(0, 1),
		Tab: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CAAC6")).
			Padding(0, 1),
		TabActive: lipgloss.NewStyle().
			Background(blue).
			Foreground(ink).
			Bold(true).
			Padding(0, 1),
		PanelBorder: lipgloss.NewStyle().
			Foreground(border),
		PanelBody: lipgloss.NewStyle().
			Foreground(powder),
		Selected: lipgloss.NewStyle().
			Foreground(blue).
			Bold(true),
		Accent: lipgloss.NewStyle().
			Foreground(blue).
			Bold(true),
		Pass: lipgloss.NewStyle().
			Foreground(mint).
			Bold(true),
		Fail: lipgloss.NewStyle().
			Foreground(brick).
			Bold(true),
		Pending: lipgloss.NewStyle().
			Foreground(amber),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CAAC6")),
		Info: lipgloss.NewStyle().
			Foreground(blue),
		Markdown: "dark",
	}
}

func lightTheme() Theme {
	honey := lipgloss.Color("#B5761A")
	sage := lipgloss.Color("#2E8B57")
	rose := lipgloss.Color("#B4233C")
	paper := lipgloss.Color("#F4F6FA")
	mist := lipgloss.Color("#DDE3EE")
	night := lipgloss.Color("#1E2430")
	sky := lipgloss.Color("#2563B0")

	return Theme{
		Header:      lipgloss.NewStyle().Background(mist).Foreground(night).Padding(0, 1),
		Status:      lipgloss.NewStyle().Background(mist).Foreground(night).Padding(0, 1),
		Tab:         lipgloss.NewStyle().Foreground(lipgloss.Color("#5A6478")).Padding(0, 1),
		TabActive:   lipgloss.NewStyle().Background(sky).Foreground(paper).Bold(true).Padding(0, 1),
		PanelBorder: lipgloss.NewStyle().Foreground(lipgloss.Color("#8A96AD")),
		PanelBody:   lipgloss.NewStyle().Foreground(night),
		Selected:    lipgloss.NewStyle().Foreground(sky).Bold(true),
		Accent:      lipgloss.NewStyle().Foreground(sky).Bold(true),
		Pass:        lipgloss.NewStyle().Foreground(sage).Bold(true),
		Fail:        lipgloss.NewStyle().Foreground(rose).Bold(true),
		Pending:     lipgloss.NewStyle().Foreground(honey),
		Muted:       lipgloss.NewStyle().Foreground(lipgloss.Color("#5A6478")),
		Info:        lipgloss.NewStyle().Foreground(sky),
		Markdown:    "light",
	}
}

func retroTheme() Theme {
	lime := lipgloss.Color("#9CF5A2")
	amber := lipgloss.Color("#E5D47A")
	red := lipgloss.Color("#FF6B6B")
	deep := lipgloss.Color("#07150A")
	forest := lipgloss.Color("#12301A")
	glow := lipgloss.Color("#C5F7C4")

	return Theme{
		Header:      lipgloss.NewStyle().Background(deep).Foreground(glow).Padding(0, 1),
		Status:      lipgloss.NewStyle().Background(forest).Foreground(glow).Padding(0, 1),
		Tab:         lipgloss.NewStyle().Foreground(lipgloss.Color("#73A17A")).Padding(0, 1),
		TabActive:   lipgloss.NewStyle().Background(forest).Foreground(amber).Bold(true).Padding(0, 1),
		PanelBorder: lipgloss.NewStyle().Foreground(lipgloss.Color("#1F5C2F")),
		PanelBody:   lipgloss.NewStyle().Foreground(glow),
		Selected:    lipgloss.NewStyle().Foreground(amber).Bold(true),
		Accent:      lipgloss.NewStyle().Foreground(lime).Bold(true),
		Pass:        lipgloss.NewStyle().Foreground(lime).Bold(true),
		Fail:        lipgloss.NewStyle().Foreground(red).Bold(true),
		Pending:     lipgloss.NewStyle().Foreground(amber),
		Muted:       lipgloss.NewStyle().Foreground(lipgloss.Color("#73A17A")),
		Info:        lipgloss.NewStyle().Foreground(lime),
		Markdown:    "dark",
	}
}
