package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"codechallenge/internal/scoreboard"
	"codechallenge/internal/submission"
	"codechallenge/internal/ui"

	"charm.land/bubbles/v2/progress"
	"charm.land/lipgloss/v2"
	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newChallengesCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "challenges",
		Short: "List challenges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			listing, err := a.Challenges(cmd.Context())
			if err != nil {
				return err
			}
			if listing.Cached {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: showing cached challenges (%s)\n", listing.FetchErr)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "COMMAND\tNAME\tTABLE")
			for _, ch := range listing.Challenges.Items {
				fmt.Fprintf(w, "%s\t%s\t%s\n", ch.Command, ch.Name, ch.Table)
			}
			return w.Flush()
		},
	}
}

func newShowCmd(g *globalFlags) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "show <command>",
		Short: "Show a challenge's instructions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ch, err := a.Challenge(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := ch.Doc
			if !raw {
				out = renderMarkdown(ch.Doc, a.Config().UI.Style)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (table %s)\n\n%s\n", ch.Name, ch.Table, strings.TrimRight(out, "\n"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the markdown source")
	return cmd
}

func renderMarkdown(md, style string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(ui.ThemeForStyle(style).Markdown),
		glamour.WithWordWrap(78),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

func newScoresCmd(g *globalFlags) *cobra.Command {
	var filter, sortBy string
	cmd := &cobra.Command{
		Use:   "scores <table>",
		Short: "Show a scoreboard table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := scoreboard.ParseFilter(filter)
			if err != nil {
				return err
			}
			col, err := scoreboard.ParseSortColumn(sortBy)
			if err != nil {
				return err
			}
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			scores, err := a.Scores(cmd.Context(), args[0], f, col)
			if err != nil {
				return err
			}
			return writeScores(cmd.OutOrStdout(), scores)
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "all", "all, players or languages")
	cmd.Flags().StringVar(&sortBy, "sort", "time", "time, name, language or command")
	return cmd
}

func writeScores(out io.Writer, scores []scoreboard.Score) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tLANGUAGE\tCOMMAND\tTIME")
	for i, s := range scores {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i+1, s.Name, s.Language, s.Command, scoreboard.FormatTime(s.TimeNs))
	}
	return w.Flush()
}

type submitFlags struct {
	test     bool
	binary   bool
	show     bool
	language string
	name     string
}

func newSubmitCmd(g *globalFlags) *cobra.Command {
	sf := &submitFlags{}
	cmd := &cobra.Command{
		Use:   "submit <challenge> <file>",
		Short: "Submit a solution for judging",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, err := sf.build(args[0], args[1])
			if err != nil {
				return err
			}
			if sf.show && sub.HasCode() {
				if err := quick.Highlight(cmd.OutOrStdout(), sub.Code, sub.Language.Lexer(), "terminal256", "monokai"); err != nil {
					fmt.Fprintln(cmd.OutOrStdout(), sub.Code)
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			res, err := a.Submit(cmd.Context(), sub)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.String())
			if !res.Accepted() {
				return errRejected
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&sf.test, "test", false, "run against the sample input only")
	cmd.Flags().BoolVar(&sf.binary, "binary", false, "upload the file as a binary")
	cmd.Flags().BoolVar(&sf.show, "show", false, "print the highlighted source before submitting")
	cmd.Flags().StringVar(&sf.language, "language", "", "language (detected from the extension by default)")
	cmd.Flags().StringVar(&sf.name, "name", "", "filename sent to the judge (defaults to the file's base name)")
	return cmd
}

var errRejected = errors.New("submission rejected")

func (sf *submitFlags) build(challenge, path string) (submission.Submission, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return submission.Submission{}, err
	}
	sub := submission.Submission{
		Challenge: challenge,
		Filename:  filepath.Base(path),
		Test:      sf.test,
	}
	if sf.name != "" {
		sub.Filename = sf.name
	}
	switch {
	case sf.language != "":
		if sub.Language, err = submission.ParseLanguage(sf.language); err != nil {
			return submission.Submission{}, err
		}
	default:
		lang, ok := submission.LanguageFromFilename(sub.Filename)
		if !ok {
			return submission.Submission{}, fmt.Errorf("cannot detect the language of %s; pass --language", sub.Filename)
		}
		sub.Language = lang
	}
	if sf.binary || !utf8.Valid(data) {
		sub.Binary = data
	} else {
		sub.Code = string(data)
	}
	return sub, nil
}

func acceptedBar(accepted, total int) string {
	bar := progress.New(
		progress.WithWidth(30),
		progress.WithColors(lipgloss.Color("#E06C75"), lipgloss.Color("#98C379")),
		progress.WithScaled(true),
	)
	return bar.ViewAs(float64(accepted) / float64(total))
}

func newHistoryCmd(g *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past submissions from this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			h, err := a.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tCHALLENGE\tLANGUAGE\tKIND\tRESULT")
			for _, r := range h.Records {
				kind := "submit"
				if r.Test {
					kind = "test"
				}
				result := "rejected"
				if r.Accepted {
					result = fmt.Sprintf("score %d", r.Score)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", humanize.Time(r.TS), r.Challenge, r.Language, kind, result)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			s := h.Summary
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d submissions, %d accepted, %d tests, best score %d\n",
				s.Submissions, s.Accepted, s.Tests, s.BestScore)
			if s.Submissions > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), acceptedBar(s.Accepted, s.Submissions))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of submissions to show")
	return cmd
}
