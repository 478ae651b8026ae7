package main

import (
	"errors"
	"os"

	"codechallenge/internal/app"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// globalFlags override the loaded config when set on the command line.
type globalFlags struct {
	config     string
	backendURL string
	dataDir    string
	logPath    string
	logLevel   string
	style      string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "codechallenge",
		Short:         "Play coding challenges from the terminal",
		Long:          "codechallenge opens the interactive client when run in a terminal.\nThe subcommands cover the same actions for scripts.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
				return cmd.Help()
			}
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Run(cmd.Context())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.config, "config", "", "config file (default is the user config dir)")
	pf.StringVar(&g.backendURL, "backend-url", "", "backend base URL")
	pf.StringVar(&g.dataDir, "data-dir", "", "directory for the local state database")
	pf.StringVar(&g.logPath, "log-path", "", "write JSON logs to this file")
	pf.StringVar(&g.logLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&g.style, "style", "", "dark, light or retro")

	root.AddCommand(
		newLoginCmd(g),
		newLogoutCmd(g),
		newRegisterCmd(g),
		newForgotPasswordCmd(g),
		newResetPasswordCmd(g),
		newChallengesCmd(g),
		newShowCmd(g),
		newScoresCmd(g),
		newSubmitCmd(g),
		newHistoryCmd(g),
	)
	return root
}

func (g *globalFlags) load(cmd *cobra.Command) (app.Config, error) {
	cfg, err := app.LoadConfig(g.config)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("backend-url") {
		cfg.BackendURL = g.backendURL
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = g.dataDir
	}
	if flags.Changed("log-path") {
		cfg.LogPath = g.logPath
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = g.logLevel
	}
	if flags.Changed("style") {
		cfg.UI.Style = g.style
	}
	return cfg, cfg.Validate()
}

func (g *globalFlags) open(cmd *cobra.Command) (*app.App, error) {
	cfg, err := g.load(cmd)
	if err != nil {
		return nil, err
	}
	return app.New(cfg)
}

var errNoTerminal = errors.New("stdin is not a terminal; pass the values as flags")

func interactive() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}
