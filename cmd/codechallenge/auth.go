package main

import (
	"errors"
	"fmt"
	"strings"

	"codechallenge/internal/api"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

// promptField asks for value only when it is still empty.
type promptField struct {
	title  string
	value  *string
	secret bool
}

// prompt fills the empty fields with a huh form. Without a terminal the
// missing fields are reported instead.
func prompt(fields ...promptField) error {
	var inputs []huh.Field
	var missing []string
	for _, f := range fields {
		if *f.value != "" {
			continue
		}
		missing = append(missing, strings.ToLower(f.title))
		in := huh.NewInput().Title(f.title).Value(f.value)
		if f.secret {
			in = in.EchoMode(huh.EchoModePassword)
		}
		inputs = append(inputs, in)
	}
	if len(inputs) == 0 {
		return nil
	}
	if !interactive() {
		return fmt.Errorf("%w (missing %s)", errNoTerminal, strings.Join(missing, ", "))
	}
	err := huh.NewForm(huh.NewGroup(inputs...)).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return errors.New("aborted")
	}
	return err
}

func replyMessage(r api.AuthReply, fallback string) string {
	if msg := strings.TrimSpace(r.Message); msg != "" {
		return msg
	}
	return fallback
}

func newLoginCmd(g *globalFlags) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and keep the session for later commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := prompt(
				promptField{title: "Email", value: &email},
				promptField{title: "Password", value: &password, secret: true},
			); err != nil {
				return err
			}
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if _, err := a.Login(cmd.Context(), email, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newLogoutCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the stored cookie",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.Logout(cmd.Context()); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: backend logout failed: %v\n", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newRegisterCmd(g *globalFlags) *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := prompt(
				promptField{title: "Name", value: &name},
				promptField{title: "Email", value: &email},
				promptField{title: "Password", value: &password, secret: true},
			); err != nil {
				return err
			}
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			reply, err := a.Register(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), replyMessage(reply, "Registered"))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newForgotPasswordCmd(g *globalFlags) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Ask for a password reset email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := prompt(promptField{title: "Email", value: &email}); err != nil {
				return err
			}
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			reply, err := a.ForgotPassword(cmd.Context(), email)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), replyMessage(reply, "Reset email sent"))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func newResetPasswordCmd(g *globalFlags) *cobra.Command {
	var email, password, confirm string
	cmd := &cobra.Command{
		Use:   "reset-password <token>",
		Short: "Set a new password with the token from the reset email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := prompt(
				promptField{title: "Email", value: &email},
				promptField{title: "Password", value: &password, secret: true},
				promptField{title: "Confirm", value: &confirm, secret: true},
			); err != nil {
				return err
			}
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			reply, err := a.ResetPassword(cmd.Context(), args[0], email, password, confirm)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), replyMessage(reply, "Password changed"))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "new password")
	cmd.Flags().StringVar(&confirm, "confirm", "", "new password again")
	return cmd
}
