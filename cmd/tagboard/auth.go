package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tagging-ai/tagboard/internal/backend"
	"github.com/tagging-ai/tagboard/internal/session"
)

// prompter reads answers line by line from stdin.
type prompter struct {
	r *bufio.Reader
	w io.Writer
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{r: bufio.NewReader(cmd.InOrStdin()), w: cmd.ErrOrStderr()}
}

func (p *prompter) ask(label string) (string, error) {
	fmt.Fprintf(p.w, "%s: ", label)
	line, err := p.r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}

type field struct {
	label string
	value *string
}

// fill asks for every empty field.
func (p *prompter) fill(fields ...field) error {
	for _, f := range fields {
		if *f.value != "" {
			continue
		}
		v, err := p.ask(f.label)
		if err != nil {
			return err
		}
		*f.value = v
	}
	return nil
}

func (c *cli) loginCmd() *cobra.Command {
	var creds backend.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email or username",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.session.State() == session.StateAuthenticated {
				return fmt.Errorf("already logged in as %s, run `tagboard logout` first", c.session.User().DisplayName())
			}
			if err := newPrompter(cmd).fill(
				field{"Email or username", &creds.Identifier},
				field{"Password", &creds.Password},
			); err != nil {
				return err
			}
			if creds.Identifier == "" || creds.Password == "" {
				return errors.New("email or username and password are required")
			}

			if err := c.session.Login(commandContext(cmd), creds); err != nil {
				return errors.New(backend.UserMessage(err))
			}
			green := color.New(color.FgGreen)
			_, _ = green.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", c.session.User().DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVarP(&creds.Identifier, "user", "u", "", "Email or username")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "Password (prompted when empty)")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.session.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func (c *cli) registerCmd() *cobra.Command {
	var reg backend.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := newPrompter(cmd).fill(
				field{"Full name", &reg.Fullname},
				field{"Email", &reg.Email},
				field{"Username", &reg.Username},
				field{"Password", &reg.Password},
			); err != nil {
				return err
			}
			if reg.Email == "" || reg.Username == "" || reg.Password == "" {
				return errors.New("email, username and password are required")
			}
			if err := c.session.Register(commandContext(cmd), reg); err != nil {
				return errors.New(backend.UserMessage(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Account created, run `tagboard login` to sign in")
			return nil
		},
	}
	cmd.Flags().StringVar(&reg.Fullname, "fullname", "", "Full name")
	cmd.Flags().StringVar(&reg.Email, "email", "", "Email")
	cmd.Flags().StringVar(&reg.Username, "username", "", "Username")
	cmd.Flags().StringVar(&reg.Password, "password", "", "Password (prompted when empty)")
	return cmd
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.session.State() != session.StateAuthenticated {
				return errNotLoggedIn
			}
			u := c.session.User()
			if c.jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"user":       u,
					"backend":    c.client.BaseURL(),
					"expires_at": c.session.ExpiresAt(),
				})
			}
			w := cmd.OutOrStdout()
			name := u.DisplayName()
			if name == "" {
				name = "(unknown user)"
			}
			fmt.Fprintf(w, "%s\n", name)
			dim := color.New(color.FgHiBlack)
			_, _ = dim.Fprintf(w, "  backend: %s\n", c.client.BaseURL())
			if exp := c.session.ExpiresAt(); !exp.IsZero() {
				_, _ = dim.Fprintf(w, "  expires: %s\n", exp.Local().Format(time.RFC1123))
			}
			return nil
		},
	}
}
