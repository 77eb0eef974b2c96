package commands

import (
	"fmt"

	"github.com/benvon/smart-calendar/internal/config"
	"github.com/benvon/smart-calendar/internal/session"
	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login <token>",
		Short: "Store a bearer token for later commands",
		Long:  "Stores the token in the configured session store (SESSION_BACKEND=file or redis). JWT expiry is honoured.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.SessionBackend == config.SessionBackendMemory {
				return fmt.Errorf("SESSION_BACKEND=memory cannot keep a login; use file or redis, or pass --token")
			}
			tok, err := session.NewToken(args[0])
			if err != nil {
				return err
			}
			store, err := a.persistentStore(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to open session store: %w", err)
			}
			if err := store.Save(cmd.Context(), tok); err != nil {
				return fmt.Errorf("failed to save session: %w", err)
			}

			msg := "Logged in"
			if sub := session.Subject(tok); sub != "" {
				msg += " as " + sub
			}
			if !tok.Expiry.IsZero() {
				msg += fmt.Sprintf(" until %s", tok.Expiry.Local().Format("2006-01-02 15:04"))
			}
			fmt.Fprintln(a.out, msg)
			return nil
		},
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.persistentStore(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to open session store: %w", err)
			}
			if err := store.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}
