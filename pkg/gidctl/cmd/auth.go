package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/telekom/gcloud-identity/pkg/gidctl/auth"
)

func NewAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage cached credentials",
	}
	cmd.AddCommand(
		newAuthLoginCommand(),
		newAuthStatusCommand(),
		newAuthLogoutCommand(),
	)
	return cmd
}

func newAuthLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Run the interactive login, replacing any cached credential",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			manager, err := rt.buildManager()
			if err != nil {
				return err
			}
			bundle, err := manager.Login(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Authenticated as %s. Token expires at %s\n",
				bundle.ScopeIdentity, bundle.Expiry.UTC().Format(time.RFC3339))
			return nil
		},
	}
}

func newAuthStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status without touching the network",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			manager, err := rt.buildManager()
			if err != nil {
				return err
			}
			bundle, fresh, err := manager.Status()
			if err != nil {
				if errors.Is(err, auth.ErrNotFound) {
					_, _ = fmt.Fprintln(rt.Writer(), "Not authenticated")
					return nil
				}
				return err
			}
			state := "valid"
			if !fresh {
				state = "stale, will refresh on next use"
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Authenticated as %s. Token expires at %s (%s)\n",
				bundle.ScopeIdentity, bundle.Expiry.UTC().Format(time.RFC3339), state)
			return nil
		},
	}
}

func newAuthLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the cached credential",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			manager, err := rt.buildManager()
			if err != nil {
				return err
			}
			if err := manager.Logout(); err != nil {
				if errors.Is(err, auth.ErrNotFound) {
					_, _ = fmt.Fprintln(rt.Writer(), "Not authenticated")
					return nil
				}
				return err
			}
			_, _ = fmt.Fprintln(rt.Writer(), "Logged out")
			return nil
		},
	}
}
