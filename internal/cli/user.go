package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/apex-career/backend/internal/db"
	"github.com/apex-career/backend/internal/model"
	"github.com/spf13/cobra"
)

var errUserNotFound = errors.New("no account with that email")

// accountAdmin is the store surface the user commands need.
type accountAdmin interface {
	SetUserActive(ctx context.Context, email string, active bool) (*model.User, error)
}

func newUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Account administration",
	}
	cmd.AddCommand(newSetActiveCommand(nil))
	return cmd
}

// newSetActiveCommand builds "user set-active". A nil store opens Postgres from config.
func newSetActiveCommand(store accountAdmin) *cobra.Command {
	var (
		email  string
		active bool
	)
	cmd := &cobra.Command{
		Use:   "set-active",
		Short: "Activate or deactivate an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if store == nil {
				cfg, log, err := bootstrap()
				if err != nil {
					return err
				}
				defer func() { _ = log.Sync() }()

				pg, err := openDatabase(ctx, cfg)
				if err != nil {
					return err
				}
				defer pg.Pool.Close()
				store = pg
			}
			return setActive(ctx, store, cmd.OutOrStdout(), email, active)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().BoolVar(&active, "active", true, "whether the account may log in")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func setActive(ctx context.Context, store accountAdmin, out io.Writer, email string, active bool) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("--email is required")
	}

	user, err := store.SetUserActive(ctx, email, active)
	if err != nil {
		if db.IsNoRows(err) {
			return fmt.Errorf("%w: %s", errUserNotFound, email)
		}
		return err
	}

	state := "inactive"
	if user.IsActive {
		state = "active"
	}
	_, err = fmt.Fprintf(out, "%s is now %s\n", user.Email, state)
	return err
}
