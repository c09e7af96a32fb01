package main

import (
	"context"
	"errors"
	"fmt"

	userstore "github.com/dalemusser/soar/internal/app/store/users"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
)

func userCmd(opts *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage local user records",
	}

	var revoke bool
	staff := &cobra.Command{
		Use:   "staff [email]",
		Short: "Grant (or with --revoke, remove) staff on a registered user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, opts, func(ctx context.Context, e env) error {
				u, err := userstore.New(e.db).SetStaff(ctx, args[0], !revoke)
				if errors.Is(err, mongo.ErrNoDocuments) {
					return fmt.Errorf("no user with email %q; they must register and sign in first", args[0])
				}
				if err != nil {
					return err
				}
				e.audit.StaffChanged(ctx, u.ID, u.IsStaff)
				fmt.Fprintf(cmd.OutOrStdout(), "%s staff=%t\n", u.Email, u.IsStaff)
				return nil
			})
		},
	}
	staff.Flags().BoolVar(&revoke, "revoke", false, "Remove staff instead of granting it")
	cmd.AddCommand(staff)

	return cmd
}
