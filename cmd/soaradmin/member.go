package main

import (
	"context"
	"fmt"

	membershipstore "github.com/dalemusser/soar/internal/app/store/memberships"
	organizationstore "github.com/dalemusser/soar/internal/app/store/organizations"
	userstore "github.com/dalemusser/soar/internal/app/store/users"
	"github.com/dalemusser/soar/internal/domain/models"
	"github.com/spf13/cobra"
)

func memberCmd(opts *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Manage organization memberships",
	}

	var (
		orgName string
		email   string
		role    string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Add an approved membership, e.g. to seed an organization's first leader",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := models.ParseRole(role)
			if err != nil {
				return err
			}
			return withDB(cmd, opts, func(ctx context.Context, e env) error {
				org, err := organizationstore.New(e.db).GetByName(ctx, orgName)
				if err != nil {
					return fmt.Errorf("organization %q: %w", orgName, err)
				}
				u, err := userstore.New(e.db).GetByEmail(ctx, email)
				if err != nil {
					return fmt.Errorf("user %q: %w", email, err)
				}
				m, err := membershipstore.New(e.db).Add(ctx, org.ID, u.ID, r, true)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %s to %s as %s (%s)\n", u.Email, org.Name, m.Role.Label(), m.ID.Hex())
				return nil
			})
		},
	}
	add.Flags().StringVar(&orgName, "org", "", "Organization name")
	add.Flags().StringVar(&email, "email", "", "Email of a registered user")
	add.Flags().StringVar(&role, "role", "member", "member, officer or leader")
	_ = add.MarkFlagRequired("org")
	_ = add.MarkFlagRequired("email")
	cmd.AddCommand(add)

	return cmd
}
