package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	organizationstore "github.com/dalemusser/soar/internal/app/store/organizations"
	programstore "github.com/dalemusser/soar/internal/app/store/programs"
	userstore "github.com/dalemusser/soar/internal/app/store/users"
	"github.com/dalemusser/soar/internal/app/system/htmlsanitize"
	"github.com/dalemusser/soar/internal/domain/models"
	"github.com/spf13/cobra"
)

func orgCmd(opts *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "org",
		Short: "Manage organizations",
	}
	cmd.AddCommand(orgCreateCmd(opts))
	cmd.AddCommand(orgListCmd(opts))
	cmd.AddCommand(orgAdviserCmd(opts))
	return cmd
}

func orgCreateCmd(opts *globalOpts) *cobra.Command {
	var (
		about    string
		public   bool
		programs []int64
		adviser  string
	)
	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create an organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, opts, func(ctx context.Context, e env) error {
				if err := programstore.New(e.db).ExistAll(ctx, programs); err != nil {
					return err
				}
				org := models.Organization{
					Name:              args[0],
					Description:       htmlsanitize.Sanitize(about),
					IsPublic:          public,
					AllowedProgramIDs: programs,
				}
				if adviser != "" {
					u, err := userstore.New(e.db).GetByEmail(ctx, adviser)
					if err != nil {
						return fmt.Errorf("adviser %q: %w", adviser, err)
					}
					org.AdviserID = &u.ID
				}
				created, err := organizationstore.New(e.db).Create(ctx, org)
				if err != nil {
					return err
				}
				e.audit.OrgCreated(ctx, nil, "", created.ID, created.Name)
				fmt.Fprintf(cmd.OutOrStdout(), "created organization %s (%s)\n", created.ID.Hex(), created.Name)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&about, "about", "", "Description (HTML is sanitized)")
	cmd.Flags().BoolVar(&public, "public", true, "Visible to every student")
	cmd.Flags().Int64SliceVar(&programs, "program", nil, "Allowed program id (repeatable); applies to private organizations")
	cmd.Flags().StringVar(&adviser, "adviser", "", "Email of a registered user to set as adviser")
	return cmd
}

func orgListCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List organizations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, opts, func(ctx context.Context, e env) error {
				orgs, err := organizationstore.New(e.db).List(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tPUBLIC\tPROGRAMS")
				for _, o := range orgs {
					ids := make([]string, 0, len(o.AllowedProgramIDs))
					for _, id := range o.AllowedProgramIDs {
						ids = append(ids, fmt.Sprint(id))
					}
					fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", o.ID.Hex(), o.Name, o.IsPublic, strings.Join(ids, ","))
				}
				return tw.Flush()
			})
		},
	}
}

func orgAdviserCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "adviser [org-name] [email]",
		Short: "Set an organization's adviser",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, opts, func(ctx context.Context, e env) error {
				orgs := organizationstore.New(e.db)
				org, err := orgs.GetByName(ctx, args[0])
				if err != nil {
					return fmt.Errorf("organization %q: %w", args[0], err)
				}
				u, err := userstore.New(e.db).GetByEmail(ctx, args[1])
				if err != nil {
					return fmt.Errorf("user %q: %w", args[1], err)
				}
				if err := orgs.SetAdviser(ctx, org.ID, u.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s now advises %s\n", u.Email, org.Name)
				return nil
			})
		},
	}
}
