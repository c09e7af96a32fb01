package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	programstore "github.com/dalemusser/soar/internal/app/store/programs"
	"github.com/spf13/cobra"
)

func programCmd(opts *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "program",
		Short: "Manage academic programs",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create [code] [name]",
		Short: "Create a program; its integer id is assigned automatically",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, opts, func(ctx context.Context, e env) error {
				p, err := programstore.New(e.db).Create(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created program %d (%s)\n", p.ID, p.Code)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List programs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, opts, func(ctx context.Context, e env) error {
				progs, err := programstore.New(e.db).List(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tCODE\tNAME")
				for _, p := range progs {
					fmt.Fprintf(tw, "%d\t%s\t%s\n", p.ID, p.Code, p.Name)
				}
				return tw.Flush()
			})
		},
	})

	return cmd
}
