package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tagging-ai/tagboard/internal/archive"
)

func (c *cli) archiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Manage the local Postgres copy of your history",
		Long: `When save_history is on and archive.dsn is configured, every analysis
the backend confirms is also written to a local Postgres table.`,
	}

	var down bool
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the archive schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !c.cfg.Archive.Enabled() {
				return errors.New("archive.dsn is not configured")
			}
			if down {
				if err := archive.MigrateDown(c.cfg.Archive.DSN); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Archive schema removed")
				return nil
			}
			if err := archive.Migrate(c.cfg.Archive.DSN); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Archive schema up to date")
			return nil
		},
	}
	migrate.Flags().BoolVar(&down, "down", false, "Drop the archive schema")

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List archived analyses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			db, err := c.openArchive(ctx)
			if err != nil {
				return err
			}
			rs, err := db.List(ctx, limit)
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return printJSON(cmd.OutOrStdout(), rs)
			}
			total, err := db.Count(ctx)
			if err != nil {
				return err
			}
			printTable(cmd.OutOrStdout(), rs, time.Now())
			fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d archived analyses\n", len(rs), total)
			return nil
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 100, "Show at most n analyses")

	sync := &cobra.Command{
		Use:   "sync",
		Short: "Copy the full backend history into the archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			client, err := c.authed()
			if err != nil {
				return err
			}
			db, err := c.openArchive(ctx)
			if err != nil {
				return err
			}
			rs, err := client.History(ctx)
			if err != nil {
				return failure(err)
			}
			if err := db.Upsert(ctx, rs...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archived %d analyses\n", len(rs))
			return nil
		},
	}

	cmd.AddCommand(migrate, list, sync)
	return cmd
}
