package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tagging-ai/tagboard/internal/export"
	"github.com/tagging-ai/tagboard/internal/storage"
	"github.com/tagging-ai/tagboard/pkg/models"
)

func (c *cli) exportCmd() *cobra.Command {
	var format, output string
	var upload bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export history as CSV or Excel",
		Long: `Export your analysis history.

CSV is built locally from the history. Excel files are generated by the
backend. With --upload the file goes to the configured object storage and
a download link valid for 24 hours is printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)

			var data []byte
			var contentType string
			switch format {
			case "csv":
				store, err := c.records(ctx)
				if err != nil {
					return err
				}
				if err := store.LoadAll(ctx); err != nil {
					return failure(err)
				}
				var buf bytes.Buffer
				if err := export.WriteCSV(&buf, store.Snapshot()); err != nil {
					return err
				}
				data, contentType = buf.Bytes(), export.CSVContentType
			case "xlsx":
				client, err := c.authed()
				if err != nil {
					return err
				}
				stop := startSpinner(cmd.ErrOrStderr(), "Generating Excel export...")
				data, err = client.ExportExcel(ctx)
				stop()
				if err != nil {
					return failure(err)
				}
				contentType = export.XLSXContentType
			default:
				return fmt.Errorf("unknown format %q, use csv or xlsx", format)
			}

			name := export.Filename(time.Now(), format)
			if upload {
				if !c.cfg.Storage.Enabled() {
					return errors.New("storage.endpoint is not configured")
				}
				s, err := storage.New(ctx, storage.Options{
					Endpoint:  c.cfg.Storage.Endpoint,
					Region:    c.cfg.Storage.Region,
					Bucket:    c.cfg.Storage.Bucket,
					AccessKey: c.cfg.Storage.AccessKey,
					SecretKey: c.cfg.Storage.SecretKey,
					UseSSL:    c.cfg.Storage.UseSSL,
				})
				if err != nil {
					return err
				}
				link, err := s.Upload(ctx, storage.ExportKey(c.session.User().Username, name), data, contentType)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), link.String())
				return nil
			}

			if output == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if output == "" {
				output = name
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (%d bytes)\n", output, len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "csv or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, - for stdout (default analysis-export-<time>.<format>)")
	cmd.Flags().BoolVar(&upload, "upload", false, "Upload to object storage and print a link")
	return cmd
}

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			store, err := c.records(ctx)
			if err != nil {
				return err
			}
			if err := store.LoadAll(ctx); err != nil {
				return failure(err)
			}
			stats := models.ComputeStats(store.Snapshot())
			if c.jsonOutput {
				return printJSON(cmd.OutOrStdout(), stats)
			}
			printStats(cmd.OutOrStdout(), stats)
			return nil
		},
	}
}
