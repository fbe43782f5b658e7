package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tagging-ai/tagboard/internal/progress"
	"github.com/tagging-ai/tagboard/internal/records"
	"github.com/tagging-ai/tagboard/internal/views"
)

func (c *cli) analyzeCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "analyze [text...]",
		Short: "Analyze a single text",
		Long: `Analyze a single text for sentiment, priority and tags.

The text comes from the arguments, or from --file (use - for stdin).

Examples:
  tagboard analyze "The checkout page keeps timing out"
  tagboard analyze --file complaint.txt
  echo "great service" | tagboard analyze -f - --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := analyzeInput(cmd, file, args)
			if err != nil {
				return err
			}

			ctx := commandContext(cmd)
			store, err := c.records(ctx)
			if err != nil {
				return err
			}
			m := views.NewMount(ctx)
			defer m.Unmount()

			v := views.NewSingleView(m, store, c.prefs.Notifications.HighPriorityAlerts)
			v.SetInput(text)
			stop := startSpinner(cmd.ErrOrStderr(), "Analyzing...")
			r, err := v.Analyze(ctx)
			stop()
			if err != nil {
				return failure(err)
			}

			if c.jsonOutput {
				return printJSON(cmd.OutOrStdout(), r)
			}
			printResult(cmd.OutOrStdout(), r, time.Now())
			if alert := v.State().Alert; alert != "" {
				fmt.Fprintln(cmd.ErrOrStderr())
				_, _ = color.New(color.FgRed, color.Bold).Fprintln(cmd.ErrOrStderr(), "  "+alert)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the text from a file (- for stdin)")
	return cmd
}

func analyzeInput(cmd *cobra.Command, file string, args []string) (string, error) {
	switch {
	case file != "" && len(args) > 0:
		return "", errors.New("pass text as arguments or --file, not both")
	case file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		return string(data), nil
	}
	return strings.Join(args, " "), nil
}

func (c *cli) batchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch <file.csv>",
		Short: "Analyze every row of a CSV file",
		Long: `Upload a CSV file for batch analysis and stream the processing log.

The CSV must contain a text column. Results are printed when the batch
completes; they are not added to the local history view.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			ctx := commandContext(cmd)
			store, err := c.records(ctx)
			if err != nil {
				return err
			}

			var content io.Reader = strings.NewReader("")
			if records.IsCSV(path) {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", path, err)
				}
				defer f.Close()
				content = f
			}

			m := views.NewMount(ctx)
			defer m.Unmount()

			emitter := progress.NewTextEmitter(cmd.ErrOrStderr())
			v := views.NewBatchView(m, store,
				views.WithEmitter(emitter),
				views.WithCompletionNotice(c.prefs.Notifications.BatchComplete),
			)
			results, err := v.Submit(ctx, filepath.Base(path), content)
			if err != nil {
				return failure(err)
			}

			if c.jsonOutput {
				return printJSON(cmd.OutOrStdout(), results)
			}
			fmt.Fprintln(cmd.ErrOrStderr())
			printTable(cmd.OutOrStdout(), results, time.Now())
			if notice := v.State().Notice; notice != "" {
				_, _ = color.New(color.FgGreen).Fprintln(cmd.ErrOrStderr(), notice)
			}
			return nil
		},
	}
}
