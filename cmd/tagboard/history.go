package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tagging-ai/tagboard/internal/tui"
	"github.com/tagging-ai/tagboard/internal/views"
	"github.com/tagging-ai/tagboard/pkg/models"
)

// openHistory loads history into a view bound to m.
func (c *cli) openHistory(ctx context.Context, m *views.Mount) (*views.HistoryView, error) {
	store, err := c.records(ctx)
	if err != nil {
		return nil, err
	}
	v := views.NewHistoryView(m, store)
	if err := v.Load(ctx); err != nil {
		return nil, failure(err)
	}
	return v, nil
}

// resolveID accepts a full id or the short id shown in listings.
func resolveID(v *views.HistoryView, id string) (string, error) {
	var matches []string
	for _, r := range v.State().Records {
		if r.ID == id {
			return id, nil
		}
		if strings.HasSuffix(r.ID, id) {
			matches = append(matches, r.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no analysis with id %s", id)
	case 1:
		return matches[0], nil
	}
	return "", fmt.Errorf("id %s is ambiguous (%d matches)", id, len(matches))
}

func (c *cli) historyCmd() *cobra.Command {
	var sentiment, priority, query string
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past analyses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := views.Filter{Query: query}
			if sentiment != "" {
				s, ok := models.ParseSentiment(sentiment)
				if !ok {
					return fmt.Errorf("unknown sentiment %q", sentiment)
				}
				f.Sentiment = s
			}
			if priority != "" {
				p, ok := models.ParsePriority(priority)
				if !ok {
					return fmt.Errorf("unknown priority %q", priority)
				}
				f.Priority = p
			}

			ctx := commandContext(cmd)
			m := views.NewMount(ctx)
			defer m.Unmount()
			v, err := c.openHistory(ctx, m)
			if err != nil {
				return err
			}
			v.SetFilter(f)
			st := v.State()
			rs := st.Records
			if limit > 0 && len(rs) > limit {
				rs = rs[:limit]
			}

			if c.jsonOutput {
				return printJSON(cmd.OutOrStdout(), rs)
			}
			if len(rs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No analyses found.")
				return nil
			}
			printTable(cmd.OutOrStdout(), rs, time.Now())
			dim := color.New(color.FgHiBlack)
			_, _ = dim.Fprintf(cmd.ErrOrStderr(), "%d of %d analyses\n", len(rs), st.Total)
			return nil
		},
	}
	cmd.Flags().StringVar(&sentiment, "sentiment", "", "Only this sentiment (positive, neutral, negative)")
	cmd.Flags().StringVar(&priority, "priority", "", "Only this priority (high, medium, low)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Search text and tags")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most n analyses")
	return cmd
}

func (c *cli) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one analysis in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			m := views.NewMount(ctx)
			defer m.Unmount()
			v, err := c.openHistory(ctx, m)
			if err != nil {
				return err
			}
			id, err := resolveID(v, args[0])
			if err != nil {
				return err
			}
			v.Select(id)
			r := v.State().Selected

			if c.jsonOutput {
				return printJSON(cmd.OutOrStdout(), r)
			}
			printResult(cmd.OutOrStdout(), *r, time.Now())
			return nil
		},
	}
}

func (c *cli) editCmd() *cobra.Command {
	var text, sentiment, priority string
	var tags, addTags, removeTags []string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the text, sentiment, priority or tags of an analysis",
		Long: `Change an analysis. Fields not given keep their current value.

Examples:
  tagboard edit 4f2a9c --priority high
  tagboard edit 4f2a9c --add-tag billing --remove-tag misc
  tagboard edit 4f2a9c --tags refund,urgent --sentiment negative`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("text") && !flags.Changed("sentiment") && !flags.Changed("priority") &&
				!flags.Changed("tags") && len(addTags) == 0 && len(removeTags) == 0 {
				return errors.New("nothing to change")
			}

			var s models.Sentiment
			var p models.Priority
			if flags.Changed("sentiment") {
				var ok bool
				if s, ok = models.ParseSentiment(sentiment); !ok {
					return fmt.Errorf("unknown sentiment %q", sentiment)
				}
			}
			if flags.Changed("priority") {
				var ok bool
				if p, ok = models.ParsePriority(priority); !ok {
					return fmt.Errorf("unknown priority %q", priority)
				}
			}

			ctx := commandContext(cmd)
			m := views.NewMount(ctx)
			defer m.Unmount()
			v, err := c.openHistory(ctx, m)
			if err != nil {
				return err
			}
			id, err := resolveID(v, args[0])
			if err != nil {
				return err
			}
			v.Select(id)
			if err := v.StartEdit(); err != nil {
				return err
			}
			_ = v.EditDraft(func(d *models.Draft) {
				if flags.Changed("text") {
					d.Text = text
				}
				if s != "" {
					d.Sentiment = s
				}
				if p != "" {
					d.Priority = p
				}
				if flags.Changed("tags") {
					d.Tags = models.NormalizeTags(tags)
				}
				for _, t := range addTags {
					d.Tags = d.Tags.Add(t)
				}
				for _, t := range removeTags {
					d.Tags = d.Tags.Remove(t)
				}
			})

			if err := v.Save(ctx); err != nil {
				return failure(err)
			}
			r := v.State().Selected
			if c.jsonOutput {
				return printJSON(cmd.OutOrStdout(), r)
			}
			_, _ = color.New(color.FgGreen).Fprintf(cmd.ErrOrStderr(), "Saved #%s\n", views.ShortID(r.ID))
			printResult(cmd.OutOrStdout(), *r, time.Now())
			return nil
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "New text")
	cmd.Flags().StringVar(&sentiment, "sentiment", "", "New sentiment")
	cmd.Flags().StringVar(&priority, "priority", "", "New priority")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Replace all tags")
	cmd.Flags().StringSliceVar(&addTags, "add-tag", nil, "Add a tag")
	cmd.Flags().StringSliceVar(&removeTags, "remove-tag", nil, "Remove a tag")
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			m := views.NewMount(ctx)
			defer m.Unmount()
			v, err := c.openHistory(ctx, m)
			if err != nil {
				return err
			}
			id, err := resolveID(v, args[0])
			if err != nil {
				return err
			}

			if !yes {
				v.Select(id)
				r := v.State().Selected
				answer, err := newPrompter(cmd).ask(fmt.Sprintf("Delete %q? This cannot be undone [y/N]", views.Truncate(r.Text, 50)))
				if err != nil {
					return err
				}
				if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
					fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled")
					return nil
				}
			}

			if err := v.Delete(ctx, id); err != nil {
				return failure(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted #%s\n", views.ShortID(id))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}

func (c *cli) browseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse and edit history interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			store, err := c.records(ctx)
			if err != nil {
				return err
			}
			m := views.NewMount(ctx)
			defer m.Unmount()

			b := tui.NewBrowser(ctx, views.NewHistoryView(m, store))
			p := tea.NewProgram(b, tea.WithAltScreen(), tea.WithContext(ctx))
			if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return fmt.Errorf("browser failed: %w", err)
			}
			return nil
		},
	}
}
