package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/tagging-ai/tagboard/internal/views"
	"github.com/tagging-ai/tagboard/pkg/models"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func badge(t views.Treatment, value string) string {
	return color.New(t.Attr, color.Bold).Sprint(value)
}

func printResult(w io.Writer, r models.AnalysisResult, now time.Time) {
	bold := color.New(color.Bold)
	dim := color.New(color.FgHiBlack)

	_, _ = dim.Fprintf(w, "#%s  %s\n", views.ShortID(r.ID), views.RelativeTime(r.Timestamp, now))
	fmt.Fprintf(w, "%s  %s\n",
		badge(views.SentimentTreatment(r.Sentiment), string(r.Sentiment)),
		badge(views.PriorityTreatment(r.Priority), string(r.Priority)))
	printConfidenceBar(w, r.ConfidencePercent())
	fmt.Fprintln(w)

	_, _ = bold.Fprintln(w, "TEXT")
	fmt.Fprintln(w, r.Text)
	fmt.Fprintln(w)

	_, _ = bold.Fprintln(w, "TAGS")
	if len(r.Tags) == 0 {
		_, _ = dim.Fprintln(w, "none")
	} else {
		fmt.Fprintln(w, strings.Join(r.Tags, ", "))
	}
	fmt.Fprintln(w)

	_, _ = bold.Fprintln(w, "DETAILED ANALYSIS")
	fmt.Fprintln(w, r.Detailed())
}

func printConfidenceBar(w io.Writer, confidence int) {
	const barWidth = 24
	filled := min(confidence*barWidth/100, barWidth)

	var barColor *color.Color
	switch {
	case confidence >= 80:
		barColor = color.New(color.FgGreen)
	case confidence >= 40:
		barColor = color.New(color.FgYellow)
	default:
		barColor = color.New(color.FgRed)
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	fmt.Fprintf(w, "Confidence: %s ", views.Percent(confidence))
	_, _ = barColor.Fprint(w, bar)
	fmt.Fprintln(w)
}

// printTable writes one line per record.
func printTable(w io.Writer, rs []models.AnalysisResult, now time.Time) {
	dim := color.New(color.FgHiBlack)
	for _, r := range rs {
		fmt.Fprintf(w, "%-6s  %-8s  %-6s  %4s  %-40s  ",
			views.ShortID(r.ID),
			badge(views.SentimentTreatment(r.Sentiment), string(r.Sentiment)),
			badge(views.PriorityTreatment(r.Priority), string(r.Priority)),
			views.Percent(r.ConfidencePercent()),
			views.Truncate(strings.ReplaceAll(r.Text, "\n", " "), 40),
		)
		_, _ = dim.Fprintln(w, views.RelativeTime(r.Timestamp, now))
	}
}

func printStats(w io.Writer, s models.Stats) {
	bold := color.New(color.Bold)

	fmt.Fprintf(w, "Total processed:   %s\n", views.FormatNumber(s.TotalProcessed))
	fmt.Fprintf(w, "Average sentiment: %s/10\n", s.AvgSentiment)
	fmt.Fprintf(w, "High priority:     %s\n", views.FormatNumber(s.HighPriority))
	fmt.Fprintln(w)

	_, _ = bold.Fprintln(w, "SENTIMENT")
	for _, v := range models.Sentiments {
		fmt.Fprintf(w, "  %-10s %d\n", badge(views.SentimentTreatment(v), string(v)), s.Sentiment[v])
	}
	_, _ = bold.Fprintln(w, "PRIORITY")
	for _, v := range models.Priorities {
		fmt.Fprintf(w, "  %-10s %d\n", badge(views.PriorityTreatment(v), string(v)), s.Priority[v])
	}
}

// startSpinner shows a spinner on stderr when it is a terminal. The
// returned func stops it.
func startSpinner(w io.Writer, suffix string) func() {
	f, ok := w.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(f))
	s.Suffix = " " + suffix
	s.Start()
	return s.Stop
}
