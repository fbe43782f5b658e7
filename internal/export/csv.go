// Package export renders analysis records for download.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tagging-ai/tagboard/pkg/models"
)

// Header is the first CSV line.
var Header = []string{"ID", "Text", "Sentiment", "Priority", "Confidence", "Timestamp"}

// CSV content types.
const (
	CSVContentType  = "text/csv"
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// WriteCSV writes records as CSV. The text column is always quoted with
// embedded quotes doubled; other columns are quoted only when they need it.
// Lines are separated by "\n" with no trailing newline.
func WriteCSV(w io.Writer, records []models.AnalysisResult) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(Header, ",")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range records {
		row := []string{
			field(r.ID),
			quote(r.Text),
			field(string(r.Sentiment)),
			field(string(r.Priority)),
			strconv.FormatFloat(r.Confidence, 'f', -1, 64),
			timestamp(r.Timestamp),
		}
		if _, err := bw.WriteString("\n" + strings.Join(row, ",")); err != nil {
			return fmt.Errorf("failed to write record %s: %w", r.ID, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// Filename names an export file created at t.
func Filename(t time.Time, ext string) string {
	return fmt.Sprintf("analysis-export-%s.%s", t.UTC().Format("20060102-150405"), ext)
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func field(s string) string {
	if strings.ContainsAny(s, ",\"\r\n") {
		return quote(s)
	}
	return s
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
