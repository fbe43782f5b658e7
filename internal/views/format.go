package views

import (
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"
)

// RelativeTime describes t relative to now. Anything older than a week is
// printed as a date.
func RelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return ago(int(d/time.Minute), "minute")
	case d < 24*time.Hour:
		return ago(int(d/time.Hour), "hour")
	case d < 7*24*time.Hour:
		return ago(int(d/(24*time.Hour)), "day")
	}
	return t.Local().Format("Jan 2, 2006, 15:04")
}

func ago(n int, unit string) string {
	if n != 1 {
		unit += "s"
	}
	return fmt.Sprintf("%d %s ago", n, unit)
}

// Truncate shortens s to n runes and appends "..." when it was cut.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// FormatNumber groups thousands with commas.
func FormatNumber(n int) string {
	s := strconv.Itoa(n)
	neg := n < 0
	if neg {
		s = s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		return "-" + s
	}
	return s
}

// ShortID returns the last six characters of id for compact listings.
func ShortID(id string) string {
	if len(id) <= 6 {
		return id
	}
	return id[len(id)-6:]
}

// Percent renders a confidence percentage.
func Percent(p int) string {
	return strconv.Itoa(p) + "%"
}
