package web

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/joescharf/tracker/internal/models"
	"github.com/joescharf/tracker/internal/tracker"
)

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"badge":     stateBadge,
		"day":       day,
		"kb":        kilobytes,
		"bytes":     func(n int64) string { return humanize.Bytes(uint64(max(n, 0))) },
		"ago":       func(ts models.Timestamp) string { return humanize.Time(ts.Time) },
		"nl2br":     nl2br,
		"lineError": lineError,
	}
}

func stateBadge(s models.State) string {
	if !s.Valid() {
		return "badge-unknown"
	}
	return "badge-" + string(s)
}

func day(ts models.Timestamp) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Format("2006-01-02")
}

// kilobytes formats n as KB with one decimal, grouping thousands.
func kilobytes(n int64) string {
	return humanize.CommafWithDigits(float64(n)/1024, 1)
}

// nl2br escapes s and turns line breaks into <br>.
func nl2br(s string) template.HTML {
	escaped := template.HTMLEscapeString(strings.ReplaceAll(s, "\r\n", "\n"))
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>\n"))
}

func lineError(e tracker.LineError) string {
	reason := e.Reason
	if reason != "" {
		reason = strings.ToUpper(reason[:1]) + reason[1:]
	}
	return fmt.Sprintf("Line %d: %s", e.Line, reason)
}
