package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/joescharf/tracker/internal/models"
)

// UI provides colored output and respects verbose/dry-run modes.
type UI struct {
	Verbose bool
	DryRun  bool
	Out     io.Writer
	ErrOut  io.Writer
}

// New creates a UI with default stdout/stderr writers.
func New() *UI {
	return &UI{
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
}

var (
	infoPrefix    = color.New(color.FgHiBlue).Sprint("i")
	successPrefix = color.New(color.FgHiGreen).Sprint("✓")
	warningPrefix = color.New(color.FgHiYellow).Sprint("⚠")
	errorPrefix   = color.New(color.FgHiRed).Sprint("✗")
	verbosePrefix = color.New(color.FgHiBlue).Sprint("  →")
	bold          = color.New(color.Bold).SprintFunc()
	cyan          = color.New(color.FgHiCyan).SprintFunc()
	green         = color.New(color.FgHiGreen).SprintFunc()
	yellow        = color.New(color.FgHiYellow).SprintFunc()
	magenta       = color.New(color.FgHiMagenta).SprintFunc()
	red           = color.New(color.FgHiRed).SprintFunc()
)

// Cyan returns a cyan-colored string.
func Cyan(s string) string { return cyan(s) }

// Green returns a green-colored string.
func Green(s string) string { return green(s) }

// Yellow returns a yellow-colored string.
func Yellow(s string) string { return yellow(s) }

// Red returns a red-colored string.
func Red(s string) string { return red(s) }

// StateColor returns the string colored by issue state.
func StateColor(state string) string {
	switch strings.ToLower(state) {
	case string(models.StateNew):
		return cyan(state)
	case string(models.StateInProcess):
		return yellow(state)
	case string(models.StateReview):
		return magenta(state)
	case string(models.StateDone):
		return green(state)
	default:
		return state
	}
}

// CategoryColor highlights bugs; other categories are left plain.
func CategoryColor(category string) string {
	if category == string(models.CategoryBug) {
		return red(category)
	}
	return category
}

func (u *UI) Info(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", infoPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Success(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", successPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Warning(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", warningPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Error(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", errorPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) VerboseLog(format string, a ...any) {
	if u.Verbose {
		fmt.Fprintf(u.Out, "%s %s\n", verbosePrefix, fmt.Sprintf(format, a...))
	}
}

func (u *UI) DryRunMsg(format string, a ...any) {
	if u.DryRun {
		u.Warning("[DRY-RUN] "+format, a...)
	}
}

// Table creates a new tablewriter configured with consistent styling.
func (u *UI) Table(headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}

// IssueTable renders one row per issue.
func (u *UI) IssueTable(issues []*models.Issue) error {
	table := u.Table([]string{"ID", "Date", "Category", "State", "Subject", "Comments"})
	for _, i := range issues {
		_ = table.Append([]string{
			fmt.Sprintf("#%d", i.ID),
			i.CreatedAt.Format("2006-01-02"),
			CategoryColor(string(i.Category)),
			StateColor(string(i.State)),
			i.Subject,
			fmt.Sprintf("%d", len(i.Comments)),
		})
	}
	return table.Render()
}

// IssueDetail prints an issue with its comments. files resolves attachment
// keys to their records; missing keys are shown as-is.
func (u *UI) IssueDetail(issue *models.Issue, files map[string]*models.Attachment) {
	fmt.Fprintf(u.Out, "%s %s\n", bold(fmt.Sprintf("#%d", issue.ID)), bold(issue.Subject))
	fmt.Fprintf(u.Out, "  %s  %s  %s  by %s (%s)\n",
		CategoryColor(string(issue.Category)),
		StateColor(string(issue.State)),
		issue.CreatedAt,
		issue.Author,
		humanize.Time(issue.CreatedAt.Time),
	)
	if issue.Attachment != "" {
		fmt.Fprintf(u.Out, "  attachment: %s\n", attachmentLabel(string(issue.Attachment), files))
	}
	fmt.Fprintln(u.Out)
	for _, line := range strings.Split(issue.Description, "\n") {
		fmt.Fprintf(u.Out, "  %s\n", line)
	}

	if len(issue.Comments) == 0 {
		return
	}
	fmt.Fprintf(u.Out, "\n%s\n", bold(fmt.Sprintf("Comments (%d)", len(issue.Comments))))
	for _, c := range issue.Comments {
		fmt.Fprintf(u.Out, "\n  %s %s\n", cyan(c.Author), c.CreatedAt)
		for _, line := range strings.Split(c.Body, "\n") {
			fmt.Fprintf(u.Out, "    %s\n", line)
		}
		if c.Attachment != "" {
			fmt.Fprintf(u.Out, "    attachment: %s\n", attachmentLabel(string(c.Attachment), files))
		}
	}
}

func attachmentLabel(key string, files map[string]*models.Attachment) string {
	rec, ok := files[key]
	if !ok {
		return key
	}
	return fmt.Sprintf("%s (%s, %s)", rec.OriginalName, humanize.Bytes(uint64(max(rec.Size, 0))), key)
}
