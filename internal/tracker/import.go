package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/joescharf/tracker/internal/models"
	"github.com/joescharf/tracker/internal/store"
)

// ImportLine is one parsed "subject;description" line.
type ImportLine struct {
	Line        int
	Subject     string
	Description string
}

// LineError reports a rejected import line. Line is 1-based.
type LineError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// ImportResult summarizes an ImportIssues call.
type ImportResult struct {
	Imported []*models.Issue `json:"imported"`
	Errors   []LineError     `json:"errors"`
}

// Count returns the number of imported issues.
func (r *ImportResult) Count() int { return len(r.Imported) }

// ParseImport splits raw into lines and each non-blank line on its first
// semicolon. Lines with an empty subject are reported and skipped.
func ParseImport(raw string) ([]ImportLine, []LineError) {
	var (
		lines []ImportLine
		errs  []LineError
	)
	for i, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		subject, description, _ := strings.Cut(line, ";")
		subject = strings.TrimSpace(subject)
		if subject == "" {
			errs = append(errs, LineError{Line: i + 1, Reason: "empty subject"})
			continue
		}
		lines = append(lines, ImportLine{
			Line:        i + 1,
			Subject:     subject,
			Description: strings.TrimSpace(description),
		})
	}
	return lines, errs
}

// ImportIssues creates one issue per valid line of raw in a single serial
// pass and a single write. Ids are consecutive from the pre-batch next id.
// Invalid lines are reported without failing the batch; when no line is
// valid nothing is written.
func (t *Tracker) ImportIssues(ctx context.Context, raw string, category models.Category, author string) (*ImportResult, error) {
	author = strings.TrimSpace(author)
	if !category.Valid() {
		return nil, invalid("default_category", "must be one of bug, feature, support, improvement")
	}
	if author == "" {
		return nil, invalid("author", "is required")
	}

	lines, lineErrs := ParseImport(raw)
	result := &ImportResult{Errors: lineErrs}
	if len(lines) == 0 {
		return result, nil
	}

	var issues []*models.Issue
	err := t.store.Update(ctx, store.Issues, &issues, func() error {
		base := nextID(issues)
		now := t.timestamp()
		imported := make([]*models.Issue, 0, len(lines))
		for i, l := range lines {
			imported = append(imported, &models.Issue{
				ID:          base + i,
				CreatedAt:   now,
				Category:    category,
				Subject:     l.Subject,
				Description: l.Description,
				State:       models.StateNew,
				Author:      author,
				Comments:    []models.Comment{},
			})
		}
		issues = append(issues, imported...)
		result.Imported = imported
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("import issues: %w", err)
	}
	return result, nil
}
