package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/tracker/internal/models"
	"github.com/joescharf/tracker/internal/output"
	"github.com/joescharf/tracker/internal/tracker"
)

var (
	importCategory string
	importDryRun   bool
)

var issueImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Bulk-create issues from a text file",
	Long: `Import issues from a text file, one per line:

  subject;description

The description is optional. Blank lines are skipped and lines with an
empty subject are reported without stopping the import. Every issue gets
the category given by --category. Use "-" to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueImportRun(cmd.Context(), args[0])
	},
}

func init() {
	issueImportCmd.Flags().StringVar(&importCategory, "category", string(models.CategorySupport), "Category for every imported issue")
	issueImportCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Preview the ids that would be assigned without creating issues")
	issueCmd.AddCommand(issueImportCmd)
}

func readImportSource(file string) (string, error) {
	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	content := string(data)
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("file is empty: %s", file)
	}
	return content, nil
}

func issueImportRun(ctx context.Context, file string) error {
	content, err := readImportSource(file)
	if err != nil {
		return err
	}
	category := models.Category(importCategory)
	if !category.Valid() {
		return fmt.Errorf("unknown category %q", importCategory)
	}

	a, err := getDeps(ctx)
	if err != nil {
		return err
	}

	if importDryRun || dryRun {
		return importPreview(ctx, a.tracker, content, category)
	}

	res, err := a.tracker.ImportIssues(ctx, content, category, author(a))
	if err != nil {
		return err
	}
	reportLineErrors(res.Errors)
	if res.Count() == 0 {
		ui.Info("No issues imported.")
		return nil
	}

	if err := ui.IssueTable(res.Imported); err != nil {
		return err
	}
	ui.Success("Imported %d issue(s), next id is %s", res.Count(),
		output.Cyan(fmt.Sprintf("#%d", res.Imported[len(res.Imported)-1].ID+1)))
	return nil
}

// importPreview shows the ids the import would assign right now.
func importPreview(ctx context.Context, t *tracker.Tracker, content string, category models.Category) error {
	lines, errs := tracker.ParseImport(content)
	reportLineErrors(errs)
	if len(lines) == 0 {
		ui.Info("No valid lines to import.")
		return nil
	}

	next, err := t.NextID(ctx)
	if err != nil {
		return err
	}
	table := ui.Table([]string{"ID", "Line", "Category", "Subject", "Description"})
	for i, l := range lines {
		_ = table.Append([]string{
			fmt.Sprintf("#%d", next+i),
			fmt.Sprintf("%d", l.Line),
			output.CategoryColor(string(category)),
			l.Subject,
			l.Description,
		})
	}
	if err := table.Render(); err != nil {
		return err
	}

	// --dry-run on import works without the global flag.
	ui.Warning("[DRY-RUN] Would create %d issues", len(lines))
	return nil
}

func reportLineErrors(errs []tracker.LineError) {
	for _, e := range errs {
		ui.Warning("Line %d: %s", e.Line, e.Reason)
	}
}
