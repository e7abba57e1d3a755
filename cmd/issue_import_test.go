package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/tracker/internal/models"
	"github.com/joescharf/tracker/internal/tracker"
)

const importFixture = `Fix bug;desc
No semicolon line
;empty subject

Printer jam; second floor
`

func writeImportFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "tickets.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIssueImportRun(t *testing.T) {
	dir := testEnv(t)
	resetIssueFlags(t)
	seedIssue(t, "existing")

	importCategory = "bug"
	require.NoError(t, issueImportRun(context.Background(), writeImportFile(t, dir, importFixture)))

	assert.Contains(t, stderr(), "Line 3: empty subject")
	assert.Contains(t, stdout(), "Imported 3 issue(s), next id is #5")

	issues, err := app.tracker.ListIssues(context.Background(), tracker.Filter{Category: models.CategoryBug})
	require.NoError(t, err)
	require.Len(t, issues, 3)
	// Most recent first.
	assert.Equal(t, 4, issues[0].ID)
	assert.Equal(t, "Printer jam", issues[0].Subject)
	assert.Equal(t, "second floor", issues[0].Description)
	assert.Equal(t, "No semicolon line", issues[1].Subject)
	assert.Empty(t, issues[1].Description)
	assert.Equal(t, "admin", issues[2].Author)
}

func TestIssueImportRun_DryRunPreviewsIDs(t *testing.T) {
	dir := testEnv(t)
	resetIssueFlags(t)
	seedIssue(t, "existing")

	importDryRun = true
	require.NoError(t, issueImportRun(context.Background(), writeImportFile(t, dir, importFixture)))

	out := stdout()
	assert.Contains(t, out, "#2")
	assert.Contains(t, out, "#3")
	assert.Contains(t, out, "#4")
	assert.NotContains(t, out, "#5")
	assert.Contains(t, stderr(), "Would create 3 issues")

	next, err := app.tracker.NextID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, next, "dry run must not write")
}

func TestIssueImportRun_Errors(t *testing.T) {
	dir := testEnv(t)
	resetIssueFlags(t)

	t.Run("missing file", func(t *testing.T) {
		err := issueImportRun(context.Background(), filepath.Join(dir, "nope.txt"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read file")
	})

	t.Run("empty file", func(t *testing.T) {
		err := issueImportRun(context.Background(), writeImportFile(t, dir, "  \n\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "file is empty")
	})

	t.Run("unknown category", func(t *testing.T) {
		importCategory = "chore"
		t.Cleanup(func() { importCategory = string(models.CategorySupport) })
		err := issueImportRun(context.Background(), writeImportFile(t, dir, "a;b"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown category")
	})
}

func TestIssueImportRun_NothingValid(t *testing.T) {
	dir := testEnv(t)
	resetIssueFlags(t)

	require.NoError(t, issueImportRun(context.Background(), writeImportFile(t, dir, ";one\n;two\n")))
	assert.Contains(t, stdout(), "No issues imported")
	assert.Contains(t, stderr(), "Line 2: empty subject")
}
