package tracker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/tracker/internal/models"
	"github.com/joescharf/tracker/internal/store"
)

func TestParseImport(t *testing.T) {
	t.Run("subject and optional description", func(t *testing.T) {
		lines, errs := ParseImport("Fix login;Users cannot login\nUpdate documentation\n")
		assert.Empty(t, errs)
		require.Len(t, lines, 2)
		assert.Equal(t, ImportLine{Line: 1, Subject: "Fix login", Description: "Users cannot login"}, lines[0])
		assert.Equal(t, ImportLine{Line: 2, Subject: "Update documentation"}, lines[1])
	})

	t.Run("splits on first semicolon only", func(t *testing.T) {
		lines, _ := ParseImport("Subject ; a;b;c ")
		require.Len(t, lines, 1)
		assert.Equal(t, "Subject", lines[0].Subject)
		assert.Equal(t, "a;b;c", lines[0].Description)
	})

	t.Run("blank lines skipped but counted", func(t *testing.T) {
		lines, errs := ParseImport("\n   \r\nthird\r\n\n;  \n")
		require.Len(t, lines, 1)
		assert.Equal(t, 3, lines[0].Line)
		assert.Equal(t, "third", lines[0].Subject)
		assert.Equal(t, []LineError{{Line: 5, Reason: "empty subject"}}, errs)
	})

	t.Run("empty input", func(t *testing.T) {
		lines, errs := ParseImport("")
		assert.Empty(t, lines)
		assert.Empty(t, errs)
	})
}

func TestImportIssues_MixedBatch(t *testing.T) {
	tr, s := newTestTracker(t)

	res, err := tr.ImportIssues(context.Background(),
		"Fix bug;desc\nNo semicolon line\n;empty subject\n", models.CategoryBug, "alice")
	require.NoError(t, err)

	assert.Equal(t, 2, res.Count())
	require.Len(t, res.Errors, 1)
	assert.Equal(t, LineError{Line: 3, Reason: "empty subject"}, res.Errors[0])
	assert.Equal(t, "line 3: empty subject", res.Errors[0].Error())

	issues := loadIssues(t, s)
	require.Len(t, issues, 2)
	assert.Equal(t, 1, issues[0].ID)
	assert.Equal(t, "Fix bug", issues[0].Subject)
	assert.Equal(t, "desc", issues[0].Description)
	assert.Equal(t, models.CategoryBug, issues[0].Category)
	assert.Equal(t, 2, issues[1].ID)
	assert.Equal(t, "No semicolon line", issues[1].Subject)
	assert.Equal(t, "", issues[1].Description)
	assert.Equal(t, models.CategoryBug, issues[1].Category)
	for _, i := range issues {
		assert.Equal(t, models.StateNew, i.State)
		assert.Equal(t, "alice", i.Author)
		assert.Empty(t, i.Attachment)
	}
}

func TestImportIssues_IDsContinueFromExisting(t *testing.T) {
	tr, s := newTestTracker(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := tr.CreateIssue(ctx, validIssue("existing"))
		require.NoError(t, err)
	}

	res, err := tr.ImportIssues(ctx, "a\nb\nc", models.CategorySupport, "bob")
	require.NoError(t, err)
	require.Equal(t, 3, res.Count())
	assert.Equal(t, []int{3, 4, 5}, []int{res.Imported[0].ID, res.Imported[1].ID, res.Imported[2].ID})
	assert.Len(t, loadIssues(t, s), 5)
}

func TestImportIssues_NothingValidWritesNothing(t *testing.T) {
	tr, s := newTestTracker(t)

	res, err := tr.ImportIssues(context.Background(), ";x\n\n;y", models.CategoryBug, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Count())
	assert.Len(t, res.Errors, 2)

	exists, err := s.Exists(store.Issues)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestImportIssues_RejectsBadCategory(t *testing.T) {
	tr, _ := newTestTracker(t)
	_, err := tr.ImportIssues(context.Background(), "a", "chore", "alice")
	assert.ErrorIs(t, err, ErrInvalid)
}
