// Package tracker implements issue creation, comments, state changes and
// bulk import on top of the whole-document issues collection.
package tracker

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/joescharf/tracker/internal/models"
	"github.com/joescharf/tracker/internal/store"
)

// NewIssue is the input of CreateIssue.
type NewIssue struct {
	Category    models.Category `json:"category" validate:"required,category"`
	Subject     string          `json:"subject" validate:"required"`
	Description string          `json:"description" validate:"required"`
	Author      string          `json:"author" validate:"required"`
	Attachment  string          `json:"attachment"`
}

// NewComment is the input of AddComment.
type NewComment struct {
	Body       string `json:"comment" validate:"required"`
	Author     string `json:"author" validate:"required"`
	Attachment string `json:"attachment"`
}

func (in NewIssue) normalize() NewIssue {
	in.Subject = strings.TrimSpace(in.Subject)
	in.Description = strings.TrimSpace(in.Description)
	in.Author = strings.TrimSpace(in.Author)
	return in
}

// Validate reports whether CreateIssue would accept in.
func (in NewIssue) Validate() error { return check(in.normalize()) }

func (in NewComment) normalize() NewComment {
	in.Body = strings.TrimSpace(in.Body)
	in.Author = strings.TrimSpace(in.Author)
	return in
}

// Validate reports whether AddComment would accept in.
func (in NewComment) Validate() error { return check(in.normalize()) }

// Filter narrows ListIssues. Zero values match everything.
type Filter struct {
	State    models.State
	Category models.Category
}

// Tracker owns the issues collection.
type Tracker struct {
	store store.Store
	now   func() time.Time
}

// New creates a Tracker persisting through s.
func New(s store.Store) *Tracker {
	return &Tracker{store: s, now: time.Now}
}

// Init writes an empty issues document on first run.
func (t *Tracker) Init(ctx context.Context) error {
	exists, err := t.store.Exists(store.Issues)
	if err != nil || exists {
		return err
	}
	return t.store.Save(ctx, store.Issues, []*models.Issue{})
}

func (t *Tracker) timestamp() models.Timestamp {
	return models.NewTimestamp(t.now())
}

// nextID returns one past the highest id in issues. With no deletions this
// equals len(issues)+1.
func nextID(issues []*models.Issue) int {
	return lo.Max(lo.Map(issues, func(i *models.Issue, _ int) int { return i.ID })) + 1
}

func findIssue(issues []*models.Issue, id int) (*models.Issue, bool) {
	return lo.Find(issues, func(i *models.Issue) bool { return i.ID == id })
}

// CreateIssue validates in and appends a new issue in state "new".
func (t *Tracker) CreateIssue(ctx context.Context, in NewIssue) (*models.Issue, error) {
	in = in.normalize()
	if err := check(in); err != nil {
		return nil, err
	}

	var (
		issues  []*models.Issue
		created *models.Issue
	)
	err := t.store.Update(ctx, store.Issues, &issues, func() error {
		created = &models.Issue{
			ID:          nextID(issues),
			CreatedAt:   t.timestamp(),
			Category:    in.Category,
			Subject:     in.Subject,
			Description: in.Description,
			State:       models.StateNew,
			Author:      in.Author,
			Comments:    []models.Comment{},
			Attachment:  models.AttachmentRef(in.Attachment),
		}
		issues = append(issues, created)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}
	return created, nil
}

// GetIssue returns the issue with the given id.
func (t *Tracker) GetIssue(ctx context.Context, id int) (*models.Issue, error) {
	var issues []*models.Issue
	if err := t.store.Load(ctx, store.Issues, &issues); err != nil {
		return nil, fmt.Errorf("get issue: %w", err)
	}
	issue, ok := findIssue(issues, id)
	if !ok {
		return nil, issueNotFound(id)
	}
	return issue, nil
}

// ListIssues returns matching issues, most recently created first.
func (t *Tracker) ListIssues(ctx context.Context, f Filter) ([]*models.Issue, error) {
	var issues []*models.Issue
	if err := t.store.Load(ctx, store.Issues, &issues); err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	out := lo.Filter(issues, func(i *models.Issue, _ int) bool {
		if f.State != "" && i.State != f.State {
			return false
		}
		if f.Category != "" && i.Category != f.Category {
			return false
		}
		return true
	})
	slices.Reverse(out)
	return out, nil
}

// Counts returns the number of issues per state.
func (t *Tracker) Counts(ctx context.Context) (map[models.State]int, error) {
	var issues []*models.Issue
	if err := t.store.Load(ctx, store.Issues, &issues); err != nil {
		return nil, fmt.Errorf("count issues: %w", err)
	}
	counts := make(map[models.State]int, len(models.AllStates()))
	for _, s := range models.AllStates() {
		counts[s] = 0
	}
	for _, i := range issues {
		counts[i.State]++
	}
	return counts, nil
}

// NextID returns the id the next created issue will get.
func (t *Tracker) NextID(ctx context.Context) (int, error) {
	var issues []*models.Issue
	if err := t.store.Load(ctx, store.Issues, &issues); err != nil {
		return 0, fmt.Errorf("next id: %w", err)
	}
	return nextID(issues), nil
}

// AddComment appends a comment to an existing issue.
func (t *Tracker) AddComment(ctx context.Context, issueID int, in NewComment) (*models.Comment, error) {
	in = in.normalize()
	if err := check(in); err != nil {
		return nil, err
	}

	var (
		issues  []*models.Issue
		comment models.Comment
	)
	err := t.store.Update(ctx, store.Issues, &issues, func() error {
		issue, ok := findIssue(issues, issueID)
		if !ok {
			return issueNotFound(issueID)
		}
		comment = models.Comment{
			CreatedAt:  t.timestamp(),
			Body:       in.Body,
			Author:     in.Author,
			Attachment: models.AttachmentRef(in.Attachment),
		}
		issue.Comments = append(issue.Comments, comment)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}
	return &comment, nil
}

// UpdateState overwrites the state of an existing issue. No history is kept.
func (t *Tracker) UpdateState(ctx context.Context, issueID int, state models.State) error {
	if !state.Valid() {
		return invalid("state", "must be one of new, in_process, review, done")
	}

	var issues []*models.Issue
	err := t.store.Update(ctx, store.Issues, &issues, func() error {
		issue, ok := findIssue(issues, issueID)
		if !ok {
			return issueNotFound(issueID)
		}
		if issue.State == state {
			return store.ErrNoChange
		}
		issue.State = state
		return nil
	})
	if err != nil {
		return fmt.Errorf("update state: %w", err)
	}
	return nil
}
