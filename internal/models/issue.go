package models

// Category classifies what kind of work an issue tracks.
type Category string

const (
	CategoryBug         Category = "bug"
	CategoryFeature     Category = "feature"
	CategorySupport     Category = "support"
	CategoryImprovement Category = "improvement"
)

// AllCategories returns every category in display order.
func AllCategories() []Category {
	return []Category{CategoryBug, CategoryFeature, CategorySupport, CategoryImprovement}
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryBug, CategoryFeature, CategorySupport, CategoryImprovement:
		return true
	}
	return false
}

// State represents where an issue is in the workflow.
// Any state may be reached from any other.
type State string

const (
	StateNew       State = "new"
	StateInProcess State = "in_process"
	StateReview    State = "review"
	StateDone      State = "done"
)

// AllStates returns every state in workflow order.
func AllStates() []State {
	return []State{StateNew, StateInProcess, StateReview, StateDone}
}

// Valid reports whether s is one of the fixed states.
func (s State) Valid() bool {
	switch s {
	case StateNew, StateInProcess, StateReview, StateDone:
		return true
	}
	return false
}

// Issue is a tracked ticket. Comments are append-only.
type Issue struct {
	ID          int           `json:"id"`
	CreatedAt   Timestamp     `json:"date"`
	Category    Category      `json:"category"`
	Subject     string        `json:"subject"`
	Description string        `json:"description"`
	State       State         `json:"state"`
	Author      string        `json:"author"`
	Comments    []Comment     `json:"comments"`
	Attachment  AttachmentRef `json:"attachment,omitempty"`
}

// AttachmentKeys returns the attachment keys of the issue and its comments,
// in display order.
func (i *Issue) AttachmentKeys() []string {
	var keys []string
	if i.Attachment != "" {
		keys = append(keys, string(i.Attachment))
	}
	for _, c := range i.Comments {
		if c.Attachment != "" {
			keys = append(keys, string(c.Attachment))
		}
	}
	return keys
}

// Comment is an immutable note appended to an issue.
type Comment struct {
	CreatedAt  Timestamp     `json:"date"`
	Body       string        `json:"comment"`
	Author     string        `json:"author"`
	Attachment AttachmentRef `json:"attachment,omitempty"`
}
