package domain

import (
	"strings"
	"time"
)

// ValidationError reports a missing or malformed field. It is returned before
// any network or database work happens.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

var (
	ErrTitleRequired = &ValidationError{Field: "title", Message: "Title is required"}
	ErrNameRequired  = &ValidationError{Field: "name", Message: "Name is required"}
	ErrTitleEmpty    = &ValidationError{Field: "title", Message: "Title must not be empty"}
)

type ExtrasInput struct {
	DueDate  *time.Time `json:"dueDate,omitempty"`
	Priority string     `json:"priority,omitempty"`
	LabelIDs *[]string  `json:"labelIds,omitempty"`
}

// Labels returns the extras label ids; set is false when the input leaves
// them untouched. A non-nil empty list clears them.
func (in *ExtrasInput) Labels() (ids []string, set bool) {
	if in == nil || in.LabelIDs == nil {
		return nil, false
	}
	return *in.LabelIDs, true
}

// TaskInput is the create payload for a task.
type TaskInput struct {
	Title        string       `json:"title"`
	Description  *string      `json:"description,omitempty"`
	Status       string       `json:"status,omitempty"`
	CollectionID *string      `json:"collectionId,omitempty"`
	LabelIDs     []string     `json:"labelIds,omitempty"`
	Extras       *ExtrasInput `json:"extras,omitempty"`
}

func (in TaskInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return ErrTitleRequired
	}
	return nil
}

// AllLabelIDs merges the top-level and extras label ids without duplicates.
func (in TaskInput) AllLabelIDs() []string {
	extra, _ := in.Extras.Labels()
	return mergeIDs(in.LabelIDs, extra)
}

// TaskPatch is the update payload for a task. Nil fields are left untouched;
// an empty CollectionID detaches the task from its collection and a non-nil
// empty LabelIDs clears its labels.
type TaskPatch struct {
	Title        *string      `json:"title,omitempty"`
	Description  *string      `json:"description,omitempty"`
	Status       *string      `json:"status,omitempty"`
	CollectionID *string      `json:"collectionId,omitempty"`
	LabelIDs     *[]string    `json:"labelIds,omitempty"`
	Extras       *ExtrasInput `json:"extras,omitempty"`
}

func (p TaskPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ErrTitleEmpty
	}
	return nil
}

// LabelChange reports the label ids the patch assigns, merging the top-level
// and extras lists. ok is false when the patch leaves labels untouched.
func (p TaskPatch) LabelChange() (ids []string, ok bool) {
	extra, ok := p.Extras.Labels()
	var top []string
	if p.LabelIDs != nil {
		top = *p.LabelIDs
		ok = true
	}
	return mergeIDs(top, extra), ok
}

type CollectionInput struct {
	Name  string  `json:"name"`
	Color *string `json:"color,omitempty"`
}

func (in CollectionInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrNameRequired
	}
	return nil
}

type LabelInput struct {
	Name  string  `json:"name"`
	Color *string `json:"color,omitempty"`
}

func (in LabelInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrNameRequired
	}
	return nil
}

// LabelPatch updates a label; both fields are optional.
type LabelPatch struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

func (p LabelPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return ErrNameRequired
	}
	return nil
}

type SignupInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func mergeIDs(lists ...[]string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, id := range list {
			id = strings.TrimSpace(id)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
