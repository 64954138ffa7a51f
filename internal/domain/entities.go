// Package domain holds the entity types shared by the API server and the
// offline client, together with their normalization and validation rules.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entity is implemented by every record the client caches and persists.
type Entity[T any] interface {
	GetID() string
	OwnerID() string
	Clone() T
}

type User struct {
	ID                     string `json:"id"`
	Email                  string `json:"email"`
	Name                   string `json:"name"`
	HasCompletedOnboarding bool   `json:"hasCompletedOnboarding"`
}

func (u User) GetID() string   { return u.ID }
func (u User) OwnerID() string { return u.ID }
func (u User) Clone() User     { return u }

type Collection struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     *string   `json:"color,omitempty"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c Collection) GetID() string   { return c.ID }
func (c Collection) OwnerID() string { return c.UserID }

func (c Collection) Clone() Collection {
	c.Color = cloneString(c.Color)
	return c
}

type Label struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Color  *string `json:"color,omitempty"`
	UserID string  `json:"userId"`
}

func (l Label) GetID() string   { return l.ID }
func (l Label) OwnerID() string { return l.UserID }

func (l Label) Clone() Label {
	l.Color = cloneString(l.Color)
	return l
}

// Extras carries the detachable attributes of a task.
type Extras struct {
	ID       string     `json:"id"`
	TaskID   string     `json:"taskId"`
	DueDate  *time.Time `json:"dueDate,omitempty"`
	Priority Priority   `json:"priority,omitempty"`
	Labels   []Label    `json:"labels"`
}

func (e *Extras) clone() *Extras {
	if e == nil {
		return nil
	}
	out := *e
	if e.DueDate != nil {
		d := *e.DueDate
		out.DueDate = &d
	}
	out.Labels = cloneLabels(e.Labels)
	return &out
}

type Task struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  *string   `json:"description,omitempty"`
	Status       Status    `json:"status,omitempty"`
	CollectionID *string   `json:"collectionId,omitempty"`
	UserID       string    `json:"userId"`
	Extras       *Extras   `json:"extras,omitempty"`
	Labels       []Label   `json:"labels"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (t Task) GetID() string   { return t.ID }
func (t Task) OwnerID() string { return t.UserID }

func (t Task) Clone() Task {
	t.Description = cloneString(t.Description)
	t.CollectionID = cloneString(t.CollectionID)
	t.Extras = t.Extras.clone()
	t.Labels = cloneLabels(t.Labels)
	return t
}

// HasLabel reports whether the task carries the label id.
func (t Task) HasLabel(id string) bool {
	for _, l := range t.Labels {
		if l.ID == id {
			return true
		}
	}
	return false
}

// TempIDPrefix marks ids synthesized by the client before the server has
// assigned one. Server ids are UUIDs and never carry it.
const TempIDPrefix = "temp-"

// NewTempID returns a time-ordered temporary id.
func NewTempID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return TempIDPrefix + id.String()
}

func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// StringPtr returns nil for the empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneLabels(in []Label) []Label {
	if in == nil {
		return nil
	}
	out := make([]Label, len(in))
	for i, l := range in {
		out[i] = l.Clone()
	}
	return out
}
