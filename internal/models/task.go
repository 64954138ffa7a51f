package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/donezo/internal/domain"
)

type Task struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Title        string     `gorm:"not null;size:500"`
	Description  *string    `gorm:"type:text"`
	Status       string     `gorm:"size:20;not null;default:'TODO';index"`
	CollectionID *uuid.UUID `gorm:"type:uuid;index"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	Extras       *Extras    `gorm:"foreignKey:TaskID"`
	Labels       []Label    `gorm:"many2many:task_labels;"`
	CreatedAt    time.Time  `gorm:"index"`
	UpdatedAt    time.Time
}

// Extras holds the detachable attributes of a task; one row per task.
type Extras struct {
	ID       uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TaskID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex"`
	DueDate  *time.Time
	Priority *string `gorm:"size:10"`
	Labels   []Label `gorm:"many2many:extras_labels;"`
}

func (Extras) TableName() string { return "extras" }

func (t *Task) ToDomain() domain.Task {
	out := domain.Task{
		ID:          t.ID.String(),
		Title:       t.Title,
		Description: t.Description,
		Status:      domain.NormalizeStatus(t.Status),
		UserID:      t.UserID.String(),
		Labels:      LabelsToDomain(t.Labels),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.CollectionID != nil {
		out.CollectionID = domain.StringPtr(t.CollectionID.String())
	}
	if t.Extras != nil {
		e := &domain.Extras{
			ID:      t.Extras.ID.String(),
			TaskID:  t.ID.String(),
			DueDate: t.Extras.DueDate,
			Labels:  LabelsToDomain(t.Extras.Labels),
		}
		if t.Extras.Priority != nil {
			e.Priority = domain.NormalizePriority(*t.Extras.Priority)
		}
		out.Extras = e
	}
	return out
}
