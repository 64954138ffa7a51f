package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/donezo/internal/domain"
)

type Collection struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"not null;size:255"`
	Color     *string   `gorm:"size:32"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (c *Collection) ToDomain() domain.Collection {
	return domain.Collection{
		ID:        c.ID.String(),
		Name:      c.Name,
		Color:     c.Color,
		UserID:    c.UserID.String(),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type Label struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"not null;size:255"`
	Color     *string   `gorm:"size:32"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt time.Time
}

func (l *Label) ToDomain() domain.Label {
	return domain.Label{
		ID:     l.ID.String(),
		Name:   l.Name,
		Color:  l.Color,
		UserID: l.UserID.String(),
	}
}

func LabelsToDomain(in []Label) []domain.Label {
	out := make([]domain.Label, len(in))
	for i := range in {
		out[i] = in[i].ToDomain()
	}
	return out
}
