package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/donezo/internal/domain"
)

type User struct {
	ID                     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email                  string    `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password               string    `gorm:"not null" json:"-"`
	Name                   string    `gorm:"size:255" json:"name"`
	HasCompletedOnboarding bool      `gorm:"not null;default:false" json:"hasCompletedOnboarding"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

func (u *User) ToDomain() domain.User {
	return domain.User{
		ID:                     u.ID.String(),
		Email:                  u.Email,
		Name:                   u.Name,
		HasCompletedOnboarding: u.HasCompletedOnboarding,
	}
}
