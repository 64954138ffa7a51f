package services

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/donezo/internal/domain"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/models"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/owner"
)

var ErrCollectionNotFound = errors.New("collection not found")

type CollectionService struct {
	db *gorm.DB
}

func NewCollectionService(db *gorm.DB) *CollectionService {
	return &CollectionService{db: db}
}

func (s *CollectionService) List(userID uuid.UUID) ([]models.Collection, error) {
	var out []models.Collection
	err := s.db.Scopes(owner.Scope(userID)).Order("created_at DESC").Find(&out).Error
	return out, err
}

func (s *CollectionService) Get(userID uuid.UUID, id string) (*models.Collection, error) {
	cid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrCollectionNotFound
	}
	var c models.Collection
	if err := s.db.Scopes(owner.Scope(userID)).First(&c, "id = ?", cid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCollectionNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *CollectionService) Create(userID uuid.UUID, in domain.CollectionInput) (*models.Collection, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	c := models.Collection{
		ID:     uuid.New(),
		Name:   in.Name,
		Color:  in.Color,
		UserID: userID,
	}
	if err := s.db.Create(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CollectionService) Update(userID uuid.UUID, id string, in domain.CollectionInput) (*models.Collection, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	c, err := s.Get(userID, id)
	if err != nil {
		return nil, err
	}
	c.Name = in.Name
	c.Color = in.Color
	if err := s.db.Save(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes the collection and detaches its tasks.
func (s *CollectionService) Delete(userID uuid.UUID, id string) error {
	c, err := s.Get(userID, id)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Task{}).Scopes(owner.Scope(userID)).
			Where("collection_id = ?", c.ID).
			Update("collection_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(c).Error
	})
}
