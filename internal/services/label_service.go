package services

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/donezo/internal/domain"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/models"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/owner"
)

var ErrLabelNotFound = errors.New("label not found")

type LabelService struct {
	db *gorm.DB
}

func NewLabelService(db *gorm.DB) *LabelService {
	return &LabelService{db: db}
}

// List returns labels in creation order, ties broken by name.
func (s *LabelService) List(userID uuid.UUID) ([]models.Label, error) {
	var out []models.Label
	err := s.db.Scopes(owner.Scope(userID)).Order("created_at ASC, name ASC").Find(&out).Error
	return out, err
}

func (s *LabelService) Get(userID uuid.UUID, id string) (*models.Label, error) {
	lid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrLabelNotFound
	}
	var l models.Label
	if err := s.db.Scopes(owner.Scope(userID)).First(&l, "id = ?", lid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLabelNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (s *LabelService) Create(userID uuid.UUID, in domain.LabelInput) (*models.Label, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	l := models.Label{ID: uuid.New(), Name: in.Name, Color: in.Color, UserID: userID}
	if err := s.db.Create(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *LabelService) Update(userID uuid.UUID, id string, p domain.LabelPatch) (*models.Label, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	l, err := s.Get(userID, id)
	if err != nil {
		return nil, err
	}
	if p.Name != nil {
		l.Name = *p.Name
	}
	if p.Color != nil {
		l.Color = domain.StringPtr(*p.Color)
	}
	if err := s.db.Save(l).Error; err != nil {
		return nil, err
	}
	return l, nil
}

// Delete removes the label and its task and extras associations.
func (s *LabelService) Delete(userID uuid.UUID, id string) error {
	l, err := s.Get(userID, id)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM task_labels WHERE label_id = ?", l.ID).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM extras_labels WHERE label_id = ?", l.ID).Error; err != nil {
			return err
		}
		return tx.Delete(l).Error
	})
}

// ownedLabels returns the labels among ids that belong to userID. Unknown or
// foreign ids yield ErrInvalidReference.
func ownedLabels(tx *gorm.DB, userID uuid.UUID, ids []string) ([]models.Label, error) {
	if len(ids) == 0 {
		return []models.Label{}, nil
	}
	parsed := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		u, err := uuid.Parse(id)
		if err != nil {
			return nil, ErrInvalidReference
		}
		parsed = append(parsed, u)
	}
	var labels []models.Label
	if err := tx.Scopes(owner.Scope(userID)).Where("id IN ?", parsed).Find(&labels).Error; err != nil {
		return nil, err
	}
	if len(labels) != len(parsed) {
		return nil, ErrInvalidReference
	}
	return labels, nil
}
