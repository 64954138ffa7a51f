package services

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ahmetcoskunkizilkaya/donezo/internal/domain"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/models"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/owner"
)

var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrInvalidReference = errors.New("unknown collection or label")
)

type TaskService struct {
	db *gorm.DB
}

func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{db: db}
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Labels").Preload("Extras").Preload("Extras.Labels")
}

// List returns the user's tasks newest first. Malformed ids in the filter
// match nothing.
func (s *TaskService) List(userID uuid.UUID, f domain.TaskFilter) ([]models.Task, error) {
	q := s.db.Scopes(owner.Scope(userID), withRelations)

	if f.CollectionID != "" {
		cid, err := uuid.Parse(f.CollectionID)
		if err != nil {
			return []models.Task{}, nil
		}
		q = q.Where("collection_id = ?", cid)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		q = q.Where("status IN ?", statuses)
	}
	if len(f.LabelIDs) > 0 {
		var ids []uuid.UUID
		for _, raw := range f.LabelIDs {
			if id, err := uuid.Parse(raw); err == nil {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return []models.Task{}, nil
		}
		q = q.Where("id IN (?)", s.db.Table("task_labels").Select("task_id").Where("label_id IN ?", ids))
	}

	var tasks []models.Task
	if err := q.Order("created_at DESC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *TaskService) Get(userID uuid.UUID, id string) (*models.Task, error) {
	return s.get(s.db, userID, id)
}

func (s *TaskService) get(tx *gorm.DB, userID uuid.UUID, id string) (*models.Task, error) {
	tid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrTaskNotFound
	}
	var t models.Task
	if err := tx.Scopes(owner.Scope(userID), withRelations).First(&t, "id = ?", tid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Create inserts a task with its labels and optional extras. The status
// defaults to TODO.
func (s *TaskService) Create(userID uuid.UUID, in domain.TaskInput) (*models.Task, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	status := domain.NormalizeStatus(in.Status)
	if status == "" {
		status = domain.StatusTodo
	}
	task := models.Task{
		ID:          uuid.New(),
		Title:       in.Title,
		Description: nonEmpty(in.Description),
		Status:      string(status),
		UserID:      userID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if in.CollectionID != nil && *in.CollectionID != "" {
			cid, err := ownedCollection(tx, userID, *in.CollectionID)
			if err != nil {
				return err
			}
			task.CollectionID = &cid
		}
		labels, err := ownedLabels(tx, userID, in.AllLabelIDs())
		if err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&task).Error; err != nil {
			return err
		}
		if len(labels) > 0 {
			if err := tx.Model(&task).Association("Labels").Replace(labels); err != nil {
				return err
			}
		}
		if in.Extras != nil {
			return s.writeExtras(tx, userID, task.ID, nil, in.Extras)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(userID, task.ID.String())
}

// Update applies the non-nil fields of p. Unknown status values are ignored
// and extras are created on demand.
func (s *TaskService) Update(userID uuid.UUID, id string, p domain.TaskPatch) (*models.Task, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		task, err := s.get(tx, userID, id)
		if err != nil {
			return err
		}

		updates := map[string]any{}
		if p.Title != nil {
			updates["title"] = *p.Title
		}
		if p.Description != nil {
			updates["description"] = nonEmpty(p.Description)
		}
		if p.Status != nil {
			if status := domain.NormalizeStatus(*p.Status); status != "" {
				updates["status"] = string(status)
			}
		}
		if p.CollectionID != nil {
			if *p.CollectionID == "" {
				updates["collection_id"] = nil
			} else {
				cid, err := ownedCollection(tx, userID, *p.CollectionID)
				if err != nil {
					return err
				}
				updates["collection_id"] = cid
			}
		}
		if len(updates) > 0 {
			if err := tx.Model(task).Omit(clause.Associations).Updates(updates).Error; err != nil {
				return err
			}
		}

		if ids, ok := p.LabelChange(); ok {
			labels, err := ownedLabels(tx, userID, ids)
			if err != nil {
				return err
			}
			if err := tx.Model(task).Association("Labels").Replace(labels); err != nil {
				return err
			}
		}
		if p.Extras != nil {
			return s.writeExtras(tx, userID, task.ID, task.Extras, p.Extras)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(userID, id)
}

func (s *TaskService) writeExtras(tx *gorm.DB, userID, taskID uuid.UUID, existing *models.Extras, in *domain.ExtrasInput) error {
	extras := existing
	if extras == nil {
		extras = &models.Extras{ID: uuid.New(), TaskID: taskID}
	}
	if in.DueDate != nil {
		d := *in.DueDate
		extras.DueDate = &d
	}
	if priority := domain.NormalizePriority(in.Priority); priority != "" {
		p := string(priority)
		extras.Priority = &p
	}
	var err error
	if existing == nil {
		err = tx.Omit(clause.Associations).Create(extras).Error
	} else {
		err = tx.Model(extras).Omit(clause.Associations).Select("due_date", "priority").Updates(extras).Error
	}
	if err != nil {
		return err
	}
	ids, ok := in.Labels()
	if !ok {
		return nil
	}
	labels, err := ownedLabels(tx, userID, ids)
	if err != nil {
		return err
	}
	return tx.Model(extras).Association("Labels").Replace(labels)
}

// Delete removes the task together with its extras and label associations.
func (s *TaskService) Delete(userID uuid.UUID, id string) error {
	task, err := s.Get(userID, id)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if task.Extras != nil {
			if err := tx.Exec("DELETE FROM extras_labels WHERE extras_id = ?", task.Extras.ID).Error; err != nil {
				return err
			}
			if err := tx.Delete(task.Extras).Error; err != nil {
				return err
			}
		}
		if err := tx.Exec("DELETE FROM task_labels WHERE task_id = ?", task.ID).Error; err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Delete(task).Error
	})
}

// Insights counts the user's tasks by status and by collection.
func (s *TaskService) Insights(userID uuid.UUID) (domain.Insights, error) {
	var byStatus []struct {
		Status string
		Count  int64
	}
	if err := s.db.Model(&models.Task{}).Scopes(owner.Scope(userID)).
		Select("status, COUNT(*) AS count").Group("status").
		Scan(&byStatus).Error; err != nil {
		return domain.Insights{}, err
	}

	var byCollection []struct {
		CollectionID *string
		Count        int64
	}
	if err := s.db.Model(&models.Task{}).Scopes(owner.Scope(userID)).
		Select("collection_id, COUNT(*) AS count").Group("collection_id").
		Scan(&byCollection).Error; err != nil {
		return domain.Insights{}, err
	}

	out := domain.Insights{
		ByStatus:     make([]domain.StatusCount, 0, len(byStatus)),
		ByCollection: make([]domain.CollectionCount, 0, len(byCollection)),
	}
	for _, row := range byStatus {
		out.Total += row.Count
		out.ByStatus = append(out.ByStatus, domain.StatusCount{Status: domain.Status(row.Status), Count: row.Count})
	}
	for _, row := range byCollection {
		out.ByCollection = append(out.ByCollection, domain.CollectionCount{CollectionID: row.CollectionID, Count: row.Count})
	}
	domain.SortInsights(&out)
	return out, nil
}

func ownedCollection(tx *gorm.DB, userID uuid.UUID, id string) (uuid.UUID, error) {
	cid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, ErrInvalidReference
	}
	var n int64
	if err := tx.Model(&models.Collection{}).Scopes(owner.Scope(userID)).Where("id = ?", cid).Count(&n).Error; err != nil {
		return uuid.Nil, err
	}
	if n == 0 {
		return uuid.Nil, ErrInvalidReference
	}
	return cid, nil
}

func nonEmpty(p *string) *string {
	if p == nil {
		return nil
	}
	return domain.StringPtr(*p)
}
