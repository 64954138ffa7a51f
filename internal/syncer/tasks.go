package syncer

import (
	"cmp"
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/donezo/internal/domain"
)

func newestTaskFirst(a, b domain.Task) int {
	return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
}

// LoadTasks hydrates the task cache for the given filter. Unfiltered loads
// also prune local rows the server no longer has.
func (s *Synchronizer) LoadTasks(ctx context.Context, f domain.TaskFilter) (LoadResult, error) {
	return load(ctx, s, s.tasks, loadSpec[domain.Task]{
		match: f.Match,
		order: newestTaskFirst,
		fetch: func(ctx context.Context) ([]domain.Task, error) {
			return s.remote.ListTasks(ctx, f)
		},
		prune: f.IsZero(),
	})
}

// CreateTask shows the task immediately under a temporary id and swaps in the
// server record once the create is confirmed.
func (s *Synchronizer) CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error) {
	if err := in.Validate(); err != nil {
		return domain.Task{}, err
	}
	return create(ctx, s, s.tasks, createSpec[domain.Task]{
		op: "create task",
		build: func(user domain.User, tempID string) domain.Task {
			return s.buildTask(user, tempID, in)
		},
		send: func(ctx context.Context) (domain.Task, error) {
			return s.remote.CreateTask(ctx, in)
		},
		discard: s.remote.DeleteTask,
	})
}

// UpdateTask patches the cached task with the normalized fields of p and
// sends p unchanged to the server.
func (s *Synchronizer) UpdateTask(ctx context.Context, id string, p domain.TaskPatch) (domain.Task, error) {
	if err := p.Validate(); err != nil {
		return domain.Task{}, err
	}
	now := time.Now().UTC()
	return update(ctx, s, s.tasks, id, updateSpec[domain.Task]{
		op: "update task",
		apply: func(t *domain.Task) {
			s.applyTaskPatch(t, p, now)
		},
		send: func(ctx context.Context) (domain.Task, error) {
			return s.remote.UpdateTask(ctx, id, p)
		},
	})
}

// DeleteTask removes the task at once and puts it back if the server refuses.
func (s *Synchronizer) DeleteTask(ctx context.Context, id string) error {
	return remove(ctx, s, s.tasks, id, removeSpec{
		op: "delete task",
		send: func(ctx context.Context) error {
			return s.remote.DeleteTask(ctx, id)
		},
	})
}

func (s *Synchronizer) buildTask(user domain.User, tempID string, in domain.TaskInput) domain.Task {
	now := time.Now().UTC()
	status := domain.NormalizeStatus(in.Status)
	if status == "" {
		status = domain.StatusTodo
	}
	t := domain.Task{
		ID:           tempID,
		Title:        in.Title,
		Description:  in.Description,
		Status:       status,
		CollectionID: nonEmpty(in.CollectionID),
		UserID:       user.ID,
		Labels:       s.resolveLabels(in.AllLabelIDs()),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.Extras != nil {
		extraIDs, _ := in.Extras.Labels()
		t.Extras = &domain.Extras{
			ID:       domain.NewTempID(),
			TaskID:   tempID,
			DueDate:  in.Extras.DueDate,
			Priority: domain.NormalizePriority(in.Extras.Priority),
			Labels:   s.resolveLabels(extraIDs),
		}
	}
	return t.Clone()
}

func (s *Synchronizer) applyTaskPatch(t *domain.Task, p domain.TaskPatch, now time.Time) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = domain.StringPtr(*p.Description)
	}
	if p.Status != nil {
		// unrecognized values are dropped here but still sent to the server
		if status := domain.NormalizeStatus(*p.Status); status != "" {
			t.Status = status
		}
	}
	if p.CollectionID != nil {
		t.CollectionID = domain.StringPtr(*p.CollectionID)
	}
	if ids, ok := p.LabelChange(); ok {
		t.Labels = s.resolveLabels(ids)
	}
	if p.Extras != nil {
		if t.Extras == nil {
			t.Extras = &domain.Extras{ID: domain.NewTempID(), TaskID: t.ID}
		}
		if p.Extras.DueDate != nil {
			d := *p.Extras.DueDate
			t.Extras.DueDate = &d
		}
		if priority := domain.NormalizePriority(p.Extras.Priority); priority != "" {
			t.Extras.Priority = priority
		}
		if ids, ok := p.Extras.Labels(); ok {
			t.Extras.Labels = s.resolveLabels(ids)
		}
	}
	t.UpdatedAt = now
}

// resolveLabels maps ids to the cached label records. Unknown ids are
// skipped; the server answer fills them in.
func (s *Synchronizer) resolveLabels(ids []string) []domain.Label {
	out := make([]domain.Label, 0, len(ids))
	for _, id := range ids {
		if l, ok := s.labels.cache.Get(id); ok {
			out = append(out, l)
		}
	}
	return out
}

func nonEmpty(p *string) *string {
	if p == nil {
		return nil
	}
	return domain.StringPtr(*p)
}
