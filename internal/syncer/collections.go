package syncer

import (
	"cmp"
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/donezo/internal/domain"
)

func newestCollectionFirst(a, b domain.Collection) int {
	return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
}

func (s *Synchronizer) LoadCollections(ctx context.Context) (LoadResult, error) {
	return load(ctx, s, s.collections, loadSpec[domain.Collection]{
		match: func(domain.Collection) bool { return true },
		order: newestCollectionFirst,
		fetch: s.remote.ListCollections,
		prune: true,
	})
}

func (s *Synchronizer) CreateCollection(ctx context.Context, in domain.CollectionInput) (domain.Collection, error) {
	if err := in.Validate(); err != nil {
		return domain.Collection{}, err
	}
	return create(ctx, s, s.collections, createSpec[domain.Collection]{
		op: "create collection",
		build: func(user domain.User, tempID string) domain.Collection {
			now := time.Now().UTC()
			return domain.Collection{
				ID:        tempID,
				Name:      in.Name,
				Color:     nonEmpty(in.Color),
				UserID:    user.ID,
				CreatedAt: now,
				UpdatedAt: now,
			}
		},
		send: func(ctx context.Context) (domain.Collection, error) {
			return s.remote.CreateCollection(ctx, in)
		},
		discard: s.remote.DeleteCollection,
	})
}

func (s *Synchronizer) UpdateCollection(ctx context.Context, id string, in domain.CollectionInput) (domain.Collection, error) {
	if err := in.Validate(); err != nil {
		return domain.Collection{}, err
	}
	now := time.Now().UTC()
	return update(ctx, s, s.collections, id, updateSpec[domain.Collection]{
		op: "update collection",
		apply: func(c *domain.Collection) {
			c.Name = in.Name
			c.Color = nonEmpty(in.Color)
			c.UpdatedAt = now
		},
		send: func(ctx context.Context) (domain.Collection, error) {
			return s.remote.UpdateCollection(ctx, id, in)
		},
	})
}

// DeleteCollection removes the collection and detaches its cached tasks.
// Both are restored if the server refuses.
func (s *Synchronizer) DeleteCollection(ctx context.Context, id string) error {
	return remove(ctx, s, s.collections, id, removeSpec{
		op: "delete collection",
		send: func(ctx context.Context) error {
			return s.remote.DeleteCollection(ctx, id)
		},
		detach: func() func() {
			return s.rewriteTasks(func(t *domain.Task) bool {
				if t.CollectionID == nil || *t.CollectionID != id {
					return false
				}
				t.CollectionID = nil
				return true
			})
		},
	})
}

// rewriteTasks applies fn to every cached task, persists the changed ones and
// returns a func restoring their previous values. Callers hold s.mu.
func (s *Synchronizer) rewriteTasks(fn func(*domain.Task) bool) func() {
	var before []domain.Task
	for _, t := range s.tasks.cache.All() {
		next := t.Clone()
		if !fn(&next) {
			continue
		}
		before = append(before, t)
		s.tasks.cache.Replace(t.ID, next)
		s.tasks.persist(s.writer, next)
	}
	return func() {
		for _, t := range before {
			if s.tasks.cache.Replace(t.ID, t) {
				s.tasks.persist(s.writer, t)
			}
		}
	}
}
