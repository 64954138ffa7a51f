package syncer

import (
	"context"
	"fmt"
	"slices"

	"github.com/ahmetcoskunkizilkaya/donezo/internal/cache"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/domain"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/localstore"
)

// LoadResult tells which snapshot a load left in the cache.
type LoadResult int

const (
	LoadedNothing LoadResult = iota
	LoadedLocal
	LoadedRemote
)

func (r LoadResult) String() string {
	switch r {
	case LoadedRemote:
		return "remote"
	case LoadedLocal:
		return "local"
	default:
		return "nothing"
	}
}

// entitySet ties the cache and the store table of one entity type.
type entitySet[T domain.Entity[T]] struct {
	kind    string
	cache   *cache.Cache[T]
	table   *localstore.Table[T]
	prepend bool
}

func (set *entitySet[T]) persist(w *localstore.Writer, e T) {
	e = e.Clone()
	w.Submit("put "+set.kind, func(ctx context.Context) error {
		return set.table.Put(ctx, e)
	})
}

func (set *entitySet[T]) forget(w *localstore.Writer, id string) {
	w.Submit("delete "+set.kind, func(ctx context.Context) error {
		return set.table.Delete(ctx, id)
	})
}

// loadSpec describes one cache-then-network load.
type loadSpec[T domain.Entity[T]] struct {
	match func(T) bool
	order func(a, b T) int
	fetch func(ctx context.Context) ([]T, error)
	// prune removes local rows the server no longer returns.
	prune bool
}

func load[T domain.Entity[T]](ctx context.Context, s *Synchronizer, set *entitySet[T], spec loadSpec[T]) (LoadResult, error) {
	user, err := s.requireUser()
	if err != nil {
		return LoadedNothing, err
	}

	result := LoadedNothing
	s.writer.Flush()
	local, err := set.table.GetByUserID(ctx, user.ID)
	if err != nil {
		s.logger.Warn("local store read failed", "kind", set.kind, "error", err)
	}
	local = slices.DeleteFunc(local, func(e T) bool { return !spec.match(e) })
	if spec.order != nil {
		slices.SortStableFunc(local, spec.order)
	}

	s.mu.Lock()
	if s.isUser(user.ID) && len(local) > 0 {
		set.cache.ReplaceAll(overlay(s, set, user.ID, local, spec.match))
		result = LoadedLocal
	}
	s.mu.Unlock()

	fresh, err := spec.fetch(detached(ctx))
	if err != nil {
		s.logger.Warn("remote load failed, keeping local snapshot", "kind", set.kind, "result", result.String(), "error", err)
		if Classify(err) == KindUnauthorized {
			return result, fmt.Errorf("load %ss: %w", set.kind, err)
		}
		return result, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isUser(user.ID) {
		return result, ErrNoUser
	}

	keep := make(map[string]bool, len(fresh))
	for _, e := range fresh {
		if e.OwnerID() != user.ID {
			continue
		}
		keep[e.GetID()] = true
		if _, busy := s.pending[e.GetID()]; !busy {
			set.persist(s.writer, e)
		}
	}
	set.cache.ReplaceAll(overlay(s, set, user.ID, fresh, spec.match))

	if spec.prune {
		for id := range s.pending {
			keep[id] = true
		}
		userID := user.ID
		s.writer.Submit("prune "+set.kind, func(ctx context.Context) error {
			rows, err := set.table.GetByUserID(ctx, userID)
			if err != nil {
				return err
			}
			for _, e := range rows {
				if keep[e.GetID()] {
					continue
				}
				if err := set.table.Delete(ctx, e.GetID()); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return LoadedRemote, nil
}

// overlay lays in-flight mutations over a loaded snapshot: pending deletes
// stay hidden, pending updates keep their optimistic value and pending
// creates keep their temporary record. Callers hold s.mu.
func overlay[T domain.Entity[T]](s *Synchronizer, set *entitySet[T], userID string, in []T, match func(T) bool) []T {
	var creates []T
	for _, e := range set.cache.All() {
		if kind, ok := s.pendingKind(e.GetID()); ok && kind == opCreate && match(e) {
			creates = append(creates, e)
		}
	}

	out := make([]T, 0, len(in)+len(creates))
	if set.prepend {
		out = append(out, creates...)
	}
	for _, e := range in {
		id := e.GetID()
		if e.OwnerID() != userID {
			continue
		}
		kind, busy := s.pendingKind(id)
		switch {
		case busy && kind != opUpdate:
			continue
		case !busy && domain.IsTempID(id):
			// leftover of a create that never completed
			set.forget(s.writer, id)
			continue
		case busy:
			if cur, ok := set.cache.Get(id); ok {
				e = cur
			}
		}
		out = append(out, e)
	}
	if !set.prepend {
		out = append(out, creates...)
	}
	return out
}

// createSpec describes one optimistic create.
type createSpec[T domain.Entity[T]] struct {
	op      string
	build   func(user domain.User, tempID string) T
	send    func(ctx context.Context) (T, error)
	discard func(ctx context.Context, id string) error
}

func create[T domain.Entity[T]](ctx context.Context, s *Synchronizer, set *entitySet[T], spec createSpec[T]) (T, error) {
	var zero T

	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return zero, ErrNoUser
	}
	user := *s.user
	tempID := domain.NewTempID()
	optimistic := spec.build(user, tempID)
	set.cache.Upsert(optimistic)
	set.persist(s.writer, optimistic)
	n := s.begin(opCreate, tempID)
	s.mu.Unlock()

	saved, err := spec.send(detached(ctx))

	s.mu.Lock()
	live := s.current(tempID, n) && s.isUser(user.ID)
	tombstoned := false
	if op, ok := s.pending[tempID]; ok && (live || op.kind == opDelete) {
		tombstoned = op.kind == opDelete
		delete(s.pending, tempID)
	}

	if err != nil {
		if live {
			set.cache.Remove(tempID)
			set.forget(s.writer, tempID)
		}
		s.mu.Unlock()
		err = fmt.Errorf("%s: %w", spec.op, err)
		s.notifier.Failure(ctx, spec.op, err)
		return zero, err
	}

	if tombstoned {
		s.mu.Unlock()
		s.logger.Info("discarding confirmation of deleted record", "kind", set.kind, "id", saved.GetID())
		if spec.discard != nil {
			if derr := spec.discard(detached(ctx), saved.GetID()); derr != nil {
				s.logger.Warn("orphan cleanup failed", "kind", set.kind, "id", saved.GetID(), "error", derr)
			}
		}
		return zero, ErrDiscarded
	}
	if !live {
		// the session changed hands while the request was in flight
		s.mu.Unlock()
		return saved, nil
	}

	set.cache.Replace(tempID, saved)
	set.forget(s.writer, tempID)
	set.persist(s.writer, saved)
	if s.selected == tempID {
		s.selected = saved.GetID()
	}
	s.mu.Unlock()

	s.notifier.Success(ctx, spec.op)
	return saved, nil
}

// updateSpec describes one optimistic update.
type updateSpec[T domain.Entity[T]] struct {
	op    string
	apply func(*T)
	send  func(ctx context.Context) (T, error)
}

func update[T domain.Entity[T]](ctx context.Context, s *Synchronizer, set *entitySet[T], id string, spec updateSpec[T]) (T, error) {
	var zero T

	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return zero, ErrNoUser
	}
	userID := s.user.ID
	// a temporary id stays locked until its create settles, tombstone included
	if op, ok := s.pending[id]; ok && (op.kind == opCreate || domain.IsTempID(id)) {
		s.mu.Unlock()
		return zero, fmt.Errorf("%s %s: %w", spec.op, id, ErrPending)
	}
	prev, cached := set.cache.Get(id)
	if op, ok := s.pending[id]; ok && op.kind == opUpdate {
		if base, ok := op.base.(T); ok {
			prev, cached = base, true
		}
	}
	if set.cache.Patch(id, spec.apply) {
		if next, ok := set.cache.Get(id); ok {
			set.persist(s.writer, next)
		}
	}
	n := s.begin(opUpdate, id)
	if cached {
		op := s.pending[id]
		op.base = prev
		s.pending[id] = op
	}
	s.mu.Unlock()

	saved, err := spec.send(detached(ctx))

	s.mu.Lock()
	op := s.pending[id]
	live := s.current(id, n) && s.isUser(userID)
	s.finish(id, n)

	if err != nil {
		if live {
			if isNotFound(err) {
				set.cache.Remove(id)
				set.forget(s.writer, id)
				if s.selected == id {
					s.selected = ""
				}
			} else if base, ok := op.base.(T); ok && set.cache.Replace(id, base) {
				set.persist(s.writer, base)
			}
		}
		s.mu.Unlock()
		err = fmt.Errorf("%s %s: %w", spec.op, id, err)
		s.notifier.Failure(ctx, spec.op, err)
		return zero, err
	}

	if live {
		set.cache.Replace(id, saved)
		set.persist(s.writer, saved)
	} else if later, ok := s.pending[id]; ok && later.seq > n && later.kind != opCreate && s.isUser(userID) {
		// a later mutation that fails rolls back to this confirmed state
		later.base = saved
		s.pending[id] = later
	}
	s.mu.Unlock()

	s.notifier.Success(ctx, spec.op)
	return saved, nil
}

// removeSpec describes one optimistic delete. detach runs under the lock
// right after the record left the cache and returns the undo applied when the
// server refuses the delete.
type removeSpec struct {
	op     string
	send   func(ctx context.Context) error
	detach func() (undo func())
}

func remove[T domain.Entity[T]](ctx context.Context, s *Synchronizer, set *entitySet[T], id string, spec removeSpec) error {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return ErrNoUser
	}
	userID := s.user.ID
	var base any
	if op, ok := s.pending[id]; ok && op.kind == opUpdate {
		base = op.base
	}

	prev, pos, cached := set.cache.Remove(id)
	set.forget(s.writer, id)
	if s.selected == id {
		s.selected = ""
	}
	undo := func() {}
	if spec.detach != nil {
		undo = spec.detach()
	}

	if domain.IsTempID(id) {
		// never reached the server; a pending create sees the tombstone
		if kind, ok := s.pendingKind(id); ok && kind == opCreate {
			s.begin(opDelete, id)
		}
		s.mu.Unlock()
		return nil
	}
	n := s.begin(opDelete, id)
	if cached {
		if base == nil {
			base = prev
		}
		op := s.pending[id]
		op.base = base
		s.pending[id] = op
	}
	s.mu.Unlock()

	err := spec.send(detached(ctx))

	s.mu.Lock()
	op := s.pending[id]
	live := s.current(id, n) && s.isUser(userID)
	s.finish(id, n)
	if err == nil || isNotFound(err) {
		s.mu.Unlock()
		s.notifier.Success(ctx, spec.op)
		return nil
	}
	if live {
		if cached {
			restore := prev
			if b, ok := op.base.(T); ok {
				restore = b
			}
			set.cache.InsertAt(pos, restore)
			set.persist(s.writer, restore)
		}
		undo()
	}
	s.mu.Unlock()

	err = fmt.Errorf("%s %s: %w", spec.op, id, err)
	s.notifier.Failure(ctx, spec.op, err)
	return err
}
