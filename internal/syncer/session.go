package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/donezo/internal/domain"
)

func (s *Synchronizer) Signup(ctx context.Context, in domain.SignupInput) (domain.User, error) {
	u, err := s.remote.Signup(ctx, in)
	if err != nil {
		return domain.User{}, fmt.Errorf("signup: %w", err)
	}
	s.setUser(u)
	return u, nil
}

func (s *Synchronizer) Login(ctx context.Context, in domain.LoginInput) (domain.User, error) {
	u, err := s.remote.Login(ctx, in)
	if err != nil {
		return domain.User{}, fmt.Errorf("login: %w", err)
	}
	s.setUser(u)
	return u, nil
}

// Restore resumes the previous session. It asks the server first and, when
// the server is unreachable, falls back to the user persisted locally.
func (s *Synchronizer) Restore(ctx context.Context) (domain.User, error) {
	u, err := s.remote.Me(ctx)
	if err == nil {
		s.setUser(u)
		return u, nil
	}
	if kind := Classify(err); kind == KindUnauthorized || kind == KindNotFound {
		s.writer.Submit("forget session", func(ctx context.Context) error {
			return s.store.DeleteSetting(ctx, settingSessionUser)
		})
		return domain.User{}, fmt.Errorf("restore session: %w", errors.Join(ErrNoUser, err))
	}

	s.writer.Flush()
	id, serr := s.store.GetSetting(ctx, settingSessionUser)
	if serr != nil || id == "" {
		return domain.User{}, fmt.Errorf("restore session: %w", errors.Join(ErrNoUser, err))
	}
	u, serr = s.store.Users.GetByID(ctx, id)
	if serr != nil {
		return domain.User{}, fmt.Errorf("restore session: %w", errors.Join(ErrNoUser, err))
	}
	s.logger.Warn("server unreachable, restored offline session", "user_id", u.ID, "error", err)
	s.setUser(u)
	return u, nil
}

// Logout ends the session. The local side always succeeds: caches, selection
// and the user's local rows are cleared even when the server call fails.
func (s *Synchronizer) Logout(ctx context.Context) error {
	if err := s.remote.Logout(ctx); err != nil {
		s.logger.Warn("remote logout failed", "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	userID := s.user.ID
	s.resetLocked()
	s.user = nil
	s.writer.Submit("purge user", func(ctx context.Context) error {
		if err := s.store.DeleteByUserID(ctx, userID); err != nil {
			return err
		}
		return s.store.DeleteSetting(ctx, settingSessionUser)
	})
	return nil
}

func (s *Synchronizer) CurrentUser() (domain.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return domain.User{}, false
	}
	return *s.user, true
}

// CompleteOnboarding flags the current user optimistically and reverts the
// flag if the server refuses.
func (s *Synchronizer) CompleteOnboarding(ctx context.Context) (domain.User, error) {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return domain.User{}, ErrNoUser
	}
	prev := *s.user
	next := prev
	next.HasCompletedOnboarding = true
	s.user = &next
	s.persistUser(next)
	s.mu.Unlock()

	u, err := s.remote.CompleteOnboarding(detached(ctx))

	s.mu.Lock()
	if !s.isUser(prev.ID) {
		s.mu.Unlock()
		return u, err
	}
	if err != nil {
		s.user = &prev
		s.persistUser(prev)
		s.mu.Unlock()
		err = fmt.Errorf("complete onboarding: %w", err)
		s.notifier.Failure(ctx, "complete onboarding", err)
		return domain.User{}, err
	}
	s.user = &u
	s.persistUser(u)
	s.mu.Unlock()
	s.notifier.Success(ctx, "complete onboarding")
	return u, nil
}

// setUser makes u the session user. A different user starts from empty caches.
func (s *Synchronizer) setUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil || s.user.ID != u.ID {
		s.resetLocked()
	}
	s.user = &u
	s.persistUser(u)
	s.writer.Submit("remember session", func(ctx context.Context) error {
		return s.store.SetSetting(ctx, settingSessionUser, u.ID)
	})
}

func (s *Synchronizer) persistUser(u domain.User) {
	s.writer.Submit("put user", func(ctx context.Context) error {
		return s.store.Users.Put(ctx, u)
	})
}

func (s *Synchronizer) resetLocked() {
	s.tasks.cache.Clear()
	s.collections.cache.Clear()
	s.labels.cache.Clear()
	s.selected = ""
	clear(s.pending)
}
