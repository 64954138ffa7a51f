// Package syncer keeps the client caches consistent with the Donezo API.
//
// Reads hydrate from the local store first and reconcile with the server when
// it answers. Mutations are applied to the cache and the local store before
// the server is asked, then confirmed with the server's record or rolled back.
package syncer

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ahmetcoskunkizilkaya/donezo/internal/cache"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/domain"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/localstore"
)

// Remote is the authoritative entity service.
type Remote interface {
	Signup(ctx context.Context, in domain.SignupInput) (domain.User, error)
	Login(ctx context.Context, in domain.LoginInput) (domain.User, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (domain.User, error)
	CompleteOnboarding(ctx context.Context) (domain.User, error)

	ListTasks(ctx context.Context, f domain.TaskFilter) ([]domain.Task, error)
	CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error)
	UpdateTask(ctx context.Context, id string, p domain.TaskPatch) (domain.Task, error)
	DeleteTask(ctx context.Context, id string) error
	TaskInsights(ctx context.Context) (domain.Insights, error)

	ListCollections(ctx context.Context) ([]domain.Collection, error)
	CreateCollection(ctx context.Context, in domain.CollectionInput) (domain.Collection, error)
	UpdateCollection(ctx context.Context, id string, in domain.CollectionInput) (domain.Collection, error)
	DeleteCollection(ctx context.Context, id string) error

	ListLabels(ctx context.Context) ([]domain.Label, error)
	CreateLabel(ctx context.Context, in domain.LabelInput) (domain.Label, error)
	UpdateLabel(ctx context.Context, id string, p domain.LabelPatch) (domain.Label, error)
	DeleteLabel(ctx context.Context, id string) error
}

const settingSessionUser = "session.user"

type opKind int

const (
	opCreate opKind = iota + 1
	opUpdate
	opDelete
)

// pendingOp is the latest in-flight mutation against one id.
type pendingOp struct {
	seq  uint64
	kind opKind
	// base is the last confirmed record before this run of overlapping
	// mutations; a failing update or delete restores it.
	base any
}

// Synchronizer owns the caches of one client session.
type Synchronizer struct {
	remote   Remote
	store    *localstore.Store
	writer   *localstore.Writer
	notifier Notifier
	logger   *slog.Logger

	tasks       *entitySet[domain.Task]
	collections *entitySet[domain.Collection]
	labels      *entitySet[domain.Label]

	// mu makes every cache+store step of a mutation atomic and guards the
	// fields below.
	mu       sync.Mutex
	user     *domain.User
	selected string
	seq      uint64
	pending  map[string]pendingOp
}

type Option func(*Synchronizer)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Synchronizer) { s.logger = logger }
}

func WithNotifier(n Notifier) Option {
	return func(s *Synchronizer) { s.notifier = n }
}

func New(remote Remote, store *localstore.Store, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		remote:  remote,
		store:   store,
		logger:  slog.Default(),
		pending: make(map[string]pendingOp),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = LogNotifier{Logger: s.logger}
	}
	s.writer = localstore.NewWriter(s.logger)

	s.tasks = &entitySet[domain.Task]{kind: "task", cache: cache.New[domain.Task](true), table: store.Tasks, prepend: true}
	s.collections = &entitySet[domain.Collection]{kind: "collection", cache: cache.New[domain.Collection](true), table: store.Collections, prepend: true}
	s.labels = &entitySet[domain.Label]{kind: "label", cache: cache.New[domain.Label](false), table: store.Labels}
	return s
}

// Flush waits until every local store write queued so far has been applied.
func (s *Synchronizer) Flush() {
	s.writer.Flush()
}

// Close flushes pending local writes. The store itself is owned by the caller.
func (s *Synchronizer) Close() {
	s.writer.Close()
}

func (s *Synchronizer) Tasks() []domain.Task { return s.tasks.cache.All() }

func (s *Synchronizer) Task(id string) (domain.Task, bool) { return s.tasks.cache.Get(id) }

func (s *Synchronizer) Collections() []domain.Collection { return s.collections.cache.All() }

func (s *Synchronizer) Collection(id string) (domain.Collection, bool) {
	return s.collections.cache.Get(id)
}

func (s *Synchronizer) Labels() []domain.Label { return s.labels.cache.All() }

func (s *Synchronizer) Label(id string) (domain.Label, bool) { return s.labels.cache.Get(id) }

// Select marks id as the focused record. Selecting an id that is not cached
// is legal; SelectedTask then reports nothing.
func (s *Synchronizer) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = id
}

func (s *Synchronizer) ClearSelection() {
	s.Select("")
}

func (s *Synchronizer) Selected() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected, s.selected != ""
}

func (s *Synchronizer) SelectedTask() (domain.Task, bool) {
	id, ok := s.Selected()
	if !ok {
		return domain.Task{}, false
	}
	return s.tasks.cache.Get(id)
}

// Insights asks the server for task aggregates and falls back to computing
// them from the cached tasks.
func (s *Synchronizer) Insights(ctx context.Context) domain.Insights {
	out, err := s.remote.TaskInsights(ctx)
	if err == nil {
		return out
	}
	s.logger.Warn("insights unavailable, using cached tasks", "error", err)
	return domain.ComputeInsights(s.tasks.cache.All())
}

// begin records a new mutation against ids and returns its sequence number.
// Callers hold s.mu.
func (s *Synchronizer) begin(kind opKind, ids ...string) uint64 {
	s.seq++
	for _, id := range ids {
		s.pending[id] = pendingOp{seq: s.seq, kind: kind}
	}
	return s.seq
}

// current reports whether n is still the latest mutation against id.
// Callers hold s.mu.
func (s *Synchronizer) current(id string, n uint64) bool {
	op, ok := s.pending[id]
	return ok && op.seq == n
}

// finish retires n if it is still the latest mutation against id.
// Callers hold s.mu.
func (s *Synchronizer) finish(id string, n uint64) {
	if s.current(id, n) {
		delete(s.pending, id)
	}
}

func (s *Synchronizer) pendingKind(id string) (opKind, bool) {
	op, ok := s.pending[id]
	return op.kind, ok
}

func (s *Synchronizer) requireUser() (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return domain.User{}, ErrNoUser
	}
	return *s.user, nil
}

func (s *Synchronizer) isUser(id string) bool {
	return s.user != nil && s.user.ID == id
}

// detached keeps the server call alive when the caller goes away; the cache
// is session state and must always be reconciled.
func detached(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func isNotFound(err error) bool {
	return Classify(err) == KindNotFound
}
