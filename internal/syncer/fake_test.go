package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/donezo/internal/domain"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/localstore"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/remote"
)

var errOffline = errors.New("dial tcp: connection refused")

// fakeRemote is an in-memory Remote. Calls can be held open with hold and
// made to fail with failNext/failAlways.
type fakeRemote struct {
	mu          sync.Mutex
	users       map[string]domain.User
	passwords   map[string]string
	current     *domain.User
	tasks       []domain.Task
	collections []domain.Collection
	labels      []domain.Label
	seq         int
	clock       time.Time

	calls   map[string]int
	gates   map[string]chan struct{}
	fail    map[string]error
	patches []domain.TaskPatch
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		users:     make(map[string]domain.User),
		passwords: make(map[string]string),
		clock:     time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		calls:     make(map[string]int),
		gates:     make(map[string]chan struct{}),
		fail:      make(map[string]error),
	}
}

func (f *fakeRemote) enter(method string) error {
	f.mu.Lock()
	f.calls[method]++
	gate := f.gates[method]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail[method]
}

// hold blocks calls to method until the returned func is called.
func (f *fakeRemote) hold(method string) (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gates[method] = gate
	f.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.gates, method)
			f.mu.Unlock()
			close(gate)
		})
	}
}

func (f *fakeRemote) failWith(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, method)
		return
	}
	f.fail[method] = err
}

func (f *fakeRemote) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeRemote) waitCalls(t *testing.T, method string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for f.callCount(method) < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d %s calls", n, method)
		}
		time.Sleep(time.Millisecond)
	}
}

func (f *fakeRemote) nextID() string {
	f.seq++
	return fmt.Sprintf("srv-%d", f.seq)
}

func (f *fakeRemote) tick() time.Time {
	f.clock = f.clock.Add(time.Minute)
	return f.clock
}

func notFound() error {
	return &remote.APIError{Status: http.StatusNotFound, Message: "Not found"}
}

func unauthorized() error {
	return &remote.APIError{Status: http.StatusUnauthorized, Message: "Unauthorized"}
}

func (f *fakeRemote) addUser(email, password, name string) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := domain.User{ID: "user-" + email, Email: email, Name: name}
	f.users[email] = u
	f.passwords[email] = password
	return u
}

func (f *fakeRemote) Signup(_ context.Context, in domain.SignupInput) (domain.User, error) {
	if err := f.enter("Signup"); err != nil {
		return domain.User{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[in.Email]; ok {
		return domain.User{}, &remote.APIError{Status: http.StatusConflict, Message: "Email already in use"}
	}
	u := domain.User{ID: "user-" + in.Email, Email: in.Email, Name: in.Name}
	f.users[in.Email] = u
	f.passwords[in.Email] = in.Password
	f.current = &u
	return u, nil
}

func (f *fakeRemote) Login(_ context.Context, in domain.LoginInput) (domain.User, error) {
	if err := f.enter("Login"); err != nil {
		return domain.User{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[in.Email]
	if !ok || f.passwords[in.Email] != in.Password {
		return domain.User{}, &remote.APIError{Status: http.StatusUnauthorized, Message: "Invalid credentials"}
	}
	f.current = &u
	return u, nil
}

func (f *fakeRemote) Logout(context.Context) error {
	if err := f.enter("Logout"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = nil
	return nil
}

func (f *fakeRemote) Me(context.Context) (domain.User, error) {
	if err := f.enter("Me"); err != nil {
		return domain.User{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return domain.User{}, unauthorized()
	}
	return f.users[f.current.Email], nil
}

func (f *fakeRemote) CompleteOnboarding(context.Context) (domain.User, error) {
	if err := f.enter("CompleteOnboarding"); err != nil {
		return domain.User{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return domain.User{}, unauthorized()
	}
	u := f.users[f.current.Email]
	u.HasCompletedOnboarding = true
	f.users[u.Email] = u
	return u, nil
}

func (f *fakeRemote) ownerID() string {
	if f.current == nil {
		return ""
	}
	return f.current.ID
}

func (f *fakeRemote) labelsByID(ids []string) []domain.Label {
	out := []domain.Label{}
	for _, id := range ids {
		for _, l := range f.labels {
			if l.ID == id {
				out = append(out, l)
			}
		}
	}
	return out
}

func (f *fakeRemote) ListTasks(_ context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	if err := f.enter("ListTasks"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Task
	for _, t := range f.tasks {
		if t.UserID == f.ownerID() && filter.Match(t) {
			out = append(out, t.Clone())
		}
	}
	slices.SortFunc(out, func(a, b domain.Task) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (f *fakeRemote) CreateTask(_ context.Context, in domain.TaskInput) (domain.Task, error) {
	if err := f.enter("CreateTask"); err != nil {
		return domain.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insertTask(in), nil
}

func (f *fakeRemote) insertTask(in domain.TaskInput) domain.Task {
	status := domain.NormalizeStatus(in.Status)
	if status == "" {
		status = domain.StatusTodo
	}
	now := f.tick()
	t := domain.Task{
		ID:           f.nextID(),
		Title:        in.Title,
		Description:  in.Description,
		Status:       status,
		CollectionID: in.CollectionID,
		UserID:       f.ownerID(),
		Labels:       f.labelsByID(in.AllLabelIDs()),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.Extras != nil {
		extraIDs, _ := in.Extras.Labels()
		t.Extras = &domain.Extras{
			ID:       f.nextID(),
			TaskID:   t.ID,
			DueDate:  in.Extras.DueDate,
			Priority: domain.NormalizePriority(in.Extras.Priority),
			Labels:   f.labelsByID(extraIDs),
		}
	}
	f.tasks = append(f.tasks, t)
	return t.Clone()
}

func (f *fakeRemote) UpdateTask(_ context.Context, id string, p domain.TaskPatch) (domain.Task, error) {
	if err := f.enter("UpdateTask"); err != nil {
		return domain.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, p)
	i := slices.IndexFunc(f.tasks, func(t domain.Task) bool { return t.ID == id && t.UserID == f.ownerID() })
	if i < 0 {
		return domain.Task{}, notFound()
	}
	t := &f.tasks[i]
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Status != nil {
		if status := domain.NormalizeStatus(*p.Status); status != "" {
			t.Status = status
		}
	}
	if p.CollectionID != nil {
		t.CollectionID = domain.StringPtr(*p.CollectionID)
	}
	if ids, ok := p.LabelChange(); ok {
		t.Labels = f.labelsByID(ids)
	}
	t.UpdatedAt = f.tick()
	return t.Clone(), nil
}

func (f *fakeRemote) DeleteTask(_ context.Context, id string) error {
	if err := f.enter("DeleteTask"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.tasks)
	f.tasks = slices.DeleteFunc(f.tasks, func(t domain.Task) bool { return t.ID == id })
	if len(f.tasks) == n {
		return notFound()
	}
	return nil
}

func (f *fakeRemote) TaskInsights(context.Context) (domain.Insights, error) {
	if err := f.enter("TaskInsights"); err != nil {
		return domain.Insights{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.ComputeInsights(f.tasks), nil
}

func (f *fakeRemote) ListCollections(context.Context) ([]domain.Collection, error) {
	if err := f.enter("ListCollections"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Collection
	for _, c := range f.collections {
		if c.UserID == f.ownerID() {
			out = append(out, c.Clone())
		}
	}
	slices.SortFunc(out, func(a, b domain.Collection) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (f *fakeRemote) CreateCollection(_ context.Context, in domain.CollectionInput) (domain.Collection, error) {
	if err := f.enter("CreateCollection"); err != nil {
		return domain.Collection{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.tick()
	c := domain.Collection{ID: f.nextID(), Name: in.Name, Color: in.Color, UserID: f.ownerID(), CreatedAt: now, UpdatedAt: now}
	f.collections = append(f.collections, c)
	return c.Clone(), nil
}

func (f *fakeRemote) UpdateCollection(_ context.Context, id string, in domain.CollectionInput) (domain.Collection, error) {
	if err := f.enter("UpdateCollection"); err != nil {
		return domain.Collection{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := slices.IndexFunc(f.collections, func(c domain.Collection) bool { return c.ID == id })
	if i < 0 {
		return domain.Collection{}, notFound()
	}
	f.collections[i].Name = in.Name
	f.collections[i].Color = in.Color
	f.collections[i].UpdatedAt = f.tick()
	return f.collections[i].Clone(), nil
}

func (f *fakeRemote) DeleteCollection(_ context.Context, id string) error {
	if err := f.enter("DeleteCollection"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.collections)
	f.collections = slices.DeleteFunc(f.collections, func(c domain.Collection) bool { return c.ID == id })
	if len(f.collections) == n {
		return notFound()
	}
	for i := range f.tasks {
		if f.tasks[i].CollectionID != nil && *f.tasks[i].CollectionID == id {
			f.tasks[i].CollectionID = nil
		}
	}
	return nil
}

func (f *fakeRemote) ListLabels(context.Context) ([]domain.Label, error) {
	if err := f.enter("ListLabels"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Label
	for _, l := range f.labels {
		if l.UserID == f.ownerID() {
			out = append(out, l.Clone())
		}
	}
	return out, nil
}

func (f *fakeRemote) CreateLabel(_ context.Context, in domain.LabelInput) (domain.Label, error) {
	if err := f.enter("CreateLabel"); err != nil {
		return domain.Label{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	l := domain.Label{ID: f.nextID(), Name: in.Name, Color: in.Color, UserID: f.ownerID()}
	f.labels = append(f.labels, l)
	return l.Clone(), nil
}

func (f *fakeRemote) UpdateLabel(_ context.Context, id string, p domain.LabelPatch) (domain.Label, error) {
	if err := f.enter("UpdateLabel"); err != nil {
		return domain.Label{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := slices.IndexFunc(f.labels, func(l domain.Label) bool { return l.ID == id })
	if i < 0 {
		return domain.Label{}, notFound()
	}
	if p.Name != nil {
		f.labels[i].Name = *p.Name
	}
	if p.Color != nil {
		f.labels[i].Color = domain.StringPtr(*p.Color)
	}
	return f.labels[i].Clone(), nil
}

func (f *fakeRemote) DeleteLabel(_ context.Context, id string) error {
	if err := f.enter("DeleteLabel"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.labels)
	f.labels = slices.DeleteFunc(f.labels, func(l domain.Label) bool { return l.ID == id })
	if len(f.labels) == n {
		return notFound()
	}
	return nil
}

// seed helpers bypass hold/fail and act as the signed-in user.

func (f *fakeRemote) seedTask(in domain.TaskInput) domain.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insertTask(in)
}

func (f *fakeRemote) seedCollection(name string) domain.Collection {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.tick()
	c := domain.Collection{ID: f.nextID(), Name: name, UserID: f.ownerID(), CreatedAt: now, UpdatedAt: now}
	f.collections = append(f.collections, c)
	return c
}

func (f *fakeRemote) seedLabel(name string) domain.Label {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := domain.Label{ID: f.nextID(), Name: name, UserID: f.ownerID()}
	f.labels = append(f.labels, l)
	return l
}

func (f *fakeRemote) taskCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

type recordingNotifier struct {
	mu       sync.Mutex
	ok       []string
	failures []error
}

func (n *recordingNotifier) Success(_ context.Context, op string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ok = append(n.ok, op)
}

func (n *recordingNotifier) Failure(_ context.Context, _ string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, err)
}

func (n *recordingNotifier) failureCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.failures)
}

type fixture struct {
	remote   *fakeRemote
	store    *localstore.Store
	sync     *Synchronizer
	notifier *recordingNotifier
	user     domain.User
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openStore(t *testing.T, dir string) *localstore.Store {
	t.Helper()
	store, err := localstore.Open(filepath.Join(dir, "donezo.db"), discardLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}

// newFixture returns a synchronizer signed in as ada@example.com.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{remote: newFakeRemote(), notifier: &recordingNotifier{}}
	fx.remote.addUser("ada@example.com", "secret123", "Ada")
	fx.store = openStore(t, t.TempDir())
	fx.sync = New(fx.remote, fx.store, WithLogger(discardLogger()), WithNotifier(fx.notifier))
	t.Cleanup(func() {
		fx.sync.Close()
		_ = fx.store.Close()
	})

	u, err := fx.sync.Login(context.Background(), domain.LoginInput{Email: "ada@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	fx.user = u
	return fx
}

type result[T any] struct {
	value T
	err   error
}

func async[T any](fn func() (T, error)) <-chan result[T] {
	ch := make(chan result[T], 1)
	go func() {
		v, err := fn()
		ch <- result[T]{value: v, err: err}
	}()
	return ch
}

func await[T any](t *testing.T, ch <-chan result[T]) result[T] {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for operation")
		return result[T]{}
	}
}

func taskIDs(tasks []domain.Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

func storedTaskIDs(t *testing.T, fx *fixture) []string {
	t.Helper()
	fx.sync.Flush()
	rows, err := fx.store.Tasks.GetByUserID(context.Background(), fx.user.ID)
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	ids := taskIDs(rows)
	slices.Sort(ids)
	return ids
}
