package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/donezo/internal/config"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/database"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/domain"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/routes"
)

type api struct {
	t   *testing.T
	app *fiber.App
}

func newAPI(t *testing.T) *api {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	cfg := &config.Config{
		JWTSecret:   "test-secret",
		JWTExpiry:   time.Hour,
		CORSOrigins: "http://localhost:5173",
		BodyLimit:   1 << 20,
	}
	return &api{t: t, app: routes.NewApp(cfg, db)}
}

type response struct {
	status int
	body   []byte
	token  string
}

func (r response) decode(t *testing.T, out any) {
	t.Helper()
	if err := json.Unmarshal(r.body, out); err != nil {
		t.Fatalf("decode %s: %v", r.body, err)
	}
}

func (r response) errorMessage(t *testing.T) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	r.decode(t, &body)
	return body.Error
}

func (a *api) do(method, path, token string, body any) response {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			a.t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: handlers.SessionCookie, Value: token})
	}
	resp, err := a.app.Test(req, -1)
	if err != nil {
		a.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		a.t.Fatalf("read body: %v", err)
	}
	out := response{status: resp.StatusCode, body: raw}
	for _, c := range resp.Cookies() {
		if c.Name == handlers.SessionCookie {
			out.token = c.Value
		}
	}
	return out
}

func (a *api) expect(r response, status int) response {
	a.t.Helper()
	if r.status != status {
		a.t.Fatalf("status = %d, want %d (body %s)", r.status, status, r.body)
	}
	return r
}

// signup registers a user and returns its session token.
func (a *api) signup(email string) string {
	a.t.Helper()
	r := a.expect(a.do(http.MethodPost, "/auth/signup", "", domain.SignupInput{
		Email: email, Password: "secret123", Name: "Test",
	}), fiber.StatusCreated)
	if r.token == "" {
		a.t.Fatal("signup did not set a session cookie")
	}
	return r.token
}

func (a *api) createTask(token string, in domain.TaskInput) domain.Task {
	a.t.Helper()
	var task domain.Task
	a.expect(a.do(http.MethodPost, "/tasks", token, in), fiber.StatusCreated).decode(a.t, &task)
	return task
}

func (a *api) listTasks(token, query string) []domain.Task {
	a.t.Helper()
	var tasks []domain.Task
	a.expect(a.do(http.MethodGet, "/tasks"+query, token, nil), fiber.StatusOK).decode(a.t, &tasks)
	return tasks
}

func (a *api) labelID(token, name string) string {
	a.t.Helper()
	var labels []domain.Label
	a.expect(a.do(http.MethodGet, "/labels", token, nil), fiber.StatusOK).decode(a.t, &labels)
	for _, l := range labels {
		if l.Name == name {
			return l.ID
		}
	}
	a.t.Fatalf("label %q not found", name)
	return ""
}

func titles(tasks []domain.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Title
	}
	return out
}

func labelNames(labels []domain.Label) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = l.Name
	}
	slices.Sort(out)
	return out
}

func TestSignup(t *testing.T) {
	a := newAPI(t)

	r := a.expect(a.do(http.MethodPost, "/auth/signup", "", domain.SignupInput{
		Email: "  Ada@Example.com ", Password: "secret123", Name: "Ada",
	}), fiber.StatusCreated)
	var user domain.User
	r.decode(t, &user)
	if user.Email != "ada@example.com" || user.Name != "Ada" || user.HasCompletedOnboarding {
		t.Errorf("user = %+v", user)
	}

	var labels []domain.Label
	a.expect(a.do(http.MethodGet, "/labels", r.token, nil), fiber.StatusOK).decode(t, &labels)
	if got, want := labelNames(labels), []string{"Bug", "Feature", "Personal", "Work"}; !slices.Equal(got, want) {
		t.Errorf("default labels = %v, want %v", got, want)
	}

	tests := []struct {
		name    string
		in      domain.SignupInput
		status  int
		message string
	}{
		{"duplicate email", domain.SignupInput{Email: "ada@example.com", Password: "secret123", Name: "Ada"}, fiber.StatusConflict, "Email already in use"},
		{"bad email", domain.SignupInput{Email: "nope", Password: "secret123", Name: "Ada"}, fiber.StatusBadRequest, "Valid email is required"},
		{"short password", domain.SignupInput{Email: "bob@example.com", Password: "12345", Name: "Bob"}, fiber.StatusBadRequest, "Password must be at least 6 characters"},
		{"missing name", domain.SignupInput{Email: "bob@example.com", Password: "secret123"}, fiber.StatusBadRequest, "Name is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := a.expect(a.do(http.MethodPost, "/auth/signup", "", tt.in), tt.status)
			if got := r.errorMessage(t); got != tt.message {
				t.Errorf("error = %q, want %q", got, tt.message)
			}
		})
	}
}

func TestLoginAndSession(t *testing.T) {
	a := newAPI(t)
	a.signup("ada@example.com")

	a.expect(a.do(http.MethodPost, "/auth/login", "", domain.LoginInput{
		Email: "ada@example.com", Password: "wrong-password",
	}), fiber.StatusUnauthorized)
	a.expect(a.do(http.MethodPost, "/auth/login", "", domain.LoginInput{
		Email: "nobody@example.com", Password: "secret123",
	}), fiber.StatusUnauthorized)

	r := a.expect(a.do(http.MethodPost, "/auth/login", "", domain.LoginInput{
		Email: "ADA@example.com", Password: "secret123",
	}), fiber.StatusOK)
	if r.token == "" {
		t.Fatal("login did not set a session cookie")
	}

	t.Run("me requires a session", func(t *testing.T) {
		r := a.expect(a.do(http.MethodGet, "/auth/me", "", nil), fiber.StatusUnauthorized)
		if got := r.errorMessage(t); got != "Unauthorized" {
			t.Errorf("error = %q", got)
		}
		a.expect(a.do(http.MethodGet, "/auth/me", "not-a-jwt", nil), fiber.StatusUnauthorized)
	})

	t.Run("me returns the user", func(t *testing.T) {
		var user domain.User
		a.expect(a.do(http.MethodGet, "/auth/me", r.token, nil), fiber.StatusOK).decode(t, &user)
		if user.Email != "ada@example.com" {
			t.Errorf("email = %q", user.Email)
		}
	})

	t.Run("onboarding", func(t *testing.T) {
		var user domain.User
		a.expect(a.do(http.MethodPut, "/auth/me/onboarding", r.token, nil), fiber.StatusOK).decode(t, &user)
		if !user.HasCompletedOnboarding {
			t.Error("onboarding flag not set")
		}
	})

	t.Run("logout clears the cookie", func(t *testing.T) {
		out := a.expect(a.do(http.MethodPost, "/auth/logout", r.token, nil), fiber.StatusOK)
		if out.token != "" {
			t.Errorf("cookie value after logout = %q", out.token)
		}
	})
}

func TestTaskLifecycle(t *testing.T) {
	a := newAPI(t)
	token := a.signup("ada@example.com")
	work := a.labelID(token, "Work")
	bug := a.labelID(token, "Bug")

	task := a.createTask(token, domain.TaskInput{
		Title:    "Buy milk",
		Status:   "in_progress",
		LabelIDs: []string{work},
		Extras:   &domain.ExtrasInput{Priority: "high", LabelIDs: &[]string{bug}},
	})
	if task.Status != domain.StatusInProgress {
		t.Errorf("status = %q", task.Status)
	}
	if got := labelNames(task.Labels); !slices.Equal(got, []string{"Bug", "Work"}) {
		t.Errorf("labels = %v", got)
	}
	if task.Extras == nil || task.Extras.Priority != domain.PriorityHigh || len(task.Extras.Labels) != 1 {
		t.Fatalf("extras = %+v", task.Extras)
	}

	plain := a.createTask(token, domain.TaskInput{Title: "Walk dog"})
	if plain.Status != domain.StatusTodo || plain.Extras != nil {
		t.Errorf("defaults = %+v", plain)
	}

	t.Run("list is newest first", func(t *testing.T) {
		if got := titles(a.listTasks(token, "")); !slices.Equal(got, []string{"Walk dog", "Buy milk"}) {
			t.Errorf("titles = %v", got)
		}
	})

	t.Run("update", func(t *testing.T) {
		title := "Buy oat milk"
		status := "Done"
		labels := []string{}
		var updated domain.Task
		a.expect(a.do(http.MethodPut, "/tasks/"+task.ID, token, domain.TaskPatch{
			Title: &title, Status: &status, LabelIDs: &labels,
		}), fiber.StatusOK).decode(t, &updated)
		if updated.Title != title || updated.Status != domain.StatusDone || len(updated.Labels) != 0 {
			t.Errorf("updated = %+v", updated)
		}
	})

	t.Run("unknown status is ignored on update", func(t *testing.T) {
		status := "archived"
		var updated domain.Task
		a.expect(a.do(http.MethodPut, "/tasks/"+task.ID, token, domain.TaskPatch{Status: &status}), fiber.StatusOK).decode(t, &updated)
		if updated.Status != domain.StatusDone {
			t.Errorf("status = %q", updated.Status)
		}
	})

	t.Run("extras are created on update", func(t *testing.T) {
		due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		var updated domain.Task
		a.expect(a.do(http.MethodPut, "/tasks/"+plain.ID, token, domain.TaskPatch{
			Extras: &domain.ExtrasInput{DueDate: &due, Priority: "urgent"},
		}), fiber.StatusOK).decode(t, &updated)
		if updated.Extras == nil || updated.Extras.Priority != domain.PriorityUrgent || updated.Extras.DueDate == nil {
			t.Fatalf("extras = %+v", updated.Extras)
		}
		if !updated.Extras.DueDate.Equal(due) {
			t.Errorf("due = %v", updated.Extras.DueDate)
		}
	})

	t.Run("validation", func(t *testing.T) {
		r := a.expect(a.do(http.MethodPost, "/tasks", token, domain.TaskInput{Title: "   "}), fiber.StatusBadRequest)
		if got := r.errorMessage(t); got != "Title is required" {
			t.Errorf("error = %q", got)
		}
		empty := ""
		a.expect(a.do(http.MethodPut, "/tasks/"+task.ID, token, domain.TaskPatch{Title: &empty}), fiber.StatusBadRequest)
		missing := "4f0c1f40-0000-4000-8000-000000000000"
		a.expect(a.do(http.MethodPost, "/tasks", token, domain.TaskInput{Title: "x", CollectionID: &missing}), fiber.StatusBadRequest)
		a.expect(a.do(http.MethodPost, "/tasks", token, domain.TaskInput{Title: "x", LabelIDs: []string{missing}}), fiber.StatusBadRequest)
	})

	t.Run("delete", func(t *testing.T) {
		a.expect(a.do(http.MethodDelete, "/tasks/"+task.ID, token, nil), fiber.StatusNoContent)
		a.expect(a.do(http.MethodGet, "/tasks/"+task.ID, token, nil), fiber.StatusNotFound)
		a.expect(a.do(http.MethodDelete, "/tasks/"+task.ID, token, nil), fiber.StatusNotFound)
		a.expect(a.do(http.MethodGet, "/tasks/not-a-uuid", token, nil), fiber.StatusNotFound)
	})
}

func TestTaskFilters(t *testing.T) {
	a := newAPI(t)
	token := a.signup("ada@example.com")
	work := a.labelID(token, "Work")
	bug := a.labelID(token, "Bug")

	var home domain.Collection
	a.expect(a.do(http.MethodPost, "/collections", token, domain.CollectionInput{Name: "Home"}), fiber.StatusCreated).decode(t, &home)

	a.createTask(token, domain.TaskInput{Title: "a", CollectionID: &home.ID, LabelIDs: []string{work}})
	a.createTask(token, domain.TaskInput{Title: "b", Status: "DONE", LabelIDs: []string{bug}})
	a.createTask(token, domain.TaskInput{Title: "c", Status: "IN_PROGRESS", CollectionID: &home.ID})

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"collection", "?collectionId=" + home.ID, []string{"c", "a"}},
		{"single status", "?status=DONE", []string{"b"}},
		{"comma statuses", "?status=todo,in_progress", []string{"c", "a"}},
		{"repeated statuses", "?status=TODO&status=DONE", []string{"b", "a"}},
		{"labels any", "?labelIds=" + work + "," + bug, []string{"b", "a"}},
		{"repeated labels", "?labelIds=" + bug + "&labelIds=" + work, []string{"b", "a"}},
		{"combined", "?collectionId=" + home.ID + "&status=TODO", []string{"a"}},
		{"unknown collection", "?collectionId=nope", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := titles(a.listTasks(token, tt.query)); !slices.Equal(got, tt.want) {
				t.Errorf("titles = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("invalid status filter", func(t *testing.T) {
		a.expect(a.do(http.MethodGet, "/tasks?status=archived", token, nil), fiber.StatusBadRequest)
	})
}

func TestCollectionDeleteDetachesTasks(t *testing.T) {
	a := newAPI(t)
	token := a.signup("ada@example.com")

	var home domain.Collection
	a.expect(a.do(http.MethodPost, "/collections", token, domain.CollectionInput{Name: "Home"}), fiber.StatusCreated).decode(t, &home)
	task := a.createTask(token, domain.TaskInput{Title: "Sweep", CollectionID: &home.ID})

	var renamed domain.Collection
	a.expect(a.do(http.MethodPut, "/collections/"+home.ID, token, domain.CollectionInput{Name: "House"}), fiber.StatusOK).decode(t, &renamed)
	if renamed.Name != "House" {
		t.Errorf("name = %q", renamed.Name)
	}
	a.expect(a.do(http.MethodPut, "/collections/"+home.ID, token, domain.CollectionInput{Name: ""}), fiber.StatusBadRequest)

	a.expect(a.do(http.MethodDelete, "/collections/"+home.ID, token, nil), fiber.StatusNoContent)
	a.expect(a.do(http.MethodGet, "/collections/"+home.ID, token, nil), fiber.StatusNotFound)

	var got domain.Task
	a.expect(a.do(http.MethodGet, "/tasks/"+task.ID, token, nil), fiber.StatusOK).decode(t, &got)
	if got.CollectionID != nil {
		t.Errorf("collectionId = %v, want detached", *got.CollectionID)
	}
}

func TestLabelLifecycle(t *testing.T) {
	a := newAPI(t)
	token := a.signup("ada@example.com")

	var label domain.Label
	a.expect(a.do(http.MethodPost, "/labels", token, domain.LabelInput{Name: "Errand"}), fiber.StatusCreated).decode(t, &label)
	task := a.createTask(token, domain.TaskInput{
		Title:    "Post letter",
		LabelIDs: []string{label.ID},
		Extras:   &domain.ExtrasInput{LabelIDs: &[]string{label.ID}},
	})

	var fetched domain.Label
	a.expect(a.do(http.MethodGet, "/labels/"+label.ID, token, nil), fiber.StatusOK).decode(t, &fetched)
	if fetched.ID != label.ID || fetched.Name != "Errand" {
		t.Errorf("GET /labels/:id = %+v", fetched)
	}
	a.expect(a.do(http.MethodGet, "/labels/not-a-uuid", token, nil), fiber.StatusNotFound)
	bob := a.signup("bob@example.com")
	a.expect(a.do(http.MethodGet, "/labels/"+label.ID, bob, nil), fiber.StatusNotFound)

	// an empty extras list clears the extras labels
	other := a.createTask(token, domain.TaskInput{
		Title:  "Buy stamps",
		Extras: &domain.ExtrasInput{LabelIDs: &[]string{label.ID}},
	})
	var cleared domain.Task
	a.expect(a.do(http.MethodPut, "/tasks/"+other.ID, token, domain.TaskPatch{
		Extras: &domain.ExtrasInput{LabelIDs: &[]string{}},
	}), fiber.StatusOK).decode(t, &cleared)
	if cleared.Extras == nil || len(cleared.Extras.Labels) != 0 {
		t.Errorf("extras labels not cleared: %+v", cleared.Extras)
	}

	name := "Errands"
	var renamed domain.Label
	a.expect(a.do(http.MethodPut, "/labels/"+label.ID, token, domain.LabelPatch{Name: &name}), fiber.StatusOK).decode(t, &renamed)
	if renamed.Name != name {
		t.Errorf("name = %q", renamed.Name)
	}

	a.expect(a.do(http.MethodDelete, "/labels/"+label.ID, token, nil), fiber.StatusNoContent)
	a.expect(a.do(http.MethodPut, "/labels/"+label.ID, token, domain.LabelPatch{Name: &name}), fiber.StatusNotFound)

	var got domain.Task
	a.expect(a.do(http.MethodGet, "/tasks/"+task.ID, token, nil), fiber.StatusOK).decode(t, &got)
	if len(got.Labels) != 0 || got.Extras == nil || len(got.Extras.Labels) != 0 {
		t.Errorf("labels survived delete: %+v / %+v", got.Labels, got.Extras)
	}
}

func TestOwnership(t *testing.T) {
	a := newAPI(t)
	ada := a.signup("ada@example.com")
	bob := a.signup("bob@example.com")

	var home domain.Collection
	a.expect(a.do(http.MethodPost, "/collections", ada, domain.CollectionInput{Name: "Home"}), fiber.StatusCreated).decode(t, &home)
	task := a.createTask(ada, domain.TaskInput{Title: "Private"})

	if got := a.listTasks(bob, ""); len(got) != 0 {
		t.Errorf("bob sees %v", titles(got))
	}
	a.expect(a.do(http.MethodGet, "/tasks/"+task.ID, bob, nil), fiber.StatusNotFound)
	a.expect(a.do(http.MethodDelete, "/tasks/"+task.ID, bob, nil), fiber.StatusNotFound)
	a.expect(a.do(http.MethodDelete, "/collections/"+home.ID, bob, nil), fiber.StatusNotFound)
	a.expect(a.do(http.MethodPost, "/tasks", bob, domain.TaskInput{Title: "x", CollectionID: &home.ID}), fiber.StatusBadRequest)
	a.expect(a.do(http.MethodPost, "/tasks", bob, domain.TaskInput{Title: "x", LabelIDs: []string{a.labelID(ada, "Work")}}), fiber.StatusBadRequest)
}

func TestInsights(t *testing.T) {
	a := newAPI(t)
	token := a.signup("ada@example.com")

	var home domain.Collection
	a.expect(a.do(http.MethodPost, "/collections", token, domain.CollectionInput{Name: "Home"}), fiber.StatusCreated).decode(t, &home)
	a.createTask(token, domain.TaskInput{Title: "a"})
	a.createTask(token, domain.TaskInput{Title: "b", Status: "DONE", CollectionID: &home.ID})
	a.createTask(token, domain.TaskInput{Title: "c", Status: "DONE", CollectionID: &home.ID})

	var got domain.Insights
	a.expect(a.do(http.MethodGet, "/tasks/insights", token, nil), fiber.StatusOK).decode(t, &got)

	want := domain.Insights{
		Total: 3,
		ByStatus: []domain.StatusCount{
			{Status: domain.StatusTodo, Count: 1},
			{Status: domain.StatusDone, Count: 2},
		},
		ByCollection: []domain.CollectionCount{
			{Count: 1},
			{CollectionID: &home.ID, Count: 2},
		},
	}
	if got.Total != want.Total || !slices.Equal(got.ByStatus, want.ByStatus) {
		t.Errorf("insights = %+v, want %+v", got, want)
	}
	if len(got.ByCollection) != 2 || got.ByCollection[0].CollectionID != nil || got.ByCollection[0].Count != 1 ||
		got.ByCollection[1].CollectionID == nil || *got.ByCollection[1].CollectionID != home.ID || got.ByCollection[1].Count != 2 {
		t.Errorf("byCollection = %+v", got.ByCollection)
	}
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	var body struct {
		Status string `json:"status"`
		DB     string `json:"db"`
	}
	a.expect(a.do(http.MethodGet, "/health", "", nil), fiber.StatusOK).decode(t, &body)
	if body.Status != "ok" || body.DB != "ok" {
		t.Errorf("health = %+v", body)
	}
}
