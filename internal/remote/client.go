// Package remote is the HTTP client of the Donezo API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/donezo/internal/domain"
)

// SessionCookie is the cookie carrying the auth token.
const SessionCookie = "token"

var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// APIError is a non-2xx response. It unwraps to the sentinel matching its
// status, so callers can use errors.Is(err, remote.ErrNotFound).
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	}
	return nil
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// New builds a client with a cookie jar so the session cookie set by login
// is replayed on every request.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api url %q must be absolute", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Client{
		baseURL: u,
		http:    &http.Client{Timeout: timeout, Jar: jar},
	}, nil
}

// Token returns the current session token, if any.
func (c *Client) Token() string {
	for _, ck := range c.http.Jar.Cookies(c.baseURL) {
		if ck.Name == SessionCookie {
			return ck.Value
		}
	}
	return ""
}

// SetToken installs a previously saved session token.
func (c *Client) SetToken(token string) {
	c.http.Jar.SetCookies(c.baseURL, []*http.Cookie{{Name: SessionCookie, Value: token, Path: "/"}})
}

func (c *Client) Signup(ctx context.Context, in domain.SignupInput) (domain.User, error) {
	var user domain.User
	err := c.do(ctx, http.MethodPost, "/auth/signup", nil, in, &user)
	return user, err
}

func (c *Client) Login(ctx context.Context, in domain.LoginInput) (domain.User, error) {
	var user domain.User
	err := c.do(ctx, http.MethodPost, "/auth/login", nil, in, &user)
	return user, err
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
}

func (c *Client) Me(ctx context.Context) (domain.User, error) {
	var user domain.User
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &user)
	return user, err
}

func (c *Client) CompleteOnboarding(ctx context.Context) (domain.User, error) {
	var user domain.User
	err := c.do(ctx, http.MethodPut, "/auth/me/onboarding", nil, nil, &user)
	return user, err
}

func (c *Client) ListTasks(ctx context.Context, f domain.TaskFilter) ([]domain.Task, error) {
	q := url.Values{}
	if f.CollectionID != "" {
		q.Set("collectionId", f.CollectionID)
	}
	if len(f.Statuses) > 0 {
		parts := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			parts[i] = string(s)
		}
		q.Set("status", strings.Join(parts, ","))
	}
	if len(f.LabelIDs) > 0 {
		q.Set("labelIds", strings.Join(f.LabelIDs, ","))
	}
	var tasks []domain.Task
	err := c.do(ctx, http.MethodGet, "/tasks", q, nil, &tasks)
	return tasks, err
}

func (c *Client) GetTask(ctx context.Context, id string) (domain.Task, error) {
	var task domain.Task
	err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), nil, nil, &task)
	return task, err
}

func (c *Client) CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error) {
	var task domain.Task
	err := c.do(ctx, http.MethodPost, "/tasks", nil, in, &task)
	return task, err
}

func (c *Client) UpdateTask(ctx context.Context, id string, p domain.TaskPatch) (domain.Task, error) {
	var task domain.Task
	err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id), nil, p, &task)
	return task, err
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) TaskInsights(ctx context.Context) (domain.Insights, error) {
	var out domain.Insights
	err := c.do(ctx, http.MethodGet, "/tasks/insights", nil, nil, &out)
	return out, err
}

func (c *Client) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	var out []domain.Collection
	err := c.do(ctx, http.MethodGet, "/collections", nil, nil, &out)
	return out, err
}

func (c *Client) CreateCollection(ctx context.Context, in domain.CollectionInput) (domain.Collection, error) {
	var out domain.Collection
	err := c.do(ctx, http.MethodPost, "/collections", nil, in, &out)
	return out, err
}

func (c *Client) UpdateCollection(ctx context.Context, id string, in domain.CollectionInput) (domain.Collection, error) {
	var out domain.Collection
	err := c.do(ctx, http.MethodPut, "/collections/"+url.PathEscape(id), nil, in, &out)
	return out, err
}

func (c *Client) DeleteCollection(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/collections/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) ListLabels(ctx context.Context) ([]domain.Label, error) {
	var out []domain.Label
	err := c.do(ctx, http.MethodGet, "/labels", nil, nil, &out)
	return out, err
}

func (c *Client) CreateLabel(ctx context.Context, in domain.LabelInput) (domain.Label, error) {
	var out domain.Label
	err := c.do(ctx, http.MethodPost, "/labels", nil, in, &out)
	return out, err
}

func (c *Client) UpdateLabel(ctx context.Context, id string, p domain.LabelPatch) (domain.Label, error) {
	var out domain.Label
	err := c.do(ctx, http.MethodPut, "/labels/"+url.PathEscape(id), nil, p, &out)
	return out, err
}

func (c *Client) DeleteLabel(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/labels/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return &APIError{Status: resp.StatusCode, Message: payload.Error}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
