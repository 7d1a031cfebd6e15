// Package taskapi implements the service.Service interface over the remote
// task API.
package taskapi

import (
	"context"
	"fmt"
	"log/slog"

	"taskctl/internal/apiclient"
	"taskctl/internal/apperr"
	"taskctl/internal/auth"
	"taskctl/internal/config"
	"taskctl/internal/service"
	"taskctl/internal/session"
)

// Doer sends an authenticated request under the session retry policy.
type Doer interface {
	Do(ctx context.Context, req apiclient.Request) (*apiclient.Response, error)
}

// Client implements service.Service.
type Client struct {
	Tasks *TaskService
	Users *UserService

	auth  *auth.Manager
	store *session.Store
}

// New builds a client from configuration: HTTP adapter, session store and
// auth manager. Close releases the session store.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Client, error) {
	api, err := apiclient.New(apiclient.Options{
		BaseURL:   cfg.APIURL,
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}
	store, err := session.Open(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	c := NewWithParts(api, auth.NewManager(api, store, log))
	c.store = store
	return c, nil
}

// NewWithParts composes a client from an adapter and a manager (for testing).
func NewWithParts(api auth.Sender, manager *auth.Manager) *Client {
	return &Client{
		Tasks: &TaskService{doer: manager, api: api},
		Users: &UserService{doer: manager},
		auth:  manager,
	}
}

// Close releases the session store, if the client owns one.
func (c *Client) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

// call sends req through doer and turns a non-2xx status into a RequestError.
func call(ctx context.Context, doer Doer, req apiclient.Request) (*apiclient.Response, error) {
	resp, err := doer.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, apperr.NewRequestError(resp.Status, resp.Detail())
	}
	return resp, nil
}

func (c *Client) Login(ctx context.Context, username, password string) (service.UserProfile, error) {
	return c.auth.Login(ctx, username, password)
}

func (c *Client) Logout(ctx context.Context) error {
	return c.auth.Logout(ctx)
}

func (c *Client) CurrentUser(ctx context.Context) (service.UserProfile, error) {
	return c.auth.CurrentUser(ctx)
}

func (c *Client) Refresh(ctx context.Context) error {
	return c.auth.Refresh(ctx)
}

func (c *Client) Register(ctx context.Context, r service.Registration) (service.UserProfile, error) {
	return c.auth.Register(ctx, r)
}

func (c *Client) Session() (service.Session, bool) {
	return c.auth.Session()
}

func (c *Client) ListTasks(ctx context.Context, f service.TaskFilter) ([]service.Task, error) {
	return c.Tasks.List(ctx, f)
}

func (c *Client) TaskStatuses(ctx context.Context) ([]service.TaskStatus, error) {
	return c.Tasks.Statuses(ctx)
}

func (c *Client) CreateTask(ctx context.Context, in service.TaskInput) (service.Task, error) {
	return c.Tasks.Create(ctx, in)
}

func (c *Client) UpdateTask(ctx context.Context, id string, p service.TaskPatch) (service.Task, error) {
	return c.Tasks.Update(ctx, id, p)
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.Tasks.Delete(ctx, id)
}

func (c *Client) AssignTask(ctx context.Context, id string, userID *string) (service.Task, error) {
	return c.Tasks.Assign(ctx, id, userID)
}

func (c *Client) CompleteTask(ctx context.Context, id string) (service.Task, error) {
	return c.Tasks.Complete(ctx, id)
}

func (c *Client) ListUsers(ctx context.Context, p service.Page) ([]service.UserProfile, error) {
	return c.Users.List(ctx, p)
}

func (c *Client) GetUser(ctx context.Context, id string) (service.UserProfile, error) {
	return c.Users.Get(ctx, id)
}

var _ service.Service = (*Client)(nil)

