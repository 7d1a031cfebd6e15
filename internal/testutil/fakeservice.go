// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"taskctl/internal/apperr"
	"taskctl/internal/service"
	"taskctl/internal/validation"
)

// FakeService is an in-memory implementation of service.Service for testing.
type FakeService struct {
	mu       sync.RWMutex
	tasks    []service.Task
	users    []service.UserProfile
	statuses []service.TaskStatus
	session  *service.UserProfile
	nextID   int

	// Error injection for testing
	LoginErr       error
	LogoutErr      error
	CurrentUserErr error
	RefreshErr     error
	RegisterErr    error
	ListTasksErr   error
	StatusesErr    error
	CreateTaskErr  error
	UpdateTaskErr  error
	DeleteTaskErr  error
	AssignTaskErr  error
	CompleteErr    error
	ListUsersErr   error
	GetUserErr     error

	// Recorded arguments of the most recent calls.
	LastFilter service.TaskFilter
	LastInput  service.TaskInput
	LastPatch  service.TaskPatch
	LastPage   service.Page
	Refreshes  int
}

// NewFakeService creates a FakeService with the default status catalogue and
// no session.
func NewFakeService() *FakeService {
	return &FakeService{
		statuses: []service.TaskStatus{
			{Key: "TO_DO", Label: service.StatusToDo},
			{Key: "IN_PROGRESS", Label: service.StatusInProgress},
			{Key: "DONE", Label: service.StatusDone},
		},
	}
}

func (f *FakeService) newID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

// AddUser adds a user and returns its id.
func (f *FakeService) AddUser(username, name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.newID("u")
	f.users = append(f.users, service.UserProfile{ID: id, Username: username, Name: name})
	return id
}

// SignIn starts a session for the given user without a Login call.
func (f *FakeService) SignIn(username string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.users {
		if f.users[i].Username == username {
			u := f.users[i]
			f.session = &u
			return
		}
	}
	u := service.UserProfile{ID: f.newID("u"), Username: username}
	f.users = append(f.users, u)
	f.session = &u
}

// AddTask adds a task with the given status and returns its id.
func (f *FakeService) AddTask(title, status string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.newID("t")
	f.tasks = append(f.tasks, service.Task{
		ID:       id,
		Title:    title,
		Status:   status,
		Priority: service.PriorityMedium,
	})
	return id
}

// Task returns the stored task with the given id.
func (f *FakeService) Task(id string) (service.Task, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, t := range f.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return service.Task{}, false
}

// TaskCount returns the number of stored tasks.
func (f *FakeService) TaskCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.tasks)
}

func (f *FakeService) requireSession() error {
	if f.session == nil {
		return apperr.NewAuthError(apperr.NotAuthenticated, "")
	}
	return nil
}

func notFound(what string) error {
	return apperr.NewRequestError(404, what+" not found")
}

// Login implements service.Service. Any non-empty password is accepted for
// a known user.
func (f *FakeService) Login(ctx context.Context, username, password string) (service.UserProfile, error) {
	if f.LoginErr != nil {
		return service.UserProfile{}, f.LoginErr
	}
	if err := validation.Credentials(username, password); err != nil {
		return service.UserProfile{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.users {
		if f.users[i].Username == username {
			u := f.users[i]
			f.session = &u
			return u, nil
		}
	}
	return service.UserProfile{}, apperr.NewAuthError(apperr.InvalidCredentials, "Incorrect username or password")
}

// Logout implements service.Service.
func (f *FakeService) Logout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = nil
	return f.LogoutErr
}

// CurrentUser implements service.Service.
func (f *FakeService) CurrentUser(ctx context.Context) (service.UserProfile, error) {
	if f.CurrentUserErr != nil {
		return service.UserProfile{}, f.CurrentUserErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if err := f.requireSession(); err != nil {
		return service.UserProfile{}, err
	}
	return *f.session, nil
}

// Refresh implements service.Service.
func (f *FakeService) Refresh(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Refreshes++
	if f.RefreshErr != nil {
		f.session = nil
		return f.RefreshErr
	}
	return f.requireSession()
}

// Register implements service.Service.
func (f *FakeService) Register(ctx context.Context, r service.Registration) (service.UserProfile, error) {
	if f.RegisterErr != nil {
		return service.UserProfile{}, f.RegisterErr
	}
	if err := validation.Registration(r); err != nil {
		return service.UserProfile{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == r.Username {
			return service.UserProfile{}, apperr.NewRequestError(400, "Username already registered")
		}
	}
	u := service.UserProfile{ID: f.newID("u"), Username: r.Username, Name: r.Name, Email: r.Email}
	f.users = append(f.users, u)
	return u, nil
}

// Session implements service.Service.
func (f *FakeService) Session() (service.Session, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.session == nil {
		return service.Session{}, false
	}
	u := *f.session
	return service.Session{User: &u, Subject: u.Username}, true
}

// ListTasks implements service.Service.
func (f *FakeService) ListTasks(ctx context.Context, filter service.TaskFilter) ([]service.Task, error) {
	f.mu.Lock()
	f.LastFilter = filter
	f.mu.Unlock()
	if f.ListTasksErr != nil {
		return nil, f.ListTasksErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if err := f.requireSession(); err != nil {
		return nil, err
	}

	var matched []service.Task
	for _, t := range f.tasks {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.AssignedToMe && t.AssignedTo != f.session.ID {
			continue
		}
		if filter.DueFrom != nil && (t.DueDate == nil || t.DueDate.Before(*filter.DueFrom)) {
			continue
		}
		if filter.DueTo != nil && (t.DueDate == nil || t.DueDate.After(*filter.DueTo)) {
			continue
		}
		matched = append(matched, t)
	}
	return paginate(matched, filter.Page), nil
}

func paginate[T any](items []T, p service.Page) []T {
	if p.Skip >= len(items) {
		return nil
	}
	items = items[p.Skip:]
	if p.Limit > 0 && p.Limit < len(items) {
		items = items[:p.Limit]
	}
	return items
}

// TaskStatuses implements service.Service. No session is needed.
func (f *FakeService) TaskStatuses(ctx context.Context) ([]service.TaskStatus, error) {
	if f.StatusesErr != nil {
		return nil, f.StatusesErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]service.TaskStatus(nil), f.statuses...), nil
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, in service.TaskInput) (service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastInput = in
	if f.CreateTaskErr != nil {
		return service.Task{}, f.CreateTaskErr
	}
	if err := f.requireSession(); err != nil {
		return service.Task{}, err
	}
	if err := validation.TaskInput(in); err != nil {
		return service.Task{}, err
	}
	t := service.Task{
		ID:          f.newID("t"),
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		Tags:        in.Tags,
		AssignedTo:  in.AssignedTo,
	}
	if t.Status == "" {
		t.Status = service.StatusToDo
	}
	if t.Priority == 0 {
		t.Priority = service.PriorityMedium
	}
	f.tasks = append(f.tasks, t)
	return t, nil
}

// withTask runs fn on the stored task with the given id under the write lock.
func (f *FakeService) withTask(id string, injected error, fn func(i int, t *service.Task)) (service.Task, error) {
	if injected != nil {
		return service.Task{}, injected
	}
	if err := validation.ID("task", id); err != nil {
		return service.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.requireSession(); err != nil {
		return service.Task{}, err
	}
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			out := f.tasks[i]
			fn(i, &f.tasks[i])
			if i < len(f.tasks) && f.tasks[i].ID == id {
				out = f.tasks[i]
			}
			return out, nil
		}
	}
	return service.Task{}, notFound("Task")
}

// UpdateTask implements service.Service.
func (f *FakeService) UpdateTask(ctx context.Context, id string, p service.TaskPatch) (service.Task, error) {
	f.mu.Lock()
	f.LastPatch = p
	f.mu.Unlock()
	if f.UpdateTaskErr != nil {
		return service.Task{}, f.UpdateTaskErr
	}
	if err := validation.TaskPatch(p); err != nil {
		return service.Task{}, err
	}
	return f.withTask(id, nil, func(_ int, t *service.Task) {
		if p.Title != nil {
			t.Title = *p.Title
		}
		if p.Description != nil {
			t.Description = *p.Description
		}
		if p.Status != nil {
			t.Status = *p.Status
		}
		if p.Priority != nil {
			t.Priority = *p.Priority
		}
		if p.DueDate != nil {
			t.DueDate = p.DueDate
		}
		if p.Tags != nil {
			t.Tags = p.Tags
		}
	})
}

// DeleteTask implements service.Service.
func (f *FakeService) DeleteTask(ctx context.Context, id string) error {
	_, err := f.withTask(id, f.DeleteTaskErr, func(i int, _ *service.Task) {
		f.tasks = append(f.tasks[:i:i], f.tasks[i+1:]...)
	})
	return err
}

// AssignTask implements service.Service.
func (f *FakeService) AssignTask(ctx context.Context, id string, userID *string) (service.Task, error) {
	if userID != nil {
		if err := validation.ID("user", *userID); err != nil {
			return service.Task{}, err
		}
	}
	return f.withTask(id, f.AssignTaskErr, func(_ int, t *service.Task) {
		if userID == nil {
			t.AssignedTo = ""
			return
		}
		t.AssignedTo = *userID
	})
}

// CompleteTask implements service.Service.
func (f *FakeService) CompleteTask(ctx context.Context, id string) (service.Task, error) {
	return f.withTask(id, f.CompleteErr, func(_ int, t *service.Task) {
		now := time.Now().UTC()
		t.Status = service.StatusDone
		t.CompletedDate = &now
	})
}

// ListUsers implements service.Service.
func (f *FakeService) ListUsers(ctx context.Context, p service.Page) ([]service.UserProfile, error) {
	f.mu.Lock()
	f.LastPage = p
	f.mu.Unlock()
	if f.ListUsersErr != nil {
		return nil, f.ListUsersErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if err := f.requireSession(); err != nil {
		return nil, err
	}
	return paginate(append([]service.UserProfile(nil), f.users...), p), nil
}

// GetUser implements service.Service.
func (f *FakeService) GetUser(ctx context.Context, id string) (service.UserProfile, error) {
	if f.GetUserErr != nil {
		return service.UserProfile{}, f.GetUserErr
	}
	if err := validation.ID("user", id); err != nil {
		return service.UserProfile{}, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if err := f.requireSession(); err != nil {
		return service.UserProfile{}, err
	}
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return service.UserProfile{}, notFound("User")
}

var _ service.Service = (*FakeService)(nil)
