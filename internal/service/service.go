// Package service defines the backend-agnostic interface for task operations.
package service

import "context"

// Service defines the interface for the remote task API.
// Commands never talk HTTP directly; every call goes through this interface.
type Service interface {
	// Login exchanges credentials for a session and returns the signed-in user.
	Login(ctx context.Context, username, password string) (UserProfile, error)

	// Logout ends the session. The local session is cleared even when the
	// server call fails.
	Logout(ctx context.Context) error

	// CurrentUser asks the server who the session belongs to.
	CurrentUser(ctx context.Context) (UserProfile, error)

	// Refresh replaces the session token with a fresh one.
	Refresh(ctx context.Context) error

	// Register creates an account. It does not sign in.
	Register(ctx context.Context, r Registration) (UserProfile, error)

	// Session reports the locally stored session, if any. No network call.
	Session() (Session, bool)

	// ListTasks returns tasks matching the filter, in server order.
	ListTasks(ctx context.Context, f TaskFilter) ([]Task, error)

	// TaskStatuses returns the status catalogue. Does not require a session.
	TaskStatuses(ctx context.Context) ([]TaskStatus, error)

	CreateTask(ctx context.Context, in TaskInput) (Task, error)
	UpdateTask(ctx context.Context, id string, p TaskPatch) (Task, error)
	DeleteTask(ctx context.Context, id string) error

	// AssignTask assigns the task to userID, or unassigns it when userID is nil.
	AssignTask(ctx context.Context, id string, userID *string) (Task, error)

	CompleteTask(ctx context.Context, id string) (Task, error)

	ListUsers(ctx context.Context, p Page) ([]UserProfile, error)
	GetUser(ctx context.Context, id string) (UserProfile, error)
}
