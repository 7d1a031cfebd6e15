// Package service defines the backend-agnostic interface for task operations.
package service

import (
	"strconv"
	"time"
)

// Task statuses known to the remote API.
const (
	StatusToDo       = "To Do"
	StatusInProgress = "In Progress"
	StatusDone       = "Done"
)

// DateLayout is the wire and display format for calendar dates.
const DateLayout = "2006-01-02"

// Priority ranks a task; lower is more urgent.
type Priority int

const (
	PriorityHigh   Priority = 1
	PriorityMedium Priority = 2
	PriorityLow    Priority = 3
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	return p >= PriorityHigh && p <= PriorityLow
}

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return strconv.Itoa(int(p))
	}
}

// ParsePriority accepts a name (high, medium, low) or a number (1-3).
func ParsePriority(s string) (Priority, bool) {
	switch s {
	case "high", "h":
		return PriorityHigh, true
	case "medium", "med", "m":
		return PriorityMedium, true
	case "low", "l":
		return PriorityLow, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || !Priority(n).Valid() {
		return 0, false
	}
	return Priority(n), true
}

// Task is a work item. ID is always populated once decoded.
type Task struct {
	ID            string
	Title         string
	Description   string
	Status        string
	Priority      Priority
	DueDate       *time.Time
	Tags          []string
	AssignedTo    string
	CreatedDate   *time.Time
	CompletedDate *time.Time
}

// Done reports whether the task is completed.
func (t Task) Done() bool {
	return t.Status == StatusDone || t.CompletedDate != nil
}

// UserProfile is the identity of a user. ID is always populated once decoded.
type UserProfile struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Name        string     `json:"name,omitempty"`
	Email       string     `json:"email,omitempty"`
	CreatedDate *time.Time `json:"created_date,omitempty"`
}

// TaskStatus is one entry of the status catalogue.
type TaskStatus struct {
	Key   string
	Label string
}

// TaskFilter narrows a task listing. Zero values are omitted from the query.
type TaskFilter struct {
	Status       string
	DueFrom      *time.Time
	DueTo        *time.Time
	AssignedToMe bool
	Page
}

// Page is offset pagination. A zero Limit means the server default.
type Page struct {
	Skip  int
	Limit int
}

// TaskInput is the payload for a new task.
type TaskInput struct {
	Title       string
	Description string
	Status      string
	Priority    Priority
	DueDate     *time.Time
	Tags        []string
	AssignedTo  string
}

// TaskPatch is a partial update; nil fields are left unchanged.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *Priority
	DueDate     *time.Time
	Tags        []string
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.Priority == nil && p.DueDate == nil && p.Tags == nil
}

// Registration is the input for creating an account.
type Registration struct {
	Username string
	Email    string
	Name     string
	Password string
}

// Session describes the locally stored session without contacting the server.
type Session struct {
	User      *UserProfile
	Subject   string
	ExpiresAt time.Time
	Expired   bool
}
