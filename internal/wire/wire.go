// Package wire maps the remote API's JSON shapes to service types.
//
// Identifiers arrive under several aliases; they are normalized here, once,
// so nothing downstream needs to know about the aliases.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"taskctl/internal/apperr"
	"taskctl/internal/service"
)

// ID accepts a JSON string or number.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identifier must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// first returns the first non-empty identifier.
func first(ids ...ID) string {
	for _, id := range ids {
		if id != "" {
			return string(id)
		}
	}
	return ""
}

// Time parses the datetime layouts the API emits.
type Time struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	service.DateLayout,
}

func (t *Time) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
			return nil
		}
		return err
	}
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized time %q", s)
}

// ptr returns nil for a zero time.
func (t *Time) ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

// User is a user as sent by the API.
type User struct {
	UserID      ID     `json:"user_id"`
	UserUUID    ID     `json:"user_uuid"`
	ID          ID     `json:"id"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	CreatedDate *Time  `json:"created_date"`
}

// Profile converts u; the identifier may be empty.
func (u User) Profile() service.UserProfile {
	return service.UserProfile{
		ID:          first(u.UserID, u.UserUUID, u.ID),
		Username:    u.Username,
		Name:        u.Name,
		Email:       u.Email,
		CreatedDate: u.CreatedDate.ptr(),
	}
}

// DecodeUser decodes one user and requires an identifier.
func DecodeUser(raw json.RawMessage) (service.UserProfile, error) {
	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return service.UserProfile{}, apperr.Malformed("user", err)
	}
	p := u.Profile()
	if p.ID == "" {
		return service.UserProfile{}, apperr.MissingID("user")
	}
	return p, nil
}

// DecodeUsers decodes a list of users; every entry must carry an identifier.
func DecodeUsers(raw json.RawMessage) ([]service.UserProfile, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, apperr.Malformed("users", err)
	}
	out := make([]service.UserProfile, 0, len(items))
	for _, item := range items {
		p, err := DecodeUser(item)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Task is a task as sent by the API.
type Task struct {
	TaskID        ID       `json:"task_id"`
	TaskUUID      ID       `json:"task_uuid"`
	ID            ID       `json:"id"`
	Title         string   `json:"title"`
	Description   *string  `json:"description"`
	Status        string   `json:"status"`
	Priority      int      `json:"priority"`
	DueDate       *Time    `json:"due_date"`
	Tags          []string `json:"tags"`
	AssignedTo    ID       `json:"assigned_to"`
	CreatedDate   *Time    `json:"created_date"`
	CompletedDate *Time    `json:"completed_date"`
}

func (t Task) task() service.Task {
	out := service.Task{
		ID:            first(t.TaskID, t.TaskUUID, t.ID),
		Title:         t.Title,
		Status:        t.Status,
		Priority:      service.Priority(t.Priority),
		DueDate:       t.DueDate.ptr(),
		Tags:          t.Tags,
		AssignedTo:    string(t.AssignedTo),
		CreatedDate:   t.CreatedDate.ptr(),
		CompletedDate: t.CompletedDate.ptr(),
	}
	if t.Description != nil {
		out.Description = *t.Description
	}
	return out
}

// DecodeTask decodes one task and requires an identifier.
func DecodeTask(raw json.RawMessage) (service.Task, error) {
	var t Task
	if err := json.Unmarshal(raw, &t); err != nil {
		return service.Task{}, apperr.Malformed("task", err)
	}
	out := t.task()
	if out.ID == "" {
		return service.Task{}, apperr.MissingID("task")
	}
	return out, nil
}

// DecodeTasks decodes a list of tasks; every entry must carry an identifier.
func DecodeTasks(raw json.RawMessage) ([]service.Task, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, apperr.Malformed("tasks", err)
	}
	out := make([]service.Task, 0, len(items))
	for _, item := range items {
		t, err := DecodeTask(item)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// DecodeStatuses reads the status catalogue. The API sends an object of
// key/label pairs whose order is significant; a plain list of labels is
// also accepted.
func DecodeStatuses(raw json.RawMessage) ([]service.TaskStatus, error) {
	var labels []string
	if err := json.Unmarshal(raw, &labels); err == nil {
		out := make([]service.TaskStatus, len(labels))
		for i, l := range labels {
			out[i] = service.TaskStatus{Key: l, Label: l}
		}
		return out, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, apperr.Malformed("statuses", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, apperr.Malformed("statuses", fmt.Errorf("unexpected %v", tok))
	}
	var out []service.TaskStatus
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, apperr.Malformed("statuses", err)
		}
		key, _ := keyTok.(string)
		var label string
		if err := dec.Decode(&label); err != nil {
			return nil, apperr.Malformed("statuses", fmt.Errorf("status %q: %w", key, err))
		}
		out = append(out, service.TaskStatus{Key: key, Label: label})
	}
	return out, nil
}

// taskBody is the create payload. Status and priority are required by the API.
type taskBody struct {
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Status      string   `json:"status"`
	Priority    int      `json:"priority"`
	DueDate     *string  `json:"due_date"`
	Tags        []string `json:"tags"`
	AssignedTo  *string  `json:"assigned_to"`
}

// EncodeTaskInput builds the create payload, filling API defaults.
func EncodeTaskInput(in service.TaskInput) any {
	body := taskBody{
		Title:    strings.TrimSpace(in.Title),
		Status:   in.Status,
		Priority: int(in.Priority),
		Tags:     in.Tags,
		DueDate:  formatTime(in.DueDate),
	}
	if body.Status == "" {
		body.Status = service.StatusToDo
	}
	if body.Priority == 0 {
		body.Priority = int(service.PriorityMedium)
	}
	if body.Tags == nil {
		body.Tags = []string{}
	}
	if in.Description != "" {
		body.Description = &in.Description
	}
	if in.AssignedTo != "" {
		body.AssignedTo = &in.AssignedTo
	}
	return body
}

// EncodeTaskPatch builds the update payload with only the changed fields.
func EncodeTaskPatch(p service.TaskPatch) any {
	body := make(map[string]any)
	if p.Title != nil {
		body["title"] = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		body["description"] = *p.Description
	}
	if p.Status != nil {
		body["status"] = *p.Status
	}
	if p.Priority != nil {
		body["priority"] = int(*p.Priority)
	}
	if p.DueDate != nil {
		body["due_date"] = *formatTime(p.DueDate)
	}
	if p.Tags != nil {
		body["tags"] = p.Tags
	}
	return body
}

// AssignBody is the assignment payload; a nil user unassigns.
type AssignBody struct {
	UserUUID *string `json:"user_uuid"`
}

// FilterQuery renders the task filter as query parameters.
// Zero values are omitted.
func FilterQuery(f service.TaskFilter) url.Values {
	q := PageQuery(f.Page)
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.DueFrom != nil {
		q.Set("due_date_from", f.DueFrom.Format(service.DateLayout))
	}
	if f.DueTo != nil {
		q.Set("due_date_to", f.DueTo.Format(service.DateLayout))
	}
	if f.AssignedToMe {
		q.Set("assigned_to_me", "true")
	}
	return q
}

// PageQuery renders pagination; zero values are omitted.
func PageQuery(p service.Page) url.Values {
	q := url.Values{}
	if p.Skip > 0 {
		q.Set("skip", strconv.Itoa(p.Skip))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	return q
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format("2006-01-02T15:04:05")
	return &s
}
