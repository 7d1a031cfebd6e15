package taskapi

import (
	"context"
	"net/http"
	"net/url"

	"taskctl/internal/apiclient"
	"taskctl/internal/apperr"
	"taskctl/internal/auth"
	"taskctl/internal/service"
	"taskctl/internal/validation"
	"taskctl/internal/wire"
)

// TaskService covers the /tasks endpoints.
type TaskService struct {
	doer Doer
	api  auth.Sender
}

func taskPath(id string, suffix string) string {
	return "/tasks/" + url.PathEscape(id) + suffix
}

// List returns tasks matching f in server order.
func (s *TaskService) List(ctx context.Context, f service.TaskFilter) ([]service.Task, error) {
	resp, err := call(ctx, s.doer, apiclient.Request{
		Method: http.MethodGet,
		Path:   "/tasks",
		Query:  wire.FilterQuery(f),
	})
	if err != nil {
		return nil, err
	}
	return wire.DecodeTasks(resp.Body)
}

// Statuses returns the status catalogue. No session is needed.
func (s *TaskService) Statuses(ctx context.Context) ([]service.TaskStatus, error) {
	resp, err := s.api.Send(ctx, apiclient.Request{Method: http.MethodGet, Path: "/tasks/statuses"})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, apperr.NewRequestError(resp.Status, resp.Detail())
	}
	return wire.DecodeStatuses(resp.Body)
}

// Create adds a task.
func (s *TaskService) Create(ctx context.Context, in service.TaskInput) (service.Task, error) {
	if err := validation.TaskInput(in); err != nil {
		return service.Task{}, err
	}
	resp, err := call(ctx, s.doer, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/tasks",
		Body:   wire.EncodeTaskInput(in),
	})
	if err != nil {
		return service.Task{}, err
	}
	return wire.DecodeTask(resp.Body)
}

// Update changes the fields set in p.
func (s *TaskService) Update(ctx context.Context, id string, p service.TaskPatch) (service.Task, error) {
	if err := validation.ID("task", id); err != nil {
		return service.Task{}, err
	}
	if err := validation.TaskPatch(p); err != nil {
		return service.Task{}, err
	}
	resp, err := call(ctx, s.doer, apiclient.Request{
		Method: http.MethodPut,
		Path:   taskPath(id, ""),
		Body:   wire.EncodeTaskPatch(p),
	})
	if err != nil {
		return service.Task{}, err
	}
	return wire.DecodeTask(resp.Body)
}

// Delete removes a task.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	if err := validation.ID("task", id); err != nil {
		return err
	}
	_, err := call(ctx, s.doer, apiclient.Request{Method: http.MethodDelete, Path: taskPath(id, "")})
	return err
}

// Assign sets the task's assignee; nil unassigns.
func (s *TaskService) Assign(ctx context.Context, id string, userID *string) (service.Task, error) {
	if err := validation.ID("task", id); err != nil {
		return service.Task{}, err
	}
	if userID != nil {
		if err := validation.ID("user", *userID); err != nil {
			return service.Task{}, err
		}
	}
	resp, err := call(ctx, s.doer, apiclient.Request{
		Method: http.MethodPost,
		Path:   taskPath(id, "/assign"),
		Body:   wire.AssignBody{UserUUID: userID},
	})
	if err != nil {
		return service.Task{}, err
	}
	return wire.DecodeTask(resp.Body)
}

// Complete marks a task done.
func (s *TaskService) Complete(ctx context.Context, id string) (service.Task, error) {
	if err := validation.ID("task", id); err != nil {
		return service.Task{}, err
	}
	resp, err := call(ctx, s.doer, apiclient.Request{Method: http.MethodPost, Path: taskPath(id, "/complete")})
	if err != nil {
		return service.Task{}, err
	}
	return wire.DecodeTask(resp.Body)
}
