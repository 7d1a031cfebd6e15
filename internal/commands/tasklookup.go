package commands

import (
	"context"
	"fmt"

	"taskctl/internal/service"
)

// taskResolver maps task references to identifiers. Numbered references
// index the unfiltered listing in server order, one page of pageSize at a
// time; fetched pages are cached so several references cost one call.
type taskResolver struct {
	svc      service.Service
	pageSize int
	pages    map[int][]service.Task // page index -> tasks
}

func newTaskResolver(svc service.Service, pageSize int) *taskResolver {
	return &taskResolver{svc: svc, pageSize: pageSize, pages: make(map[int][]service.Task)}
}

// resolve returns the identifier of the task ref points at.
func (r *taskResolver) resolve(ctx context.Context, ref TaskRef) (string, error) {
	if ref.ID != "" {
		return ref.ID, nil
	}

	page := (ref.Num - 1) / r.pageSize
	index := (ref.Num - 1) % r.pageSize

	tasks, ok := r.pages[page]
	if !ok {
		var err error
		tasks, err = r.svc.ListTasks(ctx, service.TaskFilter{
			Page: service.Page{Skip: page * r.pageSize, Limit: r.pageSize},
		})
		if err != nil {
			return "", err
		}
		r.pages[page] = tasks
	}

	if index >= len(tasks) {
		return "", &refError{fmt.Sprintf("task number out of range: %d", ref.Num)}
	}
	return tasks[index].ID, nil
}

// resolveAll resolves every ref before any of them is acted on, so that
// deleting one task does not shift the numbers of the others.
func (r *taskResolver) resolveAll(ctx context.Context, refs []TaskRef) ([]string, error) {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		id, err := r.resolve(ctx, ref)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
