package commands

import (
	"context"
	"flag"
	"io"
	"strings"

	"taskctl/internal/config"
	"taskctl/internal/exitcode"
	"taskctl/internal/output"
	"taskctl/internal/service"
)

func init() {
	Register(&EditCmd{})
}

// EditCmd implements the edit command. Only the given flags are sent.
type EditCmd struct {
	title    optString
	desc     optString
	status   optString
	priority optString
	due      optString
	tags     stringList
	tagsSet  bool
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return []string{"update"} }
func (c *EditCmd) Synopsis() string  { return "Change fields of a task" }
func (c *EditCmd) Usage() string {
	return "taskctl edit [--title <t>] [--desc <text>] [--status <s>] [--priority <p>] [--due <date>] [--tag <t>]... <ref>"
}
func (c *EditCmd) Needs() Requirement { return NeedsSession }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	*c = EditCmd{}
	fs.Var(&c.title, "title", "")
	fs.Var(&c.desc, "desc", "")
	fs.Var(&c.desc, "d", "")
	fs.Var(&c.status, "status", "")
	fs.Var(&c.priority, "priority", "")
	fs.Var(&c.priority, "p", "")
	fs.Var(&c.due, "due", "")
	fs.Func("tag", "", func(s string) error {
		c.tagsSet = true
		return c.tags.Set(s)
	})
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		if len(args) == 0 {
			return report(errOut, ErrTaskRefRequired)
		}
		return usageError(errOut, "edit takes exactly one task reference")
	}
	ref, err := ParseTaskRef(args[0])
	if err != nil {
		return report(errOut, err)
	}

	patch := service.TaskPatch{
		Title:       c.title.ptr(),
		Description: c.desc.ptr(),
	}
	if c.status.set {
		status, code := matchStatus(ctx, svc, c.status.value, errOut)
		if code != exitcode.Success {
			return code
		}
		patch.Status = &status
	}
	if c.priority.set {
		p, ok := service.ParsePriority(strings.ToLower(c.priority.value))
		if !ok {
			return usageError(errOut, "invalid priority: %s (want high, medium, low or 1-3)", c.priority.value)
		}
		patch.Priority = &p
	}
	if c.due.set {
		t, err := parseDate(c.due.value)
		if err != nil {
			return usageError(errOut, "%v", err)
		}
		patch.DueDate = &t
	}
	if c.tagsSet {
		patch.Tags = append([]string{}, c.tags...)
	}
	if patch.Empty() {
		return usageError(errOut, "nothing to update")
	}

	id, err := newTaskResolver(svc, pageSize(cfg)).resolve(ctx, ref)
	if err != nil {
		return report(errOut, err)
	}
	task, err := svc.UpdateTask(ctx, id, patch)
	if err != nil {
		return report(errOut, err)
	}

	if !cfg.Quiet {
		output.FormatTaskDetail(out, task)
	}
	return exitcode.Success
}
