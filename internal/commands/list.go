package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"taskctl/internal/config"
	"taskctl/internal/exitcode"
	"taskctl/internal/output"
	"taskctl/internal/service"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `taskctl` (no args) and `taskctl list [filters]`.
//
// Unfiltered listings are numbered; the numbers are the task references
// accepted by done, rm, edit and assign. Filtered listings show identifiers
// instead, since their positions differ from the unfiltered ones.
type ListCmd struct {
	page   int
	status string
	from   string
	to     string
	mine   bool
}

// SetPage sets the page number (for testing).
func (c *ListCmd) SetPage(page int) {
	c.page = page
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string {
	return "taskctl list [--status <s>] [--from <date>] [--to <date>] [--mine] [--page <n>]"
}
func (c *ListCmd) Needs() Requirement { return NeedsSession }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.page, "page", 1, "")
	fs.StringVar(&c.status, "status", "", "")
	fs.StringVar(&c.status, "s", "", "")
	fs.StringVar(&c.from, "from", "", "")
	fs.StringVar(&c.to, "to", "", "")
	fs.BoolVar(&c.mine, "mine", false, "")
}

// SetFilter sets the filter flags (for testing).
func (c *ListCmd) SetFilter(status, from, to string, mine bool) {
	c.status, c.from, c.to, c.mine = status, from, to, mine
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		return usageError(errOut, "unexpected argument: %s", args[0])
	}
	if c.page < 1 {
		return usageError(errOut, "invalid page number: %d", c.page)
	}

	size := pageSize(cfg)
	filter := service.TaskFilter{
		AssignedToMe: c.mine,
		Page:         service.Page{Skip: (c.page - 1) * size, Limit: size},
	}
	var labels []string

	if c.status != "" {
		status, code := matchStatus(ctx, svc, c.status, errOut)
		if code != exitcode.Success {
			return code
		}
		filter.Status = status
		labels = append(labels, "status: "+status)
	}
	if c.from != "" {
		t, err := parseDate(c.from)
		if err != nil {
			return usageError(errOut, "%v", err)
		}
		filter.DueFrom = &t
		labels = append(labels, "due from: "+c.from)
	}
	if c.to != "" {
		t, err := parseDate(c.to)
		if err != nil {
			return usageError(errOut, "%v", err)
		}
		filter.DueTo = &t
		labels = append(labels, "due to: "+c.to)
	}
	if filter.DueFrom != nil && filter.DueTo != nil && filter.DueTo.Before(*filter.DueFrom) {
		return usageError(errOut, "--to is before --from")
	}
	if c.mine {
		labels = append(labels, "assigned to me")
	}

	tasks, err := svc.ListTasks(ctx, filter)
	if err != nil {
		return report(errOut, err)
	}

	if len(tasks) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no tasks found")
		}
		return exitcode.Success
	}

	if len(labels) > 0 {
		output.FormatHeader(out, strings.Join(labels, ", "))
		for _, task := range tasks {
			output.FormatTaskWithID(out, task)
		}
		return exitcode.Success
	}

	startNum := filter.Skip + 1
	for i, task := range tasks {
		output.FormatTask(out, startNum+i, task)
	}
	return exitcode.Success
}

// matchStatus resolves s against the server's status catalogue by label or
// key, case-insensitively, and returns the label.
func matchStatus(ctx context.Context, svc service.Service, s string, errOut io.Writer) (string, int) {
	statuses, err := svc.TaskStatuses(ctx)
	if err != nil {
		return "", report(errOut, err)
	}
	want := strings.TrimSpace(s)
	for _, st := range statuses {
		if strings.EqualFold(st.Label, want) || strings.EqualFold(st.Key, want) {
			return st.Label, exitcode.Success
		}
	}
	return "", usageError(errOut, "unknown status: %s", s)
}
