package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"taskctl/internal/config"
	"taskctl/internal/exitcode"
	"taskctl/internal/service"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	desc     string
	priority string
	due      string
	status   string
	tags     stringList
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "taskctl add [--desc <text>] [--priority <p>] [--due <date>] [--status <s>] [--tag <t>]... <title...>"
}
func (c *AddCmd) Needs() Requirement { return NeedsSession }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	c.tags = nil
	fs.StringVar(&c.desc, "desc", "", "")
	fs.StringVar(&c.desc, "d", "", "")
	fs.StringVar(&c.priority, "priority", "", "")
	fs.StringVar(&c.priority, "p", "", "")
	fs.StringVar(&c.due, "due", "", "")
	fs.StringVar(&c.status, "status", "", "")
	fs.Var(&c.tags, "tag", "")
	fs.Var(&c.tags, "t", "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	// Join args to form title
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		return usageError(errOut, "title required")
	}

	in := service.TaskInput{
		Title:       title,
		Description: c.desc,
		Tags:        c.tags,
	}
	if c.priority != "" {
		p, ok := service.ParsePriority(strings.ToLower(c.priority))
		if !ok {
			return usageError(errOut, "invalid priority: %s (want high, medium, low or 1-3)", c.priority)
		}
		in.Priority = p
	}
	if c.due != "" {
		t, err := parseDate(c.due)
		if err != nil {
			return usageError(errOut, "%v", err)
		}
		in.DueDate = &t
	}
	if c.status != "" {
		status, code := matchStatus(ctx, svc, c.status, errOut)
		if code != exitcode.Success {
			return code
		}
		in.Status = status
	}

	task, err := svc.CreateTask(ctx, in)
	if err != nil {
		return report(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "ok %s\n", task.ID)
	}
	return exitcode.Success
}
