package commands

import (
	"context"
	"flag"
	"io"

	"taskctl/internal/config"
	"taskctl/internal/exitcode"
	"taskctl/internal/output"
	"taskctl/internal/service"
)

func init() {
	Register(&StatusesCmd{})
}

// StatusesCmd prints the server's status catalogue in server order.
type StatusesCmd struct{}

func (c *StatusesCmd) Name() string                   { return "statuses" }
func (c *StatusesCmd) Aliases() []string              { return nil }
func (c *StatusesCmd) Synopsis() string               { return "List task statuses" }
func (c *StatusesCmd) Usage() string                  { return "taskctl statuses" }
func (c *StatusesCmd) Needs() Requirement             { return NeedsService }
func (c *StatusesCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *StatusesCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	statuses, err := svc.TaskStatuses(ctx)
	if err != nil {
		return report(errOut, err)
	}
	for _, s := range statuses {
		output.FormatStatus(out, s)
	}
	return exitcode.Success
}
