package commands

import (
	"context"
	"flag"
	"io"

	"taskctl/internal/config"
	"taskctl/internal/service"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct{}

func (c *RmCmd) Name() string                   { return "rm" }
func (c *RmCmd) Aliases() []string              { return []string{"delete"} }
func (c *RmCmd) Synopsis() string               { return "Delete tasks" }
func (c *RmCmd) Usage() string                  { return "taskctl rm <ref>..." }
func (c *RmCmd) Needs() Requirement             { return NeedsSession }
func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	return forEachTask(ctx, cfg, svc, args, out, errOut, func(id string) error {
		return svc.DeleteTask(ctx, id)
	})
}
