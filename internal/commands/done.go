package commands

import (
	"context"
	"flag"
	"io"

	"taskctl/internal/config"
	"taskctl/internal/service"
)

func init() {
	Register(&DoneCmd{})
}

// DoneCmd implements the done command.
type DoneCmd struct{}

func (c *DoneCmd) Name() string                   { return "done" }
func (c *DoneCmd) Aliases() []string              { return []string{"complete"} }
func (c *DoneCmd) Synopsis() string               { return "Mark tasks completed" }
func (c *DoneCmd) Usage() string                  { return "taskctl done <ref>..." }
func (c *DoneCmd) Needs() Requirement             { return NeedsSession }
func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	return forEachTask(ctx, cfg, svc, args, out, errOut, func(id string) error {
		_, err := svc.CompleteTask(ctx, id)
		return err
	})
}

// forEachTask resolves every reference in args, then applies fn to each task
// in order. It stops at the first failure.
func forEachTask(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer, fn func(id string) error) int {
	refs, err := ParseTaskRefs(args)
	if err != nil {
		return report(errOut, err)
	}

	ids, err := newTaskResolver(svc, pageSize(cfg)).resolveAll(ctx, refs)
	if err != nil {
		return report(errOut, err)
	}

	for _, id := range ids {
		if err := fn(id); err != nil {
			return report(errOut, err)
		}
	}
	return done(cfg, out)
}
