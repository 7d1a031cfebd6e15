package commands

import (
	"context"
	"flag"
	"io"

	"taskctl/internal/config"
	"taskctl/internal/service"
)

func init() {
	Register(&AssignCmd{})
	Register(&UnassignCmd{})
}

// AssignCmd implements the assign command. The user "me" is the signed-in
// user.
type AssignCmd struct{}

func (c *AssignCmd) Name() string                   { return "assign" }
func (c *AssignCmd) Aliases() []string              { return nil }
func (c *AssignCmd) Synopsis() string               { return "Assign a task to a user" }
func (c *AssignCmd) Usage() string                  { return "taskctl assign <ref> <user-id|me>" }
func (c *AssignCmd) Needs() Requirement             { return NeedsSession }
func (c *AssignCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *AssignCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	switch len(args) {
	case 0:
		return report(errOut, ErrTaskRefRequired)
	case 1:
		return usageError(errOut, "user id required")
	case 2:
	default:
		return usageError(errOut, "unexpected argument: %s", args[2])
	}

	userID := args[1]
	if userID == "me" {
		me, err := svc.CurrentUser(ctx)
		if err != nil {
			return report(errOut, err)
		}
		userID = me.ID
	}
	return assign(ctx, cfg, svc, args[0], &userID, out, errOut)
}

// UnassignCmd implements the unassign command.
type UnassignCmd struct{}

func (c *UnassignCmd) Name() string                   { return "unassign" }
func (c *UnassignCmd) Aliases() []string              { return nil }
func (c *UnassignCmd) Synopsis() string               { return "Remove a task's assignee" }
func (c *UnassignCmd) Usage() string                  { return "taskctl unassign <ref>" }
func (c *UnassignCmd) Needs() Requirement             { return NeedsSession }
func (c *UnassignCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *UnassignCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	switch len(args) {
	case 0:
		return report(errOut, ErrTaskRefRequired)
	case 1:
	default:
		return usageError(errOut, "unexpected argument: %s", args[1])
	}
	return assign(ctx, cfg, svc, args[0], nil, out, errOut)
}

func assign(ctx context.Context, cfg *config.Config, svc service.Service, arg string, userID *string, out, errOut io.Writer) int {
	ref, err := ParseTaskRef(arg)
	if err != nil {
		return report(errOut, err)
	}
	id, err := newTaskResolver(svc, pageSize(cfg)).resolve(ctx, ref)
	if err != nil {
		return report(errOut, err)
	}
	if _, err := svc.AssignTask(ctx, id, userID); err != nil {
		return report(errOut, err)
	}
	return done(cfg, out)
}
