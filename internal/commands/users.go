package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskctl/internal/config"
	"taskctl/internal/exitcode"
	"taskctl/internal/output"
	"taskctl/internal/service"
)

func init() {
	Register(&UsersCmd{})
	Register(&UserCmd{})
}

// UsersCmd implements the users command.
type UsersCmd struct {
	page int
}

// SetPage sets the page number (for testing).
func (c *UsersCmd) SetPage(page int) {
	c.page = page
}

func (c *UsersCmd) Name() string       { return "users" }
func (c *UsersCmd) Aliases() []string  { return nil }
func (c *UsersCmd) Synopsis() string   { return "List users" }
func (c *UsersCmd) Usage() string      { return "taskctl users [--page <n>]" }
func (c *UsersCmd) Needs() Requirement { return NeedsSession }

func (c *UsersCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.page, "page", 1, "")
}

func (c *UsersCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if c.page < 1 {
		return usageError(errOut, "invalid page number: %d", c.page)
	}
	size := pageSize(cfg)
	users, err := svc.ListUsers(ctx, service.Page{Skip: (c.page - 1) * size, Limit: size})
	if err != nil {
		return report(errOut, err)
	}
	if len(users) == 0 && !cfg.Quiet {
		fmt.Fprintln(out, "no users found")
	}
	for _, u := range users {
		output.FormatUser(out, u)
	}
	return exitcode.Success
}

// UserCmd implements the user command.
type UserCmd struct{}

func (c *UserCmd) Name() string                   { return "user" }
func (c *UserCmd) Aliases() []string              { return nil }
func (c *UserCmd) Synopsis() string               { return "Show a user" }
func (c *UserCmd) Usage() string                  { return "taskctl user <user-id>" }
func (c *UserCmd) Needs() Requirement             { return NeedsSession }
func (c *UserCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *UserCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		return usageError(errOut, "exactly one user id required")
	}
	u, err := svc.GetUser(ctx, args[0])
	if err != nil {
		return report(errOut, err)
	}
	output.FormatUserDetail(out, u)
	return exitcode.Success
}
