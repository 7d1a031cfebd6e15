package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskctl/internal/config"
	"taskctl/internal/exitcode"
	"taskctl/internal/service"
)

func init() {
	Register(&LogoutCmd{})
}

// LogoutCmd implements the logout command.
type LogoutCmd struct{}

func (c *LogoutCmd) Name() string                   { return "logout" }
func (c *LogoutCmd) Aliases() []string              { return nil }
func (c *LogoutCmd) Synopsis() string               { return "End the session" }
func (c *LogoutCmd) Usage() string                  { return "taskctl logout" }
func (c *LogoutCmd) Needs() Requirement             { return NeedsService }
func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LogoutCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if _, ok := svc.Session(); !ok {
		if !cfg.Quiet {
			fmt.Fprintln(out, "not logged in")
		}
		return exitcode.Success
	}

	// The local session is gone even when this fails.
	if err := svc.Logout(ctx); err != nil {
		return report(errOut, err)
	}
	return done(cfg, out)
}
