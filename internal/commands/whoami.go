package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"taskctl/internal/apperr"
	"taskctl/internal/config"
	"taskctl/internal/exitcode"
	"taskctl/internal/output"
	"taskctl/internal/service"
)

func init() {
	Register(&WhoamiCmd{})
	Register(&RefreshCmd{})
}

// WhoamiCmd implements the whoami command. With --local it prints the
// stored session without contacting the server.
type WhoamiCmd struct {
	local bool
}

func (c *WhoamiCmd) Name() string       { return "whoami" }
func (c *WhoamiCmd) Aliases() []string  { return []string{"me"} }
func (c *WhoamiCmd) Synopsis() string   { return "Show the signed-in user" }
func (c *WhoamiCmd) Usage() string      { return "taskctl whoami [--local]" }
func (c *WhoamiCmd) Needs() Requirement { return NeedsSession }

func (c *WhoamiCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.local, "local", false, "")
}

func (c *WhoamiCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if !c.local {
		u, err := svc.CurrentUser(ctx)
		if err != nil {
			return report(errOut, err)
		}
		output.FormatUserDetail(out, u)
		return exitcode.Success
	}

	s, ok := svc.Session()
	if !ok {
		return report(errOut, apperr.NewAuthError(apperr.NotAuthenticated, ""))
	}
	if s.User != nil {
		output.FormatUserDetail(out, *s.User)
	} else if s.Subject != "" {
		fmt.Fprintf(out, "subject:  %s\n", s.Subject)
	}
	if !s.ExpiresAt.IsZero() {
		state := "valid"
		if s.Expired {
			state = "expired"
		}
		fmt.Fprintf(out, "expires:  %s (%s)\n", s.ExpiresAt.UTC().Format(time.RFC3339), state)
	}
	return exitcode.Success
}

// RefreshCmd implements the refresh command.
type RefreshCmd struct{}

func (c *RefreshCmd) Name() string                   { return "refresh" }
func (c *RefreshCmd) Aliases() []string              { return nil }
func (c *RefreshCmd) Synopsis() string               { return "Renew the session token" }
func (c *RefreshCmd) Usage() string                  { return "taskctl refresh" }
func (c *RefreshCmd) Needs() Requirement             { return NeedsSession }
func (c *RefreshCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RefreshCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if err := svc.Refresh(ctx); err != nil {
		return report(errOut, err)
	}
	return done(cfg, out)
}
