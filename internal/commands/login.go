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
	Register(&LoginCmd{})
}

// LoginCmd implements the login command. A failed login keeps any
// existing session.
type LoginCmd struct {
	username string
	password string
	in       io.Reader
}

// SetInput sets where the password is read from when --password is absent
// (for testing).
func (c *LoginCmd) SetInput(in io.Reader) {
	c.in = in
}

func (c *LoginCmd) Name() string       { return "login" }
func (c *LoginCmd) Aliases() []string  { return nil }
func (c *LoginCmd) Synopsis() string   { return "Sign in" }
func (c *LoginCmd) Usage() string      { return "taskctl login [--password <p>] (--username <u> | <u>)" }
func (c *LoginCmd) Needs() Requirement { return NeedsService }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.username, "username", "", "")
	fs.StringVar(&c.username, "u", "", "")
	fs.StringVar(&c.password, "password", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	username := c.username
	switch {
	case len(args) > 1:
		return usageError(errOut, "unexpected argument: %s", args[1])
	case len(args) == 1 && username != "":
		return usageError(errOut, "username given twice")
	case len(args) == 1:
		username = args[0]
	}

	password := c.password
	if password == "" {
		if !cfg.Quiet {
			fmt.Fprint(errOut, "password: ")
		}
		var err error
		if password, err = readSecret(inputOr(c.in)); err != nil {
			return usageError(errOut, "failed to read password: %v", err)
		}
	}

	u, err := svc.Login(ctx, username, password)
	if err != nil {
		return report(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "logged in as %s\n", u.Username)
	}
	return exitcode.Success
}
