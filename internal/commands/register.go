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
	Register(&RegisterCmd{})
}

// RegisterCmd implements the register command. Registering does not sign
// in; run login afterwards.
type RegisterCmd struct {
	username string
	email    string
	name     string
	password string
	in       io.Reader
}

// SetInput sets where the password is read from when --password is absent
// (for testing).
func (c *RegisterCmd) SetInput(in io.Reader) {
	c.in = in
}

func (c *RegisterCmd) Name() string      { return "register" }
func (c *RegisterCmd) Aliases() []string { return []string{"signup"} }
func (c *RegisterCmd) Synopsis() string  { return "Create an account" }
func (c *RegisterCmd) Usage() string {
	return "taskctl register --username <u> --email <e> --name <n> [--password <p>]"
}
func (c *RegisterCmd) Needs() Requirement { return NeedsService }

func (c *RegisterCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.username, "username", "", "")
	fs.StringVar(&c.username, "u", "", "")
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.name, "name", "", "")
	fs.StringVar(&c.password, "password", "", "")
}

func (c *RegisterCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		return usageError(errOut, "unexpected argument: %s", args[0])
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

	u, err := svc.Register(ctx, service.Registration{
		Username: c.username,
		Email:    c.email,
		Name:     c.name,
		Password: password,
	})
	if err != nil {
		return report(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "registered %s (run: taskctl login --username %s)\n", u.Username, u.Username)
	}
	return exitcode.Success
}
