// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"

	"taskctl/internal/config"
	"taskctl/internal/service"
)

// Requirement is what a command needs from the dispatcher before it runs.
type Requirement int

const (
	// NeedsNothing commands run without a service (help, version).
	NeedsNothing Requirement = iota

	// NeedsService commands talk to the server but not on behalf of a
	// user (login, register, statuses).
	NeedsService

	// NeedsSession commands require a stored session.
	NeedsSession
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// Needs reports what the dispatcher must provide.
	Needs() Requirement

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// cfg is always provided.
	// svc is nil if Needs() returns NeedsNothing.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int
}
