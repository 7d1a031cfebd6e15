// Package cli parses the command line and dispatches to commands.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"taskctl/internal/commands"
	"taskctl/internal/config"
	"taskctl/internal/exitcode"
	"taskctl/internal/service"
)

// ServiceFactory creates a Service from config.
// Used to inject the backend during dispatch. If the returned service
// implements io.Closer it is closed after the command finishes.
type ServiceFactory func(ctx context.Context, cfg *config.Config) (service.Service, error)

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  ServiceFactory
}

// NewDispatcher creates a new dispatcher with the given registry and service factory.
func NewDispatcher(registry *commands.Registry, factory ServiceFactory) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> dispatch to "list" command with no args
	if len(args) == 0 {
		args = []string{"list"}
	}

	cmdName := args[0]

	// If first token starts with -, it's an error (flags require a command)
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	// Look up command
	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	// Parse flags and run
	return d.dispatchCommand(ctx, cmd, args[1:], out, errOut)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	// Create flag set with custom error handling
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves

	// Common flags
	var configDir string
	var quiet bool
	var debug bool

	fs.StringVar(&configDir, "config", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&quiet, "q", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	// Register command-specific flags
	cmd.RegisterFlags(fs)

	// Parse flags
	if err := fs.Parse(args); err != nil {
		errStr := err.Error()
		// Unknown flags get their own message; anything else (missing value,
		// bad value) is reported as the flag package words it
		if name, found := strings.CutPrefix(errStr, "flag provided but not defined: "); found {
			fmt.Fprintf(errOut, "error: unknown flag: %s\n", name)
			return exitcode.UserError
		}
		fmt.Fprintf(errOut, "error: %s\n", errStr)
		return exitcode.UserError
	}

	// Check if first positional arg starts with - (should have been parsed as flag)
	positionalArgs := fs.Args()
	if len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") && positionalArgs[0] != "-" {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	// Create config
	cfg, err := config.New(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = quiet
	cfg.Debug = cfg.Debug || debug

	// help and version run without a backend
	if cmd.Needs() == commands.NeedsNothing {
		return cmd.Run(ctx, cfg, nil, positionalArgs, out, errOut)
	}

	// Create service
	if d.factory == nil {
		fmt.Fprintln(errOut, "error: backend error: no backend configured")
		return exitcode.BackendError
	}
	svc, err := d.factory(ctx, cfg)
	if err != nil {
		fmt.Fprintf(errOut, "error: backend error: %s\n", err)
		return exitcode.For(err)
	}
	if c, ok := svc.(io.Closer); ok {
		defer func() {
			if err := c.Close(); err != nil {
				fmt.Fprintf(errOut, "warning: failed to close session store: %v\n", err)
			}
		}()
	}

	// Check auth requirements. Only the stored session is consulted here;
	// an expired token is refreshed by the service when the command runs.
	if cmd.Needs() == commands.NeedsSession {
		if _, ok := svc.Session(); !ok {
			fmt.Fprintln(errOut, "error: not logged in (run: taskctl login)")
			return exitcode.AuthError
		}
	}

	// Run command
	return cmd.Run(ctx, cfg, svc, positionalArgs, out, errOut)
}
