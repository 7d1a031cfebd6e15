package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"taskctl/internal/config"
	"taskctl/internal/exitcode"
	"taskctl/internal/service"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command. With a command name it prints that
// command's usage only.
type HelpCmd struct{}

func (c *HelpCmd) Name() string                   { return "help" }
func (c *HelpCmd) Aliases() []string              { return nil }
func (c *HelpCmd) Synopsis() string               { return "Print usage" }
func (c *HelpCmd) Usage() string                  { return "taskctl help [command]" }
func (c *HelpCmd) Needs() Requirement             { return NeedsNothing }
func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		cmd, ok := DefaultRegistry.Find(args[0])
		if !ok {
			return usageError(errOut, "unknown command: %s", args[0])
		}
		fmt.Fprintf(out, "Usage:\n  %s\n\n%s\n", cmd.Usage(), cmd.Synopsis())
		if aliases := cmd.Aliases(); len(aliases) > 0 {
			fmt.Fprintf(out, "Aliases: %s\n", strings.Join(aliases, ", "))
		}
		return exitcode.Success
	}

	fmt.Fprintln(out, "Usage:")
	fmt.Fprintln(out, "  taskctl                     List tasks (same as taskctl list)")
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, cmd := range DefaultRegistry.All() {
		fmt.Fprintf(tw, "  %s\t%s\n", cmd.Usage(), cmd.Synopsis())
	}
	tw.Flush()
	fmt.Fprint(out, helpFooter)
	return exitcode.Success
}

const helpFooter = `
A task <ref> is a number from the unfiltered list or a task id.

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr

Environment (also read from <config dir>/.env):
  TASKCTL_API_URL, TASKCTL_TIMEOUT, TASKCTL_STORE (file|sqlite|redis|memory),
  TASKCTL_REDIS_ADDR, TASKCTL_REDIS_PASSWORD, TASKCTL_REDIS_DB,
  TASKCTL_RATE_LIMIT, TASKCTL_RATE_BURST, TASKCTL_PAGE_SIZE, TASKCTL_DEBUG
`
