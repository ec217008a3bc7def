package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tdsync/internal/config"
	"tdsync/internal/exitcode"
	"tdsync/internal/service"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "tdsync help" }
func (c *HelpCmd) NeedsAuth() bool   { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  tdsync                                             List tasks
  tdsync list [common flags] [--search <q>] [--status all|completed|pending]
              [--sort created_at|-created_at]
  tdsync add [common flags] [-d <description>] <title...>
  tdsync done [common flags] <id>
  tdsync undo [common flags] <id>
  tdsync rm [common flags] <id>
  tdsync register [common flags] <email>
  tdsync login [common flags] <email>
  tdsync logout [common flags]
  tdsync whoami [common flags]
  tdsync help
  tdsync version

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug detail to stderr
`
