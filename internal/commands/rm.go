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
	Register(&RmCmd{})
}

// RmCmd deletes a task.
type RmCmd struct{}

func (c *RmCmd) Name() string      { return "rm" }
func (c *RmCmd) Aliases() []string { return []string{"delete"} }
func (c *RmCmd) Synopsis() string  { return "Delete a task" }
func (c *RmCmd) Usage() string     { return "tdsync rm <id>" }
func (c *RmCmd) NeedsAuth() bool   { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	id, code := parseTaskID(args, errOut)
	if code != exitcode.Success {
		return code
	}

	eng, _, comp := newEngine(cfg, svc, io.Discard, errOut)
	defer comp.Close()

	if err := eng.RemoveTask(ctx, id); err != nil {
		return errorCode(err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
