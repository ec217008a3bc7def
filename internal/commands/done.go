package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"

	"tdsync/internal/config"
	"tdsync/internal/exitcode"
	"tdsync/internal/service"
)

func init() {
	Register(&DoneCmd{})
	Register(&UndoCmd{})
}

// DoneCmd marks a task completed.
type DoneCmd struct{}

func (c *DoneCmd) Name() string      { return "done" }
func (c *DoneCmd) Aliases() []string { return nil }
func (c *DoneCmd) Synopsis() string  { return "Mark a task completed" }
func (c *DoneCmd) Usage() string     { return "tdsync done <id>" }
func (c *DoneCmd) NeedsAuth() bool   { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	return runToggle(ctx, cfg, svc, args, false, out, errOut)
}

// UndoCmd marks a completed task pending again.
type UndoCmd struct{}

func (c *UndoCmd) Name() string      { return "undo" }
func (c *UndoCmd) Aliases() []string { return nil }
func (c *UndoCmd) Synopsis() string  { return "Mark a task pending again" }
func (c *UndoCmd) Usage() string     { return "tdsync undo <id>" }
func (c *UndoCmd) NeedsAuth() bool   { return true }

func (c *UndoCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *UndoCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	return runToggle(ctx, cfg, svc, args, true, out, errOut)
}

// runToggle is the shared implementation for done and undo. currentIsDone
// is what the caller believes the task's status to be; the engine requests
// the opposite.
func runToggle(ctx context.Context, cfg *config.Config, svc service.Service, args []string, currentIsDone bool, out, errOut io.Writer) int {
	id, code := parseTaskID(args, errOut)
	if code != exitcode.Success {
		return code
	}

	eng, _, comp := newEngine(cfg, svc, io.Discard, errOut)
	defer comp.Close()

	if err := eng.ToggleTask(ctx, id, currentIsDone); err != nil {
		return errorCode(err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// parseTaskID extracts the single numeric task id argument.
func parseTaskID(args []string, errOut io.Writer) (int64, int) {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "error: task id required")
		return 0, exitcode.UserError
	}
	if len(args) > 1 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[1])
		return 0, exitcode.UserError
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id < 1 {
		fmt.Fprintf(errOut, "error: invalid task id: %s\n", args[0])
		return 0, exitcode.UserError
	}
	return id, exitcode.Success
}
