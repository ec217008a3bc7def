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
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `tdsync` (no args) and `tdsync list` with query flags.
type ListCmd struct {
	search string
	status string
	sort   string
}

// SetSearch sets the search text (for testing).
func (c *ListCmd) SetSearch(q string) { c.search = q }

// SetStatus sets the status filter (for testing).
func (c *ListCmd) SetStatus(s string) { c.status = s }

// SetSort sets the sort order (for testing).
func (c *ListCmd) SetSort(s string) { c.sort = s }

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return nil }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string {
	return "tdsync list [--search <q>] [--status all|completed|pending] [--sort created_at|-created_at]"
}
func (c *ListCmd) NeedsAuth() bool { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.search, "search", "", "")
	fs.StringVar(&c.search, "s", "", "")
	fs.StringVar(&c.status, "status", "", "")
	fs.StringVar(&c.sort, "sort", "", "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	status, err := service.ParseStatusFilter(c.status)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	sort, err := service.ParseSortOrder(c.sort)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	eng, _, comp := newEngine(cfg, svc, out, errOut)
	defer comp.Close()

	// The composer is unbound here, so seeding it triggers no requery;
	// the one-shot refresh below is the query.
	comp.SetSearchText(c.search)
	comp.SetStatusFilter(status)
	comp.SetSortOrder(sort)

	if err := eng.Refresh(ctx); err != nil {
		return errorCode(err)
	}
	return exitcode.Success
}
