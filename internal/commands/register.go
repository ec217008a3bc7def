package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"tdsync/internal/backend/resttodo"
	"tdsync/internal/config"
	"tdsync/internal/exitcode"
	"tdsync/internal/service"
	"tdsync/internal/session"
)

func init() {
	Register(&RegisterCmd{})
}

// RegisterCmd implements the register command. It creates the account but
// never authenticates; the user is routed to login on success.
type RegisterCmd struct {
	password string
}

// SetPassword sets the password (for testing).
func (c *RegisterCmd) SetPassword(pw string) { c.password = pw }

func (c *RegisterCmd) Name() string      { return "register" }
func (c *RegisterCmd) Aliases() []string { return nil }
func (c *RegisterCmd) Synopsis() string  { return "Create an account" }
func (c *RegisterCmd) Usage() string     { return "tdsync register [--password <pw>] <email>" }
func (c *RegisterCmd) NeedsAuth() bool   { return false }

func (c *RegisterCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.password, "password", "", "")
}

func (c *RegisterCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "error: email required")
		return exitcode.UserError
	}
	email := strings.TrimSpace(args[0])

	sess := session.Load(cfg)
	if svc == nil {
		svc = resttodo.New(cfg, sess)
	}

	password := c.password
	if password == "" {
		var err error
		password, err = readPassword(errOut)
		if err != nil {
			fmt.Fprintf(errOut, "error: failed to read password: %v\n", err)
			return exitcode.UserError
		}
	}
	if password == "" {
		fmt.Fprintln(errOut, "error: password required")
		return exitcode.UserError
	}

	if err := sess.Register(ctx, svc, email, password); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return errorCode(err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "registered (run: tdsync login)")
	}
	return exitcode.Success
}
