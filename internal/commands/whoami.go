package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tdsync/internal/config"
	"tdsync/internal/exitcode"
	"tdsync/internal/service"
	"tdsync/internal/session"
)

func init() {
	Register(&WhoamiCmd{})
}

// WhoamiCmd confirms the session server-side and prints the account email.
type WhoamiCmd struct{}

func (c *WhoamiCmd) Name() string      { return "whoami" }
func (c *WhoamiCmd) Aliases() []string { return nil }
func (c *WhoamiCmd) Synopsis() string  { return "Show the logged-in account" }
func (c *WhoamiCmd) Usage() string     { return "tdsync whoami" }
func (c *WhoamiCmd) NeedsAuth() bool   { return true }

func (c *WhoamiCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *WhoamiCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	sess := session.Load(cfg)

	user, err := sess.CurrentUser(ctx, svc)
	if err != nil {
		if service.IsUnauthorized(err) {
			fmt.Fprintln(errOut, "error: session expired (run: tdsync login)")
			return exitcode.AuthError
		}
		fmt.Fprintf(errOut, "error: %v\n", err)
		return errorCode(err)
	}

	fmt.Fprintln(out, user.Email)
	if cfg.Debug {
		if exp := sess.ExpiresAt(); !exp.IsZero() {
			fmt.Fprintf(errOut, "token expires %s\n", exp.Format("2006-01-02 15:04:05"))
		}
	}
	return exitcode.Success
}
