package commands

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"tdsync/internal/backend/resttodo"
	"tdsync/internal/config"
	"tdsync/internal/exitcode"
	"tdsync/internal/service"
	"tdsync/internal/session"
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct {
	password string
}

// SetPassword sets the password (for testing).
func (c *LoginCmd) SetPassword(pw string) { c.password = pw }

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Authenticate with the todo service" }
func (c *LoginCmd) Usage() string     { return "tdsync login [--password <pw>] <email>" }
func (c *LoginCmd) NeedsAuth() bool   { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.password, "password", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "error: email required")
		return exitcode.UserError
	}
	email := strings.TrimSpace(args[0])

	sess := session.Load(cfg)

	// A stored token that has not expired (per its claims) is reused;
	// validity stays server-confirmed on the next call.
	if sess.Authenticated() {
		exp := sess.ExpiresAt()
		if exp.IsZero() || exp.After(time.Now()) {
			if !cfg.Quiet {
				fmt.Fprintln(out, "already logged in")
			}
			return exitcode.Success
		}
	}

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

	if err := sess.Login(ctx, svc, email, password); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		if service.IsValidation(err) {
			return exitcode.UserError
		}
		if service.IsUnauthorized(err) {
			return exitcode.AuthError
		}
		return exitcode.BackendError
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "logged in as %s\n", sess.Email())
	}
	return exitcode.Success
}

// readPassword prompts on stderr and reads the password without echo when
// stdin is a terminal, falling back to a plain line read otherwise.
func readPassword(errOut io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(errOut, "Password: ")
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(errOut)
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
