// Package output renders snapshots and notifications for the terminal.
package output

import (
	"fmt"
	"io"
	"strings"

	"tdsync/internal/service"
)

const (
	// StatsSeparator is the separator line above the stats row.
	StatsSeparator = "------------"
)

// Renderer writes list snapshots and notifications to the terminal. It is
// the CLI's presentation adapter: the sync engine hands it immutable
// snapshots and never asks it to diff.
type Renderer struct {
	out   io.Writer
	errs  io.Writer
	quiet bool
}

// New creates a Renderer. quiet suppresses informational output; errors
// are always written.
func New(out, errOut io.Writer, quiet bool) *Renderer {
	return &Renderer{out: out, errs: errOut, quiet: quiet}
}

// Render writes the task list and its stats.
// Format: "{ID:>4}  [{x| }] {TITLE}\n" per task, then a stats row.
func (r *Renderer) Render(snap service.Snapshot, stats service.Stats) {
	if len(snap.Items) == 0 {
		if !r.quiet {
			fmt.Fprintln(r.out, "no tasks found")
		}
		return
	}

	for _, t := range snap.Items {
		mark := ' '
		if t.IsDone {
			mark = 'x'
		}
		fmt.Fprintf(r.out, "%4d  [%c] %s\n", t.ID, mark, normalizeTitle(t.Title))
	}

	if !r.quiet {
		fmt.Fprintln(r.out, StatsSeparator)
		fmt.Fprintf(r.out, "%d total, %d completed, %d pending\n",
			stats.Total, stats.Completed, stats.Pending)
	}
}

// RenderAuthState reports the session mode.
func (r *Renderer) RenderAuthState(authenticated bool, email string) {
	if r.quiet {
		return
	}
	if !authenticated {
		fmt.Fprintln(r.out, "not logged in")
		return
	}
	fmt.Fprintf(r.out, "logged in as %s\n", email)
}

// Notify writes an informational message.
func (r *Renderer) Notify(msg string) {
	if !r.quiet {
		fmt.Fprintln(r.out, msg)
	}
}

// NotifyError writes a user-visible error message.
func (r *Renderer) NotifyError(msg string) {
	fmt.Fprintf(r.errs, "error: %s\n", msg)
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
