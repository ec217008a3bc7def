// Package engine orchestrates refresh and mutation workflows against the
// remote service under a full-reload-after-mutation policy.
//
// The engine owns the current snapshot. No operation patches it directly:
// every successful mutation is followed by an unconditional refresh, so the
// displayed state always equals the last confirmed server state. Refreshes
// carry sequence numbers; a late completion with a lower number than one
// already applied is discarded, so a slow stale query never clobbers a
// newer one.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"tdsync/internal/query"
	"tdsync/internal/service"
	"tdsync/internal/session"
)

// MinTitleLen is the client-side guard for task titles. The server's own
// validation remains authoritative.
const MinTitleLen = 3

// Renderer is the narrow boundary to the presentation adapter. The engine
// emits immutable snapshots and notifications; rendering is not its concern.
type Renderer interface {
	Render(snap service.Snapshot, stats service.Stats)
	RenderAuthState(authenticated bool, email string)
	Notify(msg string)
	NotifyError(msg string)
}

// Engine drives synchronization between the local snapshot and the server.
type Engine struct {
	svc  service.Service
	sess *session.Store
	comp *query.Composer
	r    Renderer

	nextSeq atomic.Uint64

	mu      sync.Mutex
	applied uint64 // highest refresh sequence applied so far
	snap    service.Snapshot
}

// New creates an Engine. The composer supplies the query for every refresh.
func New(svc service.Service, sess *session.Store, comp *query.Composer, r Renderer) *Engine {
	return &Engine{svc: svc, sess: sess, comp: comp, r: r}
}

// Bind wires the composer's requery signal to a refresh, so debounced
// search and immediate filter/sort changes drive the engine.
func (e *Engine) Bind(ctx context.Context) {
	e.comp.OnQueryChanged(func() {
		_ = e.Refresh(ctx)
	})
}

// Refresh composes the current query, fetches the list and replaces the
// snapshot if this is the newest completion. On unauthorized the session is
// logged out and the previous snapshot stays displayed; on any other
// failure the error is surfaced and the previous snapshot stays displayed.
func (e *Engine) Refresh(ctx context.Context) error {
	seq := e.nextSeq.Add(1)
	q := e.comp.Compose()

	snap, err := e.svc.ListTasks(ctx, q)
	if err != nil {
		if service.IsUnauthorized(err) {
			e.forceLogout()
		} else {
			e.r.NotifyError(err.Error())
		}
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if seq <= e.applied {
		// Stale response: a newer refresh already completed.
		return nil
	}
	e.applied = seq
	e.snap = snap

	// Render under the lock: snapshots must reach the presentation
	// adapter in apply order, so the last delivered render is always the
	// newest applied snapshot.
	e.r.Render(snap, deriveStats(snap))
	return nil
}

// AddTask validates the title, creates the task and reloads. Titles under
// MinTitleLen runes are rejected without a round trip.
func (e *Engine) AddTask(ctx context.Context, title, description string) error {
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) < MinTitleLen {
		err := service.Errf(service.KindValidation,
			fmt.Sprintf("title must be at least %d characters", MinTitleLen))
		e.r.NotifyError(err.Message)
		return err
	}

	if _, err := e.svc.CreateTask(ctx, title, description); err != nil {
		return e.mutationFailed(err)
	}
	e.reload(ctx)
	return nil
}

// ToggleTask flips a task's completion status and reloads. A NotFound
// still triggers a reload so a stale entry disappears from the display.
func (e *Engine) ToggleTask(ctx context.Context, id int64, currentIsDone bool) error {
	if _, err := e.svc.SetDone(ctx, id, !currentIsDone); err != nil {
		if service.IsNotFound(err) {
			e.r.NotifyError(err.Error())
			e.reload(ctx)
			return err
		}
		return e.mutationFailed(err)
	}
	e.reload(ctx)
	return nil
}

// RemoveTask deletes a task and reloads. Like ToggleTask, a NotFound still
// triggers a reload to reconcile the display.
func (e *Engine) RemoveTask(ctx context.Context, id int64) error {
	if err := e.svc.DeleteTask(ctx, id); err != nil {
		if service.IsNotFound(err) {
			e.r.NotifyError(err.Error())
			e.reload(ctx)
			return err
		}
		return e.mutationFailed(err)
	}
	e.reload(ctx)
	return nil
}

// Snapshot returns the current snapshot.
func (e *Engine) Snapshot() service.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap
}

// Stats derives display statistics from the current snapshot. Total comes
// from the server's authoritative count; completed and pending are counted
// over the snapshot's items. Both always come from the same snapshot.
func (e *Engine) Stats() service.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return deriveStats(e.snap)
}

// reload is the follow-up refresh after a successful mutation. The mutation
// already succeeded, so a refresh failure is a secondary error: it has been
// surfaced by Refresh and must not mark the mutation as failed.
func (e *Engine) reload(ctx context.Context) {
	_ = e.Refresh(ctx)
}

// mutationFailed routes a mutation error: unauthorized forces the logout
// cascade, everything else is surfaced for notification.
func (e *Engine) mutationFailed(err error) error {
	if service.IsUnauthorized(err) {
		e.forceLogout()
	} else {
		e.r.NotifyError(err.Error())
	}
	return err
}

// forceLogout transitions the session to Anonymous. Logout is idempotent,
// so concurrent unauthorized observers cause exactly one transition. The
// snapshot is left in place rather than cleared, so the display does not
// flash stale content.
func (e *Engine) forceLogout() {
	if err := e.sess.Logout(); err != nil {
		e.r.NotifyError(err.Error())
	}
	e.r.RenderAuthState(false, "")
	e.r.NotifyError("session expired (run: tdsync login)")
}

func deriveStats(snap service.Snapshot) service.Stats {
	stats := service.Stats{Total: snap.Total}
	for _, t := range snap.Items {
		if t.IsDone {
			stats.Completed++
		} else {
			stats.Pending++
		}
	}
	return stats
}
