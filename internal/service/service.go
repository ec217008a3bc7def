// Package service defines the backend-agnostic interface to the remote todo service.
package service

import "context"

// Service defines the interface for remote todo operations.
// All HTTP calls go through this interface; commands and the sync engine
// never import the backend directly.
type Service interface {
	// Login exchanges credentials for an access token.
	// It does not persist the token; the session store owns that.
	Login(ctx context.Context, email, password string) (string, error)

	// Register requests account creation. It does not authenticate;
	// the caller routes the user to login afterwards.
	Register(ctx context.Context, email, password string) error

	// CurrentUser fetches the profile of the authenticated account,
	// confirming the token is still valid.
	CurrentUser(ctx context.Context) (User, error)

	// ListTasks returns the tasks matching the query.
	ListTasks(ctx context.Context, q ListQuery) (Snapshot, error)

	// CreateTask creates a new task. The server validates the title;
	// callers may pre-validate to skip a round trip.
	CreateTask(ctx context.Context, title, description string) (Task, error)

	// SetDone updates a task's completion status.
	SetDone(ctx context.Context, id int64, isDone bool) (Task, error)

	// DeleteTask deletes a task by id.
	DeleteTask(ctx context.Context, id int64) error
}
