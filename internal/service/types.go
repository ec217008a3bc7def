// Package service defines the backend-agnostic interface to the remote todo service.
package service

import (
	"fmt"
	"time"
)

// Task represents a single task item. Tasks are server-owned; the client
// never mutates fields locally, it requests changes and reloads.
type Task struct {
	ID          int64
	Title       string
	Description string
	IsDone      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time // zero if the server never updated the task
}

// User identifies the authenticated account.
type User struct {
	Email string
}

// StatusFilter selects tasks by completion status.
type StatusFilter int

const (
	StatusAll StatusFilter = iota
	StatusCompleted
	StatusPending
)

// String returns the CLI spelling of the filter.
func (f StatusFilter) String() string {
	switch f {
	case StatusCompleted:
		return "completed"
	case StatusPending:
		return "pending"
	default:
		return "all"
	}
}

// ParseStatusFilter parses a CLI filter value.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch s {
	case "", "all":
		return StatusAll, nil
	case "completed":
		return StatusCompleted, nil
	case "pending":
		return StatusPending, nil
	}
	return StatusAll, fmt.Errorf("invalid status filter: %s", s)
}

// SortOrder is a sort key understood by the remote service.
type SortOrder string

const (
	SortCreatedAsc  SortOrder = "created_at"
	SortCreatedDesc SortOrder = "-created_at"
)

// ParseSortOrder parses a CLI sort value.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(s) {
	case "", SortCreatedDesc:
		return SortCreatedDesc, nil
	case SortCreatedAsc:
		return SortCreatedAsc, nil
	}
	return SortCreatedDesc, fmt.Errorf("invalid sort order: %s", s)
}

// ListQuery is an immutable query snapshot consumed by one list call.
type ListQuery struct {
	Search string
	Status StatusFilter
	Sort   SortOrder
	Limit  int
	Offset int
}

// Snapshot is a wholesale view of the task list at a point in time.
// It is replaced, never patched in place.
type Snapshot struct {
	Items []Task
	Total int
}

// Stats are display statistics derived from a single Snapshot.
type Stats struct {
	Total     int
	Completed int
	Pending   int
}
