// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"tdsync/internal/service"
)

// FakeService is an in-memory implementation of service.Service for
// testing. It applies the same filter/sort/pagination semantics as the
// remote service and records every call it receives.
type FakeService struct {
	mu     sync.Mutex
	tasks  []service.Task
	nextID int64

	// TokenValue is returned by Login on success.
	TokenValue string

	// UserEmail is returned by CurrentUser.
	UserEmail string

	// Users maps email to password. When non-nil, Login checks credentials.
	Users map[string]string

	// Calls records every method invocation, e.g. "SetDone(7,true)".
	Calls []string

	// LastQuery is the query passed to the most recent ListTasks call.
	LastQuery service.ListQuery

	// Error injection for testing
	LoginErr       error
	RegisterErr    error
	CurrentUserErr error
	ListTasksErr   error
	CreateTaskErr  error
	SetDoneErr     error
	DeleteTaskErr  error

	// ListTasksFunc, when set, fully overrides ListTasks (after call
	// recording). Used to control completion ordering in tests.
	ListTasksFunc func(q service.ListQuery) (service.Snapshot, error)
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		nextID:     1,
		TokenValue: "fake-token",
		UserEmail:  "user@example.com",
	}
}

// AddTask seeds a task and returns it. Creation times increase with id so
// created_at sorting is deterministic.
func (f *FakeService) AddTask(title string, done bool) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := service.Task{
		ID:        f.nextID,
		Title:     title,
		IsDone:    done,
		CreatedAt: time.Unix(1700000000+f.nextID, 0).UTC(),
	}
	f.nextID++
	f.tasks = append(f.tasks, t)
	return t
}

// CallCount returns how many calls were recorded for a method name.
func (f *FakeService) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if strings.HasPrefix(c, method) {
			n++
		}
	}
	return n
}

func (f *FakeService) record(call string) {
	f.mu.Lock()
	f.Calls = append(f.Calls, call)
	f.mu.Unlock()
}

// Login implements service.Service.
func (f *FakeService) Login(ctx context.Context, email, password string) (string, error) {
	f.record(fmt.Sprintf("Login(%s)", email))
	if f.LoginErr != nil {
		return "", f.LoginErr
	}
	if f.Users != nil {
		if pw, ok := f.Users[email]; !ok || pw != password {
			return "", service.Errf(service.KindUnauthorized, "invalid credentials")
		}
	}
	return f.TokenValue, nil
}

// Register implements service.Service.
func (f *FakeService) Register(ctx context.Context, email, password string) error {
	f.record(fmt.Sprintf("Register(%s)", email))
	if f.RegisterErr != nil {
		return f.RegisterErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Users == nil {
		f.Users = make(map[string]string)
	}
	if _, exists := f.Users[email]; exists {
		return service.Errf(service.KindValidation, "email already registered")
	}
	f.Users[email] = password
	return nil
}

// CurrentUser implements service.Service.
func (f *FakeService) CurrentUser(ctx context.Context) (service.User, error) {
	f.record("CurrentUser()")
	if f.CurrentUserErr != nil {
		return service.User{}, f.CurrentUserErr
	}
	return service.User{Email: f.UserEmail}, nil
}

// ListTasks implements service.Service.
func (f *FakeService) ListTasks(ctx context.Context, q service.ListQuery) (service.Snapshot, error) {
	f.record("ListTasks()")
	f.mu.Lock()
	f.LastQuery = q
	fn := f.ListTasksFunc
	errInject := f.ListTasksErr
	f.mu.Unlock()

	if fn != nil {
		return fn(q)
	}
	if errInject != nil {
		return service.Snapshot{}, errInject
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var filtered []service.Task
	for _, t := range f.tasks {
		switch q.Status {
		case service.StatusCompleted:
			if !t.IsDone {
				continue
			}
		case service.StatusPending:
			if t.IsDone {
				continue
			}
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(q.Search)) {
			continue
		}
		filtered = append(filtered, t)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if q.Sort == service.SortCreatedAsc {
			return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
		}
		return filtered[j].CreatedAt.Before(filtered[i].CreatedAt)
	})

	total := len(filtered)
	start := q.Offset
	if start > total {
		start = total
	}
	end := total
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}

	items := make([]service.Task, end-start)
	copy(items, filtered[start:end])
	return service.Snapshot{Items: items, Total: total}, nil
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, title, description string) (service.Task, error) {
	f.record(fmt.Sprintf("CreateTask(%s)", title))
	if f.CreateTaskErr != nil {
		return service.Task{}, f.CreateTaskErr
	}
	if len(strings.TrimSpace(title)) < 3 {
		return service.Task{}, service.Errf(service.KindValidation, "title must be at least 3 characters")
	}
	t := f.AddTask(title, false)
	f.mu.Lock()
	f.tasks[len(f.tasks)-1].Description = description
	f.mu.Unlock()
	t.Description = description
	return t, nil
}

// SetDone implements service.Service.
func (f *FakeService) SetDone(ctx context.Context, id int64, isDone bool) (service.Task, error) {
	f.record(fmt.Sprintf("SetDone(%d,%t)", id, isDone))
	if f.SetDoneErr != nil {
		return service.Task{}, f.SetDoneErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks[i].IsDone = isDone
			f.tasks[i].UpdatedAt = time.Unix(1800000000, 0).UTC()
			return f.tasks[i], nil
		}
	}
	return service.Task{}, service.Errf(service.KindNotFound, "not found")
}

// DeleteTask implements service.Service.
func (f *FakeService) DeleteTask(ctx context.Context, id int64) error {
	f.record(fmt.Sprintf("DeleteTask(%d)", id))
	if f.DeleteTaskErr != nil {
		return f.DeleteTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return service.Errf(service.KindNotFound, "not found")
}
