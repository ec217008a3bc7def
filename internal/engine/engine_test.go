package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"tdsync/internal/config"
	"tdsync/internal/engine"
	"tdsync/internal/query"
	"tdsync/internal/service"
	"tdsync/internal/session"
	"tdsync/internal/testutil"
)

// recordingRenderer captures everything the engine emits.
type recordingRenderer struct {
	mu         sync.Mutex
	renders    []service.Snapshot
	stats      []service.Stats
	authStates []bool
	notes      []string
	errs       []string
}

func (r *recordingRenderer) Render(snap service.Snapshot, stats service.Stats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renders = append(r.renders, snap)
	r.stats = append(r.stats, stats)
}

func (r *recordingRenderer) RenderAuthState(authenticated bool, email string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.authStates = append(r.authStates, authenticated)
}

func (r *recordingRenderer) Notify(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, msg)
}

func (r *recordingRenderer) NotifyError(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, msg)
}

func (r *recordingRenderer) renderCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.renders)
}

func (r *recordingRenderer) hasError(substr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.errs {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

// newTestEngine builds an engine over a FakeService with a logged-in
// session backed by a temp config dir.
func newTestEngine(t *testing.T, svc *testutil.FakeService) (*engine.Engine, *session.Store, *query.Composer, *recordingRenderer, *config.Config) {
	t.Helper()

	cfg := &config.Config{Dir: t.TempDir(), Settings: config.DefaultSettings()}
	tokenJSON := `{"access_token":"test-token","token_type":"Bearer"}`
	if err := os.WriteFile(filepath.Join(cfg.Dir, config.TokenFile), []byte(tokenJSON), 0600); err != nil {
		t.Fatalf("failed to write token file: %v", err)
	}

	sess := session.Load(cfg)
	if !sess.Authenticated() {
		t.Fatal("expected optimistic authenticated session at startup")
	}

	comp := query.New(time.Hour, 100)
	t.Cleanup(comp.Close)
	r := &recordingRenderer{}
	return engine.New(svc, sess, comp, r), sess, comp, r, cfg
}

func TestRefresh_AppliesSnapshot(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("Buy milk", false)
	svc.AddTask("Buy eggs", true)
	eng, _, _, r, _ := newTestEngine(t, svc)

	if err := eng.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := eng.Snapshot()
	if len(snap.Items) != 2 || snap.Total != 2 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	// Default sort is newest first.
	if snap.Items[0].Title != "Buy eggs" {
		t.Errorf("expected newest task first, got %q", snap.Items[0].Title)
	}
	if r.renderCount() != 1 {
		t.Errorf("expected 1 render, got %d", r.renderCount())
	}
}

func TestRefresh_OutOfOrderCompletionDiscarded(t *testing.T) {
	svc := testutil.NewFakeService()
	eng, _, _, r, _ := newTestEngine(t, svc)

	snapOld := service.Snapshot{Items: []service.Task{{ID: 1, Title: "stale"}}, Total: 1}
	snapNew := service.Snapshot{Items: []service.Task{{ID: 2, Title: "fresh"}}, Total: 1}

	entered := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex
	svc.ListTasksFunc = func(q service.ListQuery) (service.Snapshot, error) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			close(entered)
			<-release
			return snapOld, nil
		}
		return snapNew, nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = eng.Refresh(context.Background()) // seq 1, completes last
	}()
	<-entered

	if err := eng.Refresh(context.Background()); err != nil { // seq 2
		t.Fatalf("unexpected error: %v", err)
	}
	close(release)
	<-done

	snap := eng.Snapshot()
	if len(snap.Items) != 1 || snap.Items[0].Title != "fresh" {
		t.Fatalf("stale response clobbered newer snapshot: %+v", snap)
	}
	if r.renderCount() != 1 {
		t.Errorf("expected stale completion to skip rendering, got %d renders", r.renderCount())
	}
}

// blockingRenderer parks the first Render until released; later renders
// record immediately.
type blockingRenderer struct {
	recordingRenderer
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *blockingRenderer) Render(snap service.Snapshot, stats service.Stats) {
	first := false
	r.once.Do(func() { first = true })
	if first {
		close(r.entered)
		<-r.release
	}
	r.recordingRenderer.Render(snap, stats)
}

func TestRefresh_RenderDeliveryMatchesApplyOrder(t *testing.T) {
	svc := testutil.NewFakeService()

	cfg := &config.Config{Dir: t.TempDir(), Settings: config.DefaultSettings()}
	tokenJSON := `{"access_token":"test-token","token_type":"Bearer"}`
	if err := os.WriteFile(filepath.Join(cfg.Dir, config.TokenFile), []byte(tokenJSON), 0600); err != nil {
		t.Fatalf("failed to write token file: %v", err)
	}
	sess := session.Load(cfg)
	comp := query.New(time.Hour, 100)
	t.Cleanup(comp.Close)
	r := &blockingRenderer{entered: make(chan struct{}), release: make(chan struct{})}
	eng := engine.New(svc, sess, comp, r)

	snapOld := service.Snapshot{Items: []service.Task{{ID: 1, Title: "stale"}}, Total: 1}
	snapNew := service.Snapshot{Items: []service.Task{{ID: 2, Title: "fresh"}}, Total: 1}

	var calls int
	var mu sync.Mutex
	svc.ListTasksFunc = func(q service.ListQuery) (service.Snapshot, error) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			return snapOld, nil
		}
		return snapNew, nil
	}

	// Both refreshes succeed and apply in order, but the first one's
	// Render is slow. The second must not slip its render in between:
	// the last snapshot the renderer receives has to be the newest.
	first := make(chan struct{})
	go func() {
		defer close(first)
		_ = eng.Refresh(context.Background()) // seq 1, render parks
	}()
	<-r.entered

	second := make(chan struct{})
	go func() {
		defer close(second)
		_ = eng.Refresh(context.Background()) // seq 2
	}()

	time.Sleep(50 * time.Millisecond) // let seq 2 reach the apply step
	close(r.release)
	<-first
	<-second

	r.mu.Lock()
	var titles []string
	for _, snap := range r.renders {
		titles = append(titles, snap.Items[0].Title)
	}
	r.mu.Unlock()

	if len(titles) != 2 || titles[0] != "stale" || titles[1] != "fresh" {
		t.Fatalf("render delivery order diverged from apply order: %v", titles)
	}
}

func TestRefresh_UnauthorizedLogsOutOnce(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.ListTasksErr = service.Errf(service.KindUnauthorized, "token expired")
	eng, sess, _, r, cfg := newTestEngine(t, svc)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = eng.Refresh(context.Background())
		}()
	}
	wg.Wait()

	if sess.Authenticated() {
		t.Error("expected session to be anonymous after unauthorized response")
	}
	if cfg.HasToken() {
		t.Error("expected persisted token to be cleared")
	}
	if !r.hasError("session expired") {
		t.Errorf("expected session expired notification, got %v", r.errs)
	}
	// Snapshot is retained, not cleared, so the display does not flash.
	if r.renderCount() != 0 {
		t.Errorf("expected no render on unauthorized, got %d", r.renderCount())
	}

	// A later logout is a no-op.
	if err := sess.Logout(); err != nil {
		t.Errorf("logout should be idempotent, got %v", err)
	}
}

func TestRefresh_FailureRetainsPreviousSnapshot(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("Buy milk", false)
	eng, _, _, r, _ := newTestEngine(t, svc)

	if err := eng.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	svc.ListTasksErr = service.Errf(service.KindNetwork, "network error: connection refused")
	if err := eng.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	snap := eng.Snapshot()
	if len(snap.Items) != 1 {
		t.Errorf("expected previous snapshot retained, got %+v", snap)
	}
	if !r.hasError("connection refused") {
		t.Errorf("expected surfaced network error, got %v", r.errs)
	}
}

func TestAddTask_RejectsShortTitleWithoutNetworkCall(t *testing.T) {
	svc := testutil.NewFakeService()
	eng, _, _, _, _ := newTestEngine(t, svc)

	for _, title := range []string{"", "ab", "  ab  "} {
		err := eng.AddTask(context.Background(), title, "")
		if !service.IsValidation(err) {
			t.Errorf("AddTask(%q): expected validation error, got %v", title, err)
		}
	}
	if len(svc.Calls) != 0 {
		t.Errorf("expected no network calls, got %v", svc.Calls)
	}
}

func TestAddTask_FullReloadAfterMutation(t *testing.T) {
	svc := testutil.NewFakeService()
	eng, _, _, _, _ := newTestEngine(t, svc)

	if err := eng.AddTask(context.Background(), "abc", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if svc.CallCount("CreateTask") != 1 || svc.CallCount("ListTasks") != 1 {
		t.Fatalf("expected create followed by reload, got %v", svc.Calls)
	}
	snap := eng.Snapshot()
	if len(snap.Items) != 1 || snap.Items[0].Title != "abc" {
		t.Errorf("snapshot does not reflect server state: %+v", snap)
	}
}

func TestToggleTask_SetsOppositeStatusAndReloads(t *testing.T) {
	svc := testutil.NewFakeService()
	for i := 0; i < 7; i++ {
		svc.AddTask("task", false)
	}
	eng, _, _, _, _ := newTestEngine(t, svc)

	if err := eng.ToggleTask(context.Background(), 7, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "SetDone(7,true)"
	found := false
	for _, c := range svc.Calls {
		if c == want {
			found = true
		}
	}
	if !found {
		t.Errorf("expected call %q, got %v", want, svc.Calls)
	}
	if svc.CallCount("ListTasks") != 1 {
		t.Errorf("expected reload after toggle, got %v", svc.Calls)
	}

	stats := eng.Stats()
	if stats.Total != 7 || stats.Completed != 1 || stats.Pending != 6 {
		t.Errorf("stats not recomputed from new snapshot: %+v", stats)
	}
}

func TestRemoveTask_NotFoundStillReloads(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("Buy milk", false)
	eng, _, _, r, _ := newTestEngine(t, svc)

	err := eng.RemoveTask(context.Background(), 42)
	if !service.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if svc.CallCount("ListTasks") != 1 {
		t.Errorf("expected reload to reconcile stale id, got %v", svc.Calls)
	}
	if !r.hasError("not found") {
		t.Errorf("expected surfaced not-found error, got %v", r.errs)
	}
}

func TestRemoveTask_Success(t *testing.T) {
	svc := testutil.NewFakeService()
	task := svc.AddTask("Buy milk", false)
	eng, _, _, _, _ := newTestEngine(t, svc)

	if err := eng.RemoveTask(context.Background(), task.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap := eng.Snapshot(); len(snap.Items) != 0 || snap.Total != 0 {
		t.Errorf("expected empty snapshot after delete+reload, got %+v", snap)
	}
}

func TestMutationSucceedsButReloadFails(t *testing.T) {
	svc := testutil.NewFakeService()
	eng, _, _, r, _ := newTestEngine(t, svc)

	svc.ListTasksErr = service.Errf(service.KindNetwork, "request timed out")

	// The mutation itself succeeded, so this is not an AddTask failure;
	// the reload failure is surfaced as a secondary error.
	if err := eng.AddTask(context.Background(), "abc", ""); err != nil {
		t.Fatalf("expected mutation to be reported successful, got %v", err)
	}
	if !r.hasError("request timed out") {
		t.Errorf("expected secondary refresh error, got %v", r.errs)
	}
}

func TestBind_ComposerChangesDriveRefresh(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("Buy milk", false)
	svc.AddTask("Call mom", true)
	eng, _, comp, _, _ := newTestEngine(t, svc)

	eng.Bind(context.Background())
	comp.SetStatusFilter(service.StatusCompleted)

	if svc.CallCount("ListTasks") != 1 {
		t.Fatalf("expected filter change to refresh, got %v", svc.Calls)
	}
	if q := svc.LastQuery; q.Status != service.StatusCompleted {
		t.Errorf("expected completed filter in query, got %+v", q)
	}
	snap := eng.Snapshot()
	if len(snap.Items) != 1 || snap.Items[0].Title != "Call mom" {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestStats_DerivedFromSingleSnapshot(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("a1", true)
	svc.AddTask("a2", false)
	svc.AddTask("a3", false)
	eng, _, _, _, _ := newTestEngine(t, svc)

	if err := eng.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats := eng.Stats()
	want := service.Stats{Total: 3, Completed: 1, Pending: 2}
	if stats != want {
		t.Errorf("expected %+v, got %+v", want, stats)
	}
}
