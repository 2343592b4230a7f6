package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sadopc/cumpli/internal/focus"
	"github.com/sadopc/cumpli/internal/notify/notifytest"
	"github.com/sadopc/cumpli/internal/query"
	"github.com/sadopc/cumpli/internal/reminder"
	"github.com/sadopc/cumpli/internal/store"
)

// recordingQueue keeps pending tasks in a map instead of running timers.
type recordingQueue struct {
	mu    sync.Mutex
	tasks map[string]time.Duration
}

func (q *recordingQueue) EnqueueUnique(key string, delay time.Duration, _ reminder.Payload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks[key] = delay
	return nil
}

func (q *recordingQueue) Cancel(key string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.tasks, key)
	return nil
}

func (q *recordingQueue) keys() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []string
	for k := range q.tasks {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (q *recordingQueue) has(id int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.tasks[reminder.Key(id)]
	return ok
}

func newTestService(t *testing.T) (*Service, *recordingQueue) {
	t.Helper()
	st, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	q := &recordingQueue{tasks: make(map[string]time.Duration)}
	svc, err := New(context.Background(), st, &notifytest.Recorder{}, Options{TickInterval: time.Hour, Queue: q})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		svc.Close(context.Background())
		st.Close()
	})
	return svc, q
}

func draft(title string, due time.Time, reminder bool) Draft {
	d := NewDraft(time.Now())
	d.Title = title
	d.DueAt = due
	d.HasReminder = reminder
	return d
}

// ============================================================
// Drafts and validation
// ============================================================

func TestNewDraftDefaults(t *testing.T) {
	now := time.Date(2026, 1, 31, 22, 15, 0, 0, time.Local)
	d := NewDraft(now)
	want := time.Date(2026, 2, 1, 8, 0, 0, 0, time.Local)
	if !d.DueAt.Equal(want) {
		t.Fatalf("due = %v, want %v", d.DueAt, want)
	}
	if d.Priority != store.PriorityMedium || d.Category != store.CategorySchool || d.HasReminder || d.Title != "" {
		t.Fatalf("unexpected draft %+v", d)
	}
}

func TestValidate(t *testing.T) {
	ok := draft("x", time.Now(), false)
	if err := ok.Validate(); err != nil {
		t.Fatal(err)
	}

	blank := ok
	blank.Title = "   "
	if err := blank.Validate(); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}

	badPriority := ok
	badPriority.Priority = 9
	var ve *ValidationError
	if err := badPriority.Validate(); !errors.As(err, &ve) || ve.Field != "priority" {
		t.Fatalf("expected priority ValidationError, got %v", err)
	}

	badCategory := ok
	badCategory.Category = "garden"
	if err := badCategory.Validate(); !errors.As(err, &ve) || ve.Field != "category" {
		t.Fatalf("expected category ValidationError, got %v", err)
	}

	noDue := ok
	noDue.DueAt = time.Time{}
	if err := noDue.Validate(); !errors.As(err, &ve) {
		t.Fatalf("expected due ValidationError, got %v", err)
	}
}

func TestCreateRejectsBlankTitleWithoutWriting(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, draft(" ", time.Now(), false)); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}
	all, _ := svc.Activities(ctx)
	if len(all) != 0 {
		t.Fatalf("nothing should be stored, got %d", len(all))
	}
}

// ============================================================
// Lifecycle
// ============================================================

func TestCreateLoadRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	d := draft("  Lab report  ", time.UnixMilli(1_800_000_000_000), false)
	d.Description = "chapter 3"
	d.Priority = store.PriorityHigh
	d.Category = store.CategoryWork

	a, err := svc.Create(ctx, d)
	if err != nil {
		t.Fatal(err)
	}
	got, err := svc.Load(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Lab report" || got.Description != "chapter 3" || !got.DueAt.Equal(d.DueAt) ||
		got.Priority != store.PriorityHigh || got.Category != store.CategoryWork || got.Completed {
		t.Fatalf("loaded %+v", got)
	}
}

func TestLoadMissing(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Load(context.Background(), 77); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateSchedulesReminder(t *testing.T) {
	svc, q := newTestService(t)
	ctx := context.Background()

	a, _ := svc.Create(ctx, draft("with", time.Now().Add(2*time.Hour), true))
	b, _ := svc.Create(ctx, draft("without", time.Now().Add(2*time.Hour), false))
	c, _ := svc.Create(ctx, draft("too late", time.Now().Add(time.Minute), true))

	if !q.has(a.ID) || q.has(b.ID) || q.has(c.ID) {
		t.Fatalf("pending reminders = %v", q.keys())
	}
}

func TestNotificationsDisabledSuppressesScheduling(t *testing.T) {
	svc, q := newTestService(t)
	ctx := context.Background()
	a, _ := svc.Create(ctx, draft("a", time.Now().Add(2*time.Hour), true))

	if err := svc.SetNotifications(ctx, false); err != nil {
		t.Fatal(err)
	}
	if q.has(a.ID) {
		t.Fatal("disabling notifications should cancel pending reminders")
	}
	b, _ := svc.Create(ctx, draft("b", time.Now().Add(2*time.Hour), true))
	if q.has(b.ID) {
		t.Fatal("no reminder should be scheduled while disabled")
	}

	svc.SetNotifications(ctx, true)
	if !q.has(a.ID) || !q.has(b.ID) {
		t.Fatalf("re-enabling should re-arm, pending = %v", q.keys())
	}
}

func TestUpdateReschedules(t *testing.T) {
	svc, q := newTestService(t)
	ctx := context.Background()
	a, _ := svc.Create(ctx, draft("a", time.Now().Add(2*time.Hour), true))

	d := DraftFrom(*a)
	d.HasReminder = false
	d.Title = "renamed"
	got, err := svc.Update(ctx, a.ID, d)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "renamed" || !got.CreatedAt.Equal(a.CreatedAt) {
		t.Fatalf("updated %+v", got)
	}
	if q.has(a.ID) {
		t.Fatal("turning the reminder off should cancel it")
	}

	d.HasReminder = true
	svc.Update(ctx, a.ID, d)
	if !q.has(a.ID) {
		t.Fatal("turning the reminder on should schedule it")
	}
}

func TestUpdateValidatesAndReportsMissing(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Update(ctx, 5, draft("x", time.Now(), false)); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	a, _ := svc.Create(ctx, draft("x", time.Now(), false))
	if _, err := svc.Update(ctx, a.ID, draft("", time.Now(), false)); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}
}

func TestToggleCompleted(t *testing.T) {
	svc, q := newTestService(t)
	ctx := context.Background()
	a, _ := svc.Create(ctx, draft("a", time.Now().Add(2*time.Hour), true))

	done, err := svc.ToggleCompleted(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !done.Completed || q.has(a.ID) {
		t.Fatalf("completing should cancel the reminder: %+v %v", done, q.keys())
	}

	reopened, _ := svc.ToggleCompleted(ctx, a.ID)
	if reopened.Completed || !q.has(a.ID) {
		t.Fatalf("reopening should re-arm the reminder: %+v %v", reopened, q.keys())
	}
}

func TestCompletingRunningActivityStopsFocus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a, _ := svc.Create(ctx, draft("a", time.Now().Add(time.Hour), false))

	if running, err := svc.ToggleFocus(ctx, a.ID); err != nil || !running {
		t.Fatalf("ToggleFocus = %v, %v", running, err)
	}
	done, err := svc.ToggleCompleted(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if done.InProgress || !done.Completed {
		t.Fatalf("completed activity still in progress: %+v", done)
	}
	if _, ok := svc.CurrentFocus(); ok {
		t.Fatal("focus session should have stopped")
	}
	sessions, _ := svc.Store().ListFocusSessions(ctx, a.ID)
	if len(sessions) != 1 {
		t.Fatalf("expected the stopped session to be recorded, got %d", len(sessions))
	}
}

func TestDelete(t *testing.T) {
	svc, q := newTestService(t)
	ctx := context.Background()
	a, _ := svc.Create(ctx, draft("a", time.Now().Add(2*time.Hour), true))
	svc.ToggleFocus(ctx, a.ID)

	if err := svc.Delete(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if q.has(a.ID) {
		t.Fatal("delete should cancel the reminder")
	}
	if _, ok := svc.CurrentFocus(); ok {
		t.Fatal("delete should stop the running session")
	}
	if err := svc.Delete(ctx, a.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteCompleted(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a, _ := svc.Create(ctx, draft("a", time.Now(), false))
	svc.Create(ctx, draft("b", time.Now(), false))
	svc.ToggleCompleted(ctx, a.ID)

	n, err := svc.DeleteCompleted(ctx)
	if err != nil || n != 1 {
		t.Fatalf("DeleteCompleted = %d, %v", n, err)
	}
	all, _ := svc.Activities(ctx)
	if len(all) != 1 || all[0].Title != "b" {
		t.Fatalf("remaining = %+v", all)
	}
}

// ============================================================
// Focus
// ============================================================

func TestToggleFocus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a, _ := svc.Create(ctx, draft("a", time.Now(), false))
	b, _ := svc.Create(ctx, draft("b", time.Now(), false))

	running, err := svc.ToggleFocus(ctx, a.ID)
	if err != nil || !running {
		t.Fatalf("start = %v, %v", running, err)
	}
	if _, err := svc.ToggleFocus(ctx, b.ID); !errors.Is(err, focus.ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}
	running, err = svc.ToggleFocus(ctx, a.ID)
	if err != nil || running {
		t.Fatalf("pause = %v, %v", running, err)
	}
	got, _ := svc.Load(ctx, a.ID)
	if got.InProgress {
		t.Fatal("paused activity should not be in progress")
	}
}

func TestToggleFocusRejectsCompleted(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a, _ := svc.Create(ctx, draft("a", time.Now(), false))
	svc.ToggleCompleted(ctx, a.ID)

	if _, err := svc.ToggleFocus(ctx, a.ID); !errors.Is(err, ErrActivityCompleted) {
		t.Fatalf("expected ErrActivityCompleted, got %v", err)
	}
}

func TestResetFocusTime(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a, _ := svc.Create(ctx, draft("a", time.Now(), false))
	svc.Store().SetAccumulated(ctx, a.ID, time.Minute)

	svc.ToggleFocus(ctx, a.ID)
	if err := svc.ResetFocusTime(ctx, a.ID); !errors.Is(err, focus.ErrSessionActive) {
		t.Fatalf("reset while running should fail, got %v", err)
	}
	svc.StopFocus(ctx)

	if err := svc.ResetFocusTime(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	got, _ := svc.Load(ctx, a.ID)
	if got.Accumulated != 0 {
		t.Fatalf("accumulated = %v", got.Accumulated)
	}
}

func TestPauseWithoutSession(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.PauseFocus(context.Background()); !errors.Is(err, focus.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

// ============================================================
// Preferences and recovery
// ============================================================

func TestPreferences(t *testing.T) {
	svc, q := newTestService(t)
	ctx := context.Background()
	a, _ := svc.Create(ctx, draft("a", time.Now().Add(2*time.Hour), true))
	before := q.tasks[reminder.Key(a.ID)]

	if err := svc.SetTheme(store.ThemeDark); err != nil {
		t.Fatal(err)
	}
	if err := svc.SetTheme("neon"); err == nil {
		t.Fatal("expected invalid theme error")
	}
	var ve *ValidationError
	if err := svc.SetReminderLead(ctx, 0); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if err := svc.SetReminderLead(ctx, 200000000); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for a huge lead, got %v", err)
	}
	if err := svc.SetReminderLead(ctx, 60); err != nil {
		t.Fatal(err)
	}

	p, _ := svc.Preferences(ctx)
	if p.Theme != store.ThemeDark || p.ReminderLeadMinutes != 60 || !p.NotificationsEnabled {
		t.Fatalf("preferences = %+v", p)
	}
	after := q.tasks[reminder.Key(a.ID)]
	if after >= before {
		t.Fatalf("a longer lead should fire earlier: before %v, after %v", before, after)
	}
}

func TestApplyPreferencesFollowsOtherWriters(t *testing.T) {
	svc, q := newTestService(t)
	ctx := context.Background()
	st := svc.Store()
	a, _ := svc.Create(ctx, draft("a", time.Now().Add(3*time.Hour), true))
	if !q.has(a.ID) {
		t.Fatal("reminder should be armed")
	}

	// Another process turns notifications off.
	st.SetNotificationsEnabled(false)
	p, _ := st.GetPreferences(ctx)
	if err := svc.ApplyPreferences(ctx, p); err != nil {
		t.Fatal(err)
	}
	if q.has(a.ID) || svc.gate.Enabled() {
		t.Fatalf("notifications off should disarm and close the gate, pending = %v", q.keys())
	}

	st.SetNotificationsEnabled(true)
	p, _ = st.GetPreferences(ctx)
	svc.ApplyPreferences(ctx, p)
	if !q.has(a.ID) || !svc.gate.Enabled() {
		t.Fatal("notifications on should re-arm and open the gate")
	}

	before := q.tasks[reminder.Key(a.ID)]
	st.SetReminderLead(90)
	p, _ = st.GetPreferences(ctx)
	svc.ApplyPreferences(ctx, p)
	if after := q.tasks[reminder.Key(a.ID)]; after >= before {
		t.Fatalf("a longer lead should re-arm earlier: before %v, after %v", before, after)
	}

	// Applying what is already in effect changes nothing.
	q.Cancel(reminder.Key(a.ID))
	svc.ApplyPreferences(ctx, p)
	if q.has(a.ID) {
		t.Fatal("unchanged preferences should not re-arm")
	}
}

func TestRecover(t *testing.T) {
	svc, q := newTestService(t)
	ctx := context.Background()
	st := svc.Store()

	stale, _ := st.CreateActivity(ctx, store.Activity{
		Title: "stale", DueAt: time.Now().Add(3 * time.Hour), HasReminder: true,
		Priority: store.PriorityLow, Category: store.CategoryHome,
	})
	st.SetInProgress(ctx, stale.ID, true)
	past, _ := st.CreateActivity(ctx, store.Activity{
		Title: "past", DueAt: time.Now().Add(-time.Hour), HasReminder: true,
		Priority: store.PriorityLow, Category: store.CategoryHome,
	})

	r, err := svc.Recover(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if r.ClearedInProgress != 1 || r.Rearmed != 1 || r.Interrupted != "stale" {
		t.Fatalf("report = %+v", r)
	}
	if !q.has(stale.ID) || q.has(past.ID) {
		t.Fatalf("pending = %v", q.keys())
	}
	got, _ := svc.Load(ctx, stale.ID)
	if got.InProgress {
		t.Fatal("stale in-progress flag should be cleared")
	}
}

// ============================================================
// Live queries
// ============================================================

func TestWatchStatsFollowsMutations(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := svc.WatchStats(ctx)
	if r := <-ch; r.Err != nil || r.Value.Total() != 0 {
		t.Fatalf("initial = %+v", r)
	}

	a, _ := svc.Create(ctx, draft("a", time.Now(), false))
	svc.Create(ctx, draft("b", time.Now(), false))
	svc.ToggleCompleted(ctx, a.ID)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case r := <-ch:
			if r.Value.Total() == 2 && r.Value.Completed == 1 {
				if r.Value.Progress != 0.5 {
					t.Fatalf("progress = %v", r.Value.Progress)
				}
				return
			}
		case <-deadline:
			t.Fatal("stats never caught up")
		}
	}
}

func TestListEngineSeesCreatedActivity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := svc.NewListEngine(ctx)
	svc.Create(ctx, draft("visible", time.Now(), false))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case st := <-e.States():
			if s, ok := st.(query.Success); ok && len(s.Activities) == 1 && s.Activities[0].Title == "visible" {
				return
			}
		case <-deadline:
			t.Fatal("engine never delivered the new activity")
		}
	}
}

func TestWatchCounts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := draft("w", time.Now(), false)
	d.Category = store.CategoryWork
	svc.Create(ctx, d)

	if r := <-svc.WatchPendingCount(ctx); r.Value != 1 {
		t.Fatalf("pending count = %+v", r)
	}
	if r := <-svc.WatchCategoryCounts(ctx); r.Value[store.CategoryWork] != 1 || r.Value[store.CategoryHome] != 0 {
		t.Fatalf("category counts = %+v", r)
	}
	if r := <-svc.WatchCompleted(ctx); len(r.Value) != 0 {
		t.Fatalf("completed = %+v", r)
	}
	if r := <-svc.WatchPreferences(ctx); r.Value != store.DefaultPreferences() {
		t.Fatalf("preferences = %+v", r)
	}
}
