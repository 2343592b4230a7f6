package reminder

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sadopc/cumpli/internal/notify"
	"github.com/sadopc/cumpli/internal/notify/notifytest"
	"github.com/sadopc/cumpli/internal/store"
)

type enqueued struct {
	key   string
	delay time.Duration
	p     Payload
}

// fakeQueue records calls instead of running timers.
type fakeQueue struct {
	mu        sync.Mutex
	enqueued  []enqueued
	cancelled []string
	err       error
}

func (f *fakeQueue) EnqueueUnique(key string, delay time.Duration, p Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, enqueued{key, delay, p})
	return nil
}

func (f *fakeQueue) Cancel(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, key)
	return nil
}

var epoch = time.UnixMilli(0)

func newTestScheduler(q Queue) *Scheduler {
	s := NewScheduler(q)
	s.now = func() time.Time { return epoch }
	return s
}

// ============================================================
// Scheduler
// ============================================================

func TestScheduleDelay(t *testing.T) {
	q := &fakeQueue{}
	s := newTestScheduler(q)

	a := store.Activity{ID: 7, Title: "Exam", Description: "Room 4", HasReminder: true, DueAt: epoch.Add(3_600_000 * time.Millisecond)}
	at, ok := s.Schedule(a, 15)
	if !ok {
		t.Fatal("expected reminder to be scheduled")
	}
	if at.UnixMilli() != 2_700_000 {
		t.Fatalf("fire time = %d, want 2700000", at.UnixMilli())
	}
	if len(q.enqueued) != 1 {
		t.Fatalf("enqueued = %+v", q.enqueued)
	}
	e := q.enqueued[0]
	if e.key != "reminder_7" || e.delay != 2_700_000*time.Millisecond {
		t.Fatalf("enqueued %q after %v", e.key, e.delay)
	}
	if e.p.Title != "Exam" || e.p.Description != "Room 4" || e.p.ActivityID != 7 {
		t.Fatalf("payload = %+v", e.p)
	}
}

func TestScheduleSkips(t *testing.T) {
	tests := []struct {
		name string
		a    store.Activity
	}{
		{"fire time in the past", store.Activity{ID: 1, HasReminder: true, DueAt: epoch.Add(60_000 * time.Millisecond)}},
		{"fire time is now", store.Activity{ID: 2, HasReminder: true, DueAt: epoch.Add(15 * time.Minute)}},
		{"no reminder", store.Activity{ID: 3, DueAt: epoch.Add(24 * time.Hour)}},
		{"completed", store.Activity{ID: 4, HasReminder: true, Completed: true, DueAt: epoch.Add(24 * time.Hour)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeQueue{}
			if _, ok := newTestScheduler(q).Schedule(tt.a, 15); ok {
				t.Fatal("expected no reminder")
			}
			if len(q.enqueued) != 0 {
				t.Fatalf("enqueued = %+v", q.enqueued)
			}
		})
	}
}

func TestScheduleSwallowsQueueErrors(t *testing.T) {
	q := &fakeQueue{err: errors.New("queue down")}
	a := store.Activity{ID: 1, HasReminder: true, DueAt: epoch.Add(time.Hour)}
	if _, ok := newTestScheduler(q).Schedule(a, 15); ok {
		t.Fatal("failed enqueue should report not scheduled")
	}
}

func TestCancel(t *testing.T) {
	q := &fakeQueue{}
	s := newTestScheduler(q)
	s.Cancel(9)
	s.CancelAll([]int64{1, 2})
	if len(q.cancelled) != 3 || q.cancelled[0] != "reminder_9" || q.cancelled[2] != "reminder_2" {
		t.Fatalf("cancelled = %v", q.cancelled)
	}
}

func TestFireTime(t *testing.T) {
	due := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	if got := FireTime(due, 30); !got.Equal(due.Add(-30 * time.Minute)) {
		t.Fatalf("FireTime = %v", got)
	}
}

func TestFireTimeClampsLead(t *testing.T) {
	due := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	got := FireTime(due, 200000000)
	if !got.Before(due) {
		t.Fatalf("a huge lead must not fire after due, got %v", got)
	}
	if want := due.Add(-store.MaxReminderLeadMinutes * time.Minute); !got.Equal(want) {
		t.Fatalf("FireTime = %v, want %v", got, want)
	}
	if got := FireTime(due, -10); !got.Equal(due) {
		t.Fatalf("negative lead should fire at due, got %v", got)
	}
}

// ============================================================
// TimerQueue
// ============================================================

func TestTimerQueueFires(t *testing.T) {
	fired := make(chan Payload, 1)
	q := NewTimerQueue(func(p Payload) { fired <- p })
	defer q.Close()

	if err := q.EnqueueUnique("reminder_1", 10*time.Millisecond, Payload{ActivityID: 1, Title: "Soon"}); err != nil {
		t.Fatal(err)
	}
	select {
	case p := <-fired:
		if p.Title != "Soon" {
			t.Fatalf("payload = %+v", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("task did not fire")
	}
	if len(q.Pending()) != 0 {
		t.Fatalf("fired task should be removed, pending = %v", q.Pending())
	}
}

func TestTimerQueueReplace(t *testing.T) {
	fired := make(chan Payload, 2)
	q := NewTimerQueue(func(p Payload) { fired <- p })
	defer q.Close()

	q.EnqueueUnique("reminder_1", 20*time.Millisecond, Payload{Title: "old"})
	q.EnqueueUnique("reminder_1", 40*time.Millisecond, Payload{Title: "new"})
	if got := q.Pending(); len(got) != 1 {
		t.Fatalf("pending = %v, want one task", got)
	}

	select {
	case p := <-fired:
		if p.Title != "new" {
			t.Fatalf("replaced task fired: %+v", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("task did not fire")
	}
	select {
	case p := <-fired:
		t.Fatalf("only one task should fire, got extra %+v", p)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTimerQueueCancel(t *testing.T) {
	fired := make(chan Payload, 1)
	q := NewTimerQueue(func(p Payload) { fired <- p })
	defer q.Close()

	q.EnqueueUnique("reminder_1", 30*time.Millisecond, Payload{})
	if got := q.Pending(); len(got) != 1 || got[0] != "reminder_1" {
		t.Fatalf("pending = %v", got)
	}
	q.Cancel("reminder_1")
	q.Cancel("reminder_404")

	select {
	case <-fired:
		t.Fatal("cancelled task fired")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTimerQueueClose(t *testing.T) {
	q := NewTimerQueue(nil)
	q.EnqueueUnique("a", time.Hour, Payload{})
	q.EnqueueUnique("b", time.Hour, Payload{})
	if got := q.Pending(); len(got) != 2 || got[0] != "a" {
		t.Fatalf("pending = %v", got)
	}
	q.Close()
	if len(q.Pending()) != 0 {
		t.Fatal("close should cancel everything")
	}
	if err := q.EnqueueUnique("c", time.Hour, Payload{}); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}

// ============================================================
// Alerts
// ============================================================

func TestAlertHandler(t *testing.T) {
	rec := &notifytest.Recorder{}
	h := AlertHandler(rec)
	h(Payload{ActivityID: 3, Title: "Pay rent", Description: "  "})
	h(Payload{ActivityID: 4, Title: "Call", Description: "Dentist"})

	posted, _ := rec.Snapshot()
	if len(posted) != 2 {
		t.Fatalf("posted = %+v", posted)
	}
	n := posted[0]
	if n.Title != "⏰ Reminder: Pay rent" || n.Body != DefaultBody {
		t.Fatalf("alert = %+v", n)
	}
	if n.Kind != notify.Alert || n.Priority != notify.PriorityHigh || !n.AutoCancel || n.ID != "reminder_3" {
		t.Fatalf("alert flags = %+v", n)
	}
	if posted[1].Body != "Dentist" {
		t.Fatalf("body = %q", posted[1].Body)
	}
}

func TestEndToEndThroughTimerQueue(t *testing.T) {
	rec := &notifytest.Recorder{}
	q := NewTimerQueue(AlertHandler(rec))
	defer q.Close()

	s := NewScheduler(q)
	a := store.Activity{ID: 5, Title: "Standup", HasReminder: true, DueAt: time.Now().Add(time.Minute + 20*time.Millisecond)}
	if _, ok := s.Schedule(a, 1); !ok {
		t.Fatal("expected reminder to be scheduled")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		posted, _ := rec.Snapshot()
		if len(posted) == 1 {
			if posted[0].Title != "⏰ Reminder: Standup" {
				t.Fatalf("alert = %+v", posted[0])
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("reminder never fired")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
