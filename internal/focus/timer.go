// Package focus tracks working time on one activity at a time.
package focus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/cumpli/internal/logging"
	"github.com/sadopc/cumpli/internal/notify"
	"github.com/sadopc/cumpli/internal/store"
)

var (
	ErrSessionActive = errors.New("a focus session is already running")
	ErrNoSession     = errors.New("no focus session is running")
)

// NotificationID identifies the ongoing focus notification.
const NotificationID = "focus_timer"

const DefaultTick = time.Second

// Store is the persistence the timer writes to.
type Store interface {
	SetInProgress(ctx context.Context, id int64, inProgress bool) error
	SetAccumulated(ctx context.Context, id int64, total time.Duration) error
	RecordFocusSession(ctx context.Context, fs store.FocusSession) error
}

// Snapshot describes the running session.
type Snapshot struct {
	ActivityID int64
	Title      string
	StartedAt  time.Time
	Base       time.Duration
	Elapsed    time.Duration
}

// Summary is returned when a session ends.
type Summary struct {
	SessionID  string
	ActivityID int64
	Title      string
	StartedAt  time.Time
	EndedAt    time.Time
	Session    time.Duration
	Total      time.Duration
}

type session struct {
	activityID int64
	title      string
	base       time.Duration
	started    time.Time
	cancel     context.CancelFunc
	done       chan struct{}
}

// Timer is Idle or Running. At most one session runs at a time: the slot is
// claimed with a compare-and-swap, so concurrent starts cannot both win.
type Timer struct {
	store Store
	sink  notify.Sink
	tick  time.Duration

	// now is replaced in tests.
	now func() time.Time

	busy atomic.Bool
	mu   sync.Mutex
	cur  *session
}

func NewTimer(st Store, sink notify.Sink, tick time.Duration) *Timer {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Timer{store: st, sink: sink, tick: tick, now: time.Now}
}

// Start begins timing activityID from base, the time already accumulated.
// It fails with ErrSessionActive while any session runs.
func (t *Timer) Start(ctx context.Context, activityID int64, title string, base time.Duration) error {
	if !t.busy.CompareAndSwap(false, true) {
		return ErrSessionActive
	}
	if err := t.store.SetInProgress(ctx, activityID, true); err != nil {
		t.busy.Store(false)
		return fmt.Errorf("start focus on %d: %w", activityID, err)
	}

	tickCtx, cancel := context.WithCancel(context.Background())
	s := &session{
		activityID: activityID,
		title:      title,
		base:       base,
		started:    t.now(),
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	t.mu.Lock()
	t.cur = s
	t.mu.Unlock()

	t.publish(s)
	go t.run(tickCtx, s)

	logging.Info("focus", "started activity %d (base %s)", activityID, FormatClock(base))
	return nil
}

func (t *Timer) run(ctx context.Context, s *session) {
	defer close(s.done)
	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.publish(s)
		}
	}
}

// publish shows the running total. Ticks are display only and never persist.
func (t *Timer) publish(s *session) {
	elapsed := s.base + t.now().Sub(s.started)
	t.sink.Post(notify.Notification{
		ID:       NotificationID,
		Kind:     notify.Ongoing,
		Title:    fmt.Sprintf("%s • %s", s.title, FormatClock(elapsed)),
		Body:     "Focus session in progress",
		Priority: notify.PriorityLow,
		Silent:   true,
		At:       t.now(),
	})
}

// Pause ends the running session and persists its time. The total is
// recomputed from the wall clock, not taken from the last tick.
func (t *Timer) Pause(ctx context.Context) (Summary, error) {
	t.mu.Lock()
	s := t.cur
	t.cur = nil
	t.mu.Unlock()
	if s == nil {
		return Summary{}, ErrNoSession
	}
	defer t.busy.Store(false)

	s.cancel()
	<-s.done

	end := t.now()
	sessionTime := end.Sub(s.started)
	if sessionTime < 0 {
		sessionTime = 0
	}
	sum := Summary{
		SessionID:  uuid.NewString(),
		ActivityID: s.activityID,
		Title:      s.title,
		StartedAt:  s.started,
		EndedAt:    end,
		Session:    sessionTime,
		Total:      s.base + sessionTime,
	}

	var errs []error
	if err := t.store.SetAccumulated(ctx, s.activityID, sum.Total); err != nil {
		errs = append(errs, err)
	}
	if err := t.store.SetInProgress(ctx, s.activityID, false); err != nil {
		errs = append(errs, err)
	}
	if err := t.store.RecordFocusSession(ctx, store.FocusSession{
		ID:         sum.SessionID,
		ActivityID: s.activityID,
		StartedAt:  s.started,
		EndedAt:    end,
		Duration:   sessionTime,
	}); err != nil {
		errs = append(errs, err)
	}
	t.sink.Dismiss(NotificationID)

	logging.Info("focus", "paused activity %d at %s", s.activityID, FormatClock(sum.Total))
	if err := errors.Join(errs...); err != nil {
		return sum, fmt.Errorf("pause focus on %d: %w", s.activityID, err)
	}
	return sum, nil
}

// Stop is Pause: accumulated time is kept. Discarding time is a separate,
// explicit reset on the activity.
func (t *Timer) Stop(ctx context.Context) (Summary, error) {
	return t.Pause(ctx)
}

// Shutdown checkpoints a running session, if any.
func (t *Timer) Shutdown(ctx context.Context) error {
	_, err := t.Pause(ctx)
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	return err
}

// Current returns the running session, if any.
func (t *Timer) Current() (Snapshot, bool) {
	t.mu.Lock()
	s := t.cur
	t.mu.Unlock()
	if s == nil {
		return Snapshot{}, false
	}
	return Snapshot{
		ActivityID: s.activityID,
		Title:      s.title,
		StartedAt:  s.started,
		Base:       s.base,
		Elapsed:    s.base + t.now().Sub(s.started),
	}, true
}

// Running reports whether activityID is the running session.
func (t *Timer) Running(activityID int64) bool {
	snap, ok := t.Current()
	return ok && snap.ActivityID == activityID
}
