// Package app holds the use cases shared by the terminal UI and the CLI:
// validation, the activity lifecycle, focus sessions and reminders.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sadopc/cumpli/internal/focus"
	"github.com/sadopc/cumpli/internal/logging"
	"github.com/sadopc/cumpli/internal/notify"
	"github.com/sadopc/cumpli/internal/reminder"
	"github.com/sadopc/cumpli/internal/store"
)

type Options struct {
	// TickInterval is how often the focus notification refreshes.
	TickInterval time.Duration
	// Queue overrides the in-process reminder queue.
	Queue reminder.Queue
}

type Service struct {
	store *store.Store
	timer *focus.Timer
	sched *reminder.Scheduler
	gate  *notify.Gate

	// owned is set when the service created the queue and must close it.
	owned *reminder.TimerQueue

	// mu guards lead, the lead the armed reminders were computed with.
	mu   sync.Mutex
	lead int
}

// New wires the timer and reminders to sink. Alerts are gated by the
// notifications preference.
func New(ctx context.Context, st *store.Store, sink notify.Sink, opts Options) (*Service, error) {
	prefs, err := st.GetPreferences(ctx)
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	gate := notify.NewGate(sink, prefs.NotificationsEnabled)

	s := &Service{
		store: st,
		timer: focus.NewTimer(st, gate, opts.TickInterval),
		gate:  gate,
		lead:  prefs.ReminderLeadMinutes,
	}
	q := opts.Queue
	if q == nil {
		s.owned = reminder.NewTimerQueue(reminder.AlertHandler(gate))
		q = s.owned
	}
	s.sched = reminder.NewScheduler(q)
	return s, nil
}

func (s *Service) Store() *store.Store { return s.store }

// ============================================================
// Activities
// ============================================================

func (s *Service) Create(ctx context.Context, d Draft) (*store.Activity, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	var a store.Activity
	d.apply(&a)

	created, err := s.store.CreateActivity(ctx, a)
	if err != nil {
		return nil, err
	}
	s.schedule(ctx, *created)
	logging.Info("app", "created activity %d %q", created.ID, logging.Truncate(created.Title, 40))
	return created, nil
}

// Load returns store.ErrNotFound (wrapped) for unknown ids.
func (s *Service) Load(ctx context.Context, id int64) (*store.Activity, error) {
	return s.store.GetActivity(ctx, id)
}

// Update replaces the editable fields of activity id and re-arms its
// reminder. Completion and focus bookkeeping are left alone.
func (s *Service) Update(ctx context.Context, id int64, d Draft) (*store.Activity, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	a, err := s.store.GetActivity(ctx, id)
	if err != nil {
		return nil, err
	}
	d.apply(a)
	if err := s.store.UpdateActivity(ctx, *a); err != nil {
		return nil, err
	}

	s.sched.Cancel(id)
	s.schedule(ctx, *a)
	return a, nil
}

// ToggleCompleted flips the completed flag of activity id.
func (s *Service) ToggleCompleted(ctx context.Context, id int64) (*store.Activity, error) {
	a, err := s.store.GetActivity(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.SetCompleted(ctx, id, !a.Completed)
}

// SetCompleted completes or reopens activity id. Completing stops a focus
// session running on it and drops its reminder; reopening re-arms it.
func (s *Service) SetCompleted(ctx context.Context, id int64, completed bool) (*store.Activity, error) {
	if completed {
		if err := s.stopIfRunning(ctx, id); err != nil {
			return nil, err
		}
	}
	if err := s.store.SetCompleted(ctx, id, completed); err != nil {
		return nil, err
	}
	a, err := s.store.GetActivity(ctx, id)
	if err != nil {
		return nil, err
	}

	if completed {
		s.sched.Cancel(id)
	} else {
		s.schedule(ctx, *a)
	}
	return a, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.stopIfRunning(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteActivity(ctx, id); err != nil {
		return err
	}
	s.sched.Cancel(id)
	return nil
}

// DeleteCompleted removes every completed activity and reports how many.
func (s *Service) DeleteCompleted(ctx context.Context) (int, error) {
	ids, err := s.store.DeleteCompleted(ctx)
	if err != nil {
		return 0, err
	}
	s.sched.CancelAll(ids)
	logging.Info("app", "deleted %d completed activities", len(ids))
	return len(ids), nil
}

// Activities lists every activity, pending and completed.
func (s *Service) Activities(ctx context.Context) ([]store.Activity, error) {
	return s.store.ListActivities(ctx)
}

// DailyFocus returns focus totals for the last days days, today included.
func (s *Service) DailyFocus(ctx context.Context, days int) ([]store.DailyFocus, error) {
	now := time.Now().UTC()
	end := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	return s.store.GetDailyFocus(ctx, end.AddDate(0, 0, -days), end)
}

// ============================================================
// Focus
// ============================================================

// ToggleFocus pauses activity id if it is the running session, otherwise
// starts it. It reports whether a session is running afterwards.
func (s *Service) ToggleFocus(ctx context.Context, id int64) (bool, error) {
	if s.timer.Running(id) {
		_, err := s.timer.Pause(ctx)
		return false, err
	}
	a, err := s.store.GetActivity(ctx, id)
	if err != nil {
		return false, err
	}
	if a.Completed {
		return false, fmt.Errorf("start focus on %d: %w", id, ErrActivityCompleted)
	}
	if err := s.timer.Start(ctx, a.ID, a.Title, a.Accumulated); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) PauseFocus(ctx context.Context) (focus.Summary, error) {
	return s.timer.Pause(ctx)
}

func (s *Service) StopFocus(ctx context.Context) (focus.Summary, error) {
	return s.timer.Stop(ctx)
}

func (s *Service) CurrentFocus() (focus.Snapshot, bool) {
	return s.timer.Current()
}

// ResetFocusTime discards the accumulated time of activity id. It is
// refused while the activity is being timed.
func (s *Service) ResetFocusTime(ctx context.Context, id int64) error {
	if s.timer.Running(id) {
		return fmt.Errorf("reset focus time on %d: %w", id, focus.ErrSessionActive)
	}
	return s.store.ResetAccumulated(ctx, id)
}

func (s *Service) stopIfRunning(ctx context.Context, id int64) error {
	if !s.timer.Running(id) {
		return nil
	}
	_, err := s.timer.Stop(ctx)
	if errors.Is(err, focus.ErrNoSession) {
		return nil
	}
	return err
}

// ============================================================
// Preferences
// ============================================================

func (s *Service) Preferences(ctx context.Context) (store.Preferences, error) {
	return s.store.GetPreferences(ctx)
}

func (s *Service) SetTheme(t store.Theme) error {
	if _, ok := store.ParseTheme(string(t)); !ok {
		return &ValidationError{Field: "theme", Msg: string(t)}
	}
	return s.store.SetTheme(t)
}

// SetNotifications toggles reminders. Turning them off drops every pending
// reminder; turning them on re-arms the future ones.
func (s *Service) SetNotifications(ctx context.Context, enabled bool) error {
	if err := s.store.SetNotificationsEnabled(enabled); err != nil {
		return err
	}
	s.gate.SetEnabled(enabled)
	return s.armPending(ctx, enabled)
}

func (s *Service) armPending(ctx context.Context, enabled bool) error {
	pending, err := s.store.ListPending(ctx, store.PendingQuery{})
	if err != nil {
		return err
	}
	for _, a := range pending {
		if enabled {
			s.schedule(ctx, a)
		} else {
			s.sched.Cancel(a.ID)
		}
	}
	return nil
}

// SetReminderLead changes the lead time and re-arms pending reminders.
func (s *Service) SetReminderLead(ctx context.Context, minutes int) error {
	if minutes <= 0 || minutes > store.MaxReminderLeadMinutes {
		return &ValidationError{Field: "reminder lead", Msg: fmt.Sprintf("must be between 1 and %d minutes", store.MaxReminderLeadMinutes)}
	}
	if err := s.store.SetReminderLead(minutes); err != nil {
		return err
	}
	s.mu.Lock()
	s.lead = minutes
	s.mu.Unlock()
	_, err := s.rearm(ctx)
	return err
}

// ApplyPreferences brings the alert gate and the armed reminders in line
// with p. Preferences written by another process reach a running UI this
// way; changes this service made itself are no-ops.
func (s *Service) ApplyPreferences(ctx context.Context, p store.Preferences) error {
	s.mu.Lock()
	leadChanged := p.ReminderLeadMinutes != s.lead
	s.lead = p.ReminderLeadMinutes
	s.mu.Unlock()

	if p.NotificationsEnabled != s.gate.Enabled() {
		logging.Info("app", "notifications turned %s elsewhere", onOff(p.NotificationsEnabled))
		s.gate.SetEnabled(p.NotificationsEnabled)
		return s.armPending(ctx, p.NotificationsEnabled)
	}
	if leadChanged && p.NotificationsEnabled {
		_, err := s.rearm(ctx)
		return err
	}
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// ============================================================
// Lifecycle
// ============================================================

type RecoverReport struct {
	ClearedInProgress int64
	Rearmed           int
	// Interrupted is the title of an activity left in progress, if any.
	Interrupted string
}

// Recover runs at startup. No session survives a restart, so stale
// in-progress flags are cleared, and reminders are re-armed because the
// in-process queue starts empty.
func (s *Service) Recover(ctx context.Context) (RecoverReport, error) {
	var r RecoverReport
	stale, err := s.store.GetInProgress(ctx)
	if err != nil {
		return r, err
	}
	if stale != nil {
		r.Interrupted = stale.Title
		logging.Info("app", "focus on %d %q was interrupted by a restart", stale.ID, logging.Truncate(stale.Title, 40))
	}
	n, err := s.store.ClearInProgress(ctx)
	if err != nil {
		return r, err
	}
	r.ClearedInProgress = n

	r.Rearmed, err = s.rearm(ctx)
	if err != nil {
		return r, err
	}
	if r.ClearedInProgress > 0 || r.Rearmed > 0 {
		logging.Info("app", "recovered: cleared %d in-progress, re-armed %d reminders", r.ClearedInProgress, r.Rearmed)
	}
	return r, nil
}

// Close checkpoints a running focus session and stops pending reminders.
func (s *Service) Close(ctx context.Context) error {
	err := s.timer.Shutdown(ctx)
	if s.owned != nil {
		if keys := s.owned.Pending(); len(keys) > 0 {
			logging.Info("app", "dropping %d pending reminders: %v", len(keys), keys)
		}
		s.owned.Close()
	}
	return err
}

func (s *Service) rearm(ctx context.Context) (int, error) {
	prefs, err := s.store.GetPreferences(ctx)
	if err != nil {
		return 0, err
	}
	if !prefs.NotificationsEnabled {
		return 0, nil
	}
	pending, err := s.store.ListPending(ctx, store.PendingQuery{RemindersOnly: true, Sort: store.SortByDate})
	if err != nil {
		return 0, err
	}
	n := 0
	for _, a := range pending {
		if _, ok := s.sched.Schedule(a, prefs.ReminderLeadMinutes); ok {
			n++
		}
	}
	return n, nil
}

// schedule arms a's reminder when notifications are enabled.
func (s *Service) schedule(ctx context.Context, a store.Activity) {
	prefs, err := s.store.GetPreferences(ctx)
	if err != nil {
		logging.Warn("app", "schedule reminder %d: %v", a.ID, err)
		return
	}
	if !prefs.NotificationsEnabled {
		return
	}
	if at, ok := s.sched.Schedule(a, prefs.ReminderLeadMinutes); ok {
		logging.Debug("app", "reminder for %d at %s", a.ID, at.Format(time.RFC3339))
	}
}
