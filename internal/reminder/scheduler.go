// Package reminder schedules one-shot notifications ahead of an activity's
// due time.
package reminder

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sadopc/cumpli/internal/logging"
	"github.com/sadopc/cumpli/internal/notify"
	"github.com/sadopc/cumpli/internal/store"
)

var ErrQueueClosed = errors.New("reminder queue closed")

// DefaultBody is shown when the activity has no description.
const DefaultBody = "Your task is due soon"

// Key is the unique task name for an activity's reminder.
func Key(activityID int64) string {
	return fmt.Sprintf("reminder_%d", activityID)
}

// FireTime is lead minutes before due. The lead is clamped to
// [0, store.MaxReminderLeadMinutes] so the result is never after due.
func FireTime(due time.Time, leadMinutes int) time.Time {
	leadMinutes = min(max(leadMinutes, 0), store.MaxReminderLeadMinutes)
	return due.Add(-time.Duration(leadMinutes) * time.Minute)
}

// Scheduler decides whether an activity gets a reminder and hands it to a
// Queue. Scheduling is best effort: queue failures are logged, not returned.
type Scheduler struct {
	queue Queue

	// now is replaced in tests.
	now func() time.Time
}

func NewScheduler(q Queue) *Scheduler {
	return &Scheduler{queue: q, now: time.Now}
}

// Schedule enqueues a reminder for a at FireTime(a.DueAt, leadMinutes). It
// does nothing for activities without a reminder, completed ones, or when
// the fire time is not in the future. The result reports the fire time and
// whether a task was enqueued.
func (s *Scheduler) Schedule(a store.Activity, leadMinutes int) (time.Time, bool) {
	if !a.HasReminder || a.Completed {
		return time.Time{}, false
	}
	at := FireTime(a.DueAt, leadMinutes)
	delay := at.Sub(s.now())
	if delay <= 0 {
		logging.Debug("reminder", "activity %d: fire time %s already passed", a.ID, at.Format(time.RFC3339))
		return at, false
	}

	err := s.queue.EnqueueUnique(Key(a.ID), delay, Payload{
		ActivityID:  a.ID,
		Title:       a.Title,
		Description: a.Description,
	})
	if err != nil {
		logging.Warn("reminder", "schedule activity %d: %v", a.ID, err)
		return at, false
	}
	return at, true
}

// Cancel drops the pending reminder for activityID, if any.
func (s *Scheduler) Cancel(activityID int64) {
	if err := s.queue.Cancel(Key(activityID)); err != nil {
		logging.Warn("reminder", "cancel activity %d: %v", activityID, err)
	}
}

// CancelAll drops the reminders of every listed activity.
func (s *Scheduler) CancelAll(ids []int64) {
	for _, id := range ids {
		s.Cancel(id)
	}
}

// AlertHandler turns a fired payload into a high-priority alert on sink.
func AlertHandler(sink notify.Sink) Handler {
	return func(p Payload) {
		sink.Post(Alert(p, time.Now()))
	}
}

// Alert builds the notification for a fired reminder.
func Alert(p Payload, at time.Time) notify.Notification {
	body := strings.TrimSpace(p.Description)
	if body == "" {
		body = DefaultBody
	}
	return notify.Notification{
		ID:         Key(p.ActivityID),
		Kind:       notify.Alert,
		Title:      "⏰ Reminder: " + p.Title,
		Body:       body,
		Priority:   notify.PriorityHigh,
		AutoCancel: true,
		At:         at,
	}
}
