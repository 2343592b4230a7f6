package reminder

import (
	"sort"
	"sync"
	"time"

	"github.com/sadopc/cumpli/internal/logging"
)

// Payload is what a fired reminder needs to build its notification.
type Payload struct {
	ActivityID  int64
	Title       string
	Description string
}

// Queue runs one delayed task per unique key.
type Queue interface {
	// EnqueueUnique schedules p to fire after delay, replacing any task
	// already pending under key.
	EnqueueUnique(key string, delay time.Duration, p Payload) error
	// Cancel removes the pending task under key. Unknown keys are ignored.
	Cancel(key string) error
}

// Handler runs when a task fires.
type Handler func(p Payload)

// TimerQueue is an in-process Queue. Tasks do not survive a restart.
type TimerQueue struct {
	handler Handler

	mu     sync.Mutex
	tasks  map[string]*task
	closed bool
}

type task struct {
	timer *time.Timer
}

func NewTimerQueue(h Handler) *TimerQueue {
	return &TimerQueue{handler: h, tasks: make(map[string]*task)}
}

func (q *TimerQueue) EnqueueUnique(key string, delay time.Duration, p Payload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	if old, ok := q.tasks[key]; ok {
		old.timer.Stop()
	}

	t := &task{}
	t.timer = time.AfterFunc(delay, func() { q.fire(key, t, p) })
	q.tasks[key] = t
	logging.Debug("reminder", "enqueued %s in %s", key, delay.Round(time.Second))
	return nil
}

func (q *TimerQueue) fire(key string, t *task, p Payload) {
	q.mu.Lock()
	// A replaced or cancelled task may still fire if Stop lost the race.
	if cur, ok := q.tasks[key]; !ok || cur != t || q.closed {
		q.mu.Unlock()
		return
	}
	delete(q.tasks, key)
	q.mu.Unlock()

	logging.Debug("reminder", "fired %s", key)
	if q.handler != nil {
		q.handler(p)
	}
}

func (q *TimerQueue) Cancel(key string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if t, ok := q.tasks[key]; ok {
		t.timer.Stop()
		delete(q.tasks, key)
		logging.Debug("reminder", "cancelled %s", key)
	}
	return nil
}

// CancelAll removes every pending task.
func (q *TimerQueue) CancelAll() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for key, t := range q.tasks {
		t.timer.Stop()
		delete(q.tasks, key)
	}
}

// Pending returns the keys still waiting to fire, sorted.
func (q *TimerQueue) Pending() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	keys := make([]string, 0, len(q.tasks))
	for k := range q.tasks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Close cancels everything and rejects further tasks.
func (q *TimerQueue) Close() {
	q.CancelAll()
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}
