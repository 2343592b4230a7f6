// Package notifytest provides a notify.Sink that records what it receives.
package notifytest

import (
	"sync"

	"github.com/sadopc/cumpli/internal/notify"
)

// Recorder keeps every notification.
type Recorder struct {
	mu        sync.Mutex
	Posted    []notify.Notification
	Dismissed []string
}

func (r *Recorder) Post(n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Posted = append(r.Posted, n)
}

func (r *Recorder) Dismiss(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Dismissed = append(r.Dismissed, id)
}

// Snapshot returns copies of what has been recorded so far.
func (r *Recorder) Snapshot() ([]notify.Notification, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Notification(nil), r.Posted...), append([]string(nil), r.Dismissed...)
}
