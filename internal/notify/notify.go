// Package notify is the boundary between background work (focus ticks,
// fired reminders) and whatever shows notifications to the user.
package notify

import (
	"sync/atomic"
	"time"

	"github.com/sadopc/cumpli/internal/logging"
)

type Kind int

const (
	// Ongoing notifications are replaced in place and dismissed explicitly.
	Ongoing Kind = iota
	// Alert notifications are shown once and go away on their own.
	Alert
)

func (k Kind) String() string {
	if k == Alert {
		return "alert"
	}
	return "ongoing"
}

type Priority int

const (
	PriorityLow Priority = iota
	PriorityDefault
	PriorityHigh
)

type Notification struct {
	ID         string
	Kind       Kind
	Title      string
	Body       string
	Priority   Priority
	Silent     bool
	AutoCancel bool
	At         time.Time
}

// Sink receives notifications. Implementations must not block.
type Sink interface {
	Post(n Notification)
	Dismiss(id string)
}

// Event is what Chan delivers: a notification, or a dismissal when
// Dismissed is set.
type Event struct {
	Notification
	Dismissed bool
}

// Chan is a Sink backed by a buffered channel. When the buffer is full the
// event is dropped.
type Chan struct {
	ch      chan Event
	dropped atomic.Int64
}

func NewChan(size int) *Chan {
	return &Chan{ch: make(chan Event, size)}
}

func (c *Chan) Events() <-chan Event { return c.ch }

// Dropped counts events lost to a full buffer.
func (c *Chan) Dropped() int64 { return c.dropped.Load() }

func (c *Chan) Post(n Notification) {
	c.send(Event{Notification: n})
}

func (c *Chan) Dismiss(id string) {
	c.send(Event{Notification: Notification{ID: id}, Dismissed: true})
}

func (c *Chan) send(e Event) {
	select {
	case c.ch <- e:
	default:
		c.dropped.Add(1)
	}
}

// Log records alerts at info and ongoing updates at debug.
type Log struct{}

func (Log) Post(n Notification) {
	if n.Kind == Alert {
		logging.Info("notify", "%s: %s", n.Title, logging.Truncate(n.Body, 80))
		return
	}
	logging.Debug("notify", "%s %s", n.ID, n.Title)
}

func (Log) Dismiss(id string) {
	logging.Debug("notify", "dismiss %s", id)
}

// Multi fans out to every sink in order.
type Multi []Sink

func (m Multi) Post(n Notification) {
	for _, s := range m {
		s.Post(n)
	}
}

func (m Multi) Dismiss(id string) {
	for _, s := range m {
		s.Dismiss(id)
	}
}

// Gate forwards alerts only while enabled. Ongoing notifications and
// dismissals always pass.
type Gate struct {
	next    Sink
	enabled atomic.Bool
}

func NewGate(next Sink, enabled bool) *Gate {
	g := &Gate{next: next}
	g.enabled.Store(enabled)
	return g
}

func (g *Gate) SetEnabled(on bool) { g.enabled.Store(on) }

func (g *Gate) Enabled() bool { return g.enabled.Load() }

func (g *Gate) Post(n Notification) {
	if n.Kind == Alert && !g.enabled.Load() {
		logging.Debug("notify", "suppressed %s (notifications disabled)", n.ID)
		return
	}
	g.next.Post(n)
}

func (g *Gate) Dismiss(id string) { g.next.Dismiss(id) }
