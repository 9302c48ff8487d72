// Package notify carries user-facing messages, optionally with an action such
// as "Retry", from background components to whatever surface displays them.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Notification is one message for the user. Action, when set, is invoked
// when the user picks ActionText.
type Notification struct {
	ID         string    `json:"id"`
	Message    string    `json:"message"`
	ActionText string    `json:"actionText,omitempty"`
	Target     string    `json:"target,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	Action     func()    `json:"-"`
}

// Notifier accepts notifications. Implementations must not block the caller.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Discard drops every notification.
var Discard Notifier = NotifierFunc(func(Notification) {})

// Stamp fills the id and creation time when missing.
func Stamp(n Notification) Notification {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	return n
}

// Queue is an in-process notification queue backed by a buffered channel.
// When the buffer is full the oldest notification is dropped.
type Queue struct {
	mu     sync.Mutex
	ch     chan Notification
	closed bool
}

func NewQueue(buffer int) *Queue {
	if buffer <= 0 {
		buffer = 16
	}
	return &Queue{ch: make(chan Notification, buffer)}
}

func (q *Queue) Notify(n Notification) {
	n = Stamp(n)
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	for {
		select {
		case q.ch <- n:
			return
		default:
		}
		select {
		case <-q.ch:
		default:
		}
	}
}

// C returns the delivery channel. It is closed by Close.
func (q *Queue) C() <-chan Notification {
	return q.ch
}

func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}
