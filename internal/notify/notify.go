// Package notify is the typed side channel through which controllers report
// user-facing outcomes.
package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/jask/skillmatch/internal/model"
	"github.com/jask/skillmatch/internal/query"
)

type Level string

const (
	LevelError Level = "error"
	LevelInfo  Level = "info"
)

// Notification is one user-visible message.
type Notification struct {
	Level   Level
	Mode    model.Mode
	Op      query.Op
	Message string
	Err     error
	At      time.Time
}

// Notifier receives notifications.
type Notifier interface {
	Notify(Notification)
}

// Func adapts a plain function to Notifier.
type Func func(Notification)

func (f Func) Notify(n Notification) { f(n) }

// Discard drops everything.
var Discard Notifier = Func(func(Notification) {})

// Bus fans notifications out to subscribers, synchronously and in
// registration order.
type Bus struct {
	mu   sync.RWMutex
	next int
	subs map[int]func(Notification)
	ids  []int
}

func NewBus() *Bus {
	return &Bus{subs: map[int]func(Notification){}}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn func(Notification)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.ids = append(b.ids, id)
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
		for i, v := range b.ids {
			if v == id {
				b.ids = append(b.ids[:i], b.ids[i+1:]...)
				break
			}
		}
	}
}

// Channel subscribes a buffered channel. When the buffer is full new
// notifications are dropped rather than blocking the publisher.
func (b *Bus) Channel(size int) (<-chan Notification, func()) {
	ch := make(chan Notification, size)
	var once sync.Once
	var closed bool
	var mu sync.Mutex
	cancel := b.Subscribe(func(n Notification) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- n:
		default:
		}
	})
	return ch, func() {
		once.Do(func() {
			cancel()
			mu.Lock()
			closed = true
			close(ch)
			mu.Unlock()
		})
	}
}

func (b *Bus) Notify(n Notification) {
	if n.At.IsZero() {
		n.At = time.Now()
	}
	b.mu.RLock()
	fns := make([]func(Notification), 0, len(b.ids))
	for _, id := range b.ids {
		fns = append(fns, b.subs[id])
	}
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(n)
	}
}

// FailureMessage renders the user-facing text for a failure. Timeouts get a
// fixed message naming the limit.
func FailureMessage(f *query.Failure, timeout time.Duration) string {
	if f.Kind == query.KindTimeout {
		return fmt.Sprintf("Request timed out after %s. Please try again.", timeoutText(timeout))
	}
	switch f.Op {
	case query.OpSearch:
		return "Search failed. Check the selected skills and experience and try again."
	case query.OpLoadMore:
		return "Could not load more results. Scroll again to retry."
	case query.OpDetail:
		if f.Mode == model.Recruiter {
			return "Could not load the candidate details."
		}
		return "Could not load the job posting details."
	case query.OpDashboard:
		return "Could not load the dashboard."
	case query.OpStatistics:
		return "Could not load the search statistics."
	case query.OpCatalog:
		return "Could not load the skill list."
	case query.OpCategories:
		return "Could not load the category distribution."
	case query.OpCompetency:
		return "Could not compare your skills with this match."
	}
	if f.Kind == query.KindServer {
		return "Server is not responding. Please try again later."
	}
	return "Server connection failed. Please check your network."
}

func timeoutText(d time.Duration) string {
	if d%time.Second != 0 {
		return d.Round(time.Millisecond).String()
	}
	if n := int(d / time.Second); n != 1 {
		return fmt.Sprintf("%d seconds", n)
	}
	return "1 second"
}
