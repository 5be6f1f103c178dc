// Package persist mirrors the durable part of the session and navigation
// state into a kv.Store and loads it back on start-up.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jask/skillmatch/internal/history"
	"github.com/jask/skillmatch/internal/kv"
	"github.com/jask/skillmatch/internal/model"
	"github.com/jask/skillmatch/internal/session"
)

const (
	ScopeApp      = "app"
	KeyUI         = "ui"
	KeySession    = "session"
	KeyNavigation = "navigation"

	writeTimeout = 5 * time.Second
)

// ModeScope is the scope holding one mode's records.
func ModeScope(mode model.Mode) string {
	return "mode:" + string(mode)
}

type entryKey struct {
	scope, key string
}

// Adapter writes changes in the background. Writes never block or fail the
// operation that caused them; errors are logged and dropped. Only the latest
// value per key is kept while a write is pending.
type Adapter struct {
	store    kv.Store
	sessions *session.Store
	nav      *history.Navigator
	log      *zap.Logger

	mu      sync.Mutex
	pending map[entryKey][]byte
	order   []entryKey
	started bool
	closed  bool

	signal  chan struct{}
	flushes chan chan struct{}
	stop    chan struct{}
	done    chan struct{}
}

func New(store kv.Store, sessions *session.Store, nav *history.Navigator, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		store:    store,
		sessions: sessions,
		nav:      nav,
		log:      logger.With(zap.String("component", "persist")),
		pending:  map[entryKey][]byte{},
		signal:   make(chan struct{}, 1),
		flushes:  make(chan chan struct{}),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Load restores everything found in the store. Missing or unreadable records
// leave the corresponding state at its defaults; the returned error lists
// what could not be read.
func (a *Adapter) Load(ctx context.Context) error {
	var errs []error
	var shared session.SharedDurable
	if ok, err := a.read(ctx, ScopeApp, KeyUI, &shared); err != nil {
		errs = append(errs, err)
	} else if ok {
		a.sessions.RestoreShared(shared)
	}
	for _, m := range model.Modes {
		var d session.Durable
		if ok, err := a.read(ctx, ModeScope(m), KeySession, &d); err != nil {
			errs = append(errs, err)
		} else if ok {
			a.sessions.Restore(m, d)
		}
		var st history.Stack
		if ok, err := a.read(ctx, ModeScope(m), KeyNavigation, &st); err != nil {
			errs = append(errs, err)
		} else if ok {
			a.nav.Restore(m, st)
		}
	}
	return errors.Join(errs...)
}

func (a *Adapter) read(ctx context.Context, scope, key string, v any) (bool, error) {
	raw, ok, err := a.store.Get(ctx, scope, key)
	if err != nil {
		return false, fmt.Errorf("read %s/%s: %w", scope, key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s/%s: %w", scope, key, err)
	}
	return true, nil
}

// Start subscribes to state changes and runs the writer until Close.
func (a *Adapter) Start() {
	a.sessions.Observe(func(ev session.Event) {
		if ev.Shared {
			a.enqueue(ScopeApp, KeyUI, a.sessions.SharedDurable())
		}
		if ev.Mode != "" {
			a.enqueue(ModeScope(ev.Mode), KeySession, a.sessions.Durable(ev.Mode))
		}
	})
	a.nav.Observe(func(m model.Mode) {
		a.enqueue(ModeScope(m), KeyNavigation, a.nav.Snapshot(m))
	})
	a.mu.Lock()
	a.started = true
	a.mu.Unlock()
	go a.run()
}

// SaveAll queues every durable record, regardless of whether it changed.
func (a *Adapter) SaveAll() {
	a.enqueue(ScopeApp, KeyUI, a.sessions.SharedDurable())
	for _, m := range model.Modes {
		a.enqueue(ModeScope(m), KeySession, a.sessions.Durable(m))
		a.enqueue(ModeScope(m), KeyNavigation, a.nav.Snapshot(m))
	}
}

func (a *Adapter) enqueue(scope, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		a.log.Warn("encode state", zap.String("scope", scope), zap.String("key", key), zap.Error(err))
		return
	}
	k := entryKey{scope: scope, key: key}
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	if _, queued := a.pending[k]; !queued {
		a.order = append(a.order, k)
	}
	a.pending[k] = raw
	a.mu.Unlock()
	select {
	case a.signal <- struct{}{}:
	default:
	}
}

func (a *Adapter) run() {
	defer close(a.done)
	for {
		select {
		case <-a.signal:
			a.drain()
		case ack := <-a.flushes:
			a.drain()
			close(ack)
		case <-a.stop:
			a.drain()
			return
		}
	}
}

// drain writes everything pending as one batch, so a store that supports
// it never holds half of a SaveAll.
func (a *Adapter) drain() {
	a.mu.Lock()
	if len(a.order) == 0 {
		a.mu.Unlock()
		return
	}
	batch := make([]kv.Entry, 0, len(a.order))
	for _, k := range a.order {
		batch = append(batch, kv.Entry{Scope: k.scope, Key: k.key, Value: a.pending[k]})
		delete(a.pending, k)
	}
	a.order = a.order[:0]
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := kv.SetAll(ctx, a.store, batch); err != nil {
		a.log.Warn("persist state", zap.Int("entries", len(batch)), zap.Error(err))
	}
}

// Flush blocks until every write queued before the call has been attempted.
func (a *Adapter) Flush(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case a.flushes <- ack:
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close writes what is still pending and stops the writer. It does not close
// the underlying store.
func (a *Adapter) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	started := a.started
	a.mu.Unlock()
	if !started {
		return
	}
	close(a.stop)
	<-a.done
}
