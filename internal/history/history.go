// Package history keeps a browser-style view history per mode.
package history

import (
	"slices"
	"sync"

	"github.com/jask/skillmatch/internal/model"
)

// Stack is one mode's history: entries plus a cursor into them. An empty
// stack stands for the implicit dashboard root.
type Stack struct {
	Entries []model.NavigationEntry `json:"entries"`
	Cursor  int                     `json:"cursor"`
}

func newStack() *Stack {
	return &Stack{}
}

func (s *Stack) current() model.NavigationEntry {
	if len(s.Entries) == 0 {
		return model.DashboardRoot()
	}
	return s.Entries[s.Cursor]
}

func (s *Stack) valid() bool {
	if len(s.Entries) == 0 {
		return s.Cursor == 0
	}
	return s.Cursor >= 0 && s.Cursor < len(s.Entries)
}

// Navigator holds an independent Stack for every mode. Switching modes never
// touches either stack.
type Navigator struct {
	mu        sync.Mutex
	stacks    map[model.Mode]*Stack
	observers []func(model.Mode)
}

func NewNavigator() *Navigator {
	n := &Navigator{stacks: make(map[model.Mode]*Stack, len(model.Modes))}
	for _, m := range model.Modes {
		n.stacks[m] = newStack()
	}
	return n
}

// Observe registers fn to run after the mode's stack changes.
func (n *Navigator) Observe(fn func(model.Mode)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.observers = append(n.observers, fn)
}

func (n *Navigator) change(mode model.Mode, fn func(s *Stack) bool) {
	n.mu.Lock()
	s, ok := n.stacks[mode]
	if !ok {
		n.mu.Unlock()
		return
	}
	changed := fn(s)
	obs := slices.Clone(n.observers)
	n.mu.Unlock()
	if !changed {
		return
	}
	for _, o := range obs {
		o(mode)
	}
}

// Push drops everything after the cursor, appends entry and moves onto it.
func (n *Navigator) Push(mode model.Mode, entry model.NavigationEntry) {
	n.change(mode, func(s *Stack) bool {
		keep := min(s.Cursor+1, len(s.Entries))
		s.Entries = append(s.Entries[:keep:keep], entry)
		s.Cursor = len(s.Entries) - 1
		return true
	})
}

// Back moves the cursor one step towards the root. At the root it does nothing.
func (n *Navigator) Back(mode model.Mode) {
	n.change(mode, func(s *Stack) bool {
		if s.Cursor == 0 {
			return false
		}
		s.Cursor--
		return true
	})
}

// Forward re-enters an entry left behind by Back, if any.
func (n *Navigator) Forward(mode model.Mode) {
	n.change(mode, func(s *Stack) bool {
		if s.Cursor >= len(s.Entries)-1 {
			return false
		}
		s.Cursor++
		return true
	})
}

// Reset collapses the mode's history to the implicit dashboard root.
func (n *Navigator) Reset(mode model.Mode) {
	n.change(mode, func(s *Stack) bool {
		*s = *newStack()
		return true
	})
}

func (n *Navigator) Current(mode model.Mode) model.NavigationEntry {
	n.mu.Lock()
	defer n.mu.Unlock()
	s, ok := n.stacks[mode]
	if !ok {
		return model.DashboardRoot()
	}
	return s.current()
}

func (n *Navigator) CanBack(mode model.Mode) bool {
	return n.Snapshot(mode).Cursor > 0
}

// Empty reports whether the mode has never navigated away from the root.
func (n *Navigator) Empty(mode model.Mode) bool {
	return len(n.Snapshot(mode).Entries) == 0
}

// Snapshot returns a copy of the mode's stack.
func (n *Navigator) Snapshot(mode model.Mode) Stack {
	n.mu.Lock()
	defer n.mu.Unlock()
	s, ok := n.stacks[mode]
	if !ok {
		return *newStack()
	}
	return Stack{Entries: slices.Clone(s.Entries), Cursor: s.Cursor}
}

// Restore replaces the mode's stack with a persisted one. Malformed input
// falls back to the empty root stack.
func (n *Navigator) Restore(mode model.Mode, st Stack) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.stacks[mode]; !ok {
		return
	}
	restored := &Stack{Entries: slices.Clone(st.Entries), Cursor: st.Cursor}
	if !restored.valid() {
		restored = newStack()
	}
	n.stacks[mode] = restored
}
