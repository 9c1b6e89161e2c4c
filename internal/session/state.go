// Package session holds the mutable state of one launcher invocation. A
// State is owned by the event loop goroutine; nothing else may touch it.
package session

import (
	"github.com/ck-zhang/runner/internal/entry"
	"github.com/ck-zhang/runner/internal/match"
)

type State struct {
	Group string

	catalog  *entry.Catalog
	engine   *match.Engine
	query    []rune
	view     []entry.Entry
	selected int
	dirty    bool
}

// New returns an empty state. It starts dirty so the first frame is drawn.
func New(group string, engine *match.Engine) *State {
	if engine == nil {
		engine = match.NewEngine(match.Filter{}, 0)
	}
	return &State{
		Group:   group,
		catalog: entry.NewCatalog(),
		engine:  engine,
		dirty:   true,
	}
}

// Merge folds a scanned batch into the entry set. The selected entry stays
// selected when it is still in the view.
func (s *State) Merge(batch []entry.Entry) int {
	changed := s.catalog.Merge(entry.Dedup(batch))
	if changed == 0 {
		return 0
	}
	keep := ""
	if e, ok := s.Selected(); ok {
		keep = e.ID
	}
	s.refilter()
	s.selected = 0
	if keep != "" {
		for i := range s.view {
			if s.view[i].ID == keep {
				s.selected = i
				break
			}
		}
	}
	s.dirty = true
	return changed
}

func (s *State) refilter() {
	s.view = s.engine.Rank(s.catalog.Entries(), string(s.query))
	s.clamp()
}

func (s *State) clamp() {
	if s.selected >= len(s.view) {
		s.selected = len(s.view) - 1
	}
	if s.selected < 0 {
		s.selected = 0
	}
}

func (s *State) queryChanged() {
	s.refilter()
	s.selected = 0
	s.dirty = true
}

func (s *State) SetQuery(q string) {
	s.query = []rune(q)
	s.queryChanged()
}

func (s *State) Insert(r rune) {
	s.query = append(s.query, r)
	s.queryChanged()
}

// Backspace removes the last rune and reports whether the query changed.
func (s *State) Backspace() bool {
	if len(s.query) == 0 {
		return false
	}
	s.query = s.query[:len(s.query)-1]
	s.queryChanged()
	return true
}

func (s *State) Clear() bool {
	if len(s.query) == 0 {
		return false
	}
	s.query = s.query[:0]
	s.queryChanged()
	return true
}

// MoveSelection shifts the selection by delta without wrapping.
func (s *State) MoveSelection(delta int) bool {
	return s.Select(s.selected + delta)
}

// Select moves the selection to i, clamped to the view.
func (s *State) Select(i int) bool {
	prev := s.selected
	s.selected = i
	s.clamp()
	if s.selected == prev {
		return false
	}
	s.dirty = true
	return true
}

// Selected returns the entry under the selection; false on an empty view.
func (s *State) Selected() (entry.Entry, bool) {
	if len(s.view) == 0 {
		return entry.Entry{}, false
	}
	return s.view[s.selected], true
}

func (s *State) Query() string { return string(s.query) }
func (s *State) View() []entry.Entry { return s.view }
func (s *State) Selection() int { return s.selected }
func (s *State) Total() int { return s.catalog.Len() }
func (s *State) Dirty() bool { return s.dirty }
func (s *State) MarkDirty() { s.dirty = true }
func (s *State) ClearDirty() { s.dirty = false }
func (s *State) Catalog() *entry.Catalog { return s.catalog }
