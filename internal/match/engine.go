package match

import (
	"regexp"
	"sort"

	"github.com/ck-zhang/runner/internal/entry"
)

// Filter holds a group's name/command patterns. Whitelist restricts to
// entries matching at least one pattern; blacklist is applied after it.
type Filter struct {
	Whitelist []*regexp.Regexp
	Blacklist []*regexp.Regexp
}

func anyMatch(res []*regexp.Regexp, e *entry.Entry) bool {
	for _, re := range res {
		if re.MatchString(e.Name) || re.MatchString(e.Command) {
			return true
		}
	}
	return false
}

func (f Filter) Allow(e *entry.Entry) bool {
	if len(f.Whitelist) > 0 && !anyMatch(f.Whitelist, e) {
		return false
	}
	return !anyMatch(f.Blacklist, e)
}

// Engine ranks entries. It keeps a cache of prepared names and must only be
// used from one goroutine.
type Engine struct {
	Filter        Filter
	HistoryWeight int
	// Usage holds launch counts by entry ID so entries found by other
	// sources share the boost of their history record.
	Usage map[string]int

	prepared map[string]text
}

func NewEngine(f Filter, historyWeight int) *Engine {
	return &Engine{Filter: f, HistoryWeight: historyWeight, prepared: make(map[string]text)}
}

func (m *Engine) target(name string) text {
	if m.prepared == nil {
		m.prepared = make(map[string]text)
	}
	t, ok := m.prepared[name]
	if !ok {
		t = prepare(name)
		m.prepared[name] = t
	}
	return t
}

// Rank returns the entries that survive the filter and match query, best
// first. entries must be in source-priority then discovery order; the
// returned slice is freshly allocated and carries the computed scores.
func (m *Engine) Rank(entries []entry.Entry, query string) []entry.Entry {
	q := foldQuery(query)
	out := make([]entry.Entry, 0, len(entries))
	for i := range entries {
		e := entries[i]
		if !m.Filter.Allow(&e) {
			continue
		}
		if len(q) == 0 {
			e.Score = 0
			out = append(out, e)
			continue
		}
		s := score(m.target(e.Name), q)
		if s == 0 {
			continue
		}
		e.Score = s + max(e.Uses, m.Usage[e.ID])*m.HistoryWeight
		out = append(out, e)
	}
	if len(q) == 0 {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return entry.Less(&out[i], &out[j])
	})
	return out
}
