package entry

import "sort"

// Catalog is the deduplicated set of entries seen in one session. When two
// sources produce the same identifier the higher priority entry is kept and
// the other is dropped.
type Catalog struct {
	byID    map[string]int
	entries []Entry
	sorted  bool
}

func NewCatalog() *Catalog {
	return &Catalog{byID: make(map[string]int), sorted: true}
}

// Merge adds a batch and reports how many entries changed the set.
func (c *Catalog) Merge(batch []Entry) int {
	changed := 0
	for _, e := range batch {
		if e.ID == "" {
			continue
		}
		i, ok := c.byID[e.ID]
		if !ok {
			c.byID[e.ID] = len(c.entries)
			c.entries = append(c.entries, e)
			c.sorted = false
			changed++
			continue
		}
		cur := &c.entries[i]
		if e.Kind.Priority() < cur.Kind.Priority() {
			*cur = e
			c.sorted = false
			changed++
		}
	}
	return changed
}

// Entries returns the set in source-priority then discovery order. The
// returned slice is shared; callers must not modify it.
func (c *Catalog) Entries() []Entry {
	if !c.sorted {
		sort.SliceStable(c.entries, func(i, j int) bool {
			return Less(&c.entries[i], &c.entries[j])
		})
		for i := range c.entries {
			c.byID[c.entries[i].ID] = i
		}
		c.sorted = true
	}
	return c.entries
}

func (c *Catalog) Len() int { return len(c.entries) }

func (c *Catalog) Lookup(id string) (Entry, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Dedup collapses duplicates inside a single batch, keeping the first
// occurrence of each identifier.
func Dedup(batch []Entry) []Entry {
	seen := make(map[string]struct{}, len(batch))
	out := batch[:0]
	for _, e := range batch {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out
}
