package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ck-zhang/runner/internal/entry"
)

func batch(kind entry.Kind, names ...string) []entry.Entry {
	out := make([]entry.Entry, len(names))
	for i, n := range names {
		out[i] = entry.Entry{ID: n, Name: n, Command: n, Kind: kind, Seq: i}
	}
	return out
}

func assertClamped(t *testing.T, s *State) {
	t.Helper()
	if len(s.View()) == 0 {
		assert.Equal(t, 0, s.Selection())
		_, ok := s.Selected()
		assert.False(t, ok)
		return
	}
	assert.GreaterOrEqual(t, s.Selection(), 0)
	assert.Less(t, s.Selection(), len(s.View()))
}

func TestNewStateIsDirtyAndEmpty(t *testing.T) {
	s := New("default", nil)
	assert.True(t, s.Dirty())
	assert.Empty(t, s.View())
	_, ok := s.Selected()
	assert.False(t, ok)
}

func TestSelectionClampsWithoutWrap(t *testing.T) {
	s := New("g", nil)
	s.Merge(batch(entry.KindBin, "a", "b", "c"))

	assert.False(t, s.MoveSelection(-1))
	assert.True(t, s.MoveSelection(1))
	assert.True(t, s.MoveSelection(5))
	assert.Equal(t, 2, s.Selection())
	assert.False(t, s.MoveSelection(1))
	assertClamped(t, s)
}

func TestClampLawAcrossShrinkAndGrow(t *testing.T) {
	s := New("g", nil)
	s.Merge(batch(entry.KindBin, "firefox", "files", "foot"))
	s.MoveSelection(2)

	for _, r := range "zzz" {
		s.Insert(r)
		assertClamped(t, s)
	}
	assert.Empty(t, s.View())
	s.MoveSelection(1)
	assertClamped(t, s)
	s.MoveSelection(-1)
	assertClamped(t, s)

	for s.Backspace() {
		assertClamped(t, s)
	}
	assert.Len(t, s.View(), 3)
	assert.Equal(t, 0, s.Selection())
	s.MoveSelection(1)
	assertClamped(t, s)
}

func TestQueryChangeResetsSelection(t *testing.T) {
	s := New("g", nil)
	s.Merge(batch(entry.KindBin, "firefox", "files", "foot"))
	s.MoveSelection(2)
	s.Insert('f')
	assert.Equal(t, 0, s.Selection())
	assert.Equal(t, "f", s.Query())
}

func TestMergeKeepsSelectedEntry(t *testing.T) {
	s := New("g", nil)
	s.Merge(batch(entry.KindBin, "b", "c"))
	s.MoveSelection(1)
	sel, ok := s.Selected()
	require.True(t, ok)
	require.Equal(t, "c", sel.ID)

	s.Merge(batch(entry.KindStatic, "a"))
	sel, ok = s.Selected()
	require.True(t, ok)
	assert.Equal(t, "c", sel.ID)
	assert.Equal(t, 2, s.Selection())
}

func TestMergeAppliesPriority(t *testing.T) {
	s := New("g", nil)
	s.Merge(batch(entry.KindBin, "x"))
	s.Merge(batch(entry.KindStatic, "x"))
	require.Len(t, s.View(), 1)
	assert.Equal(t, entry.KindStatic, s.View()[0].Kind)
	assert.Equal(t, 1, s.Total())
}

func TestMergeWithoutChangeKeepsClean(t *testing.T) {
	s := New("g", nil)
	s.Merge(batch(entry.KindStatic, "x"))
	s.ClearDirty()
	assert.Equal(t, 0, s.Merge(batch(entry.KindBin, "x")))
	assert.False(t, s.Dirty())
	assert.Equal(t, 0, s.Merge(nil))
}

func TestBackspaceAndClearOnEmptyQuery(t *testing.T) {
	s := New("g", nil)
	s.ClearDirty()
	assert.False(t, s.Backspace())
	assert.False(t, s.Clear())
	assert.False(t, s.Dirty())

	s.SetQuery("fire")
	assert.True(t, s.Clear())
	assert.Equal(t, "", s.Query())
	assert.True(t, s.Dirty())
}

func TestInsertMultibyte(t *testing.T) {
	s := New("g", nil)
	s.Merge(batch(entry.KindBin, "café"))
	s.Insert('é')
	require.Len(t, s.View(), 1)
	s.Backspace()
	assert.Equal(t, "", s.Query())
}
