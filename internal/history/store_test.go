package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ck-zhang/runner/internal/entry"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	base := time.Unix(1700000000, 0)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return s
}

func TestRecordAndTop(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	ff := entry.Entry{ID: "firefox", Name: "Firefox", Command: "firefox", Kind: entry.KindDesktop}
	term := entry.Entry{ID: "htop", Name: "htop", Command: "htop", Terminal: true, Kind: entry.KindBin,
		Env: map[string]string{"TERM": "xterm-256color"}}

	require.NoError(t, s.Record(ctx, "default", ff))
	require.NoError(t, s.Record(ctx, "default", term))
	require.NoError(t, s.Record(ctx, "default", term))
	require.NoError(t, s.Record(ctx, "work", ff))

	top, err := s.Top(ctx, "default", 10)
	require.NoError(t, err)
	require.Len(t, top, 2)

	assert.Equal(t, "htop", top[0].ID)
	assert.Equal(t, 2, top[0].Uses)
	assert.True(t, top[0].Terminal)
	assert.Equal(t, "xterm-256color", top[0].Env["TERM"])
	assert.Equal(t, entry.KindHistory, top[0].Kind)
	assert.Equal(t, 0, top[0].Seq)

	assert.Equal(t, "firefox", top[1].ID)
	assert.Equal(t, 1, top[1].Uses)
	assert.Equal(t, 1, top[1].Seq)

	work, err := s.Top(ctx, "work", 10)
	require.NoError(t, err)
	require.Len(t, work, 1)
}

func TestTopRestoresContainer(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	ff := entry.Entry{ID: "firefox", Name: "Firefox", Command: "distrobox-enter -n fedora -- firefox",
		Kind: entry.KindDesktop, Container: "fedora"}
	require.NoError(t, s.Record(ctx, "g", ff))

	top, err := s.Top(ctx, "g", 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "fedora", top[0].Container)
	assert.Equal(t, "Firefox (fedora)", top[0].Title())

	// Launching the history row again keeps the container.
	require.NoError(t, s.Record(ctx, "g", top[0]))
	top, err = s.Top(ctx, "g", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, top[0].Uses)
	assert.Equal(t, "fedora", top[0].Container)
}

func TestTopBreaksTiesByRecency(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.Record(ctx, "g", entry.Entry{ID: "old", Name: "old", Command: "old"}))
	require.NoError(t, s.Record(ctx, "g", entry.Entry{ID: "new", Name: "new", Command: "new"}))

	top, err := s.Top(ctx, "g", 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "new", top[0].ID)
}

func TestPruneKeepsMostUsed(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	for i, id := range []string{"a", "b", "c"} {
		for n := 0; n <= i; n++ {
			require.NoError(t, s.Record(ctx, "g", entry.Entry{ID: id, Name: id, Command: id}))
		}
	}
	removed, err := s.Prune(ctx, "g", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	uses, err := s.Uses(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"b": 2, "c": 3}, uses)
}

func TestRecordRejectsEmptyID(t *testing.T) {
	s := openTestStore(t)
	assert.Error(t, s.Record(context.Background(), "g", entry.Entry{Name: "x"}))
}

func TestTopZeroLimit(t *testing.T) {
	s := openTestStore(t)
	top, err := s.Top(context.Background(), "g", 0)
	require.NoError(t, err)
	assert.Empty(t, top)
}
