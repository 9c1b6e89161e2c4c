package entry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{
		"desktop": KindDesktop,
		"bin":     KindBin,
		" PATH ":  KindBin,
		"scripts": KindScript,
		"script":  KindScript,
		"history": KindHistory,
		"static":  KindStatic,
	}
	for in, want := range cases {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseKind("plugins")
	assert.Error(t, err)
}

func TestPriorityOrder(t *testing.T) {
	for i := 1; i < len(Kinds); i++ {
		assert.Less(t, Kinds[i-1].Priority(), Kinds[i].Priority())
	}
}

func TestCatalogKeepsHigherPriorityDuplicate(t *testing.T) {
	c := NewCatalog()
	c.Merge([]Entry{{ID: "x", Name: "x-bin", Kind: KindBin}})
	c.Merge([]Entry{{ID: "x", Name: "x-static", Kind: KindStatic}})

	require.Equal(t, 1, c.Len())
	got, ok := c.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, KindStatic, got.Kind)
	assert.Equal(t, "x-static", got.Name)
}

func TestCatalogIndependentOfDeliveryOrder(t *testing.T) {
	batches := [][]Entry{
		{{ID: "a", Kind: KindBin, Seq: 0}, {ID: "x", Kind: KindBin, Seq: 1}},
		{{ID: "x", Kind: KindStatic, Seq: 0}},
		{{ID: "b", Kind: KindDesktop, Seq: 0}, {ID: "a", Kind: KindDesktop, Seq: 1}},
		{{ID: "s", Kind: KindScript, Seq: 0}},
	}
	orders := [][]int{{0, 1, 2, 3}, {3, 2, 1, 0}, {2, 0, 3, 1}}

	var want []Entry
	for _, order := range orders {
		c := NewCatalog()
		for _, i := range order {
			c.Merge(batches[i])
		}
		got := c.Entries()
		if want == nil {
			want = append([]Entry(nil), got...)
			continue
		}
		assert.Equal(t, want, got, "order %v", order)
	}

	ids := make([]string, len(want))
	for i, e := range want {
		ids[i] = e.ID + "/" + e.Kind.String()
	}
	assert.Equal(t, []string{"x/static", "b/desktop", "a/desktop", "s/script"}, ids)
}

func TestCatalogLowerPriorityDoesNotReplace(t *testing.T) {
	c := NewCatalog()
	assert.Equal(t, 1, c.Merge([]Entry{{ID: "x", Kind: KindHistory, Name: "first"}}))
	assert.Equal(t, 0, c.Merge([]Entry{{ID: "x", Kind: KindScript, Name: "second"}}))
	got, _ := c.Lookup("x")
	assert.Equal(t, "first", got.Name)
}

func TestDedupKeepsFirst(t *testing.T) {
	in := []Entry{{ID: "ls", Command: "/usr/local/bin/ls"}, {ID: "ls", Command: "/usr/bin/ls"}, {ID: "cat"}}
	out := Dedup(in)
	require.Len(t, out, 2)
	assert.Equal(t, "/usr/local/bin/ls", out[0].Command)
}

func TestTitleShowsContainer(t *testing.T) {
	e := Entry{Name: "Firefox", Container: "fedora"}
	assert.Equal(t, "Firefox (fedora)", e.Title())
	assert.Equal(t, "Files", Entry{Name: "Files"}.Title())
}
