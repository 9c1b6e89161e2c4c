package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ck-zhang/runner/internal/config"
	"github.com/ck-zhang/runner/internal/entry"
	"github.com/ck-zhang/runner/internal/session"
)

type fakeDisplay struct {
	bounds   image.Rectangle
	attached []*image.RGBA
	damage   image.Rectangle
	commits  int
	err      error
}

func (d *fakeDisplay) Bounds() image.Rectangle { return d.bounds }
func (d *fakeDisplay) Attach(img *image.RGBA) { d.attached = append(d.attached, img) }
func (d *fakeDisplay) Damage(r image.Rectangle) { d.damage = d.damage.Union(r) }
func (d *fakeDisplay) Commit() error {
	if d.err != nil {
		return d.err
	}
	d.commits++
	return nil
}

type fakeIcons struct {
	asked map[string]int
	have  map[string]image.Image
}

func (f *fakeIcons) Get(ref string) (image.Image, bool) {
	if f.asked == nil {
		f.asked = make(map[string]int)
	}
	f.asked[ref]++
	img, ok := f.have[ref]
	return img, ok
}

func defaultStyle() Style {
	c := config.Default()
	return StyleFromTheme(c.Theme, c.General.IconSize)
}

func newRenderer(t *testing.T, icons Icons) *Renderer {
	t.Helper()
	r, err := NewRenderer(defaultStyle(), icons)
	require.NoError(t, err)
	return r
}

func state(n int) *session.State {
	st := session.New("default", nil)
	batch := make([]entry.Entry, n)
	for i := range batch {
		name := fmt.Sprintf("app %02d", i)
		batch[i] = entry.Entry{ID: name, Name: name, Command: name, Icon: "icon-" + name, Kind: entry.KindDesktop, Seq: i}
	}
	st.Merge(batch)
	return st
}

func TestWindowScrollsMinimally(t *testing.T) {
	r := newRenderer(t, nil)
	assert.Equal(t, 0, r.Window(20, 5, 0))
	assert.Equal(t, 0, r.Window(20, 5, 4))
	assert.Equal(t, 1, r.Window(20, 5, 5))
	assert.Equal(t, 1, r.Window(20, 5, 3), "selection still on screen")
	assert.Equal(t, 15, r.Window(20, 5, 19))
	assert.Equal(t, 10, r.Window(20, 5, 10))
	assert.Equal(t, 0, r.Window(3, 5, 2), "short views never scroll")
	assert.Equal(t, 0, r.Window(20, 0, 7))
}

func TestWindowClampsAfterShrink(t *testing.T) {
	r := newRenderer(t, nil)
	r.Window(20, 5, 19)
	assert.Equal(t, 3, r.Window(8, 5, 7))
}

func TestLayoutFitsRows(t *testing.T) {
	r := newRenderer(t, nil)
	b := image.Rect(0, 0, 600, 400)
	lay := r.Layout(b)
	assert.Equal(t, 30, lay.Row)
	assert.Greater(t, lay.ListTop, 20)
	assert.LessOrEqual(t, lay.ListTop+lay.Visible*lay.Row, 400-20)
	assert.Greater(t, lay.ListTop+(lay.Visible+1)*lay.Row, 400-20)

	assert.Zero(t, r.Layout(image.Rect(0, 0, 600, 40)).Visible)
}

func TestDrawIsIdempotent(t *testing.T) {
	r := newRenderer(t, nil)
	st := state(30)
	st.MoveSelection(25)

	a := image.NewRGBA(image.Rect(0, 0, 600, 400))
	b := image.NewRGBA(image.Rect(0, 0, 600, 400))
	r.Draw(a, st)
	r.Draw(b, st)
	assert.Equal(t, a.Pix, b.Pix)
}

func TestDrawLeavesCornersTransparent(t *testing.T) {
	r := newRenderer(t, nil)
	img := image.NewRGBA(image.Rect(0, 0, 200, 120))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	r.Draw(img, state(0))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(0, 0))
	assert.Equal(t, uint8(0xff), img.RGBAAt(100, 110).A)
}

func TestDrawRequestsOnlyVisibleIcons(t *testing.T) {
	icons := &fakeIcons{}
	r := newRenderer(t, icons)
	st := state(40)
	img := image.NewRGBA(image.Rect(0, 0, 600, 400))
	r.Draw(img, st)

	vis := r.Layout(img.Bounds()).Visible
	require.Greater(t, vis, 0)
	assert.Len(t, icons.asked, vis)
	assert.Contains(t, icons.asked, "icon-app 00")
	assert.NotContains(t, icons.asked, "icon-app 39")
}

func TestDrawUsesResolvedIcon(t *testing.T) {
	red := image.NewUniform(color.RGBA{R: 0xff, A: 0xff})
	icon := image.NewRGBA(image.Rect(0, 0, 22, 22))
	for y := 0; y < 22; y++ {
		for x := 0; x < 22; x++ {
			icon.Set(x, y, red)
		}
	}
	icons := &fakeIcons{have: map[string]image.Image{"icon-app 00": icon}}
	r := newRenderer(t, icons)
	img := image.NewRGBA(image.Rect(0, 0, 600, 400))
	r.Draw(img, state(1))

	s := defaultStyle()
	lay := r.Layout(img.Bounds())
	x := int(s.Padding) + hintWidth + s.IconSize/2
	y := lay.ListTop + lay.Row/2
	assert.Equal(t, color.RGBA{R: 0xff, A: 0xff}, img.RGBAAt(x, y))
}

func TestTruncate(t *testing.T) {
	txt, err := NewText()
	require.NoError(t, err)

	assert.Equal(t, "short", txt.Truncate("short", 16, 500))

	long := "Some Extremely Long Application Name That Does Not Fit"
	got := txt.Truncate(long, 16, 120)
	assert.LessOrEqual(t, txt.Width(got, 16), 120)
	assert.Contains(t, got, ellipsis)
	assert.Empty(t, txt.Truncate(long, 16, 0))
}

func TestShapesFillRounded(t *testing.T) {
	var s Shapes
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	s.FillRounded(img, img.Bounds(), 10, color.NRGBA{G: 0xff, A: 0xff})
	assert.Zero(t, img.RGBAAt(0, 0).A)
	assert.Equal(t, color.RGBA{G: 0xff, A: 0xff}, img.RGBAAt(20, 20))

	ring := image.NewRGBA(image.Rect(0, 0, 40, 40))
	s.StrokeRounded(ring, ring.Bounds(), 10, 2, color.NRGBA{B: 0xff, A: 0xff})
	assert.Zero(t, ring.RGBAAt(20, 20).A, "ring interior stays empty")
	assert.Equal(t, uint8(0xff), ring.RGBAAt(20, 0).A)
}

func TestFrameCommitsOnlyWhenDirty(t *testing.T) {
	d := &fakeDisplay{bounds: image.Rect(0, 0, 300, 200)}
	p := NewPipeline(d, newRenderer(t, nil), nil)
	st := state(3)

	ok, err := p.Frame(st)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, st.Dirty())
	assert.Equal(t, 1, d.commits)
	assert.Equal(t, d.bounds, d.damage)

	ok, err = p.Frame(st)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, d.commits)
	assert.Equal(t, 1, p.Frames())
}

func TestFrameKeepsDirtyOnCommitError(t *testing.T) {
	boom := errors.New("boom")
	d := &fakeDisplay{bounds: image.Rect(0, 0, 300, 200), err: boom}
	p := NewPipeline(d, newRenderer(t, nil), nil)
	st := state(1)

	_, err := p.Frame(st)
	require.ErrorIs(t, err, boom)
	assert.True(t, st.Dirty())
}

func TestFrameSkipsEmptyGeometry(t *testing.T) {
	d := &fakeDisplay{}
	p := NewPipeline(d, newRenderer(t, nil), nil)
	st := state(1)
	ok, err := p.Frame(st)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, st.Dirty())
	assert.Empty(t, d.attached)
}

func TestFrameAlternatesBuffers(t *testing.T) {
	d := &fakeDisplay{bounds: image.Rect(0, 0, 300, 200)}
	p := NewPipeline(d, newRenderer(t, nil), nil)
	st := state(2)

	for range 3 {
		st.MarkDirty()
		_, err := p.Frame(st)
		require.NoError(t, err)
	}
	require.Len(t, d.attached, 3)
	assert.NotSame(t, d.attached[0], d.attached[1])
	assert.Same(t, d.attached[0], d.attached[2])

	d.bounds = image.Rect(0, 0, 200, 100)
	st.MarkDirty()
	_, err := p.Frame(st)
	require.NoError(t, err)
	assert.Equal(t, d.bounds, d.attached[3].Bounds())
}

func TestShownFollowsSelection(t *testing.T) {
	r := newRenderer(t, nil)
	st := state(30)
	img := image.NewRGBA(image.Rect(0, 0, 600, 400))
	r.Draw(img, st)
	first, rows := r.Shown()
	assert.Zero(t, first)
	require.Greater(t, rows, 0)

	st.Select(29)
	r.Draw(img, st)
	first, _ = r.Shown()
	assert.Equal(t, 30-rows, first)
}
