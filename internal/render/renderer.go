// Package render turns session state into frames: a rounded panel with an
// input line and the visible slice of the ranked entries.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"strconv"

	"github.com/ck-zhang/runner/internal/config"
	"github.com/ck-zhang/runner/internal/entry"
	"github.com/ck-zhang/runner/internal/session"
)

const (
	prompt      = "> "
	placeholder = "Search apps..."
	noResults   = "No results found"

	hintRows  = 9
	hintWidth = 20
	iconGap   = 10
	caretW    = 2
)

var noResultsColor = color.NRGBA{R: 150, G: 100, B: 100, A: 0xff}

// Icons is the icon cache as seen by the renderer; a miss may start a
// lookup.
type Icons interface {
	Get(ref string) (image.Image, bool)
}

type Style struct {
	Padding, Spacing          float64
	BorderRadius, BorderWidth float64
	FontSize, ItemHeight      float64
	IconSize                  int

	Background          color.NRGBA
	Border              color.NRGBA
	Text                color.NRGBA
	Placeholder         color.NRGBA
	SelectionBackground color.NRGBA
	SelectionText       color.NRGBA
	Number              color.NRGBA
}

// StyleFromTheme converts a validated theme.
func StyleFromTheme(t config.Theme, iconSize int) Style {
	return Style{
		Padding:             t.Padding,
		Spacing:             t.Spacing,
		BorderRadius:        t.BorderRadius,
		BorderWidth:         t.BorderWidth,
		FontSize:            t.FontSize,
		ItemHeight:          t.ItemHeight,
		IconSize:            iconSize,
		Background:          config.MustColor(t.Background),
		Border:              config.MustColor(t.BorderColor),
		Text:                config.MustColor(t.Text),
		Placeholder:         config.MustColor(t.Placeholder),
		SelectionBackground: config.MustColor(t.SelectionBackground),
		SelectionText:       config.MustColor(t.SelectionText),
		Number:              config.MustColor(t.NumberColor),
	}
}

// Renderer draws full frames. It remembers the scroll offset between
// frames and must be used from one goroutine.
type Renderer struct {
	style  Style
	text   *Text
	shapes Shapes
	icons  Icons

	offset  int
	visible int
}

func NewRenderer(style Style, icons Icons) (*Renderer, error) {
	t, err := NewText()
	if err != nil {
		return nil, err
	}
	return &Renderer{style: style, text: t, icons: icons}, nil
}

// Layout is the row geometry for one frame size.
type Layout struct {
	ListTop int
	Row     int
	Visible int
}

func (r *Renderer) Layout(b image.Rectangle) Layout {
	_, lh := r.text.LineHeight(r.style.FontSize)
	top := b.Min.Y + int(r.style.Padding) + lh + int(r.style.Spacing)
	row := max(1, int(r.style.ItemHeight))
	avail := b.Max.Y - int(r.style.Padding) - top
	return Layout{ListTop: top, Row: row, Visible: max(0, avail/row)}
}

// Window returns the first visible row for a view of n entries. The offset
// moves only as far as needed to keep selected on screen.
func (r *Renderer) Window(n, visible, selected int) int {
	if visible <= 0 || n <= visible {
		r.offset = 0
		return 0
	}
	if selected < r.offset {
		r.offset = selected
	}
	if selected >= r.offset+visible {
		r.offset = selected - visible + 1
	}
	r.offset = min(max(r.offset, 0), n-visible)
	return r.offset
}

// Shown returns the first view index and the row count of the last frame.
func (r *Renderer) Shown() (first, rows int) { return r.offset, r.visible }

// Draw renders st into dst, covering every pixel.
func (r *Renderer) Draw(dst *image.RGBA, st *session.State) {
	b := dst.Bounds()
	draw.Draw(dst, b, image.Transparent, image.Point{}, draw.Src)
	s := r.style

	r.shapes.FillRounded(dst, b, s.BorderRadius, s.Background)
	if s.BorderWidth > 0 {
		r.shapes.StrokeRounded(dst, b, s.BorderRadius, s.BorderWidth, s.Border)
	}

	inner := b.Inset(int(s.Padding))
	r.drawInput(dst, inner, st.Query())

	lay := r.Layout(b)
	r.visible = lay.Visible
	view := st.View()
	if len(view) == 0 {
		r.offset = 0
		asc, _ := r.text.LineHeight(s.FontSize)
		r.text.DrawString(dst, inner, noResults, s.FontSize, inner.Min.X, lay.ListTop+asc, noResultsColor)
		return
	}
	first := r.Window(len(view), lay.Visible, st.Selection())
	for i := 0; i < lay.Visible && first+i < len(view); i++ {
		y := lay.ListTop + i*lay.Row
		row := image.Rect(b.Min.X+int(s.Padding/2), y, b.Max.X-int(s.Padding/2), y+lay.Row)
		r.drawRow(dst, row, inner, i, &view[first+i], first+i == st.Selection())
	}
}

func (r *Renderer) drawInput(dst *image.RGBA, inner image.Rectangle, query string) {
	s := r.style
	asc, lh := r.text.LineHeight(s.FontSize)
	baseline := inner.Min.Y + asc
	x := inner.Min.X + r.text.DrawString(dst, inner, prompt, s.FontSize, inner.Min.X, baseline, s.Text)
	if query == "" {
		r.text.DrawString(dst, inner, placeholder, s.FontSize, x, baseline, s.Placeholder)
	} else {
		w := inner.Max.X - x - caretW
		shown := query
		if r.text.Width(shown, s.FontSize) > w {
			shown = r.tail(query, w)
		}
		x += r.text.DrawString(dst, inner, shown, s.FontSize, x, baseline, s.Text)
	}
	caret := image.Rect(x, inner.Min.Y, x+caretW, inner.Min.Y+lh).Intersect(inner)
	draw.Draw(dst, caret, image.NewUniform(s.Text), image.Point{}, draw.Over)
}

// tail keeps the end of a long query, where the user is typing.
func (r *Renderer) tail(q string, w int) string {
	rs := []rune(q)
	for i := 1; i < len(rs); i++ {
		t := ellipsis + string(rs[i:])
		if r.text.Width(t, r.style.FontSize) <= w {
			return t
		}
	}
	return ""
}

func (r *Renderer) drawRow(dst *image.RGBA, row, inner image.Rectangle, n int, e *entry.Entry, selected bool) {
	s := r.style
	fg := s.Text
	if selected {
		r.shapes.FillRounded(dst, row, s.BorderRadius/2, s.SelectionBackground)
		fg = s.SelectionText
	}
	clip := image.Rect(inner.Min.X, row.Min.Y, inner.Max.X, row.Max.Y)
	x := inner.Min.X

	if n < hintRows {
		hs := s.FontSize * 0.875
		r.text.DrawString(dst, clip, strconv.Itoa(n+1)+".", hs, x, centreBaseline(row, hs), s.Number)
	}
	x += hintWidth

	if s.IconSize > 0 {
		box := image.Rect(x, 0, x+s.IconSize, s.IconSize).Add(image.Pt(0, row.Min.Y+(row.Dy()-s.IconSize)/2))
		r.drawIcon(dst, box.Intersect(clip), e.Icon)
		x += s.IconSize + iconGap
	}

	name := r.text.Truncate(e.Title(), s.FontSize, clip.Max.X-x)
	r.text.DrawString(dst, clip, name, s.FontSize, x, centreBaseline(row, s.FontSize), fg)
}

// centreBaseline centres cap height within the row.
func centreBaseline(row image.Rectangle, size float64) int {
	return row.Min.Y + (row.Dy()+int(size*0.7))/2
}

func (r *Renderer) drawIcon(dst *image.RGBA, box image.Rectangle, ref string) {
	if box.Empty() {
		return
	}
	if r.icons != nil && ref != "" {
		if img, ok := r.icons.Get(ref); ok {
			draw.Draw(dst, box, img, img.Bounds().Min, draw.Over)
			return
		}
	}
	ph := r.style.Placeholder
	ph.A /= 3
	r.shapes.FillRounded(dst, box, float64(box.Dx())/5, ph)
}
