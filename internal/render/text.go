package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const ellipsis = "…"

// Glyph is one positioned rune; Dot is relative to the line origin.
type Glyph struct {
	Rune rune
	Dot  fixed.Point26_6
}

// Text lays out and rasterises single lines in the Go Regular face.
type Text struct {
	font  *opentype.Font
	faces map[float64]font.Face
}

func NewText() (*Text, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &Text{font: f, faces: make(map[float64]font.Face)}, nil
}

func (t *Text) Face(size float64) font.Face {
	if face, ok := t.faces[size]; ok {
		return face
	}
	face, err := opentype.NewFace(t.font, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		// Only invalid sizes fail; config validation rejects those.
		panic(fmt.Sprintf("font face size %v: %v", size, err))
	}
	t.faces[size] = face
	return face
}

// Layout positions s on a single line and returns the glyphs and the total
// advance.
func (t *Text) Layout(s string, size float64) ([]Glyph, fixed.Int26_6) {
	face := t.Face(size)
	glyphs := make([]Glyph, 0, len(s))
	var x fixed.Int26_6
	prev := rune(-1)
	for _, r := range s {
		if prev >= 0 {
			x += face.Kern(prev, r)
		}
		glyphs = append(glyphs, Glyph{Rune: r, Dot: fixed.Point26_6{X: x}})
		adv, ok := face.GlyphAdvance(r)
		if !ok {
			adv, _ = face.GlyphAdvance('?')
		}
		x += adv
		prev = r
	}
	return glyphs, x
}

func (t *Text) Width(s string, size float64) int {
	_, w := t.Layout(s, size)
	return w.Ceil()
}

// Truncate shortens s with a trailing ellipsis until it fits maxWidth
// pixels.
func (t *Text) Truncate(s string, size float64, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if t.Width(s, size) <= maxWidth {
		return s
	}
	rs := []rune(s)
	lo, hi := 0, len(rs)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if t.Width(string(rs[:mid])+ellipsis, size) <= maxWidth {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	if lo == 0 {
		if t.Width(ellipsis, size) <= maxWidth {
			return ellipsis
		}
		return ""
	}
	return string(rs[:lo]) + ellipsis
}

// LineHeight returns the ascent and full height of the face in pixels.
func (t *Text) LineHeight(size float64) (ascent, height int) {
	m := t.Face(size).Metrics()
	return m.Ascent.Ceil(), m.Height.Ceil()
}

// Draw rasterises glyphs with their line origin at (x, baseline), clipped
// to clip.
func (t *Text) Draw(dst draw.Image, clip image.Rectangle, glyphs []Glyph, size float64, x, baseline int, c color.Color) {
	face := t.Face(size)
	src := image.NewUniform(c)
	origin := fixed.P(x, baseline)
	for _, g := range glyphs {
		dot := origin.Add(g.Dot)
		dr, mask, maskp, _, ok := face.Glyph(dot, g.Rune)
		if !ok {
			continue
		}
		r := dr.Intersect(clip)
		if r.Empty() {
			continue
		}
		draw.DrawMask(dst, r, src, image.Point{}, mask, maskp.Add(r.Min.Sub(dr.Min)), draw.Over)
	}
}

// DrawString lays out and draws s in one step.
func (t *Text) DrawString(dst draw.Image, clip image.Rectangle, s string, size float64, x, baseline int, c color.Color) int {
	glyphs, adv := t.Layout(s, size)
	t.Draw(dst, clip, glyphs, size, x, baseline, c)
	return adv.Ceil()
}
