package render

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/ck-zhang/runner/internal/session"
)

// Display receives finished frames. term.Display implements it.
type Display interface {
	Bounds() image.Rectangle
	Attach(img *image.RGBA)
	Damage(r image.Rectangle)
	Commit() error
}

// Surface alternates between two buffers so the one the display holds is
// never drawn into.
type Surface struct {
	bufs [2]*image.RGBA
	next int
}

// Next returns the buffer to draw the coming frame into, reallocating both
// when the geometry changed.
func (s *Surface) Next(b image.Rectangle) *image.RGBA {
	if s.bufs[0] == nil || s.bufs[0].Bounds() != b {
		s.bufs[0] = image.NewRGBA(b)
		s.bufs[1] = image.NewRGBA(b)
		s.next = 0
	}
	buf := s.bufs[s.next]
	s.next ^= 1
	return buf
}

type Pipeline struct {
	display  Display
	renderer *Renderer
	surface  Surface
	log      *slog.Logger
	frames   int
}

func NewPipeline(d Display, r *Renderer, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{display: d, renderer: r, log: log.With("component", "render")}
}

// Frame draws and commits st when it is dirty. The dirty flag is cleared
// only after the commit succeeds. It reports whether a frame was committed.
func (p *Pipeline) Frame(st *session.State) (bool, error) {
	if !st.Dirty() {
		return false, nil
	}
	b := p.display.Bounds()
	if b.Empty() {
		return false, nil
	}
	buf := p.surface.Next(b)
	p.renderer.Draw(buf, st)
	p.display.Attach(buf)
	p.display.Damage(b)
	if err := p.display.Commit(); err != nil {
		return false, fmt.Errorf("commit frame: %w", err)
	}
	st.ClearDirty()
	p.frames++
	p.log.Debug("frame", "n", p.frames, "view", len(st.View()), "selected", st.Selection())
	return true, nil
}

func (p *Pipeline) Frames() int { return p.frames }

// Shown reports which rows the last committed frame displayed.
func (p *Pipeline) Shown() (first, rows int) { return p.renderer.Shown() }
