package term

import (
	"image"

	"github.com/gdamore/tcell/v2"
	xdraw "golang.org/x/image/draw"
)

const upperHalf = '▀'

// cellsPresenter approximates a frame with half-block characters: each cell
// shows two vertically stacked pixels, the top one as foreground and the
// bottom one as background.
type cellsPresenter struct {
	screen tcell.Screen
	small  *image.RGBA
}

func newCellsPresenter(screen tcell.Screen) *cellsPresenter {
	return &cellsPresenter{screen: screen}
}

func (c *cellsPresenter) Name() string { return BackendCells }

func (c *cellsPresenter) Clear() error {
	c.screen.Clear()
	c.screen.Show()
	return nil
}

// fitCells returns the half-block grid size that shows a w×h pixel frame at
// its aspect ratio within cols×rows cells.
func fitCells(w, h int, geo Geometry) (int, int) {
	cols, rows := geo.Cols, geo.Rows*2
	if w <= 0 || h <= 0 || cols <= 0 || rows <= 0 {
		return 0, 0
	}
	cw, ch := geo.CellWidth, geo.CellHeight
	if cw <= 0 || ch <= 0 {
		cw, ch = DefaultCellWidth, DefaultCellHeight
	}
	gw := (w + cw - 1) / cw
	gh := (h*2 + ch - 1) / ch
	if gw > cols {
		gh = max(1, gh*cols/gw)
		gw = cols
	}
	if gh > rows {
		gw = max(1, gw*rows/gh)
		gh = rows
	}
	return gw, gh
}

func (c *cellsPresenter) Present(img *image.RGBA, geo Geometry) error {
	gw, gh := fitCells(img.Bounds().Dx(), img.Bounds().Dy(), geo)
	c.screen.Clear()
	if gw == 0 || gh == 0 {
		c.screen.Show()
		return nil
	}
	if c.small == nil || c.small.Bounds().Dx() != gw || c.small.Bounds().Dy() != gh {
		c.small = image.NewRGBA(image.Rect(0, 0, gw, gh))
	} else {
		clear(c.small.Pix)
	}
	xdraw.ApproxBiLinear.Scale(c.small, c.small.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	x0 := (geo.Cols - gw) / 2
	y0 := (geo.Rows - (gh+1)/2) / 2
	for y := 0; y < gh; y += 2 {
		for x := 0; x < gw; x++ {
			top := c.small.RGBAAt(x, y)
			bottom := top
			if y+1 < gh {
				bottom = c.small.RGBAAt(x, y+1)
			} else {
				bottom.A = 0
			}
			style := tcell.StyleDefault
			if top.A >= 0x80 {
				style = style.Foreground(tcell.NewRGBColor(int32(top.R), int32(top.G), int32(top.B)))
			}
			r := upperHalf
			if bottom.A >= 0x80 {
				style = style.Background(tcell.NewRGBColor(int32(bottom.R), int32(bottom.G), int32(bottom.B)))
			}
			if top.A < 0x80 {
				if bottom.A < 0x80 {
					r = ' '
				} else {
					// Only the bottom half is opaque: draw it as a lower
					// half block so the top keeps the terminal background.
					r = '▄'
					style = tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(bottom.R), int32(bottom.G), int32(bottom.B)))
				}
			}
			c.screen.SetContent(x0+x, y0+y/2, r, nil, style)
		}
	}
	c.screen.Show()
	return nil
}
