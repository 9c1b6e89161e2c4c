// Package term hosts the launcher surface in a terminal: it negotiates a
// pixel geometry, turns terminal input into events and presents frames
// either as kitty graphics or as half-block cells.
package term

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"sync"
	"unicode"

	"github.com/gdamore/tcell/v2"
)

const (
	DefaultCellWidth  = 10
	DefaultCellHeight = 20
)

var ErrScreenGone = errors.New("terminal screen closed")

// Geometry is the negotiated surface size plus the terminal grid it lives
// on.
type Geometry struct {
	Width, Height         int
	Cols, Rows            int
	CellWidth, CellHeight int
}

// Stride is the byte length of one row of an RGBA buffer of this geometry.
func (g Geometry) Stride() int { return g.Width * 4 }

func (g Geometry) Bounds() image.Rectangle { return image.Rect(0, 0, g.Width, g.Height) }

type Event interface{ isEvent() }

type ConfigureEvent struct{ Geometry Geometry }

// CloseEvent is a close request when Err is nil and a lost display
// otherwise.
type CloseEvent struct{ Err error }

type Key int

const (
	KeyNone Key = iota
	KeyRune
	KeyEnter
	KeyEscape
	KeyBackspace
	KeyTab
	KeyUp
	KeyDown
	KeyPgUp
	KeyPgDn
	KeyHome
	KeyEnd
)

type KeyEvent struct {
	Key  Key
	Rune rune
	Alt  bool
	Ctrl bool
}

func (ConfigureEvent) isEvent() {}
func (CloseEvent) isEvent()     {}
func (KeyEvent) isEvent()       {}

type Options struct {
	// Backend is a name returned by Detect.
	Backend string
	// Width and Height are the requested surface size in pixels.
	Width, Height int
	// CellSize overrides the probed cell pixel size.
	CellSize image.Point
	// Out receives graphics escapes when the screen exposes no tty.
	Out io.Writer
	Log *slog.Logger
}

// Display is the surface the render pipeline draws into. Attach, Damage
// and Commit must be called from one goroutine.
type Display struct {
	screen    tcell.Screen
	presenter Presenter
	opts      Options
	log       *slog.Logger

	events chan Event
	quit   chan struct{}
	done   chan struct{}
	once   sync.Once

	geo      Geometry
	attached *image.RGBA
	damage   image.Rectangle
	commits  int
}

// Open takes over the controlling terminal.
func Open(opts Options) (*Display, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("create screen: %w", err)
	}
	if opts.CellSize == (image.Point{}) {
		if w, h, ok := CellSize(os.Stdout); ok {
			opts.CellSize = image.Pt(w, h)
		}
	}
	return NewWithScreen(screen, opts)
}

// NewWithScreen initialises screen and starts forwarding its events.
func NewWithScreen(screen tcell.Screen, opts Options) (*Display, error) {
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("init screen: %w", err)
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.CellSize.X <= 0 || opts.CellSize.Y <= 0 {
		opts.CellSize = image.Pt(DefaultCellWidth, DefaultCellHeight)
	}
	screen.HideCursor()
	screen.Clear()

	var p Presenter
	switch opts.Backend {
	case BackendKitty:
		var out io.Writer = opts.Out
		if tty, ok := screen.Tty(); ok {
			out = tty
		}
		if out == nil {
			out = os.Stdout
		}
		p = newKittyPresenter(out)
	case BackendCells, "":
		p = newCellsPresenter(screen)
	default:
		screen.Fini()
		return nil, errors.New("unknown backend: " + opts.Backend)
	}

	d := &Display{
		screen:    screen,
		presenter: p,
		opts:      opts,
		log:       opts.Log.With("component", "term", "backend", p.Name()),
		events:    make(chan Event, 16),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	d.geo = d.negotiate()
	screen.Show()
	go d.pump()
	return d, nil
}

func (d *Display) negotiate() Geometry {
	cols, rows := d.screen.Size()
	g := Geometry{
		Cols:       cols,
		Rows:       rows,
		CellWidth:  d.opts.CellSize.X,
		CellHeight: d.opts.CellSize.Y,
	}
	g.Width = max(0, min(d.opts.Width, cols*g.CellWidth))
	g.Height = max(0, min(d.opts.Height, rows*g.CellHeight))
	return g
}

func (d *Display) pump() {
	defer close(d.done)
	for {
		ev := d.screen.PollEvent()
		var out Event
		switch ev := ev.(type) {
		case nil:
			out = CloseEvent{Err: ErrScreenGone}
		case *tcell.EventResize:
			out = ConfigureEvent{Geometry: d.negotiate()}
		case *tcell.EventKey:
			k, ok := convertKey(ev)
			if !ok {
				continue
			}
			out = k
		case *tcell.EventError:
			out = CloseEvent{Err: ev}
		default:
			continue
		}
		select {
		case d.events <- out:
		case <-d.quit:
			return
		}
		if _, closed := out.(CloseEvent); closed {
			return
		}
	}
}

func convertKey(ev *tcell.EventKey) (KeyEvent, bool) {
	mods := ev.Modifiers()
	k := KeyEvent{Alt: mods&tcell.ModAlt != 0, Ctrl: mods&tcell.ModCtrl != 0}
	switch ev.Key() {
	case tcell.KeyRune:
		k.Key, k.Rune = KeyRune, ev.Rune()
		if k.Ctrl {
			k.Rune = unicode.ToLower(k.Rune)
		}
		return k, true
	case tcell.KeyEnter:
		k.Key, k.Ctrl = KeyEnter, false
	case tcell.KeyEscape:
		k.Key, k.Ctrl = KeyEscape, false
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		k.Key, k.Ctrl = KeyBackspace, false
	case tcell.KeyTab:
		k.Key, k.Ctrl = KeyTab, false
	case tcell.KeyUp:
		k.Key = KeyUp
	case tcell.KeyDown:
		k.Key = KeyDown
	case tcell.KeyPgUp:
		k.Key = KeyPgUp
	case tcell.KeyPgDn:
		k.Key = KeyPgDn
	case tcell.KeyHome:
		k.Key = KeyHome
	case tcell.KeyEnd:
		k.Key = KeyEnd
	default:
		if ev.Key() >= tcell.KeyCtrlA && ev.Key() <= tcell.KeyCtrlZ {
			k.Key = KeyRune
			k.Rune = rune('a' + int(ev.Key()-tcell.KeyCtrlA))
			k.Ctrl = true
			return k, true
		}
		return k, false
	}
	return k, true
}

func (d *Display) Events() <-chan Event { return d.events }

func (d *Display) Geometry() Geometry { return d.geo }

func (d *Display) Bounds() image.Rectangle { return d.geo.Bounds() }

// Configure adopts a geometry delivered by a ConfigureEvent.
func (d *Display) Configure(g Geometry) {
	d.geo = g
	d.damage = g.Bounds()
	if d.attached != nil && d.attached.Bounds() != g.Bounds() {
		d.attached = nil
	}
}

// Attach hands a buffer to the display. The buffer must not be written
// until the next Attach.
func (d *Display) Attach(img *image.RGBA) { d.attached = img }

func (d *Display) Damage(r image.Rectangle) { d.damage = d.damage.Union(r) }

// Commit presents the attached buffer. Without an attached buffer or any
// damage it does nothing.
func (d *Display) Commit() error {
	if d.attached == nil || d.damage.Empty() {
		return nil
	}
	if err := d.presenter.Present(d.attached, d.geo); err != nil {
		return fmt.Errorf("present frame: %w", err)
	}
	d.damage = image.Rectangle{}
	d.commits++
	return nil
}

func (d *Display) Commits() int { return d.commits }

func (d *Display) Backend() string { return d.presenter.Name() }

func (d *Display) Close() error {
	var err error
	d.once.Do(func() {
		close(d.quit)
		err = d.presenter.Clear()
		d.screen.Fini()
		<-d.done
		d.log.Debug("display closed", "commits", d.commits)
	})
	return err
}
