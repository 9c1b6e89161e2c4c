// Package loop is the single goroutine that owns the session: it selects
// over display events, scan results and icon responses, applies them to
// the state and draws whenever the state is dirty.
package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode"

	"github.com/ck-zhang/runner/internal/entry"
	"github.com/ck-zhang/runner/internal/icon"
	"github.com/ck-zhang/runner/internal/session"
	"github.com/ck-zhang/runner/internal/source"
	"github.com/ck-zhang/runner/internal/term"
)

var (
	ErrSurfaceLost  = errors.New("display surface lost")
	ErrRender       = errors.New("render failed")
	ErrLaunchFailed = errors.New("launch failed")
)

type Outcome int

const (
	Cancelled Outcome = iota
	Launched
)

func (o Outcome) String() string {
	if o == Launched {
		return "launched"
	}
	return "cancelled"
}

type Phase int

const (
	Idle Phase = iota
	Dispatching
	Rendering
	Launching
	ClosedByUser
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Dispatching:
		return "dispatching"
	case Rendering:
		return "rendering"
	case Launching:
		return "launching"
	case ClosedByUser:
		return "closed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Display is the event side of the surface.
type Display interface {
	Events() <-chan term.Event
	Configure(g term.Geometry)
}

// Framer draws dirty state; render.Pipeline implements it.
type Framer interface {
	Frame(st *session.State) (bool, error)
	Shown() (first, rows int)
}

type Launcher interface {
	Launch(ctx context.Context, e entry.Entry) error
}

// IconStore receives resolved icons; icon.Cache implements it.
type IconStore interface {
	Store(resp icon.Response) bool
}

type Loop struct {
	State    *session.State
	Display  Display
	Frames   Framer
	Launcher Launcher

	Results       <-chan source.Result
	Icons         IconStore
	IconResponses <-chan icon.Response

	Log *slog.Logger

	phase     Phase
	launched  entry.Entry
	didLaunch bool
}

func (l *Loop) Phase() Phase { return l.phase }

// Launched returns the entry handed to the launcher, if any.
func (l *Loop) Launched() (entry.Entry, bool) {
	return l.launched, l.didLaunch
}

// Run drives the session until the user launches an entry or cancels. A
// launch error is wrapped in ErrLaunchFailed; a lost or unrenderable
// surface ends the loop with ErrSurfaceLost or ErrRender.
func (l *Loop) Run(ctx context.Context) (Outcome, error) {
	if l.Log == nil {
		l.Log = slog.Default()
	}
	log := l.Log.With("component", "loop")
	var events <-chan term.Event
	if l.Display != nil {
		events = l.Display.Events()
	}
	results := l.Results
	iconResp := l.IconResponses

	for {
		if l.State.Dirty() {
			l.phase = Rendering
			if _, err := l.Frames.Frame(l.State); err != nil {
				return Cancelled, fmt.Errorf("%w: %w", ErrRender, err)
			}
		}
		l.phase = Idle

		var act action
		select {
		case <-ctx.Done():
			l.phase = ClosedByUser
			log.Debug("context done", "err", ctx.Err())
			return Cancelled, nil
		case ev, ok := <-events:
			if !ok {
				return Cancelled, ErrSurfaceLost
			}
			l.phase = Dispatching
			var err error
			act, err = l.handleEvent(ev)
			if err != nil {
				return Cancelled, err
			}
		case res, ok := <-results:
			if !ok {
				results = nil
				log.Debug("all sources delivered", "entries", l.State.Total())
				continue
			}
			l.phase = Dispatching
			if res.Err == nil {
				n := l.State.Merge(res.Entries)
				log.Debug("merged", "kind", res.Kind.String(), "new", n, "view", len(l.State.View()))
			}
		case resp, ok := <-iconResp:
			if !ok {
				iconResp = nil
				continue
			}
			l.phase = Dispatching
			if l.Icons != nil && l.Icons.Store(resp) {
				l.State.MarkDirty()
			} else if resp.Err != nil {
				log.Debug("icon unavailable", "ref", resp.Ref, "err", resp.Err)
			}
		}

		switch act {
		case actClose:
			l.phase = ClosedByUser
			return Cancelled, nil
		case actLaunch:
			e, ok := l.State.Selected()
			if !ok {
				continue
			}
			l.phase = Launching
			l.launched, l.didLaunch = e, true
			if err := l.Launcher.Launch(ctx, e); err != nil {
				return Launched, fmt.Errorf("%w: %w", ErrLaunchFailed, err)
			}
			return Launched, nil
		}
	}
}

type action int

const (
	actNone action = iota
	actClose
	actLaunch
)

func (l *Loop) handleEvent(ev term.Event) (action, error) {
	switch ev := ev.(type) {
	case term.ConfigureEvent:
		if l.Display != nil {
			l.Display.Configure(ev.Geometry)
		}
		l.State.MarkDirty()
	case term.CloseEvent:
		if ev.Err != nil {
			return actNone, fmt.Errorf("%w: %w", ErrSurfaceLost, ev.Err)
		}
		return actClose, nil
	case term.KeyEvent:
		return l.handleKey(ev), nil
	}
	return actNone, nil
}

func (l *Loop) handleKey(k term.KeyEvent) action {
	st := l.State
	switch k.Key {
	case term.KeyEscape:
		return actClose
	case term.KeyEnter:
		return actLaunch
	case term.KeyBackspace:
		if k.Alt {
			st.Clear()
		} else {
			st.Backspace()
		}
	case term.KeyUp:
		st.MoveSelection(-1)
	case term.KeyDown, term.KeyTab:
		st.MoveSelection(1)
	case term.KeyPgUp:
		st.MoveSelection(-l.page())
	case term.KeyPgDn:
		st.MoveSelection(l.page())
	case term.KeyHome:
		st.Select(0)
	case term.KeyEnd:
		st.Select(len(st.View()) - 1)
	case term.KeyRune:
		switch {
		case k.Ctrl:
			return l.handleCtrl(k.Rune)
		case k.Alt:
			return l.handleHint(k.Rune)
		case unicode.IsPrint(k.Rune):
			st.Insert(k.Rune)
		}
	}
	return actNone
}

func (l *Loop) handleCtrl(r rune) action {
	st := l.State
	switch r {
	case 'c':
		return actClose
	case 'u':
		st.Clear()
	case 'p', 'k':
		st.MoveSelection(-1)
	case 'n', 'j':
		st.MoveSelection(1)
	case 'h':
		st.Backspace()
	}
	return actNone
}

// handleHint launches the row labelled r in the last frame.
func (l *Loop) handleHint(r rune) action {
	if r < '1' || r > '9' {
		return actNone
	}
	first, rows := l.Frames.Shown()
	n := int(r - '1')
	if n >= rows || first+n >= len(l.State.View()) {
		return actNone
	}
	l.State.Select(first + n)
	return actLaunch
}

func (l *Loop) page() int {
	_, rows := l.Frames.Shown()
	return max(1, rows)
}
