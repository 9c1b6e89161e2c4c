// Package source produces launch candidates. Every kind of candidate has a
// Scanner; the Aggregator runs the enabled ones concurrently.
package source

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"

	"github.com/ck-zhang/runner/internal/config"
	"github.com/ck-zhang/runner/internal/entry"
)

type Scanner interface {
	Kind() entry.Kind
	Scan(ctx context.Context) ([]entry.Entry, error)
}

// HistoryReader is the part of the history store the history scanner needs.
type HistoryReader interface {
	Top(ctx context.Context, group string, limit int) ([]entry.Entry, error)
}

// Deps carries the collaborators and settings scanners are built from.
type Deps struct {
	History     HistoryReader
	HistorySize int
	ScriptsDir  string
	// DataDirs are searched for applications/; defaults to XDG data home
	// followed by XDG data dirs.
	DataDirs []string
	// Path overrides $PATH for the bin scanner when non-empty.
	Path string
}

func DataDirs() []string {
	dirs := []string{xdg.DataHome}
	for _, d := range xdg.DataDirs {
		if d != xdg.DataHome {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// ForGroup builds the scanners for the group's enabled kinds, in order.
func ForGroup(name string, g config.Group, deps Deps) ([]Scanner, error) {
	kinds, err := g.Kinds()
	if err != nil {
		return nil, err
	}
	scanners := make([]Scanner, 0, len(kinds))
	for _, k := range kinds {
		switch k {
		case entry.KindStatic:
			scanners = append(scanners, Static{Items: g.Items})
		case entry.KindHistory:
			scanners = append(scanners, History{Store: deps.History, Group: name, Limit: deps.HistorySize})
		case entry.KindDesktop:
			dirs := deps.DataDirs
			if len(dirs) == 0 {
				dirs = DataDirs()
			}
			apps := make([]string, len(dirs))
			for i, d := range dirs {
				apps[i] = filepath.Join(d, "applications")
			}
			scanners = append(scanners, Desktop{Dirs: apps})
		case entry.KindBin:
			scanners = append(scanners, Bin{Path: deps.Path})
		case entry.KindScript:
			scanners = append(scanners, Scripts{Dir: deps.ScriptsDir})
		default:
			return nil, fmt.Errorf("no scanner for kind %s", k)
		}
	}
	return scanners, nil
}

// Static turns items declared in the configuration into entries.
type Static struct {
	Items []config.Item
}

func (Static) Kind() entry.Kind { return entry.KindStatic }

func (s Static) Scan(context.Context) ([]entry.Entry, error) {
	out := make([]entry.Entry, 0, len(s.Items))
	for _, it := range s.Items {
		id := strings.TrimSpace(it.ID)
		if id == "" {
			id = it.Name
		}
		out = append(out, entry.Entry{
			ID:       id,
			Name:     it.Name,
			Command:  it.Command,
			Icon:     it.Icon,
			Terminal: it.Terminal,
			Env:      it.Env,
		})
	}
	return out, nil
}

// History offers the most used entries of the group.
type History struct {
	Store HistoryReader
	Group string
	Limit int
}

func (History) Kind() entry.Kind { return entry.KindHistory }

func (h History) Scan(ctx context.Context) ([]entry.Entry, error) {
	if h.Store == nil || h.Limit <= 0 {
		return nil, nil
	}
	return h.Store.Top(ctx, h.Group, h.Limit)
}
