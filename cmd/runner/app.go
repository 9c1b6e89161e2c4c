package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/ck-zhang/runner/internal/config"
	"github.com/ck-zhang/runner/internal/history"
	"github.com/ck-zhang/runner/internal/icon"
	"github.com/ck-zhang/runner/internal/launch"
	"github.com/ck-zhang/runner/internal/loop"
	"github.com/ck-zhang/runner/internal/match"
	"github.com/ck-zhang/runner/internal/render"
	"github.com/ck-zhang/runner/internal/session"
	"github.com/ck-zhang/runner/internal/source"
	"github.com/ck-zhang/runner/internal/term"
)

const (
	iconWorkers = 4
	iconQueue   = 64
)

// App wires one invocation together.
type App struct {
	Config    *config.Config
	GroupName string
	Group     config.Group
	Options   Options
	Log       *slog.Logger

	// HistoryPath overrides the default database location.
	HistoryPath string
}

func (a *App) openHistory() *history.Store {
	path := a.HistoryPath
	if path == "" {
		path = history.DefaultPath()
	}
	store, err := history.Open(path)
	if err != nil {
		a.Log.Warn("history unavailable", "path", path, "err", err)
		return nil
	}
	return store
}

func (a *App) engine(ctx context.Context, store *history.Store) *match.Engine {
	// Patterns were compiled once already by Validate.
	white, _ := config.CompilePatterns(a.Group.Whitelist)
	black, _ := config.CompilePatterns(a.Group.Blacklist)
	m := match.NewEngine(match.Filter{Whitelist: white, Blacklist: black}, a.Config.General.HistoryWeight)
	if store != nil {
		uses, err := store.Uses(ctx, a.GroupName)
		if err != nil {
			a.Log.Warn("read usage counts", "err", err)
		}
		m.Usage = uses
	}
	return m
}

func (a *App) aggregator(store *history.Store) (*source.Aggregator, error) {
	deps := source.Deps{
		HistorySize: a.Config.General.HistorySize,
		ScriptsDir:  a.Config.General.ScriptsDir,
	}
	if store != nil {
		deps.History = store
	}
	scanners, err := source.ForGroup(a.GroupName, a.Group, deps)
	if err != nil {
		return nil, err
	}
	return source.NewAggregator(a.GroupName, scanners, a.Log), nil
}

// RunList prints the ranked entries for the initial query.
func (a *App) RunList(ctx context.Context, w io.Writer) (int, error) {
	store := a.openHistory()
	defer store.Close()

	agg, err := a.aggregator(store)
	if err != nil {
		return exitConfig, err
	}
	cat, err := agg.Collect(ctx)
	if err != nil {
		return exitUnavailable, err
	}
	view := a.engine(ctx, store).Rank(cat.Entries(), a.Options.Query)
	if err := writeList(w, view, terminalWidth()); err != nil {
		return exitUnavailable, fmt.Errorf("write list: %w", err)
	}
	return exitOK, nil
}

// RunInteractive shows the launcher and blocks until an entry is launched
// or the user cancels.
func (a *App) RunInteractive(ctx context.Context) (int, error) {
	store := a.openHistory()
	defer store.Close()

	agg, err := a.aggregator(store)
	if err != nil {
		return exitConfig, err
	}
	backend, err := term.Detect(a.Options.Backend)
	if err != nil {
		return exitUnavailable, err
	}
	display, err := term.Open(term.Options{
		Backend: backend,
		Width:   a.Config.Theme.Width,
		Height:  a.Config.Theme.Height,
		Log:     a.Log,
	})
	if err != nil {
		return exitUnavailable, err
	}
	defer display.Close()

	raster := icon.NewRasterizer(filepath.Join(xdg.CacheHome, "runner", "icons"), a.Log)
	loader := icon.NewLoader(icon.NewResolver(a.Config.General.IconSize, raster), iconWorkers, iconQueue)
	defer loader.Close()
	cache := icon.NewCache(loader)

	renderer, err := render.NewRenderer(render.StyleFromTheme(a.Config.Theme, a.Config.General.IconSize), cache)
	if err != nil {
		return exitUnavailable, err
	}

	st := session.New(a.GroupName, a.engine(ctx, store))
	if a.Options.Query != "" {
		st.SetQuery(a.Options.Query)
	}
	results, err := agg.Start(ctx)
	if err != nil {
		return exitUnavailable, err
	}

	lopts := launch.Options{
		Terminal:    a.Config.General.Terminal,
		Env:         a.Group.Env,
		HistorySize: a.Config.General.HistorySize,
		Log:         a.Log,
	}
	if store != nil {
		lopts.History = store
	}
	l := &loop.Loop{
		State:         st,
		Display:       display,
		Frames:        render.NewPipeline(display, renderer, a.Log),
		Launcher:      launch.New(lopts),
		Results:       results,
		Icons:         cache,
		IconResponses: loader.Responses(),
		Log:           a.Log,
	}
	out, err := l.Run(ctx)
	a.Log.Info("session ended", "outcome", out.String(), "phase", l.Phase().String(), "err", err)
	return exitCode(out, err), err
}
