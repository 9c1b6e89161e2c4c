//go:build !windows

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/adrg/xdg"
	"github.com/spf13/pflag"
	xt "golang.org/x/term"

	"github.com/ck-zhang/runner/internal/config"
	"github.com/ck-zhang/runner/internal/loop"
)

var (
	version   = "0.0.0-dev"
	buildDate = ""
)

const (
	exitOK          = 0
	exitUsage       = 64
	exitConfig      = 65
	exitUnavailable = 69
	exitLaunch      = 71
	exitCancel      = 130
)

type Options struct {
	Group      string
	ConfigPath string
	Query      string
	List       bool
	Backend    string
	Debug      bool
	Version    bool
	Help       bool
}

const usage = `runner [--group NAME] [--query TEXT] [--list]

On-demand application launcher. Type to filter, Enter to launch.

Options:
  -g, --group NAME            Launch group from the config (default: general.default_group)
  -c, --config PATH           Config file (default: $XDG_CONFIG_HOME/runner/config.toml)
  -q, --query TEXT            Initial query
  -l, --list                  Print matching entries instead of opening the launcher
  -b, --backend auto|kitty|cells
                              Terminal graphics backend (default: auto)
  -d, --debug                 Debug logging
      --version               Print version and exit
  -h, --help                  Show this help text

Keys:
  type                        Filter
  Up / Down, Ctrl-P / Ctrl-N  Move selection
  PgUp / PgDn                 Move by a page
  Alt-1 .. Alt-9              Launch the numbered row
  Ctrl-U                      Clear the query
  Enter                       Launch selection
  Esc / Ctrl-C                Cancel

Environment:
  RUNNER_CONFIG               Config file path
  RUNNER_DEBUG                Debug logging when set

Exit status:
  0 launched, 64 usage or unknown group, 65 bad config,
  69 display unavailable, 71 launch failed, 130 cancelled`

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fatalUsage(exitUsage, "%v", err)
	}
	if opts.Help {
		fmt.Fprintln(os.Stdout, usage)
		os.Exit(exitOK)
	}
	if opts.Version {
		fmt.Fprintf(os.Stdout, "runner %s", version)
		if buildDate != "" {
			fmt.Fprintf(os.Stdout, " (%s)", buildDate)
		}
		fmt.Fprintln(os.Stdout)
		os.Exit(exitOK)
	}

	cfg, err := config.Load(config.Resolve(opts.ConfigPath))
	if err != nil {
		fatalUsage(exitConfig, "%v", err)
	}
	group, g, err := cfg.Group(opts.Group)
	if err != nil {
		fatalUsage(exitUsage, "%v (groups: %s)", err, strings.Join(cfg.GroupNames(), ", "))
	}

	interactive := !opts.List && isTerminal(os.Stdin.Fd()) && isTerminal(os.Stdout.Fd())
	log, closeLog := newLogger(opts.Debug, interactive)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	app := &App{Config: cfg, GroupName: group, Group: g, Options: opts, Log: log}
	var code int
	if interactive {
		code, err = app.RunInteractive(ctx)
	} else {
		code, err = app.RunList(ctx, os.Stdout)
	}
	stop()
	closeLog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "runner: %v\n", err)
	}
	os.Exit(code)
}

func parseFlags(args []string) (Options, error) {
	var o Options
	fs := pflag.NewFlagSet("runner", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVarP(&o.Group, "group", "g", "", "launch group")
	fs.StringVarP(&o.ConfigPath, "config", "c", "", "config file")
	fs.StringVarP(&o.Query, "query", "q", "", "initial query")
	fs.BoolVarP(&o.List, "list", "l", false, "print matches")
	fs.StringVarP(&o.Backend, "backend", "b", "auto", "graphics backend")
	fs.BoolVarP(&o.Debug, "debug", "d", false, "debug logging")
	fs.BoolVar(&o.Version, "version", false, "print version")
	fs.BoolVarP(&o.Help, "help", "h", false, "show help")
	if err := fs.Parse(args); err != nil {
		return Options{}, err
	}
	if fs.NArg() > 0 {
		return Options{}, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	switch strings.ToLower(strings.TrimSpace(o.Backend)) {
	case "auto", "kitty", "cells":
		o.Backend = strings.ToLower(strings.TrimSpace(o.Backend))
	default:
		return Options{}, fmt.Errorf("invalid backend %q (expected auto, kitty, or cells)", o.Backend)
	}
	if o.Group != "" && strings.TrimSpace(o.Group) == "" {
		return Options{}, errors.New("--group must not be blank")
	}
	return o, nil
}

func fatalUsage(code int, format string, a ...any) {
	fmt.Fprintf(os.Stderr, "runner: "+format+"\n", a...)
	os.Exit(code)
}

// exitCode maps how the loop ended to the process status.
func exitCode(out loop.Outcome, err error) int {
	switch {
	case err == nil && out == loop.Launched:
		return exitOK
	case err == nil:
		return exitCancel
	case errors.Is(err, loop.ErrLaunchFailed):
		return exitLaunch
	default:
		return exitUnavailable
	}
}

// newLogger writes to stderr, or to the state directory when the terminal
// belongs to the launcher surface.
func newLogger(debug, toFile bool) (*slog.Logger, func()) {
	level := slog.LevelInfo
	if debug || os.Getenv("RUNNER_DEBUG") != "" {
		level = slog.LevelDebug
	}
	var w io.Writer = os.Stderr
	closeFn := func() {}
	if toFile {
		w = io.Discard
		if path, err := xdg.StateFile("runner/runner.log"); err == nil {
			if f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600); err == nil {
				w = f
				closeFn = func() { _ = f.Close() }
			}
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), closeFn
}

func isTerminal(fd uintptr) bool { return xt.IsTerminal(int(fd)) }
