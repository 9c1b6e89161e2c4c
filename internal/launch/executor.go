// Package launch starts the chosen entry as a detached process.
package launch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"syscall"

	"github.com/mattn/go-shellwords"

	"github.com/ck-zhang/runner/internal/entry"
)

var ErrEmptyCommand = errors.New("empty command")

// Recorder persists successful launches. history.Store implements it.
type Recorder interface {
	Record(ctx context.Context, group string, e entry.Entry) error
	Prune(ctx context.Context, group string, keep int) (int64, error)
}

type Options struct {
	// Terminal is the command prefix for entries that need a terminal,
	// e.g. "foot -e".
	Terminal string
	// Env is the active group's environment overlay.
	Env map[string]string
	// Dir is the working directory; empty means the home directory.
	Dir string

	History     Recorder
	HistorySize int
	Log         *slog.Logger
}

// Plan is a fully composed launch.
type Plan struct {
	Argv []string
	Env  []string
	Dir  string
}

type Executor struct {
	opts    Options
	log     *slog.Logger
	environ func() []string
	start   func(*exec.Cmd) error
}

func New(opts Options) *Executor {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			opts.Dir = home
		}
	}
	return &Executor{
		opts:    opts,
		log:     opts.Log.With("component", "launch"),
		environ: os.Environ,
		start:   startDetached,
	}
}

// Compose overlays each map onto inherited in turn. Existing keys keep
// their position; new keys are appended in sorted order.
func Compose(inherited []string, overlays ...map[string]string) []string {
	out := make([]string, 0, len(inherited))
	index := make(map[string]int, len(inherited))
	for _, kv := range inherited {
		k, _, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		if i, dup := index[k]; dup {
			out[i] = kv
			continue
		}
		index[k] = len(out)
		out = append(out, kv)
	}
	for _, m := range overlays {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			kv := k + "=" + m[k]
			if i, ok := index[k]; ok {
				out[i] = kv
				continue
			}
			index[k] = len(out)
			out = append(out, kv)
		}
	}
	return out
}

// Argv tokenises e's command. Terminal entries get the command as a single
// argument after the terminal prefix.
func (x *Executor) Argv(e entry.Entry) ([]string, error) {
	if strings.TrimSpace(e.Command) == "" {
		return nil, ErrEmptyCommand
	}
	if e.Terminal {
		if strings.TrimSpace(x.opts.Terminal) != "" {
			prefix, err := shellwords.Parse(x.opts.Terminal)
			if err != nil {
				return nil, fmt.Errorf("parse terminal %q: %w", x.opts.Terminal, err)
			}
			return append(prefix, e.Command), nil
		}
		x.log.Warn("entry wants a terminal but general.terminal is unset", "id", e.ID)
	}
	argv, err := shellwords.Parse(e.Command)
	if err != nil {
		return nil, fmt.Errorf("parse command %q: %w", e.Command, err)
	}
	if len(argv) == 0 {
		return nil, ErrEmptyCommand
	}
	return argv, nil
}

func (x *Executor) Plan(e entry.Entry) (Plan, error) {
	argv, err := x.Argv(e)
	if err != nil {
		return Plan{}, err
	}
	return Plan{
		Argv: argv,
		Env:  Compose(x.environ(), x.opts.Env, e.Env),
		Dir:  x.opts.Dir,
	}, nil
}

// Launch starts e in its own session and records it in history. The
// child is released and outlives the launcher.
func (x *Executor) Launch(ctx context.Context, e entry.Entry) error {
	p, err := x.Plan(e)
	if err != nil {
		return fmt.Errorf("launch %s: %w", e.ID, err)
	}
	cmd := exec.Command(p.Argv[0], p.Argv[1:]...)
	cmd.Env = p.Env
	cmd.Dir = p.Dir
	if err := x.start(cmd); err != nil {
		return fmt.Errorf("launch %s: %w", e.ID, err)
	}
	x.log.Info("launched", "id", e.ID, "kind", e.Kind, "argv", p.Argv)

	if x.opts.History == nil {
		return nil
	}
	if err := x.opts.History.Record(ctx, e.Group, e); err != nil {
		x.log.Warn("record history", "id", e.ID, "err", err)
		return nil
	}
	if x.opts.HistorySize > 0 {
		if n, err := x.opts.History.Prune(ctx, e.Group, x.opts.HistorySize); err != nil {
			x.log.Warn("prune history", "err", err)
		} else if n > 0 {
			x.log.Debug("pruned history", "removed", n)
		}
	}
	return nil
}

func startDetached(cmd *exec.Cmd) error {
	cmd.Stdin, cmd.Stdout, cmd.Stderr = nil, nil, nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
