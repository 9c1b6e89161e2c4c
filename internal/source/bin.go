package source

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ck-zhang/runner/internal/entry"
)

// Bin offers every executable on $PATH. The first directory providing a
// name wins, as the shell would resolve it.
type Bin struct {
	// Path replaces $PATH when set.
	Path string
}

func (Bin) Kind() entry.Kind { return entry.KindBin }

func (b Bin) Scan(ctx context.Context) ([]entry.Entry, error) {
	path := b.Path
	if path == "" {
		path = os.Getenv("PATH")
	}
	seen := make(map[string]struct{})
	var out []entry.Entry
	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
		for _, exe := range executables(dir) {
			name := filepath.Base(exe)
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, entry.Entry{ID: name, Name: name, Command: quoteArg(exe)})
		}
	}
	return out, nil
}

// Scripts offers the executables of the user's scripts directory.
type Scripts struct {
	Dir string
}

func (Scripts) Kind() entry.Kind { return entry.KindScript }

func (s Scripts) Scan(context.Context) ([]entry.Entry, error) {
	if s.Dir == "" {
		return nil, nil
	}
	var out []entry.Entry
	for _, exe := range executables(s.Dir) {
		name := filepath.Base(exe)
		out = append(out, entry.Entry{ID: name, Name: name, Command: quoteArg(exe)})
	}
	return out, nil
}

// executables lists regular executable files in dir, sorted by name.
// Symlinks are followed; unreadable directories yield nothing.
func executables(dir string) []string {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, de := range des {
		p := filepath.Join(dir, de.Name())
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() || info.Mode().Perm()&0o111 == 0 {
			continue
		}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// quoteArg makes p survive shell-word splitting unchanged.
func quoteArg(p string) string {
	if p != "" && strings.IndexFunc(p, func(r rune) bool {
		return !(r == '/' || r == '.' || r == '-' || r == '_' || r == '+' || r == ',' || r == ':' || r == '@' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	}) < 0 {
		return p
	}
	return "'" + strings.ReplaceAll(p, "'", `'\''`) + "'"
}
