package source

import (
	"bufio"
	"context"
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ck-zhang/runner/internal/entry"
)

// Desktop scans applications directories for .desktop files. Earlier
// directories shadow later ones by desktop file ID, including hidden files.
type Desktop struct {
	Dirs []string
}

func (Desktop) Kind() entry.Kind { return entry.KindDesktop }

func (d Desktop) Scan(ctx context.Context) ([]entry.Entry, error) {
	seen := make(map[string]struct{})
	var out []entry.Entry
	for _, dir := range d.Dirs {
		err := filepath.WalkDir(dir, func(path string, de fs.DirEntry, err error) error {
			if err != nil {
				if path == dir {
					return fs.SkipDir
				}
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if de.IsDir() || !strings.HasSuffix(de.Name(), ".desktop") {
				return nil
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return nil
			}
			id := DesktopID(rel)
			if _, dup := seen[id]; dup {
				return nil
			}
			seen[id] = struct{}{}

			f, err := os.Open(path)
			if err != nil {
				return nil
			}
			app, ok := parseDesktop(bufio.NewScanner(f))
			f.Close()
			if !ok || !app.visible() {
				return nil
			}
			out = append(out, entry.Entry{
				ID:        id,
				Name:      app.name,
				Command:   app.exec,
				Icon:      app.icon,
				Terminal:  app.terminal,
				Container: containerHint(app.exec),
			})
			return nil
		})
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return out, err
		}
	}
	return out, nil
}

// DesktopID derives the desktop file ID from a path relative to an
// applications directory: "kde/konsole.desktop" becomes "kde-konsole".
func DesktopID(rel string) string {
	rel = strings.TrimSuffix(filepath.ToSlash(rel), ".desktop")
	return strings.ReplaceAll(rel, "/", "-")
}

type desktopApp struct {
	typ       string
	name      string
	exec      string
	tryExec   string
	icon      string
	terminal  bool
	noDisplay bool
	hidden    bool
}

func (a desktopApp) visible() bool {
	if a.noDisplay || a.hidden || a.name == "" || a.exec == "" {
		return false
	}
	if a.typ != "" && a.typ != "Application" {
		return false
	}
	if a.tryExec != "" {
		if _, err := exec.LookPath(a.tryExec); err != nil {
			return false
		}
	}
	return true
}

func parseDesktop(sc *bufio.Scanner) (desktopApp, bool) {
	var app desktopApp
	inEntry, found := false, false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			if inEntry {
				break
			}
			inEntry = line == "[Desktop Entry]"
			found = found || inEntry
			continue
		}
		if !inEntry {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = unescapeValue(strings.TrimSpace(value))
		switch key {
		case "Type":
			app.typ = value
		case "Name":
			app.name = value
		case "Exec":
			app.exec = stripFieldCodes(value)
		case "TryExec":
			app.tryExec = value
		case "Icon":
			app.icon = value
		case "Terminal":
			app.terminal = value == "true"
		case "NoDisplay":
			app.noDisplay = value == "true"
		case "Hidden":
			app.hidden = value == "true"
		}
	}
	return app, found
}

func unescapeValue(v string) string {
	if !strings.Contains(v, `\`) {
		return v
	}
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		if v[i] != '\\' || i+1 == len(v) {
			b.WriteByte(v[i])
			continue
		}
		i++
		switch v[i] {
		case 's':
			b.WriteByte(' ')
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte('\\')
			b.WriteByte(v[i])
		}
	}
	return b.String()
}

// stripFieldCodes removes %f, %U and friends from an Exec value; "%%"
// becomes a literal percent sign. Arguments are separated by single spaces
// and quoted text is kept as written.
func stripFieldCodes(cmdline string) string {
	var args []string
	for _, tok := range execTokens(cmdline) {
		if arg := expandFieldCodes(tok); arg != "" {
			args = append(args, arg)
		}
	}
	return strings.Join(args, " ")
}

// execTokens splits cmdline at unquoted whitespace, keeping each token's
// raw text including its quotes and escapes.
func execTokens(cmdline string) []string {
	var (
		toks  []string
		start = -1
		quote byte
	)
	for i := 0; i < len(cmdline); i++ {
		c := cmdline[i]
		if quote == 0 && (c == ' ' || c == '\t' || c == '\n') {
			if start >= 0 {
				toks = append(toks, cmdline[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
		switch {
		case c == '\\' && quote != '\'' && i+1 < len(cmdline):
			i++
		case quote == 0 && (c == '"' || c == '\''):
			quote = c
		case c == quote:
			quote = 0
		}
	}
	if start >= 0 {
		toks = append(toks, cmdline[start:])
	}
	return toks
}

func expandFieldCodes(tok string) string {
	var b strings.Builder
	for i := 0; i < len(tok); i++ {
		if tok[i] != '%' || i+1 == len(tok) {
			b.WriteByte(tok[i])
			continue
		}
		i++
		switch tok[i] {
		case '%':
			b.WriteByte('%')
		case 'f', 'F', 'u', 'U', 'd', 'D', 'n', 'N', 'i', 'c', 'k', 'v', 'm':
		default:
			b.WriteByte('%')
			b.WriteByte(tok[i])
		}
	}
	return b.String()
}

// containerHint names the distrobox or toolbox container an Exec line
// enters, if any.
func containerHint(cmdline string) string {
	fields := strings.Fields(cmdline)
	var flags []string
	switch {
	case strings.Contains(cmdline, "distrobox-enter"):
		flags = []string{"-n", "--name"}
	case strings.Contains(cmdline, "toolbox run"):
		flags = []string{"-c", "--container"}
	default:
		return ""
	}
	for i, f := range fields {
		for _, flag := range flags {
			if f == flag && i+1 < len(fields) {
				return fields[i+1]
			}
			if v, ok := strings.CutPrefix(f, flag+"="); ok && flag[1] == '-' {
				return v
			}
		}
	}
	return ""
}
