package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ck-zhang/runner/internal/config"
	"github.com/ck-zhang/runner/internal/entry"
	"github.com/ck-zhang/runner/internal/loop"
)

func TestParseFlags(t *testing.T) {
	o, err := parseFlags([]string{"-g", "work", "--query", "fi", "--list", "-b", "CELLS"})
	require.NoError(t, err)
	assert.Equal(t, "work", o.Group)
	assert.Equal(t, "fi", o.Query)
	assert.True(t, o.List)
	assert.Equal(t, "cells", o.Backend)

	o, err = parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, "auto", o.Backend)
	assert.Empty(t, o.Group)
}

func TestParseFlagsRejectsBadInput(t *testing.T) {
	for _, args := range [][]string{
		{"--backend", "sixel"},
		{"--nope"},
		{"stray"},
		{"--group", "  "},
	} {
		_, err := parseFlags(args)
		assert.Error(t, err, "%v", args)
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(loop.Launched, nil))
	assert.Equal(t, exitCancel, exitCode(loop.Cancelled, nil))
	assert.Equal(t, exitLaunch, exitCode(loop.Launched, errors.Join(loop.ErrLaunchFailed, errors.New("enoent"))))
	assert.Equal(t, exitUnavailable, exitCode(loop.Cancelled, loop.ErrSurfaceLost))
	assert.Equal(t, exitUnavailable, exitCode(loop.Cancelled, loop.ErrRender))
}

func TestTruncateMiddle(t *testing.T) {
	assert.Equal(t, "short", truncateMiddleDisp("short", 10))
	got := truncateMiddleDisp("abcdefghijklmnop", 9)
	assert.Equal(t, "abc...nop", got)
	assert.LessOrEqual(t, dispWidth(truncateMiddleDisp("日本語のアプリケーション名", 9)), 9)
	assert.Empty(t, truncateMiddleDisp("x", 0))
}

func TestWriteListAlignsColumns(t *testing.T) {
	var buf bytes.Buffer
	err := writeList(&buf, []entry.Entry{
		{Name: "Firefox", Command: "firefox %u", Kind: entry.KindDesktop},
		{Name: "ls", Command: "/usr/bin/ls", Kind: entry.KindBin},
		{Name: "Files", Command: "nautilus", Kind: entry.KindStatic, Container: "fedora"},
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, ""+
		"desktop  Firefox         firefox %u\n"+
		"bin      ls              /usr/bin/ls\n"+
		"static   Files (fedora)  nautilus\n", buf.String())
}

func TestWriteListCutsCommandToWidth(t *testing.T) {
	var buf bytes.Buffer
	err := writeList(&buf, []entry.Entry{{Name: "a", Command: strings.Repeat("x", 100), Kind: entry.KindBin}}, 20)
	require.NoError(t, err)
	line := strings.TrimSuffix(buf.String(), "\n")
	assert.LessOrEqual(t, dispWidth(line), 20)
	assert.True(t, strings.HasSuffix(line, "…"))
}

func writeExec(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"), 0o755))
}

func testApp(t *testing.T, g config.Group, query string) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Groups = map[string]config.Group{"test": g}
	cfg.General.DefaultGroup = "test"
	require.NoError(t, cfg.Validate())
	name, grp, err := cfg.Group("")
	require.NoError(t, err)
	return &App{
		Config:      cfg,
		GroupName:   name,
		Group:       grp,
		Options:     Options{Query: query, List: true},
		Log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		HistoryPath: filepath.Join(t.TempDir(), "history.db"),
	}
}

func TestRunListStaticShadowsBin(t *testing.T) {
	bin := t.TempDir()
	writeExec(t, bin, "x")
	writeExec(t, bin, "y")
	t.Setenv("PATH", bin)

	app := testApp(t, config.Group{
		Sources: []string{"static", "bin"},
		Items:   []config.Item{{Name: "x", Command: "echo static"}},
	}, "")
	var out bytes.Buffer
	code, err := app.RunList(context.Background(), &out)
	require.NoError(t, err)
	assert.Equal(t, exitOK, code)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "static"), lines[0])
	assert.Contains(t, lines[0], "echo static")
	assert.True(t, strings.HasPrefix(lines[1], "bin"), lines[1])
	assert.Contains(t, lines[1], filepath.Join(bin, "y"))
}

func TestRunListAppliesBlacklistAndQuery(t *testing.T) {
	app := testApp(t, config.Group{
		Sources:   []string{"static"},
		Blacklist: []string{"^rm$"},
		Items: []config.Item{
			{Name: "rm", Command: "rm"},
			{Name: "rmdir", Command: "rmdir"},
			{Name: "ls", Command: "ls"},
		},
	}, "rm")
	var out bytes.Buffer
	code, err := app.RunList(context.Background(), &out)
	require.NoError(t, err)
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "static  rmdir  rmdir\n", out.String())
}
