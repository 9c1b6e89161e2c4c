package main

import (
	"bufio"
	"io"
	"os"
	"strings"

	runewidth "github.com/mattn/go-runewidth"
	xt "golang.org/x/term"

	"github.com/ck-zhang/runner/internal/entry"
)

const (
	maxNameWidth = 40
	columnGap    = "  "
)

func terminalWidth() int {
	if !isTerminal(os.Stdout.Fd()) {
		return 0
	}
	w, _, err := xt.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0
	}
	return w
}

// writeList prints kind, name and command columns. Names longer than the
// name column are cut in the middle; with a known terminal width the
// command is cut to fit.
func writeList(w io.Writer, entries []entry.Entry, width int) error {
	kindW, nameW := 0, 0
	for _, e := range entries {
		kindW = max(kindW, dispWidth(e.Kind.String()))
		nameW = max(nameW, dispWidth(sanitizePrintable(e.Title())))
	}
	nameW = min(nameW, maxNameWidth)

	bw := bufio.NewWriter(w)
	for _, e := range entries {
		line := padRightToWidth(e.Kind.String(), kindW) + columnGap +
			padRightToWidth(truncateMiddleDisp(e.Title(), nameW), nameW) + columnGap
		cmd := sanitizePrintable(e.Command)
		if width > 0 {
			cmd = runewidth.Truncate(cmd, max(0, width-dispWidth(line)), "…")
		}
		if _, err := bw.WriteString(strings.TrimRight(line+cmd, " ") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func sanitizePrintable(s string) string {
	rs := []rune(s)
	b := make([]rune, 0, len(rs))
	for _, r := range rs {
		if r < 0x20 || r == 0x7f {
			b = append(b, ' ')
		} else {
			b = append(b, r)
		}
	}
	return string(b)
}

func dispWidth(s string) int { return runewidth.StringWidth(s) }

func truncateMiddleDisp(s string, width int) string {
	s = sanitizePrintable(s)
	if width <= 0 {
		return ""
	}
	if dispWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	avail := width - 3
	left := avail / 2
	right := avail - left
	rs := []rune(s)

	var head strings.Builder
	w := 0
	for _, r := range rs {
		rw := runewidth.RuneWidth(r)
		if w+rw > left {
			break
		}
		head.WriteRune(r)
		w += rw
	}

	tail := make([]rune, 0, len(rs))
	w = 0
	for i := len(rs) - 1; i >= 0; i-- {
		rw := runewidth.RuneWidth(rs[i])
		if w+rw > right {
			break
		}
		tail = append(tail, rs[i])
		w += rw
	}
	for i, j := 0, len(tail)-1; i < j; i, j = i+1, j-1 {
		tail[i], tail[j] = tail[j], tail[i]
	}
	return head.String() + "..." + string(tail)
}

func padRightToWidth(s string, w int) string {
	sw := dispWidth(s)
	if sw >= w {
		if sw == w {
			return s
		}
		return runewidth.Truncate(s, w, "")
	}
	return s + strings.Repeat(" ", w-sw)
}
