package term

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"
	xt "golang.org/x/term"
)

const (
	BackendKitty = "kitty"
	BackendCells = "cells"
)

// Presenter shows a finished frame on the terminal.
type Presenter interface {
	Name() string
	Present(img *image.RGBA, geo Geometry) error
	Clear() error
}

// Detect resolves a backend preference to a concrete presenter name. It
// must run before the screen takes over the terminal.
func Detect(pref string) (string, error) {
	p := strings.ToLower(strings.TrimSpace(pref))
	switch p {
	case BackendKitty:
		if kittyProtocolAvailable(75 * time.Millisecond) {
			return BackendKitty, nil
		}
		return "", errors.New("kitty graphics protocol not available")
	case "auto", "":
		if kittyProtocolAvailable(75 * time.Millisecond) {
			return BackendKitty, nil
		}
		return BackendCells, nil
	case BackendCells:
		return BackendCells, nil
	default:
		return "", errors.New("unknown backend: " + pref)
	}
}

// kittyQueryID is used only for the capability query so the answer can be
// told apart from replies about the displayed frame (kittyImageID).
const kittyQueryID = 31

// kittyQuery asks the terminal to validate a 1x1 RGBA image without storing
// it, then sends a primary device attributes request. Terminals without
// graphics support answer only the latter, which ends the wait early.
var kittyQuery = fmt.Sprintf("\x1b_Gi=%d,s=1,v=1,a=q,t=d,f=32;AAAAAA==\x1b\\\x1b[c", kittyQueryID)

func kittyProtocolAvailable(timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = 50 * time.Millisecond
	}
	in, out := os.Stdin, os.Stdout
	if in == nil || out == nil {
		return false
	}
	fdIn := int(in.Fd())
	if !xt.IsTerminal(fdIn) || !xt.IsTerminal(int(out.Fd())) {
		return false
	}
	state, err := xt.MakeRaw(fdIn)
	if err != nil {
		return false
	}
	defer func() { _ = xt.Restore(fdIn, state) }()

	if _, err := io.WriteString(out, kittyQuery); err != nil {
		return false
	}
	_ = out.Sync()

	var reply bytes.Buffer
	err = readTTY(fdIn, time.Now().Add(timeout), func(b []byte) bool {
		reply.Write(b)
		_, done := parseKittyReply(reply.Bytes())
		return done
	})
	if err != nil {
		return false
	}
	ok, _ := parseKittyReply(reply.Bytes())
	return ok
}

// parseKittyReply scans what the terminal sent back to kittyQuery. ok is
// true once the graphics reply for kittyQueryID says OK; done is true once
// nothing more is worth waiting for.
func parseKittyReply(b []byte) (ok, done bool) {
	prefix := []byte(fmt.Sprintf("\x1b_Gi=%d;", kittyQueryID))
	if i := bytes.Index(b, prefix); i >= 0 {
		rest := b[i+len(prefix):]
		if end := bytes.Index(rest, []byte("\x1b\\")); end >= 0 {
			return bytes.Equal(rest[:end], []byte("OK")), true
		}
	}
	if i := bytes.Index(b, []byte("\x1b[?")); i >= 0 && bytes.IndexByte(b[i:], 'c') >= 0 {
		return false, true
	}
	return false, false
}

// readTTY feeds bytes from the non-blocking fd to fn until fn returns true
// or the deadline passes. The fd's flags are restored afterwards.
func readTTY(fd int, deadline time.Time, fn func([]byte) bool) error {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		return err
	}
	defer func() { _, _ = unix.FcntlInt(uintptr(fd), unix.F_SETFL, flags) }()
	if err := unix.SetNonblock(fd, true); err != nil {
		return err
	}
	buf := make([]byte, 512)
	for {
		wait := time.Until(deadline)
		if wait <= 0 {
			return nil
		}
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		if _, err := unix.Poll(fds, max(1, int(wait/time.Millisecond))); err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return err
		}
		if fds[0].Revents&unix.POLLIN == 0 {
			continue
		}
		n, err := unix.Read(fd, buf)
		if n > 0 && fn(buf[:n]) {
			return nil
		}
		if err != nil && !errors.Is(err, unix.EAGAIN) {
			return err
		}
	}
}

// CellSize reports the pixel size of one terminal cell from TIOCGWINSZ.
// ok is false when the terminal does not report pixel dimensions.
func CellSize(f *os.File) (w, h int, ok bool) {
	if f == nil {
		return 0, 0, false
	}
	ws, err := unix.IoctlGetWinsize(int(f.Fd()), unix.TIOCGWINSZ)
	if err != nil || ws.Col == 0 || ws.Row == 0 || ws.Xpixel == 0 || ws.Ypixel == 0 {
		return 0, 0, false
	}
	return int(ws.Xpixel) / int(ws.Col), int(ws.Ypixel) / int(ws.Row), true
}
