package icon

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	cacheVersion = "icon-v1"

	defaultToolTimeout = 5 * time.Second
)

// Rasterizer turns vector and legacy icon formats into PNG files using
// whichever external tool is installed. Outputs are cached by content key.
type Rasterizer struct {
	CacheDir string
	Log      *slog.Logger
	// Timeout bounds each tool run.
	Timeout time.Duration

	lookPath func(string) (string, error)
	command  func(ctx context.Context, name string, args ...string) *exec.Cmd
}

func NewRasterizer(cacheDir string, log *slog.Logger) *Rasterizer {
	if log == nil {
		log = slog.Default()
	}
	return &Rasterizer{
		CacheDir: cacheDir,
		Log:      log,
		Timeout:  defaultToolTimeout,
		lookPath: exec.LookPath,
		command:  exec.CommandContext,
	}
}

func (r *Rasterizer) hasExec(name string) bool {
	_, err := r.lookPath(name)
	return err == nil
}

// Rasterize renders path at size×size and returns the PNG's location.
func (r *Rasterizer) Rasterize(path string, size int) (string, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		a, _ := filepath.Abs(path)
		abs = a
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	key := cacheKey(abs, size, info.ModTime(), info.Size())
	if err := os.MkdirAll(r.CacheDir, 0o755); err != nil {
		return "", err
	}
	out := filepath.Join(r.CacheDir, key+".png")
	if _, err := os.Stat(out); err == nil {
		r.Log.Debug("raster cache hit", "path", abs, "out", out)
		return out, nil
	}

	dim := strconv.Itoa(size)
	var attempts [][]string
	if strings.EqualFold(filepath.Ext(abs), ".svg") {
		attempts = append(attempts,
			[]string{"rsvg-convert", "-w", dim, "-h", dim, "--keep-aspect-ratio", "-o", "{out}", abs},
			[]string{"vipsthumbnail", abs, "-s", dim, "-o", "{out}"},
		)
	}
	attempts = append(attempts, []string{
		"magick",
		"-background", "none",
		abs,
		"-thumbnail", fmt.Sprintf("%dx%d", size, size),
		"-gravity", "center",
		"-extent", fmt.Sprintf("%dx%d", size, size),
		"{out}",
	})

	for _, argv := range attempts {
		if !r.hasExec(argv[0]) {
			continue
		}
		f, err := os.CreateTemp(r.CacheDir, "runner.*.png")
		if err != nil {
			return "", err
		}
		tmp := f.Name()
		_ = f.Close()
		args := make([]string, len(argv)-1)
		for i, a := range argv[1:] {
			if a == "{out}" {
				a = tmp
			}
			args[i] = a
		}
		if runErr := r.run(argv[0], args); runErr != nil {
			r.Log.Debug("rasterize failed", "tool", argv[0], "path", abs, "err", runErr)
			_ = os.Remove(tmp)
			continue
		}
		r.Log.Debug("rasterized", "tool", argv[0], "size", size, "path", abs)
		if err := os.Rename(tmp, out); err != nil {
			_ = os.Remove(tmp)
			return "", err
		}
		return out, nil
	}
	return "", fmt.Errorf("no rasterizer for %s (install rsvg-convert or magick)", filepath.Base(abs))
}

func (r *Rasterizer) run(name string, args []string) error {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultToolTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	cmd := r.command(ctx, name, args...)
	cmd.WaitDelay = time.Second
	return cmd.Run()
}

func cacheKey(path string, size int, mt time.Time, fsz int64) string {
	h := sha1.New()
	io.WriteString(h, path)
	io.WriteString(h, "|")
	io.WriteString(h, strconv.Itoa(size))
	io.WriteString(h, "|")
	io.WriteString(h, strconv.FormatInt(mt.Unix(), 10))
	io.WriteString(h, "|")
	io.WriteString(h, strconv.FormatInt(fsz, 10))
	io.WriteString(h, "|")
	io.WriteString(h, cacheVersion)
	return hex.EncodeToString(h.Sum(nil))
}
