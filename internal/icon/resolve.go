// Package icon finds, decodes and caches entry icons off the UI goroutine.
package icon

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var ErrNotFound = errors.New("icon not found")

var (
	defaultThemes = []string{"hicolor", "Adwaita"}
	categories    = []string{"apps", "applications", "categories", "devices", "places", "mimetypes", "status", "actions"}
	bitmapSizes   = []int{16, 22, 24, 32, 48, 64, 96, 128, 192, 256, 512}
	extensions    = []string{".png", ".svg", ".xpm"}
)

// Resolver maps an icon reference (absolute path or theme name) to a
// size×size image.
type Resolver struct {
	Size   int
	Roots  []string
	Themes []string
	Raster *Rasterizer
}

// DefaultRoots lists icon search roots in XDG precedence order followed by
// the legacy pixmaps directory.
func DefaultRoots() []string {
	roots := []string{filepath.Join(xdg.Home, ".icons"), filepath.Join(xdg.DataHome, "icons")}
	for _, d := range xdg.DataDirs {
		roots = append(roots, filepath.Join(d, "icons"))
	}
	for _, d := range xdg.DataDirs {
		roots = append(roots, filepath.Join(d, "pixmaps"))
	}
	return append(roots, "/usr/share/pixmaps")
}

func NewResolver(size int, raster *Rasterizer) *Resolver {
	return &Resolver{Size: size, Roots: DefaultRoots(), Themes: defaultThemes, Raster: raster}
}

func (r *Resolver) Resolve(ref string) (image.Image, error) {
	path, err := r.Lookup(ref)
	if err != nil {
		return nil, err
	}
	img, err := r.load(path)
	if err != nil {
		return nil, fmt.Errorf("icon %q: %w", ref, err)
	}
	return Fit(img, r.Size), nil
}

// Lookup returns the file that best provides ref.
func (r *Resolver) Lookup(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", ErrNotFound
	}
	if filepath.IsAbs(ref) {
		if st, err := os.Stat(ref); err == nil && st.Mode().IsRegular() {
			return ref, nil
		}
		return "", fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	name := ref
	for _, ext := range extensions {
		name = strings.TrimSuffix(name, ext)
	}

	for _, root := range r.Roots {
		for _, theme := range r.Themes {
			base := filepath.Join(root, theme)
			if st, err := os.Stat(base); err != nil || !st.IsDir() {
				continue
			}
			for _, dir := range r.sizeDirs() {
				for _, cat := range categories {
					if p, ok := probe(filepath.Join(base, dir, cat), name); ok {
						return p, nil
					}
				}
			}
		}
		if p, ok := probe(root, name); ok {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, ref)
}

// sizeDirs orders theme size directories: the smallest bitmap at least as
// large as the target, then scalable, then larger, then smaller ones.
func (r *Resolver) sizeDirs() []string {
	var larger, smaller []string
	for _, s := range bitmapSizes {
		d := strconv.Itoa(s) + "x" + strconv.Itoa(s)
		if s >= r.Size {
			larger = append(larger, d)
		} else {
			smaller = append([]string{d}, smaller...)
		}
	}
	var out []string
	if len(larger) > 0 {
		out = append(out, larger[0])
		larger = larger[1:]
	}
	out = append(out, "scalable")
	out = append(out, larger...)
	return append(out, smaller...)
}

func probe(dir, name string) (string, bool) {
	for _, ext := range extensions {
		p := filepath.Join(dir, name+ext)
		if st, err := os.Stat(p); err == nil && st.Mode().IsRegular() {
			return p, true
		}
	}
	return "", false
}

func (r *Resolver) load(path string) (image.Image, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".svg", ".svgz", ".xpm":
		if r.Raster == nil {
			return nil, fmt.Errorf("no rasterizer for %s", filepath.Ext(path))
		}
		png, err := r.Raster.Rasterize(path, r.Size)
		if err != nil {
			return nil, err
		}
		path = png
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// Fit scales src into a size×size RGBA image, preserving aspect ratio and
// centring it on a transparent background.
func Fit(src image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	b := src.Bounds()
	if b.Empty() || size <= 0 {
		return dst
	}
	w, h := size, size
	if b.Dx() > b.Dy() {
		h = max(1, b.Dy()*size/b.Dx())
	} else if b.Dy() > b.Dx() {
		w = max(1, b.Dx()*size/b.Dy())
	}
	x0, y0 := (size-w)/2, (size-h)/2
	xdraw.CatmullRom.Scale(dst, image.Rect(x0, y0, x0+w, y0+h), src, b, xdraw.Over, nil)
	return dst
}
