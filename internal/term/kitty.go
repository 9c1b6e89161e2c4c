package term

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
)

const (
	kittyImageID = 4242
	kittyChunk   = 4096
)

// kittyPresenter transmits frames with the kitty graphics protocol. Every
// frame reuses one image and placement id so it replaces the previous one.
type kittyPresenter struct {
	mu  sync.Mutex
	out io.Writer
	buf bytes.Buffer
}

func newKittyPresenter(out io.Writer) *kittyPresenter {
	return &kittyPresenter{out: out}
}

func (k *kittyPresenter) Name() string { return BackendKitty }

func (k *kittyPresenter) Clear() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, err := fmt.Fprintf(k.out, "\x1b_Ga=d,d=I,i=%d,q=2;\x1b\\", kittyImageID)
	return err
}

func (k *kittyPresenter) Present(img *image.RGBA, geo Geometry) error {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil
	}

	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	if _, err := zw.Write(straightAlpha(img)); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	payload := base64.StdEncoding.EncodeToString(z.Bytes())

	col, row := 1, 1
	if geo.CellWidth > 0 && geo.CellHeight > 0 {
		imgCols := (w + geo.CellWidth - 1) / geo.CellWidth
		imgRows := (h + geo.CellHeight - 1) / geo.CellHeight
		col = max(1, (geo.Cols-imgCols)/2+1)
		row = max(1, (geo.Rows-imgRows)/2+1)
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.buf.Reset()
	fmt.Fprintf(&k.buf, "\x1b7\x1b[%d;%dH", row, col)
	for first := true; first || len(payload) > 0; first = false {
		n := min(kittyChunk, len(payload))
		chunk := payload[:n]
		payload = payload[n:]
		more := 0
		if len(payload) > 0 {
			more = 1
		}
		if first {
			fmt.Fprintf(&k.buf, "\x1b_Ga=T,f=32,o=z,s=%d,v=%d,i=%d,p=1,C=1,q=2,m=%d;%s\x1b\\",
				w, h, kittyImageID, more, chunk)
		} else {
			fmt.Fprintf(&k.buf, "\x1b_Gm=%d;%s\x1b\\", more, chunk)
		}
	}
	k.buf.WriteString("\x1b8")
	_, err := k.out.Write(k.buf.Bytes())
	return err
}

// straightAlpha returns img's pixels as tightly packed non-premultiplied
// RGBA, which is what f=32 expects.
func straightAlpha(img *image.RGBA) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]byte, 0, w*h*4)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for i := 0; i < len(row); i += 4 {
			r, g, bl, a := row[i], row[i+1], row[i+2], row[i+3]
			switch a {
			case 0:
				r, g, bl = 0, 0, 0
			case 0xff:
			default:
				r = uint8(uint32(r) * 0xff / uint32(a))
				g = uint8(uint32(g) * 0xff / uint32(a))
				bl = uint8(uint32(bl) * 0xff / uint32(a))
			}
			out = append(out, r, g, bl, a)
		}
	}
	return out
}
