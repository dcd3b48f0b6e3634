//go:build !govips || !cgo

package transform

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/HugoSmits86/nativewebp"
)

// Startup prepares the image runtime. The pure-Go codec needs nothing.
func Startup() error {
	return nil
}

func Shutdown() {}

func newImageCodec() ImageCodec {
	return stdlibCodec{}
}

// stdlibCodec has no lossy webp encoder, so the enhancer falls back to jpeg.
// WebP conversion output is lossless.
type stdlibCodec struct{}

func (stdlibCodec) LossyFormat() string { return "jpeg" }

func (stdlibCodec) Encode(w io.Writer, img image.Image, format string, quality int) error {
	switch format {
	case "jpeg":
		opts := &jpeg.Options{Quality: 80}
		if quality > 0 && quality <= 100 {
			opts.Quality = quality
		}
		if err := jpeg.Encode(w, img, opts); err != nil {
			return fmt.Errorf("encode jpeg: %w", err)
		}
	case "png":
		if err := png.Encode(w, img); err != nil {
			return fmt.Errorf("encode png: %w", err)
		}
	case "webp":
		if err := nativewebp.Encode(w, img, nil); err != nil {
			return fmt.Errorf("encode webp: %w", err)
		}
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
	return nil
}
