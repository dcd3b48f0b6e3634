package transform

import (
	"context"
	"fmt"
	"image"
	"io"
)

// ImageCodec encodes decoded pixels into one of the supported formats
// ("jpeg", "png", "webp"). Quality <= 0 means the codec default.
type ImageCodec interface {
	Encode(w io.Writer, img image.Image, format string, quality int) error
	// LossyFormat is the format the enhancer writes.
	LossyFormat() string
}

// DefaultImageCodec returns the libvips codec when built with the govips tag,
// the pure-Go codec otherwise.
func DefaultImageCodec() ImageCodec {
	return newImageCodec()
}

// AudioCodec turns an audio stream into the target container. Implementations
// may transcode; the default only copies bytes.
type AudioCodec interface {
	Transcode(ctx context.Context, dst io.Writer, src io.Reader, srcType, format string) error
}

// ContainerCopy is the AudioCodec that passes the source bytes through unchanged.
type ContainerCopy struct{}

func (ContainerCopy) Transcode(ctx context.Context, dst io.Writer, src io.Reader, _, format string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch format {
	case "mp3", "wav":
	default:
		return fmt.Errorf("audio format %q not supported", format)
	}
	_, err := io.Copy(dst, src)
	return err
}

// normalizeOutputFormat maps a requested image target onto a codec format.
func normalizeOutputFormat(format string) string {
	switch format {
	case "jpg":
		return "jpeg"
	case "jpeg", "png", "webp":
		return format
	default:
		return ""
	}
}
