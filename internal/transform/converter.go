package transform

import (
	"context"
	"fmt"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Converter re-encodes images and hands audio to an AudioCodec.
type Converter struct {
	workDir string
	images  ImageCodec
	audio   AudioCodec
}

func NewConverter(workDir string, images ImageCodec, audio AudioCodec) *Converter {
	if images == nil {
		images = DefaultImageCodec()
	}
	if audio == nil {
		audio = ContainerCopy{}
	}
	return &Converter{workDir: workDir, images: images, audio: audio}
}

// Execute converts the single input into params.Format.
func (c *Converter) Execute(ctx context.Context, inputs []Input, params Params) (Output, error) {
	if len(inputs) != 1 {
		return Output{}, fmt.Errorf("convert: expected 1 input, got %d", len(inputs))
	}
	in := inputs[0]
	format := params.Format

	var (
		out Output
		err error
	)
	switch format {
	case "jpg", "jpeg", "png", "webp":
		out, err = c.convertImage(ctx, in, normalizeOutputFormat(format))
	case "mp3", "wav":
		out, err = c.convertAudio(ctx, in, format)
	default:
		return Output{}, invalid(ErrUnsupportedFormat, "Unsupported format. Use: jpg, png, webp, mp3, wav")
	}
	if err != nil {
		return Output{}, err
	}

	out.ContentType = contentTypeForFormat(format)
	out.DisplayName = fmt.Sprintf("%s_converted.%s", stem(in.Name), format)
	return out, nil
}

func (c *Converter) convertImage(ctx context.Context, in Input, codecFormat string) (Output, error) {
	img, err := imaging.Open(in.Path)
	if err != nil {
		return Output{}, fmt.Errorf("decode %s: %w", in.Name, err)
	}
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	out, err := createWorkFile(c.workDir, "converted-*."+extForFormat(codecFormat))
	if err != nil {
		return Output{}, fmt.Errorf("create output: %w", err)
	}
	if err := c.images.Encode(out, img, codecFormat, 0); err != nil {
		discard(out)
		return Output{}, err
	}
	size, err := finish(out)
	if err != nil {
		return Output{}, fmt.Errorf("finalize output: %w", err)
	}
	return Output{Path: out.Name(), Size: size}, nil
}

func (c *Converter) convertAudio(ctx context.Context, in Input, format string) (Output, error) {
	src, err := os.Open(in.Path)
	if err != nil {
		return Output{}, fmt.Errorf("open %s: %w", in.Name, err)
	}
	defer src.Close()

	out, err := createWorkFile(c.workDir, "converted-*."+format)
	if err != nil {
		return Output{}, fmt.Errorf("create output: %w", err)
	}
	if err := c.audio.Transcode(ctx, out, src, in.ContentType, format); err != nil {
		discard(out)
		return Output{}, fmt.Errorf("transcode %s: %w", in.Name, err)
	}
	size, err := finish(out)
	if err != nil {
		return Output{}, fmt.Errorf("finalize output: %w", err)
	}
	return Output{Path: out.Name(), Size: size}, nil
}
