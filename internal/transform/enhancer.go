package transform

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

const (
	enhanceQuality    = 90
	enhanceSharpen    = 1.0
	enhanceBrightness = 1.1
	// imaging expresses saturation as a percentage change; +20% is x1.2.
	enhanceSaturation = 20
)

// Enhancer applies a fixed improvement pipeline to a single image.
type Enhancer struct {
	workDir string
	images  ImageCodec
}

func NewEnhancer(workDir string, images ImageCodec) *Enhancer {
	if images == nil {
		images = DefaultImageCodec()
	}
	return &Enhancer{workDir: workDir, images: images}
}

// Execute orients the image from its EXIF data, sharpens it, scales
// brightness and saturation, then writes a lossy encoding at quality 90.
func (e *Enhancer) Execute(ctx context.Context, inputs []Input, _ Params) (Output, error) {
	if len(inputs) != 1 {
		return Output{}, fmt.Errorf("enhance: expected 1 input, got %d", len(inputs))
	}
	in := inputs[0]

	img, err := imaging.Open(in.Path, imaging.AutoOrientation(true))
	if err != nil {
		return Output{}, fmt.Errorf("decode %s: %w", in.Name, err)
	}
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	enhanced := enhance(img)

	format := e.images.LossyFormat()
	ext := extForFormat(format)
	out, err := createWorkFile(e.workDir, "enhanced-*."+ext)
	if err != nil {
		return Output{}, fmt.Errorf("create output: %w", err)
	}
	if err := e.images.Encode(out, enhanced, format, enhanceQuality); err != nil {
		discard(out)
		return Output{}, err
	}
	size, err := finish(out)
	if err != nil {
		return Output{}, fmt.Errorf("finalize output: %w", err)
	}

	return Output{
		Path:        out.Name(),
		Size:        size,
		ContentType: contentTypeForFormat(format),
		DisplayName: fmt.Sprintf("%s_enhanced.%s", stem(in.Name), ext),
	}, nil
}

func enhance(img image.Image) *image.NRGBA {
	sharp := imaging.Sharpen(img, enhanceSharpen)
	bright := imaging.AdjustFunc(sharp, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: scaleChannel(c.R, enhanceBrightness),
			G: scaleChannel(c.G, enhanceBrightness),
			B: scaleChannel(c.B, enhanceBrightness),
			A: c.A,
		}
	})
	return imaging.AdjustSaturation(bright, enhanceSaturation)
}

func scaleChannel(v uint8, factor float64) uint8 {
	scaled := float64(v)*factor + 0.5
	if scaled > 255 {
		return 255
	}
	return uint8(scaled)
}
