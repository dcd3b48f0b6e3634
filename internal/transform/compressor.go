package transform

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

const zipContentType = "application/zip"

// Compressor packs every input into one zip archive.
type Compressor struct {
	workDir string
	now     func() time.Time
}

func NewCompressor(workDir string) *Compressor {
	return &Compressor{workDir: workDir, now: time.Now}
}

// Execute streams each input into the archive entry by entry, deflating at
// the requested level. Entries are named after the original upload names.
func (c *Compressor) Execute(ctx context.Context, inputs []Input, params Params) (Output, error) {
	if len(inputs) == 0 {
		return Output{}, fmt.Errorf("compress: no inputs")
	}
	level := DefaultCompressLevel
	if params.CompressLevel != nil {
		level = ClampLevel(*params.CompressLevel)
	}

	out, err := createWorkFile(c.workDir, "compressed-*.zip")
	if err != nil {
		return Output{}, fmt.Errorf("create archive: %w", err)
	}

	now := c.now()
	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, level)
	})

	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			_ = zw.Close()
			discard(out)
			return Output{}, err
		}
		if err := addToArchive(zw, in, now); err != nil {
			_ = zw.Close()
			discard(out)
			return Output{}, err
		}
	}

	if err := zw.Close(); err != nil {
		discard(out)
		return Output{}, fmt.Errorf("finalize archive: %w", err)
	}
	size, err := finish(out)
	if err != nil {
		return Output{}, fmt.Errorf("finalize archive: %w", err)
	}

	name := fmt.Sprintf("batch_%d.zip", now.UnixMilli())
	if len(inputs) == 1 {
		name = stem(inputs[0].Name) + "_compressed.zip"
	}

	return Output{
		Path:        out.Name(),
		Size:        size,
		ContentType: zipContentType,
		DisplayName: name,
	}, nil
}

func addToArchive(zw *zip.Writer, in Input, modified time.Time) error {
	src, err := os.Open(in.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", in.Name, err)
	}
	defer src.Close()

	entry := baseName(in.Name)
	if entry == "" {
		entry = "file"
	}
	header := &zip.FileHeader{
		Name:     entry,
		Method:   zip.Deflate,
		Modified: modified,
	}

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create zip entry %s: %w", entry, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("write zip entry %s: %w", entry, err)
	}
	return nil
}
