package transform

import (
	"os"
	"path"
	"strings"
)

// baseName strips any client-supplied directory part, for either separator.
func baseName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	b := path.Base(name)
	if b == "." || b == "/" {
		return ""
	}
	return b
}

// stem is the base name without its extension ("report.final.pdf" -> "report.final").
func stem(name string) string {
	b := baseName(name)
	if s := strings.TrimSuffix(b, path.Ext(b)); s != "" {
		return s
	}
	if b != "" {
		return b
	}
	return "file"
}

// createWorkFile opens a fresh file in dir for an executor to write into.
func createWorkFile(dir, pattern string) (*os.File, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	return os.CreateTemp(dir, pattern)
}

// discard closes and removes a work file after a failed write.
func discard(f *os.File) {
	_ = f.Close()
	_ = os.Remove(f.Name())
}

// finish closes f and reports its final size.
func finish(f *os.File) (int64, error) {
	if err := f.Sync(); err != nil {
		discard(f)
		return 0, err
	}
	info, err := f.Stat()
	if err != nil {
		discard(f)
		return 0, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return 0, err
	}
	return info.Size(), nil
}

func contentTypeForFormat(format string) string {
	switch format {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	case "mp3":
		return "audio/mpeg"
	case "wav":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}

// extForFormat is the file extension written for a codec format.
func extForFormat(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	return format
}
