package transform

import "strings"

const pdfContentType = "application/pdf"

// convertFormats is the accepted set of convert targets.
var convertFormats = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"webp": true,
	"mp3":  true,
	"wav":  true,
}

// Validate checks files and params against the rules of tool and returns the
// params the executor should run with (compress level resolved, format
// lowercased). It only looks at declared metadata, never at file content.
func Validate(tool Tool, files []FileMeta, params Params) (Params, error) {
	switch tool {
	case ToolPreview:
		return params, nil
	case ToolCompress:
		if len(files) == 0 {
			return params, invalid(ErrCardinality, "Compress requires at least 1 file")
		}
		level := DefaultCompressLevel
		if params.CompressLevel != nil {
			level = ClampLevel(*params.CompressLevel)
		}
		params.CompressLevel = &level
		return params, nil
	case ToolMerge:
		if len(files) < 2 {
			return params, invalid(ErrCardinality, "Merge requires at least 2 files")
		}
		for _, f := range files {
			if !isPDF(f.ContentType) {
				return params, invalid(ErrTypeMismatch, "All files must be PDFs for merging")
			}
		}
		if len(params.Order) > 0 && !orderMatchesAny(files, params.Order) {
			return params, invalid(ErrOrderMismatch, "Merge order does not name any uploaded file")
		}
		return params, nil
	case ToolConvert:
		if len(files) != 1 {
			return params, invalid(ErrCardinality, "Convert requires exactly 1 file")
		}
		format := strings.ToLower(strings.TrimSpace(params.Format))
		if format == "" {
			return params, invalid(ErrMissingParameter, "Format is required for conversion")
		}
		if !convertFormats[format] {
			return params, invalid(ErrUnsupportedFormat, "Unsupported format. Use: jpg, png, webp, mp3, wav")
		}
		params.Format = format
		return params, nil
	case ToolEnhance:
		if len(files) != 1 {
			return params, invalid(ErrCardinality, "Enhance requires exactly 1 file")
		}
		if !isImage(files[0].ContentType) {
			return params, invalid(ErrTypeMismatch, "Only images can be enhanced")
		}
		return params, nil
	default:
		return params, invalid(ErrInvalidTool, "invalid tool")
	}
}

func orderMatchesAny(files []FileMeta, order []string) bool {
	names := make(map[string]bool, len(files))
	for _, f := range files {
		names[f.Name] = true
	}
	for _, name := range order {
		if names[name] {
			return true
		}
	}
	return false
}

// ClampLevel forces a compression level into [1, 9].
func ClampLevel(level int) int {
	switch {
	case level < 1:
		return 1
	case level > 9:
		return 9
	default:
		return level
	}
}

func isPDF(contentType string) bool {
	return strings.EqualFold(strings.TrimSpace(contentType), pdfContentType)
}

func isImage(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}
