package transform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pdfMeta(name string) FileMeta  { return FileMeta{Name: name, Size: 10, ContentType: "application/pdf"} }
func pngMeta(name string) FileMeta  { return FileMeta{Name: name, Size: 10, ContentType: "image/png"} }
func textMeta(name string) FileMeta { return FileMeta{Name: name, Size: 10, ContentType: "text/plain"} }

func intPtr(v int) *int { return &v }

func TestParseTool(t *testing.T) {
	for _, tool := range Tools() {
		got, err := ParseTool(tool.String())
		require.NoError(t, err)
		assert.Equal(t, tool, got)
	}

	got, err := ParseTool("  Merge ")
	require.NoError(t, err)
	assert.Equal(t, ToolMerge, got)

	for _, name := range []string{"", "zip", "compress2", "delete"} {
		_, err := ParseTool(name)
		assert.ErrorIs(t, err, ErrInvalidTool, name)
		assert.True(t, IsValidation(err))
		assert.Contains(t, err.Error(), "compress, merge, convert, enhance, preview")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		tool    Tool
		files   []FileMeta
		params  Params
		wantErr error
		wantMsg string
		check   func(t *testing.T, p Params)
	}{
		{
			name:  "preview accepts anything",
			tool:  ToolPreview,
			files: []FileMeta{textMeta("a.txt"), pdfMeta("b.pdf"), pngMeta("c.png")},
		},
		{
			name:  "preview accepts no files",
			tool:  ToolPreview,
			files: nil,
		},
		{
			name:  "compress defaults level",
			tool:  ToolCompress,
			files: []FileMeta{textMeta("a.txt")},
			check: func(t *testing.T, p Params) {
				require.NotNil(t, p.CompressLevel)
				assert.Equal(t, DefaultCompressLevel, *p.CompressLevel)
			},
		},
		{
			name:   "compress clamps high level",
			tool:   ToolCompress,
			files:  []FileMeta{textMeta("a.txt")},
			params: Params{CompressLevel: intPtr(42)},
			check: func(t *testing.T, p Params) {
				assert.Equal(t, 9, *p.CompressLevel)
			},
		},
		{
			name:   "compress clamps low level",
			tool:   ToolCompress,
			files:  []FileMeta{textMeta("a.txt")},
			params: Params{CompressLevel: intPtr(-3)},
			check: func(t *testing.T, p Params) {
				assert.Equal(t, 1, *p.CompressLevel)
			},
		},
		{
			name:    "compress without files",
			tool:    ToolCompress,
			wantErr: ErrCardinality,
		},
		{
			name:    "merge with one file",
			tool:    ToolMerge,
			files:   []FileMeta{pdfMeta("a.pdf")},
			wantErr: ErrCardinality,
			wantMsg: "Merge requires at least 2 files",
		},
		{
			name:    "merge order naming no upload",
			tool:    ToolMerge,
			files:   []FileMeta{pdfMeta("a.pdf"), pdfMeta("b.pdf")},
			params:  Params{Order: []string{"x.pdf", "y.pdf"}},
			wantErr: ErrOrderMismatch,
			wantMsg: "Merge order does not name any uploaded file",
		},
		{
			name:   "merge order with one known name",
			tool:   ToolMerge,
			files:  []FileMeta{pdfMeta("a.pdf"), pdfMeta("b.pdf")},
			params: Params{Order: []string{"x.pdf", "b.pdf"}},
		},
		{
			name:    "merge with a non pdf",
			tool:    ToolMerge,
			files:   []FileMeta{pdfMeta("a.pdf"), pngMeta("b.png")},
			wantErr: ErrTypeMismatch,
			wantMsg: "All files must be PDFs for merging",
		},
		{
			name:    "merge checks count before type",
			tool:    ToolMerge,
			files:   []FileMeta{pngMeta("b.png")},
			wantErr: ErrCardinality,
		},
		{
			name:  "merge accepts pdfs",
			tool:  ToolMerge,
			files: []FileMeta{pdfMeta("a.pdf"), pdfMeta("b.pdf"), pdfMeta("c.pdf")},
		},
		{
			name:    "convert with no files",
			tool:    ToolConvert,
			params:  Params{Format: "png"},
			wantErr: ErrCardinality,
			wantMsg: "Convert requires exactly 1 file",
		},
		{
			name:    "convert with two files",
			tool:    ToolConvert,
			files:   []FileMeta{pngMeta("a.png"), pngMeta("b.png")},
			params:  Params{Format: "png"},
			wantErr: ErrCardinality,
		},
		{
			name:    "convert without format",
			tool:    ToolConvert,
			files:   []FileMeta{pngMeta("a.png")},
			params:  Params{Format: "  "},
			wantErr: ErrMissingParameter,
			wantMsg: "Format is required for conversion",
		},
		{
			name:    "convert to unknown format",
			tool:    ToolConvert,
			files:   []FileMeta{pngMeta("a.png")},
			params:  Params{Format: "gif"},
			wantErr: ErrUnsupportedFormat,
			wantMsg: "Unsupported format. Use: jpg, png, webp, mp3, wav",
		},
		{
			name:   "convert lowercases format",
			tool:   ToolConvert,
			files:  []FileMeta{pngMeta("a.png")},
			params: Params{Format: "JPG"},
			check: func(t *testing.T, p Params) {
				assert.Equal(t, "jpg", p.Format)
			},
		},
		{
			name:    "enhance with two files",
			tool:    ToolEnhance,
			files:   []FileMeta{pngMeta("a.png"), pngMeta("b.png")},
			wantErr: ErrCardinality,
			wantMsg: "Enhance requires exactly 1 file",
		},
		{
			name:    "enhance with no files",
			tool:    ToolEnhance,
			wantErr: ErrCardinality,
		},
		{
			name:    "enhance on non image",
			tool:    ToolEnhance,
			files:   []FileMeta{pdfMeta("a.pdf")},
			wantErr: ErrTypeMismatch,
			wantMsg: "Only images can be enhanced",
		},
		{
			name:  "enhance on image",
			tool:  ToolEnhance,
			files: []FileMeta{{Name: "a.JPG", ContentType: "IMAGE/JPEG"}},
		},
		{
			name:    "unknown tool value",
			tool:    Tool(99),
			files:   []FileMeta{textMeta("a.txt")},
			wantErr: ErrInvalidTool,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Validate(tt.tool, tt.files, tt.params)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, IsValidation(err))
				if tt.wantMsg != "" {
					assert.Equal(t, tt.wantMsg, err.Error())
				}
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, got)
			}
		})
	}
}

func TestValidationKindsAreDistinct(t *testing.T) {
	kinds := []error{ErrInvalidTool, ErrCardinality, ErrTypeMismatch, ErrMissingParameter, ErrUnsupportedFormat, ErrOrderMismatch}
	for i, a := range kinds {
		for j, b := range kinds {
			if i != j {
				assert.False(t, errors.Is(a, b))
			}
		}
	}
	assert.False(t, IsValidation(errors.New("disk full")))
}

func TestClampLevel(t *testing.T) {
	assert.Equal(t, 1, ClampLevel(0))
	assert.Equal(t, 5, ClampLevel(5))
	assert.Equal(t, 9, ClampLevel(10))
}
