// Package transform holds the tool set, the input validator and the executors
// that turn staged uploads into a single output file.
package transform

import (
	"context"
	"fmt"
	"strings"
)

// Tool is the closed set of transformations a request can select.
type Tool int

const (
	ToolCompress Tool = iota + 1
	ToolMerge
	ToolConvert
	ToolEnhance
	ToolPreview
)

var toolNames = map[Tool]string{
	ToolCompress: "compress",
	ToolMerge:    "merge",
	ToolConvert:  "convert",
	ToolEnhance:  "enhance",
	ToolPreview:  "preview",
}

// Tools lists every tool in a stable order.
func Tools() []Tool {
	return []Tool{ToolCompress, ToolMerge, ToolConvert, ToolEnhance, ToolPreview}
}

func (t Tool) String() string {
	if name, ok := toolNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tool(%d)", int(t))
}

// ParseTool maps a request's tool name onto a Tool. It is the only place raw
// tool strings are inspected.
func ParseTool(name string) (Tool, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, t := range Tools() {
		if toolNames[t] == name {
			return t, nil
		}
	}
	names := make([]string, 0, len(toolNames))
	for _, t := range Tools() {
		names = append(names, t.String())
	}
	return 0, invalid(ErrInvalidTool, "invalid tool, valid tools are: %s", strings.Join(names, ", "))
}

// DefaultCompressLevel is used when a compress request carries no level.
const DefaultCompressLevel = 6

// Params are the tool-specific options of a request.
type Params struct {
	// CompressLevel is nil when the client sent no level.
	CompressLevel *int
	// Order lists original file names for merge; empty means upload order.
	Order []string
	// Format is the convert target.
	Format string
}

// FileMeta is what the client declared about one upload.
type FileMeta struct {
	Name        string
	Size        int64
	ContentType string
}

// Input is an upload that has been staged to disk for the duration of a request.
type Input struct {
	FileMeta
	Path string
}

// PreviewItem describes one input as echoed back by the previewer.
type PreviewItem struct {
	DisplayName  string `json:"display_name"`
	Size         int64  `json:"size"`
	DeclaredType string `json:"declared_type"`
	TransientURL string `json:"transient_url"`
}

// Output describes what an executor produced. Path points at a work file the
// caller owns once Execute returns. Previews is set only by the previewer.
type Output struct {
	Path        string
	Size        int64
	ContentType string
	DisplayName string
	Previews    []PreviewItem
}

// Executor runs one tool over staged inputs.
type Executor interface {
	Execute(ctx context.Context, inputs []Input, params Params) (Output, error)
}

// Toolbox binds every Tool to its Executor.
type Toolbox struct {
	Compressor Executor
	Merger     Executor
	Converter  Executor
	Enhancer   Executor
	Previewer  Executor
}

// NewToolbox wires the default executors, writing their outputs under workDir.
func NewToolbox(workDir string, images ImageCodec, audio AudioCodec) Toolbox {
	return Toolbox{
		Compressor: NewCompressor(workDir),
		Merger:     NewMerger(workDir),
		Converter:  NewConverter(workDir, images, audio),
		Enhancer:   NewEnhancer(workDir, images),
		Previewer:  NewPreviewer("/uploads"),
	}
}

// Executor returns the executor bound to t.
func (b Toolbox) Executor(t Tool) (Executor, error) {
	var e Executor
	switch t {
	case ToolCompress:
		e = b.Compressor
	case ToolMerge:
		e = b.Merger
	case ToolConvert:
		e = b.Converter
	case ToolEnhance:
		e = b.Enhancer
	case ToolPreview:
		e = b.Previewer
	default:
		return nil, invalid(ErrInvalidTool, "invalid tool")
	}
	if e == nil {
		return nil, fmt.Errorf("no executor configured for %s", t)
	}
	return e, nil
}
