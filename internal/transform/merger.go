package transform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const mergedDisplayName = "merged.pdf"

// ErrNothingToMerge is returned when no name in the requested order matched an upload.
var ErrNothingToMerge = errors.New("merge order matched no uploaded file")

var disablePDFConfigDir sync.Once

// Merger concatenates PDF inputs into one document.
type Merger struct {
	workDir string
}

func NewMerger(workDir string) *Merger {
	// pdfcpu would otherwise write a config directory under the user's home.
	disablePDFConfigDir.Do(func() { pdfmodel.ConfigPath = "disable" })
	return &Merger{workDir: workDir}
}

// Execute appends every page of each selected input, in order. With an
// explicit order, names that match no upload are skipped.
func (m *Merger) Execute(ctx context.Context, inputs []Input, params Params) (Output, error) {
	selected := mergeOrder(inputs, params.Order)
	if len(selected) == 0 {
		return Output{}, ErrNothingToMerge
	}

	files := make([]*os.File, 0, len(selected))
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()
	readers := make([]io.ReadSeeker, 0, len(selected))
	for _, in := range selected {
		f, err := os.Open(in.Path)
		if err != nil {
			return Output{}, fmt.Errorf("open %s: %w", in.Name, err)
		}
		files = append(files, f)
		readers = append(readers, f)
	}

	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed

	// A lone input is copied as is, but must still parse.
	if len(readers) == 1 {
		if _, err := api.PageCount(readers[0], conf); err != nil {
			return Output{}, fmt.Errorf("read %s: %w", selected[0].Name, err)
		}
		if _, err := readers[0].Seek(0, io.SeekStart); err != nil {
			return Output{}, fmt.Errorf("rewind %s: %w", selected[0].Name, err)
		}
	}

	out, err := createWorkFile(m.workDir, "merged-*.pdf")
	if err != nil {
		return Output{}, fmt.Errorf("create merged pdf: %w", err)
	}

	if len(readers) == 1 {
		_, err = io.Copy(out, readers[0])
	} else {
		err = api.MergeRaw(readers, out, false, conf)
	}
	if err != nil {
		discard(out)
		return Output{}, fmt.Errorf("merge pdf: %w", err)
	}

	size, err := finish(out)
	if err != nil {
		return Output{}, fmt.Errorf("finalize merged pdf: %w", err)
	}

	return Output{
		Path:        out.Name(),
		Size:        size,
		ContentType: pdfContentType,
		DisplayName: mergedDisplayName,
	}, nil
}

// mergeOrder resolves the inputs to merge. Without an order it is the upload
// order; with one, each name picks the first upload carrying that name.
func mergeOrder(inputs []Input, order []string) []Input {
	if len(order) == 0 {
		return inputs
	}
	byName := make(map[string]Input, len(inputs))
	for _, in := range inputs {
		if _, seen := byName[in.Name]; !seen {
			byName[in.Name] = in
		}
	}
	selected := make([]Input, 0, len(order))
	for _, name := range order {
		if in, ok := byName[name]; ok {
			selected = append(selected, in)
		}
	}
	return selected
}
