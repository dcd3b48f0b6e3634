package transform

import (
	"context"
	"path"
	"path/filepath"
)

// Previewer echoes input metadata without touching any bytes.
type Previewer struct {
	urlPrefix string
}

// NewPreviewer builds a previewer whose transient URLs are urlPrefix/<staged name>.
func NewPreviewer(urlPrefix string) *Previewer {
	return &Previewer{urlPrefix: urlPrefix}
}

func (p *Previewer) Execute(_ context.Context, inputs []Input, _ Params) (Output, error) {
	items := make([]PreviewItem, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, PreviewItem{
			DisplayName:  in.Name,
			Size:         in.Size,
			DeclaredType: in.ContentType,
			TransientURL: path.Join(p.urlPrefix, filepath.Base(in.Path)),
		})
	}
	return Output{Previews: items}, nil
}
