package handler

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"filemaster/internal/http/middleware"
	"filemaster/internal/service"
	"filemaster/internal/transform"
)

// formFile adapts an uploaded multipart file to service.Source.
type formFile struct {
	h *multipart.FileHeader
}

func (f formFile) Meta() transform.FileMeta {
	ct := f.h.Header.Get(fiber.HeaderContentType)
	if ct == "" {
		ct = fiber.MIMEOctetStream
	}
	return transform.FileMeta{Name: f.h.Filename, Size: f.h.Size, ContentType: ct}
}

func (f formFile) Open() (io.ReadCloser, error) {
	return f.h.Open()
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

// parseParams reads the optional tool parameters. An unparseable
// compressLevel is treated as absent.
func parseParams(form *multipart.Form) (transform.Params, bool) {
	var p transform.Params
	if lvl, err := strconv.Atoi(formValue(form, "compressLevel")); err == nil {
		p.CompressLevel = &lvl
	}
	p.Format = formValue(form, "format")
	if raw := formValue(form, "order"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &p.Order); err != nil {
			return p, false
		}
	}
	return p, true
}

// ProcessFiles runs one tool over the uploaded files.
//
// @Summary Process uploaded files
// @Description Applies compress, merge, convert, enhance or preview to the uploaded files.
// @Tags files
// @Accept multipart/form-data
// @Produce json
// @Param tool formData string true "compress | merge | convert | enhance | preview"
// @Param files formData file true "Files to process (repeat the field for several files)"
// @Param compressLevel formData int false "Deflate level 1-9, default 6"
// @Param format formData string false "Convert target: jpg, jpeg, png, webp, mp3, wav"
// @Param order formData string false "Merge order as a JSON array of file names"
// @Success 200 {object} service.ProcessResult
// @Failure 400 {object} errorPayload
// @Failure 401 {object} errorPayload
// @Failure 413 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Security BearerAuth
// @Router /api/process [post]
func ProcessFiles(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		form, err := c.MultipartForm()
		if err != nil || len(form.File["files"]) == 0 {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "at least one file is required")
		}

		params, ok := parseParams(form)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ORDER", "order must be a JSON array of file names")
		}

		headers := form.File["files"]
		files := make([]service.Source, len(headers))
		for i, h := range headers {
			files[i] = formFile{h: h}
		}

		res, err := svc.Process(c.UserContext(), service.ProcessRequest{
			RequestID: middleware.RequestIDFromCtx(c),
			UserID:    middleware.UserIDFromCtx(c),
			Tool:      formValue(form, "tool"),
			Files:     files,
			Params:    params,
		})
		if err != nil {
			return mapServiceError(c, err)
		}
		return c.JSON(res)
	}
}
