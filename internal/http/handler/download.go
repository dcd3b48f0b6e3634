package handler

import (
	"github.com/gofiber/fiber/v2"

	"filemaster/internal/http/middleware"
	"filemaster/internal/service"
)

// DownloadFile serves one of the caller's processed files and counts the download.
//
// @Summary Download a processed file
// @Tags files
// @Produce octet-stream
// @Param id path string true "Processed file ID"
// @Success 200 {file} file
// @Success 302 "Redirect to a presigned URL"
// @Failure 401 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Security BearerAuth
// @Router /api/download/{id} [get]
func DownloadFile(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := svc.Download(c.UserContext(), middleware.UserIDFromCtx(c), c.Params("id"))
		if err != nil {
			return mapServiceError(c, err)
		}
		if res.RedirectURL != "" {
			return c.Redirect(res.RedirectURL, fiber.StatusFound)
		}

		c.Attachment(res.File.DisplayName)
		if res.File.ContentType != "" {
			c.Set(fiber.HeaderContentType, res.File.ContentType)
		}
		size := -1
		if res.Size > 0 {
			size = int(res.Size)
		}
		// fasthttp closes the body once it has been written.
		return c.SendStream(res.Body, size)
	}
}

// GetStats returns the caller's running totals.
//
// @Summary Usage statistics
// @Tags files
// @Produce json
// @Success 200 {object} model.UserStats
// @Failure 401 {object} errorPayload
// @Security BearerAuth
// @Router /api/stats [get]
func GetStats(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, err := svc.Stats(c.UserContext(), middleware.UserIDFromCtx(c))
		if err != nil {
			return mapServiceError(c, err)
		}
		return c.JSON(st)
	}
}
