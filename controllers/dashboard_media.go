package controller

import (
	"context"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"immoflow/services/media"
	"immoflow/utils"
)

const maxMediaSize = 16 << 20

// MediaStore uploads one chat attachment and returns its public URL.
type MediaStore interface {
	Upload(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error)
}

type MediaController struct {
	Store  MediaStore
	Logger *logrus.Entry
}

func NewMediaController(store MediaStore, logger *logrus.Entry) *MediaController {
	return &MediaController{Store: store, Logger: componentLogger(logger, "media")}
}

// Upload stores the multipart "file" field. The returned url, media_type
// and file_name feed a send_media dashboard command.
func (mc *MediaController) Upload(c *fiber.Ctx) error {
	if mc.Store == nil {
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "Almacenamiento de archivos no configurado", nil)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Falta el archivo", err)
	}
	if fh.Size > maxMediaSize {
		return utils.ErrorResponse(c, fiber.StatusRequestEntityTooLarge, "El archivo supera los 16 MB", nil)
	}

	f, err := fh.Open()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "No se pudo leer el archivo", err)
	}
	defer f.Close()

	contentType := fh.Header.Get(fiber.HeaderContentType)
	url, err := mc.Store.Upload(c.UserContext(), fh.Filename, f, fh.Size, contentType)
	if err != nil {
		utils.LogError("media_upload", err, map[string]interface{}{
			"file_name": fh.Filename,
			"user_id":   c.Locals("userID"),
		})
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Error al subir el archivo", nil)
	}

	mc.Logger.WithFields(logrus.Fields{"file_name": fh.Filename, "size": fh.Size}).Info("Chat media uploaded")
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(fiber.Map{
		"url":        url,
		"media_type": media.Kind(contentType),
		"file_name":  fh.Filename,
	}))
}
