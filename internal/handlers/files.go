package handlers

import (
	"mime/multipart"

	"github.com/emmayusufu/googledriveclone/internal/apperr"
	"github.com/emmayusufu/googledriveclone/internal/middleware"
	"github.com/emmayusufu/googledriveclone/internal/services"
	"github.com/emmayusufu/googledriveclone/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type FilesHandler struct {
	Hierarchy *services.HierarchyService
}

func NewFilesHandler(hierarchy *services.HierarchyService) *FilesHandler {
	return &FilesHandler{Hierarchy: hierarchy}
}

func (h *FilesHandler) Upload(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid multipart payload")
	}

	headers := append(form.File["files"], form.File["files[]"]...)
	if len(headers) == 0 {
		return respondError(c, apperr.FieldValidation("files", "at least one file is required"), "")
	}

	parentRaw := ""
	if values := form.Value["parentId"]; len(values) > 0 {
		parentRaw = values[0]
	}
	parentID, err := parseOptionalUUID(parentRaw)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid parentId")
	}

	uploads := make([]services.Upload, 0, len(headers))
	streams := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, stream := range streams {
			_ = stream.Close()
		}
	}()
	for _, header := range headers {
		stream, err := header.Open()
		if err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed opening uploaded file")
		}
		streams = append(streams, stream)
		uploads = append(uploads, services.Upload{
			Name:     header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Size:     header.Size,
			Body:     stream,
		})
	}

	files, err := h.Hierarchy.UploadFiles(c.UserContext(), currentUser.ID, parentID, uploads)
	if err != nil {
		return respondError(c, err, "failed uploading files")
	}
	return utils.Success(c, fiber.StatusCreated, fiber.Map{"files": files})
}

func (h *FilesHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	if c.Query("id") == "" {
		return respondError(c, apperr.FieldValidation("id", "id is required"), "")
	}
	fileID, err := parseUUID(c.Query("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid file id")
	}

	if err := h.Hierarchy.DeleteFile(c.UserContext(), currentUser.ID, fileID); err != nil {
		return respondError(c, err, "failed deleting file")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "file deleted"})
}

func (h *FilesHandler) Search(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	if !c.Context().QueryArgs().Has("q") {
		return respondError(c, apperr.FieldValidation("q", "search query is required"), "")
	}

	result, err := h.Hierarchy.Search(c.UserContext(), currentUser.ID, c.Query("q"))
	if err != nil {
		return respondError(c, err, "search failed")
	}
	return utils.Success(c, fiber.StatusOK, result)
}

func (h *FilesHandler) PreviewURL(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	fileID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid file id")
	}

	url, err := h.Hierarchy.PreviewURL(c.UserContext(), currentUser.ID, fileID)
	if err != nil {
		return respondError(c, err, "failed generating preview url")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"url": url})
}
