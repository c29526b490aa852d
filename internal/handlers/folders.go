package handlers

import (
	"github.com/emmayusufu/googledriveclone/internal/apperr"
	"github.com/emmayusufu/googledriveclone/internal/middleware"
	"github.com/emmayusufu/googledriveclone/internal/services"
	"github.com/emmayusufu/googledriveclone/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type FoldersHandler struct {
	Hierarchy *services.HierarchyService
}

func NewFoldersHandler(hierarchy *services.HierarchyService) *FoldersHandler {
	return &FoldersHandler{Hierarchy: hierarchy}
}

func (h *FoldersHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	parentID, err := parseOptionalUUID(c.Query("parentId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid parentId")
	}

	listing, err := h.Hierarchy.ListFolder(c.UserContext(), currentUser.ID, parentID)
	if err != nil {
		return respondError(c, err, "failed listing folder")
	}
	return utils.Success(c, fiber.StatusOK, listing)
}

type createFolderRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parentId"`
}

func (h *FoldersHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createFolderRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	raw := ""
	if req.ParentID != nil {
		raw = *req.ParentID
	}
	parentID, err := parseOptionalUUID(raw)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid parentId")
	}

	folder, err := h.Hierarchy.CreateFolder(c.UserContext(), currentUser.ID, req.Name, parentID)
	if err != nil {
		return respondError(c, err, "failed creating folder")
	}
	return utils.Success(c, fiber.StatusCreated, folder)
}

func (h *FoldersHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	if c.Query("id") == "" {
		return respondError(c, apperr.FieldValidation("id", "id is required"), "")
	}
	folderID, err := parseUUID(c.Query("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid folder id")
	}

	if err := h.Hierarchy.DeleteFolder(c.UserContext(), currentUser.ID, folderID); err != nil {
		return respondError(c, err, "failed deleting folder")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "folder deleted"})
}

func (h *FoldersHandler) Tree(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	tree, err := h.Hierarchy.BuildTree(c.UserContext(), currentUser.ID)
	if err != nil {
		return respondError(c, err, "failed building folder tree")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"tree": tree})
}

func (h *FoldersHandler) Path(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	folderID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid folder id")
	}

	path, err := h.Hierarchy.ResolvePath(c.UserContext(), currentUser.ID, folderID)
	if err != nil {
		return respondError(c, err, "failed building breadcrumb path")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"path": path})
}
