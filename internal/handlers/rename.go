package handlers

import (
	"strings"

	"github.com/emmayusufu/googledriveclone/internal/middleware"
	"github.com/emmayusufu/googledriveclone/internal/services"
	"github.com/emmayusufu/googledriveclone/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type RenameHandler struct {
	Hierarchy *services.HierarchyService
}

func NewRenameHandler(hierarchy *services.HierarchyService) *RenameHandler {
	return &RenameHandler{Hierarchy: hierarchy}
}

type renameRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

func (h *RenameHandler) Rename(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req renameRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	id, err := parseUUID(req.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid id")
	}

	itemType := services.ItemType(strings.ToLower(strings.TrimSpace(req.Type)))
	result, err := h.Hierarchy.RenameItem(c.UserContext(), currentUser.ID, id, req.Name, itemType)
	if err != nil {
		return respondError(c, err, "failed renaming item")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"updated": true, "item": result.Item()})
}
