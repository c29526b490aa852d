package handlers

import (
	"errors"
	"strings"

	"github.com/emmayusufu/googledriveclone/internal/apperr"
	"github.com/emmayusufu/googledriveclone/internal/middleware"
	"github.com/emmayusufu/googledriveclone/internal/services"
	"github.com/emmayusufu/googledriveclone/pkg/logger"
	"github.com/emmayusufu/googledriveclone/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

// parseOptionalUUID treats an empty value as the root.
func parseOptionalUUID(value string) (*uuid.UUID, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	parsed, err := parseUUID(value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// respondError maps service errors onto the response envelope. Anything
// outside the taxonomy is logged and reported with the fallback message.
func respondError(c *fiber.Ctx, err error, fallback string) error {
	var validationErr *apperr.ValidationError
	var notFoundErr *apperr.NotFoundError
	var conflictErr *apperr.ConflictError
	var uploadErr *services.UploadError

	switch {
	case errors.As(err, &validationErr):
		return utils.ValidationFailed(c, validationErr.Message, validationErr.Fields)
	case errors.As(err, &notFoundErr):
		return utils.Error(c, fiber.StatusNotFound, notFoundErr.Error())
	case errors.As(err, &apperr.AuthenticationError{}):
		return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	case errors.As(err, &apperr.PermissionError{}):
		return utils.Error(c, fiber.StatusForbidden, "access denied")
	case errors.As(err, &conflictErr):
		return utils.Error(c, fiber.StatusConflict, conflictErr.Message)
	}

	details := map[string]interface{}{
		"method":     c.Method(),
		"path":       c.Path(),
		"request_id": middleware.GetRequestID(c),
	}
	if user := middleware.GetCurrentUser(c); user != nil {
		logger.ErrorWithUser(user.ID.String(), "request_failed", err, details)
	} else {
		logger.Error("request_failed", err, details)
	}

	if errors.As(err, &uploadErr) {
		return utils.Error(c, fiber.StatusInternalServerError, uploadErr.Error())
	}
	return utils.Error(c, fiber.StatusInternalServerError, fallback)
}
