package utils

import "github.com/gofiber/fiber/v2"

func Success(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// ValidationFailed reports field-level problems with a 400 status.
func ValidationFailed(c *fiber.Ctx, message string, fields map[string][]string) error {
	body := fiber.Map{
		"success": false,
		"error":   message,
	}
	if len(fields) > 0 {
		body["errors"] = fields
	}
	return c.Status(fiber.StatusBadRequest).JSON(body)
}
