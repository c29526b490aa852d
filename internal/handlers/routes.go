package handlers

import (
	"github.com/emmayusufu/googledriveclone/internal/middleware"
	"github.com/emmayusufu/googledriveclone/internal/ratelimit"
	"github.com/emmayusufu/googledriveclone/internal/services"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type Dependencies struct {
	DB        *gorm.DB
	Hierarchy *services.HierarchyService
	Users     *services.UserService
	Limiter   *ratelimit.Limiter
}

func RegisterRoutes(app *fiber.App, deps Dependencies) {
	authMiddleware := middleware.NewAuthMiddleware(deps.DB)
	rateLimit := middleware.RateLimit(deps.Limiter)

	authHandler := NewAuthHandler(deps.Users)
	foldersHandler := NewFoldersHandler(deps.Hierarchy)
	filesHandler := NewFilesHandler(deps.Hierarchy)
	renameHandler := NewRenameHandler(deps.Hierarchy)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", rateLimit, authHandler.Register)
	authRoutes.Post("/login", rateLimit, authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)

	folderRoutes := api.Group("/folders", authMiddleware.RequireAuth, rateLimit)
	folderRoutes.Get("/", foldersHandler.List)
	folderRoutes.Post("/", foldersHandler.Create)
	folderRoutes.Delete("/", foldersHandler.Delete)
	folderRoutes.Get("/tree", foldersHandler.Tree)
	folderRoutes.Get("/:id/path", foldersHandler.Path)

	fileRoutes := api.Group("/files", authMiddleware.RequireAuth, rateLimit)
	fileRoutes.Get("/", filesHandler.Search)
	fileRoutes.Post("/", filesHandler.Upload)
	fileRoutes.Delete("/", filesHandler.Delete)
	fileRoutes.Get("/:id/preview", filesHandler.PreviewURL)

	api.Patch("/rename", authMiddleware.RequireAuth, rateLimit, renameHandler.Rename)
}
