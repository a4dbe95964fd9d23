package engine

import "github.com/gofiber/fiber/v2"

// RegisterRoutes mounts the entity routes under /api behind middleware.
// The _schema routes are registered first so they win over /:entity.
func RegisterRoutes(router fiber.Router, h *Handler, middleware ...fiber.Handler) {
	api := router.Group("/api", middleware...)

	api.Get("/_schema", h.Schemas)
	api.Get("/_schema/:entity", h.Schema)

	api.Get("/:entity", h.List)
	api.Get("/:entity/:id", h.GetByID)
	api.Post("/:entity/batch", h.CreateBatch)
	api.Post("/:entity", h.Create)
	api.Put("/:entity/:id", h.Update)
	api.Patch("/:entity/:id", h.Patch)
	api.Delete("/:entity/:id", h.Delete)
	api.Delete("/:entity", h.DeleteBatch)
}
