package engine

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"crudkit/internal/query"
)

type Handler struct {
	registry *Registry
	limits   query.Limits
	log      *slog.Logger
}

func NewHandler(reg *Registry, limits query.Limits, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{registry: reg, limits: limits, log: log}
}

// Schemas handles GET /api/_schema
func (h *Handler) Schemas(c *fiber.Ctx) error {
	all := h.registry.All()
	out := make([]any, 0, len(all))
	for _, r := range all {
		out = append(out, r.Describe())
	}
	return c.JSON(fiber.Map{"data": out})
}

// Schema handles GET /api/_schema/:entity
func (h *Handler) Schema(c *fiber.Ctx) error {
	r, err := h.resolveEntity(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": r.Describe()})
}

// List handles GET /api/:entity
func (h *Handler) List(c *fiber.Ctx) error {
	r, err := h.resolveEntity(c)
	if err != nil {
		return err
	}
	req := query.ParseParams(queryValues(c), h.limits)
	page, err := r.List(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(page)
}

// GetByID handles GET /api/:entity/:id
func (h *Handler) GetByID(c *fiber.Ctx) error {
	r, err := h.resolveEntity(c)
	if err != nil {
		return err
	}
	record, err := r.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": record})
}

// Create handles POST /api/:entity
func (h *Handler) Create(c *fiber.Ctx) error {
	r, err := h.resolveEntity(c)
	if err != nil {
		return err
	}
	record, err := r.Create(c.UserContext(), c.Body())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": record})
}

// CreateBatch handles POST /api/:entity/batch
func (h *Handler) CreateBatch(c *fiber.Ctx) error {
	r, err := h.resolveEntity(c)
	if err != nil {
		return err
	}
	records, err := r.CreateAll(c.UserContext(), c.Body())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": records})
}

// Update handles PUT /api/:entity/:id
func (h *Handler) Update(c *fiber.Ctx) error {
	r, err := h.resolveEntity(c)
	if err != nil {
		return err
	}
	record, err := r.Update(c.UserContext(), c.Params("id"), c.Body())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": record})
}

// Patch handles PATCH /api/:entity/:id
func (h *Handler) Patch(c *fiber.Ctx) error {
	r, err := h.resolveEntity(c)
	if err != nil {
		return err
	}
	record, err := r.Patch(c.UserContext(), c.Params("id"), c.Body())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": record})
}

// Delete handles DELETE /api/:entity/:id
func (h *Handler) Delete(c *fiber.Ctx) error {
	r, err := h.resolveEntity(c)
	if err != nil {
		return err
	}
	record, err := r.Delete(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": record})
}

// DeleteBatch handles DELETE /api/:entity with a JSON array of ids.
func (h *Handler) DeleteBatch(c *fiber.Ctx) error {
	r, err := h.resolveEntity(c)
	if err != nil {
		return err
	}
	ids, err := parseIDList(c.Body())
	if err != nil {
		return err
	}
	records, err := r.DeleteAll(c.UserContext(), ids)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": records})
}

func (h *Handler) resolveEntity(c *fiber.Ctx) (Resource, error) {
	name := c.Params("entity")
	r, ok := h.registry.Get(name)
	if !ok {
		h.log.Debug("unknown entity", "entity", name, "path", c.Path())
		return nil, UnknownEntityError(name)
	}
	return r, nil
}

// queryValues keeps every value of repeated keys in request order.
func queryValues(c *fiber.Ctx) url.Values {
	values := url.Values{}
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		values.Add(string(key), string(value))
	})
	return values
}

// parseIDList accepts a JSON array of numbers or strings.
func parseIDList(body []byte) ([]string, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, InvalidPayloadError("Expected a JSON array of ids")
	}
	ids := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			ids = append(ids, s)
			continue
		}
		ids = append(ids, strings.TrimSpace(string(item)))
	}
	return ids, nil
}

// ErrorHandler renders AppErrors as their status and hides everything else
// behind a 500.
func ErrorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var appErr *AppError
		if errors.As(err, &appErr) {
			return c.Status(appErr.Status).JSON(ErrorResponse{Error: appErr})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(ErrorResponse{
				Error: &AppError{Code: "HTTP_ERROR", Message: fiberErr.Message},
			})
		}

		log.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: &AppError{
				Code:    "INTERNAL_ERROR",
				Message: "Internal server error",
			},
		})
	}
}
