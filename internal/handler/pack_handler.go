package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"catalog-service/internal/catalog"
)

// PackRenameRequest carries the new name for a pack size or pack type
type PackRenameRequest struct {
	Name string `json:"name" validate:"required"`
}

// PackHandler serves rename and lifecycle operations for the pack entry
// collections owned by a variant. Creation goes through the variant update
// endpoint, which reconciles the whole membership set.
type PackHandler struct {
	engine    *catalog.CascadeEngine
	lifecycle *catalog.Lifecycle
}

func NewPackHandler(engine *catalog.CascadeEngine, lifecycle *catalog.Lifecycle) *PackHandler {
	return &PackHandler{engine: engine, lifecycle: lifecycle}
}

// RenameSize renames a pack size and cascades into dependent products
func (h *PackHandler) RenameSize(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	var req PackRenameRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	entry, err := h.engine.RenamePackSize(c.Request().Context(), id, req.Name, actor(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, entry)
}

// RenameType renames a pack type and cascades into dependent products
func (h *PackHandler) RenameType(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	var req PackRenameRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	entry, err := h.engine.RenamePackType(c.Request().Context(), id, req.Name, actor(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, entry)
}

// DeleteSize archives a pack size no live product references
func (h *PackHandler) DeleteSize(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	if err := h.lifecycle.Delete(c.Request().Context(), catalog.KindPackSize, id, actor(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "pack size deleted successfully"})
}

// DeleteType archives a pack type no live product references
func (h *PackHandler) DeleteType(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	if err := h.lifecycle.Delete(c.Request().Context(), catalog.KindPackType, id, actor(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "pack type deleted successfully"})
}

// ReactivateSize restores a soft-deleted pack size
func (h *PackHandler) ReactivateSize(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	if err := h.lifecycle.Reactivate(c.Request().Context(), catalog.KindPackSize, id, actor(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "pack size reactivated successfully"})
}

// ReactivateType restores a soft-deleted pack type
func (h *PackHandler) ReactivateType(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	if err := h.lifecycle.Reactivate(c.Request().Context(), catalog.KindPackType, id, actor(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "pack type reactivated successfully"})
}
