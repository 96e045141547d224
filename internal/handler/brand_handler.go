package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"catalog-service/internal/audit"
	"catalog-service/internal/catalog"
	"catalog-service/internal/model"
	"catalog-service/pkg/logger"
	"catalog-service/prometheus"
)

// BrandRequest defines the structure for brand creation requests
type BrandRequest struct {
	ManufacturerID uuid.UUID `json:"manufacturer_id" validate:"required"`
	Name           string    `json:"name" validate:"required"`
	Description    string    `json:"description"`
}

type BrandHandler struct {
	db        *gorm.DB
	engine    *catalog.CascadeEngine
	lifecycle *catalog.Lifecycle
	audit     audit.Recorder
}

func NewBrandHandler(db *gorm.DB, engine *catalog.CascadeEngine, lifecycle *catalog.Lifecycle, recorder audit.Recorder) *BrandHandler {
	return &BrandHandler{db: db, engine: engine, lifecycle: lifecycle, audit: recorder}
}

// List retrieves brands, optionally filtered by manufacturer
func (h *BrandHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	page, limit, offset := pagination(c)

	query := h.db.WithContext(c.Request().Context()).Model(&model.Brand{})
	if manufacturerID := c.QueryParam("manufacturer_id"); manufacturerID != "" {
		id, err := uuid.Parse(manufacturerID)
		if err != nil {
			return fail(c, catalog.BadRequest("invalid manufacturer_id %q", manufacturerID))
		}
		query = query.Where("manufacturer_id = ?", id)
	}
	if q := c.QueryParam("q"); q != "" {
		query = query.Where("name_key LIKE ?", "%"+model.NameKey(q)+"%")
	}
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Error("Failed to count brands", zap.Error(err))
		return fail(c, catalog.Internal("failed to list brands", err))
	}
	var brands []model.Brand
	if err := query.Preload("Manufacturer").Order("name_key").Limit(limit).Offset(offset).Find(&brands).Error; err != nil {
		log.Error("Failed to list brands", zap.Error(err))
		return fail(c, catalog.Internal("failed to list brands", err))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data":  brands,
		"page":  page,
		"limit": limit,
		"total": total,
	})
}

// Get retrieves a single brand by ID
func (h *BrandHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	var b model.Brand
	err = h.db.WithContext(c.Request().Context()).Preload("Manufacturer").First(&b, "id = ?", id).Error
	if err != nil {
		return fail(c, catalog.NotFound("brand %s not found", id))
	}
	return c.JSON(http.StatusOK, b)
}

// Create adds a new brand under a live manufacturer
func (h *BrandHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)

	var req BrandRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	name := catalog.NormalizeName(req.Name)
	if name == "" {
		return fail(c, catalog.BadRequest("brand name cannot be empty"))
	}

	ctx := c.Request().Context()
	var manufacturer model.Manufacturer
	if err := h.db.WithContext(ctx).First(&manufacturer, "id = ?", req.ManufacturerID).Error; err != nil {
		return fail(c, catalog.NotFound("manufacturer %s not found", req.ManufacturerID))
	}

	b := model.Brand{
		ManufacturerID: manufacturer.ID,
		Name:           name,
		Description:    req.Description,
		Status:         model.StatusActive,
		CreatedBy:      actor(c),
		UpdatedBy:      actor(c),
	}
	if err := h.db.WithContext(ctx).Create(&b).Error; err != nil {
		if catalog.IsUniqueViolation(err) {
			return fail(c, catalog.Conflict("brand %q already exists under %s", name, manufacturer.Name))
		}
		log.Error("Failed to create brand", zap.Error(err))
		return fail(c, catalog.Internal("failed to create brand", err))
	}

	log.Info("Brand created",
		zap.String("id", b.ID.String()),
		zap.String("name", b.Name),
		zap.String("manufacturer_id", manufacturer.ID.String()))
	prometheus.RecordCatalogOperation("brand", "create")
	h.audit.Record(ctx, audit.Entry{
		Action:     "create",
		Resource:   "brand",
		ResourceID: b.ID.String(),
		Actor:      actor(c),
		After:      b.Name,
	})
	return c.JSON(http.StatusCreated, b)
}

// Update edits a brand. A rename runs the cascade engine so every dependent
// product identity is rewritten in the same transaction.
func (h *BrandHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	var req catalog.BrandUpdate
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	brand, err := h.engine.UpdateBrand(c.Request().Context(), id, req, actor(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, brand)
}

// Delete soft-deletes a brand with no live variants
func (h *BrandHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	if err := h.lifecycle.Delete(c.Request().Context(), catalog.KindBrand, id, actor(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "brand deleted successfully"})
}

// Reactivate restores a soft-deleted brand
func (h *BrandHandler) Reactivate(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	if err := h.lifecycle.Reactivate(c.Request().Context(), catalog.KindBrand, id, actor(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "brand reactivated successfully"})
}
