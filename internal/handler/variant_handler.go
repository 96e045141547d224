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

// VariantRequest defines the structure for variant creation requests. Pack
// sizes and types are optional initial sets; more can be added later through
// the update endpoint.
type VariantRequest struct {
	BrandID     uuid.UUID `json:"brand_id" validate:"required"`
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description"`
	PackSizes   []string  `json:"pack_sizes"`
	PackTypes   []string  `json:"pack_types"`
}

type VariantHandler struct {
	db        *gorm.DB
	engine    *catalog.CascadeEngine
	lifecycle *catalog.Lifecycle
	audit     audit.Recorder
}

func NewVariantHandler(db *gorm.DB, engine *catalog.CascadeEngine, lifecycle *catalog.Lifecycle, recorder audit.Recorder) *VariantHandler {
	return &VariantHandler{db: db, engine: engine, lifecycle: lifecycle, audit: recorder}
}

// List retrieves variants, optionally filtered by brand
func (h *VariantHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	page, limit, offset := pagination(c)

	query := h.db.WithContext(c.Request().Context()).Model(&model.Variant{})
	if brandID := c.QueryParam("brand_id"); brandID != "" {
		id, err := uuid.Parse(brandID)
		if err != nil {
			return fail(c, catalog.BadRequest("invalid brand_id %q", brandID))
		}
		query = query.Where("brand_id = ?", id)
	}
	if q := c.QueryParam("q"); q != "" {
		query = query.Where("name_key LIKE ?", "%"+model.NameKey(q)+"%")
	}
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Error("Failed to count variants", zap.Error(err))
		return fail(c, catalog.Internal("failed to list variants", err))
	}
	var variants []model.Variant
	err := query.Preload("PackSizes").Preload("PackTypes").
		Order("name_key").Limit(limit).Offset(offset).Find(&variants).Error
	if err != nil {
		log.Error("Failed to list variants", zap.Error(err))
		return fail(c, catalog.Internal("failed to list variants", err))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data":  variants,
		"page":  page,
		"limit": limit,
		"total": total,
	})
}

// Get retrieves a single variant with its pack entries
func (h *VariantHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	var v model.Variant
	err = h.db.WithContext(c.Request().Context()).
		Preload("Brand").Preload("PackSizes").Preload("PackTypes").
		First(&v, "id = ?", id).Error
	if err != nil {
		return fail(c, catalog.NotFound("variant %s not found", id))
	}
	return c.JSON(http.StatusOK, v)
}

// Create adds a new variant under a live brand, with optional initial pack
// sizes and pack types, all in one transaction
func (h *VariantHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)

	var req VariantRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	name := catalog.NormalizeName(req.Name)
	if name == "" {
		return fail(c, catalog.BadRequest("variant name cannot be empty"))
	}
	sizes, err := normalizePackNames(req.PackSizes, "pack size")
	if err != nil {
		return fail(c, err)
	}
	types, err := normalizePackNames(req.PackTypes, "pack type")
	if err != nil {
		return fail(c, err)
	}

	ctx := c.Request().Context()
	var variant model.Variant
	txErr := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var brand model.Brand
		if err := tx.First(&brand, "id = ?", req.BrandID).Error; err != nil {
			return catalog.NotFound("brand %s not found", req.BrandID)
		}
		variant = model.Variant{
			BrandID:     brand.ID,
			Name:        name,
			Description: req.Description,
			Status:      model.StatusActive,
			CreatedBy:   actor(c),
			UpdatedBy:   actor(c),
		}
		if err := tx.Create(&variant).Error; err != nil {
			if catalog.IsUniqueViolation(err) {
				return catalog.Conflict("variant %q already exists under %s", name, brand.Name)
			}
			return catalog.Internal("failed to create variant", err)
		}
		for _, s := range sizes {
			entry := model.PackSize{VariantID: variant.ID, Name: s, Status: model.StatusActive, CreatedBy: actor(c), UpdatedBy: actor(c)}
			if err := tx.Create(&entry).Error; err != nil {
				if catalog.IsUniqueViolation(err) {
					return catalog.Conflict("duplicate pack size %q", s)
				}
				return catalog.Internal("failed to create pack size", err)
			}
		}
		for _, t := range types {
			entry := model.PackType{VariantID: variant.ID, Name: t, Status: model.StatusActive, CreatedBy: actor(c), UpdatedBy: actor(c)}
			if err := tx.Create(&entry).Error; err != nil {
				if catalog.IsUniqueViolation(err) {
					return catalog.Conflict("duplicate pack type %q", t)
				}
				return catalog.Internal("failed to create pack type", err)
			}
		}
		return tx.Preload("PackSizes").Preload("PackTypes").First(&variant, "id = ?", variant.ID).Error
	})
	if txErr != nil {
		return fail(c, txErr)
	}

	log.Info("Variant created",
		zap.String("id", variant.ID.String()),
		zap.String("name", variant.Name),
		zap.Int("pack_sizes", len(sizes)),
		zap.Int("pack_types", len(types)))
	prometheus.RecordCatalogOperation("variant", "create")
	h.audit.Record(ctx, audit.Entry{
		Action:     "create",
		Resource:   "variant",
		ResourceID: variant.ID.String(),
		Actor:      actor(c),
		After:      variant.Name,
	})
	return c.JSON(http.StatusCreated, variant)
}

// Update edits a variant. A rename cascades into dependent products, and the
// optional pack arrays reconcile membership: entries without an id are
// created, matched ids are renamed, omitted ids are archived unless a live
// product references them.
func (h *VariantHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	var req catalog.VariantUpdate
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	variant, err := h.engine.UpdateVariant(c.Request().Context(), id, req, actor(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, variant)
}

// Delete archives the variant together with its pack entries, provided no
// live product references any of them
func (h *VariantHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	if err := h.lifecycle.Delete(c.Request().Context(), catalog.KindVariant, id, actor(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "variant deleted successfully"})
}

// Reactivate restores a soft-deleted variant and the pack entries archived
// with it
func (h *VariantHandler) Reactivate(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	if err := h.lifecycle.Reactivate(c.Request().Context(), catalog.KindVariant, id, actor(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "variant reactivated successfully"})
}

// normalizePackNames normalizes and de-duplicates an initial pack name list
func normalizePackNames(raw []string, label string) ([]string, error) {
	seen := map[string]bool{}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		name := catalog.NormalizeName(r)
		if name == "" {
			return nil, catalog.BadRequest("%s name cannot be empty", label)
		}
		key := model.NameKey(name)
		if seen[key] {
			return nil, catalog.BadRequest("duplicate %s %q", label, name)
		}
		seen[key] = true
		out = append(out, name)
	}
	return out, nil
}
