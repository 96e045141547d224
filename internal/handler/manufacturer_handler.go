package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"catalog-service/internal/audit"
	"catalog-service/internal/catalog"
	"catalog-service/internal/model"
	"catalog-service/pkg/logger"
	"catalog-service/prometheus"
)

// ManufacturerRequest defines the structure for manufacturer creation requests
type ManufacturerRequest struct {
	Name          string `json:"name" validate:"required"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone"`
	Country       string `json:"country"`
}

// ManufacturerUpdateRequest carries optional field updates
type ManufacturerUpdateRequest struct {
	Name          *string `json:"name"`
	ContactPerson *string `json:"contact_person"`
	Email         *string `json:"email"`
	Phone         *string `json:"phone"`
	Country       *string `json:"country"`
}

type ManufacturerHandler struct {
	db        *gorm.DB
	lifecycle *catalog.Lifecycle
	audit     audit.Recorder
}

func NewManufacturerHandler(db *gorm.DB, lifecycle *catalog.Lifecycle, recorder audit.Recorder) *ManufacturerHandler {
	return &ManufacturerHandler{db: db, lifecycle: lifecycle, audit: recorder}
}

// List retrieves manufacturers with optional name and status filters
func (h *ManufacturerHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	page, limit, offset := pagination(c)

	query := h.db.WithContext(c.Request().Context()).Model(&model.Manufacturer{})
	if q := c.QueryParam("q"); q != "" {
		query = query.Where("name_key LIKE ?", "%"+model.NameKey(q)+"%")
	}
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Error("Failed to count manufacturers", zap.Error(err))
		return fail(c, catalog.Internal("failed to list manufacturers", err))
	}
	var manufacturers []model.Manufacturer
	if err := query.Order("name_key").Limit(limit).Offset(offset).Find(&manufacturers).Error; err != nil {
		log.Error("Failed to list manufacturers", zap.Error(err))
		return fail(c, catalog.Internal("failed to list manufacturers", err))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data":  manufacturers,
		"page":  page,
		"limit": limit,
		"total": total,
	})
}

// Get retrieves a single manufacturer by ID
func (h *ManufacturerHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	var m model.Manufacturer
	if err := h.db.WithContext(c.Request().Context()).First(&m, "id = ?", id).Error; err != nil {
		return fail(c, catalog.NotFound("manufacturer %s not found", id))
	}
	return c.JSON(http.StatusOK, m)
}

// Create adds a new manufacturer
func (h *ManufacturerHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)

	var req ManufacturerRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	name := catalog.NormalizeName(req.Name)
	if name == "" {
		return fail(c, catalog.BadRequest("manufacturer name cannot be empty"))
	}

	m := model.Manufacturer{
		Name:          name,
		ContactPerson: req.ContactPerson,
		Email:         req.Email,
		Phone:         req.Phone,
		Country:       req.Country,
		Status:        model.StatusActive,
		CreatedBy:     actor(c),
		UpdatedBy:     actor(c),
	}
	if err := h.db.WithContext(c.Request().Context()).Create(&m).Error; err != nil {
		if catalog.IsUniqueViolation(err) {
			return fail(c, catalog.Conflict("manufacturer %q already exists", name))
		}
		log.Error("Failed to create manufacturer", zap.Error(err))
		return fail(c, catalog.Internal("failed to create manufacturer", err))
	}

	log.Info("Manufacturer created", zap.String("id", m.ID.String()), zap.String("name", m.Name))
	prometheus.RecordCatalogOperation("manufacturer", "create")
	h.audit.Record(c.Request().Context(), audit.Entry{
		Action:     "create",
		Resource:   "manufacturer",
		ResourceID: m.ID.String(),
		Actor:      actor(c),
		After:      m.Name,
	})
	return c.JSON(http.StatusCreated, m)
}

// Update edits manufacturer fields. A manufacturer rename touches no derived
// product identity, so no cascade is involved.
func (h *ManufacturerHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}

	var req ManufacturerUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	ctx := c.Request().Context()
	var m model.Manufacturer
	if err := h.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return fail(c, catalog.NotFound("manufacturer %s not found", id))
	}

	updates := map[string]interface{}{}
	oldName := m.Name
	if req.Name != nil {
		name := catalog.NormalizeName(*req.Name)
		if name == "" {
			return fail(c, catalog.BadRequest("manufacturer name cannot be empty"))
		}
		if name != m.Name {
			if err := catalog.AssertNameFree(h.db.WithContext(ctx), &model.Manufacturer{}, name, m.ID, "manufacturer", nil); err != nil {
				return fail(c, err)
			}
			updates["name"] = name
			updates["name_key"] = model.NameKey(name)
		}
	}
	if req.ContactPerson != nil {
		updates["contact_person"] = *req.ContactPerson
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Country != nil {
		updates["country"] = *req.Country
	}
	if len(updates) == 0 {
		return c.JSON(http.StatusOK, m)
	}
	updates["updated_by"] = actor(c)

	if err := h.db.WithContext(ctx).Model(&m).Updates(updates).Error; err != nil {
		if catalog.IsUniqueViolation(err) {
			return fail(c, catalog.Conflict("manufacturer name is already taken"))
		}
		log.Error("Failed to update manufacturer", zap.Error(err))
		return fail(c, catalog.Internal("failed to update manufacturer", err))
	}

	log.Info("Manufacturer updated", zap.String("id", m.ID.String()))
	prometheus.RecordCatalogOperation("manufacturer", "update")
	h.audit.Record(ctx, audit.Entry{
		Action:     "update",
		Resource:   "manufacturer",
		ResourceID: m.ID.String(),
		Actor:      actor(c),
		Before:     oldName,
		After:      m.Name,
	})
	return c.JSON(http.StatusOK, m)
}

// Delete soft-deletes a manufacturer with no live brands
func (h *ManufacturerHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	if err := h.lifecycle.Delete(c.Request().Context(), catalog.KindManufacturer, id, actor(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "manufacturer deleted successfully"})
}

// Reactivate restores a soft-deleted manufacturer
func (h *ManufacturerHandler) Reactivate(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	if err := h.lifecycle.Reactivate(c.Request().Context(), catalog.KindManufacturer, id, actor(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "manufacturer reactivated successfully"})
}
