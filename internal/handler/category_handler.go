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

// CategoryRequest defines the structure for category creation requests
type CategoryRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// SubcategoryRequest defines the structure for subcategory creation requests
type SubcategoryRequest struct {
	CategoryID  uuid.UUID `json:"category_id" validate:"required"`
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description"`
}

// TaxonomyUpdateRequest carries optional name/description updates shared by
// both taxonomy levels. Slugs stay stable across renames.
type TaxonomyUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type CategoryHandler struct {
	db        *gorm.DB
	lifecycle *catalog.Lifecycle
	audit     audit.Recorder
}

func NewCategoryHandler(db *gorm.DB, lifecycle *catalog.Lifecycle, recorder audit.Recorder) *CategoryHandler {
	return &CategoryHandler{db: db, lifecycle: lifecycle, audit: recorder}
}

// ListCategories retrieves all categories
func (h *CategoryHandler) ListCategories(c echo.Context) error {
	log := logger.FromContext(c)
	page, limit, offset := pagination(c)

	query := h.db.WithContext(c.Request().Context()).Model(&model.Category{})
	if q := c.QueryParam("q"); q != "" {
		query = query.Where("name_key LIKE ?", "%"+model.NameKey(q)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Error("Failed to count categories", zap.Error(err))
		return fail(c, catalog.Internal("failed to list categories", err))
	}
	var categories []model.Category
	if err := query.Order("name_key").Limit(limit).Offset(offset).Find(&categories).Error; err != nil {
		log.Error("Failed to list categories", zap.Error(err))
		return fail(c, catalog.Internal("failed to list categories", err))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data":  categories,
		"page":  page,
		"limit": limit,
		"total": total,
	})
}

// GetCategory retrieves a single category by ID
func (h *CategoryHandler) GetCategory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	var cat model.Category
	if err := h.db.WithContext(c.Request().Context()).First(&cat, "id = ?", id).Error; err != nil {
		return fail(c, catalog.NotFound("category %s not found", id))
	}
	return c.JSON(http.StatusOK, cat)
}

// CreateCategory adds a new top-level category with a generated slug
func (h *CategoryHandler) CreateCategory(c echo.Context) error {
	log := logger.FromContext(c)

	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	name := catalog.NormalizeName(req.Name)
	if name == "" {
		return fail(c, catalog.BadRequest("category name cannot be empty"))
	}

	ctx := c.Request().Context()
	slug, err := catalog.FreeSlug(h.db.WithContext(ctx), &model.Category{}, name)
	if err != nil {
		return fail(c, err)
	}

	cat := model.Category{
		Name:        name,
		Slug:        slug,
		Description: req.Description,
		Status:      model.StatusActive,
		CreatedBy:   actor(c),
		UpdatedBy:   actor(c),
	}
	if err := h.db.WithContext(ctx).Create(&cat).Error; err != nil {
		if catalog.IsUniqueViolation(err) {
			return fail(c, catalog.Conflict("duplicate %s", catalog.UniqueScope(err)))
		}
		log.Error("Failed to create category", zap.Error(err))
		return fail(c, catalog.Internal("failed to create category", err))
	}

	log.Info("Category created", zap.String("id", cat.ID.String()), zap.String("slug", cat.Slug))
	prometheus.RecordCatalogOperation("category", "create")
	h.audit.Record(ctx, audit.Entry{
		Action:     "create",
		Resource:   "category",
		ResourceID: cat.ID.String(),
		Actor:      actor(c),
		After:      cat.Name,
	})
	return c.JSON(http.StatusCreated, cat)
}

// UpdateCategory edits name or description. The slug is not regenerated, so
// stored links keep working after a rename.
func (h *CategoryHandler) UpdateCategory(c echo.Context) error {
	log := logger.FromContext(c)
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}

	var req TaxonomyUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	ctx := c.Request().Context()
	var cat model.Category
	if err := h.db.WithContext(ctx).First(&cat, "id = ?", id).Error; err != nil {
		return fail(c, catalog.NotFound("category %s not found", id))
	}

	updates := map[string]interface{}{}
	oldName := cat.Name
	if req.Name != nil {
		name := catalog.NormalizeName(*req.Name)
		if name == "" {
			return fail(c, catalog.BadRequest("category name cannot be empty"))
		}
		if name != cat.Name {
			if err := catalog.AssertNameFree(h.db.WithContext(ctx), &model.Category{}, name, cat.ID, "category", nil); err != nil {
				return fail(c, err)
			}
			updates["name"] = name
			updates["name_key"] = model.NameKey(name)
		}
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if len(updates) == 0 {
		return c.JSON(http.StatusOK, cat)
	}
	updates["updated_by"] = actor(c)

	if err := h.db.WithContext(ctx).Model(&cat).Updates(updates).Error; err != nil {
		if catalog.IsUniqueViolation(err) {
			return fail(c, catalog.Conflict("category name is already taken"))
		}
		log.Error("Failed to update category", zap.Error(err))
		return fail(c, catalog.Internal("failed to update category", err))
	}

	prometheus.RecordCatalogOperation("category", "update")
	h.audit.Record(ctx, audit.Entry{
		Action:     "update",
		Resource:   "category",
		ResourceID: cat.ID.String(),
		Actor:      actor(c),
		Before:     oldName,
		After:      cat.Name,
	})
	return c.JSON(http.StatusOK, cat)
}

// DeleteCategory soft-deletes a category with no live subcategories or
// products
func (h *CategoryHandler) DeleteCategory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	if err := h.lifecycle.Delete(c.Request().Context(), catalog.KindCategory, id, actor(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "category deleted successfully"})
}

// ReactivateCategory restores a soft-deleted category
func (h *CategoryHandler) ReactivateCategory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	if err := h.lifecycle.Reactivate(c.Request().Context(), catalog.KindCategory, id, actor(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "category reactivated successfully"})
}

// ListSubcategories retrieves subcategories, optionally filtered by category
func (h *CategoryHandler) ListSubcategories(c echo.Context) error {
	log := logger.FromContext(c)
	page, limit, offset := pagination(c)

	query := h.db.WithContext(c.Request().Context()).Model(&model.Subcategory{})
	if categoryID := c.QueryParam("category_id"); categoryID != "" {
		id, err := uuid.Parse(categoryID)
		if err != nil {
			return fail(c, catalog.BadRequest("invalid category_id %q", categoryID))
		}
		query = query.Where("category_id = ?", id)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Error("Failed to count subcategories", zap.Error(err))
		return fail(c, catalog.Internal("failed to list subcategories", err))
	}
	var subcategories []model.Subcategory
	err := query.Preload("Category").Order("name_key").Limit(limit).Offset(offset).Find(&subcategories).Error
	if err != nil {
		log.Error("Failed to list subcategories", zap.Error(err))
		return fail(c, catalog.Internal("failed to list subcategories", err))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data":  subcategories,
		"page":  page,
		"limit": limit,
		"total": total,
	})
}

// GetSubcategory retrieves a single subcategory by ID
func (h *CategoryHandler) GetSubcategory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	var sub model.Subcategory
	err = h.db.WithContext(c.Request().Context()).Preload("Category").First(&sub, "id = ?", id).Error
	if err != nil {
		return fail(c, catalog.NotFound("subcategory %s not found", id))
	}
	return c.JSON(http.StatusOK, sub)
}

// CreateSubcategory adds a new subcategory under a live category
func (h *CategoryHandler) CreateSubcategory(c echo.Context) error {
	log := logger.FromContext(c)

	var req SubcategoryRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	name := catalog.NormalizeName(req.Name)
	if name == "" {
		return fail(c, catalog.BadRequest("subcategory name cannot be empty"))
	}

	ctx := c.Request().Context()
	var cat model.Category
	if err := h.db.WithContext(ctx).First(&cat, "id = ?", req.CategoryID).Error; err != nil {
		return fail(c, catalog.NotFound("category %s not found", req.CategoryID))
	}
	slug, err := catalog.FreeSlug(h.db.WithContext(ctx), &model.Subcategory{}, name)
	if err != nil {
		return fail(c, err)
	}

	sub := model.Subcategory{
		CategoryID:  cat.ID,
		Name:        name,
		Slug:        slug,
		Description: req.Description,
		Status:      model.StatusActive,
		CreatedBy:   actor(c),
		UpdatedBy:   actor(c),
	}
	if err := h.db.WithContext(ctx).Create(&sub).Error; err != nil {
		if catalog.IsUniqueViolation(err) {
			return fail(c, catalog.Conflict("duplicate %s", catalog.UniqueScope(err)))
		}
		log.Error("Failed to create subcategory", zap.Error(err))
		return fail(c, catalog.Internal("failed to create subcategory", err))
	}

	log.Info("Subcategory created",
		zap.String("id", sub.ID.String()),
		zap.String("category_id", cat.ID.String()),
		zap.String("slug", sub.Slug))
	prometheus.RecordCatalogOperation("subcategory", "create")
	h.audit.Record(ctx, audit.Entry{
		Action:     "create",
		Resource:   "subcategory",
		ResourceID: sub.ID.String(),
		Actor:      actor(c),
		After:      sub.Name,
	})
	return c.JSON(http.StatusCreated, sub)
}

// UpdateSubcategory edits name or description within the owning category
func (h *CategoryHandler) UpdateSubcategory(c echo.Context) error {
	log := logger.FromContext(c)
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}

	var req TaxonomyUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	ctx := c.Request().Context()
	var sub model.Subcategory
	if err := h.db.WithContext(ctx).First(&sub, "id = ?", id).Error; err != nil {
		return fail(c, catalog.NotFound("subcategory %s not found", id))
	}

	updates := map[string]interface{}{}
	oldName := sub.Name
	if req.Name != nil {
		name := catalog.NormalizeName(*req.Name)
		if name == "" {
			return fail(c, catalog.BadRequest("subcategory name cannot be empty"))
		}
		if name != sub.Name {
			err := catalog.AssertNameFree(h.db.WithContext(ctx), &model.Subcategory{}, name, sub.ID, "subcategory", func(q *gorm.DB) *gorm.DB {
				return q.Where("category_id = ?", sub.CategoryID)
			})
			if err != nil {
				return fail(c, err)
			}
			updates["name"] = name
			updates["name_key"] = model.NameKey(name)
		}
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if len(updates) == 0 {
		return c.JSON(http.StatusOK, sub)
	}
	updates["updated_by"] = actor(c)

	if err := h.db.WithContext(ctx).Model(&sub).Updates(updates).Error; err != nil {
		if catalog.IsUniqueViolation(err) {
			return fail(c, catalog.Conflict("subcategory name is already taken"))
		}
		log.Error("Failed to update subcategory", zap.Error(err))
		return fail(c, catalog.Internal("failed to update subcategory", err))
	}

	prometheus.RecordCatalogOperation("subcategory", "update")
	h.audit.Record(ctx, audit.Entry{
		Action:     "update",
		Resource:   "subcategory",
		ResourceID: sub.ID.String(),
		Actor:      actor(c),
		Before:     oldName,
		After:      sub.Name,
	})
	return c.JSON(http.StatusOK, sub)
}

// DeleteSubcategory soft-deletes a subcategory with no live products
func (h *CategoryHandler) DeleteSubcategory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	if err := h.lifecycle.Delete(c.Request().Context(), catalog.KindSubcategory, id, actor(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "subcategory deleted successfully"})
}

// ReactivateSubcategory restores a soft-deleted subcategory
func (h *CategoryHandler) ReactivateSubcategory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	if err := h.lifecycle.Reactivate(c.Request().Context(), catalog.KindSubcategory, id, actor(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "subcategory reactivated successfully"})
}
