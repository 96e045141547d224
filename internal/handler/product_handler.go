package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"catalog-service/internal/audit"
	"catalog-service/internal/cache"
	"catalog-service/internal/catalog"
	"catalog-service/internal/model"
	"catalog-service/pkg/logger"
	"catalog-service/prometheus"
)

// ProductRequest defines the structure for interactive product creation. The
// product name and SKU are always derived from the ancestor chain, they
// cannot be supplied directly.
type ProductRequest struct {
	BrandID       uuid.UUID       `json:"brand_id" validate:"required"`
	VariantID     uuid.UUID       `json:"variant_id" validate:"required"`
	PackSizeID    uuid.UUID       `json:"pack_size_id" validate:"required"`
	PackTypeID    uuid.UUID       `json:"pack_type_id" validate:"required"`
	CategoryID    uuid.UUID       `json:"category_id" validate:"required"`
	SubcategoryID *uuid.UUID      `json:"subcategory_id"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Discount      int             `json:"discount" validate:"gte=0,lte=100"`
	Images        []string        `json:"images"`
	Thumbnail     string          `json:"thumbnail"`
}

// PublishRequest optionally adjusts price and discount while publishing
type PublishRequest struct {
	Price    *decimal.Decimal `json:"price"`
	Discount *int             `json:"discount"`
}

type ProductHandler struct {
	db          *gorm.DB
	lifecycle   *catalog.Lifecycle
	invalidator cache.Invalidator
	audit       audit.Recorder
}

func NewProductHandler(db *gorm.DB, lifecycle *catalog.Lifecycle, invalidator cache.Invalidator, recorder audit.Recorder) *ProductHandler {
	return &ProductHandler{db: db, lifecycle: lifecycle, invalidator: invalidator, audit: recorder}
}

// List retrieves products with hierarchy and status filters
func (h *ProductHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	page, limit, offset := pagination(c)

	query := h.db.WithContext(c.Request().Context()).Model(&model.Product{})
	for _, f := range []struct{ param, column string }{
		{"manufacturer_id", "manufacturer_id"},
		{"brand_id", "brand_id"},
		{"variant_id", "variant_id"},
		{"category_id", "category_id"},
		{"subcategory_id", "subcategory_id"},
	} {
		if v := c.QueryParam(f.param); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				return fail(c, catalog.BadRequest("invalid %s %q", f.param, v))
			}
			query = query.Where(f.column+" = ?", id)
		}
	}
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if q := c.QueryParam("q"); q != "" {
		pattern := "%" + q + "%"
		query = query.Where("name ILIKE ? OR sku ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Error("Failed to count products", zap.Error(err))
		return fail(c, catalog.Internal("failed to list products", err))
	}
	var products []model.Product
	err := query.
		Preload("Brand").Preload("Variant").Preload("PackSize").Preload("PackType").
		Order("name").Limit(limit).Offset(offset).Find(&products).Error
	if err != nil {
		log.Error("Failed to list products", zap.Error(err))
		return fail(c, catalog.Internal("failed to list products", err))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data":  products,
		"page":  page,
		"limit": limit,
		"total": total,
	})
}

// Get retrieves a single product with its full ancestor chain
func (h *ProductHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	var p model.Product
	err = h.db.WithContext(c.Request().Context()).
		Preload("Manufacturer").Preload("Brand").Preload("Variant").
		Preload("PackSize").Preload("PackType").
		Preload("Category").Preload("Subcategory").
		First(&p, "id = ?", id).Error
	if err != nil {
		return fail(c, catalog.NotFound("product %s not found", id))
	}
	return c.JSON(http.StatusOK, p)
}

// Create adds a single product interactively. The ancestor chain is loaded
// and checked for consistency, then the identity is derived the same way the
// bulk path derives it.
func (h *ProductHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.Price.IsNegative() {
		return fail(c, catalog.BadRequest("price cannot be negative"))
	}

	ctx := c.Request().Context()
	var product model.Product
	txErr := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var brand model.Brand
		if err := tx.First(&brand, "id = ?", req.BrandID).Error; err != nil {
			return catalog.NotFound("brand %s not found", req.BrandID)
		}
		var variant model.Variant
		if err := tx.First(&variant, "id = ?", req.VariantID).Error; err != nil {
			return catalog.NotFound("variant %s not found", req.VariantID)
		}
		if variant.BrandID != brand.ID {
			return catalog.BadRequest("variant %s does not belong to brand %s", variant.ID, brand.ID)
		}
		var size model.PackSize
		if err := tx.First(&size, "id = ?", req.PackSizeID).Error; err != nil {
			return catalog.NotFound("pack size %s not found", req.PackSizeID)
		}
		if size.VariantID != variant.ID {
			return catalog.BadRequest("pack size %s does not belong to variant %s", size.ID, variant.ID)
		}
		var packType model.PackType
		if err := tx.First(&packType, "id = ?", req.PackTypeID).Error; err != nil {
			return catalog.NotFound("pack type %s not found", req.PackTypeID)
		}
		if packType.VariantID != variant.ID {
			return catalog.BadRequest("pack type %s does not belong to variant %s", packType.ID, variant.ID)
		}
		var category model.Category
		if err := tx.First(&category, "id = ?", req.CategoryID).Error; err != nil {
			return catalog.NotFound("category %s not found", req.CategoryID)
		}
		if req.SubcategoryID != nil {
			var sub model.Subcategory
			if err := tx.First(&sub, "id = ?", *req.SubcategoryID).Error; err != nil {
				return catalog.NotFound("subcategory %s not found", *req.SubcategoryID)
			}
			if sub.CategoryID != category.ID {
				return catalog.BadRequest("subcategory %s does not belong to category %s", sub.ID, category.ID)
			}
		}

		identity := catalog.DeriveProductIdentity(brand.Name, variant.Name, size.Name, packType.Name)
		var taken int64
		err := tx.Model(&model.Product{}).
			Where("name = ? OR sku = ?", identity.Name, identity.SKU).
			Count(&taken).Error
		if err != nil {
			return catalog.Internal("product conflict check failed", err)
		}
		if taken > 0 {
			return catalog.Conflict("a live product already exists with name %q or sku %q", identity.Name, identity.SKU)
		}

		var images datatypes.JSON
		if len(req.Images) > 0 {
			raw, err := json.Marshal(req.Images)
			if err != nil {
				return catalog.BadRequest("invalid images list")
			}
			images = datatypes.JSON(raw)
		}

		product = model.Product{
			Name:           identity.Name,
			SKU:            identity.SKU,
			Barcode:        identity.Barcode,
			Description:    req.Description,
			Price:          req.Price,
			Discount:       req.Discount,
			Images:         images,
			Thumbnail:      req.Thumbnail,
			Status:         model.ProductStatusQueue,
			ManufacturerID: brand.ManufacturerID,
			BrandID:        brand.ID,
			VariantID:      variant.ID,
			PackSizeID:     size.ID,
			PackTypeID:     packType.ID,
			CategoryID:     category.ID,
			SubcategoryID:  req.SubcategoryID,
			CreatedBy:      actor(c),
			UpdatedBy:      actor(c),
		}
		if err := tx.Create(&product).Error; err != nil {
			if catalog.IsUniqueViolation(err) {
				return catalog.Conflict("duplicate %s for derived identity %q", catalog.UniqueScope(err), identity.Name)
			}
			return catalog.Internal("product creation failed", err)
		}
		return nil
	})
	if txErr != nil {
		return fail(c, txErr)
	}

	log.Info("Product created",
		zap.String("id", product.ID.String()),
		zap.String("sku", product.SKU))
	prometheus.RecordCatalogOperation("product", "create")
	h.audit.Record(ctx, audit.Entry{
		Action:     "create",
		Resource:   "product",
		ResourceID: product.ID.String(),
		Actor:      actor(c),
		After:      product.Name,
	})
	h.invalidator.InvalidateProducts(ctx, "product_created", product.ID)
	return c.JSON(http.StatusCreated, product)
}

// Publish moves a queued product live. Price and discount may be set in the
// same call; publishing requires a positive price either way.
func (h *ProductHandler) Publish(c echo.Context) error {
	log := logger.FromContext(c)
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}

	var req PublishRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	ctx := c.Request().Context()
	var p model.Product
	if err := h.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return fail(c, catalog.NotFound("product %s not found", id))
	}
	if p.Status == model.ProductStatusLive && req.Price == nil && req.Discount == nil {
		return c.JSON(http.StatusOK, p)
	}

	price := p.Price
	if req.Price != nil {
		if req.Price.IsNegative() {
			return fail(c, catalog.BadRequest("price cannot be negative"))
		}
		price = *req.Price
	}
	if !price.IsPositive() {
		return fail(c, catalog.BadRequest("product needs a positive price before publishing"))
	}
	if req.Discount != nil && (*req.Discount < 0 || *req.Discount > 100) {
		return fail(c, catalog.BadRequest("discount must be a whole number between 0 and 100"))
	}

	updates := map[string]interface{}{
		"status":     model.ProductStatusLive,
		"price":      price,
		"updated_by": actor(c),
	}
	if req.Discount != nil {
		updates["discount"] = *req.Discount
	}
	if err := h.db.WithContext(ctx).Model(&p).Updates(updates).Error; err != nil {
		log.Error("Failed to publish product", zap.Error(err))
		return fail(c, catalog.Internal("failed to publish product", err))
	}

	log.Info("Product published",
		zap.String("id", p.ID.String()),
		zap.String("price", price.String()))
	prometheus.RecordCatalogOperation("product", "publish")
	h.audit.Record(ctx, audit.Entry{
		Action:     "publish",
		Resource:   "product",
		ResourceID: p.ID.String(),
		Actor:      actor(c),
		Metadata:   map[string]interface{}{"price": price.String()},
	})
	h.invalidator.InvalidateProducts(ctx, "product_published", p.ID)
	return c.JSON(http.StatusOK, p)
}

// Delete soft-deletes a product
func (h *ProductHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	if err := h.lifecycle.Delete(c.Request().Context(), catalog.KindProduct, id, actor(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "product deleted successfully"})
}

// Reactivate restores a soft-deleted product into the queue, provided its
// ancestors are live and its identity slot is still free
func (h *ProductHandler) Reactivate(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	if err := h.lifecycle.Reactivate(c.Request().Context(), catalog.KindProduct, id, actor(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "product reactivated successfully"})
}
