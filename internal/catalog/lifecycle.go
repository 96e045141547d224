package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"catalog-service/internal/audit"
	"catalog-service/internal/cache"
	"catalog-service/internal/model"
	"catalog-service/prometheus"
)

// EntityKind names the catalog tables the lifecycle guard acts on.
type EntityKind string

const (
	KindManufacturer EntityKind = "manufacturer"
	KindBrand        EntityKind = "brand"
	KindVariant      EntityKind = "variant"
	KindPackSize     EntityKind = "pack_size"
	KindPackType     EntityKind = "pack_type"
	KindCategory     EntityKind = "category"
	KindSubcategory  EntityKind = "subcategory"
	KindProduct      EntityKind = "product"
)

// Lifecycle enforces the shared soft-delete and reactivation rules: no
// delete while live children exist, no reactivation under a deleted parent
// or into an occupied name slot. Variant deletion cascades over its pack
// entries as one transaction.
type Lifecycle struct {
	db          *gorm.DB
	invalidator cache.Invalidator
	audit       audit.Recorder
}

func NewLifecycle(db *gorm.DB, invalidator cache.Invalidator, recorder audit.Recorder) *Lifecycle {
	return &Lifecycle{db: db, invalidator: invalidator, audit: recorder}
}

// Delete soft-deletes one entity after its child guard passes.
func (l *Lifecycle) Delete(ctx context.Context, kind EntityKind, id uuid.UUID, actor uint) error {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch kind {
		case KindManufacturer:
			return l.deleteManufacturer(tx, id, actor)
		case KindBrand:
			return l.deleteBrand(tx, id, actor)
		case KindVariant:
			return l.deleteVariant(tx, id, actor)
		case KindPackSize:
			return l.deletePackEntry(tx, &model.PackSize{}, "pack_size_id", "pack size", id, actor)
		case KindPackType:
			return l.deletePackEntry(tx, &model.PackType{}, "pack_type_id", "pack type", id, actor)
		case KindCategory:
			return l.deleteCategory(tx, id, actor)
		case KindSubcategory:
			return l.deleteSubcategory(tx, id, actor)
		case KindProduct:
			return l.deleteProduct(tx, id, actor)
		default:
			return BadRequest("unknown entity kind %q", kind)
		}
	})
	if err != nil {
		return err
	}
	l.finish(ctx, kind, id, "delete", actor)
	return nil
}

// Reactivate restores one soft-deleted entity.
func (l *Lifecycle) Reactivate(ctx context.Context, kind EntityKind, id uuid.UUID, actor uint) error {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch kind {
		case KindManufacturer:
			return l.reactivateManufacturer(tx, id, actor)
		case KindBrand:
			return l.reactivateBrand(tx, id, actor)
		case KindVariant:
			return l.reactivateVariant(tx, id, actor)
		case KindPackSize:
			return l.reactivatePackEntry(tx, &model.PackSize{}, "pack size", id, actor)
		case KindPackType:
			return l.reactivatePackEntry(tx, &model.PackType{}, "pack type", id, actor)
		case KindCategory:
			return l.reactivateCategory(tx, id, actor)
		case KindSubcategory:
			return l.reactivateSubcategory(tx, id, actor)
		case KindProduct:
			return l.reactivateProduct(tx, id, actor)
		default:
			return BadRequest("unknown entity kind %q", kind)
		}
	})
	if err != nil {
		return err
	}
	l.finish(ctx, kind, id, "reactivate", actor)
	return nil
}

func (l *Lifecycle) finish(ctx context.Context, kind EntityKind, id uuid.UUID, action string, actor uint) {
	prometheus.RecordCatalogOperation(string(kind), action)
	l.audit.Record(ctx, audit.Entry{
		Action:     action,
		Resource:   string(kind),
		ResourceID: id.String(),
		Actor:      actor,
	})
	if kind == KindProduct {
		l.invalidator.InvalidateProducts(ctx, "product_"+action, id)
		return
	}
	l.invalidator.InvalidateCatalog(ctx, string(kind)+"_"+action)
}

func (l *Lifecycle) deleteManufacturer(tx *gorm.DB, id uuid.UUID, actor uint) error {
	var m model.Manufacturer
	if err := tx.First(&m, "id = ?", id).Error; err != nil {
		return notFoundOr(err, "manufacturer", id)
	}
	n, err := liveChildren(tx, &model.Brand{}, "manufacturer_id", id)
	if err != nil {
		return err
	}
	if n > 0 {
		return BadRequest("cannot delete manufacturer with %d live brands", n)
	}
	return softDeleteRow(tx, &model.Manufacturer{}, id, actor, time.Now())
}

func (l *Lifecycle) deleteBrand(tx *gorm.DB, id uuid.UUID, actor uint) error {
	var b model.Brand
	if err := tx.First(&b, "id = ?", id).Error; err != nil {
		return notFoundOr(err, "brand", id)
	}
	n, err := liveChildren(tx, &model.Variant{}, "brand_id", id)
	if err != nil {
		return err
	}
	if n > 0 {
		return BadRequest("cannot delete brand with %d live variants", n)
	}
	return softDeleteRow(tx, &model.Brand{}, id, actor, time.Now())
}

// deleteVariant archives every pack entry of the variant and then the
// variant itself, stamping one shared timestamp so reactivation can tell
// the cascade set apart from entries archived earlier and on their own.
func (l *Lifecycle) deleteVariant(tx *gorm.DB, id uuid.UUID, actor uint) error {
	var v model.Variant
	if err := tx.Preload("PackSizes").Preload("PackTypes").First(&v, "id = ?", id).Error; err != nil {
		return notFoundOr(err, "variant", id)
	}

	q := tx.Model(&model.Product{}).Where("variant_id = ?", id)
	if ids := packIDs(v.PackSizes); len(ids) > 0 {
		q = q.Or("pack_size_id IN ?", ids)
	}
	if ids := packIDs(v.PackTypes); len(ids) > 0 {
		q = q.Or("pack_type_id IN ?", ids)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return Internal("product reference check failed", err)
	}
	if n > 0 {
		return BadRequest("cannot delete variant with %d live products", n)
	}

	now := time.Now()
	if ids := packIDs(v.PackSizes); len(ids) > 0 {
		if err := softDeleteRows(tx, &model.PackSize{}, ids, actor, now); err != nil {
			return err
		}
	}
	if ids := packIDs(v.PackTypes); len(ids) > 0 {
		if err := softDeleteRows(tx, &model.PackType{}, ids, actor, now); err != nil {
			return err
		}
	}
	return softDeleteRow(tx, &model.Variant{}, id, actor, now)
}

func (l *Lifecycle) deletePackEntry(tx *gorm.DB, table interface{}, column, label string, id uuid.UUID, actor uint) error {
	if err := tx.First(table, "id = ?", id).Error; err != nil {
		return notFoundOr(err, label, id)
	}
	n, err := liveChildren(tx, &model.Product{}, column, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return BadRequest("cannot delete %s referenced by %d live products", label, n)
	}
	return softDeleteRow(tx, table, id, actor, time.Now())
}

func (l *Lifecycle) deleteCategory(tx *gorm.DB, id uuid.UUID, actor uint) error {
	var c model.Category
	if err := tx.First(&c, "id = ?", id).Error; err != nil {
		return notFoundOr(err, "category", id)
	}
	subs, err := liveChildren(tx, &model.Subcategory{}, "category_id", id)
	if err != nil {
		return err
	}
	products, err := liveChildren(tx, &model.Product{}, "category_id", id)
	if err != nil {
		return err
	}
	if subs > 0 || products > 0 {
		return BadRequest("cannot delete category with %d live subcategories and %d live products", subs, products)
	}
	return softDeleteRow(tx, &model.Category{}, id, actor, time.Now())
}

func (l *Lifecycle) deleteSubcategory(tx *gorm.DB, id uuid.UUID, actor uint) error {
	var s model.Subcategory
	if err := tx.First(&s, "id = ?", id).Error; err != nil {
		return notFoundOr(err, "subcategory", id)
	}
	n, err := liveChildren(tx, &model.Product{}, "subcategory_id", id)
	if err != nil {
		return err
	}
	if n > 0 {
		return BadRequest("cannot delete subcategory with %d live products", n)
	}
	return softDeleteRow(tx, &model.Subcategory{}, id, actor, time.Now())
}

func (l *Lifecycle) deleteProduct(tx *gorm.DB, id uuid.UUID, actor uint) error {
	var p model.Product
	if err := tx.First(&p, "id = ?", id).Error; err != nil {
		return notFoundOr(err, "product", id)
	}
	return softDeleteRow(tx, &model.Product{}, id, actor, time.Now())
}

func (l *Lifecycle) reactivateManufacturer(tx *gorm.DB, id uuid.UUID, actor uint) error {
	var m model.Manufacturer
	if err := loadDeleted(tx, &m, "manufacturer", id); err != nil {
		return err
	}
	if err := AssertNameFree(tx, &model.Manufacturer{}, m.Name, m.ID, "manufacturer", nil); err != nil {
		return err
	}
	return restoreRow(tx, &model.Manufacturer{}, id, model.StatusActive, actor)
}

func (l *Lifecycle) reactivateBrand(tx *gorm.DB, id uuid.UUID, actor uint) error {
	var b model.Brand
	if err := loadDeleted(tx, &b, "brand", id); err != nil {
		return err
	}
	if err := assertParentLive(tx, &model.Manufacturer{}, b.ManufacturerID, "manufacturer"); err != nil {
		return err
	}
	err := AssertNameFree(tx, &model.Brand{}, b.Name, b.ID, "brand", func(q *gorm.DB) *gorm.DB {
		return q.Where("manufacturer_id = ?", b.ManufacturerID)
	})
	if err != nil {
		return err
	}
	return restoreRow(tx, &model.Brand{}, id, model.StatusActive, actor)
}

// reactivateVariant restores the variant and the pack entries archived in
// its own delete cascade, matched by the shared deletion timestamp. Entries
// archived individually before the cascade stay archived.
func (l *Lifecycle) reactivateVariant(tx *gorm.DB, id uuid.UUID, actor uint) error {
	var v model.Variant
	if err := loadDeleted(tx, &v, "variant", id); err != nil {
		return err
	}
	if err := assertParentLive(tx, &model.Brand{}, v.BrandID, "brand"); err != nil {
		return err
	}
	err := AssertNameFree(tx, &model.Variant{}, v.Name, v.ID, "variant", func(q *gorm.DB) *gorm.DB {
		return q.Where("brand_id = ?", v.BrandID)
	})
	if err != nil {
		return err
	}
	if err := restoreRow(tx, &model.Variant{}, id, model.StatusActive, actor); err != nil {
		return err
	}
	stamp := v.DeletedAt.Time
	restore := map[string]interface{}{
		"status":     model.StatusActive,
		"deleted_at": nil,
		"deleted_by": nil,
		"updated_by": actor,
	}
	err = tx.Unscoped().Model(&model.PackSize{}).
		Where("variant_id = ? AND deleted_at = ?", id, stamp).
		Updates(restore).Error
	if err != nil {
		return Internal("pack size restore failed", err)
	}
	err = tx.Unscoped().Model(&model.PackType{}).
		Where("variant_id = ? AND deleted_at = ?", id, stamp).
		Updates(restore).Error
	if err != nil {
		return Internal("pack type restore failed", err)
	}
	return nil
}

func (l *Lifecycle) reactivatePackEntry(tx *gorm.DB, table interface{}, label string, id uuid.UUID, actor uint) error {
	switch t := table.(type) {
	case *model.PackSize:
		if err := loadDeleted(tx, t, label, id); err != nil {
			return err
		}
		if err := assertParentLive(tx, &model.Variant{}, t.VariantID, "variant"); err != nil {
			return err
		}
		err := AssertNameFree(tx, &model.PackSize{}, t.Name, t.ID, label, func(q *gorm.DB) *gorm.DB {
			return q.Where("variant_id = ?", t.VariantID)
		})
		if err != nil {
			return err
		}
	case *model.PackType:
		if err := loadDeleted(tx, t, label, id); err != nil {
			return err
		}
		if err := assertParentLive(tx, &model.Variant{}, t.VariantID, "variant"); err != nil {
			return err
		}
		err := AssertNameFree(tx, &model.PackType{}, t.Name, t.ID, label, func(q *gorm.DB) *gorm.DB {
			return q.Where("variant_id = ?", t.VariantID)
		})
		if err != nil {
			return err
		}
	}
	return restoreRow(tx, table, id, model.StatusActive, actor)
}

func (l *Lifecycle) reactivateCategory(tx *gorm.DB, id uuid.UUID, actor uint) error {
	var c model.Category
	if err := loadDeleted(tx, &c, "category", id); err != nil {
		return err
	}
	if err := AssertNameFree(tx, &model.Category{}, c.Name, c.ID, "category", nil); err != nil {
		return err
	}
	if err := assertSlugFree(tx, &model.Category{}, c.Slug, c.ID); err != nil {
		return err
	}
	return restoreRow(tx, &model.Category{}, id, model.StatusActive, actor)
}

func (l *Lifecycle) reactivateSubcategory(tx *gorm.DB, id uuid.UUID, actor uint) error {
	var s model.Subcategory
	if err := loadDeleted(tx, &s, "subcategory", id); err != nil {
		return err
	}
	if err := assertParentLive(tx, &model.Category{}, s.CategoryID, "category"); err != nil {
		return err
	}
	err := AssertNameFree(tx, &model.Subcategory{}, s.Name, s.ID, "subcategory", func(q *gorm.DB) *gorm.DB {
		return q.Where("category_id = ?", s.CategoryID)
	})
	if err != nil {
		return err
	}
	if err := assertSlugFree(tx, &model.Subcategory{}, s.Slug, s.ID); err != nil {
		return err
	}
	return restoreRow(tx, &model.Subcategory{}, id, model.StatusActive, actor)
}

// reactivateProduct restores a product into QUEUE; pricing must be
// re-published before it goes live again.
func (l *Lifecycle) reactivateProduct(tx *gorm.DB, id uuid.UUID, actor uint) error {
	var p model.Product
	if err := loadDeleted(tx, &p, "product", id); err != nil {
		return err
	}
	if err := assertParentLive(tx, &model.Brand{}, p.BrandID, "brand"); err != nil {
		return err
	}
	if err := assertParentLive(tx, &model.Variant{}, p.VariantID, "variant"); err != nil {
		return err
	}
	if err := assertParentLive(tx, &model.PackSize{}, p.PackSizeID, "pack size"); err != nil {
		return err
	}
	if err := assertParentLive(tx, &model.PackType{}, p.PackTypeID, "pack type"); err != nil {
		return err
	}
	if err := assertParentLive(tx, &model.Category{}, p.CategoryID, "category"); err != nil {
		return err
	}
	var n int64
	err := tx.Model(&model.Product{}).
		Where("(name = ? OR sku = ?) AND id <> ?", p.Name, p.SKU, p.ID).
		Count(&n).Error
	if err != nil {
		return Internal("identity slot check failed", err)
	}
	if n > 0 {
		return Conflict("another live product occupies the identity %q", p.Name)
	}
	return restoreRow(tx, &model.Product{}, id, model.ProductStatusQueue, actor)
}

func notFoundOr(err error, label string, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound("%s %s not found", label, id)
	}
	return Internal(label+" lookup failed", err)
}

// liveChildren counts non-deleted rows of table referencing parent through
// column.
func liveChildren(tx *gorm.DB, table interface{}, column string, parent uuid.UUID) (int64, error) {
	var n int64
	if err := tx.Model(table).Where(column+" = ?", parent).Count(&n).Error; err != nil {
		return 0, Internal("child count failed", err)
	}
	return n, nil
}

func softDeleteRow(tx *gorm.DB, table interface{}, id uuid.UUID, actor uint, at time.Time) error {
	return softDeleteRows(tx, table, []uuid.UUID{id}, actor, at)
}

func softDeleteRows(tx *gorm.DB, table interface{}, ids []uuid.UUID, actor uint, at time.Time) error {
	err := tx.Model(table).Where("id IN ?", ids).Updates(map[string]interface{}{
		"status":     model.StatusArchived,
		"deleted_by": actor,
		"deleted_at": at,
	}).Error
	if err != nil {
		return Internal("soft delete failed", err)
	}
	return nil
}

// loadDeleted fetches the row including soft-deleted state and fails with
// NotFound unless it is currently deleted.
func loadDeleted(tx *gorm.DB, dest interface{}, label string, id uuid.UUID) error {
	if err := tx.Unscoped().First(dest, "id = ?", id).Error; err != nil {
		return notFoundOr(err, label, id)
	}
	if !rowDeleted(dest) {
		return NotFound("%s %s is not deleted", label, id)
	}
	return nil
}

func rowDeleted(dest interface{}) bool {
	switch d := dest.(type) {
	case *model.Manufacturer:
		return d.DeletedAt.Valid
	case *model.Brand:
		return d.DeletedAt.Valid
	case *model.Variant:
		return d.DeletedAt.Valid
	case *model.PackSize:
		return d.DeletedAt.Valid
	case *model.PackType:
		return d.DeletedAt.Valid
	case *model.Category:
		return d.DeletedAt.Valid
	case *model.Subcategory:
		return d.DeletedAt.Valid
	case *model.Product:
		return d.DeletedAt.Valid
	}
	return false
}

// restoreRow clears the deletion marks and resets the status.
func restoreRow(tx *gorm.DB, table interface{}, id uuid.UUID, status string, actor uint) error {
	err := tx.Unscoped().Model(table).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     status,
		"deleted_at": nil,
		"deleted_by": nil,
		"updated_by": actor,
	}).Error
	if err != nil {
		if IsUniqueViolation(err) {
			return Conflict("an active sibling occupies this slot")
		}
		return Internal("restore failed", err)
	}
	return nil
}

// assertParentLive fails with BadRequest when the parent row is deleted or
// missing.
func assertParentLive(tx *gorm.DB, table interface{}, id uuid.UUID, label string) error {
	var n int64
	if err := tx.Model(table).Where("id = ?", id).Count(&n).Error; err != nil {
		return Internal("parent check failed", err)
	}
	if n == 0 {
		return BadRequest("cannot reactivate under a deleted %s", label)
	}
	return nil
}

func assertSlugFree(tx *gorm.DB, table interface{}, slug string, selfID uuid.UUID) error {
	var n int64
	err := tx.Model(table).Where("slug = ? AND id <> ?", slug, selfID).Count(&n).Error
	if err != nil {
		return Internal("slug check failed", err)
	}
	if n > 0 {
		return Conflict("slug %q is taken by an active sibling", slug)
	}
	return nil
}

func packIDs(entries interface{}) []uuid.UUID {
	refs := packRefs(entries)
	out := make([]uuid.UUID, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.ID)
	}
	return out
}
