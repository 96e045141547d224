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

// PackEntryInput is one element of the pack membership arrays on a variant
// update. A nil ID means "create"; a known ID renames that entry; stored
// entries absent from the incoming array are archived when unreferenced.
type PackEntryInput struct {
	ID   *uuid.UUID `json:"id,omitempty"`
	Name string     `json:"name" validate:"required"`
}

// BrandUpdate carries the mutable brand fields. Nil pointers leave a field
// untouched.
type BrandUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// VariantUpdate adds pack membership to the brand shape. A nil array leaves
// membership untouched; an empty array archives every unreferenced entry.
type VariantUpdate struct {
	Name        *string           `json:"name"`
	Description *string           `json:"description"`
	PackSizes   *[]PackEntryInput `json:"pack_sizes"`
	PackTypes   *[]PackEntryInput `json:"pack_types"`
}

// CollisionGroup reports products whose prospective identities converge on
// the same value after a rename.
type CollisionGroup struct {
	Field      string      `json:"field"`
	Value      string      `json:"value"`
	ProductIDs []uuid.UUID `json:"product_ids"`
}

// prospective pairs a product with the identity it would carry after a
// rename.
type prospective struct {
	ProductID uuid.UUID
	Identity  Identity
}

// CascadeEngine rewrites the derived identity of every dependent product
// when an ancestor is renamed. Each rename is one transaction: either the
// ancestor and all its products move together or nothing changes.
type CascadeEngine struct {
	db          *gorm.DB
	invalidator cache.Invalidator
	audit       audit.Recorder
}

func NewCascadeEngine(db *gorm.DB, invalidator cache.Invalidator, recorder audit.Recorder) *CascadeEngine {
	return &CascadeEngine{db: db, invalidator: invalidator, audit: recorder}
}

// UpdateBrand renames a brand and cascades the new name into every live
// product under it. Description-only updates skip the cascade machinery.
func (e *CascadeEngine) UpdateBrand(ctx context.Context, id uuid.UUID, in BrandUpdate, actor uint) (*model.Brand, error) {
	var brand model.Brand
	var oldName string
	var touched []uuid.UUID

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&brand, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("brand %s not found", id)
			}
			return Internal("brand lookup failed", err)
		}
		oldName = brand.Name

		newName := brand.Name
		if in.Name != nil {
			newName = NormalizeName(*in.Name)
			if newName == "" {
				return BadRequest("brand name cannot be empty")
			}
		}

		var pros []prospective
		if newName != brand.Name {
			err := AssertNameFree(tx, &model.Brand{}, newName, brand.ID, "brand", func(q *gorm.DB) *gorm.DB {
				return q.Where("manufacturer_id = ?", brand.ManufacturerID)
			})
			if err != nil {
				return err
			}
			deps, err := dependentProducts(tx, "brand_id", brand.ID)
			if err != nil {
				return err
			}
			pros = make([]prospective, 0, len(deps))
			for i := range deps {
				p := &deps[i]
				pros = append(pros, prospective{
					ProductID: p.ID,
					Identity:  DeriveProductIdentity(newName, p.Variant.Name, p.PackSize.Name, p.PackType.Name),
				})
			}
			if err := rejectCollisions(tx, pros); err != nil {
				return err
			}
		}

		updates := map[string]interface{}{"updated_by": actor}
		if in.Description != nil {
			updates["description"] = *in.Description
		}
		if newName != brand.Name {
			updates["name"] = newName
			updates["name_key"] = model.NameKey(newName)
		}
		if err := tx.Model(&model.Brand{}).Where("id = ?", brand.ID).Updates(updates).Error; err != nil {
			if IsUniqueViolation(err) {
				return Conflict("another brand already holds the name %q", newName)
			}
			return Internal("brand update failed", err)
		}
		if err := applyIdentities(tx, pros, actor); err != nil {
			return err
		}
		for _, pr := range pros {
			touched = append(touched, pr.ProductID)
		}
		return tx.First(&brand, "id = ?", brand.ID).Error
	})
	if err != nil {
		return nil, err
	}

	e.finish(ctx, "brand", brand.ID, oldName, brand.Name, actor, touched)
	return &brand, nil
}

// RenamePackSize renames one pack size and cascades into the products
// referencing it.
func (e *CascadeEngine) RenamePackSize(ctx context.Context, id uuid.UUID, newName string, actor uint) (*model.PackSize, error) {
	var entry model.PackSize
	var oldName string
	var touched []uuid.UUID

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&entry, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("pack size %s not found", id)
			}
			return Internal("pack size lookup failed", err)
		}
		oldName = entry.Name

		name := NormalizeName(newName)
		if name == "" {
			return BadRequest("pack size name cannot be empty")
		}
		if name == entry.Name {
			return nil
		}
		err := AssertNameFree(tx, &model.PackSize{}, name, entry.ID, "pack size", func(q *gorm.DB) *gorm.DB {
			return q.Where("variant_id = ?", entry.VariantID)
		})
		if err != nil {
			return err
		}
		deps, err := dependentProducts(tx, "pack_size_id", entry.ID)
		if err != nil {
			return err
		}
		pros := make([]prospective, 0, len(deps))
		for i := range deps {
			p := &deps[i]
			pros = append(pros, prospective{
				ProductID: p.ID,
				Identity:  DeriveProductIdentity(p.Brand.Name, p.Variant.Name, name, p.PackType.Name),
			})
		}
		if err := rejectCollisions(tx, pros); err != nil {
			return err
		}
		updates := map[string]interface{}{"name": name, "name_key": model.NameKey(name), "updated_by": actor}
		if err := tx.Model(&model.PackSize{}).Where("id = ?", entry.ID).Updates(updates).Error; err != nil {
			if IsUniqueViolation(err) {
				return Conflict("another pack size already holds the name %q", name)
			}
			return Internal("pack size update failed", err)
		}
		if err := applyIdentities(tx, pros, actor); err != nil {
			return err
		}
		for _, pr := range pros {
			touched = append(touched, pr.ProductID)
		}
		return tx.First(&entry, "id = ?", entry.ID).Error
	})
	if err != nil {
		return nil, err
	}

	e.finish(ctx, "pack_size", entry.ID, oldName, entry.Name, actor, touched)
	return &entry, nil
}

// RenamePackType renames one pack type and cascades into the products
// referencing it.
func (e *CascadeEngine) RenamePackType(ctx context.Context, id uuid.UUID, newName string, actor uint) (*model.PackType, error) {
	var entry model.PackType
	var oldName string
	var touched []uuid.UUID

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&entry, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("pack type %s not found", id)
			}
			return Internal("pack type lookup failed", err)
		}
		oldName = entry.Name

		name := NormalizeName(newName)
		if name == "" {
			return BadRequest("pack type name cannot be empty")
		}
		if name == entry.Name {
			return nil
		}
		err := AssertNameFree(tx, &model.PackType{}, name, entry.ID, "pack type", func(q *gorm.DB) *gorm.DB {
			return q.Where("variant_id = ?", entry.VariantID)
		})
		if err != nil {
			return err
		}
		deps, err := dependentProducts(tx, "pack_type_id", entry.ID)
		if err != nil {
			return err
		}
		pros := make([]prospective, 0, len(deps))
		for i := range deps {
			p := &deps[i]
			pros = append(pros, prospective{
				ProductID: p.ID,
				Identity:  DeriveProductIdentity(p.Brand.Name, p.Variant.Name, p.PackSize.Name, name),
			})
		}
		if err := rejectCollisions(tx, pros); err != nil {
			return err
		}
		updates := map[string]interface{}{"name": name, "name_key": model.NameKey(name), "updated_by": actor}
		if err := tx.Model(&model.PackType{}).Where("id = ?", entry.ID).Updates(updates).Error; err != nil {
			if IsUniqueViolation(err) {
				return Conflict("another pack type already holds the name %q", name)
			}
			return Internal("pack type update failed", err)
		}
		if err := applyIdentities(tx, pros, actor); err != nil {
			return err
		}
		for _, pr := range pros {
			touched = append(touched, pr.ProductID)
		}
		return tx.First(&entry, "id = ?", entry.ID).Error
	})
	if err != nil {
		return nil, err
	}

	e.finish(ctx, "pack_type", entry.ID, oldName, entry.Name, actor, touched)
	return &entry, nil
}

// UpdateVariant renames a variant and reconciles its pack membership in the
// same transaction. Prospective identities are computed against the
// post-reconciliation pack names, so pack renames cascade even when the
// variant name itself stays put.
func (e *CascadeEngine) UpdateVariant(ctx context.Context, id uuid.UUID, in VariantUpdate, actor uint) (*model.Variant, error) {
	var variant model.Variant
	var oldName string
	var touched []uuid.UUID

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("PackSizes").Preload("PackTypes").First(&variant, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("variant %s not found", id)
			}
			return Internal("variant lookup failed", err)
		}
		oldName = variant.Name

		newName := variant.Name
		if in.Name != nil {
			newName = NormalizeName(*in.Name)
			if newName == "" {
				return BadRequest("variant name cannot be empty")
			}
		}
		if newName != variant.Name {
			err := AssertNameFree(tx, &model.Variant{}, newName, variant.ID, "variant", func(q *gorm.DB) *gorm.DB {
				return q.Where("brand_id = ?", variant.BrandID)
			})
			if err != nil {
				return err
			}
		}

		sizePlan, err := reconcilePacks(packRefs(variant.PackSizes), in.PackSizes, "pack size")
		if err != nil {
			return err
		}
		typePlan, err := reconcilePacks(packRefs(variant.PackTypes), in.PackTypes, "pack type")
		if err != nil {
			return err
		}
		if err := assertArchivable(tx, "pack_size_id", sizePlan.Archives, packNames(variant.PackSizes), "pack sizes"); err != nil {
			return err
		}
		if err := assertArchivable(tx, "pack_type_id", typePlan.Archives, packNames(variant.PackTypes), "pack types"); err != nil {
			return err
		}

		var pros []prospective
		if newName != variant.Name || len(sizePlan.Renames) > 0 || len(typePlan.Renames) > 0 {
			deps, err := dependentProducts(tx, "variant_id", variant.ID)
			if err != nil {
				return err
			}
			for i := range deps {
				p := &deps[i]
				sizeName := p.PackSize.Name
				if n, ok := sizePlan.Renames[p.PackSizeID]; ok {
					sizeName = n
				}
				typeName := p.PackType.Name
				if n, ok := typePlan.Renames[p.PackTypeID]; ok {
					typeName = n
				}
				identity := DeriveProductIdentity(p.Brand.Name, newName, sizeName, typeName)
				if identity.Name == p.Name && identity.SKU == p.SKU {
					continue
				}
				pros = append(pros, prospective{ProductID: p.ID, Identity: identity})
			}
			if err := rejectCollisions(tx, pros); err != nil {
				return err
			}
		}

		updates := map[string]interface{}{"updated_by": actor}
		if in.Description != nil {
			updates["description"] = *in.Description
		}
		if newName != variant.Name {
			updates["name"] = newName
			updates["name_key"] = model.NameKey(newName)
		}
		if err := tx.Model(&model.Variant{}).Where("id = ?", variant.ID).Updates(updates).Error; err != nil {
			if IsUniqueViolation(err) {
				return Conflict("another variant already holds the name %q", newName)
			}
			return Internal("variant update failed", err)
		}

		if err := applyPackPlan(tx, &model.PackSize{}, variant.ID, sizePlan, "pack size", actor); err != nil {
			return err
		}
		if err := applyPackPlan(tx, &model.PackType{}, variant.ID, typePlan, "pack type", actor); err != nil {
			return err
		}
		if err := applyIdentities(tx, pros, actor); err != nil {
			return err
		}
		for _, pr := range pros {
			touched = append(touched, pr.ProductID)
		}
		return tx.Preload("PackSizes").Preload("PackTypes").First(&variant, "id = ?", variant.ID).Error
	})
	if err != nil {
		return nil, err
	}

	e.finish(ctx, "variant", variant.ID, oldName, variant.Name, actor, touched)
	return &variant, nil
}

// finish emits the post-commit side effects shared by every rename: metric,
// audit entry and, when products changed, the invalidation event.
func (e *CascadeEngine) finish(ctx context.Context, resource string, id uuid.UUID, oldName, newName string, actor uint, touched []uuid.UUID) {
	prometheus.RecordCascadeRename(resource, len(touched))
	e.audit.Record(ctx, audit.Entry{
		Action:     "rename",
		Resource:   resource,
		ResourceID: id.String(),
		Actor:      actor,
		Before:     oldName,
		After:      newName,
		Metadata:   map[string]interface{}{"products_updated": len(touched)},
	})
	if len(touched) > 0 {
		e.invalidator.InvalidateProducts(ctx, resource+"_renamed", touched...)
	}
}

// packRef is the stored pack state handed to reconcilePacks.
type packRef struct {
	ID   uuid.UUID
	Name string
}

// packPlan is the outcome of matching incoming pack entries against stored
// ones.
type packPlan struct {
	Renames  map[uuid.UUID]string
	Creates  []string
	Archives []uuid.UUID
}

// reconcilePacks matches an incoming pack array against the stored entries
// of one variant. Incoming entries carrying an id must belong to the
// variant; duplicate names within the request are rejected before any
// database work.
func reconcilePacks(current []packRef, incoming *[]PackEntryInput, label string) (packPlan, error) {
	plan := packPlan{Renames: map[uuid.UUID]string{}}
	if incoming == nil {
		return plan, nil
	}
	byID := make(map[uuid.UUID]packRef, len(current))
	for _, c := range current {
		byID[c.ID] = c
	}
	seen := make(map[string]bool, len(*incoming))
	kept := make(map[uuid.UUID]bool, len(*incoming))
	for _, in := range *incoming {
		name := NormalizeName(in.Name)
		if name == "" {
			return packPlan{}, BadRequest("%s name is required", label)
		}
		key := model.NameKey(name)
		if seen[key] {
			return packPlan{}, BadRequest("duplicate %s %q in request", label, name)
		}
		seen[key] = true
		if in.ID == nil {
			plan.Creates = append(plan.Creates, name)
			continue
		}
		cur, ok := byID[*in.ID]
		if !ok {
			return packPlan{}, BadRequest("%s %s does not belong to this variant", label, *in.ID)
		}
		kept[*in.ID] = true
		if cur.Name != name {
			plan.Renames[*in.ID] = name
		}
	}
	for _, c := range current {
		if !kept[c.ID] {
			plan.Archives = append(plan.Archives, c.ID)
		}
	}
	return plan, nil
}

// assertArchivable fails with BadRequest naming the pack entries that are
// scheduled for archival but still referenced by a live product.
func assertArchivable(tx *gorm.DB, column string, ids []uuid.UUID, names map[uuid.UUID]string, label string) error {
	if len(ids) == 0 {
		return nil
	}
	var referenced []uuid.UUID
	err := tx.Model(&model.Product{}).Distinct().
		Where(column+" IN ?", ids).
		Pluck(column, &referenced).Error
	if err != nil {
		return Internal("pack reference check failed", err)
	}
	if len(referenced) == 0 {
		return nil
	}
	blockers := make([]string, 0, len(referenced))
	for _, id := range referenced {
		blockers = append(blockers, names[id])
	}
	return BadRequest("cannot remove %s still referenced by live products", label).
		WithDetail("blocking_entries", blockers)
}

// applyPackPlan persists one reconciliation plan: archives first so their
// names free up, then renames, then creates. Renames park the unique key on
// a placeholder before the final write because two entries may swap names
// within one request.
func applyPackPlan(tx *gorm.DB, table interface{}, variantID uuid.UUID, plan packPlan, label string, actor uint) error {
	if len(plan.Archives) > 0 {
		err := tx.Model(table).Where("id IN ?", plan.Archives).Updates(map[string]interface{}{
			"status":     model.StatusArchived,
			"deleted_by": actor,
			"deleted_at": time.Now(),
		}).Error
		if err != nil {
			return Internal("pack archive failed", err)
		}
	}
	for id := range plan.Renames {
		err := tx.Model(table).Where("id = ?", id).
			Update("name_key", "\x01"+id.String()).Error
		if err != nil {
			return Internal("pack rename failed", err)
		}
	}
	for id, name := range plan.Renames {
		err := tx.Model(table).Where("id = ?", id).Updates(map[string]interface{}{
			"name":       name,
			"name_key":   model.NameKey(name),
			"updated_by": actor,
		}).Error
		if err != nil {
			if IsUniqueViolation(err) {
				return Conflict("%s %q already exists on this variant", label, name)
			}
			return Internal("pack rename failed", err)
		}
	}
	for _, name := range plan.Creates {
		var err error
		switch table.(type) {
		case *model.PackSize:
			err = tx.Create(&model.PackSize{
				VariantID: variantID, Name: name, Status: model.StatusActive,
				CreatedBy: actor, UpdatedBy: actor,
			}).Error
		default:
			err = tx.Create(&model.PackType{
				VariantID: variantID, Name: name, Status: model.StatusActive,
				CreatedBy: actor, UpdatedBy: actor,
			}).Error
		}
		if err != nil {
			if IsUniqueViolation(err) {
				return Conflict("%s %q already exists on this variant", label, name)
			}
			return Internal("pack create failed", err)
		}
	}
	return nil
}

func packRefs(sizes interface{}) []packRef {
	switch v := sizes.(type) {
	case []model.PackSize:
		out := make([]packRef, 0, len(v))
		for _, p := range v {
			out = append(out, packRef{ID: p.ID, Name: p.Name})
		}
		return out
	case []model.PackType:
		out := make([]packRef, 0, len(v))
		for _, p := range v {
			out = append(out, packRef{ID: p.ID, Name: p.Name})
		}
		return out
	}
	return nil
}

func packNames(sizes interface{}) map[uuid.UUID]string {
	out := map[uuid.UUID]string{}
	for _, r := range packRefs(sizes) {
		out[r.ID] = r.Name
	}
	return out
}

// dependentProducts loads the live products referencing an ancestor through
// the given column, with the ancestor names needed for re-derivation.
func dependentProducts(tx *gorm.DB, column string, id uuid.UUID) ([]model.Product, error) {
	var deps []model.Product
	err := tx.Preload("Brand").Preload("Variant").Preload("PackSize").Preload("PackType").
		Where(column+" = ?", id).Find(&deps).Error
	if err != nil {
		return nil, Internal("loading dependent products failed", err)
	}
	for i := range deps {
		p := &deps[i]
		if p.Brand == nil || p.Variant == nil || p.PackSize == nil || p.PackType == nil {
			return nil, Internal("product references a deleted ancestor", nil)
		}
	}
	return deps, nil
}

// collisionGroups finds every prospective name or SKU shared by more than
// one product. Name and SKU group separately because stripping punctuation
// can make two distinct names produce the same SKU.
func collisionGroups(items []prospective) []CollisionGroup {
	out := groupField(items, "name", func(p prospective) string { return p.Identity.Name })
	return append(out, groupField(items, "sku", func(p prospective) string { return p.Identity.SKU })...)
}

func groupField(items []prospective, field string, key func(prospective) string) []CollisionGroup {
	byValue := make(map[string][]uuid.UUID, len(items))
	order := make([]string, 0, len(items))
	for _, it := range items {
		v := key(it)
		if _, seen := byValue[v]; !seen {
			order = append(order, v)
		}
		byValue[v] = append(byValue[v], it.ProductID)
	}
	var out []CollisionGroup
	for _, v := range order {
		if ids := byValue[v]; len(ids) > 1 {
			out = append(out, CollisionGroup{Field: field, Value: v, ProductIDs: ids})
		}
	}
	return out
}

// rejectCollisions aborts a rename when prospective identities collide,
// either among the dependents themselves or with an unrelated live product.
// The partial unique indexes back this check up at commit time.
func rejectCollisions(tx *gorm.DB, pros []prospective) error {
	if len(pros) == 0 {
		return nil
	}
	if groups := collisionGroups(pros); len(groups) > 0 {
		return Conflict("rename would give multiple products the same identity").
			WithDetail("collisions", groups)
	}

	names := make([]string, 0, len(pros))
	skus := make([]string, 0, len(pros))
	ids := make([]uuid.UUID, 0, len(pros))
	for _, p := range pros {
		names = append(names, p.Identity.Name)
		skus = append(skus, p.Identity.SKU)
		ids = append(ids, p.ProductID)
	}
	var clashes []model.Product
	err := tx.Model(&model.Product{}).Select("id", "name", "sku").
		Where("id NOT IN ?", ids).
		Where("name IN ? OR sku IN ?", names, skus).
		Find(&clashes).Error
	if err != nil {
		return Internal("collision probe failed", err)
	}
	if len(clashes) == 0 {
		return nil
	}

	nameOwners := make(map[string][]uuid.UUID, len(pros))
	skuOwners := make(map[string][]uuid.UUID, len(pros))
	for _, p := range pros {
		nameOwners[p.Identity.Name] = append(nameOwners[p.Identity.Name], p.ProductID)
		skuOwners[p.Identity.SKU] = append(skuOwners[p.Identity.SKU], p.ProductID)
	}
	groups := make([]CollisionGroup, 0, len(clashes))
	for _, c := range clashes {
		if owners, ok := nameOwners[c.Name]; ok {
			ids := append(owners[:len(owners):len(owners)], c.ID)
			groups = append(groups, CollisionGroup{Field: "name", Value: c.Name, ProductIDs: ids})
		}
		if owners, ok := skuOwners[c.SKU]; ok {
			ids := append(owners[:len(owners):len(owners)], c.ID)
			groups = append(groups, CollisionGroup{Field: "sku", Value: c.SKU, ProductIDs: ids})
		}
	}
	return Conflict("rename collides with existing product identities").
		WithDetail("collisions", groups)
}

// applyIdentities writes the new identities in two passes. The unique
// indexes check per row, so writing final values directly can trip over a
// sibling's not-yet-updated old identity when renames chain (new p1 name ==
// old p2 name). Pass one parks every row on a placeholder that no derived
// identity can equal, pass two writes the real values.
func applyIdentities(tx *gorm.DB, pros []prospective, actor uint) error {
	if len(pros) == 0 {
		return nil
	}
	for _, pr := range pros {
		park := "\x01" + pr.ProductID.String()
		err := tx.Model(&model.Product{}).Where("id = ?", pr.ProductID).
			Updates(map[string]interface{}{"name": park, "sku": park}).Error
		if err != nil {
			return Internal("product identity update failed", err)
		}
	}
	for _, pr := range pros {
		err := tx.Model(&model.Product{}).Where("id = ?", pr.ProductID).Updates(map[string]interface{}{
			"name":       pr.Identity.Name,
			"sku":        pr.Identity.SKU,
			"barcode":    pr.Identity.Barcode,
			"updated_by": actor,
		}).Error
		if err != nil {
			if IsUniqueViolation(err) {
				return Conflict("renamed product collides on %s", UniqueScope(err))
			}
			return Internal("product identity update failed", err)
		}
	}
	return nil
}

// AssertNameFree fails with Conflict when an active sibling other than
// selfID already holds the name. scope narrows the search to the parent.
func AssertNameFree(tx *gorm.DB, table interface{}, name string, selfID uuid.UUID, label string, scope func(*gorm.DB) *gorm.DB) error {
	q := tx.Model(table).Where("name_key = ? AND id <> ?", model.NameKey(name), selfID)
	if scope != nil {
		q = scope(q)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return Internal("name check failed", err)
	}
	if n > 0 {
		return Conflict("%s %q already exists", label, name)
	}
	return nil
}
