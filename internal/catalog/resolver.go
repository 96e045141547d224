package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"catalog-service/internal/model"
)

const (
	// maxResolveAttempts bounds the find-or-create loop when concurrent
	// callers keep winning the creation race.
	maxResolveAttempts = 3
	// maxSlugAttempts bounds the numeric-suffix slug search.
	maxSlugAttempts = 20
)

// Resolution is the outcome of one find-or-create call. Name carries the
// stored casing, which is authoritative from first creation.
type Resolution struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Created bool      `json:"created"`
}

// Resolver implements parent-scoped, case-insensitive find-or-create for
// every hierarchy and taxonomy kind. Each call runs in its own short
// transaction; a unique violation on create means a concurrent caller won
// the race, so the loop re-queries and returns the winner's row.
type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// ResolveManufacturer finds or creates a manufacturer by name.
func (r *Resolver) ResolveManufacturer(ctx context.Context, name string, actor uint) (Resolution, error) {
	key := model.NameKey(name)
	if key == "" {
		return Resolution{}, BadRequest("manufacturer name is required")
	}
	return r.findOrCreate(ctx,
		func(tx *gorm.DB) (Resolution, error) {
			var m model.Manufacturer
			if err := tx.Where("name_key = ?", key).First(&m).Error; err != nil {
				return Resolution{}, err
			}
			return Resolution{ID: m.ID, Name: m.Name}, nil
		},
		func(tx *gorm.DB) (Resolution, error) {
			m := model.Manufacturer{
				Name:      NormalizeName(name),
				Status:    model.StatusActive,
				CreatedBy: actor,
				UpdatedBy: actor,
			}
			if err := tx.Create(&m).Error; err != nil {
				return Resolution{}, err
			}
			return Resolution{ID: m.ID, Name: m.Name}, nil
		})
}

// ResolveBrand finds or creates a brand under a manufacturer.
func (r *Resolver) ResolveBrand(ctx context.Context, manufacturerID uuid.UUID, name string, actor uint) (Resolution, error) {
	key := model.NameKey(name)
	if key == "" {
		return Resolution{}, BadRequest("brand name is required")
	}
	if manufacturerID == uuid.Nil {
		return Resolution{}, BadRequest("brand %q needs a manufacturer", name)
	}
	return r.findOrCreate(ctx,
		func(tx *gorm.DB) (Resolution, error) {
			var b model.Brand
			if err := tx.Where("manufacturer_id = ? AND name_key = ?", manufacturerID, key).First(&b).Error; err != nil {
				return Resolution{}, err
			}
			return Resolution{ID: b.ID, Name: b.Name}, nil
		},
		func(tx *gorm.DB) (Resolution, error) {
			b := model.Brand{
				ManufacturerID: manufacturerID,
				Name:           NormalizeName(name),
				Status:         model.StatusActive,
				CreatedBy:      actor,
				UpdatedBy:      actor,
			}
			if err := tx.Create(&b).Error; err != nil {
				return Resolution{}, err
			}
			return Resolution{ID: b.ID, Name: b.Name}, nil
		})
}

// ResolveVariant finds or creates a variant under a brand.
func (r *Resolver) ResolveVariant(ctx context.Context, brandID uuid.UUID, name string, actor uint) (Resolution, error) {
	key := model.NameKey(name)
	if key == "" {
		return Resolution{}, BadRequest("variant name is required")
	}
	if brandID == uuid.Nil {
		return Resolution{}, BadRequest("variant %q needs a brand", name)
	}
	return r.findOrCreate(ctx,
		func(tx *gorm.DB) (Resolution, error) {
			var v model.Variant
			if err := tx.Where("brand_id = ? AND name_key = ?", brandID, key).First(&v).Error; err != nil {
				return Resolution{}, err
			}
			return Resolution{ID: v.ID, Name: v.Name}, nil
		},
		func(tx *gorm.DB) (Resolution, error) {
			v := model.Variant{
				BrandID:   brandID,
				Name:      NormalizeName(name),
				Status:    model.StatusActive,
				CreatedBy: actor,
				UpdatedBy: actor,
			}
			if err := tx.Create(&v).Error; err != nil {
				return Resolution{}, err
			}
			return Resolution{ID: v.ID, Name: v.Name}, nil
		})
}

// ResolvePackSize finds or creates a pack size under a variant.
func (r *Resolver) ResolvePackSize(ctx context.Context, variantID uuid.UUID, name string, actor uint) (Resolution, error) {
	key := model.NameKey(name)
	if key == "" {
		return Resolution{}, BadRequest("pack size is required")
	}
	if variantID == uuid.Nil {
		return Resolution{}, BadRequest("pack size %q needs a variant", name)
	}
	return r.findOrCreate(ctx,
		func(tx *gorm.DB) (Resolution, error) {
			var p model.PackSize
			if err := tx.Where("variant_id = ? AND name_key = ?", variantID, key).First(&p).Error; err != nil {
				return Resolution{}, err
			}
			return Resolution{ID: p.ID, Name: p.Name}, nil
		},
		func(tx *gorm.DB) (Resolution, error) {
			p := model.PackSize{
				VariantID: variantID,
				Name:      NormalizeName(name),
				Status:    model.StatusActive,
				CreatedBy: actor,
				UpdatedBy: actor,
			}
			if err := tx.Create(&p).Error; err != nil {
				return Resolution{}, err
			}
			return Resolution{ID: p.ID, Name: p.Name}, nil
		})
}

// ResolvePackType finds or creates a pack type under a variant.
func (r *Resolver) ResolvePackType(ctx context.Context, variantID uuid.UUID, name string, actor uint) (Resolution, error) {
	key := model.NameKey(name)
	if key == "" {
		return Resolution{}, BadRequest("pack type is required")
	}
	if variantID == uuid.Nil {
		return Resolution{}, BadRequest("pack type %q needs a variant", name)
	}
	return r.findOrCreate(ctx,
		func(tx *gorm.DB) (Resolution, error) {
			var p model.PackType
			if err := tx.Where("variant_id = ? AND name_key = ?", variantID, key).First(&p).Error; err != nil {
				return Resolution{}, err
			}
			return Resolution{ID: p.ID, Name: p.Name}, nil
		},
		func(tx *gorm.DB) (Resolution, error) {
			p := model.PackType{
				VariantID: variantID,
				Name:      NormalizeName(name),
				Status:    model.StatusActive,
				CreatedBy: actor,
				UpdatedBy: actor,
			}
			if err := tx.Create(&p).Error; err != nil {
				return Resolution{}, err
			}
			return Resolution{ID: p.ID, Name: p.Name}, nil
		})
}

// ResolveCategory finds or creates a top-level category, allocating a free
// slug through the bounded suffix loop.
func (r *Resolver) ResolveCategory(ctx context.Context, name string, actor uint) (Resolution, error) {
	key := model.NameKey(name)
	if key == "" {
		return Resolution{}, BadRequest("category name is required")
	}
	return r.findOrCreate(ctx,
		func(tx *gorm.DB) (Resolution, error) {
			var c model.Category
			if err := tx.Where("name_key = ?", key).First(&c).Error; err != nil {
				return Resolution{}, err
			}
			return Resolution{ID: c.ID, Name: c.Name}, nil
		},
		func(tx *gorm.DB) (Resolution, error) {
			slug, err := FreeSlug(tx, &model.Category{}, name)
			if err != nil {
				return Resolution{}, err
			}
			c := model.Category{
				Name:      NormalizeName(name),
				Slug:      slug,
				Status:    model.StatusActive,
				CreatedBy: actor,
				UpdatedBy: actor,
			}
			if err := tx.Create(&c).Error; err != nil {
				return Resolution{}, err
			}
			return Resolution{ID: c.ID, Name: c.Name}, nil
		})
}

// ResolveSubcategory finds or creates a subcategory under a category. The
// optional description is only applied on creation.
func (r *Resolver) ResolveSubcategory(ctx context.Context, categoryID uuid.UUID, name, description string, actor uint) (Resolution, error) {
	key := model.NameKey(name)
	if key == "" {
		return Resolution{}, BadRequest("subcategory name is required")
	}
	if categoryID == uuid.Nil {
		return Resolution{}, BadRequest("subcategory %q needs a category", name)
	}
	return r.findOrCreate(ctx,
		func(tx *gorm.DB) (Resolution, error) {
			var s model.Subcategory
			if err := tx.Where("category_id = ? AND name_key = ?", categoryID, key).First(&s).Error; err != nil {
				return Resolution{}, err
			}
			return Resolution{ID: s.ID, Name: s.Name}, nil
		},
		func(tx *gorm.DB) (Resolution, error) {
			slug, err := FreeSlug(tx, &model.Subcategory{}, name)
			if err != nil {
				return Resolution{}, err
			}
			s := model.Subcategory{
				CategoryID:  categoryID,
				Name:        NormalizeName(name),
				Slug:        slug,
				Description: description,
				Status:      model.StatusActive,
				CreatedBy:   actor,
				UpdatedBy:   actor,
			}
			if err := tx.Create(&s).Error; err != nil {
				return Resolution{}, err
			}
			return Resolution{ID: s.ID, Name: s.Name}, nil
		})
}

// findOrCreate drives the race-tolerant loop shared by every kind. find
// must surface gorm.ErrRecordNotFound on miss; create runs in the same
// transaction. A unique violation rolls the transaction back and the next
// attempt re-queries, so the loser of a concurrent race returns the
// winner's row instead of an error.
func (r *Resolver) findOrCreate(ctx context.Context, find, create func(tx *gorm.DB) (Resolution, error)) (Resolution, error) {
	var lastErr error
	for attempt := 1; attempt <= maxResolveAttempts; attempt++ {
		var out Resolution
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res, err := find(tx)
			if err == nil {
				out = res
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			res, err = create(tx)
			if err != nil {
				return err
			}
			res.Created = true
			out = res
			return nil
		})
		if err == nil {
			return out, nil
		}
		var ce *Error
		if errors.As(err, &ce) {
			return Resolution{}, ce
		}
		if !IsUniqueViolation(err) {
			return Resolution{}, Internal("find-or-create failed", err)
		}
		lastErr = err
	}
	return Resolution{}, Internal(
		fmt.Sprintf("lost %d creation races on %s", maxResolveAttempts, UniqueScope(lastErr)), lastErr)
}

// FreeSlug finds the first slug candidate not taken by a live row of the
// given table, bounded by maxSlugAttempts.
func FreeSlug(tx *gorm.DB, table interface{}, name string) (string, error) {
	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		candidate := SlugCandidate(name, attempt)
		if candidate == "" {
			return "", BadRequest("name %q produces an empty slug", name)
		}
		var n int64
		if err := tx.Model(table).Where("slug = ?", candidate).Count(&n).Error; err != nil {
			return "", err
		}
		if n == 0 {
			return candidate, nil
		}
	}
	return "", BadRequest("no free slug for %q after %d attempts", name, maxSlugAttempts)
}
