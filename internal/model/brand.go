package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Brand represents a product line owned by a manufacturer. Brand names are
// unique per manufacturer among non-deleted rows.
type Brand struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	ManufacturerID uuid.UUID      `json:"manufacturer_id" gorm:"type:uuid;not null;index;uniqueIndex:uq_brands_name,priority:1"`
	Manufacturer   *Manufacturer  `json:"manufacturer,omitempty" gorm:"foreignKey:ManufacturerID"`
	Name           string         `json:"name" gorm:"type:varchar(160);not null"`
	NameKey        string         `json:"-" gorm:"type:varchar(160);not null;uniqueIndex:uq_brands_name,priority:2,where:deleted_at IS NULL"`
	Description    string         `json:"description" gorm:"type:text"`
	Status         string         `json:"status" gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	CreatedBy      uint           `json:"created_by" gorm:"index"`
	UpdatedBy      uint           `json:"updated_by"`
	DeletedBy      *uint          `json:"deleted_by,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

func (b *Brand) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.NameKey = NameKey(b.Name)
	return nil
}

// Variant represents a flavor or formulation of a brand, for example
// "Chicken Curry" under "Indomie". Variant names are unique per brand.
type Variant struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	BrandID     uuid.UUID      `json:"brand_id" gorm:"type:uuid;not null;index;uniqueIndex:uq_variants_name,priority:1"`
	Brand       *Brand         `json:"brand,omitempty" gorm:"foreignKey:BrandID"`
	Name        string         `json:"name" gorm:"type:varchar(160);not null"`
	NameKey     string         `json:"-" gorm:"type:varchar(160);not null;uniqueIndex:uq_variants_name,priority:2,where:deleted_at IS NULL"`
	Description string         `json:"description" gorm:"type:text"`
	Status      string         `json:"status" gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	PackSizes   []PackSize     `json:"pack_sizes,omitempty" gorm:"foreignKey:VariantID"`
	PackTypes   []PackType     `json:"pack_types,omitempty" gorm:"foreignKey:VariantID"`
	CreatedBy   uint           `json:"created_by" gorm:"index"`
	UpdatedBy   uint           `json:"updated_by"`
	DeletedBy   *uint          `json:"deleted_by,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

func (v *Variant) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	v.NameKey = NameKey(v.Name)
	return nil
}
