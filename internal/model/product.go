package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Product represents a sellable leaf of the hierarchy. Name, SKU and barcode
// are derived from the ancestor chain and never edited directly; renames of
// an ancestor rewrite them through the cascade engine. Uniqueness of name and
// SKU is enforced among non-deleted rows only.
type Product struct {
	ID             uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	Name           string          `json:"name" gorm:"type:varchar(255);not null;uniqueIndex:uq_products_name,where:deleted_at IS NULL"`
	SKU            string          `json:"sku" gorm:"type:varchar(255);not null;uniqueIndex:uq_products_sku,where:deleted_at IS NULL"`
	Barcode        string          `json:"barcode" gorm:"type:varchar(13);index"`
	Description    string          `json:"description" gorm:"type:text"`
	Price          decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null;default:0"`
	Discount       int             `json:"discount" gorm:"not null;default:0"`
	Images         datatypes.JSON  `json:"images,omitempty"`
	Thumbnail      string          `json:"thumbnail" gorm:"type:varchar(512)"`
	Status         string          `json:"status" gorm:"type:varchar(20);not null;default:'QUEUE';index"`
	ManufacturerID uuid.UUID       `json:"manufacturer_id" gorm:"type:uuid;not null;index"`
	Manufacturer   *Manufacturer   `json:"manufacturer,omitempty" gorm:"foreignKey:ManufacturerID"`
	BrandID        uuid.UUID       `json:"brand_id" gorm:"type:uuid;not null;index"`
	Brand          *Brand          `json:"brand,omitempty" gorm:"foreignKey:BrandID"`
	VariantID      uuid.UUID       `json:"variant_id" gorm:"type:uuid;not null;index"`
	Variant        *Variant        `json:"variant,omitempty" gorm:"foreignKey:VariantID"`
	PackSizeID     uuid.UUID       `json:"pack_size_id" gorm:"type:uuid;not null;index"`
	PackSize       *PackSize       `json:"pack_size,omitempty" gorm:"foreignKey:PackSizeID"`
	PackTypeID     uuid.UUID       `json:"pack_type_id" gorm:"type:uuid;not null;index"`
	PackType       *PackType       `json:"pack_type,omitempty" gorm:"foreignKey:PackTypeID"`
	CategoryID     uuid.UUID       `json:"category_id" gorm:"type:uuid;not null;index"`
	Category       *Category       `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	SubcategoryID  *uuid.UUID      `json:"subcategory_id,omitempty" gorm:"type:uuid;index"`
	Subcategory    *Subcategory    `json:"subcategory,omitempty" gorm:"foreignKey:SubcategoryID"`
	CreatedBy      uint            `json:"created_by" gorm:"index"`
	UpdatedBy      uint            `json:"updated_by"`
	DeletedBy      *uint           `json:"deleted_by,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `json:"deleted_at,omitempty" gorm:"index"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
