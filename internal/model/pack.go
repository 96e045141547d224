package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PackSize represents a sellable size of a variant, for example "70G" or
// "1.5L". Sizes are unique per variant among non-deleted rows.
type PackSize struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	VariantID uuid.UUID      `json:"variant_id" gorm:"type:uuid;not null;index;uniqueIndex:uq_pack_sizes_name,priority:1"`
	Name      string         `json:"name" gorm:"type:varchar(100);not null"`
	NameKey   string         `json:"-" gorm:"type:varchar(100);not null;uniqueIndex:uq_pack_sizes_name,priority:2,where:deleted_at IS NULL"`
	Status    string         `json:"status" gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	CreatedBy uint           `json:"created_by" gorm:"index"`
	UpdatedBy uint           `json:"updated_by"`
	DeletedBy *uint          `json:"deleted_by,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

func (p *PackSize) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.NameKey = NameKey(p.Name)
	return nil
}

// PackType represents the packaging form of a variant, for example
// "Single Pack" or "Carton". Types are unique per variant.
type PackType struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	VariantID uuid.UUID      `json:"variant_id" gorm:"type:uuid;not null;index;uniqueIndex:uq_pack_types_name,priority:1"`
	Name      string         `json:"name" gorm:"type:varchar(100);not null"`
	NameKey   string         `json:"-" gorm:"type:varchar(100);not null;uniqueIndex:uq_pack_types_name,priority:2,where:deleted_at IS NULL"`
	Status    string         `json:"status" gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	CreatedBy uint           `json:"created_by" gorm:"index"`
	UpdatedBy uint           `json:"updated_by"`
	DeletedBy *uint          `json:"deleted_by,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

func (p *PackType) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.NameKey = NameKey(p.Name)
	return nil
}
