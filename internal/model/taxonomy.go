package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category represents a top-level browsing group such as "Noodles & Pasta".
// Category names are globally unique; slugs are globally unique as well.
type Category struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string         `json:"name" gorm:"type:varchar(160);not null"`
	NameKey     string         `json:"-" gorm:"type:varchar(160);not null;uniqueIndex:uq_categories_name,where:deleted_at IS NULL"`
	Slug        string         `json:"slug" gorm:"type:varchar(180);not null;uniqueIndex:uq_categories_slug,where:deleted_at IS NULL"`
	Description string         `json:"description" gorm:"type:text"`
	Status      string         `json:"status" gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	CreatedBy   uint           `json:"created_by" gorm:"index"`
	UpdatedBy   uint           `json:"updated_by"`
	DeletedBy   *uint          `json:"deleted_by,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.NameKey = NameKey(c.Name)
	return nil
}

// Subcategory represents a second-level browsing group under a category.
// Names are unique per category; slugs stay globally unique.
type Subcategory struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	CategoryID  uuid.UUID      `json:"category_id" gorm:"type:uuid;not null;index;uniqueIndex:uq_subcategories_name,priority:1"`
	Category    *Category      `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Name        string         `json:"name" gorm:"type:varchar(160);not null"`
	NameKey     string         `json:"-" gorm:"type:varchar(160);not null;uniqueIndex:uq_subcategories_name,priority:2,where:deleted_at IS NULL"`
	Slug        string         `json:"slug" gorm:"type:varchar(180);not null;uniqueIndex:uq_subcategories_slug,where:deleted_at IS NULL"`
	Description string         `json:"description" gorm:"type:text"`
	Status      string         `json:"status" gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	CreatedBy   uint           `json:"created_by" gorm:"index"`
	UpdatedBy   uint           `json:"updated_by"`
	DeletedBy   *uint          `json:"deleted_by,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

func (s *Subcategory) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.NameKey = NameKey(s.Name)
	return nil
}
