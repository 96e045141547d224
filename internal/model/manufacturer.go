package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Manufacturer represents a producing company at the top of the catalog hierarchy
type Manufacturer struct {
	ID            uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Name          string         `json:"name" gorm:"type:varchar(160);not null"`
	NameKey       string         `json:"-" gorm:"type:varchar(160);not null;uniqueIndex:uq_manufacturers_name,where:deleted_at IS NULL"`
	ContactPerson string         `json:"contact_person" gorm:"type:varchar(100)"`
	Email         string         `json:"email" gorm:"type:varchar(100)"`
	Phone         string         `json:"phone" gorm:"type:varchar(20)"`
	Country       string         `json:"country" gorm:"type:varchar(50)"`
	Status        string         `json:"status" gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	CreatedBy     uint           `json:"created_by" gorm:"index"`
	UpdatedBy     uint           `json:"updated_by"`
	DeletedBy     *uint          `json:"deleted_by,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

func (m *Manufacturer) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.NameKey = NameKey(m.Name)
	return nil
}
