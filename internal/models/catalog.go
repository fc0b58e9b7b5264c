package models

import "github.com/google/uuid"

// Category groups products. Nesting is limited to one level.
type Category struct {
	BaseModel
	NameEn       string     `gorm:"not null" json:"name_en"`
	NameBn       string     `gorm:"not null" json:"name_bn"`
	Slug         string     `gorm:"uniqueIndex" json:"slug"`
	Icon         string     `json:"icon"`
	ParentID     *uuid.UUID `gorm:"type:uuid;index" json:"parent_id"`
	DisplayOrder int        `json:"display_order"`
	IsActive     bool       `gorm:"index" json:"is_active"`

	ProductCount  int64      `gorm:"-" json:"product_count"`
	Subcategories []Category `gorm:"-" json:"subcategories,omitempty"`
}
