package models

import (
	"github.com/google/uuid"
)

// DefaultDistrict is used when an address omits its district.
const DefaultDistrict = "Dhaka"

// UserAddress is a structured delivery address owned by a user.
type UserAddress struct {
	BaseModel
	UserID          uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Label           string    `json:"label"`
	LabelCustom     string    `json:"label_custom"`
	RecipientName   string    `gorm:"not null" json:"recipient_name"`
	Phone           string    `gorm:"not null" json:"phone"`
	AddressLine1    string    `gorm:"not null" json:"address_line1"`
	AddressLine2    string    `json:"address_line2"`
	FloorNumber     string    `json:"floor_number"`
	ApartmentNumber string    `json:"apartment_number"`
	Landmark        string    `json:"landmark"`
	Area            string    `json:"area"`
	Thana           string    `json:"thana"`
	District        string    `json:"district"`
	Latitude        *float64  `json:"latitude"`
	Longitude       *float64  `json:"longitude"`
	GooglePlaceID   string    `json:"google_place_id"`
	IsDefault       bool      `gorm:"index" json:"is_default"`
}
