package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/freshcorner/internal/apperr"
	"github.com/example/freshcorner/internal/models"
)

// AddressInput carries the editable address fields.
type AddressInput struct {
	Label           string   `json:"label"`
	LabelCustom     string   `json:"label_custom"`
	RecipientName   string   `json:"recipient_name" validate:"required"`
	Phone           string   `json:"phone" validate:"required"`
	AddressLine1    string   `json:"address_line1" validate:"required"`
	AddressLine2    string   `json:"address_line2"`
	FloorNumber     string   `json:"floor_number"`
	ApartmentNumber string   `json:"apartment_number"`
	Landmark        string   `json:"landmark"`
	Area            string   `json:"area"`
	Thana           string   `json:"thana"`
	District        string   `json:"district"`
	Latitude        *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude       *float64 `json:"longitude" validate:"omitempty,longitude"`
	GooglePlaceID   string   `json:"google_place_id"`
	IsDefault       bool     `json:"is_default"`
}

func (in AddressInput) validate() error {
	if strings.TrimSpace(in.RecipientName) == "" ||
		strings.TrimSpace(in.Phone) == "" ||
		strings.TrimSpace(in.AddressLine1) == "" {
		return apperr.Validation("recipient name, phone and address line 1 are required")
	}
	return nil
}

func (in AddressInput) apply(a *models.UserAddress) {
	a.Label = strings.TrimSpace(in.Label)
	a.LabelCustom = strings.TrimSpace(in.LabelCustom)
	a.RecipientName = strings.TrimSpace(in.RecipientName)
	a.Phone = strings.TrimSpace(in.Phone)
	a.AddressLine1 = strings.TrimSpace(in.AddressLine1)
	a.AddressLine2 = strings.TrimSpace(in.AddressLine2)
	a.FloorNumber = in.FloorNumber
	a.ApartmentNumber = in.ApartmentNumber
	a.Landmark = in.Landmark
	a.Area = in.Area
	a.Thana = in.Thana
	a.District = strings.TrimSpace(in.District)
	if a.District == "" {
		a.District = models.DefaultDistrict
	}
	a.Latitude = in.Latitude
	a.Longitude = in.Longitude
	a.GooglePlaceID = in.GooglePlaceID
}

// AddressService manages delivery addresses. Every mutation keeps exactly
// one default address per user who has any.
type AddressService struct {
	db *gorm.DB
}

// NewAddressService constructs AddressService.
func NewAddressService(db *gorm.DB) *AddressService {
	return &AddressService{db: db}
}

// ListAddresses returns the default address first, then newest first.
func (s *AddressService) ListAddresses(ctx context.Context, userID uuid.UUID) ([]models.UserAddress, error) {
	var addresses []models.UserAddress
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default desc, created_at desc").
		Find(&addresses).Error; err != nil {
		return nil, apperr.Unexpected(err, "list addresses")
	}
	return addresses, nil
}

// CreateAddress adds an address. The first address becomes the default.
func (s *AddressService) CreateAddress(ctx context.Context, userID uuid.UUID, in AddressInput) (*models.UserAddress, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	address := models.UserAddress{UserID: userID}
	in.apply(&address)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.UserAddress{}).Where("user_id = ?", userID).Count(&existing).Error; err != nil {
			return err
		}

		address.IsDefault = in.IsDefault || existing == 0
		if address.IsDefault {
			if err := clearDefault(tx, userID); err != nil {
				return err
			}
		}
		return tx.Create(&address).Error
	})
	if err != nil {
		return nil, apperr.Unexpected(err, "create address")
	}

	return &address, nil
}

// UpdateAddress replaces the fields of an owned address.
func (s *AddressService) UpdateAddress(ctx context.Context, userID, addressID uuid.UUID, in AddressInput) (*models.UserAddress, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var address models.UserAddress
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findOwnedAddress(tx, userID, addressID, &address); err != nil {
			return err
		}

		wasDefault := address.IsDefault
		in.apply(&address)

		if in.IsDefault && !wasDefault {
			if err := clearDefault(tx, userID); err != nil {
				return err
			}
		}
		address.IsDefault = in.IsDefault

		if err := tx.Save(&address).Error; err != nil {
			return err
		}

		if wasDefault && !in.IsDefault {
			promoted, err := promoteNewest(tx, userID, address.ID)
			if err != nil {
				return err
			}
			if !promoted {
				// Sole address stays default.
				address.IsDefault = true
				return tx.Model(&address).Update("is_default", true).Error
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Unexpected(err, "update address")
	}

	return &address, nil
}

// DeleteAddress removes an owned address, promoting another if it was default.
func (s *AddressService) DeleteAddress(ctx context.Context, userID, addressID uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var address models.UserAddress
		if err := findOwnedAddress(tx, userID, addressID, &address); err != nil {
			return err
		}

		if err := tx.Delete(&address).Error; err != nil {
			return err
		}

		if address.IsDefault {
			_, err := promoteNewest(tx, userID, address.ID)
			return err
		}
		return nil
	})
	return apperr.Unexpected(err, "delete address")
}

// SetDefaultAddress marks an owned address as the only default.
func (s *AddressService) SetDefaultAddress(ctx context.Context, userID, addressID uuid.UUID) (*models.UserAddress, error) {
	var address models.UserAddress
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findOwnedAddress(tx, userID, addressID, &address); err != nil {
			return err
		}
		if err := clearDefault(tx, userID); err != nil {
			return err
		}
		address.IsDefault = true
		return tx.Model(&address).Update("is_default", true).Error
	})
	if err != nil {
		return nil, apperr.Unexpected(err, "set default address")
	}

	return &address, nil
}

func findOwnedAddress(tx *gorm.DB, userID, addressID uuid.UUID, dest *models.UserAddress) error {
	err := tx.Where("id = ? AND user_id = ?", addressID, userID).First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrNotFound.WithMessage("address not found")
	}
	return err
}

func clearDefault(tx *gorm.DB, userID uuid.UUID) error {
	return tx.Model(&models.UserAddress{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).Error
}

// promoteNewest makes the most recently created address other than except
// the default. It reports whether one existed.
func promoteNewest(tx *gorm.DB, userID, except uuid.UUID) (bool, error) {
	var next models.UserAddress
	err := tx.Where("user_id = ? AND id <> ?", userID, except).
		Order("created_at desc").
		First(&next).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := clearDefault(tx, userID); err != nil {
		return false, err
	}
	return true, tx.Model(&next).Update("is_default", true).Error
}
