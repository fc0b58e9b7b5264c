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

// Profile is the account view returned to its owner.
type Profile struct {
	models.User
	TotalOrders int64 `json:"total_orders"`
}

// ProfileService reads and edits a user's own account.
type ProfileService struct {
	db *gorm.DB
}

// NewProfileService constructs ProfileService.
func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{db: db}
}

// GetProfile returns the user with their order count.
func (s *ProfileService) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound.WithMessage("user not found")
		}
		return nil, apperr.Unexpected(err, "load profile")
	}

	var total int64
	if err := db.Model(&models.Order{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, apperr.Unexpected(err, "count orders")
	}

	return &Profile{User: user, TotalOrders: total}, nil
}

// UpdateProfile sets the full name and optional email.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID uuid.UUID, fullName string, email *string) (*Profile, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, apperr.Validation("full name is required")
	}

	updates := map[string]interface{}{"full_name": fullName}
	if email != nil {
		trimmed := strings.ToLower(strings.TrimSpace(*email))
		if trimmed == "" {
			updates["email"] = nil
		} else {
			var taken int64
			if err := s.db.WithContext(ctx).Model(&models.User{}).
				Where("email = ? AND id <> ?", trimmed, userID).
				Count(&taken).Error; err != nil {
				return nil, apperr.Unexpected(err, "check email")
			}
			if taken > 0 {
				return nil, apperr.ErrEmailTaken
			}
			updates["email"] = trimmed
		}
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return nil, apperr.ErrEmailTaken
		}
		return nil, apperr.Unexpected(res.Error, "update profile")
	}
	if res.RowsAffected == 0 {
		return nil, apperr.ErrNotFound.WithMessage("user not found")
	}

	return s.GetProfile(ctx, userID)
}
