package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/freshcorner/internal/apperr"
	"github.com/example/freshcorner/internal/models"
	"github.com/example/freshcorner/internal/utils"
)

const (
	otpDigits      = 6
	otpTTL         = 5 * time.Minute
	minPhoneLength = 11
	// Only the newest otpCandidateLimit unexpired codes for a phone are
	// checked, which bounds bcrypt work per verify. An older code that is
	// still inside its lifetime is rejected once this many newer ones exist.
	// With the resend throttle on, a phone cannot reach that count within
	// otpTTL.
	otpCandidateLimit = 10
)

// IdentityConfig carries token settings for IdentityService.
type IdentityConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// AuthResult is returned after a successful OTP verification.
type AuthResult struct {
	Token     string       `json:"token"`
	User      *models.User `json:"user"`
	IsNewUser bool         `json:"is_new_user"`
}

// IdentityService issues and verifies phone one-time codes.
type IdentityService struct {
	db       *gorm.DB
	sms      SMSSender
	throttle *OTPThrottle
	cfg      IdentityConfig
	log      *zap.Logger
	now      func() time.Time
}

// NewIdentityService constructs IdentityService. throttle may be nil.
func NewIdentityService(db *gorm.DB, sms SMSSender, throttle *OTPThrottle, cfg IdentityConfig, log *zap.Logger) *IdentityService {
	return &IdentityService{
		db:       db,
		sms:      sms,
		throttle: throttle,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// RequestOTP stores a hashed code for phone and sends it by SMS. It returns
// the code lifetime.
func (s *IdentityService) RequestOTP(ctx context.Context, phone string) (time.Duration, error) {
	phone = strings.TrimSpace(phone)
	if len(phone) < minPhoneLength {
		return 0, apperr.ErrInvalidPhone
	}

	allowed, err := s.throttle.Allow(ctx, phone)
	if err != nil {
		// Redis being down must not lock customers out.
		s.log.Warn("otp throttle unavailable", zap.Error(err))
		allowed = true
	}
	if !allowed {
		wait := s.throttle.Remaining(ctx, phone)
		if wait <= 0 {
			return 0, apperr.ErrOtpThrottled
		}
		return 0, apperr.ErrOtpThrottled.WithMessage(
			fmt.Sprintf("please wait %d seconds before requesting a new code", int(wait.Round(time.Second).Seconds())))
	}

	code, err := utils.GenerateOTP(otpDigits)
	if err != nil {
		return 0, apperr.Unexpected(err, "generate otp")
	}
	hash, err := utils.HashCode(code)
	if err != nil {
		return 0, apperr.Unexpected(err, "hash otp")
	}

	otp := models.OtpVerification{
		Phone:     phone,
		CodeHash:  hash,
		Purpose:   models.OtpPurposeLogin,
		ExpiresAt: s.now().Add(otpTTL),
	}
	if err := s.db.WithContext(ctx).Create(&otp).Error; err != nil {
		if releaseErr := s.throttle.Release(ctx, phone); releaseErr != nil {
			s.log.Warn("otp throttle release failed", zap.Error(releaseErr))
		}
		return 0, apperr.Unexpected(err, "store otp")
	}

	message := fmt.Sprintf("Your Fresh Corner code is %s", code)
	if err := s.sms.SendSMS(phone, message); err != nil {
		s.log.Error("otp sms dispatch failed", zap.String("phone", phone), zap.Error(err))
	}

	return otpTTL, nil
}

// VerifyOTP consumes a matching code and returns a session token, creating
// the user on first login.
func (s *IdentityService) VerifyOTP(ctx context.Context, phone, code string) (*AuthResult, error) {
	phone = strings.TrimSpace(phone)
	code = strings.TrimSpace(code)
	if phone == "" || code == "" {
		return nil, apperr.Validation("phone and OTP are required")
	}

	now := s.now()
	var candidates []models.OtpVerification
	if err := s.db.WithContext(ctx).
		Where("phone = ? AND is_used = ? AND expires_at > ?", phone, false, now).
		Order("created_at desc").
		Limit(otpCandidateLimit).
		Find(&candidates).Error; err != nil {
		return nil, apperr.Unexpected(err, "load otp")
	}

	var matched *models.OtpVerification
	for i := range candidates {
		if utils.CheckCode(candidates[i].CodeHash, code) {
			matched = &candidates[i]
			break
		}
	}
	if matched == nil {
		return nil, apperr.ErrInvalidOrExpiredOtp
	}

	var (
		user  models.User
		isNew bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.OtpVerification{}).
			Where("id = ? AND is_used = ?", matched.ID, false).
			Updates(map[string]interface{}{"is_used": true, "used_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrInvalidOrExpiredOtp
		}

		err := tx.Where("phone = ?", phone).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			isNew = true
			user = models.User{
				Phone:         phone,
				Role:          models.RoleCustomer,
				PhoneVerified: true,
				IsVerified:    true,
				IsActive:      true,
				LastLoginAt:   &now,
			}
			return tx.Create(&user).Error
		case err != nil:
			return err
		}

		if !user.IsActive {
			return apperr.ErrAccountDeactivated
		}

		user.LastLoginAt = &now
		user.PhoneVerified = true
		return tx.Model(&user).Updates(map[string]interface{}{
			"last_login_at":  now,
			"phone_verified": true,
		}).Error
	})
	if err != nil {
		return nil, apperr.Unexpected(err, "verify otp")
	}

	token, err := utils.GenerateToken(s.cfg.JWTSecret, user.ID, user.Phone, user.Role, s.cfg.TokenTTL)
	if err != nil {
		return nil, apperr.Unexpected(err, "sign token")
	}

	return &AuthResult{Token: token, User: &user, IsNewUser: isNew}, nil
}

// CurrentUser loads the user behind an authenticated request.
func (s *IdentityService) CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound.WithMessage("user not found")
		}
		return nil, apperr.Unexpected(err, "load user")
	}
	return &user, nil
}
