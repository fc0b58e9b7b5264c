package models

import (
	"time"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// OTP purposes.
const OtpPurposeLogin = "login"

// User represents a customer or staff account identified by phone.
type User struct {
	BaseModel
	Phone         string        `gorm:"uniqueIndex;not null" json:"phone"`
	Email         *string       `gorm:"uniqueIndex" json:"email"`
	FullName      string        `json:"full_name"`
	Role          string        `gorm:"not null;index" json:"role"`
	PhoneVerified bool          `json:"phone_verified"`
	IsVerified    bool          `json:"is_verified"`
	IsActive      bool          `json:"is_active"`
	LastLoginAt   *time.Time    `json:"last_login_at"`
	Addresses     []UserAddress `json:"addresses,omitempty"`
	Orders        []Order       `json:"orders,omitempty"`
}

// OtpVerification keeps track of one-time codes sent to phones.
type OtpVerification struct {
	BaseModel
	Phone     string     `gorm:"index;not null" json:"phone"`
	CodeHash  string     `gorm:"not null" json:"-"`
	Purpose   string     `json:"purpose"`
	ExpiresAt time.Time  `gorm:"index" json:"expires_at"`
	IsUsed    bool       `json:"is_used"`
	UsedAt    *time.Time `json:"used_at"`
}
