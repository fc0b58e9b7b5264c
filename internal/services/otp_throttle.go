package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const otpResendKeyPrefix = "otp:resend:"

// OTPThrottle limits how often a code can be requested for one phone.
type OTPThrottle struct {
	client *redis.Client
	window time.Duration
}

// NewOTPThrottle returns nil when client is nil, which disables throttling.
func NewOTPThrottle(client *redis.Client, window time.Duration) *OTPThrottle {
	if client == nil || window <= 0 {
		return nil
	}
	return &OTPThrottle{client: client, window: window}
}

// Allow reserves the resend window for phone. It reports false while an
// earlier reservation is still live.
func (t *OTPThrottle) Allow(ctx context.Context, phone string) (bool, error) {
	if t == nil {
		return true, nil
	}

	ok, err := t.client.SetNX(ctx, otpResendKeyPrefix+phone, time.Now().Unix(), t.window).Result()
	if err != nil {
		return false, errors.Wrap(err, "reserve otp resend window")
	}
	return ok, nil
}

// Release clears the window so a failed request does not block a retry.
func (t *OTPThrottle) Release(ctx context.Context, phone string) error {
	if t == nil {
		return nil
	}
	return t.client.Del(ctx, otpResendKeyPrefix+phone).Err()
}

// Remaining returns how long until phone may request another code.
func (t *OTPThrottle) Remaining(ctx context.Context, phone string) time.Duration {
	if t == nil {
		return 0
	}
	ttl, err := t.client.TTL(ctx, otpResendKeyPrefix+phone).Result()
	if err != nil || ttl < 0 {
		return 0
	}
	return ttl
}
