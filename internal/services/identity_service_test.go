package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/freshcorner/internal/apperr"
	"github.com/example/freshcorner/internal/models"
	"github.com/example/freshcorner/internal/utils"
)

const identitySecret = "identity-secret"

type capturingSMS struct {
	mu       sync.Mutex
	messages map[string]string
}

func newCapturingSMS() *capturingSMS {
	return &capturingSMS{messages: make(map[string]string)}
}

func (s *capturingSMS) SendSMS(to, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[to] = message
	return nil
}

// code returns the last code texted to phone.
func (s *capturingSMS) code(t *testing.T, phone string) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	fields := strings.Fields(s.messages[phone])
	require.NotEmpty(t, fields, "no sms sent to %s", phone)
	return fields[len(fields)-1]
}

func newIdentity(t *testing.T, throttle *OTPThrottle) (*IdentityService, *capturingSMS) {
	t.Helper()
	sms := newCapturingSMS()
	svc := NewIdentityService(newTestDB(t), sms, throttle, IdentityConfig{
		JWTSecret: identitySecret,
		TokenTTL:  time.Hour,
	}, zap.NewNop())
	return svc, sms
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRequestOTPRejectsShortPhone(t *testing.T) {
	svc, _ := newIdentity(t, nil)

	_, err := svc.RequestOTP(context.Background(), "0171")
	assert.ErrorIs(t, err, apperr.ErrInvalidPhone)
}

func TestVerifyOTPCreatesUserOnFirstLogin(t *testing.T) {
	svc, sms := newIdentity(t, nil)
	ctx := context.Background()
	phone := "01712345678"

	ttl, err := svc.RequestOTP(ctx, phone)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, ttl)

	code := sms.code(t, phone)
	assert.Len(t, code, 6)

	result, err := svc.VerifyOTP(ctx, phone, code)
	require.NoError(t, err)
	assert.True(t, result.IsNewUser)
	assert.Equal(t, phone, result.User.Phone)
	assert.Equal(t, models.RoleCustomer, result.User.Role)
	assert.True(t, result.User.IsActive)
	assert.True(t, result.User.PhoneVerified)

	claims, err := utils.ParseToken(identitySecret, result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID.String(), claims.UserID)
	assert.Equal(t, models.RoleCustomer, claims.Role)

	// Codes are single use.
	_, err = svc.VerifyOTP(ctx, phone, code)
	assert.ErrorIs(t, err, apperr.ErrInvalidOrExpiredOtp)

	_, err = svc.RequestOTP(ctx, phone)
	require.NoError(t, err)
	again, err := svc.VerifyOTP(ctx, phone, sms.code(t, phone))
	require.NoError(t, err)
	assert.False(t, again.IsNewUser)
	assert.Equal(t, result.User.ID, again.User.ID)
	assert.NotNil(t, again.User.LastLoginAt)
}

func TestVerifyOTPWrongCodeCreatesNoUser(t *testing.T) {
	svc, sms := newIdentity(t, nil)
	ctx := context.Background()
	phone := "01712345678"

	_, err := svc.RequestOTP(ctx, phone)
	require.NoError(t, err)

	wrong := "000000"
	if sms.code(t, phone) == wrong {
		wrong = "111111"
	}
	_, err = svc.VerifyOTP(ctx, phone, wrong)
	assert.ErrorIs(t, err, apperr.ErrInvalidOrExpiredOtp)
	assert.Equal(t, int64(0), countRows(t, svc.db, &models.User{}, ""))

	_, err = svc.VerifyOTP(ctx, "01799999999", sms.code(t, phone))
	assert.ErrorIs(t, err, apperr.ErrInvalidOrExpiredOtp)

	_, err = svc.VerifyOTP(ctx, phone, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestVerifyOTPRejectsExpiredCode(t *testing.T) {
	svc, sms := newIdentity(t, nil)
	ctx := context.Background()
	phone := "01712345678"

	svc.now = func() time.Time { return time.Now().Add(-10 * time.Minute) }
	_, err := svc.RequestOTP(ctx, phone)
	require.NoError(t, err)
	svc.now = time.Now

	_, err = svc.VerifyOTP(ctx, phone, sms.code(t, phone))
	assert.ErrorIs(t, err, apperr.ErrInvalidOrExpiredOtp)
}

func TestVerifyOTPRejectsDeactivatedUser(t *testing.T) {
	svc, sms := newIdentity(t, nil)
	ctx := context.Background()
	phone := "01712345678"

	user := seedUser(t, svc.db, phone, models.RoleCustomer)
	require.NoError(t, svc.db.Model(&user).Update("is_active", false).Error)

	_, err := svc.RequestOTP(ctx, phone)
	require.NoError(t, err)

	_, err = svc.VerifyOTP(ctx, phone, sms.code(t, phone))
	assert.ErrorIs(t, err, apperr.ErrAccountDeactivated)
}

func TestVerifyOTPChecksOnlyNewestCodes(t *testing.T) {
	svc, sms := newIdentity(t, nil)
	ctx := context.Background()
	phone := "01712345678"

	_, err := svc.RequestOTP(ctx, phone)
	require.NoError(t, err)
	oldest := sms.code(t, phone)

	for i := 0; i < otpCandidateLimit; i++ {
		_, err = svc.RequestOTP(ctx, phone)
		require.NoError(t, err)
	}
	newest := sms.code(t, phone)

	_, err = svc.VerifyOTP(ctx, phone, oldest)
	assert.ErrorIs(t, err, apperr.ErrInvalidOrExpiredOtp)

	res, err := svc.VerifyOTP(ctx, phone, newest)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
}

func TestRequestOTPThrottlesResends(t *testing.T) {
	mr, client := newTestRedis(t)
	throttle := NewOTPThrottle(client, time.Minute)
	svc, _ := newIdentity(t, throttle)
	ctx := context.Background()
	phone := "01712345678"

	_, err := svc.RequestOTP(ctx, phone)
	require.NoError(t, err)

	_, err = svc.RequestOTP(ctx, phone)
	assert.ErrorIs(t, err, apperr.ErrOtpThrottled)
	assert.Greater(t, throttle.Remaining(ctx, phone), time.Duration(0))

	_, err = svc.RequestOTP(ctx, "01787654321")
	require.NoError(t, err, "throttle is per phone")

	mr.FastForward(time.Minute + time.Second)
	_, err = svc.RequestOTP(ctx, phone)
	require.NoError(t, err)
	assert.Equal(t, int64(3), countRows(t, svc.db, &models.OtpVerification{}, ""))
}

func TestRequestOTPIgnoresUnavailableThrottle(t *testing.T) {
	mr, client := newTestRedis(t)
	svc, sms := newIdentity(t, NewOTPThrottle(client, time.Minute))
	mr.Close()

	_, err := svc.RequestOTP(context.Background(), "01712345678")
	require.NoError(t, err)
	assert.Len(t, sms.code(t, "01712345678"), 6)
}

func TestOTPThrottleRelease(t *testing.T) {
	_, client := newTestRedis(t)
	throttle := NewOTPThrottle(client, time.Minute)
	ctx := context.Background()

	ok, err := throttle.Allow(ctx, "01712345678")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = throttle.Allow(ctx, "01712345678")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, throttle.Release(ctx, "01712345678"))
	ok, err = throttle.Allow(ctx, "01712345678")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Nil(t, NewOTPThrottle(nil, time.Minute))
	var disabled *OTPThrottle
	ok, err = disabled.Allow(ctx, "01712345678")
	require.NoError(t, err)
	assert.True(t, ok)
}
