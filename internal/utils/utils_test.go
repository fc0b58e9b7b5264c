package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestGenerateAndParseToken(t *testing.T) {
	userID := uuid.New()

	token, err := GenerateToken(testSecret, userID, "01712345678", "admin", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, "01712345678", claims.Phone)
	assert.Equal(t, "admin", claims.Role)

	parsed, err := claims.UserUUID()
	require.NoError(t, err)
	assert.Equal(t, userID, parsed)
}

func TestParseTokenRejects(t *testing.T) {
	valid, err := GenerateToken(testSecret, uuid.New(), "01712345678", "customer", time.Hour)
	require.NoError(t, err)
	expired, err := GenerateToken(testSecret, uuid.New(), "01712345678", "customer", -time.Minute)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: uuid.NewString()})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		secret string
		token  string
	}{
		{name: "wrong secret", secret: "other", token: valid},
		{name: "expired", secret: testSecret, token: expired},
		{name: "garbage", secret: testSecret, token: "not-a-token"},
		{name: "alg none", secret: testSecret, token: unsigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(tt.secret, tt.token)
			assert.Error(t, err)
		})
	}
}

func TestGenerateOTP(t *testing.T) {
	for i := 0; i < 20; i++ {
		code, err := GenerateOTP(6)
		require.NoError(t, err)
		assert.Len(t, code, 6)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9', "non-digit in %q", code)
		}
	}
}

func TestHashAndCheckCode(t *testing.T) {
	hash, err := HashCode("123456")
	require.NoError(t, err)

	assert.NotEqual(t, "123456", hash)
	assert.True(t, CheckCode(hash, "123456"))
	assert.False(t, CheckCode(hash, "654321"))
}

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name        string
		page, limit int
		wantPage    int
		wantLimit   int
		wantOffset  int
	}{
		{name: "defaults", page: 0, limit: 0, wantPage: 1, wantLimit: 12, wantOffset: 0},
		{name: "second page", page: 2, limit: 10, wantPage: 2, wantLimit: 10, wantOffset: 10},
		{name: "limit capped", page: 1, limit: 500, wantPage: 1, wantLimit: MaxLimit, wantOffset: 0},
		{name: "negative page", page: -3, limit: 5, wantPage: 1, wantLimit: 5, wantOffset: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(tt.page, tt.limit, 12)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantLimit, p.Limit)
			assert.Equal(t, tt.wantOffset, p.Offset)
		})
	}
}

func TestTotalPages(t *testing.T) {
	p := NewPagination(1, 10, 10)
	assert.Equal(t, 0, p.TotalPages(0))
	assert.Equal(t, 1, p.TotalPages(10))
	assert.Equal(t, 2, p.TotalPages(11))
}

func TestSlugify(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	assert.Equal(t, "fresh-red-apples-1700000000123", Slugify("  Fresh Red  Apples! ", now))
	assert.Equal(t, "milk-1l-1700000000123", Slugify("Milk (1L)", now))
	assert.Equal(t, "1700000000123", Slugify("আপেল", now))
}
