package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwtClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims() jwtClaims {
	now := time.Now()
	return jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			Issuer:    "oriyet-auth",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Email: "u@example.com",
		Roles: []string{"admin", "user"},
	}
}

func TestJWTVerifier_Verify(t *testing.T) {
	verifier := NewJWTVerifier(testSecret, "oriyet-auth")

	claims, err := verifier.Verify(sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "u@example.com", claims.Email)
	assert.True(t, claims.HasRole("admin"))
}

func TestJWTVerifier_Rejects(t *testing.T) {
	verifier := NewJWTVerifier(testSecret, "oriyet-auth")

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	noExpiry := validClaims()
	noExpiry.ExpiresAt = nil
	otherIssuer := validClaims()
	otherIssuer.Issuer = "someone-else"
	noSubject := validClaims()
	noSubject.Subject = ""

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", sign(t, jwt.SigningMethodHS256, []byte("other"), validClaims())},
		{"expired", sign(t, jwt.SigningMethodHS256, []byte(testSecret), expired)},
		{"missing expiry", sign(t, jwt.SigningMethodHS256, []byte(testSecret), noExpiry)},
		{"wrong issuer", sign(t, jwt.SigningMethodHS256, []byte(testSecret), otherIssuer)},
		{"missing subject", sign(t, jwt.SigningMethodHS256, []byte(testSecret), noSubject)},
		{"other algorithm", sign(t, jwt.SigningMethodHS512, []byte(testSecret), validClaims())},
		{"garbage", "not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifier.Verify(tt.token)
			require.Error(t, err)
		})
	}
}

func TestJWTVerifier_IssuerOptional(t *testing.T) {
	claims := validClaims()
	claims.Issuer = ""
	_, err := NewJWTVerifier(testSecret, "").Verify(sign(t, jwt.SigningMethodHS256, []byte(testSecret), claims))
	require.NoError(t, err)
}
