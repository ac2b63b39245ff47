package service_test

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jinukim/inkverse/service"
	"github.com/stretchr/testify/assert"
)

func mintToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	assert.NoError(t, err)
	return signed
}

func TestAuthenticateToken_ReturnsSubject(t *testing.T) {
	svc, _, _, _ := setupService(t)

	tokenString := mintToken(t, svc.JWTSecret, jwt.MapClaims{"sub": "user-42"})

	userId, err := svc.AuthenticateToken(tokenString)
	assert.NoError(t, err)
	assert.Equal(t, "user-42", userId)
}

func TestAuthenticateToken_RejectsBadSignature(t *testing.T) {
	svc, _, _, _ := setupService(t)

	tokenString := mintToken(t, []byte("some-other-secret"), jwt.MapClaims{"sub": "user-42"})

	_, err := svc.AuthenticateToken(tokenString)
	assert.Error(t, err)
}

func TestAuthenticateToken_RejectsMissingSubject(t *testing.T) {
	svc, _, _, _ := setupService(t)

	tokenString := mintToken(t, svc.JWTSecret, jwt.MapClaims{"admin": true})

	_, err := svc.AuthenticateToken(tokenString)
	assert.Error(t, err)
}

func TestAuthenticateToken_DisabledWithoutSecret(t *testing.T) {
	svc, _, _, _ := setupService(t)
	svc.JWTSecret = nil

	tokenString := mintToken(t, []byte("secret"), jwt.MapClaims{"sub": "user-42"})

	_, err := svc.AuthenticateToken(tokenString)
	assert.ErrorIs(t, err, service.ErrTokenAuthDisabled)
}

func TestAuthorizeRetention_AdminClaim(t *testing.T) {
	svc, _, _, _ := setupService(t)

	tokenString := mintToken(t, svc.JWTSecret, jwt.MapClaims{"sub": "ops", "admin": true})

	assert.NoError(t, svc.AuthorizeRetention(tokenString))
}

func TestAuthorizeRetention_RejectsNonAdmin(t *testing.T) {
	svc, _, _, _ := setupService(t)

	tokenString := mintToken(t, svc.JWTSecret, jwt.MapClaims{"sub": "user-42"})

	err := svc.AuthorizeRetention(tokenString)
	assert.Error(t, err)
}
