package service

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Identity issuance lives outside this service: tokens arrive already minted
// by the deployment's auth layer. When a JWT secret is configured, the
// gateway verifies the signature here and binds the token subject as the
// user id. Without a secret, bind identifiers are trusted as-is (an auth
// proxy upstream is assumed to have verified them).

var ErrTokenAuthDisabled = errors.New("token authentication not configured")

func (s *Service) parseToken(tokenString string) (jwt.MapClaims, error) {
	if len(s.JWTSecret) == 0 {
		return nil, ErrTokenAuthDisabled
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return s.JWTSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

// AuthenticateToken verifies an externally issued HS256 token and returns
// its subject as the user id.
func (s *Service) AuthenticateToken(tokenString string) (string, error) {
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return "", err
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("missing sub claim")
	}

	return sub, nil
}

// AuthorizeRetention verifies a token carrying the admin claim, required to
// enqueue retention requests over REST.
func (s *Service) AuthorizeRetention(tokenString string) error {
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return err
	}

	admin, ok := claims["admin"].(bool)
	if !ok || !admin {
		return errors.New("missing admin claim")
	}

	return nil
}
