// Package auth issues and validates the HS256 JWTs that serve as the opaque
// auth tokens handed out at registration and login.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mzhurin/convo/internal/common"
)

// Claims carries the registered claims plus the user's unique identifier.
type Claims struct {
	jwt.RegisteredClaims
	UserUnique string
}

// GenerateToken mints a signed token for the given user unique.
func GenerateToken(userUnique string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		UserUnique: userUnique,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetUserUniqueFromToken parses and verifies a token and returns the user
// unique embedded in it. Expired tokens yield common.ErrTokenExpired.
func GetUserUniqueFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", err
	}

	if !token.Valid {
		return "", common.ErrInvalidToken
	}

	return claims.UserUnique, nil
}
