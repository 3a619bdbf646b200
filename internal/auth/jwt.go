package auth

import (
	"errors"
	"fmt"

	"platefuel_backend/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload issued by the identity provider. The user id
// in the subject is the only identity the backend ever trusts.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// ParseToken validates the signature and expiry of a bearer token and
// returns its claims.
func ParseToken(tokenStr string) (*Claims, error) {
	secret := config.GetConfig().Auth.JWTSecret
	if secret == "" {
		return nil, errors.New("jwt secret is not configured")
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, errors.New("token carries no user id")
	}

	return claims, nil
}
