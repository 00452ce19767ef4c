// Package auth issues and parses the HS256 access tokens handed to clients.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/ojtauth/internal/common"
	"github.com/dmitrijs2005/ojtauth/internal/rbac"
)

// Claims carries the user id and the role the token was issued for.
type Claims struct {
	jwt.RegisteredClaims
	UserID string    `json:"uid"`
	Role   rbac.Role `json:"role"`
}

type TokenIssuer struct {
	secret   []byte
	validity time.Duration
	now      func() time.Time
}

func NewTokenIssuer(secret []byte, validity time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, validity: validity, now: time.Now}
}

// WithClock replaces the time source.
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	i.now = now
	return i
}

func (i *TokenIssuer) GenerateToken(userID string, role rbac.Role) (string, time.Time, error) {
	issued := i.now()
	expires := issued.Add(i.validity)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		UserID: userID,
		Role:   role,
	})

	s, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, expires, nil
}

// ParseToken validates the signature and expiry. An expired token returns
// common.ErrTokenExpired so callers can tell the client to refresh; any other
// failure is common.ErrInvalidToken.
func (i *TokenIssuer) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}
	if !token.Valid || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}
