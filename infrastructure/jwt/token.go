// Package jwt issues and validates the HS256 bearer tokens that carry a
// caller's subject and role.
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the token claims. Role is matched by the admin layer.
type Claims struct {
	Sub  string `json:"sub"`
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

var errInvalidToken = errors.New("invalid token")

// Manager signs and validates tokens with one shared secret.
type Manager struct {
	secret     []byte
	expiration time.Duration
}

// NewManager returns a Manager. A zero expiration issues tokens without exp.
func NewManager(secret string, expiration time.Duration) *Manager {
	return &Manager{
		secret:     []byte(secret),
		expiration: expiration,
	}
}

// GenerateToken signs a token for subject carrying role.
func (m *Manager) GenerateToken(subject, role string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Sub:  subject,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	if m.expiration > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.expiration))
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// ValidateToken parses tokenString and returns its claims. Only HMAC
// signing methods are accepted.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errInvalidToken
	}
	return claims, nil
}
