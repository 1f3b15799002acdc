package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleVendor  = "vendor"
	RoleUser    = "user"
	RoleAdmin   = "admin"
	RoleService = "service"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func GenerateJWT(secret []byte, subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(secret)
}

// ParseBearer validates "Bearer <token>" (or a bare token) signed with secret.
func ParseBearer(secret []byte, header string) (*Claims, error) {
	tokenStr := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(header), "Bearer "))
	if tokenStr == "" {
		return nil, fmt.Errorf("missing token: %w", ErrInvalidToken)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidToken)
	}

	return claims, nil
}

// ErrForbiddenRole is returned when a token's role is not allowed.
var ErrForbiddenRole = errors.New("role not allowed")

// RequireRole returns ErrForbiddenRole unless c carries one of roles.
func RequireRole(c *Claims, roles ...string) error {
	for _, r := range roles {
		if c.Role == r {
			return nil
		}
	}
	return fmt.Errorf("%q: %w", c.Role, ErrForbiddenRole)
}
