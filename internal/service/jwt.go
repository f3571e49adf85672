package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"clicker_webapp/internal/domain"
)

var ErrInvalidToken = errors.New("invalid token")

const tokenTTL = 24 * time.Hour

// JWTManager signs and verifies HS256 access tokens carrying the user id
// and role.
type JWTManager struct {
	secret []byte
}

func NewJWTManager(secret string) *JWTManager {
	return &JWTManager{secret: []byte(secret)}
}

func (m *JWTManager) Generate(userID int64, role domain.Role) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    string(role),
		"iat":     now.Unix(),
		"exp":     now.Add(tokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Parse validates the token and returns the embedded user id and role.
func (m *JWTManager) Parse(token string) (int64, domain.Role, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return 0, "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", ErrInvalidToken
	}
	rawID, ok := claims["user_id"].(float64)
	if !ok {
		return 0, "", ErrInvalidToken
	}
	role, _ := claims["role"].(string)
	return int64(rawID), domain.Role(role), nil
}
