// internal/auth/jwt.go
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims identify the admin behind a request.
type Claims struct {
	AdminID  int
	Username string
	Role     string
}

// TokenManager issues and verifies HS256 access tokens.
type TokenManager struct {
	Secret  []byte
	Expires time.Duration
}

func NewTokenManager(secret string, expires time.Duration) *TokenManager {
	return &TokenManager{Secret: []byte(secret), Expires: expires}
}

func (t *TokenManager) Issue(adminID int, username, role string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  username,
		"aid":  adminID,
		"role": role,
		"iat":  jwt.NewNumericDate(now),
		"exp":  jwt.NewNumericDate(now.Add(t.Expires)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.Secret)
}

func (t *TokenManager) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.Parse(tokenStr, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	aid, _ := claims["aid"].(float64) // JSON numbers decode as float64
	if sub == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	return &Claims{AdminID: int(aid), Username: sub, Role: role}, nil
}
