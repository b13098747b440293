package auth

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"isodocs/internal/rbac"
)

func parseTTL() time.Duration {
	if s := os.Getenv("JWT_EXPIRES_IN"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	// 30 days
	return 720 * time.Hour
}

// Sign mints a stateless session token carrying the identity claims.
// Expiry is fixed at issuance; decoding never extends it.
func Sign(c Claims) (string, error) {
	key := []byte(os.Getenv("JWT_SECRET"))
	claims := jwt.MapClaims{
		"sub":  c.Subject,
		"role": string(c.Role),
		"dept": c.Department,
		"exp":  time.Now().Add(parseTTL()).Unix(),
		"iat":  time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

// Verify decodes a session token. Missing, malformed, tampered and expired
// tokens all fail the same way.
func Verify(tokenStr string) (Claims, error) {
	key := []byte(os.Getenv("JWT_SECRET"))
	tok, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return key, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid {
		return Claims{}, errors.New("invalid token")
	}
	mapc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, errors.New("invalid claims")
	}
	sub, _ := mapc["sub"].(string)
	role, _ := mapc["role"].(string)
	dept, _ := mapc["dept"].(string)
	return Claims{Subject: sub, Role: rbac.Role(role), Department: dept}, nil
}
