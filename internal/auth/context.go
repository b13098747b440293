package auth

import (
	"context"

	"isodocs/internal/rbac"
)

type ctxKey string

const userKey ctxKey = "userClaims"

// Claims is the identity recovered from a session token. It is threaded
// through the request context only, never stored process-wide.
type Claims struct {
	Subject    string
	Role       rbac.Role
	Department string
}

func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, userKey, c)
}

func FromContext(ctx context.Context) Claims {
	if v, ok := ctx.Value(userKey).(Claims); ok {
		return v
	}
	return Claims{}
}

func Subject(ctx context.Context) string {
	return FromContext(ctx).Subject
}
