package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

type callerKeyType struct{}

var (
	callerKey callerKeyType
)

// Caller is the authenticated sender of a webhook request.
type Caller struct {
	Subject string
	Token   *jwt.Token
}

func CallerFromContext(ctx context.Context) (Caller, bool) {
	val := ctx.Value(callerKey)
	if val == nil {
		return Caller{}, false
	}
	return val.(Caller), true
}

func NewCallerContext(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}
