// Package auth issues and verifies session tokens and hashes passwords.
package auth

import (
	"context"

	"github.com/tuanvumaihuynh/stockroom/internal/model"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID   int64
	Username string
	Role     model.Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == model.RoleAdmin
}

type principalCtxKey struct{}

func NewContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(Principal)
	return p, ok
}
