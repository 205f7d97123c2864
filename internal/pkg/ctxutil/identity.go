package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type identityKey struct{}

// Identity is the authenticated caller attached by the auth middleware.
type Identity struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	Role     string
	Email    string
	Token    string
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == "admin"
}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(Default(ctx), identityKey{}, id)
}

func GetIdentity(ctx context.Context) *Identity {
	if ctx == nil {
		return nil
	}
	if id, ok := ctx.Value(identityKey{}).(*Identity); ok {
		return id
	}
	return nil
}
