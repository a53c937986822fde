package core

import "context"

type identityKey struct{}

// Identity is the authenticated teacher a request acts on behalf of.
type Identity struct {
	TeacherID int
	Username  string
	Name      string
	Email     string
}

func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.TeacherID > 0
}

// RequireIdentity guards every core operation.
func RequireIdentity(ctx context.Context) (Identity, error) {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return Identity{}, ErrUnauthorized
	}
	return id, nil
}
