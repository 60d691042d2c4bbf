package middleware

import "context"

type ctxKey int

const (
	principalKey ctxKey = iota
	requestIDKey
)

// Principal identifies the admin behind an authenticated request.
type Principal struct {
	AdminID  uint
	Username string
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// AdminIDFromContext is zero on public routes.
func AdminIDFromContext(ctx context.Context) uint {
	p, _ := PrincipalFromContext(ctx)
	return p.AdminID
}

// ActorFromContext names the admin for audit trails.
func ActorFromContext(ctx context.Context) string {
	p, _ := PrincipalFromContext(ctx)
	return p.Username
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
