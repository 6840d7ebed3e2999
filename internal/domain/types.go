package domain

import "context"

// ID is used across domain entities.
type ID int64

// Role names recognised by the identity layer.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// RequestContext carries authenticated user info when available.
type RequestContext struct {
	UserID ID     `json:"userId"`
	Role   string `json:"role"`
}

func (rc RequestContext) Authenticated() bool { return rc.UserID > 0 }

type ctxKey int

const (
	requestContextKey ctxKey = iota
	requestIDKey
)

func WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey, rc)
}

func RequestContextFrom(ctx context.Context) (RequestContext, bool) {
	if ctx == nil {
		return RequestContext{}, false
	}
	rc, ok := ctx.Value(requestContextKey).(RequestContext)
	return rc, ok && rc.Authenticated()
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFrom returns the tracing id stored by the HTTP layer, or "".
func RequestIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
