package clerk

import (
	"context"

	"github.com/alexlup06-authgate/clerk-go/backend"
)

type authKeyType struct{}
type requestIDKeyType struct{}

var (
	authKey      = authKeyType{}
	requestIDKey = requestIDKeyType{}
)

// Auth is the authentication information attached to a signed-in request.
type Auth struct {
	UserID    string
	SessionID string
	OrgID     string
	OrgRole   string
	OrgSlug   string
	Claims    *backend.SessionClaims
}

// withAuth returns a new context carrying the signed-in state's claims.
//
// This function is used internally by the middleware to attach
// authentication information to the request context.
func withAuth(ctx context.Context, state backend.RequestState) context.Context {
	if state.Claims == nil {
		return ctx
	}
	c := state.Claims
	return context.WithValue(ctx, authKey, &Auth{
		UserID:    c.Subject,
		SessionID: c.SessionID,
		OrgID:     c.OrgID,
		OrgRole:   c.OrgRole,
		OrgSlug:   c.OrgSlug,
		Claims:    c,
	})
}

// AuthFromContext extracts the authentication information from the context.
//
// The boolean return value is false if the request is not signed in.
func AuthFromContext(ctx context.Context) (*Auth, bool) {
	a, ok := ctx.Value(authKey).(*Auth)
	return a, ok
}

// UserIDFromContext extracts the signed-in user's ID from the context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	a, ok := AuthFromContext(ctx)
	if !ok {
		return "", false
	}
	return a.UserID, true
}

// IsAuthenticated reports whether the context carries a signed-in user.
func IsAuthenticated(ctx context.Context) bool {
	_, ok := AuthFromContext(ctx)
	return ok
}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the correlation id assigned by the middleware.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}
