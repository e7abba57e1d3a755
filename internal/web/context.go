package web

import (
	"context"

	"github.com/joescharf/tracker/internal/sessions"
)

// RequestContext carries the session state of one request. Handlers read it
// from the request context instead of consulting the session table.
type RequestContext struct {
	SessionID string
	User      string
	Role      string
	Locale    string
	CSRFToken string

	session *sessions.Session
}

// Authenticated reports whether the request belongs to a logged-in user.
func (rc *RequestContext) Authenticated() bool { return rc != nil && rc.User != "" }

type ctxKey struct{}

func withRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

// FromContext returns the RequestContext stored by the session middleware,
// or an empty anonymous one.
func FromContext(ctx context.Context) *RequestContext {
	if rc, ok := ctx.Value(ctxKey{}).(*RequestContext); ok {
		return rc
	}
	return &RequestContext{}
}

func newRequestContext(s *sessions.Session) *RequestContext {
	return &RequestContext{
		SessionID: s.ID,
		User:      s.User,
		Role:      s.Role,
		Locale:    s.Locale,
		CSRFToken: s.CSRFToken,
		session:   s,
	}
}
