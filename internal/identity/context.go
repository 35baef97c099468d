package identity

import (
	"context"
	"log"
	"net/http"
	"strings"

	"quizdesk/internal/domain"
)

type ctxKey struct{}

// WithIdentity attaches who to ctx.
func WithIdentity(ctx context.Context, who domain.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, who)
}

// CurrentUser returns the identity attached to ctx, if any.
func CurrentUser(ctx context.Context) (domain.Identity, bool) {
	who, ok := ctx.Value(ctxKey{}).(domain.Identity)
	return who, ok && !who.IsZero()
}

// TokenFromRequest reads a bearer token from the Authorization header,
// or from the token query parameter for websocket clients.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

// Middleware attaches the caller's identity when a valid token is present.
// Requests without one pass through unauthenticated; handlers decide what needs a user.
func (p *Provider) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := TokenFromRequest(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		who, err := p.Authenticate(r.Context(), raw)
		if err != nil {
			log.Printf("auth: %v", err)
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), who)))
	})
}
