package auth

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/chiremba/chiremba-api/internal/user/entity"
	"github.com/chiremba/chiremba-api/pkg/utilities"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

type claimsKey struct{}

// WithClaims attaches verified claims to ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFromContext returns the claims stored by Authenticate.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok && c != nil
}

// Middleware gates handlers behind a valid session token.
type Middleware struct {
	tokens *TokenService
	logger *zap.SugaredLogger
}

func NewMiddleware(tokens *TokenService, logger *zap.SugaredLogger) *Middleware {
	return &Middleware{tokens: tokens, logger: logger}
}

// Authenticate rejects requests without a bearer token (401) or with an
// invalid one (400), and otherwise stores the claims on the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			deny(w, ErrUnauthenticated, "Access denied. No token provided.")
			return
		}
		claims, err := m.tokens.Verify(token)
		if err != nil {
			m.logger.Debugw("token rejected", "err", err, "path", r.URL.Path)
			deny(w, err, "Invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// RequireRole allows the request only when the authenticated role is one of roles.
// It must run after Authenticate.
func RequireRole(roles ...entity.Role) func(http.Handler) http.Handler {
	msg := "Access denied. Admin privileges required."
	if slices.Contains(roles, entity.RoleStaff) {
		msg = "Access denied. Staff privileges required."
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				deny(w, ErrUnauthenticated, "Access denied. No token provided.")
				return
			}
			if !slices.Contains(roles, claims.Role) {
				deny(w, ErrForbidden, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

var (
	RequireAdmin = RequireRole(entity.RoleAdmin)
	RequireStaff = RequireRole(entity.RoleStaff, entity.RoleAdmin)
)

// StatusFor maps auth failures to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidToken):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func deny(w http.ResponseWriter, err error, msg string) {
	utilities.WriteMessage(w, StatusFor(err), msg)
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
