package httputil

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/bissquit/resettlement-portal/internal/access"
	"github.com/bissquit/resettlement-portal/internal/domain"
	"github.com/bissquit/resettlement-portal/internal/pkg/ctxlog"
	"github.com/bissquit/resettlement-portal/internal/pkg/metrics"
)

// Cookie and header names used for session transport.
const (
	AccessTokenCookie = "access_token"
	CSRFTokenCookie   = "csrf_token"
	CSRFTokenHeader   = "X-CSRF-Token"
)

// CORSMiddleware creates CORS middleware that handles preflight requests
// and adds appropriate CORS headers to responses.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	originsSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originsSet[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" && (originsSet[origin] || originsSet["*"]) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			}

			// Handle preflight OPTIONS request
			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+CSRFTokenHeader)
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type claimsKey struct{}

// WithClaims stores verified claims in the context.
func WithClaims(ctx context.Context, claims *domain.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the verified claims, or nil for anonymous requests.
func ClaimsFromContext(ctx context.Context) *domain.Claims {
	if claims, ok := ctx.Value(claimsKey{}).(*domain.Claims); ok {
		return claims
	}
	return nil
}

// TokenValidator validates session tokens.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*domain.Claims, error)
}

// TokenFromRequest extracts a session token from the Authorization header,
// falling back to the access_token cookie.
func TokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return ""
		}
		return strings.TrimSpace(parts[1])
	}
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// AuthMiddleware creates authentication middleware.
// Requests without a valid token are rejected with 401.
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				metrics.RecordAuthzDenial("unauthenticated")
				Error(w, http.StatusUnauthorized, access.ErrUnauthenticated.Error())
				return
			}

			claims, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				respondTokenError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), claims)))
		})
	}
}

// withCaller stores claims and tags the request logger with the caller.
func withCaller(ctx context.Context, claims *domain.Claims) context.Context {
	ctx = ctxlog.With(ctx, "user_id", claims.SubjectID, "role", claims.Role.String())
	return WithClaims(ctx, claims)
}

// OptionalAuthMiddleware attaches claims when a valid token is presented
// and lets every request through otherwise.
func OptionalAuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				ctxlog.FromContext(r.Context()).Debug("ignoring invalid token", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), claims)))
		})
	}
}

func respondTokenError(w http.ResponseWriter, r *http.Request, err error) {
	logger := ctxlog.FromContext(r.Context())
	switch {
	case errors.Is(err, access.ErrExpiredToken):
		metrics.RecordAuthzDenial("expired_token")
		Error(w, http.StatusUnauthorized, "token expired")
	case errors.Is(err, access.ErrInvalidToken):
		metrics.RecordAuthzDenial("invalid_token")
		logger.Info("invalid token presented", "error", err)
		Error(w, http.StatusUnauthorized, "invalid token")
	default:
		logger.Error("token validation failed", "error", err)
		Error(w, http.StatusServiceUnavailable, "authentication unavailable")
	}
}

// RequireRoles creates RBAC middleware admitting only the roles in allowed.
// Missing claims yield 401; a role outside the set yields 403.
func RequireRoles(allowed access.RoleSet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())

			switch err := access.Authorize(claims, allowed); {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, access.ErrUnauthenticated):
				metrics.RecordAuthzDenial("unauthenticated")
				Error(w, http.StatusUnauthorized, err.Error())
			default:
				metrics.RecordAuthzDenial("forbidden")
				ctxlog.FromContext(r.Context()).Warn("access denied",
					"user_id", claims.SubjectID,
					"role", claims.Role.String(),
					"required_roles", allowed.String(),
					"path", r.URL.Path,
				)
				Error(w, http.StatusForbidden, err.Error())
			}
		})
	}
}

// CSRFMiddleware enforces the double-submit cookie check on state-changing
// requests that authenticate with the access_token cookie. Requests carrying
// an Authorization header are not subject to CSRF and pass through.
//
// Requests to credentialPaths (sign-in and sign-up) are never rejected: when
// the check fails there, the session cookie is dropped and the request
// continues as anonymous, so a stale cookie cannot block signing in again
// while a forged request still cannot borrow the session.
func CSRFMiddleware(credentialPaths ...string) func(http.Handler) http.Handler {
	credential := make(map[string]bool, len(credentialPaths))
	for _, p := range credentialPaths {
		credential[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isStateChanging(r.Method) || r.Header.Get("Authorization") != "" {
				next.ServeHTTP(w, r)
				return
			}
			if _, err := r.Cookie(AccessTokenCookie); err != nil {
				next.ServeHTTP(w, r)
				return
			}

			if validCSRF(r) {
				next.ServeHTTP(w, r)
				return
			}
			if credential[r.URL.Path] {
				next.ServeHTTP(w, withoutCookie(r, AccessTokenCookie))
				return
			}
			Error(w, http.StatusForbidden, "csrf token mismatch")
		})
	}
}

func validCSRF(r *http.Request) bool {
	cookie, err := r.Cookie(CSRFTokenCookie)
	header := r.Header.Get(CSRFTokenHeader)
	return err == nil && cookie.Value != "" && header != "" &&
		subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(header)) == 1
}

// withoutCookie returns a copy of r whose Cookie header omits name.
func withoutCookie(r *http.Request, name string) *http.Request {
	clone := r.Clone(r.Context())
	clone.Header.Del("Cookie")
	for _, c := range r.Cookies() {
		if c.Name != name {
			clone.AddCookie(c)
		}
	}
	return clone
}

func isStateChanging(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
