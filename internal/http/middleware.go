package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"care-session-service/internal/auth"
	"care-session-service/internal/domain"
	"care-session-service/internal/repository"
)

// OrgOverrideHeader lets an elevated caller select a tenant explicitly.
const OrgOverrideHeader = "X-Organization-ID"

// TokenVerifier abstracts auth.TokenVerifier for handler tests.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Identity is what the middleware resolves for each request.
type Identity struct {
	Claims      *auth.Claims
	Schema      repository.Schema
	Permissions map[string]bool
}

type contextKey struct{}

// IdentityFrom returns the request identity set by the auth middleware.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(*Identity)
	return id, ok
}

// AuthMiddleware authenticates the bearer token, resolves the tenant schema
// and computes the permission set, all per request.
type AuthMiddleware struct {
	verifier TokenVerifier
	table    *auth.PermissionTable
	resolver *auth.TenantResolver
	logger   *zap.Logger
}

func NewAuthMiddleware(verifier TokenVerifier, table *auth.PermissionTable, resolver *auth.TenantResolver, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		table:    table,
		resolver: resolver,
		logger:   logger,
	}
}

// Require gates next behind a bearer token carrying permission perm.
func (m *AuthMiddleware) Require(perm string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			writeError(w, m.logger, fmt.Errorf("%w: missing bearer token", domain.ErrUnauthenticated))
			return
		}

		claims, err := m.verifier.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			m.logger.Warn("token rejected", zap.Error(err))
			writeError(w, m.logger, err)
			return
		}

		schema, err := m.resolver.Resolve(r.Context(), claims, r.Header.Get(OrgOverrideHeader))
		if err != nil {
			m.logger.Warn("tenant resolution failed",
				zap.String("subject", claims.Subject), zap.Error(err))
			writeError(w, m.logger, err)
			return
		}

		perms := m.table.PermissionsFor(claims.Roles)
		if !perms[perm] {
			m.logger.Warn("permission denied",
				zap.String("subject", claims.Subject),
				zap.String("permission", perm))
			writeError(w, m.logger, fmt.Errorf("%w: %s", domain.ErrPermissionDenied, perm))
			return
		}

		identity := &Identity{Claims: claims, Schema: schema, Permissions: perms}
		next(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, identity)))
	}
}

// CORS handles the allow list and preflight requests.
func CORS(allowedOrigins []string, next http.Handler) http.Handler {
	allowed := map[string]bool{}
	allowAll := false
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allowAll || allowed[origin]) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, "+OrgOverrideHeader)
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
