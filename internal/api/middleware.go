/**
 * @description
 * Authentication, authorization and rate limiting middleware.
 */
package api

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rjunioramorim/app-cobrancas/internal/domain"
)

type contextKey string

const tenantIDContextKey = contextKey("tenantID")

// TenantResolver resolves the caller's tenant from credentials.
type TenantResolver interface {
	ResolveAPIToken(ctx context.Context, token string) (uuid.UUID, error)
	ActiveTenant(ctx context.Context, tenantID uuid.UUID) (*domain.Tenant, error)
}

// RateLimiter counts requests in fixed windows.
type RateLimiter interface {
	Consume(ctx context.Context, scope, subject string, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// SessionClaims is the payload of a session token signed with AUTH_SECRET.
type SessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthConfig configures session and internal-key authentication.
type AuthConfig struct {
	Secret         string
	CookieName     string
	InternalAPIKey string
}

func parseSession(tokenString, secret string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")), true
}

func looksLikeJWT(token string) bool {
	return strings.Count(token, ".") == 2
}

// sessionFromRequest reads session claims from the cookie or a bearer JWT.
func sessionFromRequest(r *http.Request, cfg AuthConfig) (*SessionClaims, bool) {
	if cfg.Secret == "" {
		return nil, false
	}
	if cookie, err := r.Cookie(cfg.CookieName); err == nil && cookie.Value != "" {
		if claims, err := parseSession(cookie.Value, cfg.Secret); err == nil {
			return claims, true
		}
	}
	if token, ok := bearerToken(r); ok && looksLikeJWT(token) {
		if claims, err := parseSession(token, cfg.Secret); err == nil {
			return claims, true
		}
	}
	return nil, false
}

// TenantAuthMiddleware resolves the tenant from a session or a bearer API
// token and injects it into the request context.
func TenantAuthMiddleware(resolver TenantResolver, cfg AuthConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if claims, ok := sessionFromRequest(r, cfg); ok {
				tenantID, err := uuid.Parse(claims.Subject)
				if err != nil {
					writeError(w, logger, domain.Unauthorized("Sessão inválida"))
					return
				}
				if _, err := resolver.ActiveTenant(ctx, tenantID); err != nil {
					writeError(w, logger, err)
					return
				}
				next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, tenantIDContextKey, tenantID)))
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				writeError(w, logger, domain.Unauthorized("Não autenticado"))
				return
			}
			tenantID, err := resolver.ResolveAPIToken(ctx, token)
			if err != nil {
				writeError(w, logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, tenantIDContextKey, tenantID)))
		})
	}
}

// AdminAuthMiddleware admits callers presenting the internal API key or an
// ADMIN session.
func AdminAuthMiddleware(cfg AuthConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.InternalAPIKey != "" {
				provided := r.Header.Get("X-Internal-API-Key")
				if provided != "" && subtle.ConstantTimeCompare([]byte(provided), []byte(cfg.InternalAPIKey)) == 1 {
					next.ServeHTTP(w, r)
					return
				}
			}

			claims, ok := sessionFromRequest(r, cfg)
			if !ok {
				writeError(w, logger, domain.Unauthorized("Não autenticado"))
				return
			}
			if claims.Role != string(domain.RoleAdmin) {
				writeError(w, logger, domain.Forbidden("Acesso restrito a administradores"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitMiddleware limits each tenant to perMinute requests on the
// wrapped routes. Limiter failures let the request through.
func RateLimitMiddleware(limiter RateLimiter, scope string, perMinute int, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || perMinute <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID, ok := TenantFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			count, retryAfter, err := limiter.Consume(r.Context(), scope, tenantID.String(), time.Minute)
			if err != nil {
				logger.Warn("rate limiter unavailable", "scope", scope, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if count > perMinute {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeJSON(w, http.StatusTooManyRequests, errorResponse{
					Error: "Muitas requisições, tente novamente em instantes",
					Code:  "RATE_LIMITED",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TenantFromContext retrieves the tenant ID from the request context.
func TenantFromContext(ctx context.Context) (uuid.UUID, bool) {
	tenantID, ok := ctx.Value(tenantIDContextKey).(uuid.UUID)
	return tenantID, ok
}
