package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mxansari007/pearlbloom-admin/pkg/httputil"
	"github.com/mxansari007/pearlbloom-admin/pkg/logger"
)

type contextKeyType string

const claimsKey contextKeyType = "claims"

// ErrMalformedAuthHeader is returned by BearerToken when an Authorization
// header is present but is not a bearer credential.
var ErrMalformedAuthHeader = errors.New("invalid authorization header format")

// Claims represents the identity extracted from a verified token.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// TokenValidator validates a raw token and returns its claims.
type TokenValidator func(token string) (*Claims, error)

// HMACValidator returns a TokenValidator that accepts HMAC-signed JWTs issued
// with secret. The user ID is read from "user_id", falling back to "sub".
func HMACValidator(secret string) TokenValidator {
	key := []byte(secret)
	return func(tokenString string) (*Claims, error) {
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return key, nil
		})
		if err != nil {
			return nil, fmt.Errorf("parse token: %w", err)
		}
		if !token.Valid {
			return nil, jwt.ErrTokenSignatureInvalid
		}

		mc, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return nil, jwt.ErrTokenInvalidClaims
		}

		claims := &Claims{}
		claims.UserID, _ = mc["user_id"].(string)
		if claims.UserID == "" {
			claims.UserID, _ = mc["sub"].(string)
		}
		claims.Email, _ = mc["email"].(string)
		claims.Role, _ = mc["role"].(string)
		return claims, nil
	}
}

// BearerToken extracts the token from the Authorization header. ok is false
// when no header was sent.
func BearerToken(r *http.Request) (token string, ok bool, err error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false, nil
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", true, ErrMalformedAuthHeader
	}
	return strings.TrimSpace(parts[1]), true, nil
}

// RejectFunc writes the response for a request a middleware refused.
type RejectFunc func(w http.ResponseWriter, r *http.Request, message string)

// AuthConfig configures the Auth middleware.
type AuthConfig struct {
	Validate TokenValidator
	// Required rejects requests without a verifiable bearer token. When it is
	// false, requests whose credential is missing, malformed or signed by
	// another issuer proceed anonymously.
	Required bool
	// Reject defaults to a 401 {"error": message} response.
	Reject RejectFunc
}

// Auth validates bearer tokens and stores the resulting claims in context.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	reject := cfg.Reject
	if reject == nil {
		reject = func(w http.ResponseWriter, _ *http.Request, message string) {
			httputil.WriteErrorMessage(w, http.StatusUnauthorized, message)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, present, err := BearerToken(r)
			if err == nil && present {
				var claims *Claims
				if claims, err = cfg.Validate(token); err == nil {
					next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
					return
				}
			}

			if cfg.Required {
				switch {
				case !present:
					reject(w, r, "missing authorization header")
				case errors.Is(err, ErrMalformedAuthHeader):
					reject(w, r, err.Error())
				default:
					reject(w, r, "invalid or expired token")
				}
				return
			}

			if err != nil {
				logger.FromContext(r.Context()).DebugContext(r.Context(), "ignoring unverified credential",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the verified claims, or nil for anonymous requests.
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey).(*Claims)
	return c
}

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.UserID
	}
	return ""
}

// RoleFromContext extracts the user role from the request context.
func RoleFromContext(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.Role
	}
	return ""
}
