package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	apperrors "hospiq/pkg/errors"
	httputil "hospiq/pkg/http"
	"hospiq/pkg/logger"
)

const (
	RoleAdmin   = "admin"
	RoleStaff   = "staff"
	RolePatient = "patient"
)

// User is the authenticated identity attached to the request context.
// Token issuance lives in a separate identity service; this package
// only verifies.
type User struct {
	ID   string
	Role string
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u User) IsStaff() bool {
	return u.Role == RoleStaff || u.Role == RoleAdmin
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type contextKey string

const userKey contextKey = "auth_user"

func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userKey).(User)
	return u, ok
}

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// ParseToken verifies an HS256 bearer token and extracts the user.
func ParseToken(tokenString, secret string) (User, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return User{}, apperrors.Unauthorized("Invalid or expired token")
	}
	if claims.Subject == "" {
		return User{}, apperrors.Unauthorized("Token is missing a subject")
	}

	role := claims.Role
	if role == "" {
		role = RolePatient
	}

	return User{ID: claims.Subject, Role: role}, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				_ = httputil.WriteError(w, apperrors.Unauthorized("Missing bearer token"))
				return
			}

			user, err := ParseToken(token, secret)
			if err != nil {
				log.Warn("Rejected request with invalid token",
					"path", r.URL.Path,
					"error", err,
				)
				_ = httputil.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// OptionalAuth attaches the user when a valid token is present but lets
// anonymous requests through. Handlers decide what anonymity may see.
func OptionalAuth(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := bearerToken(r); token != "" {
				if user, err := ParseToken(token, secret); err == nil {
					r = r.WithContext(WithUser(r.Context(), user))
				} else {
					log.Debug("Ignoring invalid bearer token on optional-auth route",
						"path", r.URL.Path,
					)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserKeyExtractor keys rate limiting by authenticated user id, falling
// back to the remote address.
func UserKeyExtractor(r *http.Request) string {
	if user, ok := UserFromContext(r.Context()); ok {
		return user.ID
	}
	return r.RemoteAddr
}
