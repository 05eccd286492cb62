package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"prime-nature-nuts/logger"
)

type contextKey string

const adminEmailKey contextKey = "adminEmail"

// AdminClaims are the claims of an access token issued by the identity provider
type AdminClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

var (
	errMissingToken = errors.New("missing bearer token")
	errNoEmail      = errors.New("token has no email claim")
)

// Auth verifies admin bearer tokens
type Auth struct {
	secret  []byte
	allowed map[string]bool
}

// NewAuth creates an HS256 verifier. An empty allowlist admits any signed-in user.
func NewAuth(secret string, allowedEmails []string) *Auth {
	a := &Auth{secret: []byte(secret), allowed: make(map[string]bool, len(allowedEmails))}
	for _, email := range allowedEmails {
		a.allowed[strings.ToLower(email)] = true
	}
	return a
}

// Verify parses the token and returns the admin email
func (a *Auth) Verify(tokenString string) (string, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", jwt.ErrTokenInvalidClaims
	}
	if claims.Email == "" {
		return "", errNoEmail
	}
	return strings.ToLower(claims.Email), nil
}

// Require rejects requests without a valid admin token
func (a *Auth) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err == nil {
			var email string
			email, err = a.Verify(tokenString)
			if err == nil {
				if len(a.allowed) > 0 && !a.allowed[email] {
					logger.Get().Warn("⚠️  Admin access denied", zap.String("email", email))
					writeAuthError(w, http.StatusForbidden, "not an admin")
					return
				}
				next.ServeHTTP(w, r.WithContext(WithAdminEmail(r.Context(), email)))
				return
			}
		}
		logger.Get().Info("🔒 Rejected admin request", zap.String("path", r.URL.Path), zap.Error(err))
		writeAuthError(w, http.StatusUnauthorized, "unauthorized")
	})
}

// WithAdminEmail stores the signed-in admin's email in ctx
func WithAdminEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, adminEmailKey, email)
}

// AdminEmail returns the signed-in admin's email, or "" outside Require
func AdminEmail(ctx context.Context) string {
	email, _ := ctx.Value(adminEmailKey).(string)
	return email
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errMissingToken
	}
	return strings.TrimSpace(token), nil
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg, "kind": "unauthorized"})
}
