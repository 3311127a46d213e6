// Package auth issues and validates the admin JWT protecting the history
// and corpus-management endpoints.
package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// DefaultSecret is the placeholder used when ADMIN_JWT_SECRET is unset.
// Startup logs whether it is still in effect.
const DefaultSecret = "change-this-secret"

const tokenIssuer = "portico"

type contextKey string

const subjectContextKey contextKey = "subject"

// Config holds admin authentication settings.
type Config struct {
	JWTSecret         string
	AdminPassword     string
	AdminPasswordHash string // bcrypt; takes precedence over AdminPassword
	TokenDuration     time.Duration
}

// LoadConfigFromEnv reads auth settings from the environment. Set
// ADMIN_PASSWORD_HASH (bcrypt) in production; ADMIN_PASSWORD is the
// development fallback.
func LoadConfigFromEnv() Config {
	cfg := Config{
		JWTSecret:         os.Getenv("ADMIN_JWT_SECRET"),
		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		TokenDuration:     24 * time.Hour,
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = DefaultSecret
	}
	if cfg.AdminPassword == "" && cfg.AdminPasswordHash == "" {
		cfg.AdminPassword = "admin"
	}
	if ttl := os.Getenv("AUTH_TOKEN_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil && d > 0 {
			cfg.TokenDuration = d
		}
	}

	return cfg
}

// VerifyPassword checks a login attempt against the configured credential.
func VerifyPassword(cfg Config, password string) bool {
	if cfg.AdminPasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(cfg.AdminPasswordHash), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(cfg.AdminPassword), []byte(password)) == 1
}

// HashPassword produces a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	raw, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(raw), err
}

// GenerateToken issues a signed JWT for the given subject.
func GenerateToken(cfg Config, subject string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TokenDuration)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ValidateToken verifies signature, expiry and issuer, returning the
// token's subject.
func ValidateToken(cfg Config, tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(cfg.JWTSecret), nil
		},
		jwt.WithIssuer(tokenIssuer),
	)
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	return claims.Subject, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// token subject in the request context.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			token, ok := bearerToken(r)
			if !ok {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			subject, err := ValidateToken(cfg, token)
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), subjectContextKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SubjectFromContext returns the authenticated subject, if any.
func SubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(subjectContextKey).(string)
	return subject, ok
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}
