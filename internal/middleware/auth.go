package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/skillforge/backend/internal/logger"
	"github.com/skillforge/backend/internal/models"
)

// Claims are the JWT claims issued at login. ID carries the jti used for
// revocation. Refresh marks a token that may only be exchanged at
// /auth/refresh.
type Claims struct {
	UserID  int64 `json:"user_id"`
	Refresh bool  `json:"refresh,omitempty"`
	jwt.RegisteredClaims
}

// RevocationList reports whether a token id was revoked by logout.
type RevocationList interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type Auth struct {
	secret  []byte
	revoked RevocationList
	log     *logger.Logger
}

func NewAuth(secret []byte, revoked RevocationList, log *logger.Logger) *Auth {
	return &Auth{secret: secret, revoked: revoked, log: log.With("component", "auth_middleware")}
}

// ParseToken verifies an HS256 token and returns its claims.
func ParseToken(secret []byte, raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Middleware requires a valid, unrevoked bearer token and stores the user id
// and claims on the request context.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			unauthorized(w, "Authentication required")
			return
		}

		claims, err := ParseToken(a.secret, raw)
		if err != nil {
			unauthorized(w, "Invalid or expired token")
			return
		}
		if claims.Refresh {
			unauthorized(w, "Refresh tokens cannot be used for API access")
			return
		}

		if a.revoked != nil && claims.ID != "" {
			revoked, err := a.revoked.IsRevoked(r.Context(), claims.ID)
			if err != nil {
				a.log.Warn("revocation check failed", "error", err)
			}
			if revoked {
				unauthorized(w, "Token has been revoked")
				return
			}
		}

		ctx := WithUserID(r.Context(), claims.UserID)
		ctx = context.WithValue(ctx, claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TokenClaims returns the claims stored by Middleware.
func TokenClaims(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: msg, Code: models.CodeUnauthorized})
}
