package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/skillforge/backend/internal/database"
	"github.com/skillforge/backend/internal/logger"
	"github.com/skillforge/backend/internal/middleware"
	"github.com/skillforge/backend/internal/models"
	"github.com/skillforge/backend/internal/validate"
	"golang.org/x/crypto/bcrypt"
)

const (
	usernameAttempts = 5

	defaultUsersLimit = 50
	maxUsersLimit     = 100
)

// Revoker blocks a token id until the token would have expired anyway.
type Revoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// TokenTTLs are the lifetimes of issued access and refresh tokens.
type TokenTTLs struct {
	Access  time.Duration
	Refresh time.Duration
}

type Handler struct {
	users     *Store
	secret    []byte
	ttls      TokenTTLs
	revoker   Revoker
	validator *validate.Validator
	log       *logger.Logger
}

func NewHandler(users *Store, secret []byte, ttls TokenTTLs, revoker Revoker, validator *validate.Validator, log *logger.Logger) *Handler {
	return &Handler{
		users:     users,
		secret:    secret,
		ttls:      ttls,
		revoker:   revoker,
		validator: validator,
		log:       log.With("component", "auth"),
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		writeValidationError(w, err)
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error", Code: models.CodeInternal})
		return
	}

	// Retry with a fresh username on collision
	var user *models.User
	for attempt := 0; attempt < usernameAttempts; attempt++ {
		user, err = h.users.Create(r.Context(), req.Email, req.Name, database.GenerateUsername(req.Name), string(hashedPassword))
		if !errors.Is(err, errUsernameTaken) {
			break
		}
	}

	switch {
	case errors.Is(err, ErrEmailTaken):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "An account with this email already exists", Code: models.CodeConflict})
		return
	case err != nil:
		h.log.Error("register failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to create account", Code: models.CodeInternal})
		return
	}

	h.writeToken(w, http.StatusCreated, *user)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		writeValidationError(w, err)
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	user, err := h.users.ByEmail(r.Context(), req.Email)
	if errors.Is(err, ErrUserNotFound) {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid email or password", Code: models.CodeUnauthorized})
		return
	}
	if err != nil {
		h.log.Error("login lookup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error", Code: models.CodeInternal})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid email or password", Code: models.CodeUnauthorized})
		return
	}

	h.writeToken(w, http.StatusOK, *user)
}

// Refresh exchanges a refresh token for a new token pair. The presented
// refresh token is revoked, so each one works once.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		writeValidationError(w, err)
		return
	}

	claims, err := middleware.ParseToken(h.secret, req.RefreshToken)
	if err != nil || !claims.Refresh {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid or expired refresh token", Code: models.CodeUnauthorized})
		return
	}

	revoked, err := h.revoker.IsRevoked(r.Context(), claims.ID)
	if err != nil {
		h.log.Error("refresh revocation check failed", "user_id", claims.UserID, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, models.ErrorResponse{Error: "Could not refresh, please retry", Code: models.CodeInternal})
		return
	}
	if revoked {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Refresh token has been revoked", Code: models.CodeUnauthorized})
		return
	}

	user, err := h.users.ByID(r.Context(), claims.UserID)
	if errors.Is(err, ErrUserNotFound) {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid or expired refresh token", Code: models.CodeUnauthorized})
		return
	}
	if err != nil {
		h.log.Error("refresh user lookup failed", "user_id", claims.UserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error", Code: models.CodeInternal})
		return
	}

	if err := h.revoke(r.Context(), claims); err != nil {
		h.log.Error("refresh token rotation failed", "user_id", claims.UserID, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, models.ErrorResponse{Error: "Could not refresh, please retry", Code: models.CodeInternal})
		return
	}

	h.writeToken(w, http.StatusOK, *user)
}

// Logout revokes the token that authenticated the request, and the refresh
// token from the body when one of the caller's is given.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.TokenClaims(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required", Code: models.CodeUnauthorized})
		return
	}

	toRevoke := []*middleware.Claims{claims}
	var req models.LogoutRequest
	if r.Body != nil && json.NewDecoder(r.Body).Decode(&req) == nil && req.RefreshToken != "" {
		rc, err := middleware.ParseToken(h.secret, req.RefreshToken)
		if err == nil && rc.Refresh && rc.UserID == claims.UserID {
			toRevoke = append(toRevoke, rc)
		}
	}

	for _, c := range toRevoke {
		if err := h.revoke(r.Context(), c); err != nil {
			h.log.Error("token revocation failed", "user_id", claims.UserID, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, models.ErrorResponse{Error: "Could not log out, please retry", Code: models.CodeInternal})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// revoke blocks c's jti for the rest of its lifetime.
func (h *Handler) revoke(ctx context.Context, c *middleware.Claims) error {
	var ttl time.Duration
	if c.ExpiresAt != nil {
		ttl = time.Until(c.ExpiresAt.Time)
	}
	return h.revoker.Revoke(ctx, c.ID, ttl)
}

func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required", Code: models.CodeUnauthorized})
		return
	}

	user, err := h.users.ByID(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "User not found", Code: models.CodeNotFound})
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// ── Users ───────────────────────────────────────────────

// ListUsers returns public user views, paged by ?limit= and ?offset=.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", defaultUsersLimit)
	if !ok || limit < 1 || limit > maxUsersLimit {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "limit must be between 1 and 100", Code: models.CodeValidation})
		return
	}
	offset, ok := queryInt(r, "offset", 0)
	if !ok || offset < 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "offset must not be negative", Code: models.CodeValidation})
		return
	}

	users, err := h.users.List(r.Context(), limit, offset)
	if err != nil {
		h.log.Error("list users failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error", Code: models.CodeInternal})
		return
	}

	out := make([]models.PublicUser, len(users))
	for i, u := range users {
		out[i] = u.Public()
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id < 1 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid user id", Code: models.CodeValidation})
		return
	}

	user, err := h.users.ByID(r.Context(), id)
	if errors.Is(err, ErrUserNotFound) {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "User not found", Code: models.CodeNotFound})
		return
	}
	if err != nil {
		h.log.Error("get user failed", "user_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error", Code: models.CodeInternal})
		return
	}

	writeJSON(w, http.StatusOK, user.Public())
}

func queryInt(r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	return n, err == nil
}

// ── Tokens ──────────────────────────────────────────────

// GenerateToken signs an HS256 access token for userID with a fresh jti.
func GenerateToken(secret []byte, userID int64, ttl time.Duration, now time.Time) (string, time.Time, error) {
	return signToken(secret, userID, ttl, now, false)
}

// GenerateRefreshToken signs a token accepted only by Refresh.
func GenerateRefreshToken(secret []byte, userID int64, ttl time.Duration, now time.Time) (string, time.Time, error) {
	return signToken(secret, userID, ttl, now, true)
}

func signToken(secret []byte, userID int64, ttl time.Duration, now time.Time, refresh bool) (string, time.Time, error) {
	expiresAt := now.Add(ttl)
	claims := middleware.Claims{
		UserID:  userID,
		Refresh: refresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	return signed, expiresAt, err
}

func (h *Handler) writeToken(w http.ResponseWriter, status int, user models.User) {
	now := time.Now()
	token, expiresAt, err := GenerateToken(h.secret, user.ID, h.ttls.Access, now)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to generate token", Code: models.CodeInternal})
		return
	}
	refresh, refreshExpiresAt, err := GenerateRefreshToken(h.secret, user.ID, h.ttls.Refresh, now)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to generate token", Code: models.CodeInternal})
		return
	}

	user.Password = ""
	writeJSON(w, status, models.AuthResponse{
		Token:            token,
		ExpiresAt:        expiresAt,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExpiresAt,
		User:             user,
	})
}

func writeValidationError(w http.ResponseWriter, err error) {
	var fe *validate.FieldsError
	if errors.As(err, &fe) {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Validation failed", Code: models.CodeValidation, Fields: fe.Fields})
		return
	}
	writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body", Code: models.CodeValidation})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
