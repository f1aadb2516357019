package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/skillforge/backend/internal/gamification"
	"github.com/skillforge/backend/internal/middleware"
	"github.com/skillforge/backend/internal/models"
	"github.com/skillforge/backend/internal/validate"
)

type Handler struct {
	service   *Service
	validator *validate.Validator
}

func NewHandler(service *Service, validator *validate.Validator) *Handler {
	return &Handler{service: service, validator: validator}
}

// ── Profile ─────────────────────────────────────────────

func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.CreateProfileRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	p, err := h.service.GetOrCreate(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.UpdateProfileRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.service.Update(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Profile deleted"})
}

// ── Progression ─────────────────────────────────────────

func (h *Handler) AddXP(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.XPRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.service.AddXP(r.Context(), userID, req.XPPoints)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) AddBadge(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.BadgeRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.service.AddBadge(r.Context(), userID, req.Badge)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) AddCompetence(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.CompetenceRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.service.AddCompetence(r.Context(), userID, req.Competence)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) SetPreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.PreferencesRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.service.SetPreferences(r.Context(), userID, req.Preferences)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) LogActivity(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.ActivityRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.service.LogActivity(r.Context(), userID, req.ActivityType, req.XPReward)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) AddAchievement(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.AchievementRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.service.AddAchievement(r.Context(), userID, req.Achievement, req.Badge)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ── Views ───────────────────────────────────────────────

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	stats, err := h.service.Stats(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) ListActivities(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	limit, err := parseLimit(r, DefaultActivitiesLimit)
	if err != nil {
		writeError(w, err)
		return
	}

	activities, err := h.service.Activities(r.Context(), userID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ActivitiesResponse{Activities: activities, TotalActivities: len(activities)})
}

func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, DefaultLeaderboardLimit)
	if err != nil {
		writeError(w, err)
		return
	}

	entries, err := h.service.Leaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.LeaderboardResponse{Leaderboard: entries, TotalResults: len(entries)})
}

// ── Helpers ─────────────────────────────────────────────

func requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required", Code: models.CodeUnauthorized})
	}
	return userID, ok
}

func parseLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidLimit, raw)
	}
	return n, nil
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrProfileExists):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "Profile already exists", Code: models.CodeConflict})
	case errors.Is(err, ErrInvalidXP), errors.Is(err, ErrInvalidLimit):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error(), Code: models.CodeValidation})
	default:
		status, body := gamification.StatusForError(err)
		writeJSON(w, status, body)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
