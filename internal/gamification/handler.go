package gamification

import (
	"encoding/json"
	"errors"
	"net/http"

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

// ── Quiz ────────────────────────────────────────────────

func (h *Handler) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required", Code: models.CodeUnauthorized})
		return
	}

	var eval models.QuizEvaluation
	if err := h.validator.DecodeAndValidate(r, &eval); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.service.ProcessQuiz(r.Context(), userID, eval)
	if err != nil {
		writeError(w, err)
		return
	}

	result.Recommendations = CapRecommendations(result.Recommendations, MaxRecommendations)
	writeJSON(w, http.StatusOK, result)
}

// ── Catalog & Progress ──────────────────────────────────

func (h *Handler) ListBadges(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required", Code: models.CodeUnauthorized})
		return
	}

	badges, err := h.service.BadgeCatalog(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"badges": badges, "total": len(badges)})
}

func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required", Code: models.CodeUnauthorized})
		return
	}

	resp, err := h.service.Progress(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ── Helpers ─────────────────────────────────────────────

// StatusForError maps domain and validation errors onto an HTTP status and
// error body.
func StatusForError(err error) (int, models.ErrorResponse) {
	var fe *validate.FieldsError
	switch {
	case errors.As(err, &fe):
		return http.StatusBadRequest, models.ErrorResponse{Error: "Validation failed", Code: models.CodeValidation, Fields: fe.Fields}
	case errors.Is(err, validate.ErrInvalidBody):
		return http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body", Code: models.CodeValidation}
	case errors.Is(err, ErrInvalidEvaluation):
		return http.StatusBadRequest, models.ErrorResponse{Error: err.Error(), Code: models.CodeInvalidEvaluation}
	case errors.Is(err, ErrProfileNotFound):
		return http.StatusNotFound, models.ErrorResponse{Error: "Profile not found", Code: models.CodeProfileNotFound}
	case errors.Is(err, ErrPersistence):
		return http.StatusServiceUnavailable, models.ErrorResponse{Error: "Could not save profile, please retry", Code: models.CodePersistenceFailure}
	}
	return http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error", Code: models.CodeInternal}
}

func writeError(w http.ResponseWriter, err error) {
	status, body := StatusForError(err)
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
