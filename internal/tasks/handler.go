package tasks

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/skillforge/backend/internal/gamification"
	"github.com/skillforge/backend/internal/middleware"
	"github.com/skillforge/backend/internal/models"
	"github.com/skillforge/backend/internal/validate"
)

// Handler is the HTTP surface of the task queue.
type Handler struct {
	broker    *Broker
	validator *validate.Validator
}

func NewHandler(broker *Broker, validator *validate.Validator) *Handler {
	return &Handler{broker: broker, validator: validator}
}

func (h *Handler) EnqueueProfileAnalysis(w http.ResponseWriter, r *http.Request) {
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
	if err := gamification.ValidateEvaluation(eval); err != nil {
		writeError(w, err)
		return
	}

	h.enqueue(w, r, models.TaskProfileAnalysis, userID, eval)
}

func (h *Handler) EnqueueProfileQuestion(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required", Code: models.CodeUnauthorized})
		return
	}

	h.enqueue(w, r, models.TaskProfileQuestion, userID, nil)
}

// GetTask returns the status and result of one of the caller's tasks.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required", Code: models.CodeUnauthorized})
		return
	}

	tr, err := h.broker.Result(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, ErrTaskNotFound) || (err == nil && tr.UserID != userID) {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Task not found", Code: models.CodeNotFound})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, models.ErrorResponse{Error: "Task store unavailable", Code: models.CodeInternal})
		return
	}

	writeJSON(w, http.StatusOK, tr)
}

func (h *Handler) enqueue(w http.ResponseWriter, r *http.Request, taskType string, userID int64, payload any) {
	task, err := h.broker.Enqueue(r.Context(), taskType, userID, payload)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, models.ErrorResponse{Error: "Could not queue task, please retry", Code: models.CodeInternal})
		return
	}
	writeJSON(w, http.StatusAccepted, models.TaskAcceptedResponse{TaskID: task.ID, Status: models.TaskPending})
}

func writeError(w http.ResponseWriter, err error) {
	status, body := gamification.StatusForError(err)
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
