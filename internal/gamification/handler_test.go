package gamification

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/skillforge/backend/internal/middleware"
	"github.com/skillforge/backend/internal/models"
	"github.com/skillforge/backend/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(store *memStore) *Handler {
	svc, _ := newTestService(store, DefaultCatalog(), &FixedClock{T: afternoon})
	return NewHandler(svc, validate.NewValidator())
}

func authed(r *http.Request, userID int64) *http.Request {
	return r.WithContext(middleware.WithUserID(r.Context(), userID))
}

func TestSubmitQuiz(t *testing.T) {
	h := newTestHandler(newMemStore(newProfile(1)))

	body, _ := json.Marshal(quiz(10, 10, "Python"))
	req := authed(httptest.NewRequest("POST", "/api/v1/gamification/quiz", bytes.NewReader(body)), 1)
	rec := httptest.NewRecorder()
	h.SubmitQuiz(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res models.QuizResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 500, res.XPEarned.TotalXP)
	assert.True(t, res.QuizSummary.IsPerfect)
	assert.LessOrEqual(t, len(res.Recommendations), MaxRecommendations)
	assert.Equal(t, int64(750), res.Profile.XP)
}

func TestSubmitQuiz_Errors(t *testing.T) {
	h := newTestHandler(newMemStore(newProfile(1)))

	tests := []struct {
		name     string
		userID   int64
		body     string
		wantCode int
		wantErr  string
	}{
		{"malformed json", 1, "{", http.StatusBadRequest, models.CodeValidation},
		{"no questions", 1, `{"questions":[]}`, http.StatusBadRequest, models.CodeInvalidEvaluation},
		{"questions missing", 1, `{}`, http.StatusBadRequest, models.CodeInvalidEvaluation},
		{"bad type", 1, `{"questions":[{"number":1,"type":"Essay"}]}`, http.StatusBadRequest, models.CodeValidation},
		{"unknown profile", 7, `{"questions":[{"number":1,"type":"TrueFalse","user_answer":"True","correct_answer":"True"}]}`, http.StatusNotFound, models.CodeProfileNotFound},
	}

	for _, tt := range tests {
		req := authed(httptest.NewRequest("POST", "/api/v1/gamification/quiz", bytes.NewBufferString(tt.body)), tt.userID)
		rec := httptest.NewRecorder()
		h.SubmitQuiz(rec, req)

		assert.Equal(t, tt.wantCode, rec.Code, tt.name)
		var body models.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), tt.name)
		assert.Equal(t, tt.wantErr, body.Code, tt.name)
	}
}

func TestSubmitQuiz_RequiresAuth(t *testing.T) {
	h := newTestHandler(newMemStore())
	rec := httptest.NewRecorder()
	h.SubmitQuiz(rec, httptest.NewRequest("POST", "/api/v1/gamification/quiz", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetProgressAndBadges(t *testing.T) {
	p := newProfile(1)
	p.XP = 400
	p.Level = 3
	p.Badges = []string{"first_quiz"}
	h := newTestHandler(newMemStore(p))

	rec := httptest.NewRecorder()
	h.GetProgress(rec, authed(httptest.NewRequest("GET", "/api/v1/gamification/progress", nil), 1))
	require.Equal(t, http.StatusOK, rec.Code)
	var prog models.ProgressResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prog))
	assert.Equal(t, 3, prog.Level)
	assert.Equal(t, int64(0), prog.XPIntoLevel)
	assert.Equal(t, int64(500), prog.XPForNextLevel)

	rec = httptest.NewRecorder()
	h.ListBadges(rec, authed(httptest.NewRequest("GET", "/api/v1/gamification/badges", nil), 1))
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Badges []BadgeView `json:"badges"`
		Total  int         `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 17, out.Total)
	assert.True(t, out.Badges[12].Earned)
	assert.Equal(t, "first_quiz", out.Badges[12].ID)
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrInvalidEvaluation, http.StatusBadRequest},
		{validate.NewFieldsError(map[string]string{"x": "y"}), http.StatusBadRequest},
		{ErrProfileNotFound, http.StatusNotFound},
		{ErrPersistence, http.StatusServiceUnavailable},
		{assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		got, _ := StatusForError(tt.err)
		if got != tt.want {
			t.Errorf("StatusForError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
