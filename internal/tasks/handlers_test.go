package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/skillforge/backend/internal/generator"
	"github.com/skillforge/backend/internal/logger"
	"github.com/skillforge/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuizzes struct {
	recs []string
	err  error
	got  models.QuizEvaluation
}

func (f *fakeQuizzes) ProcessQuiz(ctx context.Context, userID int64, eval models.QuizEvaluation) (*models.QuizResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.got = eval
	return &models.QuizResult{
		Profile:         &models.Profile{UserID: userID, Level: 2},
		Recommendations: append([]string(nil), f.recs...),
	}, nil
}

type fakeProfiles struct{ profile *models.Profile }

func (f *fakeProfiles) GetOrCreate(ctx context.Context, userID int64) (*models.Profile, error) {
	return f.profile, nil
}

type fakeUsers struct{ err error }

func (f *fakeUsers) ByID(ctx context.Context, id int64) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.User{ID: id, Name: "Ada Lovelace"}, nil
}

type fakeAnalyst struct {
	analysis  map[string]any
	questions []models.GeneratedQuestion
	err       error
	pc        generator.ProfileContext
}

func (f *fakeAnalyst) AnalyzeProfile(ctx context.Context, user any, evaluation any) (map[string]any, error) {
	return f.analysis, f.err
}

func (f *fakeAnalyst) GenerateProfileQuiz(ctx context.Context, pc generator.ProfileContext) ([]models.GeneratedQuestion, error) {
	f.pc = pc
	return f.questions, f.err
}

func analysisTask(t *testing.T) *models.Task {
	t.Helper()
	payload, err := json.Marshal(models.QuizEvaluation{Questions: []models.AnsweredQuestion{
		{Number: 1, Type: models.QuestionTrueFalse, UserAnswer: "True", CorrectAnswer: "True"},
	}})
	require.NoError(t, err)
	return &models.Task{ID: "t1", Type: models.TaskProfileAnalysis, UserID: 5, Payload: payload}
}

func TestProfileAnalysis_MergesModelRecommendations(t *testing.T) {
	quizzes := &fakeQuizzes{recs: []string{"Review loops", "Practice daily"}}
	analyst := &fakeAnalyst{analysis: map[string]any{
		"summary":         "steady",
		"recommendations": []any{"Practice daily", "Read the Go tour"},
	}}
	h := NewHandlers(quizzes, &fakeProfiles{}, &fakeUsers{}, analyst, logger.Nop())

	out, err := h.ProfileAnalysis(context.Background(), analysisTask(t))
	require.NoError(t, err)
	res := out.(*models.ProfileAnalysisResult)
	assert.Equal(t, []string{"Review loops", "Practice daily", "Read the Go tour"}, res.Recommendations)
	assert.Equal(t, "steady", res.LLMAnalysis["summary"])
	assert.Len(t, quizzes.got.Questions, 1)
}

func TestProfileAnalysis_CapsRecommendations(t *testing.T) {
	var extra []any
	for i := 0; i < 15; i++ {
		extra = append(extra, string(rune('a'+i)))
	}
	h := NewHandlers(&fakeQuizzes{recs: []string{"first"}}, &fakeProfiles{}, &fakeUsers{},
		&fakeAnalyst{analysis: map[string]any{"recommendations": extra}}, logger.Nop())

	out, err := h.ProfileAnalysis(context.Background(), analysisTask(t))
	require.NoError(t, err)
	res := out.(*models.ProfileAnalysisResult)
	assert.Len(t, res.Recommendations, 10)
	assert.Equal(t, "first", res.Recommendations[0])
}

func TestProfileAnalysis_ModelFailureKeepsResult(t *testing.T) {
	h := NewHandlers(&fakeQuizzes{recs: []string{"Review loops"}}, &fakeProfiles{}, &fakeUsers{err: errors.New("db down")},
		&fakeAnalyst{err: errors.New("rate limited")}, logger.Nop())

	out, err := h.ProfileAnalysis(context.Background(), analysisTask(t))
	require.NoError(t, err)
	res := out.(*models.ProfileAnalysisResult)
	assert.Equal(t, []string{"Review loops"}, res.Recommendations)
	assert.Nil(t, res.LLMAnalysis)
}

func TestProfileAnalysis_Errors(t *testing.T) {
	h := NewHandlers(&fakeQuizzes{err: errors.New("store down")}, &fakeProfiles{}, &fakeUsers{}, nil, logger.Nop())

	_, err := h.ProfileAnalysis(context.Background(), analysisTask(t))
	assert.EqualError(t, err, "store down")

	_, err = h.ProfileAnalysis(context.Background(), &models.Task{Payload: json.RawMessage(`[1,2]`)})
	assert.Error(t, err)
}

func TestProfileQuestion(t *testing.T) {
	profile := &models.Profile{UserID: 5, Level: 3, Competences: []string{"Go"}}

	t.Run("model", func(t *testing.T) {
		analyst := &fakeAnalyst{questions: []models.GeneratedQuestion{{Number: 1, QuestionText: "What is a goroutine?"}}}
		h := NewHandlers(&fakeQuizzes{}, &fakeProfiles{profile: profile}, &fakeUsers{}, analyst, logger.Nop())

		out, err := h.ProfileQuestion(context.Background(), &models.Task{UserID: 5})
		require.NoError(t, err)
		res := out.(*models.ProfileQuestionResult)
		assert.Equal(t, "llm", res.Source)
		assert.Len(t, res.Questions, 1)
		assert.Equal(t, "Ada L.", analyst.pc.Name)
		assert.Equal(t, 3, analyst.pc.Level)
	})

	t.Run("fallback", func(t *testing.T) {
		h := NewHandlers(&fakeQuizzes{}, &fakeProfiles{profile: profile}, &fakeUsers{},
			&fakeAnalyst{err: generator.ErrNoQuestions}, logger.Nop())

		out, err := h.ProfileQuestion(context.Background(), &models.Task{UserID: 5})
		require.NoError(t, err)
		res := out.(*models.ProfileQuestionResult)
		assert.Equal(t, "fallback", res.Source)
		require.NotNil(t, res.Question)
		assert.Contains(t, res.Question.QuestionText, "Go")
	})

	t.Run("no model", func(t *testing.T) {
		h := NewHandlers(&fakeQuizzes{}, &fakeProfiles{profile: profile}, &fakeUsers{}, nil, logger.Nop())

		out, err := h.ProfileQuestion(context.Background(), &models.Task{UserID: 5})
		require.NoError(t, err)
		assert.Equal(t, "fallback", out.(*models.ProfileQuestionResult).Source)
	})
}
