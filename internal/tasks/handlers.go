package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/skillforge/backend/internal/gamification"
	"github.com/skillforge/backend/internal/generator"
	"github.com/skillforge/backend/internal/logger"
	"github.com/skillforge/backend/internal/models"
)

type QuizProcessor interface {
	ProcessQuiz(ctx context.Context, userID int64, eval models.QuizEvaluation) (*models.QuizResult, error)
}

type ProfileSource interface {
	GetOrCreate(ctx context.Context, userID int64) (*models.Profile, error)
}

type UserSource interface {
	ByID(ctx context.Context, id int64) (*models.User, error)
}

// Analyst is the language-model side of the task handlers.
type Analyst interface {
	AnalyzeProfile(ctx context.Context, user any, evaluation any) (map[string]any, error)
	GenerateProfileQuiz(ctx context.Context, pc generator.ProfileContext) ([]models.GeneratedQuestion, error)
}

// Handlers implements the profile_analysis and generate_profile_question tasks.
type Handlers struct {
	quizzes  QuizProcessor
	profiles ProfileSource
	users    UserSource
	analyst  Analyst
	log      *logger.Logger
}

// NewHandlers wires the task handlers. analyst may be nil, in which case the
// language-model steps are skipped.
func NewHandlers(quizzes QuizProcessor, profiles ProfileSource, users UserSource, analyst Analyst, log *logger.Logger) *Handlers {
	return &Handlers{
		quizzes:  quizzes,
		profiles: profiles,
		users:    users,
		analyst:  analyst,
		log:      log.With("component", "task_handlers"),
	}
}

// Register adds both task types to the pool.
func (h *Handlers) Register(p *Pool) {
	p.Register(models.TaskProfileAnalysis, h.ProfileAnalysis)
	p.Register(models.TaskProfileQuestion, h.ProfileQuestion)
}

// ProfileAnalysis folds the evaluation into the profile, then enriches the
// result with a model analysis when one is available. A failing model never
// fails the task.
func (h *Handlers) ProfileAnalysis(ctx context.Context, task *models.Task) (any, error) {
	var eval models.QuizEvaluation
	if err := json.Unmarshal(task.Payload, &eval); err != nil {
		return nil, fmt.Errorf("decode evaluation: %w", err)
	}

	result, err := h.quizzes.ProcessQuiz(ctx, task.UserID, eval)
	if err != nil {
		return nil, err
	}

	out := &models.ProfileAnalysisResult{QuizResult: result}
	if h.analyst != nil {
		learner := map[string]any{"profile": result.Profile}
		if user, err := h.users.ByID(ctx, task.UserID); err == nil {
			learner["user"] = user
		}

		analysis, err := h.analyst.AnalyzeProfile(ctx, learner, eval)
		if err != nil {
			h.log.Warn("deep analysis skipped", "task_id", task.ID, "user_id", task.UserID, "error", err)
		} else {
			merged := append(append([]string(nil), result.Recommendations...), generator.StringList(analysis, "recommendations")...)
			result.Recommendations = gamification.Dedupe(merged)
			out.LLMAnalysis = analysis
		}
	}

	result.Recommendations = gamification.CapRecommendations(result.Recommendations, gamification.MaxRecommendations)
	return out, nil
}

// ProfileQuestion asks the model for a quiz fitted to the learner and falls
// back to a single question built from the profile.
func (h *Handlers) ProfileQuestion(ctx context.Context, task *models.Task) (any, error) {
	profile, err := h.profiles.GetOrCreate(ctx, task.UserID)
	if err != nil {
		return nil, err
	}
	user, err := h.users.ByID(ctx, task.UserID)
	if err != nil {
		h.log.Warn("user lookup failed", "user_id", task.UserID, "error", err)
		user = nil
	}
	pc := generator.NewProfileContext(user, profile)

	if h.analyst != nil {
		questions, err := h.analyst.GenerateProfileQuiz(ctx, pc)
		if err == nil {
			return &models.ProfileQuestionResult{Source: "llm", Questions: questions}, nil
		}
		h.log.Warn("quiz generation failed, using fallback", "task_id", task.ID, "error", err)
	}

	q := generator.FallbackQuestion(pc)
	return &models.ProfileQuestionResult{Source: "fallback", Question: &q}, nil
}
