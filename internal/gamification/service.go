package gamification

import (
	"context"
	"errors"
	"fmt"

	"github.com/skillforge/backend/internal/logger"
	"github.com/skillforge/backend/internal/models"
)

// ProfileStore is the persistence boundary of the orchestrator.
type ProfileStore interface {
	// Get returns ErrProfileNotFound when the user has no profile.
	Get(ctx context.Context, userID int64) (*models.Profile, error)
	// Transact loads the profile under a per-user lock, calls fn and applies
	// the returned update atomically. A nil update writes nothing; an update
	// without column changes writes only its side records.
	// Errors from fn are returned unchanged; storage errors wrap ErrPersistence.
	Transact(ctx context.Context, userID int64, fn func(p *models.Profile) (*models.ProfileUpdate, error)) (*models.Profile, error)
}

// ChangeNotifier is told after a profile was written, e.g. to drop caches.
type ChangeNotifier interface {
	ProfileChanged(ctx context.Context, userID int64, xpChanged bool)
}

// MaxRecommendations caps the recommendation list handed back to callers.
const MaxRecommendations = 10

type Service struct {
	store    ProfileStore
	catalog  *Catalog
	clock    Clock
	notifier ChangeNotifier
	log      *logger.Logger
}

func NewService(store ProfileStore, catalog *Catalog, clock Clock, notifier ChangeNotifier, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		catalog:  catalog,
		clock:    clock,
		notifier: notifier,
		log:      log.With("component", "gamification"),
	}
}

func (s *Service) Catalog() *Catalog { return s.catalog }

// ProcessQuiz scores an evaluation and folds it into the user's profile in
// one atomic update. On error the profile is left untouched.
func (s *Service) ProcessQuiz(ctx context.Context, userID int64, eval models.QuizEvaluation) (*models.QuizResult, error) {
	if err := ValidateEvaluation(eval); err != nil {
		return nil, err
	}

	scored, correct := ScoreQuestions(eval.Questions)
	in := QuizInput{
		Scored:           scored,
		Correct:          correct,
		TimeTakenSeconds: eval.TimeTakenSeconds,
		CompletedAt:      s.clock.Now(),
	}
	progression := Progression{Catalog: s.catalog}

	var result *models.QuizResult
	updated, err := s.store.Transact(ctx, userID, func(p *models.Profile) (*models.ProfileUpdate, error) {
		var upd *models.ProfileUpdate
		result, upd = progression.Apply(p, in)
		return upd, nil
	})
	if err != nil {
		if !errors.Is(err, ErrProfileNotFound) {
			s.log.Error("quiz progression failed", "user_id", userID, "error", err)
		}
		return nil, fmt.Errorf("process quiz: %w", err)
	}

	result.Profile = updated
	s.notify(ctx, userID, true)

	s.log.Info("quiz processed",
		"user_id", userID,
		"score", result.QuizSummary.Score,
		"xp", result.XPEarned.TotalXP+result.BadgeXP,
		"level", result.NewLevel,
		"level_up", result.LevelUp,
		"badges", result.BadgesEarned,
	)
	return result, nil
}

// Progress returns the level/XP display view for a user.
func (s *Service) Progress(ctx context.Context, userID int64) (*models.ProgressResponse, error) {
	p, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := BuildProgress(p)
	return &view, nil
}

// BadgeCatalog lists every catalog badge with the user's earned flag.
func (s *Service) BadgeCatalog(ctx context.Context, userID int64) ([]BadgeView, error) {
	p, err := s.store.Get(ctx, userID)
	if err != nil && !errors.Is(err, ErrProfileNotFound) {
		return nil, err
	}
	return s.catalog.CatalogView(p), nil
}

func (s *Service) notify(ctx context.Context, userID int64, xpChanged bool) {
	if s.notifier != nil {
		s.notifier.ProfileChanged(ctx, userID, xpChanged)
	}
}
