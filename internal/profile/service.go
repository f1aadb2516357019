package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/skillforge/backend/internal/gamification"
	"github.com/skillforge/backend/internal/logger"
	"github.com/skillforge/backend/internal/models"
)

const (
	DefaultEnergy = 5

	DefaultActivitiesLimit  = 50
	MaxActivitiesLimit      = 200
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// Activity and XP event types written by profile mutations.
const (
	ActivityBadgeEarned     = "badge_earned"
	ActivityCompetenceAdded = "competence_added"
	ActivityAchievement     = "achievement"
	EventManualGrant        = "manual_grant"
	EventActivityReward     = "activity_reward"
)

// Repository is the storage used by the profile service.
type Repository interface {
	gamification.ProfileStore
	Create(ctx context.Context, p *models.Profile) error
	Delete(ctx context.Context, userID int64) error
	Activities(ctx context.Context, userID int64, limit int) ([]models.Activity, error)
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

// Cache is the read-through cache in front of the repository.
type Cache interface {
	gamification.ChangeNotifier
	GetProfile(ctx context.Context, userID int64) (*models.Profile, bool)
	ProfileVersion(ctx context.Context, userID int64) (int64, bool)
	SetProfile(ctx context.Context, p *models.Profile, version int64)
	GetLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, bool)
	SetLeaderboard(ctx context.Context, limit int, entries []models.LeaderboardEntry)
}

type Service struct {
	repo  Repository
	cache Cache
	clock gamification.Clock
	log   *logger.Logger
}

func NewService(repo Repository, cache Cache, clock gamification.Clock, log *logger.Logger) *Service {
	return &Service{repo: repo, cache: cache, clock: clock, log: log.With("component", "profile")}
}

// ── Read ────────────────────────────────────────────────

func (s *Service) Get(ctx context.Context, userID int64) (*models.Profile, error) {
	if p, ok := s.cache.GetProfile(ctx, userID); ok {
		return p, nil
	}
	version, cacheable := s.cache.ProfileVersion(ctx, userID)
	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cacheable {
		s.cache.SetProfile(ctx, p, version)
	}
	return p, nil
}

// GetOrCreate returns the user's profile, creating one with defaults first
// if needed.
func (s *Service) GetOrCreate(ctx context.Context, userID int64) (*models.Profile, error) {
	p, err := s.Get(ctx, userID)
	if !errors.Is(err, gamification.ErrProfileNotFound) {
		return p, err
	}

	p, err = s.Create(ctx, userID, models.CreateProfileRequest{})
	if errors.Is(err, ErrProfileExists) {
		return s.Get(ctx, userID)
	}
	return p, err
}

func (s *Service) Stats(ctx context.Context, userID int64) (*models.ProgressResponse, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := gamification.BuildProgress(p)
	return &view, nil
}

func (s *Service) Activities(ctx context.Context, userID int64, limit int) ([]models.Activity, error) {
	if limit < 1 || limit > MaxActivitiesLimit {
		return nil, fmt.Errorf("%w: activities limit must be between 1 and %d", ErrInvalidLimit, MaxActivitiesLimit)
	}
	return s.repo.Activities(ctx, userID, limit)
}

func (s *Service) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit < 1 || limit > MaxLeaderboardLimit {
		return nil, fmt.Errorf("%w: leaderboard limit must be between 1 and %d", ErrInvalidLimit, MaxLeaderboardLimit)
	}
	if entries, ok := s.cache.GetLeaderboard(ctx, limit); ok {
		return entries, nil
	}
	entries, err := s.repo.Leaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}
	s.cache.SetLeaderboard(ctx, limit, entries)
	return entries, nil
}

// ── Create / Delete ─────────────────────────────────────

func (s *Service) Create(ctx context.Context, userID int64, req models.CreateProfileRequest) (*models.Profile, error) {
	now := s.clock.Now()
	p := &models.Profile{
		UserID:           userID,
		Level:            1,
		Badges:           []string{},
		Competences:      nonNilStrings(req.Competences),
		Preferences:      nonNilMap(req.Preferences),
		Objectives:       req.Objectives,
		Motivation:       req.Motivation,
		Energy:           DefaultEnergy,
		Recommendations:  []string{},
		DetailedAnalysis: []models.AnalysisEntry{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if req.Energy != nil {
		p.Energy = *req.Energy
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.cache.ProfileChanged(ctx, userID, true)
	s.log.Info("profile created", "user_id", userID)
	return p, nil
}

func (s *Service) Delete(ctx context.Context, userID int64) error {
	if err := s.repo.Delete(ctx, userID); err != nil {
		return err
	}
	s.cache.ProfileChanged(ctx, userID, true)
	s.log.Info("profile deleted", "user_id", userID)
	return nil
}

// ── Mutations ───────────────────────────────────────────

// Update applies the free-form fields present in req.
func (s *Service) Update(ctx context.Context, userID int64, req models.UpdateProfileRequest) (*models.Profile, error) {
	return s.mutate(ctx, userID, false, func(p *models.Profile) (*models.ProfileUpdate, error) {
		return &models.ProfileUpdate{
			Competences:     req.Competences,
			Preferences:     req.Preferences,
			Objectives:      req.Objectives,
			Motivation:      req.Motivation,
			Energy:          req.Energy,
			Recommendations: req.Recommendations,
		}, nil
	})
}

// AddXP grants n XP. The level is recomputed from the new total.
func (s *Service) AddXP(ctx context.Context, userID int64, n int) (*models.Profile, error) {
	if n <= 0 {
		return nil, ErrInvalidXP
	}
	return s.mutate(ctx, userID, true, func(p *models.Profile) (*models.ProfileUpdate, error) {
		upd := &models.ProfileUpdate{}
		s.grantXP(p, upd, n, EventManualGrant, nil)
		return upd, nil
	})
}

// AddBadge appends badge to the profile's set if it is not there yet.
func (s *Service) AddBadge(ctx context.Context, userID int64, badge string) (*models.Profile, error) {
	return s.mutate(ctx, userID, false, func(p *models.Profile) (*models.ProfileUpdate, error) {
		if p.HasBadge(badge) {
			return nil, nil
		}
		return &models.ProfileUpdate{
			Badges:   append(append([]string(nil), p.Badges...), badge),
			Activity: s.activity(userID, ActivityBadgeEarned, map[string]any{"badge": badge}),
		}, nil
	})
}

func (s *Service) AddCompetence(ctx context.Context, userID int64, competence string) (*models.Profile, error) {
	return s.mutate(ctx, userID, false, func(p *models.Profile) (*models.ProfileUpdate, error) {
		for _, c := range p.Competences {
			if c == competence {
				return nil, nil
			}
		}
		return &models.ProfileUpdate{
			Competences: append(append([]string(nil), p.Competences...), competence),
			Activity:    s.activity(userID, ActivityCompetenceAdded, map[string]any{"competence": competence}),
		}, nil
	})
}

func (s *Service) SetPreferences(ctx context.Context, userID int64, prefs map[string]any) (*models.Profile, error) {
	return s.mutate(ctx, userID, false, func(p *models.Profile) (*models.ProfileUpdate, error) {
		return &models.ProfileUpdate{Preferences: nonNilMap(prefs)}, nil
	})
}

// LogActivity records an activity and grants xpReward XP when positive.
func (s *Service) LogActivity(ctx context.Context, userID int64, activityType string, xpReward int) (*models.Profile, error) {
	return s.mutate(ctx, userID, xpReward > 0, func(p *models.Profile) (*models.ProfileUpdate, error) {
		upd := &models.ProfileUpdate{
			Activity: s.activity(userID, activityType, map[string]any{"xp_reward": xpReward}),
		}
		if xpReward > 0 {
			s.grantXP(p, upd, xpReward, EventActivityReward, map[string]any{"activity_type": activityType})
		}
		return upd, nil
	})
}

// AddAchievement logs an achievement and, when badge is set, appends it.
func (s *Service) AddAchievement(ctx context.Context, userID int64, achievement, badge string) (*models.Profile, error) {
	return s.mutate(ctx, userID, false, func(p *models.Profile) (*models.ProfileUpdate, error) {
		details := map[string]any{"achievement": achievement}
		upd := &models.ProfileUpdate{}
		if badge != "" {
			details["badge"] = badge
			if !p.HasBadge(badge) {
				upd.Badges = append(append([]string(nil), p.Badges...), badge)
			}
		}
		upd.Activity = s.activity(userID, ActivityAchievement, details)
		return upd, nil
	})
}

// ── Helpers ─────────────────────────────────────────────

func (s *Service) mutate(ctx context.Context, userID int64, xpChanged bool, fn func(p *models.Profile) (*models.ProfileUpdate, error)) (*models.Profile, error) {
	p, err := s.repo.Transact(ctx, userID, fn)
	if err != nil {
		if errors.Is(err, gamification.ErrPersistence) {
			s.log.Error("profile update failed", "user_id", userID, "error", err)
		}
		return nil, err
	}
	s.cache.ProfileChanged(ctx, userID, xpChanged)
	return p, nil
}

func (s *Service) grantXP(p *models.Profile, upd *models.ProfileUpdate, n int, eventType string, metadata map[string]any) {
	xp := p.XP + int64(n)
	total := p.TotalXPEarned + int64(n)
	level := gamification.LevelForXP(xp)
	stats := p.Statistics
	stats.TotalXPEarned = total

	upd.XP = &xp
	upd.TotalXPEarned = &total
	upd.Level = &level
	upd.Statistics = &stats
	upd.XPEvent = &models.XPEvent{
		UserID:    p.UserID,
		EventType: eventType,
		XPAmount:  n,
		Metadata:  metadata,
		CreatedAt: s.clock.Now(),
	}
}

func (s *Service) activity(userID int64, activityType string, details map[string]any) *models.Activity {
	return &models.Activity{
		UserID:    userID,
		Type:      activityType,
		Details:   details,
		CreatedAt: s.clock.Now(),
	}
}
