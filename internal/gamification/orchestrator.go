package gamification

import (
	"fmt"
	"time"

	"github.com/skillforge/backend/internal/models"
)

const (
	ActivityQuizCompleted = "quiz_completed"
	EventQuizCompleted    = "quiz_completed"

	maxFocusNotes = 2
)

// ValidateEvaluation rejects evaluations the orchestrator cannot score.
func ValidateEvaluation(eval models.QuizEvaluation) error {
	if len(eval.Questions) == 0 {
		return fmt.Errorf("%w: no questions", ErrInvalidEvaluation)
	}
	for i, q := range eval.Questions {
		if !models.ValidQuestionTypes[q.Type] {
			return fmt.Errorf("%w: question %d has unknown type %q", ErrInvalidEvaluation, i+1, q.Type)
		}
	}
	if eval.TimeTakenSeconds != nil && *eval.TimeTakenSeconds < 0 {
		return fmt.Errorf("%w: negative time_taken_seconds", ErrInvalidEvaluation)
	}
	return nil
}

// Progression folds one scored quiz into a profile snapshot. It computes the
// complete update in memory and touches nothing else, so the caller can
// persist it as a single atomic write or discard it.
type Progression struct {
	Catalog *Catalog
}

// QuizInput is a validated, scored quiz ready to be applied.
type QuizInput struct {
	Scored           []models.ScoredQuestion
	Correct          int
	TimeTakenSeconds *int
	CompletedAt      time.Time
}

func (pr Progression) Apply(p *models.Profile, in QuizInput) (*models.QuizResult, *models.ProfileUpdate) {
	total := len(in.Scored)
	score := ScorePercentage(in.Correct, total)
	isPerfect := score >= 100
	hour := in.CompletedAt.Hour()

	// Streak
	streak := EvaluateStreak(p.LastActivityAt, p.CurrentStreak, in.CompletedAt)
	newStreak := streak.CurrentStreak
	bestStreak := max(p.BestStreak, newStreak)

	// XP
	xp := CalculateQuizXP(XPInput{
		ScorePercentage:  score,
		TotalQuestions:   total,
		CorrectAnswers:   in.Correct,
		TimeTakenSeconds: in.TimeTakenSeconds,
		CurrentStreak:    newStreak,
		QuizHour:         &hour,
	})
	oldLevel := p.Level
	newXP := p.XP + int64(xp.TotalXP)

	// Badges, evaluated against the tentative level
	quizCount := p.QuizCompletedCount + 1
	perfectCount := p.PerfectQuizCount
	if isPerfect {
		perfectCount++
	}
	earned := pr.Catalog.Evaluate(BadgeSnapshot{
		Level:            LevelForXP(newXP),
		Badges:           p.Badges,
		CurrentStreak:    newStreak,
		QuizCompleted:    quizCount,
		PerfectQuizCount: perfectCount,
		ScorePercentage:  score,
		CompletedAt:      in.CompletedAt,
		TimeTakenSeconds: in.TimeTakenSeconds,
	})
	badgeXP := 0
	badgeIDs := make([]string, 0, len(earned))
	for _, b := range earned {
		badgeXP += b.XPReward
		badgeIDs = append(badgeIDs, b.ID)
	}
	newXP += int64(badgeXP)
	newLevel := LevelForXP(newXP)
	xpDelta := xp.TotalXP + badgeXP

	// Recommendations
	perf := AnalyzePerformance(in.Scored)
	recs := ComposeRecommendations(score, perf)

	stats := p.Statistics
	stats.AverageScore = (p.Statistics.AverageScore*float64(p.QuizCompletedCount) + score) / float64(quizCount)
	stats.LastQuizScore = score
	stats.QuizCompleted = quizCount
	stats.PerfectQuizCount = perfectCount
	stats.CurrentStreak = newStreak
	stats.TotalXPEarned = p.TotalXPEarned + int64(xpDelta)

	history := PushAnalysis(p.DetailedAnalysis, models.AnalysisEntry{
		Timestamp:    in.CompletedAt,
		Score:        score,
		Questions:    total,
		Correct:      in.Correct,
		XPEarned:     xpDelta,
		Level:        newLevel,
		Streak:       newStreak,
		BadgesEarned: badgeIDs,
		Performance:  perf,
	})

	badges := append(append([]string{}, p.Badges...), badgeIDs...)
	totalEarned := p.TotalXPEarned + int64(xpDelta)
	now := in.CompletedAt

	upd := &models.ProfileUpdate{
		XP:                 &newXP,
		Level:              &newLevel,
		CurrentStreak:      &newStreak,
		BestStreak:         &bestStreak,
		LastActivityAt:     &now,
		QuizCompletedCount: &quizCount,
		PerfectQuizCount:   &perfectCount,
		TotalXPEarned:      &totalEarned,
		Statistics:         &stats,
		Badges:             badges,
		Recommendations:    recs,
		DetailedAnalysis:   history,
		Activity: &models.Activity{
			UserID: p.UserID,
			Type:   ActivityQuizCompleted,
			Details: map[string]any{
				"score":         score,
				"xp_earned":     xpDelta,
				"badges_earned": badgeIDs,
				"level":         newLevel,
				"streak":        newStreak,
			},
			CreatedAt: now,
		},
		XPEvent: &models.XPEvent{
			UserID:    p.UserID,
			EventType: EventQuizCompleted,
			XPAmount:  xpDelta,
			Metadata: map[string]any{
				"breakdown":  xp.Breakdown,
				"multiplier": xp.Multiplier,
				"badge_xp":   badgeXP,
			},
			CreatedAt: now,
		},
	}

	result := &models.QuizResult{
		XPEarned:     xp,
		BadgeXP:      badgeXP,
		BadgesEarned: badgeIDs,
		LevelUp:      newLevel > oldLevel,
		OldLevel:     oldLevel,
		NewLevel:     newLevel,
		StreakInfo: models.StreakInfo{
			Current:  newStreak,
			Best:     bestStreak,
			IsRecord: newStreak > p.BestStreak,
			IsActive: streak.IsActive,
		},
		QuizSummary: models.QuizSummary{
			Score:          score,
			TotalQuestions: total,
			CorrectAnswers: in.Correct,
			IsPerfect:      isPerfect,
		},
		PerformanceAnalysis: perf,
		Recommendations:     recs,
		CompletedAt:         now,
	}
	return result, upd
}

// ComposeRecommendations leads with a score-band priority message, follows
// with the analyzer's notes and ends with focus notes for the weakest topics.
func ComposeRecommendations(score float64, perf models.PerformanceAnalysis) []string {
	recs := make([]string, 0, len(perf.Recommendations)+3)
	if msg := priorityMessage(score); msg != "" {
		recs = append(recs, msg)
	}
	recs = append(recs, perf.Recommendations...)
	for i, w := range perf.Weaknesses {
		if i == maxFocusNotes {
			break
		}
		recs = append(recs, fmt.Sprintf("Focus on %s: review the key concepts and practice", w.Topic))
	}
	return Dedupe(recs)
}

func priorityMessage(score float64) string {
	switch {
	case score < 50:
		return "Priority: review the fundamentals before moving on"
	case score < 70:
		return "Consolidate your foundations with hands-on exercises"
	case score >= 90:
		return "Excellent! Ready for more advanced concepts"
	}
	return ""
}

// Dedupe drops repeated strings, keeping the first occurrence.
func Dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, s := range items {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// CapRecommendations truncates recs to at most n entries.
func CapRecommendations(recs []string, n int) []string {
	if len(recs) <= n {
		return recs
	}
	return recs[:n]
}

// BuildProgress is the display view shared by /gamification/progress and /profile/stats.
func BuildProgress(p *models.Profile) models.ProgressResponse {
	lp := ProgressFor(p.XP)
	badges := p.Badges
	if badges == nil {
		badges = []string{}
	}
	return models.ProgressResponse{
		Level:              lp.Level,
		TotalXP:            p.XP,
		XPIntoLevel:        lp.XPIntoLevel,
		XPForNextLevel:     lp.XPForNextLevel,
		ProgressPercentage: lp.ProgressPercentage,
		Badges:             badges,
		BadgeCount:         len(badges),
		CurrentStreak:      p.CurrentStreak,
		BestStreak:         p.BestStreak,
		QuizCompleted:      p.QuizCompletedCount,
		AverageScore:       round1(p.Statistics.AverageScore),
	}
}
