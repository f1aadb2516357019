package gamification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/skillforge/backend/internal/logger"
	"github.com/skillforge/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var afternoon = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

func newProfile(userID int64) *models.Profile {
	return &models.Profile{UserID: userID, Level: 1, Energy: 5, Badges: []string{}}
}

// quiz builds an evaluation of total questions with the first correct ones answered right.
func quiz(total, correct int, topic string) models.QuizEvaluation {
	qs := make([]models.AnsweredQuestion, total)
	for i := range qs {
		answer := "B"
		if i < correct {
			answer = "A"
		}
		qs[i] = models.AnsweredQuestion{
			Number:        i + 1,
			QuestionText:  fmt.Sprintf("Question %d", i+1),
			Type:          models.QuestionMultipleChoice,
			Options:       []string{"A. yes", "B. no"},
			UserAnswer:    answer,
			CorrectAnswer: "A - yes",
			Topic:         topic,
		}
	}
	return models.QuizEvaluation{Questions: qs}
}

func newTestService(store ProfileStore, catalog *Catalog, clock Clock) (*Service, *recordingNotifier) {
	n := &recordingNotifier{}
	return NewService(store, catalog, clock, n, logger.Nop()), n
}

func TestProcessQuiz_PerfectFirstQuiz(t *testing.T) {
	store := newMemStore(newProfile(1))
	clock := &FixedClock{T: afternoon}
	svc, notifier := newTestService(store, DefaultCatalog(), clock)

	eval := quiz(10, 10, "Python")
	eval.TimeTakenSeconds = intPtr(400)

	res, err := svc.ProcessQuiz(context.Background(), 1, eval)
	require.NoError(t, err)

	assert.Equal(t, 500, res.XPEarned.TotalXP)
	assert.Equal(t, []string{"first_quiz", "first_perfect"}, res.BadgesEarned)
	assert.Equal(t, 250, res.BadgeXP)
	assert.True(t, res.LevelUp)
	assert.Equal(t, 1, res.OldLevel)
	assert.Equal(t, 3, res.NewLevel)
	assert.Equal(t, models.QuizSummary{Score: 100, TotalQuestions: 10, CorrectAnswers: 10, IsPerfect: true}, res.QuizSummary)
	assert.Equal(t, models.StreakInfo{Current: 0, Best: 0, IsRecord: false, IsActive: false}, res.StreakInfo)
	assert.Equal(t, "Excellent! Ready for more advanced concepts", res.Recommendations[0])

	p := res.Profile
	assert.Equal(t, int64(750), p.XP)
	assert.Equal(t, 3, p.Level)
	assert.Equal(t, int64(750), p.TotalXPEarned)
	assert.Equal(t, 1, p.QuizCompletedCount)
	assert.Equal(t, 1, p.PerfectQuizCount)
	assert.Equal(t, afternoon, *p.LastActivityAt)
	assert.Equal(t, 100.0, p.Statistics.AverageScore)
	assert.Equal(t, 100.0, p.Statistics.LastQuizScore)
	require.Len(t, p.DetailedAnalysis, 1)
	assert.Equal(t, 1, p.DetailedAnalysis[0].Seq)
	assert.Equal(t, 750, p.DetailedAnalysis[0].XPEarned)

	require.Len(t, store.activities, 1)
	assert.Equal(t, ActivityQuizCompleted, store.activities[0].Type)
	require.Len(t, store.events, 1)
	assert.Equal(t, 750, store.events[0].XPAmount)
	assert.Equal(t, []int64{1}, notifier.calls)
}

func TestProcessQuiz_ZeroCorrect(t *testing.T) {
	store := newMemStore(newProfile(1))
	svc, _ := newTestService(store, DefaultCatalog(), &FixedClock{T: afternoon})

	res, err := svc.ProcessQuiz(context.Background(), 1, quiz(10, 0, "Statistics"))
	require.NoError(t, err)

	assert.Equal(t, 100, res.XPEarned.TotalXP)
	assert.Equal(t, 100, res.XPEarned.BaseXP)
	assert.Equal(t, "Priority: review the fundamentals before moving on", res.Recommendations[0])
	assert.Contains(t, res.Recommendations, "Focus on Statistics: review the key concepts and practice")
	assert.Equal(t, 0, res.Profile.PerfectQuizCount)
}

func TestProcessQuiz_StreakContinuesAndEarnsBadge(t *testing.T) {
	yesterday := afternoon.Add(-24 * time.Hour)
	p := newProfile(1)
	p.XP = 9900
	p.Level = 10
	p.Badges = []string{"first_quiz", "level_5_reached", "level_10_reached"}
	p.QuizCompletedCount = 5
	p.LastActivityAt = &yesterday
	p.CurrentStreak = 2
	p.BestStreak = 2

	store := newMemStore(p)
	svc, _ := newTestService(store, DefaultCatalog(), &FixedClock{T: afternoon})

	res, err := svc.ProcessQuiz(context.Background(), 1, quiz(5, 4, "Python"))
	require.NoError(t, err)

	// 215 * 1.1 = 236, plus streak_3_days (50)
	assert.Equal(t, 215, res.XPEarned.BaseXP)
	assert.Equal(t, 236, res.XPEarned.TotalXP)
	assert.Equal(t, []string{"streak_3_days"}, res.BadgesEarned)
	assert.True(t, res.LevelUp)
	assert.Equal(t, 10, res.OldLevel)
	assert.Equal(t, 11, res.NewLevel)
	assert.Equal(t, models.StreakInfo{Current: 3, Best: 3, IsRecord: true, IsActive: true}, res.StreakInfo)

	assert.Equal(t, int64(10186), res.Profile.XP)
	assert.Equal(t, LevelForXP(res.Profile.XP), res.Profile.Level)
	assert.Equal(t, []string{"first_quiz", "level_5_reached", "level_10_reached", "streak_3_days"}, res.Profile.Badges)
}

func TestProcessQuiz_LevelUpFromBadgeRewardOnly(t *testing.T) {
	catalog, err := NewCatalog([]Badge{
		{ID: "first_quiz", Category: CategoryAchievement, XPReward: 100, Condition: QuizCountAtLeast(1)},
	})
	require.NoError(t, err)

	p := newProfile(1)
	p.XP = 9850
	p.Level = 10
	store := newMemStore(p)
	svc, _ := newTestService(store, catalog, &FixedClock{T: afternoon})

	// 100 XP for the quiz leaves the user at 9950, the badge pushes to 10050.
	res, err := svc.ProcessQuiz(context.Background(), 1, quiz(2, 0, ""))
	require.NoError(t, err)

	assert.Equal(t, 100, res.XPEarned.TotalXP)
	assert.True(t, res.LevelUp)
	assert.Equal(t, 10, res.OldLevel)
	assert.Equal(t, 11, res.NewLevel)
	assert.Equal(t, int64(10050), res.Profile.XP)
}

func TestProcessQuiz_SingleLevelUpAcrossTwoBoundaries(t *testing.T) {
	catalog, err := NewCatalog([]Badge{
		{ID: "jackpot", Category: CategoryAchievement, XPReward: 2200, Condition: LevelAtLeast(11)},
	})
	require.NoError(t, err)

	p := newProfile(1)
	p.XP = 9900
	p.Level = 10
	store := newMemStore(p)
	svc, _ := newTestService(store, catalog, &FixedClock{T: afternoon})

	res, err := svc.ProcessQuiz(context.Background(), 1, quiz(2, 0, ""))
	require.NoError(t, err)

	assert.Equal(t, []string{"jackpot"}, res.BadgesEarned)
	assert.True(t, res.LevelUp)
	assert.Equal(t, 10, res.OldLevel)
	assert.Equal(t, 12, res.NewLevel)
	assert.Equal(t, int64(12200), res.Profile.XP)
	assert.Equal(t, 12, res.Profile.Level)
}

func TestProcessQuiz_HistoryBoundAfterFifteenQuizzes(t *testing.T) {
	store := newMemStore(newProfile(1))
	clock := &FixedClock{T: afternoon}
	svc, _ := newTestService(store, DefaultCatalog(), clock)

	var last *models.QuizResult
	for i := 0; i < 15; i++ {
		res, err := svc.ProcessQuiz(context.Background(), 1, quiz(4, i%5, "SQL"))
		require.NoError(t, err)
		last = res
		clock.Advance(24 * time.Hour)
	}

	p := last.Profile
	require.Len(t, p.DetailedAnalysis, AnalysisHistoryCap)
	assert.Equal(t, 6, p.DetailedAnalysis[0].Seq)
	assert.Equal(t, 15, p.DetailedAnalysis[9].Seq)
	assert.Equal(t, 15, p.QuizCompletedCount)
	assert.Equal(t, 14, p.CurrentStreak)
	assert.Equal(t, 14, p.BestStreak)
	assert.Equal(t, LevelForXP(p.XP), p.Level)
	assert.Equal(t, p.XP, p.TotalXPEarned)
}

func TestProcessQuiz_BrokenStreakKeepsBest(t *testing.T) {
	longAgo := afternoon.Add(-5 * 24 * time.Hour)
	p := newProfile(1)
	p.LastActivityAt = &longAgo
	p.CurrentStreak = 12
	p.BestStreak = 12
	store := newMemStore(p)
	svc, _ := newTestService(store, DefaultCatalog(), &FixedClock{T: afternoon})

	res, err := svc.ProcessQuiz(context.Background(), 1, quiz(3, 3, ""))
	require.NoError(t, err)

	assert.Equal(t, models.StreakInfo{Current: 0, Best: 12, IsRecord: false, IsActive: false}, res.StreakInfo)
	assert.Equal(t, 0, res.Profile.CurrentStreak)
	assert.Equal(t, 12, res.Profile.BestStreak)
}

func TestProcessQuiz_RunningAverage(t *testing.T) {
	store := newMemStore(newProfile(1))
	svc, _ := newTestService(store, DefaultCatalog(), &FixedClock{T: afternoon})

	_, err := svc.ProcessQuiz(context.Background(), 1, quiz(4, 4, ""))
	require.NoError(t, err)
	res, err := svc.ProcessQuiz(context.Background(), 1, quiz(4, 2, ""))
	require.NoError(t, err)

	assert.Equal(t, 75.0, res.Profile.Statistics.AverageScore)
	assert.Equal(t, 50.0, res.Profile.Statistics.LastQuizScore)
	assert.Equal(t, 2, res.Profile.Statistics.QuizCompleted)
}

func TestProcessQuiz_KeepsBadgesOutsideCatalog(t *testing.T) {
	p := newProfile(1)
	p.Badges = []string{"nlp_expert", "beta_tester"}
	store := newMemStore(p)
	svc, _ := newTestService(store, DefaultCatalog(), &FixedClock{T: afternoon})

	res, err := svc.ProcessQuiz(context.Background(), 1, quiz(1, 1, ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"nlp_expert", "beta_tester", "first_quiz", "first_perfect"}, res.Profile.Badges)
}

func TestProcessQuiz_NightQuizEarnsBothTimeBadges(t *testing.T) {
	store := newMemStore(newProfile(1))
	night := time.Date(2026, 3, 10, 2, 30, 0, 0, time.UTC)
	svc, _ := newTestService(store, DefaultCatalog(), &FixedClock{T: night})

	res, err := svc.ProcessQuiz(context.Background(), 1, quiz(2, 1, ""))
	require.NoError(t, err)

	assert.Contains(t, res.BadgesEarned, "night_owl")
	assert.Contains(t, res.BadgesEarned, "early_bird")
	assert.Contains(t, res.XPEarned.MultiplierDetails, "night_owl")
}

func TestProcessQuiz_Errors(t *testing.T) {
	store := newMemStore(newProfile(1))
	svc, notifier := newTestService(store, DefaultCatalog(), &FixedClock{T: afternoon})
	ctx := context.Background()

	_, err := svc.ProcessQuiz(ctx, 1, models.QuizEvaluation{})
	assert.ErrorIs(t, err, ErrInvalidEvaluation)

	bad := quiz(2, 1, "")
	bad.Questions[1].Type = "Essay"
	_, err = svc.ProcessQuiz(ctx, 1, bad)
	assert.ErrorIs(t, err, ErrInvalidEvaluation)

	neg := quiz(2, 1, "")
	neg.TimeTakenSeconds = intPtr(-1)
	_, err = svc.ProcessQuiz(ctx, 1, neg)
	assert.ErrorIs(t, err, ErrInvalidEvaluation)

	_, err = svc.ProcessQuiz(ctx, 42, quiz(2, 1, ""))
	assert.ErrorIs(t, err, ErrProfileNotFound)

	store.failWrites = true
	_, err = svc.ProcessQuiz(ctx, 1, quiz(2, 1, ""))
	assert.ErrorIs(t, err, ErrPersistence)

	p, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.XP)
	assert.Equal(t, 0, p.QuizCompletedCount)
	assert.Empty(t, store.activities)
	assert.Equal(t, 0, store.writes)
	assert.Empty(t, notifier.calls)
}

func TestProcessQuiz_DoesNotMutateEvaluation(t *testing.T) {
	store := newMemStore(newProfile(1))
	svc, _ := newTestService(store, DefaultCatalog(), &FixedClock{T: afternoon})

	eval := quiz(3, 2, "")
	_, err := svc.ProcessQuiz(context.Background(), 1, eval)
	require.NoError(t, err)

	for _, q := range eval.Questions {
		assert.Nil(t, q.IsCorrect)
	}
}

func TestProcessQuiz_ConcurrentSubmissionsSerialized(t *testing.T) {
	store := newMemStore(newProfile(1), newProfile(2))
	svc, _ := newTestService(store, DefaultCatalog(), &FixedClock{T: afternoon})

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		for _, uid := range []int64{1, 2} {
			wg.Add(1)
			go func(uid int64) {
				defer wg.Done()
				_, err := svc.ProcessQuiz(context.Background(), uid, quiz(2, 1, ""))
				errs <- err
			}(uid)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	for _, uid := range []int64{1, 2} {
		p, err := store.Get(context.Background(), uid)
		require.NoError(t, err)
		assert.Equal(t, 20, p.QuizCompletedCount)
		assert.Len(t, p.DetailedAnalysis, AnalysisHistoryCap)
		assert.Equal(t, p.XP, p.TotalXPEarned)
		assert.Equal(t, LevelForXP(p.XP), p.Level)
	}
}

func TestProgressAndBadgeCatalog(t *testing.T) {
	p := newProfile(1)
	p.XP = 250
	p.Level = 2
	p.Badges = []string{"first_quiz"}
	p.Statistics.AverageScore = 66.666
	store := newMemStore(p)
	svc, _ := newTestService(store, DefaultCatalog(), &FixedClock{T: afternoon})

	prog, err := svc.Progress(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, prog.Level)
	assert.Equal(t, int64(150), prog.XPIntoLevel)
	assert.Equal(t, int64(300), prog.XPForNextLevel)
	assert.Equal(t, 50.0, prog.ProgressPercentage)
	assert.Equal(t, 66.7, prog.AverageScore)
	assert.Equal(t, 1, prog.BadgeCount)

	_, err = svc.Progress(context.Background(), 9)
	assert.True(t, errors.Is(err, ErrProfileNotFound))

	views, err := svc.BadgeCatalog(context.Background(), 9)
	require.NoError(t, err)
	assert.Len(t, views, 17)
}
