package gamification

import (
	"math"

	"github.com/skillforge/backend/internal/models"
)

const (
	QuizCompletedXP  = 100
	CorrectAnswerXP  = 10
	PerfectScoreXP   = 300
	HighScoreBonusXP = 150
	GoodScoreBonusXP = 75
)

const (
	streak3Multiplier  = 1.1
	streak7Multiplier  = 1.25
	streak30Multiplier = 1.5
	speedMultiplier    = 1.15
	nightOwlMultiplier = 1.2

	// Quizzes finished faster than this earn the speed multiplier.
	speedThresholdSeconds = 300
)

// XPInput is everything the XP calculator needs to price one quiz.
type XPInput struct {
	ScorePercentage  float64
	TotalQuestions   int
	CorrectAnswers   int
	TimeTakenSeconds *int
	CurrentStreak    int
	QuizHour         *int
}

// ScoreBonus returns the score-band bonus and its breakdown key.
// Bands are inclusive at the lower edge: 80 is good, 90 is high, 100 is perfect.
func ScoreBonus(scorePercentage float64) (int, string) {
	switch {
	case scorePercentage >= 100:
		return PerfectScoreXP, "perfect_score"
	case scorePercentage >= 90:
		return HighScoreBonusXP, "high_score"
	case scorePercentage >= 80:
		return GoodScoreBonusXP, "good_score"
	}
	return 0, ""
}

// StreakMultiplier returns the multiplier for a daily streak. Only the highest
// tier applies.
func StreakMultiplier(currentStreak int) (float64, string) {
	switch {
	case currentStreak >= 30:
		return streak30Multiplier, "streak_30"
	case currentStreak >= 7:
		return streak7Multiplier, "streak_7"
	case currentStreak >= 3:
		return streak3Multiplier, "streak_3"
	}
	return 1.0, ""
}

// IsNightHour reports whether hour falls in [0, 6).
func IsNightHour(hour int) bool {
	return hour >= 0 && hour < 6
}

// CalculateQuizXP prices a completed quiz. Multipliers compose multiplicatively.
func CalculateQuizXP(in XPInput) models.XPResult {
	breakdown := map[string]int{
		"quiz_completed":  QuizCompletedXP,
		"correct_answers": in.CorrectAnswers * CorrectAnswerXP,
	}
	subtotal := QuizCompletedXP + in.CorrectAnswers*CorrectAnswerXP

	if bonus, key := ScoreBonus(in.ScorePercentage); bonus > 0 {
		breakdown[key] = bonus
		subtotal += bonus
	}

	multiplier := 1.0
	details := map[string]float64{}

	if m, key := StreakMultiplier(in.CurrentStreak); key != "" {
		multiplier *= m
		details[key] = m
	}
	if in.TimeTakenSeconds != nil && *in.TimeTakenSeconds < speedThresholdSeconds {
		multiplier *= speedMultiplier
		details["speed_bonus"] = speedMultiplier
	}
	if in.QuizHour != nil && IsNightHour(*in.QuizHour) {
		multiplier *= nightOwlMultiplier
		details["night_owl"] = nightOwlMultiplier
	}

	total := ApplyMultiplier(subtotal, multiplier)

	return models.XPResult{
		TotalXP:           total,
		BaseXP:            subtotal,
		BonusXP:           total - subtotal,
		Multiplier:        math.Round(multiplier*100) / 100,
		Breakdown:         breakdown,
		MultiplierDetails: details,
	}
}

// ApplyMultiplier floors xp*multiplier. The epsilon keeps products such as
// 200*1.15 from landing one point short.
func ApplyMultiplier(xp int, multiplier float64) int {
	if xp <= 0 {
		return 0
	}
	return int(math.Floor(float64(xp)*multiplier + 1e-9))
}
