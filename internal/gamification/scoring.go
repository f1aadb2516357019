package gamification

import (
	"strings"
	"unicode"

	"github.com/skillforge/backend/internal/models"
)

// ScoreQuestions resolves correctness for every question and returns a new
// slice. The input is never modified, so scoring the same payload twice
// yields the same flags.
func ScoreQuestions(questions []models.AnsweredQuestion) ([]models.ScoredQuestion, int) {
	scored := make([]models.ScoredQuestion, len(questions))
	correct := 0
	for i, q := range questions {
		ok := IsAnswerCorrect(q)
		scored[i] = models.ScoredQuestion{AnsweredQuestion: q, IsCorrect: ok}
		if ok {
			correct++
		}
	}
	return scored, correct
}

// IsAnswerCorrect prefers an explicit is_correct flag, then a correct flag,
// then compares the leading token of both answers case-insensitively:
// "A - because...", "a. something", "B)" and "b" reduce to their letter.
func IsAnswerCorrect(q models.AnsweredQuestion) bool {
	if q.IsCorrect != nil {
		return *q.IsCorrect
	}
	if q.Correct != nil {
		return *q.Correct
	}

	user, want := answerKey(q.UserAnswer), answerKey(q.CorrectAnswer)
	return user != "" && user == want
}

// answerKey returns the first run of letters and digits of s, upper-cased.
func answerKey(s string) string {
	isWord := func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }

	start := strings.IndexFunc(s, isWord)
	if start < 0 {
		return ""
	}
	s = s[start:]
	if end := strings.IndexFunc(s, func(r rune) bool { return !isWord(r) }); end >= 0 {
		s = s[:end]
	}
	return strings.ToUpper(s)
}

// ScorePercentage returns correct/total*100, 0 for an empty quiz.
func ScorePercentage(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}
