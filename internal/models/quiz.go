package models

import "time"

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "MultipleChoice"
	QuestionTrueFalse      QuestionType = "TrueFalse"
	QuestionOpen           QuestionType = "OpenQuestion"
	QuestionOpenList       QuestionType = "OpenList"
)

var ValidQuestionTypes = map[QuestionType]bool{
	QuestionMultipleChoice: true,
	QuestionTrueFalse:      true,
	QuestionOpen:           true,
	QuestionOpenList:       true,
}

// DefaultTopic is used for questions submitted without a topic.
const DefaultTopic = "General"

// AnsweredQuestion is one question of a submitted quiz evaluation.
// IsCorrect and Correct are both optional explicit flags; when neither is
// present correctness is derived from the answers.
type AnsweredQuestion struct {
	Number        int          `json:"number"`
	QuestionText  string       `json:"question_text"`
	Type          QuestionType `json:"type" validate:"required,oneof=MultipleChoice TrueFalse OpenQuestion OpenList"`
	Options       []string     `json:"options,omitempty"`
	UserAnswer    string       `json:"user_answer"`
	CorrectAnswer string       `json:"correct_answer"`
	IsCorrect     *bool        `json:"is_correct,omitempty"`
	Correct       *bool        `json:"correct,omitempty"`
	Topic         string       `json:"topic,omitempty"`
}

// QuizEvaluation is the payload submitted once per quiz attempt.
type QuizEvaluation struct {
	Questions        []AnsweredQuestion `json:"questions" validate:"dive"`
	TimeTakenSeconds *int               `json:"time_taken_seconds,omitempty" validate:"omitempty,min=0"`
}

// GeneratedQuestion is a quiz question proposed to a learner, before it is answered.
type GeneratedQuestion struct {
	Number        int          `json:"number"`
	QuestionText  string       `json:"question_text"`
	Type          QuestionType `json:"type"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correct_answer,omitempty"`
	Topic         string       `json:"topic"`
}

// ScoredQuestion is an AnsweredQuestion with its correctness resolved.
type ScoredQuestion struct {
	AnsweredQuestion
	IsCorrect bool `json:"is_correct"`
}

// ── Analysis ──────────────────────────────────────────────

type Tally struct {
	Total   int `json:"total"`
	Correct int `json:"correct"`
}

type TopicScore struct {
	Topic     string  `json:"topic"`
	Score     float64 `json:"score"`
	Questions int     `json:"questions"`
}

type PerformanceAnalysis struct {
	Strengths       []TopicScore     `json:"strengths"`
	Weaknesses      []TopicScore     `json:"weaknesses"`
	ByType          map[string]Tally `json:"by_type"`
	ByTopic         map[string]Tally `json:"by_topic"`
	Recommendations []string         `json:"recommendations"`
}

// ── Results ───────────────────────────────────────────────

type XPResult struct {
	TotalXP           int                `json:"total_xp"`
	BaseXP            int                `json:"base_xp"`
	BonusXP           int                `json:"bonus_xp"`
	Multiplier        float64            `json:"multiplier"`
	Breakdown         map[string]int     `json:"breakdown"`
	MultiplierDetails map[string]float64 `json:"multiplier_details"`
}

type StreakResult struct {
	CurrentStreak int  `json:"current_streak"`
	IsActive      bool `json:"is_active"`
	StreakBroken  bool `json:"streak_broken"`
	DaysSinceLast *int `json:"days_since_last"`
}

type StreakInfo struct {
	Current  int  `json:"current"`
	Best     int  `json:"best"`
	IsRecord bool `json:"is_record"`
	IsActive bool `json:"is_active"`
}

type QuizSummary struct {
	Score          float64 `json:"score"`
	TotalQuestions int     `json:"total_questions"`
	CorrectAnswers int     `json:"correct_answers"`
	IsPerfect      bool    `json:"is_perfect"`
}

// QuizResult is returned after a quiz evaluation has been folded into a profile.
type QuizResult struct {
	Profile             *Profile            `json:"profile"`
	XPEarned            XPResult            `json:"xp_earned"`
	BadgeXP             int                 `json:"badge_xp"`
	BadgesEarned        []string            `json:"badges_earned"`
	LevelUp             bool                `json:"level_up"`
	OldLevel            int                 `json:"old_level"`
	NewLevel            int                 `json:"new_level"`
	StreakInfo          StreakInfo          `json:"streak_info"`
	QuizSummary         QuizSummary         `json:"quiz_summary"`
	PerformanceAnalysis PerformanceAnalysis `json:"performance_analysis"`
	Recommendations     []string            `json:"recommendations"`
	CompletedAt         time.Time           `json:"completed_at"`
}
