package models

import "time"

// ── Profile ───────────────────────────────────────────────

type Profile struct {
	UserID             int64           `json:"user_id"`
	Level              int             `json:"level"`
	XP                 int64           `json:"xp"`
	Badges             []string        `json:"badges"`
	Competences        []string        `json:"competences"`
	Preferences        map[string]any  `json:"preferences"`
	Objectives         *string         `json:"objectives,omitempty"`
	Motivation         *string         `json:"motivation,omitempty"`
	Energy             int             `json:"energy"`
	CurrentStreak      int             `json:"current_streak"`
	BestStreak         int             `json:"best_streak"`
	LastActivityAt     *time.Time      `json:"last_activity_at,omitempty"`
	QuizCompletedCount int             `json:"quiz_completed_count"`
	PerfectQuizCount   int             `json:"perfect_quiz_count"`
	TotalXPEarned      int64           `json:"total_xp_earned"`
	Statistics         Statistics      `json:"statistics"`
	Recommendations    []string        `json:"recommendations"`
	DetailedAnalysis   []AnalysisEntry `json:"detailed_analysis"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// HasBadge reports whether the badge is already in the profile's set.
func (p *Profile) HasBadge(id string) bool {
	for _, b := range p.Badges {
		if b == id {
			return true
		}
	}
	return false
}

// Statistics is the rolling summary kept alongside the scalar counters.
type Statistics struct {
	AverageScore     float64 `json:"average_score"`
	LastQuizScore    float64 `json:"last_quiz_score"`
	QuizCompleted    int     `json:"quiz_completed"`
	PerfectQuizCount int     `json:"perfect_quiz_count"`
	CurrentStreak    int     `json:"current_streak"`
	TotalXPEarned    int64   `json:"total_xp_earned"`
}

// AnalysisEntry is one snapshot in a profile's bounded analysis history.
type AnalysisEntry struct {
	Seq          int                 `json:"seq"`
	Timestamp    time.Time           `json:"timestamp"`
	Score        float64             `json:"score"`
	Questions    int                 `json:"questions"`
	Correct      int                 `json:"correct"`
	XPEarned     int                 `json:"xp_earned"`
	Level        int                 `json:"level"`
	Streak       int                 `json:"streak"`
	BadgesEarned []string            `json:"badges_earned"`
	Performance  PerformanceAnalysis `json:"performance"`
}

// Activity is an entry of the profile activity log.
type Activity struct {
	ID        int64          `json:"id"`
	UserID    int64          `json:"user_id"`
	Type      string         `json:"type"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ── ProfileUpdate ─────────────────────────────────────────

// ProfileUpdate is the set of fields written by a single atomic profile
// update. Nil fields are left untouched.
type ProfileUpdate struct {
	Level              *int
	XP                 *int64
	Badges             []string
	Competences        []string
	Preferences        map[string]any
	Objectives         *string
	Motivation         *string
	Energy             *int
	CurrentStreak      *int
	BestStreak         *int
	LastActivityAt     *time.Time
	QuizCompletedCount *int
	PerfectQuizCount   *int
	TotalXPEarned      *int64
	Statistics         *Statistics
	Recommendations    []string
	DetailedAnalysis   []AnalysisEntry

	// Side records written in the same transaction.
	Activity *Activity
	XPEvent  *XPEvent
}

// Empty reports whether the update would change no profile column.
func (u *ProfileUpdate) Empty() bool {
	return u.Level == nil && u.XP == nil && u.Badges == nil && u.Competences == nil &&
		u.Preferences == nil && u.Objectives == nil && u.Motivation == nil && u.Energy == nil &&
		u.CurrentStreak == nil && u.BestStreak == nil && u.LastActivityAt == nil &&
		u.QuizCompletedCount == nil && u.PerfectQuizCount == nil && u.TotalXPEarned == nil &&
		u.Statistics == nil && u.Recommendations == nil && u.DetailedAnalysis == nil
}

// Apply copies every set field of the update onto p.
func (u *ProfileUpdate) Apply(p *Profile, now time.Time) {
	if u.Level != nil {
		p.Level = *u.Level
	}
	if u.XP != nil {
		p.XP = *u.XP
	}
	if u.Badges != nil {
		p.Badges = append([]string(nil), u.Badges...)
	}
	if u.Competences != nil {
		p.Competences = append([]string(nil), u.Competences...)
	}
	if u.Preferences != nil {
		p.Preferences = u.Preferences
	}
	if u.Objectives != nil {
		p.Objectives = u.Objectives
	}
	if u.Motivation != nil {
		p.Motivation = u.Motivation
	}
	if u.Energy != nil {
		p.Energy = *u.Energy
	}
	if u.CurrentStreak != nil {
		p.CurrentStreak = *u.CurrentStreak
	}
	if u.BestStreak != nil {
		p.BestStreak = *u.BestStreak
	}
	if u.LastActivityAt != nil {
		t := *u.LastActivityAt
		p.LastActivityAt = &t
	}
	if u.QuizCompletedCount != nil {
		p.QuizCompletedCount = *u.QuizCompletedCount
	}
	if u.PerfectQuizCount != nil {
		p.PerfectQuizCount = *u.PerfectQuizCount
	}
	if u.TotalXPEarned != nil {
		p.TotalXPEarned = *u.TotalXPEarned
	}
	if u.Statistics != nil {
		p.Statistics = *u.Statistics
	}
	if u.Recommendations != nil {
		p.Recommendations = append([]string(nil), u.Recommendations...)
	}
	if u.DetailedAnalysis != nil {
		p.DetailedAnalysis = append([]AnalysisEntry(nil), u.DetailedAnalysis...)
	}
	p.UpdatedAt = now
}

type XPEvent struct {
	ID        int64          `json:"id"`
	UserID    int64          `json:"user_id"`
	EventType string         `json:"event_type"`
	XPAmount  int            `json:"xp_amount"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ── Request Types ─────────────────────────────────────────

type CreateProfileRequest struct {
	Competences []string       `json:"competences" validate:"omitempty,dive,required"`
	Preferences map[string]any `json:"preferences"`
	Objectives  *string        `json:"objectives"`
	Motivation  *string        `json:"motivation"`
	Energy      *int           `json:"energy" validate:"omitempty,min=1,max=10"`
}

type UpdateProfileRequest struct {
	Competences     []string       `json:"competences" validate:"omitempty,dive,required"`
	Preferences     map[string]any `json:"preferences"`
	Objectives      *string        `json:"objectives"`
	Motivation      *string        `json:"motivation"`
	Energy          *int           `json:"energy" validate:"omitempty,min=1,max=10"`
	Recommendations []string       `json:"recommendations"`
}

type XPRequest struct {
	XPPoints int `json:"xp_points" validate:"gt=0"`
}

type BadgeRequest struct {
	Badge string `json:"badge" validate:"required"`
}

type CompetenceRequest struct {
	Competence string `json:"competence" validate:"required"`
}

type PreferencesRequest struct {
	Preferences map[string]any `json:"preferences" validate:"required"`
}

type ActivityRequest struct {
	ActivityType string `json:"activity_type" validate:"required"`
	XPReward     int    `json:"xp_reward" validate:"min=0"`
}

type AchievementRequest struct {
	Achievement string `json:"achievement" validate:"required"`
	Badge       string `json:"badge,omitempty"`
}

// ── Response Types ────────────────────────────────────────

type ProgressResponse struct {
	Level              int      `json:"level"`
	TotalXP            int64    `json:"total_xp"`
	XPIntoLevel        int64    `json:"xp_into_level"`
	XPForNextLevel     int64    `json:"xp_for_next_level"`
	ProgressPercentage float64  `json:"progress_percentage"`
	Badges             []string `json:"badges"`
	BadgeCount         int      `json:"badge_count"`
	CurrentStreak      int      `json:"current_streak"`
	BestStreak         int      `json:"best_streak"`
	QuizCompleted      int      `json:"quiz_completed"`
	AverageScore       float64  `json:"average_score"`
}

type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	Username   string `json:"username"`
	Level      int    `json:"level"`
	XP         int64  `json:"xp"`
	BadgeCount int    `json:"badges_count"`
}

type LeaderboardResponse struct {
	Leaderboard  []LeaderboardEntry `json:"leaderboard"`
	TotalResults int                `json:"total_results"`
}

type ActivitiesResponse struct {
	Activities      []Activity `json:"activities"`
	TotalActivities int        `json:"total_activities"`
}
