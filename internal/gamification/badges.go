package gamification

import (
	"fmt"
	"os"
	"time"

	"github.com/skillforge/backend/internal/models"
	"gopkg.in/yaml.v3"
)

type BadgeCategory string

const (
	CategoryStreak      BadgeCategory = "streak"
	CategoryMastery     BadgeCategory = "mastery"
	CategoryAchievement BadgeCategory = "achievement"
	CategoryLevel       BadgeCategory = "level"
	CategorySocial      BadgeCategory = "social"
)

type ConditionKind string

const (
	CondStreakAtLeast       ConditionKind = "streak_at_least"
	CondLevelAtLeast        ConditionKind = "level_at_least"
	CondQuizCountAtLeast    ConditionKind = "quiz_count_at_least"
	CondPerfectCountAtLeast ConditionKind = "perfect_count_at_least"
	CondHourInRange         ConditionKind = "hour_in_range"
	// CondManual badges are granted explicitly and never auto-awarded.
	CondManual              ConditionKind = "manual"
)

// Condition is a typed badge predicate. Threshold is used by the *_at_least
// kinds; FromHour/ToHour bound a half-open hour window [FromHour, ToHour).
type Condition struct {
	Kind      ConditionKind `json:"kind" yaml:"kind"`
	Threshold int           `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	FromHour  int           `json:"from_hour,omitempty" yaml:"from_hour,omitempty"`
	ToHour    int           `json:"to_hour,omitempty" yaml:"to_hour,omitempty"`
}

func StreakAtLeast(n int) Condition { return Condition{Kind: CondStreakAtLeast, Threshold: n} }
func LevelAtLeast(n int) Condition { return Condition{Kind: CondLevelAtLeast, Threshold: n} }
func QuizCountAtLeast(n int) Condition { return Condition{Kind: CondQuizCountAtLeast, Threshold: n} }
func PerfectCountAtLeast(n int) Condition { return Condition{Kind: CondPerfectCountAtLeast, Threshold: n} }
func HourInRange(from, to int) Condition { return Condition{Kind: CondHourInRange, FromHour: from, ToHour: to} }
func Manual() Condition { return Condition{Kind: CondManual} }

// BadgeSnapshot is the profile and quiz state a badge condition is checked against.
type BadgeSnapshot struct {
	Level            int
	Badges           []string
	CurrentStreak    int
	QuizCompleted    int
	PerfectQuizCount int
	ScorePercentage  float64
	CompletedAt      time.Time
	TimeTakenSeconds *int
}

func (c Condition) Holds(s BadgeSnapshot) bool {
	switch c.Kind {
	case CondStreakAtLeast:
		return s.CurrentStreak >= c.Threshold
	case CondLevelAtLeast:
		return s.Level >= c.Threshold
	case CondQuizCountAtLeast:
		return s.QuizCompleted >= c.Threshold
	case CondPerfectCountAtLeast:
		return s.PerfectQuizCount >= c.Threshold
	case CondHourInRange:
		if s.CompletedAt.IsZero() {
			return false
		}
		h := s.CompletedAt.Hour()
		return h >= c.FromHour && h < c.ToHour
	}
	return false
}

func (c Condition) validate() error {
	switch c.Kind {
	case CondStreakAtLeast, CondLevelAtLeast, CondQuizCountAtLeast, CondPerfectCountAtLeast:
		if c.Threshold < 0 {
			return fmt.Errorf("negative threshold %d", c.Threshold)
		}
	case CondHourInRange:
		if c.FromHour < 0 || c.ToHour > 24 || c.FromHour >= c.ToHour {
			return fmt.Errorf("invalid hour window [%d, %d)", c.FromHour, c.ToHour)
		}
	case CondManual:
	default:
		return fmt.Errorf("unknown condition kind %q", c.Kind)
	}
	return nil
}

// Badge is one entry of the static badge catalog.
type Badge struct {
	ID          string        `json:"id" yaml:"id"`
	Name        string        `json:"name" yaml:"name"`
	Category    BadgeCategory `json:"category" yaml:"category"`
	Description string        `json:"description" yaml:"description"`
	XPReward    int           `json:"xp_reward" yaml:"xp_reward"`
	Condition   Condition     `json:"condition" yaml:"condition"`
}

// Catalog is the immutable badge table. Build one at startup and share it.
type Catalog struct {
	badges []Badge
	byID   map[string]int
}

// NewCatalog validates defs and copies them into a Catalog.
func NewCatalog(defs []Badge) (*Catalog, error) {
	c := &Catalog{
		badges: make([]Badge, 0, len(defs)),
		byID:   make(map[string]int, len(defs)),
	}
	for _, b := range defs {
		if b.ID == "" {
			return nil, fmt.Errorf("badge %q: empty id", b.Name)
		}
		if _, dup := c.byID[b.ID]; dup {
			return nil, fmt.Errorf("badge %q: duplicate id", b.ID)
		}
		if b.XPReward < 0 {
			return nil, fmt.Errorf("badge %q: negative xp_reward", b.ID)
		}
		if err := b.Condition.validate(); err != nil {
			return nil, fmt.Errorf("badge %q: %w", b.ID, err)
		}
		c.byID[b.ID] = len(c.badges)
		c.badges = append(c.badges, b)
	}
	return c, nil
}

// DefaultCatalog returns the built-in badge table.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultBadges)
	if err != nil {
		panic(err)
	}
	return c
}

type catalogFile struct {
	Badges []Badge `yaml:"badges"`
}

// LoadCatalog reads a YAML badge catalog from path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read badge catalog: %w", err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse badge catalog: %w", err)
	}
	if len(f.Badges) == 0 {
		return nil, fmt.Errorf("badge catalog has no badges")
	}
	return NewCatalog(f.Badges)
}

// All returns a copy of the catalog in its fixed order.
func (c *Catalog) All() []Badge {
	return append([]Badge(nil), c.badges...)
}

func (c *Catalog) Get(id string) (Badge, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Badge{}, false
	}
	return c.badges[i], true
}

// XPReward returns the reward of a badge, 0 for unknown ids.
func (c *Catalog) XPReward(id string) int {
	b, _ := c.Get(id)
	return b.XPReward
}

// Evaluate returns, in catalog order, every badge not yet owned whose
// condition holds for the snapshot.
func (c *Catalog) Evaluate(s BadgeSnapshot) []Badge {
	owned := make(map[string]bool, len(s.Badges))
	for _, id := range s.Badges {
		owned[id] = true
	}

	var earned []Badge
	for _, b := range c.badges {
		if owned[b.ID] {
			continue
		}
		if b.Condition.Holds(s) {
			earned = append(earned, b)
		}
	}
	return earned
}

// CatalogView marks which catalog badges the profile already owns.
func (c *Catalog) CatalogView(p *models.Profile) []BadgeView {
	views := make([]BadgeView, 0, len(c.badges))
	for _, b := range c.badges {
		views = append(views, BadgeView{Badge: b, Earned: p != nil && p.HasBadge(b.ID)})
	}
	return views
}

type BadgeView struct {
	Badge
	Earned bool `json:"earned"`
}

var defaultBadges = []Badge{
	// Streaks
	{ID: "streak_3_days", Name: "Getting Started", Category: CategoryStreak, Description: "3 consecutive days of learning", XPReward: 50, Condition: StreakAtLeast(3)},
	{ID: "streak_7_days", Name: "Regular", Category: CategoryStreak, Description: "7 consecutive days of learning", XPReward: 150, Condition: StreakAtLeast(7)},
	{ID: "streak_30_days", Name: "Dedicated", Category: CategoryStreak, Description: "30 consecutive days of learning", XPReward: 500, Condition: StreakAtLeast(30)},
	{ID: "streak_100_days", Name: "Legend", Category: CategoryStreak, Description: "100 consecutive days of learning", XPReward: 2000, Condition: StreakAtLeast(100)},

	// Mastery
	{ID: "ml_basics_master", Name: "ML Fundamentals", Category: CategoryMastery, Description: "Mastery of core Machine Learning concepts", XPReward: 300, Condition: Manual()},
	{ID: "deep_learning_master", Name: "Deep Learning Expert", Category: CategoryMastery, Description: "Expertise in Deep Learning and neural networks", XPReward: 500, Condition: Manual()},
	{ID: "nlp_expert", Name: "NLP Master", Category: CategoryMastery, Description: "Mastery of Natural Language Processing", XPReward: 500, Condition: Manual()},
	{ID: "computer_vision_expert", Name: "Computer Vision Pro", Category: CategoryMastery, Description: "Expert in image processing and Computer Vision", XPReward: 500, Condition: Manual()},

	// Levels
	{ID: "level_5_reached", Name: "Apprentice", Category: CategoryLevel, Description: "Reached level 5", XPReward: 100, Condition: LevelAtLeast(5)},
	{ID: "level_10_reached", Name: "Intermediate", Category: CategoryLevel, Description: "Reached level 10", XPReward: 300, Condition: LevelAtLeast(10)},
	{ID: "level_25_reached", Name: "Advanced", Category: CategoryLevel, Description: "Reached level 25", XPReward: 1000, Condition: LevelAtLeast(25)},
	{ID: "level_50_reached", Name: "Expert", Category: CategoryLevel, Description: "Reached level 50", XPReward: 5000, Condition: LevelAtLeast(50)},

	// Achievements
	{ID: "first_quiz", Name: "First Step", Category: CategoryAchievement, Description: "First quiz completed", XPReward: 50, Condition: QuizCountAtLeast(1)},
	{ID: "first_perfect", Name: "Perfectionist", Category: CategoryAchievement, Description: "Perfect score (100%) on a quiz", XPReward: 200, Condition: PerfectCountAtLeast(1)},
	{ID: "night_owl", Name: "Night Owl", Category: CategoryAchievement, Description: "Quiz completed after midnight", XPReward: 100, Condition: HourInRange(0, 6)},
	{ID: "early_bird", Name: "Early Bird", Category: CategoryAchievement, Description: "Quiz completed before 6am", XPReward: 100, Condition: HourInRange(0, 6)},
	{ID: "speed_demon", Name: "Speedster", Category: CategoryAchievement, Description: "Quiz completed in under 5 minutes", XPReward: 150, Condition: Manual()},
}
