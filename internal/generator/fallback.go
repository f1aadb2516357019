package generator

import (
	"strings"

	"github.com/skillforge/backend/internal/models"
)

// ProfileContext is the learner description handed to prompts and to the
// fallback question.
type ProfileContext struct {
	Name        string
	Level       int
	Competences []string
	Objectives  string
	Motivation  string
	Badges      []string
}

func NewProfileContext(user *models.User, p *models.Profile) ProfileContext {
	pc := ProfileContext{Level: 1}
	if user != nil {
		pc.Name = user.DisplayName()
	}
	if p != nil {
		pc.Level = p.Level
		pc.Competences = p.Competences
		pc.Badges = p.Badges
		if p.Objectives != nil {
			pc.Objectives = *p.Objectives
		}
		if p.Motivation != nil {
			pc.Motivation = *p.Motivation
		}
	}
	return pc
}

const (
	nextSkillQuestion   = "What is the next skill you would like to develop over the next two weeks?"
	defaultGoalQuestion = "What is your main learning goal this week?"
)

// FallbackQuestion builds a single open question from the profile alone.
// It is deterministic so it can stand in whenever the model is unavailable.
func FallbackQuestion(pc ProfileContext) models.GeneratedQuestion {
	var parts []string
	if len(pc.Competences) > 0 {
		parts = append(parts, "You already know "+strings.Join(pc.Competences, ", ")+".")
	}
	if o := strings.TrimSpace(pc.Objectives); o != "" {
		parts = append(parts, "Your goal is: "+strings.TrimSuffix(o, ".")+".")
	}
	if m := strings.TrimSpace(pc.Motivation); m != "" {
		parts = append(parts, "Your main motivation: "+strings.TrimSuffix(m, ".")+".")
	}

	text := defaultGoalQuestion
	if len(parts) > 0 {
		text = strings.Join(append(parts, nextSkillQuestion), " ")
	}

	return models.GeneratedQuestion{
		Number:       1,
		QuestionText: text,
		Type:         models.QuestionOpen,
		Topic:        models.DefaultTopic,
	}
}
