package generator

import (
	"fmt"
	"strings"

	"github.com/skillforge/backend/internal/models"
)

// NormalizeQuestions turns decoded model output into well-formed questions.
// Items without question text are dropped; unknown or inconsistent types are
// inferred from the options; numbering is reassigned from 1.
func NormalizeQuestions(items []any) []models.GeneratedQuestion {
	out := make([]models.GeneratedQuestion, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}

		text := firstString(obj, "question_text", "question", "text")
		if text == "" {
			continue
		}

		q := models.GeneratedQuestion{
			Number:        len(out) + 1,
			QuestionText:  text,
			Type:          models.QuestionType(firstString(obj, "type")),
			Options:       stringSlice(obj["options"]),
			CorrectAnswer: scalarString(obj["correct_answer"]),
			Topic:         firstString(obj, "topic"),
		}
		if q.Topic == "" {
			q.Topic = models.DefaultTopic
		}
		fixType(&q)
		out = append(out, q)
	}
	return out
}

// fixType makes the question type agree with its options.
func fixType(q *models.GeneratedQuestion) {
	if !models.ValidQuestionTypes[q.Type] {
		q.Type = inferType(q.Options)
	}
	switch q.Type {
	case models.QuestionTrueFalse:
		if len(q.Options) == 0 {
			q.Options = []string{"True", "False"}
		}
	case models.QuestionMultipleChoice:
		if len(q.Options) < 2 {
			q.Type = models.QuestionOpen
			q.Options = nil
		}
	}
}

func inferType(options []string) models.QuestionType {
	switch {
	case len(options) == 2 && strings.EqualFold(options[0], "true") && strings.EqualFold(options[1], "false"):
		return models.QuestionTrueFalse
	case len(options) >= 2:
		return models.QuestionMultipleChoice
	default:
		return models.QuestionOpen
	}
}

func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func stringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range raw {
		if s := scalarString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case bool:
		if t {
			return "True"
		}
		return "False"
	case float64, int:
		return fmt.Sprint(t)
	default:
		return ""
	}
}
