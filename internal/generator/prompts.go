package generator

import (
	"fmt"
	"strings"
)

// QuizQuestionCount is the size of a generated profile quiz.
const QuizQuestionCount = 10

func QuizSystemPrompt() string {
	return `You are an expert instructional designer writing short diagnostic quizzes.

Write exactly ` + fmt.Sprint(QuizQuestionCount) + ` questions that measure what the learner already knows and where they should go next.

QUESTION TYPES
- MultipleChoice: 4 options labelled "A. ...", "B. ...", "C. ...", "D. ...". correct_answer is the letter.
- TrueFalse: options ["True", "False"]. correct_answer is "True" or "False".
- OpenQuestion: no options. correct_answer is a short reference answer.
- OpenList: no options. correct_answer is a comma-separated list of expected items.

RULES
- Mix at least three question types.
- Every question has a short topic label (two or three words).
- Start easy and get harder; adapt difficulty to the learner's level.
- Do not repeat a question the learner's competences make trivial.

OUTPUT
Respond with a JSON array only, no prose, no markdown:
[{"number": 1, "question_text": "...", "type": "MultipleChoice", "options": ["A. ...", "B. ...", "C. ...", "D. ..."], "correct_answer": "A", "topic": "..."}]`
}

// BuildQuizUserPrompt describes the learner the quiz is written for.
func BuildQuizUserPrompt(pc ProfileContext) string {
	var b strings.Builder
	b.WriteString("Write a diagnostic quiz for this learner.\n\n")
	fmt.Fprintf(&b, "Name: %s\n", orNone(pc.Name))
	fmt.Fprintf(&b, "Level: %d\n", pc.Level)
	fmt.Fprintf(&b, "Competences: %s\n", orNone(strings.Join(pc.Competences, ", ")))
	fmt.Fprintf(&b, "Learning objectives: %s\n", orNone(pc.Objectives))
	fmt.Fprintf(&b, "Motivation: %s\n", orNone(pc.Motivation))
	if len(pc.Badges) > 0 {
		fmt.Fprintf(&b, "Badges earned: %s\n", strings.Join(pc.Badges, ", "))
	}
	return b.String()
}

func AnalysisSystemPrompt() string {
	return `You are a learning analyst reviewing one quiz attempt by one learner.

Use the learner profile and the answered quiz to assess:
- which topics are solid and which need work,
- recurring mistake patterns across question types,
- a realistic level estimate (beginner, intermediate, advanced).

OUTPUT
Respond with a single JSON object only, no prose, no markdown:
{"summary": "...", "level_estimate": "...", "strengths": ["..."], "weaknesses": ["..."], "recommendations": ["..."]}

Recommendations are short, concrete, actionable sentences. Give at most 5.`
}

// BuildAnalysisUserPrompt embeds the learner and evaluation JSON documents.
func BuildAnalysisUserPrompt(userJSON, evaluationJSON string) string {
	return fmt.Sprintf("LEARNER PROFILE:\n%s\n\nQUIZ EVALUATION:\n%s\n", userJSON, evaluationJSON)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "none given"
	}
	return s
}
