package models

import (
	"encoding/json"
	"time"
)

type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskDone    TaskStatus = "done"
	TaskFailed  TaskStatus = "failed"
)

const (
	TaskProfileAnalysis = "profile_analysis"
	TaskProfileQuestion = "generate_profile_question"
)

// Task is a queued unit of background work.
type Task struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	UserID     int64           `json:"user_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// TaskResult is the result handle stored for a task id.
type TaskResult struct {
	TaskID     string          `json:"task_id"`
	Type       string          `json:"type"`
	UserID     int64           `json:"user_id"`
	Status     TaskStatus      `json:"status"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

type TaskAcceptedResponse struct {
	TaskID string     `json:"task_id"`
	Status TaskStatus `json:"status"`
}

// ProfileAnalysisResult is produced by the profile_analysis task.
type ProfileAnalysisResult struct {
	*QuizResult
	LLMAnalysis map[string]any `json:"llm_analysis,omitempty"`
}

// ProfileQuestionResult is produced by the generate_profile_question task.
// Source is "llm" with Questions set, or "fallback" with Question set.
type ProfileQuestionResult struct {
	Source    string              `json:"source"`
	Questions []GeneratedQuestion `json:"questions,omitempty"`
	Question  *GeneratedQuestion  `json:"question,omitempty"`
}
