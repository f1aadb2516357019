package gamification

import "errors"

var (
	// ErrInvalidEvaluation rejects an empty or malformed quiz evaluation.
	ErrInvalidEvaluation = errors.New("invalid evaluation")
	// ErrProfileNotFound is returned when the user has no profile.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrPersistence wraps storage failures of the atomic profile update.
	ErrPersistence = errors.New("persistence failure")
)
