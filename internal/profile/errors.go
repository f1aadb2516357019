package profile

import "errors"

var (
	// ErrProfileExists is returned by Create when the user already has a profile.
	ErrProfileExists = errors.New("profile already exists")
	// ErrInvalidXP rejects non-positive XP grants.
	ErrInvalidXP = errors.New("xp must be positive")
	// ErrInvalidLimit rejects out-of-range list limits.
	ErrInvalidLimit = errors.New("limit out of range")
)
