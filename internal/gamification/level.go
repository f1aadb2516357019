package gamification

import "math"

// xpPerLevelUnit scales the square-root level curve.
const xpPerLevelUnit = 100

// LevelForXP maps cumulative XP to a level: floor(sqrt(xp/100)) + 1.
func LevelForXP(xp int64) int {
	if xp <= 0 {
		return 1
	}
	return int(isqrt(xp/xpPerLevelUnit)) + 1
}

// XPThreshold returns the cumulative XP at which level n+1 is reached.
func XPThreshold(level int) int64 {
	n := int64(level)
	return n * n * xpPerLevelUnit
}

// XPLevelFloor returns the cumulative XP at which level n starts.
func XPLevelFloor(level int) int64 {
	if level <= 1 {
		return 0
	}
	return XPThreshold(level - 1)
}

// isqrt returns floor(sqrt(n)) without float rounding drift at perfect squares.
func isqrt(n int64) int64 {
	if n <= 0 {
		return 0
	}
	r := int64(math.Sqrt(float64(n)))
	for r*r > n {
		r--
	}
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}

// LevelProgress is the display view of a profile's position on the curve.
type LevelProgress struct {
	Level              int
	XPIntoLevel        int64
	XPForNextLevel     int64
	ProgressPercentage float64
}

// ProgressFor computes how far xp sits inside its current level.
func ProgressFor(xp int64) LevelProgress {
	level := LevelForXP(xp)
	floor := XPLevelFloor(level)
	span := XPThreshold(level) - floor

	into := xp - floor
	if into < 0 {
		into = 0
	}
	pct := 0.0
	if span > 0 {
		pct = math.Round(float64(into)/float64(span)*1000) / 10
	}
	return LevelProgress{
		Level:              level,
		XPIntoLevel:        into,
		XPForNextLevel:     span,
		ProgressPercentage: pct,
	}
}
