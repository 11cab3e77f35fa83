package service

import (
	"math"

	"firesafety/internal/models"
)

// XPPerLevel is the XP needed to advance one level
const XPPerLevel = 100

// LevelForXP derives the level from accumulated XP. Level 1 is the floor.
func LevelForXP(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/XPPerLevel + 1
}

// DifficultyMultiplier returns the XP weight for a module difficulty
func DifficultyMultiplier(d models.Difficulty) float64 {
	switch d {
	case models.DifficultyIntermediate:
		return 1.25
	case models.DifficultyAdvanced:
		return 1.5
	default:
		return 1.0
	}
}

// XPForAttempt converts an attempt score to XP, never negative
func XPForAttempt(score float64, d models.Difficulty) int {
	xp := math.Floor(score * DifficultyMultiplier(d))
	if xp <= 0 || math.IsNaN(xp) {
		return 0
	}
	if xp > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(xp)
}

// LevelProgress describes where a user stands within the current level
type LevelProgress struct {
	Level        int     `json:"level"`
	CurrentXP    int     `json:"currentXp"`
	LevelStartXP int     `json:"levelStartXp"`
	NextLevelXP  int     `json:"nextLevelXp"`
	Fraction     float64 `json:"fraction"`
}

// ProgressToNextLevel reports the XP window of the user's current level
func ProgressToNextLevel(xp int) LevelProgress {
	if xp < 0 {
		xp = 0
	}
	level := LevelForXP(xp)
	start := (level - 1) * XPPerLevel
	return LevelProgress{
		Level:        level,
		CurrentXP:    xp,
		LevelStartXP: start,
		NextLevelXP:  start + XPPerLevel,
		Fraction:     float64(xp-start) / XPPerLevel,
	}
}
