package models

import (
	"strconv"
	"time"
)

// Difficulty classifies how hard a module is
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Age groups used by the module catalog
const (
	AgeGroupAll    = "all"
	AgeGroupKids   = "kids"
	AgeGroupTeens  = "teens"
	AgeGroupAdults = "adults"
)

// Valid reports whether d is a known difficulty
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// GameModule is an admin-managed piece of game content
type GameModule struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	AgeGroup    string      `json:"ageGroup"`
	Difficulty  Difficulty  `json:"difficulty"`
	Content     GameContent `json:"content"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Clone returns a deep copy of the module
func (m *GameModule) Clone() *GameModule {
	if m == nil {
		return nil
	}
	c := *m
	c.Content = m.Content.Clone()
	return &c
}

// ApplyDefaults fills in the catalog defaults for optional fields
func (m *GameModule) ApplyDefaults() {
	if m.AgeGroup == "" {
		m.AgeGroup = AgeGroupAll
	}
	if m.Difficulty == "" {
		m.Difficulty = DifficultyBeginner
	}
}

// GameModulePatch holds the fields of a partial module update
type GameModulePatch struct {
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	AgeGroup    *string      `json:"ageGroup"`
	Difficulty  *Difficulty  `json:"difficulty"`
	Content     *GameContent `json:"content"`
}

// Apply merges the set fields into m
func (p GameModulePatch) Apply(m *GameModule) {
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.Description != nil {
		m.Description = *p.Description
	}
	if p.AgeGroup != nil {
		m.AgeGroup = *p.AgeGroup
	}
	if p.Difficulty != nil {
		m.Difficulty = *p.Difficulty
	}
	if p.Content != nil {
		m.Content = p.Content.Clone()
	}
}

// FormatID renders a numeric id the way the client stores it
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
