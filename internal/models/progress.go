package models

import (
	"slices"
	"time"
)

// DateLayout is the calendar-day format used for daily challenges
const DateLayout = "2006-01-02"

// UserProgress is the progress document embedded in every user.
// Its JSON shape is consumed directly by the web client.
type UserProgress struct {
	CompletedModules []string         `json:"completedModules"`
	Badges           []Badge          `json:"badges"`
	CurrentLevel     int              `json:"currentLevel"`
	DailyChallenges  []DailyChallenge `json:"dailyChallenges"`
	LastLoginDate    string           `json:"lastLoginDate"`
}

// Badge is the display record of an earned achievement
type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	DateEarned  string `json:"dateEarned"`
}

// DailyChallenge records the first completed module of a calendar day
type DailyChallenge struct {
	Date      string `json:"date"`
	Completed bool   `json:"completed"`
	ModuleID  string `json:"moduleId"`
}

// NewUserProgress returns the initial progress document
func NewUserProgress(now time.Time) UserProgress {
	return UserProgress{
		CompletedModules: []string{},
		Badges:           []Badge{},
		CurrentLevel:     1,
		DailyChallenges:  []DailyChallenge{},
		LastLoginDate:    now.UTC().Format(time.RFC3339),
	}
}

// HasCompleted reports whether ref is in the completed set
func (p *UserProgress) HasCompleted(ref string) bool {
	return slices.Contains(p.CompletedModules, ref)
}

// MarkCompleted adds ref to the completed set and reports whether it was new
func (p *UserProgress) MarkCompleted(ref string) bool {
	if ref == "" || p.HasCompleted(ref) {
		return false
	}
	p.CompletedModules = append(p.CompletedModules, ref)
	return true
}

// HasBadge reports whether a badge with the given id was already earned
func (p *UserProgress) HasBadge(id string) bool {
	for _, b := range p.Badges {
		if b.ID == id {
			return true
		}
	}
	return false
}

// AddBadge appends a badge unless one with the same id exists
func (p *UserProgress) AddBadge(b Badge) bool {
	if p.HasBadge(b.ID) {
		return false
	}
	p.Badges = append(p.Badges, b)
	return true
}

// RecordDailyChallenge stores the day's challenge if the day has none yet
func (p *UserProgress) RecordDailyChallenge(day time.Time, moduleRef string) bool {
	date := day.UTC().Format(DateLayout)
	for _, c := range p.DailyChallenges {
		if c.Date == date {
			return false
		}
	}
	p.DailyChallenges = append(p.DailyChallenges, DailyChallenge{
		Date:      date,
		Completed: true,
		ModuleID:  moduleRef,
	})
	return true
}

// CompletedDailyChallenges counts completed daily challenges
func (p *UserProgress) CompletedDailyChallenges() int {
	n := 0
	for _, c := range p.DailyChallenges {
		if c.Completed {
			n++
		}
	}
	return n
}

// Clone returns a deep copy with non-nil collections
func (p UserProgress) Clone() UserProgress {
	c := p
	c.CompletedModules = append([]string{}, p.CompletedModules...)
	c.Badges = append([]Badge{}, p.Badges...)
	c.DailyChallenges = append([]DailyChallenge{}, p.DailyChallenges...)
	return c
}

// ProgressRecord is an immutable log entry for one game attempt
type ProgressRecord struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	ModuleID    *int64    `json:"moduleId,omitempty"`
	GameType    string    `json:"gameType"`
	Completed   bool      `json:"completed"`
	Score       float64   `json:"score"`
	XPEarned    int       `json:"xpEarned"`
	CompletedAt time.Time `json:"completedAt"`
}

// ModuleRef returns the key stored in the completed-modules set
func (r *ProgressRecord) ModuleRef() string {
	if r.ModuleID != nil {
		return FormatID(*r.ModuleID)
	}
	return r.GameType
}
