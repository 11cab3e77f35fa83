package models

import (
	"fmt"
	"time"
)

// AchievementType selects the rule used to evaluate an achievement
type AchievementType string

const (
	AchievementLevel          AchievementType = "level"
	AchievementScore          AchievementType = "score"
	AchievementCompletion     AchievementType = "completion"
	AchievementDailyChallenge AchievementType = "dailyChallenge"
)

// ParseAchievementType validates a rule tag
func ParseAchievementType(s string) (AchievementType, error) {
	switch t := AchievementType(s); t {
	case AchievementLevel, AchievementScore, AchievementCompletion, AchievementDailyChallenge:
		return t, nil
	}
	return "", fmt.Errorf("unknown achievement type %q", s)
}

// Achievement is a threshold rule awarded at most once per user
type Achievement struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Type        AchievementType `json:"type"`
	Requirement float64         `json:"requirement"`
	BadgeURL    string          `json:"badgeUrl,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Badge converts the achievement into the record shown on the profile
func (a *Achievement) Badge(earnedAt time.Time) Badge {
	return Badge{
		ID:          FormatID(a.ID),
		Name:        a.Name,
		Description: a.Description,
		DateEarned:  earnedAt.UTC().Format(time.RFC3339),
	}
}

// UserAchievement joins a user to an earned achievement
type UserAchievement struct {
	UserID        int64     `json:"userId"`
	AchievementID int64     `json:"achievementId"`
	EarnedAt      time.Time `json:"earnedAt"`
}

// EarnedAchievement is an achievement together with its award time
type EarnedAchievement struct {
	Achievement
	EarnedAt time.Time `json:"earnedAt"`
}
