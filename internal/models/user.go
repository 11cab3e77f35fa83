package models

import "time"

// User represents a registered player account
type User struct {
	ID           int64        `json:"id"`
	Username     string       `json:"username"`
	PasswordHash string       `json:"-"`
	IsAdmin      bool         `json:"isAdmin"`
	IsModerator  bool         `json:"isModerator"`
	Score        float64      `json:"score"`
	XP           int          `json:"xp"`
	Level        int          `json:"level"`
	Points       int          `json:"points"`
	Progress     UserProgress `json:"progress"`
	Version      int64        `json:"-"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// NewUserInput carries the fields supplied at registration
type NewUserInput struct {
	Username     string
	PasswordHash string
	// IsAdmin overrides the first-user bootstrap rule when set
	IsAdmin     *bool
	IsModerator bool
}

// UserStats is the projection returned after a progress submission
type UserStats struct {
	Level  int     `json:"level"`
	XP     int     `json:"xp"`
	Score  float64 `json:"score"`
	Points int     `json:"points"`
}

// Stats returns the user's aggregate counters
func (u *User) Stats() UserStats {
	return UserStats{
		Level:  u.Level,
		XP:     u.XP,
		Score:  u.Score,
		Points: u.Points,
	}
}

// Clone returns a deep copy of the user
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Progress = u.Progress.Clone()
	return &c
}

// Session represents an authenticated session
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
