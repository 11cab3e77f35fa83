package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"firesafety/internal/logger"
	"firesafety/internal/models"
	"firesafety/internal/repository"
	"firesafety/internal/validation"
)

// AchievementPoints is the points bonus granted once per earned achievement
const AchievementPoints = 10

// AchievementService manages the catalog and awards achievements
type AchievementService struct {
	users        repository.Users
	achievements repository.Achievements
	log          *logger.Logger
	now          func() time.Time
}

// NewAchievementService creates a new achievement service
func NewAchievementService(users repository.Users, achievements repository.Achievements, log *logger.Logger) *AchievementService {
	return &AchievementService{
		users:        users,
		achievements: achievements,
		log:          log.With("service", "AchievementService"),
		now:          time.Now,
	}
}

// CreateAchievementInput holds the fields of a new catalog entry
type CreateAchievementInput struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description string  `json:"description" validate:"max=500"`
	Type        string  `json:"type" validate:"required"`
	Requirement float64 `json:"requirement" validate:"gte=0"`
	BadgeURL    string  `json:"badgeUrl" validate:"omitempty,max=512"`
}

// EvaluationState is the user state an achievement rule is checked against
type EvaluationState struct {
	Level           int
	CompletedCount  int
	DailyChallenges int
	// AttemptScore is set only when evaluating right after a submission
	AttemptScore *float64
}

// Satisfies reports whether state meets the achievement's rule
func Satisfies(a models.Achievement, state EvaluationState) bool {
	switch a.Type {
	case models.AchievementLevel:
		return float64(state.Level) >= a.Requirement
	case models.AchievementScore:
		return state.AttemptScore != nil && *state.AttemptScore >= a.Requirement
	case models.AchievementCompletion:
		return float64(state.CompletedCount) >= a.Requirement
	case models.AchievementDailyChallenge:
		return float64(state.DailyChallenges) >= a.Requirement
	default:
		return false
	}
}

// Evaluate returns the catalog entries satisfied by state
func Evaluate(catalog []models.Achievement, state EvaluationState) []models.Achievement {
	var met []models.Achievement
	for _, a := range catalog {
		if Satisfies(a, state) {
			met = append(met, a)
		}
	}
	return met
}

// List returns the whole catalog
func (s *AchievementService) List(ctx context.Context) ([]models.Achievement, error) {
	list, err := s.achievements.GetAllAchievements(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	if list == nil {
		list = []models.Achievement{}
	}
	return list, nil
}

// Create adds an achievement to the catalog. Admin only.
func (s *AchievementService) Create(ctx context.Context, caller Caller, input CreateAchievementInput) (*models.Achievement, error) {
	if err := caller.requireAdmin(); err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	achType, err := models.ParseAchievementType(input.Type)
	if err != nil {
		return nil, validation.ValidationError{Field: "type", Message: err.Error()}
	}

	a, err := s.achievements.CreateAchievement(ctx, &models.Achievement{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Type:        achType,
		Requirement: input.Requirement,
		BadgeURL:    input.BadgeURL,
		CreatedAt:   s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create achievement: %w", err)
	}
	s.log.Info("achievement created", "achievement_id", a.ID, "type", a.Type)
	return a, nil
}

// ListForUser returns the achievements a user has earned, oldest first
func (s *AchievementService) ListForUser(ctx context.Context, userID int64) ([]models.EarnedAchievement, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}

	awards, err := s.achievements.GetUserAchievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user achievements: %w", err)
	}
	catalog, err := s.achievements.GetAllAchievements(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	byID := make(map[int64]models.Achievement, len(catalog))
	for _, a := range catalog {
		byID[a.ID] = a
	}

	earned := make([]models.EarnedAchievement, 0, len(awards))
	for _, ua := range awards {
		a, ok := byID[ua.AchievementID]
		if !ok {
			continue
		}
		earned = append(earned, models.EarnedAchievement{Achievement: a, EarnedAt: ua.EarnedAt})
	}
	return earned, nil
}

// Award grants one achievement to a user. Awarding twice is a silent no-op
// and the points bonus is applied only on the first award.
func (s *AchievementService) Award(ctx context.Context, userID, achievementID int64) (bool, error) {
	a, err := s.achievements.GetAchievementByID(ctx, achievementID)
	if err != nil {
		return false, fmt.Errorf("failed to get achievement: %w", err)
	}
	if a == nil {
		return false, fmt.Errorf("achievement %d: %w", achievementID, ErrNotFound)
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return false, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}

	awarded, _, err := s.awardAll(ctx, userID, []models.Achievement{*a})
	if err != nil {
		return false, err
	}
	return len(awarded) == 1, nil
}

// awardAll grants every candidate the user does not hold yet and credits
// points and badges for them in the same write. It returns the newly earned
// achievements and the updated user, which is nil when nothing changed.
func (s *AchievementService) awardAll(ctx context.Context, userID int64, candidates []models.Achievement) ([]models.Achievement, *models.User, error) {
	if len(candidates) == 0 {
		return nil, nil, nil
	}
	earnedAt := s.now().UTC()

	byID := make(map[int64]models.Achievement, len(candidates))
	ids := make([]int64, 0, len(candidates))
	for _, a := range candidates {
		byID[a.ID] = a
		ids = append(ids, a.ID)
	}

	granted, user, err := s.users.GrantAchievements(ctx, userID, ids, earnedAt, func(u *models.User, granted []int64) error {
		for _, id := range granted {
			u.Points += AchievementPoints
			a := byID[id]
			u.Progress.AddBadge(a.Badge(earnedAt))
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to award achievements: %w", err)
	}
	if len(granted) == 0 {
		return nil, nil, nil
	}

	awarded := make([]models.Achievement, 0, len(granted))
	for _, id := range granted {
		a := byID[id]
		awarded = append(awarded, a)
		s.log.Info("achievement awarded", "user_id", userID, "achievement_id", a.ID, "name", a.Name)
	}
	return awarded, user, nil
}
