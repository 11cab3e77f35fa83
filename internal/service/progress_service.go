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

// ProgressService turns finished game attempts into XP, levels and achievements
type ProgressService struct {
	users        repository.Users
	modules      repository.Modules
	progress     repository.Progress
	achievements *AchievementService
	locks        *userLocks
	log          *logger.Logger
	now          func() time.Time
}

// NewProgressService creates a new progress service
func NewProgressService(store repository.Store, achievements *AchievementService, log *logger.Logger) *ProgressService {
	return &ProgressService{
		users:        store.Users,
		modules:      store.Modules,
		progress:     store.Progress,
		achievements: achievements,
		locks:        newUserLocks(),
		log:          log.With("service", "ProgressService"),
		now:          time.Now,
	}
}

// SubmitProgressInput describes one finished game attempt. Either ModuleID
// or GameType identifies what was played.
type SubmitProgressInput struct {
	UserID    int64
	ModuleID  *int64
	GameType  string
	Score     float64
	Completed bool
	// XPEarned overrides the difficulty-weighted XP when set
	XPEarned *int
}

// SubmitProgressResult is returned to the client after a submission
type SubmitProgressResult struct {
	Progress        *models.ProgressRecord     `json:"progress"`
	User            models.UserStats           `json:"user"`
	Achievements    []models.EarnedAchievement `json:"achievements"`
	NewAchievements []models.Achievement       `json:"newAchievements"`
	LeveledUp       bool                       `json:"leveledUp"`
}

// Submit records an attempt and applies its effects to the user. Submissions
// for the same user are serialized.
func (s *ProgressService) Submit(ctx context.Context, input SubmitProgressInput) (*SubmitProgressResult, error) {
	if err := validation.ValidateScore(input.Score); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(input.UserID)
	defer unlock()

	user, err := s.users.GetUserByID(ctx, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", input.UserID, ErrNotFound)
	}

	gameType, difficulty, err := s.resolveTarget(ctx, input)
	if err != nil {
		return nil, err
	}

	xpEarned := XPForAttempt(input.Score, difficulty)
	if input.XPEarned != nil {
		xpEarned = max(*input.XPEarned, 0)
	}

	now := s.now().UTC()
	previousLevel := user.Level
	attempt := &models.ProgressRecord{
		UserID:      input.UserID,
		ModuleID:    input.ModuleID,
		GameType:    gameType,
		Completed:   input.Completed,
		Score:       input.Score,
		XPEarned:    xpEarned,
		CompletedAt: now,
	}
	ref := attempt.ModuleRef()
	record, user, err := s.users.RecordAttempt(ctx, attempt, func(u *models.User) error {
		u.Score += input.Score
		u.XP += xpEarned
		u.Level = LevelForXP(u.XP)
		u.Progress.CurrentLevel = u.Level
		if input.Completed {
			u.Progress.MarkCompleted(ref)
			u.Progress.RecordDailyChallenge(now, ref)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record progress: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", input.UserID, ErrNotFound)
	}

	completedCount, err := s.progress.CountCompleted(ctx, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to count completed modules: %w", err)
	}
	catalog, err := s.achievements.List(ctx)
	if err != nil {
		return nil, err
	}

	score := input.Score
	candidates := Evaluate(catalog, EvaluationState{
		Level:           user.Level,
		CompletedCount:  completedCount,
		DailyChallenges: user.Progress.CompletedDailyChallenges(),
		AttemptScore:    &score,
	})
	// The attempt is already stored, so a failed grant must not fail the
	// submission. Level, completion and daily rules re-fire on the next one.
	awarded, updated, err := s.achievements.awardAll(ctx, input.UserID, candidates)
	if err != nil {
		s.log.Warn("Failed to award achievements", "user_id", input.UserID, "error", err)
	}
	if updated != nil {
		user = updated
	}

	earned, err := s.achievements.ListForUser(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	s.log.Debug("progress submitted",
		"user_id", input.UserID,
		"module", ref,
		"score", input.Score,
		"xp_earned", xpEarned,
		"level", user.Level,
		"new_achievements", len(awarded),
	)

	if awarded == nil {
		awarded = []models.Achievement{}
	}
	return &SubmitProgressResult{
		Progress:        record,
		User:            user.Stats(),
		Achievements:    earned,
		NewAchievements: awarded,
		LeveledUp:       user.Level > previousLevel,
	}, nil
}

// resolveTarget looks up the played module, or checks the bare game type
func (s *ProgressService) resolveTarget(ctx context.Context, input SubmitProgressInput) (string, models.Difficulty, error) {
	if input.ModuleID != nil {
		module, err := s.modules.GetModuleByID(ctx, *input.ModuleID)
		if err != nil {
			return "", "", fmt.Errorf("failed to get module: %w", err)
		}
		if module == nil {
			return "", "", fmt.Errorf("module %d: %w", *input.ModuleID, ErrNotFound)
		}
		gameType := strings.TrimSpace(input.GameType)
		if gameType == "" {
			gameType = string(module.Content.Type)
		}
		return gameType, module.Difficulty, nil
	}

	gameType := strings.TrimSpace(input.GameType)
	if gameType == "" {
		return "", "", validation.ValidationError{Field: "moduleId", Message: "moduleId or gameType is required"}
	}
	if _, err := models.ParseContentType(gameType); err != nil {
		return "", "", validation.ValidationError{Field: "gameType", Message: err.Error()}
	}
	return gameType, models.DifficultyBeginner, nil
}

// ListForUser returns a user's attempt log, oldest first
func (s *ProgressService) ListForUser(ctx context.Context, userID int64) ([]models.ProgressRecord, error) {
	records, err := s.progress.GetUserProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	if records == nil {
		records = []models.ProgressRecord{}
	}
	return records, nil
}
