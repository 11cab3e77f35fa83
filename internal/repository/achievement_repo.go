package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"firesafety/internal/database"
	"firesafety/internal/models"
)

// AchievementRepository stores the achievement catalog and awards
type AchievementRepository struct {
	db *database.DB
}

var _ Achievements = (*AchievementRepository)(nil)

// NewAchievementRepository creates a new achievement repository
func NewAchievementRepository(db *database.DB) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// CreateAchievement inserts a catalog entry
func (r *AchievementRepository) CreateAchievement(ctx context.Context, a *models.Achievement) (*models.Achievement, error) {
	out := *a
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO achievements (name, description, type, requirement, badge_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		out.Name, out.Description, string(out.Type), out.Requirement, out.BadgeURL, out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create achievement: %w", err)
	}
	out.ID = id

	return &out, nil
}

// GetAchievementByID retrieves a catalog entry
func (r *AchievementRepository) GetAchievementByID(ctx context.Context, id int64) (*models.Achievement, error) {
	query := `
		SELECT id, name, description, type, requirement, badge_url, created_at
		FROM achievements
		WHERE id = ?
	`
	a, err := scanAchievement(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get achievement: %w", err)
	}
	return a, nil
}

// GetAllAchievements retrieves the catalog ordered by id
func (r *AchievementRepository) GetAllAchievements(ctx context.Context) ([]models.Achievement, error) {
	query := `
		SELECT id, name, description, type, requirement, badge_url, created_at
		FROM achievements
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	defer rows.Close()

	list := []models.Achievement{}
	for rows.Next() {
		a, err := scanAchievement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

// AwardAchievement inserts the award unless the pair already exists
func (r *AchievementRepository) AwardAchievement(ctx context.Context, userID, achievementID int64, earnedAt time.Time) (bool, error) {
	return insertAward(ctx, r.db, userID, achievementID, earnedAt)
}

func insertAward(ctx context.Context, q database.DBTX, userID, achievementID int64, earnedAt time.Time) (bool, error) {
	query := q.GetDialect().InsertIgnoreQuery("user_achievements", "user_id", "achievement_id", "earned_at")
	result, err := q.ExecContext(ctx, query, userID, achievementID, earnedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to award achievement: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to award achievement: %w", err)
	}
	return affected == 1, nil
}

// GetUserAchievements retrieves a user's awards ordered by award time
func (r *AchievementRepository) GetUserAchievements(ctx context.Context, userID int64) ([]models.UserAchievement, error) {
	query := `
		SELECT user_id, achievement_id, earned_at
		FROM user_achievements
		WHERE user_id = ?
		ORDER BY earned_at, achievement_id
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user achievements: %w", err)
	}
	defer rows.Close()

	var list []models.UserAchievement
	for rows.Next() {
		var ua models.UserAchievement
		if err := rows.Scan(&ua.UserID, &ua.AchievementID, &ua.EarnedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user achievement: %w", err)
		}
		list = append(list, ua)
	}
	return list, rows.Err()
}

// RestoreAchievement writes a catalog entry with its original id
func (r *AchievementRepository) RestoreAchievement(ctx context.Context, a *models.Achievement) error {
	query := `
		INSERT INTO achievements (id, name, description, type, requirement, badge_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query,
		a.ID, a.Name, a.Description, string(a.Type), a.Requirement, a.BadgeURL, a.CreatedAt); err != nil {
		return fmt.Errorf("failed to restore achievement %d: %w", a.ID, err)
	}
	return resetSequence(ctx, r.db, "achievements")
}

func scanAchievement(row rowScanner) (*models.Achievement, error) {
	a := &models.Achievement{}
	var achType string
	if err := row.Scan(&a.ID, &a.Name, &a.Description, &achType, &a.Requirement, &a.BadgeURL, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Type = models.AchievementType(achType)
	return a, nil
}
