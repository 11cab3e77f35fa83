package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"firesafety/internal/database"
	"firesafety/internal/models"
)

// ProgressRepository stores the attempt log
type ProgressRepository struct {
	db *database.DB
}

var _ Progress = (*ProgressRepository)(nil)

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db *database.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// AppendProgress inserts an attempt record
func (r *ProgressRepository) AppendProgress(ctx context.Context, rec *models.ProgressRecord) (*models.ProgressRecord, error) {
	return appendProgress(ctx, r.db, rec)
}

func appendProgress(ctx context.Context, q database.DBTX, rec *models.ProgressRecord) (*models.ProgressRecord, error) {
	out := *rec
	if out.CompletedAt.IsZero() {
		out.CompletedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO progress (user_id, module_id, game_type, completed, score, xp_earned, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	id, err := q.ExecReturningID(ctx, query,
		out.UserID, nullableID(out.ModuleID), out.GameType, out.Completed, out.Score, out.XPEarned, out.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record progress: %w", err)
	}
	out.ID = id

	return &out, nil
}

// GetUserProgress retrieves a user's records oldest first
func (r *ProgressRepository) GetUserProgress(ctx context.Context, userID int64) ([]models.ProgressRecord, error) {
	query := `
		SELECT id, user_id, module_id, game_type, completed, score, xp_earned, completed_at
		FROM progress
		WHERE user_id = ?
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	defer rows.Close()

	var records []models.ProgressRecord
	for rows.Next() {
		var rec models.ProgressRecord
		var moduleID sql.NullInt64
		if err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&moduleID,
			&rec.GameType,
			&rec.Completed,
			&rec.Score,
			&rec.XPEarned,
			&rec.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		if moduleID.Valid {
			id := moduleID.Int64
			rec.ModuleID = &id
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountCompleted counts a user's completed attempts
func (r *ProgressRepository) CountCompleted(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM progress WHERE user_id = ? AND completed = ?", userID, true).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed progress: %w", err)
	}
	return count, nil
}

// RestoreProgress writes a record with its original id
func (r *ProgressRepository) RestoreProgress(ctx context.Context, rec *models.ProgressRecord) error {
	query := `
		INSERT INTO progress (id, user_id, module_id, game_type, completed, score, xp_earned, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.UserID, nullableID(rec.ModuleID), rec.GameType, rec.Completed, rec.Score, rec.XPEarned, rec.CompletedAt); err != nil {
		return fmt.Errorf("failed to restore progress %d: %w", rec.ID, err)
	}
	return resetSequence(ctx, r.db, "progress")
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}
