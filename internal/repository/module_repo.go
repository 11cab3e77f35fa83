package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"firesafety/internal/database"
	"firesafety/internal/models"
)

const moduleColumns = `id, title, description, age_group, difficulty, content_type, content, created_at, updated_at`

// ModuleRepository handles database operations for game modules
type ModuleRepository struct {
	db *database.DB
}

var _ Modules = (*ModuleRepository)(nil)

// NewModuleRepository creates a new module repository
func NewModuleRepository(db *database.DB) *ModuleRepository {
	return &ModuleRepository{db: db}
}

// CreateModule inserts a module and returns it with its id
func (r *ModuleRepository) CreateModule(ctx context.Context, m *models.GameModule) (*models.GameModule, error) {
	stored := m.Clone()
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	content, err := encodeContent(stored.Content)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO game_modules (title, description, age_group, difficulty, content_type, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		stored.Title, stored.Description, stored.AgeGroup, string(stored.Difficulty),
		string(stored.Content.Type), content, stored.CreatedAt, stored.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create module: %w", err)
	}
	stored.ID = id

	return stored, nil
}

// GetModuleByID retrieves a module by ID
func (r *ModuleRepository) GetModuleByID(ctx context.Context, id int64) (*models.GameModule, error) {
	return r.getModule(ctx, r.db, id)
}

func (r *ModuleRepository) getModule(ctx context.Context, q database.DBTX, id int64) (*models.GameModule, error) {
	m, err := scanModule(q.QueryRowContext(ctx, "SELECT "+moduleColumns+" FROM game_modules WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get module: %w", err)
	}
	return m, nil
}

// GetAllModules retrieves every module ordered by id
func (r *ModuleRepository) GetAllModules(ctx context.Context) ([]models.GameModule, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+moduleColumns+" FROM game_modules ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	defer rows.Close()

	modules := []models.GameModule{}
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan module: %w", err)
		}
		modules = append(modules, *m)
	}
	return modules, rows.Err()
}

// UpdateModule applies fn inside a transaction and persists the result
func (r *ModuleRepository) UpdateModule(ctx context.Context, id int64, fn func(m *models.GameModule) error) (*models.GameModule, error) {
	var updated *models.GameModule
	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		current, err := r.getModule(ctx, tx, id)
		if err != nil || current == nil {
			return err
		}

		next := current.Clone()
		if err := fn(next); err != nil {
			return err
		}
		next.ID = current.ID
		next.CreatedAt = current.CreatedAt
		next.UpdatedAt = time.Now().UTC()

		content, err := encodeContent(next.Content)
		if err != nil {
			return err
		}

		query := `
			UPDATE game_modules
			SET title = ?, description = ?, age_group = ?, difficulty = ?, content_type = ?, content = ?, updated_at = ?
			WHERE id = ?
		`
		if _, err := tx.ExecContext(ctx, query,
			next.Title, next.Description, next.AgeGroup, string(next.Difficulty),
			string(next.Content.Type), content, next.UpdatedAt, id); err != nil {
			return fmt.Errorf("failed to update module: %w", err)
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteModule removes a module and reports whether it existed
func (r *ModuleRepository) DeleteModule(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM game_modules WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete module: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete module: %w", err)
	}
	return affected > 0, nil
}

// RestoreModule writes a module row with its original id
func (r *ModuleRepository) RestoreModule(ctx context.Context, m *models.GameModule) error {
	content, err := encodeContent(m.Content)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO game_modules (id, title, description, age_group, difficulty, content_type, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query,
		m.ID, m.Title, m.Description, m.AgeGroup, string(m.Difficulty),
		string(m.Content.Type), content, m.CreatedAt, m.UpdatedAt); err != nil {
		return fmt.Errorf("failed to restore module %d: %w", m.ID, err)
	}
	return resetSequence(ctx, r.db, "game_modules")
}

// encodeContent stores only the payload; the tag lives in content_type
func encodeContent(c models.GameContent) (string, error) {
	data, err := json.Marshal(c.Payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode module content: %w", err)
	}
	return string(data), nil
}

func scanModule(row rowScanner) (*models.GameModule, error) {
	m := &models.GameModule{}
	var difficulty, contentType, content string
	err := row.Scan(
		&m.ID,
		&m.Title,
		&m.Description,
		&m.AgeGroup,
		&difficulty,
		&contentType,
		&content,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Difficulty = models.Difficulty(difficulty)

	m.Content, err = models.DecodeGameContent(contentType, []byte(content))
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of module %d: %w", m.ID, err)
	}
	return m, nil
}
