package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"firesafety/internal/logger"
	"firesafety/internal/models"
	"firesafety/internal/repository"
)

// BackupVersion is the snapshot format written by Export
const BackupVersion = "1.0"

// ErrStoreNotEmpty is returned when importing into a store that already has users
var ErrStoreNotEmpty = errors.New("target store is not empty")

// BackupData represents the complete store snapshot
type BackupData struct {
	Version          string                   `json:"version"`
	ExportedAt       time.Time                `json:"exported_at"`
	Users            []UserBackup             `json:"users"`
	Modules          []models.GameModule      `json:"modules"`
	Achievements     []models.Achievement     `json:"achievements"`
	UserAchievements []models.UserAchievement `json:"user_achievements"`
	Progress         []models.ProgressRecord  `json:"progress"`
}

// UserBackup is a user record including the password hash
type UserBackup struct {
	models.User
	PasswordHash string `json:"password_hash"`
}

// BackupService handles snapshot export and restore
type BackupService struct {
	store repository.Store
	log   *logger.Logger
	now   func() time.Time
}

// NewBackupService creates a new backup service
func NewBackupService(store repository.Store, log *logger.Logger) *BackupService {
	return &BackupService{
		store: store,
		log:   log.With("service", "BackupService"),
		now:   time.Now,
	}
}

// Export writes a JSON snapshot of every collection except sessions
func (s *BackupService) Export(ctx context.Context, w io.Writer) (*BackupData, error) {
	backup := &BackupData{
		Version:          BackupVersion,
		ExportedAt:       s.now().UTC(),
		Users:            []UserBackup{},
		UserAchievements: []models.UserAchievement{},
		Progress:         []models.ProgressRecord{},
	}

	users, err := s.store.Users.GetAllUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export users: %w", err)
	}
	for _, u := range users {
		backup.Users = append(backup.Users, UserBackup{User: u, PasswordHash: u.PasswordHash})

		records, err := s.store.Progress.GetUserProgress(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to export progress for user %d: %w", u.ID, err)
		}
		backup.Progress = append(backup.Progress, records...)

		awards, err := s.store.Achievements.GetUserAchievements(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to export achievements for user %d: %w", u.ID, err)
		}
		backup.UserAchievements = append(backup.UserAchievements, awards...)
	}

	if backup.Modules, err = s.store.Modules.GetAllModules(ctx); err != nil {
		return nil, fmt.Errorf("failed to export modules: %w", err)
	}
	if backup.Achievements, err = s.store.Achievements.GetAllAchievements(ctx); err != nil {
		return nil, fmt.Errorf("failed to export achievements: %w", err)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}

	s.log.Info("store exported",
		"users", len(backup.Users),
		"modules", len(backup.Modules),
		"achievements", len(backup.Achievements),
		"awards", len(backup.UserAchievements),
		"progress", len(backup.Progress),
	)
	return backup, nil
}

// Import restores a snapshot into an empty store, keeping the original ids
func (s *BackupService) Import(ctx context.Context, r io.Reader) (*BackupData, error) {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != BackupVersion {
		return nil, fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	count, err := s.store.Users.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return nil, ErrStoreNotEmpty
	}

	s.log.Info("importing backup", "version", backup.Version, "exported_at", backup.ExportedAt)

	// Users and catalogs first, then the records that reference them
	for _, ub := range backup.Users {
		u := ub.User
		u.PasswordHash = ub.PasswordHash
		if err := s.store.Users.RestoreUser(ctx, &u); err != nil {
			return nil, fmt.Errorf("failed to import user %d: %w", u.ID, err)
		}
	}
	for i := range backup.Modules {
		if err := s.store.Modules.RestoreModule(ctx, &backup.Modules[i]); err != nil {
			return nil, fmt.Errorf("failed to import module %d: %w", backup.Modules[i].ID, err)
		}
	}
	for i := range backup.Achievements {
		if err := s.store.Achievements.RestoreAchievement(ctx, &backup.Achievements[i]); err != nil {
			return nil, fmt.Errorf("failed to import achievement %d: %w", backup.Achievements[i].ID, err)
		}
	}
	for _, ua := range backup.UserAchievements {
		if _, err := s.store.Achievements.AwardAchievement(ctx, ua.UserID, ua.AchievementID, ua.EarnedAt); err != nil {
			return nil, fmt.Errorf("failed to import award %d/%d: %w", ua.UserID, ua.AchievementID, err)
		}
	}
	for i := range backup.Progress {
		if err := s.store.Progress.RestoreProgress(ctx, &backup.Progress[i]); err != nil {
			return nil, fmt.Errorf("failed to import progress %d: %w", backup.Progress[i].ID, err)
		}
	}

	s.log.Info("backup imported", "users", len(backup.Users), "modules", len(backup.Modules))
	return &backup, nil
}
