package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"firesafety/internal/logger"
	"firesafety/internal/models"
	"firesafety/internal/repository"
	"firesafety/internal/repository/memory"
	"firesafety/internal/security"
)

type testEnv struct {
	store        repository.Store
	auth         *AuthService
	modules      *ModuleService
	achievements *AchievementService
	progress     *ProgressService
	seed         *SeedService
	backup       *BackupService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.NewNop()
	store := memory.NewStore().Repositories()
	achievements := NewAchievementService(store.Users, store.Achievements, log)
	return &testEnv{
		store:        store,
		auth:         NewAuthService(store.Users, store.Sessions, security.NewTokenIssuer("test-secret", time.Hour), time.Hour, log),
		modules:      NewModuleService(store.Modules, log),
		achievements: achievements,
		progress:     NewProgressService(store, achievements, log),
		seed:         NewSeedService(store.Modules, store.Achievements, log),
		backup:       NewBackupService(store, log),
	}
}

func (e *testEnv) createUser(t *testing.T, username string) *models.User {
	t.Helper()
	u, err := e.store.Users.CreateUser(context.Background(), models.NewUserInput{Username: username, PasswordHash: "x"})
	require.NoError(t, err)
	return u
}

func (e *testEnv) createAchievement(t *testing.T, name string, typ models.AchievementType, req float64) *models.Achievement {
	t.Helper()
	a, err := e.store.Achievements.CreateAchievement(context.Background(), &models.Achievement{Name: name, Type: typ, Requirement: req})
	require.NoError(t, err)
	return a
}

func (e *testEnv) createModule(t *testing.T, title string, difficulty models.Difficulty) *models.GameModule {
	t.Helper()
	m, err := e.store.Modules.CreateModule(context.Background(), &models.GameModule{
		Title:      title,
		AgeGroup:   models.AgeGroupAll,
		Difficulty: difficulty,
		Content:    models.NewGameContent(&models.WordScrambleData{Word: "FLAME", Hint: "part of a fire"}),
	})
	require.NoError(t, err)
	return m
}

func intPtr(v int) *int    { return &v }
func idPtr(v int64) *int64 { return &v }

var admin = Caller{UserID: 1, IsAdmin: true}

// flakyUsers runs the caller's update and then reports a lost write race for
// the next failRecord attempts and failGrant grants. The store must then
// discard everything the update produced.
type flakyUsers struct {
	repository.Users
	failRecord int
	failGrant  int
}

func (f *flakyUsers) RecordAttempt(ctx context.Context, r *models.ProgressRecord, fn func(u *models.User) error) (*models.ProgressRecord, *models.User, error) {
	return f.Users.RecordAttempt(ctx, r, func(u *models.User) error {
		if err := fn(u); err != nil {
			return err
		}
		if f.failRecord > 0 {
			f.failRecord--
			return repository.ErrConflict
		}
		return nil
	})
}

func (f *flakyUsers) GrantAchievements(ctx context.Context, userID int64, ids []int64, earnedAt time.Time, fn func(u *models.User, granted []int64) error) ([]int64, *models.User, error) {
	return f.Users.GrantAchievements(ctx, userID, ids, earnedAt, func(u *models.User, granted []int64) error {
		if err := fn(u, granted); err != nil {
			return err
		}
		if f.failGrant > 0 {
			f.failGrant--
			return repository.ErrConflict
		}
		return nil
	})
}

// newFlakyEnv is newTestEnv with the progress and achievement services
// writing through flakyUsers
func newFlakyEnv(t *testing.T) (*testEnv, *flakyUsers) {
	t.Helper()
	env := newTestEnv(t)
	flaky := &flakyUsers{Users: env.store.Users}
	env.store.Users = flaky

	log := logger.NewNop()
	env.achievements = NewAchievementService(flaky, env.store.Achievements, log)
	env.progress = NewProgressService(env.store, env.achievements, log)
	return env, flaky
}
