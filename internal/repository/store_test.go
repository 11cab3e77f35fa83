package repository_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firesafety/internal/database"
	"firesafety/internal/models"
	"firesafety/internal/repository"
	"firesafety/internal/repository/memory"
)

func newSQLiteStore(t *testing.T) repository.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping SQLite store test in short mode")
	}
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.RunMigrations(context.Background(), database.EmbeddedMigrations())
	require.NoError(t, err)

	return repository.NewSQLStore(db)
}

func stores(t *testing.T) map[string]func(t *testing.T) repository.Store {
	return map[string]func(t *testing.T) repository.Store{
		"memory": func(t *testing.T) repository.Store { return memory.NewStore().Repositories() },
		"sqlite": newSQLiteStore,
	}
}

func TestUsers(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			first, err := s.Users.CreateUser(ctx, models.NewUserInput{Username: "Chief", PasswordHash: "h"})
			require.NoError(t, err)
			assert.True(t, first.IsAdmin, "first user becomes admin")
			assert.Equal(t, 1, first.Level)
			assert.Equal(t, 1, first.Progress.CurrentLevel)
			assert.NotNil(t, first.Progress.CompletedModules)

			second, err := s.Users.CreateUser(ctx, models.NewUserInput{Username: "cadet", PasswordHash: "h"})
			require.NoError(t, err)
			assert.False(t, second.IsAdmin)

			notAdmin := false
			_, err = s.Users.CreateUser(ctx, models.NewUserInput{Username: "CHIEF", PasswordHash: "h", IsAdmin: &notAdmin})
			assert.ErrorIs(t, err, repository.ErrDuplicate)

			byName, err := s.Users.GetUserByUsername(ctx, "chief")
			require.NoError(t, err)
			require.NotNil(t, byName)
			assert.Equal(t, first.ID, byName.ID)

			missing, err := s.Users.GetUserByID(ctx, 999)
			require.NoError(t, err)
			assert.Nil(t, missing)

			count, err := s.Users.CountUsers(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, count)

			all, err := s.Users.GetAllUsers(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "Chief", all[0].Username)
		})
	}
}

func TestUpdateUserStats(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			u, err := s.Users.CreateUser(ctx, models.NewUserInput{Username: "sam", PasswordHash: "h"})
			require.NoError(t, err)

			updated, err := s.Users.UpdateUserStats(ctx, u.ID, func(u *models.User) error {
				u.XP += 150
				u.Level = 2
				u.Score += 95
				u.Progress.MarkCompleted("1")
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, 150, updated.XP)
			assert.Equal(t, u.Version+1, updated.Version)

			reloaded, err := s.Users.GetUserByID(ctx, u.ID)
			require.NoError(t, err)
			assert.Equal(t, 150, reloaded.XP)
			assert.Equal(t, 95.0, reloaded.Score)
			assert.Equal(t, []string{"1"}, reloaded.Progress.CompletedModules)

			missing, err := s.Users.UpdateUserStats(ctx, 999, func(u *models.User) error { return nil })
			require.NoError(t, err)
			assert.Nil(t, missing)
		})
	}
}

func TestConcurrentUpdateUserStatsLosesNothing(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore().Repositories()

	u, err := s.Users.CreateUser(ctx, models.NewUserInput{Username: "sam", PasswordHash: "h"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Users.UpdateUserStats(ctx, u.ID, func(u *models.User) error {
				u.XP += 10
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Users.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 500, got.XP)
}

func TestModules(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			created, err := s.Modules.CreateModule(ctx, &models.GameModule{
				Title:      "Fire Words",
				AgeGroup:   models.AgeGroupKids,
				Difficulty: models.DifficultyBeginner,
				Content:    models.NewGameContent(&models.WordScrambleData{Word: "ESCAPE", Hint: "leave"}),
			})
			require.NoError(t, err)
			assert.NotZero(t, created.ID)

			got, err := s.Modules.GetModuleByID(ctx, created.ID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, models.ContentWordScramble, got.Content.Type)
			assert.Equal(t, "ESCAPE", got.Content.Payload.(*models.WordScrambleData).Word)

			updated, err := s.Modules.UpdateModule(ctx, created.ID, func(m *models.GameModule) error {
				m.Title = "Escape Words"
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, "Escape Words", updated.Title)
			assert.Equal(t, "ESCAPE", updated.Content.Payload.(*models.WordScrambleData).Word)

			none, err := s.Modules.UpdateModule(ctx, 999, func(m *models.GameModule) error { return nil })
			require.NoError(t, err)
			assert.Nil(t, none)

			deleted, err := s.Modules.DeleteModule(ctx, created.ID)
			require.NoError(t, err)
			assert.True(t, deleted)

			deleted, err = s.Modules.DeleteModule(ctx, created.ID)
			require.NoError(t, err)
			assert.False(t, deleted)

			all, err := s.Modules.GetAllModules(ctx)
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestProgress(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			u, err := s.Users.CreateUser(ctx, models.NewUserInput{Username: "sam", PasswordHash: "h"})
			require.NoError(t, err)

			moduleID := int64(3)
			_, err = s.Progress.AppendProgress(ctx, &models.ProgressRecord{UserID: u.ID, ModuleID: &moduleID, GameType: "quiz", Completed: true, Score: 80, XPEarned: 80})
			require.NoError(t, err)
			_, err = s.Progress.AppendProgress(ctx, &models.ProgressRecord{UserID: u.ID, GameType: "crossword", Completed: false, Score: 10})
			require.NoError(t, err)

			records, err := s.Progress.GetUserProgress(ctx, u.ID)
			require.NoError(t, err)
			require.Len(t, records, 2)
			require.NotNil(t, records[0].ModuleID)
			assert.Equal(t, int64(3), *records[0].ModuleID)
			assert.Nil(t, records[1].ModuleID)
			assert.False(t, records[0].CompletedAt.IsZero())

			completed, err := s.Progress.CountCompleted(ctx, u.ID)
			require.NoError(t, err)
			assert.Equal(t, 1, completed)
		})
	}
}

func TestAchievements(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			u, err := s.Users.CreateUser(ctx, models.NewUserInput{Username: "sam", PasswordHash: "h"})
			require.NoError(t, err)

			a, err := s.Achievements.CreateAchievement(ctx, &models.Achievement{Name: "Rookie", Type: models.AchievementCompletion, Requirement: 1})
			require.NoError(t, err)

			earned := time.Now().UTC().Truncate(time.Second)
			created, err := s.Achievements.AwardAchievement(ctx, u.ID, a.ID, earned)
			require.NoError(t, err)
			assert.True(t, created)

			created, err = s.Achievements.AwardAchievement(ctx, u.ID, a.ID, earned.Add(time.Minute))
			require.NoError(t, err)
			assert.False(t, created, "second award is a no-op")

			awards, err := s.Achievements.GetUserAchievements(ctx, u.ID)
			require.NoError(t, err)
			require.Len(t, awards, 1)
			assert.Equal(t, a.ID, awards[0].AchievementID)
			assert.True(t, earned.Equal(awards[0].EarnedAt))

			all, err := s.Achievements.GetAllAchievements(ctx)
			require.NoError(t, err)
			require.Len(t, all, 1)
			assert.Equal(t, models.AchievementCompletion, all[0].Type)
		})
	}
}

func TestSessions(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			u, err := s.Users.CreateUser(ctx, models.NewUserInput{Username: "sam", PasswordHash: "h"})
			require.NoError(t, err)

			_, err = s.Sessions.CreateSession(ctx, "live", u.ID, time.Now().Add(time.Hour))
			require.NoError(t, err)
			_, err = s.Sessions.CreateSession(ctx, "stale", u.ID, time.Now().Add(-time.Hour))
			require.NoError(t, err)

			require.NoError(t, s.Sessions.DeleteExpiredSessions(ctx))

			live, err := s.Sessions.GetSession(ctx, "live")
			require.NoError(t, err)
			require.NotNil(t, live)
			assert.Equal(t, u.ID, live.UserID)

			stale, err := s.Sessions.GetSession(ctx, "stale")
			require.NoError(t, err)
			assert.Nil(t, stale)

			require.NoError(t, s.Sessions.DeleteSession(ctx, "live"))
			live, err = s.Sessions.GetSession(ctx, "live")
			require.NoError(t, err)
			assert.Nil(t, live)
		})
	}
}

func TestRecordAttempt(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			u, err := s.Users.CreateUser(ctx, models.NewUserInput{Username: "sam", PasswordHash: "h"})
			require.NoError(t, err)

			attempt := &models.ProgressRecord{UserID: u.ID, GameType: "quiz", Completed: true, Score: 40, XPEarned: 40}
			_, _, err = s.Users.RecordAttempt(ctx, attempt, func(u *models.User) error {
				u.XP += 40
				return repository.ErrConflict
			})
			require.ErrorIs(t, err, repository.ErrConflict)

			records, err := s.Progress.GetUserProgress(ctx, u.ID)
			require.NoError(t, err)
			assert.Empty(t, records, "failed update keeps the record out")
			unchanged, err := s.Users.GetUserByID(ctx, u.ID)
			require.NoError(t, err)
			assert.Equal(t, 0, unchanged.XP)

			saved, updated, err := s.Users.RecordAttempt(ctx, attempt, func(u *models.User) error {
				u.XP += 40
				return nil
			})
			require.NoError(t, err)
			require.NotNil(t, saved)
			assert.NotZero(t, saved.ID)
			assert.Equal(t, 40, updated.XP)
			assert.Equal(t, u.Version+1, updated.Version)

			records, err = s.Progress.GetUserProgress(ctx, u.ID)
			require.NoError(t, err)
			assert.Len(t, records, 1)

			saved, updated, err = s.Users.RecordAttempt(ctx, &models.ProgressRecord{UserID: 999}, func(u *models.User) error { return nil })
			require.NoError(t, err)
			assert.Nil(t, saved)
			assert.Nil(t, updated)
		})
	}
}

func TestGrantAchievements(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			u, err := s.Users.CreateUser(ctx, models.NewUserInput{Username: "sam", PasswordHash: "h"})
			require.NoError(t, err)
			first, err := s.Achievements.CreateAchievement(ctx, &models.Achievement{Name: "Rookie", Type: models.AchievementCompletion, Requirement: 1})
			require.NoError(t, err)
			second, err := s.Achievements.CreateAchievement(ctx, &models.Achievement{Name: "Scout", Type: models.AchievementCompletion, Requirement: 5})
			require.NoError(t, err)

			credit := func(u *models.User, granted []int64) error {
				u.Points += 10 * len(granted)
				return nil
			}
			earned := time.Now().UTC().Truncate(time.Second)

			_, _, err = s.Users.GrantAchievements(ctx, u.ID, []int64{first.ID}, earned, func(u *models.User, granted []int64) error {
				return repository.ErrConflict
			})
			require.ErrorIs(t, err, repository.ErrConflict)
			awards, err := s.Achievements.GetUserAchievements(ctx, u.ID)
			require.NoError(t, err)
			assert.Empty(t, awards, "failed credit keeps the award out")

			granted, updated, err := s.Users.GrantAchievements(ctx, u.ID, []int64{first.ID}, earned, credit)
			require.NoError(t, err)
			assert.Equal(t, []int64{first.ID}, granted)
			assert.Equal(t, 10, updated.Points)

			granted, updated, err = s.Users.GrantAchievements(ctx, u.ID, []int64{first.ID, second.ID}, earned, credit)
			require.NoError(t, err)
			assert.Equal(t, []int64{second.ID}, granted)
			assert.Equal(t, 20, updated.Points)

			called := false
			granted, updated, err = s.Users.GrantAchievements(ctx, u.ID, []int64{first.ID, second.ID}, earned, func(u *models.User, granted []int64) error {
				called = true
				return nil
			})
			require.NoError(t, err)
			assert.Empty(t, granted)
			assert.Nil(t, updated)
			assert.False(t, called)

			awards, err = s.Achievements.GetUserAchievements(ctx, u.ID)
			require.NoError(t, err)
			assert.Len(t, awards, 2)
			stored, err := s.Users.GetUserByID(ctx, u.ID)
			require.NoError(t, err)
			assert.Equal(t, 20, stored.Points)
		})
	}
}
