package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firesafety/internal/models"
	"firesafety/internal/validation"
)

func achievementNames(list []models.Achievement) []string {
	names := make([]string, 0, len(list))
	for _, a := range list {
		names = append(names, a.Name)
	}
	return names
}

func TestSubmitAwardsLevelAndScoreAchievements(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user := env.createUser(t, "sparky")
	env.createAchievement(t, "Level 3", models.AchievementLevel, 3)
	env.createAchievement(t, "High Score", models.AchievementScore, 90)
	env.createAchievement(t, "Two Done", models.AchievementCompletion, 2)

	res, err := env.progress.Submit(ctx, SubmitProgressInput{
		UserID:    user.ID,
		GameType:  "quiz",
		Score:     95,
		Completed: true,
		XPEarned:  intPtr(250),
	})
	require.NoError(t, err)

	assert.Equal(t, 250, res.User.XP)
	assert.Equal(t, 3, res.User.Level)
	assert.Equal(t, 95.0, res.User.Score)
	assert.Equal(t, 2*AchievementPoints, res.User.Points)
	assert.True(t, res.LeveledUp)
	assert.ElementsMatch(t, []string{"Level 3", "High Score"}, achievementNames(res.NewAchievements))
	assert.Len(t, res.Achievements, 2)
	assert.Equal(t, 250, res.Progress.XPEarned)

	module := env.createModule(t, "Second", models.DifficultyBeginner)
	res, err = env.progress.Submit(ctx, SubmitProgressInput{
		UserID:    user.ID,
		ModuleID:  idPtr(module.ID),
		Score:     10,
		Completed: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Two Done"}, achievementNames(res.NewAchievements))
	assert.Len(t, res.Achievements, 3)
	assert.Equal(t, 260, res.User.XP)
	assert.Equal(t, 3*AchievementPoints, res.User.Points)
	assert.False(t, res.LeveledUp)

	stored, err := env.store.Users.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Progress.Badges, 3)
	assert.Equal(t, 3, stored.Progress.CurrentLevel)
}

func TestSubmitReplayKeepsCompletedModulesASet(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user := env.createUser(t, "sparky")
	module := env.createModule(t, "Words", models.DifficultyBeginner)

	for i := 0; i < 2; i++ {
		_, err := env.progress.Submit(ctx, SubmitProgressInput{UserID: user.ID, ModuleID: idPtr(module.ID), Score: 40, Completed: true})
		require.NoError(t, err)
	}

	stored, err := env.store.Users.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{models.FormatID(module.ID)}, stored.Progress.CompletedModules)
	assert.Equal(t, 80, stored.XP, "replays still earn XP")

	records, err := env.progress.ListForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, string(models.ContentWordScramble), records[0].GameType)
}

func TestSubmitZeroScoreLeavesStatsUnchanged(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user := env.createUser(t, "sparky")

	_, err := env.progress.Submit(ctx, SubmitProgressInput{UserID: user.ID, GameType: "quiz", Score: 150, XPEarned: intPtr(150)})
	require.NoError(t, err)

	tests := []struct {
		name     string
		xpEarned *int
	}{
		{"zero override", intPtr(0)},
		{"negative override", intPtr(-40)},
		{"computed", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := env.progress.Submit(ctx, SubmitProgressInput{UserID: user.ID, GameType: "quiz", Score: 0, XPEarned: tt.xpEarned})
			require.NoError(t, err)
			assert.Equal(t, 150, res.User.XP)
			assert.Equal(t, 2, res.User.Level)
			assert.Equal(t, 0, res.Progress.XPEarned)
		})
	}
}

func TestSubmitUsesModuleDifficulty(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user := env.createUser(t, "sparky")
	module := env.createModule(t, "Hard", models.DifficultyAdvanced)

	res, err := env.progress.Submit(ctx, SubmitProgressInput{UserID: user.ID, ModuleID: idPtr(module.ID), Score: 80, Completed: true})
	require.NoError(t, err)

	assert.Equal(t, 120, res.Progress.XPEarned)
	assert.Equal(t, 120, res.User.XP)
	assert.Equal(t, 2, res.User.Level)
}

func TestSubmitIncompleteAttempt(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user := env.createUser(t, "sparky")
	env.createAchievement(t, "Rookie", models.AchievementCompletion, 1)

	res, err := env.progress.Submit(ctx, SubmitProgressInput{UserID: user.ID, GameType: "crossword", Score: 30})
	require.NoError(t, err)

	assert.Empty(t, res.NewAchievements)
	assert.Equal(t, 30.0, res.User.Score)

	stored, err := env.store.Users.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Progress.CompletedModules)
	assert.Empty(t, stored.Progress.DailyChallenges)
}

func TestSubmitErrors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user := env.createUser(t, "sparky")

	tests := []struct {
		name         string
		input        SubmitProgressInput
		wantNotFound bool
	}{
		{"unknown user", SubmitProgressInput{UserID: 99, GameType: "quiz", Score: 10}, true},
		{"unknown module", SubmitProgressInput{UserID: user.ID, ModuleID: idPtr(42), Score: 10}, true},
		{"negative score", SubmitProgressInput{UserID: user.ID, GameType: "quiz", Score: -1}, false},
		{"no module or game type", SubmitProgressInput{UserID: user.ID, Score: 10}, false},
		{"unknown game type", SubmitProgressInput{UserID: user.ID, GameType: "snake", Score: 10}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.progress.Submit(ctx, tt.input)
			require.Error(t, err)
			if tt.wantNotFound {
				assert.ErrorIs(t, err, ErrNotFound)
			} else {
				assert.True(t, validation.IsValidationError(err), "got %v", err)
			}
		})
	}

	records, err := env.progress.ListForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSubmitRecordsOneDailyChallengePerDay(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user := env.createUser(t, "sparky")
	env.createAchievement(t, "Daily Guardian", models.AchievementDailyChallenge, 5)

	day := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	var res *SubmitProgressResult
	for i := 0; i < 5; i++ {
		current := day.AddDate(0, 0, i)
		env.progress.now = func() time.Time { return current }
		for j := 0; j < 2; j++ {
			var err error
			res, err = env.progress.Submit(ctx, SubmitProgressInput{UserID: user.ID, GameType: "quiz", Score: 5, Completed: true})
			require.NoError(t, err)
		}
	}

	assert.Equal(t, []string{"Daily Guardian"}, achievementNames(res.NewAchievements))

	stored, err := env.store.Users.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, stored.Progress.DailyChallenges, 5)
	assert.Equal(t, "2024-03-05", stored.Progress.DailyChallenges[4].Date)
}

func TestSubmitConcurrentUpdatesAreNotLost(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user := env.createUser(t, "sparky")
	env.createAchievement(t, "Rookie", models.AchievementCompletion, 1)

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.progress.Submit(ctx, SubmitProgressInput{UserID: user.ID, GameType: "quiz", Score: 10, Completed: true})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := env.store.Users.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, n*10, stored.XP)
	assert.Equal(t, float64(n*10), stored.Score)
	assert.Equal(t, LevelForXP(n*10), stored.Level)
	assert.Equal(t, AchievementPoints, stored.Points)
	assert.Zero(t, env.progress.locks.size())
}

func TestSubmitFailedStatsWriteLeavesNoRecord(t *testing.T) {
	ctx := context.Background()
	env, flaky := newFlakyEnv(t)
	u := env.createUser(t, "sam")
	m := env.createModule(t, "Flames", models.DifficultyBeginner)
	env.createAchievement(t, "Rookie", models.AchievementCompletion, 1)

	flaky.failRecord = 1
	input := SubmitProgressInput{UserID: u.ID, ModuleID: idPtr(m.ID), Score: 10, Completed: true}
	_, err := env.progress.Submit(ctx, input)
	require.ErrorIs(t, err, ErrConflict)

	records, err := env.progress.ListForUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
	stored, err := env.store.Users.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.XP)
	assert.Empty(t, stored.Progress.CompletedModules)

	res, err := env.progress.Submit(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, 10, res.User.XP)
	assert.Equal(t, 10, res.User.Points)
	require.Len(t, res.NewAchievements, 1)

	records, err = env.progress.ListForUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	completed, err := env.store.Progress.CountCompleted(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, completed)
}

func TestSubmitGrantsMissedAchievementOnNextAttempt(t *testing.T) {
	ctx := context.Background()
	env, flaky := newFlakyEnv(t)
	u := env.createUser(t, "sam")
	env.createAchievement(t, "Rookie", models.AchievementCompletion, 1)

	flaky.failGrant = 1
	input := SubmitProgressInput{UserID: u.ID, GameType: "quiz", Score: 20, Completed: true}
	res, err := env.progress.Submit(ctx, input)
	require.NoError(t, err)
	assert.Empty(t, res.NewAchievements)
	assert.Equal(t, 0, res.User.Points)
	assert.Equal(t, 20, res.User.XP)

	res, err = env.progress.Submit(ctx, input)
	require.NoError(t, err)
	require.Len(t, res.NewAchievements, 1)
	assert.Equal(t, 10, res.User.Points)
	assert.Len(t, res.Achievements, 1)
}
