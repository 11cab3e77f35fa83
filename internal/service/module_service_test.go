package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firesafety/internal/models"
	"firesafety/internal/validation"
)

func quizInput() CreateModuleInput {
	return CreateModuleInput{
		Title:       "Kitchen Safety",
		Description: "Cooking without burning the house down",
		AgeGroup:    models.AgeGroupTeens,
		Difficulty:  models.DifficultyIntermediate,
		Content: models.NewGameContent(&models.QuizData{Questions: []models.QuizQuestion{
			{Question: "How do you put out a pan fire?", Options: []string{"Water", "Cover it with a lid"}, CorrectAnswer: 1},
		}}),
	}
}

func TestModuleCRUDRoundTrip(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	input := quizInput()

	created, err := env.modules.Create(ctx, admin, input)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := env.modules.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
	assert.Equal(t, input.Title, got.Title)
	assert.Equal(t, input.Content, got.Content)

	list, err := env.modules.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, env.modules.Delete(ctx, admin, created.ID))
	_, err = env.modules.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, env.modules.Delete(ctx, admin, created.ID), ErrNotFound)
}

func TestModuleCreateDefaults(t *testing.T) {
	env := newTestEnv(t)
	input := quizInput()
	input.AgeGroup = ""
	input.Difficulty = ""

	created, err := env.modules.Create(context.Background(), admin, input)
	require.NoError(t, err)
	assert.Equal(t, models.AgeGroupAll, created.AgeGroup)
	assert.Equal(t, models.DifficultyBeginner, created.Difficulty)
}

func TestModuleCreateValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		mutate func(in *CreateModuleInput)
		field  string
	}{
		{"missing title", func(in *CreateModuleInput) { in.Title = "" }, "title"},
		{"unknown difficulty", func(in *CreateModuleInput) { in.Difficulty = "expert" }, "difficulty"},
		{"unknown age group", func(in *CreateModuleInput) { in.AgeGroup = "toddlers" }, "ageGroup"},
		{"invalid content", func(in *CreateModuleInput) { in.Content = models.NewGameContent(&models.QuizData{}) }, "content"},
		{"missing content", func(in *CreateModuleInput) { in.Content = models.GameContent{} }, "content"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := quizInput()
			tt.mutate(&input)

			_, err := env.modules.Create(context.Background(), admin, input)
			require.Error(t, err)

			var errs validation.Errors
			require.True(t, errors.As(err, &errs), "got %v", err)
			fields := make([]string, 0, len(errs))
			for _, e := range errs {
				fields = append(fields, e.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestModuleAdminOnly(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	player := Caller{UserID: 2}
	created, err := env.modules.Create(ctx, admin, quizInput())
	require.NoError(t, err)

	_, err = env.modules.Create(ctx, player, quizInput())
	assert.ErrorIs(t, err, ErrUnauthorized)

	title := "Hacked"
	_, err = env.modules.Update(ctx, player, created.ID, models.GameModulePatch{Title: &title})
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.ErrorIs(t, env.modules.Delete(ctx, player, created.ID), ErrUnauthorized)

	got, err := env.modules.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kitchen Safety", got.Title)
}

func TestModuleUpdate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	created, err := env.modules.Create(ctx, admin, quizInput())
	require.NoError(t, err)

	title := "Kitchen Safety 2"
	difficulty := models.DifficultyAdvanced
	updated, err := env.modules.Update(ctx, admin, created.ID, models.GameModulePatch{Title: &title, Difficulty: &difficulty})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, created.Description, updated.Description)
	assert.Equal(t, models.DifficultyAdvanced, updated.Difficulty)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

	bad := models.Difficulty("impossible")
	_, err = env.modules.Update(ctx, admin, created.ID, models.GameModulePatch{Difficulty: &bad})
	assert.True(t, validation.IsValidationError(err))

	got, err := env.modules.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DifficultyAdvanced, got.Difficulty, "failed update must not persist")

	_, err = env.modules.Update(ctx, admin, created.ID+100, models.GameModulePatch{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)
}
