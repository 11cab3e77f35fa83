package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleDataIsValid(t *testing.T) {
	for _, m := range SampleModules() {
		t.Run(m.Title, func(t *testing.T) {
			assert.NoError(t, validateModule(&m))
		})
	}
	for _, a := range DefaultAchievements() {
		assert.NotEmpty(t, a.Name)
		assert.Positive(t, a.Requirement)
	}
}

func TestSeedOnlyFillsEmptyCatalogs(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	result, err := env.seed.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(SampleModules()), result.Modules)
	assert.Equal(t, len(DefaultAchievements()), result.Achievements)

	result, err = env.seed.Seed(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Modules)
	assert.Zero(t, result.Achievements)

	modules, err := env.modules.List(ctx)
	require.NoError(t, err)
	require.Len(t, modules, len(SampleModules()))
	assert.Equal(t, "Fire Safety Basics", modules[0].Title)
}
