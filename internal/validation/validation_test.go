package validation

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"valid", "sparky", false},
		{"valid with punctuation", "fire_fighter-2.0", false},
		{"empty", "", true},
		{"too short", "ab", true},
		{"too long", "abcdefghijklmnopqrstuvwxyz0123456789", true},
		{"spaces", "fire fighter", true},
		{"blocked word", "SuperAdmin", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, IsValidationError(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "secret1", false},
		{"minimum length", "123456", false},
		{"too short", "12345", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
			}
		})
	}
}

func TestValidateScore(t *testing.T) {
	assert.NoError(t, ValidateScore(0))
	assert.NoError(t, ValidateScore(95.5))
	assert.Error(t, ValidateScore(-1))
	assert.Error(t, ValidateScore(math.NaN()))
	assert.Error(t, ValidateScore(math.Inf(1)))
}

type sampleRequest struct {
	Title      string  `json:"title" validate:"required"`
	Difficulty string  `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	Score      float64 `json:"score" validate:"gte=0"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(sampleRequest{Title: "ok", Difficulty: "advanced"}))

	err := Struct(sampleRequest{Difficulty: "expert", Score: -1})
	require.Error(t, err)

	var errs Errors
	require.True(t, errors.As(err, &errs))
	fields := map[string]string{}
	for _, e := range errs {
		fields[e.Field] = e.Message
	}
	assert.Equal(t, "is required", fields["title"])
	assert.Contains(t, fields["difficulty"], "one of")
	assert.Contains(t, fields, "score")
	assert.True(t, IsValidationError(err))
}
