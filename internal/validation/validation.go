package validation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Username and password limits
const (
	MinUsernameLength = 3
	MaxUsernameLength = 32
	MinPasswordLength = 6
)

// blockedWords may not appear in usernames shown on leaderboards to children
var blockedWords = []string{
	"admin", "root", "moderator", "damn", "crap", "stupid", "idiot", "kill",
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Errors aggregates several field errors
type Errors []ValidationError

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Error()
	}
	return strings.Join(msgs, "; ")
}

// IsValidationError reports whether err carries field validation failures
func IsValidationError(err error) bool {
	var single ValidationError
	var many Errors
	return errors.As(err, &single) || errors.As(err, &many)
}

// ValidateUsername checks length, characters and the blocked-word list
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ValidationError{Field: "username", Message: "username is required"}
	}
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return ValidationError{Field: "username", Message: fmt.Sprintf("username must be %d-%d characters", MinUsernameLength, MaxUsernameLength)}
	}
	if !usernameRegex.MatchString(username) {
		return ValidationError{Field: "username", Message: "username may only contain letters, digits, '_', '.' and '-'"}
	}
	if ContainsBlockedWord(username) {
		return ValidationError{Field: "username", Message: "username is not allowed"}
	}
	return nil
}

// ContainsBlockedWord reports whether s contains a blocked word, ignoring case
func ContainsBlockedWord(s string) bool {
	lower := strings.ToLower(s)
	for _, w := range blockedWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}
	if len(password) < MinPasswordLength {
		return ValidationError{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", MinPasswordLength)}
	}
	return nil
}

// ValidateScore checks that a submitted score is a finite non-negative number
func ValidateScore(score float64) error {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return ValidationError{Field: "score", Message: "score must be a number"}
	}
	if score < 0 {
		return ValidationError{Field: "score", Message: "score must not be negative"}
	}
	return nil
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Struct validates a request struct by its `validate` tags and converts
// failures into Errors keyed by JSON field name
func Struct(v interface{}) error {
	err := structValidator().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := make(Errors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{Field: fe.Field(), Message: describe(fe)})
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}
