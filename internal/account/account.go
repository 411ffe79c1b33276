// Package account provides user identity management.
package account

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	apperrors "github.com/saveurhq/tastebook/internal/platform/errors"
	"github.com/saveurhq/tastebook/internal/platform/i18n"
	"github.com/saveurhq/tastebook/internal/platform/id"
)

var (
	// ErrEmptyUsername indicates a missing username.
	ErrEmptyUsername = apperrors.New(apperrors.CodeAccountEmptyUsername, "username is required")
	// ErrInvalidUsername indicates a username that does not match the required format.
	ErrInvalidUsername = apperrors.New(apperrors.CodeAccountInvalidUsername, "username must be 3-32 lowercase alphanumeric, dot, dash, or underscore characters")
	// ErrInvalidEmail indicates a syntactically invalid email address.
	ErrInvalidEmail = apperrors.New(apperrors.CodeAccountInvalidEmail, "email address is invalid")
	// ErrWeakPassword indicates a password below the minimum length.
	ErrWeakPassword = apperrors.New(apperrors.CodeAccountWeakPassword, "password must be at least 8 characters")
	// ErrAlreadyExists indicates a username or email collision.
	ErrAlreadyExists = apperrors.New(apperrors.CodeAccountExists, "username or email is already taken")
	// ErrBadCredentials indicates a failed login attempt.
	ErrBadCredentials = apperrors.New(apperrors.CodeAccountBadCredentials, "invalid username or password")

	usernamePattern = regexp.MustCompile(`^[a-z0-9_.\-]{3,32}$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// User represents an authenticated identity record.
type User struct {
	ID           string
	Username     string
	Email        string
	DisplayName  string
	Locale       string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Preferences stores per-user dietary context folded into AI prompts.
type Preferences struct {
	Dietary   []string
	Allergens []string
}

// CreateUserInput describes the metadata needed to create a user.
type CreateUserInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
	Locale      string
}

// ValidateUsername enforces canonical username constraints used across
// login, recipe ownership, and export attribution.
func ValidateUsername(s string) error {
	if !usernamePattern.MatchString(s) {
		return ErrInvalidUsername
	}
	return nil
}

// NormalizeCreateUserInput trims and normalizes input before validation.
func NormalizeCreateUserInput(input CreateUserInput) (CreateUserInput, error) {
	input.Username = strings.ToLower(strings.TrimSpace(input.Username))
	if input.Username == "" {
		return CreateUserInput{}, ErrEmptyUsername
	}
	if err := ValidateUsername(input.Username); err != nil {
		return CreateUserInput{}, err
	}

	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if !emailPattern.MatchString(input.Email) {
		return CreateUserInput{}, ErrInvalidEmail
	}

	if len(input.Password) < 8 {
		return CreateUserInput{}, ErrWeakPassword
	}

	input.DisplayName = strings.TrimSpace(input.DisplayName)
	if input.DisplayName == "" {
		input.DisplayName = input.Username
	}

	tag, _ := i18n.ParseTag(input.Locale)
	input.Locale = tag.String()
	return input, nil
}

// CreateUser creates a durable user identity from validated input.
//
// This is the canonical point where untrusted registration data becomes a
// stable identity used by auth, recipes, and shopping list paths.
func CreateUser(input CreateUserInput, now func() time.Time, idGenerator func() (string, error)) (User, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateUserInput(input)
	if err != nil {
		return User{}, err
	}

	userID, err := idGenerator()
	if err != nil {
		return User{}, fmt.Errorf("generate user id: %w", err)
	}

	passwordHash, err := HashPassword(normalized.Password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	createdAt := now().UTC()
	return User{
		ID:           userID,
		Username:     normalized.Username,
		Email:        normalized.Email,
		DisplayName:  normalized.DisplayName,
		Locale:       normalized.Locale,
		PasswordHash: passwordHash,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}, nil
}

// NormalizePreferences lowercases, dedupes, and sorts preference lists.
func NormalizePreferences(prefs Preferences) Preferences {
	return Preferences{
		Dietary:   normalizeTerms(prefs.Dietary),
		Allergens: normalizeTerms(prefs.Allergens),
	}
}

func normalizeTerms(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		out = append(out, term)
	}
	sort.Strings(out)
	return out
}
