package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/saveurhq/tastebook/internal/account"
	"github.com/saveurhq/tastebook/internal/storage"
)

// CreateUser inserts one user record.
func (s *Store) CreateUser(ctx context.Context, user account.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(user.ID) == "" {
		return fmt.Errorf("user id is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO users (
		   id, username, email, display_name, locale, password_hash, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.DisplayName,
		user.Locale,
		user.PasswordHash,
		toMillis(user.CreatedAt),
		toMillis(user.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUser loads one user by id.
func (s *Store) GetUser(ctx context.Context, id string) (account.User, error) {
	return s.getUser(ctx, "id", id)
}

// GetUserByUsername loads one user by canonical username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (account.User, error) {
	return s.getUser(ctx, "username", strings.ToLower(strings.TrimSpace(username)))
}

// GetUserByEmail loads one user by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (account.User, error) {
	return s.getUser(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

func (s *Store) getUser(ctx context.Context, column, value string) (account.User, error) {
	if err := ctx.Err(); err != nil {
		return account.User{}, err
	}
	if err := s.ready(); err != nil {
		return account.User{}, err
	}
	if value == "" {
		return account.User{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, username, email, display_name, locale, password_hash, created_at, updated_at
		 FROM users WHERE `+column+` = ?`,
		value,
	)
	var user account.User
	var createdAt, updatedAt int64
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.DisplayName,
		&user.Locale,
		&user.PasswordHash,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return account.User{}, storage.ErrNotFound
	}
	if err != nil {
		return account.User{}, fmt.Errorf("load user: %w", err)
	}
	user.CreatedAt = fromMillis(createdAt)
	user.UpdatedAt = fromMillis(updatedAt)
	return user, nil
}

// UpdateUser replaces the mutable fields of one user record.
func (s *Store) UpdateUser(ctx context.Context, user account.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE users
		 SET email = ?, display_name = ?, locale = ?, password_hash = ?, updated_at = ?
		 WHERE id = ?`,
		user.Email,
		user.DisplayName,
		user.Locale,
		user.PasswordHash,
		toMillis(user.UpdatedAt),
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("update user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetPreferences loads a user's dietary preferences. Users without stored
// preferences get the zero value.
func (s *Store) GetPreferences(ctx context.Context, userID string) (account.Preferences, error) {
	if err := ctx.Err(); err != nil {
		return account.Preferences{}, err
	}
	if err := s.ready(); err != nil {
		return account.Preferences{}, err
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT dietary, allergens FROM user_preferences WHERE user_id = ?`,
		userID,
	)
	var dietaryRaw, allergensRaw string
	err := row.Scan(&dietaryRaw, &allergensRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return account.Preferences{}, nil
	}
	if err != nil {
		return account.Preferences{}, fmt.Errorf("load preferences: %w", err)
	}

	var prefs account.Preferences
	if err := json.Unmarshal([]byte(dietaryRaw), &prefs.Dietary); err != nil {
		return account.Preferences{}, fmt.Errorf("decode dietary terms: %w", err)
	}
	if err := json.Unmarshal([]byte(allergensRaw), &prefs.Allergens); err != nil {
		return account.Preferences{}, fmt.Errorf("decode allergen terms: %w", err)
	}
	return prefs, nil
}

// PutPreferences inserts or replaces a user's dietary preferences.
func (s *Store) PutPreferences(ctx context.Context, userID string, prefs account.Preferences) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user id is required")
	}

	prefs = account.NormalizePreferences(prefs)
	dietaryRaw, err := json.Marshal(termsOrEmpty(prefs.Dietary))
	if err != nil {
		return fmt.Errorf("encode dietary terms: %w", err)
	}
	allergensRaw, err := json.Marshal(termsOrEmpty(prefs.Allergens))
	if err != nil {
		return fmt.Errorf("encode allergen terms: %w", err)
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO user_preferences (user_id, dietary, allergens)
		 VALUES (?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET dietary = excluded.dietary, allergens = excluded.allergens`,
		userID,
		string(dietaryRaw),
		string(allergensRaw),
	)
	if err != nil {
		return fmt.Errorf("store preferences: %w", err)
	}
	return nil
}

func termsOrEmpty(terms []string) []string {
	if terms == nil {
		return []string{}
	}
	return terms
}
