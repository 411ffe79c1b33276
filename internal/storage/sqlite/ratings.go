package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/saveurhq/tastebook/internal/rating"
	"github.com/saveurhq/tastebook/internal/storage"
)

// PutRating inserts or replaces one user's rating for a recipe.
// Re-rating keeps the original created_at.
func (s *Store) PutRating(ctx context.Context, r rating.Rating) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO ratings (recipe_id, user_id, value, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (recipe_id, user_id) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		r.RecipeID,
		r.UserID,
		r.Value,
		toMillis(r.CreatedAt),
		toMillis(r.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("store rating: %w", err)
	}
	return nil
}

// GetRating loads one user's rating for a recipe.
func (s *Store) GetRating(ctx context.Context, recipeID, userID string) (rating.Rating, error) {
	if err := ctx.Err(); err != nil {
		return rating.Rating{}, err
	}
	if err := s.ready(); err != nil {
		return rating.Rating{}, err
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT recipe_id, user_id, value, created_at, updated_at
		 FROM ratings WHERE recipe_id = ? AND user_id = ?`,
		recipeID, userID,
	)
	var r rating.Rating
	var createdAt, updatedAt int64
	err := row.Scan(&r.RecipeID, &r.UserID, &r.Value, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return rating.Rating{}, storage.ErrNotFound
	}
	if err != nil {
		return rating.Rating{}, fmt.Errorf("load rating: %w", err)
	}
	r.CreatedAt = fromMillis(createdAt)
	r.UpdatedAt = fromMillis(updatedAt)
	return r, nil
}

// DeleteRating removes one user's rating for a recipe.
func (s *Store) DeleteRating(ctx context.Context, recipeID, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`DELETE FROM ratings WHERE recipe_id = ? AND user_id = ?`,
		recipeID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete rating: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rating rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// RatingSummary aggregates the ratings for one recipe. A recipe with no
// ratings yields the zero summary.
func (s *Store) RatingSummary(ctx context.Context, recipeID string) (rating.Summary, error) {
	if err := ctx.Err(); err != nil {
		return rating.Summary{}, err
	}
	if err := s.ready(); err != nil {
		return rating.Summary{}, err
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT COALESCE(AVG(value), 0), COUNT(*) FROM ratings WHERE recipe_id = ?`,
		recipeID,
	)
	var summary rating.Summary
	if err := row.Scan(&summary.Average, &summary.Count); err != nil {
		return rating.Summary{}, fmt.Errorf("aggregate ratings: %w", err)
	}
	return summary, nil
}

// RatingSummaries aggregates ratings for many recipes in one grouped
// query. Unrated recipes do not appear in the result.
func (s *Store) RatingSummaries(ctx context.Context, recipeIDs []string) (map[string]rating.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	if len(recipeIDs) == 0 {
		return map[string]rating.Summary{}, nil
	}

	placeholders := strings.Repeat("?, ", len(recipeIDs)-1) + "?"
	args := make([]any, 0, len(recipeIDs))
	for _, id := range recipeIDs {
		args = append(args, id)
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT recipe_id, AVG(value), COUNT(*) FROM ratings
		 WHERE recipe_id IN (`+placeholders+`) GROUP BY recipe_id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate ratings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	summaries := make(map[string]rating.Summary, len(recipeIDs))
	for rows.Next() {
		var recipeID string
		var summary rating.Summary
		if err := rows.Scan(&recipeID, &summary.Average, &summary.Count); err != nil {
			return nil, fmt.Errorf("scan rating summary: %w", err)
		}
		summaries[recipeID] = summary
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rating summaries: %w", err)
	}
	return summaries, nil
}
