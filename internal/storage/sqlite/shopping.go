package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/saveurhq/tastebook/internal/shoppinglist"
	"github.com/saveurhq/tastebook/internal/storage"
)

// PutItems inserts shopping list items in one transaction.
func (s *Store) PutItems(ctx context.Context, items []shoppinglist.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin item insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, item := range items {
		if strings.TrimSpace(item.ID) == "" {
			return fmt.Errorf("item id is required")
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO shopping_items (
			   id, user_id, label, quantity_text, unit, checked, recipe_id, position, created_at, updated_at
			 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID,
			item.UserID,
			item.Label,
			item.QuantityText,
			item.Unit,
			boolToInt(item.Checked),
			item.RecipeID,
			item.Position,
			toMillis(item.CreatedAt),
			toMillis(item.UpdatedAt),
		); err != nil {
			if isUniqueViolation(err) {
				return storage.ErrAlreadyExists
			}
			return fmt.Errorf("insert item: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit item insert: %w", err)
	}
	return nil
}

// GetItem loads one shopping list item.
func (s *Store) GetItem(ctx context.Context, id string) (shoppinglist.Item, error) {
	if err := ctx.Err(); err != nil {
		return shoppinglist.Item{}, err
	}
	if err := s.ready(); err != nil {
		return shoppinglist.Item{}, err
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, user_id, label, quantity_text, unit, checked, recipe_id, position, created_at, updated_at
		 FROM shopping_items WHERE id = ?`,
		id,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return shoppinglist.Item{}, storage.ErrNotFound
	}
	if err != nil {
		return shoppinglist.Item{}, fmt.Errorf("load item: %w", err)
	}
	return item, nil
}

func scanItem(row rowScanner) (shoppinglist.Item, error) {
	var item shoppinglist.Item
	var checked int
	var createdAt, updatedAt int64
	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.Label,
		&item.QuantityText,
		&item.Unit,
		&checked,
		&item.RecipeID,
		&item.Position,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return shoppinglist.Item{}, err
	}
	item.Checked = checked != 0
	item.CreatedAt = fromMillis(createdAt)
	item.UpdatedAt = fromMillis(updatedAt)
	return item, nil
}

// UpdateItem replaces the mutable fields of one item.
func (s *Store) UpdateItem(ctx context.Context, item shoppinglist.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE shopping_items
		 SET label = ?, quantity_text = ?, unit = ?, checked = ?, position = ?, updated_at = ?
		 WHERE id = ?`,
		item.Label,
		item.QuantityText,
		item.Unit,
		boolToInt(item.Checked),
		item.Position,
		toMillis(item.UpdatedAt),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update item rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteItem removes one item.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM shopping_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete item rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListItems returns a user's items ordered by position.
func (s *Store) ListItems(ctx context.Context, userID string) ([]shoppinglist.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, user_id, label, quantity_text, unit, checked, recipe_id, position, created_at, updated_at
		 FROM shopping_items WHERE user_id = ? ORDER BY position, created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []shoppinglist.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// ClearChecked removes a user's checked items and reports how many went away.
func (s *Store) ClearChecked(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.ready(); err != nil {
		return 0, err
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`DELETE FROM shopping_items WHERE user_id = ? AND checked = 1`,
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("clear checked items: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear checked rows affected: %w", err)
	}
	return int(affected), nil
}

// NextPosition returns the position after the user's current maximum.
func (s *Store) NextPosition(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.ready(); err != nil {
		return 0, err
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT COALESCE(MAX(position), -1) + 1 FROM shopping_items WHERE user_id = ?`,
		userID,
	)
	var next int
	if err := row.Scan(&next); err != nil {
		return 0, fmt.Errorf("next item position: %w", err)
	}
	return next, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
