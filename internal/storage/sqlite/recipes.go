package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/saveurhq/tastebook/internal/recipe"
	"github.com/saveurhq/tastebook/internal/storage"
)

const (
	defaultRecipePageSize = 20
	maxRecipePageSize     = 100
)

// CreateRecipe inserts one recipe with its nested rows.
func (s *Store) CreateRecipe(ctx context.Context, r recipe.Recipe) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("recipe id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin recipe insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertRecipe(ctx, tx, r); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit recipe insert: %w", err)
	}
	return nil
}

// CreateRecipes inserts a batch of recipes in one transaction. A failed
// insert rolls back the whole batch.
func (s *Store) CreateRecipes(ctx context.Context, recipes []recipe.Recipe) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if len(recipes) == 0 {
		return nil
	}
	for _, r := range recipes {
		if strings.TrimSpace(r.ID) == "" {
			return fmt.Errorf("recipe id is required")
		}
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin recipe batch insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range recipes {
		if err := insertRecipe(ctx, tx, r); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit recipe batch insert: %w", err)
	}
	return nil
}

func insertRecipe(ctx context.Context, tx *sql.Tx, r recipe.Recipe) error {
	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO recipes (
		   id, owner_id, title, description, visibility, servings,
		   prep_minutes, cook_minutes, image_url, source_url, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		r.OwnerID,
		r.Title,
		r.Description,
		string(r.Visibility),
		r.Servings,
		r.PrepMinutes,
		r.CookMinutes,
		r.ImageURL,
		r.SourceURL,
		toMillis(r.CreatedAt),
		toMillis(r.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("insert recipe: %w", err)
	}
	return insertRecipeChildren(ctx, tx, r)
}

func insertRecipeChildren(ctx context.Context, tx *sql.Tx, r recipe.Recipe) error {
	for position, tag := range r.Tags {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO recipe_tags (recipe_id, position, tag) VALUES (?, ?, ?)`,
			r.ID, position, tag,
		); err != nil {
			return fmt.Errorf("insert recipe tag: %w", err)
		}
	}
	for groupPosition, group := range r.Groups {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO recipe_groups (recipe_id, position, name) VALUES (?, ?, ?)`,
			r.ID, groupPosition, group.Name,
		); err != nil {
			return fmt.Errorf("insert ingredient group: %w", err)
		}
		for position, ingredient := range group.Ingredients {
			if _, err := tx.ExecContext(
				ctx,
				`INSERT INTO recipe_ingredients (
				   recipe_id, group_position, position, quantity, unit, name, note
				 ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				r.ID, groupPosition, position,
				ingredient.Quantity, ingredient.Unit, ingredient.Name, ingredient.Note,
			); err != nil {
				return fmt.Errorf("insert ingredient: %w", err)
			}
		}
	}
	for position, body := range r.Instructions {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO recipe_instructions (recipe_id, position, body) VALUES (?, ?, ?)`,
			r.ID, position, body,
		); err != nil {
			return fmt.Errorf("insert instruction: %w", err)
		}
	}
	for position, body := range r.Tips {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO recipe_tips (recipe_id, position, body) VALUES (?, ?, ?)`,
			r.ID, position, body,
		); err != nil {
			return fmt.Errorf("insert tip: %w", err)
		}
	}
	return nil
}

func deleteRecipeChildren(ctx context.Context, tx *sql.Tx, recipeID string) error {
	for _, table := range []string{"recipe_tags", "recipe_groups", "recipe_ingredients", "recipe_instructions", "recipe_tips"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE recipe_id = ?`, recipeID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// GetRecipe loads one recipe with its nested rows.
func (s *Store) GetRecipe(ctx context.Context, id string) (recipe.Recipe, error) {
	if err := ctx.Err(); err != nil {
		return recipe.Recipe{}, err
	}
	if err := s.ready(); err != nil {
		return recipe.Recipe{}, err
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, owner_id, title, description, visibility, servings,
		        prep_minutes, cook_minutes, image_url, source_url, created_at, updated_at
		 FROM recipes WHERE id = ?`,
		id,
	)
	r, err := scanRecipe(row)
	if errors.Is(err, sql.ErrNoRows) {
		return recipe.Recipe{}, storage.ErrNotFound
	}
	if err != nil {
		return recipe.Recipe{}, fmt.Errorf("load recipe: %w", err)
	}
	if err := s.loadRecipeChildren(ctx, &r); err != nil {
		return recipe.Recipe{}, err
	}
	return r, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecipe(row rowScanner) (recipe.Recipe, error) {
	var r recipe.Recipe
	var visibility string
	var createdAt, updatedAt int64
	err := row.Scan(
		&r.ID,
		&r.OwnerID,
		&r.Title,
		&r.Description,
		&visibility,
		&r.Servings,
		&r.PrepMinutes,
		&r.CookMinutes,
		&r.ImageURL,
		&r.SourceURL,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return recipe.Recipe{}, err
	}
	r.Visibility = recipe.Visibility(visibility)
	r.CreatedAt = fromMillis(createdAt)
	r.UpdatedAt = fromMillis(updatedAt)
	return r, nil
}

func (s *Store) loadRecipeChildren(ctx context.Context, r *recipe.Recipe) error {
	tagRows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT tag FROM recipe_tags WHERE recipe_id = ? ORDER BY position`,
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("load recipe tags: %w", err)
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var tag string
		if err := tagRows.Scan(&tag); err != nil {
			return fmt.Errorf("scan recipe tag: %w", err)
		}
		r.Tags = append(r.Tags, tag)
	}
	if err := tagRows.Err(); err != nil {
		return fmt.Errorf("iterate recipe tags: %w", err)
	}

	groupRows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT position, name FROM recipe_groups WHERE recipe_id = ? ORDER BY position`,
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("load ingredient groups: %w", err)
	}
	defer groupRows.Close()
	groupIndexes := make(map[int]int)
	for groupRows.Next() {
		var position int
		var name string
		if err := groupRows.Scan(&position, &name); err != nil {
			return fmt.Errorf("scan ingredient group: %w", err)
		}
		groupIndexes[position] = len(r.Groups)
		r.Groups = append(r.Groups, recipe.IngredientGroup{Name: name})
	}
	if err := groupRows.Err(); err != nil {
		return fmt.Errorf("iterate ingredient groups: %w", err)
	}

	ingredientRows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT group_position, quantity, unit, name, note
		 FROM recipe_ingredients WHERE recipe_id = ?
		 ORDER BY group_position, position`,
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("load ingredients: %w", err)
	}
	defer ingredientRows.Close()
	for ingredientRows.Next() {
		var groupPosition int
		var ingredient recipe.Ingredient
		if err := ingredientRows.Scan(
			&groupPosition,
			&ingredient.Quantity,
			&ingredient.Unit,
			&ingredient.Name,
			&ingredient.Note,
		); err != nil {
			return fmt.Errorf("scan ingredient: %w", err)
		}
		index, ok := groupIndexes[groupPosition]
		if !ok {
			return fmt.Errorf("ingredient references missing group %d", groupPosition)
		}
		r.Groups[index].Ingredients = append(r.Groups[index].Ingredients, ingredient)
	}
	if err := ingredientRows.Err(); err != nil {
		return fmt.Errorf("iterate ingredients: %w", err)
	}

	r.Instructions, err = s.loadRecipeLines(ctx, "recipe_instructions", r.ID)
	if err != nil {
		return err
	}
	r.Tips, err = s.loadRecipeLines(ctx, "recipe_tips", r.ID)
	return err
}

func (s *Store) loadRecipeLines(ctx context.Context, table, recipeID string) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT body FROM `+table+` WHERE recipe_id = ? ORDER BY position`,
		recipeID,
	)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", table, err)
	}
	defer rows.Close()
	var lines []string
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		lines = append(lines, body)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return lines, nil
}

// UpdateRecipe replaces one recipe and rewrites its nested rows.
func (s *Store) UpdateRecipe(ctx context.Context, r recipe.Recipe) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin recipe update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(
		ctx,
		`UPDATE recipes
		 SET title = ?, description = ?, visibility = ?, servings = ?,
		     prep_minutes = ?, cook_minutes = ?, image_url = ?, source_url = ?, updated_at = ?
		 WHERE id = ?`,
		r.Title,
		r.Description,
		string(r.Visibility),
		r.Servings,
		r.PrepMinutes,
		r.CookMinutes,
		r.ImageURL,
		r.SourceURL,
		toMillis(r.UpdatedAt),
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("update recipe: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update recipe rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	if err := deleteRecipeChildren(ctx, tx, r.ID); err != nil {
		return err
	}
	if err := insertRecipeChildren(ctx, tx, r); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit recipe update: %w", err)
	}
	return nil
}

// DeleteRecipe removes one recipe and its nested rows.
func (s *Store) DeleteRecipe(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin recipe delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteRecipeChildren(ctx, tx, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ratings WHERE recipe_id = ?`, id); err != nil {
		return fmt.Errorf("clear ratings: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete recipe rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit recipe delete: %w", err)
	}
	return nil
}

// ListRecipes pages through recipes matching the filter, newest first.
// Visibility is always enforced: anonymous callers see public recipes only,
// authenticated callers additionally see their own.
func (s *Store) ListRecipes(ctx context.Context, filter storage.RecipeFilter) (storage.RecipePage, error) {
	if err := ctx.Err(); err != nil {
		return storage.RecipePage{}, err
	}
	if err := s.ready(); err != nil {
		return storage.RecipePage{}, err
	}

	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = defaultRecipePageSize
	}
	if pageSize > maxRecipePageSize {
		pageSize = maxRecipePageSize
	}

	var conditions []string
	var args []any

	if filter.ViewerID == "" {
		conditions = append(conditions, `visibility = 'public'`)
	} else {
		conditions = append(conditions, `(visibility = 'public' OR owner_id = ?)`)
		args = append(args, filter.ViewerID)
	}
	if filter.OwnerID != "" {
		conditions = append(conditions, `owner_id = ?`)
		args = append(args, filter.OwnerID)
	}
	if filter.Tag != "" {
		conditions = append(conditions, `EXISTS (
		  SELECT 1 FROM recipe_tags t WHERE t.recipe_id = recipes.id AND t.tag = ?)`)
		args = append(args, strings.ToLower(strings.TrimSpace(filter.Tag)))
	}
	if query := strings.TrimSpace(filter.Query); query != "" {
		pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
		conditions = append(conditions, `(
		  lower(title) LIKE ? ESCAPE '\'
		  OR lower(description) LIKE ? ESCAPE '\'
		  OR EXISTS (SELECT 1 FROM recipe_tags t WHERE t.recipe_id = recipes.id AND t.tag LIKE ? ESCAPE '\')
		  OR EXISTS (SELECT 1 FROM recipe_ingredients i WHERE i.recipe_id = recipes.id AND lower(i.name) LIKE ? ESCAPE '\'))`)
		args = append(args, pattern, pattern, pattern, pattern)
	}
	if filter.PageToken != "" {
		tokenMillis, tokenID, err := decodePageToken(filter.PageToken)
		if err != nil {
			return storage.RecipePage{}, err
		}
		conditions = append(conditions, `(created_at < ? OR (created_at = ? AND id < ?))`)
		args = append(args, tokenMillis, tokenMillis, tokenID)
	}

	query := `SELECT id, owner_id, title, description, visibility, servings,
	                 prep_minutes, cook_minutes, image_url, source_url, created_at, updated_at
	          FROM recipes
	          WHERE ` + strings.Join(conditions, " AND ") + `
	          ORDER BY created_at DESC, id DESC
	          LIMIT ?`
	args = append(args, pageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return storage.RecipePage{}, fmt.Errorf("list recipes: %w", err)
	}
	defer rows.Close()

	var recipes []recipe.Recipe
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return storage.RecipePage{}, fmt.Errorf("scan recipe: %w", err)
		}
		recipes = append(recipes, r)
	}
	if err := rows.Err(); err != nil {
		return storage.RecipePage{}, fmt.Errorf("iterate recipes: %w", err)
	}

	page := storage.RecipePage{}
	if len(recipes) > pageSize {
		recipes = recipes[:pageSize]
		last := recipes[len(recipes)-1]
		page.NextPageToken = encodePageToken(toMillis(last.CreatedAt), last.ID)
	}
	for i := range recipes {
		if err := s.loadRecipeChildren(ctx, &recipes[i]); err != nil {
			return storage.RecipePage{}, err
		}
	}
	page.Recipes = recipes
	return page, nil
}

func encodePageToken(millis int64, id string) string {
	return strconv.FormatInt(millis, 10) + "." + id
}

func decodePageToken(token string) (int64, string, error) {
	millisRaw, id, ok := strings.Cut(token, ".")
	if !ok {
		return 0, "", fmt.Errorf("invalid page token")
	}
	millis, err := strconv.ParseInt(millisRaw, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid page token")
	}
	return millis, id, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
