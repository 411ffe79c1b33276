// Package shoppinglist models per-user shopping list items.
package shoppinglist

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"

	apperrors "github.com/saveurhq/tastebook/internal/platform/errors"
	"github.com/saveurhq/tastebook/internal/platform/id"
	"github.com/saveurhq/tastebook/internal/recipe"
	"github.com/saveurhq/tastebook/internal/recipe/scale"
)

// ErrEmptyLabel indicates an item without a label.
var ErrEmptyLabel = apperrors.New(apperrors.CodeShoppingEmptyLabel, "item label is required")

// Item is one shopping list line for a user.
type Item struct {
	ID           string
	UserID       string
	Label        string
	QuantityText string
	Unit         string
	Checked      bool
	RecipeID     string
	Position     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewItem creates a manual shopping list item.
func NewItem(userID, label, quantityText, unit string, position int, now func() time.Time, idGenerator func() (string, error)) (Item, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	label = strings.TrimSpace(label)
	if label == "" {
		return Item{}, ErrEmptyLabel
	}

	itemID, err := idGenerator()
	if err != nil {
		return Item{}, fmt.Errorf("generate item id: %w", err)
	}

	createdAt := now().UTC()
	return Item{
		ID:           itemID,
		UserID:       strings.TrimSpace(userID),
		Label:        label,
		QuantityText: strings.TrimSpace(quantityText),
		Unit:         strings.TrimSpace(unit),
		Position:     position,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}, nil
}

// FromRecipe expands a recipe's ingredients into shopping list items, scaled
// to targetServings and formatted for the user's locale. Positions continue
// from startPosition so new items land at the end of the list.
func FromRecipe(userID string, r recipe.Recipe, targetServings int, tag language.Tag, startPosition int, now func() time.Time, idGenerator func() (string, error)) ([]Item, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	if targetServings < 1 {
		targetServings = r.Servings
	}

	scaled, err := scale.Recipe(r, targetServings, tag)
	if err != nil {
		return nil, err
	}

	createdAt := now().UTC()
	var items []Item
	position := startPosition
	for _, group := range scaled.Groups {
		for _, ingredient := range group.Ingredients {
			itemID, err := idGenerator()
			if err != nil {
				return nil, fmt.Errorf("generate item id: %w", err)
			}
			items = append(items, Item{
				ID:           itemID,
				UserID:       userID,
				Label:        ingredient.Name,
				QuantityText: ingredient.Display,
				Unit:         ingredient.Unit,
				RecipeID:     r.ID,
				Position:     position,
				CreatedAt:    createdAt,
				UpdatedAt:    createdAt,
			})
			position++
		}
	}
	return items, nil
}
