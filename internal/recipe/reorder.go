package recipe

import (
	apperrors "github.com/saveurhq/tastebook/internal/platform/errors"
)

// ErrMoveOutOfRange indicates a reorder target outside the list bounds.
var ErrMoveOutOfRange = apperrors.New(apperrors.CodeRecipeMoveOutOfRange, "move position is out of range")

// IngredientMove describes relocating one ingredient line, possibly across
// groups. Indices address positions after the source line is removed, which
// matches how drop events report target slots.
type IngredientMove struct {
	FromGroup int
	FromIndex int
	ToGroup   int
	ToIndex   int
}

// MoveIngredient relocates one ingredient within the recipe's groups.
func MoveIngredient(r Recipe, move IngredientMove) (Recipe, error) {
	if move.FromGroup < 0 || move.FromGroup >= len(r.Groups) {
		return Recipe{}, ErrMoveOutOfRange
	}
	if move.ToGroup < 0 || move.ToGroup >= len(r.Groups) {
		return Recipe{}, ErrMoveOutOfRange
	}

	groups := cloneGroups(r.Groups)
	source := groups[move.FromGroup].Ingredients
	if move.FromIndex < 0 || move.FromIndex >= len(source) {
		return Recipe{}, ErrMoveOutOfRange
	}

	moved := source[move.FromIndex]
	source = append(source[:move.FromIndex], source[move.FromIndex+1:]...)
	groups[move.FromGroup].Ingredients = source

	dest := groups[move.ToGroup].Ingredients
	if move.ToIndex < 0 || move.ToIndex > len(dest) {
		return Recipe{}, ErrMoveOutOfRange
	}
	dest = append(dest, Ingredient{})
	copy(dest[move.ToIndex+1:], dest[move.ToIndex:])
	dest[move.ToIndex] = moved
	groups[move.ToGroup].Ingredients = dest

	r.Groups = groups
	return r, nil
}

// MoveInstruction relocates one instruction step to a new index.
func MoveInstruction(r Recipe, from int, to int) (Recipe, error) {
	moved, err := moveLine(r.Instructions, from, to)
	if err != nil {
		return Recipe{}, err
	}
	r.Instructions = moved
	return r, nil
}

// MoveTip relocates one tip to a new index.
func MoveTip(r Recipe, from int, to int) (Recipe, error) {
	moved, err := moveLine(r.Tips, from, to)
	if err != nil {
		return Recipe{}, err
	}
	r.Tips = moved
	return r, nil
}

func moveLine(lines []string, from int, to int) ([]string, error) {
	if from < 0 || from >= len(lines) {
		return nil, ErrMoveOutOfRange
	}
	out := make([]string, len(lines))
	copy(out, lines)
	moved := out[from]
	out = append(out[:from], out[from+1:]...)
	if to < 0 || to > len(out) {
		return nil, ErrMoveOutOfRange
	}
	out = append(out, "")
	copy(out[to+1:], out[to:])
	out[to] = moved
	return out, nil
}

func cloneGroups(groups []IngredientGroup) []IngredientGroup {
	out := make([]IngredientGroup, len(groups))
	for i, group := range groups {
		ingredients := make([]Ingredient, len(group.Ingredients))
		copy(ingredients, group.Ingredients)
		out[i] = IngredientGroup{Name: group.Name, Ingredients: ingredients}
	}
	return out
}
