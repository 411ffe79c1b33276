// Package scale recomputes ingredient quantities for a target serving count.
package scale

import (
	"golang.org/x/text/language"

	"github.com/saveurhq/tastebook/internal/platform/errors"
	"github.com/saveurhq/tastebook/internal/platform/i18n"
	"github.com/saveurhq/tastebook/internal/recipe"
)

// ErrInvalidServings indicates a non-positive target serving count.
var ErrInvalidServings = errors.New(errors.CodeScaleInvalidServings, "target servings must be at least 1")

// Ingredient is one scaled ingredient line with a display-ready quantity.
type Ingredient struct {
	Quantity float64
	Display  string
	Unit     string
	Name     string
	Note     string
}

// Group mirrors an ingredient group with scaled quantities.
type Group struct {
	Name        string
	Ingredients []Ingredient
}

// Result holds a recipe's ingredient list scaled to a target serving count.
type Result struct {
	BaseServings   int
	TargetServings int
	Factor         float64
	Groups         []Group
}

// Recipe scales every ingredient quantity by targetServings/base proportion
// and formats quantities for the given locale. Unspecified (zero) quantities
// stay unspecified with an empty display string.
func Recipe(r recipe.Recipe, targetServings int, tag language.Tag) (Result, error) {
	if targetServings < 1 {
		return Result{}, ErrInvalidServings
	}
	base := r.Servings
	if base < 1 {
		base = 1
	}
	factor := float64(targetServings) / float64(base)

	groups := make([]Group, 0, len(r.Groups))
	for _, group := range r.Groups {
		scaled := Group{
			Name:        group.Name,
			Ingredients: make([]Ingredient, 0, len(group.Ingredients)),
		}
		for _, ingredient := range group.Ingredients {
			line := Ingredient{
				Unit: ingredient.Unit,
				Name: ingredient.Name,
				Note: ingredient.Note,
			}
			if ingredient.Quantity > 0 {
				line.Quantity = ingredient.Quantity * factor
				line.Display = i18n.FormatQuantity(tag, line.Quantity)
			}
			scaled.Ingredients = append(scaled.Ingredients, line)
		}
		groups = append(groups, scaled)
	}

	return Result{
		BaseServings:   base,
		TargetServings: targetServings,
		Factor:         factor,
		Groups:         groups,
	}, nil
}
