// Package recipe models recipes with grouped ingredients, instructions, and tips.
//
// A Draft is the untrusted nested form payload; normalization is the single
// point where drafts become storable recipe content. All slice positions are
// implicit in order after normalization.
package recipe

import (
	"fmt"
	"sort"
	"strings"
	"time"

	apperrors "github.com/saveurhq/tastebook/internal/platform/errors"
	"github.com/saveurhq/tastebook/internal/platform/id"
)

// Visibility controls who can read a recipe.
type Visibility string

const (
	// VisibilityPrivate restricts reads to the owner.
	VisibilityPrivate Visibility = "private"
	// VisibilityPublic allows reads by anyone, including anonymous callers.
	VisibilityPublic Visibility = "public"
)

var (
	// ErrEmptyTitle indicates a missing recipe title.
	ErrEmptyTitle = apperrors.New(apperrors.CodeRecipeEmptyTitle, "title is required")
	// ErrInvalidServings indicates a non-positive serving count.
	ErrInvalidServings = apperrors.New(apperrors.CodeRecipeInvalidServings, "servings must be at least 1")
	// ErrInvalidVisibility indicates an unsupported visibility value.
	ErrInvalidVisibility = apperrors.New(apperrors.CodeRecipeInvalidVisibility, "visibility must be public or private")
	// ErrEmptyOwner indicates a missing owner user ID.
	ErrEmptyOwner = apperrors.New(apperrors.CodeRecipeEmptyOwner, "owner user id is required")
	// ErrNoIngredients indicates a recipe with no usable ingredients.
	ErrNoIngredients = apperrors.New(apperrors.CodeRecipeNoIngredients, "at least one ingredient is required")
)

// Ingredient is one line of an ingredient group.
// A zero Quantity means "to taste" / unspecified and is never scaled.
type Ingredient struct {
	Quantity float64
	Unit     string
	Name     string
	Note     string
}

// IngredientGroup is a named subsection of the ingredient list,
// e.g. "For the dough". The default group has an empty name.
type IngredientGroup struct {
	Name        string
	Ingredients []Ingredient
}

// Draft carries untrusted recipe content from forms, imports, and AI flows.
type Draft struct {
	Title        string
	Description  string
	Visibility   Visibility
	Servings     int
	PrepMinutes  int
	CookMinutes  int
	Tags         []string
	ImageURL     string
	SourceURL    string
	Groups       []IngredientGroup
	Instructions []string
	Tips         []string
}

// Recipe is a stored recipe owned by a user.
type Recipe struct {
	ID           string
	OwnerID      string
	Title        string
	Description  string
	Visibility   Visibility
	Servings     int
	PrepMinutes  int
	CookMinutes  int
	Tags         []string
	ImageURL     string
	SourceURL    string
	Groups       []IngredientGroup
	Instructions []string
	Tips         []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NormalizeDraft validates and canonicalizes a draft.
//
// Strings are trimmed, ingredients without a name are dropped, groups left
// empty are dropped, blank instructions and tips are dropped, and tags are
// lowercased and deduplicated. Remaining order is the canonical position.
func NormalizeDraft(draft Draft) (Draft, error) {
	draft.Title = strings.TrimSpace(draft.Title)
	if draft.Title == "" {
		return Draft{}, ErrEmptyTitle
	}
	draft.Description = strings.TrimSpace(draft.Description)

	switch draft.Visibility {
	case "":
		draft.Visibility = VisibilityPrivate
	case VisibilityPublic, VisibilityPrivate:
	default:
		return Draft{}, ErrInvalidVisibility
	}

	if draft.Servings == 0 {
		draft.Servings = 1
	}
	if draft.Servings < 1 {
		return Draft{}, ErrInvalidServings
	}
	if draft.PrepMinutes < 0 {
		draft.PrepMinutes = 0
	}
	if draft.CookMinutes < 0 {
		draft.CookMinutes = 0
	}

	draft.Tags = normalizeTags(draft.Tags)
	draft.ImageURL = strings.TrimSpace(draft.ImageURL)
	draft.SourceURL = strings.TrimSpace(draft.SourceURL)

	groups := make([]IngredientGroup, 0, len(draft.Groups))
	for _, group := range draft.Groups {
		group.Name = strings.TrimSpace(group.Name)
		ingredients := make([]Ingredient, 0, len(group.Ingredients))
		for _, ingredient := range group.Ingredients {
			ingredient.Name = strings.TrimSpace(ingredient.Name)
			if ingredient.Name == "" {
				continue
			}
			ingredient.Unit = strings.TrimSpace(ingredient.Unit)
			ingredient.Note = strings.TrimSpace(ingredient.Note)
			if ingredient.Quantity < 0 {
				ingredient.Quantity = 0
			}
			ingredients = append(ingredients, ingredient)
		}
		if len(ingredients) == 0 {
			continue
		}
		group.Ingredients = ingredients
		groups = append(groups, group)
	}
	if len(groups) == 0 {
		return Draft{}, ErrNoIngredients
	}
	draft.Groups = groups

	draft.Instructions = normalizeLines(draft.Instructions)
	draft.Tips = normalizeLines(draft.Tips)

	return draft, nil
}

// Create constructs a stored recipe from a normalized draft.
func Create(ownerID string, draft Draft, now func() time.Time, idGenerator func() (string, error)) (Recipe, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return Recipe{}, ErrEmptyOwner
	}

	normalized, err := NormalizeDraft(draft)
	if err != nil {
		return Recipe{}, err
	}

	recipeID, err := idGenerator()
	if err != nil {
		return Recipe{}, fmt.Errorf("generate recipe id: %w", err)
	}

	createdAt := now().UTC()
	return Recipe{
		ID:           recipeID,
		OwnerID:      ownerID,
		Title:        normalized.Title,
		Description:  normalized.Description,
		Visibility:   normalized.Visibility,
		Servings:     normalized.Servings,
		PrepMinutes:  normalized.PrepMinutes,
		CookMinutes:  normalized.CookMinutes,
		Tags:         normalized.Tags,
		ImageURL:     normalized.ImageURL,
		SourceURL:    normalized.SourceURL,
		Groups:       normalized.Groups,
		Instructions: normalized.Instructions,
		Tips:         normalized.Tips,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}, nil
}

// ApplyUpdate replaces a recipe's content with a normalized draft.
// Identity, ownership, and creation time are preserved.
func ApplyUpdate(existing Recipe, draft Draft, now func() time.Time) (Recipe, error) {
	if now == nil {
		now = time.Now
	}
	normalized, err := NormalizeDraft(draft)
	if err != nil {
		return Recipe{}, err
	}
	existing.Title = normalized.Title
	existing.Description = normalized.Description
	existing.Visibility = normalized.Visibility
	existing.Servings = normalized.Servings
	existing.PrepMinutes = normalized.PrepMinutes
	existing.CookMinutes = normalized.CookMinutes
	existing.Tags = normalized.Tags
	existing.ImageURL = normalized.ImageURL
	existing.SourceURL = normalized.SourceURL
	existing.Groups = normalized.Groups
	existing.Instructions = normalized.Instructions
	existing.Tips = normalized.Tips
	existing.UpdatedAt = now().UTC()
	return existing, nil
}

// CanView reports whether userID may read the recipe.
func CanView(r Recipe, userID string) bool {
	if r.Visibility == VisibilityPublic {
		return true
	}
	return userID != "" && r.OwnerID == userID
}

// CanEdit reports whether userID may modify or delete the recipe.
func CanEdit(r Recipe, userID string) bool {
	return userID != "" && r.OwnerID == userID
}

// IngredientCount returns the total ingredient lines across all groups.
func IngredientCount(r Recipe) int {
	total := 0
	for _, group := range r.Groups {
		total += len(group.Ingredients)
	}
	return total
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

func normalizeLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
