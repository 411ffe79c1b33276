package export

import (
	"encoding/json"
	"fmt"
	"time"

	apperrors "github.com/saveurhq/tastebook/internal/platform/errors"
	"github.com/saveurhq/tastebook/internal/recipe"
)

// SchemaTag identifies the collection document schema version.
const SchemaTag = "tastebook/v1"

// ErrInvalidPayload indicates a collection document that cannot be decoded.
var ErrInvalidPayload = apperrors.New(apperrors.CodeImportInvalidPayload, "collection payload is invalid")

// IngredientDoc is one ingredient line in the document schema.
type IngredientDoc struct {
	Quantity float64 `json:"quantity,omitempty"`
	Unit     string  `json:"unit,omitempty"`
	Name     string  `json:"name"`
	Note     string  `json:"note,omitempty"`
}

// GroupDoc is one ingredient group in the document schema.
type GroupDoc struct {
	Name        string          `json:"name,omitempty"`
	Ingredients []IngredientDoc `json:"ingredients"`
}

// RecipeDoc is the portable recipe representation.
type RecipeDoc struct {
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Visibility   string     `json:"visibility,omitempty"`
	Servings     int        `json:"servings"`
	PrepMinutes  int        `json:"prep_minutes,omitempty"`
	CookMinutes  int        `json:"cook_minutes,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	ImageURL     string     `json:"image_url,omitempty"`
	SourceURL    string     `json:"source_url,omitempty"`
	Groups       []GroupDoc `json:"ingredient_groups"`
	Instructions []string   `json:"instructions,omitempty"`
	Tips         []string   `json:"tips,omitempty"`
}

// CollectionDoc is the portable multi-recipe document.
type CollectionDoc struct {
	Schema     string      `json:"schema"`
	ExportedAt time.Time   `json:"exported_at"`
	Recipes    []RecipeDoc `json:"recipes"`
}

// ToDoc converts a stored recipe to its portable representation.
func ToDoc(r recipe.Recipe) RecipeDoc {
	groups := make([]GroupDoc, 0, len(r.Groups))
	for _, group := range r.Groups {
		ingredients := make([]IngredientDoc, 0, len(group.Ingredients))
		for _, ingredient := range group.Ingredients {
			ingredients = append(ingredients, IngredientDoc{
				Quantity: ingredient.Quantity,
				Unit:     ingredient.Unit,
				Name:     ingredient.Name,
				Note:     ingredient.Note,
			})
		}
		groups = append(groups, GroupDoc{Name: group.Name, Ingredients: ingredients})
	}
	return RecipeDoc{
		Title:        r.Title,
		Description:  r.Description,
		Visibility:   string(r.Visibility),
		Servings:     r.Servings,
		PrepMinutes:  r.PrepMinutes,
		CookMinutes:  r.CookMinutes,
		Tags:         r.Tags,
		ImageURL:     r.ImageURL,
		SourceURL:    r.SourceURL,
		Groups:       groups,
		Instructions: r.Instructions,
		Tips:         r.Tips,
	}
}

// ToDraft converts a portable recipe back into an untrusted draft.
// The draft still passes through recipe normalization on import.
func ToDraft(doc RecipeDoc) recipe.Draft {
	groups := make([]recipe.IngredientGroup, 0, len(doc.Groups))
	for _, group := range doc.Groups {
		ingredients := make([]recipe.Ingredient, 0, len(group.Ingredients))
		for _, ingredient := range group.Ingredients {
			ingredients = append(ingredients, recipe.Ingredient{
				Quantity: ingredient.Quantity,
				Unit:     ingredient.Unit,
				Name:     ingredient.Name,
				Note:     ingredient.Note,
			})
		}
		groups = append(groups, recipe.IngredientGroup{Name: group.Name, Ingredients: ingredients})
	}
	return recipe.Draft{
		Title:        doc.Title,
		Description:  doc.Description,
		Visibility:   recipe.Visibility(doc.Visibility),
		Servings:     doc.Servings,
		PrepMinutes:  doc.PrepMinutes,
		CookMinutes:  doc.CookMinutes,
		Tags:         doc.Tags,
		ImageURL:     doc.ImageURL,
		SourceURL:    doc.SourceURL,
		Groups:       groups,
		Instructions: doc.Instructions,
		Tips:         doc.Tips,
	}
}

// Collection builds a portable document for a set of recipes.
func Collection(recipes []recipe.Recipe, now func() time.Time) CollectionDoc {
	if now == nil {
		now = time.Now
	}
	docs := make([]RecipeDoc, 0, len(recipes))
	for _, r := range recipes {
		docs = append(docs, ToDoc(r))
	}
	return CollectionDoc{
		Schema:     SchemaTag,
		ExportedAt: now().UTC(),
		Recipes:    docs,
	}
}

// CollectionJSON renders the collection document as indented JSON.
func CollectionJSON(recipes []recipe.Recipe, now func() time.Time) ([]byte, error) {
	payload, err := json.MarshalIndent(Collection(recipes, now), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal collection: %w", err)
	}
	return payload, nil
}

// RecipeJSON renders one recipe document as indented JSON.
func RecipeJSON(r recipe.Recipe) ([]byte, error) {
	payload, err := json.MarshalIndent(ToDoc(r), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal recipe: %w", err)
	}
	return payload, nil
}

// ImportResult reports the outcome of one collection import.
type ImportResult struct {
	Imported []recipe.Recipe
	Skipped  []ImportSkip
}

// ImportSkip records one rejected entry with its position in the document.
type ImportSkip struct {
	Index  int
	Reason string
}

// ImportCollection decodes a collection payload and normalizes each entry
// into a private recipe owned by ownerID. Entries that fail validation are
// skipped and reported by index; valid entries always get fresh IDs.
func ImportCollection(payload []byte, ownerID string, now func() time.Time, idGenerator func() (string, error)) (ImportResult, error) {
	var doc CollectionDoc
	if err := json.Unmarshal(payload, &doc); err != nil {
		return ImportResult{}, apperrors.Wrap(apperrors.CodeImportInvalidPayload, "decode collection payload", err)
	}
	if doc.Schema != SchemaTag {
		return ImportResult{}, ErrInvalidPayload
	}

	result := ImportResult{}
	for index, entry := range doc.Recipes {
		draft := ToDraft(entry)
		draft.Visibility = recipe.VisibilityPrivate
		imported, err := recipe.Create(ownerID, draft, now, idGenerator)
		if err != nil {
			result.Skipped = append(result.Skipped, ImportSkip{Index: index, Reason: err.Error()})
			continue
		}
		result.Imported = append(result.Imported, imported)
	}
	return result, nil
}
