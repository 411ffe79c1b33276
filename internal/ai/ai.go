// Package ai wraps generative model flows used by recipe features.
//
// Flows are prompt-templated calls with schema-validated JSON output; the
// provider is kept behind a small interface so handlers and tests never
// touch the SDK directly. There is deliberately no retry or batching here.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/saveurhq/tastebook/internal/platform/errors"
	"github.com/saveurhq/tastebook/internal/recipe"
)

var (
	// ErrEmptyImage indicates an extraction call without image bytes.
	ErrEmptyImage = apperrors.New(apperrors.CodeAIEmptyImage, "image data is required")
	// ErrEmptyPrompt indicates an image generation call without a subject.
	ErrEmptyPrompt = apperrors.New(apperrors.CodeAIEmptyPrompt, "a recipe title is required")
	// ErrBadDraft indicates provider output that failed schema validation.
	ErrBadDraft = apperrors.New(apperrors.CodeAIBadDraft, "provider returned an unusable recipe draft")
)

// Provider invokes the hosted generative model.
type Provider interface {
	// GenerateJSON runs a multimodal prompt expecting schema-constrained
	// JSON output. Image may be nil for text-only prompts.
	GenerateJSON(ctx context.Context, prompt string, image []byte, imageMIME string) ([]byte, error)
	// GenerateImage produces one illustrative image for the prompt.
	GenerateImage(ctx context.Context, prompt string) (ImageResult, error)
}

// ImageResult holds generated image bytes and their MIME type.
type ImageResult struct {
	Data []byte
	MIME string
}

// DietContext carries the caller's dietary preferences into prompts.
type DietContext struct {
	Dietary   []string
	Allergens []string
}

// Flows exposes the recipe-facing AI operations.
type Flows struct {
	provider Provider
}

// NewFlows wires flows to a provider.
func NewFlows(provider Provider) *Flows {
	return &Flows{provider: provider}
}

// recipeDraftPayload mirrors the JSON schema the model is asked to produce.
type recipeDraftPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Servings    int    `json:"servings"`
	Groups      []struct {
		Name        string `json:"name"`
		Ingredients []struct {
			Quantity float64 `json:"quantity"`
			Unit     string  `json:"unit"`
			Name     string  `json:"name"`
			Note     string  `json:"note"`
		} `json:"ingredients"`
	} `json:"ingredient_groups"`
	Instructions []string `json:"instructions"`
	Tips         []string `json:"tips"`
}

const extractPrompt = `You are reading a photo or scan of a recipe.
Transcribe it into the requested JSON structure. Keep the original language.
Use quantity 0 for unmeasured ingredients such as "to taste". Group
ingredients under their headings when the recipe has sections; otherwise use
a single group with an empty name.`

// ExtractRecipe runs OCR extraction over an image and returns a normalized
// recipe draft. Diet context is surfaced to the model so substitutions can
// be noted, never silently applied.
func (f *Flows) ExtractRecipe(ctx context.Context, image []byte, imageMIME string, diet DietContext) (recipe.Draft, error) {
	if len(image) == 0 {
		return recipe.Draft{}, ErrEmptyImage
	}
	if strings.TrimSpace(imageMIME) == "" {
		imageMIME = "image/jpeg"
	}

	prompt := extractPrompt
	if len(diet.Dietary) > 0 {
		prompt += fmt.Sprintf("\nThe reader follows these diets: %s.", strings.Join(diet.Dietary, ", "))
	}
	if len(diet.Allergens) > 0 {
		prompt += fmt.Sprintf("\nThe reader is allergic to: %s. Add a tip when the recipe contains any of these.", strings.Join(diet.Allergens, ", "))
	}

	raw, err := f.provider.GenerateJSON(ctx, prompt, image, imageMIME)
	if err != nil {
		return recipe.Draft{}, apperrors.Wrap(apperrors.CodeAIProviderFailed, "extract recipe", err)
	}

	var payload recipeDraftPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return recipe.Draft{}, apperrors.Wrap(apperrors.CodeAIBadDraft, "decode recipe draft", err)
	}

	draft := recipe.Draft{
		Title:        payload.Title,
		Description:  payload.Description,
		Servings:     payload.Servings,
		Instructions: payload.Instructions,
		Tips:         payload.Tips,
	}
	for _, group := range payload.Groups {
		ingredients := make([]recipe.Ingredient, 0, len(group.Ingredients))
		for _, ingredient := range group.Ingredients {
			ingredients = append(ingredients, recipe.Ingredient{
				Quantity: ingredient.Quantity,
				Unit:     ingredient.Unit,
				Name:     ingredient.Name,
				Note:     ingredient.Note,
			})
		}
		draft.Groups = append(draft.Groups, recipe.IngredientGroup{
			Name:        group.Name,
			Ingredients: ingredients,
		})
	}

	normalized, err := recipe.NormalizeDraft(draft)
	if err != nil {
		return recipe.Draft{}, apperrors.Wrap(apperrors.CodeAIBadDraft, "normalize extracted draft", err)
	}
	return normalized, nil
}

// IllustrateRecipe generates one appetizing illustration for a recipe.
func (f *Flows) IllustrateRecipe(ctx context.Context, title string, description string) (ImageResult, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return ImageResult{}, ErrEmptyPrompt
	}

	prompt := fmt.Sprintf("A bright, appetizing photo of %s, plated and ready to serve.", title)
	if description = strings.TrimSpace(description); description != "" {
		prompt += " " + description
	}

	result, err := f.provider.GenerateImage(ctx, prompt)
	if err != nil {
		return ImageResult{}, apperrors.Wrap(apperrors.CodeAIProviderFailed, "illustrate recipe", err)
	}
	if len(result.Data) == 0 {
		return ImageResult{}, apperrors.New(apperrors.CodeAIProviderFailed, "provider returned no image data")
	}
	return result, nil
}
