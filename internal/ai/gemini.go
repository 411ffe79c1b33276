package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const (
	defaultTextModel  = "gemini-2.5-flash"
	defaultImageModel = "imagen-3.0-generate-002"
)

// GeminiConfig configures the hosted Gemini provider.
type GeminiConfig struct {
	APIKey     string
	TextModel  string
	ImageModel string
}

// Gemini is a Provider backed by the Gemini API.
type Gemini struct {
	client     *genai.Client
	textModel  string
	imageModel string
}

// NewGemini builds a Gemini provider. The API key is required.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	textModel := cfg.TextModel
	if textModel == "" {
		textModel = defaultTextModel
	}
	imageModel := cfg.ImageModel
	if imageModel == "" {
		imageModel = defaultImageModel
	}
	return &Gemini{client: client, textModel: textModel, imageModel: imageModel}, nil
}

// recipeDraftSchema constrains extraction output to the draft shape.
var recipeDraftSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"title":       {Type: genai.TypeString},
		"description": {Type: genai.TypeString},
		"servings":    {Type: genai.TypeInteger},
		"ingredient_groups": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name": {Type: genai.TypeString},
					"ingredients": {
						Type: genai.TypeArray,
						Items: &genai.Schema{
							Type: genai.TypeObject,
							Properties: map[string]*genai.Schema{
								"quantity": {Type: genai.TypeNumber},
								"unit":     {Type: genai.TypeString},
								"name":     {Type: genai.TypeString},
								"note":     {Type: genai.TypeString},
							},
							Required: []string{"name"},
						},
					},
				},
				Required: []string{"ingredients"},
			},
		},
		"instructions": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"tips":         {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
	},
	Required: []string{"title", "ingredient_groups"},
}

// GenerateJSON implements Provider.
func (g *Gemini) GenerateJSON(ctx context.Context, prompt string, image []byte, imageMIME string) ([]byte, error) {
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	if len(image) > 0 {
		parts = append(parts, genai.NewPartFromBytes(image, imageMIME))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, g.textModel, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   recipeDraftSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("model returned no text")
	}
	return []byte(text), nil
}

// GenerateImage implements Provider.
func (g *Gemini) GenerateImage(ctx context.Context, prompt string) (ImageResult, error) {
	resp, err := g.client.Models.GenerateImages(ctx, g.imageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		return ImageResult{}, fmt.Errorf("generate image: %w", err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return ImageResult{}, fmt.Errorf("model returned no image")
	}
	image := resp.GeneratedImages[0].Image
	mime := image.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return ImageResult{Data: image.ImageBytes, MIME: mime}, nil
}
