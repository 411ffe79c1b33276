package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/saveurhq/tastebook/internal/ai"
	apperrors "github.com/saveurhq/tastebook/internal/platform/errors"
	"github.com/saveurhq/tastebook/internal/platform/requestctx"
	"github.com/saveurhq/tastebook/internal/platform/timeouts"
	"github.com/saveurhq/tastebook/internal/server/httpx"
)

// maxImageBytes caps uploaded image payloads.
const maxImageBytes = 8 << 20

type extractRecipeRequest struct {
	// Image is base64-encoded image data.
	Image string `json:"image"`
	MIME  string `json:"mime_type"`
}

func (s *Server) handleExtractRecipe(w http.ResponseWriter, r *http.Request) {
	if s.flows == nil {
		httpx.WriteError(w, apperrors.New(apperrors.CodeAIProviderFailed, "ai flows are not configured"))
		return
	}

	image, imageMIME, err := readExtractImage(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	ctx := httpx.RequestContext(r)
	userID := requestctx.UserIDFromContext(ctx)
	diet := ai.DietContext{}
	if prefs, err := s.store.GetPreferences(ctx, userID); err == nil {
		diet.Dietary = prefs.Dietary
		diet.Allergens = prefs.Allergens
	}

	flowCtx, cancel := context.WithTimeout(ctx, timeouts.AIFlow)
	defer cancel()
	draft, err := s.flows.ExtractRecipe(flowCtx, image, imageMIME, diet)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	payload := recipePayload{
		Title:        draft.Title,
		Description:  draft.Description,
		Visibility:   string(draft.Visibility),
		Servings:     draft.Servings,
		PrepMinutes:  draft.PrepMinutes,
		CookMinutes:  draft.CookMinutes,
		Tags:         draft.Tags,
		Instructions: draft.Instructions,
		Tips:         draft.Tips,
	}
	for _, group := range draft.Groups {
		ingredients := make([]ingredientPayload, 0, len(group.Ingredients))
		for _, ingredient := range group.Ingredients {
			ingredients = append(ingredients, ingredientPayload{
				Quantity: ingredient.Quantity,
				Unit:     ingredient.Unit,
				Name:     ingredient.Name,
				Note:     ingredient.Note,
			})
		}
		payload.Groups = append(payload.Groups, groupPayload{Name: group.Name, Ingredients: ingredients})
	}
	_ = httpx.WriteJSON(w, http.StatusOK, payload)
}

// readExtractImage accepts either a multipart upload under the "image"
// field or a JSON body carrying base64 image data.
func readExtractImage(r *http.Request) ([]byte, string, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxImageBytes); err != nil {
			return nil, "", apperrors.Wrap(apperrors.CodeAIEmptyImage, "parse multipart form", err)
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			return nil, "", apperrors.Wrap(apperrors.CodeAIEmptyImage, "missing image field", err)
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
		if err != nil {
			return nil, "", apperrors.Wrap(apperrors.CodeAIEmptyImage, "read image data", err)
		}
		return data, header.Header.Get("Content-Type"), nil
	}

	var req extractRecipeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxImageBytes)).Decode(&req); err != nil {
		return nil, "", ai.ErrEmptyImage
	}
	data, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.CodeAIEmptyImage, "decode image data", err)
	}
	return data, req.MIME, nil
}

type recipeImageRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type recipeImageResponse struct {
	// Image is base64-encoded image data.
	Image string `json:"image"`
	MIME  string `json:"mime_type"`
}

func (s *Server) handleRecipeImage(w http.ResponseWriter, r *http.Request) {
	if s.flows == nil {
		httpx.WriteError(w, apperrors.New(apperrors.CodeAIProviderFailed, "ai flows are not configured"))
		return
	}

	var req recipeImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, ai.ErrEmptyPrompt)
		return
	}

	flowCtx, cancel := context.WithTimeout(httpx.RequestContext(r), timeouts.AIFlow)
	defer cancel()
	result, err := s.flows.IllustrateRecipe(flowCtx, req.Title, req.Description)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, recipeImageResponse{
		Image: base64.StdEncoding.EncodeToString(result.Data),
		MIME:  result.MIME,
	})
}
