package server

import (
	"encoding/json"
	"net/http"
	"time"

	apperrors "github.com/saveurhq/tastebook/internal/platform/errors"
	"github.com/saveurhq/tastebook/internal/platform/requestctx"
	"github.com/saveurhq/tastebook/internal/recipe"
	"github.com/saveurhq/tastebook/internal/server/httpx"
	"github.com/saveurhq/tastebook/internal/shoppinglist"
)

type shoppingItemPayload struct {
	ID           string    `json:"id"`
	Label        string    `json:"label"`
	QuantityText string    `json:"quantity,omitempty"`
	Unit         string    `json:"unit,omitempty"`
	Checked      bool      `json:"checked"`
	RecipeID     string    `json:"recipe_id,omitempty"`
	Position     int       `json:"position"`
	CreatedAt    time.Time `json:"created_at"`
}

func itemToPayload(item shoppinglist.Item) shoppingItemPayload {
	return shoppingItemPayload{
		ID:           item.ID,
		Label:        item.Label,
		QuantityText: item.QuantityText,
		Unit:         item.Unit,
		Checked:      item.Checked,
		RecipeID:     item.RecipeID,
		Position:     item.Position,
		CreatedAt:    item.CreatedAt,
	}
}

func (s *Server) handleListShoppingItems(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.RequestContext(r)
	items, err := s.store.ListItems(ctx, requestctx.UserIDFromContext(ctx))
	if err != nil {
		httpx.WriteError(w, storageError(err))
		return
	}
	payload := make([]shoppingItemPayload, 0, len(items))
	for _, item := range items {
		payload = append(payload, itemToPayload(item))
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": payload})
}

type addShoppingItemRequest struct {
	Label    string `json:"label"`
	Quantity string `json:"quantity"`
	Unit     string `json:"unit"`
}

func (s *Server) handleAddShoppingItem(w http.ResponseWriter, r *http.Request) {
	var req addShoppingItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, apperrors.Wrap(apperrors.CodeInvalidPayload, "decode shopping item request", err))
		return
	}

	ctx := httpx.RequestContext(r)
	userID := requestctx.UserIDFromContext(ctx)
	position, err := s.store.NextPosition(ctx, userID)
	if err != nil {
		httpx.WriteError(w, storageError(err))
		return
	}
	item, err := shoppinglist.NewItem(userID, req.Label, req.Quantity, req.Unit, position, s.now, s.idGenerator)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := s.store.PutItems(ctx, []shoppinglist.Item{item}); err != nil {
		httpx.WriteError(w, storageError(err))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, itemToPayload(item))
}

type fromRecipeRequest struct {
	RecipeID string `json:"recipe_id"`
	Servings int    `json:"servings"`
}

func (s *Server) handleShoppingFromRecipe(w http.ResponseWriter, r *http.Request) {
	var req fromRecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, apperrors.Wrap(apperrors.CodeInvalidPayload, "decode from-recipe request", err))
		return
	}

	ctx := httpx.RequestContext(r)
	userID := requestctx.UserIDFromContext(ctx)
	loaded, err := s.store.GetRecipe(ctx, req.RecipeID)
	if err != nil {
		httpx.WriteError(w, storageError(err))
		return
	}
	// Hidden recipes read as missing, matching the recipe routes.
	if !recipe.CanView(loaded, userID) {
		httpx.WriteError(w, apperrors.New(apperrors.CodeNotFound, "record not found"))
		return
	}

	position, err := s.store.NextPosition(ctx, userID)
	if err != nil {
		httpx.WriteError(w, storageError(err))
		return
	}
	items, err := shoppinglist.FromRecipe(userID, loaded, req.Servings, s.requestLanguage(r), position, s.now, s.idGenerator)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := s.store.PutItems(ctx, items); err != nil {
		httpx.WriteError(w, storageError(err))
		return
	}

	payload := make([]shoppingItemPayload, 0, len(items))
	for _, item := range items {
		payload = append(payload, itemToPayload(item))
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, map[string]any{"items": payload})
}

// loadOwnedItem fetches a shopping list item owned by the request user.
// Other users' items read as missing.
func (s *Server) loadOwnedItem(r *http.Request) (shoppinglist.Item, error) {
	ctx := httpx.RequestContext(r)
	item, err := s.store.GetItem(ctx, r.PathValue("id"))
	if err != nil {
		return shoppinglist.Item{}, storageError(err)
	}
	if item.UserID != requestctx.UserIDFromContext(ctx) {
		return shoppinglist.Item{}, apperrors.New(apperrors.CodeNotFound, "record not found")
	}
	return item, nil
}

func (s *Server) handleToggleShoppingItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.loadOwnedItem(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	item.Checked = !item.Checked
	item.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateItem(httpx.RequestContext(r), item); err != nil {
		httpx.WriteError(w, storageError(err))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, itemToPayload(item))
}

func (s *Server) handleDeleteShoppingItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.loadOwnedItem(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := s.store.DeleteItem(httpx.RequestContext(r), item.ID); err != nil {
		httpx.WriteError(w, storageError(err))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleClearChecked(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.RequestContext(r)
	cleared, err := s.store.ClearChecked(ctx, requestctx.UserIDFromContext(ctx))
	if err != nil {
		httpx.WriteError(w, storageError(err))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]int{"cleared": cleared})
}
