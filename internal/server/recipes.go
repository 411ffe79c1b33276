package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/saveurhq/tastebook/internal/platform/errors"
	"github.com/saveurhq/tastebook/internal/platform/requestctx"
	"github.com/saveurhq/tastebook/internal/rating"
	"github.com/saveurhq/tastebook/internal/recipe"
	"github.com/saveurhq/tastebook/internal/recipe/scale"
	"github.com/saveurhq/tastebook/internal/server/httpx"
	"github.com/saveurhq/tastebook/internal/storage"
)

type ingredientPayload struct {
	Quantity float64 `json:"quantity,omitempty"`
	Unit     string  `json:"unit,omitempty"`
	Name     string  `json:"name"`
	Note     string  `json:"note,omitempty"`
}

type groupPayload struct {
	Name        string              `json:"name,omitempty"`
	Ingredients []ingredientPayload `json:"ingredients"`
}

type recipePayload struct {
	ID           string          `json:"id,omitempty"`
	OwnerID      string          `json:"owner_id,omitempty"`
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	Visibility   string          `json:"visibility,omitempty"`
	Servings     int             `json:"servings"`
	PrepMinutes  int             `json:"prep_minutes,omitempty"`
	CookMinutes  int             `json:"cook_minutes,omitempty"`
	Tags         []string        `json:"tags,omitempty"`
	ImageURL     string          `json:"image_url,omitempty"`
	SourceURL    string          `json:"source_url,omitempty"`
	Groups       []groupPayload  `json:"ingredient_groups"`
	Instructions []string        `json:"instructions,omitempty"`
	Tips         []string        `json:"tips,omitempty"`
	Rating       *ratingResponse `json:"rating,omitempty"`
}

type ratingResponse struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
	Own     int     `json:"own,omitempty"`
}

func payloadToDraft(p recipePayload) recipe.Draft {
	groups := make([]recipe.IngredientGroup, 0, len(p.Groups))
	for _, group := range p.Groups {
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
		Title:        p.Title,
		Description:  p.Description,
		Visibility:   recipe.Visibility(p.Visibility),
		Servings:     p.Servings,
		PrepMinutes:  p.PrepMinutes,
		CookMinutes:  p.CookMinutes,
		Tags:         p.Tags,
		ImageURL:     p.ImageURL,
		SourceURL:    p.SourceURL,
		Groups:       groups,
		Instructions: p.Instructions,
		Tips:         p.Tips,
	}
}

func recipeToPayload(r recipe.Recipe) recipePayload {
	groups := make([]groupPayload, 0, len(r.Groups))
	for _, group := range r.Groups {
		ingredients := make([]ingredientPayload, 0, len(group.Ingredients))
		for _, ingredient := range group.Ingredients {
			ingredients = append(ingredients, ingredientPayload{
				Quantity: ingredient.Quantity,
				Unit:     ingredient.Unit,
				Name:     ingredient.Name,
				Note:     ingredient.Note,
			})
		}
		groups = append(groups, groupPayload{Name: group.Name, Ingredients: ingredients})
	}
	return recipePayload{
		ID:           r.ID,
		OwnerID:      r.OwnerID,
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

func (s *Server) handleCreateRecipe(w http.ResponseWriter, r *http.Request) {
	var req recipePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, errors.Wrap(errors.CodeInvalidPayload, "decode recipe request", err))
		return
	}

	ctx := httpx.RequestContext(r)
	created, err := recipe.Create(requestctx.UserIDFromContext(ctx), payloadToDraft(req), s.now, s.idGenerator)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := s.store.CreateRecipe(ctx, created); err != nil {
		httpx.WriteError(w, storageError(err))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, recipeToPayload(created))
}

// loadVisibleRecipe fetches a recipe and enforces read access for the
// request user. Hidden recipes read as missing, not forbidden.
func (s *Server) loadVisibleRecipe(r *http.Request) (recipe.Recipe, error) {
	ctx := httpx.RequestContext(r)
	loaded, err := s.store.GetRecipe(ctx, r.PathValue("id"))
	if err != nil {
		return recipe.Recipe{}, storageError(err)
	}
	if !recipe.CanView(loaded, requestctx.UserIDFromContext(ctx)) {
		return recipe.Recipe{}, errors.New(errors.CodeNotFound, "record not found")
	}
	return loaded, nil
}

// loadOwnedRecipe fetches a recipe and enforces write access.
func (s *Server) loadOwnedRecipe(r *http.Request) (recipe.Recipe, error) {
	loaded, err := s.loadVisibleRecipe(r)
	if err != nil {
		return recipe.Recipe{}, err
	}
	if !recipe.CanEdit(loaded, requestctx.UserIDFromContext(httpx.RequestContext(r))) {
		return recipe.Recipe{}, errors.New(errors.CodeRecipeForbidden, "only the owner can modify a recipe")
	}
	return loaded, nil
}

func (s *Server) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	loaded, err := s.loadVisibleRecipe(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	ctx := httpx.RequestContext(r)
	payload := recipeToPayload(loaded)
	if summary, err := s.store.RatingSummary(ctx, loaded.ID); err == nil && summary.Count > 0 {
		response := ratingResponse{Average: summary.Average, Count: summary.Count}
		if userID := requestctx.UserIDFromContext(ctx); userID != "" {
			if own, err := s.store.GetRating(ctx, loaded.ID, userID); err == nil {
				response.Own = own.Value
			}
		}
		payload.Rating = &response
	}
	_ = httpx.WriteJSON(w, http.StatusOK, payload)
}

func (s *Server) handleUpdateRecipe(w http.ResponseWriter, r *http.Request) {
	var req recipePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, errors.Wrap(errors.CodeInvalidPayload, "decode recipe request", err))
		return
	}

	existing, err := s.loadOwnedRecipe(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	updated, err := recipe.ApplyUpdate(existing, payloadToDraft(req), s.now)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := s.store.UpdateRecipe(httpx.RequestContext(r), updated); err != nil {
		httpx.WriteError(w, storageError(err))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, recipeToPayload(updated))
}

func (s *Server) handleDeleteRecipe(w http.ResponseWriter, r *http.Request) {
	existing, err := s.loadOwnedRecipe(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := s.store.DeleteRecipe(httpx.RequestContext(r), existing.ID); err != nil {
		httpx.WriteError(w, storageError(err))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type listRecipesResponse struct {
	Recipes       []recipePayload `json:"recipes"`
	NextPageToken string          `json:"next_page_token,omitempty"`
}

func (s *Server) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.RequestContext(r)
	query := r.URL.Query()

	pageSize := 0
	if raw := query.Get("page_size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httpx.WriteError(w, errors.New(errors.CodeInvalidPayload, "page_size must be a positive integer"))
			return
		}
		pageSize = parsed
	}

	filter := storage.RecipeFilter{
		ViewerID:  requestctx.UserIDFromContext(ctx),
		Query:     query.Get("q"),
		Tag:       query.Get("tag"),
		PageSize:  pageSize,
		PageToken: query.Get("page_token"),
	}
	if query.Get("mine") == "true" && filter.ViewerID != "" {
		filter.OwnerID = filter.ViewerID
	}

	page, err := s.store.ListRecipes(ctx, filter)
	if err != nil {
		httpx.WriteError(w, storageError(err))
		return
	}

	recipeIDs := make([]string, 0, len(page.Recipes))
	for _, found := range page.Recipes {
		recipeIDs = append(recipeIDs, found.ID)
	}
	summaries, err := s.store.RatingSummaries(ctx, recipeIDs)
	if err != nil {
		httpx.WriteError(w, storageError(err))
		return
	}

	response := listRecipesResponse{
		Recipes:       make([]recipePayload, 0, len(page.Recipes)),
		NextPageToken: page.NextPageToken,
	}
	for _, found := range page.Recipes {
		payload := recipeToPayload(found)
		if summary, ok := summaries[found.ID]; ok {
			payload.Rating = &ratingResponse{Average: summary.Average, Count: summary.Count}
		}
		response.Recipes = append(response.Recipes, payload)
	}
	_ = httpx.WriteJSON(w, http.StatusOK, response)
}

type scaledIngredientPayload struct {
	Quantity float64 `json:"quantity,omitempty"`
	Display  string  `json:"display,omitempty"`
	Unit     string  `json:"unit,omitempty"`
	Name     string  `json:"name"`
	Note     string  `json:"note,omitempty"`
}

type scaledGroupPayload struct {
	Name        string                    `json:"name,omitempty"`
	Ingredients []scaledIngredientPayload `json:"ingredients"`
}

type scaleResponse struct {
	BaseServings   int                  `json:"base_servings"`
	TargetServings int                  `json:"target_servings"`
	Factor         float64              `json:"factor"`
	Groups         []scaledGroupPayload `json:"ingredient_groups"`
}

func (s *Server) handleScaleRecipe(w http.ResponseWriter, r *http.Request) {
	loaded, err := s.loadVisibleRecipe(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	servings := loaded.Servings
	if raw := r.URL.Query().Get("servings"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httpx.WriteError(w, scale.ErrInvalidServings)
			return
		}
		servings = parsed
	}

	result, err := scale.Recipe(loaded, servings, s.requestLanguage(r))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	response := scaleResponse{
		BaseServings:   result.BaseServings,
		TargetServings: result.TargetServings,
		Factor:         result.Factor,
		Groups:         make([]scaledGroupPayload, 0, len(result.Groups)),
	}
	for _, group := range result.Groups {
		ingredients := make([]scaledIngredientPayload, 0, len(group.Ingredients))
		for _, ingredient := range group.Ingredients {
			ingredients = append(ingredients, scaledIngredientPayload{
				Quantity: ingredient.Quantity,
				Display:  ingredient.Display,
				Unit:     ingredient.Unit,
				Name:     ingredient.Name,
				Note:     ingredient.Note,
			})
		}
		response.Groups = append(response.Groups, scaledGroupPayload{Name: group.Name, Ingredients: ingredients})
	}
	_ = httpx.WriteJSON(w, http.StatusOK, response)
}

type reorderRequest struct {
	Kind      string `json:"kind"` // ingredient, instruction, tip
	FromGroup int    `json:"from_group"`
	FromIndex int    `json:"from_index"`
	ToGroup   int    `json:"to_group"`
	ToIndex   int    `json:"to_index"`
}

func (s *Server) handleReorderRecipe(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, errors.Wrap(errors.CodeInvalidPayload, "decode reorder request", err))
		return
	}

	existing, err := s.loadOwnedRecipe(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	var moved recipe.Recipe
	switch req.Kind {
	case "", "ingredient":
		moved, err = recipe.MoveIngredient(existing, recipe.IngredientMove{
			FromGroup: req.FromGroup,
			FromIndex: req.FromIndex,
			ToGroup:   req.ToGroup,
			ToIndex:   req.ToIndex,
		})
	case "instruction":
		moved, err = recipe.MoveInstruction(existing, req.FromIndex, req.ToIndex)
	case "tip":
		moved, err = recipe.MoveTip(existing, req.FromIndex, req.ToIndex)
	default:
		err = errors.New(errors.CodeRecipeMoveOutOfRange, "kind must be ingredient, instruction, or tip")
	}
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	moved.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateRecipe(httpx.RequestContext(r), moved); err != nil {
		httpx.WriteError(w, storageError(err))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, recipeToPayload(moved))
}

type putRatingRequest struct {
	Value int `json:"value"`
}

func (s *Server) handlePutRating(w http.ResponseWriter, r *http.Request) {
	var req putRatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, errors.Wrap(errors.CodeInvalidPayload, "decode rating request", err))
		return
	}

	loaded, err := s.loadVisibleRecipe(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	ctx := httpx.RequestContext(r)
	userID := requestctx.UserIDFromContext(ctx)
	score, err := rating.New(loaded, userID, req.Value, s.now)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	// Keep created_at stable across re-ratings.
	if existing, err := s.store.GetRating(ctx, loaded.ID, userID); err == nil {
		score.CreatedAt = existing.CreatedAt
	}
	if err := s.store.PutRating(ctx, score); err != nil {
		httpx.WriteError(w, storageError(err))
		return
	}

	summary, err := s.store.RatingSummary(ctx, loaded.ID)
	if err != nil {
		httpx.WriteError(w, storageError(err))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, ratingResponse{
		Average: summary.Average,
		Count:   summary.Count,
		Own:     score.Value,
	})
}
