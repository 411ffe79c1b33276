package server

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/saveurhq/tastebook/internal/ai"
	"github.com/saveurhq/tastebook/internal/session"
	"github.com/saveurhq/tastebook/internal/storage/sqlite"
)

type fakeAIProvider struct {
	jsonResponse []byte
	imageResult  ai.ImageResult
	lastPrompt   string
	lastImage    []byte
}

func (f *fakeAIProvider) GenerateJSON(_ context.Context, prompt string, image []byte, _ string) ([]byte, error) {
	f.lastPrompt = prompt
	f.lastImage = image
	return f.jsonResponse, nil
}

func (f *fakeAIProvider) GenerateImage(_ context.Context, prompt string) (ai.ImageResult, error) {
	f.lastPrompt = prompt
	return f.imageResult, nil
}

func newTestServer(t *testing.T) (http.Handler, *fakeAIProvider) {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "tastebook.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	publicKey, privateKey, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate session keys: %v", err)
	}
	sessions := session.Config{
		Issuer:     "tastebook-test",
		Audience:   "tastebook-api",
		PrivateKey: privateKey,
		PublicKey:  publicKey,
		TTL:        time.Hour,
	}

	provider := &fakeAIProvider{}
	srv := New(store, sessions, WithAIFlows(ai.NewFlows(provider)))
	return srv.Handler(), provider
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	// Zero the target first: json.Unmarshal merges into reused slice elements,
	// which leaks fields from a previous decode when the same struct is reused.
	reflect.ValueOf(target).Elem().SetZero()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("decode response %q: %v", recorder.Body.String(), err)
	}
}

func registerUser(t *testing.T, handler http.Handler, username string) (token string, userID string) {
	t.Helper()
	recorder := doJSON(t, handler, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "correct-horse",
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", username, recorder.Code, recorder.Body.String())
	}
	var response struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	decodeBody(t, recorder, &response)
	if response.Token == "" || response.User.ID == "" {
		t.Fatalf("unexpected auth response %s", recorder.Body.String())
	}
	return response.Token, response.User.ID
}

func createRecipe(t *testing.T, handler http.Handler, token string, body map[string]any) string {
	t.Helper()
	recorder := doJSON(t, handler, http.MethodPost, "/api/v1/recipes", token, body)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("create recipe: status %d body %s", recorder.Code, recorder.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, recorder, &created)
	return created.ID
}

func sampleRecipeBody(title, visibility string) map[string]any {
	return map[string]any{
		"title":      title,
		"visibility": visibility,
		"servings":   4,
		"tags":       []string{"Dinner"},
		"ingredient_groups": []map[string]any{
			{
				"name": "Base",
				"ingredients": []map[string]any{
					{"quantity": 2.0, "unit": "cups", "name": "rice"},
					{"name": "salt", "note": "to taste"},
				},
			},
		},
		"instructions": []string{"Cook the rice."},
	}
}

func TestHealthz(t *testing.T) {
	handler, _ := newTestServer(t)
	recorder := doJSON(t, handler, http.MethodGet, "/healthz", "", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
}

func TestRegisterLoginFlow(t *testing.T) {
	handler, _ := newTestServer(t)
	token, _ := registerUser(t, handler, "alice")

	// Duplicate username conflicts.
	recorder := doJSON(t, handler, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "alice",
		"email":    "other@example.com",
		"password": "correct-horse",
	})
	if recorder.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate username, got %d", recorder.Code)
	}

	// Login with the right password.
	recorder = doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "alice",
		"password": "correct-horse",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("login: status %d body %s", recorder.Code, recorder.Body.String())
	}

	// The registered email works as the login identifier too.
	recorder = doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "alice@example.com",
		"password": "correct-horse",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("email login: status %d body %s", recorder.Code, recorder.Body.String())
	}

	// Wrong password and unknown user both read as 401.
	for _, body := range []map[string]string{
		{"username": "alice", "password": "wrong-password"},
		{"username": "ghost", "password": "correct-horse"},
		{"username": "ghost@example.com", "password": "correct-horse"},
	} {
		recorder = doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", body)
		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d for %v", recorder.Code, body)
		}
	}

	// The bearer token authenticates /me.
	recorder = doJSON(t, handler, http.MethodGet, "/api/v1/me", token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("me: status %d", recorder.Code)
	}
	var profile struct {
		Username string `json:"username"`
	}
	decodeBody(t, recorder, &profile)
	if profile.Username != "alice" {
		t.Fatalf("unexpected profile %s", recorder.Body.String())
	}

	// No token means 401.
	recorder = doJSON(t, handler, http.MethodGet, "/api/v1/me", "", nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", recorder.Code)
	}
}

func TestMalformedBodyReturnsInvalidPayload(t *testing.T) {
	handler, _ := newTestServer(t)
	token, _ := registerUser(t, handler, "alice")

	for _, target := range []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/auth/register"},
		{http.MethodPost, "/api/v1/auth/login"},
		{http.MethodPut, "/api/v1/me"},
		{http.MethodPost, "/api/v1/recipes"},
		{http.MethodPost, "/api/v1/shopping-list"},
	} {
		request := httptest.NewRequest(target.method, target.path, bytes.NewReader([]byte("{not json")))
		request.Header.Set("Content-Type", "application/json")
		request.Header.Set("Authorization", "Bearer "+token)
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("%s %s: expected 400, got %d", target.method, target.path, recorder.Code)
		}
		var body struct {
			Code string `json:"code"`
		}
		decodeBody(t, recorder, &body)
		if body.Code != "INVALID_PAYLOAD" {
			t.Fatalf("%s %s: unexpected code %q", target.method, target.path, body.Code)
		}
	}
}

func TestPreferencesRoundTrip(t *testing.T) {
	handler, _ := newTestServer(t)
	token, _ := registerUser(t, handler, "alice")

	recorder := doJSON(t, handler, http.MethodPut, "/api/v1/me/preferences", token, map[string]any{
		"dietary":   []string{"Vegetarian"},
		"allergens": []string{"Peanuts", "peanuts"},
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("put preferences: status %d", recorder.Code)
	}

	recorder = doJSON(t, handler, http.MethodGet, "/api/v1/me/preferences", token, nil)
	var prefs struct {
		Dietary   []string `json:"dietary"`
		Allergens []string `json:"allergens"`
	}
	decodeBody(t, recorder, &prefs)
	if len(prefs.Dietary) != 1 || prefs.Dietary[0] != "vegetarian" {
		t.Fatalf("unexpected dietary %v", prefs.Dietary)
	}
	if len(prefs.Allergens) != 1 || prefs.Allergens[0] != "peanuts" {
		t.Fatalf("unexpected allergens %v", prefs.Allergens)
	}
}

func TestRecipeCRUDAndVisibility(t *testing.T) {
	handler, _ := newTestServer(t)
	aliceToken, _ := registerUser(t, handler, "alice")
	bobToken, _ := registerUser(t, handler, "bob")

	recipeID := createRecipe(t, handler, aliceToken, sampleRecipeBody("Feijoada", "private"))

	// Owner reads their private recipe.
	recorder := doJSON(t, handler, http.MethodGet, "/api/v1/recipes/"+recipeID, aliceToken, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("owner get: status %d", recorder.Code)
	}

	// Another user sees 404, not 403.
	recorder = doJSON(t, handler, http.MethodGet, "/api/v1/recipes/"+recipeID, bobToken, nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for hidden recipe, got %d", recorder.Code)
	}

	// Owner updates; tags are normalized to lowercase.
	body := sampleRecipeBody("Feijoada Completa", "public")
	recorder = doJSON(t, handler, http.MethodPut, "/api/v1/recipes/"+recipeID, aliceToken, body)
	if recorder.Code != http.StatusOK {
		t.Fatalf("update: status %d body %s", recorder.Code, recorder.Body.String())
	}
	var updated struct {
		Title string   `json:"title"`
		Tags  []string `json:"tags"`
	}
	decodeBody(t, recorder, &updated)
	if updated.Title != "Feijoada Completa" || len(updated.Tags) != 1 || updated.Tags[0] != "dinner" {
		t.Fatalf("unexpected update %s", recorder.Body.String())
	}

	// Public now; bob can read but not modify.
	recorder = doJSON(t, handler, http.MethodGet, "/api/v1/recipes/"+recipeID, bobToken, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("bob get public: status %d", recorder.Code)
	}
	recorder = doJSON(t, handler, http.MethodDelete, "/api/v1/recipes/"+recipeID, bobToken, nil)
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner delete, got %d", recorder.Code)
	}

	// Owner deletes.
	recorder = doJSON(t, handler, http.MethodDelete, "/api/v1/recipes/"+recipeID, aliceToken, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("owner delete: status %d", recorder.Code)
	}
	recorder = doJSON(t, handler, http.MethodGet, "/api/v1/recipes/"+recipeID, aliceToken, nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", recorder.Code)
	}
}

func TestListRecipesSearchAndPaging(t *testing.T) {
	handler, _ := newTestServer(t)
	aliceToken, _ := registerUser(t, handler, "alice")
	bobToken, _ := registerUser(t, handler, "bob")

	stewID := createRecipe(t, handler, aliceToken, sampleRecipeBody("Public Stew", "public"))
	createRecipe(t, handler, aliceToken, sampleRecipeBody("Secret Cake", "private"))
	createRecipe(t, handler, bobToken, sampleRecipeBody("Bob Bread", "private"))

	recorder := doJSON(t, handler, http.MethodPut, "/api/v1/recipes/"+stewID+"/rating", bobToken, map[string]int{"value": 4})
	if recorder.Code != http.StatusOK {
		t.Fatalf("rate stew: status %d body %s", recorder.Code, recorder.Body.String())
	}

	var listing struct {
		Recipes []struct {
			Title  string `json:"title"`
			Rating *struct {
				Average float64 `json:"average"`
				Count   int     `json:"count"`
			} `json:"rating"`
		} `json:"recipes"`
		NextPageToken string `json:"next_page_token"`
	}

	// Anonymous sees only public recipes, with the rating summary attached.
	recorder = doJSON(t, handler, http.MethodGet, "/api/v1/recipes", "", nil)
	decodeBody(t, recorder, &listing)
	if len(listing.Recipes) != 1 || listing.Recipes[0].Title != "Public Stew" {
		t.Fatalf("unexpected anonymous listing %s", recorder.Body.String())
	}
	if listing.Recipes[0].Rating == nil || listing.Recipes[0].Rating.Average != 4 || listing.Recipes[0].Rating.Count != 1 {
		t.Fatalf("expected rating summary on list entry: %s", recorder.Body.String())
	}

	// Alice sees public plus her own private recipes.
	recorder = doJSON(t, handler, http.MethodGet, "/api/v1/recipes", aliceToken, nil)
	decodeBody(t, recorder, &listing)
	if len(listing.Recipes) != 2 {
		t.Fatalf("unexpected alice listing %s", recorder.Body.String())
	}
	for _, entry := range listing.Recipes {
		if entry.Title == "Secret Cake" && entry.Rating != nil {
			t.Fatalf("unrated recipe must not carry a summary: %s", recorder.Body.String())
		}
	}

	// Search matches private recipes only for their owner.
	recorder = doJSON(t, handler, http.MethodGet, "/api/v1/recipes?q=secret", aliceToken, nil)
	decodeBody(t, recorder, &listing)
	if len(listing.Recipes) != 1 || listing.Recipes[0].Title != "Secret Cake" {
		t.Fatalf("unexpected search result %s", recorder.Body.String())
	}
	recorder = doJSON(t, handler, http.MethodGet, "/api/v1/recipes?q=secret", bobToken, nil)
	decodeBody(t, recorder, &listing)
	if len(listing.Recipes) != 0 {
		t.Fatalf("bob must not find alice's private recipe: %s", recorder.Body.String())
	}

	// mine=true restricts to the caller's recipes.
	recorder = doJSON(t, handler, http.MethodGet, "/api/v1/recipes?mine=true", bobToken, nil)
	decodeBody(t, recorder, &listing)
	if len(listing.Recipes) != 1 || listing.Recipes[0].Title != "Bob Bread" {
		t.Fatalf("unexpected mine listing %s", recorder.Body.String())
	}

	// Paging walks all visible recipes.
	var seen []string
	path := "/api/v1/recipes?page_size=1"
	for {
		recorder = doJSON(t, handler, http.MethodGet, path, aliceToken, nil)
		decodeBody(t, recorder, &listing)
		for _, r := range listing.Recipes {
			seen = append(seen, r.Title)
		}
		if listing.NextPageToken == "" {
			break
		}
		path = "/api/v1/recipes?page_size=1&page_token=" + listing.NextPageToken
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 recipes across pages, got %v", seen)
	}
}

func TestScaleRecipe(t *testing.T) {
	handler, _ := newTestServer(t)
	token, _ := registerUser(t, handler, "alice")
	recipeID := createRecipe(t, handler, token, sampleRecipeBody("Rice", "public"))

	recorder := doJSON(t, handler, http.MethodGet, fmt.Sprintf("/api/v1/recipes/%s/scale?servings=6", recipeID), "", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("scale: status %d body %s", recorder.Code, recorder.Body.String())
	}
	var scaled struct {
		BaseServings   int     `json:"base_servings"`
		TargetServings int     `json:"target_servings"`
		Factor         float64 `json:"factor"`
		Groups         []struct {
			Ingredients []struct {
				Quantity float64 `json:"quantity"`
				Display  string  `json:"display"`
				Name     string  `json:"name"`
			} `json:"ingredients"`
		} `json:"ingredient_groups"`
	}
	decodeBody(t, recorder, &scaled)
	if scaled.BaseServings != 4 || scaled.TargetServings != 6 || scaled.Factor != 1.5 {
		t.Fatalf("unexpected scale response %s", recorder.Body.String())
	}
	rice := scaled.Groups[0].Ingredients[0]
	if rice.Quantity != 3 || rice.Display != "3" {
		t.Fatalf("unexpected scaled rice %+v", rice)
	}
	salt := scaled.Groups[0].Ingredients[1]
	if salt.Quantity != 0 || salt.Display != "" {
		t.Fatalf("unspecified quantity must not scale: %+v", salt)
	}

	// pt-BR locale formats decimals with a comma.
	recorder = doJSON(t, handler, http.MethodGet, fmt.Sprintf("/api/v1/recipes/%s/scale?servings=1&lang=pt-BR", recipeID), "", nil)
	decodeBody(t, recorder, &scaled)
	if scaled.Groups[0].Ingredients[0].Display != "0,5" {
		t.Fatalf("expected pt-BR decimal, got %q", scaled.Groups[0].Ingredients[0].Display)
	}

	recorder = doJSON(t, handler, http.MethodGet, fmt.Sprintf("/api/v1/recipes/%s/scale?servings=0", recipeID), "", nil)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero servings, got %d", recorder.Code)
	}
}

func TestReorderIngredients(t *testing.T) {
	handler, _ := newTestServer(t)
	token, _ := registerUser(t, handler, "alice")
	recipeID := createRecipe(t, handler, token, sampleRecipeBody("Rice", "private"))

	recorder := doJSON(t, handler, http.MethodPost, "/api/v1/recipes/"+recipeID+"/reorder", token, map[string]any{
		"kind":       "ingredient",
		"from_group": 0,
		"from_index": 0,
		"to_group":   0,
		"to_index":   1,
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("reorder: status %d body %s", recorder.Code, recorder.Body.String())
	}
	var moved struct {
		Groups []struct {
			Ingredients []struct {
				Name string `json:"name"`
			} `json:"ingredients"`
		} `json:"ingredient_groups"`
	}
	decodeBody(t, recorder, &moved)
	if moved.Groups[0].Ingredients[0].Name != "salt" || moved.Groups[0].Ingredients[1].Name != "rice" {
		t.Fatalf("unexpected order %s", recorder.Body.String())
	}

	recorder = doJSON(t, handler, http.MethodPost, "/api/v1/recipes/"+recipeID+"/reorder", token, map[string]any{
		"kind":       "ingredient",
		"from_group": 0,
		"from_index": 9,
		"to_group":   0,
		"to_index":   0,
	})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range move, got %d", recorder.Code)
	}
}

func TestRatings(t *testing.T) {
	handler, _ := newTestServer(t)
	aliceToken, _ := registerUser(t, handler, "alice")
	bobToken, _ := registerUser(t, handler, "bob")
	recipeID := createRecipe(t, handler, aliceToken, sampleRecipeBody("Rice", "public"))

	// Owners cannot rate their own recipes.
	recorder := doJSON(t, handler, http.MethodPut, "/api/v1/recipes/"+recipeID+"/rating", aliceToken, map[string]int{"value": 5})
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for own rating, got %d", recorder.Code)
	}

	// Out-of-range values are rejected.
	recorder = doJSON(t, handler, http.MethodPut, "/api/v1/recipes/"+recipeID+"/rating", bobToken, map[string]int{"value": 6})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range rating, got %d", recorder.Code)
	}

	recorder = doJSON(t, handler, http.MethodPut, "/api/v1/recipes/"+recipeID+"/rating", bobToken, map[string]int{"value": 4})
	if recorder.Code != http.StatusOK {
		t.Fatalf("rate: status %d body %s", recorder.Code, recorder.Body.String())
	}
	var summary struct {
		Average float64 `json:"average"`
		Count   int     `json:"count"`
		Own     int     `json:"own"`
	}
	decodeBody(t, recorder, &summary)
	if summary.Average != 4 || summary.Count != 1 || summary.Own != 4 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	// Re-rating replaces, not appends.
	recorder = doJSON(t, handler, http.MethodPut, "/api/v1/recipes/"+recipeID+"/rating", bobToken, map[string]int{"value": 2})
	decodeBody(t, recorder, &summary)
	if summary.Average != 2 || summary.Count != 1 {
		t.Fatalf("expected replaced rating, got %+v", summary)
	}

	// The recipe payload carries the summary.
	recorder = doJSON(t, handler, http.MethodGet, "/api/v1/recipes/"+recipeID, bobToken, nil)
	var detail struct {
		Rating *struct {
			Average float64 `json:"average"`
			Own     int     `json:"own"`
		} `json:"rating"`
	}
	decodeBody(t, recorder, &detail)
	if detail.Rating == nil || detail.Rating.Average != 2 || detail.Rating.Own != 2 {
		t.Fatalf("unexpected recipe rating %s", recorder.Body.String())
	}
}

func TestShoppingListFlow(t *testing.T) {
	handler, _ := newTestServer(t)
	token, _ := registerUser(t, handler, "alice")
	recipeID := createRecipe(t, handler, token, sampleRecipeBody("Rice", "private"))

	// Manual item.
	recorder := doJSON(t, handler, http.MethodPost, "/api/v1/shopping-list", token, map[string]string{
		"label": "coffee",
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("add item: status %d body %s", recorder.Code, recorder.Body.String())
	}
	var item struct {
		ID string `json:"id"`
	}
	decodeBody(t, recorder, &item)

	// Items from a recipe, scaled to 8 servings.
	recorder = doJSON(t, handler, http.MethodPost, "/api/v1/shopping-list/from-recipe", token, map[string]any{
		"recipe_id": recipeID,
		"servings":  8,
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("from recipe: status %d body %s", recorder.Code, recorder.Body.String())
	}
	var added struct {
		Items []struct {
			Label    string `json:"label"`
			Quantity string `json:"quantity"`
			RecipeID string `json:"recipe_id"`
		} `json:"items"`
	}
	decodeBody(t, recorder, &added)
	if len(added.Items) != 2 || added.Items[0].Label != "rice" || added.Items[0].Quantity != "4" {
		t.Fatalf("unexpected recipe items %s", recorder.Body.String())
	}
	if added.Items[0].RecipeID != recipeID {
		t.Fatalf("expected recipe provenance, got %+v", added.Items[0])
	}

	// Toggle and clear checked.
	recorder = doJSON(t, handler, http.MethodPost, "/api/v1/shopping-list/"+item.ID+"/toggle", token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("toggle: status %d", recorder.Code)
	}
	recorder = doJSON(t, handler, http.MethodPost, "/api/v1/shopping-list/clear-checked", token, nil)
	var cleared struct {
		Cleared int `json:"cleared"`
	}
	decodeBody(t, recorder, &cleared)
	if cleared.Cleared != 1 {
		t.Fatalf("expected 1 cleared, got %d", cleared.Cleared)
	}

	recorder = doJSON(t, handler, http.MethodGet, "/api/v1/shopping-list", token, nil)
	var listing struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	decodeBody(t, recorder, &listing)
	if len(listing.Items) != 2 {
		t.Fatalf("expected 2 remaining items, got %s", recorder.Body.String())
	}

	// Another user cannot touch alice's items.
	bobToken, _ := registerUser(t, handler, "bob")
	recorder = doJSON(t, handler, http.MethodDelete, "/api/v1/shopping-list/"+listing.Items[0].ID, bobToken, nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign item, got %d", recorder.Code)
	}
}

func TestExportAndImport(t *testing.T) {
	handler, _ := newTestServer(t)
	aliceToken, _ := registerUser(t, handler, "alice")
	recipeID := createRecipe(t, handler, aliceToken, sampleRecipeBody("Feijoada", "public"))

	// Single recipe as markdown.
	recorder := doJSON(t, handler, http.MethodGet, "/api/v1/export/recipes/"+recipeID+"?format=markdown", "", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("export markdown: status %d", recorder.Code)
	}
	if !bytes.Contains(recorder.Body.Bytes(), []byte("# Feijoada")) {
		t.Fatalf("expected markdown heading, got %s", recorder.Body.String())
	}

	recorder = doJSON(t, handler, http.MethodGet, "/api/v1/export/recipes/"+recipeID+"?format=pdf", "", nil)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown format, got %d", recorder.Code)
	}

	// Whole collection as JSON, re-imported by another user.
	recorder = doJSON(t, handler, http.MethodGet, "/api/v1/export/collection", aliceToken, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("export collection: status %d", recorder.Code)
	}
	exported := recorder.Body.Bytes()

	bobToken, _ := registerUser(t, handler, "bob")
	request := httptest.NewRequest(http.MethodPost, "/api/v1/import/collection", bytes.NewReader(exported))
	request.Header.Set("Authorization", "Bearer "+bobToken)
	importRecorder := httptest.NewRecorder()
	handler.ServeHTTP(importRecorder, request)
	if importRecorder.Code != http.StatusOK {
		t.Fatalf("import: status %d body %s", importRecorder.Code, importRecorder.Body.String())
	}
	var result struct {
		Imported int `json:"imported"`
	}
	decodeBody(t, importRecorder, &result)
	if result.Imported != 1 {
		t.Fatalf("expected 1 imported, got %d", result.Imported)
	}

	// Imported copies are private to the importer.
	recorder = doJSON(t, handler, http.MethodGet, "/api/v1/recipes?mine=true", bobToken, nil)
	var listing struct {
		Recipes []struct {
			ID         string `json:"id"`
			Visibility string `json:"visibility"`
		} `json:"recipes"`
	}
	decodeBody(t, recorder, &listing)
	if len(listing.Recipes) != 1 || listing.Recipes[0].Visibility != "private" {
		t.Fatalf("unexpected imported recipes %s", recorder.Body.String())
	}
	if listing.Recipes[0].ID == recipeID {
		t.Fatal("imported recipe must get a fresh id")
	}
}

func TestExtractRecipeFlow(t *testing.T) {
	handler, provider := newTestServer(t)
	token, _ := registerUser(t, handler, "alice")

	provider.jsonResponse = []byte(`{
		"title": "Scanned Soup",
		"servings": 2,
		"ingredient_groups": [{"ingredients": [{"quantity": 1, "unit": "l", "name": "broth"}]}],
		"instructions": ["Heat the broth."]
	}`)

	// Stored allergens flow into the prompt.
	doJSON(t, handler, http.MethodPut, "/api/v1/me/preferences", token, map[string]any{
		"allergens": []string{"shellfish"},
	})

	recorder := doJSON(t, handler, http.MethodPost, "/api/v1/ai/extract-recipe", token, map[string]string{
		"image":     base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8, 0xff}),
		"mime_type": "image/jpeg",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("extract: status %d body %s", recorder.Code, recorder.Body.String())
	}
	var draft struct {
		Title  string `json:"title"`
		Groups []struct {
			Ingredients []struct {
				Name string `json:"name"`
			} `json:"ingredients"`
		} `json:"ingredient_groups"`
	}
	decodeBody(t, recorder, &draft)
	if draft.Title != "Scanned Soup" || len(draft.Groups) != 1 {
		t.Fatalf("unexpected draft %s", recorder.Body.String())
	}
	if !bytes.Contains([]byte(provider.lastPrompt), []byte("shellfish")) {
		t.Fatalf("expected allergens in prompt:\n%s", provider.lastPrompt)
	}
}

func TestExtractRecipeMultipartUpload(t *testing.T) {
	handler, provider := newTestServer(t)
	token, _ := registerUser(t, handler, "alice")

	provider.jsonResponse = []byte(`{
		"title": "Scanned Stew",
		"ingredient_groups": [{"ingredients": [{"name": "beans"}]}]
	}`)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", "recipe.jpg")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte{0xff, 0xd8, 0xff}); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ai/extract-recipe", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("extract: status %d body %s", recorder.Code, recorder.Body.String())
	}
	var draft struct {
		Title string `json:"title"`
	}
	decodeBody(t, recorder, &draft)
	if draft.Title != "Scanned Stew" {
		t.Fatalf("unexpected draft %s", recorder.Body.String())
	}
	if len(provider.lastImage) != 3 {
		t.Fatalf("expected uploaded bytes to reach the provider, got %d", len(provider.lastImage))
	}
}

func TestRecipeImageFlow(t *testing.T) {
	handler, provider := newTestServer(t)
	token, _ := registerUser(t, handler, "alice")
	provider.imageResult = ai.ImageResult{Data: []byte{0x89, 0x50, 0x4e, 0x47}, MIME: "image/png"}

	recorder := doJSON(t, handler, http.MethodPost, "/api/v1/ai/recipe-image", token, map[string]string{
		"title": "Feijoada",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("recipe image: status %d body %s", recorder.Code, recorder.Body.String())
	}
	var response struct {
		Image string `json:"image"`
		MIME  string `json:"mime_type"`
	}
	decodeBody(t, recorder, &response)
	if response.MIME != "image/png" {
		t.Fatalf("unexpected mime %q", response.MIME)
	}
	data, err := base64.StdEncoding.DecodeString(response.Image)
	if err != nil || len(data) != 4 {
		t.Fatalf("unexpected image payload %q err=%v", response.Image, err)
	}
}
