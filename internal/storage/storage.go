package storage

import (
	"context"
	"errors"

	"github.com/saveurhq/tastebook/internal/account"
	"github.com/saveurhq/tastebook/internal/rating"
	"github.com/saveurhq/tastebook/internal/recipe"
	"github.com/saveurhq/tastebook/internal/shoppinglist"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates an insert collided with an existing record.
var ErrAlreadyExists = errors.New("record already exists")

// UserStore persists user accounts and their preferences.
type UserStore interface {
	CreateUser(ctx context.Context, user account.User) error
	GetUser(ctx context.Context, id string) (account.User, error)
	GetUserByUsername(ctx context.Context, username string) (account.User, error)
	GetUserByEmail(ctx context.Context, email string) (account.User, error)
	UpdateUser(ctx context.Context, user account.User) error
	GetPreferences(ctx context.Context, userID string) (account.Preferences, error)
	PutPreferences(ctx context.Context, userID string, prefs account.Preferences) error
}

// RecipePage is one page of recipe results with an opaque continuation token.
type RecipePage struct {
	Recipes       []recipe.Recipe
	NextPageToken string
}

// RecipeFilter narrows recipe listing and search.
type RecipeFilter struct {
	// ViewerID scopes visibility: public recipes plus the viewer's own.
	// Empty means anonymous, public recipes only.
	ViewerID string
	// OwnerID restricts results to one author when set.
	OwnerID string
	// Query matches title, description, tags, and ingredient names.
	Query string
	// Tag restricts results to recipes carrying the tag.
	Tag string
	// PageSize caps results per page; implementations apply a default.
	PageSize int
	// PageToken continues a prior listing.
	PageToken string
}

// RecipeStore persists recipes with their nested ingredient groups.
type RecipeStore interface {
	CreateRecipe(ctx context.Context, r recipe.Recipe) error
	// CreateRecipes inserts a batch atomically: either every recipe is
	// stored or none is.
	CreateRecipes(ctx context.Context, recipes []recipe.Recipe) error
	GetRecipe(ctx context.Context, id string) (recipe.Recipe, error)
	UpdateRecipe(ctx context.Context, r recipe.Recipe) error
	DeleteRecipe(ctx context.Context, id string) error
	ListRecipes(ctx context.Context, filter RecipeFilter) (RecipePage, error)
}

// RatingStore persists per-user recipe ratings.
type RatingStore interface {
	// PutRating inserts or replaces the caller's rating for a recipe.
	PutRating(ctx context.Context, r rating.Rating) error
	GetRating(ctx context.Context, recipeID, userID string) (rating.Rating, error)
	DeleteRating(ctx context.Context, recipeID, userID string) error
	RatingSummary(ctx context.Context, recipeID string) (rating.Summary, error)
	// RatingSummaries aggregates ratings for many recipes in one query.
	// Recipes without ratings are absent from the result.
	RatingSummaries(ctx context.Context, recipeIDs []string) (map[string]rating.Summary, error)
}

// ShoppingListStore persists a user's shopping list items.
type ShoppingListStore interface {
	PutItems(ctx context.Context, items []shoppinglist.Item) error
	GetItem(ctx context.Context, id string) (shoppinglist.Item, error)
	UpdateItem(ctx context.Context, item shoppinglist.Item) error
	DeleteItem(ctx context.Context, id string) error
	ListItems(ctx context.Context, userID string) ([]shoppinglist.Item, error)
	ClearChecked(ctx context.Context, userID string) (int, error)
	// NextPosition returns the position after the user's current maximum.
	NextPosition(ctx context.Context, userID string) (int, error)
}

// Store aggregates all persistence concerns behind one handle.
type Store interface {
	UserStore
	RecipeStore
	RatingStore
	ShoppingListStore
	Close() error
}
