// Package rating models per-user recipe ratings.
package rating

import (
	"strings"
	"time"

	apperrors "github.com/saveurhq/tastebook/internal/platform/errors"
	"github.com/saveurhq/tastebook/internal/recipe"
)

const (
	// Min is the lowest allowed rating value.
	Min = 1
	// Max is the highest allowed rating value.
	Max = 5
)

var (
	// ErrOutOfRange indicates a rating value outside 1-5.
	ErrOutOfRange = apperrors.New(apperrors.CodeRatingOutOfRange, "rating must be between 1 and 5")
	// ErrOwnRecipe indicates a user rating their own recipe.
	ErrOwnRecipe = apperrors.New(apperrors.CodeRatingOwnRecipe, "cannot rate your own recipe")
	// ErrForbidden indicates a rating attempt against an unreadable recipe.
	ErrForbidden = apperrors.New(apperrors.CodeRecipeForbidden, "recipe is not visible to this user")
)

// Rating is one user's score for one recipe. Re-rating replaces the value.
type Rating struct {
	RecipeID  string
	UserID    string
	Value     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Summary aggregates ratings for recipe listings.
type Summary struct {
	Average float64
	Count   int
}

// New validates a rating attempt against the target recipe.
func New(r recipe.Recipe, userID string, value int, now func() time.Time) (Rating, error) {
	if now == nil {
		now = time.Now
	}
	userID = strings.TrimSpace(userID)
	if value < Min || value > Max {
		return Rating{}, ErrOutOfRange
	}
	if userID != "" && r.OwnerID == userID {
		return Rating{}, ErrOwnRecipe
	}
	if !recipe.CanView(r, userID) {
		return Rating{}, ErrForbidden
	}
	createdAt := now().UTC()
	return Rating{
		RecipeID:  r.ID,
		UserID:    userID,
		Value:     value,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}, nil
}
