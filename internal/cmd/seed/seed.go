// Package seed wires configuration and execution for the demo data seeder.
//
// It fills a database with a small set of demo accounts, recipes, ratings,
// and shopping items for local development.
package seed

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/saveurhq/tastebook/internal/account"
	"github.com/saveurhq/tastebook/internal/platform/config"
	"github.com/saveurhq/tastebook/internal/platform/id"
	"github.com/saveurhq/tastebook/internal/rating"
	"github.com/saveurhq/tastebook/internal/recipe"
	"github.com/saveurhq/tastebook/internal/shoppinglist"
	"github.com/saveurhq/tastebook/internal/storage"
	"github.com/saveurhq/tastebook/internal/storage/sqlite"
)

// DemoPassword is the login password for every seeded account.
const DemoPassword = "tastebook-demo"

// Config holds the seed command configuration.
type Config struct {
	DBPath  string `env:"TASTEBOOK_DB_PATH"`
	Verbose bool
}

// ParseConfig parses environment variables and flag overrides into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{DBPath: "tastebook.db"}
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "verbose output")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run opens the database and applies the demo fixtures.
func Run(ctx context.Context, cfg Config) error {
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close storage: %v", err)
		}
	}()
	return Apply(ctx, store, cfg.Verbose)
}

type userFixture struct {
	username    string
	displayName string
	locale      string
	prefs       account.Preferences
	recipes     []recipe.Draft
	shopping    []shoppingFixture
}

type shoppingFixture struct {
	label    string
	quantity string
	unit     string
}

type ratingFixture struct {
	rater       string
	recipeOwner string
	recipeTitle string
	value       int
}

// Apply seeds the demo fixtures. A user that already exists is skipped
// along with their fixtures, so re-running is safe.
func Apply(ctx context.Context, store storage.Store, verbose bool) error {
	seeded := map[string]map[string]recipe.Recipe{}
	users := map[string]account.User{}

	for _, fixture := range fixtures() {
		user, created, err := ensureUser(ctx, store, fixture)
		if err != nil {
			return err
		}
		users[fixture.username] = user
		if !created {
			if verbose {
				log.Printf("user %s exists, skipping fixtures", fixture.username)
			}
			continue
		}

		if err := store.PutPreferences(ctx, user.ID, account.NormalizePreferences(fixture.prefs)); err != nil {
			return fmt.Errorf("seed preferences for %s: %w", fixture.username, err)
		}

		byTitle := map[string]recipe.Recipe{}
		for _, draft := range fixture.recipes {
			built, err := recipe.Create(user.ID, draft, time.Now, id.NewID)
			if err != nil {
				return fmt.Errorf("build recipe %q: %w", draft.Title, err)
			}
			if err := store.CreateRecipe(ctx, built); err != nil {
				return fmt.Errorf("seed recipe %q: %w", draft.Title, err)
			}
			byTitle[built.Title] = built
			if verbose {
				log.Printf("seeded recipe %q for %s", built.Title, fixture.username)
			}
		}
		seeded[fixture.username] = byTitle

		if len(fixture.shopping) > 0 {
			position, err := store.NextPosition(ctx, user.ID)
			if err != nil {
				return fmt.Errorf("shopping position for %s: %w", fixture.username, err)
			}
			items := make([]shoppinglist.Item, 0, len(fixture.shopping))
			for _, entry := range fixture.shopping {
				item, err := shoppinglist.NewItem(user.ID, entry.label, entry.quantity, entry.unit, position, time.Now, id.NewID)
				if err != nil {
					return fmt.Errorf("build shopping item %q: %w", entry.label, err)
				}
				items = append(items, item)
				position++
			}
			if err := store.PutItems(ctx, items); err != nil {
				return fmt.Errorf("seed shopping items for %s: %w", fixture.username, err)
			}
		}
	}

	for _, fixture := range ratings() {
		owned, ok := seeded[fixture.recipeOwner]
		if !ok {
			continue
		}
		target, ok := owned[fixture.recipeTitle]
		if !ok {
			continue
		}
		rater, ok := users[fixture.rater]
		if !ok {
			continue
		}
		score, err := rating.New(target, rater.ID, fixture.value, time.Now)
		if err != nil {
			return fmt.Errorf("build rating for %q: %w", fixture.recipeTitle, err)
		}
		if err := store.PutRating(ctx, score); err != nil {
			return fmt.Errorf("seed rating for %q: %w", fixture.recipeTitle, err)
		}
	}

	if verbose {
		log.Printf("seeding complete")
	}
	return nil
}

func ensureUser(ctx context.Context, store storage.Store, fixture userFixture) (account.User, bool, error) {
	user, err := account.CreateUser(account.CreateUserInput{
		Username:    fixture.username,
		Email:       fixture.username + "@example.com",
		Password:    DemoPassword,
		DisplayName: fixture.displayName,
		Locale:      fixture.locale,
	}, time.Now, id.NewID)
	if err != nil {
		return account.User{}, false, fmt.Errorf("build user %s: %w", fixture.username, err)
	}

	if err := store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			existing, err := store.GetUserByUsername(ctx, fixture.username)
			if err != nil {
				return account.User{}, false, fmt.Errorf("load user %s: %w", fixture.username, err)
			}
			return existing, false, nil
		}
		return account.User{}, false, fmt.Errorf("seed user %s: %w", fixture.username, err)
	}
	return user, true, nil
}

func fixtures() []userFixture {
	return []userFixture{
		{
			username:    "marina",
			displayName: "Marina Costa",
			locale:      "pt-BR",
			recipes: []recipe.Draft{
				{
					Title:       "Feijoada Completa",
					Description: "Slow-cooked black bean stew with pork.",
					Visibility:  recipe.VisibilityPublic,
					Servings:    8,
					PrepMinutes: 40,
					CookMinutes: 180,
					Tags:        []string{"dinner", "brazilian"},
					Groups: []recipe.IngredientGroup{
						{
							Name: "Stew",
							Ingredients: []recipe.Ingredient{
								{Quantity: 500, Unit: "g", Name: "black beans"},
								{Quantity: 300, Unit: "g", Name: "pork shoulder"},
								{Quantity: 2, Name: "bay leaves"},
							},
						},
						{
							Name: "To serve",
							Ingredients: []recipe.Ingredient{
								{Quantity: 2, Unit: "cups", Name: "white rice"},
								{Name: "orange slices", Note: "optional"},
							},
						},
					},
					Instructions: []string{
						"Soak the beans overnight.",
						"Brown the pork, then simmer everything until tender.",
					},
					Tips: []string{"Tastes better the next day."},
				},
				{
					Title:       "Pão de Queijo",
					Description: "Chewy cheese bread bites.",
					Visibility:  recipe.VisibilityPublic,
					Servings:    6,
					PrepMinutes: 15,
					CookMinutes: 25,
					Tags:        []string{"snack", "brazilian"},
					Groups: []recipe.IngredientGroup{
						{
							Ingredients: []recipe.Ingredient{
								{Quantity: 250, Unit: "g", Name: "tapioca flour"},
								{Quantity: 150, Unit: "g", Name: "minas cheese"},
								{Quantity: 1, Name: "egg"},
							},
						},
					},
					Instructions: []string{
						"Scald the flour with hot milk and oil.",
						"Mix in cheese and egg, roll into balls, bake until golden.",
					},
				},
			},
		},
		{
			username:    "theo",
			displayName: "Theo Park",
			locale:      "en-US",
			prefs: account.Preferences{
				Dietary:   []string{"vegetarian"},
				Allergens: []string{"peanuts"},
			},
			recipes: []recipe.Draft{
				{
					Title:       "Weeknight Ramen",
					Description: "Quick miso ramen with soft eggs.",
					Visibility:  recipe.VisibilityPrivate,
					Servings:    2,
					PrepMinutes: 10,
					CookMinutes: 20,
					Tags:        []string{"dinner", "quick"},
					Groups: []recipe.IngredientGroup{
						{
							Ingredients: []recipe.Ingredient{
								{Quantity: 2, Unit: "portions", Name: "ramen noodles"},
								{Quantity: 3, Unit: "tbsp", Name: "miso paste"},
								{Quantity: 2, Name: "eggs"},
							},
						},
					},
					Instructions: []string{
						"Soft-boil the eggs.",
						"Whisk miso into hot broth and cook the noodles.",
					},
				},
			},
			shopping: []shoppingFixture{
				{label: "scallions", quantity: "1", unit: "bunch"},
				{label: "sesame oil"},
			},
		},
	}
}

func ratings() []ratingFixture {
	return []ratingFixture{
		{rater: "theo", recipeOwner: "marina", recipeTitle: "Feijoada Completa", value: 5},
		{rater: "theo", recipeOwner: "marina", recipeTitle: "Pão de Queijo", value: 4},
	}
}
