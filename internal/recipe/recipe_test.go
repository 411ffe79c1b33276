package recipe

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func staticID() (string, error) {
	return "recipe000000000000000000id", nil
}

func validDraft() Draft {
	return Draft{
		Title:    "Pão de Queijo",
		Servings: 4,
		Groups: []IngredientGroup{
			{
				Name: "Dough",
				Ingredients: []Ingredient{
					{Quantity: 500, Unit: "g", Name: "tapioca flour"},
					{Quantity: 250, Unit: "ml", Name: "milk"},
				},
			},
		},
		Instructions: []string{"Boil the milk.", "Mix everything."},
	}
}

func TestNormalizeDraftTrimsAndDrops(t *testing.T) {
	draft := Draft{
		Title:       "  Carbonara  ",
		Description: " classic ",
		Servings:    2,
		Tags:        []string{" Pasta ", "pasta", "", "Dinner"},
		Groups: []IngredientGroup{
			{
				Name: " Sauce ",
				Ingredients: []Ingredient{
					{Quantity: 4, Name: "  eggs "},
					{Name: "   "},
					{Quantity: -1, Unit: " g ", Name: "pecorino", Note: " finely grated "},
				},
			},
			{Name: "Empty", Ingredients: []Ingredient{{Name: ""}}},
		},
		Instructions: []string{" Whisk eggs. ", "", "Toss with pasta."},
		Tips:         []string{"", " Save pasta water. "},
	}

	got, err := NormalizeDraft(draft)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got.Title != "Carbonara" {
		t.Fatalf("expected trimmed title, got %q", got.Title)
	}
	if got.Visibility != VisibilityPrivate {
		t.Fatalf("expected default private visibility, got %q", got.Visibility)
	}
	if !reflect.DeepEqual(got.Tags, []string{"dinner", "pasta"}) {
		t.Fatalf("expected deduped sorted tags, got %v", got.Tags)
	}
	if len(got.Groups) != 1 {
		t.Fatalf("expected empty group dropped, got %d groups", len(got.Groups))
	}
	group := got.Groups[0]
	if group.Name != "Sauce" {
		t.Fatalf("expected trimmed group name, got %q", group.Name)
	}
	if len(group.Ingredients) != 2 {
		t.Fatalf("expected nameless ingredient dropped, got %d", len(group.Ingredients))
	}
	if group.Ingredients[0].Name != "eggs" {
		t.Fatalf("expected trimmed ingredient name, got %q", group.Ingredients[0].Name)
	}
	if group.Ingredients[1].Quantity != 0 {
		t.Fatalf("expected negative quantity treated as unspecified, got %v", group.Ingredients[1].Quantity)
	}
	if !reflect.DeepEqual(got.Instructions, []string{"Whisk eggs.", "Toss with pasta."}) {
		t.Fatalf("expected blank instructions dropped, got %v", got.Instructions)
	}
	if !reflect.DeepEqual(got.Tips, []string{"Save pasta water."}) {
		t.Fatalf("expected trimmed tips, got %v", got.Tips)
	}
}

func TestNormalizeDraftValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Draft)
		want   error
	}{
		{"empty title", func(d *Draft) { d.Title = "  " }, ErrEmptyTitle},
		{"negative servings", func(d *Draft) { d.Servings = -2 }, ErrInvalidServings},
		{"bad visibility", func(d *Draft) { d.Visibility = "secret" }, ErrInvalidVisibility},
		{"no ingredients", func(d *Draft) { d.Groups = nil }, ErrNoIngredients},
		{
			"only nameless ingredients",
			func(d *Draft) { d.Groups = []IngredientGroup{{Ingredients: []Ingredient{{Name: " "}}}} },
			ErrNoIngredients,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			draft := validDraft()
			tc.mutate(&draft)
			if _, err := NormalizeDraft(draft); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestNormalizeDraftDefaultsServings(t *testing.T) {
	draft := validDraft()
	draft.Servings = 0
	got, err := NormalizeDraft(draft)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got.Servings != 1 {
		t.Fatalf("expected servings default 1, got %d", got.Servings)
	}
}

func TestCreate(t *testing.T) {
	created, err := Create("owner-1", validDraft(), fixedNow, staticID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.OwnerID != "owner-1" {
		t.Fatalf("unexpected identity %q/%q", created.ID, created.OwnerID)
	}
	if !created.CreatedAt.Equal(fixedNow()) || !created.UpdatedAt.Equal(fixedNow()) {
		t.Fatal("expected timestamps from injected clock")
	}

	if _, err := Create("  ", validDraft(), fixedNow, staticID); !errors.Is(err, ErrEmptyOwner) {
		t.Fatalf("expected ErrEmptyOwner, got %v", err)
	}
}

func TestApplyUpdatePreservesIdentity(t *testing.T) {
	created, err := Create("owner-1", validDraft(), fixedNow, staticID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	later := func() time.Time { return fixedNow().Add(time.Hour) }
	draft := validDraft()
	draft.Title = "Pão de Queijo v2"
	draft.Visibility = VisibilityPublic

	updated, err := ApplyUpdate(created, draft, later)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != created.ID || updated.OwnerID != created.OwnerID {
		t.Fatal("expected identity preserved")
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatal("expected creation time preserved")
	}
	if !updated.UpdatedAt.Equal(later()) {
		t.Fatal("expected updated time advanced")
	}
	if updated.Title != "Pão de Queijo v2" || updated.Visibility != VisibilityPublic {
		t.Fatal("expected content replaced")
	}
}

func TestAuthorization(t *testing.T) {
	private := Recipe{OwnerID: "owner-1", Visibility: VisibilityPrivate}
	public := Recipe{OwnerID: "owner-1", Visibility: VisibilityPublic}

	if !CanView(private, "owner-1") {
		t.Fatal("owner should view private recipe")
	}
	if CanView(private, "other") || CanView(private, "") {
		t.Fatal("non-owners should not view private recipe")
	}
	if !CanView(public, "") {
		t.Fatal("anyone should view public recipe")
	}
	if !CanEdit(private, "owner-1") {
		t.Fatal("owner should edit")
	}
	if CanEdit(public, "other") || CanEdit(public, "") {
		t.Fatal("non-owners should not edit")
	}
}
