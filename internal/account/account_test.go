package account

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
	return "user00000000000000000000id", nil
}

func TestCreateUser(t *testing.T) {
	user, err := CreateUser(CreateUserInput{
		Username: "  Marmiton ",
		Email:    "Chef@Example.COM",
		Password: "trustno1!",
		Locale:   "pt-BR",
	}, fixedNow, staticID)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.Username != "marmiton" {
		t.Fatalf("expected lowercased username, got %q", user.Username)
	}
	if user.Email != "chef@example.com" {
		t.Fatalf("expected lowercased email, got %q", user.Email)
	}
	if user.DisplayName != "marmiton" {
		t.Fatalf("expected display name to default to username, got %q", user.DisplayName)
	}
	if user.Locale != "pt-BR" {
		t.Fatalf("expected pt-BR locale, got %q", user.Locale)
	}
	if user.PasswordHash == "" || user.PasswordHash == "trustno1!" {
		t.Fatal("expected hashed password")
	}
	if !user.CreatedAt.Equal(fixedNow()) || !user.UpdatedAt.Equal(fixedNow()) {
		t.Fatal("expected timestamps from injected clock")
	}
}

func TestCreateUserValidation(t *testing.T) {
	tests := []struct {
		name  string
		input CreateUserInput
		want  error
	}{
		{"empty username", CreateUserInput{Email: "a@b.co", Password: "longenough"}, ErrEmptyUsername},
		{"short username", CreateUserInput{Username: "ab", Email: "a@b.co", Password: "longenough"}, ErrInvalidUsername},
		{"bad characters", CreateUserInput{Username: "has space", Email: "a@b.co", Password: "longenough"}, ErrInvalidUsername},
		{"bad email", CreateUserInput{Username: "chef", Email: "nope", Password: "longenough"}, ErrInvalidEmail},
		{"weak password", CreateUserInput{Username: "chef", Email: "a@b.co", Password: "short"}, ErrWeakPassword},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CreateUser(tc.input, fixedNow, staticID)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestUnsupportedLocaleFallsBack(t *testing.T) {
	user, err := CreateUser(CreateUserInput{
		Username: "chef",
		Email:    "a@b.co",
		Password: "longenough",
		Locale:   "xx-YY",
	}, fixedNow, staticID)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.Locale != "en-US" {
		t.Fatalf("expected fallback locale en-US, got %q", user.Locale)
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if !VerifyPassword(hash, "correct horse battery staple") {
		t.Fatal("expected matching password to verify")
	}
	if VerifyPassword(hash, "wrong password") {
		t.Fatal("expected mismatched password to fail")
	}
	if VerifyPassword("not-a-phc-string", "anything") {
		t.Fatal("expected malformed hash to fail")
	}
}

func TestNormalizePreferences(t *testing.T) {
	got := NormalizePreferences(Preferences{
		Dietary:   []string{" Vegan ", "vegan", "", "Low-Sodium"},
		Allergens: []string{"Peanuts", "  shellfish"},
	})
	want := Preferences{
		Dietary:   []string{"low-sodium", "vegan"},
		Allergens: []string{"peanuts", "shellfish"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}
