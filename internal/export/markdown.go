package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/saveurhq/tastebook/internal/recipe"
)

var markdownRenderer = goldmark.New(
	goldmark.WithRendererOptions(goldmarkhtml.WithHardWraps()),
)

// RecipeMarkdown renders one recipe as a Markdown document.
func RecipeMarkdown(r recipe.Recipe) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", r.Title)
	if r.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", r.Description)
	}

	fmt.Fprintf(&b, "Servings: %d\n", r.Servings)
	if r.PrepMinutes > 0 {
		fmt.Fprintf(&b, "Prep: %d min\n", r.PrepMinutes)
	}
	if r.CookMinutes > 0 {
		fmt.Fprintf(&b, "Cook: %d min\n", r.CookMinutes)
	}
	if len(r.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(r.Tags, ", "))
	}
	b.WriteString("\n## Ingredients\n\n")

	for _, group := range r.Groups {
		if group.Name != "" {
			fmt.Fprintf(&b, "### %s\n\n", group.Name)
		}
		for _, ingredient := range group.Ingredients {
			b.WriteString("- ")
			b.WriteString(ingredientLine(ingredient))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(r.Instructions) > 0 {
		b.WriteString("## Instructions\n\n")
		for i, step := range r.Instructions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
		b.WriteString("\n")
	}

	if len(r.Tips) > 0 {
		b.WriteString("## Tips\n\n")
		for _, tip := range r.Tips {
			fmt.Fprintf(&b, "- %s\n", tip)
		}
		b.WriteString("\n")
	}

	if r.SourceURL != "" {
		fmt.Fprintf(&b, "Source: %s\n", r.SourceURL)
	}

	return b.String()
}

// CollectionMarkdown renders multiple recipes separated by horizontal rules.
func CollectionMarkdown(recipes []recipe.Recipe) string {
	parts := make([]string, 0, len(recipes))
	for _, r := range recipes {
		parts = append(parts, RecipeMarkdown(r))
	}
	return strings.Join(parts, "\n---\n\n")
}

// RecipeHTML renders one recipe as an HTML fragment via the Markdown export.
func RecipeHTML(r recipe.Recipe) (string, error) {
	return markdownToHTML(RecipeMarkdown(r))
}

// CollectionHTML renders multiple recipes as an HTML fragment.
func CollectionHTML(recipes []recipe.Recipe) (string, error) {
	return markdownToHTML(CollectionMarkdown(recipes))
}

func markdownToHTML(markdown string) (string, error) {
	var out bytes.Buffer
	if err := markdownRenderer.Convert([]byte(markdown), &out); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out.String(), nil
}

func ingredientLine(ingredient recipe.Ingredient) string {
	var parts []string
	if ingredient.Quantity > 0 {
		quantity := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", ingredient.Quantity), "0"), ".")
		parts = append(parts, quantity)
	}
	if ingredient.Unit != "" {
		parts = append(parts, ingredient.Unit)
	}
	parts = append(parts, ingredient.Name)
	line := strings.Join(parts, " ")
	if ingredient.Note != "" {
		line += " (" + ingredient.Note + ")"
	}
	return line
}
