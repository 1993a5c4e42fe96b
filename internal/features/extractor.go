// Package features turns recipe ingredient lists into feature strings for the similarity model.
package features

import (
	"strings"

	"github.com/hyperjump/resep/internal/models"
)

// Names returns the names of the structured entries in ingredients, in input order.
// Entries that are not JSON objects or have no string "name" are skipped.
func Names(ingredients []models.Ingredient) []string {
	names := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		if name, ok := ing.Name(); ok {
			names = append(names, name)
		}
	}
	return names
}

// Extract returns the whitespace-joined ingredient names of a recipe.
// An empty or fully malformed list yields "".
func Extract(ingredients []models.Ingredient) string {
	return strings.Join(Names(ingredients), " ")
}

// ExtractAll returns one feature string per recipe, preserving corpus row order.
func ExtractAll(recipes []*models.Recipe) []string {
	docs := make([]string, len(recipes))
	for i, r := range recipes {
		docs[i] = Extract(r.Ingredients)
	}
	return docs
}
