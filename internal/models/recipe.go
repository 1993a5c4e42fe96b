// Package models defines core data structures for recipes and recommendation requests.
package models

import (
	"bytes"
	"encoding/json"
)

// Recipe is a recipe record as held by the corpus store.
// Optional fields decode to their zero value when absent.
type Recipe struct {
	ID               string        `json:"id"`
	DishName         string        `json:"dish_name"`
	Style            string        `json:"style"`
	NumberFavourites int           `json:"number_favourites"`
	Category         string        `json:"category"`
	ImageURL         string        `json:"image_url"`
	Description      string        `json:"description"`
	Ingredients      []Ingredient  `json:"ingredients"`
	CookingSteps     []CookingStep `json:"cooking_steps"`
}

// Normalize replaces nil sequences with empty ones so they encode as [] rather than null.
func (r *Recipe) Normalize() {
	if r.Ingredients == nil {
		r.Ingredients = []Ingredient{}
	}
	if r.CookingSteps == nil {
		r.CookingSteps = []CookingStep{}
	}
}

// Ingredient is one entry of a recipe's ingredient list. Upstream data is heterogeneous,
// so the entry is kept verbatim and only inspected through Name.
type Ingredient struct {
	raw json.RawMessage
}

// NewIngredient returns a structured ingredient entry with the given name.
func NewIngredient(name string) Ingredient {
	b, _ := json.Marshal(map[string]string{"name": name})
	return Ingredient{raw: b}
}

// RawIngredient wraps an arbitrary JSON value as an ingredient entry.
func RawIngredient(raw json.RawMessage) Ingredient {
	return Ingredient{raw: append(json.RawMessage(nil), raw...)}
}

// Name returns the entry's name when the entry is a JSON object with a string "name" field.
func (i Ingredient) Name() (string, bool) {
	trimmed := bytes.TrimSpace(i.raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return "", false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return "", false
	}
	rawName, ok := fields["name"]
	if !ok {
		return "", false
	}
	var name string
	if err := json.Unmarshal(rawName, &name); err != nil {
		return "", false
	}
	return name, true
}

// MarshalJSON writes the entry exactly as it was received.
func (i Ingredient) MarshalJSON() ([]byte, error) {
	if len(i.raw) == 0 {
		return []byte("null"), nil
	}
	return i.raw, nil
}

// UnmarshalJSON keeps a copy of the raw entry.
func (i *Ingredient) UnmarshalJSON(data []byte) error {
	i.raw = append(i.raw[:0], data...)
	return nil
}

// CookingStep is one entry of a recipe's cooking steps, kept verbatim.
type CookingStep = json.RawMessage
