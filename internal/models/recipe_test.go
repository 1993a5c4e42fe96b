package models

import (
	"encoding/json"
	"testing"
)

func TestRecipe_DecodeDefaults(t *testing.T) {
	var r Recipe
	if err := json.Unmarshal([]byte(`{"dish_name":"Soto"}`), &r); err != nil {
		t.Fatal(err)
	}
	r.Normalize()
	if r.Style != "" || r.NumberFavourites != 0 || r.Category != "" {
		t.Errorf("optional fields should default to zero values: %+v", r)
	}
	out, err := json.Marshal(&r)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"id", "dish_name", "style", "number_favourites", "category",
		"image_url", "description", "ingredients", "cooking_steps"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("encoded recipe missing %q: %s", key, out)
		}
	}
	if steps, ok := decoded["cooking_steps"].([]interface{}); !ok || len(steps) != 0 {
		t.Errorf("cooking_steps should encode as [], got %v", decoded["cooking_steps"])
	}
}

func TestIngredient_Name(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{`{"name":"egg"}`, "egg", true},
		{`{"name":"egg","qty":"2"}`, "egg", true},
		{` {"name":"flour"}`, "flour", true},
		{`{"color":"red"}`, "", false},
		{`{"name":3}`, "", false},
		{`"egg"`, "", false},
		{`["egg"]`, "", false},
		{`null`, "", false},
		{`42`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := RawIngredient(json.RawMessage(tt.raw)).Name()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Name() = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestIngredient_RoundTripPreservesEntry(t *testing.T) {
	in := `{"ingredients":[{"name":"egg","qty":"2 pcs"},"salt",{"color":"red"}]}`
	var r Recipe
	if err := json.Unmarshal([]byte(in), &r); err != nil {
		t.Fatal(err)
	}
	if len(r.Ingredients) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(r.Ingredients))
	}
	out, err := json.Marshal(r.Ingredients)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `[{"name":"egg","qty":"2 pcs"},"salt",{"color":"red"}]` {
		t.Errorf("entries not preserved: %s", out)
	}
	if name, ok := NewIngredient("milk").Name(); !ok || name != "milk" {
		t.Errorf("NewIngredient name = %q, %v", name, ok)
	}
}
