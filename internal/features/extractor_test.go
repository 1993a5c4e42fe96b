package features

import (
	"encoding/json"
	"testing"

	"github.com/hyperjump/resep/internal/models"
)

func ingredients(t *testing.T, raw string) []models.Ingredient {
	t.Helper()
	var out []models.Ingredient
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return out
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", `[]`, ""},
		{"no name field", `[{"color":"red"}]`, ""},
		{"single", `[{"name":"egg"}]`, "egg"},
		{"keeps order", `[{"name":"egg"},{"name":"flour"},{"name":"milk"}]`, "egg flour milk"},
		{"skips malformed interleaved", `["salt",{"name":"egg"},42,{"qty":1},{"name":"flour"},null,["x"]]`, "egg flour"},
		{"non-string name skipped", `[{"name":7},{"name":"rice"}]`, "rice"},
		{"multi-word names kept whole", `[{"name":"olive oil"},{"name":"garlic"}]`, "olive oil garlic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(ingredients(t, tt.raw))
			if got != tt.want {
				t.Errorf("Extract(%s) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestExtract_Nil(t *testing.T) {
	if got := Extract(nil); got != "" {
		t.Errorf("Extract(nil) = %q", got)
	}
	if got := Names(nil); len(got) != 0 {
		t.Errorf("Names(nil) = %v", got)
	}
}

func TestExtractAll(t *testing.T) {
	recipes := []*models.Recipe{
		{DishName: "A", Ingredients: []models.Ingredient{models.NewIngredient("egg"), models.NewIngredient("flour")}},
		{DishName: "B"},
		{DishName: "C", Ingredients: []models.Ingredient{models.NewIngredient("rice")}},
	}
	docs := ExtractAll(recipes)
	want := []string{"egg flour", "", "rice"}
	if len(docs) != len(want) {
		t.Fatalf("got %d docs", len(docs))
	}
	for i := range want {
		if docs[i] != want[i] {
			t.Errorf("docs[%d] = %q, want %q", i, docs[i], want[i])
		}
	}
}
