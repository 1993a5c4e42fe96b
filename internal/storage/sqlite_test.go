package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hyperjump/resep/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "recipes.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_AddGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	r := &models.Recipe{
		DishName:         "Nasi Goreng",
		Style:            "Indonesian",
		NumberFavourites: 12,
		Ingredients:      []models.Ingredient{models.NewIngredient("rice"), models.NewIngredient("egg")},
	}
	id, err := store.AddRecipe(ctx, r)
	if err != nil {
		t.Fatal(err)
	}
	if id == "" || r.ID != id {
		t.Fatalf("expected assigned id, got %q (recipe id %q)", id, r.ID)
	}

	got, err := store.GetRecipe(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != id || got.DishName != "Nasi Goreng" || got.NumberFavourites != 12 {
		t.Errorf("got %+v", got)
	}
	if len(got.Ingredients) != 2 {
		t.Fatalf("expected 2 ingredients, got %d", len(got.Ingredients))
	}
	if name, _ := got.Ingredients[1].Name(); name != "egg" {
		t.Errorf("second ingredient = %q", name)
	}
	if got.CookingSteps == nil {
		t.Error("cooking steps should be normalised to an empty slice")
	}

	_, err = store.GetRecipe(ctx, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_StreamAllKeepsInsertionOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	names := []string{"C", "A", "B", "D"}
	for _, n := range names {
		if _, err := store.AddRecipe(ctx, &models.Recipe{DishName: n}); err != nil {
			t.Fatal(err)
		}
	}
	recipes, err := LoadAll(ctx, store)
	if err != nil {
		t.Fatal(err)
	}
	if len(recipes) != len(names) {
		t.Fatalf("expected %d recipes, got %d", len(names), len(recipes))
	}
	for i, r := range recipes {
		if r.DishName != names[i] {
			t.Errorf("row %d = %s, want %s", i, r.DishName, names[i])
		}
		if r.ID == "" {
			t.Errorf("row %d has no id", i)
		}
	}

	stop := errors.New("stop")
	seen := 0
	err = store.StreamAll(ctx, func(*models.Recipe) error {
		seen++
		return stop
	})
	if !errors.Is(err, stop) || seen != 1 {
		t.Errorf("StreamAll should stop at first error: err=%v seen=%d", err, seen)
	}
}

func TestSQLiteStore_SetRecipeUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SetRecipe(ctx, "Soto", &models.Recipe{DishName: "Soto", Style: "v1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddRecipe(ctx, &models.Recipe{DishName: "Rendang"}); err != nil {
		t.Fatal(err)
	}
	if err := store.SetRecipe(ctx, "Soto", &models.Recipe{DishName: "Soto", Style: "v2"}); err != nil {
		t.Fatal(err)
	}

	n, err := store.CountRecipes(ctx)
	if err != nil || n != 2 {
		t.Fatalf("CountRecipes = %d, %v; want 2", n, err)
	}
	recipes, err := LoadAll(ctx, store)
	if err != nil {
		t.Fatal(err)
	}
	if recipes[0].ID != "Soto" || recipes[0].Style != "v2" {
		t.Errorf("upsert should replace in place, got %+v", recipes[0])
	}
	if err := store.SetRecipe(ctx, "", &models.Recipe{}); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestSQLiteStore_Counts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	n, err := store.CountRecipes(ctx)
	if err != nil || n != 0 {
		t.Errorf("CountRecipes: %v, %d", err, n)
	}
	_, _ = store.AddRecipe(ctx, &models.Recipe{DishName: "x"})
	n, _ = store.CountRecipes(ctx)
	if n != 1 {
		t.Errorf("expected 1 recipe, got %d", n)
	}
}

func TestNewStore(t *testing.T) {
	store, err := NewStore(Options{DatabasePath: filepath.Join(t.TempDir(), "db", "r.db")})
	if err != nil {
		t.Fatalf("NewStore(default): %v", err)
	}
	defer store.Close()
	if _, ok := store.(*SQLiteStore); !ok {
		t.Errorf("default driver should be sqlite, got %T", store)
	}

	if _, err := NewStore(Options{Driver: "mongo"}); err == nil {
		t.Error("expected error for unknown driver")
	}
	if _, err := NewStore(Options{Driver: "redis"}); err == nil {
		t.Error("expected error for redis without addrs")
	}
}
