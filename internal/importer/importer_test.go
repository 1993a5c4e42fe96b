package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/resep/internal/storage"
)

const sampleJSON = `[
  {"dish_name": "Soto Ayam", "style": "Indonesian", "number_favourites": 4,
   "ingredients": [{"name": "chicken", "qty": "1 kg"}, {"name": "turmeric"}],
   "cooking_steps": ["Boil", {"step": 2, "text": "Serve"}]},
  {"dish_name": "Rendang", "ingredients": [{"name": "beef"}]},
  {"dish_name": "Soto Ayam", "style": "Javanese", "ingredients": [{"name": "chicken"}]}
]`

func newStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "recipes.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestImport_AddsEveryRecord(t *testing.T) {
	store := newStore(t)
	res, err := New(store).Import(context.Background(), strings.NewReader(sampleJSON))
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported != 3 || res.Skipped != 0 {
		t.Errorf("unexpected result %+v", res)
	}
	recipes, err := storage.LoadAll(context.Background(), store)
	if err != nil {
		t.Fatal(err)
	}
	if len(recipes) != 3 {
		t.Fatalf("expected 3 stored recipes, got %d", len(recipes))
	}
	first := recipes[0]
	if first.DishName != "Soto Ayam" || first.Style != "Indonesian" || first.NumberFavourites != 4 {
		t.Errorf("unexpected first recipe %+v", first)
	}
	if string(first.CookingSteps[1]) != `{"step":2,"text":"Serve"}` {
		t.Errorf("cooking steps should keep its fields, got %s", first.CookingSteps[1])
	}
	raw, _ := first.Ingredients[0].MarshalJSON()
	if string(raw) != `{"name":"chicken","qty":"1 kg"}` {
		t.Errorf("ingredient should keep its fields, got %s", raw)
	}
}

func TestImport_DedupeByName(t *testing.T) {
	store := newStore(t)
	res, err := New(store, WithDedupeByName(true)).Import(context.Background(), strings.NewReader(sampleJSON))
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported != 3 {
		t.Errorf("unexpected result %+v", res)
	}
	recipes, _ := storage.LoadAll(context.Background(), store)
	if len(recipes) != 2 {
		t.Fatalf("expected 2 stored recipes, got %d", len(recipes))
	}
	if recipes[0].ID != "Soto Ayam" || recipes[0].Style != "Javanese" {
		t.Errorf("later record should overwrite earlier one, got %+v", recipes[0])
	}
}

func TestImport_DedupeSkipsNamelessRecords(t *testing.T) {
	store := newStore(t)
	res, err := New(store, WithDedupeByName(true)).Import(context.Background(),
		strings.NewReader(`[{"dish_name": "  "}, {"ingredients": []}, {"dish_name": "Gado-gado"}]`))
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported != 1 || res.Skipped != 2 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestImport_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"not an array", `{"dish_name": "x"}`, "JSON array"},
		{"empty input", ``, "failed to read recipes"},
		{"bad element", `[{"dish_name": "ok"}, "nope"]`, "recipe 1"},
		{"truncated", `[{"dish_name": "ok"}`, "failed to read recipes"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(newStore(t)).Import(context.Background(), strings.NewReader(tc.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q should contain %q", err, tc.want)
			}
		})
	}
}

func TestImportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipes.json")
	if err := os.WriteFile(path, []byte(sampleJSON), 0600); err != nil {
		t.Fatal(err)
	}
	store := newStore(t)
	res, err := New(store).ImportFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported != 3 {
		t.Errorf("unexpected result %+v", res)
	}
	if _, err := New(store).ImportFile(context.Background(), path+".missing"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestArchive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recipes.json")
	if err := os.WriteFile(path, []byte("[]"), 0600); err != nil {
		t.Fatal(err)
	}
	now := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	dest, err := Archive(path, now)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, ArchiveDir, "recipes-20240301T123000.000000000.json")
	if dest != want {
		t.Errorf("Archive() = %s, want %s", dest, want)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("source file should be gone")
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("archived file missing: %v", err)
	}
}
