// Package importer loads recipe collections from JSON files into a corpus store.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperjump/resep/internal/models"
	"github.com/hyperjump/resep/internal/storage"
	"go.uber.org/zap"
)

// Result counts what an import did.
type Result struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Importer writes recipes into a store. With dedupe by name, the dish name is the
// recipe id and re-importing the same dish replaces it; otherwise every record is added
// under a fresh id.
type Importer struct {
	store        storage.Store
	dedupeByName bool
	logger       *zap.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithDedupeByName keys recipes by dish name.
func WithDedupeByName(v bool) Option {
	return func(i *Importer) { i.dedupeByName = v }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(i *Importer) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// New creates an importer for store.
func New(store storage.Store, opts ...Option) *Importer {
	i := &Importer{store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// ImportFile imports the JSON array of recipes at path.
func (i *Importer) ImportFile(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	res, err := i.Import(ctx, f)
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}
	i.logger.Info("imported recipes",
		zap.String("path", path),
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

// Import reads a JSON array of recipe objects from r and stores each one in order.
// Records are written as they are decoded, so a malformed element stops the import
// after the records before it have been stored.
func (i *Importer) Import(ctx context.Context, r io.Reader) (Result, error) {
	var res Result
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return res, fmt.Errorf("failed to read recipes: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return res, errors.New("recipes file must contain a JSON array")
	}

	for n := 0; dec.More(); n++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		var recipe models.Recipe
		if err := dec.Decode(&recipe); err != nil {
			return res, fmt.Errorf("recipe %d: %w", n, err)
		}
		recipe.ID = ""
		stored, err := i.put(ctx, &recipe)
		if err != nil {
			return res, fmt.Errorf("recipe %d: %w", n, err)
		}
		if !stored {
			res.Skipped++
			continue
		}
		res.Imported++
	}
	if _, err := dec.Token(); err != nil {
		return res, fmt.Errorf("failed to read recipes: %w", err)
	}
	return res, nil
}

func (i *Importer) put(ctx context.Context, r *models.Recipe) (bool, error) {
	if !i.dedupeByName {
		if _, err := i.store.AddRecipe(ctx, r); err != nil {
			return false, err
		}
		return true, nil
	}
	id := strings.TrimSpace(r.DishName)
	if id == "" {
		i.logger.Warn("skipping recipe without dish name")
		return false, nil
	}
	if err := i.store.SetRecipe(ctx, id, r); err != nil {
		return false, err
	}
	return true, nil
}

// ArchiveDir is the subdirectory of a drop folder that imported files are moved into.
const ArchiveDir = "imported"

// Archive moves path into the ArchiveDir subdirectory next to it, adding a timestamp
// so repeated drops of the same file name do not collide. It returns the new path.
func Archive(path string, now time.Time) (string, error) {
	dir := filepath.Join(filepath.Dir(path), ArchiveDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	name := fmt.Sprintf("%s-%s%s", strings.TrimSuffix(base, ext), now.UTC().Format("20060102T150405.000000000"), ext)
	dest := filepath.Join(dir, name)
	if err := os.Rename(path, dest); err != nil {
		return "", fmt.Errorf("failed to archive %s: %w", path, err)
	}
	return dest, nil
}
