// Package storage defines the corpus store holding recipe documents.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/resep/internal/models"
)

// ErrNotFound is returned when a recipe id does not exist.
var ErrNotFound = errors.New("recipe not found")

// Store is a recipe document collection keyed by store-assigned identifiers.
type Store interface {
	// StreamAll calls fn for every recipe in insertion order. Iteration stops at the first error.
	StreamAll(ctx context.Context, fn func(*models.Recipe) error) error
	// AddRecipe stores r under a new identifier and returns it.
	AddRecipe(ctx context.Context, r *models.Recipe) (string, error)
	// SetRecipe creates or replaces the recipe stored under id.
	SetRecipe(ctx context.Context, id string, r *models.Recipe) error
	GetRecipe(ctx context.Context, id string) (*models.Recipe, error)
	CountRecipes(ctx context.Context) (int64, error)
	Close() error
}

// LoadAll materializes the whole collection in insertion order.
func LoadAll(ctx context.Context, s Store) ([]*models.Recipe, error) {
	var recipes []*models.Recipe
	err := s.StreamAll(ctx, func(r *models.Recipe) error {
		recipes = append(recipes, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recipes, nil
}
