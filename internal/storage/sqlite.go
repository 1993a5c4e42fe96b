package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/resep/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite. Recipes are kept as JSON documents.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS recipes (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		dish_name TEXT,
		body TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_recipes_dish_name ON recipes(dish_name);
	`
	_, err := db.Exec(schema)
	return err
}

func encodeRecipe(r *models.Recipe) (string, error) {
	doc := *r
	doc.ID = ""
	doc.Normalize()
	body, err := json.Marshal(&doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal recipe: %w", err)
	}
	return string(body), nil
}

func decodeRecipe(id, body string) (*models.Recipe, error) {
	var r models.Recipe
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recipe %s: %w", id, err)
	}
	r.ID = id
	r.Normalize()
	return &r, nil
}

// AddRecipe inserts r under a new UUID and sets r.ID.
func (s *SQLiteStore) AddRecipe(ctx context.Context, r *models.Recipe) (string, error) {
	body, err := encodeRecipe(r)
	if err != nil {
		return "", err
	}
	id := uuid.New().String()
	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO recipes (id, dish_name, body, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, r.DishName, body, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert recipe: %w", err)
	}
	r.ID = id
	return id, nil
}

// SetRecipe upserts r under id. An existing recipe keeps its position in the collection.
func (s *SQLiteStore) SetRecipe(ctx context.Context, id string, r *models.Recipe) error {
	if id == "" {
		return fmt.Errorf("recipe id is required")
	}
	body, err := encodeRecipe(r)
	if err != nil {
		return err
	}
	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO recipes (id, dish_name, body, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET dish_name = excluded.dish_name, body = excluded.body,
		 updated_at = excluded.updated_at`,
		id, r.DishName, body, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert recipe: %w", err)
	}
	r.ID = id
	return nil
}

// GetRecipe returns a recipe by ID.
func (s *SQLiteStore) GetRecipe(ctx context.Context, id string) (*models.Recipe, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM recipes WHERE id = ?`, id).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return decodeRecipe(id, body)
}

// StreamAll walks the collection in insertion order.
func (s *SQLiteStore) StreamAll(ctx context.Context, fn func(*models.Recipe) error) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, body FROM recipes ORDER BY seq`)
	if err != nil {
		return fmt.Errorf("failed to query recipes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return err
		}
		r, err := decodeRecipe(id, body)
		if err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return rows.Err()
}

// CountRecipes returns the total number of recipes.
func (s *SQLiteStore) CountRecipes(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
