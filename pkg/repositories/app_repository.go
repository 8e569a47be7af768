// Package repositories provides data access for generated apps. A
// PostgreSQL implementation backs production; an in-memory implementation
// serves deployments without a database and tests.
package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/matura-ai/matura-engine/pkg/apperrors"
	"github.com/matura-ai/matura-engine/pkg/database"
	"github.com/matura-ai/matura-engine/pkg/models"
)

// AppRepository defines data access for generated apps.
type AppRepository interface {
	// Create persists a new app. ID and timestamps are assigned here.
	Create(ctx context.Context, app *models.GeneratedApp) error

	// Get retrieves one app by id. Returns apperrors.ErrNotFound when absent.
	Get(ctx context.Context, id uuid.UUID) (*models.GeneratedApp, error)

	// List returns apps newest-first, bounded by limit (<=0 means all).
	List(ctx context.Context, limit int) ([]*models.GeneratedApp, error)

	// Update rewrites an app's mutable fields (name, description, code,
	// schema). Returns apperrors.ErrNotFound when absent.
	Update(ctx context.Context, app *models.GeneratedApp) error

	// Delete removes an app. Returns apperrors.ErrNotFound when absent.
	Delete(ctx context.Context, id uuid.UUID) error
}

// appRepository implements AppRepository using PostgreSQL.
type appRepository struct {
	db *database.DB
}

// NewAppRepository creates a PostgreSQL-backed app repository.
func NewAppRepository(db *database.DB) AppRepository {
	return &appRepository{db: db}
}

// Create persists a new app.
func (r *appRepository) Create(ctx context.Context, app *models.GeneratedApp) error {
	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	now := time.Now().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now

	schemaJSON, err := json.Marshal(app.Schema)
	if err != nil {
		return apperrors.NewPersistenceError("create", fmt.Errorf("marshal schema: %w", err))
	}

	query := `INSERT INTO generated_apps (id, name, description, idea_text, schema, code, user_id, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.db.Exec(ctx, query,
		app.ID, app.Name, app.Description, app.IdeaText,
		schemaJSON, app.Code, app.UserID, app.CreatedAt, app.UpdatedAt)
	if err != nil {
		return apperrors.NewPersistenceError("create", err)
	}
	return nil
}

// Get retrieves one app by id.
func (r *appRepository) Get(ctx context.Context, id uuid.UUID) (*models.GeneratedApp, error) {
	query := `SELECT id, name, description, idea_text, schema, code, user_id, created_at, updated_at
	          FROM generated_apps WHERE id = $1`

	app, err := scanApp(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewPersistenceError("get", err)
	}
	return app, nil
}

// List returns apps newest-first.
func (r *appRepository) List(ctx context.Context, limit int) ([]*models.GeneratedApp, error) {
	query := `SELECT id, name, description, idea_text, schema, code, user_id, created_at, updated_at
	          FROM generated_apps ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewPersistenceError("list", err)
	}
	defer rows.Close()

	var apps []*models.GeneratedApp
	for rows.Next() {
		app, err := scanApp(rows)
		if err != nil {
			return nil, apperrors.NewPersistenceError("list", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("list", err)
	}
	return apps, nil
}

// Update rewrites an app's mutable fields.
func (r *appRepository) Update(ctx context.Context, app *models.GeneratedApp) error {
	schemaJSON, err := json.Marshal(app.Schema)
	if err != nil {
		return apperrors.NewPersistenceError("update", fmt.Errorf("marshal schema: %w", err))
	}
	app.UpdatedAt = time.Now().UTC()

	query := `UPDATE generated_apps
	          SET name = $2, description = $3, schema = $4, code = $5, updated_at = $6
	          WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		app.ID, app.Name, app.Description, schemaJSON, app.Code, app.UpdatedAt)
	if err != nil {
		return apperrors.NewPersistenceError("update", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Delete removes an app.
func (r *appRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM generated_apps WHERE id = $1`, id)
	if err != nil {
		return apperrors.NewPersistenceError("delete", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// scanApp reads one row into a GeneratedApp.
func scanApp(row pgx.Row) (*models.GeneratedApp, error) {
	var app models.GeneratedApp
	var schemaJSON []byte

	err := row.Scan(&app.ID, &app.Name, &app.Description, &app.IdeaText,
		&schemaJSON, &app.Code, &app.UserID, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(schemaJSON) > 0 {
		if err := json.Unmarshal(schemaJSON, &app.Schema); err != nil {
			return nil, fmt.Errorf("unmarshal schema: %w", err)
		}
	}
	return &app, nil
}
