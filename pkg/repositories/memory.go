package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matura-ai/matura-engine/pkg/apperrors"
	"github.com/matura-ai/matura-engine/pkg/models"
)

// memoryAppRepository implements AppRepository in process memory. It backs
// deployments without a configured database; apps do not survive restarts.
type memoryAppRepository struct {
	mu   sync.RWMutex
	apps map[uuid.UUID]*models.GeneratedApp
}

// NewMemoryAppRepository creates an in-memory app repository.
func NewMemoryAppRepository() AppRepository {
	return &memoryAppRepository{apps: make(map[uuid.UUID]*models.GeneratedApp)}
}

func (r *memoryAppRepository) Create(_ context.Context, app *models.GeneratedApp) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	if _, exists := r.apps[app.ID]; exists {
		return apperrors.ErrConflict
	}
	now := time.Now().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now

	stored := *app
	r.apps[app.ID] = &stored
	return nil
}

func (r *memoryAppRepository) Get(_ context.Context, id uuid.UUID) (*models.GeneratedApp, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	app, ok := r.apps[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *app
	return &copied, nil
}

func (r *memoryAppRepository) List(_ context.Context, limit int) ([]*models.GeneratedApp, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	apps := make([]*models.GeneratedApp, 0, len(r.apps))
	for _, app := range r.apps {
		copied := *app
		apps = append(apps, &copied)
	}
	sort.Slice(apps, func(i, j int) bool {
		return apps[i].CreatedAt.After(apps[j].CreatedAt)
	})
	if limit > 0 && len(apps) > limit {
		apps = apps[:limit]
	}
	return apps, nil
}

func (r *memoryAppRepository) Update(_ context.Context, app *models.GeneratedApp) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.apps[app.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	app.CreatedAt = existing.CreatedAt
	app.UpdatedAt = time.Now().UTC()

	stored := *app
	r.apps[app.ID] = &stored
	return nil
}

func (r *memoryAppRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.apps[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.apps, id)
	return nil
}
