// Package store implements the dynamic table store backing generated apps:
// a schema-agnostic CRUD store keyed by table name, serving the
// /api/crud/{table} contract.
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matura-ai/matura-engine/pkg/apperrors"
	"github.com/matura-ai/matura-engine/pkg/models"
)

// table holds one table's records and optional registered schema.
// Every mutation runs under the table's own mutex, so concurrent writers
// to the same table are serialized while distinct tables stay independent.
type table struct {
	mu      sync.RWMutex
	records []models.Record
	schema  *models.Schema
}

// TableStore is an in-memory store of dynamic tables. It lives for the
// process lifetime; persistence of generated apps themselves is handled by
// the repositories package.
type TableStore struct {
	mu     sync.RWMutex
	tables map[string]*table
	logger *zap.Logger
}

// New creates an empty table store.
func New(logger *zap.Logger) *TableStore {
	return &TableStore{
		tables: make(map[string]*table),
		logger: logger.Named("store"),
	}
}

// CreateTable ensures a table exists. Creating an existing table is a no-op.
func (s *TableStore) CreateTable(name string) error {
	if !models.ValidTableName(name) {
		return apperrors.NewValidationError("table", fmt.Sprintf("invalid table name %q", name))
	}
	s.getOrCreate(name)
	return nil
}

// RegisterSchema attaches a schema to a table for insert validation,
// creating the table if needed.
func (s *TableStore) RegisterSchema(schema *models.Schema) error {
	if err := schema.Validate(); err != nil {
		return apperrors.NewValidationError("schema", err.Error())
	}
	t := s.getOrCreate(schema.TableName)
	t.mu.Lock()
	t.schema = schema
	t.mu.Unlock()
	return nil
}

// Tables returns the sorted names of all known tables.
func (s *TableStore) Tables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns copies of all records in a table, in insertion order.
func (s *TableStore) Get(name string) ([]models.Record, error) {
	t, err := s.lookup(name)
	if err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]models.Record, len(t.records))
	for i, r := range t.records {
		out[i] = r.Clone()
	}
	return out, nil
}

// GetByID returns a copy of one record.
func (s *TableStore) GetByID(name, id string) (models.Record, error) {
	t, err := s.lookup(name)
	if err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, r := range t.records {
		if r.ID() == id {
			return r.Clone(), nil
		}
	}
	return nil, apperrors.ErrNotFound
}

// Insert appends a record, assigning id, created_at and updated_at. The
// table is created lazily on first write. When a schema is registered,
// required fields must be present.
func (s *TableStore) Insert(name string, record models.Record) (models.Record, error) {
	if !models.ValidTableName(name) {
		return nil, apperrors.NewValidationError("table", fmt.Sprintf("invalid table name %q", name))
	}
	t := s.getOrCreate(name)

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := validateRequired(t.schema, record); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	stored := record.Clone()
	stored[models.SystemFieldID] = uuid.NewString()
	stored[models.SystemFieldCreatedAt] = now
	stored[models.SystemFieldUpdatedAt] = now

	t.records = append(t.records, stored)

	s.logger.Debug("record inserted",
		zap.String("table", name),
		zap.String("id", stored.ID()))
	return stored.Clone(), nil
}

// Update applies a patch to the record with the given id. The id and
// created_at fields are immutable: values for them in the patch are
// ignored. updated_at is refreshed on every update.
func (s *TableStore) Update(name, id string, patch models.Record) (models.Record, error) {
	t, err := s.lookup(name)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for i, r := range t.records {
		if r.ID() != id {
			continue
		}

		updated := r.Clone()
		for k, v := range patch {
			switch k {
			case models.SystemFieldID, models.SystemFieldCreatedAt:
				continue
			}
			updated[k] = v
		}
		updated[models.SystemFieldUpdatedAt] = time.Now().UTC().Format(time.RFC3339)

		t.records[i] = updated
		return updated.Clone(), nil
	}
	return nil, apperrors.ErrNotFound
}

// Delete removes the record with the given id.
func (s *TableStore) Delete(name, id string) error {
	t, err := s.lookup(name)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for i, r := range t.records {
		if r.ID() == id {
			t.records = append(t.records[:i], t.records[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (s *TableStore) getOrCreate(name string) *table {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[name]
	if !ok {
		t = &table{}
		s.tables[name] = t
		s.logger.Debug("table created", zap.String("table", name))
	}
	return t
}

func (s *TableStore) lookup(name string) (*table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[name]
	if !ok {
		return nil, apperrors.ErrTableNotFound
	}
	return t, nil
}

// validateRequired checks required schema fields are present in an insert
// payload. Unknown extra fields are allowed: generated apps evolve faster
// than their registered schemas.
func validateRequired(schema *models.Schema, record models.Record) error {
	if schema == nil {
		return nil
	}
	for _, f := range schema.UserFields() {
		if !f.Required {
			continue
		}
		if v, ok := record[f.Name]; !ok || v == nil || v == "" {
			if f.Default != nil {
				continue
			}
			return apperrors.NewValidationError(f.Name, "required field missing")
		}
	}
	return nil
}
