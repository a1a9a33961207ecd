package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Organization represents a row in the organizations table.
type Organization struct {
	ID        string
	Name      string
	Slug      string
	IsActive  bool
	CreatedAt time.Time
}

// CreateOrganization inserts a new organization.
func (s *Store) CreateOrganization(ctx context.Context, name, slug string) (*Organization, error) {
	var o Organization
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO organizations (name, slug)
		VALUES ($1, $2)
		RETURNING id, name, slug, is_active, created_at`,
		name, slug,
	).Scan(&o.ID, &o.Name, &o.Slug, &o.IsActive, &o.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("CreateOrganization: %w", err)
	}
	return &o, nil
}

// GetOrganization returns an organization by ID, or nil if not found.
func (s *Store) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	var o Organization
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, slug, is_active, created_at
		FROM organizations WHERE id = $1`, id,
	).Scan(&o.ID, &o.Name, &o.Slug, &o.IsActive, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetOrganization: %w", err)
	}
	return &o, nil
}

// GetOrganizationBySlug returns an organization by slug, or nil if not found.
func (s *Store) GetOrganizationBySlug(ctx context.Context, slug string) (*Organization, error) {
	var o Organization
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, slug, is_active, created_at
		FROM organizations WHERE slug = $1`, slug,
	).Scan(&o.ID, &o.Name, &o.Slug, &o.IsActive, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetOrganizationBySlug: %w", err)
	}
	return &o, nil
}
