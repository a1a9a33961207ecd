// Package store provides PostgreSQL access for the gateway's account
// data: organizations, users, and API keys. The safety-check core only
// reaches this package through the auth layer.
package store

import "database/sql"

// Store provides access to the PostgreSQL database.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store backed by the given database connection pool.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}
