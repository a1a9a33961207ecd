package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User represents a row in the users table.
type User struct {
	ID             string
	OrganizationID string
	Email          string
	Name           string
	PasswordHash   string
	IsAdmin        bool
	IsActive       bool
	CreatedAt      time.Time
	LastLogin      *time.Time
}

// CreateUser inserts a new user with a bcrypt-hashed password.
func (s *Store) CreateUser(ctx context.Context, organizationID, email, name, password string, isAdmin bool) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("CreateUser: %w", err)
	}

	var u User
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO users (organization_id, email, name, password_hash, is_admin)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, organization_id, email, name, password_hash, is_admin,
		          is_active, created_at, last_login`,
		organizationID, email, name, string(hash), isAdmin,
	).Scan(&u.ID, &u.OrganizationID, &u.Email, &u.Name, &u.PasswordHash,
		&u.IsAdmin, &u.IsActive, &u.CreatedAt, &u.LastLogin)
	if err != nil {
		return nil, fmt.Errorf("CreateUser: %w", err)
	}
	return &u, nil
}

// GetUserByEmail returns a user by email, or nil if not found.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, organization_id, email, name, password_hash, is_admin,
		       is_active, created_at, last_login
		FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.OrganizationID, &u.Email, &u.Name, &u.PasswordHash,
		&u.IsAdmin, &u.IsActive, &u.CreatedAt, &u.LastLogin)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetUserByEmail: %w", err)
	}
	return &u, nil
}

// GetUser returns a user by ID, or nil if not found.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, organization_id, email, name, password_hash, is_admin,
		       is_active, created_at, last_login
		FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.OrganizationID, &u.Email, &u.Name, &u.PasswordHash,
		&u.IsAdmin, &u.IsActive, &u.CreatedAt, &u.LastLogin)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetUser: %w", err)
	}
	return &u, nil
}

// VerifyPassword checks a plaintext password against the stored hash.
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// TouchLastLogin records a successful login.
func (s *Store) TouchLastLogin(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `
		UPDATE users SET last_login = now() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("TouchLastLogin: %w", err)
	}
	return nil
}
