// Package auditstore provides the audit.Store backends: a ClickHouse
// store for production and an embedded bbolt store for local development
// and tests. Both persist the same Record shape and answer the same
// filtered queries, so the audit trail is backend-agnostic.
package auditstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	bolt "go.etcd.io/bbolt"

	"github.com/anzen-ai/anzen/internal/audit"
)

const recordsBucket = "audit_records"

// BoltStore is an audit.Store backed by an embedded bbolt database.
// Records are keyed by organization, creation time, and trace ID, so a
// per-organization scan reads them in time order.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the bbolt database at path and ensures the
// records bucket exists.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("OpenBolt %q: %w", path, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(recordsBucket))
		return err
	}); err != nil {
		db.Close() //nolint:errcheck // best-effort close on init failure
		return nil, fmt.Errorf("OpenBolt: create bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Append stores one record. Append-only: keys are never overwritten in
// practice because trace IDs are unique per request.
func (s *BoltStore) Append(_ context.Context, rec *audit.Record) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("BoltStore.Append: %w", err)
	}

	key := fmt.Sprintf("%s|%020d|%s", rec.OrganizationID, rec.CreatedAt.UnixNano(), rec.TraceID)
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(recordsBucket)).Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("BoltStore.Append: %w", err)
	}
	return nil
}

// Query returns the organization's matching records newest first.
func (s *BoltStore) Query(_ context.Context, f audit.Filter) ([]*audit.Record, error) {
	prefix := []byte(f.OrganizationID + "|")

	var records []*audit.Record
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(recordsBucket)).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var rec audit.Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if f.Start != nil && rec.CreatedAt.Before(*f.Start) {
				continue
			}
			if f.End != nil && rec.CreatedAt.After(*f.End) {
				continue
			}
			if !audit.MatchRoute(f.RouteFilter, rec.Route) {
				continue
			}
			records = append(records, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("BoltStore.Query: %w", err)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	if f.Limit > 0 && len(records) > f.Limit {
		records = records[:f.Limit]
	}
	return records, nil
}
