package auditstore

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/anzen-ai/anzen/internal/audit"
)

// ClickHouseStore is the production audit.Store, writing to and reading
// from the audit_records table.
type ClickHouseStore struct {
	conn   driver.Conn
	logger *zap.Logger
}

// OpenClickHouse parses the DSN, enforces TLS, and verifies connectivity.
func OpenClickHouse(dsn string, logger *zap.Logger) (*ClickHouseStore, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("OpenClickHouse: %w", err)
	}

	// ParseDSN sets TLS when ?secure=true is present; enforce it here as
	// a safety net for ClickHouse Cloud ports.
	if opts.TLS == nil {
		opts.TLS = &tls.Config{}
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("OpenClickHouse: %w", err)
	}
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("OpenClickHouse: %w", err)
	}

	return &ClickHouseStore{conn: conn, logger: logger}, nil
}

func (s *ClickHouseStore) Close() error {
	return s.conn.Close()
}

// Append inserts one audit record.
func (s *ClickHouseStore) Append(ctx context.Context, rec *audit.Record) error {
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO audit_records (
			trace_id, organization_id, route, method, session_id,
			entity_types, entity_count, risk_level, decision,
			input_hash, output_hash, text_length, processing_time_ms,
			created_at, metadata
		)
	`)
	if err != nil {
		return fmt.Errorf("ClickHouseStore.Append: %w", err)
	}

	if err := batch.Append(
		rec.TraceID,
		rec.OrganizationID,
		rec.Route,
		rec.Method,
		rec.SessionID,
		rec.EntityTypes,
		uint32(rec.EntityCount),
		rec.RiskLevel,
		rec.Decision,
		rec.InputHash,
		rec.OutputHash,
		uint32(rec.TextLength),
		rec.ProcessingTimeMs,
		rec.CreatedAt,
		rec.Metadata,
	); err != nil {
		return fmt.Errorf("ClickHouseStore.Append: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("ClickHouseStore.Append: %w", err)
	}
	return nil
}

// Query returns matching records ordered newest first.
func (s *ClickHouseStore) Query(ctx context.Context, f audit.Filter) ([]*audit.Record, error) {
	conditions := []string{"organization_id = @organization_id"}
	args := []any{
		clickhouse.Named("organization_id", f.OrganizationID),
	}

	if f.Start != nil {
		conditions = append(conditions, "created_at >= @start_time")
		args = append(args, clickhouse.Named("start_time", *f.Start))
	}
	if f.End != nil {
		conditions = append(conditions, "created_at <= @end_time")
		args = append(args, clickhouse.Named("end_time", *f.End))
	}
	if f.RouteFilter != "" {
		if prefix, ok := strings.CutSuffix(f.RouteFilter, "*"); ok {
			conditions = append(conditions, "startsWith(route, @route_prefix)")
			args = append(args, clickhouse.Named("route_prefix", prefix))
		} else {
			conditions = append(conditions, "route = @route")
			args = append(args, clickhouse.Named("route", f.RouteFilter))
		}
	}

	query := fmt.Sprintf(`
		SELECT trace_id, organization_id, route, method, session_id,
		       entity_types, entity_count, risk_level, decision,
		       input_hash, output_hash, text_length, processing_time_ms,
		       created_at, metadata
		FROM audit_records
		WHERE %s
		ORDER BY created_at DESC`, strings.Join(conditions, " AND "))
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ClickHouseStore.Query: %w", err)
	}
	defer rows.Close()

	var records []*audit.Record
	for rows.Next() {
		var (
			rec         audit.Record
			entityCount uint32
			textLength  uint32
			createdAt   time.Time
		)
		if err := rows.Scan(
			&rec.TraceID,
			&rec.OrganizationID,
			&rec.Route,
			&rec.Method,
			&rec.SessionID,
			&rec.EntityTypes,
			&entityCount,
			&rec.RiskLevel,
			&rec.Decision,
			&rec.InputHash,
			&rec.OutputHash,
			&textLength,
			&rec.ProcessingTimeMs,
			&createdAt,
			&rec.Metadata,
		); err != nil {
			return nil, fmt.Errorf("ClickHouseStore.Query: scan: %w", err)
		}
		rec.EntityCount = int(entityCount)
		rec.TextLength = int(textLength)
		rec.CreatedAt = createdAt
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ClickHouseStore.Query: %w", err)
	}
	return records, nil
}
