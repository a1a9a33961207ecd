package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	queueSize    = 4096
	writeTimeout = 5 * time.Second
	drainTimeout = 2 * time.Second
)

// Filter selects audit records for reporting queries.
type Filter struct {
	OrganizationID string
	Start          *time.Time // inclusive; nil = unbounded
	End            *time.Time // inclusive; nil = unbounded
	RouteFilter    string     // "" = all; exact match or trailing-* prefix
	Limit          int        // 0 = unlimited
}

// Store persists audit records. Append is a single-row insert and must be
// safe for concurrent use. Query returns matching records newest first.
type Store interface {
	Append(ctx context.Context, rec *Record) error
	Query(ctx context.Context, f Filter) ([]*Record, error)
	Close() error
}

// Trail records safety-check outcomes without ever blocking the caller.
// Record hands the row to a background writer through a buffered queue;
// storage failures are logged and dropped, never propagated. Reads for
// compliance reporting go straight to the store.
type Trail struct {
	store     Store
	queue     chan *Record
	done      chan struct{}
	drained   chan struct{} // closed by writeLoop when it returns
	closeOnce sync.Once
	logger    *zap.Logger
}

// NewTrail creates a Trail and starts its background writer.
func NewTrail(store Store, logger *zap.Logger) *Trail {
	t := &Trail{
		store:   store,
		queue:   make(chan *Record, queueSize),
		done:    make(chan struct{}),
		drained: make(chan struct{}),
		logger:  logger,
	}
	go t.writeLoop()
	return t
}

// Record queues an audit record for background persistence.
// Non-blocking: drops the record if the queue is full.
func (t *Trail) Record(rec *Record) {
	select {
	case t.queue <- rec:
	default:
		t.logger.Warn("audit queue full, dropping record",
			zap.String("trace_id", rec.TraceID),
		)
	}
}

// Close drains queued records (up to drainTimeout) and stops the writer.
// Safe to call more than once.
func (t *Trail) Close() {
	t.closeOnce.Do(func() { close(t.done) })
	<-t.drained
}

func (t *Trail) writeLoop() {
	defer close(t.drained)

	for {
		select {
		case rec := <-t.queue:
			t.write(rec)
		case <-t.done:
			deadline := time.Now().Add(drainTimeout)
			for time.Now().Before(deadline) {
				select {
				case rec := <-t.queue:
					t.write(rec)
				default:
					return
				}
			}
			return
		}
	}
}

// write persists one record. Failures feed observability only.
func (t *Trail) write(rec *Record) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := t.store.Append(ctx, rec); err != nil {
		t.logger.Error("audit write failed",
			zap.String("trace_id", rec.TraceID),
			zap.Error(err),
		)
	}
}

// ComplianceReport aggregates an organization's records over an inclusive
// time range, optionally narrowed by route filter.
func (t *Trail) ComplianceReport(ctx context.Context, organizationID string, start, end time.Time, routeFilter string) (*Report, error) {
	records, err := t.store.Query(ctx, Filter{
		OrganizationID: organizationID,
		Start:          &start,
		End:            &end,
		RouteFilter:    routeFilter,
	})
	if err != nil {
		return nil, err
	}
	return BuildReport(records, start, end), nil
}

// RecentLogs returns an organization's newest records as sanitized
// entries, truncated to limit.
func (t *Trail) RecentLogs(ctx context.Context, organizationID string, limit int, routeFilter string) ([]LogEntry, error) {
	records, err := t.store.Query(ctx, Filter{
		OrganizationID: organizationID,
		RouteFilter:    routeFilter,
		Limit:          limit,
	})
	if err != nil {
		return nil, err
	}

	entries := make([]LogEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, rec.Sanitize())
	}
	return entries, nil
}
