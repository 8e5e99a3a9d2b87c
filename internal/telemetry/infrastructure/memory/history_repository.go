package memory

import (
	"context"
	"sync"
	"time"

	telemetry "fleet-cloud/internal/telemetry/domain"
)

// HistoryRepository is an in-memory history store for tests. FailNext
// injects store failures to exercise the requeue path.
type HistoryRepository struct {
	mu       sync.Mutex
	records  []telemetry.HistoryRecord
	failWith error
	failures int
}

// NewHistoryRepository constructs an empty store.
func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{}
}

// FailNext makes the next n Append calls fail with err.
func (r *HistoryRepository) FailNext(n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = n
	r.failWith = err
}

// Append stores one record, stamping created_at.
func (r *HistoryRepository) Append(_ context.Context, record telemetry.HistoryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures > 0 {
		r.failures--
		return r.failWith
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	r.records = append(r.records, record)
	return nil
}

// ListByRobot returns a page for one robot, newest first.
func (r *HistoryRepository) ListByRobot(_ context.Context, robotID string, page, limit int) ([]telemetry.HistoryRecord, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := make([]telemetry.HistoryRecord, 0)
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].RobotID == robotID {
			matched = append(matched, r.records[i])
		}
	}
	return paginate(matched, page, limit)
}

// List returns a page across all robots, newest first.
func (r *HistoryRepository) List(_ context.Context, page, limit int) ([]telemetry.HistoryRecord, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]telemetry.HistoryRecord, 0, len(r.records))
	for i := len(r.records) - 1; i >= 0; i-- {
		all = append(all, r.records[i])
	}
	return paginate(all, page, limit)
}

// All returns every stored record, oldest first. Test helper.
func (r *HistoryRepository) All() []telemetry.HistoryRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]telemetry.HistoryRecord(nil), r.records...)
}

func paginate(records []telemetry.HistoryRecord, page, limit int) ([]telemetry.HistoryRecord, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	total := len(records)
	start := (page - 1) * limit
	if start >= total {
		return []telemetry.HistoryRecord{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return records[start:end], total, nil
}
