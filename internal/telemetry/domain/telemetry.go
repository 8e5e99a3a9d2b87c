package telemetry

import (
	"context"
	"fmt"
	"time"
)

// Report is a single status submission from a robot. Immutable once accepted.
type Report struct {
	Battery int      `json:"battery"`
	Status  string   `json:"status"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

// ErrInvalidReport marks validation failures on inbound reports.
var ErrInvalidReport = fmt.Errorf("telemetry: invalid report")

// Validate checks the report before any side effect takes place.
func (r Report) Validate() error {
	if r.Battery < 0 || r.Battery > 100 {
		return fmt.Errorf("%w: battery %d out of range [0,100]", ErrInvalidReport, r.Battery)
	}
	if r.Status == "" {
		return fmt.Errorf("%w: empty status", ErrInvalidReport)
	}
	return nil
}

// HistoryRecord is one durably stored telemetry report.
type HistoryRecord struct {
	ID        string    `json:"id"`
	RobotID   string    `json:"robotId"`
	Battery   int       `json:"battery"`
	Status    string    `json:"status"`
	Lat       *float64  `json:"lat"`
	Lng       *float64  `json:"lng"`
	CreatedAt time.Time `json:"createdAt"`
}

// HistoryRepository persists and queries telemetry history. Append-only;
// rows disappear only when their robot is deleted.
type HistoryRepository interface {
	Append(ctx context.Context, record HistoryRecord) error
	ListByRobot(ctx context.Context, robotID string, page, limit int) ([]HistoryRecord, int, error)
	List(ctx context.Context, page, limit int) ([]HistoryRecord, int, error)
}
