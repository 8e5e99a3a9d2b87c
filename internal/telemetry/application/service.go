package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"fleet-cloud/internal/mq"
	"fleet-cloud/internal/observability/metrics"
	"fleet-cloud/internal/presence"
	"fleet-cloud/internal/telemetry/application/events"
	telemetry "fleet-cloud/internal/telemetry/domain"
)

// ErrUnavailable marks transient infrastructure failures on the ingest
// path (cache or broker unreachable). Callers surface it as a
// retryable server error.
var ErrUnavailable = errors.New("telemetry: infrastructure unavailable")

// IngestResult is returned to the submitting robot.
type IngestResult struct {
	OK         bool   `json:"ok"`
	RobotID    string `json:"robotId"`
	TTLSeconds int    `json:"ttl"`
}

// LatestResult is the cached last-known telemetry for a robot.
type LatestResult struct {
	RobotID   string          `json:"robotId"`
	Online    bool            `json:"online"`
	Telemetry *presence.Entry `json:"telemetry"`
}

// Service accepts telemetry reports and serves the cached/stored views
// of them. The write path is two independent, non-atomic steps: a
// presence overwrite and a durable publish.
type Service struct {
	cache   presence.Cache
	bus     mq.Publisher
	history telemetry.HistoryRepository
	ttl     time.Duration
	logger  *log.Logger
	now     func() time.Time
}

// NewService constructs the telemetry service.
func NewService(cache presence.Cache, bus mq.Publisher, history telemetry.HistoryRepository, ttl time.Duration, logger *log.Logger) (*Service, error) {
	if cache == nil {
		return nil, errors.New("telemetry service: nil cache")
	}
	if bus == nil {
		return nil, errors.New("telemetry service: nil bus")
	}
	if history == nil {
		return nil, errors.New("telemetry service: nil history repository")
	}
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{cache: cache, bus: bus, history: history, ttl: ttl, logger: logger, now: func() time.Time { return time.Now().UTC() }}, nil
}

// WithClock overrides the clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Ingest validates a report, overwrites the presence entry, and
// publishes one telemetry.ingested event.
//
// A failed publish is surfaced as retryable but the presence write is
// not rolled back: presence reflects the latest attempt even when the
// durable publication failed. That inconsistency window is accepted in
// favor of presence availability.
func (s *Service) Ingest(ctx context.Context, robotID string, report telemetry.Report) (IngestResult, error) {
	if robotID == "" {
		return IngestResult{}, fmt.Errorf("%w: empty robot id", telemetry.ErrInvalidReport)
	}
	if err := report.Validate(); err != nil {
		return IngestResult{}, err
	}

	entry := presence.Entry{RobotID: robotID, Telemetry: report, ReceivedAt: s.now()}
	if err := s.cache.Set(ctx, robotID, entry, s.ttl); err != nil {
		return IngestResult{}, fmt.Errorf("%w: presence write: %v", ErrUnavailable, err)
	}
	metrics.PresenceWriteInc()

	event := events.TelemetryIngested{
		EventType: events.TypeTelemetryIngested,
		RobotID:   robotID,
		Telemetry: events.TelemetryPayload{
			Battery: float64(report.Battery),
			Status:  report.Status,
			Lat:     report.Lat,
			Lng:     report.Lng,
		},
		ReceivedAt: entry.ReceivedAt.Format(time.RFC3339),
	}
	body, err := json.Marshal(event)
	if err != nil {
		return IngestResult{}, err
	}
	if err := s.bus.Publish(ctx, events.TypeTelemetryIngested, body); err != nil {
		return IngestResult{}, fmt.Errorf("%w: publish: %v", ErrUnavailable, err)
	}

	s.logger.Printf("telemetry.ingest robot=%s battery=%d status=%s", robotID, report.Battery, report.Status)
	return IngestResult{OK: true, RobotID: robotID, TTLSeconds: int(s.ttl / time.Second)}, nil
}

// Latest returns the cached last-known telemetry. Absence means the
// robot is offline (expired or never reported).
func (s *Service) Latest(ctx context.Context, robotID string) (LatestResult, error) {
	entry, ok, err := s.cache.Get(ctx, robotID)
	if err != nil {
		return LatestResult{}, fmt.Errorf("%w: presence read: %v", ErrUnavailable, err)
	}
	result := LatestResult{RobotID: robotID, Online: ok}
	if ok {
		result.Telemetry = &entry
	}
	return result, nil
}

// History returns a page of stored reports for a robot, newest first.
func (s *Service) History(ctx context.Context, robotID string, page, limit int) ([]telemetry.HistoryRecord, int, error) {
	return s.history.ListByRobot(ctx, robotID, page, limit)
}
