package presence

import (
	"context"
	"time"

	telemetry "fleet-cloud/internal/telemetry/domain"
)

// Entry is the last accepted telemetry for a robot, kept only as long as
// its TTL. Existence of the entry is the sole online signal; there is no
// separate heartbeat.
type Entry struct {
	RobotID    string           `json:"robotId"`
	Telemetry  telemetry.Report `json:"telemetry"`
	ReceivedAt time.Time        `json:"receivedAt"`
}

// Cache stores the latest telemetry per robot with per-key expiry.
// Writes are full overwrites keyed by the reporting robot, so there are
// no read-modify-write races.
type Cache interface {
	Set(ctx context.Context, robotID string, entry Entry, ttl time.Duration) error
	Get(ctx context.Context, robotID string) (Entry, bool, error)
	Exists(ctx context.Context, robotID string) (bool, error)
	Delete(ctx context.Context, robotID string) error
}

// Key builds the cache key for a robot.
func Key(robotID string) string {
	return "presence:" + robotID
}
