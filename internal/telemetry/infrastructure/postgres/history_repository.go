package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	telemetry "fleet-cloud/internal/telemetry/domain"
)

const historyTable = "telemetry_history"

// HistoryRepository is the Postgres-backed telemetry history store.
// Append-only; rows are removed only by the robot delete cascade.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository constructs the repository.
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append inserts one history record. created_at is server-assigned.
func (r *HistoryRepository) Append(ctx context.Context, record telemetry.HistoryRecord) error {
	if r == nil || r.db == nil {
		return errors.New("history repo: nil db")
	}
	if record.RobotID == "" {
		return errors.New("history repo: empty robot id")
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	lat := sql.NullFloat64{}
	if record.Lat != nil {
		lat = sql.NullFloat64{Float64: *record.Lat, Valid: true}
	}
	lng := sql.NullFloat64{}
	if record.Lng != nil {
		lng = sql.NullFloat64{Float64: *record.Lng, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO `+historyTable+` (id, robot_id, battery, status, lat, lng, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		record.ID, record.RobotID, record.Battery, record.Status, lat, lng)
	return err
}

// ListByRobot returns one page for a robot, newest first, with the
// total row count for that robot.
func (r *HistoryRepository) ListByRobot(ctx context.Context, robotID string, page, limit int) ([]telemetry.HistoryRecord, int, error) {
	if r == nil || r.db == nil {
		return nil, 0, errors.New("history repo: nil db")
	}
	page, limit = clampPage(page, limit)

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+historyTable+` WHERE robot_id = $1`, robotID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, robot_id, battery, status, lat, lng, created_at
FROM `+historyTable+`
WHERE robot_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`, robotID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	records, err := scanRecords(rows)
	return records, total, err
}

// List returns one page across all robots, newest first.
func (r *HistoryRepository) List(ctx context.Context, page, limit int) ([]telemetry.HistoryRecord, int, error) {
	if r == nil || r.db == nil {
		return nil, 0, errors.New("history repo: nil db")
	}
	page, limit = clampPage(page, limit)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+historyTable).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, robot_id, battery, status, lat, lng, created_at
FROM `+historyTable+`
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	records, err := scanRecords(rows)
	return records, total, err
}

func scanRecords(rows *sql.Rows) ([]telemetry.HistoryRecord, error) {
	records := make([]telemetry.HistoryRecord, 0)
	for rows.Next() {
		var record telemetry.HistoryRecord
		var lat, lng sql.NullFloat64
		var createdAt time.Time
		if err := rows.Scan(&record.ID, &record.RobotID, &record.Battery, &record.Status, &lat, &lng, &createdAt); err != nil {
			return nil, err
		}
		if lat.Valid {
			value := lat.Float64
			record.Lat = &value
		}
		if lng.Valid {
			value := lng.Float64
			record.Lng = &value
		}
		record.CreatedAt = createdAt.UTC()
		records = append(records, record)
	}
	return records, rows.Err()
}

func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	return page, limit
}
