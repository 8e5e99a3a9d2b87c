package postgres

import (
	"context"
	"database/sql"
	"errors"

	robots "fleet-cloud/internal/robots/domain"
)

// Repository is the Postgres-backed robot registry.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs the repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert stores a new robot.
func (r *Repository) Insert(ctx context.Context, robot robots.Robot) error {
	if r == nil || r.db == nil {
		return errors.New("robots repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO robots (id, name, model, api_key_hash, created_at)
VALUES ($1, $2, $3, $4, $5)`,
		robot.ID, robot.Name, robot.Model, robot.APIKeyHash, robot.CreatedAt)
	return err
}

// FindByID returns a robot by id.
func (r *Repository) FindByID(ctx context.Context, id string) (robots.Robot, bool, error) {
	return r.findOne(ctx, `SELECT id, name, model, api_key_hash, created_at FROM robots WHERE id = $1`, id)
}

// FindByAPIKeyHash returns a robot by credential hash.
func (r *Repository) FindByAPIKeyHash(ctx context.Context, hash string) (robots.Robot, bool, error) {
	return r.findOne(ctx, `SELECT id, name, model, api_key_hash, created_at FROM robots WHERE api_key_hash = $1`, hash)
}

func (r *Repository) findOne(ctx context.Context, query, arg string) (robots.Robot, bool, error) {
	if r == nil || r.db == nil {
		return robots.Robot{}, false, errors.New("robots repo: nil db")
	}
	var robot robots.Robot
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&robot.ID, &robot.Name, &robot.Model, &robot.APIKeyHash, &robot.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return robots.Robot{}, false, nil
	}
	if err != nil {
		return robots.Robot{}, false, err
	}
	robot.CreatedAt = robot.CreatedAt.UTC()
	return robot, true, nil
}

// List returns one page of robots, newest first.
func (r *Repository) List(ctx context.Context, page, limit int) ([]robots.Robot, int, error) {
	if r == nil || r.db == nil {
		return nil, 0, errors.New("robots repo: nil db")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM robots`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, model, api_key_hash, created_at
FROM robots
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	stored := make([]robots.Robot, 0)
	for rows.Next() {
		var robot robots.Robot
		if err := rows.Scan(&robot.ID, &robot.Name, &robot.Model, &robot.APIKeyHash, &robot.CreatedAt); err != nil {
			return nil, 0, err
		}
		robot.CreatedAt = robot.CreatedAt.UTC()
		stored = append(stored, robot)
	}
	return stored, total, rows.Err()
}

// Delete removes a robot; history rows go with it via the foreign key
// cascade (see schema.sql).
func (r *Repository) Delete(ctx context.Context, id string) error {
	if r == nil || r.db == nil {
		return errors.New("robots repo: nil db")
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM robots WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return robots.ErrNotFound
	}
	return nil
}
