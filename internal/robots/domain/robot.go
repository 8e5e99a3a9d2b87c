package robots

import (
	"context"
	"errors"
	"time"
)

// Robot is a registered fleet agent. APIKeyHash is the SHA-256 hex of
// the key issued at registration; the key itself is never stored.
type Robot struct {
	ID         string
	Name       string
	Model      string
	APIKeyHash string
	CreatedAt  time.Time
}

// ErrNotFound is returned when a robot does not exist.
var ErrNotFound = errors.New("robots: not found")

// Repository persists the robot registry.
type Repository interface {
	Insert(ctx context.Context, robot Robot) error
	FindByID(ctx context.Context, id string) (Robot, bool, error)
	FindByAPIKeyHash(ctx context.Context, hash string) (Robot, bool, error)
	List(ctx context.Context, page, limit int) ([]Robot, int, error)
	Delete(ctx context.Context, id string) error
}
