package memory

import (
	"context"
	"sync"

	robots "fleet-cloud/internal/robots/domain"
)

// Repository is an in-memory robot registry for tests.
type Repository struct {
	mu     sync.Mutex
	stored []robots.Robot
}

// NewRepository constructs an empty registry.
func NewRepository() *Repository {
	return &Repository{}
}

// Insert stores a robot.
func (r *Repository) Insert(_ context.Context, robot robots.Robot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = append(r.stored, robot)
	return nil
}

// FindByID returns a robot by id.
func (r *Repository) FindByID(_ context.Context, id string) (robots.Robot, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, robot := range r.stored {
		if robot.ID == id {
			return robot, true, nil
		}
	}
	return robots.Robot{}, false, nil
}

// FindByAPIKeyHash returns a robot by credential hash.
func (r *Repository) FindByAPIKeyHash(_ context.Context, hash string) (robots.Robot, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, robot := range r.stored {
		if robot.APIKeyHash == hash {
			return robot, true, nil
		}
	}
	return robots.Robot{}, false, nil
}

// List returns one page, newest first (insertion order reversed).
func (r *Repository) List(_ context.Context, page, limit int) ([]robots.Robot, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	reversed := make([]robots.Robot, 0, len(r.stored))
	for i := len(r.stored) - 1; i >= 0; i-- {
		reversed = append(reversed, r.stored[i])
	}
	total := len(reversed)
	start := (page - 1) * limit
	if start >= total {
		return []robots.Robot{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return reversed[start:end], total, nil
}

// Delete removes a robot by id.
func (r *Repository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, robot := range r.stored {
		if robot.ID == id {
			r.stored = append(r.stored[:i], r.stored[i+1:]...)
			return nil
		}
	}
	return robots.ErrNotFound
}
