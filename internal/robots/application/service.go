package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"fleet-cloud/internal/presence"
	robots "fleet-cloud/internal/robots/domain"
)

// RobotView is the read model exposed by list/get endpoints. The key
// hash never leaves the service.
type RobotView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"createdAt"`
	Online    bool      `json:"online"`
}

// Service manages the robot registry and credential issuance.
type Service struct {
	repo   robots.Repository
	cache  presence.Cache
	logger *log.Logger
}

// NewService constructs the robots service.
func NewService(repo robots.Repository, cache presence.Cache, logger *log.Logger) (*Service, error) {
	if repo == nil {
		return nil, errors.New("robots service: nil repository")
	}
	if cache == nil {
		return nil, errors.New("robots service: nil cache")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}, nil
}

// HashAPIKey derives the stored hash from a raw API key.
func HashAPIKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}

// Register creates a robot and issues its API key. The key is returned
// exactly once; only the hash survives.
func (s *Service) Register(ctx context.Context, name, model string) (robots.Robot, string, error) {
	if name == "" || model == "" {
		return robots.Robot{}, "", errors.New("robots service: name and model required")
	}
	apiKey := uuid.NewString()
	robot := robots.Robot{
		ID:         uuid.NewString(),
		Name:       name,
		Model:      model,
		APIKeyHash: HashAPIKey(apiKey),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, robot); err != nil {
		return robots.Robot{}, "", err
	}
	s.logger.Printf("robots.create id=%s name=%s model=%s", robot.ID, name, model)
	return robot, apiKey, nil
}

// Get returns one robot with its derived online status.
func (s *Service) Get(ctx context.Context, id string) (RobotView, error) {
	robot, ok, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return RobotView{}, err
	}
	if !ok {
		return RobotView{}, robots.ErrNotFound
	}
	return s.view(ctx, robot), nil
}

// List returns one page of robots, newest first, each with online
// status derived from presence key existence.
func (s *Service) List(ctx context.Context, page, limit int) ([]RobotView, int, error) {
	stored, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}
	views := make([]RobotView, 0, len(stored))
	for _, robot := range stored {
		views = append(views, s.view(ctx, robot))
	}
	return views, total, nil
}

// FindByAPIKeyHash backs the robot auth guard.
func (s *Service) FindByAPIKeyHash(ctx context.Context, hash string) (robots.Robot, bool, error) {
	return s.repo.FindByAPIKeyHash(ctx, hash)
}

// Delete removes a robot, its history rows (store cascade), and its
// presence entry. The presence delete is the only explicit one in the
// system; everything else expires by TTL.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, ok, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	} else if !ok {
		return robots.ErrNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, id); err != nil {
		// Registry is the source of truth; a stale presence key expires
		// on its own within one TTL.
		s.logger.Printf("robots.delete presence cleanup failed id=%s err=%v", id, err)
	}
	s.logger.Printf("robots.delete id=%s", id)
	return nil
}

func (s *Service) view(ctx context.Context, robot robots.Robot) RobotView {
	online, err := s.cache.Exists(ctx, robot.ID)
	if err != nil {
		s.logger.Printf("robots.list presence check failed id=%s err=%v", robot.ID, err)
		online = false
	}
	return RobotView{ID: robot.ID, Name: robot.Name, Model: robot.Model, CreatedAt: robot.CreatedAt, Online: online}
}

// Describe formats a one-line summary used in audit metadata.
func Describe(robot robots.Robot) string {
	return fmt.Sprintf("%s (%s/%s)", robot.ID, robot.Name, robot.Model)
}
