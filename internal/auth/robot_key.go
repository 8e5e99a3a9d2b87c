package auth

import (
	"context"
	"net/http"

	"fleet-cloud/internal/robots/application"
	robots "fleet-cloud/internal/robots/domain"
)

// RobotFinder resolves a robot from its credential hash.
type RobotFinder interface {
	FindByAPIKeyHash(ctx context.Context, hash string) (robots.Robot, bool, error)
}

// RobotKeyMiddleware authenticates robot requests by the X-Api-Key
// header: the key is hashed and looked up against the registry. The
// matched robot is injected into the request context.
type RobotKeyMiddleware struct {
	finder RobotFinder
}

// NewRobotKeyMiddleware constructs the middleware.
func NewRobotKeyMiddleware(finder RobotFinder) *RobotKeyMiddleware {
	return &RobotKeyMiddleware{finder: finder}
}

// Wrap enforces robot authentication on the handler.
func (m *RobotKeyMiddleware) Wrap(next http.Handler) http.Handler {
	if m == nil || m.finder == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("X-Api-Key")
		if apiKey == "" {
			http.Error(w, "API key is missing", http.StatusUnauthorized)
			return
		}
		robot, ok, err := m.finder.FindByAPIKeyHash(r.Context(), application.HashAPIKey(apiKey))
		if err != nil {
			http.Error(w, "auth lookup error", http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, "invalid API key", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithRobot(r.Context(), robot)))
	})
}
