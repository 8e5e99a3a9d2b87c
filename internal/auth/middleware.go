package auth

import (
	"net/http"
	"strings"
)

// AdminMiddleware validates admin JWTs on the admin surface.
type AdminMiddleware struct {
	Secret []byte
}

// NewAdminMiddleware constructs the middleware.
func NewAdminMiddleware(secret []byte) *AdminMiddleware {
	return &AdminMiddleware{Secret: secret}
}

// Wrap enforces a bearer token with the admin role.
func (m *AdminMiddleware) Wrap(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearer(r)
		claims, err := ParseJWT(token, m.Secret)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if claims.Role != RoleAdmin {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithAdminSubject(r.Context(), claims.Subject)))
	})
}

func extractBearer(r *http.Request) string {
	if r == nil {
		return ""
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
