// Package auth resolves the acting staff member from request credentials.
// Every state-changing operation requires a resolved actor; requests without
// one are rejected before reaching the domain layer.
package auth

import (
	"net/http"
	"strings"

	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/auth/jwt"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/actor"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/errors"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/httputil"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/logger"
)

// Authenticator validates the Authorization header and places the resolved
// actor in the request context. There is no anonymous fallback: requests
// without a valid bearer token are rejected with 401.
func Authenticator(manager *jwt.Manager, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				httputil.Error(w, errors.Unauthorized("missing authorization header"))
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				httputil.Error(w, errors.Unauthorized("invalid authorization header format"))
				return
			}

			claims, err := manager.ValidateAccessToken(parts[1])
			if err != nil {
				httputil.Error(w, err)
				return
			}

			a := actor.Actor{
				ID:   claims.UserID,
				Name: claims.Name,
				Role: claims.Role,
			}
			if !a.Valid() {
				log.Warn().Int64("user_id", claims.UserID).Msg("token carries no usable actor identity")
				httputil.Error(w, errors.Unauthorized("token does not identify an actor"))
				return
			}

			next.ServeHTTP(w, r.WithContext(actor.WithActor(r.Context(), &a)))
		})
	}
}
