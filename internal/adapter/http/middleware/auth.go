package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/fieldhail/dispatch-system/internal/domain/models"
	"github.com/fieldhail/dispatch-system/internal/domain/types"
	wrap "github.com/fieldhail/dispatch-system/pkg/logger/wrapper"
)

// Auth validates the bearer token and injects the actor into the context.
// A missing header leaves the anonymous actor in place; protected endpoints
// reject it in RequireRoles.
func (m *Middleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r.WithContext(models.WithActor(ctx, models.AnonymousActor())))
			return
		}

		token, err := extractBearerToken(header)
		if err != nil {
			errorResponse(w, http.StatusUnauthorized, err.Error())
			return
		}

		actor, err := m.identity.ActorFromToken(ctx, token)
		if err != nil {
			m.log.Debug(wrap.ErrorCtx(ctx, err), "token rejected", "err", err.Error())
			errorResponse(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		ctx = wrap.WithActorID(models.WithActor(ctx, actor), actor.ID.String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRoles allows only authenticated actors carrying one of the given
// roles. An empty role list means any authenticated actor.
func (m *Middleware) RequireRoles(next http.HandlerFunc, allowedRoles ...types.ActorRole) http.Handler {
	allowed := make(map[types.ActorRole]struct{}, len(allowedRoles))
	for _, role := range allowedRoles {
		allowed[role] = struct{}{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := models.ActorFromContext(r.Context())
		if actor.IsAnonymous() {
			errorResponse(w, http.StatusUnauthorized, "authorization required")
			return
		}
		if len(allowed) > 0 {
			if _, ok := allowed[actor.Role]; !ok {
				errorResponse(w, http.StatusForbidden, "forbidden: insufficient role")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", fmt.Errorf("invalid Authorization header format")
	}
	return parts[1], nil
}
