package middleware

import (
	"context"

	"github.com/fieldhail/dispatch-system/internal/domain/models"
	"github.com/fieldhail/dispatch-system/pkg/logger"
)

type (
	// IdentityService validates bearer tokens and resolves them to actors.
	IdentityService interface {
		ActorFromToken(ctx context.Context, token string) (models.Actor, error)
	}

	Middleware struct {
		identity IdentityService
		log      logger.Logger
	}
)

func NewMiddleware(identity IdentityService, log logger.Logger) *Middleware {
	return &Middleware{
		identity: identity,
		log:      log,
	}
}
