package models

import (
	"context"

	"github.com/fieldhail/dispatch-system/internal/domain/types"
	"github.com/fieldhail/dispatch-system/pkg/uuid"
)

// Actor is the already-authenticated caller identity handed to every
// operation. The core never authenticates; it only consumes the (role, id)
// pair the transport extracted.
type Actor struct {
	ID   uuid.UUID
	Role types.ActorRole
}

func (a Actor) IsAnonymous() bool {
	return a.Role == ""
}

func (a Actor) IsAdmin() bool {
	return a.Role == types.RoleAdmin
}

// AnonymousActor is the identity used when no credentials were presented.
func AnonymousActor() Actor {
	return Actor{}
}

type actorCtxKey struct{}

var actorKey = actorCtxKey{}

// WithActor stores the actor identity in the context.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// ActorFromContext returns the actor stored in the context, or the anonymous
// actor when none was set.
func ActorFromContext(ctx context.Context) Actor {
	if a, ok := ctx.Value(actorKey).(Actor); ok {
		return a
	}
	return AnonymousActor()
}
