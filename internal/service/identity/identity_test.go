package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldhail/dispatch-system/internal/domain/models"
	"github.com/fieldhail/dispatch-system/internal/domain/types"
	"github.com/fieldhail/dispatch-system/pkg/uuid"
)

func TestActorFromToken_RoundTrip(t *testing.T) {
	svc := New("test-secret")
	id, err := uuid.New()
	require.NoError(t, err)
	actor := models.Actor{ID: id, Role: types.RoleProfessional}

	token, err := svc.Issue(actor, time.Minute)
	require.NoError(t, err)

	got, err := svc.ActorFromToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, actor, got)
}

func TestActorFromToken_WrongSecretRejected(t *testing.T) {
	id, err := uuid.New()
	require.NoError(t, err)

	token, err := New("secret-a").Issue(models.Actor{ID: id, Role: types.RoleRequester}, time.Minute)
	require.NoError(t, err)

	_, err = New("secret-b").ActorFromToken(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestActorFromToken_ExpiredRejected(t *testing.T) {
	svc := New("test-secret")
	id, err := uuid.New()
	require.NoError(t, err)

	token, err := svc.Issue(models.Actor{ID: id, Role: types.RoleRequester}, -time.Minute)
	require.NoError(t, err)

	_, err = svc.ActorFromToken(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestActorFromToken_GarbageRejected(t *testing.T) {
	_, err := New("test-secret").ActorFromToken(context.Background(), "not.a.token")
	require.ErrorIs(t, err, ErrInvalidToken)
}
