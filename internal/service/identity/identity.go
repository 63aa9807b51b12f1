// Package identity turns bearer tokens into actor identities. It does not
// own registration or login; those live with the identity provider that
// signs the tokens.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fieldhail/dispatch-system/internal/domain/models"
	"github.com/fieldhail/dispatch-system/internal/domain/types"
	wrap "github.com/fieldhail/dispatch-system/pkg/logger/wrapper"
	"github.com/fieldhail/dispatch-system/pkg/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
)

type Service struct {
	secret []byte
}

func New(secret string) *Service {
	return &Service{secret: []byte(secret)}
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ActorFromToken validates the signed token and extracts the (id, role)
// pair. Any structural problem maps to ErrInvalidToken; the caller treats it
// as 401.
func (s *Service) ActorFromToken(ctx context.Context, token string) (models.Actor, error) {
	ctx = wrap.WithAction(ctx, "actor_from_token")

	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return models.Actor{}, wrap.Error(ctx, fmt.Errorf("%w: %w", ErrInvalidToken, err))
	}

	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return models.Actor{}, wrap.Error(ctx, fmt.Errorf("%w: bad subject", ErrInvalidToken))
	}

	role := types.ActorRole(c.Role)
	if !role.Valid() {
		return models.Actor{}, wrap.Error(ctx, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, c.Role))
	}

	return models.Actor{ID: id, Role: role}, nil
}

// Issue signs a token for the actor. Used by tooling and tests; production
// tokens come from the identity provider sharing the secret.
func (s *Service) Issue(actor models.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(s.secret)
}
