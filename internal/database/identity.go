package database

import (
	"context"

	"github.com/carritosync/carrito/internal/domain"
	"github.com/carritosync/carrito/internal/logger"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

func NewIdentityRepo(log logger.Logger, db *DB) domain.IdentityRepo {
	return &IdentityRepo{
		log: log.With().Str("repo", "identity").Logger(),
		db:  db,
	}
}

type IdentityRepo struct {
	log zerolog.Logger
	db  *DB
}

// ListKnownUserIDs returns the membership set of active user ids.
func (r *IdentityRepo) ListKnownUserIDs(ctx context.Context) (map[string]struct{}, error) {
	var ids []string
	result := r.db.Get().WithContext(ctx).
		Model(&domain.User{}).
		Where("activo = ?", true).
		Pluck("id", &ids)

	if result.Error != nil {
		r.log.Error().Err(result.Error).Msg("Failed to list known user ids")
		return nil, errors.Wrap(result.Error, "failed to list known user ids")
	}

	members := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		members[id] = struct{}{}
	}
	return members, nil
}
