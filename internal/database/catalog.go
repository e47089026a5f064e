package database

import (
	"context"

	"github.com/carritosync/carrito/internal/domain"
	"github.com/carritosync/carrito/internal/logger"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

func NewCatalogRepo(log logger.Logger, db *DB) domain.CatalogRepo {
	return &CatalogRepo{
		log: log.With().Str("repo", "catalog").Logger(),
		db:  db,
	}
}

type CatalogRepo struct {
	log zerolog.Logger
	db  *DB
}

// GetProducto retrieves catalog display metadata, or nil when unknown.
func (r *CatalogRepo) GetProducto(ctx context.Context, id string) (*domain.Producto, error) {
	var producto domain.Producto
	result := r.db.Get().WithContext(ctx).Where("id = ?", id).First(&producto)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Error().Err(result.Error).Str("id", id).Msg("Failed to get producto")
		return nil, errors.Wrap(result.Error, "failed to get producto")
	}

	return &producto, nil
}

// GetCliente retrieves the client record, or nil when unknown.
func (r *CatalogRepo) GetCliente(ctx context.Context, id string) (*domain.Cliente, error) {
	var cliente domain.Cliente
	result := r.db.Get().WithContext(ctx).Where("id = ?", id).First(&cliente)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Error().Err(result.Error).Str("id", id).Msg("Failed to get cliente")
		return nil, errors.Wrap(result.Error, "failed to get cliente")
	}

	return &cliente, nil
}

// GetVendedor retrieves the seller record, or nil when unknown.
func (r *CatalogRepo) GetVendedor(ctx context.Context, id string) (*domain.Vendedor, error) {
	var vendedor domain.Vendedor
	result := r.db.Get().WithContext(ctx).Where("id = ?", id).First(&vendedor)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Error().Err(result.Error).Str("id", id).Msg("Failed to get vendedor")
		return nil, errors.Wrap(result.Error, "failed to get vendedor")
	}

	return &vendedor, nil
}
