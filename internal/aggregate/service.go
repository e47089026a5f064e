package aggregate

import (
	"context"

	"github.com/carritosync/carrito/internal/cartstore"
	"github.com/carritosync/carrito/internal/domain"
	"github.com/carritosync/carrito/internal/logger"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Service reconstructs a read-only view of every pending cart on the device
// for back-office reporting. It never mutates cart state.
type Service interface {
	BuildReport(ctx context.Context) ([]domain.PendingCartSummary, error)
}

func NewService(log logger.Logger, kv domain.KVStore, store cartstore.Service, identities domain.IdentityRepo, catalog domain.CatalogRepo) Service {
	return &service{
		log:        log.With().Str("module", "aggregate").Logger(),
		kv:         kv,
		store:      store,
		identities: identities,
		catalog:    catalog,
	}
}

type service struct {
	log        zerolog.Logger
	kv         domain.KVStore
	store      cartstore.Service
	identities domain.IdentityRepo
	catalog    domain.CatalogRepo
}

func (s *service) BuildReport(ctx context.Context) ([]domain.PendingCartSummary, error) {
	members, err := s.identities.ListKnownUserIDs(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load identity membership")
	}

	keys, err := s.kv.ListKeys(cartstore.ItemsKeyPrefix())
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate cart slots")
	}

	// Per-run product cache: a product referenced by multiple line items or
	// carts is fetched once.
	productos := make(map[string]*domain.Producto)

	summaries := make([]domain.PendingCartSummary, 0, len(keys))
	for _, key := range keys {
		userID, ok := cartstore.ParseItemsKey(key)
		if !ok {
			continue
		}
		if _, known := members[userID]; !known {
			s.log.Debug().Str("key", key).Msg("Skipping cart for unknown user")
			continue
		}

		state, _ := s.store.Load(userID)
		if state.IsEmpty() {
			continue
		}

		summary := domain.PendingCartSummary{
			CartKey:   key,
			UserID:    userID,
			ClienteID: state.ClienteID,
			TotalUSD:  decimal.Zero,
		}

		s.enrichCliente(ctx, &summary)

		for _, item := range state.Items {
			line := s.buildLine(ctx, item, productos)
			summary.TotalUSD = summary.TotalUSD.Add(line.Subtotal)
			summary.Items = append(summary.Items, line)
		}

		summaries = append(summaries, summary)
	}

	s.log.Debug().Int("carts", len(summaries)).Msg("Pending carts report built")
	return summaries, nil
}

// enrichCliente fills client and seller names. Lookup failures leave the
// fields nil; one bad record must not hide the rest of the report.
func (s *service) enrichCliente(ctx context.Context, summary *domain.PendingCartSummary) {
	if summary.ClienteID == "" {
		return
	}

	cliente, err := s.catalog.GetCliente(ctx, summary.ClienteID)
	if err != nil {
		s.log.Warn().Err(err).Str("clienteID", summary.ClienteID).Msg("Cliente lookup failed, leaving cart unenriched")
		return
	}
	if cliente == nil {
		return
	}

	summary.ClienteNombre = &cliente.Nombre
	summary.Tier = &cliente.Tier
	if cliente.VendedorID == "" {
		return
	}
	summary.VendedorID = &cliente.VendedorID

	vendedor, err := s.catalog.GetVendedor(ctx, cliente.VendedorID)
	if err != nil {
		s.log.Warn().Err(err).Str("vendedorID", cliente.VendedorID).Msg("Vendedor lookup failed")
		return
	}
	if vendedor != nil {
		summary.VendedorNombre = &vendedor.Nombre
	}
}

func (s *service) buildLine(ctx context.Context, item domain.CartLineItem, productos map[string]*domain.Producto) domain.EnrichedLineItem {
	line := domain.EnrichedLineItem{
		ProductID: item.ProductID,
		UnitPrice: item.UnitPrice,
	}

	quantity, err := item.Curve.Units()
	if err != nil {
		s.log.Warn().Err(err).Str("productID", item.ProductID).Msg("Unreadable curve selection, counting zero units")
	}
	line.Quantity = quantity

	producto, cached := productos[item.ProductID]
	if !cached {
		producto, err = s.catalog.GetProducto(ctx, item.ProductID)
		if err != nil {
			s.log.Warn().Err(err).Str("productID", item.ProductID).Msg("Producto lookup failed, leaving line unenriched")
			producto = nil
		}
		productos[item.ProductID] = producto
	}

	if producto != nil {
		line.SKU = &producto.SKU
		line.Nombre = &producto.Nombre
		line.Categoria = &producto.Categoria
	}

	// Effective price: the add-time snapshot when present, else the live
	// catalog price.
	price := item.UnitPrice
	if price.IsZero() && producto != nil {
		price = producto.Precio
		line.UnitPrice = price
	}

	line.Subtotal = price.Mul(decimal.NewFromInt(int64(quantity)))
	return line
}
