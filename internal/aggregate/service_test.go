package aggregate

import (
	"context"
	"testing"

	"github.com/carritosync/carrito/internal/cartstore"
	"github.com/carritosync/carrito/internal/database"
	"github.com/carritosync/carrito/internal/domain"
	"github.com/carritosync/carrito/internal/logger"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubIdentities struct {
	ids map[string]struct{}
	err error
}

func (s *stubIdentities) ListKnownUserIDs(ctx context.Context) (map[string]struct{}, error) {
	return s.ids, s.err
}

type stubCatalog struct {
	productos  map[string]*domain.Producto
	clientes   map[string]*domain.Cliente
	vendedores map[string]*domain.Vendedor

	productoCalls int
	clienteErr    error
}

func (s *stubCatalog) GetProducto(ctx context.Context, id string) (*domain.Producto, error) {
	s.productoCalls++
	return s.productos[id], nil
}

func (s *stubCatalog) GetCliente(ctx context.Context, id string) (*domain.Cliente, error) {
	if s.clienteErr != nil {
		return nil, s.clienteErr
	}
	return s.clientes[id], nil
}

func (s *stubCatalog) GetVendedor(ctx context.Context, id string) (*domain.Vendedor, error) {
	return s.vendedores[id], nil
}

type fixture struct {
	kv         *database.MemoryKV
	store      cartstore.Service
	identities *stubIdentities
	catalog    *stubCatalog
	svc        Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	kv := database.NewMemoryKV()
	store := cartstore.NewService(logger.Mock(), kv)
	identities := &stubIdentities{ids: map[string]struct{}{"u1": {}}}
	catalog := &stubCatalog{
		productos: map[string]*domain.Producto{
			"prod-a": {ID: "prod-a", SKU: "SKU-A", Nombre: "Camisa", Categoria: "textil", Precio: decimal.NewFromInt(5)},
			"prod-b": {ID: "prod-b", SKU: "SKU-B", Nombre: "Pantalon", Categoria: "textil", Precio: decimal.NewFromInt(10)},
		},
		clientes: map[string]*domain.Cliente{
			"cli-1": {ID: "cli-1", Nombre: "Tienda Central", Tier: "gold", VendedorID: "ven-1"},
		},
		vendedores: map[string]*domain.Vendedor{
			"ven-1": {ID: "ven-1", Nombre: "Ana"},
		},
	}

	return &fixture{
		kv:         kv,
		store:      store,
		identities: identities,
		catalog:    catalog,
		svc:        NewService(logger.Mock(), kv, store, identities, catalog),
	}
}

func (f *fixture) fillCart(t *testing.T, userID string, items ...domain.CartLineItem) {
	t.Helper()
	_, err := f.store.Mutate(userID, func(state domain.CartState) domain.CartState {
		state.ClienteID = "cli-1"
		for _, item := range items {
			state.UpsertItem(item)
		}
		return state
	})
	require.NoError(t, err)
}

func predefinedItem(productID, curveID string, unitsPerCurve, multiplier int, price int64) domain.CartLineItem {
	return domain.CartLineItem{
		ProductID: productID,
		Curve: domain.CurveSelection{
			Kind:       domain.CurveKindPredefined,
			Predefined: &domain.PredefinedCurve{CurveID: curveID, UnitsPerCurve: unitsPerCurve, Multiplier: multiplier},
		},
		UnitPrice: decimal.NewFromInt(price),
	}
}

func customItem(productID string, quantities map[string]int, price int64) domain.CartLineItem {
	return domain.CartLineItem{
		ProductID: productID,
		Curve: domain.CurveSelection{
			Kind:   domain.CurveKindCustom,
			Custom: &domain.CustomCurve{QuantityBySize: quantities},
		},
		UnitPrice: decimal.NewFromInt(price),
	}
}

func TestService_BuildReportTotals(t *testing.T) {
	f := newFixture(t)

	// 10 units at $5 plus 8 units at $10.
	f.fillCart(t, "u1",
		predefinedItem("prod-a", "curve-a", 5, 2, 5),
		customItem("prod-b", map[string]int{"S": 3, "M": 5}, 10),
	)

	summaries, err := f.svc.BuildReport(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	summary := summaries[0]
	assert.Equal(t, cartstore.ItemsKey("u1"), summary.CartKey)
	assert.Equal(t, "u1", summary.UserID)
	assert.Equal(t, "cli-1", summary.ClienteID)
	assert.True(t, summary.TotalUSD.Equal(decimal.NewFromInt(130)), "expected 130, got %s", summary.TotalUSD)

	require.Len(t, summary.Items, 2)
	assert.Equal(t, 10, summary.Items[0].Quantity)
	assert.True(t, summary.Items[0].Subtotal.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, 8, summary.Items[1].Quantity)
	assert.True(t, summary.Items[1].Subtotal.Equal(decimal.NewFromInt(80)))

	require.NotNil(t, summary.ClienteNombre)
	assert.Equal(t, "Tienda Central", *summary.ClienteNombre)
	require.NotNil(t, summary.Tier)
	assert.Equal(t, "gold", *summary.Tier)
	require.NotNil(t, summary.VendedorNombre)
	assert.Equal(t, "Ana", *summary.VendedorNombre)

	require.NotNil(t, summary.Items[0].SKU)
	assert.Equal(t, "SKU-A", *summary.Items[0].SKU)
}

func TestService_BuildReportSkipsUnknownUsers(t *testing.T) {
	f := newFixture(t)

	f.fillCart(t, "u1", predefinedItem("prod-a", "curve-a", 5, 1, 5))
	// A cart left behind by someone who never signed in on this device.
	f.fillCart(t, "ghost", predefinedItem("prod-b", "curve-b", 3, 1, 10))

	summaries, err := f.svc.BuildReport(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "u1", summaries[0].UserID)
}

func TestService_BuildReportSkipsEmptyCarts(t *testing.T) {
	f := newFixture(t)

	// An empty slot exists after a checkout cleared the items.
	_, err := f.store.Mutate("u1", func(state domain.CartState) domain.CartState {
		return state
	})
	require.NoError(t, err)

	summaries, err := f.svc.BuildReport(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestService_BuildReportCachesProductLookups(t *testing.T) {
	f := newFixture(t)

	// Two variants of the same product in one cart.
	f.fillCart(t, "u1",
		predefinedItem("prod-a", "curve-a", 5, 1, 5),
		customItem("prod-a", map[string]int{"S": 2}, 5),
	)

	_, err := f.svc.BuildReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.catalog.productoCalls, "a product is fetched once per run")
}

func TestService_BuildReportFallsBackToCatalogPrice(t *testing.T) {
	f := newFixture(t)

	item := predefinedItem("prod-b", "curve-b", 2, 1, 0)
	item.UnitPrice = decimal.Zero
	f.fillCart(t, "u1", item)

	summaries, err := f.svc.BuildReport(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.True(t, summaries[0].TotalUSD.Equal(decimal.NewFromInt(20)), "2 units at the catalog price of 10")
}

func TestService_BuildReportToleratesClienteLookupFailure(t *testing.T) {
	f := newFixture(t)

	f.fillCart(t, "u1", predefinedItem("prod-a", "curve-a", 5, 2, 5))
	f.catalog.clienteErr = errors.New("catalog down")

	summaries, err := f.svc.BuildReport(context.Background())
	require.NoError(t, err, "one bad entity must not hide the report")
	require.Len(t, summaries, 1)
	assert.Nil(t, summaries[0].ClienteNombre)
	assert.True(t, summaries[0].TotalUSD.Equal(decimal.NewFromInt(50)), "totals survive enrichment failures")
}

func TestService_BuildReportFailsWhenIdentitiesUnavailable(t *testing.T) {
	f := newFixture(t)
	f.identities.err = errors.New("identity store unavailable")

	_, err := f.svc.BuildReport(context.Background())
	assert.Error(t, err)
}
