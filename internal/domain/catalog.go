package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// User is a row in the portal's identity table. Only membership matters to
// this service; profile data stays with the portal.
type User struct {
	ID     string `json:"id" gorm:"primaryKey;column:id"`
	Nombre string `json:"nombre" gorm:"column:nombre"`
	Activo bool   `json:"activo" gorm:"column:activo"`
}

// Producto is the catalog display metadata used to enrich report lines.
type Producto struct {
	ID        string          `json:"id" gorm:"primaryKey;column:id"`
	SKU       string          `json:"sku" gorm:"column:sku"`
	Nombre    string          `json:"nombre" gorm:"column:nombre"`
	Categoria string          `json:"categoria" gorm:"column:categoria"`
	Precio    decimal.Decimal `json:"precio" gorm:"column:precio;type:numeric"`
}

// Cliente is the client record a cart is being assembled for.
type Cliente struct {
	ID         string `json:"id" gorm:"primaryKey;column:id"`
	Nombre     string `json:"nombre" gorm:"column:nombre"`
	Tier       string `json:"tier" gorm:"column:tier"`
	VendedorID string `json:"vendedor_id" gorm:"column:vendedor_id"`
}

// Vendedor is the seller assigned to a client.
type Vendedor struct {
	ID     string `json:"id" gorm:"primaryKey;column:id"`
	Nombre string `json:"nombre" gorm:"column:nombre"`
}

// IdentityRepo exposes the set of known user ids. The aggregator uses it to
// discard stale or foreign cart slots left behind on a device.
type IdentityRepo interface {
	ListKnownUserIDs(ctx context.Context) (map[string]struct{}, error)
}

// CatalogRepo is the lookup-by-id collaborator used for report enrichment.
// A missing record is nil with no error.
type CatalogRepo interface {
	GetProducto(ctx context.Context, id string) (*Producto, error)
	GetCliente(ctx context.Context, id string) (*Cliente, error)
	GetVendedor(ctx context.Context, id string) (*Vendedor, error)
}
