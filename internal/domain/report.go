package domain

import "github.com/shopspring/decimal"

// EnrichedLineItem is a report line joined against the product catalog.
// Enrichment fields are pointers: a failed or missing lookup leaves them nil
// without hiding the rest of the report.
type EnrichedLineItem struct {
	ProductID string          `json:"product_id"`
	SKU       *string         `json:"sku,omitempty"`
	Nombre    *string         `json:"nombre,omitempty"`
	Categoria *string         `json:"categoria,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// PendingCartSummary is the aggregator's denormalized view of one pending
// cart. Derived, never persisted.
type PendingCartSummary struct {
	CartKey        string             `json:"cart_key"`
	UserID         string             `json:"user_id"`
	ClienteID      string             `json:"cliente_id"`
	VendedorID     *string            `json:"vendedor_id,omitempty"`
	ClienteNombre  *string            `json:"cliente_nombre,omitempty"`
	Tier           *string            `json:"tier,omitempty"`
	VendedorNombre *string            `json:"vendedor_nombre,omitempty"`
	Items          []EnrichedLineItem `json:"items"`
	TotalUSD       decimal.Decimal    `json:"total_usd"`
}
