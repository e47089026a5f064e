package domain

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// CurveKind discriminates the two ways a line item's quantities can be
// expressed: a predefined size curve picked from the catalog, or a custom
// per-size entry made by the user.
type CurveKind string

const (
	CurveKindPredefined CurveKind = "predefined"
	CurveKindCustom     CurveKind = "custom"
)

// PredefinedCurve references a catalog size curve applied N times.
type PredefinedCurve struct {
	CurveID       string `json:"curve_id"`
	UnitsPerCurve int    `json:"units_per_curve"`
	Multiplier    int    `json:"multiplier"`
}

// CustomCurve carries user-entered quantities per size label.
type CustomCurve struct {
	QuantityBySize map[string]int `json:"quantity_by_size"`
}

// CurveSelection is a tagged union: exactly one of Predefined or Custom is
// set, according to Kind.
type CurveSelection struct {
	Kind       CurveKind        `json:"kind"`
	Predefined *PredefinedCurve `json:"predefined,omitempty"`
	Custom     *CustomCurve     `json:"custom,omitempty"`
}

// Units returns the total unit count for the selection. Matching is
// exhaustive; an unknown kind is an error, never a silent zero.
func (c CurveSelection) Units() (int, error) {
	switch c.Kind {
	case CurveKindPredefined:
		if c.Predefined == nil {
			return 0, errors.New("predefined curve selection has no curve data")
		}
		return c.Predefined.UnitsPerCurve * c.Predefined.Multiplier, nil
	case CurveKindCustom:
		if c.Custom == nil {
			return 0, errors.New("custom curve selection has no quantities")
		}
		total := 0
		for size, qty := range c.Custom.QuantityBySize {
			if qty < 0 {
				return 0, errors.Errorf("negative quantity %d for size %q", qty, size)
			}
			total += qty
		}
		return total, nil
	default:
		return 0, errors.Errorf("unknown curve kind: %q", c.Kind)
	}
}

// Variant returns the discriminator used to key a line item within a cart.
func (c CurveSelection) Variant() string {
	if c.Kind == CurveKindPredefined && c.Predefined != nil {
		return c.Predefined.CurveID
	}
	return string(CurveKindCustom)
}

// CartLineItem is a product variant selection with the unit price captured
// at add-time, so later catalog price changes never alter an in-progress cart.
type CartLineItem struct {
	ProductID string          `json:"product_id"`
	Curve     CurveSelection  `json:"curve"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Key identifies a line item inside a cart. Re-adding the same product and
// variant replaces the existing line rather than duplicating it.
func (i CartLineItem) Key() string {
	return i.ProductID + ":" + i.Curve.Variant()
}

// Subtotal is UnitPrice multiplied by the total unit count.
func (i CartLineItem) Subtotal() (decimal.Decimal, error) {
	units, err := i.Curve.Units()
	if err != nil {
		return decimal.Zero, err
	}
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(units))), nil
}

// Validate enforces the persisted-item invariant: at least one unit, no
// negative quantities.
func (i CartLineItem) Validate() error {
	if i.ProductID == "" {
		return errors.New("line item has no product id")
	}
	units, err := i.Curve.Units()
	if err != nil {
		return err
	}
	if units < 1 {
		return errors.Errorf("line item %s has no units", i.Key())
	}
	return nil
}

// CartState is one user's in-progress order. It is owned exclusively by the
// cart store; all mutation goes through the store so PendingChanges and
// LastMutationAt stay consistent.
type CartState struct {
	UserID         string         `json:"user_id"`
	ClienteID      string         `json:"cliente_id"`
	Items          []CartLineItem `json:"items"`
	PendingChanges bool           `json:"pending_changes"`
	LastMutationAt time.Time      `json:"last_mutation_at"`
}

// UpsertItem replaces an existing line with the same key or appends a new one,
// preserving item order.
func (s *CartState) UpsertItem(item CartLineItem) {
	for idx, existing := range s.Items {
		if existing.Key() == item.Key() {
			s.Items[idx] = item
			return
		}
	}
	s.Items = append(s.Items, item)
}

// RemoveItem deletes the line with the given key. Removing an absent key is
// a no-op.
func (s *CartState) RemoveItem(key string) {
	for idx, existing := range s.Items {
		if existing.Key() == key {
			s.Items = append(s.Items[:idx], s.Items[idx+1:]...)
			return
		}
	}
}

func (s CartState) IsEmpty() bool {
	return len(s.Items) == 0
}
