package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurveSelection_Units(t *testing.T) {
	t.Run("predefined multiplies units per curve", func(t *testing.T) {
		sel := CurveSelection{
			Kind:       CurveKindPredefined,
			Predefined: &PredefinedCurve{CurveID: "curve-a", UnitsPerCurve: 12, Multiplier: 3},
		}

		units, err := sel.Units()
		require.NoError(t, err)
		assert.Equal(t, 36, units)
	})

	t.Run("custom sums per-size quantities", func(t *testing.T) {
		sel := CurveSelection{
			Kind:   CurveKindCustom,
			Custom: &CustomCurve{QuantityBySize: map[string]int{"S": 3, "M": 5, "L": 0}},
		}

		units, err := sel.Units()
		require.NoError(t, err)
		assert.Equal(t, 8, units)
	})

	t.Run("negative custom quantity is an error", func(t *testing.T) {
		sel := CurveSelection{
			Kind:   CurveKindCustom,
			Custom: &CustomCurve{QuantityBySize: map[string]int{"S": -1}},
		}

		_, err := sel.Units()
		assert.Error(t, err)
	})

	t.Run("unknown kind is an error, not zero", func(t *testing.T) {
		sel := CurveSelection{Kind: CurveKind("mystery")}

		_, err := sel.Units()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown curve kind")
	})

	t.Run("predefined without curve data is an error", func(t *testing.T) {
		sel := CurveSelection{Kind: CurveKindPredefined}

		_, err := sel.Units()
		assert.Error(t, err)
	})
}

func TestCartLineItem_Key(t *testing.T) {
	predefined := CartLineItem{
		ProductID: "prod-1",
		Curve: CurveSelection{
			Kind:       CurveKindPredefined,
			Predefined: &PredefinedCurve{CurveID: "curve-a", UnitsPerCurve: 6, Multiplier: 1},
		},
	}
	custom := CartLineItem{
		ProductID: "prod-1",
		Curve: CurveSelection{
			Kind:   CurveKindCustom,
			Custom: &CustomCurve{QuantityBySize: map[string]int{"M": 2}},
		},
	}

	assert.Equal(t, "prod-1:curve-a", predefined.Key())
	assert.Equal(t, "prod-1:custom", custom.Key())
	assert.NotEqual(t, predefined.Key(), custom.Key(), "same product with different variants must not collide")
}

func TestCartLineItem_Subtotal(t *testing.T) {
	item := CartLineItem{
		ProductID: "prod-1",
		Curve: CurveSelection{
			Kind:       CurveKindPredefined,
			Predefined: &PredefinedCurve{CurveID: "curve-a", UnitsPerCurve: 5, Multiplier: 2},
		},
		UnitPrice: decimal.RequireFromString("5.00"),
	}

	subtotal, err := item.Subtotal()
	require.NoError(t, err)
	assert.True(t, subtotal.Equal(decimal.NewFromInt(50)), "expected 50, got %s", subtotal)
}

func TestCartLineItem_Validate(t *testing.T) {
	t.Run("zero units rejected", func(t *testing.T) {
		item := CartLineItem{
			ProductID: "prod-1",
			Curve: CurveSelection{
				Kind:   CurveKindCustom,
				Custom: &CustomCurve{QuantityBySize: map[string]int{}},
			},
		}
		assert.Error(t, item.Validate())
	})

	t.Run("missing product id rejected", func(t *testing.T) {
		item := CartLineItem{
			Curve: CurveSelection{
				Kind:   CurveKindCustom,
				Custom: &CustomCurve{QuantityBySize: map[string]int{"S": 1}},
			},
		}
		assert.Error(t, item.Validate())
	})
}

func TestCartState_UpsertItem(t *testing.T) {
	state := CartState{UserID: "u1"}

	first := CartLineItem{
		ProductID: "prod-1",
		Curve: CurveSelection{
			Kind:       CurveKindPredefined,
			Predefined: &PredefinedCurve{CurveID: "curve-a", UnitsPerCurve: 5, Multiplier: 1},
		},
		UnitPrice: decimal.NewFromInt(5),
	}
	state.UpsertItem(first)
	require.Len(t, state.Items, 1)

	// Same key replaces in place.
	replacement := first
	replacement.Curve.Predefined = &PredefinedCurve{CurveID: "curve-a", UnitsPerCurve: 5, Multiplier: 4}
	state.UpsertItem(replacement)
	require.Len(t, state.Items, 1)
	units, err := state.Items[0].Curve.Units()
	require.NoError(t, err)
	assert.Equal(t, 20, units)

	// Different variant of the same product appends.
	other := first
	other.Curve = CurveSelection{
		Kind:   CurveKindCustom,
		Custom: &CustomCurve{QuantityBySize: map[string]int{"S": 2}},
	}
	state.UpsertItem(other)
	assert.Len(t, state.Items, 2)
}

func TestCartState_RemoveItem(t *testing.T) {
	item := CartLineItem{
		ProductID: "prod-1",
		Curve: CurveSelection{
			Kind:       CurveKindPredefined,
			Predefined: &PredefinedCurve{CurveID: "curve-a", UnitsPerCurve: 5, Multiplier: 1},
		},
	}
	state := CartState{UserID: "u1", Items: []CartLineItem{item}}

	state.RemoveItem("prod-1:does-not-exist")
	assert.Len(t, state.Items, 1, "removing an absent key is a no-op")

	state.RemoveItem(item.Key())
	assert.True(t, state.IsEmpty())
}
