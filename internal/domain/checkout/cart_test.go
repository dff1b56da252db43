package checkout

import (
	"testing"

	"github.com/google/uuid"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCart_AddProduct_IncrementsExistingLine(t *testing.T) {
	p := testProduct(t, "Coffee", "COFFEE-001", 24.99, 5)

	cart := Cart{}
	require.NoError(t, cart.AddProduct(p))
	require.NoError(t, cart.AddProduct(p))

	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
}

func TestCart_AddProduct_OutOfStock(t *testing.T) {
	p := testProduct(t, "Coffee", "COFFEE-001", 24.99, 0)

	cart := Cart{}
	err := cart.AddProduct(p)

	assert.ErrorIs(t, err, shared.ErrOutOfStock)
	assert.True(t, cart.IsEmpty())
}

func TestCart_AddProduct_BoundedByStock(t *testing.T) {
	// Stock 3: three adds succeed with final quantity 3, the fourth fails
	// and leaves the cart unchanged.
	p := testProduct(t, "Coffee", "COFFEE-001", 24.99, 3)

	cart := Cart{}
	require.NoError(t, cart.AddProduct(p))
	require.NoError(t, cart.AddProduct(p))
	require.NoError(t, cart.AddProduct(p))

	err := cart.AddProduct(p)

	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 3, cart.Lines[0].Quantity)
}

func TestCart_UpdateQuantity_ZeroRemovesLine(t *testing.T) {
	p := testProduct(t, "Coffee", "COFFEE-001", 24.99, 5)

	cart := Cart{}
	require.NoError(t, cart.AddProduct(p))
	require.NoError(t, cart.UpdateQuantity(p.ID, 0, p.Stock))

	assert.True(t, cart.IsEmpty())
}

func TestCart_UpdateQuantity_ExceedsStock(t *testing.T) {
	p := testProduct(t, "Coffee", "COFFEE-001", 24.99, 5)

	cart := Cart{}
	require.NoError(t, cart.AddProduct(p))

	err := cart.UpdateQuantity(p.ID, 6, p.Stock)

	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	assert.Equal(t, 1, cart.Lines[0].Quantity) // unchanged
}

func TestCart_UpdateQuantity_UnknownProduct(t *testing.T) {
	cart := Cart{}
	err := cart.UpdateQuantity(uuid.New(), 1, 10)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCart_RemoveDiscount(t *testing.T) {
	d, err := NewPercentageDiscount(decimal.NewFromInt(10), "")
	require.NoError(t, err)

	cart := Cart{}
	cart.AddDiscount(d)

	assert.True(t, cart.RemoveDiscount(d.ID))
	assert.False(t, cart.RemoveDiscount(d.ID))
	assert.Empty(t, cart.Discounts)
}

func TestCart_Clone_IsIndependent(t *testing.T) {
	p := testProduct(t, "Coffee", "COFFEE-001", 24.99, 5)

	cart := Cart{}
	require.NoError(t, cart.AddProduct(p))

	clone := cart.Clone()
	clone.Lines[0].Quantity = 99

	assert.Equal(t, 1, cart.Lines[0].Quantity)
}

func TestNewPercentageDiscount_Validation(t *testing.T) {
	_, err := NewPercentageDiscount(decimal.NewFromInt(101), "")
	assert.Error(t, err)

	_, err = NewPercentageDiscount(decimal.NewFromInt(-1), "")
	assert.Error(t, err)
}
