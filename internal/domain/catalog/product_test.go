package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProduct(t *testing.T) {
	product, err := NewProduct("Premium Coffee Beans", "coffee-001", decimal.NewFromFloat(24.99))

	require.NoError(t, err)
	assert.Equal(t, "Premium Coffee Beans", product.Name)
	assert.Equal(t, "COFFEE-001", product.SKU) // normalized to upper case
	assert.True(t, product.Active)
	assert.Equal(t, 0, product.Stock)
	assert.NotEqual(t, product.ID.String(), "00000000-0000-0000-0000-000000000000")
}

func TestNewProduct_Invalid(t *testing.T) {
	_, err := NewProduct("", "SKU-1", decimal.NewFromInt(1))
	assert.Error(t, err)

	_, err = NewProduct("Name", "", decimal.NewFromInt(1))
	assert.Error(t, err)

	_, err = NewProduct("Name", "SKU 1", decimal.NewFromInt(1))
	assert.Error(t, err)

	_, err = NewProduct("Name", "SKU-1", decimal.NewFromInt(-1))
	assert.Error(t, err)
}

func TestProduct_AdjustStock_ClampsAtZero(t *testing.T) {
	product, err := NewProduct("Tea", "TEA-001", decimal.NewFromFloat(18.99))
	require.NoError(t, err)

	product.SetStock(3)
	got := product.AdjustStock(-5)

	assert.Equal(t, 0, got)
	assert.Equal(t, 0, product.Stock)
	assert.True(t, product.IsOutOfStock())
}

func TestProduct_AdjustStock(t *testing.T) {
	product, err := NewProduct("Tea", "TEA-001", decimal.NewFromFloat(18.99))
	require.NoError(t, err)

	assert.Equal(t, 10, product.AdjustStock(10))
	assert.Equal(t, 7, product.AdjustStock(-3))
}

func TestProduct_IsLowStock(t *testing.T) {
	product, err := NewProduct("Chocolate", "CHOC-001", decimal.NewFromFloat(8.99))
	require.NoError(t, err)
	require.NoError(t, product.SetReorderLevel(5))

	product.SetStock(6)
	assert.False(t, product.IsLowStock())

	product.SetStock(5)
	assert.True(t, product.IsLowStock())

	product.SetStock(0)
	assert.False(t, product.IsLowStock()) // out of stock, not low
	assert.True(t, product.IsOutOfStock())
}

func TestProduct_SetPrices(t *testing.T) {
	product, err := NewProduct("Tea", "TEA-001", decimal.NewFromFloat(18.99))
	require.NoError(t, err)

	err = product.SetPrices(decimal.NewFromFloat(19.99), decimal.NewFromFloat(9.50))
	require.NoError(t, err)
	assert.True(t, product.Price.Equal(decimal.NewFromFloat(19.99)))

	err = product.SetPrices(decimal.NewFromInt(-1), decimal.Zero)
	assert.Error(t, err)
}
