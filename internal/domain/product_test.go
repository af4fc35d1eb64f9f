package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubunitAmount(t *testing.T) {
	tests := []struct {
		price string
		want  int64
	}{
		{"5.00", 500},
		{"10.00", 1000},
		{"20.00", 2000},
		{"0.29", 29},
		{"19.99", 1999},
		{"1.005", 100},
	}
	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			p := Product{Price: decimal.RequireFromString(tt.price)}
			assert.Equal(t, tt.want, p.SubunitAmount())
		})
	}
}

func TestDefaultCatalogAmounts(t *testing.T) {
	c := DefaultCatalog()
	require.Len(t, c.All(), 3)

	for _, p := range c.All() {
		want := p.Price.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
		assert.Equal(t, want, p.SubunitAmount(), "product %d", p.ID)
	}
}

func TestCatalogFind(t *testing.T) {
	c := DefaultCatalog()

	p, ok := c.Find(2)
	require.True(t, ok)
	assert.Equal(t, "Medium Credit Pack", p.Name)
	assert.Equal(t, int64(1200), p.Credits)

	_, ok = c.Find(42)
	assert.False(t, ok)
}

func TestCatalogAllReturnsCopy(t *testing.T) {
	c := DefaultCatalog()
	all := c.All()
	all[0].Credits = 1

	p, _ := c.Find(all[0].ID)
	assert.Equal(t, int64(500), p.Credits)
}
