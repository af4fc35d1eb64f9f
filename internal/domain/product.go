package domain

import (
	"github.com/shopspring/decimal"
)

var subunitsPerUnit = decimal.NewFromInt(100)

// Product is a credit pack offered in the store. Price is in the major currency unit.
type Product struct {
	ID      int             `json:"id"`
	Name    string          `json:"name"`
	Price   decimal.Decimal `json:"price"`
	Credits int64           `json:"credits"`
}

// SubunitAmount returns the price in the smallest currency unit, truncated.
func (p Product) SubunitAmount() int64 {
	return p.Price.Mul(subunitsPerUnit).IntPart()
}

type Catalog struct {
	products []Product
}

func NewCatalog(products ...Product) *Catalog {
	cp := make([]Product, len(products))
	copy(cp, products)
	return &Catalog{products: cp}
}

// DefaultCatalog is the fixed product list sold by the store.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		Product{ID: 1, Name: "Small Credit Pack", Price: decimal.RequireFromString("5.00"), Credits: 500},
		Product{ID: 2, Name: "Medium Credit Pack", Price: decimal.RequireFromString("10.00"), Credits: 1200},
		Product{ID: 3, Name: "Large Credit Pack", Price: decimal.RequireFromString("20.00"), Credits: 2500},
	)
}

func (c *Catalog) All() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *Catalog) Find(id int) (Product, bool) {
	for _, p := range c.products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}
