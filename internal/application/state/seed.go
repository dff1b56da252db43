package state

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/domain/catalog"
)

// seed installs the default demo catalog on first run
func (s *Store) seed(ctx context.Context) error {
	products, err := demoProducts()
	if err != nil {
		return err
	}
	if err := s.DispatchSync(ctx, SetProducts{Products: products}); err != nil {
		return err
	}
	s.logger.Info("seeded demo catalog", zap.Int("products", len(products)))
	return nil
}

type demoProduct struct {
	name         string
	sku          string
	barcode      string
	category     string
	description  string
	price        string
	cost         string
	stock        int
	reorderLevel int
}

func demoProducts() ([]catalog.Product, error) {
	seed := []demoProduct{
		{
			name:         "Premium Coffee Beans",
			sku:          "COFFEE-001",
			barcode:      "1234567890123",
			category:     "Beverages",
			description:  "High-quality arabica coffee beans",
			price:        "24.99",
			cost:         "12.50",
			stock:        50,
			reorderLevel: 10,
		},
		{
			name:         "Organic Green Tea",
			sku:          "TEA-001",
			barcode:      "1234567890124",
			category:     "Beverages",
			description:  "Organic green tea leaves",
			price:        "18.99",
			cost:         "9.50",
			stock:        30,
			reorderLevel: 5,
		},
		{
			name:         "Artisan Chocolate",
			sku:          "CHOC-001",
			barcode:      "1234567890125",
			category:     "Confectionery",
			description:  "Handcrafted dark chocolate",
			price:        "8.99",
			cost:         "4.50",
			stock:        75,
			reorderLevel: 15,
		},
	}

	products := make([]catalog.Product, 0, len(seed))
	for _, d := range seed {
		price, err := decimal.NewFromString(d.price)
		if err != nil {
			return nil, err
		}
		cost, err := decimal.NewFromString(d.cost)
		if err != nil {
			return nil, err
		}

		p, err := catalog.NewProduct(d.name, d.sku, price)
		if err != nil {
			return nil, err
		}
		p.Barcode = d.barcode
		p.Category = d.category
		p.Description = d.description
		p.Cost = cost
		p.Stock = d.stock
		p.ReorderLevel = d.reorderLevel
		products = append(products, *p)
	}
	return products, nil
}
