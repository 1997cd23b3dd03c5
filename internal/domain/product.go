package domain

import "github.com/shopspring/decimal"

type Product struct {
	ID             string          `db:"id"`
	Name           string          `db:"name"`
	Description    string          `db:"description"`
	Category       string          `db:"category"`
	Brand          string          `db:"brand"`
	Price          decimal.Decimal `db:"price"`
	CompareAtPrice decimal.Decimal `db:"compare_at_price"`
	Active         bool            `db:"active"`
	Featured       bool            `db:"featured"`
	AverageRating  float64         `db:"average_rating"`
	TotalReviews   int             `db:"total_reviews"`
	CreatedAt      string          `db:"created_at"`
	UpdatedAt      string          `db:"updated_at"`

	Variants []Variant `db:"-"`
}

// Variant is a specific size/color combination with its own stock and SKU.
type Variant struct {
	ProductID string `db:"product_id"`
	SKU       string `db:"sku"`
	Size      string `db:"size"`
	Color     string `db:"color"`
	Stock     int    `db:"stock"`
}

// FindVariant resolves a size/color pair to the product's variant, or nil.
func (p *Product) FindVariant(size, color string) *Variant {
	for i := range p.Variants {
		if p.Variants[i].Size == size && p.Variants[i].Color == color {
			return &p.Variants[i]
		}
	}
	return nil
}

// Availability is the stock answer for one variant.
type Availability struct {
	Status string `json:"status"`
	Qty    int    `json:"qty"`
}

type Review struct {
	ID        string `db:"id"`
	ProductID string `db:"product_id"`
	UserID    string `db:"user_id"`
	Rating    int    `db:"rating"`
	Comment   string `db:"comment"`
	CreatedAt string `db:"created_at"`
}
