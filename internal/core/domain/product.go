package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	ImgURL      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// InStock reports whether at least one unit can be sold.
func (p *Product) InStock() bool {
	return p.Stock >= 1
}
