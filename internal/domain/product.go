package domain

type ProductStatus string

const (
	ProductStatusActive       ProductStatus = "ACTIVE"
	ProductStatusInactive     ProductStatus = "INACTIVE"
	ProductStatusDiscontinued ProductStatus = "DISCONTINUED"
)

// Product is the catalog snapshot as returned by GET /product/{id}.
type Product struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Brand       string        `json:"brand"`
	Description string        `json:"description"`
	Price       float64       `json:"price"`
	Stock       int           `json:"stock"`
	Status      ProductStatus `json:"status"`
	ImageURL    string        `json:"imageURL"`
	Category    string        `json:"category"`
	CreatedAt   string        `json:"createdAt"`
}

// InStock reports whether at least one unit can be put in a cart.
func (p Product) InStock() bool {
	return p.Stock > 0
}
