package store

import (
	"errors"
	"fmt"
	"slices"

	models "storefront/model"
)

var (
	// ErrNotFound is returned when a product, order, profile or cart row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an insert hits a unique constraint.
	ErrDuplicate = errors.New("already exists")
)

// DefaultSKU is the SKU given to products created without one.
func DefaultSKU(id int64) string {
	return fmt.Sprintf("IP-%04d", id)
}

func checkProduct(p models.Product) error {
	if p.Price.IsNegative() {
		return &models.ValidationError{Msg: "price must be >= 0", Fields: []string{"price"}}
	}
	if p.Stock < 0 {
		return &models.ValidationError{Msg: "stock must be >= 0", Fields: []string{"stock"}}
	}
	return nil
}

func cloneProduct(p models.Product) models.Product {
	p.Tags = slices.Clone(p.Tags)
	return p
}
