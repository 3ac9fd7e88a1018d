package service

import (
	"context"

	models "storefront/model"
)

type ServiceInterface interface {
	ListProducts(f ProductFilter) []models.Product
	GetProduct(id int64) (models.Product, error)
	CreateProduct(ctx context.Context, in models.ProductInput) (models.Product, error)
	UpdateProduct(ctx context.Context, id int64, in models.ProductInput) (models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	Categories() []string

	ListOrders() []models.Order
	GetOrder(id int64) (models.Order, error)
	CreateOrder(in models.OrderInput) (models.Order, error)
}

// Catalog is the product repository the service sits on.
type Catalog interface {
	List() []models.Product
	Get(id int64) (models.Product, error)
	Create(p models.Product) (models.Product, error)
	Update(id int64, in models.ProductInput) (models.Product, error)
	Delete(id int64) bool
}

type OrderBook interface {
	List() []models.Order
	Get(id int64) (models.Order, error)
	Create(in models.OrderInput) (models.Order, error)
}

// ProductMirror receives a copy of every catalog write so that remote cart and
// wishlist rows can reference the product.
type ProductMirror interface {
	UpsertProduct(ctx context.Context, p models.Product) error
	DeleteProduct(ctx context.Context, productID int64) error
}
