package store

import (
	"context"

	"github.com/google/uuid"
	models "storefront/model"
)

// Store is the hosted Postgres boundary: the cart, wishlist, products and profiles
// tables a signed-in session reads and writes through.
type Store interface {
	ListCart(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	AddToCart(ctx context.Context, userID uuid.UUID, productID int64, qty, stock int) (int, error)
	SetCartQuantity(ctx context.Context, userID uuid.UUID, productID int64, qty int) error
	RemoveFromCart(ctx context.Context, userID uuid.UUID, productID int64) error
	ClearCart(ctx context.Context, userID uuid.UUID) error

	ListWishlist(ctx context.Context, userID uuid.UUID) ([]models.WishlistItem, error)
	AddToWishlist(ctx context.Context, userID uuid.UUID, productID int64) error
	RemoveFromWishlist(ctx context.Context, userID uuid.UUID, productID int64) error
	ClearWishlist(ctx context.Context, userID uuid.UUID) error

	UpsertProduct(ctx context.Context, p models.Product) error
	DeleteProduct(ctx context.Context, productID int64) error

	GetProfile(ctx context.Context, id uuid.UUID) (models.Profile, error)

	Close() error
}
